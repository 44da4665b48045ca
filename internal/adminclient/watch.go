package adminclient

import (
	"context"
)

// Watch keeps view in sync with the server: the list is re-fetched on every
// (re)connect and broadcasts are merged in between. onChange is called after
// each update from the same goroutine.
func Watch(ctx context.Context, client *Client, feed *Feed, view *View, onChange func(*View, Event)) error {
	events := make(chan Event, 16)
	errCh := make(chan error, 1)
	go func() { errCh <- feed.Run(ctx, events) }()

	for {
		select {
		case err := <-errCh:
			return err
		case ev := <-events:
			switch ev.Kind {
			case EventConnected:
				res, err := client.List(ctx, view.Query())
				if err != nil {
					client.logger.Warn("failed to refresh list after connect", "error", err)
					break
				}
				view.Replace(res)
			case EventCreated:
				view.Apply(ev.Registration)
			}
			if onChange != nil {
				onChange(view, ev)
			}
		}
	}
}
