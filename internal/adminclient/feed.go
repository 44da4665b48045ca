package adminclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"registration-service/internal/realtime"
	"registration-service/internal/registration"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
)

const (
	feedWriteWait = 10 * time.Second
	feedPongWait  = 75 * time.Second
	joinTimeout   = 10 * time.Second
)

type EventKind string

const (
	// EventConnected follows every successful (re)join. Callers re-fetch
	// the list then, since broadcasts sent while disconnected are lost.
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
	EventCreated      EventKind = "created"
)

type Event struct {
	Kind         EventKind
	Registration registration.Registration
	Err          error
}

// Feed follows the admin channel, reconnecting with exponential backoff and
// re-joining the room on every new connection.
type Feed struct {
	url    string
	dialer *websocket.Dialer
	header http.Header
	logger *slog.Logger

	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func NewFeed(wsURL string, logger *slog.Logger) *Feed {
	return &Feed{
		url:             wsURL,
		dialer:          &websocket.Dialer{HandshakeTimeout: 10 * time.Second, Proxy: http.ProxyFromEnvironment},
		header:          http.Header{},
		logger:          logger,
		InitialInterval: 500 * time.Millisecond,
		MaxInterval:     30 * time.Second,
	}
}

// Run delivers events until ctx ends or the server rejects the credentials.
func (f *Feed) Run(ctx context.Context, events chan<- Event) error {
	for {
		conn, err := f.connectWithBackoff(ctx)
		if err != nil {
			return err
		}

		if !emit(ctx, events, Event{Kind: EventConnected}) {
			_ = conn.Close()
			return ctx.Err()
		}

		err = f.read(ctx, conn, events)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("admin feed disconnected", "error", err)
		if !emit(ctx, events, Event{Kind: EventDisconnected, Err: err}) {
			return ctx.Err()
		}
	}
}

func (f *Feed) connectWithBackoff(ctx context.Context) (*websocket.Conn, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = f.InitialInterval
	b.MaxInterval = f.MaxInterval
	b.MaxElapsedTime = 0

	var conn *websocket.Conn
	op := func() error {
		c, err := f.connect(ctx)
		if err != nil {
			return err
		}
		conn = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		f.logger.Info("admin feed connect failed, retrying", "error", err, "wait", wait)
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return nil, err
	}
	return conn, nil
}

// connect dials and joins the admin room. Authentication failures are permanent.
func (f *Feed) connect(ctx context.Context) (*websocket.Conn, error) {
	conn, resp, err := f.dialer.DialContext(ctx, f.url, f.header)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, backoff.Permanent(fmt.Errorf("admin feed rejected: %s", resp.Status))
		}
		return nil, err
	}

	if err := f.join(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}

func (f *Feed) join(conn *websocket.Conn) error {
	_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
	if err := conn.WriteJSON(realtime.Message{Type: realtime.TypeJoinAdminRoom}); err != nil {
		return fmt.Errorf("send join: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(joinTimeout))
	for {
		var msg realtime.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("await join ack: %w", err)
		}
		switch msg.Type {
		case realtime.TypeJoinedAdminRoom:
			return nil
		case realtime.TypeError:
			return errors.New("server refused join: " + string(msg.Data))
		}
	}
}

func (f *Feed) read(ctx context.Context, conn *websocket.Conn, events chan<- Event) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
	conn.SetPingHandler(func(appData string) error {
		_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(feedWriteWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg realtime.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			f.logger.Debug("ignoring malformed frame", "error", err)
			continue
		}
		if msg.Type != realtime.TypeNewRegistration {
			continue
		}

		var ev registration.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			f.logger.Warn("ignoring malformed registration event", "error", err)
			continue
		}
		reg, ok := withPlaceholder(ev.Registration)
		if !ok {
			f.logger.Warn("ignoring registration event without email", "id", ev.ID)
			continue
		}
		if !emit(ctx, events, Event{Kind: EventCreated, Registration: reg}) {
			return ctx.Err()
		}
	}
}

func emit(ctx context.Context, events chan<- Event, ev Event) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
