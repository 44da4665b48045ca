package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"registration-service/internal/adminclient"

	"github.com/spf13/cobra"
)

var watchQuery adminclient.Query

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow new registrations live",
	Long: `Connect to the admin channel and print registrations as they arrive.
The list is fetched again after every reconnect so nothing missed while
disconnected is lost.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		out := cmd.OutOrStdout()
		feed := adminclient.NewFeed(client.WebsocketURL(), cliLogger())
		view := adminclient.NewView(watchQuery)

		err = adminclient.Watch(ctx, client, feed, view, printWatchEvent(out))
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

// printWatchEvent prints the view on every connect and new registrations
// that pass the view's filters.
func printWatchEvent(out io.Writer) func(*adminclient.View, adminclient.Event) {
	return func(v *adminclient.View, ev adminclient.Event) {
		switch ev.Kind {
		case adminclient.EventConnected:
			fmt.Fprintf(out, "-- connected, %d registrations --\n", v.Total)
			printRecords(out, v.Filtered())
		case adminclient.EventDisconnected:
			fmt.Fprintln(out, "-- disconnected, reconnecting --")
		case adminclient.EventCreated:
			r := ev.Registration
			if !v.Matches(r) {
				return
			}
			fmt.Fprintf(out, "+ %s <%s> %s / %s\n", r.FullName, r.Email, r.Service, r.Course)
		}
	}
}

func init() {
	watchCmd.Flags().IntVar(&watchQuery.PageSize, "page-size", 20, "records fetched on (re)connect")
	watchCmd.Flags().StringVar(&watchQuery.Search, "search", "", "only show matching records")
	watchCmd.Flags().StringVar(&watchQuery.Service, "service", "", "only show this service")
	watchQuery.Page = 1
	rootCmd.AddCommand(watchCmd)
}
