package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"registration-service/internal/adminclient"
	"registration-service/internal/registration"

	"github.com/spf13/cobra"
)

var (
	listQuery  adminclient.Query
	listAsJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registrations, newest first",
	Long: `List one page of registrations, newest first.

Examples:
  regctl list
  regctl list --search asha
  regctl list --service EduTech --page 2 --page-size 20
  regctl list --json | jq '.data[].email'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		res, err := client.List(ctx, listQuery)
		if err != nil {
			return apiFailure(cmd, err)
		}

		if listAsJSON {
			return printJSON(cmd, res)
		}
		printRecords(cmd.OutOrStdout(), res.Records)
		fmt.Fprintf(cmd.OutOrStdout(), "\npage %d of %d, %d total\n", res.Page, res.TotalPages, res.Total)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a registration",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		msg, err := client.Delete(ctx, args[0])
		if err != nil {
			return apiFailure(cmd, err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), msg)
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show registration counts per service",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		stats, err := client.Stats(ctx)
		if err != nil {
			return apiFailure(cmd, err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, s := range stats.ByService {
			fmt.Fprintf(w, "%s\t%d\n", s.Service, s.Count)
		}
		fmt.Fprintf(w, "total\t%d\n", stats.Total)
		return w.Flush()
	},
}

func printRecords(out io.Writer, records []registration.Registration) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tSERVICE\tCOURSE\tCREATED")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.FullName, r.Email, r.Phone, r.Service, r.Course,
			r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

func apiFailure(cmd *cobra.Command, err error) error {
	var apiErr *adminclient.APIError
	if errors.As(err, &apiErr) {
		return fail(cmd, apiErr.Message, apiErr.Fields)
	}
	return err
}

func init() {
	f := listCmd.Flags()
	f.IntVar(&listQuery.Page, "page", 1, "page number")
	f.IntVar(&listQuery.PageSize, "page-size", 0, "records per page (server default when 0)")
	f.StringVar(&listQuery.Search, "search", "", "case-insensitive text search")
	f.StringVar(&listQuery.Service, "service", "", "exact service filter")
	f.BoolVar(&listAsJSON, "json", false, "print the raw result as JSON")

	rootCmd.AddCommand(listCmd, deleteCmd, statsCmd)
}
