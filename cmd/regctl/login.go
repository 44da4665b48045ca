package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	loginUser          string
	loginPasswordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Obtain an admin token",
	Long: `Exchange the admin credential for an access token and print it.

Examples:
  echo "$ADMIN_PASSWORD" | regctl login --username admin --password-stdin
  export REGCTL_TOKEN=$(echo "$ADMIN_PASSWORD" | regctl login --password-stdin)`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if !loginPasswordStdin {
			return fmt.Errorf("--password-stdin is required")
		}
		password, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && password == "" {
			return fmt.Errorf("read password: %w", err)
		}
		password = strings.TrimRight(password, "\r\n")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		ctx, cancel := commandContext(cmd)
		defer cancel()

		token, expiresAt, err := client.Login(ctx, loginUser, password)
		if err != nil {
			return apiFailure(cmd, err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), token)
		cliLogger().Info("token issued", "expires_at", expiresAt)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginUser, "username", "admin", "admin username")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "read the password from stdin")
	rootCmd.AddCommand(loginCmd)
}
