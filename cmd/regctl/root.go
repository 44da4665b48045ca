package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"registration-service/internal/adminclient"
	"registration-service/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Use:          "regctl",
	Short:        "Command line client for the registration service",
	Long:         `regctl submits registrations and administers them: list, delete, stats and a live feed of new sign-ups.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().String("server", "http://localhost:5000", "registration service base URL")
	rootCmd.PersistentFlags().String("token", "", "admin access token (see regctl login)")
	rootCmd.PersistentFlags().Duration("timeout", 15*time.Second, "per-command timeout for API calls")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log HTTP activity to stderr")

	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("token", rootCmd.PersistentFlags().Lookup("token"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	viper.SetEnvPrefix("REGCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	rootCmd.SetErrPrefix("regctl:")
}

func cliLogger() *slog.Logger {
	level := slog.LevelWarn
	if viper.GetBool("verbose") {
		level = slog.LevelDebug
	}
	return logger.NewWithLevel(os.Stderr, level)
}

func newAPIClient() (*adminclient.Client, error) {
	return adminclient.New(viper.GetString("server"), cliLogger(),
		adminclient.WithToken(viper.GetString("token")),
	)
}

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), viper.GetDuration("timeout"))
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// fail lists field errors on stderr and returns the message for cobra to print.
func fail(cmd *cobra.Command, message string, fields map[string]string) error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", k, fields[k])
	}
	return errors.New(message)
}
