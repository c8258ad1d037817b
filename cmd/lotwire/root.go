package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

// NewRootCmd returns the base lotwire command
func NewRootCmd() *cobra.Command {
	var level string

	cmd := &cobra.Command{
		Use:           "lotwire",
		Short:         "multi-agency lottery intake and result distribution",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lvl, err := zerolog.ParseLevel(level)
			if err != nil {
				return fmt.Errorf("--log-level: %w", err)
			}
			zerolog.SetGlobalLevel(lvl)
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&level, "log-level",
		envString("LOTWIRE_LOG_LEVEL", "info"), "log level (trace..error)")

	cmd.AddCommand(
		ServeCommand(),
		AgencyCommand(),
		VersionCommand(),
	)
	return cmd
}

// VersionCommand prints the build version
func VersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version.",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "lotwire %s\n", version)
			return nil
		},
	}
}

// envString returns the LOTWIRE_* variable value, or def when unset
func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

// envInt returns the LOTWIRE_* variable as an int, or def when unset or bad
func envInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := cast.ToIntE(v); err == nil {
			return n
		}
	}
	return def
}

// envDuration returns the LOTWIRE_* variable as a duration, or def
func envDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := cast.ToDurationE(v); err == nil {
			return d
		}
	}
	return def
}
