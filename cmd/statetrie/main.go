// Command statetrie computes state trie roots and applies key/value deltas
// to a trie persisted in a pebble or leveldb store.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eigerco/statetrie/pkg/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		logLevel string
		logJSON  bool
	)

	rootCmd := &cobra.Command{
		Use:           "statetrie",
		Short:         "State trie root and delta tool",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLogLevel(logLevel)
			if err != nil {
				return fmt.Errorf("invalid log level %q: %w", logLevel, err)
			}
			opts := log.Options{LogLevel: level, Type: log.ConsoleLogger, Output: cmd.ErrOrStderr()}
			if logJSON {
				opts.Type = log.JSONLogger
			}
			log.Init(opts)
			return nil
		},
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Log as JSON instead of console output")

	rootCmd.AddCommand(newRootHashCmd(), newApplyCmd(), newGetCmd())
	return rootCmd
}
