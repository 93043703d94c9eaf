// Command uwbd hosts the UWB session manager as a standalone process:
// a "serve" subcommand that starts the manager against a mock
// transport for local exercise, a "config dump" that prints the
// effective policy/timing configuration, and a "sessions" diagnostic
// that prints the bounded recently-closed LRU.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "uwbd",
	Short: "UWB ranging session manager",
	Long: `uwbd hosts the UWB ranging session manager core: session
lifecycle, admission control, and notification routing between an
abstract UCI transport and an application-facing sink.`,
}

func main() {
	rootCmd.SilenceErrors = true
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML policy/timing config file")

	rootCmd.AddCommand(serveCmd, configCmd, sessionsCmd)

	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Fprintf(os.Stderr, "uwbd: %v\n", err)
		os.Exit(1)
	}
}
