package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is the application version (set during build).
	Version = "dev"

	// Commit is the git commit hash (set during build).
	Commit = "unknown"

	// BuildDate is the build date (set during build).
	BuildDate = "unknown"
)

// configFile is shared by every subcommand through the persistent --config flag.
var configFile string

var rootCmd = &cobra.Command{
	Use:   "uiharness",
	Short: "Readiness and interaction harness for web UIs",
	Long: `uiharness drives a browser through YAML scenarios against a web application,
waiting for the application to become interactive before every scenario, and
records each run in a local or MySQL database.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run executes the root command. A failed test run exits with its own code
// without printing an error.
func run() error {
	err := rootCmd.Execute()
	var exit *exitError
	if errors.As(err, &exit) {
		os.Exit(exit.code)
	}
	return err
}
