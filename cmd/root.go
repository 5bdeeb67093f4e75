package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the calbridge application
var rootCmd = &cobra.Command{
	Use:   "calbridge",
	Short: "Resilient Google Calendar and Tasks bridge",
	Long: `calbridge is a resilient client for the Google Calendar and Tasks APIs,
built around a service account. All requests go through a shared core that
caches reads, coalesces duplicate in-flight calls, rate-limits, retries
transient failures and batches writes.

It can run as:
  - An MCP (Model Context Protocol) server for AI assistants (default)
  - A standalone CLI for listing events and tasks`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calbridge version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newEventsCmd())
	rootCmd.AddCommand(newTasksCmd())
	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newVersionCmd())
}
