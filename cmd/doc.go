// Package cmd implements the command-line interface for calbridge.
//
// This package provides the following commands:
//   - serve: Start the MCP server exposing Calendar and Tasks tools
//   - events: List calendar events from the terminal
//   - tasks: List task lists and tasks from the terminal
//   - auth: Verify service-account credentials
//   - version: Display version information
//
// The serve command is the default command when no subcommand is
// specified.
package cmd
