// Package tasks_tools exposes the Tasks client as MCP tools: listing
// task lists and tasks, creating and completing tasks, and batch
// completion across many task IDs at once.
package tasks_tools
