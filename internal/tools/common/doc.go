// Package common provides shared utilities for MCP tool
// implementations: argument extraction helpers and the instrumented
// handler wrapper every tool registers through.
package common
