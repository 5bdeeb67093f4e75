// Package server assembles the client core into a running service: it
// wires credentials, token management, the resilience pipeline and the
// domain clients into a ServerContext consumed by the MCP tools and the
// CLI, and provides health and metrics HTTP endpoints.
package server
