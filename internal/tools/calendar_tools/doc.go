// Package calendar_tools exposes the Calendar client as MCP tools:
// event CRUD, calendar discovery, and free/busy queries. Handlers
// validate arguments and report failures as tool errors so the MCP
// session stays alive across bad calls.
package calendar_tools
