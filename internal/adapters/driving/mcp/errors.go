// Package mcp provides an MCP (Model Context Protocol) server adapter for xkit.
// It lets AI assistants list connectors and borrow connection tokens.
package mcp

import "errors"

// ErrMissingConnectService is returned when the connect service is not provided.
var ErrMissingConnectService = errors.New("mcp: connect service is required")
