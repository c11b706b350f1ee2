package mcp

import (
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driving"
)

// Ports aggregates the driving ports the MCP server needs.
type Ports struct {
	// Connect is the client surface the tools call.
	Connect driving.ConnectService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Connect == nil {
		return ErrMissingConnectService
	}
	return nil
}
