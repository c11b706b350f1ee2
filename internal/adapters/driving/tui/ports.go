// Package tui provides the interactive terminal views of xkit.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driving"
)

// Ports aggregates the driving ports the TUI needs.
type Ports struct {
	// Connect runs connections and reports authorization progress.
	Connect driving.ConnectService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Connect == nil {
		return ErrMissingConnectService
	}
	return nil
}
