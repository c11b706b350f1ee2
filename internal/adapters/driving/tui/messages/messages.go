// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

// AuthorizeProgressed carries one transition of the authorization attempt.
type AuthorizeProgressed struct {
	Progress domain.AuthorizeProgress
}

// ConnectFinished is sent when Connect returned.
type ConnectFinished struct {
	Connection *domain.Connection
	Err        error
}
