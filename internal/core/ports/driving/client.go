package driving

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

// TokenCallback produces a session token out-of-band. It is invoked when the
// session can no longer be refreshed silently.
type TokenCallback func(ctx context.Context) (string, error)

// Listener receives event payloads.
type Listener func(payload any)

// SessionService is the session half of the public client surface.
type SessionService interface {
	// Ready blocks until the initial session load has finished.
	Ready(ctx context.Context) error

	// Login establishes a session from a bearer token. cb is stored for
	// later silent re-authentication and may be nil.
	Login(ctx context.Context, token string, cb TokenCallback) error

	// LoginWith obtains the token from cb, then logs in with it.
	LoginWith(ctx context.Context, cb TokenCallback) error

	// Logout ends the session.
	Logout(ctx context.Context) error

	// GetAccessToken returns a valid access token.
	GetAccessToken(ctx context.Context) (string, error)

	// State returns a snapshot of the session.
	State() domain.SessionState
}

// ConnectService is the public client surface used by the CLI, the MCP
// server and embedding programs.
type ConnectService interface {
	SessionService

	// Domain returns the vendor domain.
	Domain() string

	// URL returns the vendor's secure origin.
	URL() string

	// ConnectorURL returns the hosted page of a connector.
	ConnectorURL(slug string) string

	GetPlatform(ctx context.Context) (*domain.Platform, error)
	ListConnectors(ctx context.Context) ([]domain.Connector, error)
	GetConnector(ctx context.Context, slug string) (*domain.Connector, error)

	// ListConnections lists all connections, or the connector's when slug is set.
	ListConnections(ctx context.Context, slug string) ([]domain.Connection, error)
	GetConnection(ctx context.Context, query domain.ConnectionQuery) (*domain.Connection, error)
	GetConnectionOrConnector(ctx context.Context, slug string) (domain.ConnectionOrConnector, error)

	// GetConnectionToken returns the connection's third-party access token,
	// or "" when the connection is missing, disabled or unauthorized.
	GetConnectionToken(ctx context.Context, query domain.ConnectionQuery) (string, error)

	// Connect creates the connector's connection and authorizes it in a popup.
	Connect(ctx context.Context, slug string) (*domain.Connection, error)

	// AddConnection creates an additional connection, optionally with an ID.
	AddConnection(ctx context.Context, slug, id string) (*domain.Connection, error)

	// Reconnect re-runs authorization for an existing connection.
	Reconnect(ctx context.Context, conn *domain.Connection) (*domain.Connection, error)

	// Disconnect removes the connector's connection.
	Disconnect(ctx context.Context, slug string) error

	// RemoveConnection removes a connection by ID or slug.
	RemoveConnection(ctx context.Context, query domain.ConnectionQuery) error

	// SetAuthorizationFields submits collected fields for an authorization.
	SetAuthorizationFields(ctx context.Context, prototypeSlug, state string, fields map[string]any) (*domain.Authorization, error)

	ListCRMObjects(ctx context.Context, conn *domain.Connection, mapping json.RawMessage) (json.RawMessage, error)
	ListAPIObjects(ctx context.Context, conn *domain.Connection) (json.RawMessage, error)
	GetAPIObject(ctx context.Context, conn *domain.Connection, objectSlug string) (json.RawMessage, error)
	GetMapping(ctx context.Context, conn *domain.Connection) (json.RawMessage, error)
	SaveMapping(ctx context.Context, conn *domain.Connection, objects, mappings json.RawMessage) error

	// On registers a listener under id. Registering the same (event, id)
	// twice fails with domain.ErrListenerExists.
	On(event domain.Event, id string, fn Listener) error

	// Off removes a listener. Fails with domain.ErrListenerNotFound.
	Off(event domain.Event, id string) error
}
