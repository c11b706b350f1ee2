package driven

import (
	"context"
	"encoding/json"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

// SessionAPI manages the platform user session.
type SessionAPI interface {
	// CreateSession establishes a server-side session from a bearer credential.
	CreateSession(ctx context.Context, cfg domain.Config, token string) error

	// DeleteSession destroys the server-side session.
	DeleteSession(ctx context.Context, cfg domain.Config) error

	// GetAccessToken exchanges the session cookie for a fresh access token.
	GetAccessToken(ctx context.Context, cfg domain.Config) (string, error)

	// GetOneTimeToken mints a short-lived token for the authorization window.
	GetOneTimeToken(ctx context.Context, cfg domain.Config) (string, error)

	// AssertToken succeeds only if cfg.Token is currently valid.
	AssertToken(ctx context.Context, cfg domain.Config) error
}

// ConnectorAPI reads the connector catalog.
type ConnectorAPI interface {
	ListConnectors(ctx context.Context, cfg domain.Config) ([]domain.Connector, error)
	ListConnectorsPublic(ctx context.Context, cfg domain.Config) ([]domain.PublicConnector, error)
	GetConnector(ctx context.Context, cfg domain.Config, slug string) (*domain.Connector, error)
	GetConnectorPublic(ctx context.Context, cfg domain.Config, slug string) (*domain.PublicConnector, error)
}

// ConnectionAPI manages the user's connections.
type ConnectionAPI interface {
	// ListConnections returns all connections, or only the connector's when slug is set.
	ListConnections(ctx context.Context, cfg domain.Config, slug string) ([]domain.Connection, error)

	// GetConnection looks a connection up by ID or connector slug.
	GetConnection(ctx context.Context, cfg domain.Config, query domain.ConnectionQuery) (*domain.Connection, error)

	// CreateConnection creates a connection for the connector.
	// When id is set the server reuses or creates the connection with that ID.
	CreateConnection(ctx context.Context, cfg domain.Config, slug, id string) (*domain.Connection, error)

	// RemoveConnection deletes a connection by ID or connector slug.
	RemoveConnection(ctx context.Context, cfg domain.Config, query domain.ConnectionQuery) error
}

// AuthorizationAPI manages authorization records.
type AuthorizationAPI interface {
	CreateAuthorization(ctx context.Context, cfg domain.Config, prototypeSlug string) (*domain.Authorization, error)
	GetAuthorization(ctx context.Context, cfg domain.Config, prototypeSlug string, id domain.AuthorizationID) (*domain.Authorization, error)
	SetAuthorizationFields(ctx context.Context, cfg domain.Config, prototypeSlug, state string, fields map[string]any) (*domain.Authorization, error)
}

// PlatformInfoAPI reads the vendor platform description.
type PlatformInfoAPI interface {
	GetPlatform(ctx context.Context, cfg domain.Config) (*domain.Platform, error)
}

// CRMAPI exposes the CRM object mapping endpoints of a connection.
type CRMAPI interface {
	ListCRMObjects(ctx context.Context, cfg domain.Config, connectionID string, mapping json.RawMessage) (json.RawMessage, error)
	ListAPIObjects(ctx context.Context, cfg domain.Config, connectionID string) (json.RawMessage, error)
	GetAPIObject(ctx context.Context, cfg domain.Config, connectionID, objectSlug string) (json.RawMessage, error)
	GetMapping(ctx context.Context, cfg domain.Config, connectionID string) (json.RawMessage, error)
	SaveMapping(ctx context.Context, cfg domain.Config, connectionID string, objects, mappings json.RawMessage) error
}

// PlatformAPI is the full REST surface of /api/platform_user.
type PlatformAPI interface {
	SessionAPI
	ConnectorAPI
	ConnectionAPI
	AuthorizationAPI
	PlatformInfoAPI
	CRMAPI
}
