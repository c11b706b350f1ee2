package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

// Ensure Client implements the interface.
var _ driving.ConnectService = (*Client)(nil)

// ClientDeps are the driven adapters a Client runs on.
type ClientDeps struct {
	API    driven.PlatformAPI
	Dialer driven.RealtimeDialer
	Opener driven.WindowOpener
	// Store persists the session token. Optional.
	Store driven.ConfigStore
	// Navigator performs the login redirect. Optional.
	Navigator driven.Navigator
	Window    WindowSettings
}

// Client is the public surface of the connection broker for one vendor
// domain. It owns its emitter, session and realtime socket.
type Client struct {
	api        driven.PlatformAPI
	emitter    *Emitter
	session    *SessionManager
	sockets    *SocketManager
	windows    *AuthWindowController
	authorizer *Authorizer
}

// NewClient creates a client for the vendor domain and starts loading the
// session in the background. A non-empty token restores a previous session.
func NewClient(vendorDomain, token string, deps ClientDeps) *Client {
	emitter := NewEmitter()
	sockets := NewSocketManager(deps.Dialer, deps.API)
	session := NewSessionManager(deps.API, emitter, sockets, deps.Store, deps.Navigator)

	c := &Client{
		api:        deps.API,
		emitter:    emitter,
		session:    session,
		sockets:    sockets,
		windows:    NewAuthWindowController(deps.Opener, deps.Window),
		authorizer: NewAuthorizer(deps.API, sockets, emitter),
	}

	patch := domain.StatePatch{Domain: domain.Ptr(vendorDomain)}
	if token != "" {
		patch.Token = domain.Ptr(token)
	}
	session.SetState(patch)
	return c
}

// Session returns the session manager.
func (c *Client) Session() *SessionManager {
	return c.session
}

// Close stops background work and drops the realtime socket.
func (c *Client) Close() {
	c.session.Close()
	c.sockets.Reset()
}

// Domain returns the vendor domain.
func (c *Client) Domain() string {
	return c.session.GetState().Domain
}

// URL returns the vendor's secure origin.
func (c *Client) URL() string {
	return c.session.GetState().Config().Origin()
}

// ConnectorURL returns the hosted page of a connector.
func (c *Client) ConnectorURL(slug string) string {
	return c.URL() + domain.ConnectorPath(slug)
}

// SetDomain points the client at another vendor domain, reloading the session.
func (c *Client) SetDomain(vendorDomain string) {
	c.session.SetState(domain.StatePatch{Domain: domain.Ptr(vendorDomain)})
}

// Ready blocks until the session has loaded.
func (c *Client) Ready(ctx context.Context) error {
	return c.session.Ready(ctx)
}

// Login establishes a session from token.
func (c *Client) Login(ctx context.Context, token string, cb driving.TokenCallback) error {
	return c.session.Login(ctx, token, cb)
}

// LoginWith establishes a session from the token cb produces.
func (c *Client) LoginWith(ctx context.Context, cb driving.TokenCallback) error {
	return c.session.LoginWith(ctx, cb)
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.session.Logout(ctx)
}

// GetAccessToken returns a fresh access token.
func (c *Client) GetAccessToken(ctx context.Context) (string, error) {
	return c.session.RetrieveToken(ctx)
}

// State returns a snapshot of the session.
func (c *Client) State() domain.SessionState {
	return c.session.GetState()
}

// GetPlatform returns the vendor platform. It needs no session.
func (c *Client) GetPlatform(ctx context.Context) (*domain.Platform, error) {
	return CallWithConfig(ctx, c.session, c.api.GetPlatform, c.api.GetPlatform)
}

// ListConnectors lists the catalog with the user's connections, or the
// public catalog when there is no session.
func (c *Client) ListConnectors(ctx context.Context) ([]domain.Connector, error) {
	return CallWithConfig(ctx, c.session, c.api.ListConnectors, func(ctx context.Context, cfg domain.Config) ([]domain.Connector, error) {
		public, err := c.api.ListConnectorsPublic(ctx, cfg)
		if err != nil {
			return nil, err
		}
		connectors := make([]domain.Connector, 0, len(public))
		for _, p := range public {
			connectors = append(connectors, domain.Connector{PublicConnector: p})
		}
		return connectors, nil
	})
}

// GetConnector returns one connector, falling back to the public entry.
func (c *Client) GetConnector(ctx context.Context, slug string) (*domain.Connector, error) {
	get := CurryWithConfig(c.session, c.api.GetConnector, publicConnector(c.api))
	return get(ctx, slug)
}

// ListConnections lists the user's connections, optionally for one connector.
func (c *Client) ListConnections(ctx context.Context, slug string) ([]domain.Connection, error) {
	return CurryWithConfig(c.session, c.api.ListConnections, nil)(ctx, slug)
}

// GetConnection looks a connection up by ID or connector slug.
func (c *Client) GetConnection(ctx context.Context, query domain.ConnectionQuery) (*domain.Connection, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("get connection: %w", err)
	}
	return CurryWithConfig(c.session, c.api.GetConnection, nil)(ctx, query)
}

// GetConnectionOrConnector returns the user's connection to a connector, or
// a shell holding the connector when there is none.
func (c *Client) GetConnectionOrConnector(ctx context.Context, slug string) (domain.ConnectionOrConnector, error) {
	get := CurryWithConfig(c.session,
		func(ctx context.Context, cfg domain.Config, slug string) (domain.ConnectionOrConnector, error) {
			conn, err := c.api.GetConnection(ctx, cfg, domain.ConnectionQuery{Slug: slug})
			if err == nil {
				return domain.ConnectionOrConnector{Connection: conn}, nil
			}
			if !domain.IsNotFound(err) {
				return domain.ConnectionOrConnector{}, err
			}
			connector, err := c.api.GetConnector(ctx, cfg, slug)
			if err != nil {
				return domain.ConnectionOrConnector{}, err
			}
			return domain.ConnectionOrConnector{Shell: &domain.ConnectionShell{Connector: *connector}}, nil
		},
		func(ctx context.Context, cfg domain.Config, slug string) (domain.ConnectionOrConnector, error) {
			connector, err := publicConnector(c.api)(ctx, cfg, slug)
			if err != nil {
				return domain.ConnectionOrConnector{}, err
			}
			return domain.ConnectionOrConnector{Shell: &domain.ConnectionShell{Connector: *connector}}, nil
		},
	)
	return get(ctx, slug)
}

// GetConnectionToken returns the connection's third-party access token, or
// "" when there is no enabled, authorized connection.
func (c *Client) GetConnectionToken(ctx context.Context, query domain.ConnectionQuery) (string, error) {
	if err := query.Validate(); err != nil {
		return "", fmt.Errorf("get connection token: %w", err)
	}
	return CallWithConfig(ctx, c.session, func(ctx context.Context, cfg domain.Config) (string, error) {
		conn, err := c.api.GetConnection(ctx, cfg, query)
		if err != nil {
			if domain.IsNotFound(err) {
				return "", nil
			}
			return "", err
		}
		return conn.AccessToken(), nil
	}, nil)
}

// SetAuthorizationFields submits the fields an authorizer collects.
func (c *Client) SetAuthorizationFields(
	ctx context.Context,
	prototypeSlug, state string,
	fields map[string]any,
) (*domain.Authorization, error) {
	return CallWithConfig(ctx, c.session, func(ctx context.Context, cfg domain.Config) (*domain.Authorization, error) {
		return c.api.SetAuthorizationFields(ctx, cfg, prototypeSlug, state, fields)
	}, nil)
}

// SetAuthorizationField submits the fields an authorizer collects.
//
// Deprecated: Use SetAuthorizationFields instead.
func (c *Client) SetAuthorizationField(
	ctx context.Context,
	prototypeSlug, state string,
	fields map[string]any,
) (*domain.Authorization, error) {
	logger.Deprecated("SetAuthorizationField", "SetAuthorizationFields")
	return c.SetAuthorizationFields(ctx, prototypeSlug, state, fields)
}

// ListCRMObjects lists the CRM objects of a connection for a mapping.
func (c *Client) ListCRMObjects(ctx context.Context, conn *domain.Connection, mapping json.RawMessage) (json.RawMessage, error) {
	if conn == nil {
		return nil, domain.ErrInvalidInput
	}
	return CallWithConfig(ctx, c.session, func(ctx context.Context, cfg domain.Config) (json.RawMessage, error) {
		return c.api.ListCRMObjects(ctx, cfg, conn.ID, mapping)
	}, nil)
}

// ListAPIObjects lists the API objects of a connection.
func (c *Client) ListAPIObjects(ctx context.Context, conn *domain.Connection) (json.RawMessage, error) {
	if conn == nil {
		return nil, domain.ErrInvalidInput
	}
	return CallWithConfig(ctx, c.session, func(ctx context.Context, cfg domain.Config) (json.RawMessage, error) {
		return c.api.ListAPIObjects(ctx, cfg, conn.ID)
	}, nil)
}

// GetAPIObject returns one API object of a connection.
func (c *Client) GetAPIObject(ctx context.Context, conn *domain.Connection, objectSlug string) (json.RawMessage, error) {
	if conn == nil {
		return nil, domain.ErrInvalidInput
	}
	return CallWithConfig(ctx, c.session, func(ctx context.Context, cfg domain.Config) (json.RawMessage, error) {
		return c.api.GetAPIObject(ctx, cfg, conn.ID, objectSlug)
	}, nil)
}

// GetMapping returns the CRM mapping of a connection.
func (c *Client) GetMapping(ctx context.Context, conn *domain.Connection) (json.RawMessage, error) {
	if conn == nil {
		return nil, domain.ErrInvalidInput
	}
	return CallWithConfig(ctx, c.session, func(ctx context.Context, cfg domain.Config) (json.RawMessage, error) {
		return c.api.GetMapping(ctx, cfg, conn.ID)
	}, nil)
}

// SaveMapping stores the CRM mapping of a connection.
func (c *Client) SaveMapping(ctx context.Context, conn *domain.Connection, objects, mappings json.RawMessage) error {
	if conn == nil {
		return domain.ErrInvalidInput
	}
	_, err := CallWithConfig(ctx, c.session, func(ctx context.Context, cfg domain.Config) (struct{}, error) {
		return struct{}{}, c.api.SaveMapping(ctx, cfg, conn.ID, objects, mappings)
	}, nil)
	return err
}

// On registers fn for a public event under id.
func (c *Client) On(event domain.Event, id string, fn driving.Listener) error {
	if !event.IsPublic() {
		return fmt.Errorf("unknown event %q: %w", event, domain.ErrInvalidInput)
	}
	return c.emitter.On(event, id, fn)
}

// Off removes the listener registered for event under id.
func (c *Client) Off(event domain.Event, id string) error {
	return c.emitter.Off(event, id)
}

// Subscribe streams a public event on a channel.
func (c *Client) Subscribe(event domain.Event, buf int) (*Subscription, error) {
	if !event.IsPublic() {
		return nil, fmt.Errorf("unknown event %q: %w", event, domain.ErrInvalidInput)
	}
	return c.emitter.Subscribe(event, buf)
}

// publicConnector adapts the public catalog lookup to the Connector shape.
func publicConnector(api driven.ConnectorAPI) func(context.Context, domain.Config, string) (*domain.Connector, error) {
	return func(ctx context.Context, cfg domain.Config, slug string) (*domain.Connector, error) {
		public, err := api.GetConnectorPublic(ctx, cfg, slug)
		if err != nil {
			return nil, err
		}
		return &domain.Connector{PublicConnector: *public}, nil
	}
}
