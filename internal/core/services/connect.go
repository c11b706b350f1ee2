package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

// Connect creates the connector's connection and authorizes it in a popup.
func (c *Client) Connect(ctx context.Context, slug string) (*domain.Connection, error) {
	if slug == "" {
		return nil, fmt.Errorf("connect: %w", domain.ErrInvalidInput)
	}
	return c.connectWith(ctx, func(ctx context.Context, cfg domain.Config, w *AuthWindow) (*domain.Connection, error) {
		return c.createAndAuthorize(ctx, cfg, w, slug, "")
	})
}

// AddConnection creates an additional connection for the connector and
// authorizes it. When id is set the connection is created with that ID.
func (c *Client) AddConnection(ctx context.Context, slug, id string) (*domain.Connection, error) {
	if slug == "" {
		return nil, fmt.Errorf("add connection: %w", domain.ErrInvalidInput)
	}
	return c.connectWith(ctx, func(ctx context.Context, cfg domain.Config, w *AuthWindow) (*domain.Connection, error) {
		return c.createAndAuthorize(ctx, cfg, w, slug, id)
	})
}

// Reconnect runs a new authorization for an existing connection. A
// connection that was never authorized is connected from scratch.
func (c *Client) Reconnect(ctx context.Context, conn *domain.Connection) (*domain.Connection, error) {
	if conn == nil {
		return nil, fmt.Errorf("reconnect: %w", domain.ErrInvalidInput)
	}
	return c.connectWith(ctx, func(ctx context.Context, cfg domain.Config, w *AuthWindow) (*domain.Connection, error) {
		if !conn.HasAuthorization() {
			return c.createAndAuthorize(ctx, cfg, w, conn.Connector.Slug, conn.ID)
		}

		auth, err := c.api.CreateAuthorization(ctx, cfg, conn.Authorization.PrototypeSlug())
		if err != nil {
			return nil, fmt.Errorf("create authorization: %w", err)
		}
		if _, err := c.authorizer.Authorize(ctx, cfg, w, auth); err != nil {
			return nil, err
		}
		return c.api.GetConnection(ctx, cfg, refreshQuery(conn))
	})
}

// Disconnect removes the connector's connection.
func (c *Client) Disconnect(ctx context.Context, slug string) error {
	return c.RemoveConnection(ctx, domain.ConnectionQuery{Slug: slug})
}

// RemoveConnection removes a connection by ID or connector slug.
func (c *Client) RemoveConnection(ctx context.Context, query domain.ConnectionQuery) error {
	if err := query.Validate(); err != nil {
		return fmt.Errorf("remove connection: %w", err)
	}
	_, err := CallWithConfig(ctx, c.session, func(ctx context.Context, cfg domain.Config) (struct{}, error) {
		return struct{}{}, c.api.RemoveConnection(ctx, cfg, query)
	}, nil)
	if err != nil {
		return err
	}

	c.emitter.Emit(domain.EventConnectionRemove, query)
	c.emitter.Emit(domain.EventConnectionDisable, query)
	return nil
}

// connectWith runs flow inside an authorization window under the session,
// announcing the resulting connection.
func (c *Client) connectWith(
	ctx context.Context,
	flow func(context.Context, domain.Config, *AuthWindow) (*domain.Connection, error),
) (*domain.Connection, error) {
	conn, err := CallWithConfig(ctx, c.session, func(ctx context.Context, cfg domain.Config) (*domain.Connection, error) {
		return PrepareAuthWindow(ctx, c.windows, cfg, func(ctx context.Context, w *AuthWindow) (*domain.Connection, error) {
			return flow(ctx, cfg, w)
		})
	}, nil)
	if err != nil {
		return nil, err
	}

	c.emitter.Emit(domain.EventConnectionEnable, conn)
	return conn, nil
}

func (c *Client) createAndAuthorize(
	ctx context.Context,
	cfg domain.Config,
	w *AuthWindow,
	slug, id string,
) (*domain.Connection, error) {
	created, err := c.api.CreateConnection(ctx, cfg, slug, id)
	if err != nil {
		return nil, fmt.Errorf("create connection: %w", err)
	}
	if !created.HasAuthorization() {
		return nil, fmt.Errorf("connection to %s has no authorization: %w", slug, domain.ErrAuthorizationNotReady)
	}
	if _, err := c.authorizer.Authorize(ctx, cfg, w, created.Authorization); err != nil {
		return nil, err
	}
	if created.Connector.Slug == "" {
		created.Connector.Slug = slug
	}
	return c.api.GetConnection(ctx, cfg, refreshQuery(created))
}

// refreshQuery prefers the connection ID so that connectors with several
// connections resolve to the right one.
func refreshQuery(conn *domain.Connection) domain.ConnectionQuery {
	if conn.ID != "" {
		return domain.ConnectionQuery{ID: conn.ID}
	}
	return domain.ConnectionQuery{Slug: conn.Connector.Slug}
}
