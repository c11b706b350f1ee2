package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

// connectionPath addresses a connection by ID when set, else by connector slug.
func connectionPath(q domain.ConnectionQuery) string {
	if q.ByID() {
		return "/connection/" + url.PathEscape(q.ID)
	}
	return "/connections/" + url.PathEscape(q.Slug)
}

// ListConnections lists the user's connections, optionally for one connector.
func (c *Client) ListConnections(ctx context.Context, cfg domain.Config, slug string) ([]domain.Connection, error) {
	path := "/connections"
	if slug != "" {
		path += "?" + url.Values{"connector": {slug}}.Encode()
	}
	var connections []domain.Connection
	if err := c.get(ctx, cfg, call{path: path}, "connections", &connections); err != nil {
		return nil, err
	}
	return connections, nil
}

// GetConnection looks a connection up by ID or connector slug.
func (c *Client) GetConnection(ctx context.Context, cfg domain.Config, q domain.ConnectionQuery) (*domain.Connection, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	var conn domain.Connection
	if err := c.get(ctx, cfg, call{path: connectionPath(q)}, "connection", &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// CreateConnection creates a connection for the connector, with id when set.
func (c *Client) CreateConnection(ctx context.Context, cfg domain.Config, slug, id string) (*domain.Connection, error) {
	r := call{method: http.MethodPost, path: "/connections/" + url.PathEscape(slug)}
	if id != "" {
		r.body = map[string]string{"id": id}
	}
	var conn domain.Connection
	if err := c.get(ctx, cfg, r, "connection", &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

// RemoveConnection deletes a connection by ID or connector slug.
func (c *Client) RemoveConnection(ctx context.Context, cfg domain.Config, q domain.ConnectionQuery) error {
	if err := q.Validate(); err != nil {
		return err
	}
	_, err := c.do(ctx, cfg, call{method: http.MethodDelete, path: connectionPath(q)})
	return err
}
