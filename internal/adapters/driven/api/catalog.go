package api

import (
	"context"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

// GetPlatform reads the vendor platform. It needs no session.
func (c *Client) GetPlatform(ctx context.Context, cfg domain.Config) (*domain.Platform, error) {
	var platform domain.Platform
	if err := c.get(ctx, cfg, call{path: "/platform"}, "platform", &platform); err != nil {
		return nil, err
	}
	return &platform, nil
}

// ListConnectors lists the catalog with the user's connections.
func (c *Client) ListConnectors(ctx context.Context, cfg domain.Config) ([]domain.Connector, error) {
	var connectors []domain.Connector
	if err := c.get(ctx, cfg, call{path: "/connectors"}, "connectors", &connectors); err != nil {
		return nil, err
	}
	return connectors, nil
}

// ListConnectorsPublic lists the public catalog.
func (c *Client) ListConnectorsPublic(ctx context.Context, cfg domain.Config) ([]domain.PublicConnector, error) {
	var connectors []domain.PublicConnector
	if err := c.get(ctx, cfg, call{path: "/platform/connectors"}, "connectors", &connectors); err != nil {
		return nil, err
	}
	return connectors, nil
}

// GetConnector returns one catalog entry with the user's connections.
func (c *Client) GetConnector(ctx context.Context, cfg domain.Config, slug string) (*domain.Connector, error) {
	var connector domain.Connector
	if err := c.get(ctx, cfg, call{path: domain.ConnectorPath(slug)}, "connector", &connector); err != nil {
		return nil, err
	}
	return &connector, nil
}

// GetConnectorPublic returns one public catalog entry.
func (c *Client) GetConnectorPublic(ctx context.Context, cfg domain.Config, slug string) (*domain.PublicConnector, error) {
	var connector domain.PublicConnector
	if err := c.get(ctx, cfg, call{path: domain.PublicConnectorPath(slug)}, "connector", &connector); err != nil {
		return nil, err
	}
	return &connector, nil
}
