package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

func crmPath(connectionID, suffix string) string {
	return "/connection/" + url.PathEscape(connectionID) + suffix
}

// ListCRMObjects posts the mapping to crm_setup. A 400 answer carries
// validation details and is returned like a success.
func (c *Client) ListCRMObjects(ctx context.Context, cfg domain.Config, connectionID string, mapping json.RawMessage) (json.RawMessage, error) {
	return c.do(ctx, cfg, call{
		method:   http.MethodPost,
		path:     crmPath(connectionID, "/crm_setup"),
		body:     mapping,
		allow400: true,
	})
}

// ListAPIObjects lists the API objects of a connection.
func (c *Client) ListAPIObjects(ctx context.Context, cfg domain.Config, connectionID string) (json.RawMessage, error) {
	var objects json.RawMessage
	if err := c.get(ctx, cfg, call{path: crmPath(connectionID, "/api_objects")}, "api_objects", &objects); err != nil {
		return nil, err
	}
	return objects, nil
}

// GetAPIObject returns one API object of a connection.
func (c *Client) GetAPIObject(ctx context.Context, cfg domain.Config, connectionID, objectSlug string) (json.RawMessage, error) {
	var object json.RawMessage
	r := call{path: crmPath(connectionID, "/api_objects/"+url.PathEscape(objectSlug))}
	if err := c.get(ctx, cfg, r, "api_object", &object); err != nil {
		return nil, err
	}
	return object, nil
}

// GetMapping returns the CRM mapping of a connection.
func (c *Client) GetMapping(ctx context.Context, cfg domain.Config, connectionID string) (json.RawMessage, error) {
	return c.do(ctx, cfg, call{path: crmPath(connectionID, "/crm_mapping")})
}

// SaveMapping stores the CRM mapping of a connection.
func (c *Client) SaveMapping(ctx context.Context, cfg domain.Config, connectionID string, objects, mappings json.RawMessage) error {
	_, err := c.do(ctx, cfg, call{
		method: http.MethodPost,
		path:   crmPath(connectionID, "/crm_mapping"),
		body: map[string]json.RawMessage{
			"objects": objects,
			"mapping": mappings,
		},
	})
	return err
}
