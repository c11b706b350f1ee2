package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

func authorizationPath(prototypeSlug string) string {
	return "/authorizations/" + url.PathEscape(prototypeSlug)
}

// CreateAuthorization starts a new authorization for the prototype.
func (c *Client) CreateAuthorization(ctx context.Context, cfg domain.Config, prototypeSlug string) (*domain.Authorization, error) {
	var auth domain.Authorization
	r := call{method: http.MethodPost, path: authorizationPath(prototypeSlug)}
	if err := c.get(ctx, cfg, r, "authorization", &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// GetAuthorization reads an authorization.
func (c *Client) GetAuthorization(
	ctx context.Context,
	cfg domain.Config,
	prototypeSlug string,
	id domain.AuthorizationID,
) (*domain.Authorization, error) {
	var auth domain.Authorization
	r := call{path: authorizationPath(prototypeSlug) + "/" + url.PathEscape(id.String())}
	if err := c.get(ctx, cfg, r, "authorization", &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}

// SetAuthorizationFields submits collected fields. The state identifies the
// authorization being set up and is sent alongside the fields.
func (c *Client) SetAuthorizationFields(
	ctx context.Context,
	cfg domain.Config,
	prototypeSlug, state string,
	fields map[string]any,
) (*domain.Authorization, error) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["state"] = state

	var auth domain.Authorization
	r := call{method: http.MethodPut, path: authorizationPath(prototypeSlug), body: body}
	if err := c.get(ctx, cfg, r, "authorization", &auth); err != nil {
		return nil, err
	}
	return &auth, nil
}
