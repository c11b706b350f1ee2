package api

import (
	"context"
	"net/http"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

// CreateSession establishes a server-side session from token. The session
// cookie lands in the client's jar.
func (c *Client) CreateSession(ctx context.Context, cfg domain.Config, token string) error {
	cfg.Token = token
	_, err := c.do(ctx, cfg, call{method: http.MethodPost, path: "/sessions"})
	return err
}

// DeleteSession destroys the server-side session.
func (c *Client) DeleteSession(ctx context.Context, cfg domain.Config) error {
	_, err := c.do(ctx, cfg, call{method: http.MethodDelete, path: "/sessions"})
	return err
}

// GetAccessToken exchanges the session cookie for an access token.
func (c *Client) GetAccessToken(ctx context.Context, cfg domain.Config) (string, error) {
	data, err := c.do(ctx, cfg, call{method: http.MethodPost, path: "/sessions/token"})
	if err != nil {
		return "", err
	}
	var token string
	if err := field(data, "access_token", &token); err != nil || token == "" {
		return "", domain.ErrNoAccessToken
	}
	return token, nil
}

// GetOneTimeToken mints a one-time token for the authorization window.
func (c *Client) GetOneTimeToken(ctx context.Context, cfg domain.Config) (string, error) {
	data, err := c.do(ctx, cfg, call{method: http.MethodPost, path: "/sessions/ott"})
	if err != nil {
		return "", err
	}
	var ott string
	if err := field(data, "ott", &ott); err != nil || ott == "" {
		return "", domain.ErrNoOneTimeToken
	}
	return ott, nil
}

// AssertToken succeeds only if cfg.Token is currently accepted.
func (c *Client) AssertToken(ctx context.Context, cfg domain.Config) error {
	_, err := c.do(ctx, cfg, call{path: "/session"})
	return err
}
