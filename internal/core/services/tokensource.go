package services

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driving"
)

// ConnectionTokenSource adapts a connection's third-party access token to
// oauth2.TokenSource, so API clients of the connected service can use it.
type ConnectionTokenSource struct {
	ctx     context.Context
	service driving.ConnectService
	query   domain.ConnectionQuery
}

// NewConnectionTokenSource creates an oauth2.TokenSource for a connection.
// Tokens are cached until they expire by oauth2.ReuseTokenSource; the broker
// reports no expiry, so a cached token is kept until the caller drops it.
func NewConnectionTokenSource(ctx context.Context, service driving.ConnectService, query domain.ConnectionQuery) oauth2.TokenSource {
	return oauth2.ReuseTokenSource(nil, &ConnectionTokenSource{
		ctx:     ctx,
		service: service,
		query:   query,
	})
}

// Token implements oauth2.TokenSource.
func (t *ConnectionTokenSource) Token() (*oauth2.Token, error) {
	accessToken, err := t.service.GetConnectionToken(t.ctx, t.query)
	if err != nil {
		return nil, err
	}
	if accessToken == "" {
		return nil, fmt.Errorf("connection %s%s: %w", t.query.ID, t.query.Slug, domain.ErrNoAccessToken)
	}

	return &oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}, nil
}
