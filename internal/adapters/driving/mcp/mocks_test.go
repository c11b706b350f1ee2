package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driving"
)

// mockConnectService mocks the parts of driving.ConnectService the server
// calls. Calling anything else panics on the nil embedded interface.
type mockConnectService struct {
	driving.ConnectService
	mock.Mock
}

func (m *mockConnectService) ConnectorURL(slug string) string {
	return "https://acme.xkit.co/connectors/" + slug
}

func (m *mockConnectService) GetPlatform(ctx context.Context) (*domain.Platform, error) {
	args := m.Called(ctx)
	p, _ := args.Get(0).(*domain.Platform)
	return p, args.Error(1)
}

func (m *mockConnectService) ListConnectors(ctx context.Context) ([]domain.Connector, error) {
	args := m.Called(ctx)
	c, _ := args.Get(0).([]domain.Connector)
	return c, args.Error(1)
}

func (m *mockConnectService) GetConnector(ctx context.Context, slug string) (*domain.Connector, error) {
	args := m.Called(ctx, slug)
	c, _ := args.Get(0).(*domain.Connector)
	return c, args.Error(1)
}

func (m *mockConnectService) ListConnections(ctx context.Context, slug string) ([]domain.Connection, error) {
	args := m.Called(ctx, slug)
	c, _ := args.Get(0).([]domain.Connection)
	return c, args.Error(1)
}

func (m *mockConnectService) GetConnectionToken(ctx context.Context, q domain.ConnectionQuery) (string, error) {
	args := m.Called(ctx, q)
	return args.String(0), args.Error(1)
}

// On resolves the selector clash between driving.ConnectService.On and
// mock.Mock.On; it forwards to the nil embedded interface like any other
// unmocked method. Set expectations through m.Mock.On.
func (m *mockConnectService) On(event domain.Event, id string, fn driving.Listener) error {
	return m.ConnectService.On(event, id, fn)
}

func newTestServer(t *testing.T, svc *mockConnectService) *Server {
	t.Helper()
	s, err := NewServer(&Ports{Connect: svc})
	require.NoError(t, err)
	return s
}
