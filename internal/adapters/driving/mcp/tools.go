package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

// ListConnectorsInput is the input schema of list_connectors.
type ListConnectorsInput struct{}

// ListConnectorsOutput is the output schema of list_connectors.
type ListConnectorsOutput struct {
	Connectors []ConnectorOutput `json:"connectors"`
	Count      int               `json:"count"`
}

// ConnectorOutput is one connector.
type ConnectorOutput struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	URL         string `json:"url"`
}

// ListConnectionsInput is the input schema of list_connections.
type ListConnectionsInput struct {
	Connector string `json:"connector,omitempty" jsonschema:"only list connections of this connector slug"`
}

// ListConnectionsOutput is the output schema of list_connections.
type ListConnectionsOutput struct {
	Connections []ConnectionOutput `json:"connections"`
	Count       int                `json:"count"`
}

// ConnectionOutput is one connection, without its token.
type ConnectionOutput struct {
	ID            string `json:"id"`
	Connector     string `json:"connector"`
	Status        string `json:"status"`
	Authorization string `json:"authorization,omitempty"`
}

// ConnectionTokenInput selects a connection by connector slug or by ID.
type ConnectionTokenInput struct {
	Connector    string `json:"connector,omitempty" jsonschema:"connector slug of the connection"`
	ConnectionID string `json:"connection_id,omitempty" jsonschema:"connection ID, for connectors with several connections"`
}

// ConnectionTokenOutput is the output schema of get_connection_token.
type ConnectionTokenOutput struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_connectors",
		Description: "List the platform's connectors and whether the user connected them",
	}, s.handleListConnectors)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_connections",
		Description: "List the user's connections, optionally for one connector",
	}, s.handleListConnections)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_connection_token",
		Description: "Get the third-party access token of a connected account, to call the provider's API",
	}, s.handleConnectionToken)
}

func (s *Server) handleListConnectors(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ ListConnectorsInput,
) (*mcp.CallToolResult, ListConnectorsOutput, error) {
	connectors, err := s.ports.Connect.ListConnectors(ctx)
	if err != nil {
		return nil, ListConnectorsOutput{}, err
	}

	output := ListConnectorsOutput{
		Connectors: make([]ConnectorOutput, len(connectors)),
		Count:      len(connectors),
	}
	for i := range connectors {
		c := &connectors[i]
		output.Connectors[i] = ConnectorOutput{
			Slug:        c.Slug,
			Name:        c.Name,
			Description: c.ShortDescription,
			Status:      string(c.Connection.Status()),
			URL:         s.ports.Connect.ConnectorURL(c.Slug),
		}
	}
	return nil, output, nil
}

func (s *Server) handleListConnections(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListConnectionsInput,
) (*mcp.CallToolResult, ListConnectionsOutput, error) {
	connections, err := s.ports.Connect.ListConnections(ctx, input.Connector)
	if err != nil {
		return nil, ListConnectionsOutput{}, err
	}

	output := ListConnectionsOutput{
		Connections: make([]ConnectionOutput, len(connections)),
		Count:       len(connections),
	}
	for i := range connections {
		c := &connections[i]
		out := ConnectionOutput{
			ID:        c.ID,
			Connector: c.Connector.Slug,
			Status:    string(c.Status()),
		}
		if c.Authorization != nil {
			out.Authorization = string(c.Authorization.Status)
		}
		output.Connections[i] = out
	}
	return nil, output, nil
}

func (s *Server) handleConnectionToken(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ConnectionTokenInput,
) (*mcp.CallToolResult, ConnectionTokenOutput, error) {
	q := domain.ConnectionQuery{ID: input.ConnectionID, Slug: input.Connector}
	if err := q.Validate(); err != nil {
		return nil, ConnectionTokenOutput{}, errors.New("set exactly one of connector or connection_id")
	}

	token, err := s.ports.Connect.GetConnectionToken(ctx, q)
	if err != nil {
		return nil, ConnectionTokenOutput{}, err
	}
	if token == "" {
		return nil, ConnectionTokenOutput{}, fmt.Errorf(
			"%s%s is not connected; ask the user to run `xkit connect`", q.ID, q.Slug)
	}
	return nil, ConnectionTokenOutput{AccessToken: token, TokenType: "Bearer"}, nil
}
