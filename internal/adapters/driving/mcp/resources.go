package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// uriScheme is the custom URI scheme of xkit resources.
const uriScheme = "xkit://"

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "platform",
		Name:        "platform",
		Description: "The vendor platform the user is connected to",
		MIMEType:    "application/json",
	}, s.handlePlatformResource)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "connectors/{slug}",
		Name:        "connector",
		Description: "A connector and the user's connection to it",
		MIMEType:    "application/json",
	}, s.handleConnectorResource)
}

func (s *Server) handlePlatformResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	platform, err := s.ports.Connect.GetPlatform(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting platform: %w", err)
	}
	return jsonResource(req.Params.URI, platform)
}

func (s *Server) handleConnectorResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	slug := extractConnectorSlug(req.Params.URI)
	if slug == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	connector, err := s.ports.Connect.GetConnector(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("getting connector: %w", err)
	}
	return jsonResource(req.Params.URI, connector)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractConnectorSlug returns the slug of xkit://connectors/{slug}.
func extractConnectorSlug(uri string) string {
	slug, ok := strings.CutPrefix(uri, uriScheme+"connectors/")
	if !ok || slug == "" || strings.Contains(slug, "/") {
		return ""
	}
	return slug
}
