package domain

// PublicConnector is the catalog entry visible without a session.
type PublicConnector struct {
	Name                        string `json:"name"`
	Slug                        string `json:"slug"`
	ShortDescription            string `json:"short_description"`
	MarkURL                     string `json:"mark_url"`
	About                       string `json:"about,omitempty"`
	Description                 string `json:"description,omitempty"`
	SupportsMultipleConnections bool   `json:"supports_multiple_connections"`
}

// Connector is a catalog entry enriched with the user's connections.
type Connector struct {
	PublicConnector

	// Connection is the single connection for connectors that allow one.
	Connection *ConnectionOnly `json:"connection,omitempty"`
	// Connections lists every connection for multi-connection connectors.
	Connections []ConnectionOnly `json:"connections,omitempty"`
}

// ConnectorPath returns the platform path of a connector.
func ConnectorPath(slug string) string {
	return "/connectors/" + slug
}

// PublicConnectorPath returns the unauthenticated platform path of a connector.
func PublicConnectorPath(slug string) string {
	return "/platform/connectors/" + slug
}
