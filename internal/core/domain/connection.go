package domain

// ConnectionStatus summarises whether a connection is usable.
type ConnectionStatus string

const (
	// ConnectionNotInstalled means no enabled connection exists.
	ConnectionNotInstalled ConnectionStatus = "not_installed"
	// ConnectionConnected means the connection is enabled and authorized.
	ConnectionConnected ConnectionStatus = "connected"
	// ConnectionError means the connection's authorization failed.
	ConnectionError ConnectionStatus = "error"
)

// ConnectionOnly is a connection without its connector, as embedded in a Connector.
type ConnectionOnly struct {
	ID            string         `json:"id"`
	Enabled       bool           `json:"enabled"`
	Authorization *Authorization `json:"authorization,omitempty"`
}

// Connection is a user's link to a connector.
// Authorization is nil until an authorization attempt has been made.
type Connection struct {
	ID            string         `json:"id"`
	Enabled       bool           `json:"enabled"`
	Connector     Connector      `json:"connector"`
	Authorization *Authorization `json:"authorization,omitempty"`
}

// HasAuthorization returns true if the connection was ever authorized.
func (c *Connection) HasAuthorization() bool {
	return c.Authorization != nil
}

// Status derives the ConnectionStatus.
func (c *Connection) Status() ConnectionStatus {
	return connectionStatus(c != nil && c.Enabled, c.authorization())
}

// Status derives the ConnectionStatus.
func (c *ConnectionOnly) Status() ConnectionStatus {
	if c == nil {
		return ConnectionNotInstalled
	}
	return connectionStatus(c.Enabled, c.Authorization)
}

func (c *Connection) authorization() *Authorization {
	if c == nil {
		return nil
	}
	return c.Authorization
}

func connectionStatus(enabled bool, auth *Authorization) ConnectionStatus {
	if !enabled || auth == nil {
		return ConnectionNotInstalled
	}
	switch auth.Status {
	case StatusError:
		return ConnectionError
	case StatusActive:
		return ConnectionConnected
	default:
		return ConnectionNotInstalled
	}
}

// AccessToken returns the connection's third-party token if the
// connection is enabled and authorized, otherwise "".
func (c *Connection) AccessToken() string {
	if c == nil || !c.Enabled || c.Authorization == nil {
		return ""
	}
	return c.Authorization.AccessToken
}

// ConnectionShell is returned in place of a connection when the user has none.
type ConnectionShell struct {
	Connector Connector `json:"connector"`
}

// ConnectionOrConnector holds either an existing connection or a shell.
type ConnectionOrConnector struct {
	Connection *Connection
	Shell      *ConnectionShell
}

// IsConnection returns true if an actual connection was found.
func (c ConnectionOrConnector) IsConnection() bool {
	return c.Connection != nil
}

// ConnectorSlug returns the slug regardless of which half is set.
func (c ConnectionOrConnector) ConnectorSlug() string {
	if c.Connection != nil {
		return c.Connection.Connector.Slug
	}
	if c.Shell != nil {
		return c.Shell.Connector.Slug
	}
	return ""
}

// ConnectionQuery identifies a connection by ID or by connector slug.
type ConnectionQuery struct {
	ID   string
	Slug string
}

// Validate ensures exactly one identifier is set.
func (q ConnectionQuery) Validate() error {
	if (q.ID == "") == (q.Slug == "") {
		return ErrInvalidInput
	}
	return nil
}

// ByID returns true if the query uses a connection ID.
func (q ConnectionQuery) ByID() bool {
	return q.ID != ""
}
