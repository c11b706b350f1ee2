package domain

// Config is what every platform call needs: the vendor domain and,
// once logged in, the session token.
type Config struct {
	// Domain is the vendor host, e.g. "acme.xkit.co".
	Domain string `json:"domain"`
	// Token is the bearer credential. Empty when unauthenticated.
	Token string `json:"token,omitempty"`
}

// Authorized returns true if the config carries a session token.
func (c Config) Authorized() bool {
	return c.Token != ""
}

// Origin returns the secure origin of the vendor domain.
func (c Config) Origin() string {
	return "https://" + c.Domain
}

// Public returns the config without its token.
func (c Config) Public() Config {
	return Config{Domain: c.Domain}
}
