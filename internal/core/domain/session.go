package domain

// SessionState is an immutable snapshot of the client's session.
type SessionState struct {
	// Domain is the vendor host.
	Domain string
	// Token is the current access token, empty when logged out.
	Token string
	// Loading is true while the session is being initialised or logged in.
	Loading bool
	// RetrievingToken is true if and only if a token fetch is in flight.
	RetrievingToken bool
	// LoginRedirect is where the user is sent when the session cannot be healed.
	LoginRedirect string
}

// Config returns the platform config for this state.
func (s SessionState) Config() Config {
	return Config{Domain: s.Domain, Token: s.Token}
}

// StatePatch is a partial update to SessionState.
// Nil fields are left untouched.
type StatePatch struct {
	Domain          *string
	Token           *string
	Loading         *bool
	RetrievingToken *bool
	LoginRedirect   *string
}

// Apply returns a copy of state with the patch merged in.
func (p StatePatch) Apply(state SessionState) SessionState {
	if p.Domain != nil {
		state.Domain = *p.Domain
	}
	if p.Token != nil {
		state.Token = *p.Token
	}
	if p.Loading != nil {
		state.Loading = *p.Loading
	}
	if p.RetrievingToken != nil {
		state.RetrievingToken = *p.RetrievingToken
	}
	if p.LoginRedirect != nil {
		state.LoginRedirect = *p.LoginRedirect
	}
	return state
}

// Ptr returns a pointer to v. Used to build patches.
func Ptr[T any](v T) *T {
	return &v
}
