package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// AuthorizationStatus is the server-side state of an authorization.
type AuthorizationStatus string

const (
	// StatusAwaitingCallback means the user has not finished the consent screen.
	StatusAwaitingCallback AuthorizationStatus = "awaiting_callback"
	// StatusRetrievingTokens means the server is exchanging the grant for tokens.
	StatusRetrievingTokens AuthorizationStatus = "retrieving_tokens"
	// StatusActive is terminal: the authorization holds usable credentials.
	StatusActive AuthorizationStatus = "active"
	// StatusError is terminal: the authorization failed.
	StatusError AuthorizationStatus = "error"
)

// AllAuthorizationStatuses returns every known status.
func AllAuthorizationStatuses() []AuthorizationStatus {
	return []AuthorizationStatus{
		StatusAwaitingCallback,
		StatusRetrievingTokens,
		StatusActive,
		StatusError,
	}
}

// IsValid returns true if s is one of the known statuses.
func (s AuthorizationStatus) IsValid() bool {
	for _, known := range AllAuthorizationStatuses() {
		if s == known {
			return true
		}
	}
	return false
}

// IsComplete returns true if s is terminal (active or error).
func (s AuthorizationStatus) IsComplete() bool {
	return s == StatusActive || s == StatusError
}

// IsComplete reports whether the raw status string is terminal.
func IsComplete(status string) bool {
	return AuthorizationStatus(status).IsComplete()
}

// ParseAuthorizationStatus validates a status received from the server.
func ParseAuthorizationStatus(s string) (AuthorizationStatus, error) {
	status := AuthorizationStatus(s)
	if !status.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// AuthorizationID identifies an authorization. The server sends it as a
// number or a string; both decode to the same textual form.
type AuthorizationID string

// UnmarshalJSON accepts numbers and strings.
func (id *AuthorizationID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = AuthorizationID(s)
		return nil
	}
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return fmt.Errorf("authorization id: %w", err)
	}
	*id = AuthorizationID(raw)
	return nil
}

// String implements fmt.Stringer.
func (id AuthorizationID) String() string {
	return string(id)
}

// CollectField is an input the user must provide before authorizing.
type CollectField struct {
	Name   string `json:"name"`
	Label  string `json:"label"`
	Suffix string `json:"suffix,omitempty"`
}

// AuthorizerPrototype describes the kind of authorizer behind a connector.
type AuthorizerPrototype struct {
	Name                string         `json:"name"`
	Slug                string         `json:"slug"`
	CollectVideoURL     string         `json:"collect_video_url,omitempty"`
	CollectInstructions string         `json:"collect_instructions,omitempty"`
	CollectFields       []CollectField `json:"collect_fields,omitempty"`
	CollectSave         string         `json:"collect_save,omitempty"`

	// Deprecated: Use CollectFields instead.
	CollectLabel string `json:"collect_label,omitempty"`
	// Deprecated: Use CollectFields instead.
	CollectField string `json:"collect_field,omitempty"`
	// Deprecated: Use CollectFields instead.
	CollectSuffix string `json:"collect_suffix,omitempty"`
}

// Fields returns the fields to collect, folding the deprecated
// single-field attributes into the list when no list is present.
func (p AuthorizerPrototype) Fields() []CollectField {
	if len(p.CollectFields) > 0 || p.CollectField == "" {
		return p.CollectFields
	}
	return []CollectField{{
		Name:   p.CollectField,
		Label:  p.CollectLabel,
		Suffix: p.CollectSuffix,
	}}
}

// Authorizer is the OAuth client registered for a prototype.
type Authorizer struct {
	ClientID  string              `json:"client_id"`
	Prototype AuthorizerPrototype `json:"prototype"`
}

// Authorization is the server-owned record behind a connection.
// Status transitions happen server-side and are only observed here.
type Authorization struct {
	ID           AuthorizationID     `json:"id"`
	DisplayLabel string              `json:"display_label,omitempty"`
	Status       AuthorizationStatus `json:"status"`
	ErrorCode    string              `json:"error_code,omitempty"`
	ErrorMessage string              `json:"error_message,omitempty"`
	Authorizer   Authorizer          `json:"authorizer"`
	AccessToken  string              `json:"access_token,omitempty"`
	AuthorizeURL string              `json:"authorize_url,omitempty"`
	Connector    *PublicConnector    `json:"connector,omitempty"`
	State        string              `json:"state,omitempty"`

	// Deprecated: Use Connector instead.
	InitiatingConnector *PublicConnector `json:"initiating_connector,omitempty"`
}

// PrototypeSlug returns the slug used in authorization paths.
func (a *Authorization) PrototypeSlug() string {
	return a.Authorizer.Prototype.Slug
}

// ReadyForSetup returns true if the popup can be sent to the authorize URL.
func (a *Authorization) ReadyForSetup() bool {
	return a.Status == StatusAwaitingCallback && a.AuthorizeURL != ""
}

// Failure converts an authorization in the error status into an error.
// Returns nil for any other status.
func (a *Authorization) Failure() error {
	if a.Status != StatusError {
		return nil
	}
	return &AuthorizationFailedError{Code: a.ErrorCode, Message: a.ErrorMessage}
}
