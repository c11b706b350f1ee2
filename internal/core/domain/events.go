package domain

// Event names a client lifecycle notification.
type Event string

const (
	// EventConfigUpdate fires on every session state change with the StatePatch.
	EventConfigUpdate Event = "config:update"
	// EventConnectionEnable fires with the *Connection after a successful connect.
	EventConnectionEnable Event = "connection:enable"
	// EventConnectionRemove fires with the ConnectionQuery after a removal.
	EventConnectionRemove Event = "connection:remove"
	// EventAuthorizationState fires with an AuthorizeProgress on every
	// transition of an authorization attempt.
	EventAuthorizationState Event = "authorization:state"
	// EventConnectionDisable fires alongside EventConnectionRemove.
	//
	// Deprecated: Use EventConnectionRemove instead.
	EventConnectionDisable Event = "connection:disable"
)

// IsPublic returns true if consumers may subscribe to the event.
func (e Event) IsPublic() bool {
	switch e {
	case EventConfigUpdate, EventConnectionEnable, EventConnectionRemove, EventConnectionDisable,
		EventAuthorizationState:
		return true
	}
	return false
}

// IsDeprecated returns true for events kept only for compatibility.
func (e Event) IsDeprecated() bool {
	return e == EventConnectionDisable
}
