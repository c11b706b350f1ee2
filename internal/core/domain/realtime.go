package domain

import "fmt"

// Realtime event names pushed by the server or raised by a channel.
const (
	// ChannelEventStatusUpdate carries {"status": ...}.
	ChannelEventStatusUpdate = "status_update"
	// ChannelEventError is raised when the channel errors.
	ChannelEventError = "error"
	// ChannelEventClose is raised when the channel closes unexpectedly.
	ChannelEventClose = "close"
)

// StatusTopic returns the realtime topic for an authorization.
func StatusTopic(id AuthorizationID) string {
	return fmt.Sprintf("authorization_status:%s", id)
}

// StatusEventKind distinguishes the events of a status subscription.
type StatusEventKind int

const (
	// StatusEventUpdate carries a new Status.
	StatusEventUpdate StatusEventKind = iota
	// StatusEventError carries the channel error in Err.
	StatusEventError
	// StatusEventClose means the channel closed without a graceful leave.
	StatusEventClose
)

// String implements fmt.Stringer.
func (k StatusEventKind) String() string {
	switch k {
	case StatusEventUpdate:
		return ChannelEventStatusUpdate
	case StatusEventError:
		return ChannelEventError
	case StatusEventClose:
		return ChannelEventClose
	default:
		return "unknown"
	}
}

// StatusEvent is one event of an authorization status subscription.
type StatusEvent struct {
	Kind   StatusEventKind
	Status AuthorizationStatus
	Err    error
}
