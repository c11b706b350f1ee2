package driven

import (
	"context"
	"encoding/json"
)

// RealtimeDialer opens an authenticated realtime socket to the vendor.
type RealtimeDialer interface {
	// Dial connects to wss://{domain}/socket with the token. It returns once
	// the socket is open, or with an error if it closed before opening.
	Dial(ctx context.Context, domain, token string) (Socket, error)
}

// Socket is one multiplexed realtime connection.
type Socket interface {
	// Connected returns true while the socket is open.
	Connected() bool

	// Channel creates a channel for a topic. The channel is not joined.
	Channel(topic string) Channel

	// Disconnect closes the socket and stops reconnect attempts.
	Disconnect() error
}

// ChannelMessage is a server push or lifecycle notification on a channel.
type ChannelMessage struct {
	// Event is the push event name, or "error"/"close" for lifecycle events.
	Event string
	// Payload is the raw push payload.
	Payload json.RawMessage
	// Err is set for "error" events.
	Err error
}

// Channel is a topic subscription on a socket.
type Channel interface {
	// Topic returns the channel topic.
	Topic() string

	// Join subscribes to the topic and returns the join reply payload.
	// Fails with domain.ErrPushTimeout when unacknowledged and with a
	// *domain.JoinError when the server rejects the join.
	Join(ctx context.Context) (json.RawMessage, error)

	// Messages streams pushes and lifecycle events until the channel is left
	// or the socket closes. The stream is closed after a "close" event or a leave.
	Messages() <-chan ChannelMessage

	// Leave gracefully unsubscribes. No "close" event is delivered for a leave.
	Leave(ctx context.Context) error
}
