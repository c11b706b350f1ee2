package phoenix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

var _ driven.Channel = (*Channel)(nil)

// messageBuffer is the capacity of a channel's message stream.
const messageBuffer = 16

// Channel is a topic subscription on a Socket.
type Channel struct {
	socket   *Socket
	topic    string
	joinRef  string
	messages chan driven.ChannelMessage

	mu    sync.Mutex
	ended bool
}

// Topic returns the channel topic.
func (c *Channel) Topic() string {
	return c.topic
}

// Messages streams pushes and lifecycle events.
func (c *Channel) Messages() <-chan driven.ChannelMessage {
	return c.messages
}

// Join subscribes to the topic and returns the join reply response.
func (c *Channel) Join(ctx context.Context) (json.RawMessage, error) {
	c.joinRef = c.socket.nextRef()
	c.socket.register(c)

	ch, err := c.socket.push(frame{JoinRef: c.joinRef, Ref: c.joinRef, Topic: c.topic, Event: eventJoin}, true)
	if err != nil {
		c.socket.unregister(c)
		return nil, err
	}

	r, err := c.socket.await(ctx, c.joinRef, ch)
	if err != nil {
		c.socket.unregister(c)
		return nil, err
	}
	if r.Status != replyOK {
		c.socket.unregister(c)
		logger.Debug("join %s rejected: %s", c.topic, r.Response)
		return nil, &domain.JoinError{Topic: c.topic, Reason: r.reason()}
	}
	return r.Response, nil
}

// Leave unsubscribes from the topic. The message stream is closed without a
// close event whether or not the server acknowledged the leave.
func (c *Channel) Leave(ctx context.Context) error {
	defer c.end(false)
	defer c.socket.unregister(c)

	if !c.socket.Connected() {
		return nil
	}

	ref := c.socket.nextRef()
	ch, err := c.socket.push(frame{JoinRef: c.joinRef, Ref: ref, Topic: c.topic, Event: eventLeave}, true)
	if err != nil {
		return err
	}
	r, err := c.socket.await(ctx, ref, ch)
	if err != nil {
		if errors.Is(err, domain.ErrPushTimeout) {
			return fmt.Errorf("leave %s: %w", c.topic, err)
		}
		return err
	}
	if r.Status != replyOK {
		return &domain.JoinError{Topic: c.topic, Reason: r.reason()}
	}
	return nil
}

// deliver hands a message to the consumer without blocking the socket.
func (c *Channel) deliver(msg driven.ChannelMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	select {
	case c.messages <- msg:
	default:
		logger.Warn("dropping %s event on %s: consumer is not keeping up", msg.Event, c.topic)
	}
}

// end closes the message stream, announcing an unexpected close when asked.
func (c *Channel) end(announce bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ended {
		return
	}
	c.ended = true
	if announce {
		select {
		case c.messages <- driven.ChannelMessage{Event: domain.ChannelEventClose}:
		default:
			logger.Warn("dropping close event on %s", c.topic)
		}
	}
	close(c.messages)
}
