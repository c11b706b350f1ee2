package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

// leaveTimeout bounds a best-effort channel leave.
const leaveTimeout = 10 * time.Second

// statusBuffer is the capacity of a status subscription's event channel.
const statusBuffer = 4

// SocketManager owns the client's single realtime socket. Every reset bumps
// the generation so that subscriptions made under an old session can tell
// they are stale.
type SocketManager struct {
	dialer driven.RealtimeDialer
	api    driven.SessionAPI

	mu         sync.Mutex
	socket     driven.Socket
	generation uint64
}

// NewSocketManager creates a socket manager. No socket is opened until one
// is needed.
func NewSocketManager(dialer driven.RealtimeDialer, api driven.SessionAPI) *SocketManager {
	return &SocketManager{dialer: dialer, api: api}
}

// Generation returns the current socket generation.
func (s *SocketManager) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Reset disconnects the socket and invalidates every subscription on it.
func (s *SocketManager) Reset() {
	s.mu.Lock()
	socket := s.socket
	s.socket = nil
	s.generation++
	s.mu.Unlock()

	if socket != nil {
		logger.Debug("disconnecting realtime socket")
		if err := socket.Disconnect(); err != nil {
			logger.Debug("disconnecting realtime socket: %v", err)
		}
	}
}

// Socket returns the live socket, dialing a new one if there is none.
//
// When the socket closes before opening, the token is checked separately:
// a valid token means the transport failed (domain.ErrRealtimeUnavailable),
// otherwise the authorization error is returned so the caller's session
// healing takes over.
func (s *SocketManager) Socket(ctx context.Context, cfg domain.Config) (driven.Socket, error) {
	s.mu.Lock()
	if s.socket != nil && s.socket.Connected() {
		socket := s.socket
		s.mu.Unlock()
		return socket, nil
	}
	stale := s.socket
	s.socket = nil
	gen := s.generation
	s.mu.Unlock()

	if stale != nil {
		_ = stale.Disconnect()
	}

	logger.Debug("opening realtime socket to %s", cfg.Domain)
	socket, err := s.dialer.Dial(ctx, cfg.Domain, cfg.Token)
	if err != nil {
		logger.Debug("socket initialization failed: %v", err)
		if assertErr := s.api.AssertToken(ctx, cfg); assertErr != nil {
			return nil, assertErr
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRealtimeUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		_ = socket.Disconnect()
		return nil, fmt.Errorf("session changed while connecting: %w", domain.ErrUnauthorized)
	}
	if s.socket != nil && s.socket.Connected() {
		// Another caller won the race.
		_ = socket.Disconnect()
		return s.socket, nil
	}
	s.socket = socket
	return socket, nil
}

// Subscribe joins topic on socket and returns the channel with the join reply.
func Subscribe(ctx context.Context, socket driven.Socket, topic string) (driven.Channel, json.RawMessage, error) {
	channel := socket.Channel(topic)
	logger.Debug("joining %s", topic)

	reply, err := channel.Join(ctx)
	if err != nil {
		logger.Debug("join %s failed: %v", topic, err)
		return nil, nil, fmt.Errorf("join %s: %w", topic, err)
	}
	logger.Debug("joined %s: %s", topic, reply)
	return channel, reply, nil
}

// Leave gracefully leaves channel. Failures are logged, never returned.
func Leave(channel driven.Channel) {
	ctx, cancel := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancel()

	if err := channel.Leave(ctx); err != nil {
		logger.Error("leaving channel %s failed with %v", channel.Topic(), err)
		return
	}
	logger.Debug("left %s", channel.Topic())
}

type statusPayload struct {
	Status string `json:"status"`
}

func parseStatus(raw json.RawMessage) (domain.AuthorizationStatus, error) {
	var payload statusPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidStatus, err)
	}
	return domain.ParseAuthorizationStatus(payload.Status)
}

// SubscribeToStatus joins the status topic of an authorization and returns
// its current status. A terminal status is returned with a nil subscription,
// the channel having been left already. Otherwise the subscription streams
// status events until a terminal status arrives or it is closed.
func (s *SocketManager) SubscribeToStatus(
	ctx context.Context,
	cfg domain.Config,
	id domain.AuthorizationID,
) (*StatusSubscription, domain.AuthorizationStatus, error) {
	socket, err := s.Socket(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	gen := s.Generation()

	channel, reply, err := Subscribe(ctx, socket, domain.StatusTopic(id))
	if err != nil {
		return nil, "", err
	}

	status, err := parseStatus(reply)
	if err != nil {
		Leave(channel)
		return nil, "", fmt.Errorf("subscription to %s: %w", channel.Topic(), err)
	}

	if status.IsComplete() {
		logger.Debug("authorization %s already in a terminal state: %s", id, status)
		Leave(channel)
		return nil, status, nil
	}

	sub := &StatusSubscription{
		channel:    channel,
		manager:    s,
		generation: gen,
		events:     make(chan domain.StatusEvent, statusBuffer),
		done:       make(chan struct{}),
	}
	sub.wg.Add(1)
	go sub.pump()
	return sub, status, nil
}

// StatusSubscription streams the status events of one authorization.
type StatusSubscription struct {
	channel    driven.Channel
	manager    *SocketManager
	generation uint64

	events chan domain.StatusEvent
	done   chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	ended  atomic.Bool
}

// Topic returns the subscribed topic.
func (s *StatusSubscription) Topic() string {
	return s.channel.Topic()
}

// Events returns the event stream. It is closed after a terminal status
// update, a channel close, or Close.
func (s *StatusSubscription) Events() <-chan domain.StatusEvent {
	return s.events
}

// Close stops the subscription and leaves the channel if it is still joined.
// Safe to call more than once.
func (s *StatusSubscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		if s.ended.CompareAndSwap(false, true) {
			Leave(s.channel)
		}
	})
}

func (s *StatusSubscription) pump() {
	defer s.wg.Done()
	defer close(s.events)

	messages := s.channel.Messages()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-messages:
			if !ok {
				s.ended.Store(true)
				return
			}
			if s.manager.Generation() != s.generation {
				logger.Debug("dropping %s event from a previous session", msg.Event)
				s.ended.Store(true)
				s.emit(domain.StatusEvent{Kind: domain.StatusEventClose})
				return
			}
			if !s.handle(msg) {
				return
			}
		}
	}
}

// handle forwards one channel message and returns false once the
// subscription is over.
func (s *StatusSubscription) handle(msg driven.ChannelMessage) bool {
	switch msg.Event {
	case domain.ChannelEventStatusUpdate:
		status, err := parseStatus(msg.Payload)
		if err != nil {
			return s.emit(domain.StatusEvent{Kind: domain.StatusEventError, Err: err})
		}
		if !s.emit(domain.StatusEvent{Kind: domain.StatusEventUpdate, Status: status}) {
			return false
		}
		if status.IsComplete() {
			logger.Debug("authorization now in a terminal state: %s", status)
			if s.ended.CompareAndSwap(false, true) {
				Leave(s.channel)
			}
			return false
		}
		return true

	case domain.ChannelEventError:
		err := msg.Err
		if err == nil {
			err = fmt.Errorf("channel %s errored", s.channel.Topic())
		}
		return s.emit(domain.StatusEvent{Kind: domain.StatusEventError, Err: err})

	case domain.ChannelEventClose:
		s.ended.Store(true)
		s.emit(domain.StatusEvent{Kind: domain.StatusEventClose})
		return false

	default:
		logger.Debug("ignoring %s event on %s", msg.Event, s.channel.Topic())
		return true
	}
}

func (s *StatusSubscription) emit(ev domain.StatusEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.done:
		return false
	}
}
