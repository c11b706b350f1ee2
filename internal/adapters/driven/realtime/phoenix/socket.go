package phoenix

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

// Ensure the adapters implement the ports.
var (
	_ driven.RealtimeDialer = (*Dialer)(nil)
	_ driven.Socket         = (*Socket)(nil)
)

const (
	// Endpoint is the socket path on the vendor domain.
	Endpoint = "/socket/websocket"

	// Version is the serializer version sent as vsn.
	Version = "2.0.0"

	// DefaultHeartbeat is the heartbeat interval. The proxy in front of
	// custom domains drops connections idle for 30s.
	DefaultHeartbeat = 15 * time.Second

	// DefaultPushTimeout bounds the wait for a join or leave reply.
	DefaultPushTimeout = 10 * time.Second

	writeTimeout = 10 * time.Second
)

// Dialer opens Phoenix sockets.
type Dialer struct {
	ws          *websocket.Dialer
	scheme      string
	heartbeat   time.Duration
	pushTimeout time.Duration
}

// Option configures a Dialer.
type Option func(*Dialer)

// WithHeartbeat sets the heartbeat interval.
func WithHeartbeat(d time.Duration) Option {
	return func(dl *Dialer) {
		if d > 0 {
			dl.heartbeat = d
		}
	}
}

// WithPushTimeout sets how long joins and leaves wait for their reply.
func WithPushTimeout(d time.Duration) Option {
	return func(dl *Dialer) {
		if d > 0 {
			dl.pushTimeout = d
		}
	}
}

// WithInsecure dials ws:// instead of wss://. Only meant for local servers.
func WithInsecure() Option {
	return func(dl *Dialer) {
		dl.scheme = "ws"
	}
}

// NewDialer creates a dialer.
func NewDialer(opts ...Option) *Dialer {
	d := &Dialer{
		ws:          websocket.DefaultDialer,
		scheme:      "wss",
		heartbeat:   DefaultHeartbeat,
		pushTimeout: DefaultPushTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// URL returns the socket URL for the vendor domain and token.
func (d *Dialer) URL(vendorDomain, token string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("vsn", Version)
	return d.scheme + "://" + vendorDomain + Endpoint + "?" + q.Encode()
}

// Dial opens a socket. It returns once the websocket handshake completed.
func (d *Dialer) Dial(ctx context.Context, vendorDomain, token string) (driven.Socket, error) {
	conn, resp, err := d.ws.DialContext(ctx, d.URL(vendorDomain, token), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial socket: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial socket: %w", err)
	}

	s := &Socket{
		conn:        conn,
		pushTimeout: d.pushTimeout,
		pending:     make(map[string]chan reply),
		channels:    make(map[string]*Channel),
		done:        make(chan struct{}),
	}
	s.wg.Add(2)
	go s.readLoop()
	go s.heartbeatLoop(d.heartbeat)
	logger.Debug("socket connected to %s", vendorDomain)
	return s, nil
}

// Socket is one Phoenix connection multiplexing channels.
type Socket struct {
	conn        *websocket.Conn
	pushTimeout time.Duration

	writeMu sync.Mutex
	ref     atomic.Uint64

	mu       sync.Mutex
	pending  map[string]chan reply
	channels map[string]*Channel

	done    chan struct{}
	closing sync.Once
	wg      sync.WaitGroup
	closed  atomic.Bool
}

// Connected returns true until the socket closes.
func (s *Socket) Connected() bool {
	return !s.closed.Load()
}

// Channel creates an unjoined channel for topic.
func (s *Socket) Channel(topic string) driven.Channel {
	return &Channel{
		socket:   s,
		topic:    topic,
		messages: make(chan driven.ChannelMessage, messageBuffer),
	}
}

// Disconnect closes the socket and waits for its goroutines.
func (s *Socket) Disconnect() error {
	s.shutdown()
	s.wg.Wait()
	return nil
}

func (s *Socket) nextRef() string {
	return strconv.FormatUint(s.ref.Add(1), 10)
}

// push sends a frame and, when await is set, registers for its reply.
func (s *Socket) push(f frame, await bool) (<-chan reply, error) {
	if f.Ref == "" {
		f.Ref = s.nextRef()
	}

	var ch chan reply
	if await {
		ch = make(chan reply, 1)
		s.mu.Lock()
		s.pending[f.Ref] = ch
		s.mu.Unlock()
	}

	data, err := json.Marshal(f)
	if err != nil {
		s.forget(f.Ref)
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	s.writeMu.Lock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	err = s.conn.WriteMessage(websocket.TextMessage, data)
	s.writeMu.Unlock()
	if err != nil {
		s.forget(f.Ref)
		return nil, fmt.Errorf("write %s to %s: %w", f.Event, f.Topic, err)
	}
	return ch, nil
}

// await waits for the reply of a push.
func (s *Socket) await(ctx context.Context, ref string, ch <-chan reply) (reply, error) {
	timer := time.NewTimer(s.pushTimeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r, nil
	case <-timer.C:
	case <-ctx.Done():
		s.forget(ref)
		return reply{}, ctx.Err()
	case <-s.done:
	}
	s.forget(ref)
	return reply{}, domain.ErrPushTimeout
}

func (s *Socket) forget(ref string) {
	s.mu.Lock()
	delete(s.pending, ref)
	s.mu.Unlock()
}

func (s *Socket) register(c *Channel) {
	s.mu.Lock()
	s.channels[c.topic] = c
	s.mu.Unlock()
}

func (s *Socket) unregister(c *Channel) {
	s.mu.Lock()
	if s.channels[c.topic] == c {
		delete(s.channels, c.topic)
	}
	s.mu.Unlock()
}

func (s *Socket) readLoop() {
	defer s.wg.Done()
	defer s.closeChannels()
	defer s.shutdown()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !s.closed.Load() {
				logger.Debug("socket closing: %v", err)
			}
			return
		}

		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			logger.Warn("ignoring malformed socket frame: %v", err)
			continue
		}
		s.dispatch(f)
	}
}

func (s *Socket) dispatch(f frame) {
	if f.Event == eventReply {
		s.mu.Lock()
		ch, ok := s.pending[f.Ref]
		delete(s.pending, f.Ref)
		s.mu.Unlock()
		if !ok {
			return
		}
		var r reply
		if err := json.Unmarshal(f.Payload, &r); err != nil {
			r = reply{Status: replyError, Response: f.Payload}
		}
		ch <- r
		return
	}

	s.mu.Lock()
	c, ok := s.channels[f.Topic]
	s.mu.Unlock()
	if !ok || (f.JoinRef != "" && f.JoinRef != c.joinRef) {
		return
	}

	switch f.Event {
	case eventError:
		c.deliver(driven.ChannelMessage{
			Event: domain.ChannelEventError,
			Err:   fmt.Errorf("channel %s errored: %s", f.Topic, f.Payload),
		})
	case eventClose:
		s.unregister(c)
		c.end(true)
	default:
		c.deliver(driven.ChannelMessage{Event: f.Event, Payload: f.Payload})
	}
}

func (s *Socket) heartbeatLoop(interval time.Duration) {
	defer s.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var outstanding <-chan reply
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
		}

		if outstanding != nil {
			select {
			case <-outstanding:
			default:
				logger.Debug("heartbeat timeout, closing socket")
				s.shutdown()
				return
			}
		}

		ch, err := s.push(frame{Topic: topicPhoenix, Event: eventHeartbeat}, true)
		if err != nil {
			logger.Debug("heartbeat failed: %v", err)
			s.shutdown()
			return
		}
		outstanding = ch
	}
}

// shutdown closes the connection once. It does not wait for goroutines.
func (s *Socket) shutdown() {
	s.closing.Do(func() {
		s.closed.Store(true)
		close(s.done)

		s.writeMu.Lock()
		deadline := time.Now().Add(time.Second)
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		s.writeMu.Unlock()
		_ = s.conn.Close()
	})
}

// closeChannels ends every joined channel with a close event.
func (s *Socket) closeChannels() {
	s.mu.Lock()
	channels := make([]*Channel, 0, len(s.channels))
	for _, c := range s.channels {
		channels = append(channels, c)
	}
	s.channels = make(map[string]*Channel)
	s.mu.Unlock()

	for _, c := range channels {
		c.end(true)
	}
}
