package browser

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

var _ driven.Window = (*Window)(nil)

const messageBuffer = 32

// Command kinds fetched by the bridge page.
const (
	commandNavigate = "navigate"
	commandPost     = "post"
	commandClose    = "close"
)

// command is an instruction for the bridge page.
type command struct {
	Type    string          `json:"type"`
	URL     string          `json:"url,omitempty"`
	Message json.RawMessage `json:"message,omitempty"`
	Origin  string          `json:"origin,omitempty"`
}

// Window is a popup driven through a bridge page.
type Window struct {
	nonce    string
	name     string
	url      string
	features domain.WindowFeatures
	stale    time.Duration

	mu       sync.Mutex
	closed   bool
	lastSeen time.Time
	queue    []command
	messages chan domain.WindowMessage
}

func newWindow(nonce, name, url string, features domain.WindowFeatures, stale time.Duration) *Window {
	return &Window{
		nonce:    nonce,
		name:     name,
		url:      url,
		features: features,
		stale:    stale,
		lastSeen: time.Now(),
		messages: make(chan domain.WindowMessage, messageBuffer),
	}
}

// Closed returns true once the popup or the bridge page went away.
func (w *Window) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return true
	}
	// A bridge tab that never loaded or went quiet was closed by the user.
	if time.Since(w.lastSeen) > w.stale {
		logger.Debug("bridge page %s stopped checking in", w.nonce)
		w.closed = true
	}
	return w.closed
}

// Navigate replaces the popup's location.
func (w *Window) Navigate(url string) error {
	return w.enqueue(command{Type: commandNavigate, URL: url})
}

// PostMessage posts msg to the popup for targetOrigin.
func (w *Window) PostMessage(msg any, targetOrigin string) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode window message: %w", err)
	}
	return w.enqueue(command{Type: commandPost, Message: data, Origin: targetOrigin})
}

// Messages streams what the popup posted to its opener.
func (w *Window) Messages() <-chan domain.WindowMessage {
	return w.messages
}

// Close asks the bridge to close the popup. The window counts as closed
// immediately.
func (w *Window) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	w.queue = append(w.queue, command{Type: commandClose})
	return nil
}

func (w *Window) enqueue(c command) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return domain.ErrCancelled
	}
	w.queue = append(w.queue, c)
	return nil
}

// touch records that the bridge page is still alive.
func (w *Window) touch() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastSeen = time.Now()
}

// drain hands the queued commands to the bridge page.
func (w *Window) drain() []command {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastSeen = time.Now()
	out := w.queue
	w.queue = nil
	if out == nil {
		out = []command{}
	}
	return out
}

func (w *Window) receive(msg domain.WindowMessage) {
	select {
	case w.messages <- msg:
	default:
		logger.Warn("dropping message from %s: window consumer is not keeping up", msg.Origin)
	}
}

func (w *Window) markClosed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}
