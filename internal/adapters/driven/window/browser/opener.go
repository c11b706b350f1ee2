package browser

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

var _ driven.WindowOpener = (*Opener)(nil)

const (
	// DefaultAddr lets the system pick a loopback port.
	DefaultAddr = "127.0.0.1:0"

	// DefaultStaleAfter is how long a bridge page may stay silent before
	// its window counts as closed. The page pings every second before the
	// popup opens and polls every 250ms after.
	DefaultStaleAfter = 10 * time.Second
)

// Option configures an Opener.
type Option func(*Opener)

// WithLauncher replaces the browser launcher.
func WithLauncher(launch Launcher) Option {
	return func(o *Opener) {
		if launch != nil {
			o.launch = launch
		}
	}
}

// WithAddr sets the loopback listen address.
func WithAddr(addr string) Option {
	return func(o *Opener) {
		o.addr = addr
	}
}

// WithStaleAfter sets how long a silent bridge page is trusted.
func WithStaleAfter(d time.Duration) Option {
	return func(o *Opener) {
		if d > 0 {
			o.stale = d
		}
	}
}

// Opener opens authorization windows through a loopback bridge.
type Opener struct {
	launch Launcher
	addr   string
	stale  time.Duration

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	windows  map[string]*Window
	named    map[string]*Window
}

// NewOpener creates an opener. The bridge server starts on first use.
func NewOpener(opts ...Option) *Opener {
	o := &Opener{
		launch:  OpenBrowser,
		addr:    DefaultAddr,
		stale:   DefaultStaleAfter,
		windows: make(map[string]*Window),
		named:   make(map[string]*Window),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Open launches the browser on a bridge page that opens url in a popup.
// An open window with the same name is navigated instead.
func (o *Opener) Open(ctx context.Context, url, name string, features domain.WindowFeatures) (driven.Window, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	o.mu.Lock()
	if err := o.startLocked(); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	if existing, ok := o.named[name]; ok && !existing.Closed() {
		o.mu.Unlock()
		if err := existing.Navigate(url); err != nil {
			return nil, err
		}
		return existing, nil
	}

	nonce := uuid.NewString()
	w := newWindow(nonce, name, url, features, o.stale)
	o.windows[nonce] = w
	o.named[name] = w
	bridge := o.bridgeURLLocked(nonce)
	o.mu.Unlock()

	logger.Debug("opening bridge page %s", bridge)
	if err := o.launch(bridge); err != nil {
		o.forget(w)
		return nil, err
	}
	return w, nil
}

// ScreenGeometry is unknown to a terminal, so popups are not positioned.
func (o *Opener) ScreenGeometry() *domain.Rect {
	return nil
}

// Addr returns the bridge server address, or "" before the first Open.
func (o *Opener) Addr() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.listener == nil {
		return ""
	}
	return o.listener.Addr().String()
}

// Close stops the bridge server.
func (o *Opener) Close() error {
	o.mu.Lock()
	server := o.server
	o.server = nil
	o.listener = nil
	for _, w := range o.windows {
		w.markClosed()
	}
	o.windows = make(map[string]*Window)
	o.named = make(map[string]*Window)
	o.mu.Unlock()

	if server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

func (o *Opener) startLocked() error {
	if o.server != nil {
		return nil
	}

	listener, err := net.Listen("tcp", o.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", o.addr, err)
	}

	server := &http.Server{
		Handler:      o.routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("bridge server stopped: %v", err)
		}
	}()

	o.server = server
	o.listener = listener
	return nil
}

func (o *Opener) bridgeURLLocked(nonce string) string {
	return "http://" + o.listener.Addr().String() + bridgePath + nonce
}

func (o *Opener) lookup(nonce string) (*Window, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	w, ok := o.windows[nonce]
	return w, ok
}

func (o *Opener) forget(w *Window) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.windows, w.nonce)
	if o.named[w.name] == w {
		delete(o.named, w.name)
	}
}
