package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

// windowName identifies the authorization window so that repeated attempts
// reuse one popup.
const windowName = "xkit:authorization"

// DefaultPollInterval is how often window liveness is checked.
const DefaultPollInterval = 200 * time.Millisecond

// WindowSettings configures the authorization window.
type WindowSettings struct {
	Width        int
	Height       int
	PollInterval time.Duration
}

// DefaultWindowSettings returns the 600x700 popup polled every 200ms.
func DefaultWindowSettings() WindowSettings {
	return WindowSettings{
		Width:        domain.DefaultWindowWidth,
		Height:       domain.DefaultWindowHeight,
		PollInterval: DefaultPollInterval,
	}
}

// AuthWindowController opens authorization windows.
type AuthWindowController struct {
	opener   driven.WindowOpener
	settings WindowSettings
}

// NewAuthWindowController creates a controller. Zero settings fall back to
// the defaults.
func NewAuthWindowController(opener driven.WindowOpener, settings WindowSettings) *AuthWindowController {
	defaults := DefaultWindowSettings()
	if settings.Width <= 0 {
		settings.Width = defaults.Width
	}
	if settings.Height <= 0 {
		settings.Height = defaults.Height
	}
	if settings.PollInterval <= 0 {
		settings.PollInterval = defaults.PollInterval
	}
	return &AuthWindowController{opener: opener, settings: settings}
}

// PrepareAuthWindow opens the authorization window on the loading page and
// runs fn with it. The window is closed on return if it is still open.
// Unauthenticated configs are rejected before any window opens.
func PrepareAuthWindow[T any](
	ctx context.Context,
	c *AuthWindowController,
	cfg domain.Config,
	fn func(context.Context, *AuthWindow) (T, error),
) (T, error) {
	var zero T
	if !cfg.Authorized() {
		return zero, domain.ErrNotAuthenticated
	}

	features := domain.CenteredFeatures(c.settings.Width, c.settings.Height, c.opener.ScreenGeometry())
	loadingURL := cfg.Origin() + domain.LoadingPath("")

	ref, err := c.opener.Open(ctx, loadingURL, windowName, features)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", domain.ErrWindowUnavailable, err)
	}

	w := newAuthWindow(ref, cfg.Origin(), c.settings.PollInterval)
	defer w.release()

	return fn(ctx, w)
}

// AuthWindow is an open authorization window with the messages it posted.
type AuthWindow struct {
	ref    driven.Window
	origin string
	poll   time.Duration

	mu     sync.Mutex
	errors []string
	ready  chan struct{}
	fired  bool

	stop chan struct{}
	wg   sync.WaitGroup
}

func newAuthWindow(ref driven.Window, origin string, poll time.Duration) *AuthWindow {
	w := &AuthWindow{
		ref:    ref,
		origin: origin,
		poll:   poll,
		ready:  make(chan struct{}),
		stop:   make(chan struct{}),
	}
	w.wg.Add(1)
	go w.listen()
	return w
}

// Ref returns the window handle.
func (w *AuthWindow) Ref() driven.Window {
	return w.ref
}

// Errors returns the error messages posted by the window, oldest first.
func (w *AuthWindow) Errors() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.errors))
	copy(out, w.errors)
	return out
}

// Ready waits for the window's ready signal. Fails with domain.ErrCancelled
// if the window is closed first.
func (w *AuthWindow) Ready(ctx context.Context) error {
	w.mu.Lock()
	ready := w.ready
	w.mu.Unlock()

	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if w.ref.Closed() {
				return domain.ErrCancelled
			}
		}
	}
}

// ReplaceURL sends the window to url once it can receive it. A closed
// window means the user cancelled.
func (w *AuthWindow) ReplaceURL(ctx context.Context, url string) error {
	if w.ref == nil || w.ref.Closed() {
		return domain.ErrCancelled
	}
	if err := w.Ready(ctx); err != nil {
		return err
	}
	// Every page load posts its own ready signal.
	w.rearm()

	err := w.ref.Navigate(url)
	if errors.Is(err, domain.ErrNavigationBlocked) {
		logger.Debug("navigation blocked, posting location to the window")
		err = w.ref.PostMessage(domain.LocationMessage{Location: url}, w.origin)
	}
	if err != nil {
		if w.ref.Closed() {
			return domain.ErrCancelled
		}
		return fmt.Errorf("load authorization window: %w", err)
	}
	return nil
}

// WaitClose blocks until the user closes the window. It fails with the
// first error the window posted, if any.
func (w *AuthWindow) WaitClose(ctx context.Context) error {
	ticker := time.NewTicker(w.poll)
	defer ticker.Stop()
	for !w.ref.Closed() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	if errs := w.Errors(); len(errs) > 0 {
		return &domain.WindowError{Message: errs[0]}
	}
	return nil
}

func (w *AuthWindow) rearm() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.ready = make(chan struct{})
	w.fired = false
}

func (w *AuthWindow) listen() {
	defer w.wg.Done()
	messages := w.ref.Messages()
	for {
		select {
		case <-w.stop:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			w.receive(msg)
		}
	}
}

func (w *AuthWindow) receive(msg domain.WindowMessage) {
	if msg.Origin != w.origin {
		logger.Debug("ignoring window message from %s", msg.Origin)
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if msg.IsReady() {
		if !w.fired {
			w.fired = true
			close(w.ready)
		}
		return
	}
	if text, ok := msg.ErrorMessage(); ok {
		logger.Debug("authorization window reported: %s", text)
		w.errors = append(w.errors, text)
	}
}

func (w *AuthWindow) release() {
	close(w.stop)
	w.wg.Wait()
	if !w.ref.Closed() {
		if err := w.ref.Close(); err != nil {
			logger.Debug("closing authorization window: %v", err)
		}
	}
}
