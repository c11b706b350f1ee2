// Package xkit connects third-party SaaS accounts to an xkit platform.
//
// A Client is bound to one vendor domain. It keeps the user's platform
// session fresh, lists connectors and connections, and runs the browser
// authorization flow that connects a new account:
//
//	c, err := xkit.New("acme.xkit.co", xkit.WithToken(token))
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	conn, err := c.Connect(ctx, "salesforce")
package xkit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/custodia-labs/xkit-cli/internal/adapters/driven/api"
	"github.com/custodia-labs/xkit-cli/internal/adapters/driven/config/file"
	"github.com/custodia-labs/xkit-cli/internal/adapters/driven/realtime/phoenix"
	"github.com/custodia-labs/xkit-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/xkit-cli/internal/adapters/driven/window/browser"
	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/xkit-cli/internal/core/services"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

// Ensure Client implements the interface.
var _ driving.ConnectService = (*Client)(nil)

// Config keys read by WithConfigStore.
const (
	KeyHeartbeatInterval = "realtime.heartbeat_interval"
	KeyPollInterval      = "window.poll_interval"
	KeyWindowWidth       = "window.width"
	KeyWindowHeight      = "window.height"
	KeyRateLimit         = "api.rate_limit"
)

// ErrNoDomain is returned by New without a vendor domain.
var ErrNoDomain = errors.New("xkit: vendor domain is required")

// Client is the connection broker for one vendor domain.
type Client struct {
	*services.Client
	opener *browser.Opener
}

type options struct {
	token      string
	store      ConfigStore
	httpClient *http.Client
	launch     browser.Launcher
	bridgeAddr string
	rateLimit  *float64
	heartbeat  time.Duration
	window     services.WindowSettings
}

// Option configures a Client.
type Option func(*options)

// WithToken restores a session from a platform token.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithConfigStore persists the session in store and reads tuning keys from
// it. Options passed explicitly win over stored values.
func WithConfigStore(store ConfigStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithHTTPClient sends platform requests through hc.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithLauncher opens URLs in the user's browser with launch instead of the
// system default.
func WithLauncher(launch Launcher) Option {
	return func(o *options) {
		o.launch = launch
	}
}

// WithBridgeAddr sets the loopback address of the authorization bridge.
func WithBridgeAddr(addr string) Option {
	return func(o *options) {
		o.bridgeAddr = addr
	}
}

// WithRateLimit caps platform requests per second. Zero disables the cap.
func WithRateLimit(rps float64) Option {
	return func(o *options) {
		o.rateLimit = &rps
	}
}

// WithHeartbeat sets the realtime heartbeat interval.
func WithHeartbeat(d time.Duration) Option {
	return func(o *options) {
		o.heartbeat = d
	}
}

// WithWindowSize sets the authorization popup size.
func WithWindowSize(width, height int) Option {
	return func(o *options) {
		o.window.Width = width
		o.window.Height = height
	}
}

// WithPollInterval sets how often the popup is checked for closure.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.window.PollInterval = d
	}
}

// New creates a client for vendorDomain and starts loading its session.
// Call Ready before relying on the session, and Close when done.
func New(vendorDomain string, opts ...Option) (*Client, error) {
	if vendorDomain == "" {
		return nil, ErrNoDomain
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.store != nil {
		o.fillFrom(o.store)
	}

	apiOpts := []api.Option{}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, api.WithHTTPClient(o.httpClient))
	}
	if o.rateLimit != nil {
		apiOpts = append(apiOpts, api.WithRateLimit(*o.rateLimit))
	}

	dialOpts := []phoenix.Option{}
	if o.heartbeat > 0 {
		dialOpts = append(dialOpts, phoenix.WithHeartbeat(o.heartbeat))
	}

	openOpts := []browser.Option{}
	if o.launch != nil {
		openOpts = append(openOpts, browser.WithLauncher(o.launch))
	}
	if o.bridgeAddr != "" {
		openOpts = append(openOpts, browser.WithAddr(o.bridgeAddr))
	}
	opener := browser.NewOpener(openOpts...)

	c := services.NewClient(vendorDomain, o.token, services.ClientDeps{
		API:       api.NewClient(apiOpts...),
		Dialer:    phoenix.NewDialer(dialOpts...),
		Opener:    opener,
		Store:     o.store,
		Navigator: browser.NewNavigator(o.launch),
		Window:    o.window,
	})
	return &Client{Client: c, opener: opener}, nil
}

// fillFrom reads the tuning keys the caller did not set explicitly.
func (o *options) fillFrom(store ConfigStore) {
	if o.heartbeat == 0 {
		o.heartbeat = store.GetDuration(KeyHeartbeatInterval)
	}
	if o.window.PollInterval == 0 {
		o.window.PollInterval = store.GetDuration(KeyPollInterval)
	}
	if o.window.Width == 0 && o.window.Height == 0 {
		o.window.Width = store.GetInt(KeyWindowWidth)
		o.window.Height = store.GetInt(KeyWindowHeight)
	}
	if o.rateLimit == nil {
		if _, ok := store.Get(KeyRateLimit); ok {
			rps := float64(store.GetInt(KeyRateLimit))
			o.rateLimit = &rps
		}
	}
}

// Close stops background work and shuts the authorization bridge down.
func (c *Client) Close() {
	c.Client.Close()
	if err := c.opener.Close(); err != nil {
		logger.Warn("stopping authorization bridge: %v", err)
	}
}

// BridgeAddr returns the loopback address of the authorization bridge, or
// "" before the first authorization window was opened.
func (c *Client) BridgeAddr() string {
	return c.opener.Addr()
}

// TokenSource returns an oauth2.TokenSource yielding the connection's
// third-party access token, for API clients of the connected service.
func (c *Client) TokenSource(ctx context.Context, query ConnectionQuery) (oauth2.TokenSource, error) {
	if err := query.Validate(); err != nil {
		return nil, fmt.Errorf("token source: %w", err)
	}
	return services.NewConnectionTokenSource(ctx, c, query), nil
}

// NewFileStore opens the TOML config store in dir, or in ~/.xkit when dir
// is empty.
func NewFileStore(dir string) (ConfigStore, error) {
	return file.NewConfigStore(dir)
}

// NewMemoryStore returns a config store that keeps nothing on disk.
func NewMemoryStore() ConfigStore {
	return memory.NewConfigStore()
}

// IsUnauthorized reports whether err means the session was rejected.
func IsUnauthorized(err error) bool {
	return domain.IsUnauthorized(err)
}

// IsCancelled reports whether the user closed the authorization window.
func IsCancelled(err error) bool {
	return domain.IsCancelled(err)
}

// IsNotFound reports whether the requested entity does not exist.
func IsNotFound(err error) bool {
	return domain.IsNotFound(err)
}
