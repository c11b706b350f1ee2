package services

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
)

const testDomain = "acme.xkit.co"

const testOrigin = "https://" + testDomain

func unauthorized() error {
	return &domain.APIError{
		StatusCode: http.StatusUnauthorized,
		StatusText: "Unauthorized",
		Message:    "Unauthorized",
	}
}

func notFound() error {
	return &domain.APIError{
		StatusCode: http.StatusNotFound,
		StatusText: "Not Found",
		Message:    "Not Found",
	}
}

// fakePlatform is a PlatformAPI whose behaviour is set per test.
// Unset hooks return zero values.
type fakePlatform struct {
	mu    sync.Mutex
	calls map[string]int

	createSession          func(cfg domain.Config, token string) error
	deleteSession          func(cfg domain.Config) error
	getAccessToken         func(ctx context.Context, cfg domain.Config) (string, error)
	getOneTimeToken        func(cfg domain.Config) (string, error)
	assertToken            func(cfg domain.Config) error
	getPlatform            func(cfg domain.Config) (*domain.Platform, error)
	listConnectors         func(cfg domain.Config) ([]domain.Connector, error)
	listConnectorsPublic   func(cfg domain.Config) ([]domain.PublicConnector, error)
	getConnector           func(cfg domain.Config, slug string) (*domain.Connector, error)
	getConnectorPublic     func(cfg domain.Config, slug string) (*domain.PublicConnector, error)
	listConnections        func(cfg domain.Config, slug string) ([]domain.Connection, error)
	getConnection          func(cfg domain.Config, q domain.ConnectionQuery) (*domain.Connection, error)
	createConnection       func(cfg domain.Config, slug, id string) (*domain.Connection, error)
	removeConnection       func(cfg domain.Config, q domain.ConnectionQuery) error
	createAuthorization    func(cfg domain.Config, slug string) (*domain.Authorization, error)
	getAuthorization       func(cfg domain.Config, slug string, id domain.AuthorizationID) (*domain.Authorization, error)
	setAuthorizationFields func(cfg domain.Config, slug, state string, fields map[string]any) (*domain.Authorization, error)
}

var _ driven.PlatformAPI = (*fakePlatform)(nil)

func (f *fakePlatform) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[name]++
}

func (f *fakePlatform) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakePlatform) CreateSession(_ context.Context, cfg domain.Config, token string) error {
	f.record("CreateSession")
	if f.createSession == nil {
		return nil
	}
	return f.createSession(cfg, token)
}

func (f *fakePlatform) DeleteSession(_ context.Context, cfg domain.Config) error {
	f.record("DeleteSession")
	if f.deleteSession == nil {
		return nil
	}
	return f.deleteSession(cfg)
}

func (f *fakePlatform) GetAccessToken(ctx context.Context, cfg domain.Config) (string, error) {
	f.record("GetAccessToken")
	if f.getAccessToken == nil {
		return "", unauthorized()
	}
	return f.getAccessToken(ctx, cfg)
}

func (f *fakePlatform) GetOneTimeToken(_ context.Context, cfg domain.Config) (string, error) {
	f.record("GetOneTimeToken")
	if f.getOneTimeToken == nil {
		return "ott", nil
	}
	return f.getOneTimeToken(cfg)
}

func (f *fakePlatform) AssertToken(_ context.Context, cfg domain.Config) error {
	f.record("AssertToken")
	if f.assertToken == nil {
		return nil
	}
	return f.assertToken(cfg)
}

func (f *fakePlatform) GetPlatform(_ context.Context, cfg domain.Config) (*domain.Platform, error) {
	f.record("GetPlatform")
	if f.getPlatform == nil {
		return &domain.Platform{Name: "Acme", Slug: "acme"}, nil
	}
	return f.getPlatform(cfg)
}

func (f *fakePlatform) ListConnectors(_ context.Context, cfg domain.Config) ([]domain.Connector, error) {
	f.record("ListConnectors")
	if f.listConnectors == nil {
		return nil, nil
	}
	return f.listConnectors(cfg)
}

func (f *fakePlatform) ListConnectorsPublic(_ context.Context, cfg domain.Config) ([]domain.PublicConnector, error) {
	f.record("ListConnectorsPublic")
	if f.listConnectorsPublic == nil {
		return nil, nil
	}
	return f.listConnectorsPublic(cfg)
}

func (f *fakePlatform) GetConnector(_ context.Context, cfg domain.Config, slug string) (*domain.Connector, error) {
	f.record("GetConnector")
	if f.getConnector == nil {
		return nil, notFound()
	}
	return f.getConnector(cfg, slug)
}

func (f *fakePlatform) GetConnectorPublic(_ context.Context, cfg domain.Config, slug string) (*domain.PublicConnector, error) {
	f.record("GetConnectorPublic")
	if f.getConnectorPublic == nil {
		return nil, notFound()
	}
	return f.getConnectorPublic(cfg, slug)
}

func (f *fakePlatform) ListConnections(_ context.Context, cfg domain.Config, slug string) ([]domain.Connection, error) {
	f.record("ListConnections")
	if f.listConnections == nil {
		return nil, nil
	}
	return f.listConnections(cfg, slug)
}

func (f *fakePlatform) GetConnection(_ context.Context, cfg domain.Config, q domain.ConnectionQuery) (*domain.Connection, error) {
	f.record("GetConnection")
	if f.getConnection == nil {
		return nil, notFound()
	}
	return f.getConnection(cfg, q)
}

func (f *fakePlatform) CreateConnection(_ context.Context, cfg domain.Config, slug, id string) (*domain.Connection, error) {
	f.record("CreateConnection")
	if f.createConnection == nil {
		return nil, notFound()
	}
	return f.createConnection(cfg, slug, id)
}

func (f *fakePlatform) RemoveConnection(_ context.Context, cfg domain.Config, q domain.ConnectionQuery) error {
	f.record("RemoveConnection")
	if f.removeConnection == nil {
		return nil
	}
	return f.removeConnection(cfg, q)
}

func (f *fakePlatform) CreateAuthorization(_ context.Context, cfg domain.Config, slug string) (*domain.Authorization, error) {
	f.record("CreateAuthorization")
	if f.createAuthorization == nil {
		return nil, notFound()
	}
	return f.createAuthorization(cfg, slug)
}

func (f *fakePlatform) GetAuthorization(
	_ context.Context,
	cfg domain.Config,
	slug string,
	id domain.AuthorizationID,
) (*domain.Authorization, error) {
	f.record("GetAuthorization")
	if f.getAuthorization == nil {
		return nil, notFound()
	}
	return f.getAuthorization(cfg, slug, id)
}

func (f *fakePlatform) SetAuthorizationFields(
	_ context.Context,
	cfg domain.Config,
	slug, state string,
	fields map[string]any,
) (*domain.Authorization, error) {
	f.record("SetAuthorizationFields")
	if f.setAuthorizationFields == nil {
		return nil, notFound()
	}
	return f.setAuthorizationFields(cfg, slug, state, fields)
}

func (f *fakePlatform) ListCRMObjects(context.Context, domain.Config, string, json.RawMessage) (json.RawMessage, error) {
	f.record("ListCRMObjects")
	return json.RawMessage(`[]`), nil
}

func (f *fakePlatform) ListAPIObjects(context.Context, domain.Config, string) (json.RawMessage, error) {
	f.record("ListAPIObjects")
	return json.RawMessage(`[]`), nil
}

func (f *fakePlatform) GetAPIObject(context.Context, domain.Config, string, string) (json.RawMessage, error) {
	f.record("GetAPIObject")
	return json.RawMessage(`{}`), nil
}

func (f *fakePlatform) GetMapping(context.Context, domain.Config, string) (json.RawMessage, error) {
	f.record("GetMapping")
	return json.RawMessage(`{}`), nil
}

func (f *fakePlatform) SaveMapping(context.Context, domain.Config, string, json.RawMessage, json.RawMessage) error {
	f.record("SaveMapping")
	return nil
}

// fakeChannel is a realtime channel driven by the test.
type fakeChannel struct {
	topic     string
	joinReply json.RawMessage
	joinErr   error
	leaveErr  error
	messages  chan driven.ChannelMessage

	mu     sync.Mutex
	joins  int
	leaves int
	once   sync.Once
}

func newFakeChannel(topic, status string) *fakeChannel {
	return &fakeChannel{
		topic:     topic,
		joinReply: json.RawMessage(`{"status":"` + status + `"}`),
		messages:  make(chan driven.ChannelMessage, 8),
	}
}

func (c *fakeChannel) Topic() string { return c.topic }

func (c *fakeChannel) Join(context.Context) (json.RawMessage, error) {
	c.mu.Lock()
	c.joins++
	c.mu.Unlock()
	if c.joinErr != nil {
		return nil, c.joinErr
	}
	return c.joinReply, nil
}

func (c *fakeChannel) Messages() <-chan driven.ChannelMessage { return c.messages }

func (c *fakeChannel) Leave(context.Context) error {
	c.mu.Lock()
	c.leaves++
	c.mu.Unlock()
	c.once.Do(func() { close(c.messages) })
	return c.leaveErr
}

func (c *fakeChannel) leaveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.leaves
}

func (c *fakeChannel) pushStatus(status string) {
	c.messages <- driven.ChannelMessage{
		Event:   domain.ChannelEventStatusUpdate,
		Payload: json.RawMessage(`{"status":"` + status + `"}`),
	}
}

// fakeSocket hands out preconfigured channels.
type fakeSocket struct {
	mu          sync.Mutex
	connected   bool
	channels    map[string]*fakeChannel
	disconnects int
}

func newFakeSocket(channels ...*fakeChannel) *fakeSocket {
	s := &fakeSocket{connected: true, channels: make(map[string]*fakeChannel)}
	for _, ch := range channels {
		s.channels[ch.topic] = ch
	}
	return s
}

func (s *fakeSocket) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSocket) Channel(topic string) driven.Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.channels[topic]
	if !ok {
		ch = newFakeChannel(topic, string(domain.StatusAwaitingCallback))
		s.channels[topic] = ch
	}
	return ch
}

func (s *fakeSocket) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	s.disconnects++
	return nil
}

type fakeDialer struct {
	mu     sync.Mutex
	socket *fakeSocket
	err    error
	dials  int
	tokens []string
}

func (d *fakeDialer) Dial(_ context.Context, _, token string) (driven.Socket, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.tokens = append(d.tokens, token)
	if d.err != nil {
		return nil, d.err
	}
	if d.socket == nil || !d.socket.Connected() {
		d.socket = newFakeSocket()
	}
	return d.socket, nil
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// fakeWindow is a popup that posts its ready signal after every load when
// autoReady is set.
type fakeWindow struct {
	mu              sync.Mutex
	closed          bool
	blockNavigation bool
	autoReady       bool
	navigations     []string
	posts           []any
	messages        chan domain.WindowMessage
	onLoad          func(w *fakeWindow, url string)
}

func newFakeWindow(autoReady bool) *fakeWindow {
	return &fakeWindow{autoReady: autoReady, messages: make(chan domain.WindowMessage, 32)}
}

func (w *fakeWindow) Closed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func (w *fakeWindow) Navigate(url string) error {
	w.mu.Lock()
	if w.blockNavigation {
		w.mu.Unlock()
		return domain.ErrNavigationBlocked
	}
	w.navigations = append(w.navigations, url)
	w.mu.Unlock()
	w.loaded(url)
	return nil
}

func (w *fakeWindow) PostMessage(msg any, _ string) error {
	w.mu.Lock()
	w.posts = append(w.posts, msg)
	w.mu.Unlock()
	if loc, ok := msg.(domain.LocationMessage); ok {
		w.loaded(loc.Location)
	}
	return nil
}

func (w *fakeWindow) Messages() <-chan domain.WindowMessage { return w.messages }

func (w *fakeWindow) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWindow) loaded(url string) {
	if w.onLoad != nil {
		w.onLoad(w, url)
	}
	if w.autoReady && !w.Closed() {
		w.post(testOrigin, domain.ReadyMessage)
	}
}

func (w *fakeWindow) post(origin string, data any) {
	raw, _ := json.Marshal(data)
	w.messages <- domain.WindowMessage{Origin: origin, Data: raw}
}

func (w *fakeWindow) history() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.navigations...)
}

type fakeOpener struct {
	mu       sync.Mutex
	window   *fakeWindow
	screen   *domain.Rect
	err      error
	opened   []string
	features domain.WindowFeatures
}

func (o *fakeOpener) Open(_ context.Context, url, _ string, features domain.WindowFeatures) (driven.Window, error) {
	o.mu.Lock()
	o.opened = append(o.opened, url)
	o.features = features
	w := o.window
	o.mu.Unlock()
	if o.err != nil {
		return nil, o.err
	}
	if w.autoReady {
		w.post(testOrigin, domain.ReadyMessage)
	}
	return w, nil
}

func (o *fakeOpener) ScreenGeometry() *domain.Rect { return o.screen }

func (o *fakeOpener) openCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.opened)
}

type fakeNavigator struct {
	mu   sync.Mutex
	urls []string
}

func (n *fakeNavigator) Navigate(_ context.Context, url string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.urls = append(n.urls, url)
	return nil
}

func (n *fakeNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.urls...)
}
