package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/custodia-labs/xkit-cli/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driving"
)

// fakeClient records what the commands asked for. Methods the commands do
// not call panic on the nil embedded interface.
type fakeClient struct {
	driving.ConnectService

	mu        sync.Mutex
	domain    string
	token     string
	closed    bool
	listeners map[string]driving.Listener

	loginToken string
	loginCb    driving.TokenCallback
	loggedOut  bool

	platform    *domain.Platform
	connectors  []domain.Connector
	connections []domain.Connection
	connection  *domain.Connection
	connToken   string
	removed     []domain.ConnectionQuery
	fieldsSlug  string
	fieldsState string
	fields      map[string]any
	addedID     string

	// progress is emitted to listeners during Connect.
	progress []domain.AuthorizeProgress
	err      error
}

func newFakeClient() *fakeClient {
	return &fakeClient{listeners: make(map[string]driving.Listener)}
}

func (f *fakeClient) Ready(context.Context) error { return nil }
func (f *fakeClient) Domain() string              { return f.domain }
func (f *fakeClient) ConnectorURL(slug string) string {
	return "https://" + f.domain + "/connectors/" + slug
}

func (f *fakeClient) SetDomain(d string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.domain = d
}

func (f *fakeClient) currentDomain() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.domain
}

func (f *fakeClient) Close() { f.closed = true }

func (f *fakeClient) State() domain.SessionState {
	return domain.SessionState{Domain: f.domain, Token: f.token}
}

func (f *fakeClient) Login(_ context.Context, token string, cb driving.TokenCallback) error {
	f.loginToken = token
	f.loginCb = cb
	return f.err
}

func (f *fakeClient) Logout(context.Context) error {
	f.loggedOut = true
	return f.err
}

func (f *fakeClient) GetAccessToken(context.Context) (string, error) {
	return f.token, f.err
}

func (f *fakeClient) GetPlatform(context.Context) (*domain.Platform, error) {
	return f.platform, f.err
}

func (f *fakeClient) ListConnectors(context.Context) ([]domain.Connector, error) {
	return f.connectors, f.err
}

func (f *fakeClient) GetConnector(_ context.Context, slug string) (*domain.Connector, error) {
	for i := range f.connectors {
		if f.connectors[i].Slug == slug {
			return &f.connectors[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeClient) ListConnections(_ context.Context, slug string) ([]domain.Connection, error) {
	var out []domain.Connection
	for _, c := range f.connections {
		if slug == "" || c.Connector.Slug == slug {
			out = append(out, c)
		}
	}
	return out, f.err
}

func (f *fakeClient) GetConnection(context.Context, domain.ConnectionQuery) (*domain.Connection, error) {
	if f.connection == nil {
		return nil, domain.ErrNotFound
	}
	return f.connection, nil
}

func (f *fakeClient) GetConnectionToken(context.Context, domain.ConnectionQuery) (string, error) {
	return f.connToken, f.err
}

func (f *fakeClient) Connect(_ context.Context, slug string) (*domain.Connection, error) {
	for _, p := range f.progress {
		for _, fn := range f.listeners {
			fn(p)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Connection{
		ID:        "c1",
		Enabled:   true,
		Connector: domain.Connector{PublicConnector: domain.PublicConnector{Slug: slug}},
	}, nil
}

func (f *fakeClient) AddConnection(ctx context.Context, slug, id string) (*domain.Connection, error) {
	f.addedID = id
	conn, err := f.Connect(ctx, slug)
	if conn != nil {
		conn.ID = id
	}
	return conn, err
}

func (f *fakeClient) Reconnect(ctx context.Context, conn *domain.Connection) (*domain.Connection, error) {
	return f.Connect(ctx, conn.Connector.Slug)
}

func (f *fakeClient) Disconnect(_ context.Context, slug string) error {
	f.removed = append(f.removed, domain.ConnectionQuery{Slug: slug})
	return f.err
}

func (f *fakeClient) RemoveConnection(_ context.Context, q domain.ConnectionQuery) error {
	f.removed = append(f.removed, q)
	return f.err
}

func (f *fakeClient) SetAuthorizationFields(
	_ context.Context, slug, state string, fields map[string]any,
) (*domain.Authorization, error) {
	f.fieldsSlug, f.fieldsState, f.fields = slug, state, fields
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Authorization{ID: "7", Status: domain.StatusAwaitingCallback}, nil
}

func (f *fakeClient) On(event domain.Event, id string, fn driving.Listener) error {
	key := string(event) + "/" + id
	if _, ok := f.listeners[key]; ok {
		return domain.ErrListenerExists
	}
	f.listeners[key] = fn
	return nil
}

func (f *fakeClient) Off(event domain.Event, id string) error {
	key := string(event) + "/" + id
	if _, ok := f.listeners[key]; !ok {
		return domain.ErrListenerNotFound
	}
	delete(f.listeners, key)
	return nil
}

// testEnv wires a fake client and an in-memory store into the commands.
type testEnv struct {
	client *fakeClient
	store  *memory.ConfigStore

	// Arguments the factory was called with.
	gotDomain string
	gotToken  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv(EnvDomain, "")
	t.Setenv(EnvToken, "")

	env := &testEnv{client: newFakeClient(), store: memory.NewConfigStore()}

	prevClient, prevStore, prevStdin, prevInteractive := newClient, openStore, stdin, interactive
	newClient = func(vendorDomain, token string, _ driven.ConfigStore) (Client, error) {
		env.gotDomain, env.gotToken = vendorDomain, token
		env.client.domain = vendorDomain
		return env.client, nil
	}
	openStore = func(string) (driven.ConfigStore, error) { return env.store, nil }
	stdin = strings.NewReader("")
	interactive = func() bool { return false }

	t.Cleanup(func() {
		closeClient()
		newClient, openStore, stdin, interactive = prevClient, prevStore, prevStdin, prevInteractive
		resetFlags()
	})
	return env
}

// run executes the root command and returns what it printed.
func (env *testEnv) run(args ...string) (string, error) {
	resetFlags()
	closeClient()

	out := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags() {
	flagDomain, flagConfig, flagVerbose = "", "", false
	outputJSON, connectionID, plainProgress = false, "", false
	loginToken, tokenDecode, addID = "", false, ""
	authState, authFields = "", nil
}
