package xkit

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// newPlatform serves an anonymous platform: the catalog is public and no
// session cookie is ever accepted.
func newPlatform(t *testing.T) (string, *http.Client) {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/platform_user/platform":
			writeJSON(w, http.StatusOK, `{"platform":{"name":"Acme","slug":"acme","login_redirect_url":"https://acme.example/login"}}`)
		case "/api/platform_user/platform/connectors":
			writeJSON(w, http.StatusOK, `{"connectors":[{"slug":"salesforce","name":"Salesforce"}]}`)
		default:
			writeJSON(w, http.StatusUnauthorized, `{"error":"unauthorized"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "https://"), srv.Client()
}

func noBrowser(t *testing.T) Launcher {
	return func(url string) error {
		t.Errorf("unexpected browser launch: %s", url)
		return nil
	}
}

func TestNew_RequiresDomain(t *testing.T) {
	c, err := New("")

	assert.ErrorIs(t, err, ErrNoDomain)
	assert.Nil(t, c)
}

func TestNew_AnonymousCatalog(t *testing.T) {
	host, hc := newPlatform(t)
	store := NewMemoryStore()

	c, err := New(host, WithHTTPClient(hc), WithConfigStore(store), WithLauncher(noBrowser(t)), WithRateLimit(0))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, c.Ready(ctx))

	assert.Equal(t, host, c.Domain())
	assert.Equal(t, "https://"+host+"/connectors/salesforce", c.ConnectorURL("salesforce"))
	assert.Equal(t, "https://acme.example/login", c.State().LoginRedirect)
	assert.Empty(t, c.State().Token)

	platform, err := c.GetPlatform(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme", platform.Name)

	connectors, err := c.ListConnectors(ctx)
	require.NoError(t, err)
	require.Len(t, connectors, 1)
	assert.Equal(t, "salesforce", connectors[0].Slug)
	assert.Nil(t, connectors[0].Connection)

	assert.Empty(t, c.BridgeAddr())
}

func TestOptions_FillFromStore(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyHeartbeatInterval, "5s"))
	require.NoError(t, store.Set(KeyPollInterval, "100ms"))
	require.NoError(t, store.Set(KeyWindowWidth, 800))
	require.NoError(t, store.Set(KeyWindowHeight, 900))
	require.NoError(t, store.Set(KeyRateLimit, 3))

	o := &options{}
	o.fillFrom(store)

	assert.Equal(t, 5*time.Second, o.heartbeat)
	assert.Equal(t, 100*time.Millisecond, o.window.PollInterval)
	assert.Equal(t, 800, o.window.Width)
	assert.Equal(t, 900, o.window.Height)
	require.NotNil(t, o.rateLimit)
	assert.Equal(t, 3.0, *o.rateLimit)
}

func TestOptions_ExplicitWins(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Set(KeyHeartbeatInterval, "5s"))
	require.NoError(t, store.Set(KeyRateLimit, 3))

	o := &options{}
	for _, opt := range []Option{WithHeartbeat(time.Second), WithRateLimit(0), WithWindowSize(400, 500)} {
		opt(o)
	}
	o.fillFrom(store)

	assert.Equal(t, time.Second, o.heartbeat)
	assert.Equal(t, 0.0, *o.rateLimit)
	assert.Equal(t, 400, o.window.Width)
	assert.Equal(t, 500, o.window.Height)
}

func TestOptions_EmptyStoreKeepsDefaults(t *testing.T) {
	o := &options{}
	o.fillFrom(NewMemoryStore())

	assert.Zero(t, o.heartbeat)
	assert.Nil(t, o.rateLimit)
	assert.Zero(t, o.window)
}

func TestTokenSource_ValidatesQuery(t *testing.T) {
	host, hc := newPlatform(t)
	c, err := New(host, WithHTTPClient(hc), WithLauncher(noBrowser(t)))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.TokenSource(context.Background(), ConnectionQuery{})
	assert.Error(t, err)

	ts, err := c.TokenSource(context.Background(), ConnectionQuery{Slug: "salesforce"})
	require.NoError(t, err)
	assert.NotNil(t, ts)
}
