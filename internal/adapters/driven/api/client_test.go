package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

// newTestServer starts a TLS server for handler and returns a client and
// config pointed at it.
func newTestServer(t *testing.T, handler http.HandlerFunc) (*Client, domain.Config) {
	t.Helper()
	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(WithHTTPClient(srv.Client()), WithRateLimit(0))
	cfg := domain.Config{Domain: strings.TrimPrefix(srv.URL, "https://"), Token: "jwt"}
	return client, cfg
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestClient_RequestShape(t *testing.T) {
	var got *http.Request
	var body string
	client, cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		got = r
		data, _ := io.ReadAll(r.Body)
		body = string(data)
		writeJSON(w, http.StatusOK, `{"authorization":{"id":7,"status":"awaiting_callback"}}`)
	})

	auth, err := client.SetAuthorizationFields(context.Background(), cfg, "zendesk", "st-1", map[string]any{"subdomain": "acme"})

	require.NoError(t, err)
	assert.Equal(t, domain.AuthorizationID("7"), auth.ID)
	assert.Equal(t, http.MethodPut, got.Method)
	assert.Equal(t, "/api/platform_user/authorizations/zendesk", got.URL.Path)
	assert.Equal(t, "Bearer jwt", got.Header.Get("Authorization"))
	assert.Equal(t, "application/json", got.Header.Get("Accept"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"state":"st-1","subdomain":"acme"}`, body)
}

func TestClient_NoTokenNoAuthorizationHeader(t *testing.T) {
	var header string
	client, cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		header = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, `{"platform":{"name":"Acme","login_redirect_url":"https://acme.example/login"}}`)
	})

	platform, err := client.GetPlatform(context.Background(), cfg.Public())

	require.NoError(t, err)
	assert.Empty(t, header)
	assert.Equal(t, "https://acme.example/login", platform.LoginRedirectURL)
}

func TestClient_SessionCookieIsKept(t *testing.T) {
	client, cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/platform_user/sessions":
			http.SetCookie(w, &http.Cookie{Name: "_session", Value: "abc", Path: "/"})
			w.WriteHeader(http.StatusNoContent)
		case "/api/platform_user/sessions/token":
			if c, err := r.Cookie("_session"); err != nil || c.Value != "abc" {
				writeJSON(w, http.StatusUnauthorized, `{"error":"Unauthorized"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"access_token":"fresh"}`)
		default:
			http.NotFound(w, r)
		}
	})

	require.NoError(t, client.CreateSession(context.Background(), cfg.Public(), "jwt"))
	token, err := client.GetAccessToken(context.Background(), cfg.Public())

	require.NoError(t, err)
	assert.Equal(t, "fresh", token)
}

func TestClient_Errors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		message   string
		debug     bool
		authError bool
		notFound  bool
	}{
		{name: "error field", status: http.StatusUnauthorized, body: `{"error":"Unauthorized"}`, message: "Unauthorized", authError: true},
		{name: "not found", status: http.StatusNotFound, body: `{"error":"Not found"}`, message: "Not found", notFound: true},
		{name: "unreadable failure", status: http.StatusBadGateway, body: `<html>`, message: "Bad Gateway", debug: true},
		{name: "error on 200", status: http.StatusOK, body: `{"error":"Something broke"}`, message: "Something broke"},
		{name: "empty failure", status: http.StatusInternalServerError, body: ``, message: "Internal Server Error", debug: true},
		{name: "failure without error", status: http.StatusForbidden, body: `{}`, message: "Forbidden"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, cfg := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, tt.status, tt.body)
			})

			_, err := client.ListConnectors(context.Background(), cfg)

			var apiErr *domain.APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.StatusCode)
			assert.Equal(t, tt.message, apiErr.Message)
			assert.Equal(t, tt.debug, apiErr.DebugMessage != "")
			assert.Equal(t, tt.authError, domain.IsUnauthorized(err))
			assert.Equal(t, tt.notFound, domain.IsNotFound(err))
		})
	}
}

func TestClient_MissingTokens(t *testing.T) {
	client, cfg := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"ok":true}`)
	})

	_, err := client.GetAccessToken(context.Background(), cfg)
	assert.ErrorIs(t, err, domain.ErrNoAccessToken)

	_, err = client.GetOneTimeToken(context.Background(), cfg)
	assert.ErrorIs(t, err, domain.ErrNoOneTimeToken)
}

func TestClient_ConnectionPaths(t *testing.T) {
	var paths []string
	client, cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.RequestURI())
		switch r.Method {
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPost:
			data, _ := io.ReadAll(r.Body)
			var body map[string]string
			_ = json.Unmarshal(data, &body)
			writeJSON(w, http.StatusCreated, `{"connection":{"id":"`+body["id"]+`","enabled":true,"connector":{"slug":"slack"}}}`)
		default:
			if strings.HasSuffix(r.URL.Path, "/connections") {
				writeJSON(w, http.StatusOK, `{"connections":[{"id":"c1","enabled":true}]}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"connection":{"id":"c1","enabled":true,"connector":{"slug":"slack"}}}`)
		}
	})
	ctx := context.Background()

	_, err := client.ListConnections(ctx, cfg, "")
	require.NoError(t, err)
	list, err := client.ListConnections(ctx, cfg, "slack")
	require.NoError(t, err)
	assert.Len(t, list, 1)
	_, err = client.GetConnection(ctx, cfg, domain.ConnectionQuery{Slug: "slack"})
	require.NoError(t, err)
	_, err = client.GetConnection(ctx, cfg, domain.ConnectionQuery{ID: "c1"})
	require.NoError(t, err)
	created, err := client.CreateConnection(ctx, cfg, "slack", "mine")
	require.NoError(t, err)
	assert.Equal(t, "mine", created.ID)
	require.NoError(t, client.RemoveConnection(ctx, cfg, domain.ConnectionQuery{ID: "c1"}))
	require.NoError(t, client.RemoveConnection(ctx, cfg, domain.ConnectionQuery{Slug: "slack"}))

	assert.Equal(t, []string{
		"GET /api/platform_user/connections",
		"GET /api/platform_user/connections?connector=slack",
		"GET /api/platform_user/connections/slack",
		"GET /api/platform_user/connection/c1",
		"POST /api/platform_user/connections/slack",
		"DELETE /api/platform_user/connection/c1",
		"DELETE /api/platform_user/connections/slack",
	}, paths)
}

func TestClient_InvalidQuery(t *testing.T) {
	client := NewClient()

	_, err := client.GetConnection(context.Background(), domain.Config{Domain: "acme.xkit.co"}, domain.ConnectionQuery{})

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClient_AuthorizationEndpoints(t *testing.T) {
	var paths []string
	client, cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		writeJSON(w, http.StatusOK, `{"authorization":{"id":"42","status":"active","authorizer":{"prototype":{"slug":"google"}}}}`)
	})
	ctx := context.Background()

	created, err := client.CreateAuthorization(ctx, cfg, "google")
	require.NoError(t, err)
	assert.Equal(t, "google", created.PrototypeSlug())
	got, err := client.GetAuthorization(ctx, cfg, "google", "42")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, got.Status)

	assert.Equal(t, []string{
		"POST /api/platform_user/authorizations/google",
		"GET /api/platform_user/authorizations/google/42",
	}, paths)
}

func TestClient_CRM(t *testing.T) {
	var saved string
	client, cfg := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/platform_user/connection/c1/crm_setup":
			writeJSON(w, http.StatusBadRequest, `{"errors":["missing field"]}`)
		case "/api/platform_user/connection/c1/api_objects":
			writeJSON(w, http.StatusOK, `{"api_objects":[{"slug":"contact"}]}`)
		case "/api/platform_user/connection/c1/api_objects/contact":
			writeJSON(w, http.StatusOK, `{"api_object":{"slug":"contact"}}`)
		case "/api/platform_user/connection/c1/crm_mapping":
			if r.Method == http.MethodPost {
				data, _ := io.ReadAll(r.Body)
				saved = string(data)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			writeJSON(w, http.StatusOK, `{"objects":[]}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	setup, err := client.ListCRMObjects(ctx, cfg, "c1", json.RawMessage(`{}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"errors":["missing field"]}`, string(setup))

	objects, err := client.ListAPIObjects(ctx, cfg, "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"slug":"contact"}]`, string(objects))

	object, err := client.GetAPIObject(ctx, cfg, "c1", "contact")
	require.NoError(t, err)
	assert.JSONEq(t, `{"slug":"contact"}`, string(object))

	mapping, err := client.GetMapping(ctx, cfg, "c1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"objects":[]}`, string(mapping))

	require.NoError(t, client.SaveMapping(ctx, cfg, "c1", json.RawMessage(`["contact"]`), json.RawMessage(`{"contact":"person"}`)))
	assert.JSONEq(t, `{"objects":["contact"],"mapping":{"contact":"person"}}`, saved)
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	client, cfg := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"connectors":[]}`)
	})
	WithRateLimit(0.5)(client)

	_, err := client.ListConnectorsPublic(context.Background(), cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = client.ListConnectorsPublic(ctx, cfg)
	assert.Error(t, err)
}
