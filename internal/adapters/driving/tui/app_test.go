package tui

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/xkit-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driving"
)

// fakeConnect implements the parts of driving.ConnectService the view uses.
type fakeConnect struct {
	driving.ConnectService

	mu        sync.Mutex
	listeners map[string]driving.Listener
	onErr     error
	connect   func(ctx context.Context, slug string, emit func(domain.AuthorizeProgress)) (*domain.Connection, error)
}

func newFakeConnect() *fakeConnect {
	return &fakeConnect{listeners: make(map[string]driving.Listener)}
}

func (f *fakeConnect) On(_ domain.Event, id string, fn driving.Listener) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.onErr != nil {
		return f.onErr
	}
	f.listeners[id] = fn
	return nil
}

func (f *fakeConnect) Off(_ domain.Event, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.listeners, id)
	return nil
}

func (f *fakeConnect) emit(p domain.AuthorizeProgress) {
	f.mu.Lock()
	var fns []driving.Listener
	for _, fn := range f.listeners {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(p)
	}
}

func (f *fakeConnect) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

func (f *fakeConnect) Connect(ctx context.Context, slug string) (*domain.Connection, error) {
	return f.connect(ctx, slug, f.emit)
}

func connection(slug string) *domain.Connection {
	return &domain.Connection{
		ID:            "c1",
		Enabled:       true,
		Connector:     domain.Connector{PublicConnector: domain.PublicConnector{Slug: slug}},
		Authorization: &domain.Authorization{ID: "7", Status: domain.StatusActive},
	}
}

func transition(from, to domain.AuthorizeState) messages.AuthorizeProgressed {
	return messages.AuthorizeProgressed{Progress: domain.AuthorizeProgress{AuthorizationID: "7", From: from, To: to}}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestNewApp_Validation(t *testing.T) {
	_, err := NewApp(&Ports{}, "salesforce")
	assert.ErrorIs(t, err, ErrMissingConnectService)

	_, err = NewApp(nil, "salesforce")
	assert.ErrorIs(t, err, ErrInvalidPorts)

	_, err = NewApp(&Ports{Connect: newFakeConnect()}, "")
	assert.ErrorIs(t, err, ErrMissingSlug)
}

func TestApp_InitRegistersListener(t *testing.T) {
	svc := newFakeConnect()
	app, err := NewApp(&Ports{Connect: svc}, "salesforce")
	require.NoError(t, err)

	require.NotNil(t, app.Init())
	assert.Equal(t, 1, svc.listenerCount())

	svc.emit(domain.AuthorizeProgress{From: domain.AuthorizeIdle, To: domain.AuthorizeLoggingIn})
	app.onProgress("not progress")

	msg := app.waitForProgress()()
	assert.Equal(t, transition(domain.AuthorizeIdle, domain.AuthorizeLoggingIn).Progress.To,
		msg.(messages.AuthorizeProgressed).Progress.To)
}

func TestApp_InitFailsWhenListenerIsTaken(t *testing.T) {
	svc := newFakeConnect()
	svc.onErr = domain.ErrListenerExists
	app, err := NewApp(&Ports{Connect: svc}, "salesforce")
	require.NoError(t, err)

	assert.True(t, isQuit(app.Init()))
	_, err = app.Result()
	assert.ErrorIs(t, err, domain.ErrListenerExists)
}

func TestApp_ConnectCommand(t *testing.T) {
	svc := newFakeConnect()
	svc.connect = func(_ context.Context, slug string, _ func(domain.AuthorizeProgress)) (*domain.Connection, error) {
		return connection(slug), nil
	}
	app, err := NewApp(&Ports{Connect: svc}, "salesforce")
	require.NoError(t, err)

	msg := app.connect()()

	finished := msg.(messages.ConnectFinished)
	require.NoError(t, finished.Err)
	assert.Equal(t, "salesforce", finished.Connection.Connector.Slug)
	assert.Nil(t, app.waitForProgress()(), "progress waiter returns once Connect finished")
}

func TestApp_RendersProgress(t *testing.T) {
	svc := newFakeConnect()
	app, err := NewApp(&Ports{Connect: svc}, "salesforce")
	require.NoError(t, err)

	assert.Contains(t, app.View(), "Connecting salesforce")
	assert.Contains(t, app.View(), "· Waiting for you to approve access")

	_, cmd := app.Update(transition(domain.AuthorizeSubscribing, domain.AuthorizeAwaitingCallback))
	assert.NotNil(t, cmd)

	view := app.View()
	assert.Contains(t, view, "✓ Signing in to the authorization window")
	assert.Contains(t, view, "Waiting for you to approve access")
	assert.Contains(t, view, "· Finishing up")
	assert.Contains(t, view, "q cancel")
}

func TestApp_FinishesOnSuccess(t *testing.T) {
	svc := newFakeConnect()
	app, err := NewApp(&Ports{Connect: svc}, "salesforce")
	require.NoError(t, err)
	app.Init()

	app.onProgress(domain.AuthorizeProgress{From: domain.AuthorizeFinalizing, To: domain.AuthorizeDone})
	_, cmd := app.Update(messages.ConnectFinished{Connection: connection("salesforce")})

	assert.True(t, isQuit(cmd))
	assert.Equal(t, domain.AuthorizeDone, app.state)
	assert.Contains(t, app.View(), "Connected salesforce.")
	assert.Contains(t, app.View(), "✓ Finishing up")
	assert.Zero(t, svc.listenerCount())

	conn, err := app.Result()
	require.NoError(t, err)
	assert.Equal(t, "c1", conn.ID)
}

func TestApp_ShowsFailure(t *testing.T) {
	svc := newFakeConnect()
	app, err := NewApp(&Ports{Connect: svc}, "salesforce")
	require.NoError(t, err)

	app.Update(transition(domain.AuthorizeLoggingIn, domain.AuthorizeSubscribing))
	app.Update(transition(domain.AuthorizeSubscribing, domain.AuthorizeFailed))
	app.Update(messages.ConnectFinished{Err: domain.ErrRealtimeUnavailable})

	view := app.View()
	assert.Contains(t, view, "✓ Signing in to the authorization window")
	assert.Contains(t, view, "✗ Listening for the authorization status")
	assert.Contains(t, view, "Could not reach the server")
}

func TestApp_QuitCancelsConnect(t *testing.T) {
	svc := newFakeConnect()
	app, err := NewApp(&Ports{Connect: svc}, "salesforce")
	require.NoError(t, err)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Nil(t, cmd, "waits for Connect to return")
	assert.ErrorIs(t, app.ctx.Err(), context.Canceled)
	assert.Contains(t, app.View(), "Cancelling...")

	_, cmd = app.Update(messages.ConnectFinished{Err: context.Canceled})
	assert.True(t, isQuit(cmd))

	_, cmd = app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.True(t, isQuit(cmd))
}

func TestApp_IgnoresOtherKeys(t *testing.T) {
	app, err := NewApp(&Ports{Connect: newFakeConnect()}, "salesforce")
	require.NoError(t, err)

	_, cmd := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})

	assert.Nil(t, cmd)
	assert.NoError(t, app.ctx.Err())
}

func TestRun_ReportsConnectResult(t *testing.T) {
	svc := newFakeConnect()
	svc.connect = func(_ context.Context, slug string, emit func(domain.AuthorizeProgress)) (*domain.Connection, error) {
		emit(domain.AuthorizeProgress{From: domain.AuthorizeIdle, To: domain.AuthorizeLoggingIn})
		time.Sleep(10 * time.Millisecond)
		emit(domain.AuthorizeProgress{From: domain.AuthorizeFinalizing, To: domain.AuthorizeDone})
		return connection(slug), nil
	}

	var out bytes.Buffer
	conn, err := Run(context.Background(), &Ports{Connect: svc}, "salesforce",
		tea.WithInput(nil), tea.WithOutput(&out), tea.WithoutSignalHandler())

	require.NoError(t, err)
	assert.Equal(t, "c1", conn.ID)
	assert.Zero(t, svc.listenerCount())
}

func TestRun_PropagatesConnectError(t *testing.T) {
	svc := newFakeConnect()
	boom := errors.New("boom")
	svc.connect = func(context.Context, string, func(domain.AuthorizeProgress)) (*domain.Connection, error) {
		return nil, boom
	}

	var out bytes.Buffer
	_, err := Run(context.Background(), &Ports{Connect: svc}, "salesforce",
		tea.WithInput(nil), tea.WithOutput(&out), tea.WithoutSignalHandler())

	assert.ErrorIs(t, err, boom)
}
