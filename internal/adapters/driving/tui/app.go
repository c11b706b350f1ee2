package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/xkit-cli/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/xkit-cli/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/xkit-cli/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/xkit-cli/internal/core/domain"
)

// progressBuffer bounds the transitions waiting to be rendered.
const progressBuffer = 16

// step is one line of the progress list.
type step struct {
	state domain.AuthorizeState
	label string
}

var steps = []step{
	{domain.AuthorizeIdle, "Preparing the connection"},
	{domain.AuthorizeLoggingIn, "Signing in to the authorization window"},
	{domain.AuthorizeSubscribing, "Listening for the authorization status"},
	{domain.AuthorizeAwaitingCallback, "Waiting for you to approve access in the browser"},
	{domain.AuthorizeFinalizing, "Finishing up"},
}

// App shows the progress of one Connect call.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports  *Ports
	slug   string
	ctx    context.Context
	cancel context.CancelFunc

	styles  *styles.Styles
	keys    *keymap.KeyMap
	spinner spinner.Model

	listenerID string
	progress   chan domain.AuthorizeProgress
	finished   chan struct{}
	started    bool

	// state is the latest transition target; failedAt is where a failure
	// happened.
	state    domain.AuthorizeState
	failedAt domain.AuthorizeState

	conn     *domain.Connection
	err      error
	done     bool
	quitting bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates the connect view for the connector slug.
func NewApp(ports *Ports, slug string) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}
	if slug == "" {
		return nil, ErrMissingSlug
	}

	s := spinner.New()
	s.Spinner = spinner.Dot

	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		ports:      ports,
		slug:       slug,
		ctx:        ctx,
		cancel:     cancel,
		styles:     styles.DefaultStyles(),
		keys:       keymap.DefaultKeyMap(),
		spinner:    s,
		listenerID: "tui:connect:" + slug,
		progress:   make(chan domain.AuthorizeProgress, progressBuffer),
		finished:   make(chan struct{}),
	}, nil
}

// WithContext bases the Connect call on ctx.
func (a *App) WithContext(ctx context.Context) {
	a.cancel()
	a.ctx, a.cancel = context.WithCancel(ctx)
}

// Result returns what Connect returned. It is only meaningful once the
// program has exited.
func (a *App) Result() (*domain.Connection, error) {
	return a.conn, a.err
}

// Init registers for progress and starts Connect.
func (a *App) Init() tea.Cmd {
	if err := a.ports.Connect.On(domain.EventAuthorizationState, a.listenerID, a.onProgress); err != nil {
		a.err = err
		a.done = true
		return tea.Quit
	}
	a.started = true
	return tea.Batch(a.spinner.Tick, a.connect(), a.waitForProgress())
}

// Update handles messages.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !key.Matches(msg, a.keys.Quit) {
			return a, nil
		}
		if a.done {
			return a, tea.Quit
		}
		// Connect returns promptly once cancelled; quit on its result.
		a.quitting = true
		a.cancel()
		return a, nil

	case spinner.TickMsg:
		if a.done {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case messages.AuthorizeProgressed:
		a.apply(msg.Progress)
		return a, a.waitForProgress()

	case messages.ConnectFinished:
		a.drain()
		a.conn = msg.Connection
		a.err = msg.Err
		a.done = true
		_ = a.ports.Connect.Off(domain.EventAuthorizationState, a.listenerID)
		return a, tea.Quit
	}
	return a, nil
}

// View renders the progress list.
func (a *App) View() string {
	var b strings.Builder
	b.WriteString(a.styles.Title.Render("Connecting " + a.slug))
	b.WriteString("\n")

	for _, s := range steps {
		b.WriteString(a.renderStep(s))
		b.WriteString("\n")
	}

	switch {
	case a.done && a.err == nil:
		b.WriteString("\n" + a.styles.Done.Render("Connected "+a.slug+"."))
	case a.done:
		b.WriteString("\n" + a.styles.Error.Render(Describe(a.err)))
	case a.quitting:
		b.WriteString(a.styles.Help.Render("Cancelling..."))
	default:
		b.WriteString(a.styles.Help.Render(a.keys.Quit.Help().Key + " " + a.keys.Quit.Help().Desc))
	}
	b.WriteString("\n")
	return b.String()
}

func (a *App) renderStep(s step) string {
	switch {
	case a.state == domain.AuthorizeDone || (a.done && a.err == nil) || s.state < a.current():
		return a.styles.Done.Render("✓ " + s.label)
	case s.state > a.current():
		return a.styles.Pending.Render("· " + s.label)
	case a.state == domain.AuthorizeFailed || a.done:
		return a.styles.Error.Render("✗ " + s.label)
	default:
		return a.spinner.View() + a.styles.Active.Render(s.label)
	}
}

// current is the step being worked on.
func (a *App) current() domain.AuthorizeState {
	if a.state == domain.AuthorizeFailed {
		return a.failedAt
	}
	return a.state
}

func (a *App) apply(p domain.AuthorizeProgress) {
	if p.To == domain.AuthorizeFailed {
		a.failedAt = p.From
	}
	a.state = p.To
}

func (a *App) drain() {
	for {
		select {
		case p := <-a.progress:
			a.apply(p)
		default:
			return
		}
	}
}

func (a *App) onProgress(payload any) {
	p, ok := payload.(domain.AuthorizeProgress)
	if !ok {
		return
	}
	select {
	case a.progress <- p:
	default:
	}
}

func (a *App) connect() tea.Cmd {
	return func() tea.Msg {
		defer close(a.finished)
		conn, err := a.ports.Connect.Connect(a.ctx, a.slug)
		return messages.ConnectFinished{Connection: conn, Err: err}
	}
}

func (a *App) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		select {
		case p := <-a.progress:
			return messages.AuthorizeProgressed{Progress: p}
		case <-a.finished:
			return nil
		}
	}
}

// Run shows the connect view until Connect returns, then reports its result.
func Run(ctx context.Context, ports *Ports, slug string, opts ...tea.ProgramOption) (*domain.Connection, error) {
	app, err := NewApp(ports, slug)
	if err != nil {
		return nil, err
	}
	app.WithContext(ctx)
	defer app.cancel()

	if _, err := tea.NewProgram(app, opts...).Run(); err != nil {
		app.cancel()
		if app.started {
			<-app.finished
		}
		return nil, fmt.Errorf("TUI error: %w", err)
	}
	return app.Result()
}
