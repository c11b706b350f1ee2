package services

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driving"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

// Config keys for session persistence.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyDomain        = "domain"
	keySessionToken  = "session.token"
	keyLoginRedirect = "session.login_redirect"
)

// socketResetter drops the realtime socket when the session identity changes.
type socketResetter interface {
	Reset()
}

// SessionManager owns the client's session state. Every platform call goes
// through CallWithConfig so that expired sessions are healed in one place.
type SessionManager struct {
	api       driven.PlatformAPI
	emitter   *Emitter
	sockets   socketResetter
	store     driven.ConfigStore
	navigator driven.Navigator

	mu            sync.RWMutex
	state         domain.SessionState
	tokenCallback driving.TokenCallback
	loaded        chan struct{}

	tokens singleflight.Group

	bg       sync.WaitGroup
	bgCtx    context.Context
	bgCancel context.CancelFunc
}

// NewSessionManager creates a session manager with an empty state.
// The store, navigator and sockets may be nil.
func NewSessionManager(
	api driven.PlatformAPI,
	emitter *Emitter,
	sockets *SocketManager,
	store driven.ConfigStore,
	navigator driven.Navigator,
) *SessionManager {
	loaded := make(chan struct{})
	close(loaded)

	ctx, cancel := context.WithCancel(context.Background())
	m := &SessionManager{
		api:       api,
		emitter:   emitter,
		store:     store,
		navigator: navigator,
		loaded:    loaded,
		bgCtx:     ctx,
		bgCancel:  cancel,
	}
	if sockets != nil {
		m.sockets = sockets
	}
	return m
}

// GetState returns a snapshot of the session.
func (m *SessionManager) GetState() domain.SessionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// State implements driving.SessionService.
func (m *SessionManager) State() domain.SessionState {
	return m.GetState()
}

// SetState merges patch into the state and emits config:update with it.
// A domain change re-initialises the session in the background.
func (m *SessionManager) SetState(patch domain.StatePatch) {
	m.mu.Lock()
	prev := m.state
	m.state = patch.Apply(m.state)
	domainChanged := patch.Domain != nil && *patch.Domain != prev.Domain
	var loaded chan struct{}
	if domainChanged {
		loaded = make(chan struct{})
		m.loaded = loaded
	}
	m.mu.Unlock()

	m.emitter.Emit(domain.EventConfigUpdate, patch)

	if domainChanged && *patch.Domain != "" {
		m.bg.Add(1)
		go func() {
			defer m.bg.Done()
			m.initialize(m.bgCtx, loaded)
		}()
	} else if domainChanged {
		close(loaded)
	}
}

// Ready blocks until the latest session initialisation has finished.
func (m *SessionManager) Ready(ctx context.Context) error {
	m.mu.RLock()
	loaded := m.loaded
	m.mu.RUnlock()

	select {
	case <-loaded:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops background initialisation and waits for it to return.
func (m *SessionManager) Close() {
	m.bgCancel()
	m.bg.Wait()
}

// OnUpdate calls fn after every state change and returns a function that
// removes it.
//
// Deprecated: Use On(EventConfigUpdate, ...) instead.
func (m *SessionManager) OnUpdate(id string, fn func()) (func(), error) {
	logger.Deprecated("OnUpdate", `On("config:update", ...)`)
	if err := m.emitter.On(domain.EventConfigUpdate, id, func(any) { fn() }); err != nil {
		return nil, err
	}
	return func() {
		if err := m.emitter.Off(domain.EventConfigUpdate, id); err != nil {
			logger.Debug("removing update listener %s: %v", id, err)
		}
	}, nil
}

// Login establishes a server-side session from token. cb, when set, is kept
// for healing the session later. An expired token is thrown away and a fresh
// one is retrieved from the session cookie instead.
func (m *SessionManager) Login(ctx context.Context, token string, cb driving.TokenCallback) error {
	if cb != nil {
		m.mu.Lock()
		m.tokenCallback = cb
		m.mu.Unlock()
	}

	m.SetState(domain.StatePatch{Loading: domain.Ptr(true)})
	defer m.SetState(domain.StatePatch{Loading: domain.Ptr(false)})

	// The socket was authenticated under the previous identity.
	m.resetSockets()

	cfg := m.GetState().Config().Public()
	if err := m.api.CreateSession(ctx, cfg, token); err != nil {
		if !domain.IsUnauthorized(err) {
			return fmt.Errorf("create session: %w", err)
		}
		logger.Debug("session token rejected, retrieving a fresh one")
		if _, err := m.RetrieveToken(ctx); err != nil {
			return fmt.Errorf("login: %w", err)
		}
		return nil
	}

	m.storeToken(token)
	return nil
}

// LoginWith obtains a token from cb and logs in with it. cb is kept for
// healing the session later.
func (m *SessionManager) LoginWith(ctx context.Context, cb driving.TokenCallback) error {
	if cb == nil {
		return fmt.Errorf("login: %w", domain.ErrInvalidInput)
	}
	token, err := cb(ctx)
	if err != nil {
		return fmt.Errorf("token callback: %w", err)
	}
	return m.Login(ctx, token, cb)
}

// Logout destroys the remote session, drops the realtime socket and
// clears the local token along with the token callback given at login.
func (m *SessionManager) Logout(ctx context.Context) error {
	cfg := m.GetState().Config()
	err := m.api.DeleteSession(ctx, cfg)

	m.mu.Lock()
	m.tokenCallback = nil
	m.mu.Unlock()

	m.resetSockets()
	m.storeToken("")

	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// GetAccessToken implements driving.SessionService.
func (m *SessionManager) GetAccessToken(ctx context.Context) (string, error) {
	return m.RetrieveToken(ctx)
}

// RetrieveToken exchanges the session cookie for an access token. Concurrent
// callers share one request and receive the same token.
func (m *SessionManager) RetrieveToken(ctx context.Context) (string, error) {
	ch := m.tokens.DoChan("token", func() (any, error) {
		m.SetState(domain.StatePatch{RetrievingToken: domain.Ptr(true)})

		cfg := m.GetState().Config().Public()
		// Detached so one caller giving up does not fail the others.
		token, err := m.api.GetAccessToken(context.WithoutCancel(ctx), cfg)

		patch := domain.StatePatch{RetrievingToken: domain.Ptr(false)}
		if err == nil {
			patch.Token = domain.Ptr(token)
		}
		m.SetState(patch)
		if err == nil {
			m.persistToken(token)
		}
		return token, err
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// requestToken obtains a token out-of-band through the token callback and
// stores it. cause is the authorization error that led here.
func (m *SessionManager) requestToken(ctx context.Context, cause error) (string, error) {
	logger.Error("encountered error while refreshing access: %v", cause)

	m.mu.RLock()
	cb := m.tokenCallback
	m.mu.RUnlock()
	if cb == nil {
		cb = m.redirectToLogin
	}

	token, err := cb(ctx)
	if err != nil {
		return "", err
	}
	m.storeToken(token)
	return token, nil
}

// redirectToLogin is the default token callback. It sends the user to the
// login redirect and waits for ctx to end, since a token can only come back
// through a fresh login.
func (m *SessionManager) redirectToLogin(ctx context.Context) (string, error) {
	target := m.GetState().LoginRedirect
	if target == "" || m.navigator == nil {
		logger.Error("misconfigured platform: unable to retrieve login redirect location")
		return "", fmt.Errorf("%w: %w", domain.ErrLoginRedirectMissing, domain.ErrUnauthorized)
	}
	if err := m.navigator.Navigate(ctx, target); err != nil {
		return "", fmt.Errorf("redirect to login: %w", err)
	}
	<-ctx.Done()
	return "", fmt.Errorf("waiting for login: %w", ctx.Err())
}

func (m *SessionManager) initialize(ctx context.Context, loaded chan struct{}) {
	defer close(loaded)

	m.setLoginRedirect(ctx)

	if token := m.GetState().Token; token != "" {
		if err := m.Login(ctx, token, nil); err != nil {
			logger.Warn("restoring session: %v", err)
		}
		return
	}

	m.SetState(domain.StatePatch{Loading: domain.Ptr(true)})
	defer m.SetState(domain.StatePatch{Loading: domain.Ptr(false)})
	if _, err := m.RetrieveToken(ctx); err != nil {
		logger.Debug("user is not yet logged in: %v", err)
	}
}

func (m *SessionManager) setLoginRedirect(ctx context.Context) {
	if m.store != nil {
		if override := m.store.GetString(keyLoginRedirect); override != "" {
			m.SetState(domain.StatePatch{LoginRedirect: domain.Ptr(override)})
			return
		}
	}

	platform, err := m.api.GetPlatform(ctx, m.GetState().Config().Public())
	if err != nil {
		logger.Warn("unable to retrieve login redirect URL: %v", err)
		return
	}
	if platform.LoginRedirectURL == "" {
		logger.Warn("unable to retrieve login redirect URL")
		return
	}
	m.SetState(domain.StatePatch{LoginRedirect: domain.Ptr(platform.LoginRedirectURL)})
}

func (m *SessionManager) storeToken(token string) {
	m.SetState(domain.StatePatch{Token: domain.Ptr(token)})
	m.persistToken(token)
}

func (m *SessionManager) persistToken(token string) {
	if m.store == nil {
		return
	}
	var err error
	if token == "" {
		err = m.store.Delete(keySessionToken)
	} else {
		err = m.store.Set(keySessionToken, token)
	}
	if err != nil {
		logger.Warn("persisting session token: %v", err)
	}
}

func (m *SessionManager) resetSockets() {
	if m.sockets != nil {
		m.sockets.Reset()
	}
}

// CallWithConfig runs fn with the session config and heals an expired
// session at most twice before giving up:
//
//  1. With a token present, fn runs as is.
//  2. On an authorization failure, or without a token, a token is
//     retrieved from the session cookie and fn runs once more.
//  3. If that fails on authorization too, fallback runs without a token.
//  4. Without a fallback the token callback supplies a token and fn runs
//     a final time.
//
// Any other error is returned immediately.
func CallWithConfig[T any](
	ctx context.Context,
	m *SessionManager,
	fn func(context.Context, domain.Config) (T, error),
	fallback func(context.Context, domain.Config) (T, error),
) (T, error) {
	var zero T

	if cfg := m.GetState().Config(); cfg.Authorized() {
		res, err := fn(ctx, cfg)
		if err == nil || !domain.IsUnauthorized(err) {
			return res, err
		}
		logger.Debug("session expired: %v", err)
	}

	authErr := retryWithFreshToken(ctx, m, fn)
	if authErr.done {
		return authErr.res, authErr.err
	}

	if fallback != nil {
		logger.Debug("falling back to public access")
		return fallback(ctx, m.GetState().Config().Public())
	}

	if _, err := m.requestToken(ctx, authErr.err); err != nil {
		return zero, err
	}
	return fn(ctx, m.GetState().Config())
}

type retryResult[T any] struct {
	res  T
	err  error
	done bool
}

// retryWithFreshToken retrieves a token and calls fn again. done is false
// only when the attempt failed on authorization and healing should go on.
func retryWithFreshToken[T any](
	ctx context.Context,
	m *SessionManager,
	fn func(context.Context, domain.Config) (T, error),
) retryResult[T] {
	if _, err := m.RetrieveToken(ctx); err != nil {
		if domain.IsUnauthorized(err) {
			return retryResult[T]{err: err}
		}
		return retryResult[T]{err: err, done: true}
	}

	res, err := fn(ctx, m.GetState().Config())
	if err != nil && domain.IsUnauthorized(err) {
		return retryResult[T]{err: err}
	}
	return retryResult[T]{res: res, err: err, done: true}
}

// CurryWithConfig binds fn to the session so callers only pass the argument.
func CurryWithConfig[A, T any](
	m *SessionManager,
	fn func(context.Context, domain.Config, A) (T, error),
	fallback func(context.Context, domain.Config, A) (T, error),
) func(context.Context, A) (T, error) {
	return func(ctx context.Context, arg A) (T, error) {
		call := func(ctx context.Context, cfg domain.Config) (T, error) {
			return fn(ctx, cfg, arg)
		}
		if fallback == nil {
			return CallWithConfig(ctx, m, call, nil)
		}
		return CallWithConfig(ctx, m, call, func(ctx context.Context, cfg domain.Config) (T, error) {
			return fallback(ctx, cfg, arg)
		})
	}
}
