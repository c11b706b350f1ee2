package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/xkit-cli/internal/core/domain"
	"github.com/custodia-labs/xkit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/xkit-cli/internal/logger"
)

// Authorizer runs authorization attempts. Each attempt is a small state
// machine: Idle, LoggingIn, Subscribing, AwaitingCallback, Finalizing and
// then Done or Failed. Transitions are published as EventAuthorizationState.
type Authorizer struct {
	api     driven.PlatformAPI
	sockets *SocketManager
	emitter *Emitter
}

// NewAuthorizer creates an authorizer.
func NewAuthorizer(api driven.PlatformAPI, sockets *SocketManager, emitter *Emitter) *Authorizer {
	return &Authorizer{api: api, sockets: sockets, emitter: emitter}
}

// attempt tracks the state of one authorization.
type attempt struct {
	id      domain.AuthorizationID
	state   domain.AuthorizeState
	emitter *Emitter
}

func (a *attempt) enter(to domain.AuthorizeState, err error) {
	from := a.state
	a.state = to
	if err != nil {
		logger.Debug("authorization %s: %s -> %s: %v", a.id, from, to, err)
	} else {
		logger.Debug("authorization %s: %s -> %s", a.id, from, to)
	}
	if a.emitter != nil {
		a.emitter.Emit(domain.EventAuthorizationState, domain.AuthorizeProgress{
			AuthorizationID: a.id,
			From:            from,
			To:              to,
			Err:             err,
		})
	}
}

func (a *attempt) fail(err error) (*domain.Authorization, error) {
	a.enter(domain.AuthorizeFailed, err)
	return nil, err
}

// windowOutcome is the result of sending the user to the authorize URL.
type windowOutcome struct {
	err error
}

// Authorize drives auth to a terminal status using the window w.
//
// The window is logged in through a one-time token before the status topic
// is joined. An already terminal status is finalized right away; otherwise
// the window is sent to the authorize URL and the first of a terminal
// status update, a channel error, a channel close or the user closing the
// window decides the outcome.
func (z *Authorizer) Authorize(
	ctx context.Context,
	cfg domain.Config,
	w *AuthWindow,
	auth *domain.Authorization,
) (*domain.Authorization, error) {
	if auth == nil {
		return nil, fmt.Errorf("authorize: %w", domain.ErrInvalidInput)
	}
	run := &attempt{id: auth.ID, state: domain.AuthorizeIdle, emitter: z.emitter}

	run.enter(domain.AuthorizeLoggingIn, nil)
	if err := z.logIn(ctx, cfg, w, auth); err != nil {
		return run.fail(err)
	}

	run.enter(domain.AuthorizeSubscribing, nil)
	sub, status, err := z.sockets.SubscribeToStatus(ctx, cfg, auth.ID)
	if err != nil {
		return run.fail(err)
	}
	if status.IsComplete() {
		return z.finalize(ctx, cfg, run, auth)
	}
	defer sub.Close()

	// The live status wins over whatever the created record carried.
	live := *auth
	live.Status = status
	auth = &live

	run.enter(domain.AuthorizeAwaitingCallback, nil)

	windowCtx, cancelWindow := context.WithCancel(ctx)
	var windowWG sync.WaitGroup
	defer func() {
		cancelWindow()
		windowWG.Wait()
	}()

	var windowDone chan windowOutcome
	if status == domain.StatusAwaitingCallback {
		if !auth.ReadyForSetup() {
			return run.fail(domain.ErrAuthorizationNotReady)
		}
		windowDone = make(chan windowOutcome, 1)
		windowWG.Add(1)
		go func() {
			defer windowWG.Done()
			windowDone <- windowOutcome{err: z.loadAuthWindow(windowCtx, cfg, w, auth)}
		}()
	}

	events := sub.Events()
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return run.fail(domain.ErrSubscriberClosed)
			}
			switch ev.Kind {
			case domain.StatusEventUpdate:
				logger.Debug("received status update %s", ev.Status)
				if ev.Status.IsComplete() {
					return z.finalize(ctx, cfg, run, auth)
				}
			case domain.StatusEventError:
				return run.fail(ev.Err)
			case domain.StatusEventClose:
				return run.fail(domain.ErrSubscriberClosed)
			}

		case out := <-windowDone:
			if out.err != nil {
				return run.fail(out.err)
			}
			// The window closed after the callback; the status topic decides.
			windowDone = nil

		case <-ctx.Done():
			return run.fail(ctx.Err())
		}
	}
}

// logIn sends the window through the login bridge so that it holds its own
// session, ending on the prototype's loading page.
func (z *Authorizer) logIn(ctx context.Context, cfg domain.Config, w *AuthWindow, auth *domain.Authorization) error {
	ott, err := z.api.GetOneTimeToken(ctx, cfg)
	if err != nil {
		return fmt.Errorf("one-time token: %w", err)
	}
	bridge := cfg.Origin() + domain.LoginBridgePath(ott, domain.LoadingPath(auth.PrototypeSlug()))
	return w.ReplaceURL(ctx, bridge)
}

// loadAuthWindow sends the window to the authorize URL and waits for the
// user to close it. An authorization still awaiting its callback after the
// window closed was abandoned.
func (z *Authorizer) loadAuthWindow(ctx context.Context, cfg domain.Config, w *AuthWindow, auth *domain.Authorization) error {
	if err := w.ReplaceURL(ctx, auth.AuthorizeURL); err != nil {
		return err
	}
	if err := w.WaitClose(ctx); err != nil {
		return err
	}

	current, err := z.refetch(ctx, cfg, auth)
	if err != nil {
		return err
	}
	if current.Status == domain.StatusAwaitingCallback {
		return domain.ErrCancelled
	}
	return nil
}

func (z *Authorizer) finalize(
	ctx context.Context,
	cfg domain.Config,
	run *attempt,
	auth *domain.Authorization,
) (*domain.Authorization, error) {
	run.enter(domain.AuthorizeFinalizing, nil)
	current, err := z.refetch(ctx, cfg, auth)
	if err != nil {
		return run.fail(err)
	}
	run.enter(domain.AuthorizeDone, nil)
	return current, nil
}

// refetch reads the authorization again, failing if it settled in error.
func (z *Authorizer) refetch(ctx context.Context, cfg domain.Config, auth *domain.Authorization) (*domain.Authorization, error) {
	current, err := z.api.GetAuthorization(ctx, cfg, auth.PrototypeSlug(), auth.ID)
	if err != nil {
		return nil, fmt.Errorf("get authorization: %w", err)
	}
	if err := current.Failure(); err != nil {
		return nil, err
	}
	return current, nil
}
