package commands

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-kit/kit/log"

	"taskmate/internal/config"
	"taskmate/internal/service"
	"taskmate/internal/session"
	"taskmate/internal/store"
)

// ServiceFactory creates a Service from config. The backend logs through
// logger.
type ServiceFactory func(ctx context.Context, cfg *config.Config, logger log.Logger) (service.Service, error)

// Env is what a command runs against.
type Env struct {
	Cfg     *config.Config
	Session session.Provider
	Logger  log.Logger

	// Svc is the backend. When nil it is created on first use with
	// NewService.
	Svc        service.Service
	NewService ServiceFactory

	// Now returns the current time; time.Now when nil.
	Now func() time.Time

	once   sync.Once
	svcErr error
}

// errNoBackend is returned when neither Svc nor NewService is set.
var errNoBackend = errors.New("no backend configured")

// Service returns the backend, creating it if needed.
func (e *Env) Service(ctx context.Context) (service.Service, error) {
	e.once.Do(func() {
		if e.Svc != nil {
			return
		}
		if e.NewService == nil {
			e.svcErr = errNoBackend
			return
		}
		e.Svc, e.svcErr = e.NewService(ctx, e.Cfg, e.logger())
	})
	return e.Svc, e.svcErr
}

func (e *Env) remote(ctx context.Context) (store.Remote, error) {
	svc, err := e.Service(ctx)
	if err != nil {
		return store.Remote{}, err
	}
	return store.Remote{Service: svc, Session: e.Session}, nil
}

func (e *Env) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Env) quiet() bool {
	return e.Cfg != nil && e.Cfg.Quiet
}

func (e *Env) logger() log.Logger {
	if e.Logger == nil {
		return log.NewNopLogger()
	}
	return e.Logger
}

// view is a store-backed view.
type view interface {
	ViewState(authenticated bool) store.ViewState
}

// stateAfter returns the state of v after a refresh that returned err. The
// guard already required a session, so only a rejected or missing token
// makes the view unauthenticated.
func stateAfter(v view, err error) store.ViewState {
	authenticated := !errors.Is(err, service.ErrUnauthorized) && !errors.Is(err, service.ErrMissingToken)
	return v.ViewState(authenticated)
}
