// Package session provides the signed-in user's identity and bearer token.
//
// A Provider is the only component that acquires, refreshes or discards
// tokens. Everything else receives a Provider explicitly and reads the
// current token from it right before each backend call.
package session

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"taskmate/internal/service"
)

// Status is the lifecycle stage of a session.
type Status int

const (
	// Absent means nobody is signed in.
	Absent Status = iota
	// Pending means a sign-in redirect is in progress.
	Pending
	// Present means a usable session exists.
	Present
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Present:
		return "present"
	}
	return "absent"
}

// User is the signed-in user.
type User struct {
	Email       string
	Subject     string
	AccessToken string
	Expiry      time.Time
}

// State is a snapshot of the session.
type State struct {
	Status Status
	User   *User

	// Err is the last sign-in or refresh failure, if any.
	Err error
}

// Authenticated reports whether a session is present.
func (s State) Authenticated() bool { return s.Status == Present }

// Loading reports whether sign-in is in progress.
func (s State) Loading() bool { return s.Status == Pending }

// Provider supplies the session to the rest of the client.
type Provider interface {
	// State returns the current session snapshot without network calls.
	State() State

	// Token returns a bearer token that is valid now, refreshing it if
	// needed. Without a usable session it fails with service.ErrUnauthorized.
	Token(ctx context.Context) (string, error)

	// SignIn runs the interactive sign-in. Instructions for the user are
	// written to prompt.
	SignIn(ctx context.Context, prompt io.Writer) error

	// SignOut discards the session and returns the identity provider's
	// logout URL (empty when none is configured).
	SignOut(ctx context.Context) (string, error)
}

// ErrNotSignedIn is the cause of Unauthorized failures from Token when no
// session exists.
var ErrNotSignedIn = errors.New("not logged in")

func unauthorized(msg string, err error) error {
	return &service.Error{Kind: service.ErrUnauthorized, Op: "Token", Message: msg, Err: err}
}

// Static is a Provider with a fixed token, for tests and for callers that
// obtained a token elsewhere.
type Static struct {
	mu   sync.Mutex
	user *User

	// SignInToken and SignInEmail become the session when SignIn is called.
	SignInToken string
	SignInEmail string

	// SignInErr is returned by SignIn when set.
	SignInErr error

	// LogoutURL is returned by SignOut.
	LogoutURL string
}

// NewStatic returns a Static provider. An empty token means signed out.
func NewStatic(token, email string) *Static {
	s := &Static{}
	if token != "" {
		s.user = &User{Email: email, AccessToken: token}
	}
	return s
}

// State implements Provider.
func (s *Static) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return State{Status: Absent}
	}
	u := *s.user
	return State{Status: Present, User: &u}
}

// Token implements Provider.
func (s *Static) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return "", unauthorized("not logged in", ErrNotSignedIn)
	}
	return s.user.AccessToken, nil
}

// SignIn implements Provider.
func (s *Static) SignIn(ctx context.Context, prompt io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SignInErr != nil {
		return s.SignInErr
	}
	if s.SignInToken == "" {
		return errors.New("interactive sign-in not available")
	}
	s.user = &User{Email: s.SignInEmail, AccessToken: s.SignInToken}
	return nil
}

// SignOut implements Provider.
func (s *Static) SignOut(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
	return s.LogoutURL, nil
}
