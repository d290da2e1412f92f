package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/gorilla/mux"
	"github.com/gorilla/securecookie"
	"github.com/oklog/run"
	"golang.org/x/oauth2"

	"taskmate/internal/config"
)

const (
	// DefaultCallbackTimeout bounds how long SignIn waits for the browser.
	DefaultCallbackTimeout = 5 * time.Minute

	// Token exchange timeout
	tokenExchangeTimeout = 30 * time.Second
)

// Scopes requested at sign-in.
var Scopes = []string{"openid", "phone", "email", "profile"}

// OIDC is a Provider backed by an OAuth2/OIDC identity provider using the
// authorization code flow with PKCE and a loopback redirect.
//
// The session (tokens and profile email) is persisted in the config
// directory, so it survives between invocations.
type OIDC struct {
	cfg    *config.Config
	logger log.Logger

	// CallbackTimeout overrides DefaultCallbackTimeout when non-zero.
	CallbackTimeout time.Duration

	mu      sync.Mutex
	pending bool
	lastErr error
}

// NewOIDC creates a provider. Identity provider settings are checked when
// they are first needed, so State works without them.
func NewOIDC(cfg *config.Config, logger log.Logger) *OIDC {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &OIDC{cfg: cfg, logger: logger}
}

// State implements Provider. A stored session counts as present while its
// access token is unexpired or it can be refreshed.
func (p *OIDC) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pending {
		return State{Status: Pending}
	}
	st, err := loadSession(p.cfg.SessionPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{Status: Absent, Err: p.lastErr}
		}
		return State{Status: Absent, Err: err}
	}
	if !st.usable() {
		return State{Status: Absent, Err: errors.New("session expired")}
	}
	return State{Status: Present, User: st.user()}
}

// Token implements Provider.
func (p *OIDC) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, err := loadSession(p.cfg.SessionPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", unauthorized("not logged in", ErrNotSignedIn)
		}
		return "", unauthorized("unreadable session", err)
	}
	if st.Token.Valid() {
		return st.Token.AccessToken, nil
	}
	if st.Token.RefreshToken == "" {
		return "", unauthorized("session expired", nil)
	}
	if err := p.cfg.Settings.RequireAuth(); err != nil {
		return "", unauthorized("cannot refresh session", err)
	}

	tok, err := p.oauthConfig().TokenSource(ctx, st.Token).Token()
	if err != nil {
		level.Warn(p.logger).Log("msg", "token refresh failed", "err", err)
		return "", unauthorized("session refresh failed", err)
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = st.Token.RefreshToken
	}
	st.Token = tok
	if idt, ok := tok.Extra("id_token").(string); ok && idt != "" {
		st.IDToken = idt
		st.Email = emailFromIDToken(idt, st.Email)
	}
	if err := saveSession(p.cfg.SessionPath(), st); err != nil {
		return "", fmt.Errorf("failed to save session: %w", err)
	}
	level.Debug(p.logger).Log("msg", "token refreshed", "expiry", tok.Expiry)
	return tok.AccessToken, nil
}

// SignIn implements Provider. It prints the authorization URL to prompt,
// waits for the redirect on the configured loopback redirect URI, and
// exchanges the code for tokens.
func (p *OIDC) SignIn(ctx context.Context, prompt io.Writer) (err error) {
	if err := p.cfg.Settings.RequireAuth(); err != nil {
		return err
	}
	redirect, err := url.Parse(p.cfg.Settings.Auth.RedirectURI)
	if err != nil || redirect.Scheme != "http" || !isLoopback(redirect.Hostname()) {
		return fmt.Errorf("redirect_uri must be an http loopback URL: %s", p.cfg.Settings.Auth.RedirectURI)
	}

	p.setPending(true, nil)
	defer func() { p.setPending(false, err) }()

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return fmt.Errorf("could not bind to %s for the sign-in callback: %w", redirect.Host, err)
	}
	defer listener.Close()

	oauthConfig := p.oauthConfig()
	verifier := oauth2.GenerateVerifier()
	state := base64.RawURLEncoding.EncodeToString(securecookie.GenerateRandomKey(32))
	authURL := oauthConfig.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	fmt.Fprintln(prompt, "Open this URL in your browser:")
	fmt.Fprintln(prompt, authURL)

	code, err := p.awaitCallback(ctx, listener, callbackPath(redirect), state)
	if err != nil {
		return err
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()

	tok, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	st := &storedSession{Token: tok}
	if idt, ok := tok.Extra("id_token").(string); ok {
		st.IDToken = idt
		st.Email = emailFromIDToken(idt, "")
	}

	if err := p.cfg.EnsureDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := saveSession(p.cfg.SessionPath(), st); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	level.Debug(p.logger).Log("msg", "signed in", "email", st.Email)
	return nil
}

// awaitCallback serves the redirect URI until the provider calls back, the
// timeout passes or ctx ends.
func (p *OIDC) awaitCallback(ctx context.Context, listener net.Listener, path, state string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	r := mux.NewRouter()
	r.Methods("GET").Path(path).HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		if e := q.Get("error"); e != "" {
			http.Error(w, "Sign-in failed", http.StatusBadRequest)
			trySend(errCh, fmt.Errorf("sign-in failed: %s %s", e, q.Get("error_description")))
			return
		}
		if q.Get("state") != state {
			http.Error(w, "Invalid state", http.StatusBadRequest)
			trySend(errCh, errors.New("sign-in callback state mismatch"))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			trySend(errCh, errors.New("no code in callback"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Signed in</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	timeout := p.CallbackTimeout
	if timeout == 0 {
		timeout = DefaultCallbackTimeout
	}

	var code string
	var g run.Group
	{
		server := &http.Server{Handler: r}
		g.Add(func() error {
			return server.Serve(listener)
		}, func(error) {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		})
	}
	{
		cancel := make(chan struct{})
		g.Add(func() error {
			select {
			case code = <-codeCh:
				return nil
			case err := <-errCh:
				return err
			case <-time.After(timeout):
				return errors.New("sign-in callback timed out")
			case <-ctx.Done():
				return fmt.Errorf("sign-in cancelled: %w", ctx.Err())
			case <-cancel:
				return nil
			}
		}, func(error) {
			close(cancel)
		})
	}
	if err := g.Run(); err != nil {
		return "", err
	}
	if code == "" {
		return "", errors.New("sign-in callback server stopped")
	}
	return code, nil
}

// SignOut implements Provider.
func (p *OIDC) SignOut(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.cfg.RemoveSession(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("failed to remove session: %w", err)
	}
	p.lastErr = nil
	return p.logoutURL(), nil
}

func (p *OIDC) setPending(pending bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = pending
	p.lastErr = err
}

func (p *OIDC) oauthConfig() *oauth2.Config {
	auth := p.cfg.Settings.Auth
	domain := authority(auth.Domain)
	return &oauth2.Config{
		ClientID: auth.ClientID,
		Endpoint: oauth2.Endpoint{
			AuthURL:   domain + "/oauth2/authorize",
			TokenURL:  domain + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		RedirectURL: auth.RedirectURI,
		Scopes:      Scopes,
	}
}

func (p *OIDC) logoutURL() string {
	auth := p.cfg.Settings.Auth
	if auth.Domain == "" || auth.ClientID == "" {
		return ""
	}
	q := url.Values{}
	q.Set("client_id", auth.ClientID)
	if auth.LogoutURI != "" {
		q.Set("logout_uri", auth.LogoutURI)
	}
	return authority(auth.Domain) + "/logout?" + q.Encode()
}

// authority normalizes the configured domain into a base URL.
func authority(domain string) string {
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if !strings.Contains(domain, "://") {
		domain = "https://" + domain
	}
	return domain
}

func callbackPath(u *url.URL) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func trySend(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// emailFromIDToken reads the email claim. The ID token comes straight from
// the token endpoint over TLS, so its signature is not checked here; it is
// only used for display.
func emailFromIDToken(raw, fallback string) string {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(raw, claims); err != nil {
		return fallback
	}
	if email, ok := claims["email"].(string); ok && email != "" {
		return email
	}
	return fallback
}

func subjectFromIDToken(raw string) string {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(raw, claims); err != nil {
		return ""
	}
	sub, _ := claims["sub"].(string)
	return sub
}

// storedSession is the on-disk session.
type storedSession struct {
	Token   *oauth2.Token `json:"token"`
	IDToken string        `json:"id_token,omitempty"`
	Email   string        `json:"email,omitempty"`
}

func (s *storedSession) usable() bool {
	return s.Token != nil && (s.Token.Valid() || s.Token.RefreshToken != "")
}

func (s *storedSession) user() *User {
	return &User{
		Email:       s.Email,
		Subject:     subjectFromIDToken(s.IDToken),
		AccessToken: s.Token.AccessToken,
		Expiry:      s.Token.Expiry,
	}
}

func loadSession(path string) (*storedSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var st storedSession
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", config.SessionFile, err)
	}
	if st.Token == nil {
		return nil, fmt.Errorf("invalid %s: no token", config.SessionFile)
	}
	return &st, nil
}

// saveSession writes the session with mode 0600.
func saveSession(path string, st *storedSession) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
