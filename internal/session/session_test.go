package session

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"

	"taskmate/internal/config"
	"taskmate/internal/service"
)

func TestStatic_Lifecycle(t *testing.T) {
	p := NewStatic("", "")
	if p.State().Authenticated() {
		t.Fatal("expected absent session")
	}
	if _, err := p.Token(context.Background()); !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}

	p.SignInToken = "tok"
	p.SignInEmail = "me@example.com"
	if err := p.SignIn(context.Background(), io.Discard); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	st := p.State()
	if !st.Authenticated() || st.User.Email != "me@example.com" {
		t.Errorf("expected present session for me@example.com, got %+v", st)
	}
	tok, err := p.Token(context.Background())
	if err != nil || tok != "tok" {
		t.Errorf("expected token tok, got %q, %v", tok, err)
	}

	p.LogoutURL = "https://auth.example.com/logout"
	u, err := p.SignOut(context.Background())
	if err != nil || u != "https://auth.example.com/logout" {
		t.Errorf("unexpected sign-out result %q, %v", u, err)
	}
	if p.State().Status != Absent {
		t.Error("expected absent after sign-out")
	}
}

// fakeIdP serves the token endpoint of an identity provider.
type fakeIdP struct {
	server   *httptest.Server
	lastForm url.Values
	fail     bool
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	idp := &fakeIdP{}
	r := mux.NewRouter()
	r.Methods("POST").Path("/oauth2/token").HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		req.ParseForm()
		idp.lastForm = req.PostForm
		if idp.fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "access-" + req.PostForm.Get("grant_type"),
			"refresh_token": "refresh-1",
			"id_token":      signedIDToken(t, "me@example.com"),
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	})
	idp.server = httptest.NewServer(r)
	t.Cleanup(idp.server.Close)
	return idp
}

func signedIDToken(t *testing.T, email string) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"email": email,
		"sub":   "user-1",
	})
	s, err := tok.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("failed to sign id token: %v", err)
	}
	return s
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find free port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func sessionExists(cfg *config.Config) bool {
	_, err := os.Stat(cfg.SessionPath())
	return err == nil
}

func testConfig(t *testing.T, domain, redirect string) *config.Config {
	t.Helper()
	return &config.Config{
		Dir: t.TempDir(),
		Settings: config.Settings{
			Auth: config.AuthSettings{
				Domain:      domain,
				ClientID:    "client-1",
				RedirectURI: redirect,
				LogoutURI:   "https://app.example.com/",
			},
		},
	}
}

func TestOIDC_SignInFlow(t *testing.T) {
	idp := newFakeIdP(t)
	addr := freeAddr(t)
	cfg := testConfig(t, idp.server.URL, "http://"+addr+"/callback")
	p := NewOIDC(cfg, nil)
	p.CallbackTimeout = 10 * time.Second

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- p.SignIn(context.Background(), pw)
		pw.Close()
	}()

	sc := bufio.NewScanner(pr)
	if !sc.Scan() || !strings.Contains(sc.Text(), "Open this URL") {
		t.Fatalf("expected prompt line, got %q", sc.Text())
	}
	if !sc.Scan() {
		t.Fatal("expected authorization URL")
	}
	authURL, err := url.Parse(sc.Text())
	if err != nil {
		t.Fatalf("invalid authorization URL: %v", err)
	}
	q := authURL.Query()
	if authURL.Path != "/oauth2/authorize" {
		t.Errorf("expected /oauth2/authorize, got %s", authURL.Path)
	}
	if q.Get("code_challenge") == "" || q.Get("code_challenge_method") != "S256" {
		t.Errorf("expected PKCE challenge, got %v", q)
	}
	if q.Get("scope") != "openid phone email profile" {
		t.Errorf("unexpected scope %q", q.Get("scope"))
	}
	state := q.Get("state")
	if state == "" {
		t.Fatal("expected state parameter")
	}

	resp, err := http.Get("http://" + addr + "/callback?code=the-code&state=" + url.QueryEscape(state))
	if err != nil {
		t.Fatalf("callback request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected callback 200, got %d", resp.StatusCode)
	}

	if err := <-done; err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if idp.lastForm.Get("code") != "the-code" || idp.lastForm.Get("code_verifier") == "" {
		t.Errorf("expected code exchange with verifier, got %v", idp.lastForm)
	}

	st := p.State()
	if !st.Authenticated() {
		t.Fatalf("expected present session, got %+v", st)
	}
	if st.User.Email != "me@example.com" || st.User.Subject != "user-1" {
		t.Errorf("unexpected user %+v", st.User)
	}
	tok, err := p.Token(context.Background())
	if err != nil || tok != "access-authorization_code" {
		t.Errorf("expected stored access token, got %q, %v", tok, err)
	}

	info, err := os.Stat(cfg.SessionPath())
	if err != nil {
		t.Fatalf("expected session file: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}
}

func TestOIDC_SignInStateMismatch(t *testing.T) {
	idp := newFakeIdP(t)
	addr := freeAddr(t)
	cfg := testConfig(t, idp.server.URL, "http://"+addr+"/callback")
	p := NewOIDC(cfg, nil)
	p.CallbackTimeout = 10 * time.Second

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		done <- p.SignIn(context.Background(), pw)
		pw.Close()
	}()
	sc := bufio.NewScanner(pr)
	sc.Scan()
	sc.Scan()
	go io.Copy(io.Discard, pr)

	resp, err := http.Get("http://" + addr + "/callback?code=x&state=forged")
	if err != nil {
		t.Fatalf("callback request failed: %v", err)
	}
	resp.Body.Close()

	if err := <-done; err == nil || !strings.Contains(err.Error(), "state mismatch") {
		t.Errorf("expected state mismatch error, got %v", err)
	}
	if p.State().Authenticated() {
		t.Error("expected no session after failed sign-in")
	}
	if sessionExists(cfg) {
		t.Error("expected no session file after failed sign-in")
	}
}

func TestOIDC_SignInCancelled(t *testing.T) {
	cfg := testConfig(t, "https://auth.example.com", "http://"+freeAddr(t)+"/callback")
	p := NewOIDC(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.SignIn(ctx, io.Discard)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	st := p.State()
	if st.Status != Absent || st.Err == nil {
		t.Errorf("expected absent state carrying the error, got %+v", st)
	}
}

func TestOIDC_SignInRequiresLoopbackRedirect(t *testing.T) {
	cfg := testConfig(t, "https://auth.example.com", "https://app.example.com/callback")
	p := NewOIDC(cfg, nil)
	if err := p.SignIn(context.Background(), io.Discard); err == nil {
		t.Error("expected error for non-loopback redirect uri")
	}
}

func TestOIDC_TokenWithoutSession(t *testing.T) {
	p := NewOIDC(testConfig(t, "https://auth.example.com", "http://127.0.0.1:8085/callback"), nil)
	_, err := p.Token(context.Background())
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
	if !errors.Is(err, ErrNotSignedIn) {
		t.Errorf("expected not-signed-in cause, got %v", err)
	}
}

func TestOIDC_TokenRefresh(t *testing.T) {
	idp := newFakeIdP(t)
	cfg := testConfig(t, idp.server.URL, "http://127.0.0.1:8085/callback")
	expired := &storedSession{
		Token: &oauth2.Token{
			AccessToken:  "old",
			RefreshToken: "refresh-0",
			TokenType:    "Bearer",
			Expiry:       time.Now().Add(-time.Hour),
		},
		Email: "old@example.com",
	}
	if err := saveSession(cfg.SessionPath(), expired); err != nil {
		t.Fatalf("saveSession: %v", err)
	}

	p := NewOIDC(cfg, nil)
	if !p.State().Authenticated() {
		t.Fatal("expected refreshable session to count as present")
	}

	tok, err := p.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "access-refresh_token" {
		t.Errorf("expected refreshed token, got %q", tok)
	}
	if idp.lastForm.Get("refresh_token") != "refresh-0" {
		t.Errorf("expected refresh grant with refresh-0, got %v", idp.lastForm)
	}

	st, err := loadSession(cfg.SessionPath())
	if err != nil {
		t.Fatalf("loadSession: %v", err)
	}
	if st.Token.AccessToken != "access-refresh_token" || st.Email != "me@example.com" {
		t.Errorf("expected persisted refreshed session, got %+v", st)
	}
}

func TestOIDC_TokenRefreshFailure(t *testing.T) {
	idp := newFakeIdP(t)
	idp.fail = true
	cfg := testConfig(t, idp.server.URL, "http://127.0.0.1:8085/callback")
	saveSession(cfg.SessionPath(), &storedSession{Token: &oauth2.Token{
		AccessToken:  "old",
		RefreshToken: "revoked",
		Expiry:       time.Now().Add(-time.Hour),
	}})

	_, err := NewOIDC(cfg, nil).Token(context.Background())
	if !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected unauthorized after failed refresh, got %v", err)
	}
}

func TestOIDC_ExpiredWithoutRefresh(t *testing.T) {
	cfg := testConfig(t, "https://auth.example.com", "http://127.0.0.1:8085/callback")
	saveSession(cfg.SessionPath(), &storedSession{Token: &oauth2.Token{
		AccessToken: "old",
		Expiry:      time.Now().Add(-time.Minute),
	}})

	p := NewOIDC(cfg, nil)
	if p.State().Authenticated() {
		t.Error("expected expired session without refresh token to be absent")
	}
	if _, err := p.Token(context.Background()); !errors.Is(err, service.ErrUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestOIDC_SignOut(t *testing.T) {
	cfg := testConfig(t, "auth.example.com", "http://127.0.0.1:8085/callback")
	saveSession(cfg.SessionPath(), &storedSession{Token: &oauth2.Token{AccessToken: "a"}})

	p := NewOIDC(cfg, nil)
	logout, err := p.SignOut(context.Background())
	if err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if sessionExists(cfg) {
		t.Error("expected session file removed")
	}
	u, err := url.Parse(logout)
	if err != nil {
		t.Fatalf("invalid logout url %q: %v", logout, err)
	}
	if u.Scheme != "https" || u.Host != "auth.example.com" || u.Path != "/logout" {
		t.Errorf("unexpected logout url %s", logout)
	}
	if u.Query().Get("client_id") != "client-1" || u.Query().Get("logout_uri") != "https://app.example.com/" {
		t.Errorf("unexpected logout query %v", u.Query())
	}

	if _, err := p.SignOut(context.Background()); err != nil {
		t.Errorf("expected second sign-out to succeed, got %v", err)
	}
}
