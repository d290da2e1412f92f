// Package guard decides whether a route may be entered given the session
// state.
//
//	hasSession  public path      decision
//	false       yes              allow
//	false       no               redirect to Entry
//	true        yes (not Root)   redirect to Home
//	true        no               allow
//
// Root is always allowed; it redirects on its own once a session is known.
// A path with dot segments is never public, whatever it cleans to.
package guard

import (
	"path"
	"strings"
)

// Routes names the paths the guard redirects between.
type Routes struct {
	// Root is the landing path.
	Root string

	// Entry is where unauthenticated users are sent.
	Entry string

	// Home is where authenticated users are sent away from public paths.
	Home string

	// Public paths are reachable without a session. Matching is exact.
	Public []string
}

// DefaultRoutes are the client's routes.
var DefaultRoutes = Routes{
	Root:   "/",
	Entry:  "/login",
	Home:   "/dashboard",
	Public: []string{"/", "/login", "/callback"},
}

// Decision is the guard's verdict for one navigation.
type Decision struct {
	// Allow is true when the route may be entered as requested.
	Allow bool

	// Target is the redirect destination when Allow is false.
	Target string
}

// Allowed is the decision to proceed.
var Allowed = Decision{Allow: true}

// RedirectTo is the decision to go to target instead.
func RedirectTo(target string) Decision {
	return Decision{Target: target}
}

// IsPublic reports whether p is one of the public paths.
func (r Routes) IsPublic(p string) bool {
	if hasDotSegment(p) {
		return false
	}
	p = Clean(p)
	for _, pub := range r.Public {
		if p == pub {
			return true
		}
	}
	return false
}

// Decide returns the decision for navigating to p.
func (r Routes) Decide(hasSession bool, p string) Decision {
	if hasDotSegment(p) {
		if !hasSession {
			return RedirectTo(r.Entry)
		}
		return Allowed
	}
	p = Clean(p)
	if p == r.Root {
		return Allowed
	}
	public := r.IsPublic(p)
	switch {
	case !hasSession && !public:
		return RedirectTo(r.Entry)
	case hasSession && public:
		return RedirectTo(r.Home)
	}
	return Allowed
}

// Decide applies DefaultRoutes.
func Decide(hasSession bool, p string) Decision {
	return DefaultRoutes.Decide(hasSession, p)
}

// Clean normalizes a path: leading slash, no trailing slash, no query.
func Clean(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if p == "" {
		return "/"
	}
	return path.Clean("/" + p)
}

func hasDotSegment(p string) bool {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "." || seg == ".." {
			return true
		}
	}
	return false
}
