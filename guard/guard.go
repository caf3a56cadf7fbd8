package guard

import (
	"github.com/jrsteele09/go-erp-client/session"
)

// Kind classifies the outcome of a guard evaluation.
type Kind int

const (
	// KindPlaceholder - hydration (or a login) is still in flight; render a
	// neutral loading view and make no redirect decision yet.
	KindPlaceholder Kind = iota
	// KindAllow - render the guarded content.
	KindAllow
	// KindRedirectToLogin - unauthenticated on a protected route; go to the
	// login entry point, recording where the user wanted to be.
	KindRedirectToLogin
	// KindForbidden - authenticated but the role is not in the allowed set;
	// render the 403 view. Deliberately not a redirect: bouncing back to a
	// page the user cannot access would loop.
	KindForbidden
	// KindRedirectAway - an authenticated user on an anonymous-only route;
	// go to the recorded destination or the default landing page.
	KindRedirectAway
)

// Location describes where the navigation is and, when a previous guard
// recorded one, where the user originally wanted to go.
type Location struct {
	Path string // Route being evaluated
	From string // Originally requested route, carried through a login redirect
}

// Decision is the result of evaluating a guard against a session snapshot.
type Decision struct {
	Kind       Kind
	RedirectTo string // Set for the redirect kinds
	From       string // Intended destination recorded alongside a login redirect
}

// Guard decides render vs. redirect for one navigation. Implementations are
// pure functions of the session snapshot and the location; they hold no
// state of their own, so the same inputs always produce the same decision.
type Guard interface {
	Evaluate(st session.State, loc Location) Decision
}

// Protected gates routes that require an authenticated principal, optionally
// restricted to a set of roles.
type Protected struct {
	AllowedRoles []session.Role // Empty means any authenticated role
	LoginPath    string
}

var _ Guard = Protected{}

// NewProtected creates an authenticated-only guard. With no roles given,
// any authenticated principal is allowed.
func NewProtected(allowedRoles ...session.Role) Protected {
	return Protected{AllowedRoles: allowedRoles, LoginPath: RouteLogin}
}

// Evaluate implements the authenticated-only state machine.
func (g Protected) Evaluate(st session.State, loc Location) Decision {
	if !st.Hydrated || st.LoggingIn {
		return Decision{Kind: KindPlaceholder}
	}
	if !st.Authenticated() {
		return Decision{Kind: KindRedirectToLogin, RedirectTo: g.loginPath(), From: loc.Path}
	}
	if len(g.AllowedRoles) > 0 && !g.roleAllowed(st.Principal.Role) {
		return Decision{Kind: KindForbidden}
	}
	return Decision{Kind: KindAllow}
}

func (g Protected) roleAllowed(role session.Role) bool {
	for _, allowed := range g.AllowedRoles {
		if role == allowed {
			return true
		}
	}
	return false
}

func (g Protected) loginPath() string {
	if g.LoginPath == "" {
		return RouteLogin
	}
	return g.LoginPath
}

// Public gates anonymous-only routes such as the login page: an already
// authenticated user is sent back to where they were headed, or to the
// default landing page.
type Public struct {
	DefaultPath string
}

var _ Guard = Public{}

// NewPublic creates an anonymous-only guard landing on the dashboard.
func NewPublic() Public {
	return Public{DefaultPath: RouteDashboard}
}

// Evaluate implements the anonymous-only state machine.
func (g Public) Evaluate(st session.State, loc Location) Decision {
	if !st.Hydrated || st.LoggingIn {
		return Decision{Kind: KindPlaceholder}
	}
	if st.Authenticated() {
		target := loc.From
		if target == "" {
			target = g.defaultPath()
		}
		return Decision{Kind: KindRedirectAway, RedirectTo: target}
	}
	return Decision{Kind: KindAllow}
}

func (g Public) defaultPath() string {
	if g.DefaultPath == "" {
		return RouteDashboard
	}
	return g.DefaultPath
}
