// Package guard decides whether a requested view may render. It is a gate,
// not a cache: every call re-reads the current session state.
package guard

import (
	"context"
	"errors"
	"net/http"

	"github.com/jrsteele09/mfi-console/authstate"
	"github.com/jrsteele09/mfi-console/identity"
	apperrors "github.com/jrsteele09/mfi-console/internal/errors"
)

// ErrLoginRequired is returned by wrapped views when there is no session.
// The view layer responds by showing its login view; the attempted
// destination is not remembered.
var ErrLoginRequired = errors.New("login required")

// ErrUnresolved is returned while the session is still being restored.
var ErrUnresolved = errors.New("session not yet resolved")

type Decision int

const (
	// Wait renders nothing while bootstrap is running.
	Wait Decision = iota
	Redirect
	Render
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case Redirect:
		return "redirect"
	case Render:
		return "render"
	default:
		return "unknown"
	}
}

// Evaluate maps a session state to a navigation decision.
func Evaluate(s authstate.State) Decision {
	switch s.Status {
	case authstate.Authenticated:
		return Render
	case authstate.Anonymous:
		return Redirect
	default:
		return Wait
	}
}

// StateSource is the read side of the auth state controller.
type StateSource interface {
	State() authstate.State
}

// View is a non-HTTP view: it receives the identity it renders for.
type View func(ctx context.Context, id identity.Identity) error

type Guard struct {
	source    StateSource
	loginPath string
}

type Option func(*Guard)

// WithLoginPath sets where Middleware redirects anonymous requests.
func WithLoginPath(path string) Option {
	return func(g *Guard) {
		g.loginPath = path
	}
}

func New(source StateSource, opts ...Option) *Guard {
	g := &Guard{source: source, loginPath: "/login"}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Guard) Decide() Decision {
	return Evaluate(g.source.State())
}

// Wrap gates view on an authenticated session.
func (g *Guard) Wrap(view View) View {
	return func(ctx context.Context, _ identity.Identity) error {
		s := g.source.State()
		switch Evaluate(s) {
		case Render:
			return view(ctx, s.Identity)
		case Redirect:
			return ErrLoginRequired
		default:
			return ErrUnresolved
		}
	}
}

// RequireRole gates view on an authenticated session whose role is one of
// roles.
func (g *Guard) RequireRole(view View, roles ...identity.Role) View {
	return g.Wrap(func(ctx context.Context, id identity.Identity) error {
		if err := g.source.State().AuthorizeRole(roles...); err != nil {
			return err
		}
		return view(ctx, id)
	})
}

// RequirePermission gates view on an authenticated session holding
// capability.
func (g *Guard) RequirePermission(view View, capability identity.Capability) View {
	return g.Wrap(func(ctx context.Context, id identity.Identity) error {
		if err := g.source.State().Authorize(capability); err != nil {
			return err
		}
		return view(ctx, id)
	})
}

type identityKey struct{}

// IdentityFromContext returns the identity Middleware attached to the
// request.
func IdentityFromContext(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(identity.Identity)
	return id, ok
}

// Middleware gates an http.Handler. While unresolved it answers 204 with no
// body, anonymous requests are redirected to the login path, and
// authenticated requests carry the identity in their context.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := g.source.State()
		switch Evaluate(s) {
		case Render:
			ctx := context.WithValue(r.Context(), identityKey{}, s.Identity.Clone())
			next.ServeHTTP(w, r.WithContext(ctx))
		case Redirect:
			http.Redirect(w, r, g.loginPath, http.StatusSeeOther)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
}

// RequirePermissionHandler is Middleware plus a capability check that
// answers 403 when the capability is missing.
func (g *Guard) RequirePermissionHandler(capability identity.Capability, next http.Handler) http.Handler {
	return g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := g.source.State().Authorize(capability); err != nil {
			status := http.StatusForbidden
			if errors.Is(err, apperrors.ErrNotAuthenticated) {
				status = http.StatusUnauthorized
			}
			http.Error(w, err.Error(), status)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
