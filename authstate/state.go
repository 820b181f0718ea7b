// Package authstate owns the in-memory session state and every transition
// that changes it.
package authstate

import (
	"slices"

	"github.com/jrsteele09/mfi-console/identity"
	apperrors "github.com/jrsteele09/mfi-console/internal/errors"
)

type Status int

const (
	// Unresolved is the initial status until bootstrap completes.
	Unresolved Status = iota
	Anonymous
	Authenticated
)

func (s Status) String() string {
	switch s {
	case Unresolved:
		return "unresolved"
	case Anonymous:
		return "anonymous"
	case Authenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// State is an immutable snapshot of the session. Identity is the zero value
// unless Status is Authenticated.
type State struct {
	Status   Status
	Identity identity.Identity
	Loading  bool
}

func (s State) IsAuthenticated() bool {
	return s.Status == Authenticated
}

func (s State) IsLoading() bool {
	return s.Loading
}

// HasRole is true iff the session is authenticated and the identity's role
// is one of roles.
func (s State) HasRole(roles ...identity.Role) bool {
	if !s.IsAuthenticated() {
		return false
	}
	return slices.Contains(roles, s.Identity.Role)
}

// HasPermission is false when not authenticated, true for admin, and
// otherwise consults the role's grant table. Unknown capabilities are
// simply not granted.
func (s State) HasPermission(c identity.Capability) bool {
	if !s.IsAuthenticated() {
		return false
	}
	return identity.Granted(s.Identity.Role, c)
}

// Authorize turns HasPermission into an error for callers that want one.
func (s State) Authorize(c identity.Capability) error {
	if !s.IsAuthenticated() {
		return apperrors.ErrNotAuthenticated
	}
	if !s.HasPermission(c) {
		return &apperrors.NotAuthorizedError{Capability: string(c)}
	}
	return nil
}

// AuthorizeRole is the role based equivalent of Authorize.
func (s State) AuthorizeRole(roles ...identity.Role) error {
	if !s.IsAuthenticated() {
		return apperrors.ErrNotAuthenticated
	}
	if !s.HasRole(roles...) {
		names := make([]string, 0, len(roles))
		for _, r := range roles {
			names = append(names, r.String())
		}
		return &apperrors.NotAuthorizedError{Roles: names}
	}
	return nil
}

func (s State) clone() State {
	s.Identity = s.Identity.Clone()
	return s
}
