// Package credentials persists the session token together with a snapshot
// of the identity it belongs to.
package credentials

import (
	"github.com/jrsteele09/mfi-console/identity"
)

// Fixed keys under which the pair is persisted.
const (
	TokenKey    = "token"
	IdentityKey = "user"
)

// Store persists the {token, identity snapshot} pair across restarts.
//
// The pair is only ever written together: Set replaces both, Clear removes
// both. A reader never observes a token without its snapshot or the reverse;
// a stored pair that is missing either half reads as absent.
type Store interface {
	// Token returns the stored bearer token. Absence is a normal state.
	Token() (string, bool)
	// Snapshot returns the identity cached alongside the token.
	Snapshot() (identity.Identity, bool)
	// Set writes the token and the identity snapshot as one unit.
	Set(token string, id identity.Identity) error
	// Clear removes both entries. Clearing an empty store is not an error.
	Clear() error
}
