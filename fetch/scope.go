// Package fetch implements role-scoped list fetching and the optimistic
// mutation protocol shared by every resource list.
package fetch

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/mfi-console/identity"
	apperrors "github.com/jrsteele09/mfi-console/internal/errors"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	// GroupIDsParam is the query parameter list endpoints scope on.
	GroupIDsParam = "group_ids"

	defaultMembershipTTL     = 5 * time.Minute
	defaultMembershipTimeout = 15 * time.Second
)

// Scope is the set of groups a list request is restricted to. An empty scope
// means there is nothing the caller may see, not "everything".
type Scope struct {
	GroupIDs []identity.ID
}

func (s Scope) IsEmpty() bool {
	return len(s.GroupIDs) == 0
}

// Query renders the scope as the group_ids parameter.
func (s Scope) Query() url.Values {
	ids := make([]string, 0, len(s.GroupIDs))
	for _, id := range s.GroupIDs {
		ids = append(ids, id.String())
	}
	return url.Values{GroupIDsParam: {strings.Join(ids, ",")}}
}

// Resolver turns an optional group selection into a concrete scope.
type Resolver interface {
	Resolve(ctx context.Context, selection identity.ID) (Scope, error)
}

// IdentitySource yields the current identity. authstate.Controller
// satisfies it.
type IdentitySource interface {
	Identity() (identity.Identity, bool)
}

// MembershipSource lists the caller's own group memberships in the order the
// server returns them.
type MembershipSource interface {
	MyGroups(ctx context.Context) ([]identity.GroupMembership, error)
}

var _ Resolver = (*ScopeResolver)(nil)

// ScopeResolver applies the role based scoping rules:
//
//   - non-staff identities always see their own groups; any selection is
//     ignored
//   - staff may select one group
//   - staff without a selection get the first group of their membership list
//
// A request is never left unscoped.
type ScopeResolver struct {
	identities  IdentitySource
	memberships MembershipSource

	cache         *gocache.Cache
	sf            singleflight.Group
	lookupTimeout time.Duration
	logger        zerolog.Logger
}

type ResolverOption func(*ScopeResolver)

// WithMembershipTTL sets how long a staff member's membership list is reused.
func WithMembershipTTL(ttl time.Duration) ResolverOption {
	return func(r *ScopeResolver) {
		r.cache = gocache.New(ttl, time.Minute)
	}
}

// WithMembershipTimeout bounds the shared membership lookup.
func WithMembershipTimeout(d time.Duration) ResolverOption {
	return func(r *ScopeResolver) {
		r.lookupTimeout = d
	}
}

func WithResolverLogger(l zerolog.Logger) ResolverOption {
	return func(r *ScopeResolver) {
		r.logger = l
	}
}

// NewScopeResolver builds a resolver. memberships may be nil, in which case
// the memberships carried on the identity are used.
func NewScopeResolver(identities IdentitySource, memberships MembershipSource, opts ...ResolverOption) *ScopeResolver {
	r := &ScopeResolver{
		identities:    identities,
		memberships:   memberships,
		cache:         gocache.New(defaultMembershipTTL, time.Minute),
		lookupTimeout: defaultMembershipTimeout,
		logger:      log.With().Str("component", "scope").Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *ScopeResolver) Resolve(ctx context.Context, selection identity.ID) (Scope, error) {
	id, ok := r.identities.Identity()
	if !ok {
		return Scope{}, apperrors.ErrNotAuthenticated
	}

	if !id.IsStaff() {
		if selection != "" && !id.HasGroup(selection) {
			r.logger.Debug().Str("user_id", id.ID.String()).Str("selection", selection.String()).Msg("ignoring group selection for non-staff identity")
		}
		return Scope{GroupIDs: id.GroupIDs()}, nil
	}

	if selection != "" {
		return Scope{GroupIDs: []identity.ID{selection}}, nil
	}

	groups, err := r.staffGroups(ctx, id)
	if err != nil {
		return Scope{}, err
	}
	if len(groups) == 0 {
		return Scope{}, apperrors.ErrNoDefaultGroup
	}
	return Scope{GroupIDs: []identity.ID{groups[0].GroupID}}, nil
}

// Forget drops the cached membership list of userID.
func (r *ScopeResolver) Forget(userID identity.ID) {
	r.cache.Delete(userID.String())
}

func (r *ScopeResolver) staffGroups(ctx context.Context, id identity.Identity) ([]identity.GroupMembership, error) {
	if r.memberships == nil {
		return id.Groups, nil
	}

	key := id.ID.String()
	if cached, ok := r.cache.Get(key); ok {
		if groups, ok := cached.([]identity.GroupMembership); ok {
			return groups, nil
		}
	}

	// The shared lookup outlives any single caller; each caller waits on its
	// own context.
	ch := r.sf.DoChan(key, func() (any, error) {
		lookupCtx := context.WithoutCancel(ctx)
		if r.lookupTimeout > 0 {
			var cancel context.CancelFunc
			lookupCtx, cancel = context.WithTimeout(lookupCtx, r.lookupTimeout)
			defer cancel()
		}
		groups, err := r.memberships.MyGroups(lookupCtx)
		if err != nil {
			return nil, err
		}
		r.cache.SetDefault(key, groups)
		return groups, nil
	})
	select {
	case <-ctx.Done():
		return nil, apperrors.Wrapf(ctx.Err(), "failed to load group memberships")
	case res := <-ch:
		if res.Err != nil {
			return nil, apperrors.Wrapf(res.Err, "failed to load group memberships")
		}
		return res.Val.([]identity.GroupMembership), nil
	}
}
