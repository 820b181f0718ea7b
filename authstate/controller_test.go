package authstate_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/mfi-console/authstate"
	"github.com/jrsteele09/mfi-console/credentials"
	"github.com/jrsteele09/mfi-console/identity"
	"github.com/jrsteele09/mfi-console/internal/apiclient"
	apperrors "github.com/jrsteele09/mfi-console/internal/errors"
	"github.com/jrsteele09/mfi-console/internal/utils"
	"github.com/jrsteele09/mfi-console/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeService struct {
	mu            sync.Mutex
	login         func(ctx context.Context, creds identity.Credentials) (session.LoginResult, error)
	fetchIdentity func(ctx context.Context) (identity.Identity, error)
	updateProfile func(ctx context.Context, patch identity.ProfilePatch) (identity.Identity, error)
	logout        func(ctx context.Context) error
	calls         []string
}

func (f *fakeService) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeService) Login(ctx context.Context, creds identity.Credentials) (session.LoginResult, error) {
	f.record("login")
	return f.login(ctx, creds)
}

func (f *fakeService) Register(ctx context.Context, reg identity.Registration) error {
	f.record("register")
	return nil
}

func (f *fakeService) FetchIdentity(ctx context.Context) (identity.Identity, error) {
	f.record("fetchIdentity")
	return f.fetchIdentity(ctx)
}

func (f *fakeService) UpdateProfile(ctx context.Context, patch identity.ProfilePatch) (identity.Identity, error) {
	f.record("updateProfile")
	return f.updateProfile(ctx, patch)
}

func (f *fakeService) Logout(ctx context.Context) error {
	f.record("logout")
	if f.logout == nil {
		return nil
	}
	return f.logout(ctx)
}

var officer = identity.Identity{ID: "1", Name: "Yaw Boateng", Role: identity.RoleOfficer}

func validLogin(_ context.Context, _ identity.Credentials) (session.LoginResult, error) {
	return session.LoginResult{Token: "abc", Identity: officer}, nil
}

var creds = identity.Credentials{Email: "yaw@example.com", Password: "Secret123"}

func TestBootstrap_NoTokenResolvesAnonymous(t *testing.T) {
	svc := &fakeService{}
	c := authstate.NewController(credentials.NewMemoryStore(), svc)
	require.Equal(t, authstate.Unresolved, c.State().Status)
	require.True(t, c.IsLoading())

	s := c.Bootstrap(context.Background())
	require.Equal(t, authstate.Anonymous, s.Status)
	require.False(t, s.Loading)
	require.Empty(t, svc.Calls())
}

func TestBootstrap_FailClosed(t *testing.T) {
	failures := map[string]error{
		"rejected": &apperrors.RemoteRejectedError{StatusCode: http.StatusUnauthorized, Message: "Token expired"},
		"network":  apperrors.Network("GET /auth/me", errors.New("connection refused")),
		"timeout":  apperrors.Network("GET /auth/me", context.DeadlineExceeded),
		"server":   &apperrors.RemoteRejectedError{StatusCode: http.StatusInternalServerError},
	}
	tokens := []string{"abc", "expired.jwt.value", " ", "🙂"}

	for name, failure := range failures {
		for _, token := range tokens {
			t.Run(name+"/"+token, func(t *testing.T) {
				store := credentials.NewMemoryStore()
				require.NoError(t, store.Set(token, officer))
				svc := &fakeService{fetchIdentity: func(context.Context) (identity.Identity, error) {
					return identity.Identity{}, failure
				}}

				s := authstate.NewController(store, svc).Bootstrap(context.Background())
				require.Equal(t, authstate.Anonymous, s.Status)
				require.Equal(t, identity.Identity{}, s.Identity)

				_, ok := store.Token()
				require.False(t, ok)
				_, ok = store.Snapshot()
				require.False(t, ok)
			})
		}
	}
}

func TestBootstrap_RestoresSessionAndRefreshesSnapshot(t *testing.T) {
	store := credentials.NewMemoryStore()
	stale := officer.Clone()
	stale.Name = "old name"
	require.NoError(t, store.Set("abc", stale))

	svc := &fakeService{fetchIdentity: func(context.Context) (identity.Identity, error) {
		return officer, nil
	}}
	c := authstate.NewController(store, svc)

	s := c.Bootstrap(context.Background())
	require.Equal(t, authstate.Authenticated, s.Status)
	require.Equal(t, officer, s.Identity)

	snapshot, ok := store.Snapshot()
	require.True(t, ok)
	require.Equal(t, officer, snapshot)
	token, _ := store.Token()
	require.Equal(t, "abc", token)

	c.Bootstrap(context.Background())
	require.Equal(t, []string{"fetchIdentity"}, svc.Calls(), "bootstrap runs once per controller")
}

func TestLogin_ValidCredentials(t *testing.T) {
	store := credentials.NewMemoryStore()
	c := authstate.NewController(store, &fakeService{login: validLogin})
	c.Bootstrap(context.Background())

	id, err := c.Login(context.Background(), creds)
	require.NoError(t, err)
	require.Equal(t, identity.RoleOfficer, id.Role)

	require.True(t, c.IsAuthenticated())
	current, ok := c.Identity()
	require.True(t, ok)
	require.Equal(t, identity.RoleOfficer, current.Role)

	token, ok := store.Token()
	require.True(t, ok)
	require.Equal(t, "abc", token)
	snapshot, ok := store.Snapshot()
	require.True(t, ok)
	require.Equal(t, officer, snapshot)
}

func TestLogin_PairIsWrittenBeforeAuthenticatedIsPublished(t *testing.T) {
	store := credentials.NewMemoryStore()
	c := authstate.NewController(store, &fakeService{login: validLogin})
	c.Bootstrap(context.Background())

	var checked bool
	unsubscribe := c.Subscribe(func(s authstate.State) {
		if s.Status != authstate.Authenticated {
			return
		}
		_, hasToken := store.Token()
		_, hasSnapshot := store.Snapshot()
		assert.True(t, hasToken)
		assert.True(t, hasSnapshot)
		checked = true
	})
	defer unsubscribe()

	_, err := c.Login(context.Background(), creds)
	require.NoError(t, err)
	require.True(t, checked)
}

func TestLogin_FailureSurfacesMessageVerbatim(t *testing.T) {
	store := credentials.NewMemoryStore()
	svc := &fakeService{login: func(context.Context, identity.Credentials) (session.LoginResult, error) {
		return session.LoginResult{}, &apperrors.RemoteRejectedError{StatusCode: http.StatusUnauthorized, Message: "Invalid email or password"}
	}}
	c := authstate.NewController(store, svc)
	c.Bootstrap(context.Background())

	var published []authstate.State
	c.Subscribe(func(s authstate.State) { published = append(published, s) })

	_, err := c.Login(context.Background(), creds)
	require.Error(t, err)
	require.Equal(t, "Invalid email or password", err.Error())
	require.Equal(t, "Invalid email or password", apperrors.UserMessage(err))

	require.Equal(t, authstate.Anonymous, c.State().Status)
	_, ok := store.Token()
	require.False(t, ok)
	for _, s := range published {
		require.NotEqual(t, authstate.Authenticated, s.Status)
	}
}

func TestLogin_UnusableIdentityStaysAnonymous(t *testing.T) {
	for name, id := range map[string]identity.Identity{
		"empty":        {},
		"unknown role": {ID: "1", Role: identity.Role("superuser")},
	} {
		t.Run(name, func(t *testing.T) {
			store := credentials.NewMemoryStore()
			svc := &fakeService{login: func(context.Context, identity.Credentials) (session.LoginResult, error) {
				return session.LoginResult{Token: "abc", Identity: id}, nil
			}}
			c := authstate.NewController(store, svc)
			c.Bootstrap(context.Background())

			_, err := c.Login(context.Background(), creds)
			require.Error(t, err)
			require.Equal(t, authstate.Anonymous, c.State().Status)
			_, ok := store.Token()
			require.False(t, ok)
		})
	}
}

func TestLogin_InvalidInputMakesNoCall(t *testing.T) {
	svc := &fakeService{login: validLogin}
	c := authstate.NewController(credentials.NewMemoryStore(), svc)

	_, err := c.Login(context.Background(), identity.Credentials{Email: "", Password: "x"})
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	require.Empty(t, svc.Calls())
}

func TestLogout_IsImmediateWhenServerNeverAnswers(t *testing.T) {
	var (
		mu       sync.Mutex
		auth     string
		received = make(chan struct{})
		release  = make(chan struct{})
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		auth = r.Header.Get("Authorization")
		mu.Unlock()
		close(received)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	store := credentials.NewMemoryStore()
	require.NoError(t, store.Set("abc", officer))
	svc := session.NewHTTPService(apiclient.New(srv.URL, store, apiclient.WithTimeout(0)))

	// Restore the session without a network round trip.
	c := authstate.NewController(store, &loggingOutService{Service: svc, id: officer}, authstate.WithLogoutTimeout(time.Minute))
	require.Equal(t, authstate.Authenticated, c.Bootstrap(context.Background()).Status)

	s := c.Logout(context.Background())
	require.Equal(t, authstate.Anonymous, s.Status)
	require.Equal(t, authstate.Anonymous, c.State().Status)
	_, ok := store.Token()
	require.False(t, ok)
	_, ok = store.Snapshot()
	require.False(t, ok)

	select {
	case <-received:
	case <-time.After(5 * time.Second):
		t.Fatal("server logout was never issued")
	}
	mu.Lock()
	require.Equal(t, "Bearer abc", auth, "the cleared token is still the one revoked")
	mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, c.Wait(ctx), context.DeadlineExceeded, "the background call is still outstanding")
	require.Equal(t, authstate.Anonymous, c.State().Status)
}

// loggingOutService answers FetchIdentity locally and delegates the rest.
type loggingOutService struct {
	session.Service
	id identity.Identity
}

func (s *loggingOutService) FetchIdentity(context.Context) (identity.Identity, error) {
	return s.id, nil
}

func TestLogout_ServerFailureNeverRevertsState(t *testing.T) {
	store := credentials.NewMemoryStore()
	svc := &fakeService{
		login:  validLogin,
		logout: func(context.Context) error { return errors.New("boom") },
	}
	c := authstate.NewController(store, svc)
	_, err := c.Login(context.Background(), creds)
	require.NoError(t, err)

	c.Logout(context.Background())
	require.NoError(t, c.Wait(context.Background()))
	require.Equal(t, authstate.Anonymous, c.State().Status)
	require.Contains(t, svc.Calls(), "logout")
}

func TestLogout_WithoutTokenMakesNoCall(t *testing.T) {
	svc := &fakeService{}
	c := authstate.NewController(credentials.NewMemoryStore(), svc)
	c.Bootstrap(context.Background())
	c.Logout(context.Background())
	require.NoError(t, c.Wait(context.Background()))
	require.Empty(t, svc.Calls())
}

func TestLogin_LateResponseAfterLogoutIsDiscarded(t *testing.T) {
	store := credentials.NewMemoryStore()
	started := make(chan struct{})
	release := make(chan struct{})
	svc := &fakeService{login: func(context.Context, identity.Credentials) (session.LoginResult, error) {
		close(started)
		<-release
		return session.LoginResult{Token: "abc", Identity: officer}, nil
	}}
	c := authstate.NewController(store, svc)
	c.Bootstrap(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := c.Login(context.Background(), creds)
		errc <- err
	}()
	<-started
	c.Logout(context.Background())
	close(release)

	require.ErrorIs(t, <-errc, apperrors.ErrSessionSuperseded)
	require.Equal(t, authstate.Anonymous, c.State().Status)
	require.False(t, c.State().Loading)
	_, ok := store.Token()
	require.False(t, ok)
}

func TestUpdateProfile(t *testing.T) {
	store := credentials.NewMemoryStore()
	svc := &fakeService{
		login: validLogin,
		updateProfile: func(_ context.Context, patch identity.ProfilePatch) (identity.Identity, error) {
			return patch.ApplyTo(officer), nil
		},
	}
	c := authstate.NewController(store, svc)
	_, err := c.Login(context.Background(), creds)
	require.NoError(t, err)

	id, err := c.UpdateProfile(context.Background(), identity.ProfilePatch{Phone: utils.Ptr("+233 20 555 0101")})
	require.NoError(t, err)
	require.Equal(t, "+233 20 555 0101", id.Phone)

	current, _ := c.Identity()
	require.Equal(t, "+233 20 555 0101", current.Phone)
	snapshot, _ := store.Snapshot()
	require.Equal(t, "+233 20 555 0101", snapshot.Phone)
	token, _ := store.Token()
	require.Equal(t, "abc", token)
}

func TestUpdateProfile_FailureLeavesStateUnchanged(t *testing.T) {
	store := credentials.NewMemoryStore()
	svc := &fakeService{
		login: validLogin,
		updateProfile: func(context.Context, identity.ProfilePatch) (identity.Identity, error) {
			return identity.Identity{}, &apperrors.RemoteRejectedError{StatusCode: http.StatusBadRequest, Message: "phone is invalid"}
		},
	}
	c := authstate.NewController(store, svc)
	_, err := c.Login(context.Background(), creds)
	require.NoError(t, err)
	before := c.State()

	_, err = c.UpdateProfile(context.Background(), identity.ProfilePatch{Phone: utils.Ptr("nope")})
	require.EqualError(t, err, "phone is invalid")
	require.Equal(t, before, c.State())
	snapshot, _ := store.Snapshot()
	require.Equal(t, officer, snapshot)
}

func TestUpdateProfile_RequiresSession(t *testing.T) {
	c := authstate.NewController(credentials.NewMemoryStore(), &fakeService{})
	c.Bootstrap(context.Background())
	_, err := c.UpdateProfile(context.Background(), identity.ProfilePatch{Name: utils.Ptr("x")})
	require.ErrorIs(t, err, apperrors.ErrNotAuthenticated)
}

func TestRevalidate_FailClosed(t *testing.T) {
	store := credentials.NewMemoryStore()
	valid := true
	svc := &fakeService{
		login: validLogin,
		fetchIdentity: func(context.Context) (identity.Identity, error) {
			if valid {
				return officer, nil
			}
			return identity.Identity{}, &apperrors.RemoteRejectedError{StatusCode: http.StatusUnauthorized}
		},
	}
	c := authstate.NewController(store, svc)
	_, err := c.Login(context.Background(), creds)
	require.NoError(t, err)

	require.Equal(t, authstate.Authenticated, c.Revalidate(context.Background()).Status)

	valid = false
	require.Equal(t, authstate.Anonymous, c.Revalidate(context.Background()).Status)
	_, ok := store.Token()
	require.False(t, ok)
}

func TestPredicates_MemberScenario(t *testing.T) {
	member := identity.Identity{ID: "2", Role: identity.RoleMember}
	c := authstate.NewController(credentials.NewMemoryStore(), &fakeService{
		login: func(context.Context, identity.Credentials) (session.LoginResult, error) {
			return session.LoginResult{Token: "t", Identity: member}, nil
		},
	})

	require.False(t, c.HasRole(identity.RoleMember), "no role before authentication")
	require.False(t, c.HasPermission(identity.CapViewDashboard))
	require.ErrorIs(t, c.Authorize(identity.CapViewDashboard), apperrors.ErrNotAuthenticated)

	_, err := c.Login(context.Background(), creds)
	require.NoError(t, err)

	require.False(t, c.HasRole(identity.RoleAdmin, identity.RoleOfficer))
	require.True(t, c.HasRole(identity.RoleMember))
	require.True(t, c.HasPermission(identity.CapViewOwnLoans))
	require.False(t, c.HasPermission(identity.CapApproveLoans))
	require.False(t, c.HasPermission(identity.Capability("launch_rockets")))

	err = c.Authorize(identity.CapApproveLoans)
	require.ErrorIs(t, err, apperrors.ErrNotAuthorized)
	var nae *apperrors.NotAuthorizedError
	require.ErrorAs(t, err, &nae)
	require.Equal(t, "approve_loans", nae.Capability)

	c.Logout(context.Background())
	require.False(t, c.HasRole(identity.RoleMember))
	require.False(t, c.HasPermission(identity.CapViewOwnLoans))
}

func TestSubscribe(t *testing.T) {
	c := authstate.NewController(credentials.NewMemoryStore(), &fakeService{login: validLogin})

	var statuses []authstate.Status
	unsubscribe := c.Subscribe(func(s authstate.State) {
		if !s.Loading {
			statuses = append(statuses, s.Status)
		}
	})

	c.Bootstrap(context.Background())
	_, err := c.Login(context.Background(), creds)
	require.NoError(t, err)
	unsubscribe()
	c.Logout(context.Background())

	require.Equal(t, []authstate.Status{authstate.Anonymous, authstate.Authenticated}, statuses)
}
