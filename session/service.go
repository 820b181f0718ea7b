// Package session wraps the remote identity API. It holds no state of its
// own beyond what each call returns and it never retries.
package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/jrsteele09/mfi-console/internal/apiclient"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	loginPath    = "/auth/login"
	registerPath = "/auth/register"
	mePath       = "/auth/me"
	logoutPath   = "/auth/logout"
	profilePath  = "/users/profile"
)

// LoginResult is what a successful login returns.
type LoginResult struct {
	Token    string            `json:"token"`
	Identity identity.Identity `json:"user"`
}

// Service is the contract the auth state controller depends on. Failures are
// either a RemoteRejectedError carrying the server's message or a
// NetworkError.
type Service interface {
	Login(ctx context.Context, creds identity.Credentials) (LoginResult, error)
	Register(ctx context.Context, reg identity.Registration) error
	// FetchIdentity uses whatever token is currently attached to outgoing
	// calls.
	FetchIdentity(ctx context.Context) (identity.Identity, error)
	UpdateProfile(ctx context.Context, patch identity.ProfilePatch) (identity.Identity, error)
	// Logout is best-effort.
	Logout(ctx context.Context) error
}

var _ Service = (*HTTPService)(nil)

// HTTPService implements Service against the remote REST API.
type HTTPService struct {
	api    *apiclient.Client
	logger zerolog.Logger
}

type Option func(*HTTPService)

func WithLogger(l zerolog.Logger) Option {
	return func(s *HTTPService) {
		s.logger = l
	}
}

func NewHTTPService(api *apiclient.Client, opts ...Option) *HTTPService {
	s := &HTTPService{
		api:    api,
		logger: log.With().Str("component", "session").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *HTTPService) Login(ctx context.Context, creds identity.Credentials) (LoginResult, error) {
	var result LoginResult
	if err := s.api.Post(ctx, loginPath, creds, &result); err != nil {
		return LoginResult{}, err
	}
	if result.Token == "" {
		return LoginResult{}, fmt.Errorf("login response did not include a token")
	}
	if err := checkIdentity(result.Identity); err != nil {
		return LoginResult{}, fmt.Errorf("login response: %w", err)
	}
	s.logger.Debug().Str("user_id", result.Identity.ID.String()).Msg("login accepted")
	return result, nil
}

func (s *HTTPService) Register(ctx context.Context, reg identity.Registration) error {
	return s.api.Post(ctx, registerPath, reg, nil)
}

func (s *HTTPService) FetchIdentity(ctx context.Context) (identity.Identity, error) {
	var raw json.RawMessage
	if err := s.api.Get(ctx, mePath, nil, &raw); err != nil {
		return identity.Identity{}, err
	}
	return decodeIdentity(raw)
}

func (s *HTTPService) UpdateProfile(ctx context.Context, patch identity.ProfilePatch) (identity.Identity, error) {
	var raw json.RawMessage
	if err := s.api.Put(ctx, profilePath, patch, &raw); err != nil {
		return identity.Identity{}, err
	}
	return decodeIdentity(raw)
}

func (s *HTTPService) Logout(ctx context.Context) error {
	return s.api.Post(ctx, logoutPath, nil, nil)
}

// decodeIdentity accepts both a bare identity and one wrapped as
// {"user": {...}}.
func decodeIdentity(raw json.RawMessage) (identity.Identity, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return identity.Identity{}, fmt.Errorf("failed to decode identity: %w", err)
	}
	if user, ok := fields["user"]; ok {
		raw = user
	}

	var id identity.Identity
	if err := json.Unmarshal(raw, &id); err != nil {
		return identity.Identity{}, fmt.Errorf("failed to decode identity: %w", err)
	}
	if err := checkIdentity(id); err != nil {
		return identity.Identity{}, err
	}
	return id, nil
}

// checkIdentity rejects identities that could not back an authenticated
// session.
func checkIdentity(id identity.Identity) error {
	if id.ID == "" {
		return fmt.Errorf("identity response did not include an id")
	}
	if !id.Role.Valid() {
		return fmt.Errorf("identity response has unknown role %q", id.Role)
	}
	return nil
}
