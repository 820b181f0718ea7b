// Package mockapi is a development stand-in for the remote microfinance
// API. It serves the endpoints the console consumes from an in-memory data
// set so the console and its tests have a real HTTP collaborator.
package mockapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/mfi-console/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Server struct {
	dev            bool
	mux            *http.ServeMux
	routes         []string
	store          *Store
	tokens         *TokenIssuer
	metrics        *metrics
	faults         faults
	allowedOrigins []string
	logger         zerolog.Logger
}

type Option func(*Server)

// WithStore serves store instead of a fresh one.
func WithStore(store *Store) Option {
	return func(s *Server) {
		s.store = store
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

func New(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg.MockAPI.TokenSecret == "" {
		return nil, fmt.Errorf("[mockapi New] token secret is required")
	}

	s := &Server{
		dev:            cfg.IsDev(),
		mux:            http.NewServeMux(),
		store:          NewStore(),
		tokens:         NewTokenIssuer(cfg.MockAPI.TokenSecret, cfg.MockAPI.TokenTTL, cfg.App.Name),
		metrics:        newMetrics(),
		allowedOrigins: cfg.MockAPI.AllowedOrigins,
		logger:         log.With().Str("component", "mockapi").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.MockAPI.Seed {
		if err := Seed(s.store); err != nil {
			return nil, fmt.Errorf("[mockapi New] failed to seed data: %w", err)
		}
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) Store() *Store {
	return s.store
}

// InjectFault registers a fault for matching requests.
func (s *Server) InjectFault(f Fault) {
	s.faults.add(f)
}

func (s *Server) ClearFaults() {
	s.faults.clear()
}

// IssueToken mints a valid token for an existing user, bypassing login.
func (s *Server) IssueToken(userID string) (string, error) {
	u, err := s.store.User(identityID(userID))
	if err != nil {
		return "", err
	}
	return s.tokens.Issue(u)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if !s.dev {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)
		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	s.logger.Info().Msgf("[%s] %s", colourMethod(method), path)
}
