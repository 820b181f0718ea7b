package mockapi

import (
	"net/http"
	"time"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/pkg/errors"
)

type loginResponse struct {
	Token string            `json:"token"`
	User  identity.Identity `json:"user"`
}

type userResponse struct {
	User identity.Identity `json:"user"`
}

// LoginHandler exchanges credentials for an access token (POST /api/auth/login)
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds identity.Credentials
		if err := decodeJSON(r, &creds); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := creds.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		user, err := s.store.Authenticate(creds.Email, creds.Password)
		if err != nil {
			s.metrics.loginsTotal.WithLabelValues("failure").Inc()
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		token, err := s.tokens.Issue(user)
		if err != nil {
			s.logger.Err(err).Str("user_id", user.ID.String()).Msg("failed to issue token")
			writeError(w, http.StatusInternalServerError, "Failed to issue token")
			return
		}

		s.metrics.loginsTotal.WithLabelValues("success").Inc()
		writeJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
	}
}

// RegisterHandler creates a member account (POST /api/auth/register). It does
// not sign the new user in.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var reg identity.Registration
		if err := decodeJSON(r, &reg); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := reg.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		user, err := s.store.AddUser(identity.Identity{
			Name:    reg.Name,
			Email:   reg.Email,
			Phone:   reg.Phone,
			Address: reg.Address,
			Role:    identity.RoleMember,
		}, reg.Password)
		if errors.Is(err, ErrEmailTaken) {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
		if err != nil {
			s.logger.Err(err).Msg("failed to register user")
			writeError(w, http.StatusInternalServerError, "Failed to create account")
			return
		}

		writeJSON(w, http.StatusCreated, userResponse{User: user})
	}
}

// MeHandler returns the caller's identity (GET /api/auth/me)
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.store.User(userIDFrom(r.Context()))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Session expired, please sign in again")
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// LogoutHandler revokes the presented token (POST /api/auth/logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jti, _ := r.Context().Value(ContextKeyTokenID).(string)
		exp, _ := r.Context().Value(contextKeyExpiry).(time.Time)
		if jti != "" {
			s.tokens.Revoke(jti, exp)
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// UpdateProfileHandler applies a partial profile update (PUT /api/users/profile)
func (s *Server) UpdateProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch identity.ProfilePatch
		if err := decodeJSON(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if patch.Name != nil && *patch.Name == "" {
			writeError(w, http.StatusBadRequest, "name cannot be empty")
			return
		}

		user, err := s.store.UpdateProfile(userIDFrom(r.Context()), patch)
		if err != nil {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		writeJSON(w, http.StatusOK, userResponse{User: user})
	}
}

// HealthHandler reports liveness (GET /healthz)
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// NotFoundHandler answers anything the API does not serve.
func (s *Server) NotFoundHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	}
}
