package mockapi

import (
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/mfi-console/identity"
	"github.com/pkg/errors"
)

// NowTimeFunc returns the current time. It can be overridden in tests.
var NowTimeFunc = time.Now

var ErrTokenRevoked = errors.New("token has been revoked")

// claims carried by access tokens.
type claims struct {
	Role string `json:"role"`
	jwtlib.RegisteredClaims
}

// TokenIssuer signs HS256 access tokens and tracks revocations by jti.
type TokenIssuer struct {
	secret  []byte
	ttl     time.Duration
	issuer  string
	revoked *revokedTokens
}

func NewTokenIssuer(secret string, ttl time.Duration, issuer string) *TokenIssuer {
	return &TokenIssuer{
		secret:  []byte(secret),
		ttl:     ttl,
		issuer:  issuer,
		revoked: newRevokedTokens(),
	}
}

// Issue creates an access token for id.
func (t *TokenIssuer) Issue(id identity.Identity) (string, error) {
	now := NowTimeFunc()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims{
		Role: id.Role.String(),
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    t.issuer,
			Subject:   id.ID.String(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(t.ttl)),
			ID:        uuid.New().String(),
		},
	})
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signed, nil
}

// Verify parses and validates a token and returns its subject and jti.
func (t *TokenIssuer) Verify(raw string) (subject identity.ID, jti string, expires time.Time, err error) {
	var c claims
	_, err = jwtlib.ParseWithClaims(raw, &c, func(token *jwtlib.Token) (any, error) {
		if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	},
		jwtlib.WithIssuer(t.issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(NowTimeFunc),
	)
	if err != nil {
		return "", "", time.Time{}, errors.Wrap(err, "invalid token")
	}
	if t.revoked.IsRevoked(c.ID) {
		return "", "", time.Time{}, ErrTokenRevoked
	}
	return identity.ID(c.Subject), c.ID, c.ExpiresAt.Time, nil
}

// Revoke invalidates the token with jti until it would have expired anyway.
func (t *TokenIssuer) Revoke(jti string, exp time.Time) {
	t.revoked.Add(jti, exp)
	t.revoked.Cleanup()
}

type revokedTokens struct {
	revoked map[string]time.Time
	mu      sync.RWMutex
}

func newRevokedTokens() *revokedTokens {
	return &revokedTokens{revoked: make(map[string]time.Time)}
}

func (c *revokedTokens) Add(jti string, exp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked[jti] = exp
}

func (c *revokedTokens) IsRevoked(jti string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, exists := c.revoked[jti]
	return exists
}

// Cleanup drops entries whose tokens have expired.
func (c *revokedTokens) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := NowTimeFunc()
	for jti, exp := range c.revoked {
		if now.After(exp) {
			delete(c.revoked, jti)
		}
	}
}
