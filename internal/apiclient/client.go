// Package apiclient is the JSON-over-HTTP plumbing shared by the session
// service and the resource clients.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/mfi-console/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const maxErrorBody = 64 << 10

// TokenSource yields the bearer token to attach, if any. credentials.Store
// satisfies it.
type TokenSource interface {
	Token() (string, bool)
}

// Client issues JSON requests against the remote API. The bearer token is
// read from the TokenSource on every request, so whatever token is currently
// stored is what gets attached.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	timeout time.Duration
	logger  zerolog.Logger
}

type Option func(*Client)

// WithHTTPClient replaces the underlying client (tests, custom transports).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds every request that arrives without a deadline.
// Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

func New(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		tokens:  tokens,
		timeout: 15 * time.Second,
		logger:  log.With().Str("component", "apiclient").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type tokenOverrideKey struct{}

// WithToken pins the bearer token for calls made with ctx, regardless of what
// the TokenSource currently holds. Logout uses it to revoke a token that has
// already been cleared locally.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenOverrideKey{}, token)
}

// Get decodes the response of GET path?query into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, nil, body, out)
}

// Do performs one request. Failures are either a *errors.RemoteRejectedError
// (a response with a non-2xx status) or an errors.NetworkError (no response).
// out may be nil to discard the body.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	op := method + " " + path

	ctx, cancel := c.ensureTimeout(ctx)
	defer cancel()

	endpoint := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.clientFor(ctx).Do(req)
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op).Dur("elapsed", time.Since(start)).Msg("request failed")
		return apperrors.Network(op, err)
	}
	defer resp.Body.Close()

	c.logger.Debug().Str("op", op).Int("status", resp.StatusCode).Dur("elapsed", time.Since(start)).Msg("request complete")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return rejection(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// clientFor attaches the current bearer token through an oauth2 transport
// layered over the configured client.
func (c *Client) clientFor(ctx context.Context) *http.Client {
	token := c.currentToken(ctx)
	if token == "" {
		return c.http
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.http)
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
}

func (c *Client) currentToken(ctx context.Context) string {
	if pinned, ok := ctx.Value(tokenOverrideKey{}).(string); ok {
		return pinned
	}
	if c.tokens == nil {
		return ""
	}
	token, ok := c.tokens.Token()
	if !ok {
		return ""
	}
	return token
}

func (c *Client) ensureTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if c.timeout <= 0 {
		return ctx, func() {}
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

// rejection extracts the server's message from an error response. The API
// uses {"message": "..."}; {"error": "..."} and plain text are accepted too.
func rejection(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	message := ""
	if err := json.Unmarshal(raw, &payload); err == nil {
		message = payload.Message
		if message == "" {
			message = payload.Error
		}
	} else if text := strings.TrimSpace(string(raw)); text != "" && !strings.HasPrefix(text, "<") {
		message = text
	}

	return &apperrors.RemoteRejectedError{StatusCode: resp.StatusCode, Message: message}
}
