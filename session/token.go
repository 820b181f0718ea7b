package session

import (
	"context"

	"github.com/jrsteele09/mfi-console/internal/apiclient"
)

// WithToken pins the bearer token used by calls made with ctx. The auth
// state controller uses it to revoke a token after clearing it locally.
func WithToken(ctx context.Context, token string) context.Context {
	return apiclient.WithToken(ctx, token)
}
