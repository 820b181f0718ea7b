package cmd

import (
	"context"
	"fmt"

	"github.com/jrsteele09/mfi-console/authstate"
	"github.com/jrsteele09/mfi-console/credentials"
	"github.com/jrsteele09/mfi-console/fetch"
	"github.com/jrsteele09/mfi-console/guard"
	"github.com/jrsteele09/mfi-console/internal/apiclient"
	"github.com/jrsteele09/mfi-console/internal/config"
	"github.com/jrsteele09/mfi-console/resources"
	"github.com/jrsteele09/mfi-console/session"
)

type contextKey string

const appKey contextKey = "mfi-console-app"

// App is the wired console: one session controller and the resource
// workspace built over it.
type App struct {
	Config      *config.Config
	Store       credentials.Store
	Controller  *authstate.Controller
	Workspace   *resources.Workspace
	Guard       *guard.Guard
	Interactive bool
	Group       string
}

// NewApp wires the console from cfg. It performs no network calls.
func NewApp(cfg *config.Config) (*App, error) {
	store, err := credentials.NewFileStore(cfg.Client.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open credential store: %w", err)
	}

	api := apiclient.New(cfg.Client.APIBaseURL, store, apiclient.WithTimeout(cfg.Client.RequestTimeout))
	ctrl := authstate.NewController(store, session.NewHTTPService(api), authstate.WithLogoutTimeout(cfg.Client.LogoutTimeout))
	client := resources.NewClient(api)
	resolverOpts := []fetch.ResolverOption{fetch.WithMembershipTTL(cfg.Client.GroupCacheTTL)}
	if cfg.Client.RequestTimeout > 0 {
		resolverOpts = append(resolverOpts, fetch.WithMembershipTimeout(cfg.Client.RequestTimeout))
	}
	resolver := fetch.NewScopeResolver(ctrl, client, resolverOpts...)

	return &App{
		Config:     cfg,
		Store:      store,
		Controller: ctrl,
		Workspace:  resources.NewWorkspace(client, resolver, ctrl, printEvent),
		Guard:      guard.New(ctrl),
	}, nil
}

// InjectApp adds app to the cobra command context.
func InjectApp(ctx context.Context, app *App) context.Context {
	return context.WithValue(ctx, appKey, app)
}

func AppFromContext(ctx context.Context) (*App, bool) {
	app, ok := ctx.Value(appKey).(*App)
	return app, ok
}

// MustAppFromContext retrieves the app or panics. Only RunE functions of
// commands under the root may call it.
func MustAppFromContext(ctx context.Context) *App {
	app, ok := AppFromContext(ctx)
	if !ok {
		panic("mfi-console: app not found in context")
	}
	return app
}
