package authstate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/mfi-console/credentials"
	"github.com/jrsteele09/mfi-console/identity"
	apperrors "github.com/jrsteele09/mfi-console/internal/errors"
	"github.com/jrsteele09/mfi-console/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const defaultLogoutTimeout = 5 * time.Second

// Controller is the sole owner of session state. Views read it through
// State and Subscribe and change it only through the transition methods.
//
// Every transition that ends or replaces a session advances the epoch. A
// call that started under an older epoch discards its result, so a response
// arriving after a logout can never bring the old session back.
type Controller struct {
	store   credentials.Store
	service session.Service

	mu           sync.RWMutex
	state        State
	epoch        uint64
	inflight     int
	bootstrapped bool

	subsMu  sync.Mutex
	subs    map[int]func(State)
	nextSub int

	background    sync.WaitGroup
	logoutTimeout time.Duration
	logger        zerolog.Logger
}

type Option func(*Controller)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithLogoutTimeout bounds the background server logout call.
func WithLogoutTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.logoutTimeout = d
	}
}

func NewController(store credentials.Store, service session.Service, opts ...Option) *Controller {
	c := &Controller{
		store:         store,
		service:       service,
		state:         State{Status: Unresolved, Loading: true},
		subs:          make(map[int]func(State)),
		logoutTimeout: defaultLogoutTimeout,
		logger:        log.With().Str("component", "authstate").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns a copy of the current session state.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.clone()
}

// Identity returns the authenticated identity, if any.
func (c *Controller) Identity() (identity.Identity, bool) {
	s := c.State()
	return s.Identity, s.IsAuthenticated()
}

func (c *Controller) IsAuthenticated() bool {
	return c.State().IsAuthenticated()
}

func (c *Controller) IsLoading() bool {
	return c.State().IsLoading()
}

func (c *Controller) HasRole(roles ...identity.Role) bool {
	return c.State().HasRole(roles...)
}

func (c *Controller) HasPermission(capability identity.Capability) bool {
	return c.State().HasPermission(capability)
}

func (c *Controller) Authorize(capability identity.Capability) error {
	return c.State().Authorize(capability)
}

// Subscribe registers fn to receive every published state. Subscribers are
// called synchronously, outside the controller's lock. The returned func
// removes the subscription.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.subsMu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs, id)
			c.subsMu.Unlock()
		})
	}
}

// Bootstrap resolves the initial state from the credential store. Any
// failure to confirm a stored token clears the store and resolves to
// Anonymous without surfacing an error. It only has an effect while the
// controller is Unresolved.
func (c *Controller) Bootstrap(ctx context.Context) State {
	c.mu.Lock()
	if c.bootstrapped || c.state.Status != Unresolved {
		s := c.state.clone()
		c.mu.Unlock()
		return s
	}
	c.bootstrapped = true
	epoch := c.epoch
	c.mu.Unlock()

	token, ok := c.store.Token()
	if !ok {
		c.logger.Debug().Msg("no stored credentials")
		return c.resolveAnonymous(epoch)
	}

	id, err := c.service.FetchIdentity(ctx)

	c.mu.Lock()
	if c.epoch != epoch {
		s := c.state.clone()
		c.mu.Unlock()
		return s
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Info().Err(err).Msg("stored credentials rejected, signing out")
		return c.resolveAnonymous(epoch)
	}
	if err := c.store.Set(token, id); err != nil {
		c.logger.Warn().Err(err).Msg("failed to refresh stored identity snapshot")
	}
	c.state = State{Status: Authenticated, Identity: id.Clone(), Loading: c.inflight > 0}
	s := c.state.clone()
	c.mu.Unlock()

	c.logger.Debug().Str("user_id", id.ID.String()).Msg("session restored")
	c.publish(s)
	return s
}

// resolveAnonymous clears the store and publishes Anonymous unless the
// epoch moved on in the meantime.
func (c *Controller) resolveAnonymous(epoch uint64) State {
	c.mu.Lock()
	if c.epoch != epoch {
		s := c.state.clone()
		c.mu.Unlock()
		return s
	}
	if err := c.store.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear credentials")
	}
	c.epoch++
	c.state = State{Status: Anonymous, Loading: c.inflight > 0}
	s := c.state.clone()
	c.mu.Unlock()

	c.publish(s)
	return s
}

// Login authenticates and, on success, writes the token and identity to the
// store before publishing Authenticated. On failure the state is unchanged
// and the service's error is returned as is.
func (c *Controller) Login(ctx context.Context, creds identity.Credentials) (identity.Identity, error) {
	if err := creds.Validate(); err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}

	epoch := c.begin()
	result, err := c.service.Login(ctx, creds)
	if err == nil && (result.Identity.ID == "" || !result.Identity.Role.Valid()) {
		err = fmt.Errorf("login response did not include a usable identity")
	}

	c.mu.Lock()
	c.inflight--
	if c.epoch != epoch {
		s := c.loadingLocked()
		c.mu.Unlock()
		c.publish(s)
		return identity.Identity{}, apperrors.ErrSessionSuperseded
	}
	if err != nil {
		s := c.loadingLocked()
		c.mu.Unlock()
		c.publish(s)
		return identity.Identity{}, err
	}
	if err := c.store.Set(result.Token, result.Identity); err != nil {
		s := c.loadingLocked()
		c.mu.Unlock()
		c.publish(s)
		return identity.Identity{}, apperrors.Wrapf(err, "failed to persist session")
	}
	c.epoch++
	c.bootstrapped = true
	c.state = State{Status: Authenticated, Identity: result.Identity.Clone(), Loading: c.inflight > 0}
	s := c.state.clone()
	c.mu.Unlock()

	c.logger.Info().Str("user_id", result.Identity.ID.String()).Str("role", result.Identity.Role.String()).Msg("signed in")
	c.publish(s)
	return result.Identity.Clone(), nil
}

// Register creates an account. It never changes the session state.
func (c *Controller) Register(ctx context.Context, reg identity.Registration) error {
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrInvalidInput, err)
	}
	return c.service.Register(ctx, reg)
}

// Logout ends the session immediately: the store is cleared and Anonymous is
// published before the server is told. The server call runs in the
// background with its own deadline and its outcome is only logged; nothing
// it returns can change the local state.
func (c *Controller) Logout(ctx context.Context) State {
	c.mu.Lock()
	token, hadToken := c.store.Token()
	if err := c.store.Clear(); err != nil {
		c.logger.Error().Err(err).Msg("failed to clear credentials")
	}
	c.epoch++
	c.bootstrapped = true
	c.state = State{Status: Anonymous, Loading: c.inflight > 0}
	s := c.state.clone()
	c.mu.Unlock()

	c.publish(s)

	if hadToken {
		c.background.Add(1)
		go c.revoke(context.WithoutCancel(ctx), token)
	}
	return s
}

func (c *Controller) revoke(ctx context.Context, token string) {
	defer c.background.Done()
	if c.logoutTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.logoutTimeout)
		defer cancel()
	}
	if err := c.service.Logout(session.WithToken(ctx, token)); err != nil {
		c.logger.Debug().Err(err).Msg("server logout failed")
		return
	}
	c.logger.Debug().Msg("server logout acknowledged")
}

// Wait blocks until background logout calls finish or ctx is done.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.background.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateProfile applies patch remotely and, on success, replaces the
// identity both in memory and in the stored snapshot.
func (c *Controller) UpdateProfile(ctx context.Context, patch identity.ProfilePatch) (identity.Identity, error) {
	c.mu.RLock()
	authenticated := c.state.IsAuthenticated()
	current := c.state.Identity.Clone()
	c.mu.RUnlock()
	if !authenticated {
		return identity.Identity{}, apperrors.ErrNotAuthenticated
	}
	if patch.IsEmpty() {
		return current, nil
	}

	epoch := c.begin()
	id, err := c.service.UpdateProfile(ctx, patch)

	c.mu.Lock()
	c.inflight--
	if c.epoch != epoch {
		s := c.loadingLocked()
		c.mu.Unlock()
		c.publish(s)
		return identity.Identity{}, apperrors.ErrSessionSuperseded
	}
	if err != nil {
		s := c.loadingLocked()
		c.mu.Unlock()
		c.publish(s)
		return identity.Identity{}, err
	}
	token, ok := c.store.Token()
	if !ok {
		s := c.loadingLocked()
		c.mu.Unlock()
		c.publish(s)
		return identity.Identity{}, apperrors.ErrNotAuthenticated
	}
	if err := c.store.Set(token, id); err != nil {
		s := c.loadingLocked()
		c.mu.Unlock()
		c.publish(s)
		return identity.Identity{}, apperrors.Wrapf(err, "failed to persist profile")
	}
	c.state = State{Status: Authenticated, Identity: id.Clone(), Loading: c.inflight > 0}
	s := c.state.clone()
	c.mu.Unlock()

	c.publish(s)
	return id.Clone(), nil
}

// Revalidate re-checks a live session against the server with the same
// fail-closed policy as Bootstrap.
func (c *Controller) Revalidate(ctx context.Context) State {
	c.mu.RLock()
	s := c.state.clone()
	epoch := c.epoch
	c.mu.RUnlock()
	if !s.IsAuthenticated() {
		return s
	}

	id, err := c.service.FetchIdentity(ctx)
	if err != nil {
		c.logger.Info().Err(err).Msg("session no longer valid, signing out")
		return c.resolveAnonymous(epoch)
	}

	c.mu.Lock()
	if c.epoch != epoch {
		s := c.state.clone()
		c.mu.Unlock()
		return s
	}
	token, ok := c.store.Token()
	if !ok {
		c.mu.Unlock()
		return c.resolveAnonymous(epoch)
	}
	if err := c.store.Set(token, id); err != nil {
		c.logger.Warn().Err(err).Msg("failed to refresh stored identity snapshot")
	}
	c.state.Identity = id.Clone()
	s = c.state.clone()
	c.mu.Unlock()

	c.publish(s)
	return s
}

// begin marks a call in flight and returns the epoch it runs under.
func (c *Controller) begin() uint64 {
	c.mu.Lock()
	c.inflight++
	c.state.Loading = true
	epoch := c.epoch
	s := c.state.clone()
	c.mu.Unlock()

	c.publish(s)
	return epoch
}

func (c *Controller) loadingLocked() State {
	c.state.Loading = c.state.Status == Unresolved || c.inflight > 0
	return c.state.clone()
}

func (c *Controller) publish(s State) {
	c.subsMu.Lock()
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.subsMu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}
