package fetch

import (
	"context"
	"slices"
	"sync"

	"github.com/jrsteele09/mfi-console/identity"
	apperrors "github.com/jrsteele09/mfi-console/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"
)

// Keyed is implemented by every list item.
type Keyed interface {
	ListKey() string
}

// Loader fetches the items visible within scope. It is never called with an
// empty scope.
type Loader[T Keyed] func(ctx context.Context, scope Scope) ([]T, error)

// Mutation describes one optimistic change to a single item.
type Mutation[T Keyed] struct {
	// Check rejects the change before anything is applied. Optional.
	Check func(item T) error
	// Apply returns the changed item. It must not modify its argument.
	Apply func(item T) T
	// Commit sends the change to the server.
	Commit func(ctx context.Context, changed T) error
}

// List is a scoped, cached copy of one resource list.
//
// The held slice is never modified in place: every change installs a new
// slice, so a snapshot taken before a mutation stays valid and rollback is a
// plain replacement. Mutations and refetches are serialised through a
// semaphore, so a mutation takes its snapshot only after the previous one
// has been confirmed or rolled back.
type List[T Keyed] struct {
	name     string
	resolver Resolver
	load     Loader[T]
	notify   Notifier
	logger   zerolog.Logger

	sem *semaphore.Weighted

	mu        sync.RWMutex
	items     []T
	loading   bool
	err       error
	selection identity.ID
}

type ListOption[T Keyed] func(*List[T])

func WithNotifier[T Keyed](n Notifier) ListOption[T] {
	return func(l *List[T]) {
		l.notify = n
	}
}

func WithListLogger[T Keyed](logger zerolog.Logger) ListOption[T] {
	return func(l *List[T]) {
		l.logger = logger
	}
}

func NewList[T Keyed](name string, resolver Resolver, load Loader[T], opts ...ListOption[T]) *List[T] {
	l := &List[T]{
		name:     name,
		resolver: resolver,
		load:     load,
		notify:   func(Event) {},
		logger:   log.With().Str("component", "fetch").Str("resource", name).Logger(),
		sem:      semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *List[T]) Name() string {
	return l.name
}

// Items returns the current items. The caller owns the returned slice.
func (l *List[T]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.items)
}

func (l *List[T]) IsLoading() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loading
}

// Err is the error of the last fetch, nil after a successful one.
func (l *List[T]) Err() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.err
}

// Selection is the group selection used by the last fetch.
func (l *List[T]) Selection() identity.ID {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.selection
}

func (l *List[T]) Find(key string) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if i := indexOf(l.items, key); i >= 0 {
		return l.items[i], true
	}
	var zero T
	return zero, false
}

// Refetch reloads the list for selection. On failure the previously loaded
// items stay in place and the error is recorded and returned.
func (l *List[T]) Refetch(ctx context.Context, selection identity.ID) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	l.mu.Lock()
	l.loading = true
	l.selection = selection
	l.mu.Unlock()

	items, err := l.fetch(ctx, selection)

	l.mu.Lock()
	l.loading = false
	if err != nil {
		l.err = err
		l.mu.Unlock()
		l.logger.Warn().Err(err).Msg("fetch failed, keeping previous items")
		l.notify(Event{Kind: EventFetchFailed, Resource: l.name, Err: err})
		return err
	}
	l.items = items
	l.err = nil
	l.mu.Unlock()

	l.notify(Event{Kind: EventFetched, Resource: l.name, Count: len(items)})
	return nil
}

func (l *List[T]) fetch(ctx context.Context, selection identity.ID) ([]T, error) {
	scope, err := l.resolver.Resolve(ctx, selection)
	if err != nil {
		return nil, err
	}
	if scope.IsEmpty() {
		return []T{}, nil
	}
	items, err := l.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return slices.Clip(items), nil
}

// Mutate applies m to the item with key optimistically:
//
//  1. snapshot the current list
//  2. install a copy with the item changed
//  3. commit the change to the server
//  4. on success keep the changed list
//  5. on any failure reinstall the exact snapshot and return the error
//
// No retry is attempted.
func (l *List[T]) Mutate(ctx context.Context, key string, m Mutation[T]) error {
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer l.sem.Release(1)

	l.mu.Lock()
	snapshot := l.items
	i := indexOf(snapshot, key)
	if i < 0 {
		l.mu.Unlock()
		return apperrors.Wrapf(apperrors.ErrItemNotFound, "%s %s", l.name, key)
	}
	if m.Check != nil {
		if err := m.Check(snapshot[i]); err != nil {
			l.mu.Unlock()
			return err
		}
	}
	optimistic := slices.Clone(snapshot)
	optimistic[i] = m.Apply(snapshot[i])
	l.items = optimistic
	changed := optimistic[i]
	l.mu.Unlock()

	l.notify(Event{Kind: EventApplied, Resource: l.name, Key: key})

	if err := m.Commit(ctx, changed); err != nil {
		l.mu.Lock()
		l.items = snapshot
		l.mu.Unlock()

		l.logger.Info().Err(err).Str("key", key).Msg("mutation rejected, rolled back")
		l.notify(Event{Kind: EventRolledBack, Resource: l.name, Key: key, Err: err})
		return err
	}

	l.notify(Event{Kind: EventConfirmed, Resource: l.name, Key: key})
	return nil
}

func indexOf[T Keyed](items []T, key string) int {
	return slices.IndexFunc(items, func(item T) bool {
		return item.ListKey() == key
	})
}
