package fetch

import (
	"context"

	"github.com/jrsteele09/mfi-console/identity"
	"golang.org/x/sync/errgroup"
)

type EventKind string

const (
	EventFetched     EventKind = "fetched"
	EventFetchFailed EventKind = "fetch_failed"
	EventApplied     EventKind = "applied"
	EventConfirmed   EventKind = "confirmed"
	EventRolledBack  EventKind = "rolled_back"
)

// Event reports list activity to the view, typically as a toast.
type Event struct {
	Kind     EventKind
	Resource string
	Key      string
	Count    int
	Err      error
}

// Failed reports whether the event should be shown as a failure.
func (e Event) Failed() bool {
	return e.Kind == EventFetchFailed || e.Kind == EventRolledBack
}

// Notifier receives list events. It is called synchronously.
type Notifier func(Event)

// Refetcher is satisfied by every *List[T].
type Refetcher interface {
	Name() string
	Refetch(ctx context.Context, selection identity.ID) error
}

// RefreshAll refetches independent lists concurrently. A failing list does
// not cancel the others; the first error is returned once all have finished.
func RefreshAll(ctx context.Context, selection identity.ID, lists ...Refetcher) error {
	var g errgroup.Group
	for _, l := range lists {
		g.Go(func() error {
			return l.Refetch(ctx, selection)
		})
	}
	return g.Wait()
}
