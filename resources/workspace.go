package resources

import (
	"context"
	"fmt"

	"github.com/jrsteele09/mfi-console/fetch"
	"github.com/jrsteele09/mfi-console/identity"
)

// Authorizer answers capability checks for the current session.
// authstate.Controller satisfies it.
type Authorizer interface {
	Authorize(capability identity.Capability) error
}

func NewLoans(c *Client, r fetch.Resolver, opts ...fetch.ListOption[Loan]) *fetch.List[Loan] {
	return fetch.NewList("loans", r, c.ListLoans, opts...)
}

func NewSavings(c *Client, r fetch.Resolver, opts ...fetch.ListOption[SavingsAccount]) *fetch.List[SavingsAccount] {
	return fetch.NewList("savings", r, c.ListSavings, opts...)
}

func NewTransactions(c *Client, r fetch.Resolver, opts ...fetch.ListOption[Transaction]) *fetch.List[Transaction] {
	return fetch.NewList("transactions", r, c.ListTransactions, opts...)
}

func NewNotifications(c *Client, r fetch.Resolver, opts ...fetch.ListOption[Notification]) *fetch.List[Notification] {
	return fetch.NewList("notifications", r, c.ListNotifications, opts...)
}

func NewMembers(c *Client, r fetch.Resolver, opts ...fetch.ListOption[Member]) *fetch.List[Member] {
	return fetch.NewList("members", r, c.ListMembers, opts...)
}

// Workspace bundles one list per resource with the actions views invoke on
// them.
type Workspace struct {
	client *Client
	authz  Authorizer

	Loans         *fetch.List[Loan]
	Savings       *fetch.List[SavingsAccount]
	Transactions  *fetch.List[Transaction]
	Notifications *fetch.List[Notification]
	Members       *fetch.List[Member]
}

func NewWorkspace(client *Client, resolver fetch.Resolver, authz Authorizer, notifier fetch.Notifier) *Workspace {
	if notifier == nil {
		notifier = func(fetch.Event) {}
	}
	return &Workspace{
		client:        client,
		authz:         authz,
		Loans:         NewLoans(client, resolver, fetch.WithNotifier[Loan](notifier)),
		Savings:       NewSavings(client, resolver, fetch.WithNotifier[SavingsAccount](notifier)),
		Transactions:  NewTransactions(client, resolver, fetch.WithNotifier[Transaction](notifier)),
		Notifications: NewNotifications(client, resolver, fetch.WithNotifier[Notification](notifier)),
		Members:       NewMembers(client, resolver, fetch.WithNotifier[Member](notifier)),
	}
}

// RefreshDashboard loads every list the identity may view.
func (w *Workspace) RefreshDashboard(ctx context.Context, selection identity.ID) error {
	var lists []fetch.Refetcher
	if w.authz.Authorize(identity.CapViewOwnLoans) == nil || w.authz.Authorize(identity.CapViewGroupLoans) == nil {
		lists = append(lists, w.Loans)
	}
	if w.authz.Authorize(identity.CapViewSavings) == nil {
		lists = append(lists, w.Savings)
	}
	if w.authz.Authorize(identity.CapViewTransactions) == nil {
		lists = append(lists, w.Transactions)
	}
	if w.authz.Authorize(identity.CapViewNotifications) == nil {
		lists = append(lists, w.Notifications)
	}
	if w.authz.Authorize(identity.CapViewMembers) == nil {
		lists = append(lists, w.Members)
	}
	return fetch.RefreshAll(ctx, selection, lists...)
}

// MarkRead marks a notification read.
func (w *Workspace) MarkRead(ctx context.Context, id identity.ID) error {
	return w.SetRead(ctx, id, true)
}

func (w *Workspace) MarkUnread(ctx context.Context, id identity.ID) error {
	return w.SetRead(ctx, id, false)
}

func (w *Workspace) SetRead(ctx context.Context, id identity.ID, read bool) error {
	if err := w.authz.Authorize(identity.CapViewNotifications); err != nil {
		return err
	}
	return w.Notifications.Mutate(ctx, id.String(), fetch.Mutation[Notification]{
		Apply: func(n Notification) Notification {
			n.Read = read
			return n
		},
		Commit: func(ctx context.Context, n Notification) error {
			_, err := w.client.SetNotificationRead(ctx, n.ID, n.Read)
			return err
		},
	})
}

// SetTransactionStatus moves a pending transaction to a final status.
func (w *Workspace) SetTransactionStatus(ctx context.Context, id identity.ID, status TransactionStatus) error {
	if err := w.authz.Authorize(identity.CapApproveTransactions); err != nil {
		return err
	}
	return w.Transactions.Mutate(ctx, id.String(), fetch.Mutation[Transaction]{
		Check: func(t Transaction) error {
			return checkTransactionTransition(t.Status, status)
		},
		Apply: func(t Transaction) Transaction {
			t.Status = status
			return t
		},
		Commit: func(ctx context.Context, t Transaction) error {
			_, err := w.client.UpdateTransactionStatus(ctx, t.ID, t.Status)
			return err
		},
	})
}

// SetLoanStatus moves a loan along its lifecycle.
func (w *Workspace) SetLoanStatus(ctx context.Context, id identity.ID, status LoanStatus) error {
	capability, ok := LoanCapability(status)
	if !ok {
		return fmt.Errorf("loan status %s cannot be set directly: %w", status, checkLoanTransition(LoanPending, status))
	}
	if err := w.authz.Authorize(capability); err != nil {
		return err
	}
	return w.Loans.Mutate(ctx, id.String(), fetch.Mutation[Loan]{
		Check: func(l Loan) error {
			return checkLoanTransition(l.Status, status)
		},
		Apply: func(l Loan) Loan {
			l.Status = status
			return l
		},
		Commit: func(ctx context.Context, l Loan) error {
			_, err := w.client.UpdateLoanStatus(ctx, l.ID, l.Status)
			return err
		},
	})
}
