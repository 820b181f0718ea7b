package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/jrsteele09/mfi-console/fetch"
	"github.com/jrsteele09/mfi-console/identity"
	"github.com/jrsteele09/mfi-console/internal/apiclient"
)

const (
	LoansPath         = "/loans"
	SavingsPath       = "/savings"
	TransactionsPath  = "/transactions"
	NotificationsPath = "/notifications"
	MembersPath       = "/members"
	MyGroupsPath      = "/groups/mine"
)

var _ fetch.MembershipSource = (*Client)(nil)

// Client wraps the resource list and mutation endpoints.
type Client struct {
	api *apiclient.Client
}

func NewClient(api *apiclient.Client) *Client {
	return &Client{api: api}
}

func (c *Client) ListLoans(ctx context.Context, scope fetch.Scope) ([]Loan, error) {
	return list[Loan](ctx, c.api, LoansPath, scope.Query())
}

func (c *Client) ListSavings(ctx context.Context, scope fetch.Scope) ([]SavingsAccount, error) {
	return list[SavingsAccount](ctx, c.api, SavingsPath, scope.Query())
}

func (c *Client) ListTransactions(ctx context.Context, scope fetch.Scope) ([]Transaction, error) {
	return list[Transaction](ctx, c.api, TransactionsPath, scope.Query())
}

func (c *Client) ListNotifications(ctx context.Context, scope fetch.Scope) ([]Notification, error) {
	return list[Notification](ctx, c.api, NotificationsPath, scope.Query())
}

func (c *Client) ListMembers(ctx context.Context, scope fetch.Scope) ([]Member, error) {
	return list[Member](ctx, c.api, MembersPath, scope.Query())
}

// MyGroups returns the caller's own groups in server order.
func (c *Client) MyGroups(ctx context.Context) ([]identity.GroupMembership, error) {
	groups, err := list[Group](ctx, c.api, MyGroupsPath, nil)
	if err != nil {
		return nil, err
	}
	memberships := make([]identity.GroupMembership, 0, len(groups))
	for _, g := range groups {
		memberships = append(memberships, identity.GroupMembership{GroupID: g.ID, GroupName: g.Name})
	}
	return memberships, nil
}

func (c *Client) UpdateLoanStatus(ctx context.Context, id identity.ID, status LoanStatus) (Loan, error) {
	var out Loan
	err := c.api.Patch(ctx, itemPath(LoansPath, id, "status"), map[string]LoanStatus{"status": status}, &out)
	return out, err
}

func (c *Client) UpdateTransactionStatus(ctx context.Context, id identity.ID, status TransactionStatus) (Transaction, error) {
	var out Transaction
	err := c.api.Patch(ctx, itemPath(TransactionsPath, id, "status"), map[string]TransactionStatus{"status": status}, &out)
	return out, err
}

func (c *Client) SetNotificationRead(ctx context.Context, id identity.ID, read bool) (Notification, error) {
	var out Notification
	err := c.api.Patch(ctx, itemPath(NotificationsPath, id, "read"), map[string]bool{"read": read}, &out)
	return out, err
}

func itemPath(base string, id identity.ID, action string) string {
	return fmt.Sprintf("%s/%s/%s", base, url.PathEscape(id.String()), action)
}

// list decodes either a bare array or an envelope of the form
// {"data": [...]}.
func list[T any](ctx context.Context, api *apiclient.Client, path string, query url.Values) ([]T, error) {
	var raw json.RawMessage
	if err := api.Get(ctx, path, query, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal(raw, &items); err == nil {
		return items, nil
	}
	var envelope struct {
		Data []T `json:"data"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return envelope.Data, nil
}
