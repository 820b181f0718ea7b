package cmd

import (
	"context"
	"strconv"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Headline figures for the groups in scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			return guarded(cmd, identity.CapViewDashboard, func(ctx context.Context, id identity.Identity) error {
				app := MustAppFromContext(ctx)
				// Lists that failed keep their previous (empty) items and have
				// already been reported through the event printer.
				_ = app.Workspace.RefreshDashboard(ctx, identity.ID(app.Group))

				s := app.Workspace.Summarize()
				pterm.DefaultSection.Printf("Welcome, %s\n", id.DisplayName())
				return renderTable([]string{"FIGURE", "VALUE"}, [][]string{
					{"Pending loans", strconv.Itoa(s.PendingLoans)},
					{"Active loans", strconv.Itoa(s.ActiveLoans)},
					{"Outstanding loan book", money(s.OutstandingLoanBook)},
					{"Savings balance", money(s.SavingsBalance)},
					{"Pending transactions", strconv.Itoa(s.PendingTransactions)},
					{"Unread notifications", strconv.Itoa(s.UnreadNotifications)},
					{"Members", strconv.Itoa(s.Members)},
				})
			})
		},
	}
}
