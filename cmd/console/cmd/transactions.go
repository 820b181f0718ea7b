package cmd

import (
	"context"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/jrsteele09/mfi-console/resources"
	"github.com/spf13/cobra"
)

func newTransactionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "Transactions",
	}
	cmd.AddCommand(newTransactionsListCmd(), newTransactionStatusCmd())
	return cmd
}

func newTransactionsListCmd() *cobra.Command {
	var pending bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions in scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			return guarded(cmd, identity.CapViewTransactions, func(ctx context.Context, _ identity.Identity) error {
				app := MustAppFromContext(ctx)
				if err := app.Workspace.Transactions.Refetch(ctx, identity.ID(app.Group)); err != nil {
					return err
				}

				var rows [][]string
				for _, t := range app.Workspace.Transactions.Items() {
					if pending && t.Status != resources.TxPending {
						continue
					}
					rows = append(rows, []string{
						t.ID.String(), string(t.Type), orDash(t.MemberName), t.GroupID.String(),
						money(t.Amount), string(t.Status), orDash(t.Reference), date(t.CreatedAt),
					})
				}
				return renderTable([]string{"ID", "TYPE", "MEMBER", "GROUP", "AMOUNT", "STATUS", "REFERENCE", "CREATED"}, rows)
			})
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only show pending transactions")
	return cmd
}

func newTransactionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-status TRANSACTION_ID STATUS",
		Short: "Settle a pending transaction (completed, failed or cancelled)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := resources.ParseTransactionStatus(args[1])
			if err != nil {
				return err
			}
			return guarded(cmd, identity.CapApproveTransactions, func(ctx context.Context, _ identity.Identity) error {
				app := MustAppFromContext(ctx)
				if err := app.Workspace.Transactions.Refetch(ctx, identity.ID(app.Group)); err != nil {
					return err
				}
				return app.Workspace.SetTransactionStatus(ctx, identity.ID(args[0]), status)
			})
		},
	}
}
