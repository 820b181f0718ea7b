package cmd

import (
	"context"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/spf13/cobra"
)

func newSavingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "savings",
		Short: "Savings accounts",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List savings accounts in scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			return guarded(cmd, identity.CapViewSavings, func(ctx context.Context, _ identity.Identity) error {
				app := MustAppFromContext(ctx)
				if err := app.Workspace.Savings.Refetch(ctx, identity.ID(app.Group)); err != nil {
					return err
				}

				var rows [][]string
				for _, a := range app.Workspace.Savings.Items() {
					rows = append(rows, []string{
						a.ID.String(), a.AccountNumber, orDash(a.MemberName), a.GroupID.String(),
						money(a.Balance), orDash(a.Status), date(a.OpenedAt),
					})
				}
				return renderTable([]string{"ID", "ACCOUNT", "MEMBER", "GROUP", "BALANCE", "STATUS", "OPENED"}, rows)
			})
		},
	})
	return cmd
}
