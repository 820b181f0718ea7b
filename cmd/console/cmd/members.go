package cmd

import (
	"context"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/spf13/cobra"
)

func newMembersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Group members",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List members of the groups in scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			return guarded(cmd, identity.CapViewMembers, func(ctx context.Context, _ identity.Identity) error {
				app := MustAppFromContext(ctx)
				if err := app.Workspace.Members.Refetch(ctx, identity.ID(app.Group)); err != nil {
					return err
				}

				var rows [][]string
				for _, m := range app.Workspace.Members.Items() {
					rows = append(rows, []string{
						m.ID.String(), m.Name, orDash(m.Email), orDash(m.Phone), m.Role.String(), m.GroupID.String(), date(m.JoinedAt),
					})
				}
				return renderTable([]string{"ID", "NAME", "EMAIL", "PHONE", "ROLE", "GROUP", "JOINED"}, rows)
			})
		},
	})
	return cmd
}
