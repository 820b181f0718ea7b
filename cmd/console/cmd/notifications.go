package cmd

import (
	"context"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/spf13/cobra"
)

func newNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notifications",
		Short: "Notifications",
	}
	cmd.AddCommand(
		newNotificationsListCmd(),
		newNotificationReadCmd("read", "Mark a notification as read", true),
		newNotificationReadCmd("unread", "Mark a notification as unread", false),
	)
	return cmd
}

func newNotificationsListCmd() *cobra.Command {
	var unread bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications",
		RunE: func(cmd *cobra.Command, args []string) error {
			return guarded(cmd, identity.CapViewNotifications, func(ctx context.Context, _ identity.Identity) error {
				app := MustAppFromContext(ctx)
				if err := app.Workspace.Notifications.Refetch(ctx, identity.ID(app.Group)); err != nil {
					return err
				}

				var rows [][]string
				for _, n := range app.Workspace.Notifications.Items() {
					if unread && n.Read {
						continue
					}
					state := "unread"
					if n.Read {
						state = "read"
					}
					rows = append(rows, []string{n.ID.String(), state, n.Title, n.Message, date(n.CreatedAt)})
				}
				return renderTable([]string{"ID", "STATE", "TITLE", "MESSAGE", "CREATED"}, rows)
			})
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only show unread notifications")
	return cmd
}

func newNotificationReadCmd(use, short string, read bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NOTIFICATION_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return guarded(cmd, identity.CapViewNotifications, func(ctx context.Context, _ identity.Identity) error {
				app := MustAppFromContext(ctx)
				if err := app.Workspace.Notifications.Refetch(ctx, identity.ID(app.Group)); err != nil {
					return err
				}
				return app.Workspace.SetRead(ctx, identity.ID(args[0]), read)
			})
		},
	}
}
