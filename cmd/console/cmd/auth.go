package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/jrsteele09/mfi-console/internal/utils"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustAppFromContext(cmd.Context())
			if app.Interactive {
				if err := promptCredentials(&email, &password); err != nil {
					return err
				}
			}

			id, err := app.Controller.Login(cmd.Context(), identity.Credentials{Email: email, Password: password})
			if err != nil {
				return err
			}
			pterm.Success.Printf("Signed in as %s (%s)\n", id.DisplayName(), id.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newRegisterCmd() *cobra.Command {
	var reg identity.Registration

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a member account",
		Long:  `Creates a member account. Registration does not sign you in; run login afterwards.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustAppFromContext(cmd.Context())
			if app.Interactive && reg.Password == "" {
				if err := promptRegistration(&reg.Name, &reg.Email, &reg.Password, &reg.Phone); err != nil {
					return err
				}
			}

			if err := app.Controller.Register(cmd.Context(), reg); err != nil {
				return err
			}
			pterm.Success.Println("Account created. Sign in with `mfi-console login`.")
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.Name, "name", "", "full name")
	cmd.Flags().StringVar(&reg.Email, "email", "", "email address")
	cmd.Flags().StringVar(&reg.Password, "password", "", "password")
	cmd.Flags().StringVar(&reg.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&reg.Address, "address", "", "postal address")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Long:  `Signs out locally straight away and tells the server in the background.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app := MustAppFromContext(cmd.Context())
			app.Controller.Logout(cmd.Context())
			pterm.Success.Println("Signed out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return guarded(cmd, "", func(ctx context.Context, id identity.Identity) error {
				pterm.DefaultSection.Println(id.DisplayName())
				rows := [][]string{
					{"ID", id.ID.String()},
					{"Email", orDash(id.Email)},
					{"Role", id.Role.String()},
					{"Phone", orDash(id.Phone)},
					{"Address", orDash(id.Address)},
					{"Groups", orDash(groupNames(id))},
				}
				if err := renderTable([]string{"FIELD", "VALUE"}, rows); err != nil {
					return err
				}

				caps := identity.RoleCapabilities(id.Role)
				names := make([]string, 0, len(caps))
				for _, c := range caps {
					names = append(names, string(c))
				}
				pterm.Info.Printf("Capabilities: %s\n", strings.Join(names, ", "))
				return nil
			})
		},
	}
}

func newProfileCmd() *cobra.Command {
	var name, phone, address, avatar string

	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Update your profile",
		Long:  `Updates only the fields whose flags are given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			patch := identity.ProfilePatch{
				Name:    utils.PtrIf(flags.Changed("name"), name),
				Phone:   utils.PtrIf(flags.Changed("phone"), phone),
				Address: utils.PtrIf(flags.Changed("address"), address),
				Avatar:  utils.PtrIf(flags.Changed("avatar"), avatar),
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update: pass at least one of --name, --phone, --address, --avatar")
			}

			return guarded(cmd, "", func(ctx context.Context, _ identity.Identity) error {
				id, err := MustAppFromContext(ctx).Controller.UpdateProfile(ctx, patch)
				if err != nil {
					return err
				}
				pterm.Success.Printf("Profile updated for %s\n", id.DisplayName())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&address, "address", "", "postal address")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar URL")
	return cmd
}

func groupNames(id identity.Identity) string {
	names := make([]string, 0, len(id.Groups))
	for _, g := range id.Groups {
		if g.GroupName != "" {
			names = append(names, fmt.Sprintf("%s (%s)", g.GroupName, g.GroupID))
		} else {
			names = append(names, g.GroupID.String())
		}
	}
	return strings.Join(names, ", ")
}
