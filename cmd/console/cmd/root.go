package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/mfi-console/guard"
	"github.com/jrsteele09/mfi-console/identity"
	"github.com/jrsteele09/mfi-console/internal/config"
	apperrors "github.com/jrsteele09/mfi-console/internal/errors"
	"github.com/jrsteele09/mfi-console/internal/logging"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

const nonInteractiveEnvVar = "MFI_NON_INTERACTIVE"

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	var (
		configPath     string
		nonInteractive bool
		group          string
	)

	root := &cobra.Command{
		Use:   "mfi-console",
		Short: "Microfinance operations console",
		Long: `mfi-console signs staff and members in to the microfinance API and lets
them review and act on loans, savings, transactions, notifications and members
for the groups they can see.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logging.New(cfg.App.LogLevel, cfg.App.Env)

			app, err := NewApp(cfg)
			if err != nil {
				return err
			}
			if os.Getenv(nonInteractiveEnvVar) == "1" {
				nonInteractive = true
			}
			app.Interactive = !nonInteractive && isInteractive()
			app.Group = group

			app.Controller.Bootstrap(cmd.Context())
			cmd.SetContext(InjectApp(cmd.Context(), app))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			app, ok := AppFromContext(cmd.Context())
			if !ok {
				return nil
			}
			// Let a background logout reach the server before the process exits.
			ctx, cancel := context.WithTimeout(context.Background(), app.Config.Client.LogoutTimeout+time.Second)
			defer cancel()
			if err := app.Controller.Wait(ctx); err != nil {
				pterm.Warning.Println("Sign-out could not be confirmed with the server")
			}
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			displayAppname(MustAppFromContext(cmd.Context()).Config.App.Name)
			_ = cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "disable interactive prompts (also set via "+nonInteractiveEnvVar+"=1)")
	root.PersistentFlags().StringVar(&group, "group", "", "group to scope lists to (staff only)")

	root.AddCommand(
		newLoginCmd(),
		newRegisterCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newProfileCmd(),
		newDashboardCmd(),
		newLoansCmd(),
		newSavingsCmd(),
		newTransactionsCmd(),
		newNotificationsCmd(),
		newMembersCmd(),
	)
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		pterm.Error.Println(errorMessage(err))
		stop()
		os.Exit(1)
	}
}

// guarded runs view behind the session guard, additionally requiring
// capability when it is not empty.
func guarded(cmd *cobra.Command, capability identity.Capability, view guard.View) error {
	app := MustAppFromContext(cmd.Context())
	gated := app.Guard.Wrap(view)
	if capability != "" {
		gated = app.Guard.RequirePermission(view, capability)
	}
	return gated(cmd.Context(), identity.Identity{})
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, guard.ErrLoginRequired):
		return "You are not signed in. Run `mfi-console login` first."
	case errors.Is(err, guard.ErrUnresolved):
		return "Your session is still being restored, try again."
	case errors.Is(err, apperrors.ErrNoDefaultGroup):
		return "You do not belong to any group yet. Pass --group to choose one."
	}
	var nae *apperrors.NotAuthorizedError
	if errors.As(err, &nae) {
		return fmt.Sprintf("You do not have access to this (%s).", nae.Error())
	}
	return apperrors.UserMessage(err)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
