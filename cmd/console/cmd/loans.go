package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/jrsteele09/mfi-console/resources"
	"github.com/spf13/cobra"
)

func newLoansCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Review and act on loans",
	}
	cmd.AddCommand(
		newLoansListCmd(),
		newLoanStatusCmd("approve", "Approve a pending loan", resources.LoanApproved),
		newLoanStatusCmd("reject", "Reject a pending loan", resources.LoanRejected),
		newLoanStatusCmd("disburse", "Mark an approved loan as disbursed", resources.LoanDisbursed),
		newLoanStatusCmd("repaid", "Mark a disbursed loan as repaid", resources.LoanRepaid),
		newLoanStatusCmd("default", "Mark a disbursed loan as defaulted", resources.LoanDefaulted),
	)
	return cmd
}

func newLoansListCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List loans in scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			return guarded(cmd, identity.CapViewOwnLoans, func(ctx context.Context, _ identity.Identity) error {
				app := MustAppFromContext(ctx)
				if err := app.Workspace.Loans.Refetch(ctx, identity.ID(app.Group)); err != nil {
					return err
				}

				var rows [][]string
				for _, l := range app.Workspace.Loans.Items() {
					if status != "" && string(l.Status) != status {
						continue
					}
					rows = append(rows, []string{
						l.ID.String(), orDash(l.MemberName), l.GroupID.String(), money(l.Amount),
						strconv.Itoa(l.TermMonths), string(l.Status), orDash(l.Purpose), date(l.AppliedAt),
					})
				}
				return renderTable([]string{"ID", "MEMBER", "GROUP", "AMOUNT", "TERM", "STATUS", "PURPOSE", "APPLIED"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only show loans with this status")
	return cmd
}

func newLoanStatusCmd(use, short string, status resources.LoanStatus) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   use + " LOAN_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			capability, _ := resources.LoanCapability(status)
			return guarded(cmd, capability, func(ctx context.Context, _ identity.Identity) error {
				app := MustAppFromContext(ctx)
				if app.Interactive && !yes {
					ok, err := confirm(fmt.Sprintf("Set loan %s to %s?", args[0], status))
					if err != nil || !ok {
						return err
					}
				}
				if err := app.Workspace.Loans.Refetch(ctx, identity.ID(app.Group)); err != nil {
					return err
				}
				return app.Workspace.SetLoanStatus(ctx, identity.ID(args[0]), status)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
