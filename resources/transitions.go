package resources

import (
	"fmt"
	"slices"

	"github.com/jrsteele09/mfi-console/identity"
	apperrors "github.com/jrsteele09/mfi-console/internal/errors"
)

var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanPending:   {LoanApproved, LoanRejected},
	LoanApproved:  {LoanDisbursed},
	LoanDisbursed: {LoanRepaid, LoanDefaulted},
}

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TxPending: {TxCompleted, TxFailed, TxCancelled},
}

// loanCapabilities names what a caller must hold to move a loan into a
// status.
var loanCapabilities = map[LoanStatus]identity.Capability{
	LoanApproved:  identity.CapApproveLoans,
	LoanRejected:  identity.CapApproveLoans,
	LoanDisbursed: identity.CapDisburseLoans,
	LoanRepaid:    identity.CapApproveLoans,
	LoanDefaulted: identity.CapApproveLoans,
}

func LoanStatuses() []LoanStatus {
	return []LoanStatus{LoanPending, LoanApproved, LoanRejected, LoanDisbursed, LoanRepaid, LoanDefaulted}
}

func TransactionStatuses() []TransactionStatus {
	return []TransactionStatus{TxPending, TxCompleted, TxFailed, TxCancelled}
}

func ParseLoanStatus(s string) (LoanStatus, error) {
	st := LoanStatus(s)
	if !slices.Contains(LoanStatuses(), st) {
		return "", fmt.Errorf("%w: unknown loan status %q", apperrors.ErrInvalidInput, s)
	}
	return st, nil
}

func ParseTransactionStatus(s string) (TransactionStatus, error) {
	st := TransactionStatus(s)
	if !slices.Contains(TransactionStatuses(), st) {
		return "", fmt.Errorf("%w: unknown transaction status %q", apperrors.ErrInvalidInput, s)
	}
	return st, nil
}

// CanTransitionLoan reports whether a loan may move from one status to
// another.
func CanTransitionLoan(from, to LoanStatus) bool {
	return slices.Contains(loanTransitions[from], to)
}

func CanTransitionTransaction(from, to TransactionStatus) bool {
	return slices.Contains(transactionTransitions[from], to)
}

func checkLoanTransition(from, to LoanStatus) error {
	if !CanTransitionLoan(from, to) {
		return fmt.Errorf("%w: loan cannot move from %s to %s", apperrors.ErrInvalidStatus, from, to)
	}
	return nil
}

func checkTransactionTransition(from, to TransactionStatus) error {
	if !CanTransitionTransaction(from, to) {
		return fmt.Errorf("%w: transaction cannot move from %s to %s", apperrors.ErrInvalidStatus, from, to)
	}
	return nil
}

// LoanCapability returns the capability needed to set a loan to status.
func LoanCapability(status LoanStatus) (identity.Capability, bool) {
	c, ok := loanCapabilities[status]
	return c, ok
}
