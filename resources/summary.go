package resources

// Summary is the dashboard's headline figures.
type Summary struct {
	PendingLoans        int
	ActiveLoans         int
	OutstandingLoanBook float64
	SavingsBalance      float64
	PendingTransactions int
	UnreadNotifications int
	Members             int
}

// Summarize computes the dashboard figures from the workspace's current
// items.
func (w *Workspace) Summarize() Summary {
	var s Summary
	for _, l := range w.Loans.Items() {
		switch l.Status {
		case LoanPending:
			s.PendingLoans++
		case LoanApproved, LoanDisbursed:
			s.ActiveLoans++
			s.OutstandingLoanBook += l.Amount
		}
	}
	for _, a := range w.Savings.Items() {
		s.SavingsBalance += a.Balance
	}
	for _, t := range w.Transactions.Items() {
		if t.Status == TxPending {
			s.PendingTransactions++
		}
	}
	for _, n := range w.Notifications.Items() {
		if !n.Read {
			s.UnreadNotifications++
		}
	}
	s.Members = len(w.Members.Items())
	return s
}
