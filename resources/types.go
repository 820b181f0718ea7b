// Package resources holds the microfinance records the console lists and
// the scoped, optimistically mutated lists built on them.
package resources

import (
	"time"

	"github.com/jrsteele09/mfi-console/identity"
)

type LoanStatus string

const (
	LoanPending   LoanStatus = "pending"
	LoanApproved  LoanStatus = "approved"
	LoanRejected  LoanStatus = "rejected"
	LoanDisbursed LoanStatus = "disbursed"
	LoanRepaid    LoanStatus = "repaid"
	LoanDefaulted LoanStatus = "defaulted"
)

type Loan struct {
	ID           identity.ID `json:"id"`
	MemberID     identity.ID `json:"member_id"`
	MemberName   string      `json:"member_name,omitempty"`
	GroupID      identity.ID `json:"group_id"`
	Amount       float64     `json:"amount"`
	InterestRate float64     `json:"interest_rate,omitempty"`
	TermMonths   int         `json:"term_months,omitempty"`
	Purpose      string      `json:"purpose,omitempty"`
	Status       LoanStatus  `json:"status"`
	AppliedAt    time.Time   `json:"applied_at"`
	UpdatedAt    time.Time   `json:"updated_at,omitempty"`
}

func (l Loan) ListKey() string { return l.ID.String() }

type SavingsAccount struct {
	ID            identity.ID `json:"id"`
	MemberID      identity.ID `json:"member_id"`
	MemberName    string      `json:"member_name,omitempty"`
	GroupID       identity.ID `json:"group_id"`
	AccountNumber string      `json:"account_number"`
	Balance       float64     `json:"balance"`
	Status        string      `json:"status,omitempty"`
	OpenedAt      time.Time   `json:"opened_at"`
}

func (s SavingsAccount) ListKey() string { return s.ID.String() }

type TransactionType string

const (
	TxDeposit          TransactionType = "deposit"
	TxWithdrawal       TransactionType = "withdrawal"
	TxLoanDisbursement TransactionType = "loan_disbursement"
	TxLoanRepayment    TransactionType = "loan_repayment"
)

type TransactionStatus string

const (
	TxPending   TransactionStatus = "pending"
	TxCompleted TransactionStatus = "completed"
	TxFailed    TransactionStatus = "failed"
	TxCancelled TransactionStatus = "cancelled"
)

type Transaction struct {
	ID         identity.ID       `json:"id"`
	MemberID   identity.ID       `json:"member_id"`
	MemberName string            `json:"member_name,omitempty"`
	GroupID    identity.ID       `json:"group_id"`
	Type       TransactionType   `json:"type"`
	Amount     float64           `json:"amount"`
	Status     TransactionStatus `json:"status"`
	Reference  string            `json:"reference,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

func (t Transaction) ListKey() string { return t.ID.String() }

type Notification struct {
	ID        identity.ID `json:"id"`
	GroupID   identity.ID `json:"group_id,omitempty"`
	Title     string      `json:"title"`
	Message   string      `json:"message"`
	Type      string      `json:"type,omitempty"`
	Read      bool        `json:"read"`
	CreatedAt time.Time   `json:"created_at"`
}

func (n Notification) ListKey() string { return n.ID.String() }

type Member struct {
	ID       identity.ID   `json:"id"`
	Name     string        `json:"name"`
	Email    string        `json:"email,omitempty"`
	Phone    string        `json:"phone,omitempty"`
	Role     identity.Role `json:"role"`
	GroupID  identity.ID   `json:"group_id"`
	Status   string        `json:"status,omitempty"`
	JoinedAt time.Time     `json:"joined_at"`
}

func (m Member) ListKey() string { return m.ID.String() }

type Group struct {
	ID          identity.ID `json:"id"`
	Name        string      `json:"name"`
	Location    string      `json:"location,omitempty"`
	LeaderID    identity.ID `json:"leader_id,omitempty"`
	MemberCount int         `json:"member_count,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

func (g Group) ListKey() string { return g.ID.String() }
