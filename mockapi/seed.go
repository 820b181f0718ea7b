package mockapi

import (
	"time"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/jrsteele09/mfi-console/resources"
)

// SeedPassword is the password of every seeded account.
const SeedPassword = "Passw0rd!"

// Seeded account ids.
const (
	SeedAdminID   identity.ID = "1"
	SeedOfficerID identity.ID = "2"
	SeedLeaderID  identity.ID = "3"
	SeedMemberID  identity.ID = "4"

	SeedGroupNorth identity.ID = "G1"
	SeedGroupSouth identity.ID = "G2"
)

// Seed fills store with a small demo data set: two savings groups, one
// account per role and some records in each group.
func Seed(store *Store) error {
	joined := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)

	store.AddGroup(resources.Group{ID: SeedGroupNorth, Name: "Umoja Women Group", Location: "Kisumu", LeaderID: SeedLeaderID, CreatedAt: joined})
	store.AddGroup(resources.Group{ID: SeedGroupSouth, Name: "Harambee Traders", Location: "Mombasa", CreatedAt: joined})

	accounts := []struct {
		id     identity.Identity
		groups []identity.ID
	}{
		{identity.Identity{ID: SeedAdminID, Name: "Amina Admin", Email: "admin@example.com", Role: identity.RoleAdmin}, []identity.ID{SeedGroupNorth, SeedGroupSouth}},
		{identity.Identity{ID: SeedOfficerID, Name: "Otieno Officer", Email: "officer@example.com", Role: identity.RoleOfficer}, []identity.ID{SeedGroupSouth, SeedGroupNorth}},
		{identity.Identity{ID: SeedLeaderID, Name: "Lila Leader", Email: "leader@example.com", Role: identity.RoleLeader, Phone: "+254700000003"}, []identity.ID{SeedGroupNorth}},
		{identity.Identity{ID: SeedMemberID, Name: "Musa Member", Email: "member@example.com", Role: identity.RoleMember, Phone: "+254700000004"}, []identity.ID{SeedGroupNorth}},
	}
	for _, a := range accounts {
		if _, err := store.AddUser(a.id, SeedPassword); err != nil {
			return err
		}
		for _, g := range a.groups {
			if err := store.Join(a.id.ID, g, joined); err != nil {
				return err
			}
		}
	}

	applied := joined.AddDate(0, 2, 0)
	store.AddLoan(resources.Loan{ID: "L1", MemberID: SeedMemberID, MemberName: "Musa Member", GroupID: SeedGroupNorth, Amount: 50000, InterestRate: 12, TermMonths: 12, Purpose: "Stock for kiosk", Status: resources.LoanPending, AppliedAt: applied})
	store.AddLoan(resources.Loan{ID: "L2", MemberID: SeedLeaderID, MemberName: "Lila Leader", GroupID: SeedGroupNorth, Amount: 120000, InterestRate: 10, TermMonths: 18, Purpose: "Poultry house", Status: resources.LoanApproved, AppliedAt: applied})
	store.AddLoan(resources.Loan{ID: "L3", MemberID: SeedOfficerID, MemberName: "Otieno Officer", GroupID: SeedGroupSouth, Amount: 30000, InterestRate: 12, TermMonths: 6, Purpose: "School fees", Status: resources.LoanDisbursed, AppliedAt: applied})

	store.AddSavings(resources.SavingsAccount{ID: "S1", MemberID: SeedMemberID, MemberName: "Musa Member", GroupID: SeedGroupNorth, AccountNumber: "SAV-0001", Balance: 15250.50, Status: "active", OpenedAt: joined})
	store.AddSavings(resources.SavingsAccount{ID: "S2", MemberID: SeedLeaderID, MemberName: "Lila Leader", GroupID: SeedGroupNorth, AccountNumber: "SAV-0002", Balance: 48000, Status: "active", OpenedAt: joined})
	store.AddSavings(resources.SavingsAccount{ID: "S3", MemberID: SeedOfficerID, MemberName: "Otieno Officer", GroupID: SeedGroupSouth, AccountNumber: "SAV-0003", Balance: 9000, Status: "active", OpenedAt: joined})

	store.AddTransaction(resources.Transaction{ID: "T1", MemberID: SeedMemberID, MemberName: "Musa Member", GroupID: SeedGroupNorth, Type: resources.TxDeposit, Amount: 2500, Status: resources.TxPending, Reference: "MPESA-QX1", CreatedAt: applied})
	store.AddTransaction(resources.Transaction{ID: "T2", MemberID: SeedLeaderID, MemberName: "Lila Leader", GroupID: SeedGroupNorth, Type: resources.TxWithdrawal, Amount: 1000, Status: resources.TxCompleted, Reference: "CASH-0192", CreatedAt: applied})
	store.AddTransaction(resources.Transaction{ID: "T3", MemberID: SeedOfficerID, MemberName: "Otieno Officer", GroupID: SeedGroupSouth, Type: resources.TxLoanRepayment, Amount: 5000, Status: resources.TxPending, Reference: "MPESA-RT7", CreatedAt: applied})

	store.AddNotification(resources.Notification{ID: "N1", GroupID: SeedGroupNorth, Title: "Meeting moved", Message: "This week's meeting is on Thursday.", Type: "info", CreatedAt: applied})
	store.AddNotification(resources.Notification{ID: "N2", GroupID: SeedGroupSouth, Title: "Repayment due", Message: "Repayments are due on the 5th.", Type: "reminder", CreatedAt: applied})
	store.AddNotification(resources.Notification{ID: "N3", Title: "System maintenance", Message: "The service will be briefly unavailable on Sunday night.", Type: "system", CreatedAt: applied})
	return nil
}
