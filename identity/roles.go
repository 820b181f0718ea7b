package identity

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// Role is one of the closed set of console roles.
type Role string

const (
	RoleMember  Role = "member"  // Borrower/saver, sees only their own groups
	RoleLeader  Role = "leader"  // Group leader, sees their own groups and can record transactions
	RoleOfficer Role = "officer" // Loan officer, staff-tier
	RoleAdmin   Role = "admin"   // Implicitly granted every capability
)

var roles = []Role{RoleMember, RoleLeader, RoleOfficer, RoleAdmin}

// Roles returns every defined role.
func Roles() []Role {
	return slices.Clone(roles)
}

// ParseRole accepts a role name case-insensitively.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// UnmarshalJSON normalises the role through ParseRole. An empty role decodes
// as the zero Role; any other unknown name is an error.
func (r *Role) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("identity: invalid role %s: %w", data, err)
	}
	if s == "" {
		*r = ""
		return nil
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

func (r Role) Valid() bool {
	return slices.Contains(roles, r)
}

// IsStaff reports whether the role is staff-tier (officer or admin).
func (r Role) IsStaff() bool {
	return r == RoleOfficer || r == RoleAdmin
}

func (r Role) String() string {
	return string(r)
}

// Capability names an action the console may gate on.
type Capability string

const (
	CapViewDashboard       Capability = "view_dashboard"
	CapViewOwnLoans        Capability = "view_own_loans"
	CapApplyLoan           Capability = "apply_loan"
	CapViewGroupLoans      Capability = "view_group_loans"
	CapApproveLoans        Capability = "approve_loans"
	CapDisburseLoans       Capability = "disburse_loans"
	CapViewSavings         Capability = "view_savings"
	CapManageSavings       Capability = "manage_savings"
	CapViewTransactions    Capability = "view_transactions"
	CapRecordTransactions  Capability = "record_transactions"
	CapApproveTransactions Capability = "approve_transactions"
	CapViewNotifications   Capability = "view_notifications"
	CapSendNotifications   Capability = "send_notifications"
	CapViewMembers         Capability = "view_members"
	CapManageMembers       Capability = "manage_members"
	CapManageGroups        Capability = "manage_groups"
	CapViewReports         Capability = "view_reports"
	CapManageSettings      Capability = "manage_settings"
)

var capabilities = []Capability{
	CapViewDashboard,
	CapViewOwnLoans,
	CapApplyLoan,
	CapViewGroupLoans,
	CapApproveLoans,
	CapDisburseLoans,
	CapViewSavings,
	CapManageSavings,
	CapViewTransactions,
	CapRecordTransactions,
	CapApproveTransactions,
	CapViewNotifications,
	CapSendNotifications,
	CapViewMembers,
	CapManageMembers,
	CapManageGroups,
	CapViewReports,
	CapManageSettings,
}

// AllCapabilities returns the full universe of defined capabilities.
func AllCapabilities() []Capability {
	return slices.Clone(capabilities)
}

func (c Capability) Valid() bool {
	return slices.Contains(capabilities, c)
}

// roleCapabilities is the explicit grant table for every non-admin role.
// Admin is absent on purpose: it is granted everything in Granted.
var roleCapabilities = map[Role][]Capability{
	RoleMember: {
		CapViewDashboard,
		CapViewOwnLoans,
		CapApplyLoan,
		CapViewSavings,
		CapViewTransactions,
		CapViewNotifications,
	},
	RoleLeader: {
		CapViewDashboard,
		CapViewOwnLoans,
		CapApplyLoan,
		CapViewGroupLoans,
		CapViewSavings,
		CapViewTransactions,
		CapRecordTransactions,
		CapViewNotifications,
		CapViewMembers,
	},
	RoleOfficer: {
		CapViewDashboard,
		CapViewOwnLoans,
		CapViewGroupLoans,
		CapApproveLoans,
		CapDisburseLoans,
		CapViewSavings,
		CapManageSavings,
		CapViewTransactions,
		CapRecordTransactions,
		CapApproveTransactions,
		CapViewNotifications,
		CapSendNotifications,
		CapViewMembers,
		CapManageMembers,
		CapViewReports,
	},
}

// RoleCapabilities returns the capabilities granted to role. For admin this
// is the whole universe.
func RoleCapabilities(role Role) []Capability {
	if role == RoleAdmin {
		return AllCapabilities()
	}
	return slices.Clone(roleCapabilities[role])
}

// Granted answers "can role do c". It never fails: unknown roles and unknown
// capabilities are simply not granted, except that admin is granted
// unconditionally.
func Granted(role Role, c Capability) bool {
	if role == RoleAdmin {
		return true
	}
	return slices.Contains(roleCapabilities[role], c)
}
