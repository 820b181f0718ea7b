package mockapi

import (
	"net/http"
	"slices"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/jrsteele09/mfi-console/resources"
	"github.com/pkg/errors"
)

type listResponse[T any] struct {
	Data []T `json:"data"`
}

// scopedGroups resolves the groups a list request may read. Staff may read
// any group they name; everyone else is narrowed to their own groups.
func (s *Server) scopedGroups(w http.ResponseWriter, r *http.Request) (identity.Identity, []identity.ID, bool) {
	caller, err := s.store.User(userIDFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Session expired, please sign in again")
		return identity.Identity{}, nil, false
	}

	requested := groupIDsParam(r)
	if len(requested) == 0 {
		writeError(w, http.StatusBadRequest, "group_ids is required")
		return identity.Identity{}, nil, false
	}
	if caller.IsStaff() {
		return caller, requested, true
	}

	allowed := slices.DeleteFunc(requested, func(id identity.ID) bool { return !caller.HasGroup(id) })
	if len(allowed) == 0 {
		writeError(w, http.StatusForbidden, "You are not a member of the requested groups")
		return identity.Identity{}, nil, false
	}
	return caller, allowed, true
}

func (s *Server) requireCapability(w http.ResponseWriter, caller identity.Identity, c identity.Capability) bool {
	if identity.Granted(caller.Role, c) {
		return true
	}
	writeError(w, http.StatusForbidden, "You do not have permission to perform this action")
	return false
}

// ListLoansHandler (GET /api/loans?group_ids=...)
func (s *Server) ListLoansHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, groups, ok := s.scopedGroups(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, listResponse[resources.Loan]{Data: s.store.Loans(groups)})
	}
}

// ListSavingsHandler (GET /api/savings?group_ids=...)
func (s *Server) ListSavingsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, groups, ok := s.scopedGroups(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, listResponse[resources.SavingsAccount]{Data: s.store.Savings(groups)})
	}
}

// ListTransactionsHandler (GET /api/transactions?group_ids=...)
func (s *Server) ListTransactionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, groups, ok := s.scopedGroups(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, listResponse[resources.Transaction]{Data: s.store.Transactions(groups)})
	}
}

// ListNotificationsHandler (GET /api/notifications?group_ids=...). Notifications
// without a group are broadcast to everyone.
func (s *Server) ListNotificationsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, groups, ok := s.scopedGroups(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, listResponse[resources.Notification]{Data: s.store.Notifications(append(groups, ""))})
	}
}

// ListMembersHandler (GET /api/members?group_ids=...)
func (s *Server) ListMembersHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, groups, ok := s.scopedGroups(w, r)
		if !ok {
			return
		}
		if !s.requireCapability(w, caller, identity.CapViewMembers) {
			return
		}
		writeJSON(w, http.StatusOK, listResponse[resources.Member]{Data: s.store.Members(groups)})
	}
}

// MyGroupsHandler lists the caller's own groups in join order (GET /api/groups/mine)
func (s *Server) MyGroupsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := s.store.GroupsOf(userIDFrom(r.Context()))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Session expired, please sign in again")
			return
		}
		writeJSON(w, http.StatusOK, listResponse[resources.Group]{Data: groups})
	}
}

type statusRequest struct {
	Status string `json:"status"`
}

// LoanStatusHandler moves a loan to a new status (PATCH /api/loans/{id}/status)
func (s *Server) LoanStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := s.store.User(userIDFrom(r.Context()))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Session expired, please sign in again")
			return
		}

		var req statusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		status, err := resources.ParseLoanStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unknown loan status")
			return
		}
		capability, ok := resources.LoanCapability(status)
		if !ok {
			writeError(w, http.StatusBadRequest, "Loans cannot be moved to "+string(status))
			return
		}
		if !s.requireCapability(w, caller, capability) {
			return
		}

		loan, err := s.store.SetLoanStatus(identity.ID(r.PathValue("id")), status, NowTimeFunc())
		if !s.writeStoreError(w, err, "Loan") {
			return
		}
		writeJSON(w, http.StatusOK, loan)
	}
}

// TransactionStatusHandler settles a pending transaction (PATCH /api/transactions/{id}/status)
func (s *Server) TransactionStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := s.store.User(userIDFrom(r.Context()))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Session expired, please sign in again")
			return
		}
		if !s.requireCapability(w, caller, identity.CapApproveTransactions) {
			return
		}

		var req statusRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		status, err := resources.ParseTransactionStatus(req.Status)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Unknown transaction status")
			return
		}

		tx, err := s.store.SetTransactionStatus(identity.ID(r.PathValue("id")), status)
		if !s.writeStoreError(w, err, "Transaction") {
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

// NotificationReadHandler sets the read flag (PATCH /api/notifications/{id}/read)
func (s *Server) NotificationReadHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := s.store.User(userIDFrom(r.Context()))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Session expired, please sign in again")
			return
		}

		var req struct {
			Read *bool `json:"read"`
		}
		if err := decodeJSON(r, &req); err != nil || req.Read == nil {
			writeError(w, http.StatusBadRequest, "read is required")
			return
		}

		id := identity.ID(r.PathValue("id"))
		current, err := s.store.Notification(id)
		if !s.writeStoreError(w, err, "Notification") {
			return
		}
		if current.GroupID != "" && !caller.IsStaff() && !caller.HasGroup(current.GroupID) {
			writeError(w, http.StatusNotFound, "Notification not found")
			return
		}

		n, err := s.store.SetNotificationRead(id, *req.Read)
		if !s.writeStoreError(w, err, "Notification") {
			return
		}
		writeJSON(w, http.StatusOK, n)
	}
}

// writeStoreError maps store failures onto responses. It returns true when
// err is nil.
func (s *Server) writeStoreError(w http.ResponseWriter, err error, kind string) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, kind+" not found")
	case errors.Is(err, ErrTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Err(err).Msg("store operation failed")
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
	return false
}
