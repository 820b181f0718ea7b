package mockapi

import (
	"strings"

	"github.com/jrsteele09/mfi-console/identity"
)

// APIPrefix is where the API is mounted. Clients use
// http://host:port/api as their base URL.
const APIPrefix = "/api"

const (
	RouteAuthLogin    = APIPrefix + "/auth/login"
	RouteAuthRegister = APIPrefix + "/auth/register"
	RouteAuthMe       = APIPrefix + "/auth/me"
	RouteAuthLogout   = APIPrefix + "/auth/logout"
	RouteUserProfile  = APIPrefix + "/users/profile"

	RouteLoans              = APIPrefix + "/loans"
	RouteLoanStatus         = APIPrefix + "/loans/{id}/status"
	RouteSavings            = APIPrefix + "/savings"
	RouteTransactions       = APIPrefix + "/transactions"
	RouteTransactionStatus  = APIPrefix + "/transactions/{id}/status"
	RouteNotifications      = APIPrefix + "/notifications"
	RouteNotificationRead   = APIPrefix + "/notifications/{id}/read"
	RouteMembers            = APIPrefix + "/members"
	RouteMyGroups           = APIPrefix + "/groups/mine"
	RouteMetrics            = "/metrics"
	RouteHealth             = "/healthz"
	routePreflightAllRoutes = APIPrefix + "/"
)

func (s *Server) initRoutes() {
	// AUTH
	s.RegisterRouteFunc("POST "+RouteAuthLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RouteAuthRegister, ChainMiddleware(s.RegisterHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteAuthMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("PUT "+RouteUserProfile, ChainMiddleware(s.UpdateProfileHandler(), s.APIMiddleware(s.RequireAuth)...))

	// RESOURCES
	s.RegisterRouteFunc("GET "+RouteLoans, ChainMiddleware(s.ListLoansHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("PATCH "+RouteLoanStatus, ChainMiddleware(s.LoanStatusHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("GET "+RouteSavings, ChainMiddleware(s.ListSavingsHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("GET "+RouteTransactions, ChainMiddleware(s.ListTransactionsHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("PATCH "+RouteTransactionStatus, ChainMiddleware(s.TransactionStatusHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("GET "+RouteNotifications, ChainMiddleware(s.ListNotificationsHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("PATCH "+RouteNotificationRead, ChainMiddleware(s.NotificationReadHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("GET "+RouteMembers, ChainMiddleware(s.ListMembersHandler(), s.APIMiddleware(s.RequireAuth)...))
	s.RegisterRouteFunc("GET "+RouteMyGroups, ChainMiddleware(s.MyGroupsHandler(), s.APIMiddleware(s.RequireAuth)...))

	// CORS preflight for every API route
	s.RegisterRouteFunc("OPTIONS "+routePreflightAllRoutes, ChainMiddleware(s.NotFoundHandler(), s.APIMiddleware()...))

	// OPS
	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.handler())
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

func trimAPIPrefix(path string) string {
	return strings.TrimPrefix(path, APIPrefix)
}

func identityID(s string) identity.ID {
	return identity.ID(s)
}
