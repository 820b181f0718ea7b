package mockapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/jrsteele09/mfi-console/internal/config"
	"github.com/jrsteele09/mfi-console/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.App.Env = "TEST"
	cfg.MockAPI.TokenSecret = "test-secret"
	cfg.MockAPI.TokenTTL = time.Hour
	cfg.MockAPI.AllowedOrigins = []string{"http://console.local"}

	s, err := New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return s, ts
}

func call(t *testing.T, ts *httptest.Server, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func login(t *testing.T, ts *httptest.Server, email string) string {
	t.Helper()
	resp, body := call(t, ts, http.MethodPost, RouteAuthLogin, "", identity.Credentials{Email: email, Password: SeedPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var out loginResponse
	require.NoError(t, json.Unmarshal(body, &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func message(t *testing.T, body []byte) string {
	t.Helper()
	var out struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &out))
	return out.Message
}

func TestNew_RequiresSecret(t *testing.T) {
	cfg := config.Default()
	cfg.MockAPI.TokenSecret = ""
	_, err := New(cfg)
	require.Error(t, err)
}

func TestLogin(t *testing.T) {
	_, ts := newTestServer(t)

	t.Run("valid credentials return token and user", func(t *testing.T) {
		resp, body := call(t, ts, http.MethodPost, RouteAuthLogin, "", identity.Credentials{Email: "Member@Example.com", Password: SeedPassword})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var out loginResponse
		require.NoError(t, json.Unmarshal(body, &out))
		assert.NotEmpty(t, out.Token)
		assert.Equal(t, SeedMemberID, out.User.ID)
		assert.Equal(t, identity.RoleMember, out.User.Role)
		assert.Equal(t, []identity.ID{SeedGroupNorth}, out.User.GroupIDs())
	})

	t.Run("wrong password is rejected with a readable message", func(t *testing.T) {
		resp, body := call(t, ts, http.MethodPost, RouteAuthLogin, "", identity.Credentials{Email: "member@example.com", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, "Invalid email or password", message(t, body))
	})

	t.Run("missing password is a bad request", func(t *testing.T) {
		resp, _ := call(t, ts, http.MethodPost, RouteAuthLogin, "", identity.Credentials{Email: "member@example.com"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestMeAndLogout(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := call(t, ts, http.MethodGet, RouteAuthMe, "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodGet, RouteAuthMe, "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := login(t, ts, "leader@example.com")
	resp, body := call(t, ts, http.MethodGet, RouteAuthMe, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me identity.Identity
	require.NoError(t, json.Unmarshal(body, &me))
	assert.Equal(t, SeedLeaderID, me.ID)

	resp, _ = call(t, ts, http.MethodPost, RouteAuthLogout, token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, body = call(t, ts, http.MethodGet, RouteAuthMe, token, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Session expired, please sign in again", message(t, body))
}

func TestRegister(t *testing.T) {
	_, ts := newTestServer(t)

	reg := identity.Registration{Name: "New Person", Email: "new@example.com", Password: "Str0ngPass"}
	resp, body := call(t, ts, http.MethodPost, RouteAuthRegister, "", reg)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = call(t, ts, http.MethodPost, RouteAuthRegister, "", reg)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Email already registered", message(t, body))

	reg.Email = "weak@example.com"
	reg.Password = "short"
	resp, _ = call(t, ts, http.MethodPost, RouteAuthRegister, "", reg)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = call(t, ts, http.MethodPost, RouteAuthLogin, "", identity.Credentials{Email: "new@example.com", Password: "Str0ngPass"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out loginResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, identity.RoleMember, out.User.Role)
}

func TestUpdateProfile(t *testing.T) {
	_, ts := newTestServer(t)
	token := login(t, ts, "member@example.com")

	resp, body := call(t, ts, http.MethodPut, RouteUserProfile, token, map[string]string{"phone": "+254711111111"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out userResponse
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "+254711111111", out.User.Phone)
	assert.Equal(t, "Musa Member", out.User.Name)

	resp, _ = call(t, ts, http.MethodPut, RouteUserProfile, token, map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListScoping(t *testing.T) {
	_, ts := newTestServer(t)
	member := login(t, ts, "member@example.com")
	officer := login(t, ts, "officer@example.com")

	loans := func(token, groups string) (int, []resources.Loan) {
		resp, body := call(t, ts, http.MethodGet, RouteLoans+"?group_ids="+groups, token, nil)
		if resp.StatusCode != http.StatusOK {
			return resp.StatusCode, nil
		}
		var out listResponse[resources.Loan]
		require.NoError(t, json.Unmarshal(body, &out))
		return resp.StatusCode, out.Data
	}

	status, items := loans(member, "G1,G2")
	require.Equal(t, http.StatusOK, status)
	for _, l := range items {
		assert.Equal(t, SeedGroupNorth, l.GroupID)
	}
	assert.Len(t, items, 2)

	status, _ = loans(member, "G2")
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = loans(member, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, items = loans(officer, "G2")
	require.Equal(t, http.StatusOK, status)
	require.Len(t, items, 1)
	assert.Equal(t, identity.ID("L3"), items[0].ID)
}

func TestNotificationsIncludeBroadcasts(t *testing.T) {
	_, ts := newTestServer(t)
	token := login(t, ts, "member@example.com")

	resp, body := call(t, ts, http.MethodGet, RouteNotifications+"?group_ids=G1", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out listResponse[resources.Notification]
	require.NoError(t, json.Unmarshal(body, &out))

	var ids []identity.ID
	for _, n := range out.Data {
		ids = append(ids, n.ID)
	}
	assert.ElementsMatch(t, []identity.ID{"N1", "N3"}, ids)
}

func TestMembersRequiresCapability(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := call(t, ts, http.MethodGet, RouteMembers+"?group_ids=G1", login(t, ts, "member@example.com"), nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := call(t, ts, http.MethodGet, RouteMembers+"?group_ids=G1", login(t, ts, "leader@example.com"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out listResponse[resources.Member]
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Len(t, out.Data, 4)
}

func TestMyGroupsKeepsJoinOrder(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := call(t, ts, http.MethodGet, RouteMyGroups, login(t, ts, "officer@example.com"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out listResponse[resources.Group]
	require.NoError(t, json.Unmarshal(body, &out))
	require.Len(t, out.Data, 2)
	assert.Equal(t, SeedGroupSouth, out.Data[0].ID)
	assert.Equal(t, SeedGroupNorth, out.Data[1].ID)
}

func TestLoanStatus(t *testing.T) {
	_, ts := newTestServer(t)
	officer := login(t, ts, "officer@example.com")
	member := login(t, ts, "member@example.com")

	resp, _ := call(t, ts, http.MethodPatch, "/api/loans/L1/status", member, statusRequest{Status: "approved"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := call(t, ts, http.MethodPatch, "/api/loans/L1/status", officer, statusRequest{Status: "approved"})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	var loan resources.Loan
	require.NoError(t, json.Unmarshal(body, &loan))
	assert.Equal(t, resources.LoanApproved, loan.Status)

	resp, body = call(t, ts, http.MethodPatch, "/api/loans/L1/status", officer, statusRequest{Status: "rejected"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Contains(t, message(t, body), "cannot move from approved to rejected")

	resp, _ = call(t, ts, http.MethodPatch, "/api/loans/L404/status", officer, statusRequest{Status: "approved"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodPatch, "/api/loans/L1/status", officer, statusRequest{Status: "bogus"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTransactionStatus(t *testing.T) {
	_, ts := newTestServer(t)

	resp, _ := call(t, ts, http.MethodPatch, "/api/transactions/T1/status", login(t, ts, "leader@example.com"), statusRequest{Status: "completed"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	officer := login(t, ts, "officer@example.com")
	resp, body := call(t, ts, http.MethodPatch, "/api/transactions/T1/status", officer, statusRequest{Status: "completed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tx resources.Transaction
	require.NoError(t, json.Unmarshal(body, &tx))
	assert.Equal(t, resources.TxCompleted, tx.Status)

	resp, _ = call(t, ts, http.MethodPatch, "/api/transactions/T2/status", officer, statusRequest{Status: "failed"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestNotificationRead(t *testing.T) {
	_, ts := newTestServer(t)
	member := login(t, ts, "member@example.com")

	resp, body := call(t, ts, http.MethodPatch, "/api/notifications/N1/read", member, map[string]bool{"read": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var n resources.Notification
	require.NoError(t, json.Unmarshal(body, &n))
	assert.True(t, n.Read)

	resp, _ = call(t, ts, http.MethodPatch, "/api/notifications/N2/read", member, map[string]bool{"read": true})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = call(t, ts, http.MethodPatch, "/api/notifications/N1/read", member, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFaults(t *testing.T) {
	s, ts := newTestServer(t)
	token := login(t, ts, "member@example.com")

	s.InjectFault(Fault{Method: http.MethodGet, Path: "/loans", Status: http.StatusServiceUnavailable, Message: "Maintenance window", Times: 1})

	resp, body := call(t, ts, http.MethodGet, RouteLoans+"?group_ids=G1", token, nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "Maintenance window", message(t, body))

	resp, _ = call(t, ts, http.MethodGet, RouteLoans+"?group_ids=G1", token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode, "fault should be consumed")

	s.InjectFault(Fault{Path: "/auth/me"})
	req, err := http.NewRequest(http.MethodGet, ts.URL+RouteAuthMe, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	_, err = ts.Client().Do(req)
	assert.Error(t, err, "dropped connection surfaces as a transport error")

	s.ClearFaults()
	resp, _ = call(t, ts, http.MethodGet, RouteAuthMe, token, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCorsPreflight(t *testing.T) {
	_, ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+RouteLoans, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://console.local")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "http://console.local", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, allowedMethods, resp.Header.Get("Access-Control-Allow-Methods"))
}

func TestMetricsAndHealth(t *testing.T) {
	_, ts := newTestServer(t)
	login(t, ts, "member@example.com")

	resp, body := call(t, ts, http.MethodGet, RouteMetrics, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	text := string(body)
	assert.True(t, strings.Contains(text, `mockapi_logins_total{result="success"} 1`), text)
	assert.Contains(t, text, "mockapi_http_requests_total")

	resp, _ = call(t, ts, http.MethodGet, RouteHealth, "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
