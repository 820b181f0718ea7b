package cmd

import (
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/mfi-console/guard"
	"github.com/jrsteele09/mfi-console/internal/config"
	apperrors "github.com/jrsteele09/mfi-console/internal/errors"
	"github.com/jrsteele09/mfi-console/mockapi"
	"github.com/jrsteele09/mfi-console/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// consoleEnv points the console at a fresh seeded mock API and a temporary
// credentials file.
func consoleEnv(t *testing.T) *mockapi.Server {
	t.Helper()
	cfg := config.Default()
	cfg.App.Env = "TEST"
	cfg.MockAPI.TokenSecret = "test-secret"

	srv, err := mockapi.New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	t.Setenv("ENV", "TEST")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("API_BASE_URL", ts.URL+mockapi.APIPrefix)
	t.Setenv("CREDENTIALS_FILE", filepath.Join(t.TempDir(), "credentials.json"))
	return srv
}

func runConsole(args ...string) error {
	root := NewRootCmd()
	root.SetArgs(append([]string{"--non-interactive"}, args...))
	return root.ExecuteContext(context.Background())
}

func TestConsole_SessionLifecycle(t *testing.T) {
	consoleEnv(t)

	err := runConsole("whoami")
	assert.ErrorIs(t, err, guard.ErrLoginRequired)

	require.NoError(t, runConsole("login", "--email", "member@example.com", "--password", mockapi.SeedPassword))
	require.NoError(t, runConsole("whoami"), "session restored from the credentials file")
	require.NoError(t, runConsole("dashboard"))

	require.NoError(t, runConsole("logout"))
	err = runConsole("whoami")
	assert.ErrorIs(t, err, guard.ErrLoginRequired)
}

func TestConsole_LoginRejected(t *testing.T) {
	consoleEnv(t)

	err := runConsole("login", "--email", "member@example.com", "--password", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", errorMessage(err))
}

func TestConsole_CapabilityGate(t *testing.T) {
	srv := consoleEnv(t)
	require.NoError(t, runConsole("login", "--email", "member@example.com", "--password", mockapi.SeedPassword))

	err := runConsole("loans", "approve", "L1", "--yes")
	var nae *apperrors.NotAuthorizedError
	require.ErrorAs(t, err, &nae)

	loan, err := srv.Store().Loan("L1")
	require.NoError(t, err)
	assert.Equal(t, resources.LoanPending, loan.Status)

	err = runConsole("members", "list")
	assert.ErrorAs(t, err, &nae)
}

func TestConsole_OfficerApprovesLoan(t *testing.T) {
	srv := consoleEnv(t)
	require.NoError(t, runConsole("login", "--email", "officer@example.com", "--password", mockapi.SeedPassword))

	require.NoError(t, runConsole("--group", "G1", "loans", "approve", "L1", "--yes"))

	loan, err := srv.Store().Loan("L1")
	require.NoError(t, err)
	assert.Equal(t, resources.LoanApproved, loan.Status)

	err = runConsole("--group", "G1", "loans", "reject", "L1", "--yes")
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}

func TestConsole_ProfileNeedsAField(t *testing.T) {
	consoleEnv(t)
	require.NoError(t, runConsole("login", "--email", "leader@example.com", "--password", mockapi.SeedPassword))

	assert.Error(t, runConsole("profile"))
	require.NoError(t, runConsole("profile", "--phone", "+254722000000"))
}

func TestErrorMessage(t *testing.T) {
	assert.Contains(t, errorMessage(guard.ErrLoginRequired), "mfi-console login")
	assert.Contains(t, errorMessage(apperrors.ErrNoDefaultGroup), "--group")
	assert.Equal(t, "Loan is locked", errorMessage(&apperrors.RemoteRejectedError{StatusCode: 409, Message: "Loan is locked"}))
}
