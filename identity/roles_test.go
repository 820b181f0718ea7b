package identity_test

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/jrsteele09/mfi-console/identity"
	"github.com/stretchr/testify/require"
)

func TestGranted_NonAdminRolesAreClosed(t *testing.T) {
	for _, role := range []identity.Role{identity.RoleMember, identity.RoleLeader, identity.RoleOfficer} {
		declared := identity.RoleCapabilities(role)
		for _, c := range identity.AllCapabilities() {
			require.Equal(t, slices.Contains(declared, c), identity.Granted(role, c), "role %s capability %s", role, c)
		}
		require.False(t, identity.Granted(role, identity.Capability("launch_rockets")))
	}
}

func TestGranted_AdminHasEverything(t *testing.T) {
	for _, c := range identity.AllCapabilities() {
		require.True(t, identity.Granted(identity.RoleAdmin, c), c)
	}
	require.ElementsMatch(t, identity.AllCapabilities(), identity.RoleCapabilities(identity.RoleAdmin))
}

func TestGranted_UnknownRole(t *testing.T) {
	require.False(t, identity.Granted(identity.Role("guest"), identity.CapViewDashboard))
	require.Empty(t, identity.RoleCapabilities(identity.Role("guest")))
}

func TestRoleTableOnlyUsesDefinedCapabilities(t *testing.T) {
	for _, role := range identity.Roles() {
		for _, c := range identity.RoleCapabilities(role) {
			require.True(t, c.Valid(), "role %s grants undefined capability %s", role, c)
		}
	}
}

func TestParseRole(t *testing.T) {
	r, err := identity.ParseRole(" Officer ")
	require.NoError(t, err)
	require.Equal(t, identity.RoleOfficer, r)
	require.True(t, r.IsStaff())

	_, err = identity.ParseRole("superuser")
	require.Error(t, err)

	require.True(t, identity.RoleAdmin.IsStaff())
	require.False(t, identity.RoleLeader.IsStaff())
	require.False(t, identity.RoleMember.IsStaff())
}

func TestRole_UnmarshalJSON(t *testing.T) {
	var id identity.Identity
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"role":" Admin "}`), &id))
	require.Equal(t, identity.RoleAdmin, id.Role)
	require.True(t, id.IsStaff())

	id = identity.Identity{}
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"role":""}`), &id))
	require.Equal(t, identity.Role(""), id.Role)

	require.Error(t, json.Unmarshal([]byte(`{"id":1,"role":"superuser"}`), &id))
	require.Error(t, json.Unmarshal([]byte(`{"id":1,"role":7}`), &id))
}
