package authz

import (
	"testing"

	"estate-backend/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowed_MonotonicAlongRoleChain(t *testing.T) {
	e, err := New()
	require.NoError(t, err)
	for _, perm := range constants.AllPermissions() {
		held := false
		for _, role := range constants.ValidRoles {
			allowed := e.Allowed(role, perm)
			if held {
				assert.True(t, allowed, "%s lost %s held by a lower role", role, perm)
			}
			held = held || allowed
		}
		assert.True(t, e.Allowed(constants.SuperAdmin, perm), "super-admin must hold %s", perm)
	}
}

func TestAllowed_FailsClosed(t *testing.T) {
	e := MustNew()
	for _, perm := range constants.AllPermissions() {
		assert.False(t, e.Allowed("", perm))
		assert.False(t, e.Allowed("owner", perm))
	}
	assert.False(t, e.Allowed(constants.SuperAdmin, "launch_missiles"))
}

func TestAllowed_Table(t *testing.T) {
	e := MustNew()
	cases := []struct {
		role, perm string
		want       bool
	}{
		{constants.Viewer, constants.ViewListings, true},
		{constants.Viewer, constants.EditListing, false},
		{constants.Moderator, constants.UpdateAppointment, true},
		{constants.Moderator, constants.DeleteListing, false},
		{constants.Admin, constants.CreateListing, true},
		{constants.Admin, constants.ManageAdmins, false},
		{constants.SuperAdmin, constants.ManageAdmins, true},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, e.Allowed(c.role, c.perm), "%s/%s", c.role, c.perm)
	}
}

func TestPermissions_StrictlyNested(t *testing.T) {
	e := MustNew()
	prev := 0
	for _, role := range constants.ValidRoles {
		n := len(e.Permissions(role))
		assert.Greater(t, n, prev, role)
		prev = n
	}
}
