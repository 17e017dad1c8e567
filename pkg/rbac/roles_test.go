package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindcastle/warden/pkg/errs"
)

func TestRegistryAssignAndRemove(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Assign(RoleEditor, "u1"))
	require.NoError(t, r.Assign(RoleViewer, "u1"))
	assert.True(t, r.Has(RoleEditor, "u1"))
	assert.Equal(t, []Role{RoleEditor, RoleViewer}, r.RolesOf("u1"))

	// Assigning an already-held role is a no-op.
	gen := r.Generation()
	require.NoError(t, r.Assign(RoleEditor, "u1"))
	assert.Equal(t, gen, r.Generation())

	r.Remove(RoleEditor, "u1")
	assert.False(t, r.Has(RoleEditor, "u1"))
	assert.Equal(t, []Role{RoleViewer}, r.RolesOf("u1"))

	// Removing an absent role is a no-op.
	gen = r.Generation()
	r.Remove(RoleEditor, "u1")
	r.Remove(RoleAdmin, "nobody")
	assert.Equal(t, gen, r.Generation())
}

func TestRegistryValidation(t *testing.T) {
	r := NewRegistry()
	assert.ErrorIs(t, r.Assign(RoleEditor, ""), errs.ErrInvalidRequest)
	assert.ErrorIs(t, r.Assign(Role("owner"), "u1"), errs.ErrInvalidRequest)
}

func TestRegistryUsersWith(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Assign(RoleEditor, "charlie"))
	require.NoError(t, r.Assign(RoleEditor, "alice"))
	require.NoError(t, r.Assign(RoleViewer, "bob"))

	assert.Equal(t, []string{"alice", "charlie"}, r.UsersWith(RoleEditor))
	assert.Equal(t, []string{"bob"}, r.UsersWith(RoleViewer))
	assert.Empty(t, r.UsersWith(RoleSuperAdmin))
}

func TestRegistryMaxCeiling(t *testing.T) {
	r := NewRegistry()

	_, _, found := r.MaxCeiling("u1")
	assert.False(t, found)

	require.NoError(t, r.Assign(RoleViewer, "u1"))
	level, role, found := r.MaxCeiling("u1")
	require.True(t, found)
	assert.Equal(t, PermissionRead, level)
	assert.Equal(t, RoleViewer, role)

	require.NoError(t, r.Assign(RoleAdmin, "u1"))
	level, role, found = r.MaxCeiling("u1")
	require.True(t, found)
	assert.Equal(t, PermissionAdmin, level)
	assert.Equal(t, RoleAdmin, role)
}
