package rbac

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindcastle/warden/pkg/errs"
)

func TestRequiredLevel(t *testing.T) {
	cases := []struct {
		name    string
		action  Action
		want    PermissionLevel
		wantErr bool
	}{
		{name: "read", action: ActionRead, want: PermissionRead},
		{name: "edit", action: ActionEdit, want: PermissionReadWrite},
		{name: "delete", action: ActionDelete, want: PermissionAdmin},
		{name: "share", action: ActionShare, want: PermissionAdmin},
		{name: "manage", action: ActionManage, want: PermissionAdmin},
		{name: "unknown", action: Action("publish"), wantErr: true},
		{name: "empty", action: Action(""), wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			level, err := RequiredLevel(tc.action)
			if tc.wantErr {
				require.ErrorIs(t, err, errs.ErrInvalidRequest)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, level)
		})
	}
}

func TestPermissionLevelOrdering(t *testing.T) {
	assert.True(t, PermissionAdmin.AtLeast(PermissionRead))
	assert.True(t, PermissionAdmin.AtLeast(PermissionAdmin))
	assert.True(t, PermissionReadWrite.AtLeast(PermissionRead))
	assert.False(t, PermissionRead.AtLeast(PermissionReadWrite))
	assert.False(t, PermissionReadWrite.AtLeast(PermissionAdmin))

	// Unknown levels rank below everything.
	assert.False(t, PermissionLevel("owner").AtLeast(PermissionRead))
	assert.True(t, PermissionRead.AtLeast(PermissionLevel("owner")))
}

func TestGrantExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expires := now.Add(30 * time.Minute)

	permanent := Grant{Level: PermissionRead}
	assert.False(t, permanent.Expired(now.Add(100*365*24*time.Hour)))

	temp := Grant{Level: PermissionRead, Temporary: true, ExpiresAt: &expires}
	assert.False(t, temp.Expired(now))
	assert.False(t, temp.Expired(expires.Add(-time.Nanosecond)))
	// Expiry boundary is exclusive of the instant itself.
	assert.True(t, temp.Expired(expires))
	assert.True(t, temp.Expired(expires.Add(time.Hour)))
}

func TestRoleCeiling(t *testing.T) {
	cases := []struct {
		role Role
		want PermissionLevel
	}{
		{RoleSuperAdmin, PermissionAdmin},
		{RoleAdmin, PermissionAdmin},
		{RoleEditor, PermissionReadWrite},
		{RoleViewer, PermissionRead},
	}
	for _, tc := range cases {
		t.Run(string(tc.role), func(t *testing.T) {
			level, ok := tc.role.Ceiling()
			require.True(t, ok)
			assert.Equal(t, tc.want, level)
		})
	}

	_, ok := Role("owner").Ceiling()
	assert.False(t, ok)
	assert.False(t, Role("owner").Valid())
}
