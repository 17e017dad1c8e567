package rbac

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindcastle/warden/pkg/errs"
)

func newTestChecker(t *testing.T, opts ...CheckerOption) (*Checker, *GrantStore, *Registry) {
	t.Helper()
	grants := NewGrantStore()
	roles := NewRegistry()
	return NewChecker(grants, roles, opts...), grants, roles
}

func TestCheckAccessValidation(t *testing.T) {
	c, _, _ := newTestChecker(t)
	doc := Resource{ID: "map-1", Kind: KindMap}

	_, err := c.CheckAccess("", doc, ActionRead)
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)

	_, err = c.CheckAccess("u1", Resource{}, ActionRead)
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)

	_, err = c.CheckAccess("u1", doc, Action("publish"))
	assert.ErrorIs(t, err, errs.ErrInvalidRequest)
}

func TestCheckAccessDenyByDefault(t *testing.T) {
	c, _, _ := newTestChecker(t)
	v, err := c.CheckAccess("u1", Resource{ID: "map-1", Kind: KindMap}, ActionRead)
	require.NoError(t, err)
	assert.False(t, v.Allowed)
	assert.Equal(t, "no matching grant or role", v.Reason)
}

func TestCheckAccessGrantRanks(t *testing.T) {
	cases := []struct {
		name   string
		level  PermissionLevel
		action Action
		want   bool
	}{
		{name: "read allows read", level: PermissionRead, action: ActionRead, want: true},
		{name: "read denies edit", level: PermissionRead, action: ActionEdit, want: false},
		{name: "readWrite allows edit", level: PermissionReadWrite, action: ActionEdit, want: true},
		{name: "readWrite denies delete", level: PermissionReadWrite, action: ActionDelete, want: false},
		{name: "readWrite denies share", level: PermissionReadWrite, action: ActionShare, want: false},
		{name: "admin allows delete", level: PermissionAdmin, action: ActionDelete, want: true},
		{name: "admin allows manage", level: PermissionAdmin, action: ActionManage, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, grants, _ := newTestChecker(t)
			doc := Resource{ID: "map-1", Kind: KindMap}
			require.NoError(t, grants.Grant("u1", doc, tc.level))

			v, err := c.CheckAccess("u1", doc, tc.action)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v.Allowed)
			if tc.want {
				assert.Equal(t, "direct grant", v.Reason)
			}
		})
	}
}

func TestCheckAccessRoleCeilings(t *testing.T) {
	cases := []struct {
		name   string
		role   Role
		action Action
		want   bool
	}{
		{name: "editor edits", role: RoleEditor, action: ActionEdit, want: true},
		{name: "editor cannot manage", role: RoleEditor, action: ActionManage, want: false},
		{name: "viewer reads", role: RoleViewer, action: ActionRead, want: true},
		{name: "viewer cannot edit", role: RoleViewer, action: ActionEdit, want: false},
		{name: "admin manages", role: RoleAdmin, action: ActionManage, want: true},
		{name: "superAdmin deletes", role: RoleSuperAdmin, action: ActionDelete, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _, roles := newTestChecker(t)
			require.NoError(t, roles.Assign(tc.role, "u1"))

			v, err := c.CheckAccess("u1", Resource{ID: "map-1", Kind: KindMap}, tc.action)
			require.NoError(t, err)
			assert.Equal(t, tc.want, v.Allowed)
			if tc.want {
				assert.Equal(t, "role:"+string(tc.role), v.Reason)
			}
		})
	}
}

func TestCheckAccessInheritedGrantReason(t *testing.T) {
	c, grants, _ := newTestChecker(t)
	require.NoError(t, grants.Grant("u1", Resource{ID: "folder-1", Kind: KindFolder}, PermissionReadWrite))

	v, err := c.CheckAccess("u1", Resource{ID: "map-1", Kind: KindMap, ParentID: "folder-1"}, ActionEdit)
	require.NoError(t, err)
	assert.True(t, v.Allowed)
	assert.Equal(t, "inherited grant", v.Reason)
}

func TestCheckAccessCacheInvalidatedByMutation(t *testing.T) {
	c, grants, _ := newTestChecker(t, WithDecisionCache(128, time.Minute))
	doc := Resource{ID: "map-1", Kind: KindMap}
	require.NoError(t, grants.Grant("u1", doc, PermissionReadWrite))

	v, err := c.CheckAccess("u1", doc, ActionEdit)
	require.NoError(t, err)
	require.True(t, v.Allowed)

	// Revocation bumps the generation, so the cached allow cannot mask it.
	grants.Revoke("u1", doc.ID)
	v, err = c.CheckAccess("u1", doc, ActionEdit)
	require.NoError(t, err)
	assert.False(t, v.Allowed)
}

func TestCheckAccessRoleChangeInvalidatesCache(t *testing.T) {
	c, _, roles := newTestChecker(t, WithDecisionCache(128, time.Minute))
	doc := Resource{ID: "map-1", Kind: KindMap}

	v, err := c.CheckAccess("u1", doc, ActionRead)
	require.NoError(t, err)
	require.False(t, v.Allowed)

	require.NoError(t, roles.Assign(RoleViewer, "u1"))
	v, err = c.CheckAccess("u1", doc, ActionRead)
	require.NoError(t, err)
	assert.True(t, v.Allowed)
}

func TestCheckAccessTemporaryGrantNotCached(t *testing.T) {
	clock := clockwork.NewFakeClock()
	grants := NewGrantStore(WithGrantClock(clock))
	roles := NewRegistry()
	c := NewChecker(grants, roles,
		WithDecisionCache(128, time.Hour),
		WithCheckerClock(clock),
	)
	doc := Resource{ID: "map-1", Kind: KindMap}
	require.NoError(t, grants.GrantTemporary("u1", doc, PermissionReadWrite, time.Hour))

	v, err := c.CheckAccess("u1", doc, ActionEdit)
	require.NoError(t, err)
	require.True(t, v.Allowed)

	// Expiry is not a mutation; only skipping the cache makes it visible.
	clock.Advance(2 * time.Hour)
	v, err = c.CheckAccess("u1", doc, ActionEdit)
	require.NoError(t, err)
	assert.False(t, v.Allowed)
}

func TestCheckAccessVerdictTimestamp(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	grants := NewGrantStore(WithGrantClock(clock))
	c := NewChecker(grants, NewRegistry(), WithCheckerClock(clock))

	v, err := c.CheckAccess("u1", Resource{ID: "map-1", Kind: KindMap}, ActionRead)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), v.CheckedAt)
}
