package rbac

import (
	"time"

	"github.com/mindcastle/warden/pkg/errs"
)

// ResourceKind identifies the type of a shared workspace resource.
type ResourceKind string

const (
	KindMap      ResourceKind = "map"
	KindFolder   ResourceKind = "folder"
	KindTemplate ResourceKind = "template"
	KindTeam     ResourceKind = "team"
)

// Resource describes a shared workspace resource. ParentID, when set,
// links the resource into the workspace tree used for grant inheritance.
type Resource struct {
	ID       string       `json:"id"`
	Kind     ResourceKind `json:"kind"`
	ParentID string       `json:"parent_id,omitempty"`
}

// PermissionLevel is a totally ordered access level. Levels compare by
// Rank, never by tag equality: an "at least readWrite" check is a rank
// comparison.
type PermissionLevel string

const (
	PermissionRead      PermissionLevel = "read"
	PermissionReadWrite PermissionLevel = "readWrite"
	PermissionAdmin     PermissionLevel = "admin"
)

// Rank returns the integer rank of the level. Unknown levels rank 0,
// below every valid level.
func (p PermissionLevel) Rank() int {
	switch p {
	case PermissionRead:
		return 1
	case PermissionReadWrite:
		return 2
	case PermissionAdmin:
		return 3
	default:
		return 0
	}
}

// AtLeast reports whether p grants at least the given level.
func (p PermissionLevel) AtLeast(required PermissionLevel) bool {
	return p.Rank() >= required.Rank()
}

// Action is the vocabulary of operations callers request on resources.
type Action string

const (
	ActionRead   Action = "read"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionShare  Action = "share"
	ActionManage Action = "manage"
)

// RequiredLevel maps an action to the permission rank it demands.
// Unknown actions are an invalid request, not a silent deny.
func RequiredLevel(action Action) (PermissionLevel, error) {
	switch action {
	case ActionRead:
		return PermissionRead, nil
	case ActionEdit:
		return PermissionReadWrite, nil
	case ActionDelete, ActionShare, ActionManage:
		return PermissionAdmin, nil
	default:
		return "", errs.ErrInvalidRequest
	}
}

// Grant is a resource-scoped permission for a single user. At most one
// live grant exists per (user, resource) pair; a new grant replaces the
// prior one regardless of direction.
type Grant struct {
	UserID    string          `json:"user_id"`
	Resource  Resource        `json:"resource"`
	Level     PermissionLevel `json:"level"`
	Temporary bool            `json:"temporary"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	GrantedAt time.Time       `json:"granted_at"`
}

// Expired reports whether the grant is past its validity window at now.
// Permanent grants never expire.
func (g Grant) Expired(now time.Time) bool {
	return g.Temporary && g.ExpiresAt != nil && !now.Before(*g.ExpiresAt)
}

// Role is one of the four fixed workspace roles.
type Role string

const (
	RoleSuperAdmin Role = "superAdmin"
	RoleAdmin      Role = "admin"
	RoleEditor     Role = "editor"
	RoleViewer     Role = "viewer"
)

// rolePermissions is the fixed role -> permission-ceiling table. It is
// not user-configurable in this core.
var rolePermissions = map[Role]PermissionLevel{
	RoleSuperAdmin: PermissionAdmin,
	RoleAdmin:      PermissionAdmin,
	RoleEditor:     PermissionReadWrite,
	RoleViewer:     PermissionRead,
}

// Ceiling returns the highest permission level the role carries. The
// second return is false for unknown roles.
func (r Role) Ceiling() (PermissionLevel, bool) {
	level, ok := rolePermissions[r]
	return level, ok
}

// Valid reports whether r is one of the four fixed roles.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Verdict is the outcome of an access check.
type Verdict struct {
	Allowed bool `json:"allowed"`
	// Reason names the source of an allow ("direct grant", "inherited
	// grant", "role:<name>") or "no matching grant or role" on deny.
	Reason    string    `json:"reason,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
