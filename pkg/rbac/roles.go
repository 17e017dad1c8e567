package rbac

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/mindcastle/warden/pkg/errs"
)

// Registry assigns the four fixed workspace roles to users. Assignment
// is a set per user; the role -> permission table itself is static.
type Registry struct {
	mu    sync.RWMutex
	roles map[string]map[Role]struct{}

	generation atomic.Uint64
}

// NewRegistry creates an empty role registry.
func NewRegistry() *Registry {
	return &Registry{roles: make(map[string]map[Role]struct{})}
}

// Assign adds a role to the user's set. Assigning an already-held role
// is a no-op.
func (r *Registry) Assign(role Role, userID string) error {
	if userID == "" {
		return fmt.Errorf("user id is required: %w", errs.ErrInvalidRequest)
	}
	if !role.Valid() {
		return fmt.Errorf("unknown role %q: %w", role, errs.ErrInvalidRequest)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.roles[userID]
	if !ok {
		set = make(map[Role]struct{})
		r.roles[userID] = set
	}
	if _, held := set[role]; held {
		return nil
	}
	set[role] = struct{}{}
	r.generation.Add(1)
	return nil
}

// Remove drops a role from the user's set. Removing an absent role is a
// no-op, not an error.
func (r *Registry) Remove(role Role, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.roles[userID]
	if !ok {
		return
	}
	if _, held := set[role]; !held {
		return
	}
	delete(set, role)
	if len(set) == 0 {
		delete(r.roles, userID)
	}
	r.generation.Add(1)
}

// RolesOf returns the user's roles in stable order.
func (r *Registry) RolesOf(userID string) []Role {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.roles[userID]
	out := make([]Role, 0, len(set))
	for role := range set {
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether the user holds the role.
func (r *Registry) Has(role Role, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, held := r.roles[userID][role]
	return held
}

// UsersWith returns every user holding the role, in stable order.
// Reverse lookup is a scan; fine at workspace scale, revisit with an
// index if the user base grows past that.
func (r *Registry) UsersWith(role Role) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for userID, set := range r.roles {
		if _, held := set[role]; held {
			out = append(out, userID)
		}
	}
	sort.Strings(out)
	return out
}

// MaxCeiling returns the highest permission level any of the user's
// roles carries, or false when the user holds no roles.
func (r *Registry) MaxCeiling(userID string) (PermissionLevel, Role, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var (
		best     PermissionLevel
		bestRole Role
		found    bool
	)
	for role := range r.roles[userID] {
		level, ok := role.Ceiling()
		if !ok {
			continue
		}
		if !found || level.Rank() > best.Rank() {
			best, bestRole, found = level, role, true
		}
	}
	return best, bestRole, found
}

// Generation returns the registry's mutation counter.
func (r *Registry) Generation() uint64 {
	return r.generation.Load()
}
