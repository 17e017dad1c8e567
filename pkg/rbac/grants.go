package rbac

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mindcastle/warden/pkg/errs"
)

// maxAncestorDepth caps the inheritance walk. Parent links are settable
// by callers, so a broken tree must not turn a permission check into an
// unbounded loop even when cycle detection is defeated by fresh IDs.
const maxAncestorDepth = 64

// ParentResolver resolves a resource's parent so Effective can walk the
// full ancestor chain. The workspace resource tree lives outside this
// core; deployments wire their tree in through this interface. With no
// resolver the walk stops after the single parent the caller supplied
// on the Resource itself.
type ParentResolver interface {
	// Parent returns the parent resource ID of the given resource, or
	// false when the resource is a root or unknown.
	Parent(resourceID string) (string, bool)
}

// GrantStore is the permission store: resource-scoped grants per user,
// including time-limited grants. Expired grants are filtered at read
// time, never purged here; purging is the retention manager's job.
type GrantStore struct {
	mu sync.RWMutex
	// grants[userID][resourceID] holds the single live grant per pair.
	grants   map[string]map[string]Grant
	resolver ParentResolver
	clock    clockwork.Clock

	// generation increments on every mutation; the checker folds it into
	// cache keys so completed writes invalidate cached verdicts.
	generation atomic.Uint64
}

// GrantStoreOption configures a GrantStore.
type GrantStoreOption func(*GrantStore)

// WithParentResolver wires the workspace resource tree into the store so
// Effective walks the full ancestor chain instead of one level.
func WithParentResolver(r ParentResolver) GrantStoreOption {
	return func(s *GrantStore) { s.resolver = r }
}

// WithGrantClock overrides the store's clock. Tests use a fake clock to
// exercise expiry boundaries.
func WithGrantClock(clock clockwork.Clock) GrantStoreOption {
	return func(s *GrantStore) { s.clock = clock }
}

// NewGrantStore creates an empty permission store.
func NewGrantStore(opts ...GrantStoreOption) *GrantStore {
	s := &GrantStore{
		grants: make(map[string]map[string]Grant),
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grant records a permanent grant, replacing any prior grant for the
// same (user, resource) pair. Replacement is last-write-wins in both
// directions: a lower level explicitly downgrades.
func (s *GrantStore) Grant(userID string, resource Resource, level PermissionLevel) error {
	return s.put(Grant{
		UserID:    userID,
		Resource:  resource,
		Level:     level,
		GrantedAt: s.clock.Now(),
	})
}

// GrantTemporary records a grant that is visible only while
// now < GrantedAt+duration.
func (s *GrantStore) GrantTemporary(userID string, resource Resource, level PermissionLevel, duration time.Duration) error {
	if duration <= 0 {
		return fmt.Errorf("grant duration must be positive: %w", errs.ErrInvalidRequest)
	}
	now := s.clock.Now()
	expires := now.Add(duration)
	return s.put(Grant{
		UserID:    userID,
		Resource:  resource,
		Level:     level,
		Temporary: true,
		ExpiresAt: &expires,
		GrantedAt: now,
	})
}

func (s *GrantStore) put(g Grant) error {
	if g.UserID == "" {
		return fmt.Errorf("user id is required: %w", errs.ErrInvalidRequest)
	}
	if g.Resource.ID == "" {
		return fmt.Errorf("resource id is required: %w", errs.ErrInvalidRequest)
	}
	if g.Level.Rank() == 0 {
		return fmt.Errorf("unknown permission level %q: %w", g.Level, errs.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	byResource, ok := s.grants[g.UserID]
	if !ok {
		byResource = make(map[string]Grant)
		s.grants[g.UserID] = byResource
	}
	byResource[g.Resource.ID] = g
	s.generation.Add(1)
	return nil
}

// Revoke removes the grant for (user, resource). Revoking an absent
// grant is a no-op, not an error.
func (s *GrantStore) Revoke(userID, resourceID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byResource, ok := s.grants[userID]
	if !ok {
		return
	}
	if _, ok := byResource[resourceID]; !ok {
		return
	}
	delete(byResource, resourceID)
	if len(byResource) == 0 {
		delete(s.grants, userID)
	}
	s.generation.Add(1)
}

// List returns the user's live grants, excluding expired entries.
func (s *GrantStore) List(userID string) []Grant {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()
	byResource := s.grants[userID]
	out := make([]Grant, 0, len(byResource))
	for _, g := range byResource {
		if g.Expired(now) {
			continue
		}
		out = append(out, g)
	}
	return out
}

// Effective resolves the user's permission level on a resource: a live
// direct grant wins; otherwise the ancestor chain is walked and the
// first live inherited grant applies. The boolean is false when neither
// applies. Absence means no opinion rather than deny; the checker
// decides deny after also consulting roles.
func (s *GrantStore) Effective(userID string, resource Resource) (PermissionLevel, bool) {
	level, _, _, ok := s.effective(userID, resource)
	return level, ok
}

// effective is Effective plus the detail the checker needs: whether the
// winning grant was temporary (temporary-derived verdicts are not
// cached) and whether it was inherited.
func (s *GrantStore) effective(userID string, resource Resource) (level PermissionLevel, temporary bool, inherited bool, ok bool) {
	now := s.clock.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	byResource := s.grants[userID]
	if g, found := byResource[resource.ID]; found && !g.Expired(now) {
		return g.Level, g.Temporary, false, true
	}

	visited := map[string]struct{}{resource.ID: {}}
	ancestor := resource.ParentID
	for depth := 0; ancestor != "" && depth < maxAncestorDepth; depth++ {
		if _, seen := visited[ancestor]; seen {
			break
		}
		visited[ancestor] = struct{}{}

		if g, found := byResource[ancestor]; found && !g.Expired(now) {
			return g.Level, g.Temporary, true, true
		}

		if s.resolver == nil {
			break
		}
		next, found := s.resolver.Parent(ancestor)
		if !found {
			break
		}
		ancestor = next
	}

	return "", false, false, false
}

// Generation returns the store's mutation counter.
func (s *GrantStore) Generation() uint64 {
	return s.generation.Load()
}
