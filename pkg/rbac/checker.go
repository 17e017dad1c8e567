package rbac

import (
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jonboulle/clockwork"

	"github.com/mindcastle/warden/pkg/errs"
	"github.com/mindcastle/warden/pkg/observability"
)

// Checker is the access controller: it combines the permission store and
// the role registry into a single allow/deny verdict. Deny is a normal
// outcome, returned in the Verdict, not an error.
type Checker struct {
	grants  *GrantStore
	roles   *Registry
	clock   clockwork.Clock
	metrics *observability.Metrics

	// cache holds verdicts keyed by (user, resource, action) plus both
	// store generations, so any completed mutation changes the key and
	// cached verdicts can never mask it. Verdicts derived from temporary
	// grants are never cached: their validity ends by clock, not by
	// mutation.
	cache *expirable.LRU[string, Verdict]
}

// CheckerOption configures a Checker.
type CheckerOption func(*Checker)

// WithDecisionCache enables an expiring LRU verdict cache of the given
// size and TTL. Size or TTL <= 0 leaves caching off.
func WithDecisionCache(size int, ttl time.Duration) CheckerOption {
	return func(c *Checker) {
		if size > 0 && ttl > 0 {
			c.cache = expirable.NewLRU[string, Verdict](size, nil, ttl)
		}
	}
}

// WithCheckerMetrics records decision counters on the given metric set.
func WithCheckerMetrics(m *observability.Metrics) CheckerOption {
	return func(c *Checker) { c.metrics = m }
}

// WithCheckerClock overrides the checker's clock.
func WithCheckerClock(clock clockwork.Clock) CheckerOption {
	return func(c *Checker) { c.clock = clock }
}

// NewChecker creates an access controller over the given stores.
func NewChecker(grants *GrantStore, roles *Registry, opts ...CheckerOption) *Checker {
	c := &Checker{
		grants: grants,
		roles:  roles,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CheckAccess resolves the verdict for (user, resource, action). The
// decision order is: effective grant rank (direct, then inherited), then
// role-derived rank, then deny. An unknown action or empty user is an
// invalid request rather than a deny.
func (c *Checker) CheckAccess(userID string, resource Resource, action Action) (Verdict, error) {
	if userID == "" {
		return Verdict{}, fmt.Errorf("user id is required: %w", errs.ErrInvalidRequest)
	}
	if resource.ID == "" {
		return Verdict{}, fmt.Errorf("resource id is required: %w", errs.ErrInvalidRequest)
	}
	required, err := RequiredLevel(action)
	if err != nil {
		return Verdict{}, fmt.Errorf("unknown action %q: %w", action, err)
	}

	key := c.cacheKey(userID, resource.ID, action)
	if c.cache != nil {
		if v, ok := c.cache.Get(key); ok {
			c.observe(v.Allowed, true)
			v.CheckedAt = c.clock.Now()
			return v, nil
		}
	}

	verdict, cacheable := c.decide(userID, resource, required)
	verdict.CheckedAt = c.clock.Now()

	if c.cache != nil && cacheable {
		c.cache.Add(key, verdict)
	}
	c.observe(verdict.Allowed, false)
	return verdict, nil
}

func (c *Checker) decide(userID string, resource Resource, required PermissionLevel) (Verdict, bool) {
	level, temporary, inherited, ok := c.grants.effective(userID, resource)
	if ok && level.AtLeast(required) {
		reason := "direct grant"
		if inherited {
			reason = "inherited grant"
		}
		return Verdict{Allowed: true, Reason: reason}, !temporary
	}

	if ceiling, role, held := c.roles.MaxCeiling(userID); held && ceiling.AtLeast(required) {
		return Verdict{Allowed: true, Reason: "role:" + string(role)}, true
	}

	// An insufficient temporary grant still pins the verdict to the
	// clock, so keep it out of the cache.
	return Verdict{Allowed: false, Reason: "no matching grant or role"}, !(ok && temporary)
}

func (c *Checker) cacheKey(userID, resourceID string, action Action) string {
	return fmt.Sprintf("%s\x00%s\x00%s\x00%d\x00%d",
		userID, resourceID, action, c.grants.Generation(), c.roles.Generation())
}

func (c *Checker) observe(allowed, cached bool) {
	if c.metrics == nil {
		return
	}
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	c.metrics.AccessChecksTotal.WithLabelValues(decision).Inc()
	if c.cache != nil {
		if cached {
			c.metrics.DecisionCacheHitsTotal.Inc()
		} else {
			c.metrics.DecisionCacheMissesTotal.Inc()
		}
	}
}
