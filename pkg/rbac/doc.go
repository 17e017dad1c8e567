// Package rbac implements the access-decision core for shared workspace
// resources: resource-scoped permission grants (including time-limited
// grants), a fixed-role registry, and the checker that combines both into
// a single allow/deny verdict.
//
// The model is allow-only. A verdict is allow when either a live direct
// or inherited grant, or any assigned role, carries at least the
// permission rank the requested action demands; there is no explicit deny
// grant that can override an allowing role.
//
// All state is in-memory. Each store serializes writes behind its own
// RWMutex and serves reads from snapshots, so a completed grant, revoke,
// or role change is visible to every check that starts afterwards. The
// checker performs no logging and has no side effects; recording the
// decision is the caller's responsibility.
package rbac
