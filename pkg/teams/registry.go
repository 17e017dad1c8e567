package teams

import (
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/mindcastle/warden/pkg/errs"
)

// Registry is the in-memory team store. Writes are serialized; reads
// return copies and never observe partial state.
type Registry struct {
	mu    sync.RWMutex
	teams map[string]Team
	// children indexes parent -> child team IDs for hierarchy queries.
	children map[string][]string
	clock    clockwork.Clock
}

// NewRegistry creates an empty team registry.
func NewRegistry(clock clockwork.Clock) *Registry {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Registry{
		teams:    make(map[string]Team),
		children: make(map[string][]string),
		clock:    clock,
	}
}

// CreateTeam creates a root team. The admin user becomes its first
// member with the admin role.
func (r *Registry) CreateTeam(name, adminUserID string) (Team, error) {
	return r.create(name, adminUserID, "")
}

// CreateSubTeam creates a team under the given parent. The parent must
// exist; the parent link is persisted so Hierarchy sees the new team.
func (r *Registry) CreateSubTeam(parentID, name, adminUserID string) (Team, error) {
	if parentID == "" {
		return Team{}, fmt.Errorf("parent team id is required: %w", errs.ErrInvalidRequest)
	}
	return r.create(name, adminUserID, parentID)
}

func (r *Registry) create(name, adminUserID, parentID string) (Team, error) {
	if name == "" {
		return Team{}, fmt.Errorf("team name is required: %w", errs.ErrInvalidRequest)
	}
	if adminUserID == "" {
		return Team{}, fmt.Errorf("admin user id is required: %w", errs.ErrInvalidRequest)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if parentID != "" {
		if _, ok := r.teams[parentID]; !ok {
			return Team{}, fmt.Errorf("parent team %s: %w", parentID, errs.ErrNotFound)
		}
	}

	now := r.clock.Now().UTC()
	team := Team{
		ID:           uuid.NewString(),
		Name:         name,
		AdminUserID:  adminUserID,
		ParentTeamID: parentID,
		Members: []Member{{
			UserID:   adminUserID,
			Role:     MemberRoleAdmin,
			JoinedAt: now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.teams[team.ID] = team
	if parentID != "" {
		r.children[parentID] = append(r.children[parentID], team.ID)
	}
	return copyTeam(team), nil
}

// Get returns a team by id.
func (r *Registry) Get(teamID string) (Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	team, ok := r.teams[teamID]
	if !ok {
		return Team{}, fmt.Errorf("team %s: %w", teamID, errs.ErrNotFound)
	}
	return copyTeam(team), nil
}

// AddMember adds a user to a team. Adding an existing member updates
// their role instead of duplicating the entry.
func (r *Registry) AddMember(teamID, userID string, role MemberRole) error {
	if userID == "" {
		return fmt.Errorf("user id is required: %w", errs.ErrInvalidRequest)
	}
	if role != MemberRoleAdmin && role != MemberRoleMember {
		return fmt.Errorf("unknown member role %q: %w", role, errs.ErrInvalidRequest)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[teamID]
	if !ok {
		return fmt.Errorf("team %s: %w", teamID, errs.ErrNotFound)
	}

	for i, m := range team.Members {
		if m.UserID == userID {
			team.Members[i].Role = role
			team.UpdatedAt = r.clock.Now().UTC()
			r.teams[teamID] = team
			return nil
		}
	}
	team.Members = append(team.Members, Member{
		UserID:   userID,
		Role:     role,
		JoinedAt: r.clock.Now().UTC(),
	})
	team.UpdatedAt = r.clock.Now().UTC()
	r.teams[teamID] = team
	return nil
}

// RemoveMember removes a user from a team. Removing an absent member is
// a no-op. The team admin cannot be removed through membership; change
// ownership first.
func (r *Registry) RemoveMember(teamID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[teamID]
	if !ok {
		return fmt.Errorf("team %s: %w", teamID, errs.ErrNotFound)
	}
	if userID == team.AdminUserID {
		return fmt.Errorf("cannot remove the team admin: %w", errs.ErrInvalidRequest)
	}

	for i, m := range team.Members {
		if m.UserID == userID {
			team.Members = append(team.Members[:i], team.Members[i+1:]...)
			team.UpdatedAt = r.clock.Now().UTC()
			r.teams[teamID] = team
			return nil
		}
	}
	return nil
}

// Hierarchy returns the root team followed by every descendant,
// breadth-first. The parent links are real: only teams created under
// the root (directly or transitively) appear.
func (r *Registry) Hierarchy(rootID string) ([]Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	root, ok := r.teams[rootID]
	if !ok {
		return nil, fmt.Errorf("team %s: %w", rootID, errs.ErrNotFound)
	}

	out := []Team{copyTeam(root)}
	queue := append([]string(nil), r.children[rootID]...)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		team, ok := r.teams[id]
		if !ok {
			continue
		}
		out = append(out, copyTeam(team))
		queue = append(queue, r.children[id]...)
	}
	return out, nil
}

// TeamsOf returns every team the user belongs to, by admin ownership or
// membership, in stable order by team name.
func (r *Registry) TeamsOf(userID string) []Team {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Team
	for _, team := range r.teams {
		if team.AdminUserID == userID {
			out = append(out, copyTeam(team))
			continue
		}
		for _, m := range team.Members {
			if m.UserID == userID {
				out = append(out, copyTeam(team))
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DeleteTeam removes a team. A team with sub-teams cannot be deleted;
// delete or re-parent the children first.
func (r *Registry) DeleteTeam(teamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[teamID]
	if !ok {
		return fmt.Errorf("team %s: %w", teamID, errs.ErrNotFound)
	}
	if len(r.children[teamID]) > 0 {
		return fmt.Errorf("team %s has sub-teams: %w", teamID, errs.ErrInvalidRequest)
	}

	delete(r.teams, teamID)
	delete(r.children, teamID)
	if team.ParentTeamID != "" {
		siblings := r.children[team.ParentTeamID]
		for i, id := range siblings {
			if id == teamID {
				r.children[team.ParentTeamID] = append(siblings[:i], siblings[i+1:]...)
				break
			}
		}
	}
	return nil
}
