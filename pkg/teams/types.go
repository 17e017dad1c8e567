package teams

import (
	"time"
)

// MemberRole is a member's role within a team.
type MemberRole string

const (
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
)

// Member is a user's membership in a team.
type Member struct {
	UserID   string     `json:"user_id"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// Team is a group of users. ParentTeamID links sub-teams into the
// hierarchy; it is empty for root teams.
type Team struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	AdminUserID  string    `json:"admin_user_id"`
	ParentTeamID string    `json:"parent_team_id,omitempty"`
	Members      []Member  `json:"members"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func copyTeam(t Team) Team {
	members := make([]Member, len(t.Members))
	copy(members, t.Members)
	t.Members = members
	return t
}
