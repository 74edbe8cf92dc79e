package domain

type Role string

const (
	RoleAgent  Role = "agent"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

// Actor identifies who issued a command.
type Actor struct {
	ID   string
	Role Role
}

// SystemActor is used by the expiry sweeper.
var SystemActor = Actor{ID: "system:expiry-sweeper", Role: RoleSystem}

func (a Actor) Valid() bool {
	if a.ID == "" {
		return false
	}
	switch a.Role {
	case RoleAgent, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleSystem
}

// Owns reports whether the actor may act on a record created by agentID.
func (a Actor) Owns(agentID string) bool {
	return a.IsAdmin() || a.ID == agentID
}
