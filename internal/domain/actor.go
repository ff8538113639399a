package domain

// Actor is the authenticated caller behind a service operation.
type Actor struct {
	UserID string    `json:"user_id"`
	Role   StaffRole `json:"role"`
}

// CanAssign reports whether the actor may plan or reassign mission tasks.
func (a *Actor) CanAssign() bool {
	return a != nil && (a.Role == StaffRoleTeamLead || a.Role == StaffRoleAdmin)
}
