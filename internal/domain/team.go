package domain

import "time"

// Team is a field crew that missions are dispatched to.
type Team struct {
	ID          string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
