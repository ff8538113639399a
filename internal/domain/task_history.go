package domain

import "time"

// TaskChangeType captures what changed in a history entry.
type TaskChangeType string

const (
	ChangeTypeAutoAssigned TaskChangeType = "AUTO_ASSIGNED"
	ChangeTypeUnassigned   TaskChangeType = "NO_QUALIFIED_WORKER"
	ChangeTypeReassigned   TaskChangeType = "MANUAL_REASSIGNMENT"
)

// TaskHistory is an immutable audit trail entry.
type TaskHistory struct {
	ID          string
	TaskID      string
	ChangedByID *string
	ChangeType  TaskChangeType
	Note        string
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
