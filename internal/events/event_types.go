package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/field-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTaskAssigned         EventType = "task_assigned"
	EventTaskUnassigned       EventType = "task_unassigned"
	EventTaskReassigned       EventType = "task_reassigned"
	EventMissionTasksAssigned EventType = "mission_tasks_assigned"
)

// AllEventTypes lists every event the service emits.
func AllEventTypes() []EventType {
	return []EventType{
		EventTaskAssigned,
		EventTaskUnassigned,
		EventTaskReassigned,
		EventMissionTasksAssigned,
	}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	MissionID string       `json:"mission_id"`
	TaskID    string       `json:"task_id,omitempty"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   any          `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, missionID, taskID string, actor domain.Actor, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		MissionID: missionID,
		TaskID:    taskID,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TaskAssignedPayload payload.
type TaskAssignedPayload struct {
	AssigneeID string `json:"assignee_id"`
	Tier       string `json:"tier"`
	Score      int    `json:"score"`
}

// TaskUnassignedPayload payload.
type TaskUnassignedPayload struct {
	Category domain.TaskCategory `json:"category"`
	Type     domain.TaskType     `json:"type"`
}

// TaskReassignedPayload payload.
type TaskReassignedPayload struct {
	OldAssigneeID *string `json:"old_assignee_id,omitempty"`
	NewAssigneeID string  `json:"new_assignee_id"`
}

// MissionTasksAssignedPayload summarises one bulk run.
type MissionTasksAssignedPayload struct {
	TeamID          string `json:"team_id"`
	TaskCount       int    `json:"task_count"`
	AssignedCount   int    `json:"assigned_count"`
	UnassignedCount int    `json:"unassigned_count"`
}
