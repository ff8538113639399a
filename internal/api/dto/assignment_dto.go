package dto

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
)

// CreateTasksRequest payload.
type CreateTasksRequest struct {
	Tasks []TaskInput `json:"tasks"`
}

// TaskInput describes one task to create on a mission.
type TaskInput struct {
	Title            string              `json:"title"`
	Description      string              `json:"description"`
	Category         domain.TaskCategory `json:"category"`
	Type             domain.TaskType     `json:"type"`
	EstimatedMinutes int                 `json:"estimated_minutes"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	WorkerID string `json:"worker_id"`
}

// TaskResponse is a persisted task. Tier and Score are set when the task was placed by
// an assignment run.
type TaskResponse struct {
	ID               string              `json:"id"`
	MissionID        string              `json:"mission_id"`
	Title            string              `json:"title"`
	Description      string              `json:"description,omitempty"`
	Category         domain.TaskCategory `json:"category"`
	Type             domain.TaskType     `json:"type"`
	EstimatedMinutes int                 `json:"estimated_minutes"`
	Status           domain.TaskStatus   `json:"status"`
	AssigneeID       *string             `json:"assignee_id"`
	Tier             string              `json:"tier,omitempty"`
	Score            *int                `json:"score,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// AssignmentOutcomeResponse summarises a bulk assignment run.
type AssignmentOutcomeResponse struct {
	MissionID       string         `json:"mission_id"`
	Tasks           []TaskResponse `json:"tasks"`
	AssignedCount   int            `json:"assigned_count"`
	UnassignedCount int            `json:"unassigned_count"`
}

// SuggestionResponse is one ranked roster member.
type SuggestionResponse struct {
	WorkerID           string                 `json:"worker_id"`
	Name               string                 `json:"name"`
	Role               domain.StaffRole       `json:"role"`
	Specialties        []domain.Specialty     `json:"specialties"`
	Experience         domain.ExperienceLevel `json:"experience"`
	Availability       domain.Availability    `json:"availability"`
	CurrentTaskCount   int                    `json:"current_task_count"`
	EligibilityScore   int                    `json:"eligibility_score"`
	EligibilityReasons []string               `json:"eligibility_reasons"`
	Eligible           bool                   `json:"eligible"`
}
