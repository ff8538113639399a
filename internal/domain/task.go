package domain

import (
	"slices"
	"time"
)

// TaskCategory is the work area a task belongs to.
type TaskCategory string

const (
	CategoryWindowsJoinery   TaskCategory = "WINDOWS_JOINERY"
	CategoryFloors           TaskCategory = "FLOORS"
	CategoryKitchen          TaskCategory = "KITCHEN"
	CategoryBathroomSanitary TaskCategory = "BATHROOM_SANITARY"
	CategoryLivingSpaces     TaskCategory = "LIVING_SPACES"
	CategoryLogisticsAccess  TaskCategory = "LOGISTICS_ACCESS"
	CategoryGeneral          TaskCategory = "GENERAL"
)

var knownCategories = []TaskCategory{
	CategoryWindowsJoinery,
	CategoryFloors,
	CategoryKitchen,
	CategoryBathroomSanitary,
	CategoryLivingSpaces,
	CategoryLogisticsAccess,
	CategoryGeneral,
}

func (c TaskCategory) Valid() bool {
	return slices.Contains(knownCategories, c)
}

// TaskType is the kind of work.
type TaskType string

const (
	TaskTypeCleanup         TaskType = "CLEANUP"
	TaskTypeDetailFinishing TaskType = "DETAIL_FINISHING"
	TaskTypeQualityCheck    TaskType = "QUALITY_CHECK"
)

var knownTaskTypes = []TaskType{TaskTypeCleanup, TaskTypeDetailFinishing, TaskTypeQualityCheck}

func (t TaskType) Valid() bool {
	return slices.Contains(knownTaskTypes, t)
}

// TaskStatus enumerates lifecycle states for mission tasks.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusAssigned   TaskStatus = "ASSIGNED"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// CountsAsWorkload reports whether a task in this state loads its assignee.
func (s TaskStatus) CountsAsWorkload() bool {
	return s == TaskStatusAssigned || s == TaskStatusInProgress
}

// TaskDescriptor is a unit of work to place. ID is empty for tasks not yet persisted.
type TaskDescriptor struct {
	ID               string       `json:"id,omitempty"`
	Title            string       `json:"title"`
	Description      string       `json:"description,omitempty"`
	Category         TaskCategory `json:"category"`
	Type             TaskType     `json:"type"`
	EstimatedMinutes int          `json:"estimated_minutes"`
}

// Task is a persisted mission task.
type Task struct {
	ID               string
	MissionID        string
	Title            string
	Description      string
	Category         TaskCategory
	Type             TaskType
	EstimatedMinutes int
	Status           TaskStatus
	AssigneeID       *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Descriptor projects the task onto the fields the assignment engine reads.
func (t *Task) Descriptor() TaskDescriptor {
	return TaskDescriptor{
		ID:               t.ID,
		Title:            t.Title,
		Description:      t.Description,
		Category:         t.Category,
		Type:             t.Type,
		EstimatedMinutes: t.EstimatedMinutes,
	}
}
