package domain

import "time"

// MissionStatus enumerates lifecycle states for missions.
type MissionStatus string

const (
	MissionStatusScheduled  MissionStatus = "SCHEDULED"
	MissionStatusInProgress MissionStatus = "IN_PROGRESS"
	MissionStatusCompleted  MissionStatus = "COMPLETED"
	MissionStatusCancelled  MissionStatus = "CANCELLED"
)

// Mission is an on-site intervention executed by one team.
type Mission struct {
	ID          string
	Reference   string
	TeamID      string
	Title       string
	Status      MissionStatus
	ScheduledAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AcceptsTasks reports whether new tasks may still be planned on the mission.
func (m *Mission) AcceptsTasks() bool {
	return m.Status == MissionStatusScheduled || m.Status == MissionStatusInProgress
}
