package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// StaffRole enumerates operator roles.
type StaffRole string

const (
	StaffRoleAgent    StaffRole = "AGENT"
	StaffRoleTeamLead StaffRole = "TEAM_LEAD"
	StaffRoleAdmin    StaffRole = "ADMIN"
)

// Specialty is a capability tag held by a team member.
type Specialty string

const (
	SpecialtyWindow            Specialty = "WINDOW_SPECIALIST"
	SpecialtyFloor             Specialty = "FLOOR_SPECIALIST"
	SpecialtyLuxurySurfaces    Specialty = "LUXURY_SURFACES"
	SpecialtyGeneralCleaning   Specialty = "GENERAL_CLEANING"
	SpecialtyQualityControl    Specialty = "QUALITY_CONTROL"
	SpecialtyEquipmentHandling Specialty = "EQUIPMENT_HANDLING"
	SpecialtyTeamManagement    Specialty = "TEAM_MANAGEMENT"
)

var knownSpecialties = []Specialty{
	SpecialtyWindow,
	SpecialtyFloor,
	SpecialtyLuxurySurfaces,
	SpecialtyGeneralCleaning,
	SpecialtyQualityControl,
	SpecialtyEquipmentHandling,
	SpecialtyTeamManagement,
}

// Valid reports whether s is one of the known specialties.
func (s Specialty) Valid() bool {
	return slices.Contains(knownSpecialties, s)
}

// ExperienceLevel is an ordered skill tier. Comparisons use the integer value.
type ExperienceLevel int

const (
	ExperienceJunior ExperienceLevel = iota
	ExperienceIntermediate
	ExperienceSenior
	ExperienceExpert
)

var experienceNames = [...]string{"JUNIOR", "INTERMEDIATE", "SENIOR", "EXPERT"}

func (e ExperienceLevel) String() string {
	if e < ExperienceJunior || e > ExperienceExpert {
		return fmt.Sprintf("ExperienceLevel(%d)", int(e))
	}
	return experienceNames[e]
}

// Valid reports whether e is inside the known scale.
func (e ExperienceLevel) Valid() bool {
	return e >= ExperienceJunior && e <= ExperienceExpert
}

// AtLeast reports whether e meets the floor.
func (e ExperienceLevel) AtLeast(floor ExperienceLevel) bool {
	return e >= floor
}

// ParseExperienceLevel accepts the upper-case tier names, case-insensitively.
func ParseExperienceLevel(s string) (ExperienceLevel, error) {
	for i, name := range experienceNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return ExperienceLevel(i), nil
		}
	}
	return 0, fmt.Errorf("unknown experience level %q", s)
}

// MarshalText encodes the tier by name for JSON, YAML and database text columns.
func (e ExperienceLevel) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("invalid experience level %d", int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText decodes a tier name.
func (e *ExperienceLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseExperienceLevel(string(text))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Availability is a member's current duty state.
type Availability string

const (
	AvailabilityAvailable Availability = "AVAILABLE"
	AvailabilityBusy      Availability = "BUSY"
	AvailabilityOffDuty   Availability = "OFF_DUTY"
	AvailabilityVacation  Availability = "VACATION"
)

// TeamMember is a worker in a team roster. CurrentTaskCount is derived from tasks in
// ASSIGNED or IN_PROGRESS state at load time and is never stored on the member row.
type TeamMember struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	TeamID           string          `json:"team_id"`
	Name             string          `json:"name"`
	Role             StaffRole       `json:"role"`
	Specialties      []Specialty     `json:"specialties"`
	Experience       ExperienceLevel `json:"experience"`
	Availability     Availability    `json:"availability"`
	Active           bool            `json:"active"`
	CurrentTaskCount int             `json:"current_task_count"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// IsAvailable reports whether the member can take automatic assignments.
func (m *TeamMember) IsAvailable() bool {
	return m.Availability == AvailabilityAvailable
}

func (m *TeamMember) HasSpecialty(s Specialty) bool {
	return slices.Contains(m.Specialties, s)
}

// HasAnySpecialty reports whether the member holds at least one of required.
func (m *TeamMember) HasAnySpecialty(required []Specialty) bool {
	for _, s := range required {
		if m.HasSpecialty(s) {
			return true
		}
	}
	return false
}
