package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
)

// TeamMemberRepository reads and writes roster members.
type TeamMemberRepository interface {
	Create(ctx context.Context, member *domain.TeamMember) error
	GetByID(ctx context.Context, id string) (*domain.TeamMember, error)
	// ListRoster returns the team's active members ordered by (created_at, id) with
	// CurrentTaskCount set from their ASSIGNED and IN_PROGRESS tasks.
	ListRoster(ctx context.Context, teamID string) ([]domain.TeamMember, error)
}

type teamMemberRepository struct {
	db Querier
}

// NewTeamMemberRepository constructs repository.
func NewTeamMemberRepository(db Querier) TeamMemberRepository {
	return &teamMemberRepository{db: db}
}

const memberColumns = `m.id, m.user_id, m.team_id, m.name, m.role, m.specialties, m.experience,
               m.availability, m.active,
               (SELECT COUNT(*) FROM tasks t
                 WHERE t.assignee_id = m.id AND t.status IN ('ASSIGNED','IN_PROGRESS')) AS current_task_count,
               m.created_at, m.updated_at`

func (r *teamMemberRepository) Create(ctx context.Context, member *domain.TeamMember) error {
	const query = `
        INSERT INTO team_members (user_id, team_id, name, role, specialties, experience, availability, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		member.UserID,
		member.TeamID,
		member.Name,
		member.Role,
		specialtyStrings(member.Specialties),
		member.Experience.String(),
		member.Availability,
		member.Active,
	).Scan(&member.ID, &member.CreatedAt, &member.UpdatedAt)
}

func (r *teamMemberRepository) GetByID(ctx context.Context, id string) (*domain.TeamMember, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + memberColumns + ` FROM team_members m WHERE m.id=$1`
	return scanMember(r.db.QueryRow(ctx, query, id))
}

func (r *teamMemberRepository) ListRoster(ctx context.Context, teamID string) ([]domain.TeamMember, error) {
	if !validID(teamID) {
		return nil, nil
	}
	query := `SELECT ` + memberColumns + `
        FROM team_members m
        WHERE m.team_id=$1 AND m.active=TRUE
        ORDER BY m.created_at ASC, m.id ASC`
	rows, err := r.db.Query(ctx, query, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TeamMember
	for rows.Next() {
		member, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *member)
	}
	return result, rows.Err()
}

func scanMember(row pgx.Row) (*domain.TeamMember, error) {
	var (
		member      domain.TeamMember
		specialties []string
		experience  string
	)
	if err := row.Scan(
		&member.ID,
		&member.UserID,
		&member.TeamID,
		&member.Name,
		&member.Role,
		&specialties,
		&experience,
		&member.Availability,
		&member.Active,
		&member.CurrentTaskCount,
		&member.CreatedAt,
		&member.UpdatedAt,
	); err != nil {
		return nil, err
	}
	level, err := domain.ParseExperienceLevel(experience)
	if err != nil {
		return nil, fmt.Errorf("team member %s: %w", member.ID, err)
	}
	member.Experience = level
	member.Specialties = make([]domain.Specialty, len(specialties))
	for i, s := range specialties {
		member.Specialties[i] = domain.Specialty(s)
	}
	return &member, nil
}

func specialtyStrings(in []domain.Specialty) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = string(s)
	}
	return out
}
