package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
)

// MissionRepository reads missions.
type MissionRepository interface {
	Create(ctx context.Context, mission *domain.Mission) error
	GetByID(ctx context.Context, id string) (*domain.Mission, error)
}

type missionRepository struct {
	db Querier
}

// NewMissionRepository constructs repository.
func NewMissionRepository(db Querier) MissionRepository {
	return &missionRepository{db: db}
}

func (r *missionRepository) Create(ctx context.Context, mission *domain.Mission) error {
	const query = `
        INSERT INTO missions (reference, team_id, title, status, scheduled_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		mission.Reference,
		mission.TeamID,
		mission.Title,
		mission.Status,
		mission.ScheduledAt,
	).Scan(&mission.ID, &mission.CreatedAt, &mission.UpdatedAt)
}

func (r *missionRepository) GetByID(ctx context.Context, id string) (*domain.Mission, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	const query = `
        SELECT id, reference, team_id, title, status, scheduled_at, created_at, updated_at
        FROM missions WHERE id=$1`
	var mission domain.Mission
	if err := r.db.QueryRow(ctx, query, id).Scan(
		&mission.ID,
		&mission.Reference,
		&mission.TeamID,
		&mission.Title,
		&mission.Status,
		&mission.ScheduledAt,
		&mission.CreatedAt,
		&mission.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &mission, nil
}
