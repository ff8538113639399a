package repository

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
)

// TaskFilter narrows task listings. Zero values are ignored.
type TaskFilter struct {
	MissionID  *string
	AssigneeID *string
	Unassigned bool
	Statuses   []domain.TaskStatus
	Limit      int
	Offset     int
}

// TaskRepository encapsulates task persistence.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	UpdateAssignment(ctx context.Context, task *domain.Task) error
	GetByID(ctx context.Context, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
}

type taskRepository struct {
	db Querier
}

// NewTaskRepository instantiates repository.
func NewTaskRepository(db Querier) TaskRepository {
	return &taskRepository{db: db}
}

var taskColumns = []string{
	"id", "mission_id", "title", "description", "category", "type",
	"estimated_minutes", "status", "assignee_id", "created_at", "updated_at",
}

func (r *taskRepository) Create(ctx context.Context, task *domain.Task) error {
	const query = `
        INSERT INTO tasks (mission_id, title, description, category, type, estimated_minutes, status, assignee_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		task.MissionID,
		task.Title,
		task.Description,
		task.Category,
		task.Type,
		task.EstimatedMinutes,
		task.Status,
		task.AssigneeID,
	).Scan(&task.ID, &task.CreatedAt, &task.UpdatedAt)
}

// UpdateAssignment writes the assignee and status columns only.
func (r *taskRepository) UpdateAssignment(ctx context.Context, task *domain.Task) error {
	const query = `
        UPDATE tasks SET assignee_id=$1, status=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING updated_at`
	return r.db.QueryRow(ctx, query, task.AssigneeID, task.Status, task.ID).Scan(&task.UpdatedAt)
}

func (r *taskRepository) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query, args, err := psql.Select(taskColumns...).From("tasks").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	return scanTask(r.db.QueryRow(ctx, query, args...))
}

func (r *taskRepository) List(ctx context.Context, filter TaskFilter) ([]domain.Task, error) {
	builder := psql.Select(taskColumns...).From("tasks").OrderBy("created_at ASC", "id ASC")

	if filter.MissionID != nil {
		builder = builder.Where(squirrel.Eq{"mission_id": *filter.MissionID})
	}
	if filter.AssigneeID != nil {
		builder = builder.Where(squirrel.Eq{"assignee_id": *filter.AssigneeID})
	}
	if filter.Unassigned {
		builder = builder.Where(squirrel.Eq{"assignee_id": nil})
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		builder = builder.Where(squirrel.Eq{"status": statuses})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *task)
	}
	return result, rows.Err()
}

func scanTask(row pgx.Row) (*domain.Task, error) {
	var task domain.Task
	if err := row.Scan(
		&task.ID,
		&task.MissionID,
		&task.Title,
		&task.Description,
		&task.Category,
		&task.Type,
		&task.EstimatedMinutes,
		&task.Status,
		&task.AssigneeID,
		&task.CreatedAt,
		&task.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &task, nil
}
