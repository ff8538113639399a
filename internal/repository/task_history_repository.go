package repository

import (
	"context"

	"github.com/spec-kit/field-service/internal/domain"
)

// TaskHistoryRepository stores audit entries.
type TaskHistoryRepository interface {
	Create(ctx context.Context, history *domain.TaskHistory) error
	ListByTask(ctx context.Context, taskID string) ([]domain.TaskHistory, error)
}

type taskHistoryRepository struct {
	db Querier
}

// NewTaskHistoryRepository builds repository.
func NewTaskHistoryRepository(db Querier) TaskHistoryRepository {
	return &taskHistoryRepository{db: db}
}

func (r *taskHistoryRepository) Create(ctx context.Context, history *domain.TaskHistory) error {
	const query = `
        INSERT INTO task_history (task_id, changed_by_id, change_type, note, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return r.db.QueryRow(ctx, query,
		history.TaskID,
		history.ChangedByID,
		history.ChangeType,
		history.Note,
		history.OldValue,
		history.NewValue,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *taskHistoryRepository) ListByTask(ctx context.Context, taskID string) ([]domain.TaskHistory, error) {
	const query = `
        SELECT id, task_id, changed_by_id, change_type, note, old_value, new_value, created_at
        FROM task_history WHERE task_id=$1 ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TaskHistory
	for rows.Next() {
		var history domain.TaskHistory
		if err := rows.Scan(
			&history.ID,
			&history.TaskID,
			&history.ChangedByID,
			&history.ChangeType,
			&history.Note,
			&history.OldValue,
			&history.NewValue,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
