package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/persistence"
)

const teamAssignmentLockScope = "team-assignment"

// TxRepositories are repositories bound to one open transaction.
type TxRepositories struct {
	Missions MissionRepository
	Members  TeamMemberRepository
	Tasks    TaskRepository
	History  TaskHistoryRepository
}

// UnitOfWork runs assignment writes atomically.
type UnitOfWork interface {
	// WithTeamLock opens a transaction, takes the team's advisory lock and runs fn.
	// Concurrent runs for the same team queue behind each other; the lock is released
	// when the transaction ends.
	WithTeamLock(ctx context.Context, teamID string, fn func(ctx context.Context, repos TxRepositories) error) error
	// WithinTx runs fn in a transaction without a team lock.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos TxRepositories) error) error
}

type pgUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewUnitOfWork builds a pgx-backed unit of work.
func NewUnitOfWork(pool *pgxpool.Pool) UnitOfWork {
	return &pgUnitOfWork{pool: pool}
}

func (u *pgUnitOfWork) WithTeamLock(ctx context.Context, teamID string, fn func(context.Context, TxRepositories) error) error {
	return persistence.WithTx(ctx, u.pool, func(tx pgx.Tx) error {
		if err := persistence.LockTx(ctx, tx, persistence.AdvisoryKey(teamAssignmentLockScope, teamID)); err != nil {
			return err
		}
		return fn(ctx, bind(tx))
	})
}

func (u *pgUnitOfWork) WithinTx(ctx context.Context, fn func(context.Context, TxRepositories) error) error {
	return persistence.WithTx(ctx, u.pool, func(tx pgx.Tx) error {
		return fn(ctx, bind(tx))
	})
}

func bind(tx pgx.Tx) TxRepositories {
	return TxRepositories{
		Missions: NewMissionRepository(tx),
		Members:  NewTeamMemberRepository(tx),
		Tasks:    NewTaskRepository(tx),
		History:  NewTaskHistoryRepository(tx),
	}
}
