package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/field-service/internal/domain"
)

// RosterCache holds short-lived roster snapshots for the read-only suggestion path.
// Bulk assignment always reads the roster from Postgres under the team lock.
type RosterCache interface {
	Get(ctx context.Context, teamID string) ([]domain.TeamMember, bool, error)
	Set(ctx context.Context, teamID string, roster []domain.TeamMember) error
	Invalidate(ctx context.Context, teamID string) error
}

type redisRosterCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRosterCache returns a Redis-backed cache. A nil client or non-positive ttl yields a
// cache that never hits.
func NewRosterCache(client *redis.Client, ttl time.Duration) RosterCache {
	if client == nil || ttl <= 0 {
		return noopRosterCache{}
	}
	return &redisRosterCache{client: client, ttl: ttl}
}

func rosterKey(teamID string) string {
	return "roster:" + teamID
}

func (c *redisRosterCache) Get(ctx context.Context, teamID string) ([]domain.TeamMember, bool, error) {
	raw, err := c.client.Get(ctx, rosterKey(teamID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var roster []domain.TeamMember
	if err := json.Unmarshal(raw, &roster); err != nil {
		return nil, false, err
	}
	return roster, true, nil
}

func (c *redisRosterCache) Set(ctx context.Context, teamID string, roster []domain.TeamMember) error {
	raw, err := json.Marshal(roster)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, rosterKey(teamID), raw, c.ttl).Err()
}

func (c *redisRosterCache) Invalidate(ctx context.Context, teamID string) error {
	return c.client.Del(ctx, rosterKey(teamID)).Err()
}

type noopRosterCache struct{}

func (noopRosterCache) Get(context.Context, string) ([]domain.TeamMember, bool, error) {
	return nil, false, nil
}

func (noopRosterCache) Set(context.Context, string, []domain.TeamMember) error { return nil }

func (noopRosterCache) Invalidate(context.Context, string) error { return nil }
