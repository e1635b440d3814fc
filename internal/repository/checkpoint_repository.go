package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/prepnest/assess-backend/internal/config"
)

// checkpointTTL bounds how long an abandoned deadline lingers in Redis.
// Long enough to cover any exam plus a reconnect gap.
const checkpointTTL = 24 * time.Hour

// CheckpointRepository stores countdown deadlines in Redis so a dropped
// connection or reload resumes against the original end time.
type CheckpointRepository struct {
	rdb *redis.Client
}

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(rdb *redis.Client) *CheckpointRepository {
	return &CheckpointRepository{rdb: rdb}
}

// SaveDeadline stores the absolute deadline as unix milliseconds.
func (r *CheckpointRepository) SaveDeadline(ctx context.Context, userID string, examID uuid.UUID, deadline time.Time) error {
	key := config.CacheKey.SessionDeadlineKey(userID, examID.String())
	return r.rdb.Set(ctx, key, strconv.FormatInt(deadline.UnixMilli(), 10), checkpointTTL).Err()
}

// LoadDeadline retrieves a stored deadline. The second return value is
// false when no checkpoint exists.
func (r *CheckpointRepository) LoadDeadline(ctx context.Context, userID string, examID uuid.UUID) (time.Time, bool, error) {
	key := config.CacheKey.SessionDeadlineKey(userID, examID.String())
	raw, err := r.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	millis, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, false, err
	}
	return time.UnixMilli(millis), true, nil
}

// ClearDeadline removes the checkpoint after submission.
func (r *CheckpointRepository) ClearDeadline(ctx context.Context, userID string, examID uuid.UUID) error {
	key := config.CacheKey.SessionDeadlineKey(userID, examID.String())
	return r.rdb.Del(ctx, key).Err()
}
