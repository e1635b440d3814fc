package repository

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/prepnest/assess-backend/internal/config"
	"github.com/prepnest/assess-backend/internal/session"
)

// ViolationQueue is a Redis-backed ViolationSink. Events are pushed onto a
// list and drained by the violation worker, keeping lockdown handling off
// the hot path of the session.
type ViolationQueue struct {
	rdb *redis.Client
}

// NewViolationQueue creates a new ViolationQueue.
func NewViolationQueue(rdb *redis.Client) *ViolationQueue {
	return &ViolationQueue{rdb: rdb}
}

// Record enqueues one violation for asynchronous persistence.
func (q *ViolationQueue) Record(ctx context.Context, v session.Violation) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistViolationsQueue, data).Err()
}
