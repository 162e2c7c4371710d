// Package queue moves cleanup jobs between the API and the worker over a
// redis list.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/learnhub/chathub/internal/jobs"
	"github.com/redis/go-redis/v9"
)

const cleanupKey = "chathub:cleanup"

type Queue struct {
	rdb *redis.Client
}

func New(rdb *redis.Client) *Queue {
	return &Queue{rdb: rdb}
}

func (q *Queue) Enqueue(ctx context.Context, j jobs.Job) error {
	b, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}

	return q.rdb.LPush(ctx, cleanupKey, b).Err()
}

// Dequeue blocks up to wait for the next job. Returns redis.Nil when the
// wait expires with an empty queue.
func (q *Queue) Dequeue(ctx context.Context, wait time.Duration) (jobs.Job, error) {
	res, err := q.rdb.BRPop(ctx, wait, cleanupKey).Result()
	if err != nil {
		return jobs.Job{}, err
	}

	// BRPOP returns [key, value]
	if len(res) != 2 {
		return jobs.Job{}, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}

	var j jobs.Job
	if err := json.Unmarshal([]byte(res[1]), &j); err != nil {
		return jobs.Job{}, fmt.Errorf("unmarshal job: %w", err)
	}

	return j, nil
}
