// Package worker drains the cleanup queue and deletes superseded files.
// Deletion is best-effort across the system: failures are logged and the
// job is dropped, never retried into the caller's path.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/learnhub/chathub/internal/jobs"
	"github.com/learnhub/chathub/internal/queue"
	"github.com/redis/go-redis/v9"
)

type FileDeleter interface {
	Delete(ref string) error
}

type Config struct {
	PollWait time.Duration
}

type Worker struct {
	cfg   Config
	queue *queue.Queue
	files FileDeleter
	log   *slog.Logger

	// Processed, when set, is called after every job for metrics.
	Processed func(result string)
}

func New(cfg Config, q *queue.Queue, files FileDeleter, log *slog.Logger) *Worker {
	if cfg.PollWait <= 0 {
		cfg.PollWait = 5 * time.Second
	}

	return &Worker{cfg: cfg, queue: q, files: files, log: log}
}

func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Info("cleanup worker shutting down")
			return nil
		default:
		}

		j, err := w.queue.Dequeue(ctx, w.cfg.PollWait)

		if err != nil {
			if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
				continue
			}
			w.log.Error("dequeue failed", "err", err)
			time.Sleep(w.cfg.PollWait)
			continue
		}

		w.handle(j)
	}
}

func (w *Worker) handle(j jobs.Job) {
	payload, err := jobs.DecodePayload(j)
	if err != nil {
		w.log.Error("dropping undecodable job", "job_id", j.ID, "err", err)
		w.observe("invalid")
		return
	}

	switch p := payload.(type) {
	case jobs.FileDeletePayload:
		if err := w.files.Delete(p.Ref); err != nil {
			// best-effort: log and move on
			w.log.Warn("file delete failed", "job_id", j.ID, "ref", p.Ref, "err", err)
			w.observe("failed")
			return
		}
		w.log.Info("deleted superseded file", "job_id", j.ID, "ref", p.Ref)
		w.observe("done")

	default:
		w.log.Error("no handler for job type", "job_id", j.ID, "type", j.Type)
		w.observe("invalid")
	}
}

func (w *Worker) observe(result string) {
	if w.Processed != nil {
		w.Processed(result)
	}
}
