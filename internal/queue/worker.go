package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/doclab-pl/doclab/constants"
)

// Processor runs the actual document check for one job. The returned value
// is stored verbatim under results/.
type Processor interface {
	ProcessJob(ctx context.Context, job Job, payloads []Upload) (json.RawMessage, error)
}

// Worker polls for matured jobs and drives them through the processor.
type Worker struct {
	queue     *Queue
	processor Processor
	logger    *slog.Logger
}

// NewWorker wires a worker.
func NewWorker(q *Queue, p Processor, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{queue: q, processor: p, logger: logger}
}

// RunOnce processes every currently matured job and returns the ids it
// touched. Individual job failures are recorded on the job, not returned.
func (w *Worker) RunOnce(ctx context.Context) ([]string, error) {
	matured, err := w.queue.Matured(ctx, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("list matured jobs: %w", err)
	}

	var processed []string
	for i := range matured {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		job := matured[i]
		w.process(ctx, &job)
		processed = append(processed, job.ID)
	}
	return processed, nil
}

// Run polls until the context is canceled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if ids, err := w.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Error("worker.poll_failed", "error", err)
		} else if len(ids) > 0 {
			w.logger.Info("worker.batch_done", "jobs", ids)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Worker) process(ctx context.Context, job *Job) {
	started := time.Now()
	job.Status = constants.JobStatusProcessing
	if err := w.queue.save(ctx, job); err != nil {
		w.logger.Error("worker.claim_failed", "job_id", job.ID, "error", err)
		return
	}

	payloads, err := w.loadUploads(ctx, job)
	if err == nil {
		var result json.RawMessage
		result, err = w.processor.ProcessJob(ctx, *job, payloads)
		if err == nil {
			err = w.queue.store.Write(ctx, resultKey(job.ID), result)
		}
	}

	if err != nil {
		job.Status = constants.JobStatusError
		job.Error = err.Error()
		job.FinishedAt = time.Now().UTC()
		if saveErr := w.queue.save(ctx, job); saveErr != nil {
			w.logger.Error("worker.save_failed", "job_id", job.ID, "error", saveErr)
		}
		w.logger.Error("worker.job_failed", "job_id", job.ID, "error", err, "duration", time.Since(started))
		return
	}

	for _, f := range job.Files {
		if err := w.queue.store.Delete(ctx, f.Key); err != nil {
			w.logger.Warn("worker.cleanup_failed", "job_id", job.ID, "key", f.Key, "error", err)
		}
	}

	job.Status = constants.JobStatusDone
	job.Error = ""
	job.FinishedAt = time.Now().UTC()
	if err := w.queue.save(ctx, job); err != nil {
		w.logger.Error("worker.save_failed", "job_id", job.ID, "error", err)
		return
	}
	w.logger.Info("worker.job_done", "job_id", job.ID, "duration", time.Since(started))
}

func (w *Worker) loadUploads(ctx context.Context, job *Job) ([]Upload, error) {
	payloads := make([]Upload, 0, len(job.Files))
	for _, f := range job.Files {
		data, err := w.queue.ReadUpload(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("read upload %s: %w", f.Key, err)
		}
		payloads = append(payloads, Upload{Name: f.Name, MIME: f.MIME, Data: data})
	}
	return payloads, nil
}
