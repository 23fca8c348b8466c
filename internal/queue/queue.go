// Package queue implements deferred document checks on top of a blob store.
// There is no broker: a job is one JSON record under jobs/, its uploads live
// under uploads/, and a worker polls for matured records. Results land under
// results/ keyed by job id and the uploads are deleted once processed.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/storage"
)

// JobFile points at one uploaded document inside the blob store.
type JobFile struct {
	Key  string `json:"key"`
	MIME string `json:"mime"`
	Name string `json:"name"`
}

// Job is the persisted queue record.
type Job struct {
	ID              string              `json:"id"`
	DocType         string              `json:"docType"`
	Citizenship     string              `json:"citizenship,omitempty"`
	Path            string              `json:"path,omitempty"`
	ApplicationDate string              `json:"applicationDate,omitempty"`
	UserName        string              `json:"userName,omitempty"`
	OCRMode         string              `json:"ocrMode,omitempty"`
	Files           []JobFile           `json:"files"`
	Status          constants.JobStatus `json:"status"`
	RunAt           time.Time           `json:"runAt"`
	CreatedAt       time.Time           `json:"createdAt"`
	FinishedAt      time.Time           `json:"finishedAt,omitempty"`
	Error           string              `json:"error,omitempty"`
}

// Upload is one file handed to Enqueue.
type Upload struct {
	Name string
	MIME string
	Data []byte
}

// Spec describes the job to enqueue.
type Spec struct {
	DocType         string
	Citizenship     string
	Path            string
	ApplicationDate string
	UserName        string
	OCRMode         string
	RunAt           time.Time
	Uploads         []Upload
}

// Queue persists jobs and results in a BlobStore.
type Queue struct {
	store  storage.BlobStore
	logger *slog.Logger
	now    func() time.Time
}

// New builds a queue over the store.
func New(store storage.BlobStore, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{store: store, logger: logger, now: time.Now}
}

func jobKey(id string) string    { return "jobs/" + id + ".json" }
func resultKey(id string) string { return "results/" + id + ".json" }

// Enqueue stores the uploads and the job record. The job becomes visible to
// workers once its RunAt is reached.
func (q *Queue) Enqueue(ctx context.Context, spec Spec) (Job, error) {
	id := uuid.NewString()
	now := q.now().UTC()
	runAt := spec.RunAt
	if runAt.IsZero() {
		runAt = now
	}

	job := Job{
		ID:              id,
		DocType:         spec.DocType,
		Citizenship:     spec.Citizenship,
		Path:            spec.Path,
		ApplicationDate: spec.ApplicationDate,
		UserName:        spec.UserName,
		OCRMode:         spec.OCRMode,
		Status:          constants.JobStatusQueued,
		RunAt:           runAt,
		CreatedAt:       now,
	}
	for i, up := range spec.Uploads {
		key := fmt.Sprintf("uploads/%s/%d", id, i)
		if err := q.store.Write(ctx, key, up.Data); err != nil {
			return Job{}, fmt.Errorf("store upload %d: %w", i, err)
		}
		job.Files = append(job.Files, JobFile{Key: key, MIME: up.MIME, Name: up.Name})
	}
	if err := q.save(ctx, &job); err != nil {
		return Job{}, err
	}
	q.logger.Info("queue.enqueued", "job_id", id, "doc_type", job.DocType, "files", len(job.Files), "run_at", runAt)
	return job, nil
}

// Get returns one job record.
func (q *Queue) Get(ctx context.Context, id string) (Job, error) {
	data, err := q.store.Read(ctx, jobKey(id))
	if err != nil {
		return Job{}, err
	}
	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return Job{}, fmt.Errorf("decode job %s: %w", id, err)
	}
	return job, nil
}

// Result returns the stored verification result for a finished job.
func (q *Queue) Result(ctx context.Context, id string) (json.RawMessage, error) {
	return q.store.Read(ctx, resultKey(id))
}

// Matured lists queued jobs whose RunAt has passed.
func (q *Queue) Matured(ctx context.Context, now time.Time) ([]Job, error) {
	keys, err := q.store.List(ctx, "jobs/")
	if err != nil {
		return nil, err
	}
	var matured []Job
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		data, err := q.store.Read(ctx, key)
		if err != nil {
			q.logger.Warn("queue.read_failed", "key", key, "error", err)
			continue
		}
		var job Job
		if err := json.Unmarshal(data, &job); err != nil {
			q.logger.Warn("queue.corrupt_record", "key", key, "error", err)
			continue
		}
		if job.Status == constants.JobStatusQueued && !job.RunAt.After(now) {
			matured = append(matured, job)
		}
	}
	return matured, nil
}

// ReadUpload fetches the payload of one job file.
func (q *Queue) ReadUpload(ctx context.Context, f JobFile) ([]byte, error) {
	return q.store.Read(ctx, f.Key)
}

func (q *Queue) save(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}
	if err := q.store.Write(ctx, jobKey(job.ID), data); err != nil {
		return fmt.Errorf("store job %s: %w", job.ID, err)
	}
	return nil
}
