package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/common"
	"github.com/doclab-pl/doclab/internal/storage"
)

type stubProcessor struct {
	result json.RawMessage
	err    error
	calls  []Job
	seen   [][]Upload
}

func (p *stubProcessor) ProcessJob(_ context.Context, job Job, payloads []Upload) (json.RawMessage, error) {
	p.calls = append(p.calls, job)
	p.seen = append(p.seen, payloads)
	return p.result, p.err
}

func newTestQueue(t *testing.T) (*Queue, storage.BlobStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	return New(store, nil), store
}

func TestEnqueueAndGet(t *testing.T) {
	ctx := context.Background()
	q, store := newTestQueue(t)

	job, err := q.Enqueue(ctx, Spec{
		DocType: "oplata_skarbowa",
		Path:    "work",
		Uploads: []Upload{
			{Name: "scan.jpg", MIME: "image/jpeg", Data: []byte("jpeg-bytes")},
			{Name: "page2.jpg", MIME: "image/jpeg", Data: []byte("more-bytes")},
		},
	})
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if job.ID == "" {
		t.Fatal("job id is empty")
	}
	if job.Status != constants.JobStatusQueued {
		t.Errorf("status = %q", job.Status)
	}
	if job.RunAt.IsZero() {
		t.Error("RunAt should default to now")
	}
	if len(job.Files) != 2 {
		t.Fatalf("files = %d", len(job.Files))
	}

	data, err := store.Read(ctx, job.Files[0].Key)
	if err != nil || string(data) != "jpeg-bytes" {
		t.Errorf("upload blob = %q, %v", data, err)
	}

	got, err := q.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.DocType != "oplata_skarbowa" || got.Path != "work" {
		t.Errorf("round-tripped job = %+v", got)
	}
}

func TestGet_MissingJob(t *testing.T) {
	q, _ := newTestQueue(t)
	if _, err := q.Get(context.Background(), "nope"); !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMatured(t *testing.T) {
	ctx := context.Background()
	q, store := newTestQueue(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	ready, err := q.Enqueue(ctx, Spec{DocType: "meldunek", RunAt: now.Add(-time.Minute)})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := q.Enqueue(ctx, Spec{DocType: "meldunek", RunAt: now.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	// A corrupt record must not break the scan.
	if err := store.Write(ctx, "jobs/broken.json", []byte("{not json")); err != nil {
		t.Fatal(err)
	}

	matured, err := q.Matured(ctx, now)
	if err != nil {
		t.Fatalf("Matured: %v", err)
	}
	if len(matured) != 1 || matured[0].ID != ready.ID {
		t.Fatalf("matured = %+v, want just %s", matured, ready.ID)
	}
}

func TestWorker_Success(t *testing.T) {
	ctx := context.Background()
	q, store := newTestQueue(t)
	job, err := q.Enqueue(ctx, Spec{
		DocType: "oplata_skarbowa",
		Uploads: []Upload{{Name: "scan.jpg", MIME: "image/jpeg", Data: []byte("jpeg-bytes")}},
	})
	if err != nil {
		t.Fatal(err)
	}

	proc := &stubProcessor{result: json.RawMessage(`{"ok":true}`)}
	ids, err := NewWorker(q, proc, nil).RunOnce(ctx)
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(ids) != 1 || ids[0] != job.ID {
		t.Fatalf("processed = %v", ids)
	}
	if len(proc.seen) != 1 || len(proc.seen[0]) != 1 || string(proc.seen[0][0].Data) != "jpeg-bytes" {
		t.Fatalf("processor payloads = %+v", proc.seen)
	}

	got, err := q.Get(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != constants.JobStatusDone {
		t.Errorf("status = %q", got.Status)
	}
	if got.FinishedAt.IsZero() {
		t.Error("FinishedAt not set")
	}

	res, err := q.Result(ctx, job.ID)
	if err != nil || string(res) != `{"ok":true}` {
		t.Errorf("result = %s, %v", res, err)
	}
	// Uploads are deleted once the result is stored.
	if _, err := store.Read(ctx, job.Files[0].Key); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("upload should be gone, err = %v", err)
	}
}

func TestWorker_Failure(t *testing.T) {
	ctx := context.Background()
	q, store := newTestQueue(t)
	job, err := q.Enqueue(ctx, Spec{
		DocType: "lease_standard",
		Uploads: []Upload{{Name: "lease.pdf", MIME: "application/pdf", Data: []byte("%PDF")}},
	})
	if err != nil {
		t.Fatal(err)
	}

	proc := &stubProcessor{err: errors.New("model unavailable")}
	if _, err := NewWorker(q, proc, nil).RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	got, err := q.Get(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != constants.JobStatusError {
		t.Errorf("status = %q", got.Status)
	}
	if got.Error != "model unavailable" {
		t.Errorf("error = %q", got.Error)
	}
	// Failed jobs keep their uploads for a retry or inspection.
	if _, err := store.Read(ctx, job.Files[0].Key); err != nil {
		t.Errorf("upload should survive a failed run: %v", err)
	}
	if _, err := q.Result(ctx, job.ID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("no result should exist, err = %v", err)
	}
}

func TestWorker_DoesNotReprocess(t *testing.T) {
	ctx := context.Background()
	q, _ := newTestQueue(t)
	if _, err := q.Enqueue(ctx, Spec{DocType: "meldunek"}); err != nil {
		t.Fatal(err)
	}

	proc := &stubProcessor{result: json.RawMessage(`{"ok":true}`)}
	w := NewWorker(q, proc, nil)
	if _, err := w.RunOnce(ctx); err != nil {
		t.Fatal(err)
	}
	ids, err := w.RunOnce(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 0 {
		t.Fatalf("second pass picked up %v", ids)
	}
	if len(proc.calls) != 1 {
		t.Errorf("processor ran %d times", len(proc.calls))
	}
}
