package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/doclab-pl/doclab/internal/queue"
)

// ProcessJob satisfies queue.Processor: a deferred job runs through the same
// verification path as a synchronous request, with debug counters off. The
// stored result mirrors the synchronous response shape.
func (v *Verifier) ProcessJob(ctx context.Context, job queue.Job, payloads []queue.Upload) (json.RawMessage, error) {
	files := make([]File, len(payloads))
	for i, p := range payloads {
		files[i] = File{Name: p.Name, MIME: p.MIME, Data: p.Data}
	}

	out, err := v.Verify(ctx, VerifyInput{
		Files:           files,
		DocType:         job.DocType,
		Citizenship:     job.Citizenship,
		Path:            job.Path,
		ApplicationDate: job.ApplicationDate,
		UserName:        job.UserName,
		OCRMode:         job.OCRMode,
	})
	if err != nil {
		return nil, err
	}

	stored, err := json.Marshal(struct {
		OK     bool            `json:"ok"`
		Result json.RawMessage `json:"result"`
	}{OK: true, Result: mustJSON(out.Result)})
	if err != nil {
		return nil, fmt.Errorf("encode job result: %w", err)
	}
	return stored, nil
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
