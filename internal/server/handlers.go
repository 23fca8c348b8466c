package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/queue"
	"github.com/doclab-pl/doclab/internal/service"
	"github.com/doclab-pl/doclab/internal/translate"
)

// uploadForm is a multipart form read part by part, so the files keep the
// order the client sent them in. Recognition depends on reading order, and
// the parsed-form map would lose it for files spread over several field
// names.
type uploadForm struct {
	values map[string]string
	files  []service.File
}

// value returns the first non-empty occurrence of a text field, or the
// fallback.
func (f *uploadForm) value(key, fallback string) string {
	if v := f.values[key]; v != "" {
		return v
	}
	return fallback
}

// readForm consumes the request body in wire order. The body is capped at
// the upload limit; exceeding it fails the read mid-part.
func readForm(w http.ResponseWriter, r *http.Request) (*uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadBytes)
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, fmt.Errorf("invalid multipart form: %w", err)
	}

	form := &uploadForm{values: make(map[string]string)}
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return form, nil
		}
		if err != nil {
			return nil, fmt.Errorf("invalid multipart form: %w", err)
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %q: %w", part.FormName(), err)
		}

		if part.FileName() == "" {
			if _, seen := form.values[part.FormName()]; !seen {
				form.values[part.FormName()] = string(data)
			}
			continue
		}
		mime := part.Header.Get("Content-Type")
		if mime == "" || mime == "application/octet-stream" {
			mime = sniffMIME(part.FileName(), data)
		}
		form.files = append(form.files, service.File{Name: part.FileName(), MIME: mime, Data: data})
	}
}

// handleVerify runs a synchronous document check.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	form, ok := s.parseUploads(w, r)
	if !ok {
		return
	}

	out, err := s.verifier.Verify(r.Context(), service.VerifyInput{
		Files:           form.files,
		DocType:         form.value("docType", "unknown"),
		Citizenship:     form.value("citizenship", ""),
		Path:            form.value("path", ""),
		ApplicationDate: form.value("applicationDate", ""),
		UserName:        form.value("userName", ""),
		OCRMode:         form.value("ocr_mode", ""),
		Debug:           form.value("debug", "") == "1",
		DebugFull:       form.value("debug_full", "") == "1",
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := map[string]any{"ok": true, "result": out.Result}
	if out.Debug != nil {
		resp["debug"] = out.Debug
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleTranslate translates text, an image or a PDF.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := translate.Request{
		From: form.value("from", ""),
		To:   form.value("to", ""),
		Text: form.value("text", ""),
	}
	if len(form.files) > 0 {
		req.File = form.files[0].Data
		req.FileMIME = form.files[0].MIME
	}

	text, err := s.translator.Translate(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "text": text})
}

// handleOCRPreview probes how much text recognizes from a single file.
func (s *Server) handleOCRPreview(w http.ResponseWriter, r *http.Request) {
	form, err := readForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(form.files) == 0 {
		writeError(w, http.StatusBadRequest, "no file attached")
		return
	}
	first := form.files[0]

	preview, err := s.verifier.OCRPreview(r.Context(), first.Data, first.MIME)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"mode":    preview.Mode,
		"chars":   preview.Chars,
		"excerpt": preview.Excerpt,
	})
}

// handleEnqueueJob stores a deferred check.
func (s *Server) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "job queue disabled")
		return
	}
	form, ok := s.parseUploads(w, r)
	if !ok {
		return
	}

	var runAt time.Time
	if v := form.value("runAt", ""); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "runAt must be RFC 3339")
			return
		}
		runAt = t
	}

	uploads := make([]queue.Upload, len(form.files))
	for i, f := range form.files {
		uploads[i] = queue.Upload{Name: f.Name, MIME: f.MIME, Data: f.Data}
	}
	job, err := s.jobs.Enqueue(r.Context(), queue.Spec{
		DocType:         form.value("docType", "unknown"),
		Citizenship:     form.value("citizenship", ""),
		Path:            form.value("path", ""),
		ApplicationDate: form.value("applicationDate", ""),
		UserName:        form.value("userName", ""),
		OCRMode:         form.value("ocr_mode", ""),
		RunAt:           runAt,
		Uploads:         uploads,
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"ok":     true,
		"id":     job.ID,
		"status": job.Status,
		"runAt":  job.RunAt,
	})
}

// handleJobStatus returns the job record, plus the stored result once done.
func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if s.jobs == nil {
		writeError(w, http.StatusServiceUnavailable, "job queue disabled")
		return
	}
	id := chi.URLParam(r, "id")
	job, err := s.jobs.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := map[string]any{"ok": true, "job": job}
	if job.Status == constants.JobStatusDone {
		if result, err := s.jobs.Result(r.Context(), id); err == nil {
			resp["result"] = result
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// parseUploads reads and validates the multipart upload set shared by the
// verify and jobs endpoints. On failure the response has been written.
func (s *Server) parseUploads(w http.ResponseWriter, r *http.Request) (*uploadForm, bool) {
	form, err := readForm(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if len(form.files) == 0 {
		writeError(w, http.StatusBadRequest, "no files attached")
		return nil, false
	}
	if len(form.files) > constants.MaxFiles {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("max %d files", constants.MaxFiles))
		return nil, false
	}
	return form, true
}

// sniffMIME prefers the filename extension when it is one we accept, then
// content sniffing. Browsers regularly send octet-stream for camera uploads.
func sniffMIME(name string, data []byte) string {
	switch constants.NormalizeExt(filepath.Ext(name)) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	}
	return http.DetectContentType(data)
}
