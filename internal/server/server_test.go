package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/doclab-pl/doclab/internal/analysis"
	"github.com/doclab-pl/doclab/internal/extract"
	"github.com/doclab-pl/doclab/internal/imaging"
	"github.com/doclab-pl/doclab/internal/queue"
	"github.com/doclab-pl/doclab/internal/raster"
	"github.com/doclab-pl/doclab/internal/recognition"
	"github.com/doclab-pl/doclab/internal/rules"
	"github.com/doclab-pl/doclab/internal/service"
	"github.com/doclab-pl/doclab/internal/storage"
	"github.com/doclab-pl/doclab/internal/translate"
)

type stubEmbedded struct{ text string }

func (s *stubEmbedded) EmbeddedText(context.Context, []byte) (string, int, error) {
	return s.text, 1, nil
}

type stubRenderer struct{}

func (stubRenderer) RenderPages(context.Context, []byte, int, float64) ([]raster.Page, error) {
	return nil, nil
}

type stubRecognizer struct{}

func (stubRecognizer) RecognizeAll(context.Context, []recognition.Payload, imaging.Mode) (string, int, error) {
	return "", 0, nil
}

type stubChat struct{ reply string }

func (s *stubChat) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: s.reply}},
		},
	}, nil
}

func newTestServer(t *testing.T, withQueue bool) (*Server, *queue.Queue) {
	t.Helper()
	pipeline := extract.NewPipeline(
		&stubEmbedded{text: strings.Repeat("potwierdzenie przelewu ", 30)},
		stubRenderer{},
		stubRecognizer{},
	)
	rs := &rules.RuleSet{
		DocRules: map[string]json.RawMessage{},
		Fees:     rules.FeeTable{Items: map[string]rules.FeeItem{"temporary_residence_general": {AmountPLN: 340}}},
	}
	chat := &stubChat{reply: `{"verdict":{"status":"pass","summary":"ok"},"docType":"oplata_skarbowa","checks":[]}`}
	verifier := service.NewVerifier(pipeline, stubRenderer{}, analysis.NewClient(chat, rs, analysis.Config{}, nil), rs, nil)
	translator := translate.New(&stubChat{reply: "translated"}, pipeline, "", nil)

	var q *queue.Queue
	if withQueue {
		q = queue.New(storage.NewMemoryStore(), nil)
	}
	return New(verifier, translator, q, nil), q
}

func multipartBody(t *testing.T, fields map[string]string, fileField, fileName, fileMIME string, fileData []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if fileField != "" {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+fileField+`"; filename="`+fileName+`"`)
		h.Set("Content-Type", fileMIME)
		part, err := mw.CreatePart(h)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestVerifyDocument(t *testing.T) {
	srv, _ := newTestServer(t, false)
	body, ct := multipartBody(t, map[string]string{
		"docType":         "oplata_skarbowa",
		"applicationDate": "2025-06-01",
	}, "file", "dowod.pdf", "application/pdf", []byte("%PDF-1.4"))

	req := httptest.NewRequest(http.MethodPost, "/api/verify-document", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OK     bool            `json:"ok"`
		Result analysis.Result `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.OK || resp.Result.DocType != "oplata_skarbowa" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestVerifyDocument_NoFiles(t *testing.T) {
	srv, _ := newTestServer(t, false)
	body, ct := multipartBody(t, map[string]string{"docType": "meldunek"}, "", "", "", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/verify-document", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "no files attached") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestTranslateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, false)
	body, ct := multipartBody(t, map[string]string{"text": "umowa", "to": "en"}, "", "", "", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/translate", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"text":"translated"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestOCRPreview_NoFile(t *testing.T) {
	srv, _ := newTestServer(t, false)
	body, ct := multipartBody(t, map[string]string{"x": "y"}, "", "", "", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/ocr-preview", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestJobs_QueueDisabled(t *testing.T) {
	srv, _ := newTestServer(t, false)
	body, ct := multipartBody(t, nil, "file", "a.pdf", "application/pdf", []byte("%PDF"))

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestJobs_EnqueueAndStatus(t *testing.T) {
	srv, _ := newTestServer(t, true)
	router := srv.Router()

	body, ct := multipartBody(t, map[string]string{"docType": "meldunek"}, "file", "zameldowanie.pdf", "application/pdf", []byte("%PDF-1.4"))
	req := httptest.NewRequest(http.MethodPost, "/api/jobs", body)
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var created struct {
		OK     bool   `json:"ok"`
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if !created.OK || created.ID == "" || created.Status != "queued" {
		t.Fatalf("created = %+v", created)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/"+created.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status lookup = %d, body = %s", rec.Code, rec.Body.String())
	}
	var status struct {
		OK  bool      `json:"ok"`
		Job queue.Job `json:"job"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Job.DocType != "meldunek" || len(status.Job.Files) != 1 {
		t.Errorf("job = %+v", status.Job)
	}
}

func TestJobs_UnknownID(t *testing.T) {
	srv, _ := newTestServer(t, true)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs/does-not-exist", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReadForm_PreservesUploadOrder(t *testing.T) {
	// Clients that send each page under its own field name still expect the
	// pages read back in the order they were posted. A parsed-form map
	// would shuffle them.
	names := []string{"page0", "page1", "page2", "page3", "page4", "page5"}

	for i := 0; i < 20; i++ {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		for _, name := range names {
			h := textproto.MIMEHeader{}
			h.Set("Content-Disposition", `form-data; name="`+name+`"; filename="`+name+`.png"`)
			h.Set("Content-Type", "image/png")
			part, err := mw.CreatePart(h)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := part.Write([]byte(name)); err != nil {
				t.Fatal(err)
			}
		}
		if err := mw.WriteField("docType", "meldunek"); err != nil {
			t.Fatal(err)
		}
		if err := mw.Close(); err != nil {
			t.Fatal(err)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/verify-document", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		form, err := readForm(httptest.NewRecorder(), req)
		if err != nil {
			t.Fatal(err)
		}
		if len(form.files) != len(names) {
			t.Fatalf("got %d files, want %d", len(form.files), len(names))
		}
		for j, f := range form.files {
			if f.Name != names[j]+".png" {
				t.Fatalf("attempt %d: file %d is %q, want %q", i, j, f.Name, names[j]+".png")
			}
		}
		if form.value("docType", "") != "meldunek" {
			t.Fatalf("attempt %d: docType not captured", i)
		}
	}
}

func TestSniffMIME(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"scan.PDF", nil, "application/pdf"},
		{"photo.jpeg", nil, "image/jpeg"},
		{"photo.webp", nil, "image/webp"},
		{"unknown.bin", []byte("%PDF-1.4 trailing"), "application/pdf"},
		{"unknown.bin", []byte("plain text content"), "text/plain; charset=utf-8"},
	}
	for _, tt := range tests {
		if got := sniffMIME(tt.name, tt.data); got != tt.want {
			t.Errorf("sniffMIME(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
