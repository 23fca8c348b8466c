// Package app assembles the verification stack from configuration. The
// server, the worker and the CLI all build the same stack.
package app

import (
	"context"
	"fmt"
	"log/slog"

	gcs "cloud.google.com/go/storage"
	openai "github.com/sashabaranov/go-openai"

	"github.com/doclab-pl/doclab/internal/analysis"
	"github.com/doclab-pl/doclab/internal/common"
	"github.com/doclab-pl/doclab/internal/extract"
	"github.com/doclab-pl/doclab/internal/pdftext"
	"github.com/doclab-pl/doclab/internal/queue"
	"github.com/doclab-pl/doclab/internal/raster"
	"github.com/doclab-pl/doclab/internal/recognition"
	"github.com/doclab-pl/doclab/internal/rules"
	"github.com/doclab-pl/doclab/internal/service"
	"github.com/doclab-pl/doclab/internal/storage"
	"github.com/doclab-pl/doclab/internal/translate"
)

// App is the wired service stack.
type App struct {
	Verifier   *service.Verifier
	Translator *translate.Translator
	Queue      *queue.Queue

	gcsClient *gcs.Client
}

// Build wires everything from config. The queue stays nil when no blob
// bucket is configured.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	chatCfg := openai.DefaultConfig(cfg.LLM.APIKey)
	if cfg.LLM.BaseURL != "" {
		chatCfg.BaseURL = cfg.LLM.BaseURL
	}
	chat := openai.NewClientWithConfig(chatCfg)

	runner := raster.ExecRunner{}
	renderer := raster.NewRasterizer(raster.Config{
		Pdftoppm: cfg.OCR.Pdftoppm,
		TempDir:  cfg.OCR.TempDir,
	}, runner, logger)
	embedded := pdftext.NewExtractor(pdftext.Config{
		Pdftotext: cfg.OCR.Pdftotext,
		TempDir:   cfg.OCR.TempDir,
	}, runner)
	// OCR transcription stays at the client's pinned zero temperature; the
	// configured temperature applies to analysis only.
	recognizer := recognition.NewClient(chat, recognition.Config{
		Model:     cfg.LLM.VisionModel,
		MaxTokens: cfg.LLM.MaxOCRTokens,
	}, logger)
	pipeline := extract.NewPipeline(embedded, renderer, recognizer, extract.WithLogger(logger))

	ruleSet, err := rules.Load(cfg.Rules.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("load rules: %w", err)
	}
	analyzer := analysis.NewClient(chat, ruleSet, analysis.Config{
		Model:       cfg.LLM.AnalysisModel,
		Temperature: cfg.LLM.Temperature,
	}, logger)

	app := &App{
		Verifier:   service.NewVerifier(pipeline, renderer, analyzer, ruleSet, logger),
		Translator: translate.New(chat, pipeline, cfg.LLM.AnalysisModel, logger),
	}

	if cfg.Blob.Bucket != "" {
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("open blob store: %w", err)
		}
		app.gcsClient = client
		app.Queue = queue.New(storage.NewGCSStore(client, cfg.Blob.Bucket), logger)
	}
	return app, nil
}

// Close releases held clients.
func (a *App) Close() error {
	if a.gcsClient != nil {
		return a.gcsClient.Close()
	}
	return nil
}
