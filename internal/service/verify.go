// Package service orchestrates one document verification: classify the
// uploads, extract text, build the composite page image, ask the analyzer
// and apply the deterministic validators.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/analysis"
	"github.com/doclab-pl/doclab/internal/common"
	"github.com/doclab-pl/doclab/internal/extract"
	"github.com/doclab-pl/doclab/internal/imaging"
	"github.com/doclab-pl/doclab/internal/rules"
	"github.com/doclab-pl/doclab/internal/validate"
)

const compositeJPEGQuality = 85

// File is one uploaded document.
type File struct {
	Name string
	MIME string
	Data []byte
}

// VerifyInput is one verification request.
type VerifyInput struct {
	Files           []File
	DocType         string
	Citizenship     string
	Path            string
	ApplicationDate string
	UserName        string
	OCRMode         string
	Debug           bool
	DebugFull       bool
}

// Debug carries pipeline counters for troubleshooting. Only populated when
// the request asked for it.
type Debug struct {
	Handwriting     bool            `json:"handwriting"`
	Method          string          `json:"method,omitempty"`
	PagesRendered   int             `json:"pagesRendered,omitempty"`
	TilesTotal      int             `json:"tilesTotal,omitempty"`
	Batches         int             `json:"batches,omitempty"`
	OCRTextLen      int             `json:"ocrTextLen"`
	MergedJPEGBytes int             `json:"mergedJpegBytes"`
	RulesUsed       json.RawMessage `json:"rulesUsed,omitempty"`
	UserName        string          `json:"userName,omitempty"`
	OCRTextHead     string          `json:"ocrTextHead,omitempty"`
}

// VerifyOutput bundles the result with optional debug counters.
type VerifyOutput struct {
	Result analysis.Result `json:"result"`
	Debug  *Debug          `json:"debug,omitempty"`
}

// Analyzer is the reasoning dependency.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (analysis.Result, error)
}

// Verifier runs the whole check.
type Verifier struct {
	pipeline *extract.Pipeline
	renderer extract.PageRenderer
	analyzer Analyzer
	ruleSet  *rules.RuleSet
	logger   *slog.Logger
	now      func() time.Time
}

// NewVerifier wires the orchestrator.
func NewVerifier(pipeline *extract.Pipeline, renderer extract.PageRenderer, analyzer Analyzer, ruleSet *rules.RuleSet, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		pipeline: pipeline,
		renderer: renderer,
		analyzer: analyzer,
		ruleSet:  ruleSet,
		logger:   logger,
		now:      time.Now,
	}
}

// Verify runs extraction, analysis and post-validation for one upload set.
// The upload set must be either exactly one PDF or one to twenty images.
func (v *Verifier) Verify(ctx context.Context, in VerifyInput) (VerifyOutput, error) {
	pdfs, images, err := classify(in.Files)
	if err != nil {
		return VerifyOutput{}, err
	}

	mode := imaging.ParseMode(in.OCRMode)
	debug := &Debug{Handwriting: mode == imaging.Handwriting}

	var (
		ocrText   string
		composite []byte
	)
	if len(pdfs) == 1 {
		result, err := v.pipeline.ExtractPDF(ctx, pdfs[0].Data, mode, constants.MinTextVerify)
		if err != nil {
			return VerifyOutput{}, err
		}
		ocrText = result.Text
		debug.Method = string(result.Provenance.Method)
		debug.PagesRendered = result.Provenance.PagesRendered
		debug.TilesTotal = result.Provenance.Tiles
		debug.Batches = result.Provenance.Batches

		composite = v.compositeFromPDF(ctx, pdfs[0].Data)
	} else {
		payloads := make([][]byte, len(images))
		for i, f := range images {
			payloads[i] = f.Data
		}
		result, err := v.pipeline.ExtractImages(ctx, payloads, mode)
		if err != nil {
			return VerifyOutput{}, err
		}
		ocrText = result.Text
		debug.Method = string(result.Provenance.Method)
		debug.PagesRendered = len(images)
		debug.TilesTotal = result.Provenance.Tiles
		debug.Batches = result.Provenance.Batches

		composite = v.compositeFromImages(images)
	}
	debug.OCRTextLen = len(ocrText)
	debug.MergedJPEGBytes = len(composite)

	result, err := v.analyzer.Analyze(ctx, analysis.Request{
		Context: analysis.Context{
			DocType:         in.DocType,
			Citizenship:     in.Citizenship,
			Path:            in.Path,
			ApplicationDate: in.ApplicationDate,
			UserName:        in.UserName,
		},
		OCRText:       ocrText,
		CompositeJPEG: composite,
	})
	if err != nil {
		return VerifyOutput{}, err
	}

	docType, known := constants.NormalizeDocType(result.DocType)
	if !known {
		docType, _ = constants.NormalizeDocType(in.DocType)
	}
	validate.Apply(&result, docType, in.ApplicationDate, in.Path, v.ruleSet.Fees, v.now().UTC())

	out := VerifyOutput{Result: result}
	if in.Debug {
		debug.RulesUsed = v.ruleSet.ForType(in.DocType)
		debug.UserName = in.UserName
		if in.DebugFull {
			debug.OCRTextHead = common.TruncateUTF8(ocrText, 2000)
		}
		out.Debug = debug
	}

	v.logger.Info("verify.done",
		"doc_type", docType,
		"files", len(in.Files),
		"mode", mode,
		"status", result.Verdict.Status,
		"ocr_chars", len(ocrText))
	return out, nil
}

// compositeFromPDF renders up to the page cap at the printed scale and
// stacks the pages into one JPEG for the model's visual checks. Failure is
// tolerated; the analysis just runs without the image.
func (v *Verifier) compositeFromPDF(ctx context.Context, document []byte) []byte {
	pages, err := v.renderer.RenderPages(ctx, document, constants.MaxCompositePages, constants.RenderScalePrinted)
	if err != nil || len(pages) == 0 {
		v.logger.Warn("verify.composite_render_failed", "error", err)
		return nil
	}
	sources := make([][]byte, len(pages))
	for i, p := range pages {
		sources[i] = p.PNG
	}
	return v.stack(sources)
}

// compositeFromImages stacks the original uploads, orientation corrected but
// without the OCR preprocessing, so stamps and signatures stay legible.
func (v *Verifier) compositeFromImages(images []File) []byte {
	sources := make([][]byte, len(images))
	for i, f := range images {
		sources[i] = f.Data
	}
	return v.stack(sources)
}

func (v *Verifier) stack(sources [][]byte) []byte {
	decoded := make([]image.Image, 0, len(sources))
	for _, data := range sources {
		img, err := imaging.Decode(data)
		if err != nil {
			continue
		}
		decoded = append(decoded, img)
	}
	if len(decoded) == 0 {
		return nil
	}
	stacked, err := imaging.StackVertical(decoded)
	if err != nil {
		v.logger.Warn("verify.composite_stack_failed", "error", err)
		return nil
	}
	jpg, err := imaging.EncodeJPEG(stacked, compositeJPEGQuality)
	if err != nil {
		v.logger.Warn("verify.composite_encode_failed", "error", err)
		return nil
	}
	return jpg
}

func classify(files []File) (pdfs, images []File, err error) {
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("no files attached: %w", common.ErrInvalidInput)
	}
	if len(files) > constants.MaxFiles {
		return nil, nil, fmt.Errorf("at most %d files allowed: %w", constants.MaxFiles, common.ErrInvalidInput)
	}
	for _, f := range files {
		switch {
		case f.MIME == "application/pdf":
			pdfs = append(pdfs, f)
		case strings.HasPrefix(f.MIME, "image/"):
			images = append(images, f)
		default:
			return nil, nil, fmt.Errorf("unsupported content type %q: %w", f.MIME, common.ErrUnsupportedDocument)
		}
	}
	if len(pdfs) > 0 && len(images) > 0 {
		return nil, nil, fmt.Errorf("upload either one PDF or images, not both: %w", common.ErrInvalidInput)
	}
	if len(pdfs) > 1 {
		return nil, nil, fmt.Errorf("only one PDF allowed: %w", common.ErrInvalidInput)
	}
	return pdfs, images, nil
}
