// Package analysis turns recognized text plus a composite page image into a
// structured verification result via a chat model constrained by the loaded
// rule set.
package analysis

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/doclab-pl/doclab/internal/common"
	"github.com/doclab-pl/doclab/internal/rules"
)

const maxPromptOCRChars = 20000

// ChatCompleter is the slice of the OpenAI client the analyzer needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Context carries the request metadata the model reasons against.
type Context struct {
	DocType         string
	Citizenship     string
	Path            string
	ApplicationDate string
	UserName        string
}

// Request is one analysis call.
type Request struct {
	Context       Context
	OCRText       string
	CompositeJPEG []byte
}

// Config tunes the analyzer.
type Config struct {
	Model       string
	Temperature float32
}

// Client calls the model and parses its verdict.
type Client struct {
	chat    ChatCompleter
	ruleSet *rules.RuleSet
	cfg     Config
	logger  *slog.Logger
}

// NewClient wires an analyzer. Zero config fields get defaults.
func NewClient(chat ChatCompleter, ruleSet *rules.RuleSet, cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{chat: chat, ruleSet: ruleSet, cfg: cfg, logger: logger}
}

// Analyze asks the model for a structured verdict. A reply that cannot be
// parsed comes back as an uncertain Result together with ErrAnalysisParse;
// the caller decides whether that is fatal. Schema violations in a parseable
// reply are logged, not rejected, since the deterministic validators repair
// the fields they depend on.
func (c *Client) Analyze(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		Messages:    c.buildMessages(req),
	})
	if err != nil {
		return Result{}, fmt.Errorf("analysis completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return degraded("", "model returned no choices"), nil
	}
	reply := resp.Choices[0].Message.Content

	result, parseErr := parseResult(reply)
	c.validateAgainstSchema(reply, parseErr == nil)

	if result.OCRQuality == "" {
		result.OCRQuality = EstimateOCRQuality(req.OCRText)
	}
	if result.DocType == "" {
		result.DocType = req.Context.DocType
	}

	c.logger.Info("analysis.done",
		"model", c.cfg.Model,
		"status", result.Verdict.Status,
		"checks", len(result.Checks),
		"parse_ok", parseErr == nil,
		"duration", time.Since(started))
	return result, nil
}

func (c *Client) validateAgainstSchema(reply string, parsed bool) {
	if !parsed || c.ruleSet == nil || c.ruleSet.Schema == nil {
		return
	}
	fragment, ok := extractJSON(reply)
	if !ok {
		return
	}
	var value any
	if err := json.Unmarshal([]byte(fragment), &value); err != nil {
		return
	}
	if err := c.ruleSet.Schema.Validate(value); err != nil {
		c.logger.Warn("analysis.schema_violation", "error", err)
	}
}

func (c *Client) buildMessages(req Request) []openai.ChatCompletionMessage {
	ctx := req.Context
	applicationDate := ctx.ApplicationDate
	if applicationDate == "" {
		applicationDate = time.Now().Format("2006-01-02")
	}
	citizenship := ctx.Citizenship
	if citizenship == "" {
		citizenship = "unknown"
	}
	path := ctx.Path
	if path == "" {
		path = "general"
	}

	header := fmt.Sprintf(`docType: %s
citizenship: %s
path: %s
applicationDate: %s
userName: %s
EXTRACT (when present in the document or scans):
- Passport: passport_stamps[] (date, country, stamp type).
- Application form: wniosek_trips[] (date, direction, purpose).
- Employment pack: fields from Zal.1 and the contract, cross-matched.
- PIT: taxpayer and spouse names, PESEL, NIP, amounts.
Return STRICT JSON per schema. If data insufficient: set passed=false with helpful fixTip. If language != PL: advise sworn translation.`,
		ctx.DocType, citizenship, path, applicationDate, ctx.UserName)

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: header},
		{Type: openai.ChatMessagePartTypeText, Text: "SCHEMA:\n" + string(c.ruleSet.SchemaJSON)},
		{Type: openai.ChatMessagePartTypeText, Text: "CHECKLIST FOR TYPE:\n" + string(c.ruleSet.ForType(ctx.DocType))},
	}
	if !c.ruleSet.Fees.Empty() {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: "FEES_TABLE:\n" + string(c.ruleSet.FeesJSON),
		})
	}
	if text := strings.TrimSpace(req.OCRText); text != "" {
		text = common.TruncateUTF8(text, maxPromptOCRChars)
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: "OCR_TEXT (raw):\n" + text,
		})
	}
	if len(req.CompositeJPEG) > 0 {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(req.CompositeJPEG),
			},
		})
	}

	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: c.ruleSet.BasePrompt},
		{Role: openai.ChatMessageRoleUser, MultiContent: parts},
	}
}
