package recognition

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/common"
	"github.com/doclab-pl/doclab/internal/imaging"
)

// ChatCompleter is the slice of the OpenAI-compatible API the client needs;
// *openai.Client satisfies it, tests substitute a fake.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config for the recognition client.
type Config struct {
	Model       string
	Temperature float32
	MaxTokens   int // per-batch completion cap
	BatchBudget int // transported bytes per request; if 0 -> constants.BatchPayloadBudget
}

// Client invokes the vision-capable reasoning service on image batches,
// detecting refusal-like responses and retrying once with the alternate
// directive.
type Client struct {
	chat   ChatCompleter
	cfg    Config
	logger *slog.Logger
}

func NewClient(chat ChatCompleter, cfg Config, logger *slog.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o"
	}
	if cfg.Temperature == 0 {
		// Transcription wants temperature 0, but the request encoder drops a
		// zero field and the service then applies its own default. The
		// smallest positive float survives encoding and is effectively zero.
		cfg.Temperature = math.SmallestNonzeroFloat32
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1400
	}
	if cfg.BatchBudget <= 0 {
		cfg.BatchBudget = constants.BatchPayloadBudget
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{chat: chat, cfg: cfg, logger: logger}
}

// RecognizeBatch runs one recognition call on a batch. A refusal-like or
// implausibly short response triggers exactly one retry with the alternate
// directive; the retry's output is returned even if it is also short or
// still reads like a refusal. There is no third attempt. Only a retry that
// comes back completely empty after a refusal fails with
// ErrRecognitionRefused.
func (c *Client) RecognizeBatch(ctx context.Context, batch []Payload, mode imaging.Mode) (string, error) {
	out, err := c.ask(ctx, batch, primaryDirective(mode))
	if err != nil {
		return "", err
	}
	if !IsRefusalOrImplausible(out) {
		return out, nil
	}

	c.logger.Warn("recognize.retry",
		"mode", string(mode),
		"images", len(batch),
		"first_len", len(strings.TrimSpace(out)),
	)
	retry, err := c.ask(ctx, batch, directiveAlternate)
	if err != nil {
		return "", err
	}
	if retry == "" && IsRefusal(out) {
		return "", fmt.Errorf("%w: no text after retry", common.ErrRecognitionRefused)
	}
	if IsRefusal(retry) {
		c.logger.Warn("recognize.retry_refused_text_kept", "chars", len(retry))
	}
	return retry, nil
}

// RecognizeAll plans batches under the payload budget and recognizes them
// sequentially, joining per-batch text with blank lines in submission order.
// Per-batch failures are logged and skipped so one refused batch cannot sink
// the document. Returns the text and the number of batches dispatched.
func (c *Client) RecognizeAll(ctx context.Context, payloads []Payload, mode imaging.Mode) (string, int, error) {
	batches := PlanBatches(payloads, c.cfg.BatchBudget)
	var parts []string
	for i, batch := range batches {
		txt, err := c.RecognizeBatch(ctx, batch, mode)
		if err != nil {
			if ctx.Err() != nil {
				return "", len(batches), ctx.Err()
			}
			c.logger.Warn("recognize.batch_failed", "batch", i+1, "of", len(batches), "error", err)
			continue
		}
		if t := strings.TrimSpace(txt); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, "\n\n"), len(batches), nil
}

func (c *Client) ask(ctx context.Context, batch []Payload, directive string) (string, error) {
	parts := make([]openai.ChatMessagePart, 0, len(batch)+1)
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: userInstruction,
	})
	for _, p := range batch {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL: dataURL(p),
			},
		})
	}

	resp, err := c.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: directive},
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
	})
	if err != nil {
		return "", fmt.Errorf("vision completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("vision completion: empty choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func dataURL(p Payload) string {
	mime := p.MIME
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(p.Data)
}
