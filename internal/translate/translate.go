// Package translate implements document translation: plain text goes
// straight to the model, images go through vision, PDFs are first run
// through text extraction.
package translate

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/common"
	"github.com/doclab-pl/doclab/internal/extract"
	"github.com/doclab-pl/doclab/internal/imaging"
)

// Separator joins independently translated parts in the response.
const Separator = "\n\n---\n\n"

const maxTranslateChars = 200000

// ChatCompleter is the slice of the OpenAI client the translator needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Request is one translation call. File is optional; Text is optional; at
// least one must be present.
type Request struct {
	From     string
	To       string
	Text     string
	File     []byte
	FileMIME string
}

// Translator drives the model.
type Translator struct {
	chat     ChatCompleter
	pipeline *extract.Pipeline
	model    string
	logger   *slog.Logger
}

// New wires a translator. An empty model defaults to gpt-4o-mini.
func New(chat ChatCompleter, pipeline *extract.Pipeline, model string, logger *slog.Logger) *Translator {
	if model == "" {
		model = openai.GPT4oMini
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{chat: chat, pipeline: pipeline, model: model, logger: logger}
}

// Translate renders every supplied part into the target language and joins
// the results with Separator. Source language defaults to auto-detection,
// target to Russian, matching the service's audience.
func (t *Translator) Translate(ctx context.Context, req Request) (string, error) {
	from := req.From
	if from == "" {
		from = "auto"
	}
	to := req.To
	if to == "" {
		to = "ru"
	}

	var parts []string

	if len(req.File) > 0 {
		part, err := t.translateFile(ctx, req.File, req.FileMIME, from, to)
		if err != nil {
			return "", err
		}
		if part != "" {
			parts = append(parts, part)
		}
	}

	if text := strings.TrimSpace(req.Text); text != "" {
		part, err := t.translateText(ctx, text, from, to)
		if err != nil {
			return "", err
		}
		if part != "" {
			parts = append(parts, part)
		}
	}

	if len(parts) == 0 {
		return "", fmt.Errorf("nothing to translate: %w", common.ErrInvalidInput)
	}
	return strings.Join(parts, Separator), nil
}

func (t *Translator) translateFile(ctx context.Context, data []byte, mime, from, to string) (string, error) {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return t.translateImage(ctx, data, mime, from, to)
	case mime == "application/pdf":
		result, err := t.pipeline.ExtractPDF(ctx, data, imaging.Printed, constants.MinTextTranslate)
		if err != nil {
			return "", fmt.Errorf("extract PDF text: %w", err)
		}
		return t.translateText(ctx, result.Text, from, to)
	default:
		return "", fmt.Errorf("unsupported file type %q: %w", mime, common.ErrUnsupportedDocument)
	}
}

func (t *Translator) translateText(ctx context.Context, text, from, to string) (string, error) {
	text = common.TruncateUTF8(text, maxTranslateChars)
	resp, err := t.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("Translate the text from %s to %s. Preserve line breaks and lists. Return only the translated text.",
					from, to),
			},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
	})
	if err != nil {
		return "", fmt.Errorf("translate text: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (t *Translator) translateImage(ctx context.Context, data []byte, mime, from, to string) (string, error) {
	resp, err := t.chat.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("You are a precise translator. Detect source language (%s if specified) and translate to %s. Keep formatting (line breaks, lists). Return only the translation.",
					from, to),
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: "Read this image document and translate it."},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(data)),
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("translate image: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
