package analysis

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/doclab-pl/doclab/internal/rules"
)

type fakeChat struct {
	reply   string
	lastReq openai.ChatCompletionRequest
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastReq = req
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

func testRuleSet() *rules.RuleSet {
	return &rules.RuleSet{
		BasePrompt: "You are a document reviewer.",
		SchemaJSON: []byte(`{"type":"object"}`),
		DocRules: map[string]json.RawMessage{
			"oplata_skarbowa": json.RawMessage(`{"checks":[{"key":"recipient_correct"}]}`),
		},
		Fees: rules.FeeTable{
			Items: map[string]rules.FeeItem{"temporary_residence_general": {AmountPLN: 340}},
		},
		FeesJSON: []byte(`{"tolerance_pln":1}`),
	}
}

func TestAnalyze_ParsesVerdict(t *testing.T) {
	chat := &fakeChat{reply: `{"verdict":{"status":"pass","summary":"ok"},"docType":"oplata_skarbowa","checks":[]}`}
	c := NewClient(chat, testRuleSet(), Config{}, nil)

	res, err := c.Analyze(context.Background(), Request{
		Context: Context{DocType: "oplata_skarbowa", ApplicationDate: "2025-02-01"},
		OCRText: "Potwierdzenie przelewu. Kwota: 340,00 zł.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Verdict.Status != StatusPass {
		t.Errorf("status = %q", res.Verdict.Status)
	}
	if res.OCRQuality == "" {
		t.Error("ocrQuality should be filled from the OCR text")
	}
}

func TestAnalyze_UnparseableReplyDegrades(t *testing.T) {
	chat := &fakeChat{reply: "The document looks fine to me."}
	c := NewClient(chat, testRuleSet(), Config{}, nil)

	res, err := c.Analyze(context.Background(), Request{
		Context: Context{DocType: "passport"},
	})
	if err != nil {
		t.Fatalf("parse problems must not fail the call: %v", err)
	}
	if res.Verdict.Status != StatusUncertain {
		t.Errorf("status = %q, want uncertain", res.Verdict.Status)
	}
	if res.Raw == "" {
		t.Error("raw model output should be preserved")
	}
	if res.DocType != "passport" {
		t.Errorf("docType should default to the request's, got %q", res.DocType)
	}
}

func TestAnalyze_PromptCarriesContextAndRules(t *testing.T) {
	chat := &fakeChat{reply: `{"verdict":{"status":"pass","summary":""},"docType":"oplata_skarbowa","checks":[]}`}
	c := NewClient(chat, testRuleSet(), Config{}, nil)

	_, err := c.Analyze(context.Background(), Request{
		Context:       Context{DocType: "oplata_skarbowa", Citizenship: "UA", Path: "work"},
		OCRText:       "tytuł: opłata skarbowa",
		CompositeJPEG: []byte{0xFF, 0xD8, 0xFF},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs := chat.lastReq.Messages
	if len(msgs) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(msgs))
	}
	if msgs[0].Content != "You are a document reviewer." {
		t.Errorf("system prompt = %q", msgs[0].Content)
	}

	var sawSchema, sawChecklist, sawFees, sawOCR, sawImage bool
	for _, part := range msgs[1].MultiContent {
		switch {
		case part.Type == openai.ChatMessagePartTypeImageURL:
			sawImage = true
		case strings.HasPrefix(part.Text, "SCHEMA:"):
			sawSchema = true
		case strings.HasPrefix(part.Text, "CHECKLIST FOR TYPE:"):
			sawChecklist = strings.Contains(part.Text, "recipient_correct")
		case strings.HasPrefix(part.Text, "FEES_TABLE:"):
			sawFees = true
		case strings.HasPrefix(part.Text, "OCR_TEXT"):
			sawOCR = true
		}
	}
	for name, saw := range map[string]bool{
		"schema": sawSchema, "checklist": sawChecklist, "fees": sawFees, "ocr": sawOCR, "image": sawImage,
	} {
		if !saw {
			t.Errorf("prompt is missing the %s part", name)
		}
	}
}
