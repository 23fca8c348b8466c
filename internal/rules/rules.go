// Package rules loads the reviewer knowledge base from disk: the base
// analysis prompt, the verdict JSON schema, per-document checklists and the
// fee table. Files are read once at startup; the service holds one RuleSet
// for its lifetime.
package rules

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	promptFile = "prompt.base.txt"
	schemaFile = "schema.verify.json"
	rulesFile  = "doc_rules.json"
	feesFile   = "fees.json"
)

// DefaultPurpose is assumed when neither the path, the model nor the
// keywords identify what the fee was paid for.
const DefaultPurpose = "temporary_residence_general"

// FeeItem is one entry of the official fee table.
type FeeItem struct {
	AmountPLN float64 `json:"amount_pln"`
	Label     string  `json:"label,omitempty"`
}

// FeeTable mirrors fees.json.
type FeeTable struct {
	TolerancePLN    float64             `json:"tolerance_pln"`
	Items           map[string]FeeItem  `json:"items"`
	PurposeKeywords map[string][]string `json:"purpose_keywords"`
	PathOverrides   map[string]string   `json:"path_overrides"`
}

// Empty reports whether no fee data was loaded.
func (f FeeTable) Empty() bool { return len(f.Items) == 0 }

// ExpectedAmount returns the tabulated fee for the purpose, falling back to
// the general residence fee when the purpose is unknown.
func (f FeeTable) ExpectedAmount(purpose string) (float64, bool) {
	if item, ok := f.Items[purpose]; ok {
		return item.AmountPLN, true
	}
	if item, ok := f.Items[DefaultPurpose]; ok {
		return item.AmountPLN, true
	}
	return 0, false
}

// ResolvePurpose picks the payment purpose in priority order: explicit path
// override, purpose already detected by the model, keyword match on the
// payment title and recipient, then the default.
func (f FeeTable) ResolvePurpose(path, detected, title, recipient string) string {
	if p, ok := f.PathOverrides[path]; ok && p != "" {
		return p
	}
	if p, ok := f.PathOverrides[strings.ToLower(path)]; ok && p != "" {
		return p
	}
	if detected != "" {
		return detected
	}
	if p := f.purposeByKeywords(title, recipient); p != "" {
		return p
	}
	return DefaultPurpose
}

// purposeByKeywords picks the purpose whose longest keyword occurs in the
// payment title or recipient. Longest match wins so "pobyt czasowy i praca"
// beats the bare "pobyt czasowy".
func (f FeeTable) purposeByKeywords(title, recipient string) string {
	haystack := StripDiacritics(strings.ToLower(title + " " + recipient))
	best := ""
	bestLen := 0
	for purpose, keywords := range f.PurposeKeywords {
		for _, kw := range keywords {
			folded := StripDiacritics(strings.ToLower(kw))
			if folded == "" || len(folded) <= bestLen {
				continue
			}
			if strings.Contains(haystack, folded) {
				best, bestLen = purpose, len(folded)
			}
		}
	}
	return best
}

// RuleSet is the loaded knowledge base.
type RuleSet struct {
	BasePrompt string
	SchemaJSON []byte
	Schema     *jsonschema.Schema
	DocRules   map[string]json.RawMessage
	Fees       FeeTable
	FeesJSON   []byte
}

// Load reads the knowledge base from dir. The fee table is optional; the
// verdict schema is compiled leniently, a schema that fails to compile is
// logged and skipped so that verification degrades instead of failing.
func Load(dir string, logger *slog.Logger) (*RuleSet, error) {
	if logger == nil {
		logger = slog.Default()
	}

	prompt, err := os.ReadFile(filepath.Join(dir, promptFile))
	if err != nil {
		return nil, fmt.Errorf("read base prompt: %w", err)
	}
	schemaRaw, err := os.ReadFile(filepath.Join(dir, schemaFile))
	if err != nil {
		return nil, fmt.Errorf("read verdict schema: %w", err)
	}
	rulesRaw, err := os.ReadFile(filepath.Join(dir, rulesFile))
	if err != nil {
		return nil, fmt.Errorf("read doc rules: %w", err)
	}

	rs := &RuleSet{
		BasePrompt: strings.TrimSpace(string(prompt)),
		SchemaJSON: schemaRaw,
	}
	if err := json.Unmarshal(rulesRaw, &rs.DocRules); err != nil {
		return nil, fmt.Errorf("parse doc rules: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaFile, bytes.NewReader(schemaRaw)); err != nil {
		logger.Warn("rules.schema_unusable", "error", err)
	} else if schema, err := compiler.Compile(schemaFile); err != nil {
		logger.Warn("rules.schema_compile_failed", "error", err)
	} else {
		rs.Schema = schema
	}

	feesRaw, err := os.ReadFile(filepath.Join(dir, feesFile))
	if err != nil {
		logger.Warn("rules.fees_missing", "error", err)
		return rs, nil
	}
	if err := json.Unmarshal(feesRaw, &rs.Fees); err != nil {
		logger.Warn("rules.fees_unparseable", "error", err)
		return rs, nil
	}
	rs.FeesJSON = feesRaw
	return rs, nil
}

// ForType returns the checklist block for a document type. Unknown types get
// an empty checklist so the prompt stays well formed.
func (r *RuleSet) ForType(docType string) json.RawMessage {
	if raw, ok := r.DocRules[docType]; ok {
		return raw
	}
	return json.RawMessage(`{"checks":[],"fields":[]}`)
}
