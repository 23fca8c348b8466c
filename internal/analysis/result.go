package analysis

import "encoding/json"

// Verdict statuses. Stored verbatim in API responses.
const (
	StatusPass      = "pass"
	StatusFail      = "fail"
	StatusUncertain = "uncertain"
)

// Verdict is the model's overall judgement, possibly rewritten afterwards by
// the deterministic validators.
type Verdict struct {
	Status  string `json:"status"`
	Summary string `json:"summary"`
}

// Check is one checklist item. Required checks gate the verdict.
type Check struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Required bool   `json:"required"`
	Passed   bool   `json:"passed"`
	Details  string `json:"details,omitempty"`
	FixTip   string `json:"fixTip,omitempty"`
}

// Issue is a problem the model flagged outside the checklist.
type Issue struct {
	Code     string `json:"code,omitempty"`
	Title    string `json:"title"`
	Detail   string `json:"detail,omitempty"`
	Severity string `json:"severity,omitempty"`
}

// Result is the structured outcome of one verification.
type Result struct {
	Verdict         Verdict                    `json:"verdict"`
	DocType         string                     `json:"docType"`
	Checks          []Check                    `json:"checks"`
	Errors          []Issue                    `json:"errors,omitempty"`
	Recommendations []string                   `json:"recommendations,omitempty"`
	FieldsExtracted map[string]json.RawMessage `json:"fieldsExtracted,omitempty"`
	OCRQuality      string                     `json:"ocrQuality,omitempty"`

	// Raw holds the model output when structured parsing failed.
	Raw string `json:"raw,omitempty"`
}

// Field decodes one extracted field as a string. Numbers are rendered with
// their JSON text. Missing or null fields return "".
func (r *Result) Field(name string) string {
	raw, ok := r.FieldsExtracted[name]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// SetField stores a field value, allocating the map on first use.
func (r *Result) SetField(name string, value any) {
	if r.FieldsExtracted == nil {
		r.FieldsExtracted = make(map[string]json.RawMessage)
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	r.FieldsExtracted[name] = raw
}
