package analysis

import (
	"encoding/json"
	"fmt"

	"github.com/doclab-pl/doclab/internal/common"
)

// extractJSON returns the first balanced top-level JSON object inside s.
// Models wrap their output in prose or code fences often enough that a plain
// json.Unmarshal of the whole reply is not workable.
func extractJSON(s string) (string, bool) {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, r := range s {
		if start >= 0 && inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '{':
			if start < 0 {
				start = i
			}
			depth++
		case '}':
			if start >= 0 {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		case '"':
			if start >= 0 {
				inString = true
			}
		}
	}
	return "", false
}

// parseResult decodes the model reply into a Result. A reply without usable
// JSON degrades to an uncertain verdict that carries the raw text, wrapped
// in ErrAnalysisParse so callers can count the degradation.
func parseResult(reply string) (Result, error) {
	fragment, ok := extractJSON(reply)
	if !ok {
		return degraded(reply, "no JSON object in model reply"),
			fmt.Errorf("no JSON object in reply: %w", common.ErrAnalysisParse)
	}
	var res Result
	if err := json.Unmarshal([]byte(fragment), &res); err != nil {
		return degraded(reply, "model reply is not valid JSON"),
			fmt.Errorf("decode reply: %v: %w", err, common.ErrAnalysisParse)
	}
	return res, nil
}

func degraded(raw, summary string) Result {
	return Result{
		Verdict: Verdict{Status: StatusUncertain, Summary: summary},
		Raw:     raw,
	}
}
