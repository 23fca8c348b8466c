package validate

import (
	"strings"
	"time"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/analysis"
	"github.com/doclab-pl/doclab/internal/rules"
)

// EnforceVerdictConsistency rewrites the verdict from the checklist: any
// failed required check means fail, otherwise any failed optional check means
// uncertain, otherwise pass. The model's summary is replaced by one that
// names the failing checks.
func EnforceVerdictConsistency(res *analysis.Result) {
	var failedRequired, failedOptional []string
	for _, c := range res.Checks {
		if c.Passed {
			continue
		}
		name := c.Title
		if name == "" {
			name = c.Key
		}
		if c.Required {
			failedRequired = append(failedRequired, name)
		} else {
			failedOptional = append(failedOptional, name)
		}
	}

	switch {
	case len(failedRequired) > 0:
		res.Verdict.Status = analysis.StatusFail
		res.Verdict.Summary = "Required checks failed: " + strings.Join(failedRequired, ", ") + "."
	case len(failedOptional) > 0:
		res.Verdict.Status = analysis.StatusUncertain
		res.Verdict.Summary = "Optional checks flagged: " + strings.Join(failedOptional, ", ") + "."
	default:
		res.Verdict.Status = analysis.StatusPass
		res.Verdict.Summary = "All required checks passed."
	}
}

// Apply runs every deterministic validator declared for the document type,
// in declaration order. Types with no declared checks keep the model's
// verdict untouched.
func Apply(res *analysis.Result, docType constants.DocType, applicationDate, path string, fees rules.FeeTable, now time.Time) {
	for _, kind := range constants.ChecksFor(docType) {
		switch kind {
		case constants.CheckPaymentRecency:
			EnforcePaymentRecency(res, applicationDate, now)
		case constants.CheckFeeAmount:
			EnforceFeeAmount(res, path, fees)
		case constants.CheckDocumentAge:
			EnforceDocumentAge(res, applicationDate, now)
		case constants.CheckVerdictConsistent:
			EnforceVerdictConsistency(res)
		}
	}
}
