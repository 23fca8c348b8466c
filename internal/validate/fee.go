package validate

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/analysis"
	"github.com/doclab-pl/doclab/internal/rules"
)

// EnforceFeeAmount replaces any model-supplied amount check with one computed
// against the fee table. The resolved purpose and expected amount are written
// back into fieldsExtracted so the client can show them.
func EnforceFeeAmount(res *analysis.Result, path string, fees rules.FeeTable) {
	res.Checks = dropMatching(res.Checks, amountKeys, amountTitles)

	chk := analysis.Check{
		Key:      string(constants.CheckFeeAmount),
		Title:    "Amount matches the payment purpose",
		Required: true,
	}

	amount, haveAmount := extractedAmount(res)
	if haveAmount {
		res.SetField("amount_value", amount)
	}

	purpose := fees.ResolvePurpose(path, res.Field("detected_purpose"), res.Field("title"), res.Field("recipient"))
	expected, haveExpected := fees.ExpectedAmount(purpose)
	tolerance := fees.TolerancePLN
	if tolerance == 0 {
		tolerance = constants.AmountTolerancePLN
	}

	res.SetField("detected_purpose", purpose)
	if haveExpected {
		res.SetField("expected_amount", expected)
	}

	if !haveAmount || !haveExpected {
		chk.Passed = false
		chk.Details = fmt.Sprintf("insufficient data for amount check: haveAmount=%t, haveExpected=%t, purpose=%s",
			haveAmount, haveExpected, purpose)
	} else {
		delta := math.Abs(amount - expected)
		res.SetField("amount_delta", delta)
		chk.Passed = delta <= tolerance
		chk.Details = fmt.Sprintf("amount=%g PLN, expected=%g PLN (purpose=%s), tolerance=±%g, delta=%g",
			amount, expected, purpose, tolerance, delta)
	}
	res.Checks = append(res.Checks, chk)
}

// extractedAmount prefers a numeric amount_value the model already produced,
// then falls back to parsing the textual amount fields.
func extractedAmount(res *analysis.Result) (float64, bool) {
	if raw, ok := res.FieldsExtracted["amount_value"]; ok {
		var v float64
		if err := json.Unmarshal(raw, &v); err == nil {
			return math.Abs(v), true
		}
	}
	for _, field := range []string{"amount", "amount_raw"} {
		if v, ok := ParseAmount(res.Field(field)); ok {
			return v, true
		}
	}
	return 0, false
}
