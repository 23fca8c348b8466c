package validate

import (
	"strings"
	"testing"
	"time"

	"github.com/doclab-pl/doclab/constants"
	"github.com/doclab-pl/doclab/internal/analysis"
	"github.com/doclab-pl/doclab/internal/rules"
)

func feeTable() rules.FeeTable {
	return rules.FeeTable{
		TolerancePLN: 1,
		Items: map[string]rules.FeeItem{
			"temporary_residence_general": {AmountPLN: 340},
			"temporary_residence_work":    {AmountPLN: 440},
		},
		PurposeKeywords: map[string][]string{
			"temporary_residence_work":    {"pobyt czasowy i praca"},
			"temporary_residence_general": {"pobyt czasowy"},
		},
		PathOverrides: map[string]string{"work": "temporary_residence_work"},
	}
}

func TestEnforcePaymentRecency(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name            string
		paymentDate     string
		applicationDate string
		wantPassed      bool
	}{
		{"recent against application date", "15.01.2025", "01.02.2025", true},
		{"older than window", "01.01.2025", "01.06.2025", false},
		{"future payment fails", "15.02.2025", "01.02.2025", false},
		{"unparseable date fails", "sometime in January", "01.02.2025", false},
		{"falls back to today without application date", "15.05.2025", "", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := &analysis.Result{DocType: "oplata_skarbowa"}
			res.SetField("payment_date", tc.paymentDate)

			EnforcePaymentRecency(res, tc.applicationDate, now)

			if len(res.Checks) != 1 {
				t.Fatalf("expected 1 check, got %d", len(res.Checks))
			}
			chk := res.Checks[0]
			if chk.Key != string(constants.CheckPaymentRecency) {
				t.Errorf("check key = %q", chk.Key)
			}
			if chk.Passed != tc.wantPassed {
				t.Errorf("passed = %t, want %t (details: %s)", chk.Passed, tc.wantPassed, chk.Details)
			}
		})
	}
}

func TestEnforcePaymentRecency_ReplacesModelCheck(t *testing.T) {
	res := &analysis.Result{
		Checks: []analysis.Check{
			{Key: "payment_recent", Title: "Payment fresh", Passed: true},
			{Key: "recipient_correct", Title: "Recipient", Passed: true},
		},
	}
	res.SetField("payment_date", "15.01.2025")

	EnforcePaymentRecency(res, "01.02.2025", time.Now())

	if len(res.Checks) != 2 {
		t.Fatalf("expected model duplicate replaced, got %d checks", len(res.Checks))
	}
	if res.Checks[0].Key != "recipient_correct" {
		t.Errorf("unrelated check should survive, got %q", res.Checks[0].Key)
	}
	if res.Checks[1].Key != string(constants.CheckPaymentRecency) {
		t.Errorf("deterministic check should be appended, got %q", res.Checks[1].Key)
	}
}

func TestEnforceFeeAmount(t *testing.T) {
	cases := []struct {
		name       string
		amount     string
		title      string
		path       string
		wantPassed bool
		wantPln    string
	}{
		{"matches general fee", "340,00 zł", "opłata za pobyt czasowy", "", true, "340"},
		{"work path override", "440,00 zł", "opłata", "work", true, "440"},
		{"keyword beats default", "440,00 zł", "pobyt czasowy i praca", "", true, "440"},
		{"wrong amount", "100,00 zł", "opłata za pobyt czasowy", "", false, "340"},
		{"within tolerance", "340,80 zł", "pobyt czasowy", "", true, "340"},
		{"unparseable amount", "nieczytelne", "pobyt czasowy", "", false, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := &analysis.Result{DocType: "oplata_skarbowa"}
			res.SetField("amount", tc.amount)
			res.SetField("title", tc.title)

			EnforceFeeAmount(res, tc.path, feeTable())

			if len(res.Checks) != 1 {
				t.Fatalf("expected 1 check, got %d", len(res.Checks))
			}
			chk := res.Checks[0]
			if !chk.Required {
				t.Error("amount check must be required")
			}
			if chk.Passed != tc.wantPassed {
				t.Errorf("passed = %t, want %t (details: %s)", chk.Passed, tc.wantPassed, chk.Details)
			}
			if tc.wantPln != "" && !strings.Contains(chk.Details, "expected="+tc.wantPln) {
				t.Errorf("details %q should mention expected=%s", chk.Details, tc.wantPln)
			}
		})
	}
}

func TestEnforceVerdictConsistency(t *testing.T) {
	cases := []struct {
		name   string
		checks []analysis.Check
		want   string
	}{
		{
			"all passed",
			[]analysis.Check{{Key: "a", Passed: true, Required: true}, {Key: "b", Passed: true}},
			analysis.StatusPass,
		},
		{
			"failed required",
			[]analysis.Check{{Key: "a", Passed: false, Required: true}, {Key: "b", Passed: false}},
			analysis.StatusFail,
		},
		{
			"failed optional only",
			[]analysis.Check{{Key: "a", Passed: true, Required: true}, {Key: "b", Passed: false}},
			analysis.StatusUncertain,
		},
		{
			"no checks",
			nil,
			analysis.StatusPass,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := &analysis.Result{
				Verdict: analysis.Verdict{Status: "uncertain", Summary: "model opinion"},
				Checks:  tc.checks,
			}

			EnforceVerdictConsistency(res)

			if res.Verdict.Status != tc.want {
				t.Errorf("status = %q, want %q", res.Verdict.Status, tc.want)
			}
			if res.Verdict.Summary == "model opinion" {
				t.Error("summary should be rewritten")
			}
		})
	}
}

func TestApply_RunsDeclaredChecksOnly(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	res := &analysis.Result{DocType: "oplata_skarbowa"}
	res.SetField("payment_date", "15.05.2025")
	res.SetField("amount", "340,00 zł")
	res.SetField("title", "pobyt czasowy")

	Apply(res, constants.OplataSkarbowa, "01.06.2025", "", feeTable(), now)

	if len(res.Checks) != 2 {
		t.Fatalf("expected recency and amount checks, got %d", len(res.Checks))
	}
	if res.Verdict.Status != analysis.StatusPass {
		t.Errorf("verdict = %q, want pass (checks: %+v)", res.Verdict.Status, res.Checks)
	}

	other := &analysis.Result{DocType: "passport", Verdict: analysis.Verdict{Status: "uncertain", Summary: "keep"}}
	Apply(other, constants.Passport, "01.06.2025", "", feeTable(), now)
	if len(other.Checks) != 0 || other.Verdict.Summary != "keep" {
		t.Error("types without declared checks must stay untouched")
	}
}
