package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeRuleDir(t *testing.T, withFees bool) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		promptFile: "You are a meticulous reviewer.\n",
		schemaFile: `{"type":"object","required":["verdict"]}`,
		rulesFile:  `{"oplata_skarbowa":{"checks":[{"key":"recipient_correct","title":"Recipient","required":true}],"fields":["amount"]}}`,
	}
	if withFees {
		files[feesFile] = `{
			"tolerance_pln": 1,
			"items": {
				"temporary_residence_general": {"amount_pln": 340},
				"temporary_residence_work": {"amount_pln": 440}
			},
			"purpose_keywords": {
				"temporary_residence_general": ["pobyt czasowy"],
				"temporary_residence_work": ["pobyt czasowy i praca"]
			},
			"path_overrides": {"work": "temporary_residence_work"}
		}`
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestLoad(t *testing.T) {
	rs, err := Load(writeRuleDir(t, true), nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if rs.BasePrompt != "You are a meticulous reviewer." {
		t.Errorf("BasePrompt = %q", rs.BasePrompt)
	}
	if rs.Schema == nil {
		t.Error("schema should have compiled")
	}
	if rs.Fees.Empty() {
		t.Error("fee table should have loaded")
	}
	if got := string(rs.ForType("oplata_skarbowa")); !strings.Contains(got, "recipient_correct") {
		t.Errorf("ForType(oplata_skarbowa) = %s", got)
	}
	if got := string(rs.ForType("no_such_type")); got != `{"checks":[],"fields":[]}` {
		t.Errorf("ForType default = %s", got)
	}
}

func TestLoad_FeesOptional(t *testing.T) {
	rs, err := Load(writeRuleDir(t, false), nil)
	if err != nil {
		t.Fatalf("Load without fees.json: %v", err)
	}
	if !rs.Fees.Empty() {
		t.Error("fee table should be empty")
	}
}

func TestLoad_MissingPrompt(t *testing.T) {
	if _, err := Load(t.TempDir(), nil); err == nil {
		t.Fatal("Load of an empty dir should fail")
	}
}

func TestResolvePurpose(t *testing.T) {
	rs, err := Load(writeRuleDir(t, true), nil)
	if err != nil {
		t.Fatal(err)
	}
	fees := rs.Fees

	tests := []struct {
		name      string
		path      string
		detected  string
		title     string
		recipient string
		want      string
	}{
		{"path override wins", "work", "permanent_residence", "pobyt czasowy", "", "temporary_residence_work"},
		{"path override is case folded", "WORK", "", "", "", "temporary_residence_work"},
		{"detected purpose next", "general", "permanent_residence", "pobyt czasowy", "", "permanent_residence"},
		{"longest keyword wins", "general", "", "Opłata: pobyt czasowy i praca", "", "temporary_residence_work"},
		{"keyword matches despite diacritics", "general", "", "ZEZWOLENIE NA POBYT CZASOWY", "", "temporary_residence_general"},
		{"keyword found in recipient", "general", "", "opłata", "Urząd Wojewódzki, pobyt czasowy i praca", "temporary_residence_work"},
		{"default when nothing matches", "general", "", "przelew", "", DefaultPurpose},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fees.ResolvePurpose(tt.path, tt.detected, tt.title, tt.recipient)
			if got != tt.want {
				t.Errorf("ResolvePurpose = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExpectedAmount(t *testing.T) {
	fees := FeeTable{Items: map[string]FeeItem{
		"temporary_residence_general": {AmountPLN: 340},
		"permanent_residence":         {AmountPLN: 640},
	}}
	if got, ok := fees.ExpectedAmount("permanent_residence"); !ok || got != 640 {
		t.Errorf("ExpectedAmount(permanent_residence) = %v, %v", got, ok)
	}
	if got, ok := fees.ExpectedAmount("unknown_purpose"); !ok || got != 340 {
		t.Errorf("ExpectedAmount fallback = %v, %v", got, ok)
	}
	if _, ok := (FeeTable{}).ExpectedAmount("anything"); ok {
		t.Error("empty table should report no amount")
	}
}

func TestStripDiacritics(t *testing.T) {
	tests := []struct{ in, want string }{
		{"zażółć gęślą jaźń", "zazolc gesla jazn"},
		{"ZAŻÓŁĆ GĘŚLĄ JAŹŃ", "ZAZOLC GESLA JAZN"},
		{"opłata skarbowa", "oplata skarbowa"},
		{"plain ascii", "plain ascii"},
	}
	for _, tt := range tests {
		if got := StripDiacritics(tt.in); got != tt.want {
			t.Errorf("StripDiacritics(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
