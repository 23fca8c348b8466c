package validate

import (
	"regexp"

	"github.com/doclab-pl/doclab/internal/analysis"
)

// Each deterministic check owns a family of keys and title patterns. Models
// phrase the same check differently between runs, in three languages, so the
// dedup matches by key set and title pattern rather than by a single key.
var (
	recencyKeys = keySet("payment_date_recent", "payment_recent", "payment_recency", "payment_fresh")
	amountKeys  = keySet("amount_correct", "fee_amount_correct", "amount_ok", "kwota_poprawna", "suma_zgodna")
	ageKeys     = keySet("document_age", "document_recent", "dokument_aktualny")

	recencyTitles = []*regexp.Regexp{
		regexp.MustCompile(`(?i)плат[её]ж.*свеж`),
		regexp.MustCompile(`(?i)payment.*(recent|fresh)`),
		regexp.MustCompile(`(?i)(płatność|platnosc).*(świeża|swieza|aktualna)`),
	}
	amountTitles = []*regexp.Regexp{
		regexp.MustCompile(`(?i)сумм[аы].*соответ`),
		regexp.MustCompile(`(?i)(kwota|suma).*(zgodna|poprawna)`),
		regexp.MustCompile(`(?i)amount.*(match|correct)`),
	}
	ageTitles = []*regexp.Regexp{
		regexp.MustCompile(`(?i)document.*(age|recent|fresh)`),
		regexp.MustCompile(`(?i)(dokument|umowa).*(aktualn|śwież|swiez)`),
		regexp.MustCompile(`(?i)документ.*(свеж|актуал)`),
	}
)

func keySet(keys ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		m[k] = struct{}{}
	}
	return m
}

// dropMatching removes every check whose key or title belongs to the family,
// keeping order of the rest. Nil entries created by sloppy model output are
// dropped too.
func dropMatching(checks []analysis.Check, keys map[string]struct{}, titles []*regexp.Regexp) []analysis.Check {
	kept := checks[:0]
	for _, c := range checks {
		if _, ok := keys[c.Key]; ok {
			continue
		}
		if titleMatches(c.Title, titles) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func titleMatches(title string, patterns []*regexp.Regexp) bool {
	if title == "" {
		return false
	}
	for _, re := range patterns {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}
