package recognition

import (
	"regexp"
	"strings"

	"github.com/doclab-pl/doclab/constants"
)

// Refusal phrasing in the working language of the service plus the Russian
// and Polish equivalents our users' documents provoke. Vision safety filters
// sometimes decline legitimate transcription (profanity, names, official
// stamps); the retry reframes the request, it does not bypass a genuine
// boundary. Truly prohibited content is expected to come back redacted.
var refusalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bi(?:'?m| am) sorry\b`),
	regexp.MustCompile(`(?i)\bi can(?:no|')t\b|\bi cannot\b`),
	regexp.MustCompile(`(?i)\bunable to (?:assist|help|comply|process)\b`),
	regexp.MustCompile(`(?i)\bas an ai\b`),
	regexp.MustCompile(`(?i)\bcannot (?:assist|help) with (?:that|this)\b`),
	regexp.MustCompile(`(?i)не могу\s+(?:помочь|выполнить|распознать|обработать)`),
	regexp.MustCompile(`(?i)(?:извините|извини|прошу прощения)`),
	regexp.MustCompile(`(?i)przepraszam`),
	regexp.MustCompile(`(?i)nie mogę\s+(?:pomóc|wykonać|przetworzyć)`),
	regexp.MustCompile(`(?i)nie jestem w stanie`),
}

// IsRefusal reports whether text reads like a safety-policy decline rather
// than the requested transcription.
func IsRefusal(text string) bool {
	for _, re := range refusalPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// IsRefusalOrImplausible is the single retry-decision function: refusal
// phrasing, or output too short to be a real transcription.
func IsRefusalOrImplausible(text string) bool {
	t := strings.TrimSpace(text)
	if len(t) < constants.MinPlausibleOCRChars {
		return true
	}
	return IsRefusal(t)
}
