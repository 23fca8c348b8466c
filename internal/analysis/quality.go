package analysis

import "unicode"

// EstimateOCRQuality grades recognized text by the share of letters in it.
// Garbage OCR output tends to be short or symbol-heavy.
func EstimateOCRQuality(text string) string {
	if text == "" {
		return "poor"
	}
	letters := 0
	total := 0
	for _, r := range text {
		total++
		if unicode.IsLetter(r) {
			letters++
		}
	}
	ratio := float64(letters) / float64(total)
	switch {
	case ratio > 0.7 && total > 500:
		return "good"
	case ratio > 0.4 && total > 200:
		return "medium"
	default:
		return "poor"
	}
}
