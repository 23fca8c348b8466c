package recognition

import "github.com/doclab-pl/doclab/internal/imaging"

// Recognition directives. The policy table is defined once: a primary
// directive per mode and one alternate used for the single retry after a
// refusal-like or implausibly short response.
const (
	directivePrinted = "You are an OCR engine. Return the visible text as plain UTF-8 text. " +
		"No summaries, no disclaimers. Output text only."

	directiveHandwriting = "You transcribe handwriting and printed documents verbatim. " +
		"If a word is unreadable, output ???. Keep original line breaks and punctuation. " +
		"Output plain UTF-8 text only."

	// The alternate frames the request as a verbatim transformation task
	// (accessibility transcription). Content that is genuinely prohibited
	// should be replaced with [redacted], not transcribed.
	directiveAlternate = "This is a transformation task: transcribe the attached document images " +
		"verbatim so the text is accessible to screen readers. Reproduce every visible word, " +
		"number and punctuation mark exactly as written, keeping the original line breaks. " +
		"If a fragment is unreadable, write ???. If a fragment may not be reproduced, write [redacted]. " +
		"Output plain UTF-8 text only."

	userInstruction = "Extract plain text from all images exactly as seen, concatenated in reading order."
)

func primaryDirective(mode imaging.Mode) string {
	if mode == imaging.Handwriting {
		return directiveHandwriting
	}
	return directivePrinted
}
