package content

import (
	"regexp"
	"strings"
)

var (
	rePlaceholderBracket = regexp.MustCompile(`(?i)\[Insert [^\]]+\]`)
	reReplaceParen       = regexp.MustCompile(`(?i)\(Replace with [^)]+\)`)
	rePlaceholderParen   = regexp.MustCompile(`(?i)\(Placeholder[^)]*\)`)
	reInsertSentence     = regexp.MustCompile(`(?i)Insert [^.]+\.`)
	reReplaceSentence    = regexp.MustCompile(`(?i)Replace with [^.]+\.`)
	reEgBracketInsert    = regexp.MustCompile(`(?i)\(e\.g\.,\s*\[Insert [^\]]+\]\)`)
	reEgInsert           = regexp.MustCompile(`(?i)\(e\.g\.,\s*Insert [^)]+\)`)
	reReferences         = regexp.MustCompile(`(?is)\n?References\s*:?.*`)
	reNotes              = regexp.MustCompile(`(?is)\n?Note\s*:?.*`)
	reSpaces             = regexp.MustCompile(`  +`)
	reBlankLines         = regexp.MustCompile(`\n\n+`)
)

// Clean normalizes generated prose before it is stored or shown: placeholder
// idioms the model was told not to produce, trailing References/Note sections,
// and repeated whitespace. Clean is idempotent.
func Clean(text string) string {
	if text == "" {
		return text
	}

	text = rePlaceholderBracket.ReplaceAllString(text, "")
	text = reReplaceParen.ReplaceAllString(text, "")
	text = rePlaceholderParen.ReplaceAllString(text, "")
	text = reInsertSentence.ReplaceAllString(text, "")
	text = reReplaceSentence.ReplaceAllString(text, "")
	text = reEgBracketInsert.ReplaceAllString(text, "")
	text = reEgInsert.ReplaceAllString(text, "")

	text = reReferences.ReplaceAllString(text, "")
	text = reNotes.ReplaceAllString(text, "")

	text = reSpaces.ReplaceAllString(text, " ")
	text = reBlankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
