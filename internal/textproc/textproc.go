package textproc

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
)

var (
	markupRe     = regexp.MustCompile(`<[^>]+>`)
	urlRe        = regexp.MustCompile(`http[s]?://\S+`)
	digitRunRe   = regexp.MustCompile(`\b\d{4,}\b`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	folder = cases.Fold()
)

// NormalizeEmailText cleans email text for classification and override
// lookups: markup stripped, links and long digit runs replaced with
// placeholder tokens, whitespace collapsed, case folded.
func NormalizeEmailText(text string) string {
	text = markupRe.ReplaceAllString(text, " ")
	text = urlRe.ReplaceAllString(text, "URL_LINK")
	text = digitRunRe.ReplaceAllString(text, "NUMBER_TOKEN")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return folder.String(strings.TrimSpace(text))
}

// TruncateRunes bounds text to maxChars characters, never splitting a
// multi-byte rune. A non-positive bound means unbounded.
func TruncateRunes(text string, maxChars int) string {
	if maxChars <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}
