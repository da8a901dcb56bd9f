package extract

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultPreviewLength bounds content previews when no length is given.
const DefaultPreviewLength = 200

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	blankLines    = regexp.MustCompile(`\n\s*\n`)
)

// CleanText collapses whitespace runs to single spaces and blank-line
// sequences to single newlines, trims, then caps the result to maxLength
// runes. maxLength <= 0 means no cap. Cleaning is idempotent.
func CleanText(text string, maxLength int) string {
	cleaned := whitespaceRun.ReplaceAllString(text, " ")
	cleaned = blankLines.ReplaceAllString(cleaned, "\n")
	cleaned = strings.TrimSpace(cleaned)
	if maxLength > 0 {
		if runes := []rune(cleaned); len(runes) > maxLength {
			cleaned = string(runes[:maxLength])
		}
	}
	return cleaned
}

// GetContentPreview returns text cleaned and capped to maxLength runes, with
// a trailing ellipsis when the cap cut it off.
func GetContentPreview(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultPreviewLength
	}
	preview := CleanText(text, maxLength)
	if len([]rune(preview)) == maxLength {
		preview += "..."
	}
	return preview
}

// CountWords counts whitespace-delimited non-empty tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// IsDocumentURL reports whether the URL points at a non-HTML document
// (currently only .pdf), checking the parsed path and falling back to the
// raw string when parsing fails.
func IsDocumentURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return strings.HasSuffix(strings.ToLower(rawURL), ".pdf")
	}
	return strings.HasSuffix(strings.ToLower(u.Path), ".pdf")
}
