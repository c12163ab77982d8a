// Package search implements hybrid retrieval over the indexed site:
// exact/prefix keyword matching fused with embedding similarity, with
// match highlighting for display.
package search

import "regexp"

const (
	// DefaultPreviewLength is the character budget for highlight
	// previews.
	DefaultPreviewLength = 80

	// DefaultHighlightBefore and DefaultHighlightAfter wrap the matched
	// query inside a preview.
	DefaultHighlightBefore = "<b>"
	DefaultHighlightAfter  = "</b>"
)

// LimitText truncates text to limit characters, appending an ellipsis
// marker when truncated.
func LimitText(text string, limit int) string {
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return text
}

// Highlight wraps the first case-insensitive occurrence of query in
// text with the before/after markers. Only matches starting on a word
// boundary qualify: "ello" inside "hello" is not highlighted. When no
// boundary match exists the text is returned unchanged.
func Highlight(text, query, before, after string) string {
	if query == "" {
		return text
	}
	re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(query))
	if err != nil {
		return text
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return text
	}
	return text[:loc[0]] + before + text[loc[0]:loc[1]] + after + text[loc[1]:]
}

// preview truncates a matched text field and marks the query inside it.
// Truncation happens first: a match beyond the preview boundary is
// simply not shown.
func preview(text, query string) string {
	return Highlight(LimitText(text, DefaultPreviewLength), query, DefaultHighlightBefore, DefaultHighlightAfter)
}
