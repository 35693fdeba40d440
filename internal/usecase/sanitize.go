package usecase

import "regexp"

var citationPattern = regexp.MustCompile(`【\d+:\d+†source】`)

// StripCitations removes the assistant's file-search citation markers,
// e.g. "【12:3†source】". Removal repeats until no marker is left, so markers
// that only form after an inner one is removed are stripped too.
func StripCitations(text string) string {
	for citationPattern.MatchString(text) {
		text = citationPattern.ReplaceAllString(text, "")
	}
	return text
}
