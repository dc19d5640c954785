package services

import (
	"regexp"
	"strings"
)

var (
	codeFenceRe     = regexp.MustCompile("(?i)```[a-z]*\\n?")
	blankLinesRe    = regexp.MustCompile(`\n{3,}`)
	markdownMarkers = []string{"**", "*", "|", "###", "##", "#"}
)

// CleanupFormatting strips markdown the formatting model adds despite being
// asked for plain text.
func CleanupFormatting(text string) string {
	text = codeFenceRe.ReplaceAllString(text, "")
	for _, marker := range markdownMarkers {
		text = strings.ReplaceAll(text, marker, "")
	}
	text = blankLinesRe.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
