package domain

import (
	"regexp"
	"strings"
)

var controlTagPattern = regexp.MustCompile(`<\|[^|]*\|>`)

// CleanTranscript strips <|...|> language and control tags and trims the result.
// Removing one tag can splice a new one together, so stripping repeats until stable.
func CleanTranscript(text string) string {
	for {
		next := controlTagPattern.ReplaceAllString(text, "")
		if next == text {
			break
		}
		text = next
	}
	return strings.TrimSpace(text)
}
