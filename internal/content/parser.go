package content

import (
	"regexp"
	"strings"

	"github.com/hualin/rednote-studio/internal/domain"
)

// DefaultTitle is used when a caption has no non-blank line at all.
const DefaultTitle = "小红书文案"

// tagPattern matches a # followed by one or more characters that are neither
// whitespace nor another #.
var tagPattern = regexp.MustCompile(`#[^\s#]+`)

// Parse splits a raw caption into title, body, and tags.
//
// The title is the first non-blank line, trimmed. The body is every line
// after the title line rejoined with the original line breaks: blank lines
// and inline markup are kept verbatim so intentional paragraph breaks
// survive. Tags are scanned across the entire raw text, title line included,
// in order of first appearance with duplicates kept.
func Parse(raw string) domain.ParsedContent {
	parsed := domain.ParsedContent{
		Title: DefaultTitle,
		Tags:  tagPattern.FindAllString(raw, -1),
	}
	if parsed.Tags == nil {
		parsed.Tags = []string{}
	}

	lines := strings.Split(raw, "\n")
	titleIdx := -1
	for i, line := range lines {
		if strings.TrimSpace(line) != "" {
			titleIdx = i
			break
		}
	}
	if titleIdx == -1 {
		return parsed
	}

	parsed.Title = strings.TrimSpace(lines[titleIdx])
	parsed.Body = strings.Join(lines[titleIdx+1:], "\n")
	return parsed
}
