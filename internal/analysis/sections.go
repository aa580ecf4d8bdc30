package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// Section is one heading-delimited region of a markdown document.
type Section struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Level       int    `json:"level"`
	StartOffset int    `json:"startOffset"`
	EndOffset   int    `json:"endOffset"`
}

var headingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)$`)

// ParseSections splits markdown into sections at its headings. Each section
// runs from its heading to the next heading. A document with no headings
// comes back as a single "Document" section spanning everything.
func ParseSections(markdown string) []Section {
	sections := []Section{}
	var current *Section

	offset := 0
	for _, line := range strings.Split(markdown, "\n") {
		if m := headingRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			if current != nil {
				current.EndOffset = offset
				sections = append(sections, *current)
			}
			current = &Section{
				ID:          fmt.Sprintf("s-%d", len(sections)+1),
				Title:       strings.TrimSpace(m[2]),
				Level:       len(m[1]),
				StartOffset: offset,
				EndOffset:   len(markdown),
			}
		}
		offset += len(line) + 1
	}

	if current != nil {
		current.EndOffset = len(markdown)
		sections = append(sections, *current)
	}

	if len(sections) == 0 {
		sections = append(sections, Section{
			ID:          "s-1",
			Title:       "Document",
			Level:       1,
			StartOffset: 0,
			EndOffset:   len(markdown),
		})
	}
	return sections
}

var sentenceSplitRe = regexp.MustCompile(`[.!?]+`)

// CreateAbstract returns the first sentences of the text as a short
// abstract.
func CreateAbstract(text string, sentenceCount int) string {
	if sentenceCount < 1 {
		sentenceCount = 2
	}
	sentences := sentenceSplitRe.Split(text, -1)
	if len(sentences) > sentenceCount {
		sentences = sentences[:sentenceCount]
	}
	abstract := strings.TrimSpace(strings.Join(sentences, " "))
	if abstract != "" && !strings.HasSuffix(abstract, ".") {
		abstract += "."
	}
	return abstract
}
