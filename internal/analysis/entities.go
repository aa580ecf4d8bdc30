// Package analysis provides lightweight text analysis over extraction
// output: entity spotting, section structure, and abstracts. It backs the
// general document analysis endpoint rather than the invoice trust flow.
package analysis

import "regexp"

// Entity is one match found in the text, with byte offsets into the input.
type Entity struct {
	Type        string `json:"type"`
	Text        string `json:"text"`
	OffsetStart int    `json:"offsetStart"`
	OffsetEnd   int    `json:"offsetEnd"`
}

type entityPattern struct {
	entityType string
	patterns   []*regexp.Regexp
}

// Patterns are applied in a fixed order so output is deterministic.
var entityPatterns = []entityPattern{
	{"DATE", []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`),
		regexp.MustCompile(`(?i)\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4}\b`),
		regexp.MustCompile(`\b\d{4}[-/]\d{1,2}[-/]\d{1,2}\b`),
	}},
	{"MONEY", []*regexp.Regexp{
		regexp.MustCompile(`\$\d{1,3}(?:,\d{3})*(?:\.\d{2})?\b`),
		regexp.MustCompile(`(?i)\b\d+(?:\.\d{2})?\s*(?:dollars|USD)\b`),
	}},
	{"PERCENT", []*regexp.Regexp{
		regexp.MustCompile(`\b\d+(?:\.\d+)?%`),
	}},
	{"EMAIL", []*regexp.Regexp{
		regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`),
	}},
	{"URL", []*regexp.Regexp{
		regexp.MustCompile(`https?://(?:[-\w.]|(?:%[\da-fA-F]{2}))+[/\w.-]*\??[/\w.=&%-]*`),
	}},
	{"CLAUSE", []*regexp.Regexp{
		regexp.MustCompile(`(?i)clause\s+\d+(?:\.\d+)*`),
		regexp.MustCompile(`(?i)section\s+\d+(?:\.\d+)*`),
	}},
}

// ExtractEntities finds dates, amounts, percentages, emails, URLs and
// clause references in text.
func ExtractEntities(text string) []Entity {
	entities := []Entity{}
	for _, ep := range entityPatterns {
		for _, re := range ep.patterns {
			for _, loc := range re.FindAllStringIndex(text, -1) {
				entities = append(entities, Entity{
					Type:        ep.entityType,
					Text:        text[loc[0]:loc[1]],
					OffsetStart: loc[0],
					OffsetEnd:   loc[1],
				})
			}
		}
	}
	return entities
}
