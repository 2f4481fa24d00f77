// Package extract locates machine-checkable answer payloads buried in
// free-form agent output. An extractor recovers a raw candidate payload
// from a single piece of text; the scanner applies source precedence
// over a whole run record to decide which text the extractor sees.
package extract

import "strings"

// DefaultTag is the marker name answers are wrapped in when a task does
// not configure its own: <answer>...</answer>.
const DefaultTag = "answer"

// An Extractor recovers a raw candidate payload from arbitrary text.
// Extraction is a pure function of the input: it never errors, and
// malformed input is reported as (_, false). An extractor returning
// ok=true guarantees the payload is usable by its matching validator.
type Extractor interface {
	Extract(text string) (payload string, ok bool)
}

// NormalizeAnswer canonicalizes a tag answer for comparison: surrounding
// whitespace is trimmed and the remainder uppercased, making comparisons
// case- and whitespace-insensitive.
func NormalizeAnswer(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
