package extract

import "strings"

// TagExtractor recovers the body of the first opening/closing marker
// pair in a text. Matching is case-insensitive and the body may span
// multiple lines; the body is returned with surrounding whitespace
// trimmed. A pair whose body trims to nothing yields no payload, so
// scanning can continue in lower-precedence sources.
type TagExtractor struct {
	Open  string
	Close string
}

// NewTagExtractor builds a [TagExtractor] for a named tag: "answer"
// yields the <answer>...</answer> pair.
func NewTagExtractor(tag string) TagExtractor {
	if tag == "" {
		tag = DefaultTag
	}
	return TagExtractor{
		Open:  "<" + tag + ">",
		Close: "</" + tag + ">",
	}
}

func (t TagExtractor) Extract(text string) (string, bool) {
	lower := strings.ToLower(text)
	open := strings.ToLower(t.Open)
	closing := strings.ToLower(t.Close)

	start := strings.Index(lower, open)
	if start < 0 {
		return "", false
	}
	bodyStart := start + len(open)

	rel := strings.Index(lower[bodyStart:], closing)
	if rel < 0 {
		return "", false
	}

	body := strings.TrimSpace(text[bodyStart : bodyStart+rel])
	if body == "" {
		return "", false
	}
	return body, true
}
