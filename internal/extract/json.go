package extract

import (
	"encoding/json"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// JSONExtractor recovers the first JSON object embedded in free text.
// Strategies are tried in order, first match wins: fenced code blocks
// (bare or labeled json), then a balanced-brace scan over the whole
// text. The returned payload is the raw matched substring, guaranteed
// to re-parse as a JSON object.
type JSONExtractor struct{}

// jsonStrategies is the ordered strategy list; each is a pure function
// of the input text.
var jsonStrategies = []func(string) (string, bool){
	extractFencedJSON,
	extractBracedJSON,
}

func (JSONExtractor) Extract(input string) (string, bool) {
	for _, strategy := range jsonStrategies {
		if payload, ok := strategy(input); ok {
			return payload, true
		}
	}
	return "", false
}

// extractFencedJSON walks the markdown AST and returns the interior of
// the first fenced code block that parses as a JSON object. Blocks
// labeled with a language other than json are skipped.
func extractFencedJSON(input string) (string, bool) {
	source := []byte(input)
	md := goldmark.New()
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var payload string
	found := false

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fence, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if lang := fenceLanguage(fence, source); lang != "" && lang != "json" {
			return ast.WalkContinue, nil
		}

		var sb strings.Builder
		lines := fence.Lines()
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			sb.Write(segment.Value(source))
		}

		candidate := strings.TrimSpace(sb.String())
		if parsesToObject(candidate) {
			payload = candidate
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})

	return payload, found
}

func fenceLanguage(fence *ast.FencedCodeBlock, source []byte) string {
	return strings.ToLower(strings.TrimSpace(string(fence.Language(source))))
}

// extractBracedJSON scans input left to right for substrings shaped like
// a JSON object with at most one level of nested braces and returns the
// first one that parses. Candidates are non-overlapping, matching the
// windows a {[^{}]*(?:\{[^{}]*\}[^{}]*)*\} search would visit.
func extractBracedJSON(input string) (string, bool) {
	for i := 0; i < len(input); i++ {
		if input[i] != '{' {
			continue
		}
		end, ok := matchBraceWindow(input, i)
		if !ok {
			continue
		}
		candidate := input[i : end+1]
		if parsesToObject(candidate) {
			return candidate, true
		}
		i = end
	}
	return "", false
}

// matchBraceWindow matches an outer brace pair starting at start,
// allowing inner pairs one level deep. Returns the index of the closing
// brace. Deeper nesting makes the window unmatchable from this start.
func matchBraceWindow(s string, start int) (int, bool) {
	i := skipNonBrace(s, start+1)
	for i < len(s) && s[i] == '{' {
		i = skipNonBrace(s, i+1)
		if i >= len(s) || s[i] != '}' {
			return 0, false
		}
		i = skipNonBrace(s, i+1)
	}
	if i < len(s) && s[i] == '}' {
		return i, true
	}
	return 0, false
}

func skipNonBrace(s string, i int) int {
	for i < len(s) && s[i] != '{' && s[i] != '}' {
		i++
	}
	return i
}

// parsesToObject reports whether s is a JSON object with at least one
// member. An empty object carries no answer, so it never counts as a
// successful extraction and scanning continues past it.
func parsesToObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return false
	}
	return len(obj) > 0
}
