package extract

import "github.com/cocoabench/saiten/internal/models"

// DefaultCompletionTool is the tool-call name whose result argument
// carries the agent's final answer.
const DefaultCompletionTool = "task_complete"

// Scanner applies source precedence over a run record to find the first
// extractable payload. The direct result channel wins over the
// conversation; within the conversation newer assistant messages win
// over older ones, and completion tool calls win over message content.
type Scanner struct {
	Extractor      Extractor
	CompletionTool string
}

// NewScanner builds a [Scanner] around an extractor with the default
// completion marker.
func NewScanner(extractor Extractor) Scanner {
	return Scanner{
		Extractor:      extractor,
		CompletionTool: DefaultCompletionTool,
	}
}

// Scan returns the first payload the extractor recovers, tagged with the
// source it came from. A payload found in a higher-precedence source is
// final even if it later fails validation; scanning never resumes.
// Sources that fail to yield a payload fall through to the next one.
func (s Scanner) Scan(directResult string, conversation []models.Message) (string, models.ExtractionSource, bool) {
	if directResult != "" {
		if payload, ok := s.Extractor.Extract(directResult); ok {
			return payload, models.SourceDirectResult, true
		}
	}

	for i := len(conversation) - 1; i >= 0; i-- {
		msg := conversation[i]
		if msg.Role != models.RoleAssistant {
			continue
		}
		if payload, ok := s.scanToolCalls(msg.ToolCalls); ok {
			return payload, models.SourceToolCallResult, true
		}
		if payload, ok := s.Extractor.Extract(msg.Content); ok {
			return payload, models.SourceMessageContent, true
		}
	}

	return "", "", false
}

// scanToolCalls extracts from the result argument of completion tool
// calls, in the order the model reported them. Tool calls with
// undecodable arguments or a non-text result are skipped.
func (s Scanner) scanToolCalls(calls []models.ToolCall) (string, bool) {
	tool := s.CompletionTool
	if tool == "" {
		tool = DefaultCompletionTool
	}

	for _, call := range calls {
		if call.Function.Name != tool {
			continue
		}
		args, ok := call.Function.DecodedArguments()
		if !ok {
			continue
		}
		result, ok := args["result"].(string)
		if !ok {
			continue
		}
		if payload, ok := s.Extractor.Extract(result); ok {
			return payload, true
		}
	}
	return "", false
}
