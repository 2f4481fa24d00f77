package models

import (
	"encoding/json"
	"fmt"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the four conversation roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant, RoleTool:
		return true
	}
	return false
}

// Message is one turn of an agent conversation. Transcripts are ordered
// oldest first and are never mutated after decoding. Only assistant
// messages are scanned for answers.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// UnmarshalJSON rejects messages with an unknown role and maps a null
// content to the empty string.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role      Role       `json:"role"`
		Content   *string    `json:"content"`
		ToolCalls []ToolCall `json:"tool_calls"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if !raw.Role.Valid() {
		return fmt.Errorf("unknown message role %q", raw.Role)
	}
	m.Role = raw.Role
	m.Content = ""
	if raw.Content != nil {
		m.Content = *raw.Content
	}
	m.ToolCalls = raw.ToolCalls
	return nil
}

// ToolCall is a function invocation reported by the model inside an
// assistant message.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the invoked function's name and raw arguments.
// Models emit arguments either as a JSON object or as a JSON string
// containing one; [FunctionCall.DecodedArguments] accepts both.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// DecodedArguments decodes the call arguments into a mapping. Arguments
// that are absent, not an object, or not decodable yield (nil, false):
// an undecodable tool call is skipped during scanning, never an error.
func (fc FunctionCall) DecodedArguments() (map[string]any, bool) {
	raw := []byte(fc.Arguments)
	if len(raw) == 0 {
		return nil, false
	}

	// A string payload is a JSON-encoded object; unwrap it first.
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		raw = []byte(s)
	}

	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil || args == nil {
		return nil, false
	}
	return args, true
}
