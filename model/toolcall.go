package model

// ToolCall is the model's request to invoke an external capability. It is
// emitted mid-stream; RawArguments holds the argument text exactly as it
// arrived and may be malformed JSON. Arguments always holds a usable map:
// either the parsed RawArguments or, when parsing failed, a minimal payload
// synthesized from the tool's schema (Fallback is then true).
type ToolCall struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	RawArguments string         `json:"raw_arguments"`
	Arguments    map[string]any `json:"arguments"`
	Fallback     bool           `json:"fallback,omitempty"`
}

// ToolResult is the outcome of one ToolCall, correlated by ToolCallID and
// fed back to the model as the next turn. IsError records the real outcome;
// whether it is reported to the model is the dispatcher's decision.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`
}
