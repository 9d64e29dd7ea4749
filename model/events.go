package model

// StreamEventKind discriminates the events produced by the stream decoder.
type StreamEventKind int

const (
	EventTextDelta StreamEventKind = iota
	EventToolCallStart
	EventToolCallArgsDelta
	EventToolCallEnd
	EventMessageEnd
	EventStreamError
)

func (k StreamEventKind) String() string {
	switch k {
	case EventTextDelta:
		return "text_delta"
	case EventToolCallStart:
		return "tool_call_start"
	case EventToolCallArgsDelta:
		return "tool_call_args_delta"
	case EventToolCallEnd:
		return "tool_call_end"
	case EventMessageEnd:
		return "message_end"
	case EventStreamError:
		return "stream_error"
	}
	return "unknown"
}

// StreamEvent is one decoded event from the completion service's response
// stream. The populated fields depend on Kind:
//
//   - EventTextDelta: Text
//   - EventToolCallStart: Call.ID, Call.Name
//   - EventToolCallArgsDelta: Call.ID, Text (the argument fragment)
//   - EventToolCallEnd: Call (fully populated, arguments parsed or fallback)
//   - EventMessageEnd: Usage
//   - EventStreamError: Err
type StreamEvent struct {
	Kind  StreamEventKind
	Text  string
	Call  ToolCall
	Usage UsageInfo
	Err   *ServiceError
}

// UsageInfo is the token accounting the service reports for one completed
// request, consumed by the cache performance tracker.
type UsageInfo struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens"`
}
