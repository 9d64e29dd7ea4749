// Package stream decodes the completion service's incremental response
// protocol into an ordered sequence of high-level events.
package stream

import (
	"encoding/json"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"aide/model"
)

// EventSource is the incremental event feed of one response. The SDK's
// *ssestream.Stream[anthropic.MessageStreamEventUnion] satisfies it; tests
// use a scripted source.
type EventSource interface {
	Next() bool
	Current() anthropic.MessageStreamEventUnion
	Err() error
	Close() error
}

// State is the decoder lifecycle. A decoder is single-use: it decodes one
// response stream and ends in exactly one terminal state.
type State int

const (
	StateIdle State = iota
	StateStreaming
	StateCompleted
	StateErrored
	StateCancelled
)

// FallbackFunc synthesizes arguments for a tool call whose accumulated
// argument text failed to parse.
type FallbackFunc func(toolName string) map[string]any

// Decoder is a pull-based iterator over decoded stream events:
//
//	dec := stream.NewDecoder(src, fallback)
//	for dec.Next() {
//		ev := dec.Event()
//		...
//	}
//	if err := dec.Err(); err != nil { ... }
//
// Tool-call argument fragments are concatenated in arrival order per call
// and parsed at the call's end; a parse failure never fails the stream, the
// call is emitted with fallback arguments instead.
type Decoder struct {
	src      EventSource
	fallback FallbackFunc

	state      State
	cur        model.StreamEvent
	pending    []model.StreamEvent
	calls      map[int64]*pendingCall
	usage      model.UsageInfo
	sawContent bool
	errEmitted bool
	err        *model.ServiceError
}

type pendingCall struct {
	id   string
	name string
	args strings.Builder
}

func NewDecoder(src EventSource, fallback FallbackFunc) *Decoder {
	if fallback == nil {
		fallback = func(string) map[string]any { return map[string]any{} }
	}
	return &Decoder{
		src:      src,
		fallback: fallback,
		state:    StateIdle,
		calls:    make(map[int64]*pendingCall),
	}
}

// Next advances to the next decoded event. It returns false once the stream
// has ended; check Err afterwards. The final event of a failed stream is an
// EventStreamError carrying the classified error.
func (d *Decoder) Next() bool {
	if len(d.pending) > 0 {
		d.cur = d.pending[0]
		d.pending = d.pending[1:]
		return true
	}

	switch d.state {
	case StateCompleted, StateErrored, StateCancelled:
		return false
	case StateIdle:
		d.state = StateStreaming
	}

	for d.src.Next() {
		if d.state == StateCancelled {
			return false
		}
		events := d.translate(d.src.Current())
		if len(events) > 0 {
			d.cur = events[0]
			d.pending = events[1:]
			return true
		}
	}

	if d.state == StateCancelled {
		return false
	}

	if err := d.src.Err(); err != nil {
		if model.Canceled(err) {
			d.state = StateCancelled
			return false
		}
		d.state = StateErrored
		if d.errEmitted {
			return false
		}
		d.err = model.ClassifyError(err)
		d.err.MidStream = d.sawContent
		d.errEmitted = true
		d.cur = model.StreamEvent{Kind: model.EventStreamError, Err: d.err}
		return true
	}

	d.state = StateCompleted
	return false
}

// Event returns the event Next advanced to.
func (d *Decoder) Event() model.StreamEvent {
	return d.cur
}

// Err returns the classified stream error, nil unless the decoder ended in
// StateErrored.
func (d *Decoder) Err() *model.ServiceError {
	return d.err
}

// Usage returns the token accounting observed so far. Complete once the
// decoder has emitted EventMessageEnd.
func (d *Decoder) Usage() model.UsageInfo {
	return d.usage
}

// State returns the decoder lifecycle state.
func (d *Decoder) State() State {
	return d.state
}

// Cancel transitions the decoder to StateCancelled and closes the underlying
// stream. Partially decoded content already handed out stays valid; the
// caller keeps it as the final (incomplete) message content.
func (d *Decoder) Cancel() {
	if d.state == StateCompleted || d.state == StateErrored {
		return
	}
	d.state = StateCancelled
	_ = d.src.Close()
}

// Close releases the underlying stream without changing terminal state.
func (d *Decoder) Close() error {
	return d.src.Close()
}

func (d *Decoder) translate(event anthropic.MessageStreamEventUnion) []model.StreamEvent {
	switch ev := event.AsAny().(type) {
	case anthropic.MessageStartEvent:
		d.usage.InputTokens = ev.Message.Usage.InputTokens
		d.usage.OutputTokens = ev.Message.Usage.OutputTokens
		d.usage.CacheCreationInputTokens = ev.Message.Usage.CacheCreationInputTokens
		d.usage.CacheReadInputTokens = ev.Message.Usage.CacheReadInputTokens
		return nil

	case anthropic.ContentBlockStartEvent:
		if blk, ok := ev.ContentBlock.AsAny().(anthropic.ToolUseBlock); ok {
			d.calls[ev.Index] = &pendingCall{id: blk.ID, name: blk.Name}
			return []model.StreamEvent{{
				Kind: model.EventToolCallStart,
				Call: model.ToolCall{ID: blk.ID, Name: blk.Name},
			}}
		}
		return nil

	case anthropic.ContentBlockDeltaEvent:
		switch delta := ev.Delta.AsAny().(type) {
		case anthropic.TextDelta:
			d.sawContent = true
			return []model.StreamEvent{{Kind: model.EventTextDelta, Text: delta.Text}}
		case anthropic.InputJSONDelta:
			call := d.calls[ev.Index]
			if call == nil {
				return nil
			}
			call.args.WriteString(delta.PartialJSON)
			return []model.StreamEvent{{
				Kind: model.EventToolCallArgsDelta,
				Call: model.ToolCall{ID: call.id, Name: call.name},
				Text: delta.PartialJSON,
			}}
		}
		return nil

	case anthropic.ContentBlockStopEvent:
		call := d.calls[ev.Index]
		if call == nil {
			return nil
		}
		delete(d.calls, ev.Index)
		return []model.StreamEvent{{
			Kind: model.EventToolCallEnd,
			Call: d.finishCall(call),
		}}

	case anthropic.MessageDeltaEvent:
		if ev.Usage.OutputTokens > 0 {
			d.usage.OutputTokens = ev.Usage.OutputTokens
		}
		return nil

	case anthropic.MessageStopEvent:
		return []model.StreamEvent{{Kind: model.EventMessageEnd, Usage: d.usage}}
	}

	return nil
}

// finishCall parses the accumulated argument text. Empty input is a valid
// no-argument call; anything unparsable gets fallback arguments.
func (d *Decoder) finishCall(call *pendingCall) model.ToolCall {
	raw := call.args.String()
	decoded := model.ToolCall{ID: call.id, Name: call.name, RawArguments: raw}

	if strings.TrimSpace(raw) == "" {
		decoded.Arguments = map[string]any{}
		return decoded
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil || args == nil {
		decoded.Arguments = d.fallback(call.name)
		decoded.Fallback = true
		return decoded
	}

	decoded.Arguments = args
	return decoded
}
