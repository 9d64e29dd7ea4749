package prompt

import (
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aide/model"
	"aide/tools"
)

// BuildInput is everything one outbound request is assembled from. WireTail
// carries the tool-use round trips of the exchange in flight: the streamed
// assistant turn followed by its tool-result turn, appended after the
// persisted history.
type BuildInput struct {
	System   string
	Tools    []mcptypes.Tool
	Context  model.ContextSections
	History  []model.Message
	WireTail []anthropic.MessageParam
}

// Builder produces the wire-format request body for one exchange. It is pure
// data transformation: no network I/O, no error paths. Malformed input
// (empty history) yields a minimal valid request.
type Builder struct {
	model     anthropic.Model
	maxTokens int64
	tracker   *SectionTracker
	now       func() time.Time
}

func NewBuilder(modelName string, maxTokens int64, tracker *SectionTracker) *Builder {
	return &Builder{
		model:     anthropic.Model(modelName),
		maxTokens: maxTokens,
		tracker:   tracker,
		now:       time.Now,
	}
}

// Build assembles the request. Cache markers land on the last tool schema
// and on eligible context sub-blocks, never exceeding MarkerBudget in total.
func (b *Builder) Build(in BuildInput) anthropic.MessageNewParams {
	eligible := b.tracker.Evaluate(map[string]string{
		model.SectionTools:    toolsDigest(in.Tools),
		model.SectionMemory:   in.Context.Memory,
		model.SectionSchedule: in.Context.Schedule,
		model.SectionLocation: in.Context.Location,
		model.SectionHistory:  in.Context.History,
	})

	markers := 0

	params := anthropic.MessageNewParams{
		Model:     b.model,
		MaxTokens: b.maxTokens,
	}
	if in.System != "" {
		// The protocol cannot attach markers to a flat system string.
		params.System = []anthropic.TextBlockParam{{Text: in.System}}
	}

	if len(in.Tools) > 0 {
		params.Tools = tools.ToAnthropicParams(in.Tools)
		if eligible[model.SectionTools] && markers < MarkerBudget {
			// One marker on the last schema covers the whole tool list.
			last := &params.Tools[len(params.Tools)-1]
			if last.OfTool != nil {
				last.OfTool.CacheControl = anthropic.NewCacheControlEphemeralParam()
				markers++
			}
		}
	}

	messages := make([]anthropic.MessageParam, 0, len(in.History)+2)
	messages = append(messages, b.contextMessage(in.Context, eligible, &markers))

	for _, msg := range in.History {
		switch msg.Role {
		case model.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	messages = append(messages, in.WireTail...)
	params.Messages = messages

	return params
}

// contextMessage serializes the typed context sections into one user message
// of ordered sub-blocks: timestamp, memory, schedule, location, history.
// Empty sections are skipped entirely; the timestamp is never empty and
// never marked, so every request carries at least this one block.
func (b *Builder) contextMessage(ctx model.ContextSections, eligible map[string]bool, markers *int) anthropic.MessageParam {
	ts := ctx.Timestamp
	if ts.IsZero() {
		ts = b.now()
	}

	blocks := []anthropic.ContentBlockParamUnion{
		textBlock("Current date and time: "+ts.Format("Monday, January 2, 2006 at 3:04 PM MST"), false),
	}

	type section struct {
		name   string
		header string
		text   string
	}
	for _, s := range []section{
		{model.SectionMemory, "What you remember about the user:", ctx.Memory},
		{model.SectionSchedule, "Calendar events and reminders:", ctx.Schedule},
		{model.SectionLocation, "User's current location:", ctx.Location},
		{model.SectionHistory, "Earlier conversation:", ctx.History},
	} {
		if s.text == "" {
			continue
		}
		marked := eligible[s.name] && *markers < MarkerBudget
		if marked {
			*markers++
		}
		blocks = append(blocks, textBlock(s.header+"\n"+s.text, marked))
	}

	return anthropic.NewUserMessage(blocks...)
}

func textBlock(text string, marked bool) anthropic.ContentBlockParamUnion {
	block := anthropic.TextBlockParam{Text: text}
	if marked {
		block.CacheControl = anthropic.NewCacheControlEphemeralParam()
	}
	return anthropic.ContentBlockParamUnion{OfText: &block}
}

func toolsDigest(ts []mcptypes.Tool) string {
	names := make([]string, 0, len(ts))
	for _, t := range ts {
		names = append(names, t.Name)
	}
	return strings.Join(names, ",")
}
