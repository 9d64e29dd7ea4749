// Package engine owns the active exchange: it builds requests, consumes the
// response stream, dispatches tool calls, persists the growing transcript,
// and reports progress to the presentation layer.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aide/model"
	"aide/prompt"
	"aide/storage"
	"aide/stream"
	"aide/tools"
)

// ExchangeState is the orchestrator state machine. The success path is
// Idle -> Sending -> Streaming -> Dispatching -> Idle, looping through
// Sending again for each tool-use round trip; unrecoverable errors pass
// through Failed before returning to Idle.
type ExchangeState string

const (
	StateIdle        ExchangeState = "idle"
	StateSending     ExchangeState = "sending"
	StateStreaming   ExchangeState = "streaming"
	StateDispatching ExchangeState = "dispatching"
	StateFailed      ExchangeState = "failed"
)

// Origin distinguishes user-initiated sends from scheduler-initiated ones.
// Only automatic sends may retry a transport failure, and only once.
type Origin int

const (
	OriginUser Origin = iota
	OriginAuto
)

const interruptedNotice = "\n\n(interrupted)"

// ContextSource supplies the context sections attached to the front of each
// request: memory digest, calendar+reminders digest, location, history
// preamble.
type ContextSource interface {
	Sections(ctx context.Context) (model.ContextSections, error)
}

// Options configures an Orchestrator.
type Options struct {
	SystemPrompt string
	Tools        []mcptypes.Tool
	Watchdog     time.Duration
	Logger       *slog.Logger
}

type queuedSend struct {
	text   string
	origin Origin
}

// Orchestrator is the top-level conversation state machine. At most one
// exchange is in flight at a time; user messages arriving while busy queue
// FIFO and start when the current exchange resolves.
type Orchestrator struct {
	streamer   CompletionStreamer
	builder    *prompt.Builder
	tracker    *prompt.SectionTracker
	dispatcher *tools.Dispatcher
	store      *storage.Store
	metrics    *CacheMetrics
	ctxsrc     ContextSource
	pub        *publisher
	logger     *slog.Logger

	system   string
	toolset  []mcptypes.Tool
	watchdog time.Duration

	mu       sync.Mutex
	cond     *sync.Cond
	state    ExchangeState
	queue    []queuedSend
	history  []model.Message
	cancel   context.CancelFunc
	decoder  *stream.Decoder
	timer    *time.Timer
	seq      uint64
	timedOut bool
}

// New builds an orchestrator over an opened store. A streaming checkpoint
// left by a crash is finalized as interrupted before the transcript loads.
func New(streamer CompletionStreamer, builder *prompt.Builder, tracker *prompt.SectionTracker, dispatcher *tools.Dispatcher, store *storage.Store, metrics *CacheMetrics, ctxsrc ContextSource, listener Listener, opts Options) (*Orchestrator, error) {
	if opts.Watchdog <= 0 {
		opts.Watchdog = 30 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	recovered, err := store.RecoverInterrupted(interruptedNotice)
	if err != nil {
		return nil, err
	}
	if recovered != "" {
		opts.Logger.Info("finalized interrupted message from previous run", "message_id", recovered)
	}

	history, err := store.Messages()
	if err != nil {
		return nil, err
	}

	o := &Orchestrator{
		streamer:   streamer,
		builder:    builder,
		tracker:    tracker,
		dispatcher: dispatcher,
		store:      store,
		metrics:    metrics,
		ctxsrc:     ctxsrc,
		pub:        newPublisher(listener),
		logger:     opts.Logger,
		system:     opts.SystemPrompt,
		toolset:    opts.Tools,
		watchdog:   opts.Watchdog,
		state:      StateIdle,
		history:    history,
	}
	o.cond = sync.NewCond(&o.mu)
	return o, nil
}

// Send submits a user message. If an exchange is in flight the message
// queues and starts once the orchestrator returns to Idle.
func (o *Orchestrator) Send(text string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		o.queue = append(o.queue, queuedSend{text: text, origin: OriginUser})
		return
	}
	o.startLocked(text, OriginUser)
}

// SendAutomatic opens a proactive exchange. Unlike Send it never queues: a
// busy orchestrator drops the request and reports false.
func (o *Orchestrator) SendAutomatic(text string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return false
	}
	o.startLocked(text, OriginAuto)
	return true
}

// Abort cancels the exchange in flight. User-initiated cancel and the
// watchdog both route through here; calling it twice, or when already idle,
// is a no-op.
func (o *Orchestrator) Abort() {
	o.mu.Lock()
	if o.state == StateIdle {
		o.mu.Unlock()
		return
	}
	cancel, dec := o.cancel, o.decoder
	o.mu.Unlock()

	if dec != nil {
		dec.Cancel()
	}
	if cancel != nil {
		cancel()
	}
}

// ClearConversation aborts any exchange in flight, wipes the transcript, and
// forgets the cache-section state so the next request starts cold. The
// caller decides whether to follow up with the scheduler's post-clear
// welcome message.
func (o *Orchestrator) ClearConversation() error {
	// Drop queued sends before aborting: finishExchange would otherwise
	// start one while we wait for idle, and the clear would then consume
	// and wipe a message the user never saw answered.
	o.mu.Lock()
	o.queue = nil
	o.mu.Unlock()

	o.Abort()

	o.mu.Lock()
	defer o.mu.Unlock()
	for {
		o.queue = nil
		if o.state == StateIdle {
			break
		}
		o.cond.Wait()
	}

	if err := o.store.ClearMessages(); err != nil {
		return err
	}
	o.history = nil
	o.tracker.Reset()
	o.pub.conversationCleared()
	return nil
}

// Messages returns a snapshot of the transcript.
func (o *Orchestrator) Messages() []model.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	snapshot := make([]model.Message, len(o.history))
	copy(snapshot, o.history)
	return snapshot
}

// State returns the current exchange state.
func (o *Orchestrator) State() ExchangeState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Close aborts any exchange in flight, waits for it to resolve, and flushes
// pending listener updates.
func (o *Orchestrator) Close() {
	o.Abort()
	o.mu.Lock()
	for o.state != StateIdle {
		o.cond.Wait()
	}
	o.mu.Unlock()
	o.pub.close()
}

func (o *Orchestrator) startLocked(text string, origin Origin) {
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.timedOut = false
	o.seq++
	seq := o.seq
	o.setStateLocked(StateSending)
	o.timer = time.AfterFunc(o.watchdog, func() { o.watchdogFired(seq) })
	go o.runExchange(ctx, text, origin)
}

func (o *Orchestrator) watchdogFired(seq uint64) {
	o.mu.Lock()
	if o.seq != seq || o.state == StateIdle {
		o.mu.Unlock()
		return
	}
	o.timedOut = true
	o.logger.Warn("exchange watchdog expired", "after", o.watchdog)
	o.mu.Unlock()

	o.Abort()
}

func (o *Orchestrator) setStateLocked(state ExchangeState) {
	if o.state == state {
		return
	}
	o.state = state
	o.pub.stateChanged(state)
	if state == StateIdle {
		o.cond.Broadcast()
	}
}

func (o *Orchestrator) setState(state ExchangeState) {
	o.mu.Lock()
	o.setStateLocked(state)
	o.mu.Unlock()
}

// runExchange drives one exchange to resolution, looping through tool-use
// round trips until the model ends a turn with no further tool calls.
func (o *Orchestrator) runExchange(ctx context.Context, text string, origin Origin) {
	defer o.finishExchange()

	o.appendFinal(model.NewMessage(model.RoleUser, text))

	// Messages streamed during this exchange join the transcript but not
	// the builder history: the tool-use turns travel in the wire tail.
	baseHistory := o.Messages()
	var wireTail []anthropic.MessageParam
	retried := false

	for {
		o.setState(StateSending)

		sections, err := o.ctxsrc.Sections(ctx)
		if err != nil {
			if model.Canceled(err) {
				return
			}
			o.logger.Warn("context source failed, sending without digests", "error", err)
		}

		params := o.builder.Build(prompt.BuildInput{
			System:   o.system,
			Tools:    o.toolset,
			Context:  sections,
			History:  baseHistory,
			WireTail: wireTail,
		})

		dec := o.streamer.Stream(ctx, params)
		o.mu.Lock()
		o.decoder = dec
		o.mu.Unlock()
		o.setState(StateStreaming)

		asst, calls, svcErr := o.consume(dec)

		switch {
		case dec.State() == stream.StateCancelled:
			o.finalize(asst, interruptedNotice)
			return

		case svcErr != nil && svcErr.MidStream:
			// Partial text is preserved, never discarded.
			o.logger.Error("stream failed mid-response", "kind", svcErr.Kind, "detail", svcErr.Detail)
			o.finalize(asst, interruptedNotice)
			o.setState(StateFailed)
			return

		case svcErr != nil:
			if origin == OriginAuto && svcErr.Transport() && !retried {
				retried = true
				o.logger.Info("transport failure on automatic send, retrying once", "detail", svcErr.Detail)
				// The failed attempt may have opened a streaming message
				// (a tool-use block arrived before the drop). Finalize it
				// so the retry never leaves an unfinalized row behind.
				o.finalize(asst, interruptedNotice)
				continue
			}
			o.failExchange(asst, svcErr)
			return
		}

		if len(calls) == 0 {
			o.finalize(asst, "")
			return
		}

		o.finalize(asst, "")
		o.setState(StateDispatching)

		parentID := ""
		if asst != nil {
			parentID = asst.ID
		}
		results := o.dispatcher.Dispatch(ctx, parentID, calls, o.pub.operationUpdated)
		if ctx.Err() != nil {
			return
		}

		wireTail = append(wireTail, assistantTurn(asst, calls), toolResultTurn(results))
	}
}

// consume feeds decoder events into a growing assistant message. The message
// is created on the first content event, so a connection that fails before
// any bytes arrive leaves no empty transcript entry.
func (o *Orchestrator) consume(dec *stream.Decoder) (*model.Message, []model.ToolCall, *model.ServiceError) {
	var asst *model.Message
	var calls []model.ToolCall
	var svcErr *model.ServiceError

	ensure := func() {
		if asst != nil {
			return
		}
		msg := model.NewStreamingMessage()
		asst = &msg
		o.beginStreaming(*asst)
	}

	for dec.Next() {
		ev := dec.Event()
		switch ev.Kind {
		case model.EventTextDelta:
			ensure()
			asst.Content += ev.Text
			o.updateStreaming(*asst)

		case model.EventToolCallStart:
			ensure()

		case model.EventToolCallEnd:
			if ev.Call.Fallback {
				o.logger.Warn("tool call arguments unparsable, using fallback", "tool", ev.Call.Name, "raw", ev.Call.RawArguments)
			}
			calls = append(calls, ev.Call)

		case model.EventMessageEnd:
			o.metrics.Record(ev.Usage)
			if err := o.metrics.Save(o.store); err != nil {
				o.logger.Warn("failed to persist cache metrics", "error", err)
			}

		case model.EventStreamError:
			svcErr = ev.Err
		}
	}

	return asst, calls, svcErr
}

func (o *Orchestrator) finishExchange() {
	o.mu.Lock()
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	o.decoder = nil
	if o.timedOut {
		o.setStateLocked(StateFailed)
	}
	o.setStateLocked(StateIdle)

	if len(o.queue) > 0 {
		next := o.queue[0]
		o.queue = o.queue[1:]
		o.startLocked(next.text, next.origin)
	}
	o.mu.Unlock()
}

// failExchange surfaces a service error as a formatted assistant-style
// message and parks the exchange in Failed.
func (o *Orchestrator) failExchange(asst *model.Message, svcErr *model.ServiceError) {
	o.logger.Error("exchange failed", "kind", svcErr.Kind, "status", svcErr.Status, "detail", svcErr.Detail)
	o.finalize(asst, interruptedNotice)
	o.appendFinal(model.NewMessage(model.RoleAssistant, svcErr.UserMessage()))
	o.setState(StateFailed)
}

// appendFinal persists and publishes a finalized message.
func (o *Orchestrator) appendFinal(msg model.Message) {
	if err := o.store.AppendMessage(msg); err != nil {
		o.logger.Error("failed to persist message", "message_id", msg.ID, "error", err)
	}
	o.mu.Lock()
	o.history = append(o.history, msg)
	o.mu.Unlock()
	o.pub.messageUpdated(msg)
}

// beginStreaming persists the new in-flight assistant message and records
// the streaming checkpoint, so a crash mid-stream can be recovered.
func (o *Orchestrator) beginStreaming(msg model.Message) {
	if err := o.store.AppendMessage(msg); err != nil {
		o.logger.Error("failed to persist streaming message", "message_id", msg.ID, "error", err)
	}
	if err := o.store.SetStreamingCheckpoint(msg.ID); err != nil {
		o.logger.Error("failed to record streaming checkpoint", "error", err)
	}
	o.mu.Lock()
	o.history = append(o.history, msg)
	o.mu.Unlock()
	o.pub.messageUpdated(msg)
}

func (o *Orchestrator) updateStreaming(msg model.Message) {
	if err := o.store.UpdateMessage(msg.ID, msg.Content, false); err != nil {
		o.logger.Error("failed to persist streaming content", "message_id", msg.ID, "error", err)
	}
	o.replaceHistory(msg)
	o.pub.messageUpdated(msg)
}

// finalize marks the in-flight assistant message complete, with an optional
// appended notice, and clears the streaming checkpoint.
func (o *Orchestrator) finalize(asst *model.Message, notice string) {
	if asst == nil {
		return
	}
	asst.Content += notice
	asst.Complete = true
	if err := o.store.UpdateMessage(asst.ID, asst.Content, true); err != nil {
		o.logger.Error("failed to finalize message", "message_id", asst.ID, "error", err)
	}
	if err := o.store.ClearStreamingCheckpoint(); err != nil {
		o.logger.Error("failed to clear streaming checkpoint", "error", err)
	}
	o.replaceHistory(*asst)
	o.pub.messageUpdated(*asst)
}

func (o *Orchestrator) replaceHistory(msg model.Message) {
	o.mu.Lock()
	for i := len(o.history) - 1; i >= 0; i-- {
		if o.history[i].ID == msg.ID {
			o.history[i] = msg
			break
		}
	}
	o.mu.Unlock()
}

// assistantTurn rebuilds the streamed assistant turn as a wire message:
// its text followed by the tool-use blocks.
func assistantTurn(asst *model.Message, calls []model.ToolCall) anthropic.MessageParam {
	var blocks []anthropic.ContentBlockParamUnion
	if asst != nil && asst.Content != "" {
		blocks = append(blocks, anthropic.NewTextBlock(asst.Content))
	}
	for _, call := range calls {
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfToolUse: &anthropic.ToolUseBlockParam{
				ID:    call.ID,
				Name:  call.Name,
				Input: call.Arguments,
			},
		})
	}
	return anthropic.NewAssistantMessage(blocks...)
}

// toolResultTurn packs the gathered results into the user turn that answers
// the model's tool calls.
func toolResultTurn(results []model.ToolResult) anthropic.MessageParam {
	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, anthropic.ContentBlockParamUnion{
			OfToolResult: &anthropic.ToolResultBlockParam{
				ToolUseID: r.ToolCallID,
				IsError:   anthropic.Bool(r.IsError),
				Content: []anthropic.ToolResultBlockParamContentUnion{
					{OfText: &anthropic.TextBlockParam{Text: r.Content}},
				},
			},
		})
	}
	return anthropic.NewUserMessage(blocks...)
}
