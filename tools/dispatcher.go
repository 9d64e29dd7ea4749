package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"aide/model"
)

// ItemKind distinguishes the two task-store item kinds.
type ItemKind string

const (
	KindEvent    ItemKind = "event"
	KindReminder ItemKind = "reminder"
)

// TaskStore is the on-device calendar/reminder capability.
type TaskStore interface {
	Add(ctx context.Context, kind ItemKind, fields map[string]any) error
	Update(ctx context.Context, kind ItemKind, id string, fields map[string]any) error
	Delete(ctx context.Context, kind ItemKind, id string) error
	List(ctx context.Context, kind ItemKind) (string, error)
}

// MemoryStore is the long-term memory capability.
type MemoryStore interface {
	ReadMemory(ctx context.Context) (string, error)
	ApplyDiff(ctx context.Context, diff string) (bool, error)
}

// StatusSink receives OperationStatus updates as they happen. Each operation
// produces one in-progress update and exactly one terminal update.
type StatusSink func(model.OperationStatus)

// Dispatcher turns decoded tool calls into collaborator invocations, tracks
// per-call status for the user, and assembles the tool-result turn for the
// model.
//
// Optimistic selects the model-facing half of the dual reporting: when set
// (the default for model-originated turns), a ToolResult always reports
// success even if the collaborator call failed, because the service degrades
// further reasoning after consecutive failed tool calls. The OperationStatus
// stream always records the real outcome either way.
type Dispatcher struct {
	tasks      TaskStore
	memory     MemoryStore
	schemas    map[string]mcptypes.Tool
	timeout    time.Duration
	logger     *slog.Logger
	Optimistic bool
}

func NewDispatcher(tasks TaskStore, memory MemoryStore, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		tasks:      tasks,
		memory:     memory,
		schemas:    SchemaIndex(),
		timeout:    timeout,
		logger:     logger,
		Optimistic: true,
	}
}

// Dispatch executes all calls of the current turn concurrently and returns
// one ToolResult per call, in call order. It returns only after every call
// has resolved; the orchestrator must not build the next request before
// then.
func (d *Dispatcher) Dispatch(ctx context.Context, parentMessageID string, calls []model.ToolCall, sink StatusSink) []model.ToolResult {
	results := make([]model.ToolResult, len(calls))

	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call model.ToolCall) {
			defer wg.Done()
			results[i] = d.dispatchOne(ctx, parentMessageID, call, sink)
		}(i, call)
	}
	wg.Wait()

	return results
}

// batchItemTools maps each batch tool to the single-item tool its items
// expand into.
var batchItemTools = map[string]string{
	ToolAddEvents:       ToolAddEvent,
	ToolUpdateEvents:    ToolUpdateEvent,
	ToolDeleteEvents:    ToolDeleteEvent,
	ToolAddReminders:    ToolAddReminder,
	ToolUpdateReminders: ToolUpdateReminder,
	ToolDeleteReminders: ToolDeleteReminder,
}

func (d *Dispatcher) dispatchOne(ctx context.Context, parentMessageID string, call model.ToolCall, sink StatusSink) model.ToolResult {
	if itemTool, ok := batchItemTools[call.Name]; ok {
		return d.dispatchBatch(ctx, parentMessageID, itemTool, call, sink)
	}

	err := d.runOperation(ctx, parentMessageID, call.Name, call.Arguments, sink)
	return d.result(call, err)
}

// dispatchBatch expands a batch call into independent operations, one
// OperationStatus each, run concurrently. Partial failure of one item never
// blocks the others; the single ToolResult for the call aggregates the
// per-item outcomes.
func (d *Dispatcher) dispatchBatch(ctx context.Context, parentMessageID, itemTool string, call model.ToolCall, sink StatusSink) model.ToolResult {
	items, _ := call.Arguments["items"].([]any)
	if len(items) == 0 {
		return d.result(call, fmt.Errorf("%s: no items given", call.Name))
	}

	errs := make([]error, len(items))
	var wg sync.WaitGroup
	for i, raw := range items {
		wg.Add(1)
		go func(i int, raw any) {
			defer wg.Done()
			fields, ok := raw.(map[string]any)
			if !ok {
				fields = map[string]any{}
			}
			errs[i] = d.runOperation(ctx, parentMessageID, itemTool, fields, sink)
		}(i, raw)
	}
	wg.Wait()

	var failed []string
	for i, err := range errs {
		if err != nil {
			failed = append(failed, fmt.Sprintf("item %d: %v", i+1, err))
		}
	}
	if len(failed) > 0 {
		return d.result(call, fmt.Errorf("%d of %d items failed: %s", len(failed), len(items), strings.Join(failed, "; ")))
	}
	return d.result(call, nil)
}

// runOperation owns one OperationStatus lifecycle: publish in-progress,
// validate, invoke the collaborator under the bounded timeout, publish the
// terminal state.
func (d *Dispatcher) runOperation(ctx context.Context, parentMessageID, name string, args map[string]any, sink StatusSink) error {
	status := model.NewOperationStatus(parentMessageID, name)
	if sink != nil {
		sink(status)
	}

	var err error
	if missing := ValidateArgs(d.schemas, name, args); len(missing) > 0 {
		err = fmt.Errorf("%s: missing required fields: %s", name, strings.Join(missing, ", "))
	} else {
		opCtx, cancel := context.WithTimeout(ctx, d.timeout)
		err = d.execute(opCtx, name, args)
		cancel()
	}

	if err != nil {
		d.logger.Warn("tool operation failed", "tool", name, "error", err)
	} else {
		d.logger.Debug("tool operation completed", "tool", name)
	}
	if sink != nil {
		sink(status.Resolve(err))
	}
	return err
}

func (d *Dispatcher) execute(ctx context.Context, name string, args map[string]any) error {
	switch name {
	case ToolAddEvent:
		return d.tasks.Add(ctx, KindEvent, args)
	case ToolUpdateEvent:
		return d.tasks.Update(ctx, KindEvent, strArg(args, "id"), fieldsWithoutID(args))
	case ToolDeleteEvent:
		return d.tasks.Delete(ctx, KindEvent, strArg(args, "id"))
	case ToolAddReminder:
		return d.tasks.Add(ctx, KindReminder, args)
	case ToolUpdateReminder:
		return d.tasks.Update(ctx, KindReminder, strArg(args, "id"), fieldsWithoutID(args))
	case ToolDeleteReminder:
		return d.tasks.Delete(ctx, KindReminder, strArg(args, "id"))
	case ToolUpdateMemory:
		applied, err := d.memory.ApplyDiff(ctx, strArg(args, "diff"))
		if err != nil {
			return err
		}
		if !applied {
			return fmt.Errorf("memory store rejected the diff")
		}
		return nil
	default:
		return fmt.Errorf("unknown tool: %s", name)
	}
}

// result builds the model-facing ToolResult, applying the optimistic
// masking described on Dispatcher.
func (d *Dispatcher) result(call model.ToolCall, err error) model.ToolResult {
	if err == nil || d.Optimistic {
		return model.ToolResult{ToolCallID: call.ID, Content: call.Name + " completed"}
	}
	return model.ToolResult{
		ToolCallID: call.ID,
		Content:    fmt.Sprintf("%s failed: %v", call.Name, err),
		IsError:    true,
	}
}

func strArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func fieldsWithoutID(args map[string]any) map[string]any {
	fields := make(map[string]any, len(args))
	for k, v := range args {
		if k == "id" {
			continue
		}
		fields[k] = v
	}
	return fields
}
