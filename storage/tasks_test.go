package storage

import (
	"context"
	"strings"
	"testing"

	"aide/tools"
)

func newTestTaskBook(t *testing.T) *TaskBook {
	t.Helper()
	book, err := NewTaskBook(newTestStore(t))
	if err != nil {
		t.Fatalf("failed to open task book: %v", err)
	}
	return book
}

func taskID(t *testing.T, digest string) string {
	t.Helper()
	open := strings.Index(digest, "[")
	closing := strings.Index(digest, "]")
	if open < 0 || closing <= open {
		t.Fatalf("no id in digest line %q", digest)
	}
	return digest[open+1 : closing]
}

func TestTaskBookAddAndList(t *testing.T) {
	book := newTestTaskBook(t)
	ctx := context.Background()

	if err := book.Add(ctx, tools.KindEvent, map[string]any{"title": "standup", "start": "2026-03-09T09:00:00Z"}); err != nil {
		t.Fatalf("add event: %v", err)
	}
	if err := book.Add(ctx, tools.KindReminder, map[string]any{"title": "water plants"}); err != nil {
		t.Fatalf("add reminder: %v", err)
	}

	events, err := book.List(ctx, tools.KindEvent)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if !strings.Contains(events, "standup") || !strings.Contains(events, "start: 2026-03-09T09:00:00Z") {
		t.Errorf("bad event digest: %q", events)
	}
	if strings.Contains(events, "water plants") {
		t.Error("kinds must not mix in the digest")
	}

	reminders, err := book.List(ctx, tools.KindReminder)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if !strings.Contains(reminders, "water plants") {
		t.Errorf("bad reminder digest: %q", reminders)
	}
}

func TestTaskBookUpdateMergesFields(t *testing.T) {
	book := newTestTaskBook(t)
	ctx := context.Background()

	if err := book.Add(ctx, tools.KindEvent, map[string]any{"title": "standup", "start": "09:00"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	digest, _ := book.List(ctx, tools.KindEvent)
	id := taskID(t, digest)

	if err := book.Update(ctx, tools.KindEvent, id, map[string]any{"location": "room 2"}); err != nil {
		t.Fatalf("update: %v", err)
	}

	digest, _ = book.List(ctx, tools.KindEvent)
	if !strings.Contains(digest, "standup") || !strings.Contains(digest, "location: room 2") {
		t.Errorf("update must merge, not replace: %q", digest)
	}

	if err := book.Update(ctx, tools.KindEvent, "missing", map[string]any{"title": "x"}); err == nil {
		t.Error("updating an unknown id must fail")
	}
	if err := book.Update(ctx, tools.KindReminder, id, map[string]any{"title": "x"}); err == nil {
		t.Error("updating across kinds must fail")
	}
}

func TestTaskBookDelete(t *testing.T) {
	book := newTestTaskBook(t)
	ctx := context.Background()

	if err := book.Add(ctx, tools.KindReminder, map[string]any{"title": "call mom"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	digest, _ := book.List(ctx, tools.KindReminder)
	id := taskID(t, digest)

	if err := book.Delete(ctx, tools.KindReminder, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if digest, _ := book.List(ctx, tools.KindReminder); digest != "" {
		t.Errorf("expected empty digest after delete, got %q", digest)
	}

	if err := book.Delete(ctx, tools.KindReminder, id); err == nil {
		t.Error("deleting an unknown id must fail")
	}
}
