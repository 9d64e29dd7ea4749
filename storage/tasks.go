package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"aide/tools"
)

// TaskBook is the local calendar/reminder backend, sharing the conversation
// database. On mobile builds this role is played by the platform calendar;
// here the items live in a tasks table so tool calls have a real effect.
type TaskBook struct {
	db *sql.DB
}

func NewTaskBook(store *Store) (*TaskBook, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		fields TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);`
	if _, err := store.db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create tasks table: %w", err)
	}
	return &TaskBook{db: store.db}, nil
}

func (b *TaskBook) Add(ctx context.Context, kind tools.ItemKind, fields map[string]any) error {
	blob, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode %s fields: %w", kind, err)
	}
	_, err = b.db.ExecContext(ctx,
		"INSERT INTO tasks (id, kind, fields, created_at) VALUES (?, ?, ?, ?)",
		uuid.New().String(), string(kind), string(blob), time.Now())
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", kind, err)
	}
	return nil
}

// Update merges the given fields into the stored ones.
func (b *TaskBook) Update(ctx context.Context, kind tools.ItemKind, id string, fields map[string]any) error {
	var blob string
	err := b.db.QueryRowContext(ctx,
		"SELECT fields FROM tasks WHERE id = ? AND kind = ?", id, string(kind)).Scan(&blob)
	if err == sql.ErrNoRows {
		return fmt.Errorf("no %s with id %q", kind, id)
	}
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", kind, err)
	}

	current := map[string]any{}
	if err := json.Unmarshal([]byte(blob), &current); err != nil {
		return fmt.Errorf("failed to decode stored %s fields: %w", kind, err)
	}
	for k, v := range fields {
		current[k] = v
	}
	merged, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to encode %s fields: %w", kind, err)
	}

	_, err = b.db.ExecContext(ctx,
		"UPDATE tasks SET fields = ? WHERE id = ? AND kind = ?", string(merged), id, string(kind))
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", kind, err)
	}
	return nil
}

func (b *TaskBook) Delete(ctx context.Context, kind tools.ItemKind, id string) error {
	res, err := b.db.ExecContext(ctx,
		"DELETE FROM tasks WHERE id = ? AND kind = ?", id, string(kind))
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", kind, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("no %s with id %q", kind, id)
	}
	return nil
}

// List renders the stored items of one kind as a plain-text digest, one line
// per item, suitable for the schedule context section.
func (b *TaskBook) List(ctx context.Context, kind tools.ItemKind) (string, error) {
	rows, err := b.db.QueryContext(ctx,
		"SELECT id, fields FROM tasks WHERE kind = ? ORDER BY created_at", string(kind))
	if err != nil {
		return "", fmt.Errorf("failed to list %ss: %w", kind, err)
	}
	defer rows.Close()

	var lines []string
	for rows.Next() {
		var id, blob string
		if err := rows.Scan(&id, &blob); err != nil {
			return "", fmt.Errorf("failed to scan %s row: %w", kind, err)
		}
		fields := map[string]any{}
		if err := json.Unmarshal([]byte(blob), &fields); err != nil {
			continue
		}
		lines = append(lines, formatTaskLine(id, fields))
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to list %ss: %w", kind, err)
	}
	return strings.Join(lines, "\n"), nil
}

func formatTaskLine(id string, fields map[string]any) string {
	title, _ := fields["title"].(string)
	if title == "" {
		title = "(untitled)"
	}
	line := fmt.Sprintf("- [%s] %s", id, title)

	var extras []string
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if k == "title" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		extras = append(extras, fmt.Sprintf("%s: %v", k, fields[k]))
	}
	if len(extras) > 0 {
		line += " (" + strings.Join(extras, ", ") + ")"
	}
	return line
}
