// Package tools declares the capability schemas the model may invoke and
// dispatches decoded tool calls against the device's task and memory stores.
package tools

import (
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// Tool names. The add/update/delete triples exist for both item kinds, each
// with a batch variant, plus the memory diff tool.
const (
	ToolAddEvent        = "add_event"
	ToolUpdateEvent     = "update_event"
	ToolDeleteEvent     = "delete_event"
	ToolAddEvents       = "add_events"
	ToolUpdateEvents    = "update_events"
	ToolDeleteEvents    = "delete_events"
	ToolAddReminder     = "add_reminder"
	ToolUpdateReminder  = "update_reminder"
	ToolDeleteReminder  = "delete_reminder"
	ToolAddReminders    = "add_reminders"
	ToolUpdateReminders = "update_reminders"
	ToolDeleteReminders = "delete_reminders"
	ToolUpdateMemory    = "update_memory"
)

// Schemas returns the full tool set offered to the model. The order is
// stable; the request builder attaches its cache marker to the last entry.
func Schemas() []mcptypes.Tool {
	eventFields := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":    map[string]any{"type": "string", "description": "Event title"},
			"start":    map[string]any{"type": "string", "description": "Start time, RFC 3339"},
			"end":      map[string]any{"type": "string", "description": "End time, RFC 3339"},
			"location": map[string]any{"type": "string", "description": "Where the event takes place"},
			"notes":    map[string]any{"type": "string", "description": "Free-form notes"},
		},
		"required": []string{"title", "start"},
	}
	eventUpdateFields := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":       map[string]any{"type": "string", "description": "Event ID"},
			"title":    map[string]any{"type": "string", "description": "New title"},
			"start":    map[string]any{"type": "string", "description": "New start time, RFC 3339"},
			"end":      map[string]any{"type": "string", "description": "New end time, RFC 3339"},
			"location": map[string]any{"type": "string", "description": "New location"},
			"notes":    map[string]any{"type": "string", "description": "New notes"},
		},
		"required": []string{"id"},
	}
	reminderFields := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title": map[string]any{"type": "string", "description": "Reminder title"},
			"due":   map[string]any{"type": "string", "description": "Due time, RFC 3339"},
			"notes": map[string]any{"type": "string", "description": "Free-form notes"},
		},
		"required": []string{"title"},
	}
	reminderUpdateFields := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":    map[string]any{"type": "string", "description": "Reminder ID"},
			"title": map[string]any{"type": "string", "description": "New title"},
			"due":   map[string]any{"type": "string", "description": "New due time, RFC 3339"},
			"notes": map[string]any{"type": "string", "description": "New notes"},
		},
		"required": []string{"id"},
	}
	idOnlyFields := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id": map[string]any{"type": "string", "description": "Item ID"},
		},
		"required": []string{"id"},
	}

	return []mcptypes.Tool{
		mcptypes.NewTool(ToolAddEvent,
			mcptypes.WithDescription("Add a calendar event to the user's schedule"),
			mcptypes.WithString("title", mcptypes.Required(), mcptypes.Description("Event title")),
			mcptypes.WithString("start", mcptypes.Required(), mcptypes.Description("Start time, RFC 3339")),
			mcptypes.WithString("end", mcptypes.Description("End time, RFC 3339")),
			mcptypes.WithString("location", mcptypes.Description("Where the event takes place")),
			mcptypes.WithString("notes", mcptypes.Description("Free-form notes")),
		),
		mcptypes.NewTool(ToolUpdateEvent,
			mcptypes.WithDescription("Update fields of an existing calendar event"),
			mcptypes.WithString("id", mcptypes.Required(), mcptypes.Description("Event ID")),
			mcptypes.WithString("title", mcptypes.Description("New title")),
			mcptypes.WithString("start", mcptypes.Description("New start time, RFC 3339")),
			mcptypes.WithString("end", mcptypes.Description("New end time, RFC 3339")),
			mcptypes.WithString("location", mcptypes.Description("New location")),
			mcptypes.WithString("notes", mcptypes.Description("New notes")),
		),
		mcptypes.NewTool(ToolDeleteEvent,
			mcptypes.WithDescription("Delete a calendar event"),
			mcptypes.WithString("id", mcptypes.Required(), mcptypes.Description("Event ID")),
		),
		mcptypes.NewTool(ToolAddEvents,
			mcptypes.WithDescription("Add several calendar events at once"),
			mcptypes.WithArray("items", mcptypes.Required(),
				mcptypes.Description("Events to add"),
				mcptypes.Items(eventFields),
			),
		),
		mcptypes.NewTool(ToolUpdateEvents,
			mcptypes.WithDescription("Update several calendar events at once"),
			mcptypes.WithArray("items", mcptypes.Required(),
				mcptypes.Description("Updates to apply, each carrying the event ID"),
				mcptypes.Items(eventUpdateFields),
			),
		),
		mcptypes.NewTool(ToolDeleteEvents,
			mcptypes.WithDescription("Delete several calendar events at once"),
			mcptypes.WithArray("items", mcptypes.Required(),
				mcptypes.Description("Events to delete, by ID"),
				mcptypes.Items(idOnlyFields),
			),
		),
		mcptypes.NewTool(ToolAddReminder,
			mcptypes.WithDescription("Add a reminder for the user"),
			mcptypes.WithString("title", mcptypes.Required(), mcptypes.Description("Reminder title")),
			mcptypes.WithString("due", mcptypes.Description("Due time, RFC 3339")),
			mcptypes.WithString("notes", mcptypes.Description("Free-form notes")),
		),
		mcptypes.NewTool(ToolUpdateReminder,
			mcptypes.WithDescription("Update fields of an existing reminder"),
			mcptypes.WithString("id", mcptypes.Required(), mcptypes.Description("Reminder ID")),
			mcptypes.WithString("title", mcptypes.Description("New title")),
			mcptypes.WithString("due", mcptypes.Description("New due time, RFC 3339")),
			mcptypes.WithString("notes", mcptypes.Description("New notes")),
		),
		mcptypes.NewTool(ToolDeleteReminder,
			mcptypes.WithDescription("Delete a reminder"),
			mcptypes.WithString("id", mcptypes.Required(), mcptypes.Description("Reminder ID")),
		),
		mcptypes.NewTool(ToolAddReminders,
			mcptypes.WithDescription("Add several reminders at once"),
			mcptypes.WithArray("items", mcptypes.Required(),
				mcptypes.Description("Reminders to add"),
				mcptypes.Items(reminderFields),
			),
		),
		mcptypes.NewTool(ToolUpdateReminders,
			mcptypes.WithDescription("Update several reminders at once"),
			mcptypes.WithArray("items", mcptypes.Required(),
				mcptypes.Description("Updates to apply, each carrying the reminder ID"),
				mcptypes.Items(reminderUpdateFields),
			),
		),
		mcptypes.NewTool(ToolDeleteReminders,
			mcptypes.WithDescription("Delete several reminders at once"),
			mcptypes.WithArray("items", mcptypes.Required(),
				mcptypes.Description("Reminders to delete, by ID"),
				mcptypes.Items(idOnlyFields),
			),
		),
		mcptypes.NewTool(ToolUpdateMemory,
			mcptypes.WithDescription("Apply a diff to the long-term memory about the user"),
			mcptypes.WithString("diff", mcptypes.Required(),
				mcptypes.Description("Line diff against the current memory text: '+ fact' adds a line, '- fact' removes the matching line")),
		),
	}
}

// SchemaIndex returns the tool set keyed by name, for validation and
// fallback-argument synthesis.
func SchemaIndex() map[string]mcptypes.Tool {
	schemas := Schemas()
	index := make(map[string]mcptypes.Tool, len(schemas))
	for _, t := range schemas {
		index[t.Name] = t
	}
	return index
}
