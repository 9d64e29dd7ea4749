package engine

import (
	"context"
	"strings"

	"aide/model"
	"aide/storage"
	"aide/tools"
)

// LocalContext assembles context sections from the local backends: the
// memory document and the task book. Location is left empty here; mobile
// builds fill it from the platform location service.
type LocalContext struct {
	Memory *storage.MemoryFile
	Tasks  *storage.TaskBook
}

func (c *LocalContext) Sections(ctx context.Context) (model.ContextSections, error) {
	var sections model.ContextSections

	memory, err := c.Memory.ReadMemory(ctx)
	if err != nil {
		return sections, err
	}
	sections.Memory = memory

	events, err := c.Tasks.List(ctx, tools.KindEvent)
	if err != nil {
		return sections, err
	}
	reminders, err := c.Tasks.List(ctx, tools.KindReminder)
	if err != nil {
		return sections, err
	}

	var parts []string
	if events != "" {
		parts = append(parts, "Events:\n"+events)
	}
	if reminders != "" {
		parts = append(parts, "Reminders:\n"+reminders)
	}
	sections.Schedule = strings.Join(parts, "\n")

	return sections, nil
}
