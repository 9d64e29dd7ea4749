package tools

import (
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// FallbackArgs synthesizes a minimal valid argument payload for a tool whose
// streamed argument JSON could not be parsed. Every schema-required field is
// filled with the zero value of its declared type, so a single malformed
// tool call still dispatches instead of aborting the exchange.
func FallbackArgs(schemas map[string]mcptypes.Tool, name string) map[string]any {
	args := make(map[string]any)

	tool, ok := schemas[name]
	if !ok {
		return args
	}

	for _, field := range tool.InputSchema.Required {
		prop, _ := tool.InputSchema.Properties[field].(map[string]any)
		args[field] = zeroForType(prop)
	}
	return args
}

// ValidateArgs checks that every schema-required field is present. Values
// are not type-checked beyond presence; the collaborator is the authority on
// field semantics.
func ValidateArgs(schemas map[string]mcptypes.Tool, name string, args map[string]any) []string {
	tool, ok := schemas[name]
	if !ok {
		return nil
	}

	var missing []string
	for _, field := range tool.InputSchema.Required {
		if _, present := args[field]; !present {
			missing = append(missing, field)
		}
	}
	return missing
}

func zeroForType(prop map[string]any) any {
	t, _ := prop["type"].(string)
	switch t {
	case "number", "integer":
		return 0
	case "boolean":
		return false
	case "array":
		return []any{}
	case "object":
		return map[string]any{}
	default:
		return ""
	}
}
