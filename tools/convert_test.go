package tools

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

func TestToAnthropicParams(t *testing.T) {
	tests := []struct {
		name     string
		input    []mcptypes.Tool
		validate func(t *testing.T, result []anthropic.ToolUnionParam)
	}{
		{
			name:  "empty tools",
			input: []mcptypes.Tool{},
			validate: func(t *testing.T, result []anthropic.ToolUnionParam) {
				if result != nil {
					t.Errorf("expected nil, got %d tools", len(result))
				}
			},
		},
		{
			name: "name and description carry over",
			input: []mcptypes.Tool{
				mcptypes.NewTool("get_weather", mcptypes.WithDescription("Get current weather")),
			},
			validate: func(t *testing.T, result []anthropic.ToolUnionParam) {
				if len(result) != 1 || result[0].OfTool == nil {
					t.Fatalf("expected one plain tool, got %+v", result)
				}
				if result[0].OfTool.Name != "get_weather" {
					t.Errorf("expected name 'get_weather', got %q", result[0].OfTool.Name)
				}
				if result[0].OfTool.Description.Value != "Get current weather" {
					t.Errorf("description mismatch: %q", result[0].OfTool.Description.Value)
				}
			},
		},
		{
			name: "properties and required carry over",
			input: []mcptypes.Tool{
				mcptypes.NewTool("calculate",
					mcptypes.WithString("operation", mcptypes.Required(), mcptypes.Description("The operation")),
					mcptypes.WithNumber("a", mcptypes.Required()),
					mcptypes.WithNumber("b"),
				),
			},
			validate: func(t *testing.T, result []anthropic.ToolUnionParam) {
				schema := result[0].OfTool.InputSchema
				props, ok := schema.Properties.(map[string]any)
				if !ok {
					t.Fatalf("expected property map, got %T", schema.Properties)
				}
				if len(props) != 3 {
					t.Errorf("expected 3 properties, got %d", len(props))
				}
				if _, ok := props["operation"]; !ok {
					t.Error("operation property not found")
				}
				if len(schema.Required) != 2 {
					t.Errorf("expected 2 required fields, got %d", len(schema.Required))
				}
			},
		},
		{
			name:  "full tool set converts",
			input: Schemas(),
			validate: func(t *testing.T, result []anthropic.ToolUnionParam) {
				if len(result) != len(Schemas()) {
					t.Fatalf("expected %d tools, got %d", len(Schemas()), len(result))
				}
				for i, tool := range result {
					if tool.OfTool == nil {
						t.Errorf("tool %d: not a plain tool param", i)
					}
				}
				if last := result[len(result)-1]; last.OfTool.Name != ToolUpdateMemory {
					t.Errorf("schema order must be stable, last = %q", last.OfTool.Name)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.validate(t, ToAnthropicParams(tt.input))
		})
	}
}
