package tools

import (
	"github.com/anthropics/anthropic-sdk-go"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

// ToAnthropicParams converts the tool schemas to the completion service's
// tool format. Both sides are JSON Schema; only the envelope differs.
func ToAnthropicParams(ts []mcptypes.Tool) []anthropic.ToolUnionParam {
	if len(ts) == 0 {
		return nil
	}

	result := make([]anthropic.ToolUnionParam, len(ts))

	for i, tool := range ts {
		inputSchema := anthropic.ToolInputSchemaParam{
			// Type defaults to "object" when omitted
			Properties: tool.InputSchema.Properties,
		}
		if len(tool.InputSchema.Required) > 0 {
			inputSchema.Required = tool.InputSchema.Required
		}

		result[i] = anthropic.ToolUnionParamOfTool(inputSchema, tool.Name)
		if tool.Description != "" {
			result[i].OfTool.Description = anthropic.String(tool.Description)
		}
	}

	return result
}
