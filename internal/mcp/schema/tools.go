// Package schema builds the tool definitions advertised over tools/list.
package schema

import "surface/internal/mcp/contracts"

type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
	Version     string         `json:"version"`
}

func BuildToolDefinitions() []ToolDefinition {
	ops := contracts.Operations()
	operations := make([]string, len(ops))
	for i, op := range ops {
		operations[i] = string(op)
	}

	return []ToolDefinition{
		{
			Name:        contracts.ToolNameSurface,
			Description: "Single entry tool for package API inspection: list installed packages, browse exported type surfaces, and diff the public API of two module versions.",
			Version:     contracts.ContractVersion,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"operation": map[string]any{
						"type":        "string",
						"description": "Operation identifier (e.g., types.list).",
						"enum":        operations,
					},
					"params": map[string]any{
						"type":                 "object",
						"additionalProperties": true,
					},
				},
				"required": []string{"operation"},
			},
		},
	}
}
