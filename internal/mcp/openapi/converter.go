// Package openapi reads the published tool contract, an OpenAPI document
// whose operationIds name surface operations ("packages.list",
// "api.compare"), and turns it into operation descriptors the runtime can
// cross-check against the compiled-in tool set.
package openapi

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"surface/internal/mcp/contracts"
)

// Convert extracts one descriptor per operation. Every operation must carry
// a unique, well-formed operationId; a contract that cannot name all of its
// operations is rejected as a whole.
func Convert(spec *openapi3.T) ([]contracts.OperationDescriptor, error) {
	if spec == nil || spec.Paths == nil {
		return nil, fmt.Errorf("contract document has no paths")
	}
	pathMap := spec.Paths.Map()
	if len(pathMap) == 0 {
		return nil, fmt.Errorf("contract document has no operations")
	}

	// walk paths in sorted order so error reporting is deterministic
	paths := make([]string, 0, len(pathMap))
	for path := range pathMap {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var descriptors []contracts.OperationDescriptor
	seen := make(map[contracts.OperationID]bool)
	for _, path := range paths {
		pathItem := pathMap[path]
		if pathItem == nil {
			continue
		}
		for method, operation := range pathItem.Operations() {
			if operation == nil {
				continue
			}
			desc, err := describeOperation(method, path, operation)
			if err != nil {
				return nil, err
			}
			if seen[desc.ID] {
				return nil, fmt.Errorf("duplicate operationId %q in contract", desc.ID)
			}
			seen[desc.ID] = true
			descriptors = append(descriptors, desc)
		}
	}

	if len(descriptors) == 0 {
		return nil, fmt.Errorf("contract document produced zero operation descriptors")
	}
	sortDescriptors(descriptors)
	return descriptors, nil
}

func describeOperation(method, path string, op *openapi3.Operation) (contracts.OperationDescriptor, error) {
	at := fmt.Sprintf("%s %s", strings.ToUpper(method), path)

	id := contracts.OperationID(strings.TrimSpace(op.OperationID))
	if id == "" {
		return contracts.OperationDescriptor{}, fmt.Errorf("operation %s is missing operationId", at)
	}
	if !isValidOperationID(id) {
		return contracts.OperationDescriptor{}, fmt.Errorf("operationId %q is invalid for %s", id, at)
	}

	inputSchema, err := requestSchema(op)
	if err != nil {
		return contracts.OperationDescriptor{}, fmt.Errorf("operation %s (%s): %w", id, at, err)
	}

	return contracts.OperationDescriptor{
		ID:          id,
		Summary:     strings.TrimSpace(op.Summary),
		Description: strings.TrimSpace(op.Description),
		InputSchema: inputSchema,
	}, nil
}

// requestSchema extracts the JSON request schema. Tool arguments are always
// a params object, so only object schemas (or $ref passthroughs) are valid;
// an operation without a request body accepts any object.
func requestSchema(op *openapi3.Operation) (map[string]any, error) {
	if op.RequestBody == nil {
		return map[string]any{"type": "object", "additionalProperties": true}, nil
	}
	if op.RequestBody.Value == nil {
		return nil, fmt.Errorf("requestBody is empty")
	}
	content := op.RequestBody.Value.Content.Get("application/json")
	if content == nil || content.Schema == nil {
		return nil, fmt.Errorf("requestBody must define application/json schema")
	}
	return schemaRefToMap(content.Schema)
}

func schemaRefToMap(ref *openapi3.SchemaRef) (map[string]any, error) {
	if ref == nil {
		return nil, fmt.Errorf("schema is nil")
	}
	if strings.TrimSpace(ref.Ref) != "" {
		return map[string]any{"$ref": ref.Ref}, nil
	}
	if ref.Value == nil {
		return nil, fmt.Errorf("schema value is nil")
	}

	// round-trip through JSON to get the plain map the tool definition wants
	data, err := json.Marshal(ref.Value)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}

	switch schemaType, _ := schemaMap["type"].(string); strings.TrimSpace(schemaType) {
	case "", "object":
		if _, ok := schemaMap["type"]; !ok {
			schemaMap["type"] = "object"
		}
	default:
		return nil, fmt.Errorf("unsupported schema type %q (only object schemas are supported)", schemaType)
	}
	return schemaMap, nil
}

// isValidOperationID accepts dot-separated snake_case segments, the shape
// every built-in operation identifier uses ("types.get", "history.list").
func isValidOperationID(id contracts.OperationID) bool {
	value := string(id)
	if value == "" {
		return false
	}
	partLen := 0
	for i := 0; i < len(value); i++ {
		ch := value[i]
		switch {
		case ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9':
			partLen++
		case ch == '_' && partLen > 0:
			partLen++
		case ch == '.' && partLen > 0:
			partLen = 0
		default:
			return false
		}
	}
	return partLen > 0
}

func sortDescriptors(ops []contracts.OperationDescriptor) {
	sort.Slice(ops, func(i, j int) bool {
		return ops[i].ID < ops[j].ID
	})
}
