// Package validate parses and bounds-checks raw tool arguments before they
// reach an operation handler.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"surface/internal/mcp/contracts"
)

const (
	maxFilterLength = 200
	maxPageSize     = 1000
	maxKindCount    = 8
	maxLimitValue   = 500
)

// ParseToolArgs decodes the operation envelope and returns the typed input
// for the named operation.
func ParseToolArgs(tool string, raw map[string]any) (contracts.OperationID, any, error) {
	if strings.TrimSpace(tool) == "" {
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "tool name is required"}
	}
	if tool != contracts.ToolNameSurface {
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported tool: %s", tool)}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	operationRaw, ok := raw["operation"].(string)
	if !ok || strings.TrimSpace(operationRaw) == "" {
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "operation is required"}
	}
	operation := contracts.OperationID(strings.TrimSpace(operationRaw))

	params := map[string]any{}
	if rawParams, ok := raw["params"]; ok && rawParams != nil {
		typed, ok := rawParams.(map[string]any)
		if !ok {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "params must be an object"}
		}
		params = typed
	}

	switch operation {
	case contracts.OperationPackagesList:
		var input contracts.PackagesListInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.Filter = strings.TrimSpace(input.Filter)
		if len(input.Filter) > maxFilterLength {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "filter is too long"}
		}
		if input.PageSize < 0 || input.PageSize > maxPageSize {
			return "", nil, outOfRangeError("page_size")
		}
		return operation, input, nil
	case contracts.OperationTypesList:
		var input contracts.TypesListInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.Path = strings.TrimSpace(input.Path)
		input.Package = strings.TrimSpace(input.Package)
		input.Filter = strings.TrimSpace(input.Filter)
		if input.Path == "" && input.Package == "" {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "path or package is required"}
		}
		if len(input.Filter) > maxFilterLength {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "filter is too long"}
		}
		if len(input.Kinds) > maxKindCount {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "too many kind filters"}
		}
		if input.PageSize < 0 || input.PageSize > maxPageSize {
			return "", nil, outOfRangeError("page_size")
		}
		return operation, input, nil
	case contracts.OperationTypesGet:
		var input contracts.TypesGetInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.Path = strings.TrimSpace(input.Path)
		input.Package = strings.TrimSpace(input.Package)
		input.TypeName = strings.TrimSpace(input.TypeName)
		if input.TypeName == "" {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "type_name is required"}
		}
		if input.Path == "" && input.Package == "" {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "path or package is required"}
		}
		return operation, input, nil
	case contracts.OperationAPICompare:
		var input contracts.APICompareInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.OldPath = strings.TrimSpace(input.OldPath)
		input.NewPath = strings.TrimSpace(input.NewPath)
		input.Package = strings.TrimSpace(input.Package)
		byPath := input.OldPath != "" && input.NewPath != ""
		byVersion := input.Package != "" && input.OldVersion != "" && input.NewVersion != ""
		if !byPath && !byVersion {
			return "", nil, contracts.ToolError{
				Code:    contracts.ErrorInvalidArgument,
				Message: "either old_path and new_path, or package with old_version and new_version, are required",
			}
		}
		return operation, input, nil
	case contracts.OperationHistoryList:
		var input contracts.HistoryListInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		if input.Limit < 0 || input.Limit > maxLimitValue {
			return "", nil, outOfRangeError("limit")
		}
		return operation, input, nil
	case contracts.OperationHistoryGet:
		var input contracts.HistoryGetInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.ID = strings.TrimSpace(input.ID)
		if input.ID == "" {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "id is required"}
		}
		return operation, input, nil
	case contracts.OperationSystemStatus:
		var input contracts.SystemStatusInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	default:
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported operation: %s", operation)}
	}
}

func decodeParams(params map[string]any, out any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "invalid params encoding"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "invalid params", Details: map[string]any{"error": err.Error()}}
	}
	return nil
}

func outOfRangeError(field string) error {
	return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("%s is out of range", field)}
}
