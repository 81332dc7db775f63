package openapi

import (
	"strings"

	"surface/internal/mcp/contracts"
)

// ApplyAllowlist narrows a contract to the operations a deployment exposes.
// Entries are matched against operation ids case-insensitively; an empty
// allowlist exposes the whole contract. The result is always a sorted copy.
func ApplyAllowlist(ops []contracts.OperationDescriptor, allowlist []string) []contracts.OperationDescriptor {
	if len(ops) == 0 {
		return nil
	}

	allowed := normalizeAllowlist(allowlist)
	filtered := make([]contracts.OperationDescriptor, 0, len(ops))
	for _, op := range ops {
		if allowed == nil || allowed[op.ID] {
			filtered = append(filtered, op)
		}
	}
	sortDescriptors(filtered)
	return filtered
}

// normalizeAllowlist returns nil when every operation is allowed.
func normalizeAllowlist(allowlist []string) map[contracts.OperationID]bool {
	var allowed map[contracts.OperationID]bool
	for _, raw := range allowlist {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		if allowed == nil {
			allowed = make(map[contracts.OperationID]bool, len(allowlist))
		}
		allowed[contracts.OperationID(id)] = true
	}
	return allowed
}
