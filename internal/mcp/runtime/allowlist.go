package runtime

import (
	"strings"

	"surface/internal/core/config"
	"surface/internal/mcp/contracts"
)

// OperationAllowlist restricts which operations a deployment dispatches.
type OperationAllowlist struct {
	allowAll bool
	allowed  map[contracts.OperationID]bool
}

func BuildOperationAllowlist(cfg *config.Config) OperationAllowlist {
	if cfg == nil || len(cfg.MCP.Operations) == 0 {
		return OperationAllowlist{allowAll: true}
	}

	known := make(map[contracts.OperationID]bool)
	for _, op := range contracts.Operations() {
		known[op] = true
	}

	allowed := make(map[contracts.OperationID]bool)
	for _, entry := range cfg.MCP.Operations {
		id := contracts.OperationID(strings.ToLower(strings.TrimSpace(entry)))
		if known[id] {
			allowed[id] = true
		}
	}
	return OperationAllowlist{allowed: allowed}
}

func (o OperationAllowlist) Allows(id contracts.OperationID) bool {
	if o.allowAll {
		return true
	}
	return o.allowed[id]
}
