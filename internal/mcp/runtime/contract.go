package runtime

import (
	"fmt"

	"surface/internal/mcp/contracts"
	"surface/internal/mcp/openapi"
)

// VerifyContract cross-checks a published OpenAPI document against the
// operations compiled into this binary. Deployments that ship a contract
// file fail fast when the document drifts from the implementation.
func VerifyContract(path string, allowlist []string) ([]contracts.OperationDescriptor, error) {
	spec, err := openapi.LoadSpec(path)
	if err != nil {
		return nil, fmt.Errorf("load contract: %w", err)
	}

	ops, err := openapi.Convert(spec)
	if err != nil {
		return nil, fmt.Errorf("convert contract: %w", err)
	}
	ops = openapi.ApplyAllowlist(ops, allowlist)
	if len(ops) == 0 {
		return nil, fmt.Errorf("contract %s exposes no operations after filtering", path)
	}

	known := make(map[contracts.OperationID]bool, len(contracts.Operations()))
	for _, id := range contracts.Operations() {
		known[id] = true
	}
	for _, op := range ops {
		if !known[op.ID] {
			return nil, fmt.Errorf("contract operation %q is not implemented", op.ID)
		}
	}
	return ops, nil
}
