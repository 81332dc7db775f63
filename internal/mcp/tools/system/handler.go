package system

import (
	"context"

	"surface/internal/core/ports"
	"surface/internal/mcp/contracts"
)

func HandleStatus(ctx context.Context, svc ports.Inspector) (contracts.SystemStatusOutput, error) {
	status := svc.Status(ctx)
	return contracts.SystemStatusOutput{
		CacheRoot:     status.CacheRoot,
		OpenModules:   status.OpenModules,
		HistoryActive: status.HistoryActive,
		HeapAllocMB:   status.HeapAllocMB,
		Version:       contracts.ContractVersion,
	}, nil
}
