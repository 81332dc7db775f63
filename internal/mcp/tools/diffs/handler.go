package diffs

import (
	"context"
	"time"

	"surface/internal/core/ports"
	"surface/internal/data/history"
	"surface/internal/mcp/contracts"
)

const defaultHistoryLimit = 20

func HandleCompare(ctx context.Context, svc ports.Inspector, in contracts.APICompareInput, maxItems int) (contracts.APICompareOutput, error) {
	res, err := svc.Compare(ctx, ports.CompareRequest{
		OldPath:    in.OldPath,
		NewPath:    in.NewPath,
		Package:    in.Package,
		OldVersion: in.OldVersion,
		NewVersion: in.NewVersion,
		Persist:    in.Persist,
	})
	if err != nil {
		return contracts.APICompareOutput{}, err
	}

	changes := res.Changes
	if maxItems > 0 && len(changes) > maxItems {
		changes = changes[:maxItems]
	}

	return contracts.APICompareOutput{
		OldModule: res.OldModule,
		NewModule: res.NewModule,
		Changes:   changes,
		Summary:   res.Summary,
		Degraded:  res.Degraded,
		Problems:  res.Problems,
		ReportID:  res.ReportID,
	}, nil
}

func HandleHistoryList(ctx context.Context, svc ports.Inspector, in contracts.HistoryListInput, maxItems int) (contracts.HistoryListOutput, error) {
	limit := in.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if maxItems > 0 && limit > maxItems {
		limit = maxItems
	}

	reports, err := svc.RecentReports(ctx, limit)
	if err != nil {
		return contracts.HistoryListOutput{}, err
	}

	out := contracts.HistoryListOutput{Reports: make([]contracts.ReportSummary, 0, len(reports))}
	for _, r := range reports {
		out.Reports = append(out.Reports, summarize(r))
	}
	return out, nil
}

func HandleHistoryGet(ctx context.Context, svc ports.Inspector, in contracts.HistoryGetInput) (contracts.HistoryGetOutput, error) {
	report, err := svc.Report(ctx, in.ID)
	if err != nil {
		return contracts.HistoryGetOutput{}, err
	}
	return contracts.HistoryGetOutput{
		Report:  summarize(report),
		Changes: report.Changes,
	}, nil
}

func summarize(r history.Report) contracts.ReportSummary {
	return contracts.ReportSummary{
		ID:        r.ID,
		CreatedAt: r.CreatedAt.UTC().Format(time.RFC3339),
		OldModule: r.OldModule,
		NewModule: r.NewModule,
		Summary:   r.Summary,
	}
}
