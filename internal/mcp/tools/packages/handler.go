package packages

import (
	"context"

	"surface/internal/core/ports"
	"surface/internal/mcp/contracts"
)

func HandleList(ctx context.Context, svc ports.Inspector, in contracts.PackagesListInput, maxItems int) (contracts.PackagesListOutput, error) {
	size := in.PageSize
	if size <= 0 || (maxItems > 0 && size > maxItems) {
		size = maxItems
	}

	res, err := svc.ListPackages(ctx, ports.ListPackagesRequest{
		Filter:    in.Filter,
		PageToken: in.PageToken,
		PageSize:  size,
	})
	if err != nil {
		return contracts.PackagesListOutput{}, err
	}

	out := contracts.PackagesListOutput{
		Packages:      make([]contracts.PackageInfo, 0, len(res.Packages)),
		Total:         res.Total,
		NextPageToken: res.NextPageToken,
	}
	for _, pkg := range res.Packages {
		out.Packages = append(out.Packages, contracts.PackageInfo{ID: pkg.ID, Versions: pkg.Versions})
	}
	return out, nil
}
