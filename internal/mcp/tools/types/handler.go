package types

import (
	"context"

	"surface/internal/core/ports"
	"surface/internal/mcp/contracts"
)

func HandleList(ctx context.Context, svc ports.Inspector, in contracts.TypesListInput, maxItems int) (contracts.TypesListOutput, error) {
	size := in.PageSize
	if size <= 0 || (maxItems > 0 && size > maxItems) {
		size = maxItems
	}

	res, err := svc.ListTypes(ctx, ports.ListTypesRequest{
		Path:      in.Path,
		Package:   in.Package,
		Version:   in.Version,
		Filter:    in.Filter,
		Kinds:     in.Kinds,
		PageToken: in.PageToken,
		PageSize:  size,
	})
	if err != nil {
		return contracts.TypesListOutput{}, err
	}

	return contracts.TypesListOutput{
		Module:        res.Module,
		Path:          res.Path,
		Types:         res.Types,
		Total:         res.Total,
		NextPageToken: res.NextPageToken,
	}, nil
}

func HandleGet(ctx context.Context, svc ports.Inspector, in contracts.TypesGetInput) (contracts.TypesGetOutput, error) {
	tm, err := svc.GetTypeDefinition(ctx, ports.GetTypeRequest{
		Path:     in.Path,
		Package:  in.Package,
		Version:  in.Version,
		TypeName: in.TypeName,
	})
	if err != nil {
		return contracts.TypesGetOutput{}, err
	}
	return contracts.TypesGetOutput{Type: tm}, nil
}
