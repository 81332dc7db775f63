package ports

import (
	"context"

	"surface/internal/data/history"
	"surface/internal/engine/diff"
	"surface/internal/engine/model"
)

// Inspector is the driving port the tool layer calls. All methods are safe
// for concurrent use.
type Inspector interface {
	ListPackages(ctx context.Context, req ListPackagesRequest) (ListPackagesResult, error)
	ListTypes(ctx context.Context, req ListTypesRequest) (ListTypesResult, error)
	GetTypeDefinition(ctx context.Context, req GetTypeRequest) (*model.TypeModel, error)
	Compare(ctx context.Context, req CompareRequest) (CompareResult, error)
	RecentReports(ctx context.Context, limit int) ([]history.Report, error)
	Report(ctx context.Context, id string) (history.Report, error)
	Status(ctx context.Context) StatusResult
}

// ListPackagesRequest filters the package cache listing. Filter is a
// wildcard pattern over package ids; empty matches everything.
type ListPackagesRequest struct {
	Filter    string
	PageToken string
	PageSize  int
}

type PackageInfo struct {
	ID       string   `json:"id"`
	Versions []string `json:"versions"`
}

type ListPackagesResult struct {
	Packages      []PackageInfo `json:"packages"`
	Total         int           `json:"total"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

// ListTypesRequest enumerates the exported types of one module. Module is a
// file path, or a package id resolved through the cache layout when Package
// is set.
type ListTypesRequest struct {
	Path      string
	Package   string
	Version   string
	Filter    string
	Kinds     []string
	PageToken string
	PageSize  int
}

type ListTypesResult struct {
	Module        string              `json:"module"`
	Path          string              `json:"path"`
	Types         []model.TypeSummary `json:"types"`
	Total         int                 `json:"total"`
	NextPageToken string              `json:"next_page_token,omitempty"`
}

type GetTypeRequest struct {
	Path     string
	Package  string
	Version  string
	TypeName string
}

// CompareRequest diffs the API surface of two module versions. Paths may be
// given directly or resolved from a package id plus two versions.
type CompareRequest struct {
	OldPath    string
	NewPath    string
	Package    string
	OldVersion string
	NewVersion string
	Persist    bool
}

// CompareResult carries the change list. Degraded is set when part of one
// surface could not be extracted; the changes for the types that did load
// are still reported.
type CompareResult struct {
	OldModule string           `json:"old_module"`
	NewModule string           `json:"new_module"`
	OldPath   string           `json:"old_path"`
	NewPath   string           `json:"new_path"`
	Changes   []diff.ApiChange `json:"changes"`
	Summary   diff.Summary     `json:"summary"`
	Degraded  bool             `json:"degraded,omitempty"`
	Problems  []string         `json:"problems,omitempty"`
	ReportID  string           `json:"report_id,omitempty"`
}

type StatusResult struct {
	CacheRoot     string `json:"cache_root"`
	OpenModules   int    `json:"open_modules"`
	HistoryActive bool   `json:"history_active"`
	HeapAllocMB   uint64 `json:"heap_alloc_mb"`
}
