// Package contracts defines the wire-level shapes of the single exposed
// tool: operation identifiers, per-operation inputs and outputs, and the
// structured error envelope.
package contracts

import (
	"surface/internal/engine/diff"
	"surface/internal/engine/model"
)

const (
	ToolNameSurface = "surface"
	ContractVersion = "v1"
)

type OperationID string

const (
	OperationPackagesList OperationID = "packages.list"
	OperationTypesList    OperationID = "types.list"
	OperationTypesGet     OperationID = "types.get"
	OperationAPICompare   OperationID = "api.compare"
	OperationHistoryList  OperationID = "history.list"
	OperationHistoryGet   OperationID = "history.get"
	OperationSystemStatus OperationID = "system.status"
)

// Operations lists every operation the tool dispatches, in schema order.
func Operations() []OperationID {
	return []OperationID{
		OperationPackagesList,
		OperationTypesList,
		OperationTypesGet,
		OperationAPICompare,
		OperationHistoryList,
		OperationHistoryGet,
		OperationSystemStatus,
	}
}

type OperationDescriptor struct {
	ID          OperationID    `json:"id"`
	Summary     string         `json:"summary,omitempty"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`
}

type PackagesListInput struct {
	Filter    string `json:"filter,omitempty"`
	PageToken string `json:"page_token,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
}

type PackageInfo struct {
	ID       string   `json:"id"`
	Versions []string `json:"versions"`
}

type PackagesListOutput struct {
	Packages      []PackageInfo `json:"packages"`
	Total         int           `json:"total"`
	NextPageToken string        `json:"next_page_token,omitempty"`
}

type TypesListInput struct {
	Path      string   `json:"path,omitempty"`
	Package   string   `json:"package,omitempty"`
	Version   string   `json:"version,omitempty"`
	Filter    string   `json:"filter,omitempty"`
	Kinds     []string `json:"kinds,omitempty"`
	PageToken string   `json:"page_token,omitempty"`
	PageSize  int      `json:"page_size,omitempty"`
}

type TypesListOutput struct {
	Module        string              `json:"module"`
	Path          string              `json:"path"`
	Types         []model.TypeSummary `json:"types"`
	Total         int                 `json:"total"`
	NextPageToken string              `json:"next_page_token,omitempty"`
}

type TypesGetInput struct {
	Path     string `json:"path,omitempty"`
	Package  string `json:"package,omitempty"`
	Version  string `json:"version,omitempty"`
	TypeName string `json:"type_name"`
}

type TypesGetOutput struct {
	Type *model.TypeModel `json:"type"`
}

type APICompareInput struct {
	OldPath    string `json:"old_path,omitempty"`
	NewPath    string `json:"new_path,omitempty"`
	Package    string `json:"package,omitempty"`
	OldVersion string `json:"old_version,omitempty"`
	NewVersion string `json:"new_version,omitempty"`
	Persist    bool   `json:"persist,omitempty"`
}

type APICompareOutput struct {
	OldModule string           `json:"old_module"`
	NewModule string           `json:"new_module"`
	Changes   []diff.ApiChange `json:"changes"`
	Summary   diff.Summary     `json:"summary"`
	Degraded  bool             `json:"degraded,omitempty"`
	Problems  []string         `json:"problems,omitempty"`
	ReportID  string           `json:"report_id,omitempty"`
}

type HistoryListInput struct {
	Limit int `json:"limit,omitempty"`
}

type ReportSummary struct {
	ID        string       `json:"id"`
	CreatedAt string       `json:"created_at"`
	OldModule string       `json:"old_module"`
	NewModule string       `json:"new_module"`
	Summary   diff.Summary `json:"summary"`
}

type HistoryListOutput struct {
	Reports []ReportSummary `json:"reports"`
}

type HistoryGetInput struct {
	ID string `json:"id"`
}

type HistoryGetOutput struct {
	Report  ReportSummary    `json:"report"`
	Changes []diff.ApiChange `json:"changes"`
}

type SystemStatusInput struct{}

type SystemStatusOutput struct {
	CacheRoot     string `json:"cache_root"`
	OpenModules   int    `json:"open_modules"`
	HistoryActive bool   `json:"history_active"`
	HeapAllocMB   uint64 `json:"heap_alloc_mb"`
	Version       string `json:"version"`
}

type ToolError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e ToolError) Error() string {
	return e.Message
}

const (
	ErrorInvalidArgument = "invalid_argument"
	ErrorNotFound        = "not_found"
	ErrorInternal        = "internal"
	ErrorUnavailable     = "unavailable"
	ErrorRateLimited     = "rate_limited"
)
