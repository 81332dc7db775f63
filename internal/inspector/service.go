// Package inspector wires the metadata cache, the model builder and the
// diff engine into the operations the tool layer exposes.
package inspector

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	cerrors "surface/internal/core/errors"
	"surface/internal/core/ports"
	"surface/internal/data/history"
	"surface/internal/engine/diff"
	"surface/internal/engine/metadata"
	"surface/internal/engine/model"
	"surface/internal/engine/pkgdir"
	"surface/internal/engine/provider"
	"surface/internal/shared/observability"
	"surface/internal/shared/util"
)

const defaultPageSize = 100

// Service implements ports.Inspector.
type Service struct {
	layout  pkgdir.Layout
	cache   *metadata.Cache
	store   *history.Store // nil when history is disabled
	logger  *slog.Logger
	tracer  trace.Tracer
	matcher func(string) bool
}

func New(layout pkgdir.Layout, cache *metadata.Cache, reg *provider.Registry, store *history.Store, logger *slog.Logger) *Service {
	return &Service{
		layout:  layout,
		cache:   cache,
		store:   store,
		logger:  logger,
		tracer:  otel.Tracer("surface/inspector"),
		matcher: reg.CanOpen,
	}
}

var _ ports.Inspector = (*Service)(nil)

func (s *Service) ListPackages(ctx context.Context, req ports.ListPackagesRequest) (ports.ListPackagesResult, error) {
	_, span := s.tracer.Start(ctx, "inspector.ListPackages")
	defer span.End()

	matcher, err := compileFilter(req.Filter)
	if err != nil {
		return ports.ListPackagesResult{}, err
	}

	packages, err := s.layout.ListPackages()
	if err != nil {
		return ports.ListPackagesResult{}, err
	}

	filtered := make([]ports.PackageInfo, 0, len(packages))
	for _, pkg := range packages {
		if matcher != nil && !matcher.Match(pkg.ID) {
			continue
		}
		filtered = append(filtered, ports.PackageInfo{ID: pkg.ID, Versions: pkg.Versions})
	}

	result := ports.ListPackagesResult{Total: len(filtered)}
	page, next, err := paginate(len(filtered), req.PageToken, req.PageSize)
	if err != nil {
		return ports.ListPackagesResult{}, err
	}
	result.Packages = filtered[page.start:page.end]
	result.NextPageToken = next
	return result, nil
}

func (s *Service) ListTypes(ctx context.Context, req ports.ListTypesRequest) (ports.ListTypesResult, error) {
	ctx, span := s.tracer.Start(ctx, "inspector.ListTypes")
	defer span.End()

	path, err := s.resolveModulePath(req.Path, req.Package, req.Version)
	if err != nil {
		return ports.ListTypesResult{}, err
	}
	span.SetAttributes(attribute.String("module.path", path))

	filters, err := buildFilters(req.Filter, req.Kinds)
	if err != nil {
		return ports.ListTypesResult{}, err
	}

	handle, err := s.cache.Acquire(ctx, path)
	if err != nil {
		return ports.ListTypesResult{}, err
	}

	start := time.Now()
	types, err := model.ListTypes(handle, filters)
	observability.ExtractionDuration.WithLabelValues("list_types").Observe(time.Since(start).Seconds())
	if err != nil {
		return ports.ListTypesResult{}, err
	}

	result := ports.ListTypesResult{
		Module: handle.Name(),
		Path:   path,
		Total:  len(types),
	}
	page, next, err := paginate(len(types), req.PageToken, req.PageSize)
	if err != nil {
		return ports.ListTypesResult{}, err
	}
	result.Types = types[page.start:page.end]
	result.NextPageToken = next
	return result, nil
}

func (s *Service) GetTypeDefinition(ctx context.Context, req ports.GetTypeRequest) (*model.TypeModel, error) {
	ctx, span := s.tracer.Start(ctx, "inspector.GetTypeDefinition",
		trace.WithAttributes(attribute.String("type.name", req.TypeName)))
	defer span.End()

	if strings.TrimSpace(req.TypeName) == "" {
		return nil, cerrors.New(cerrors.CodeInvalidFilter, "type name must not be empty")
	}

	path, err := s.resolveModulePath(req.Path, req.Package, req.Version)
	if err != nil {
		return nil, err
	}

	handle, err := s.cache.Acquire(ctx, path)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	tm, err := model.GetTypeDefinition(handle, req.TypeName)
	observability.ExtractionDuration.WithLabelValues("get_type").Observe(time.Since(start).Seconds())
	return tm, err
}

func (s *Service) Compare(ctx context.Context, req ports.CompareRequest) (ports.CompareResult, error) {
	ctx, span := s.tracer.Start(ctx, "inspector.Compare")
	defer span.End()

	oldPath, newPath, err := s.resolveComparePaths(req)
	if err != nil {
		return ports.CompareResult{}, err
	}
	span.SetAttributes(
		attribute.String("compare.old_path", oldPath),
		attribute.String("compare.new_path", newPath),
	)

	oldHandle, err := s.cache.Acquire(ctx, oldPath)
	if err != nil {
		return ports.CompareResult{}, err
	}
	newHandle, err := s.cache.Acquire(ctx, newPath)
	if err != nil {
		return ports.CompareResult{}, err
	}

	start := time.Now()
	oldTypes, oldProblems := buildSurface(ctx, oldHandle)
	newTypes, newProblems := buildSurface(ctx, newHandle)

	result := ports.CompareResult{
		OldModule: oldHandle.Name(),
		NewModule: newHandle.Name(),
		OldPath:   oldPath,
		NewPath:   newPath,
		Problems:  append(oldProblems, newProblems...),
	}
	result.Degraded = len(result.Problems) > 0

	result.Changes = diff.Compare(oldTypes, newTypes)
	result.Summary = diff.Summarize(result.Changes)
	observability.CompareDuration.Observe(time.Since(start).Seconds())

	if req.Persist && s.store != nil {
		id, err := s.store.SaveReport(history.Report{
			OldModule: result.OldModule,
			NewModule: result.NewModule,
			OldPath:   oldPath,
			NewPath:   newPath,
			Summary:   result.Summary,
			Changes:   result.Changes,
		})
		if err != nil {
			s.logger.Warn("failed to persist comparison report", "error", err)
		} else {
			result.ReportID = id
		}
	}

	return result, nil
}

// buildSurface extracts every type it can. A type whose dependencies cannot
// be resolved is dropped from the surface and reported as a problem instead
// of failing the whole comparison.
func buildSurface(ctx context.Context, handle provider.ModuleHandle) (map[string]*model.TypeModel, []string) {
	types, err := handle.ExportedTypes()
	if err != nil {
		return map[string]*model.TypeModel{}, []string{fmt.Sprintf("%s: %v", handle.Name(), err)}
	}

	out := make(map[string]*model.TypeModel, len(types))
	var problems []string
	for _, th := range types {
		if ctx.Err() != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", handle.Name(), ctx.Err()))
			break
		}
		tm, err := model.BuildType(handle, th)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", th.FullName(), err))
			continue
		}
		out[tm.FullName] = tm
	}
	sort.Strings(problems)
	return out, problems
}

func (s *Service) RecentReports(ctx context.Context, limit int) ([]history.Report, error) {
	if s.store == nil {
		return nil, cerrors.New(cerrors.CodeNotSupported, "comparison history is disabled")
	}
	return s.store.ListReports(limit)
}

func (s *Service) Report(ctx context.Context, id string) (history.Report, error) {
	if s.store == nil {
		return history.Report{}, cerrors.New(cerrors.CodeNotSupported, "comparison history is disabled")
	}
	return s.store.GetReport(id)
}

func (s *Service) Status(ctx context.Context) ports.StatusResult {
	return ports.StatusResult{
		CacheRoot:     s.layout.Root,
		OpenModules:   s.cache.Len(),
		HistoryActive: s.store != nil,
		HeapAllocMB:   util.GetHeapAllocMB(),
	}
}

// Shutdown releases every cached module handle and the history store.
func (s *Service) Shutdown() {
	s.cache.Shutdown()
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn("failed to close history store", "error", err)
		}
	}
}

// resolveModulePath accepts either a direct file path or a package id plus
// optional version resolved through the cache layout.
func (s *Service) resolveModulePath(path, packageID, version string) (string, error) {
	if path != "" {
		return path, nil
	}
	if packageID == "" {
		return "", cerrors.New(cerrors.CodeInvalidFilter, "either a module path or a package id is required")
	}

	dir, ok := s.layout.Resolve(packageID, version)
	if !ok {
		err := cerrors.Newf(cerrors.CodeNotFound, "package %q version %q is not installed", packageID, version)
		return "", cerrors.AddContext(err, cerrors.CtxPackage, packageID)
	}
	if modPath, ok := s.layout.ModulePath(dir, "", packageID, s.matcher); ok {
		return modPath, nil
	}
	if mods := s.layout.BestModules(dir, s.matcher); len(mods) > 0 {
		return mods[0], nil
	}
	err := cerrors.Newf(cerrors.CodeNotFound, "package %q has no readable module file", packageID)
	return "", cerrors.AddContext(err, cerrors.CtxPackage, packageID)
}

func (s *Service) resolveComparePaths(req ports.CompareRequest) (string, string, error) {
	if req.OldPath != "" && req.NewPath != "" {
		return req.OldPath, req.NewPath, nil
	}
	if req.Package == "" || req.OldVersion == "" || req.NewVersion == "" {
		return "", "", cerrors.New(cerrors.CodeInvalidFilter,
			"compare needs either two module paths or a package id with two versions")
	}
	oldPath, err := s.resolveModulePath("", req.Package, req.OldVersion)
	if err != nil {
		return "", "", err
	}
	newPath, err := s.resolveModulePath("", req.Package, req.NewVersion)
	if err != nil {
		return "", "", err
	}
	return oldPath, newPath, nil
}

func compileFilter(pattern string) (glob.Glob, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		wrapped := cerrors.Wrap(err, cerrors.CodeInvalidFilter, "malformed name filter")
		return nil, cerrors.AddContext(wrapped, cerrors.CtxOperation, pattern)
	}
	return g, nil
}

func buildFilters(pattern string, kinds []string) (model.Filters, error) {
	var filters model.Filters

	g, err := compileFilter(pattern)
	if err != nil {
		return filters, err
	}
	filters.Name = g

	for _, raw := range kinds {
		kind, ok := model.ParseKind(raw)
		if !ok {
			return filters, cerrors.Newf(cerrors.CodeInvalidFilter, "unknown type kind %q", raw)
		}
		filters.Kinds = append(filters.Kinds, kind)
	}
	return filters, nil
}

type pageRange struct {
	start, end int
}

// paginate slices [0,total) by an opaque page token. Tokens encode the next
// offset; a malformed token is a caller error.
func paginate(total int, token string, size int) (pageRange, string, error) {
	if size <= 0 {
		size = defaultPageSize
	}

	offset := 0
	if token != "" {
		raw, err := base64.URLEncoding.DecodeString(token)
		if err != nil {
			return pageRange{}, "", cerrors.Wrap(err, cerrors.CodeInvalidFilter, "malformed page token")
		}
		offset, err = strconv.Atoi(string(raw))
		if err != nil || offset < 0 {
			return pageRange{}, "", cerrors.New(cerrors.CodeInvalidFilter, "malformed page token")
		}
	}
	if offset > total {
		offset = total
	}

	end := offset + size
	next := ""
	if end >= total {
		end = total
	} else {
		next = base64.URLEncoding.EncodeToString([]byte(strconv.Itoa(end)))
	}
	return pageRange{start: offset, end: end}, next, nil
}
