package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"surface/internal/core/config"
	"surface/internal/core/ports"
	"surface/internal/core/watcher"
	"surface/internal/data/history"
	"surface/internal/engine/diff"
	"surface/internal/engine/metadata"
	apimodel "surface/internal/engine/model"
	"surface/internal/engine/pkgdir"
	"surface/internal/engine/provider"
	"surface/internal/engine/provider/descriptor"
	"surface/internal/engine/provider/source"
	"surface/internal/inspector"
	"surface/internal/shared/observability"
)

type App struct {
	Config  *config.Config
	Service *inspector.Service

	index       *metadata.Index
	cache       *metadata.Cache
	watcher     *watcher.Watcher
	onRefresh   func()
	stopTracing func(context.Context) error
}

func NewApp(cfg *config.Config) (*App, error) {
	logger := slog.Default()

	var providers []provider.MetadataProvider
	if cfg.Providers.Descriptors {
		providers = append(providers, descriptor.New())
	}
	if cfg.Providers.Sources {
		providers = append(providers, source.New())
	}
	reg := provider.NewRegistry(providers...)

	layout := pkgdir.Layout{
		Root:              cfg.Cache.Root,
		FrameworkPriority: cfg.Cache.FrameworkPriority,
	}
	index := metadata.NewIndex(layout, reg.CanOpen, logger)
	searchSets := metadata.NewSearchSet(index, cfg.Cache.RuntimePaths, reg.CanOpen)
	cache := metadata.NewCache(reg, searchSets, cfg.Cache.MaxOpenModules, logger)

	var store *history.Store
	if cfg.DB.Enabled {
		s, err := history.Open(cfg.DB.Path)
		if err != nil {
			cache.Shutdown()
			return nil, fmt.Errorf("open history store: %w", err)
		}
		store = s
	}

	app := &App{
		Config:  cfg,
		Service: inspector.New(layout, cache, reg, store, logger),
		index:   index,
		cache:   cache,
	}

	if cfg.Telemetry.Enabled {
		stop, err := observability.InitTracing(context.Background(), cfg.Telemetry.Endpoint)
		if err != nil {
			logger.Warn("tracing disabled", "error", err, "endpoint", cfg.Telemetry.Endpoint)
		} else {
			app.stopTracing = stop
		}
	}

	return app, nil
}

func (a *App) StartWatcher() error {
	if !a.Config.Watch.Enabled {
		return nil
	}

	w, err := watcher.New(a.Config.Watch.Debounce, []string{".*"}, slog.Default(), a.invalidate)
	if err != nil {
		return err
	}
	if err := w.Watch([]string{a.Config.Cache.Root}); err != nil {
		_ = w.Close()
		return err
	}
	a.watcher = w
	return nil
}

// SetRefreshHandler registers a callback fired after each invalidation batch.
func (a *App) SetRefreshHandler(fn func()) {
	a.onRefresh = fn
}

func (a *App) invalidate(paths []string) {
	a.index.Invalidate()
	for _, p := range paths {
		a.cache.Invalidate(p)
	}
	slog.Debug("package cache invalidated", "changedPaths", len(paths))
	if a.onRefresh != nil {
		a.onRefresh()
	}
}

func (a *App) Close() {
	if a.watcher != nil {
		_ = a.watcher.Close()
	}
	a.Service.Shutdown()
	if a.stopTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.stopTracing(ctx)
	}
}

func (a *App) ListPackagesOnce(ctx context.Context, filter string) (string, error) {
	var b strings.Builder
	token := ""
	total := 0
	for {
		res, err := a.Service.ListPackages(ctx, ports.ListPackagesRequest{Filter: filter, PageToken: token})
		if err != nil {
			return "", err
		}
		for _, p := range res.Packages {
			b.WriteString(fmt.Sprintf("%s  %s\n", p.ID, strings.Join(p.Versions, ", ")))
		}
		total = res.Total
		if res.NextPageToken == "" {
			break
		}
		token = res.NextPageToken
	}
	b.WriteString(fmt.Sprintf("\n%d packages in %s\n", total, a.Config.Cache.Root))
	return b.String(), nil
}

func (a *App) ListTypesOnce(ctx context.Context, target string) (string, error) {
	path, pkg, version := splitTarget(target)

	var b strings.Builder
	token := ""
	module := ""
	total := 0
	var rows []apimodel.TypeSummary
	for {
		res, err := a.Service.ListTypes(ctx, ports.ListTypesRequest{
			Path:      path,
			Package:   pkg,
			Version:   version,
			PageToken: token,
		})
		if err != nil {
			return "", err
		}
		module = res.Module
		total = res.Total
		rows = append(rows, res.Types...)
		if res.NextPageToken == "" {
			break
		}
		token = res.NextPageToken
	}

	b.WriteString(fmt.Sprintf("Module: %s\n\n", module))
	for _, t := range rows {
		b.WriteString(fmt.Sprintf("%-10s %s\n", t.Kind, t.FullName))
	}
	b.WriteString(fmt.Sprintf("\n%d exported types\n", total))
	return b.String(), nil
}

func (a *App) GetTypeOnce(ctx context.Context, target, typeName string) (string, error) {
	path, pkg, version := splitTarget(target)

	tm, err := a.Service.GetTypeDefinition(ctx, ports.GetTypeRequest{
		Path:     path,
		Package:  pkg,
		Version:  version,
		TypeName: typeName,
	})
	if err != nil {
		return "", err
	}
	return formatTypeModel(tm), nil
}

func (a *App) CompareOnce(ctx context.Context, args []string) (string, bool, error) {
	req := ports.CompareRequest{Persist: a.Config.DB.Enabled}
	switch len(args) {
	case 2:
		req.OldPath = args[0]
		req.NewPath = args[1]
	case 3:
		req.Package = args[0]
		req.OldVersion = args[1]
		req.NewVersion = args[2]
	default:
		return "", false, fmt.Errorf("compare mode takes <old-path> <new-path> or <package> <old-version> <new-version>")
	}

	res, err := a.Service.Compare(ctx, req)
	if err != nil {
		return "", false, err
	}
	return formatCompareReport(res), res.Summary.Breaking > 0, nil
}

func (a *App) StatusOnce(ctx context.Context) string {
	st := a.Service.Status(ctx)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("surface v%s\n", VERSION))
	b.WriteString(fmt.Sprintf("Cache root: %s\n", st.CacheRoot))
	b.WriteString(fmt.Sprintf("Open modules: %d\n", st.OpenModules))
	b.WriteString(fmt.Sprintf("History: %v\n", st.HistoryActive))
	b.WriteString("\n")
	return b.String()
}

// splitTarget reads a one-shot module argument. Anything that exists on disk
// is a module path; otherwise it is a package id, optionally "id@version".
func splitTarget(target string) (path, pkg, version string) {
	if _, err := os.Stat(target); err == nil {
		return target, "", ""
	}
	if id, ver, ok := strings.Cut(target, "@"); ok {
		return "", id, ver
	}
	return "", target, ""
}

func formatTypeModel(tm *apimodel.TypeModel) string {
	var b strings.Builder

	b.WriteString(tm.Header + "\n")
	b.WriteString(fmt.Sprintf("Kind: %s", tm.Kind))
	if tm.Namespace != "" {
		b.WriteString(fmt.Sprintf(" | Namespace: %s", tm.Namespace))
	}
	b.WriteString("\n")
	if tm.BaseType != "" {
		b.WriteString(fmt.Sprintf("Base: %s\n", tm.BaseType))
	}
	if len(tm.Interfaces) > 0 {
		b.WriteString(fmt.Sprintf("Implements: %s\n", strings.Join(tm.Interfaces, ", ")))
	}

	writeMembers(&b, "Constructors", tm.Constructors)
	writeMembers(&b, "Methods", tm.Methods)
	writeMembers(&b, "Properties", tm.Properties)
	writeMembers(&b, "Fields", tm.Fields)
	writeMembers(&b, "Events", tm.Events)

	if len(tm.EnumValues) > 0 {
		b.WriteString(fmt.Sprintf("\nValues (%d)\n", len(tm.EnumValues)))
		for _, v := range tm.EnumValues {
			b.WriteString(fmt.Sprintf("  %s = %d\n", v.Name, v.Value))
		}
	}

	return b.String()
}

func writeMembers(b *strings.Builder, section string, members []apimodel.MemberModel) {
	if len(members) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("\n%s (%d)\n", section, len(members)))
	for _, m := range members {
		b.WriteString(fmt.Sprintf("  %s\n", m.Signature))
	}
}

func formatCompareReport(res ports.CompareResult) string {
	var b strings.Builder

	b.WriteString("API Compare\n")
	b.WriteString("===========\n")
	b.WriteString(fmt.Sprintf("Old: %s (%s)\n", res.OldModule, res.OldPath))
	b.WriteString(fmt.Sprintf("New: %s (%s)\n", res.NewModule, res.NewPath))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("Summary: %d added, %d removed, %d modified, %d breaking\n",
		res.Summary.Added, res.Summary.Removed, res.Summary.Modified, res.Summary.Breaking))

	if res.Degraded {
		b.WriteString(fmt.Sprintf("\nPartial surface: %d types could not be built\n", len(res.Problems)))
		for _, p := range res.Problems {
			b.WriteString(fmt.Sprintf("- %s\n", p))
		}
	}

	breaking := make([]diff.ApiChange, 0, len(res.Changes))
	compatible := make([]diff.ApiChange, 0, len(res.Changes))
	for _, c := range res.Changes {
		if c.Breaking {
			breaking = append(breaking, c)
		} else {
			compatible = append(compatible, c)
		}
	}

	writeChanges(&b, "Breaking changes", breaking)
	writeChanges(&b, "Compatible changes", compatible)

	if res.ReportID != "" {
		b.WriteString(fmt.Sprintf("\nReport saved: %s\n", res.ReportID))
	}

	return b.String()
}

func writeChanges(b *strings.Builder, section string, changes []diff.ApiChange) {
	if len(changes) == 0 {
		return
	}
	b.WriteString(fmt.Sprintf("\n%s (%d)\n", section, len(changes)))
	for _, c := range changes {
		b.WriteString(fmt.Sprintf("- [%s/%s] %s: %s\n", c.Kind, c.Category, c.TypeName, describeChange(c)))
	}
}

func describeChange(c diff.ApiChange) string {
	switch c.Kind {
	case diff.Added:
		return fmt.Sprintf("added %s", c.NewSignature)
	case diff.Removed:
		return fmt.Sprintf("removed %s", c.OldSignature)
	default:
		return fmt.Sprintf("%s -> %s (%s)", c.OldSignature, c.NewSignature, c.Reason)
	}
}
