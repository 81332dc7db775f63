// Package providertest contains an in-memory metadata provider used by the
// cache, model, diff and tool tests. Modules are registered per path;
// dependency resolution honors the search paths passed to Open the same way
// production providers do, so search-set semantics are testable without
// touching the filesystem.
package providertest

import (
	"sync"

	cerrors "surface/internal/core/errors"
	"surface/internal/engine/provider"
)

// Type is a literal-friendly provider.TypeHandle implementation.
type Type struct {
	Full      string
	NS        string
	Interface bool
	ValueType bool
	Enum      bool
	Abstract  bool
	Sealed    bool
	BaseRef   *provider.TypeRef
	Ifaces    []provider.TypeRef
	Generics  []provider.GenericParam
	Ctors     []provider.MethodFact
	Meths     []provider.MethodFact
	Props     []provider.PropertyFact
	Flds      []provider.FieldFact
	Evts      []provider.EventFact
}

func (t *Type) FullName() string  { return t.Full }
func (t *Type) Namespace() string { return t.NS }
func (t *Type) IsInterface() bool { return t.Interface }
func (t *Type) IsValueType() bool { return t.ValueType }
func (t *Type) IsEnum() bool      { return t.Enum }
func (t *Type) IsAbstract() bool  { return t.Abstract }
func (t *Type) IsSealed() bool    { return t.Sealed }

func (t *Type) Base() (provider.TypeRef, bool) {
	if t.BaseRef == nil {
		return provider.TypeRef{}, false
	}
	return *t.BaseRef, true
}

func (t *Type) Interfaces() []provider.TypeRef         { return t.Ifaces }
func (t *Type) GenericParams() []provider.GenericParam { return t.Generics }
func (t *Type) Constructors() []provider.MethodFact    { return t.Ctors }
func (t *Type) Methods() []provider.MethodFact         { return t.Meths }
func (t *Type) Properties() []provider.PropertyFact    { return t.Props }
func (t *Type) Fields() []provider.FieldFact           { return t.Flds }
func (t *Type) Events() []provider.EventFact           { return t.Evts }

// Module is one registered fake module.
type Module struct {
	ModuleName string
	Types      []*Type
}

func (m *Module) find(fullName string) (*Type, bool) {
	for _, t := range m.Types {
		if t.Full == fullName {
			return t, true
		}
	}
	return nil, false
}

// Handle implements provider.ModuleHandle over a registered module plus the
// dependency set assembled from the Open search paths.
type Handle struct {
	provider *Provider
	path     string
	module   *Module
	deps     map[string]*Module // simple module name -> module
}

func (h *Handle) Name() string { return h.module.ModuleName }
func (h *Handle) Path() string { return h.path }

func (h *Handle) ExportedTypes() ([]provider.TypeHandle, error) {
	out := make([]provider.TypeHandle, len(h.module.Types))
	for i, t := range h.module.Types {
		out[i] = t
	}
	return out, nil
}

func (h *Handle) Resolve(ref provider.TypeRef) (provider.TypeHandle, error) {
	target := h.module
	if ref.Module != "" && ref.Module != h.module.ModuleName {
		dep, ok := h.deps[ref.Module]
		if !ok {
			err := cerrors.Newf(cerrors.CodeLoadError, "dependency module %q is not in the search set", ref.Module)
			return nil, cerrors.AddContext(err, cerrors.CtxDependency, ref.Module)
		}
		target = dep
	}
	if t, ok := target.find(ref.FullName); ok {
		return t, nil
	}
	// Same-module miss: scan dependencies before giving up, mirroring how
	// production providers chase unqualified references.
	if ref.Module == "" {
		for _, dep := range h.deps {
			if t, ok := dep.find(ref.FullName); ok {
				return t, nil
			}
		}
	}
	err := cerrors.Newf(cerrors.CodeLoadError, "type %q not resolvable from module %s", ref.FullName, h.module.ModuleName)
	return nil, cerrors.AddContext(err, cerrors.CtxType, ref.FullName)
}

func (h *Handle) Close() error {
	h.provider.mu.Lock()
	defer h.provider.mu.Unlock()
	h.provider.closes[h.path]++
	return nil
}

// Provider registers fake modules by file path.
type Provider struct {
	mu      sync.Mutex
	modules map[string]*Module
	opens   map[string]int
	closes  map[string]int
}

func New() *Provider {
	return &Provider{
		modules: make(map[string]*Module),
		opens:   make(map[string]int),
		closes:  make(map[string]int),
	}
}

// Add registers a module under path and returns it for further mutation.
func (p *Provider) Add(path, moduleName string, types ...*Type) *Module {
	p.mu.Lock()
	defer p.mu.Unlock()
	m := &Module{ModuleName: moduleName, Types: types}
	p.modules[path] = m
	return m
}

func (p *Provider) ProviderName() string { return "fake" }

func (p *Provider) CanOpen(path string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.modules[path]
	return ok
}

func (p *Provider) Open(path string, searchPaths []string) (provider.ModuleHandle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	mod, ok := p.modules[path]
	if !ok {
		err := cerrors.Newf(cerrors.CodeLoadError, "not a valid module: %s", path)
		return nil, cerrors.AddContext(err, cerrors.CtxPath, path)
	}
	p.opens[path]++

	deps := make(map[string]*Module)
	for _, sp := range searchPaths {
		if dep, ok := p.modules[sp]; ok {
			deps[dep.ModuleName] = dep // later entries override earlier ones
		}
	}
	deps[mod.ModuleName] = mod

	return &Handle{provider: p, path: path, module: mod, deps: deps}, nil
}

// Opens returns how many times path has been opened.
func (p *Provider) Opens(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.opens[path]
}

// Closes returns how many times handles for path have been closed.
func (p *Provider) Closes(path string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closes[path]
}
