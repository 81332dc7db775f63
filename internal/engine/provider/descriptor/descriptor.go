// Package descriptor reads modules from API descriptor files: JSON
// documents (*.apim.json) carrying a module's exported type surface. The
// format mirrors the provider fact model, so a descriptor is a complete,
// self-contained snapshot of one module's public API.
package descriptor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	cerrors "surface/internal/core/errors"
	"surface/internal/engine/provider"
)

// Suffix identifies descriptor files.
const Suffix = ".apim.json"

// Provider opens API descriptor files.
type Provider struct{}

func New() *Provider { return &Provider{} }

func (p *Provider) ProviderName() string { return "descriptor" }

func (p *Provider) CanOpen(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), Suffix)
}

func (p *Provider) Open(path string, searchPaths []string) (provider.ModuleHandle, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	h := &handle{path: path, doc: doc, depPaths: make(map[string]string), parsed: make(map[string]*document)}
	// later search paths shadow earlier ones
	for _, sp := range searchPaths {
		if !p.CanOpen(sp) {
			continue
		}
		h.depPaths[strings.ToLower(stem(sp))] = sp
		h.depOrder = append(h.depOrder, sp)
	}
	return h, nil
}

func stem(path string) string {
	name := filepath.Base(path)
	return name[:len(name)-len(Suffix)]
}

func loadDocument(path string) (*document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		wrapped := cerrors.Wrap(err, cerrors.CodeLoadError, "cannot read descriptor")
		return nil, cerrors.AddContext(wrapped, cerrors.CtxPath, path)
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		wrapped := cerrors.Wrap(err, cerrors.CodeLoadError, "malformed descriptor")
		return nil, cerrors.AddContext(wrapped, cerrors.CtxPath, path)
	}
	if doc.Module == "" {
		err := cerrors.New(cerrors.CodeLoadError, "descriptor is missing the module name")
		return nil, cerrors.AddContext(err, cerrors.CtxPath, path)
	}
	doc.byName = make(map[string]*typeDoc, len(doc.Types))
	for _, t := range doc.Types {
		doc.byName[t.FullName] = t
	}
	return &doc, nil
}

type handle struct {
	path string
	doc  *document

	depPaths map[string]string // lowercased module stem -> descriptor path
	depOrder []string

	mu     sync.Mutex
	parsed map[string]*document // descriptor path -> parsed document
}

func (h *handle) Name() string { return h.doc.Module }
func (h *handle) Path() string { return h.path }

func (h *handle) ExportedTypes() ([]provider.TypeHandle, error) {
	out := make([]provider.TypeHandle, 0, len(h.doc.Types))
	for _, t := range h.doc.Types {
		out = append(out, &typeHandle{doc: t})
	}
	return out, nil
}

func (h *handle) Resolve(ref provider.TypeRef) (provider.TypeHandle, error) {
	if ref.Module == "" || strings.EqualFold(ref.Module, h.doc.Module) {
		if t, ok := h.doc.byName[ref.FullName]; ok {
			return &typeHandle{doc: t}, nil
		}
		if ref.Module != "" {
			return nil, h.unresolvable(ref)
		}
		// unqualified reference: chase it through the search set, closest
		// module first
		for i := len(h.depOrder) - 1; i >= 0; i-- {
			dep, err := h.dependency(h.depOrder[i])
			if err != nil {
				continue
			}
			if t, ok := dep.byName[ref.FullName]; ok {
				return &typeHandle{doc: t}, nil
			}
		}
		return nil, h.unresolvable(ref)
	}

	depPath, ok := h.depPaths[strings.ToLower(ref.Module)]
	if !ok {
		err := cerrors.Newf(cerrors.CodeLoadError, "dependency module %q is not in the search set", ref.Module)
		return nil, cerrors.AddContext(err, cerrors.CtxDependency, ref.Module)
	}
	dep, err := h.dependency(depPath)
	if err != nil {
		return nil, err
	}
	if t, ok := dep.byName[ref.FullName]; ok {
		return &typeHandle{doc: t}, nil
	}
	return nil, h.unresolvable(ref)
}

func (h *handle) unresolvable(ref provider.TypeRef) error {
	err := cerrors.Newf(cerrors.CodeLoadError, "type %q not resolvable from module %s", ref.FullName, h.doc.Module)
	return cerrors.AddContext(err, cerrors.CtxType, ref.FullName)
}

func (h *handle) dependency(path string) (*document, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if doc, ok := h.parsed[path]; ok {
		if doc == nil {
			return nil, cerrors.Newf(cerrors.CodeLoadError, "dependency descriptor %s failed to load", path)
		}
		return doc, nil
	}
	doc, err := loadDocument(path)
	if err != nil {
		h.parsed[path] = nil
		return nil, err
	}
	h.parsed[path] = doc
	return doc, nil
}

func (h *handle) Close() error { return nil }

// document is the on-disk descriptor layout.
type document struct {
	Module string     `json:"module"`
	Types  []*typeDoc `json:"types"`

	byName map[string]*typeDoc
}

type typeDoc struct {
	FullName  string `json:"fullName"`
	Namespace string `json:"namespace,omitempty"`
	Interface bool   `json:"interface,omitempty"`
	ValueType bool   `json:"valueType,omitempty"`
	Enum      bool   `json:"enum,omitempty"`
	Abstract  bool   `json:"abstract,omitempty"`
	Sealed    bool   `json:"sealed,omitempty"`

	Base          *typeRefDoc      `json:"base,omitempty"`
	Interfaces    []typeRefDoc     `json:"interfaces,omitempty"`
	GenericParams []genericDoc     `json:"genericParams,omitempty"`
	Constructors  []methodDoc      `json:"constructors,omitempty"`
	Methods       []methodDoc      `json:"methods,omitempty"`
	Properties    []propertyDoc    `json:"properties,omitempty"`
	Fields        []fieldDoc       `json:"fields,omitempty"`
	Events        []eventDoc       `json:"events,omitempty"`
}

type typeRefDoc struct {
	Name   string `json:"name"`
	Module string `json:"module,omitempty"`
}

type typeExprDoc struct {
	Name      string        `json:"name"`
	Args      []typeExprDoc `json:"args,omitempty"`
	ArrayRank int           `json:"arrayRank,omitempty"`
	Nullable  bool          `json:"nullable,omitempty"`
}

type literalDoc struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

type paramDoc struct {
	Name     string      `json:"name"`
	Type     typeExprDoc `json:"type"`
	Mode     string      `json:"mode,omitempty"`
	Variadic bool        `json:"variadic,omitempty"`
	Optional bool        `json:"optional,omitempty"`
	Default  *literalDoc `json:"default,omitempty"`
}

type genericDoc struct {
	Name            string        `json:"name"`
	RefConstraint   bool          `json:"refConstraint,omitempty"`
	ValueConstraint bool          `json:"valueConstraint,omitempty"`
	CtorConstraint  bool          `json:"ctorConstraint,omitempty"`
	Constraints     []typeExprDoc `json:"constraints,omitempty"`
}

type methodDoc struct {
	Name          string       `json:"name"`
	Static        bool         `json:"static,omitempty"`
	Abstract      bool         `json:"abstract,omitempty"`
	Virtual       bool         `json:"virtual,omitempty"`
	Final         bool         `json:"final,omitempty"`
	Returns       typeExprDoc  `json:"returns"`
	Params        []paramDoc   `json:"params,omitempty"`
	GenericParams []genericDoc `json:"genericParams,omitempty"`
}

type propertyDoc struct {
	Name     string      `json:"name"`
	Static   bool        `json:"static,omitempty"`
	Abstract bool        `json:"abstract,omitempty"`
	Virtual  bool        `json:"virtual,omitempty"`
	Final    bool        `json:"final,omitempty"`
	Type     typeExprDoc `json:"type"`
	Gettable bool        `json:"gettable,omitempty"`
	Settable bool        `json:"settable,omitempty"`
}

type fieldDoc struct {
	Name       string      `json:"name"`
	Static     bool        `json:"static,omitempty"`
	Constant   bool        `json:"constant,omitempty"`
	ReadOnly   bool        `json:"readOnly,omitempty"`
	Type       typeExprDoc `json:"type"`
	ConstValue *literalDoc `json:"constValue,omitempty"`
}

type eventDoc struct {
	Name   string      `json:"name"`
	Static bool        `json:"static,omitempty"`
	Type   typeExprDoc `json:"type"`
}

// typeHandle adapts a typeDoc to provider.TypeHandle.
type typeHandle struct {
	doc *typeDoc
}

func (t *typeHandle) FullName() string { return t.doc.FullName }

func (t *typeHandle) Namespace() string {
	if t.doc.Namespace != "" {
		return t.doc.Namespace
	}
	if i := strings.LastIndex(t.doc.FullName, "."); i >= 0 {
		return t.doc.FullName[:i]
	}
	return ""
}

func (t *typeHandle) IsInterface() bool { return t.doc.Interface }
func (t *typeHandle) IsValueType() bool { return t.doc.ValueType || t.doc.Enum }
func (t *typeHandle) IsEnum() bool      { return t.doc.Enum }
func (t *typeHandle) IsAbstract() bool  { return t.doc.Abstract }
func (t *typeHandle) IsSealed() bool    { return t.doc.Sealed }

func (t *typeHandle) Base() (provider.TypeRef, bool) {
	if t.doc.Base == nil {
		return provider.TypeRef{}, false
	}
	return provider.TypeRef{FullName: t.doc.Base.Name, Module: t.doc.Base.Module}, true
}

func (t *typeHandle) Interfaces() []provider.TypeRef {
	out := make([]provider.TypeRef, len(t.doc.Interfaces))
	for i, ref := range t.doc.Interfaces {
		out[i] = provider.TypeRef{FullName: ref.Name, Module: ref.Module}
	}
	return out
}

func (t *typeHandle) GenericParams() []provider.GenericParam {
	return convertGenerics(t.doc.GenericParams)
}

func (t *typeHandle) Constructors() []provider.MethodFact {
	return convertMethods(t.doc.Constructors)
}

func (t *typeHandle) Methods() []provider.MethodFact {
	return convertMethods(t.doc.Methods)
}

func (t *typeHandle) Properties() []provider.PropertyFact {
	out := make([]provider.PropertyFact, len(t.doc.Properties))
	for i, p := range t.doc.Properties {
		out[i] = provider.PropertyFact{
			Name:     p.Name,
			Static:   p.Static,
			Abstract: p.Abstract,
			Virtual:  p.Virtual,
			Final:    p.Final,
			Type:     convertExpr(p.Type),
			Gettable: p.Gettable,
			Settable: p.Settable,
		}
	}
	return out
}

func (t *typeHandle) Fields() []provider.FieldFact {
	out := make([]provider.FieldFact, len(t.doc.Fields))
	for i, f := range t.doc.Fields {
		out[i] = provider.FieldFact{
			Name:       f.Name,
			Static:     f.Static,
			Constant:   f.Constant,
			ReadOnly:   f.ReadOnly,
			Type:       convertExpr(f.Type),
			ConstValue: convertLiteral(f.ConstValue),
		}
	}
	return out
}

func (t *typeHandle) Events() []provider.EventFact {
	out := make([]provider.EventFact, len(t.doc.Events))
	for i, e := range t.doc.Events {
		out[i] = provider.EventFact{Name: e.Name, Static: e.Static, Type: convertExpr(e.Type)}
	}
	return out
}

func convertExpr(doc typeExprDoc) provider.TypeExpr {
	expr := provider.TypeExpr{
		Name:      doc.Name,
		ArrayRank: doc.ArrayRank,
		Nullable:  doc.Nullable,
	}
	for _, arg := range doc.Args {
		expr.Args = append(expr.Args, convertExpr(arg))
	}
	return expr
}

func convertLiteral(doc *literalDoc) *provider.Literal {
	if doc == nil {
		return nil
	}
	return &provider.Literal{Kind: provider.LiteralKind(doc.Kind), Value: doc.Value}
}

func convertGenerics(docs []genericDoc) []provider.GenericParam {
	out := make([]provider.GenericParam, len(docs))
	for i, g := range docs {
		out[i] = provider.GenericParam{
			Name:            g.Name,
			RefConstraint:   g.RefConstraint,
			ValueConstraint: g.ValueConstraint,
			CtorConstraint:  g.CtorConstraint,
		}
		for _, c := range g.Constraints {
			out[i].Constraints = append(out[i].Constraints, convertExpr(c))
		}
	}
	return out
}

func convertMethods(docs []methodDoc) []provider.MethodFact {
	out := make([]provider.MethodFact, len(docs))
	for i, m := range docs {
		out[i] = provider.MethodFact{
			Name:          m.Name,
			Static:        m.Static,
			Abstract:      m.Abstract,
			Virtual:       m.Virtual,
			Final:         m.Final,
			Returns:       convertExpr(m.Returns),
			GenericParams: convertGenerics(m.GenericParams),
		}
		for _, p := range m.Params {
			out[i].Params = append(out[i].Params, provider.Param{
				Name:     p.Name,
				Type:     convertExpr(p.Type),
				Mode:     provider.ParamMode(p.Mode),
				Variadic: p.Variadic,
				Optional: p.Optional,
				Default:  convertLiteral(p.Default),
			})
		}
	}
	return out
}
