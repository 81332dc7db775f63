package model

import (
	"sort"
	"strconv"
	"strings"

	"github.com/gobwas/glob"

	cerrors "surface/internal/core/errors"
	"surface/internal/engine/provider"
	"surface/internal/engine/signature"
)

// maxBaseDepth caps base-type chain walks against malformed metadata.
const maxBaseDepth = 64

// Filters narrows a type listing. A nil Name matches everything.
type Filters struct {
	Kinds []TypeKind
	Name  glob.Glob
}

func (f Filters) matchKind(kind TypeKind) bool {
	if len(f.Kinds) == 0 {
		return true
	}
	for _, k := range f.Kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func (f Filters) matchName(full, simple string) bool {
	if f.Name == nil {
		return true
	}
	return f.Name.Match(full) || f.Name.Match(simple)
}

// ListTypes enumerates the exported types of an open module as summaries.
func ListTypes(handle provider.ModuleHandle, filters Filters) ([]TypeSummary, error) {
	types, err := handle.ExportedTypes()
	if err != nil {
		return nil, cerrors.AddContext(err, cerrors.CtxModule, handle.Name())
	}

	summaries := make([]TypeSummary, 0, len(types))
	for _, th := range types {
		kind, err := classifyKind(handle, th)
		if err != nil {
			return nil, cerrors.AddContext(err, cerrors.CtxType, th.FullName())
		}
		simple := signature.SimpleName(th.FullName())
		if !filters.matchKind(kind) || !filters.matchName(signature.StripArity(th.FullName()), simple) {
			continue
		}
		summaries = append(summaries, TypeSummary{
			FullName:  th.FullName(),
			Name:      simple,
			Namespace: th.Namespace(),
			Kind:      kind,
			Static:    th.IsAbstract() && th.IsSealed(),
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].FullName < summaries[j].FullName })
	return summaries, nil
}

// GetTypeDefinition looks up one exported type by name and builds its full
// model. The lookup tries, in order: exact qualified match, case-insensitive
// qualified match, case-insensitive simple-name match, and simple-name match
// ignoring a trailing arity marker. Returns NOT_FOUND when nothing matches.
func GetTypeDefinition(handle provider.ModuleHandle, name string) (*TypeModel, error) {
	th, err := lookupType(handle, name)
	if err != nil {
		return nil, err
	}
	return BuildType(handle, th)
}

// BuildAll extracts every exported type of a module, keyed by full name.
// The diff engine compares two such maps.
func BuildAll(handle provider.ModuleHandle) (map[string]*TypeModel, error) {
	types, err := handle.ExportedTypes()
	if err != nil {
		return nil, cerrors.AddContext(err, cerrors.CtxModule, handle.Name())
	}
	out := make(map[string]*TypeModel, len(types))
	for _, th := range types {
		tm, err := BuildType(handle, th)
		if err != nil {
			return nil, err
		}
		out[tm.FullName] = tm
	}
	return out, nil
}

// BuildType copies everything out of the handle eagerly. The returned model
// has no backing references, so cache eviction of the source module never
// invalidates it.
func BuildType(handle provider.ModuleHandle, th provider.TypeHandle) (*TypeModel, error) {
	kind, err := classifyKind(handle, th)
	if err != nil {
		return nil, cerrors.AddContext(err, cerrors.CtxType, th.FullName())
	}

	tm := &TypeModel{
		FullName:  th.FullName(),
		Name:      signature.SimpleName(th.FullName()),
		Namespace: th.Namespace(),
		Kind:      kind,
		Abstract:  th.IsAbstract(),
		Sealed:    th.IsSealed(),
		Static:    th.IsAbstract() && th.IsSealed(),
	}

	tm.GenericParams = extractGenericParams(th.GenericParams())

	if base, ok := th.Base(); ok && kind == KindClass && !provider.RootMarkers[base.FullName] {
		tm.BaseType = base.FullName
	}

	ifaces, err := directInterfaces(handle, th)
	if err != nil {
		return nil, cerrors.AddContext(err, cerrors.CtxType, th.FullName())
	}
	tm.Interfaces = ifaces

	if kind == KindEnum {
		tm.EnumValues = extractEnumValues(th)
	} else {
		if err := extractMembers(handle, th, tm); err != nil {
			return nil, cerrors.AddContext(err, cerrors.CtxType, th.FullName())
		}
	}

	tm.Header = signature.TypeHeader(typeModifier(tm), string(kind), tm.FullName, th.GenericParams(), tm.BaseType, tm.Interfaces)
	return tm, nil
}

func typeModifier(tm *TypeModel) string {
	if tm.Kind != KindClass {
		return ""
	}
	switch {
	case tm.Abstract && tm.Sealed:
		return "static"
	case tm.Abstract:
		return "abstract"
	case tm.Sealed:
		return "sealed"
	}
	return ""
}

// classifyKind decides the type kind from structural facts, in priority
// order: interface, enum, struct, delegate (a base-type chain reaching a
// foundational delegate marker), class.
func classifyKind(handle provider.ModuleHandle, th provider.TypeHandle) (TypeKind, error) {
	switch {
	case th.IsInterface():
		return KindInterface, nil
	case th.IsEnum():
		return KindEnum, nil
	case th.IsValueType():
		return KindStruct, nil
	}

	cur := th
	for depth := 0; depth < maxBaseDepth; depth++ {
		base, ok := cur.Base()
		if !ok {
			return KindClass, nil
		}
		if provider.DelegateMarkers[base.FullName] {
			return KindDelegate, nil
		}
		if provider.RootMarkers[base.FullName] {
			return KindClass, nil
		}
		next, err := handle.Resolve(base)
		if err != nil {
			return "", err
		}
		cur = next
	}
	return KindClass, nil
}

// directInterfaces flattens the reported interface closure down to the
// interfaces this type itself newly contributes: anything reachable as a
// super-interface of another listed interface, or already supplied by the
// base type's closure, is excluded. Interfaces whose defining module is not
// in the search set cannot be expanded and are kept as-is.
func directInterfaces(handle provider.ModuleHandle, th provider.TypeHandle) ([]string, error) {
	all := th.Interfaces()
	if len(all) == 0 {
		return nil, nil
	}

	excluded := make(map[string]bool)
	for _, ref := range all {
		ih, err := handle.Resolve(ref)
		if err != nil {
			if cerrors.IsCode(err, cerrors.CodeLoadError) || cerrors.IsCode(err, cerrors.CodeNotFound) {
				continue
			}
			return nil, err
		}
		for _, super := range ih.Interfaces() {
			excluded[super.FullName] = true
		}
	}

	if base, ok := th.Base(); ok && !provider.RootMarkers[base.FullName] {
		if bh, err := handle.Resolve(base); err == nil {
			for _, bi := range bh.Interfaces() {
				excluded[bi.FullName] = true
			}
		}
	}

	direct := make([]string, 0, len(all))
	for _, ref := range all {
		if !excluded[ref.FullName] {
			direct = append(direct, ref.FullName)
		}
	}
	sort.Strings(direct)
	return direct, nil
}

func extractGenericParams(params []provider.GenericParam) []GenericParamModel {
	if len(params) == 0 {
		return nil
	}
	out := make([]GenericParamModel, 0, len(params))
	for _, gp := range params {
		m := GenericParamModel{
			Name:            gp.Name,
			RefConstraint:   gp.RefConstraint,
			ValueConstraint: gp.ValueConstraint,
			CtorConstraint:  gp.CtorConstraint,
		}
		for _, c := range gp.Constraints {
			if c.Name == provider.ValueTypeMarker {
				continue
			}
			m.Constraints = append(m.Constraints, signature.TypeExpr(c))
		}
		out = append(out, m)
	}
	return out
}

func extractMembers(handle provider.ModuleHandle, th provider.TypeHandle, tm *TypeModel) error {
	for _, ctor := range th.Constructors() {
		tm.Constructors = append(tm.Constructors, MemberModel{
			Name:      signature.SimpleName(th.FullName()),
			Signature: signature.Constructor(th.FullName(), ctor),
			Static:    ctor.Static,
			Params:    extractParams(ctor.Params),
		})
	}

	for _, m := range th.Methods() {
		override, err := isOverride(handle, th, m)
		if err != nil {
			return err
		}
		tm.Methods = append(tm.Methods, MemberModel{
			Name:      m.Name,
			Signature: signature.Method(m, override),
			Static:    m.Static,
			Abstract:  m.Abstract,
			Virtual:   m.Virtual && !m.Final,
			Override:  override,
			Sealed:    m.Final && m.Virtual,
			Params:    extractParams(m.Params),
		})
	}

	for _, p := range th.Properties() {
		tm.Properties = append(tm.Properties, MemberModel{
			Name:      p.Name,
			Signature: signature.Property(p, false),
			Static:    p.Static,
			Abstract:  p.Abstract,
			Virtual:   p.Virtual && !p.Final,
		})
	}

	for _, f := range th.Fields() {
		tm.Fields = append(tm.Fields, MemberModel{
			Name:      f.Name,
			Signature: signature.Field(f),
			Static:    f.Static,
		})
	}

	for _, e := range th.Events() {
		tm.Events = append(tm.Events, MemberModel{
			Name:      e.Name,
			Signature: signature.Event(e),
			Static:    e.Static,
		})
	}

	sortMembers(tm.Constructors)
	sortMembers(tm.Methods)
	sortMembers(tm.Properties)
	sortMembers(tm.Fields)
	sortMembers(tm.Events)
	return nil
}

func sortMembers(members []MemberModel) {
	sort.Slice(members, func(i, j int) bool {
		if members[i].Name == members[j].Name {
			return members[i].Signature < members[j].Signature
		}
		return members[i].Name < members[j].Name
	})
}

func extractParams(params []provider.Param) []ParamModel {
	if len(params) == 0 {
		return nil
	}
	out := make([]ParamModel, 0, len(params))
	for _, p := range params {
		pm := ParamModel{
			Name:     p.Name,
			Type:     signature.TypeExpr(p.Type),
			Mode:     string(p.Mode),
			Variadic: p.Variadic,
			Optional: p.Optional,
		}
		if p.Default != nil {
			pm.Default = signature.Literal(*p.Default)
		}
		out = append(out, pm)
	}
	return out
}

// isOverride approximates override detection without a base-definition link
// from the provider: a method counts as an override only when it is virtual,
// not final-without-override, and the immediate base type declares a virtual
// method with the same name and identical parameter-type sequence. A
// same-signature re-declaration that is not truly polymorphic is still
// flagged; see DESIGN.md.
func isOverride(handle provider.ModuleHandle, th provider.TypeHandle, m provider.MethodFact) (bool, error) {
	if !m.Virtual || m.Final || m.Abstract {
		return false, nil
	}
	base, ok := th.Base()
	if !ok || provider.RootMarkers[base.FullName] {
		return false, nil
	}
	bh, err := handle.Resolve(base)
	if err != nil {
		return false, err
	}
	want := signature.ParamTypes(m.Params)
	for _, bm := range bh.Methods() {
		if bm.Name == m.Name && bm.Virtual && signature.ParamTypes(bm.Params) == want {
			return true, nil
		}
	}
	return false, nil
}

// extractEnumValues lists every static literal field of an enum type. A
// constant that cannot be read still yields a member with value 0 instead of
// failing the listing.
func extractEnumValues(th provider.TypeHandle) []EnumValueModel {
	fields := th.Fields()
	out := make([]EnumValueModel, 0, len(fields))
	for _, f := range fields {
		if !f.Static || !f.Constant {
			continue
		}
		out = append(out, EnumValueModel{Name: f.Name, Value: constAsInt64(f.ConstValue)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value == out[j].Value {
			return out[i].Name < out[j].Name
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func constAsInt64(l *provider.Literal) int64 {
	if l == nil {
		return 0
	}
	raw := strings.TrimSpace(l.Value)
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseUint(raw, 10, 64); err == nil {
		return int64(v)
	}
	if strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X") {
		if v, err := strconv.ParseUint(raw[2:], 16, 64); err == nil {
			return int64(v)
		}
	}
	return 0
}
