package model

import (
	"testing"

	"github.com/gobwas/glob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "surface/internal/core/errors"
	"surface/internal/engine/provider"
	"surface/internal/engine/provider/providertest"
)

func expr(name string) provider.TypeExpr {
	return provider.TypeExpr{Name: name}
}

func openModule(t *testing.T, types ...*providertest.Type) provider.ModuleHandle {
	t.Helper()
	p := providertest.New()
	p.Add("/cache/acme.widgets/1.0.0/lib/Acme.Widgets.mod", "Acme.Widgets", types...)
	h, err := p.Open("/cache/acme.widgets/1.0.0/lib/Acme.Widgets.mod", nil)
	require.NoError(t, err)
	return h
}

func TestKindClassification(t *testing.T) {
	handle := openModule(t,
		&providertest.Type{Full: "Acme.IWidget", NS: "Acme", Interface: true},
		&providertest.Type{Full: "Acme.Color", NS: "Acme", Enum: true},
		&providertest.Type{Full: "Acme.Point", NS: "Acme", ValueType: true},
		&providertest.Type{Full: "Acme.Clicked", NS: "Acme",
			BaseRef: &provider.TypeRef{FullName: "System.MulticastDelegate"}},
		&providertest.Type{Full: "Acme.Widget", NS: "Acme",
			BaseRef: &provider.TypeRef{FullName: "System.Object"}},
		&providertest.Type{Full: "Acme.Helpers", NS: "Acme", Abstract: true, Sealed: true,
			BaseRef: &provider.TypeRef{FullName: "System.Object"}},
	)

	summaries, err := ListTypes(handle, Filters{})
	require.NoError(t, err)
	byName := map[string]TypeSummary{}
	for _, s := range summaries {
		byName[s.FullName] = s
	}

	assert.Equal(t, KindInterface, byName["Acme.IWidget"].Kind)
	assert.Equal(t, KindEnum, byName["Acme.Color"].Kind)
	assert.Equal(t, KindStruct, byName["Acme.Point"].Kind)
	assert.Equal(t, KindDelegate, byName["Acme.Clicked"].Kind)
	assert.Equal(t, KindClass, byName["Acme.Widget"].Kind)
	assert.True(t, byName["Acme.Helpers"].Static, "abstract+sealed is reported static")
}

func TestDelegateDetectionWalksBaseChain(t *testing.T) {
	handle := openModule(t,
		&providertest.Type{Full: "Acme.BaseHandler",
			BaseRef: &provider.TypeRef{FullName: "System.MulticastDelegate"}},
		&providertest.Type{Full: "Acme.SpecialHandler",
			BaseRef: &provider.TypeRef{FullName: "Acme.BaseHandler"}},
	)

	tm, err := GetTypeDefinition(handle, "Acme.SpecialHandler")
	require.NoError(t, err)
	assert.Equal(t, KindDelegate, tm.Kind)
}

func TestListTypesFilters(t *testing.T) {
	handle := openModule(t,
		&providertest.Type{Full: "Acme.IWidget", Interface: true},
		&providertest.Type{Full: "Acme.Widget", BaseRef: &provider.TypeRef{FullName: "System.Object"}},
		&providertest.Type{Full: "Acme.Gadget", BaseRef: &provider.TypeRef{FullName: "System.Object"}},
	)

	onlyInterfaces, err := ListTypes(handle, Filters{Kinds: []TypeKind{KindInterface}})
	require.NoError(t, err)
	require.Len(t, onlyInterfaces, 1)
	assert.Equal(t, "Acme.IWidget", onlyInterfaces[0].FullName)

	named, err := ListTypes(handle, Filters{Name: glob.MustCompile("*Widget")})
	require.NoError(t, err)
	require.Len(t, named, 2)
	assert.Equal(t, "Acme.IWidget", named[0].FullName)
	assert.Equal(t, "Acme.Widget", named[1].FullName)
}

func TestInterfaceFlattening(t *testing.T) {
	// IDerived extends IBase; Widget implements both (closure reported by
	// the platform) on top of a base class that already supplies IOwned.
	handle := openModule(t,
		&providertest.Type{Full: "Acme.IBase", Interface: true},
		&providertest.Type{Full: "Acme.IDerived", Interface: true,
			Ifaces: []provider.TypeRef{{FullName: "Acme.IBase"}}},
		&providertest.Type{Full: "Acme.IOwned", Interface: true},
		&providertest.Type{Full: "Acme.Component",
			BaseRef: &provider.TypeRef{FullName: "System.Object"},
			Ifaces:  []provider.TypeRef{{FullName: "Acme.IOwned"}}},
		&providertest.Type{Full: "Acme.Widget",
			BaseRef: &provider.TypeRef{FullName: "Acme.Component"},
			Ifaces: []provider.TypeRef{
				{FullName: "Acme.IBase"},
				{FullName: "Acme.IDerived"},
				{FullName: "Acme.IOwned"},
			}},
	)

	tm, err := GetTypeDefinition(handle, "Acme.Widget")
	require.NoError(t, err)
	assert.Equal(t, []string{"Acme.IDerived"}, tm.Interfaces,
		"only newly contributed interfaces survive flattening")
}

func TestGenericConstraints(t *testing.T) {
	handle := openModule(t,
		&providertest.Type{Full: "Acme.Repo`1",
			BaseRef: &provider.TypeRef{FullName: "System.Object"},
			Generics: []provider.GenericParam{{
				Name:            "T",
				ValueConstraint: true,
				CtorConstraint:  true,
				Constraints: []provider.TypeExpr{
					expr("System.ValueType"),
					expr("Acme.IEntity"),
				},
			}}},
	)

	tm, err := GetTypeDefinition(handle, "Repo")
	require.NoError(t, err)
	require.Len(t, tm.GenericParams, 1)
	gp := tm.GenericParams[0]
	assert.True(t, gp.ValueConstraint)
	assert.True(t, gp.CtorConstraint)
	assert.Equal(t, []string{"IEntity"}, gp.Constraints,
		"the universal value-type marker is redundant and dropped")
}

func TestOverrideHeuristic(t *testing.T) {
	virtualDraw := provider.MethodFact{
		Name: "Draw", Virtual: true, Returns: expr("System.Void"),
		Params: []provider.Param{{Name: "depth", Type: expr("System.Int32")}},
	}
	handle := openModule(t,
		&providertest.Type{Full: "Acme.Shape",
			BaseRef: &provider.TypeRef{FullName: "System.Object"},
			Meths:   []provider.MethodFact{virtualDraw}},
		&providertest.Type{Full: "Acme.Circle",
			BaseRef: &provider.TypeRef{FullName: "Acme.Shape"},
			Meths: []provider.MethodFact{
				virtualDraw, // same virtual signature as base -> override
				{Name: "Draw", Virtual: true, Returns: expr("System.Void"),
					Params: []provider.Param{{Name: "layer", Type: expr("System.String")}}},
				{Name: "Area", Returns: expr("System.Double")},
			}},
	)

	tm, err := GetTypeDefinition(handle, "Acme.Circle")
	require.NoError(t, err)
	signatures := map[string]MemberModel{}
	for _, m := range tm.Methods {
		signatures[m.Signature] = m
	}

	assert.Contains(t, signatures, "override void Draw(int depth)")
	assert.Contains(t, signatures, "virtual void Draw(string layer)",
		"different parameter sequence is not an override")
	assert.Contains(t, signatures, "double Area()")
}

func TestEnumValues(t *testing.T) {
	handle := openModule(t,
		&providertest.Type{Full: "Acme.Color", Enum: true,
			Flds: []provider.FieldFact{
				{Name: "Red", Static: true, Constant: true, Type: expr("Acme.Color"),
					ConstValue: &provider.Literal{Kind: provider.LiteralNumber, Value: "0"}},
				{Name: "Green", Static: true, Constant: true, Type: expr("Acme.Color"),
					ConstValue: &provider.Literal{Kind: provider.LiteralNumber, Value: "10"}},
				{Name: "Broken", Static: true, Constant: true, Type: expr("Acme.Color")},
				{Name: "value__", Static: false, Type: expr("System.Int32")},
			}},
	)

	tm, err := GetTypeDefinition(handle, "Color")
	require.NoError(t, err)
	require.Len(t, tm.EnumValues, 3, "instance backing field is skipped")
	assert.Equal(t, EnumValueModel{Name: "Broken", Value: 0}, tm.EnumValues[0],
		"unreadable constant is still emitted with value 0")
	assert.Equal(t, EnumValueModel{Name: "Red", Value: 0}, tm.EnumValues[1])
	assert.Equal(t, EnumValueModel{Name: "Green", Value: 10}, tm.EnumValues[2])
}

func TestUnresolvableBaseIsLoadError(t *testing.T) {
	handle := openModule(t,
		&providertest.Type{Full: "Acme.Widget",
			BaseRef: &provider.TypeRef{FullName: "Vendor.Component", Module: "Vendor.Core"}},
	)

	_, err := GetTypeDefinition(handle, "Acme.Widget")
	require.Error(t, err)
	assert.True(t, cerrors.IsCode(err, cerrors.CodeLoadError))
}

func TestModelSurvivesHandleClose(t *testing.T) {
	handle := openModule(t,
		&providertest.Type{Full: "Acme.Widget",
			BaseRef: &provider.TypeRef{FullName: "System.Object"},
			Meths:   []provider.MethodFact{{Name: "Run", Returns: expr("System.Void")}}},
	)

	tm, err := GetTypeDefinition(handle, "Acme.Widget")
	require.NoError(t, err)
	require.NoError(t, handle.Close())

	assert.Equal(t, "Acme.Widget", tm.FullName)
	require.Len(t, tm.Methods, 1)
	assert.Equal(t, "void Run()", tm.Methods[0].Signature)
}
