package diff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"surface/internal/engine/model"
	"surface/internal/engine/provider"
	"surface/internal/engine/provider/providertest"
)

func expr(name string) provider.TypeExpr {
	return provider.TypeExpr{Name: name}
}

func buildModels(t *testing.T, types ...*providertest.Type) map[string]*model.TypeModel {
	t.Helper()
	p := providertest.New()
	p.Add("/mod", "Acme.Widgets", types...)
	h, err := p.Open("/mod", nil)
	require.NoError(t, err)
	defer h.Close()
	models, err := model.BuildAll(h)
	require.NoError(t, err)
	return models
}

func classType(full string, meths ...provider.MethodFact) *providertest.Type {
	return &providertest.Type{
		Full:    full,
		BaseRef: &provider.TypeRef{FullName: "System.Object"},
		Meths:   meths,
	}
}

func TestCompareIsReflexive(t *testing.T) {
	m := buildModels(t,
		classType("Acme.Widget",
			provider.MethodFact{Name: "Bar", Returns: expr("System.Void")}),
		&providertest.Type{Full: "Acme.Color", Enum: true,
			Flds: []provider.FieldFact{{Name: "Red", Static: true, Constant: true,
				Type: expr("Acme.Color"), ConstValue: &provider.Literal{Kind: provider.LiteralNumber, Value: "1"}}}},
	)

	changes := Compare(m, m)
	assert.Empty(t, changes)
	assert.Equal(t, Summary{}, Summarize(changes))
}

func TestRemovedTypeIsOneBreakingChange(t *testing.T) {
	v1 := buildModels(t,
		classType("Acme.Foo", provider.MethodFact{Name: "Bar", Returns: expr("System.Void")}),
		classType("Acme.Keeper"),
	)
	v2 := buildModels(t, classType("Acme.Keeper"))

	changes := Compare(v1, v2)
	require.Len(t, changes, 1, "the whole type is reported, not its members")
	c := changes[0]
	assert.Equal(t, Removed, c.Kind)
	assert.Equal(t, CategoryType, c.Category)
	assert.Equal(t, "Acme.Foo", c.TypeName)
	assert.True(t, c.Breaking)
	assert.Empty(t, c.NewSignature)
}

func TestAddedTypeIsNeverBreaking(t *testing.T) {
	v1 := buildModels(t, classType("Acme.Keeper"))
	v2 := buildModels(t, classType("Acme.Keeper"), classType("Acme.Fresh"))

	changes := Compare(v1, v2)
	require.Len(t, changes, 1)
	assert.Equal(t, Added, changes[0].Kind)
	assert.False(t, changes[0].Breaking)
	assert.Empty(t, changes[0].OldSignature)
}

func TestNoTypeAppearsAsBothAddedAndRemoved(t *testing.T) {
	v1 := buildModels(t, classType("Acme.A"), classType("Acme.B"))
	v2 := buildModels(t, classType("Acme.B"), classType("Acme.C"))

	changes := Compare(v1, v2)
	added := map[string]bool{}
	removed := map[string]bool{}
	for _, c := range changes {
		switch c.Kind {
		case Added:
			added[c.TypeName] = true
		case Removed:
			removed[c.TypeName] = true
		}
	}
	for name := range added {
		assert.False(t, removed[name], "%s appears in both sets", name)
	}
}

func TestAddedOverloadIsOneAddedMethod(t *testing.T) {
	compute := provider.MethodFact{Name: "Compute", Returns: expr("System.Int32"),
		Params: []provider.Param{{Name: "value", Type: expr("System.Int32")}}}
	overload := provider.MethodFact{Name: "Compute", Returns: expr("System.Int32"),
		Params: []provider.Param{{Name: "value", Type: expr("System.Int64")}}}

	v1 := buildModels(t, classType("Acme.Widget", compute))
	v2 := buildModels(t, classType("Acme.Widget", compute, overload))

	changes := Compare(v1, v2)
	require.Len(t, changes, 1)
	assert.Equal(t, Added, changes[0].Kind)
	assert.Equal(t, CategoryMethod, changes[0].Category)
	assert.Equal(t, "int Compute(long value)", changes[0].NewSignature)
}

func TestChangedParameterTypeIsRemovePlusAdd(t *testing.T) {
	v1 := buildModels(t, classType("Acme.Widget",
		provider.MethodFact{Name: "Compute", Returns: expr("System.Void"),
			Params: []provider.Param{{Name: "value", Type: expr("System.Int32")}}}))
	v2 := buildModels(t, classType("Acme.Widget",
		provider.MethodFact{Name: "Compute", Returns: expr("System.Void"),
			Params: []provider.Param{{Name: "value", Type: expr("System.String")}}}))

	changes := Compare(v1, v2)
	require.Len(t, changes, 2, "signature-keyed, not name-merged into Modified")

	assert.Equal(t, Removed, changes[0].Kind)
	assert.Equal(t, "void Compute(int value)", changes[0].OldSignature)
	assert.True(t, changes[0].Breaking)

	assert.Equal(t, Added, changes[1].Kind)
	assert.Equal(t, "void Compute(string value)", changes[1].NewSignature)
	assert.False(t, changes[1].Breaking)
}

func TestChangedPropertyTypeIsOneModified(t *testing.T) {
	withValue := func(typeName string) *providertest.Type {
		return &providertest.Type{
			Full:    "Acme.Thing",
			BaseRef: &provider.TypeRef{FullName: "System.Object"},
			Props: []provider.PropertyFact{{Name: "Value", Type: expr(typeName),
				Gettable: true, Settable: true}},
		}
	}
	v1 := buildModels(t, withValue("System.Int32"))
	v2 := buildModels(t, withValue("System.Int64"))

	changes := Compare(v1, v2)
	require.Len(t, changes, 1)
	c := changes[0]
	assert.Equal(t, Modified, c.Kind)
	assert.Equal(t, CategoryProperty, c.Category)
	assert.True(t, c.Breaking)
	assert.Contains(t, c.OldSignature, "int")
	assert.Contains(t, c.NewSignature, "long")
}

func TestSealedModifierChangeIsTypeLevelBreaking(t *testing.T) {
	open := classType("Acme.Widget", provider.MethodFact{Name: "Run", Returns: expr("System.Void")})
	sealed := classType("Acme.Widget", provider.MethodFact{Name: "Run", Returns: expr("System.Void")})
	sealed.Sealed = true

	changes := Compare(buildModels(t, open), buildModels(t, sealed))
	require.Len(t, changes, 1)
	c := changes[0]
	assert.Equal(t, Modified, c.Kind)
	assert.Equal(t, CategoryType, c.Category)
	assert.True(t, c.Breaking)
	assert.Equal(t, "class Widget", c.OldSignature)
	assert.Equal(t, "sealed class Widget", c.NewSignature)
}

func TestEnumValueChanges(t *testing.T) {
	enum := func(values map[string]string) *providertest.Type {
		et := &providertest.Type{Full: "Acme.Color", Enum: true}
		for name, value := range values {
			et.Flds = append(et.Flds, provider.FieldFact{Name: name, Static: true, Constant: true,
				Type: expr("Acme.Color"), ConstValue: &provider.Literal{Kind: provider.LiteralNumber, Value: value}})
		}
		return et
	}

	v1 := buildModels(t, enum(map[string]string{"Red": "0", "Green": "1"}))
	v2 := buildModels(t, enum(map[string]string{"Red": "0", "Green": "2", "Blue": "3"}))

	changes := Compare(v1, v2)
	require.Len(t, changes, 2)

	summary := Summarize(changes)
	assert.Equal(t, 1, summary.Added)
	assert.Equal(t, 1, summary.Modified)
	assert.Equal(t, 1, summary.Breaking)
}

func TestEventAndFieldFollowNameKeyedRule(t *testing.T) {
	v1 := buildModels(t, &providertest.Type{
		Full:    "Acme.Widget",
		BaseRef: &provider.TypeRef{FullName: "System.Object"},
		Flds:    []provider.FieldFact{{Name: "Count", Type: expr("System.Int32")}},
		Evts:    []provider.EventFact{{Name: "Changed", Type: expr("System.EventHandler")}},
	})
	v2 := buildModels(t, &providertest.Type{
		Full:    "Acme.Widget",
		BaseRef: &provider.TypeRef{FullName: "System.Object"},
		Flds:    []provider.FieldFact{{Name: "Count", Type: expr("System.Int64")}},
	})

	changes := Compare(v1, v2)
	require.Len(t, changes, 2)

	byCategory := map[Category]ApiChange{}
	for _, c := range changes {
		byCategory[c.Category] = c
	}
	assert.Equal(t, Modified, byCategory[CategoryField].Kind)
	assert.Equal(t, Removed, byCategory[CategoryEvent].Kind)
	assert.True(t, byCategory[CategoryEvent].Breaking)
}
