package source

import (
	"surface/internal/engine/provider"
)

// typeFact is the provider.TypeHandle built up by the extractors.
type typeFact struct {
	fullName  string
	namespace string
	iface     bool
	valueType bool
	enum      bool
	abstract  bool
	sealed    bool

	base       *provider.TypeRef
	interfaces []provider.TypeRef
	generics   []provider.GenericParam
	ctors      []provider.MethodFact
	methods    []provider.MethodFact
	properties []provider.PropertyFact
	fields     []provider.FieldFact
	events     []provider.EventFact
}

func (t *typeFact) FullName() string  { return t.fullName }
func (t *typeFact) Namespace() string { return t.namespace }
func (t *typeFact) IsInterface() bool { return t.iface }
func (t *typeFact) IsValueType() bool { return t.valueType }
func (t *typeFact) IsEnum() bool      { return t.enum }
func (t *typeFact) IsAbstract() bool  { return t.abstract }
func (t *typeFact) IsSealed() bool    { return t.sealed }

func (t *typeFact) Base() (provider.TypeRef, bool) {
	if t.base == nil {
		return provider.TypeRef{}, false
	}
	return *t.base, true
}

func (t *typeFact) Interfaces() []provider.TypeRef         { return t.interfaces }
func (t *typeFact) GenericParams() []provider.GenericParam { return t.generics }
func (t *typeFact) Constructors() []provider.MethodFact    { return t.ctors }
func (t *typeFact) Methods() []provider.MethodFact         { return t.methods }
func (t *typeFact) Properties() []provider.PropertyFact    { return t.properties }
func (t *typeFact) Fields() []provider.FieldFact           { return t.fields }
func (t *typeFact) Events() []provider.EventFact           { return t.events }
