// Package provider defines the narrow contract between the inspection core
// and the platform-specific module metadata readers. The cache, model builder
// and diff engine consume module metadata exclusively through these
// interfaces; one production implementation exists per module format.
package provider

// TypeRef names a type that may be defined in another module. Module is the
// simple name of the defining module; empty means "same module as the
// referrer". Resolution against the dependency search set happens in
// ModuleHandle.Resolve.
type TypeRef struct {
	FullName string
	Module   string
}

// TypeExpr is a structured type reference as it appears in a member
// signature. Name carries the namespace-qualified (or primitive) type name,
// with the backtick arity marker still attached for generic definitions.
type TypeExpr struct {
	Name      string
	Args      []TypeExpr
	ArrayRank int  // 0 = not an array, N = rank-N array
	Nullable  bool // nullable value wrapper
}

// ParamMode is the pass-by modifier of a parameter.
type ParamMode string

const (
	ModeByValue ParamMode = ""
	ModeRef     ParamMode = "ref"
	ModeIn      ParamMode = "in"
	ModeOut     ParamMode = "out"
)

// LiteralKind classifies a compile-time constant for rendering.
type LiteralKind string

const (
	LiteralString LiteralKind = "string"
	LiteralChar   LiteralKind = "char"
	LiteralBool   LiteralKind = "bool"
	LiteralNumber LiteralKind = "number"
	LiteralEnum   LiteralKind = "enum" // Value holds "Type.Member"
	LiteralNull   LiteralKind = "null"
)

type Literal struct {
	Kind  LiteralKind
	Value string
}

type Param struct {
	Name     string
	Type     TypeExpr
	Mode     ParamMode
	Variadic bool // params-array parameter
	Optional bool
	Default  *Literal
}

// GenericParam describes one generic parameter and its constraints.
// Constraints holds explicit base-type/interface constraints; the universal
// value-type marker is filtered out by the model builder since it is
// redundant with ValueConstraint.
type GenericParam struct {
	Name            string
	RefConstraint   bool
	ValueConstraint bool
	CtorConstraint  bool
	Constraints     []TypeExpr
}

type MethodFact struct {
	Name          string
	Static        bool
	Abstract      bool
	Virtual       bool
	Final         bool
	Returns       TypeExpr
	Params        []Param
	GenericParams []GenericParam
}

type PropertyFact struct {
	Name     string
	Static   bool
	Abstract bool
	Virtual  bool
	Final    bool
	Type     TypeExpr
	Gettable bool
	Settable bool
}

type FieldFact struct {
	Name       string
	Static     bool
	Constant   bool // compile-time literal field
	ReadOnly   bool
	Type       TypeExpr
	ConstValue *Literal // set when the constant could be read
}

type EventFact struct {
	Name   string
	Static bool
	Type   TypeExpr
}

// TypeHandle exposes the structural facts of one exported type, sufficient
// for the model builder to classify its kind and extract its members. A
// handle stays valid only while its ModuleHandle is open.
type TypeHandle interface {
	FullName() string // namespace-qualified, arity marker attached
	Namespace() string
	IsInterface() bool
	IsValueType() bool
	IsEnum() bool
	IsAbstract() bool
	IsSealed() bool
	// Base returns the base-type reference, absent for interfaces, enums
	// reported without an explicit base, and root types.
	Base() (TypeRef, bool)
	// Interfaces returns the full reachable interface closure as the
	// platform reports it.
	Interfaces() []TypeRef
	GenericParams() []GenericParam
	Constructors() []MethodFact
	Methods() []MethodFact
	Properties() []PropertyFact
	Fields() []FieldFact
	Events() []EventFact
}

// ModuleHandle is a heavyweight open-module resource owned by the metadata
// cache. Resolve follows the dependency search set the module was opened
// with; it fails with a LOAD_ERROR when the defining module of a reference
// cannot be discovered.
type ModuleHandle interface {
	Name() string // simple module name
	Path() string
	ExportedTypes() ([]TypeHandle, error)
	Resolve(ref TypeRef) (TypeHandle, error)
	Close() error
}

// MetadataProvider opens module files. Open fails with a LOAD_ERROR when the
// file is not a valid module or a required dependency cannot be resolved.
type MetadataProvider interface {
	CanOpen(path string) bool
	Open(path string, searchPaths []string) (ModuleHandle, error)
}

// DelegateMarkers are the foundational base-type names whose presence in a
// base-type chain classifies a type as a delegate.
var DelegateMarkers = map[string]bool{
	"System.Delegate":          true,
	"System.MulticastDelegate": true,
}

// RootMarkers terminate base-type chain walks. They belong to the host
// runtime and are never required to be resolvable from the dependency
// search set.
var RootMarkers = map[string]bool{
	"System.Object":    true,
	"System.ValueType": true,
	"System.Enum":      true,
}

// ValueTypeMarker is the universal value-type constraint; it is implied by
// GenericParam.ValueConstraint and dropped from explicit constraint lists.
const ValueTypeMarker = "System.ValueType"
