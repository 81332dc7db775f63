// Package model turns raw per-module metadata into owned, self-contained
// type/member records. Everything here is copied out of the provider handle
// during extraction; a built TypeModel carries no reference back to the
// handle and stays valid after the source module is evicted from the cache.
package model

type TypeKind string

const (
	KindClass     TypeKind = "class"
	KindInterface TypeKind = "interface"
	KindStruct    TypeKind = "struct"
	KindEnum      TypeKind = "enum"
	KindDelegate  TypeKind = "delegate"
)

// ParseKind validates a user-supplied kind filter token.
func ParseKind(s string) (TypeKind, bool) {
	switch TypeKind(s) {
	case KindClass, KindInterface, KindStruct, KindEnum, KindDelegate:
		return TypeKind(s), true
	}
	return "", false
}

// TypeSummary is the listing row for one exported type.
type TypeSummary struct {
	FullName  string   `json:"full_name"`
	Name      string   `json:"name"`
	Namespace string   `json:"namespace,omitempty"`
	Kind      TypeKind `json:"kind"`
	Static    bool     `json:"static,omitempty"`
}

// GenericParamModel records one generic parameter with its constraint set.
type GenericParamModel struct {
	Name            string   `json:"name"`
	RefConstraint   bool     `json:"class_constraint,omitempty"`
	ValueConstraint bool     `json:"struct_constraint,omitempty"`
	CtorConstraint  bool     `json:"new_constraint,omitempty"`
	Constraints     []string `json:"constraints,omitempty"`
}

// ParamModel is one rendered parameter of a method or constructor.
type ParamModel struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Mode     string `json:"mode,omitempty"`
	Variadic bool   `json:"variadic,omitempty"`
	Optional bool   `json:"optional,omitempty"`
	Default  string `json:"default,omitempty"`
}

// MemberModel is one extracted member. Signature is the canonical formatted
// form and is the member's identity for diffing; overloads are distinct
// entities because their signatures differ.
type MemberModel struct {
	Name      string       `json:"name"`
	Signature string       `json:"signature"`
	Static    bool         `json:"static,omitempty"`
	Abstract  bool         `json:"abstract,omitempty"`
	Virtual   bool         `json:"virtual,omitempty"`
	Override  bool         `json:"override,omitempty"`
	Sealed    bool         `json:"sealed,omitempty"`
	Params    []ParamModel `json:"params,omitempty"`
}

// EnumValueModel is one enum member with its constant reinterpreted as a
// 64-bit integer.
type EnumValueModel struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// TypeModel is the full definition of one exported type. Immutable once
// built; Kind is computed from structural facts and never user-supplied.
type TypeModel struct {
	FullName      string              `json:"full_name"`
	Name          string              `json:"name"`
	Namespace     string              `json:"namespace,omitempty"`
	Kind          TypeKind            `json:"kind"`
	Static        bool                `json:"static,omitempty"` // abstract + sealed
	Abstract      bool                `json:"abstract,omitempty"`
	Sealed        bool                `json:"sealed,omitempty"`
	Header        string              `json:"header"`
	GenericParams []GenericParamModel `json:"generic_params,omitempty"`
	BaseType      string              `json:"base_type,omitempty"`
	Interfaces    []string            `json:"interfaces,omitempty"`
	Constructors  []MemberModel       `json:"constructors,omitempty"`
	Methods       []MemberModel       `json:"methods,omitempty"`
	Properties    []MemberModel       `json:"properties,omitempty"`
	Fields        []MemberModel       `json:"fields,omitempty"`
	Events        []MemberModel       `json:"events,omitempty"`
	EnumValues    []EnumValueModel    `json:"enum_values,omitempty"`
}
