// Package signature renders the canonical text form of types and members.
// The formatted string doubles as the member's identity during diffing, so
// every rule here must be order-stable and deterministic: two members are
// the same member iff their formatted signatures are byte-equal.
package signature

import (
	"fmt"
	"strings"

	"surface/internal/engine/provider"
)

// shortNames maps platform primitive type names to their short keyword form.
var shortNames = map[string]string{
	"System.Void":    "void",
	"System.Object":  "object",
	"System.String":  "string",
	"System.Boolean": "bool",
	"System.Char":    "char",
	"System.Byte":    "byte",
	"System.SByte":   "sbyte",
	"System.Int16":   "short",
	"System.UInt16":  "ushort",
	"System.Int32":   "int",
	"System.UInt32":  "uint",
	"System.Int64":   "long",
	"System.UInt64":  "ulong",
	"System.Single":  "float",
	"System.Double":  "double",
	"System.Decimal": "decimal",
}

const nullableWrapper = "System.Nullable`1"

// StripArity removes a trailing backtick arity marker ("List`1" -> "List").
func StripArity(name string) string {
	if i := strings.IndexByte(name, '`'); i >= 0 {
		return name[:i]
	}
	return name
}

// SimpleName reduces a namespace-qualified name to its final segment, with
// the arity marker stripped.
func SimpleName(full string) string {
	name := StripArity(full)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// TypeExpr renders one structured type reference.
func TypeExpr(t provider.TypeExpr) string {
	if t.Name == nullableWrapper && len(t.Args) == 1 {
		inner := t.Args[0]
		inner.Nullable = true
		inner.ArrayRank = t.ArrayRank
		return TypeExpr(inner)
	}

	var b strings.Builder
	if short, ok := shortNames[t.Name]; ok {
		b.WriteString(short)
	} else {
		b.WriteString(SimpleName(t.Name))
	}
	if len(t.Args) > 0 {
		b.WriteByte('<')
		for i, arg := range t.Args {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(TypeExpr(arg))
		}
		b.WriteByte('>')
	}
	if t.Nullable {
		b.WriteByte('?')
	}
	if t.ArrayRank > 0 {
		b.WriteByte('[')
		b.WriteString(strings.Repeat(",", t.ArrayRank-1))
		b.WriteByte(']')
	}
	return b.String()
}

// Literal renders a default-value literal in language form.
func Literal(l provider.Literal) string {
	switch l.Kind {
	case provider.LiteralString:
		return fmt.Sprintf("%q", l.Value)
	case provider.LiteralChar:
		return "'" + l.Value + "'"
	case provider.LiteralBool, provider.LiteralNumber:
		return l.Value
	case provider.LiteralNull:
		return "null"
	case provider.LiteralEnum:
		// Type.Member form: keep the last two segments.
		parts := strings.Split(l.Value, ".")
		if len(parts) > 2 {
			parts = parts[len(parts)-2:]
		}
		return strings.Join(parts, ".")
	default:
		return l.Value
	}
}

// Param renders one parameter with its pass-by prefix and optional default.
func Param(p provider.Param) string {
	var b strings.Builder
	if p.Mode != provider.ModeByValue {
		b.WriteString(string(p.Mode))
		b.WriteByte(' ')
	}
	if p.Variadic {
		b.WriteString("params ")
	}
	b.WriteString(TypeExpr(p.Type))
	if p.Name != "" {
		b.WriteByte(' ')
		b.WriteString(p.Name)
	}
	if p.Optional && p.Default != nil {
		b.WriteString(" = ")
		b.WriteString(Literal(*p.Default))
	}
	return b.String()
}

func paramList(params []provider.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = Param(p)
	}
	return strings.Join(parts, ", ")
}

// GenericParams renders "<T, U>" or "" for non-generic members.
func GenericParams(params []provider.GenericParam) string {
	if len(params) == 0 {
		return ""
	}
	names := make([]string, len(params))
	for i, gp := range params {
		names[i] = gp.Name
	}
	return "<" + strings.Join(names, ", ") + ">"
}

// Method renders a method signature. override is supplied by the model
// builder; it replaces the raw virtual flag in the rendered form.
func Method(m provider.MethodFact, override bool) string {
	var b strings.Builder
	if m.Static {
		b.WriteString("static ")
	}
	switch {
	case m.Abstract:
		b.WriteString("abstract ")
	case override && m.Final:
		b.WriteString("sealed override ")
	case override:
		b.WriteString("override ")
	case m.Virtual && !m.Final:
		b.WriteString("virtual ")
	}
	b.WriteString(TypeExpr(m.Returns))
	b.WriteByte(' ')
	b.WriteString(m.Name)
	b.WriteString(GenericParams(m.GenericParams))
	b.WriteByte('(')
	b.WriteString(paramList(m.Params))
	b.WriteByte(')')
	return b.String()
}

// Constructor renders a constructor using the declaring type's simple name.
func Constructor(typeName string, m provider.MethodFact) string {
	var b strings.Builder
	if m.Static {
		b.WriteString("static ")
	}
	b.WriteString(SimpleName(typeName))
	b.WriteByte('(')
	b.WriteString(paramList(m.Params))
	b.WriteByte(')')
	return b.String()
}

// Property renders a property with its accessor list.
func Property(p provider.PropertyFact, override bool) string {
	var b strings.Builder
	if p.Static {
		b.WriteString("static ")
	}
	switch {
	case p.Abstract:
		b.WriteString("abstract ")
	case override:
		b.WriteString("override ")
	case p.Virtual && !p.Final:
		b.WriteString("virtual ")
	}
	b.WriteString(TypeExpr(p.Type))
	b.WriteByte(' ')
	b.WriteString(p.Name)
	b.WriteString(" {")
	if p.Gettable {
		b.WriteString(" get;")
	}
	if p.Settable {
		b.WriteString(" set;")
	}
	b.WriteString(" }")
	return b.String()
}

// Field renders a field, including the constant value when it is readable.
func Field(f provider.FieldFact) string {
	var b strings.Builder
	switch {
	case f.Constant:
		b.WriteString("const ")
	case f.Static && f.ReadOnly:
		b.WriteString("static readonly ")
	case f.Static:
		b.WriteString("static ")
	case f.ReadOnly:
		b.WriteString("readonly ")
	}
	b.WriteString(TypeExpr(f.Type))
	b.WriteByte(' ')
	b.WriteString(f.Name)
	if f.Constant && f.ConstValue != nil {
		b.WriteString(" = ")
		b.WriteString(Literal(*f.ConstValue))
	}
	return b.String()
}

// Event renders an event declaration.
func Event(e provider.EventFact) string {
	var b strings.Builder
	if e.Static {
		b.WriteString("static ")
	}
	b.WriteString("event ")
	b.WriteString(TypeExpr(e.Type))
	b.WriteByte(' ')
	b.WriteString(e.Name)
	return b.String()
}

// TypeHeader renders the one-line declaration form of a type: modifiers,
// kind keyword, generic parameters, then base type and interfaces. The diff
// engine compares headers to catch kind and modifier changes.
func TypeHeader(modifier, kind, fullName string, generics []provider.GenericParam, base string, interfaces []string) string {
	var b strings.Builder
	if modifier != "" {
		b.WriteString(modifier)
		b.WriteByte(' ')
	}
	b.WriteString(kind)
	b.WriteByte(' ')
	b.WriteString(SimpleName(fullName))
	b.WriteString(GenericParams(generics))
	bases := make([]string, 0, len(interfaces)+1)
	if base != "" {
		bases = append(bases, SimpleName(base))
	}
	for _, iface := range interfaces {
		bases = append(bases, SimpleName(iface))
	}
	if len(bases) > 0 {
		b.WriteString(" : ")
		b.WriteString(strings.Join(bases, ", "))
	}
	return b.String()
}

// ParamTypes renders only the parameter type sequence of a method, used by
// the override heuristic to match base declarations.
func ParamTypes(params []provider.Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = TypeExpr(p.Type)
	}
	return strings.Join(parts, ",")
}
