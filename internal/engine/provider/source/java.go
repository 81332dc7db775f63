package source

import (
	"strconv"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"surface/internal/engine/provider"
)

// javaPrimitives maps Java type names onto the platform primitive names the
// formatter renders in short form.
var javaPrimitives = map[string]string{
	"void":             "System.Void",
	"boolean":          "System.Boolean",
	"byte":             "System.Byte",
	"short":            "System.Int16",
	"int":              "System.Int32",
	"long":             "System.Int64",
	"char":             "System.Char",
	"float":            "System.Single",
	"double":           "System.Double",
	"String":           "System.String",
	"java.lang.String": "System.String",
	"Object":           "System.Object",
	"java.lang.Object": "System.Object",
}

// javaExtractor reads the public API surface of one Java compilation unit.
// Only public types and public members are reported; instance methods that
// are neither static nor final count as virtual, matching the language's
// dispatch rules.
type javaExtractor struct{}

func (e *javaExtractor) extract(root *sitter.Node, src []byte) ([]*typeFact, string, error) {
	ctx := &walkContext{source: src}
	w := newWalker(map[string]nodeHandler{
		"package_declaration":   e.extractPackage,
		"class_declaration":     e.extractClass,
		"interface_declaration": e.extractInterface,
		"enum_declaration":      e.extractEnum,
	})
	w.walk(ctx, root)
	return ctx.types, ctx.namespace, nil
}

func (e *javaExtractor) extractPackage(ctx *walkContext, node *sitter.Node) bool {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "scoped_identifier" || child.Kind() == "identifier" {
			ctx.namespace = ctx.text(child)
		}
	}
	return true
}

func (e *javaExtractor) extractClass(ctx *walkContext, node *sitter.Node) bool {
	mods := e.modifiers(ctx, node)
	if !mods["public"] {
		return true
	}

	name := ctx.fieldText(node, "name")
	fact := &typeFact{
		fullName:  qualify(ctx.namespace, name),
		namespace: ctx.namespace,
		abstract:  mods["abstract"],
		sealed:    mods["final"],
		generics:  e.typeParams(ctx, node),
	}

	if super := node.ChildByFieldName("superclass"); super != nil {
		for i := uint(0); i < super.ChildCount(); i++ {
			child := super.Child(i)
			if child.Kind() != "extends" {
				ref := e.typeRef(ctx, child)
				fact.base = &ref
			}
		}
	}
	fact.interfaces = e.interfaceList(ctx, node, "interfaces")

	e.extractBody(ctx, node.ChildByFieldName("body"), fact)
	ctx.types = append(ctx.types, fact)
	return true
}

func (e *javaExtractor) extractInterface(ctx *walkContext, node *sitter.Node) bool {
	mods := e.modifiers(ctx, node)
	if !mods["public"] {
		return true
	}

	name := ctx.fieldText(node, "name")
	fact := &typeFact{
		fullName:  qualify(ctx.namespace, name),
		namespace: ctx.namespace,
		iface:     true,
		abstract:  true,
		generics:  e.typeParams(ctx, node),
	}

	// extends on an interface lists super-interfaces
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "extends_interfaces" {
			fact.interfaces = e.refsFromTypeList(ctx, child)
		}
	}

	e.extractBody(ctx, node.ChildByFieldName("body"), fact)
	// interface methods are abstract by default
	for i := range fact.methods {
		if !fact.methods[i].Static {
			fact.methods[i].Abstract = true
			fact.methods[i].Virtual = false
		}
	}
	ctx.types = append(ctx.types, fact)
	return true
}

func (e *javaExtractor) extractEnum(ctx *walkContext, node *sitter.Node) bool {
	mods := e.modifiers(ctx, node)
	if !mods["public"] {
		return true
	}

	name := ctx.fieldText(node, "name")
	fact := &typeFact{
		fullName:  qualify(ctx.namespace, name),
		namespace: ctx.namespace,
		enum:      true,
		valueType: true,
		sealed:    true,
	}

	body := node.ChildByFieldName("body")
	if body != nil {
		ordinal := int64(0)
		for i := uint(0); i < body.ChildCount(); i++ {
			child := body.Child(i)
			if child.Kind() != "enum_constant" {
				continue
			}
			fact.fields = append(fact.fields, provider.FieldFact{
				Name:       ctx.fieldText(child, "name"),
				Static:     true,
				Constant:   true,
				Type:       provider.TypeExpr{Name: fact.fullName},
				ConstValue: &provider.Literal{Kind: provider.LiteralNumber, Value: strconv.FormatInt(ordinal, 10)},
			})
			ordinal++
		}
	}
	ctx.types = append(ctx.types, fact)
	return true
}

func (e *javaExtractor) extractBody(ctx *walkContext, body *sitter.Node, fact *typeFact) {
	if body == nil {
		return
	}
	for i := uint(0); i < body.ChildCount(); i++ {
		child := body.Child(i)
		switch child.Kind() {
		case "method_declaration":
			e.extractMethod(ctx, child, fact)
		case "constructor_declaration":
			e.extractConstructor(ctx, child, fact)
		case "field_declaration":
			e.extractField(ctx, child, fact)
		}
	}
}

func (e *javaExtractor) extractMethod(ctx *walkContext, node *sitter.Node, fact *typeFact) {
	mods := e.modifiers(ctx, node)
	if !mods["public"] && !fact.iface {
		return
	}

	m := provider.MethodFact{
		Name:          ctx.fieldText(node, "name"),
		Static:        mods["static"],
		Abstract:      mods["abstract"],
		Final:         mods["final"],
		Returns:       e.typeExpr(ctx, node.ChildByFieldName("type")),
		Params:        e.params(ctx, node.ChildByFieldName("parameters")),
		GenericParams: e.typeParams(ctx, node),
	}
	// non-static, non-final instance methods dispatch virtually
	if !m.Static && !m.Final && !m.Abstract && !fact.sealed {
		m.Virtual = true
	}
	fact.methods = append(fact.methods, m)
}

func (e *javaExtractor) extractConstructor(ctx *walkContext, node *sitter.Node, fact *typeFact) {
	mods := e.modifiers(ctx, node)
	if !mods["public"] {
		return
	}
	fact.ctors = append(fact.ctors, provider.MethodFact{
		Name:   ctx.fieldText(node, "name"),
		Params: e.params(ctx, node.ChildByFieldName("parameters")),
	})
}

func (e *javaExtractor) extractField(ctx *walkContext, node *sitter.Node, fact *typeFact) {
	mods := e.modifiers(ctx, node)
	if !mods["public"] {
		return
	}

	fieldType := e.typeExpr(ctx, node.ChildByFieldName("type"))
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "variable_declarator" {
			continue
		}
		f := provider.FieldFact{
			Name:     ctx.fieldText(child, "name"),
			Static:   mods["static"],
			ReadOnly: mods["final"],
			Type:     fieldType,
		}
		// static final fields with a literal initializer are constants
		if mods["static"] && mods["final"] {
			if lit := e.literal(ctx, child.ChildByFieldName("value")); lit != nil {
				f.Constant = true
				f.ConstValue = lit
			}
		}
		fact.fields = append(fact.fields, f)
	}
}

// literal reads a field initializer when it is a compile-time literal.
func (e *javaExtractor) literal(ctx *walkContext, node *sitter.Node) *provider.Literal {
	if node == nil {
		return nil
	}
	text := ctx.text(node)
	switch node.Kind() {
	case "string_literal":
		return &provider.Literal{Kind: provider.LiteralString, Value: strings.Trim(text, "\"")}
	case "character_literal":
		return &provider.Literal{Kind: provider.LiteralChar, Value: strings.Trim(text, "'")}
	case "decimal_integer_literal", "hex_integer_literal", "octal_integer_literal",
		"binary_integer_literal", "decimal_floating_point_literal", "hex_floating_point_literal":
		return &provider.Literal{Kind: provider.LiteralNumber, Value: text}
	case "true", "false":
		return &provider.Literal{Kind: provider.LiteralBool, Value: text}
	case "null_literal":
		return &provider.Literal{Kind: provider.LiteralNull, Value: "null"}
	}
	return nil
}

func (e *javaExtractor) modifiers(ctx *walkContext, node *sitter.Node) map[string]bool {
	mods := make(map[string]bool)
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "modifiers" {
			continue
		}
		for j := uint(0); j < child.ChildCount(); j++ {
			mods[child.Child(j).Kind()] = true
		}
	}
	return mods
}

func (e *javaExtractor) typeParams(ctx *walkContext, node *sitter.Node) []provider.GenericParam {
	tp := node.ChildByFieldName("type_parameters")
	if tp == nil {
		for i := uint(0); i < node.ChildCount(); i++ {
			if node.Child(i).Kind() == "type_parameters" {
				tp = node.Child(i)
			}
		}
	}
	if tp == nil {
		return nil
	}
	var out []provider.GenericParam
	for i := uint(0); i < tp.ChildCount(); i++ {
		child := tp.Child(i)
		if child.Kind() != "type_parameter" {
			continue
		}
		gp := provider.GenericParam{Name: ctx.childText(child, "type_identifier")}
		for j := uint(0); j < child.ChildCount(); j++ {
			bound := child.Child(j)
			if bound.Kind() != "type_bound" {
				continue
			}
			for k := uint(0); k < bound.ChildCount(); k++ {
				b := bound.Child(k)
				if b.Kind() == "extends" {
					continue
				}
				if expr := e.typeExpr(ctx, b); expr.Name != "" {
					gp.Constraints = append(gp.Constraints, expr)
				}
			}
		}
		out = append(out, gp)
	}
	return out
}

func (e *javaExtractor) params(ctx *walkContext, node *sitter.Node) []provider.Param {
	if node == nil {
		return nil
	}
	var out []provider.Param
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "formal_parameter":
			out = append(out, provider.Param{
				Name: ctx.fieldText(child, "name"),
				Type: e.typeExpr(ctx, child.ChildByFieldName("type")),
			})
		case "spread_parameter":
			// varargs: the declared element type, passed variadically
			p := provider.Param{Variadic: true}
			for j := uint(0); j < child.ChildCount(); j++ {
				sub := child.Child(j)
				switch sub.Kind() {
				case "variable_declarator":
					p.Name = ctx.fieldText(sub, "name")
					if p.Name == "" {
						p.Name = ctx.text(sub)
					}
				case "...":
				default:
					if expr := e.typeExpr(ctx, sub); expr.Name != "" && p.Type.Name == "" {
						p.Type = expr
					}
				}
			}
			p.Type.ArrayRank++
			out = append(out, p)
		}
	}
	return out
}

func (e *javaExtractor) typeRef(ctx *walkContext, node *sitter.Node) provider.TypeRef {
	expr := e.typeExpr(ctx, node)
	return provider.TypeRef{FullName: expr.Name}
}

func (e *javaExtractor) interfaceList(ctx *walkContext, node *sitter.Node, field string) []provider.TypeRef {
	list := node.ChildByFieldName(field)
	if list == nil {
		for i := uint(0); i < node.ChildCount(); i++ {
			if node.Child(i).Kind() == "super_interfaces" {
				list = node.Child(i)
			}
		}
	}
	if list == nil {
		return nil
	}
	return e.refsFromTypeList(ctx, list)
}

func (e *javaExtractor) refsFromTypeList(ctx *walkContext, node *sitter.Node) []provider.TypeRef {
	var out []provider.TypeRef
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for i := uint(0); i < n.ChildCount(); i++ {
			child := n.Child(i)
			switch child.Kind() {
			case "type_list":
				visit(child)
			case "type_identifier", "scoped_type_identifier", "generic_type":
				out = append(out, provider.TypeRef{FullName: e.typeExpr(ctx, child).Name})
			}
		}
	}
	visit(node)
	return out
}

// typeExpr converts a Java type node to the structured form.
func (e *javaExtractor) typeExpr(ctx *walkContext, node *sitter.Node) provider.TypeExpr {
	if node == nil {
		return provider.TypeExpr{}
	}
	switch node.Kind() {
	case "array_type":
		expr := e.typeExpr(ctx, node.ChildByFieldName("element"))
		dims := node.ChildByFieldName("dimensions")
		expr.ArrayRank += strings.Count(ctx.text(dims), "[")
		return expr
	case "generic_type":
		var expr provider.TypeExpr
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			switch child.Kind() {
			case "type_identifier", "scoped_type_identifier":
				expr.Name = javaTypeName(ctx.text(child))
			case "type_arguments":
				for j := uint(0); j < child.ChildCount(); j++ {
					arg := child.Child(j)
					switch arg.Kind() {
					case "type_identifier", "scoped_type_identifier", "generic_type", "array_type",
						"integral_type", "floating_point_type", "boolean_type":
						expr.Args = append(expr.Args, e.typeExpr(ctx, arg))
					case "wildcard":
						expr.Args = append(expr.Args, provider.TypeExpr{Name: ctx.text(arg)})
					}
				}
			}
		}
		return expr
	default:
		return provider.TypeExpr{Name: javaTypeName(ctx.text(node))}
	}
}

func javaTypeName(raw string) string {
	raw = strings.TrimSpace(raw)
	if mapped, ok := javaPrimitives[raw]; ok {
		return mapped
	}
	return raw
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

