package source

import (
	"strings"
	"unicode"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"surface/internal/engine/provider"
)

// goPrimitives maps Go builtin types onto the platform primitive names.
// Untyped int maps to the 64-bit form, matching its size on the platforms
// the tool runs on.
var goPrimitives = map[string]string{
	"string":  "System.String",
	"bool":    "System.Boolean",
	"byte":    "System.Byte",
	"uint8":   "System.Byte",
	"int8":    "System.SByte",
	"int16":   "System.Int16",
	"uint16":  "System.UInt16",
	"int32":   "System.Int32",
	"uint32":  "System.UInt32",
	"int64":   "System.Int64",
	"uint64":  "System.UInt64",
	"int":     "System.Int64",
	"uint":    "System.UInt64",
	"rune":    "System.Char",
	"float32": "System.Single",
	"float64": "System.Double",
	"any":     "System.Object",
}

// funcHolder is the synthetic type that carries a package's top-level
// functions, constants and variables.
const funcHolder = "Functions"

// goExtractor reads the exported API surface of one Go source file.
// Exported struct types become value types, interfaces map directly, and
// package-level functions land on a synthetic static holder type.
type goExtractor struct{}

func (e *goExtractor) extract(root *sitter.Node, src []byte) ([]*typeFact, string, error) {
	ctx := &walkContext{source: src}
	byName := make(map[string]*typeFact)

	w := newWalker(map[string]nodeHandler{
		"package_clause": func(ctx *walkContext, node *sitter.Node) bool {
			ctx.namespace = ctx.childText(node, "package_identifier")
			return true
		},
		"type_declaration": func(ctx *walkContext, node *sitter.Node) bool {
			e.extractTypeDecl(ctx, node, byName)
			return true
		},
		"method_declaration": func(ctx *walkContext, node *sitter.Node) bool {
			e.extractMethod(ctx, node, byName)
			return true
		},
		"function_declaration": func(ctx *walkContext, node *sitter.Node) bool {
			e.extractFunction(ctx, node, byName)
			return true
		},
		"const_declaration": func(ctx *walkContext, node *sitter.Node) bool {
			e.extractConsts(ctx, node, byName)
			return true
		},
		"var_declaration": func(ctx *walkContext, node *sitter.Node) bool {
			e.extractVars(ctx, node, byName)
			return true
		},
	})
	w.walk(ctx, root)
	return ctx.types, ctx.namespace, nil
}

func (e *goExtractor) fact(ctx *walkContext, byName map[string]*typeFact, name string) *typeFact {
	if f, ok := byName[name]; ok {
		return f
	}
	f := &typeFact{fullName: qualify(ctx.namespace, name), namespace: ctx.namespace}
	byName[name] = f
	ctx.types = append(ctx.types, f)
	return f
}

// holder returns the synthetic static type for package-level declarations.
func (e *goExtractor) holder(ctx *walkContext, byName map[string]*typeFact) *typeFact {
	f := e.fact(ctx, byName, funcHolder)
	f.abstract = true
	f.sealed = true
	return f
}

func (e *goExtractor) extractTypeDecl(ctx *walkContext, node *sitter.Node, byName map[string]*typeFact) {
	for i := uint(0); i < node.ChildCount(); i++ {
		spec := node.Child(i)
		if spec.Kind() != "type_spec" && spec.Kind() != "type_alias" {
			continue
		}
		name := ctx.fieldText(spec, "name")
		if !exported(name) {
			continue
		}
		fact := e.fact(ctx, byName, name)
		fact.generics = e.typeParams(ctx, spec.ChildByFieldName("type_parameters"))

		typeNode := spec.ChildByFieldName("type")
		if typeNode == nil {
			continue
		}
		switch typeNode.Kind() {
		case "struct_type":
			fact.valueType = true
			e.extractStructFields(ctx, typeNode, fact)
		case "interface_type":
			fact.iface = true
			fact.abstract = true
			e.extractInterfaceBody(ctx, typeNode, fact)
		case "function_type":
			// defined func types are delegate-shaped
			fact.sealed = true
			fact.base = &provider.TypeRef{FullName: "System.MulticastDelegate"}
			fact.methods = append(fact.methods, provider.MethodFact{
				Name:    "Invoke",
				Returns: e.resultExpr(ctx, typeNode.ChildByFieldName("result")),
				Params:  e.params(ctx, typeNode.ChildByFieldName("parameters")),
			})
		default:
			// other defined types: an opaque sealed class
			fact.sealed = true
		}
	}
}

func (e *goExtractor) extractStructFields(ctx *walkContext, node *sitter.Node, fact *typeFact) {
	list := node.ChildByFieldName("fields")
	if list == nil {
		for i := uint(0); i < node.ChildCount(); i++ {
			if node.Child(i).Kind() == "field_declaration_list" {
				list = node.Child(i)
			}
		}
	}
	if list == nil {
		return
	}
	for i := uint(0); i < list.ChildCount(); i++ {
		decl := list.Child(i)
		if decl.Kind() != "field_declaration" {
			continue
		}
		fieldType := e.typeExpr(ctx, decl.ChildByFieldName("type"))
		for j := uint(0); j < decl.ChildCount(); j++ {
			child := decl.Child(j)
			if child.Kind() != "field_identifier" {
				continue
			}
			name := ctx.text(child)
			if !exported(name) {
				continue
			}
			fact.fields = append(fact.fields, provider.FieldFact{Name: name, Type: fieldType})
		}
	}
}

func (e *goExtractor) extractInterfaceBody(ctx *walkContext, node *sitter.Node, fact *typeFact) {
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		switch child.Kind() {
		case "method_elem", "method_spec":
			name := ctx.fieldText(child, "name")
			if !exported(name) {
				continue
			}
			fact.methods = append(fact.methods, provider.MethodFact{
				Name:     name,
				Abstract: true,
				Returns:  e.resultExpr(ctx, child.ChildByFieldName("result")),
				Params:   e.params(ctx, child.ChildByFieldName("parameters")),
			})
		case "type_identifier", "qualified_type", "type_elem":
			// embedded interface
			name := strings.TrimSpace(ctx.text(child))
			if name != "" && exported(simpleName(name)) {
				fact.interfaces = append(fact.interfaces, provider.TypeRef{FullName: name})
			}
		}
	}
}

func (e *goExtractor) extractMethod(ctx *walkContext, node *sitter.Node, byName map[string]*typeFact) {
	name := ctx.fieldText(node, "name")
	if !exported(name) {
		return
	}
	recv := e.receiverType(ctx, node.ChildByFieldName("receiver"))
	if recv == "" || !exported(recv) {
		return
	}
	fact := e.fact(ctx, byName, recv)
	fact.methods = append(fact.methods, provider.MethodFact{
		Name:          name,
		Returns:       e.resultExpr(ctx, node.ChildByFieldName("result")),
		Params:        e.params(ctx, node.ChildByFieldName("parameters")),
		GenericParams: e.typeParams(ctx, node.ChildByFieldName("type_parameters")),
	})
}

func (e *goExtractor) extractFunction(ctx *walkContext, node *sitter.Node, byName map[string]*typeFact) {
	name := ctx.fieldText(node, "name")
	if !exported(name) {
		return
	}
	holder := e.holder(ctx, byName)
	holder.methods = append(holder.methods, provider.MethodFact{
		Name:          name,
		Static:        true,
		Returns:       e.resultExpr(ctx, node.ChildByFieldName("result")),
		Params:        e.params(ctx, node.ChildByFieldName("parameters")),
		GenericParams: e.typeParams(ctx, node.ChildByFieldName("type_parameters")),
	})
}

func (e *goExtractor) extractConsts(ctx *walkContext, node *sitter.Node, byName map[string]*typeFact) {
	for i := uint(0); i < node.ChildCount(); i++ {
		spec := node.Child(i)
		if spec.Kind() != "const_spec" {
			continue
		}
		constType := e.typeExpr(ctx, spec.ChildByFieldName("type"))
		value := spec.ChildByFieldName("value")
		lit := e.literalOf(ctx, value)
		if constType.Name == "" {
			if lit != nil {
				constType = literalType(lit.Kind)
			} else {
				// iota and other non-literal initializers are numeric
				constType = provider.TypeExpr{Name: "System.Int64"}
			}
		}
		for j := uint(0); j < spec.ChildCount(); j++ {
			child := spec.Child(j)
			if child.Kind() != "identifier" {
				continue
			}
			name := ctx.text(child)
			if !exported(name) {
				continue
			}
			holder := e.holder(ctx, byName)
			holder.fields = append(holder.fields, provider.FieldFact{
				Name:       name,
				Static:     true,
				Constant:   true,
				ReadOnly:   true,
				Type:       constType,
				ConstValue: lit,
			})
		}
	}
}

func (e *goExtractor) extractVars(ctx *walkContext, node *sitter.Node, byName map[string]*typeFact) {
	for i := uint(0); i < node.ChildCount(); i++ {
		spec := node.Child(i)
		if spec.Kind() != "var_spec" {
			continue
		}
		varType := e.typeExpr(ctx, spec.ChildByFieldName("type"))
		for j := uint(0); j < spec.ChildCount(); j++ {
			child := spec.Child(j)
			if child.Kind() != "identifier" {
				continue
			}
			name := ctx.text(child)
			if !exported(name) {
				continue
			}
			holder := e.holder(ctx, byName)
			holder.fields = append(holder.fields, provider.FieldFact{
				Name:   name,
				Static: true,
				Type:   varType,
			})
		}
	}
}

func (e *goExtractor) receiverType(ctx *walkContext, node *sitter.Node) string {
	if node == nil {
		return ""
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() != "parameter_declaration" {
			continue
		}
		expr := e.typeExpr(ctx, child.ChildByFieldName("type"))
		return simpleName(expr.Name)
	}
	return ""
}

func (e *goExtractor) typeParams(ctx *walkContext, node *sitter.Node) []provider.GenericParam {
	if node == nil {
		return nil
	}
	var out []provider.GenericParam
	for i := uint(0); i < node.ChildCount(); i++ {
		decl := node.Child(i)
		if decl.Kind() != "type_parameter_declaration" {
			continue
		}
		constraint := e.typeExpr(ctx, decl.ChildByFieldName("type"))
		for j := uint(0); j < decl.ChildCount(); j++ {
			child := decl.Child(j)
			if child.Kind() != "identifier" {
				continue
			}
			gp := provider.GenericParam{Name: ctx.text(child)}
			if constraint.Name != "" && constraint.Name != "System.Object" {
				gp.Constraints = []provider.TypeExpr{constraint}
			}
			out = append(out, gp)
		}
	}
	return out
}

func (e *goExtractor) params(ctx *walkContext, node *sitter.Node) []provider.Param {
	if node == nil {
		return nil
	}
	var out []provider.Param
	for i := uint(0); i < node.ChildCount(); i++ {
		decl := node.Child(i)
		switch decl.Kind() {
		case "parameter_declaration":
			paramType := e.typeExpr(ctx, decl.ChildByFieldName("type"))
			named := false
			for j := uint(0); j < decl.ChildCount(); j++ {
				child := decl.Child(j)
				if child.Kind() == "identifier" {
					named = true
					out = append(out, provider.Param{Name: ctx.text(child), Type: paramType})
				}
			}
			if !named {
				out = append(out, provider.Param{Type: paramType})
			}
		case "variadic_parameter_declaration":
			paramType := e.typeExpr(ctx, decl.ChildByFieldName("type"))
			paramType.ArrayRank++
			out = append(out, provider.Param{
				Name:     ctx.childText(decl, "identifier"),
				Type:     paramType,
				Variadic: true,
			})
		}
	}
	return out
}

// resultExpr renders a function result list. Multiple results collapse into
// a tuple pseudo-type; no result means void.
func (e *goExtractor) resultExpr(ctx *walkContext, node *sitter.Node) provider.TypeExpr {
	if node == nil {
		return provider.TypeExpr{Name: "System.Void"}
	}
	if node.Kind() != "parameter_list" {
		return e.typeExpr(ctx, node)
	}
	var exprs []provider.TypeExpr
	for i := uint(0); i < node.ChildCount(); i++ {
		decl := node.Child(i)
		if decl.Kind() != "parameter_declaration" && decl.Kind() != "variadic_parameter_declaration" {
			continue
		}
		exprs = append(exprs, e.typeExpr(ctx, decl.ChildByFieldName("type")))
	}
	switch len(exprs) {
	case 0:
		return provider.TypeExpr{Name: "System.Void"}
	case 1:
		return exprs[0]
	default:
		return provider.TypeExpr{Name: "tuple", Args: exprs}
	}
}

func (e *goExtractor) typeExpr(ctx *walkContext, node *sitter.Node) provider.TypeExpr {
	if node == nil {
		return provider.TypeExpr{}
	}
	switch node.Kind() {
	case "pointer_type":
		// API surfaces treat a pointer and its element the same way
		for i := uint(0); i < node.ChildCount(); i++ {
			child := node.Child(i)
			if child.Kind() != "*" {
				return e.typeExpr(ctx, child)
			}
		}
		return provider.TypeExpr{}
	case "slice_type", "array_type":
		expr := e.typeExpr(ctx, node.ChildByFieldName("element"))
		expr.ArrayRank++
		return expr
	case "map_type":
		return provider.TypeExpr{
			Name: "map",
			Args: []provider.TypeExpr{
				e.typeExpr(ctx, node.ChildByFieldName("key")),
				e.typeExpr(ctx, node.ChildByFieldName("value")),
			},
		}
	case "generic_type":
		expr := e.typeExpr(ctx, node.ChildByFieldName("type"))
		args := node.ChildByFieldName("type_arguments")
		if args != nil {
			for i := uint(0); i < args.ChildCount(); i++ {
				child := args.Child(i)
				switch child.Kind() {
				case "(", ")", "[", "]", ",":
				default:
					expr.Args = append(expr.Args, e.typeExpr(ctx, child))
				}
			}
		}
		return expr
	case "function_type":
		return provider.TypeExpr{Name: "func"}
	case "channel_type":
		return provider.TypeExpr{Name: "chan"}
	case "interface_type":
		return provider.TypeExpr{Name: "System.Object"}
	default:
		return provider.TypeExpr{Name: goTypeName(strings.TrimSpace(ctx.text(node)))}
	}
}

func (e *goExtractor) literalOf(ctx *walkContext, node *sitter.Node) *provider.Literal {
	if node == nil {
		return nil
	}
	// value is an expression_list; take its first literal child
	target := node
	if node.Kind() == "expression_list" {
		if node.ChildCount() == 0 {
			return nil
		}
		target = node.Child(0)
	}
	text := ctx.text(target)
	switch target.Kind() {
	case "interpreted_string_literal", "raw_string_literal":
		return &provider.Literal{Kind: provider.LiteralString, Value: strings.Trim(text, "\"`")}
	case "rune_literal":
		return &provider.Literal{Kind: provider.LiteralChar, Value: strings.Trim(text, "'")}
	case "int_literal", "float_literal":
		return &provider.Literal{Kind: provider.LiteralNumber, Value: text}
	case "true", "false":
		return &provider.Literal{Kind: provider.LiteralBool, Value: text}
	case "nil":
		return &provider.Literal{Kind: provider.LiteralNull, Value: "null"}
	}
	return nil
}

func literalType(kind provider.LiteralKind) provider.TypeExpr {
	switch kind {
	case provider.LiteralString:
		return provider.TypeExpr{Name: "System.String"}
	case provider.LiteralChar:
		return provider.TypeExpr{Name: "System.Char"}
	case provider.LiteralBool:
		return provider.TypeExpr{Name: "System.Boolean"}
	case provider.LiteralNumber:
		return provider.TypeExpr{Name: "System.Int64"}
	}
	return provider.TypeExpr{Name: "System.Object"}
}

func goTypeName(raw string) string {
	if mapped, ok := goPrimitives[raw]; ok {
		return mapped
	}
	return raw
}

func exported(name string) bool {
	if name == "" {
		return false
	}
	return unicode.IsUpper([]rune(name)[0])
}
