package codegen

import (
	"fmt"
	"strings"

	"pblang/internal/ast"
	"pblang/internal/names"
	"pblang/internal/typecheck"
)

// expr lowers e to a C expression string. Lowerings that need statement
// scaffolding (constructor temporaries, container literals, f-string
// buffers) emit those lines first and return the resulting value.
func (g *generator) expr(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.IntLit:
		return intText(x.Value)
	case *ast.FloatLit:
		return x.Text
	case *ast.StrLit:
		return quoteC(x.Value)
	case *ast.BoolLit:
		if x.Value {
			return "true"
		}
		return "false"
	case *ast.NoneLit:
		return "0"
	case *ast.NameExpr:
		if ref, ok := g.info.SelfRefs[x]; ok {
			return g.attrPath("self", ref)
		}
		return names.Ident(x.Name)
	case *ast.AttrExpr:
		return g.attrText(x)
	case *ast.IndexExpr:
		base := g.info.Types[x.Base]
		if base.Kind == typecheck.KindDict {
			return fmt.Sprintf("pb_dict_get_str_%s(%s, %s)",
				primSuffix(*base.Elem), g.expr(x.Base), g.expr(x.Index))
		}
		return fmt.Sprintf("list_%s_get(%s, %s)",
			primSuffix(*base.Elem), g.addressOf(x.Base, base), g.expr(x.Index))
	case *ast.ListExpr:
		return g.listLiteral(x)
	case *ast.DictExpr:
		return g.dictLiteral(x)
	case *ast.UnaryExpr:
		if x.Op == "not" {
			return fmt.Sprintf("(!%s)", g.expr(x.X))
		}
		return fmt.Sprintf("(-%s)", g.expr(x.X))
	case *ast.BinaryExpr:
		return g.binopText(x.Op, g.info.Types[x.Left], g.info.Types[x.Right],
			g.expr(x.Left), g.expr(x.Right))
	case *ast.CallExpr:
		return g.call(x)
	case *ast.FStrLit:
		g.fstrN++
		buf := fmt.Sprintf("__fstr_%d", g.fstrN)
		g.line("char %s[256];", buf)
		g.fstringInto(buf, x)
		return buf
	}
	return "/* unhandled expression */0"
}

// literal lowers the restricted literal forms allowed in class statics
// and parameter defaults.
func (g *generator) literal(e ast.Expr) string {
	switch x := e.(type) {
	case *ast.IntLit:
		return intText(x.Value)
	case *ast.FloatLit:
		return x.Text
	case *ast.StrLit:
		return quoteC(x.Value)
	case *ast.BoolLit:
		if x.Value {
			return "true"
		}
		return "false"
	case *ast.UnaryExpr:
		return "(-" + g.literal(x.X) + ")"
	}
	return "0"
}

func intText(v int64) string {
	if v > 2147483647 || v < -2147483648 {
		return fmt.Sprintf("%dLL", v)
	}
	return fmt.Sprintf("%d", v)
}

// assignExpr lowers value and inserts the pointer cast required when a
// subclass instance binds to a superclass target.
func (g *generator) assignExpr(dst typecheck.Type, value ast.Expr) string {
	return g.castIfNeeded(dst, g.info.Types[value], g.expr(value))
}

func (g *generator) castIfNeeded(dst, src typecheck.Type, expr string) string {
	if dst.Kind == typecheck.KindClass && src.Kind == typecheck.KindClass && dst.Class != src.Class {
		return fmt.Sprintf("(struct %s *)%s", dst.Class, expr)
	}
	return expr
}

// attrPath spells recv(->base)*.field for an attribute resolved along
// the inheritance chain.
func (g *generator) attrPath(recv string, ai *typecheck.AttrInfo) string {
	if ai.Kind == typecheck.AttrStatic {
		return names.Static(ai.Owner, ai.Name)
	}
	var b strings.Builder
	b.WriteString(recv)
	b.WriteString("->")
	for i := 0; i < ai.Depth; i++ {
		b.WriteString("base.")
	}
	b.WriteString(names.Ident(ai.Name))
	return b.String()
}

func (g *generator) attrText(x *ast.AttrExpr) string {
	ai := g.info.Attrs[x]
	if ai.Kind == typecheck.AttrStatic {
		return names.Static(ai.Owner, x.Name)
	}
	base := g.expr(x.X)
	var b strings.Builder
	b.WriteString(base)
	b.WriteString("->")
	for i := 0; i < ai.Depth; i++ {
		b.WriteString("base.")
	}
	b.WriteString(names.Ident(x.Name))
	return b.String()
}

// addressOf produces a pointer to a list value. Non-addressable
// expressions are materialised into a temporary first.
func (g *generator) addressOf(e ast.Expr, t typecheck.Type) string {
	switch x := e.(type) {
	case *ast.NameExpr:
		if ref, ok := g.info.SelfRefs[x]; ok {
			return "&" + g.attrPath("self", ref)
		}
		return "&" + names.Ident(x.Name)
	case *ast.AttrExpr:
		return "&" + g.attrText(x)
	}
	g.tmp++
	tmp := names.Temp(primSuffix(*t.Elem)+"_recv", g.tmp)
	g.line("%s = %s;", declSpelling(t, tmp), g.expr(e))
	return "&" + tmp
}

func (g *generator) listLiteral(x *ast.ListExpr) string {
	t := g.info.Types[x]
	elem := *t.Elem
	g.tmp++
	arr := names.Temp("list", g.tmp)
	if len(x.Elems) == 0 {
		g.line("%s %s[1];", elemCType(elem), arr)
		return fmt.Sprintf("(%s){ .len = 0, .capacity = 0, .data = %s }", cType(t), arr)
	}
	var elems []string
	for _, el := range x.Elems {
		elems = append(elems, g.assignExpr(elem, el))
	}
	g.line("%s %s[] = { %s };", elemCType(elem), arr, strings.Join(elems, ", "))
	return fmt.Sprintf("(%s){ .len = %d, .capacity = 0, .data = %s }", cType(t), len(x.Elems), arr)
}

func (g *generator) dictLiteral(x *ast.DictExpr) string {
	t := g.info.Types[x]
	val := *t.Elem
	g.tmp++
	arr := names.Temp("dict", g.tmp)
	pairCType := "Pair_str_" + primSuffix(val)
	if len(x.Keys) == 0 {
		g.line("%s %s[1];", pairCType, arr)
		return fmt.Sprintf("(%s){ .len = 0, .data = %s }", cType(t), arr)
	}
	var pairs []string
	for i := range x.Keys {
		pairs = append(pairs, fmt.Sprintf("{ %s, %s }", g.expr(x.Keys[i]), g.assignExpr(val, x.Values[i])))
	}
	g.line("%s %s[] = { %s };", pairCType, arr, strings.Join(pairs, ", "))
	return fmt.Sprintf("(%s){ .len = %d, .data = %s }", cType(t), len(x.Keys), arr)
}

// binopText lowers one binary operation given operand types.
func (g *generator) binopText(op string, lt, rt typecheck.Type, lhs, rhs string) string {
	isFloat := lt.Kind == typecheck.KindFloat || rt.Kind == typecheck.KindFloat
	switch op {
	case "/":
		g.need["fdiv"] = true
		return fmt.Sprintf("pb_fdiv((double)%s, (double)%s)", lhs, rhs)
	case "//":
		if isFloat {
			g.need["ffloordiv"] = true
			g.need["floor"] = true
			return fmt.Sprintf("pb_ffloordiv((double)%s, (double)%s)", lhs, rhs)
		}
		g.need["idiv"] = true
		return fmt.Sprintf("pb_idiv(%s, %s)", lhs, rhs)
	case "%":
		if isFloat {
			g.need["ffmod"] = true
			g.need["floor"] = true
			return fmt.Sprintf("pb_ffmod((double)%s, (double)%s)", lhs, rhs)
		}
		g.need["imod"] = true
		return fmt.Sprintf("pb_imod(%s, %s)", lhs, rhs)
	case "+", "-", "*":
		return fmt.Sprintf("(%s %s %s)", lhs, op, rhs)
	case "==", "!=", "<", "<=", ">", ">=":
		if lt.Kind == typecheck.KindStr && rt.Kind == typecheck.KindStr {
			return fmt.Sprintf("(strcmp(%s, %s) %s 0)", lhs, rhs, op)
		}
		return fmt.Sprintf("(%s %s %s)", lhs, op, rhs)
	case "is":
		return fmt.Sprintf("(%s == %s)", lhs, rhs)
	case "is not":
		return fmt.Sprintf("(%s != %s)", lhs, rhs)
	case "and":
		return fmt.Sprintf("(%s && %s)", lhs, rhs)
	case "or":
		return fmt.Sprintf("(%s || %s)", lhs, rhs)
	}
	return fmt.Sprintf("(%s /*%s*/ %s)", lhs, op, rhs)
}

// call lowers a call expression according to the checker's resolution.
func (g *generator) call(x *ast.CallExpr) string {
	tgt := g.info.Calls[x]
	switch tgt.Kind {
	case typecheck.CallFunc:
		return fmt.Sprintf("%s(%s)", names.Func(tgt.Name), g.argListFrom(tgt.Sig.Params, x.Args))
	case typecheck.CallMethod:
		recv := g.expr(x.Fn.(*ast.AttrExpr).X)
		args := g.argListFrom(tgt.Sig.Params[1:], x.Args)
		if args != "" {
			args = ", " + args
		}
		return fmt.Sprintf("%s(%s%s)", names.Method(tgt.Recv, tgt.Name), recv, args)
	case typecheck.CallCtor:
		return g.ctor(x, tgt)
	case typecheck.CallInit:
		self := g.castIfNeeded(typecheck.ClassOf(tgt.Class), g.info.Types[x.Args[0]], g.expr(x.Args[0]))
		rest := g.argListFrom(tgt.Sig.Params[1:], x.Args[1:])
		if rest != "" {
			rest = ", " + rest
		}
		return fmt.Sprintf("%s(%s%s)", names.Method(tgt.Class, "__init__"), self, rest)
	case typecheck.CallListMethod:
		recvExpr := x.Fn.(*ast.AttrExpr).X
		addr := g.addressOf(recvExpr, g.info.Types[recvExpr])
		suffix := primSuffix(tgt.Elem)
		switch tgt.Name {
		case "append":
			return fmt.Sprintf("list_%s_append(%s, %s)", suffix, addr, g.assignExpr(tgt.Elem, x.Args[0]))
		case "pop":
			return fmt.Sprintf("list_%s_pop(%s)", suffix, addr)
		default: // remove
			return fmt.Sprintf("list_%s_remove(%s, %s)", suffix, addr, g.assignExpr(tgt.Elem, x.Args[0]))
		}
	case typecheck.CallBuiltin:
		return g.builtin(x, tgt)
	case typecheck.CallExc:
		// Reached only through raise, which lowers it directly.
		return fmt.Sprintf("pb_raise_msg(%s, %s)", quoteC(tgt.Name), g.expr(x.Args[0]))
	}
	return "/* unhandled call */0"
}

// ctor lowers C(...) into a stack temporary plus an __init__ call, and
// yields a pointer to the temporary.
func (g *generator) ctor(x *ast.CallExpr, tgt *typecheck.CallTarget) string {
	g.tmp++
	tmp := names.Temp(strings.ToLower(tgt.Recv), g.tmp)
	g.line("struct %s %s;", tgt.Recv, tmp)
	if tgt.Sig != nil {
		self := "&" + tmp
		if tgt.Class != tgt.Recv {
			self = fmt.Sprintf("(struct %s *)&%s", tgt.Class, tmp)
		}
		args := g.argListFrom(tgt.Sig.Params[1:], x.Args)
		if args != "" {
			args = ", " + args
		}
		g.line("%s(%s%s);", names.Method(tgt.Class, "__init__"), self, args)
	}
	return "&" + tmp
}

// argListFrom pads omitted trailing arguments with the parameters'
// declared default literals.
func (g *generator) argListFrom(params []typecheck.ParamInfo, args []ast.Expr) string {
	var parts []string
	for i, p := range params {
		if i < len(args) {
			parts = append(parts, g.castIfNeeded(p.Type, g.info.Types[args[i]], g.expr(args[i])))
			continue
		}
		parts = append(parts, g.literal(p.Default))
	}
	return strings.Join(parts, ", ")
}

// builtin lowers print and the explicit conversions.
func (g *generator) builtin(x *ast.CallExpr, tgt *typecheck.CallTarget) string {
	arg := x.Args[0]
	at := tgt.ArgType
	switch tgt.Name {
	case "print":
		return g.printCall(arg, at)
	case "int":
		switch at.Kind {
		case typecheck.KindInt:
			return g.expr(arg)
		case typecheck.KindStr:
			g.need["str_to_int"] = true
			return fmt.Sprintf("pb_str_to_int(%s)", g.expr(arg))
		default:
			return fmt.Sprintf("(int64_t)(%s)", g.expr(arg))
		}
	case "float":
		switch at.Kind {
		case typecheck.KindFloat:
			return g.expr(arg)
		case typecheck.KindStr:
			g.need["str_to_float"] = true
			return fmt.Sprintf("pb_str_to_float(%s)", g.expr(arg))
		default:
			return fmt.Sprintf("(double)(%s)", g.expr(arg))
		}
	case "str":
		switch at.Kind {
		case typecheck.KindStr:
			return g.expr(arg)
		case typecheck.KindInt:
			return fmt.Sprintf("pb_format_int(%s)", g.expr(arg))
		case typecheck.KindFloat:
			return fmt.Sprintf("pb_format_double(%s)", g.expr(arg))
		default:
			return fmt.Sprintf("((%s) ? \"True\" : \"False\")", g.expr(arg))
		}
	case "bool":
		switch at.Kind {
		case typecheck.KindBool:
			return g.expr(arg)
		case typecheck.KindStr:
			return fmt.Sprintf("((%s)[0] != '\\0')", g.expr(arg))
		default:
			return fmt.Sprintf("((%s) != 0)", g.expr(arg))
		}
	}
	return "/* unhandled builtin */0"
}

func (g *generator) printCall(arg ast.Expr, at typecheck.Type) string {
	switch at.Kind {
	case typecheck.KindInt:
		return fmt.Sprintf("pb_print_int(%s)", g.expr(arg))
	case typecheck.KindFloat:
		return fmt.Sprintf("pb_print_double(%s)", g.expr(arg))
	case typecheck.KindBool:
		return fmt.Sprintf("pb_print_bool(%s)", g.expr(arg))
	case typecheck.KindStr:
		if fs, ok := arg.(*ast.FStrLit); ok {
			// An f-string printed directly reuses the function's shared
			// buffer instead of a dedicated one.
			g.fstringInto("__fbuf", fs)
			return "pb_print_str(__fbuf)"
		}
		return fmt.Sprintf("pb_print_str(%s)", g.expr(arg))
	case typecheck.KindList:
		return fmt.Sprintf("list_%s_print(%s)", primSuffix(*at.Elem), g.addressOf(arg, at))
	case typecheck.KindDict:
		g.dictPrints[at.Elem.Kind] = true
		if at.Elem.Kind == typecheck.KindStr {
			g.need["quote"] = true
		}
		return fmt.Sprintf("pb_print_dict_str_%s(%s)", primSuffix(*at.Elem), g.expr(arg))
	}
	return "/* unprintable */0"
}

// fstringInto emits the snprintf that renders an f-string into buf,
// picking format specifiers from each placeholder's static type.
func (g *generator) fstringInto(buf string, x *ast.FStrLit) {
	var fmtParts []string
	var args []string
	for _, part := range x.Parts {
		switch p := part.(type) {
		case *ast.FStrText:
			fmtParts = append(fmtParts, escapeFormat(p.Text))
		case *ast.FStrExpr:
			t := g.info.Types[p.X]
			e := g.expr(p.X)
			switch t.Kind {
			case typecheck.KindInt:
				fmtParts = append(fmtParts, "%lld")
				args = append(args, fmt.Sprintf("(long long)(%s)", e))
			case typecheck.KindFloat:
				fmtParts = append(fmtParts, "%s")
				args = append(args, fmt.Sprintf("pb_format_double(%s)", e))
			case typecheck.KindBool:
				fmtParts = append(fmtParts, "%s")
				args = append(args, fmt.Sprintf("((%s) ? \"True\" : \"False\")", e))
			default:
				fmtParts = append(fmtParts, "%s")
				args = append(args, e)
			}
		}
	}
	all := quoteC(strings.Join(fmtParts, ""))
	if len(args) == 0 {
		g.line("snprintf(%s, 256, %s);", buf, all)
		return
	}
	g.line("snprintf(%s, 256, %s, %s);", buf, all, strings.Join(args, ", "))
}

// escapeFormat escapes literal text for use inside a printf format.
func escapeFormat(s string) string {
	return strings.ReplaceAll(s, "%", "%%")
}

// quoteC renders s as a C string literal.
func quoteC(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; ch {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\000`)
		default:
			b.WriteByte(ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}
