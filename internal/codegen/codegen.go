// Package codegen lowers a type-checked PB program to a single C99
// translation unit against the fixed pb_runtime library. Generation is a
// total function of the typed AST: it never fails on checked input.
package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"pblang/internal/ast"
	"pblang/internal/names"
	"pblang/internal/typecheck"
)

type generator struct {
	info   *typecheck.Info
	out    *bytes.Buffer
	indent int
	tmp    int
	tryN   int
	fstrN  int

	need       map[string]bool // prelude helpers referenced by the program
	dictPrints map[typecheck.Kind]bool
	curRet     typecheck.Type
	inMain     bool
}

// Generate emits the complete C file for info.
func Generate(info *typecheck.Info) string {
	g := &generator{
		info:       info,
		need:       map[string]bool{},
		dictPrints: map[typecheck.Kind]bool{},
	}

	var structs, statics, globals, protos, defs, mainBuf bytes.Buffer

	g.out = &structs
	g.emitStructs()
	g.out = &statics
	g.emitStatics()
	g.out = &globals
	g.emitGlobalDecls()
	g.out = &defs
	g.emitDefs()
	g.out = &mainBuf
	g.emitMain()
	// Prototypes are generated last but placed before the definitions below.
	g.out = &protos
	g.emitProtos()

	var final bytes.Buffer
	final.WriteString("#include \"pb_runtime.h\"\n")
	if g.need["floor"] {
		final.WriteString("#include <math.h>\n")
	}
	final.WriteString("\n")
	g.out = &final
	g.emitPrelude()
	for _, section := range []*bytes.Buffer{&structs, &statics, &globals, &protos, &defs, &mainBuf} {
		if section.Len() > 0 {
			final.Write(section.Bytes())
		}
	}
	return final.String()
}

func (g *generator) line(format string, args ...any) {
	g.out.WriteString(strings.Repeat("    ", g.indent))
	fmt.Fprintf(g.out, format, args...)
	g.out.WriteByte('\n')
}

func (g *generator) blank() { g.out.WriteByte('\n') }

// ───────────────────────── type spelling ─────────────────────────

func cType(t typecheck.Type) string {
	switch t.Kind {
	case typecheck.KindInt:
		return "int64_t"
	case typecheck.KindFloat:
		return "double"
	case typecheck.KindBool:
		return "bool"
	case typecheck.KindStr:
		return "const char *"
	case typecheck.KindNone:
		return "void"
	case typecheck.KindList:
		return "List_" + primSuffix(*t.Elem)
	case typecheck.KindDict:
		return "Dict_str_" + primSuffix(*t.Elem)
	case typecheck.KindClass:
		return "struct " + t.Class + " *"
	default:
		return "void"
	}
}

func primSuffix(t typecheck.Type) string {
	switch t.Kind {
	case typecheck.KindInt:
		return "int"
	case typecheck.KindFloat:
		return "float"
	case typecheck.KindBool:
		return "bool"
	case typecheck.KindStr:
		return "str"
	}
	return "int"
}

// elemCType spells the C element type stored in a List_T / Pair_str_T.
func elemCType(t typecheck.Type) string {
	switch t.Kind {
	case typecheck.KindInt:
		return "int64_t"
	case typecheck.KindFloat:
		return "double"
	case typecheck.KindBool:
		return "bool"
	case typecheck.KindStr:
		return "const char *"
	}
	return "int64_t"
}

// declSpelling joins a C type and identifier.
func declSpelling(t typecheck.Type, ident string) string {
	return cType(t) + " " + ident
}

// ───────────────────────── sections ─────────────────────────

func (g *generator) emitStructs() {
	if len(g.info.ClassOrder) == 0 {
		return
	}
	for _, name := range g.info.ClassOrder {
		g.line("typedef struct %s %s;", name, name)
	}
	g.blank()
	for _, name := range g.info.ClassOrder {
		ci := g.info.Classes[name]
		g.line("struct %s {", name)
		g.indent++
		if ci.Base != "" {
			g.line("%s base;", ci.Base)
		}
		for _, f := range ci.Fields {
			g.line("%s;", declSpelling(f.Type, names.Ident(f.Name)))
		}
		if ci.Base == "" && len(ci.Fields) == 0 {
			g.line("char __pb_empty;")
		}
		g.indent--
		g.line("};")
		g.blank()
	}
}

func (g *generator) emitStatics() {
	any := false
	for _, name := range g.info.ClassOrder {
		ci := g.info.Classes[name]
		for _, st := range ci.Statics {
			g.line("%s = %s;", declSpelling(st.Type, names.Static(name, st.Name)), g.literal(st.Init))
			any = true
		}
	}
	if any {
		g.blank()
	}
}

func (g *generator) emitGlobalDecls() {
	if len(g.info.GlobalOrder) == 0 {
		return
	}
	for _, name := range g.info.GlobalOrder {
		g.line("%s;", declSpelling(g.info.Globals[name], names.Ident(name)))
	}
	g.blank()
}

func (g *generator) emitProtos() {
	any := false
	for _, name := range g.info.FuncOrder {
		if name == "main" {
			continue
		}
		g.line("%s;", g.signature(g.info.Funcs[name]))
		any = true
	}
	for _, cname := range g.info.ClassOrder {
		ci := g.info.Classes[cname]
		for _, mname := range ci.MethodOrder {
			g.line("%s;", g.signature(ci.Methods[mname]))
			any = true
		}
		for _, w := range g.wrappers(ci) {
			g.line("static inline %s;", g.wrapperSignature(cname, w))
			any = true
		}
	}
	if any {
		g.blank()
	}
}

// signature spells a function or method header.
func (g *generator) signature(sig *typecheck.FuncSig) string {
	var b strings.Builder
	b.WriteString(cType(sig.Ret))
	b.WriteByte(' ')
	if sig.Class != "" {
		b.WriteString(names.Method(sig.Class, sig.Name))
	} else {
		b.WriteString(names.Func(sig.Name))
	}
	b.WriteByte('(')
	if len(sig.Params) == 0 {
		b.WriteString("void")
	}
	for i, p := range sig.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		if sig.Class != "" && i == 0 {
			fmt.Fprintf(&b, "struct %s * self", sig.Class)
			continue
		}
		b.WriteString(declSpelling(p.Type, names.Ident(p.Name)))
	}
	b.WriteByte(')')
	return b.String()
}

// wrapper describes one inherited-method forwarding wrapper.
type wrapper struct {
	Method string
	Owner  string
	Sig    *typecheck.FuncSig
}

// wrappers lists the methods class ci inherits without overriding.
func (g *generator) wrappers(ci *typecheck.ClassInfo) []wrapper {
	var out []wrapper
	seen := map[string]bool{}
	for name := range ci.Methods {
		seen[name] = true
	}
	for cur := ci.Base; cur != ""; {
		base := g.info.Classes[cur]
		for _, mname := range base.MethodOrder {
			if seen[mname] {
				continue
			}
			seen[mname] = true
			out = append(out, wrapper{Method: mname, Owner: cur, Sig: base.Methods[mname]})
		}
		cur = base.Base
	}
	return out
}

func (g *generator) wrapperSignature(class string, w wrapper) string {
	var b strings.Builder
	b.WriteString(cType(w.Sig.Ret))
	b.WriteByte(' ')
	b.WriteString(names.Method(class, w.Method))
	fmt.Fprintf(&b, "(struct %s * self", class)
	for _, p := range w.Sig.Params[1:] {
		b.WriteString(", ")
		b.WriteString(declSpelling(p.Type, names.Ident(p.Name)))
	}
	b.WriteByte(')')
	return b.String()
}

func (g *generator) emitDefs() {
	for _, st := range g.info.Prog.Body {
		switch s := st.(type) {
		case *ast.FuncDef:
			if s.Name == "main" {
				continue
			}
			g.emitFunc(g.info.Funcs[s.Name])
		case *ast.ClassDef:
			ci := g.info.Classes[s.Name]
			for _, mname := range ci.MethodOrder {
				g.emitFunc(ci.Methods[mname])
			}
			for _, w := range g.wrappers(ci) {
				g.emitWrapper(s.Name, w)
			}
		}
	}
}

func (g *generator) emitFunc(sig *typecheck.FuncSig) {
	g.curRet = sig.Ret
	g.line("%s", g.signature(sig))
	g.line("{")
	g.indent++
	for _, p := range sig.Params {
		g.line("(void)%s;", names.Ident(p.Name))
	}
	g.line("char __fbuf[256];")
	g.line("(void)__fbuf;")
	for _, st := range sig.Def.Body {
		g.stmt(st)
	}
	if sig.Ret.Kind == typecheck.KindNone {
		g.line("return;")
	}
	g.indent--
	g.line("}")
	g.blank()
}

// emitWrapper emits the static inline subclass shim that casts the
// receiver down to the defining base class.
func (g *generator) emitWrapper(class string, w wrapper) {
	g.line("static inline %s", g.wrapperSignature(class, w))
	g.line("{")
	g.indent++
	var args []string
	args = append(args, fmt.Sprintf("(struct %s *)self", w.Owner))
	for _, p := range w.Sig.Params[1:] {
		args = append(args, names.Ident(p.Name))
	}
	call := fmt.Sprintf("%s(%s)", names.Method(w.Owner, w.Method), strings.Join(args, ", "))
	if w.Sig.Ret.Kind == typecheck.KindNone {
		g.line("%s;", call)
	} else {
		g.line("return %s;", call)
	}
	g.indent--
	g.line("}")
	g.blank()
}

func (g *generator) emitMain() {
	g.inMain = true
	g.curRet = typecheck.NoneT
	defer func() { g.inMain = false }()
	g.line("int main(void)")
	g.line("{")
	g.indent++
	g.line("char __fbuf[256];")
	g.line("(void)__fbuf;")

	for _, st := range g.info.Prog.Body {
		switch s := st.(type) {
		case *ast.VarDecl:
			val := g.assignExpr(g.info.Decls[s], s.Init)
			g.line("%s = %s;", names.Ident(s.Name), val)
		case *ast.AssignStmt, *ast.AugAssignStmt, *ast.ExprStmt:
			g.stmt(st)
		}
	}
	if sig, ok := g.info.Funcs["main"]; ok {
		for _, st := range sig.Def.Body {
			g.stmt(st)
		}
	}
	g.line("return 0;")
	g.indent--
	g.line("}")
}

// ───────────────────────── prelude ─────────────────────────

// emitPrelude defines the small static helpers the emitted code calls
// for checked division and conversions. Only referenced helpers are
// emitted.
func (g *generator) emitPrelude() {
	emit := func(lines ...string) {
		for _, l := range lines {
			g.out.WriteString(l)
			g.out.WriteByte('\n')
		}
		g.out.WriteByte('\n')
	}
	if g.need["idiv"] {
		emit(
			"static int64_t pb_idiv(int64_t a, int64_t b) {",
			"    if (b == 0) pb_raise_msg(\"ZeroDivisionError\", \"integer division or modulo by zero\");",
			"    int64_t q = a / b;",
			"    if ((a % b != 0) && ((a < 0) != (b < 0))) q--;",
			"    return q;",
			"}")
	}
	if g.need["imod"] {
		emit(
			"static int64_t pb_imod(int64_t a, int64_t b) {",
			"    if (b == 0) pb_raise_msg(\"ZeroDivisionError\", \"integer division or modulo by zero\");",
			"    int64_t r = a % b;",
			"    if (r != 0 && ((r < 0) != (b < 0))) r += b;",
			"    return r;",
			"}")
	}
	if g.need["fdiv"] {
		emit(
			"static double pb_fdiv(double a, double b) {",
			"    if (b == 0.0) pb_raise_msg(\"ZeroDivisionError\", \"float division by zero\");",
			"    return a / b;",
			"}")
	}
	if g.need["ffloordiv"] {
		emit(
			"static double pb_ffloordiv(double a, double b) {",
			"    if (b == 0.0) pb_raise_msg(\"ZeroDivisionError\", \"float floor division by zero\");",
			"    return floor(a / b);",
			"}")
	}
	if g.need["ffmod"] {
		emit(
			"static double pb_ffmod(double a, double b) {",
			"    if (b == 0.0) pb_raise_msg(\"ZeroDivisionError\", \"float modulo by zero\");",
			"    double r = fmod(a, b);",
			"    if (r != 0.0 && ((r < 0.0) != (b < 0.0))) r += b;",
			"    return r;",
			"}")
	}
	if g.need["str_to_int"] {
		emit(
			"static int64_t pb_str_to_int(const char *s) {",
			"    char *end;",
			"    long long v = strtoll(s, &end, 10);",
			"    if (end == s || *end != '\\0') pb_raise_msg(\"ValueError\", \"invalid literal for int()\");",
			"    return (int64_t)v;",
			"}")
	}
	if g.need["str_to_float"] {
		emit(
			"static double pb_str_to_float(const char *s) {",
			"    char *end;",
			"    double v = strtod(s, &end);",
			"    if (end == s || *end != '\\0') pb_raise_msg(\"ValueError\", \"could not convert string to float()\");",
			"    return v;",
			"}")
	}
	if g.need["quote"] {
		emit(
			"static void pb_print_quoted(const char *s) {",
			"    if (strchr(s, '\\'')) printf(\"\\\"%s\\\"\", s);",
			"    else printf(\"'%s'\", s);",
			"}")
	}
	for _, kind := range []typecheck.Kind{typecheck.KindInt, typecheck.KindFloat, typecheck.KindBool, typecheck.KindStr} {
		if !g.dictPrints[kind] {
			continue
		}
		suffix := primSuffix(typecheck.Type{Kind: kind})
		var value string
		switch kind {
		case typecheck.KindInt:
			value = "printf(\"%lld\", (long long)d.data[i].value);"
		case typecheck.KindFloat:
			value = "printf(\"%s\", pb_format_double(d.data[i].value));"
		case typecheck.KindBool:
			value = "printf(\"%s\", d.data[i].value ? \"True\" : \"False\");"
		case typecheck.KindStr:
			value = "pb_print_quoted(d.data[i].value);"
		}
		emit(
			fmt.Sprintf("static void pb_print_dict_str_%s(Dict_str_%s d) {", suffix, suffix),
			"    printf(\"{\");",
			"    for (int64_t i = 0; i < d.len; ++i) {",
			"        if (i > 0) printf(\", \");",
			"        printf(\"'%s': \", d.data[i].key);",
			"        "+value,
			"    }",
			"    printf(\"}\\n\");",
			"}")
	}
}
