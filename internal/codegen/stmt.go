package codegen

import (
	"fmt"
	"strings"

	"pblang/internal/ast"
	"pblang/internal/names"
	"pblang/internal/stdlib"
	"pblang/internal/typecheck"
)

func (g *generator) stmt(st ast.Stmt) {
	switch s := st.(type) {
	case *ast.VarDecl:
		t := g.info.Decls[s]
		val := g.assignExpr(t, s.Init)
		g.line("%s = %s;", declSpelling(t, names.Ident(s.Name)), val)
	case *ast.AssignStmt:
		g.assign(s.Target, s.Value)
	case *ast.AugAssignStmt:
		g.augAssign(s)
	case *ast.ExprStmt:
		e := g.expr(s.X)
		if _, isCall := s.X.(*ast.CallExpr); isCall {
			g.line("%s;", e)
		} else {
			g.line("(void)(%s);", e)
		}
	case *ast.IfStmt:
		for i, br := range s.Branches {
			switch {
			case i == 0:
				g.line("if (%s) {", g.expr(br.Cond))
			case br.Cond != nil:
				g.line("} else if (%s) {", g.expr(br.Cond))
			default:
				g.line("} else {")
			}
			g.indent++
			g.body(br.Body)
			g.indent--
		}
		g.line("}")
	case *ast.WhileStmt:
		g.line("while (%s) {", g.expr(s.Cond))
		g.indent++
		g.body(s.Body)
		g.indent--
		g.line("}")
	case *ast.ForStmt:
		call := s.Iter.(*ast.CallExpr)
		v := names.Ident(s.Var)
		var start, stop string
		if len(call.Args) == 1 {
			start, stop = "0", g.expr(call.Args[0])
		} else {
			start, stop = g.expr(call.Args[0]), g.expr(call.Args[1])
		}
		g.line("for (int64_t %s = %s; %s < %s; ++%s) {", v, start, v, stop, v)
		g.indent++
		g.body(s.Body)
		g.indent--
		g.line("}")
	case *ast.TryStmt:
		g.try(s)
	case *ast.RaiseStmt:
		g.raise(s)
	case *ast.ReturnStmt:
		if s.Value == nil {
			if g.inMain {
				g.line("return 0;")
			} else {
				g.line("return;")
			}
			return
		}
		val := g.castIfNeeded(g.curRet, g.info.Types[s.Value], g.expr(s.Value))
		g.line("return %s;", val)
	case *ast.AssertStmt:
		g.line("if (!(%s)) pb_fail(\"Assertion failed\");", g.expr(s.Cond))
	case *ast.PassStmt:
		g.line(";  // pass")
	case *ast.BreakStmt:
		g.line("break;")
	case *ast.ContinueStmt:
		g.line("continue;")
	case *ast.GlobalStmt:
		// reads and writes already target the module variable
	case *ast.ImportStmt:
		// import stubs contribute no code
	default:
		g.line("/* unhandled statement */;")
	}
}

func (g *generator) body(body []ast.Stmt) {
	for _, st := range body {
		g.stmt(st)
	}
}

func (g *generator) assign(target, value ast.Expr) {
	switch t := target.(type) {
	case *ast.NameExpr:
		g.line("%s = %s;", names.Ident(t.Name), g.assignExpr(g.info.Types[target], value))
	case *ast.AttrExpr:
		g.line("%s = %s;", g.attrText(t), g.assignExpr(g.info.Types[target], value))
	case *ast.IndexExpr:
		base := g.info.Types[t.Base]
		addr := g.addressOf(t.Base, base)
		g.line("list_%s_set(%s, %s, %s);",
			primSuffix(*base.Elem), addr, g.expr(t.Index), g.assignExpr(*base.Elem, value))
	}
}

func (g *generator) augAssign(s *ast.AugAssignStmt) {
	op := strings.TrimSuffix(s.Op, "=")
	lt := g.info.Types[s.Target]
	rt := g.info.Types[s.Value]
	rhs := g.expr(s.Value)

	switch t := s.Target.(type) {
	case *ast.NameExpr:
		lhs := names.Ident(t.Name)
		g.line("%s = %s;", lhs, g.binopText(op, lt, rt, lhs, rhs))
	case *ast.AttrExpr:
		lhs := g.attrText(t)
		g.line("%s = %s;", lhs, g.binopText(op, lt, rt, lhs, rhs))
	case *ast.IndexExpr:
		base := g.info.Types[t.Base]
		suffix := primSuffix(*base.Elem)
		addr := g.addressOf(t.Base, base)
		idx := g.expr(t.Index)
		cur := fmt.Sprintf("list_%s_get(%s, %s)", suffix, addr, idx)
		g.line("list_%s_set(%s, %s, %s);", suffix, addr, idx, g.binopText(op, lt, rt, cur, rhs))
	}
}

// try lowers try/except onto the runtime's setjmp context stack.
func (g *generator) try(s *ast.TryStmt) {
	g.tryN++
	k := g.tryN
	ctx := fmt.Sprintf("__exc_ctx_%d", k)
	flag := fmt.Sprintf("__exc_flag_%d", k)

	g.line("PbTryContext %s;", ctx)
	g.line("pb_push_try(&%s);", ctx)
	g.line("int %s = setjmp(%s.env);", flag, ctx)
	g.line("if (%s == 0) {", flag)
	g.indent++
	g.body(s.Body)
	g.line("pb_pop_try();")
	g.indent--

	g.line("} else {")
	g.indent++
	caught := false
	for i, h := range s.Handlers {
		switch {
		case h.ExcType == "":
			if i == 0 {
				g.line("{")
			} else {
				g.line("} else {")
			}
			caught = true
		case i == 0:
			g.line("if (strcmp(pb_current_exc.type, %s) == 0) {", quoteC(h.ExcType))
		default:
			g.line("} else if (strcmp(pb_current_exc.type, %s) == 0) {", quoteC(h.ExcType))
		}
		g.indent++
		if h.Alias != "" {
			g.line("const char * %s = %s;", names.Ident(h.Alias), g.excMessage(h.ExcType))
			g.line("(void)%s;", names.Ident(h.Alias))
		}
		g.line("pb_clear_exc();")
		g.body(h.Body)
		g.indent--
	}
	if caught {
		g.line("}")
	} else {
		g.line("} else {")
		g.indent++
		g.line("pb_reraise();")
		g.indent--
		g.line("}")
	}
	g.indent--
	g.line("}")
}

// excMessage reads the message carried by the active exception. Built-in
// exceptions store the message itself in pb_current_exc.value; user
// classes store the object, whose first field is the message.
func (g *generator) excMessage(excType string) string {
	if excType == "" || stdlib.IsException(excType) {
		return "(const char *)pb_current_exc.value"
	}
	return "(*(const char **)pb_current_exc.value)"
}

func (g *generator) raise(s *ast.RaiseStmt) {
	if call, ok := s.Exc.(*ast.CallExpr); ok {
		if tgt := g.info.Calls[call]; tgt != nil && tgt.Kind == typecheck.CallExc {
			g.line("pb_raise_msg(%s, %s);", quoteC(tgt.Name), g.expr(call.Args[0]))
			return
		}
	}
	t := g.info.Types[s.Exc]
	g.line("pb_raise_obj(%s, (void *)%s);", quoteC(t.Class), g.expr(s.Exc))
}
