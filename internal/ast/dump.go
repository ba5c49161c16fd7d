package ast

import (
	"fmt"
	"strings"
)

// Dump renders the program as a compact s-expression, one top-level
// statement per line. The form is stable and is what parser tests (and
// `pbc ast`) compare against.
func Dump(p *Program) string {
	var b strings.Builder
	for _, st := range p.Body {
		writeStmt(&b, st)
		b.WriteByte('\n')
	}
	return b.String()
}

func writeStmt(b *strings.Builder, st Stmt) {
	switch s := st.(type) {
	case *FuncDef:
		fmt.Fprintf(b, "(def %s (", s.Name)
		for i, p := range s.Params {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(p.Name)
			if p.Type != nil {
				b.WriteByte(':')
				b.WriteString(p.Type.String())
			}
			if p.Default != nil {
				b.WriteByte('=')
				writeExpr(b, p.Default)
			}
		}
		b.WriteString(")")
		if s.Ret != nil {
			b.WriteString(" -> ")
			b.WriteString(s.Ret.String())
		}
		writeBody(b, s.Body)
		b.WriteString(")")
	case *ClassDef:
		fmt.Fprintf(b, "(class %s", s.Name)
		if s.Base != "" {
			fmt.Fprintf(b, " (%s)", s.Base)
		}
		for _, f := range s.Fields {
			b.WriteByte(' ')
			writeStmt(b, f)
		}
		for _, m := range s.Methods {
			b.WriteByte(' ')
			writeStmt(b, m)
		}
		b.WriteString(")")
	case *VarDecl:
		fmt.Fprintf(b, "(decl %s %s", s.Name, s.Type.String())
		if s.Init != nil {
			b.WriteByte(' ')
			writeExpr(b, s.Init)
		}
		b.WriteString(")")
	case *AssignStmt:
		b.WriteString("(= ")
		writeExpr(b, s.Target)
		b.WriteByte(' ')
		writeExpr(b, s.Value)
		b.WriteString(")")
	case *AugAssignStmt:
		fmt.Fprintf(b, "(%s ", s.Op)
		writeExpr(b, s.Target)
		b.WriteByte(' ')
		writeExpr(b, s.Value)
		b.WriteString(")")
	case *IfStmt:
		b.WriteString("(if")
		for _, br := range s.Branches {
			b.WriteString(" (")
			if br.Cond != nil {
				writeExpr(b, br.Cond)
			} else {
				b.WriteString("else")
			}
			writeBody(b, br.Body)
			b.WriteString(")")
		}
		b.WriteString(")")
	case *WhileStmt:
		b.WriteString("(while ")
		writeExpr(b, s.Cond)
		writeBody(b, s.Body)
		b.WriteString(")")
	case *ForStmt:
		fmt.Fprintf(b, "(for %s ", s.Var)
		writeExpr(b, s.Iter)
		writeBody(b, s.Body)
		b.WriteString(")")
	case *TryStmt:
		b.WriteString("(try")
		writeBody(b, s.Body)
		for _, h := range s.Handlers {
			fmt.Fprintf(b, " (except %s", h.ExcType)
			if h.Alias != "" {
				fmt.Fprintf(b, " as %s", h.Alias)
			}
			writeBody(b, h.Body)
			b.WriteString(")")
		}
		b.WriteString(")")
	case *RaiseStmt:
		b.WriteString("(raise ")
		writeExpr(b, s.Exc)
		b.WriteString(")")
	case *ReturnStmt:
		b.WriteString("(return")
		if s.Value != nil {
			b.WriteByte(' ')
			writeExpr(b, s.Value)
		}
		b.WriteString(")")
	case *AssertStmt:
		b.WriteString("(assert ")
		writeExpr(b, s.Cond)
		b.WriteString(")")
	case *BreakStmt:
		b.WriteString("(break)")
	case *ContinueStmt:
		b.WriteString("(continue)")
	case *PassStmt:
		b.WriteString("(pass)")
	case *GlobalStmt:
		fmt.Fprintf(b, "(global %s)", strings.Join(s.Names, " "))
	case *ImportStmt:
		fmt.Fprintf(b, "(import %s", strings.Join(s.Path, "."))
		if s.Alias != "" {
			fmt.Fprintf(b, " as %s", s.Alias)
		}
		b.WriteString(")")
	case *ExprStmt:
		b.WriteString("(expr ")
		writeExpr(b, s.X)
		b.WriteString(")")
	default:
		fmt.Fprintf(b, "(?%T)", st)
	}
}

func writeBody(b *strings.Builder, body []Stmt) {
	for _, st := range body {
		b.WriteByte(' ')
		writeStmt(b, st)
	}
}

func writeExpr(b *strings.Builder, e Expr) {
	switch x := e.(type) {
	case *IntLit:
		fmt.Fprintf(b, "%d", x.Value)
	case *FloatLit:
		b.WriteString(x.Text)
	case *StrLit:
		fmt.Fprintf(b, "%q", x.Value)
	case *BoolLit:
		if x.Value {
			b.WriteString("True")
		} else {
			b.WriteString("False")
		}
	case *NoneLit:
		b.WriteString("None")
	case *FStrLit:
		b.WriteString("(fstr")
		for _, p := range x.Parts {
			b.WriteByte(' ')
			switch pp := p.(type) {
			case *FStrText:
				fmt.Fprintf(b, "%q", pp.Text)
			case *FStrExpr:
				writeExpr(b, pp.X)
			}
		}
		b.WriteString(")")
	case *NameExpr:
		b.WriteString(x.Name)
	case *ListExpr:
		b.WriteString("(list")
		for _, el := range x.Elems {
			b.WriteByte(' ')
			writeExpr(b, el)
		}
		b.WriteString(")")
	case *DictExpr:
		b.WriteString("(dict")
		for i := range x.Keys {
			b.WriteString(" (")
			writeExpr(b, x.Keys[i])
			b.WriteByte(' ')
			writeExpr(b, x.Values[i])
			b.WriteString(")")
		}
		b.WriteString(")")
	case *IndexExpr:
		b.WriteString("(index ")
		writeExpr(b, x.Base)
		b.WriteByte(' ')
		writeExpr(b, x.Index)
		b.WriteString(")")
	case *AttrExpr:
		b.WriteString("(attr ")
		writeExpr(b, x.X)
		fmt.Fprintf(b, " %s)", x.Name)
	case *CallExpr:
		b.WriteString("(call ")
		writeExpr(b, x.Fn)
		for _, a := range x.Args {
			b.WriteByte(' ')
			writeExpr(b, a)
		}
		b.WriteString(")")
	case *UnaryExpr:
		fmt.Fprintf(b, "(%s ", x.Op)
		writeExpr(b, x.X)
		b.WriteString(")")
	case *BinaryExpr:
		fmt.Fprintf(b, "(%s ", x.Op)
		writeExpr(b, x.Left)
		b.WriteByte(' ')
		writeExpr(b, x.Right)
		b.WriteString(")")
	default:
		fmt.Fprintf(b, "(?%T)", e)
	}
}
