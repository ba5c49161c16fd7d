package interp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"pblang/internal/ast"
	"pblang/internal/typecheck"
)

// widen adjusts a value along the permitted implicit conversions
// (bool → int → float); class values pass through unchanged.
func widen(v Value, t typecheck.Type) Value {
	switch {
	case t.Kind == typecheck.KindInt && v.Kind == typecheck.KindBool:
		return intVal(v.asInt())
	case t.Kind == typecheck.KindFloat && v.Kind != typecheck.KindFloat && v.Kind != typecheck.KindNone:
		if v.Kind == typecheck.KindInt || v.Kind == typecheck.KindBool {
			return floatVal(v.asFloat())
		}
	}
	return v
}

// literal evaluates the restricted literal forms used by defaults and
// class statics.
func (in *interp) literal(e ast.Expr) Value {
	switch x := e.(type) {
	case *ast.IntLit:
		return intVal(x.Value)
	case *ast.FloatLit:
		return floatVal(x.Value)
	case *ast.StrLit:
		return strVal(x.Value)
	case *ast.BoolLit:
		return boolVal(x.Value)
	case *ast.UnaryExpr:
		v := in.literal(x.X)
		if v.Kind == typecheck.KindFloat {
			return floatVal(-v.F)
		}
		return intVal(-v.I)
	}
	return noneVal()
}

func (in *interp) eval(e ast.Expr) Value {
	switch x := e.(type) {
	case *ast.IntLit:
		return intVal(x.Value)
	case *ast.FloatLit:
		return floatVal(x.Value)
	case *ast.StrLit:
		return strVal(x.Value)
	case *ast.BoolLit:
		return boolVal(x.Value)
	case *ast.NoneLit:
		return noneVal()
	case *ast.NameExpr:
		return in.evalName(x)
	case *ast.AttrExpr:
		return in.evalAttr(x)
	case *ast.IndexExpr:
		return in.evalIndex(x)
	case *ast.ListExpr:
		t := in.info.Types[e]
		lst := &ListVal{Elem: t.Elem.Kind}
		for _, el := range x.Elems {
			lst.Elems = append(lst.Elems, widen(in.eval(el), *t.Elem))
		}
		return Value{Kind: typecheck.KindList, List: lst}
	case *ast.DictExpr:
		t := in.info.Types[e]
		d := &DictVal{}
		for i := range x.Keys {
			d.Keys = append(d.Keys, in.eval(x.Keys[i]).S)
			d.Vals = append(d.Vals, widen(in.eval(x.Values[i]), *t.Elem))
		}
		return Value{Kind: typecheck.KindDict, Dict: d}
	case *ast.UnaryExpr:
		v := in.eval(x.X)
		if x.Op == "not" {
			return boolVal(!v.B)
		}
		if v.Kind == typecheck.KindFloat {
			return floatVal(-v.F)
		}
		return intVal(-v.I)
	case *ast.BinaryExpr:
		if x.Op == "and" {
			if !in.eval(x.Left).B {
				return boolVal(false)
			}
			return boolVal(in.eval(x.Right).B)
		}
		if x.Op == "or" {
			if in.eval(x.Left).B {
				return boolVal(true)
			}
			return boolVal(in.eval(x.Right).B)
		}
		return in.binop(x.Op, in.eval(x.Left), in.eval(x.Right))
	case *ast.CallExpr:
		return in.evalCall(x)
	case *ast.FStrLit:
		var b strings.Builder
		for _, part := range x.Parts {
			switch p := part.(type) {
			case *ast.FStrText:
				b.WriteString(p.Text)
			case *ast.FStrExpr:
				b.WriteString(in.eval(p.X).display())
			}
		}
		s := b.String()
		// snprintf truncates at the 256-byte buffer boundary.
		if len(s) > 255 {
			s = s[:255]
		}
		return strVal(s)
	}
	return noneVal()
}

func (in *interp) evalName(x *ast.NameExpr) Value {
	if ref, ok := in.info.SelfRefs[x]; ok {
		if ref.Kind == typecheck.AttrStatic {
			return *in.statics[ref.Owner][ref.Name]
		}
		return in.frame().self.Fields[ref.Name]
	}
	if p, ok := in.lookup(x.Name); ok {
		return *p
	}
	if p, ok := in.globals[x.Name]; ok {
		return *p
	}
	panic(fatal{Msg: fmt.Sprintf("unbound name '%s'", x.Name)})
}

func (in *interp) evalAttr(x *ast.AttrExpr) Value {
	ai := in.info.Attrs[x]
	if ai.Kind == typecheck.AttrStatic {
		return *in.statics[ai.Owner][x.Name]
	}
	obj := in.eval(x.X).Obj
	return obj.Fields[x.Name]
}

func (in *interp) evalIndex(x *ast.IndexExpr) Value {
	base := in.eval(x.Base)
	if base.Kind == typecheck.KindDict {
		key := in.eval(x.Index).S
		for i, k := range base.Dict.Keys {
			if k == key {
				return base.Dict.Vals[i]
			}
		}
		panic(fatal{Msg: "Key not found in dict"})
	}
	idx := in.eval(x.Index).asInt()
	lst := base.List
	if idx < 0 || idx >= int64(len(lst.Elems)) {
		elemName := typecheck.Type{Kind: lst.Elem}.String()
		panic(raised{Type: "IndexError",
			Msg: fmt.Sprintf("cannot read index %d in list[%s] of length %d", idx, elemName, len(lst.Elems))})
	}
	return lst.Elems[idx]
}

func (in *interp) binop(op string, l, r Value) Value {
	isFloat := l.Kind == typecheck.KindFloat || r.Kind == typecheck.KindFloat
	switch op {
	case "+", "-", "*":
		if isFloat {
			a, b := l.asFloat(), r.asFloat()
			switch op {
			case "+":
				return floatVal(a + b)
			case "-":
				return floatVal(a - b)
			default:
				return floatVal(a * b)
			}
		}
		a, b := l.asInt(), r.asInt()
		switch op {
		case "+":
			return intVal(a + b)
		case "-":
			return intVal(a - b)
		default:
			return intVal(a * b)
		}
	case "/":
		b := r.asFloat()
		if b == 0 {
			panic(raised{Type: "ZeroDivisionError", Msg: "float division by zero"})
		}
		return floatVal(l.asFloat() / b)
	case "//":
		if isFloat {
			b := r.asFloat()
			if b == 0 {
				panic(raised{Type: "ZeroDivisionError", Msg: "float floor division by zero"})
			}
			return floatVal(math.Floor(l.asFloat() / b))
		}
		b := r.asInt()
		if b == 0 {
			panic(raised{Type: "ZeroDivisionError", Msg: "integer division or modulo by zero"})
		}
		a := l.asInt()
		q := a / b
		if a%b != 0 && (a < 0) != (b < 0) {
			q--
		}
		return intVal(q)
	case "%":
		if isFloat {
			b := r.asFloat()
			if b == 0 {
				panic(raised{Type: "ZeroDivisionError", Msg: "float modulo by zero"})
			}
			m := math.Mod(l.asFloat(), b)
			if m != 0 && (m < 0) != (b < 0) {
				m += b
			}
			return floatVal(m)
		}
		b := r.asInt()
		if b == 0 {
			panic(raised{Type: "ZeroDivisionError", Msg: "integer division or modulo by zero"})
		}
		a := l.asInt()
		m := a % b
		if m != 0 && (m < 0) != (b < 0) {
			m += b
		}
		return intVal(m)
	case "==", "!=", "<", "<=", ">", ">=":
		return boolVal(compare(op, l, r))
	case "is":
		return boolVal(l.B == r.B)
	case "is not":
		return boolVal(l.B != r.B)
	}
	panic(fatal{Msg: "unknown operator " + op})
}

func compare(op string, l, r Value) bool {
	if l.Kind == typecheck.KindStr {
		c := strings.Compare(l.S, r.S)
		return cmpResult(op, c)
	}
	if l.Kind == typecheck.KindClass || l.Obj != nil {
		eq := l.Obj == r.Obj
		if op == "==" {
			return eq
		}
		return !eq
	}
	if l.Kind == typecheck.KindBool && r.Kind == typecheck.KindBool {
		switch op {
		case "==":
			return l.B == r.B
		case "!=":
			return l.B != r.B
		}
	}
	if l.Kind == typecheck.KindFloat || r.Kind == typecheck.KindFloat {
		a, b := l.asFloat(), r.asFloat()
		switch {
		case a < b:
			return cmpResult(op, -1)
		case a > b:
			return cmpResult(op, 1)
		default:
			return cmpResult(op, 0)
		}
	}
	a, b := l.asInt(), r.asInt()
	switch {
	case a < b:
		return cmpResult(op, -1)
	case a > b:
		return cmpResult(op, 1)
	default:
		return cmpResult(op, 0)
	}
}

func cmpResult(op string, c int) bool {
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	default:
		return c >= 0
	}
}

func (in *interp) evalCall(x *ast.CallExpr) Value {
	tgt := in.info.Calls[x]
	switch tgt.Kind {
	case typecheck.CallFunc:
		return in.call(tgt.Sig, in.evalArgs(nil, x.Args))
	case typecheck.CallMethod:
		recv := in.eval(x.Fn.(*ast.AttrExpr).X)
		return in.call(tgt.Sig, in.evalArgs([]Value{recv}, x.Args))
	case typecheck.CallCtor:
		obj := &Object{Class: tgt.Recv, Fields: map[string]Value{}}
		self := Value{Kind: typecheck.KindClass, Obj: obj}
		if tgt.Sig != nil {
			in.call(tgt.Sig, in.evalArgs([]Value{self}, x.Args))
		}
		return self
	case typecheck.CallInit:
		return in.call(tgt.Sig, in.evalArgs(nil, x.Args))
	case typecheck.CallListMethod:
		recv := in.eval(x.Fn.(*ast.AttrExpr).X)
		return in.listMethod(tgt, recv, x.Args)
	case typecheck.CallBuiltin:
		return in.builtin(tgt, x.Args)
	case typecheck.CallExc:
		// A raise statement consumes this directly; evaluation here is
		// unreachable on checked input.
		panic(raised{Type: tgt.Name, Msg: in.eval(x.Args[0]).S})
	}
	return noneVal()
}

func (in *interp) evalArgs(pre []Value, args []ast.Expr) []Value {
	out := pre
	for _, a := range args {
		out = append(out, in.eval(a))
	}
	return out
}

func (in *interp) listMethod(tgt *typecheck.CallTarget, recv Value, args []ast.Expr) Value {
	lst := recv.List
	switch tgt.Name {
	case "append":
		lst.Elems = append(lst.Elems, widen(in.eval(args[0]), tgt.Elem))
		return noneVal()
	case "pop":
		if len(lst.Elems) == 0 {
			panic(fatal{Msg: "Pop from empty list"})
		}
		v := lst.Elems[len(lst.Elems)-1]
		lst.Elems = lst.Elems[:len(lst.Elems)-1]
		return v
	default: // remove
		want := widen(in.eval(args[0]), tgt.Elem)
		for i, el := range lst.Elems {
			if compare("==", el, want) {
				lst.Elems = append(lst.Elems[:i], lst.Elems[i+1:]...)
				return boolVal(true)
			}
		}
		return boolVal(false)
	}
}

func (in *interp) builtin(tgt *typecheck.CallTarget, args []ast.Expr) Value {
	v := in.eval(args[0])
	switch tgt.Name {
	case "print":
		in.out.WriteString(v.display())
		in.out.WriteByte('\n')
		return noneVal()
	case "int":
		switch v.Kind {
		case typecheck.KindStr:
			n, err := strconv.ParseInt(strings.TrimSpace(v.S), 10, 64)
			if err != nil {
				panic(raised{Type: "ValueError", Msg: "invalid literal for int()"})
			}
			return intVal(n)
		case typecheck.KindFloat:
			return intVal(int64(v.F))
		default:
			return intVal(v.asInt())
		}
	case "float":
		switch v.Kind {
		case typecheck.KindStr:
			f, err := strconv.ParseFloat(strings.TrimSpace(v.S), 64)
			if err != nil {
				panic(raised{Type: "ValueError", Msg: "could not convert string to float()"})
			}
			return floatVal(f)
		default:
			return floatVal(v.asFloat())
		}
	case "str":
		return strVal(v.display())
	case "bool":
		switch v.Kind {
		case typecheck.KindStr:
			return boolVal(v.S != "")
		case typecheck.KindFloat:
			return boolVal(v.F != 0)
		case typecheck.KindBool:
			return v
		default:
			return boolVal(v.I != 0)
		}
	}
	return noneVal()
}
