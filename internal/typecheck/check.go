// Package typecheck binds names and types across module, class and
// function scopes. It runs in two passes: a declaration pass over
// classes and functions (collect.go), then a body pass that types every
// statement and expression. The first type error halts the phase.
package typecheck

import (
	"strings"

	"pblang/internal/ast"
	"pblang/internal/diag"
	"pblang/internal/source"
	"pblang/internal/stdlib"
)

type checker struct {
	info *Info

	curClass *ClassInfo
	curSig   *FuncSig
	curRet   Type
	inFunc   bool
	scopes   []map[string]local
	globals  map[string]bool // names redirected by `global` in the current function
}

// Check resolves and types prog. On success every expression node has an
// entry in Info.Types.
func Check(prog *ast.Program) (info *Info, err *diag.Error) {
	c := &checker{
		info: &Info{
			Prog:     prog,
			Types:    map[ast.Expr]Type{},
			Decls:    map[*ast.VarDecl]Type{},
			Calls:    map[*ast.CallExpr]*CallTarget{},
			Attrs:    map[*ast.AttrExpr]*AttrInfo{},
			SelfRefs: map[*ast.NameExpr]*AttrInfo{},
			Funcs:    map[string]*FuncSig{},
			Classes:  map[string]*ClassInfo{},
			Globals:  map[string]Type{},
			Imports:  map[string]string{},
		},
	}
	defer func() {
		if r := recover(); r != nil {
			d, ok := r.(*diag.Error)
			if !ok {
				panic(r)
			}
			info, err = nil, d
		}
	}()
	c.collect()
	c.checkModule()
	return c.info, nil
}

// checkModule is the body pass, walking top-level statements in source
// order.
func (c *checker) checkModule() {
	for _, st := range c.info.Prog.Body {
		switch s := st.(type) {
		case *ast.VarDecl:
			if s.Init == nil {
				c.errorAt(s.S, "module variable '%s' requires an initializer", s.Name)
			}
			t := c.resolveType(s.Type)
			c.info.Decls[s] = t
			got := c.checkExpr(s.Init, t)
			if !c.info.Assignable(t, got) {
				c.errorAt(s.S, "variable '%s' declared %s, got %s", s.Name, t, got)
			}
			if _, dup := c.info.Globals[s.Name]; dup {
				c.errorAt(s.S, "variable '%s' is already declared", s.Name)
			}
			if c.moduleNameTaken(s.Name) {
				c.errorAt(s.S, "'%s' is already declared", s.Name)
			}
			c.info.Globals[s.Name] = t
			c.info.GlobalOrder = append(c.info.GlobalOrder, s.Name)
		case *ast.ImportStmt:
			path := strings.Join(s.Path, ".")
			if !stdlib.Modules[s.Path[0]] {
				c.errorAt(s.S, "unknown module '%s'", path)
			}
			alias := s.Alias
			if alias == "" {
				alias = s.Path[len(s.Path)-1]
			}
			c.info.Imports[alias] = path
		case *ast.FuncDef:
			c.checkFunc(c.info.Funcs[s.Name])
		case *ast.ClassDef:
			ci := c.info.Classes[s.Name]
			for _, name := range ci.MethodOrder {
				c.checkFunc(ci.Methods[name])
			}
		case *ast.AssignStmt, *ast.AugAssignStmt, *ast.ExprStmt:
			c.checkStmt(st)
		}
	}
}

func (c *checker) moduleNameTaken(name string) bool {
	if _, ok := c.info.Funcs[name]; ok {
		return true
	}
	if _, ok := c.info.Classes[name]; ok {
		return true
	}
	_, builtin := stdlib.Lookup(name)
	return builtin
}

func (c *checker) checkFunc(sig *FuncSig) {
	if sig.Class != "" {
		c.curClass = c.info.Classes[sig.Class]
	} else {
		c.curClass = nil
	}
	c.curSig = sig
	c.curRet = sig.Ret
	c.inFunc = true
	c.globals = map[string]bool{}
	c.pushScope()
	for _, p := range sig.Params {
		c.scopes[len(c.scopes)-1][p.Name] = local{t: p.Type}
	}
	c.checkBody(sig.Def.Body)
	c.popScope()
	c.inFunc = false
	c.curClass = nil
	c.curSig = nil
}

func (c *checker) checkBody(body []ast.Stmt) {
	for _, st := range body {
		c.checkStmt(st)
	}
}

func (c *checker) checkStmt(st ast.Stmt) {
	switch s := st.(type) {
	case *ast.VarDecl:
		if s.Init == nil {
			c.errorAt(s.S, "declaration of '%s' requires an initializer", s.Name)
		}
		t := c.resolveType(s.Type)
		c.info.Decls[s] = t
		got := c.checkExpr(s.Init, t)
		if !c.info.Assignable(t, got) {
			c.errorAt(s.S, "variable '%s' declared %s, got %s", s.Name, t, got)
		}
		c.declare(s.Name, t, s.S)
	case *ast.AssignStmt:
		target := c.checkAssignTarget(s.Target)
		got := c.checkExpr(s.Value, target)
		if !c.info.Assignable(target, got) {
			c.errorAt(s.S, "cannot assign %s to target of type %s", got, target)
		}
	case *ast.AugAssignStmt:
		target := c.checkAssignTarget(s.Target)
		got := c.checkExpr(s.Value, target)
		op := strings.TrimSuffix(s.Op, "=")
		result := c.binaryResult(op, target, got, s.S)
		if !Equal(result, target) {
			c.errorAt(s.S, "'%s' changes type from %s to %s", s.Op, target, result)
		}
	case *ast.IfStmt:
		for _, br := range s.Branches {
			if br.Cond != nil {
				if t := c.checkExpr(br.Cond, Bool); t.Kind != KindBool {
					c.errorAt(br.Cond.Span(), "if condition must be bool, got %s", t)
				}
			}
			c.pushScope()
			c.checkBody(br.Body)
			c.popScope()
		}
	case *ast.WhileStmt:
		if t := c.checkExpr(s.Cond, Bool); t.Kind != KindBool {
			c.errorAt(s.Cond.Span(), "while condition must be bool, got %s", t)
		}
		c.pushScope()
		c.checkBody(s.Body)
		c.popScope()
	case *ast.ForStmt:
		c.checkRange(s.Iter)
		c.pushScope()
		c.declare(s.Var, Int, s.S)
		c.checkBody(s.Body)
		c.popScope()
	case *ast.TryStmt:
		c.pushScope()
		c.checkBody(s.Body)
		c.popScope()
		for i := range s.Handlers {
			h := &s.Handlers[i]
			if h.ExcType != "" && !stdlib.IsException(h.ExcType) {
				ci, ok := c.info.Classes[h.ExcType]
				if !ok {
					c.errorAt(h.S, "unknown exception type '%s'", h.ExcType)
				}
				c.requireRaisable(ci, h.S)
			}
			c.pushScope()
			if h.Alias != "" {
				c.declare(h.Alias, Str, h.S)
			}
			c.checkBody(h.Body)
			c.popScope()
		}
	case *ast.RaiseStmt:
		t := c.checkExpr(s.Exc, Invalid)
		switch t.Kind {
		case KindExc:
		case KindClass:
			c.requireRaisable(c.info.Classes[t.Class], s.S)
		default:
			c.errorAt(s.S, "raise requires an exception, got %s", t)
		}
	case *ast.ReturnStmt:
		if s.Value == nil {
			if c.curRet.Kind != KindNone {
				c.errorAt(s.S, "return value of type %s required", c.curRet)
			}
			return
		}
		if c.curRet.Kind == KindNone {
			c.errorAt(s.S, "function declared -> None must not return a value")
		}
		got := c.checkExpr(s.Value, c.curRet)
		if !c.info.Assignable(c.curRet, got) {
			c.errorAt(s.S, "return type mismatch: expected %s, got %s", c.curRet, got)
		}
	case *ast.AssertStmt:
		if t := c.checkExpr(s.Cond, Bool); t.Kind != KindBool {
			c.errorAt(s.Cond.Span(), "assert condition must be bool, got %s", t)
		}
	case *ast.GlobalStmt:
		for _, name := range s.Names {
			if _, ok := c.info.Globals[name]; !ok {
				c.errorAt(s.S, "no module variable '%s' for global declaration", name)
			}
			c.globals[name] = true
		}
	case *ast.ExprStmt:
		if t := c.checkExpr(s.X, Invalid); t.Kind == KindExc {
			c.errorAt(s.S, "exception values must be raised")
		}
	case *ast.PassStmt, *ast.BreakStmt, *ast.ContinueStmt:
		// placement was validated by the parser
	case *ast.FuncDef:
		c.errorAt(s.S, "nested function definitions are not supported")
	case *ast.ClassDef:
		c.errorAt(s.S, "nested class definitions are not supported")
	case *ast.ImportStmt:
		c.errorAt(s.S, "imports must appear at module level")
	default:
		c.errorAt(st.Span(), "unsupported statement")
	}
}

// requireRaisable checks that a user class can travel through the
// exception runtime: its first instance field must be a str message.
func (c *checker) requireRaisable(ci *ClassInfo, span source.Span) {
	root := ci
	for root.Base != "" {
		root = c.info.Classes[root.Base]
	}
	if len(root.Fields) == 0 || root.Fields[0].Name != "msg" || root.Fields[0].Type.Kind != KindStr {
		c.errorAt(span, "exception class '%s' must declare 'msg: str' as its first field", ci.Name)
	}
}

// checkAssignTarget types the left side of an assignment.
func (c *checker) checkAssignTarget(target ast.Expr) Type {
	switch t := target.(type) {
	case *ast.NameExpr:
		if v, ok := c.lookupLocal(t.Name); ok {
			return c.setType(target, v.t)
		}
		if c.globals[t.Name] {
			return c.setType(target, c.info.Globals[t.Name])
		}
		if !c.inFunc {
			if g, ok := c.info.Globals[t.Name]; ok {
				return c.setType(target, g)
			}
		}
		if _, ok := c.info.Globals[t.Name]; ok {
			c.errorAt(t.S, "assignment to module variable '%s' requires a 'global' declaration", t.Name)
		}
		c.errorAt(t.S, "cannot assign to undeclared variable '%s'", t.Name)
	case *ast.IndexExpr:
		if base := c.checkExpr(t.Base, Invalid); base.Kind == KindDict {
			c.errorAt(t.S, "dict entries cannot be assigned after construction")
		}
		return c.checkExpr(target, Invalid)
	case *ast.AttrExpr:
		return c.checkExpr(target, Invalid)
	}
	c.errorAt(target.Span(), "invalid assignment target")
	return Invalid
}

// checkRange validates the only iterable form, range(end) or
// range(start, end), and records the call for lowering.
func (c *checker) checkRange(iter ast.Expr) {
	call, ok := iter.(*ast.CallExpr)
	if !ok {
		c.errorAt(iter.Span(), "for loops iterate over range(...) only")
		return
	}
	name, ok := call.Fn.(*ast.NameExpr)
	if !ok || name.Name != "range" {
		c.errorAt(iter.Span(), "for loops iterate over range(...) only")
		return
	}
	if len(call.Args) < 1 || len(call.Args) > 2 {
		c.errorAt(call.S, "range takes 1 or 2 arguments, got %d", len(call.Args))
	}
	for _, a := range call.Args {
		if t := c.checkExpr(a, Int); t.Kind != KindInt {
			c.errorAt(a.Span(), "range argument must be int, got %s", t)
		}
	}
	c.info.Calls[call] = &CallTarget{Kind: CallRange, Name: "range"}
	c.setType(call, NoneT)
	c.setType(name, NoneT)
}

// ───────────────────────── expressions ─────────────────────────

// checkExpr types e. expected propagates the target type into literals
// that cannot stand alone (the empty list/dict); Invalid means no
// constraint.
func (c *checker) checkExpr(e ast.Expr, expected Type) Type {
	switch x := e.(type) {
	case *ast.IntLit:
		return c.setType(e, Int)
	case *ast.FloatLit:
		return c.setType(e, Float)
	case *ast.StrLit:
		return c.setType(e, Str)
	case *ast.BoolLit:
		return c.setType(e, Bool)
	case *ast.NoneLit:
		return c.setType(e, NoneT)
	case *ast.FStrLit:
		for _, part := range x.Parts {
			fe, ok := part.(*ast.FStrExpr)
			if !ok {
				continue
			}
			t := c.checkExpr(fe.X, Invalid)
			if !t.IsPrimitive() {
				c.errorAt(fe.X.Span(), "f-string placeholder must be a primitive value, got %s", t)
			}
		}
		return c.setType(e, Str)
	case *ast.NameExpr:
		return c.setType(e, c.checkName(x))
	case *ast.ListExpr:
		if len(x.Elems) == 0 {
			if expected.Kind != KindList {
				c.errorAt(x.S, "cannot infer element type of empty list literal without a declaration")
			}
			return c.setType(e, expected)
		}
		elem := c.checkExpr(x.Elems[0], elemConstraint(expected, KindList))
		for _, el := range x.Elems[1:] {
			t := c.checkExpr(el, elem)
			if !Equal(t, elem) {
				c.errorAt(el.Span(), "list elements must share one type: %s vs %s", elem, t)
			}
		}
		if !elem.IsPrimitive() {
			c.errorAt(x.S, "list elements must be primitive values, got %s", elem)
		}
		return c.setType(e, ListOf(elem))
	case *ast.DictExpr:
		if len(x.Keys) == 0 {
			if expected.Kind != KindDict {
				c.errorAt(x.S, "cannot infer value type of empty dict literal without a declaration")
			}
			return c.setType(e, expected)
		}
		for _, k := range x.Keys {
			if t := c.checkExpr(k, Str); t.Kind != KindStr {
				c.errorAt(k.Span(), "dict keys must be str, got %s", t)
			}
		}
		val := c.checkExpr(x.Values[0], elemConstraint(expected, KindDict))
		for _, v := range x.Values[1:] {
			t := c.checkExpr(v, val)
			if !Equal(t, val) {
				c.errorAt(v.Span(), "dict values must share one type: %s vs %s", val, t)
			}
		}
		if !val.IsPrimitive() {
			c.errorAt(x.S, "dict values must be primitive values, got %s", val)
		}
		return c.setType(e, DictOf(val))
	case *ast.IndexExpr:
		base := c.checkExpr(x.Base, Invalid)
		switch base.Kind {
		case KindList:
			if t := c.checkExpr(x.Index, Int); t.Kind != KindInt {
				c.errorAt(x.Index.Span(), "list index must be int, got %s", t)
			}
			return c.setType(e, *base.Elem)
		case KindDict:
			if t := c.checkExpr(x.Index, Str); t.Kind != KindStr {
				c.errorAt(x.Index.Span(), "dict key must be str, got %s", t)
			}
			return c.setType(e, *base.Elem)
		}
		c.errorAt(x.S, "cannot index into value of type %s", base)
	case *ast.AttrExpr:
		return c.setType(e, c.checkAttr(x))
	case *ast.CallExpr:
		return c.setType(e, c.checkCall(x))
	case *ast.UnaryExpr:
		t := c.checkExpr(x.X, expected)
		switch x.Op {
		case "-":
			if !t.IsNumeric() {
				c.errorAt(x.S, "unary '-' requires a numeric operand, got %s", t)
			}
			return c.setType(e, t)
		case "not":
			if t.Kind != KindBool {
				c.errorAt(x.S, "'not' requires a bool operand, got %s", t)
			}
			return c.setType(e, Bool)
		}
	case *ast.BinaryExpr:
		l := c.checkExpr(x.Left, Invalid)
		r := c.checkExpr(x.Right, Invalid)
		return c.setType(e, c.binaryResult(x.Op, l, r, x.S))
	}
	c.errorAt(e.Span(), "unsupported expression")
	return Invalid
}

func elemConstraint(expected Type, k Kind) Type {
	if expected.Kind == k {
		return *expected.Elem
	}
	return Invalid
}

func (c *checker) binaryResult(op string, l, r Type, span source.Span) Type {
	switch op {
	case "+", "-", "*", "/", "//", "%":
		// bool does not participate in arithmetic; only int(x) converts.
		if !l.IsNumeric() {
			c.errorAt(span, "operator '%s' requires numeric operands, got %s", op, l)
		}
		if !r.IsNumeric() {
			c.errorAt(span, "operator '%s' requires numeric operands, got %s", op, r)
		}
		if op == "/" {
			return Float
		}
		if l.Kind == KindFloat || r.Kind == KindFloat {
			return Float
		}
		return Int
	case "==", "!=":
		if l.IsNumeric() && r.IsNumeric() {
			return Bool
		}
		if !Equal(l, r) {
			c.errorAt(span, "comparison '%s' between incompatible types %s and %s", op, l, r)
		}
		if l.Kind == KindList || l.Kind == KindDict {
			c.errorAt(span, "comparison '%s' is not defined for %s", op, l)
		}
		return Bool
	case "<", "<=", ">", ">=":
		if l.IsNumeric() && r.IsNumeric() {
			return Bool
		}
		if l.Kind == KindStr && r.Kind == KindStr {
			return Bool
		}
		c.errorAt(span, "ordering '%s' requires numeric or str operands, got %s and %s", op, l, r)
		return Bool
	case "is", "is not":
		if l.Kind != KindBool || r.Kind != KindBool {
			c.errorAt(span, "'%s' requires bool operands, got %s and %s", op, l, r)
		}
		return Bool
	case "and", "or":
		if l.Kind != KindBool || r.Kind != KindBool {
			c.errorAt(span, "'%s' requires bool operands, got %s and %s", op, l, r)
		}
		return Bool
	}
	c.errorAt(span, "unknown operator '%s'", op)
	return Invalid
}

// checkName resolves a bare identifier through the scope chain:
// locals → parameters → class attributes via implicit self → module
// globals.
func (c *checker) checkName(x *ast.NameExpr) Type {
	if v, ok := c.lookupLocal(x.Name); ok {
		return v.t
	}
	if c.curClass != nil {
		if owner, ft, depth, ok := c.info.FieldAlongChain(c.curClass.Name, x.Name); ok {
			c.info.SelfRefs[x] = &AttrInfo{Kind: AttrField, Name: x.Name, Owner: owner, Recv: c.curClass.Name, Depth: depth, Type: ft}
			return ft
		}
		if st, owner, ok := c.info.StaticAlongChain(c.curClass.Name, x.Name); ok {
			c.info.SelfRefs[x] = &AttrInfo{Kind: AttrStatic, Name: x.Name, Owner: owner, Recv: c.curClass.Name, Type: st.Type}
			return st.Type
		}
	}
	if g, ok := c.info.Globals[x.Name]; ok {
		return g
	}
	if _, ok := c.info.Funcs[x.Name]; ok {
		c.errorAt(x.S, "function '%s' can only be called", x.Name)
	}
	if _, ok := c.info.Classes[x.Name]; ok {
		c.errorAt(x.S, "class '%s' can only be constructed or accessed", x.Name)
	}
	if _, ok := c.info.Imports[x.Name]; ok {
		c.errorAt(x.S, "module '%s' has no usable members", x.Name)
	}
	c.errorAt(x.S, "undefined name '%s'", x.Name)
	return Invalid
}

// checkAttr resolves obj.attr and Class.attr accesses outside calls.
func (c *checker) checkAttr(x *ast.AttrExpr) Type {
	// Class reference: class-level attribute.
	if name, ok := x.X.(*ast.NameExpr); ok {
		if _, isClass := c.info.Classes[name.Name]; isClass {
			st, owner, ok := c.info.StaticAlongChain(name.Name, x.Name)
			if !ok {
				c.errorAt(x.S, "class '%s' has no class attribute '%s'", name.Name, x.Name)
			}
			c.setType(name, ClassOf(name.Name))
			c.info.Attrs[x] = &AttrInfo{Kind: AttrStatic, Name: x.Name, Owner: owner, Recv: name.Name, Type: st.Type}
			return st.Type
		}
	}
	base := c.checkExpr(x.X, Invalid)
	if base.Kind != KindClass {
		c.errorAt(x.S, "value of type %s has no attribute '%s'", base, x.Name)
	}
	if owner, ft, depth, ok := c.info.FieldAlongChain(base.Class, x.Name); ok {
		c.info.Attrs[x] = &AttrInfo{Kind: AttrField, Name: x.Name, Owner: owner, Recv: base.Class, Depth: depth, Type: ft}
		return ft
	}
	if st, owner, ok := c.info.StaticAlongChain(base.Class, x.Name); ok {
		c.info.Attrs[x] = &AttrInfo{Kind: AttrStatic, Name: x.Name, Owner: owner, Recv: base.Class, Type: st.Type}
		return st.Type
	}
	if _, _, ok := c.info.MethodAlongChain(base.Class, x.Name); ok {
		c.errorAt(x.S, "method '%s.%s' must be called", base.Class, x.Name)
	}
	c.errorAt(x.S, "class '%s' has no attribute '%s'", base.Class, x.Name)
	return Invalid
}

func (c *checker) checkCall(x *ast.CallExpr) Type {
	switch fn := x.Fn.(type) {
	case *ast.NameExpr:
		// Locals shadow functions, classes and builtins.
		if _, ok := c.lookupLocal(fn.Name); ok {
			c.errorAt(x.S, "'%s' is not a function", fn.Name)
		}
		if b, ok := stdlib.Lookup(fn.Name); ok {
			return c.checkBuiltinCall(x, fn, b)
		}
		if stdlib.IsException(fn.Name) {
			c.checkExcArgs(x, fn.Name)
			c.info.Calls[x] = &CallTarget{Kind: CallExc, Name: fn.Name}
			c.setType(fn, Type{Kind: KindExc})
			return Type{Kind: KindExc}
		}
		if _, ok := c.info.Classes[fn.Name]; ok {
			return c.checkCtorCall(x, fn.Name)
		}
		if sig, ok := c.info.Funcs[fn.Name]; ok {
			c.checkArgsFrom(x, sig.Params, x.Args, fn.Name)
			c.info.Calls[x] = &CallTarget{Kind: CallFunc, Name: fn.Name, Sig: sig}
			c.setType(fn, NoneT)
			return sig.Ret
		}
		c.errorAt(x.S, "call to undefined function '%s'", fn.Name)
	case *ast.AttrExpr:
		return c.checkMethodCall(x, fn)
	}
	c.errorAt(x.S, "expression is not callable")
	return Invalid
}

func (c *checker) checkBuiltinCall(x *ast.CallExpr, fn *ast.NameExpr, b stdlib.Builtin) Type {
	c.setType(fn, NoneT)
	switch b {
	case stdlib.Print:
		if len(x.Args) != 1 {
			c.errorAt(x.S, "print takes exactly one argument, got %d", len(x.Args))
		}
		t := c.checkExpr(x.Args[0], Invalid)
		switch t.Kind {
		case KindInt, KindFloat, KindBool, KindStr, KindList, KindDict:
		default:
			c.errorAt(x.Args[0].Span(), "print cannot format a value of type %s", t)
		}
		c.info.Calls[x] = &CallTarget{Kind: CallBuiltin, Name: "print", ArgType: t}
		return NoneT
	case stdlib.Range:
		c.errorAt(x.S, "'range' is only allowed as the iterable of a for loop")
	case stdlib.CastInt, stdlib.CastFloat, stdlib.CastStr, stdlib.CastBool:
		name := fn.Name
		if len(x.Args) != 1 {
			c.errorAt(x.S, "%s() takes exactly one argument, got %d", name, len(x.Args))
		}
		t := c.checkExpr(x.Args[0], Invalid)
		if !t.IsPrimitive() {
			c.errorAt(x.Args[0].Span(), "%s() requires a primitive value, got %s", name, t)
		}
		c.info.Calls[x] = &CallTarget{Kind: CallBuiltin, Name: name, ArgType: t}
		switch b {
		case stdlib.CastInt:
			return Int
		case stdlib.CastFloat:
			return Float
		case stdlib.CastStr:
			return Str
		default:
			return Bool
		}
	}
	return Invalid
}

func (c *checker) checkExcArgs(x *ast.CallExpr, name string) {
	if len(x.Args) != 1 {
		c.errorAt(x.S, "%s takes exactly one message argument, got %d", name, len(x.Args))
	}
	if t := c.checkExpr(x.Args[0], Str); t.Kind != KindStr {
		c.errorAt(x.Args[0].Span(), "%s message must be str, got %s", name, t)
	}
}

func (c *checker) checkCtorCall(x *ast.CallExpr, class string) Type {
	sig, owner, ok := c.info.MethodAlongChain(class, "__init__")
	if !ok {
		if len(x.Args) != 0 {
			c.errorAt(x.S, "class '%s' has no __init__; constructor takes no arguments", class)
		}
		c.info.Calls[x] = &CallTarget{Kind: CallCtor, Recv: class}
		c.setType(x.Fn, ClassOf(class))
		return ClassOf(class)
	}
	c.checkArgsFrom(x, sig.Params[1:], x.Args, class)
	c.info.Calls[x] = &CallTarget{Kind: CallCtor, Name: "__init__", Class: owner, Recv: class, Sig: sig}
	c.setType(x.Fn, ClassOf(class))
	return ClassOf(class)
}

func (c *checker) checkMethodCall(x *ast.CallExpr, fn *ast.AttrExpr) Type {
	// Explicit base constructor call: Base.__init__(self, ...).
	if name, ok := fn.X.(*ast.NameExpr); ok {
		if _, isClass := c.info.Classes[name.Name]; isClass {
			if fn.Name != "__init__" {
				c.errorAt(x.S, "only __init__ may be called through a class name")
			}
			sig, owner, ok := c.info.MethodAlongChain(name.Name, "__init__")
			if !ok {
				c.errorAt(x.S, "class '%s' has no __init__", name.Name)
			}
			if len(x.Args) == 0 {
				c.errorAt(x.S, "%s.__init__ requires the instance as its first argument", name.Name)
			}
			recv := c.checkExpr(x.Args[0], ClassOf(name.Name))
			if recv.Kind != KindClass || !c.info.IsSubclass(recv.Class, name.Name) {
				c.errorAt(x.Args[0].Span(), "first argument to %s.__init__ must be a %s instance, got %s", name.Name, name.Name, recv)
			}
			c.checkArgsFrom(x, sig.Params[1:], x.Args[1:], name.Name+".__init__")
			c.setType(fn.X, ClassOf(name.Name))
			c.setType(fn, NoneT)
			c.info.Calls[x] = &CallTarget{Kind: CallInit, Name: "__init__", Class: owner, Recv: name.Name, Sig: sig}
			return NoneT
		}
	}

	base := c.checkExpr(fn.X, Invalid)
	switch base.Kind {
	case KindList:
		return c.checkListMethod(x, fn, base)
	case KindClass:
		sig, owner, ok := c.info.MethodAlongChain(base.Class, fn.Name)
		if !ok {
			c.errorAt(x.S, "class '%s' has no method '%s'", base.Class, fn.Name)
		}
		c.checkArgsFrom(x, sig.Params[1:], x.Args, base.Class+"."+fn.Name)
		c.setType(fn, NoneT)
		c.info.Calls[x] = &CallTarget{Kind: CallMethod, Name: fn.Name, Class: owner, Recv: base.Class, Sig: sig}
		return sig.Ret
	}
	c.errorAt(x.S, "value of type %s has no method '%s'", base, fn.Name)
	return Invalid
}

func (c *checker) checkListMethod(x *ast.CallExpr, fn *ast.AttrExpr, base Type) Type {
	elem := *base.Elem
	c.setType(fn, NoneT)
	switch fn.Name {
	case "append":
		if len(x.Args) != 1 {
			c.errorAt(x.S, "append takes exactly one argument, got %d", len(x.Args))
		}
		if t := c.checkExpr(x.Args[0], elem); !c.info.Assignable(elem, t) {
			c.errorAt(x.Args[0].Span(), "append to %s requires %s, got %s", base, elem, t)
		}
		c.info.Calls[x] = &CallTarget{Kind: CallListMethod, Name: "append", Elem: elem}
		return NoneT
	case "pop":
		if len(x.Args) != 0 {
			c.errorAt(x.S, "pop takes no arguments, got %d", len(x.Args))
		}
		c.info.Calls[x] = &CallTarget{Kind: CallListMethod, Name: "pop", Elem: elem}
		return elem
	case "remove":
		if len(x.Args) != 1 {
			c.errorAt(x.S, "remove takes exactly one argument, got %d", len(x.Args))
		}
		if t := c.checkExpr(x.Args[0], elem); !c.info.Assignable(elem, t) {
			c.errorAt(x.Args[0].Span(), "remove from %s requires %s, got %s", base, elem, t)
		}
		c.info.Calls[x] = &CallTarget{Kind: CallListMethod, Name: "remove", Elem: elem}
		return Bool
	}
	c.errorAt(x.S, "%s has no method '%s'", base, fn.Name)
	return Invalid
}

// checkArgsFrom validates a positional argument list against params;
// trailing parameters may be omitted only when they declare defaults.
func (c *checker) checkArgsFrom(x *ast.CallExpr, params []ParamInfo, args []ast.Expr, what string) {
	required := 0
	for _, p := range params {
		if p.Default == nil {
			required++
		}
	}
	if len(args) < required || len(args) > len(params) {
		if required == len(params) {
			c.errorAt(x.S, "'%s' expects %d argument(s), got %d", what, len(params), len(args))
		}
		c.errorAt(x.S, "'%s' expects between %d and %d arguments, got %d", what, required, len(params), len(args))
	}
	for i, a := range args {
		t := c.checkExpr(a, params[i].Type)
		if !c.info.Assignable(params[i].Type, t) {
			c.errorAt(a.Span(), "argument %d to '%s' expects %s, got %s", i+1, what, params[i].Type, t)
		}
	}
}

func (c *checker) setType(e ast.Expr, t Type) Type {
	c.info.Types[e] = t
	return t
}
