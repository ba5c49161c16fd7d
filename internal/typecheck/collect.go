package typecheck

import (
	"pblang/internal/ast"
	"pblang/internal/stdlib"
)

// collect is the declaration pass: it records every class and function
// with its signature, resolves base classes, splits class bodies into
// statics and instance fields, and discovers the remaining instance
// fields from `self.x = ...` assignments in __init__.
func (c *checker) collect() {
	for _, st := range c.info.Prog.Body {
		switch s := st.(type) {
		case *ast.ClassDef:
			c.collectClass(s)
		case *ast.FuncDef:
			c.collectFunc(s)
		}
	}
	for _, name := range c.info.ClassOrder {
		c.inferInstanceFields(c.info.Classes[name])
	}
	if main, ok := c.info.Funcs["main"]; ok {
		if len(main.Params) != 0 {
			c.errorAt(main.Def.S, "'main' must not take parameters")
		}
		if main.Ret.Kind != KindNone {
			c.errorAt(main.Def.S, "'main' must not declare a return type")
		}
	}
}

func (c *checker) collectFunc(fn *ast.FuncDef) {
	if _, exists := c.info.Funcs[fn.Name]; exists {
		c.errorAt(fn.S, "duplicate function '%s'", fn.Name)
	}
	if _, exists := c.info.Classes[fn.Name]; exists {
		c.errorAt(fn.S, "'%s' is already declared as a class", fn.Name)
	}
	if _, isBuiltin := stdlib.Lookup(fn.Name); isBuiltin {
		c.errorAt(fn.S, "cannot redefine built-in '%s'", fn.Name)
	}
	sig := c.funcSig(fn, "")
	c.info.Funcs[fn.Name] = sig
	c.info.FuncOrder = append(c.info.FuncOrder, fn.Name)
}

// funcSig resolves a def header. For methods, class names the owner and
// the leading `self` parameter is typed as that class.
func (c *checker) funcSig(fn *ast.FuncDef, class string) *FuncSig {
	sig := &FuncSig{Name: fn.Name, Class: class, Def: fn}
	for i, p := range fn.Params {
		pi := ParamInfo{Name: p.Name}
		if class != "" && i == 0 {
			if p.Name != "self" {
				c.errorAt(p.S, "method '%s.%s' must take 'self' as its first parameter", class, fn.Name)
			}
			pi.Type = ClassOf(class)
			sig.Params = append(sig.Params, pi)
			continue
		}
		if p.Type == nil {
			c.errorAt(p.S, "missing type annotation for parameter '%s' in '%s'", p.Name, fn.Name)
		}
		pi.Type = c.resolveType(p.Type)
		if p.Default != nil {
			dt, ok := literalType(p.Default)
			if !ok {
				c.errorAt(p.Default.Span(), "default value for parameter '%s' must be a literal", p.Name)
			}
			if !c.info.Assignable(pi.Type, dt) {
				c.errorAt(p.Default.Span(), "default for parameter '%s' has type %s, expected %s", p.Name, dt, pi.Type)
			}
			pi.Default = p.Default
		}
		sig.Params = append(sig.Params, pi)
	}
	if fn.Ret != nil {
		sig.Ret = c.resolveType(fn.Ret)
	} else {
		sig.Ret = NoneT
	}
	return sig
}

func (c *checker) collectClass(cls *ast.ClassDef) {
	if _, exists := c.info.Classes[cls.Name]; exists {
		c.errorAt(cls.S, "duplicate class '%s'", cls.Name)
	}
	if _, exists := c.info.Funcs[cls.Name]; exists {
		c.errorAt(cls.S, "'%s' is already declared as a function", cls.Name)
	}
	if stdlib.IsException(cls.Name) {
		c.errorAt(cls.S, "cannot redefine built-in exception '%s'", cls.Name)
	}
	if cls.Base != "" {
		// Bases must be declared before their subclasses, which also rules
		// out inheritance cycles.
		if _, ok := c.info.Classes[cls.Base]; !ok {
			c.errorAt(cls.S, "base class '%s' is not defined before '%s'", cls.Base, cls.Name)
		}
	}

	ci := &ClassInfo{Name: cls.Name, Base: cls.Base, Methods: map[string]*FuncSig{}, Def: cls}
	c.info.Classes[cls.Name] = ci
	c.info.ClassOrder = append(c.info.ClassOrder, cls.Name)

	// Class-body declarations: an initializer makes a class-level attribute
	// (a C_attr global); a bare declaration declares an instance field.
	for _, f := range cls.Fields {
		ft := c.resolveType(f.Type)
		c.info.Decls[f] = ft
		if f.Init != nil {
			lt, ok := literalType(f.Init)
			if !ok {
				c.errorAt(f.Init.Span(), "class attribute '%s.%s' requires a literal initializer", cls.Name, f.Name)
			}
			if !c.info.Assignable(ft, lt) {
				c.errorAt(f.Init.Span(), "class attribute '%s.%s' declared %s, got %s", cls.Name, f.Name, ft, lt)
			}
			if _, dup := ci.Static(f.Name); dup {
				c.errorAt(f.S, "duplicate class attribute '%s'", f.Name)
			}
			ci.addStatic(f.Name, ft, f.Init)
			continue
		}
		if _, dup := ci.ownField(f.Name); dup {
			c.errorAt(f.S, "duplicate field '%s'", f.Name)
		}
		ci.addField(f.Name, ft)
	}

	for _, m := range cls.Methods {
		if _, dup := ci.Methods[m.Name]; dup {
			c.errorAt(m.S, "duplicate method '%s.%s'", cls.Name, m.Name)
		}
		if len(m.Params) == 0 {
			c.errorAt(m.S, "method '%s.%s' must take 'self' as its first parameter", cls.Name, m.Name)
		}
		ci.Methods[m.Name] = c.funcSig(m, cls.Name)
		ci.MethodOrder = append(ci.MethodOrder, m.Name)
	}
}

// inferInstanceFields walks __init__ and records every `self.x = expr`
// whose name is not already a field along the chain, inferring the field
// type from the right-hand side. This fixes the struct layout before any
// method body is checked.
func (c *checker) inferInstanceFields(ci *ClassInfo) {
	initSig, ok := ci.Methods["__init__"]
	if !ok {
		return
	}
	c.curClass = ci
	c.curSig = initSig
	c.curRet = initSig.Ret
	c.globals = map[string]bool{}
	c.pushScope()
	for _, p := range initSig.Params {
		c.scopes[len(c.scopes)-1][p.Name] = local{t: p.Type}
	}
	c.discoverFields(ci, initSig.Def.Body)
	c.popScope()
	c.curClass = nil
	c.curSig = nil
}

func (c *checker) discoverFields(ci *ClassInfo, body []ast.Stmt) {
	for _, st := range body {
		switch s := st.(type) {
		case *ast.VarDecl:
			t := c.resolveType(s.Type)
			if _, exists := c.lookupLocal(s.Name); !exists {
				c.scopes[len(c.scopes)-1][s.Name] = local{t: t}
			}
		case *ast.AssignStmt:
			attr, ok := s.Target.(*ast.AttrExpr)
			if !ok {
				continue
			}
			recv, ok := attr.X.(*ast.NameExpr)
			if !ok || recv.Name != "self" {
				continue
			}
			if _, _, _, found := c.info.FieldAlongChain(ci.Name, attr.Name); found {
				continue
			}
			if _, _, found := c.info.StaticAlongChain(ci.Name, attr.Name); found {
				continue
			}
			ci.addField(attr.Name, c.checkExpr(s.Value, Invalid))
		case *ast.IfStmt:
			for _, br := range s.Branches {
				c.discoverFields(ci, br.Body)
			}
		case *ast.WhileStmt:
			c.discoverFields(ci, s.Body)
		case *ast.ForStmt:
			c.pushScope()
			c.scopes[len(c.scopes)-1][s.Var] = local{t: Int}
			c.discoverFields(ci, s.Body)
			c.popScope()
		case *ast.TryStmt:
			c.discoverFields(ci, s.Body)
			for _, h := range s.Handlers {
				c.discoverFields(ci, h.Body)
			}
		}
	}
}

// resolveType maps a syntactic annotation to a Type.
func (c *checker) resolveType(t *ast.TypeExpr) Type {
	switch t.Name {
	case "int", "float", "bool", "str", "None":
		if len(t.Args) != 0 {
			c.errorAt(t.S, "type '%s' does not take arguments", t.Name)
		}
		switch t.Name {
		case "int":
			return Int
		case "float":
			return Float
		case "bool":
			return Bool
		case "str":
			return Str
		}
		return NoneT
	case "list":
		if len(t.Args) != 1 {
			c.errorAt(t.S, "list takes exactly one type argument")
		}
		elem := c.resolveType(t.Args[0])
		if !elem.IsPrimitive() {
			c.errorAt(t.Args[0].S, "list element type must be a primitive type, got %s", elem)
		}
		return ListOf(elem)
	case "dict":
		if len(t.Args) != 2 {
			c.errorAt(t.S, "dict takes exactly two type arguments")
		}
		if key := c.resolveType(t.Args[0]); key.Kind != KindStr {
			c.errorAt(t.Args[0].S, "dict keys must be str, got %s", key)
		}
		val := c.resolveType(t.Args[1])
		if !val.IsPrimitive() {
			c.errorAt(t.Args[1].S, "dict value type must be a primitive type, got %s", val)
		}
		return DictOf(val)
	}
	if _, ok := c.info.Classes[t.Name]; ok {
		if len(t.Args) != 0 {
			c.errorAt(t.S, "class type '%s' does not take arguments", t.Name)
		}
		return ClassOf(t.Name)
	}
	c.errorAt(t.S, "unknown type '%s'", t.Name)
	return Invalid
}

// literalType types the literal expressions allowed in defaults and
// class attribute initializers.
func literalType(e ast.Expr) (Type, bool) {
	switch x := e.(type) {
	case *ast.IntLit:
		return Int, true
	case *ast.FloatLit:
		return Float, true
	case *ast.StrLit:
		return Str, true
	case *ast.BoolLit:
		return Bool, true
	case *ast.UnaryExpr:
		if x.Op == "-" {
			if t, ok := literalType(x.X); ok && t.IsNumeric() {
				return t, true
			}
		}
	}
	return Invalid, false
}
