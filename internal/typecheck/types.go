package typecheck

import "pblang/internal/ast"

type Kind int

const (
	KindInvalid Kind = iota
	KindInt
	KindFloat
	KindBool
	KindStr
	KindNone
	KindList
	KindDict // key is always str
	KindClass
	KindExc // value produced by calling a built-in exception name
)

// Type is PB's structural type tag. List carries its element type in Elem;
// Dict carries its value type in Elem (the key is always str); Class
// carries the class name.
type Type struct {
	Kind  Kind
	Elem  *Type
	Class string
}

var (
	Invalid = Type{Kind: KindInvalid}
	Int     = Type{Kind: KindInt}
	Float   = Type{Kind: KindFloat}
	Bool    = Type{Kind: KindBool}
	Str     = Type{Kind: KindStr}
	NoneT   = Type{Kind: KindNone}
)

func ListOf(elem Type) Type  { e := elem; return Type{Kind: KindList, Elem: &e} }
func DictOf(value Type) Type { v := value; return Type{Kind: KindDict, Elem: &v} }
func ClassOf(name string) Type {
	return Type{Kind: KindClass, Class: name}
}

func (t Type) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindStr:
		return "str"
	case KindNone:
		return "None"
	case KindList:
		return "list[" + t.Elem.String() + "]"
	case KindDict:
		return "dict[str, " + t.Elem.String() + "]"
	case KindClass:
		return t.Class
	case KindExc:
		return "exception"
	default:
		return "<invalid>"
	}
}

// Equal is structural type equality.
func Equal(a, b Type) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindList, KindDict:
		return Equal(*a.Elem, *b.Elem)
	case KindClass:
		return a.Class == b.Class
	}
	return true
}

func (t Type) IsNumeric() bool { return t.Kind == KindInt || t.Kind == KindFloat }

func (t Type) IsPrimitive() bool {
	switch t.Kind {
	case KindInt, KindFloat, KindBool, KindStr:
		return true
	}
	return false
}

// ParamInfo is one declared parameter of a function or method.
type ParamInfo struct {
	Name    string
	Type    Type
	Default ast.Expr // nil when the parameter has no default
}

// FuncSig is a callable's resolved signature. Class is non-empty for
// methods and names the defining class.
type FuncSig struct {
	Name   string
	Class  string
	Params []ParamInfo
	Ret    Type
	Def    *ast.FuncDef
}

// Required counts parameters without defaults.
func (s *FuncSig) Required() int {
	n := 0
	for _, p := range s.Params {
		if p.Default == nil {
			n++
		}
	}
	return n
}

// FieldInfo is one instance field in its class's layout.
type FieldInfo struct {
	Name string
	Type Type
}

// StaticInfo is a class-level attribute, lowered to a `C_attr` global.
type StaticInfo struct {
	Name string
	Type Type
	Init ast.Expr
}

// ClassInfo is the flattened view of one class: its own instance fields
// in discovery order, statics, methods, and the base link.
type ClassInfo struct {
	Name        string
	Base        string // "" for a root class
	Fields      []FieldInfo
	fieldIndex  map[string]int
	Statics     []StaticInfo
	staticIndex map[string]int
	Methods     map[string]*FuncSig
	MethodOrder []string
	Def         *ast.ClassDef
}

func (c *ClassInfo) addField(name string, t Type) {
	if c.fieldIndex == nil {
		c.fieldIndex = map[string]int{}
	}
	c.fieldIndex[name] = len(c.Fields)
	c.Fields = append(c.Fields, FieldInfo{Name: name, Type: t})
}

func (c *ClassInfo) ownField(name string) (FieldInfo, bool) {
	if i, ok := c.fieldIndex[name]; ok {
		return c.Fields[i], true
	}
	return FieldInfo{}, false
}

func (c *ClassInfo) addStatic(name string, t Type, init ast.Expr) {
	if c.staticIndex == nil {
		c.staticIndex = map[string]int{}
	}
	c.staticIndex[name] = len(c.Statics)
	c.Statics = append(c.Statics, StaticInfo{Name: name, Type: t, Init: init})
}

func (c *ClassInfo) Static(name string) (StaticInfo, bool) {
	if i, ok := c.staticIndex[name]; ok {
		return c.Statics[i], true
	}
	return StaticInfo{}, false
}

// CallKind classifies how a call site lowers.
type CallKind int

const (
	CallFunc       CallKind = iota // module-level function
	CallMethod                     // obj.m(...)
	CallCtor                       // C(...)
	CallInit                       // explicit Base.__init__(self, ...)
	CallBuiltin                    // print / casts
	CallRange                      // range(...) in a for header
	CallExc                        // RuntimeError("msg") and friends
	CallListMethod                 // lst.append / pop / remove
)

// CallTarget records call resolution for the code generator.
type CallTarget struct {
	Kind    CallKind
	Name    string   // function / method / builtin / exception name
	Class   string   // defining class for CallMethod/CallCtor/CallInit
	Recv    string   // receiver's static class for CallMethod
	Sig     *FuncSig // nil for builtins and list methods
	Elem    Type     // element type for CallListMethod
	ArgType Type     // single-argument type for print and casts
}

// AttrKind classifies attribute accesses for lowering.
type AttrKind int

const (
	AttrField  AttrKind = iota // instance field (possibly inherited)
	AttrStatic                 // Class.attr or obj.attr hitting a class-level attribute
)

// AttrInfo records attribute resolution. Depth counts base hops from the
// receiver's static class to the owning class, which the generator
// flattens into `.base` accesses.
type AttrInfo struct {
	Kind  AttrKind
	Name  string
	Owner string
	Recv  string
	Depth int
	Type  Type
}

// Info is the checker's output: the typed program plus the side tables
// the code generator and interpreter consume.
type Info struct {
	Prog *ast.Program

	Types    map[ast.Expr]Type
	Decls    map[*ast.VarDecl]Type
	Calls    map[*ast.CallExpr]*CallTarget
	Attrs    map[*ast.AttrExpr]*AttrInfo
	SelfRefs map[*ast.NameExpr]*AttrInfo // bare names resolved through implicit self

	Funcs     map[string]*FuncSig
	FuncOrder []string

	Classes    map[string]*ClassInfo
	ClassOrder []string // bases before subclasses (declaration order)

	Globals     map[string]Type
	GlobalOrder []string

	Imports map[string]string // alias → dotted path
}

// FieldAlongChain resolves a field (and the hop count to its owner)
// starting at class name and walking base links.
func (info *Info) FieldAlongChain(name, field string) (owner string, ft Type, depth int, ok bool) {
	depth = 0
	for cur := name; cur != ""; {
		ci := info.Classes[cur]
		if ci == nil {
			return "", Invalid, 0, false
		}
		if f, found := ci.ownField(field); found {
			return cur, f.Type, depth, true
		}
		cur = ci.Base
		depth++
	}
	return "", Invalid, 0, false
}

// MethodAlongChain resolves a method starting at class name.
func (info *Info) MethodAlongChain(name, method string) (*FuncSig, string, bool) {
	for cur := name; cur != ""; {
		ci := info.Classes[cur]
		if ci == nil {
			return nil, "", false
		}
		if m, found := ci.Methods[method]; found {
			return m, cur, true
		}
		cur = ci.Base
	}
	return nil, "", false
}

// StaticAlongChain resolves a class-level attribute starting at class name.
func (info *Info) StaticAlongChain(name, attr string) (StaticInfo, string, bool) {
	for cur := name; cur != ""; {
		ci := info.Classes[cur]
		if ci == nil {
			return StaticInfo{}, "", false
		}
		if s, found := ci.Static(attr); found {
			return s, cur, true
		}
		cur = ci.Base
	}
	return StaticInfo{}, "", false
}

// IsSubclass reports whether sub equals sup or derives from it.
func (info *Info) IsSubclass(sub, sup string) bool {
	for cur := sub; cur != ""; {
		if cur == sup {
			return true
		}
		ci := info.Classes[cur]
		if ci == nil {
			return false
		}
		cur = ci.Base
	}
	return false
}

// Assignable reports whether a value of type src may bind to dst:
// structural equality, widening along bool → int → float, or
// subclass → superclass.
func (info *Info) Assignable(dst, src Type) bool {
	if Equal(dst, src) {
		return true
	}
	switch {
	case dst.Kind == KindInt && src.Kind == KindBool:
		return true
	case dst.Kind == KindFloat && (src.Kind == KindInt || src.Kind == KindBool):
		return true
	case dst.Kind == KindClass && src.Kind == KindClass:
		return info.IsSubclass(src.Class, dst.Class)
	}
	return false
}
