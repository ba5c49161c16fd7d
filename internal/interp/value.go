package interp

import (
	"math"
	"strconv"
	"strings"

	"pblang/internal/stringlit"
	"pblang/internal/typecheck"
)

// Value is one PB runtime value. Lists, dicts and objects hold shared
// references, mirroring the pointer semantics of the generated C.
type Value struct {
	Kind typecheck.Kind
	I    int64
	F    float64
	B    bool
	S    string
	List *ListVal
	Dict *DictVal
	Obj  *Object
}

type ListVal struct {
	Elem  typecheck.Kind
	Elems []Value
}

type DictVal struct {
	Keys []string
	Vals []Value
}

// Object carries an instance's fields flattened across the inheritance
// chain; field names are unique along the chain, so one map suffices.
type Object struct {
	Class  string
	Fields map[string]Value
}

func intVal(v int64) Value     { return Value{Kind: typecheck.KindInt, I: v} }
func floatVal(v float64) Value { return Value{Kind: typecheck.KindFloat, F: v} }
func boolVal(v bool) Value     { return Value{Kind: typecheck.KindBool, B: v} }
func strVal(v string) Value    { return Value{Kind: typecheck.KindStr, S: v} }
func noneVal() Value           { return Value{Kind: typecheck.KindNone} }

// asFloat widens int and bool operands for float arithmetic.
func (v Value) asFloat() float64 {
	switch v.Kind {
	case typecheck.KindFloat:
		return v.F
	case typecheck.KindInt:
		return float64(v.I)
	case typecheck.KindBool:
		if v.B {
			return 1
		}
		return 0
	}
	return 0
}

func (v Value) asInt() int64 {
	switch v.Kind {
	case typecheck.KindInt:
		return v.I
	case typecheck.KindBool:
		if v.B {
			return 1
		}
	}
	return v.I
}

// formatDouble matches the runtime's float printing: whole values keep
// one decimal, everything else prints with up to 15 significant digits.
func formatDouble(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e16 {
		return strconv.FormatFloat(f, 'f', 1, 64)
	}
	s := strconv.FormatFloat(f, 'g', 15, 64)
	return s
}

// display renders a value the way the compiled program's print does.
func (v Value) display() string {
	switch v.Kind {
	case typecheck.KindInt:
		return strconv.FormatInt(v.I, 10)
	case typecheck.KindFloat:
		return formatDouble(v.F)
	case typecheck.KindBool:
		if v.B {
			return "True"
		}
		return "False"
	case typecheck.KindStr:
		return v.S
	case typecheck.KindList:
		var b strings.Builder
		b.WriteByte('[')
		for i, el := range v.List.Elems {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(el.element())
		}
		b.WriteByte(']')
		return b.String()
	case typecheck.KindDict:
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range v.Dict.Keys {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(stringlit.Quote(k))
			b.WriteString(": ")
			b.WriteString(v.Dict.Vals[i].element())
		}
		b.WriteByte('}')
		return b.String()
	}
	return "None"
}

// element renders a value nested inside a container: strings are
// quote-aware, everything else prints as at top level.
func (v Value) element() string {
	if v.Kind == typecheck.KindStr {
		return stringlit.Quote(v.S)
	}
	return v.display()
}
