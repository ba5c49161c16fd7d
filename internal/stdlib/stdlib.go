// Package stdlib describes PB's built-in surface: the functions every
// program can call without declaring them, and the built-in exception
// names usable in raise/except.
package stdlib

// Builtin identifies one built-in callable.
type Builtin int

const (
	None Builtin = iota
	Print
	Range
	CastInt
	CastFloat
	CastStr
	CastBool
)

var builtins = map[string]Builtin{
	"print": Print,
	"range": Range,
	"int":   CastInt,
	"float": CastFloat,
	"str":   CastStr,
	"bool":  CastBool,
}

// Lookup reports which built-in a name refers to, if any.
func Lookup(name string) (Builtin, bool) {
	b, ok := builtins[name]
	return b, ok
}

// Exceptions lists the built-in exception names in a stable order. They
// have no class definitions; raise lowers them to runtime type strings.
var Exceptions = []string{
	"RuntimeError",
	"ValueError",
	"IndexError",
	"KeyError",
	"ZeroDivisionError",
	"AttributeError",
}

var exceptionSet = func() map[string]bool {
	m := make(map[string]bool, len(Exceptions))
	for _, e := range Exceptions {
		m[e] = true
	}
	return m
}()

// IsException reports whether name is a built-in exception.
func IsException(name string) bool { return exceptionSet[name] }

// Modules lists the import targets the compiler resolves as stubs.
// Importing one binds the alias but contributes no symbols.
var Modules = map[string]bool{
	"math":   true,
	"random": true,
	"sys":    true,
	"time":   true,
}
