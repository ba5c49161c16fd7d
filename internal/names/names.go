// Package names implements the PB → C identifier mangling scheme:
// methods become `Class__method` free functions, class-level attributes
// become `Class_attr` globals, and identifiers that would collide with a
// C keyword get a trailing underscore.
package names

import "fmt"

// cReserved covers C99 keywords plus the identifiers the generated
// translation unit claims for itself.
var cReserved = map[string]bool{
	"auto": true, "break": true, "case": true, "char": true, "const": true,
	"continue": true, "default": true, "do": true, "double": true,
	"else": true, "enum": true, "extern": true, "float": true, "for": true,
	"goto": true, "if": true, "inline": true, "int": true, "long": true,
	"register": true, "restrict": true, "return": true, "short": true,
	"signed": true, "sizeof": true, "static": true, "struct": true,
	"switch": true, "typedef": true, "union": true, "unsigned": true,
	"void": true, "volatile": true, "while": true,
	"main": true, "printf": true, "free": true, "exit": true,
}

// Ident maps a PB identifier to a C identifier.
func Ident(name string) string {
	if cReserved[name] {
		return name + "_"
	}
	return name
}

// Func maps a module-level PB function to its C name. PB's `main` is
// special-cased by the generator and never goes through here.
func Func(name string) string { return Ident(name) }

// Method mangles a method into its free-function name, e.g.
// `P.__init__` → `P____init__`.
func Method(class, method string) string {
	return class + "__" + method
}

// Static mangles a class-level attribute into its global name, e.g.
// `Player.species` → `Player_species`.
func Static(class, attr string) string {
	return class + "_" + attr
}

// Temp builds a numbered temporary, e.g. Temp("list", 3) → "__tmp_list_3".
func Temp(prefix string, n int) string {
	return fmt.Sprintf("__tmp_%s_%d", prefix, n)
}
