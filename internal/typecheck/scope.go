package typecheck

import (
	"pblang/internal/diag"
	"pblang/internal/source"
)

type local struct {
	t Type
}

func (c *checker) pushScope() { c.scopes = append(c.scopes, map[string]local{}) }
func (c *checker) popScope()  { c.scopes = c.scopes[:len(c.scopes)-1] }

func (c *checker) declare(name string, t Type, s source.Span) {
	if _, ok := c.lookupLocal(name); ok {
		c.errorAt(s, "variable '%s' is already declared", name)
	}
	c.scopes[len(c.scopes)-1][name] = local{t: t}
}

func (c *checker) lookupLocal(name string) (local, bool) {
	for i := len(c.scopes) - 1; i >= 0; i-- {
		if v, ok := c.scopes[i][name]; ok {
			return v, true
		}
	}
	return local{}, false
}

func (c *checker) errorAt(s source.Span, format string, args ...any) {
	panic(diag.Errorf(diag.Types, s, format, args...))
}
