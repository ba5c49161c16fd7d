// Package interp executes a type-checked PB program directly. It is the
// reference oracle for the C backend: for any deterministic program,
// its stdout must match the compiled binary's byte for byte.
package interp

import (
	"bytes"
	"fmt"

	"pblang/internal/ast"
	"pblang/internal/typecheck"
)

// raised travels through Go panics the way longjmp carries the current
// exception in the generated C.
type raised struct {
	Type string
	Msg  string
	Obj  *Object
}

// fatal mirrors pb_fail: unrecoverable, bypasses try/except.
type fatal struct {
	Msg string
}

type ctrl int

const (
	ctrlNone ctrl = iota
	ctrlBreak
	ctrlContinue
	ctrlReturn
)

type frame struct {
	scopes  []map[string]*Value
	globals map[string]bool
	self    *Object
	class   string
	ret     Value
}

type interp struct {
	info    *typecheck.Info
	out     bytes.Buffer
	globals map[string]*Value
	statics map[string]map[string]*Value
	frames  []*frame
}

// Run executes the checked program and returns what it printed. A
// runtime failure (uncaught exception, failed assertion, missing dict
// key) returns the output produced so far plus the error.
func Run(info *typecheck.Info) (output string, err error) {
	in := &interp{
		info:    info,
		globals: map[string]*Value{},
		statics: map[string]map[string]*Value{},
	}
	defer func() {
		if r := recover(); r != nil {
			switch e := r.(type) {
			case raised:
				output, err = in.out.String(), fmt.Errorf("Uncaught exception %s: %s", e.Type, e.Msg)
			case fatal:
				output, err = in.out.String(), fmt.Errorf("%s", e.Msg)
			default:
				panic(r)
			}
		}
	}()

	for _, name := range info.ClassOrder {
		ci := info.Classes[name]
		in.statics[name] = map[string]*Value{}
		for _, st := range ci.Statics {
			v := in.literal(st.Init)
			in.statics[name][st.Name] = &v
		}
	}

	// Module frame: global initialisers and the other top-level
	// statements run together in source order, then main.
	in.pushFrame(nil, "")
	for _, st := range info.Prog.Body {
		switch s := st.(type) {
		case *ast.VarDecl:
			v := in.eval(s.Init)
			v = widen(v, info.Decls[s])
			in.globals[s.Name] = &v
		case *ast.AssignStmt, *ast.AugAssignStmt, *ast.ExprStmt:
			in.exec(st)
		}
	}
	if sig, ok := info.Funcs["main"]; ok {
		in.call(sig, nil)
	}
	in.popFrame()
	return in.out.String(), nil
}

func (in *interp) pushFrame(self *Object, class string) *frame {
	f := &frame{globals: map[string]bool{}, self: self, class: class}
	f.scopes = append(f.scopes, map[string]*Value{})
	in.frames = append(in.frames, f)
	return f
}

func (in *interp) popFrame() { in.frames = in.frames[:len(in.frames)-1] }

func (in *interp) frame() *frame { return in.frames[len(in.frames)-1] }

func (in *interp) pushScope() {
	f := in.frame()
	f.scopes = append(f.scopes, map[string]*Value{})
}

func (in *interp) popScope() {
	f := in.frame()
	f.scopes = f.scopes[:len(f.scopes)-1]
}

func (in *interp) declare(name string, v Value) {
	f := in.frame()
	f.scopes[len(f.scopes)-1][name] = &v
}

func (in *interp) lookup(name string) (*Value, bool) {
	f := in.frame()
	for i := len(f.scopes) - 1; i >= 0; i-- {
		if v, ok := f.scopes[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// call invokes a function or method; for methods args[0] is the
// receiver.
func (in *interp) call(sig *typecheck.FuncSig, args []Value) Value {
	var self *Object
	if sig.Class != "" && len(args) > 0 && args[0].Obj != nil {
		self = args[0].Obj
	}
	in.pushFrame(self, sig.Class)
	for i, p := range sig.Params {
		var v Value
		if i < len(args) {
			v = widen(args[i], p.Type)
		} else {
			v = widen(in.literal(p.Default), p.Type)
		}
		in.declare(p.Name, v)
	}
	c, _ := in.execBody(sig.Def.Body)
	f := in.frame()
	in.popFrame()
	if c == ctrlReturn {
		return f.ret
	}
	return noneVal()
}

func (in *interp) execBody(body []ast.Stmt) (ctrl, Value) {
	for _, st := range body {
		if c, v := in.exec(st); c != ctrlNone {
			return c, v
		}
	}
	return ctrlNone, Value{}
}

func (in *interp) exec(st ast.Stmt) (ctrl, Value) {
	switch s := st.(type) {
	case *ast.VarDecl:
		v := widen(in.eval(s.Init), in.info.Decls[s])
		in.declare(s.Name, v)
	case *ast.AssignStmt:
		in.assign(s.Target, in.eval(s.Value))
	case *ast.AugAssignStmt:
		cur := in.eval(s.Target)
		val := in.eval(s.Value)
		op := s.Op[:len(s.Op)-1]
		in.assign(s.Target, in.binop(op, cur, val))
	case *ast.ExprStmt:
		in.eval(s.X)
	case *ast.IfStmt:
		for _, br := range s.Branches {
			if br.Cond == nil || in.eval(br.Cond).B {
				in.pushScope()
				c, v := in.execBody(br.Body)
				in.popScope()
				return c, v
			}
		}
	case *ast.WhileStmt:
		for in.eval(s.Cond).B {
			in.pushScope()
			c, v := in.execBody(s.Body)
			in.popScope()
			switch c {
			case ctrlBreak:
				return ctrlNone, Value{}
			case ctrlReturn:
				return c, v
			}
		}
	case *ast.ForStmt:
		call := s.Iter.(*ast.CallExpr)
		var start, stop int64
		if len(call.Args) == 1 {
			stop = in.eval(call.Args[0]).asInt()
		} else {
			start = in.eval(call.Args[0]).asInt()
			stop = in.eval(call.Args[1]).asInt()
		}
		for i := start; i < stop; i++ {
			in.pushScope()
			in.declare(s.Var, intVal(i))
			c, v := in.execBody(s.Body)
			in.popScope()
			if c == ctrlBreak {
				break
			}
			if c == ctrlReturn {
				return c, v
			}
		}
	case *ast.TryStmt:
		return in.execTry(s)
	case *ast.RaiseStmt:
		in.execRaise(s)
	case *ast.ReturnStmt:
		f := in.frame()
		if s.Value != nil {
			f.ret = in.eval(s.Value)
		} else {
			f.ret = noneVal()
		}
		return ctrlReturn, f.ret
	case *ast.AssertStmt:
		if !in.eval(s.Cond).B {
			panic(fatal{Msg: "Assertion failed"})
		}
	case *ast.GlobalStmt:
		for _, name := range s.Names {
			in.frame().globals[name] = true
		}
	case *ast.BreakStmt:
		return ctrlBreak, Value{}
	case *ast.ContinueStmt:
		return ctrlContinue, Value{}
	case *ast.PassStmt, *ast.ImportStmt:
	}
	return ctrlNone, Value{}
}

func (in *interp) execTry(s *ast.TryStmt) (c ctrl, v Value) {
	// The raise may unwind through any number of calls, so the frame and
	// scope stacks are restored to the try's depth on catch, mirroring
	// longjmp back into the frame that holds the jmp_buf.
	frameDepth := len(in.frames)
	scopeDepth := len(in.frame().scopes)
	caught := func() (rec *raised) {
		defer func() {
			if r := recover(); r != nil {
				e, ok := r.(raised)
				if !ok {
					panic(r)
				}
				in.frames = in.frames[:frameDepth]
				f := in.frame()
				f.scopes = f.scopes[:scopeDepth]
				rec = &e
			}
		}()
		in.pushScope()
		c, v = in.execBody(s.Body)
		in.popScope()
		return nil
	}()
	if caught == nil {
		return c, v
	}
	for _, h := range s.Handlers {
		if h.ExcType != "" && h.ExcType != caught.Type {
			continue
		}
		in.pushScope()
		if h.Alias != "" {
			in.declare(h.Alias, strVal(caught.Msg))
		}
		c, v = in.execBody(h.Body)
		in.popScope()
		return c, v
	}
	panic(*caught)
}

func (in *interp) execRaise(s *ast.RaiseStmt) {
	if call, ok := s.Exc.(*ast.CallExpr); ok {
		if tgt := in.info.Calls[call]; tgt != nil && tgt.Kind == typecheck.CallExc {
			panic(raised{Type: tgt.Name, Msg: in.eval(call.Args[0]).S})
		}
	}
	v := in.eval(s.Exc)
	msg := ""
	if m, ok := v.Obj.Fields["msg"]; ok {
		msg = m.S
	}
	panic(raised{Type: v.Obj.Class, Msg: msg, Obj: v.Obj})
}

func (in *interp) assign(target ast.Expr, v Value) {
	switch t := target.(type) {
	case *ast.NameExpr:
		f := in.frame()
		if p, ok := in.lookup(t.Name); ok {
			*p = widen(v, in.info.Types[target])
			return
		}
		if f.globals[t.Name] || len(in.frames) == 1 {
			if p, ok := in.globals[t.Name]; ok {
				*p = widen(v, in.info.Types[target])
				return
			}
		}
		panic(fatal{Msg: fmt.Sprintf("unbound variable '%s'", t.Name)})
	case *ast.AttrExpr:
		ai := in.info.Attrs[t]
		if ai.Kind == typecheck.AttrStatic {
			*in.statics[ai.Owner][t.Name] = widen(v, ai.Type)
			return
		}
		obj := in.eval(t.X).Obj
		obj.Fields[t.Name] = widen(v, ai.Type)
	case *ast.IndexExpr:
		base := in.eval(t.Base)
		idx := in.eval(t.Index).asInt()
		lst := base.List
		elemName := typecheck.Type{Kind: lst.Elem}.String()
		v = widen(v, typecheck.Type{Kind: lst.Elem})
		switch {
		case idx == int64(len(lst.Elems)):
			lst.Elems = append(lst.Elems, v)
		case idx >= 0 && idx < int64(len(lst.Elems)):
			lst.Elems[idx] = v
		default:
			panic(raised{Type: "IndexError",
				Msg: fmt.Sprintf("cannot assign to index %d in list[%s] of length %d", idx, elemName, len(lst.Elems))})
		}
	}
}
