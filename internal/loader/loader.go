// Package loader wires the compilation pipeline together: read one PB
// source file, lex, parse, type-check, and emit the C translation unit.
// Each phase halts the pipeline at its first error.
package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pblang/internal/ast"
	"pblang/internal/codegen"
	"pblang/internal/diag"
	"pblang/internal/parser"
	"pblang/internal/source"
	"pblang/internal/typecheck"
)

// Result is one successful compilation.
type Result struct {
	File *source.File
	Prog *ast.Program
	Info *typecheck.Info
	C    string
}

// LoadFile reads a PB source file from disk.
func LoadFile(path string) (*source.File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	return source.NewFile(path, string(b)), nil
}

// Compile runs the full pipeline over file.
func Compile(file *source.File) (*Result, *diag.Error) {
	prog, perr := parser.Parse(file)
	if perr != nil {
		return nil, perr
	}
	info, terr := typecheck.Check(prog)
	if terr != nil {
		return nil, terr
	}
	return &Result{
		File: file,
		Prog: prog,
		Info: info,
		C:    codegen.Generate(info),
	}, nil
}

// Check runs the front half of the pipeline only (parse and type-check),
// which is what the REPL and `pbc ast` need.
func Check(file *source.File) (*ast.Program, *typecheck.Info, *diag.Error) {
	prog, perr := parser.Parse(file)
	if perr != nil {
		return nil, nil, perr
	}
	info, terr := typecheck.Check(prog)
	if terr != nil {
		return nil, nil, terr
	}
	return prog, info, nil
}

// OutputPath derives the emitted C file's path: foo.pb → foo.c.
func OutputPath(srcPath string) string {
	base := strings.TrimSuffix(srcPath, filepath.Ext(srcPath))
	return base + ".c"
}
