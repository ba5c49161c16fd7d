// Package repl provides a small read/check/run loop for PB.
//
// It supports readline-style command editing. Each submitted chunk is
// compiled as a standalone program: a line ending in ':' opens a block
// that is read until a blank line. Chunks that pass the checker are
// executed by the reference interpreter; diagnostics print to stderr.
package repl

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"pblang/internal/ast"
	"pblang/internal/interp"
	"pblang/internal/loader"
	"pblang/internal/source"
)

// REPL executes a read, check, run loop until EOF (Control-D).
func REPL() error {
	rl, err := readline.New(">>> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		chunk, err := readChunk(rl)
		if err == io.EOF {
			fmt.Println()
			return nil
		}
		if err == readline.ErrInterrupt {
			continue
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(chunk) == "" {
			continue
		}
		runChunk(chunk)
	}
}

// readChunk reads one logical input: a single line, or a block read
// until a blank line when the first line opens a suite.
func readChunk(rl *readline.Instance) (string, error) {
	rl.SetPrompt(">>> ")
	first, err := rl.Readline()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString(first)
	b.WriteByte('\n')
	if !strings.HasSuffix(strings.TrimRight(first, " "), ":") {
		return b.String(), nil
	}
	rl.SetPrompt("... ")
	for {
		line, err := rl.Readline()
		if err != nil {
			return b.String(), err
		}
		if strings.TrimSpace(line) == "" {
			return b.String(), nil
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

func runChunk(chunk string) {
	file := source.NewFile("<stdin>", chunk)
	prog, info, derr := loader.Check(file)
	if derr != nil {
		fmt.Fprintln(os.Stderr, derr)
		return
	}
	out, rerr := interp.Run(info)
	fmt.Print(out)
	if rerr != nil {
		fmt.Fprintln(os.Stderr, rerr)
		return
	}
	// Chunks that print nothing echo their parsed form instead.
	if out == "" {
		fmt.Print(ast.Dump(prog))
	}
}
