// Command pbc compiles PB source files to C99 against the pb_runtime
// library.
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/term"

	"pblang/internal/ast"
	"pblang/internal/diag"
	"pblang/internal/interp"
	"pblang/internal/lexer"
	"pblang/internal/loader"
	"pblang/internal/repl"
)

func usage() {
	fmt.Fprintln(os.Stderr, "pbc - PB compiler")
	fmt.Fprintln(os.Stderr, "usage:")
	fmt.Fprintln(os.Stderr, "  pbc emit <file.pb>                 write <file>.c")
	fmt.Fprintln(os.Stderr, "  pbc build [-o out] <file.pb>       compile and link with cc")
	fmt.Fprintln(os.Stderr, "  pbc run [--engine=c|interp] <file.pb>")
	fmt.Fprintln(os.Stderr, "  pbc tokens <file.pb>               dump the token stream")
	fmt.Fprintln(os.Stderr, "  pbc ast <file.pb>                  dump the parsed tree")
	fmt.Fprintln(os.Stderr, "  pbc repl                           interactive loop")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "environment:")
	fmt.Fprintln(os.Stderr, "  PB_RUNTIME   directory containing pb_runtime.h and pb_runtime.c")
	fmt.Fprintln(os.Stderr, "               (default: ./runtime)")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "emit":
		err = cmdEmit(args)
	case "build":
		err = cmdBuild(args)
	case "run":
		err = cmdRun(args)
	case "tokens":
		err = cmdTokens(args)
	case "ast":
		err = cmdAst(args)
	case "repl":
		err = repl.REPL()
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "pbc: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
}

// printError writes a diagnostic to stderr, colouring the phase name
// when stderr is a terminal.
func printError(err error) {
	d, ok := err.(*diag.Error)
	if ok && term.IsTerminal(int(os.Stderr.Fd())) {
		fmt.Fprintf(os.Stderr, "%s:%d:%d: \x1b[31m%s\x1b[0m: %s\n",
			d.Filename, d.Line, d.Col, d.Phase, d.Msg)
		return
	}
	fmt.Fprintln(os.Stderr, err)
}

func oneFileArg(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("expected exactly one source file")
	}
	return args[0], nil
}

func compilePath(path string) (*loader.Result, error) {
	file, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	res, derr := loader.Compile(file)
	if derr != nil {
		return nil, derr
	}
	return res, nil
}

func cmdEmit(args []string) error {
	path, err := oneFileArg(args)
	if err != nil {
		return err
	}
	res, err := compilePath(path)
	if err != nil {
		return err
	}
	out := loader.OutputPath(path)
	if err := os.WriteFile(out, []byte(res.C), 0o644); err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func runtimeDir() string {
	if dir := os.Getenv("PB_RUNTIME"); dir != "" {
		return dir
	}
	return "runtime"
}

func cmdBuild(args []string) error {
	outBin := ""
	var rest []string
	for i := 0; i < len(args); i++ {
		if args[i] == "-o" {
			if i+1 >= len(args) {
				return fmt.Errorf("missing value for -o")
			}
			i++
			outBin = args[i]
			continue
		}
		rest = append(rest, args[i])
	}
	path, err := oneFileArg(rest)
	if err != nil {
		return err
	}
	res, err := compilePath(path)
	if err != nil {
		return err
	}
	cPath := loader.OutputPath(path)
	if err := os.WriteFile(cPath, []byte(res.C), 0o644); err != nil {
		return err
	}
	if outBin == "" {
		outBin = strings.TrimSuffix(path, filepath.Ext(path))
	}
	rt := runtimeDir()
	cc := exec.Command("cc", "-std=c99", "-O2",
		"-I", rt, cPath, filepath.Join(rt, "pb_runtime.c"), "-o", outBin)
	cc.Stdout = os.Stdout
	cc.Stderr = os.Stderr
	if err := cc.Run(); err != nil {
		return fmt.Errorf("cc failed: %w", err)
	}
	fmt.Println(outBin)
	return nil
}

func cmdRun(args []string) error {
	engine := "c"
	var rest []string
	for _, a := range args {
		switch {
		case a == "--interp":
			engine = "interp"
		case strings.HasPrefix(a, "--engine="):
			engine = strings.TrimPrefix(a, "--engine=")
		default:
			rest = append(rest, a)
		}
	}
	if engine != "c" && engine != "interp" {
		return fmt.Errorf("unknown engine %q", engine)
	}
	path, err := oneFileArg(rest)
	if err != nil {
		return err
	}

	if engine == "interp" {
		res, err := compilePath(path)
		if err != nil {
			return err
		}
		out, rerr := interp.Run(res.Info)
		fmt.Print(out)
		return rerr
	}

	bin := strings.TrimSuffix(path, filepath.Ext(path))
	if err := cmdBuild([]string{"-o", bin, path}); err != nil {
		return err
	}
	run := exec.Command("./" + filepath.ToSlash(bin))
	run.Stdout = os.Stdout
	run.Stderr = os.Stderr
	return run.Run()
}

func cmdTokens(args []string) error {
	path, err := oneFileArg(args)
	if err != nil {
		return err
	}
	file, err := loader.LoadFile(path)
	if err != nil {
		return err
	}
	toks, derr := lexer.Lex(file)
	if derr != nil {
		return derr
	}
	for _, tok := range toks {
		_, line, col := tok.Span.LocStart()
		fmt.Printf("%3d:%-3d %-16s %q\n", line, col, tok.Kind, tok.Lexeme)
	}
	return nil
}

func cmdAst(args []string) error {
	path, err := oneFileArg(args)
	if err != nil {
		return err
	}
	file, err := loader.LoadFile(path)
	if err != nil {
		return err
	}
	prog, _, derr := loader.Check(file)
	if derr != nil {
		return derr
	}
	fmt.Print(ast.Dump(prog))
	return nil
}
