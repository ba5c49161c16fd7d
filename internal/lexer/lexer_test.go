package lexer

import (
	"fmt"
	"strings"
	"testing"

	"pblang/internal/source"
)

// scan flattens the token stream into a single space-separated string so
// tests can compare whole streams at a glance.
func scan(t *testing.T, src string) (string, error) {
	t.Helper()
	toks, err := Lex(source.NewFile("test.pb", src))
	if err != nil {
		return "", err
	}
	var b strings.Builder
	writeTokens(&b, toks)
	return b.String(), nil
}

func writeTokens(b *strings.Builder, toks []Token) {
	for _, tok := range toks {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		switch tok.Kind {
		case TokenIdent:
			b.WriteString(tok.Lexeme)
		case TokenInt, TokenFloat:
			b.WriteString(tok.Value)
		case TokenString:
			fmt.Fprintf(b, "%q", tok.Value)
		case TokenFStringStart:
			b.WriteString(`f"`)
		case TokenFStringMiddle:
			fmt.Fprintf(b, "mid(%s)", tok.Value)
		case TokenFStringExpr:
			b.WriteString("{")
			sub := strings.Builder{}
			writeTokens(&sub, tok.Sub)
			b.WriteString(sub.String())
			b.WriteString("}")
		case TokenFStringEnd:
			b.WriteString(`"`)
		case TokenNewline:
			b.WriteString("NEWLINE")
		case TokenIndent:
			b.WriteString("INDENT")
		case TokenDedent:
			b.WriteString("DEDENT")
		case TokenEOF:
			b.WriteString("EOF")
		default:
			b.WriteString(tok.Kind.String())
		}
	}
}

func TestScanner(t *testing.T) {
	for _, test := range []struct {
		input, want string
	}{
		{"", "EOF"},
		{"x = 1 + 2\n", "x = 1 + 2 NEWLINE EOF"},
		{"x = 1_000_000\n", "x = 1000000 NEWLINE EOF"},
		{"pi: float = 3.14_15\n", "pi : float = 3.1415 NEWLINE EOF"},
		{"x = 6.02e+23\n", "x = 6.02e+23 NEWLINE EOF"},
		{"x = 10e-3\n", "x = 10e-3 NEWLINE EOF"},
		{"a // b //= 2\n", "a // b //= 2 NEWLINE EOF"},
		{"obj.method()[i]\n", "obj . method ( ) [ i ] NEWLINE EOF"},
		{`s = "a\tb"` + "\n", `s = "a\tb" NEWLINE EOF`},
		{"def f():\n    pass\n",
			"def f ( ) : NEWLINE INDENT pass NEWLINE DEDENT EOF"},
		{"def f():\n    if x:\n        pass\n    return\n",
			"def f ( ) : NEWLINE INDENT if x : NEWLINE INDENT pass NEWLINE DEDENT return NEWLINE DEDENT EOF"},
		// Dedent at EOF closes every open level.
		{"while a:\n    while b:\n        pass\n",
			"while a : NEWLINE INDENT while b : NEWLINE INDENT pass NEWLINE DEDENT DEDENT EOF"},
		// Blank and comment-only lines keep the indentation stack intact.
		{"def f():\n\n    # comment\n    pass\n",
			"def f ( ) : NEWLINE NEWLINE NEWLINE INDENT pass NEWLINE DEDENT EOF"},
		{"x = 1  # trailing comment\n", "x = 1 NEWLINE EOF"},
		// CRLF is accepted.
		{"x = 1\r\ny = 2\r\n", "x = 1 NEWLINE y = 2 NEWLINE EOF"},
		// True/False/None are keywords; lowercase forms are identifiers.
		{"a = True\nb = true\n", "a = True NEWLINE b = true NEWLINE EOF"},
		{"x = None\n", "x = None NEWLINE EOF"},
		{"a is not b\n", "a is not b NEWLINE EOF"},
		// F-strings split into start/middle/expr/end parts.
		{`print(f"hp={hp}")` + "\n",
			`print ( f" mid(hp=) {hp EOF} " ) NEWLINE EOF`},
		{`x = f"a{n + 1}b"` + "\n",
			`x = f" mid(a) {n + 1 EOF} mid(b) " NEWLINE EOF`},
		// Nested brackets inside a placeholder do not end it.
		{`x = f"{arr[i]}"` + "\n",
			`x = f" {arr [ i ] EOF} " NEWLINE EOF`},
		{`x = f"{d['k']}"` + "\n",
			`x = f" {d [ "k" ] EOF} " NEWLINE EOF`},
	} {
		got, err := scan(t, test.input)
		if err != nil {
			t.Errorf("scan(%q) failed: %v", test.input, err)
			continue
		}
		if got != test.want {
			t.Errorf("scan(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestScannerErrors(t *testing.T) {
	for _, test := range []struct {
		input   string
		wantMsg string // substring of the diagnostic
	}{
		{"x = 5.\n", "digit after '.'"},
		{"x = .5\n", "digit before '.'"},
		{"x = 1__2\n", "adjacent underscores"},
		{"x = 1_.5\n", "trailing underscore"},
		{"x = 1._5\n", "digit after '.'"},
		{"x = 1_\n", "trailing underscore"},
		{"if x:\n\ty = 1\n", "mixed indentation"},
		{"if x:\n  \ty = 1\n", "mixed indentation"},
		{"if x:\n        a = 1\n    b = 2\n", "unindent does not match"},
		{"s = \"abc\n", "unterminated string literal"},
		{`s = "a\q"` + "\n", `invalid escape sequence "\\q"`},
		{`s = f"x = {1 + 2` + "\n", "f-string"},
		{`s = f"}"` + "\n", "single '}'"},
		{`s = f"{}"` + "\n", "empty expression"},
		{"x = 1 ? 2\n", "unexpected character"},
	} {
		_, err := Lex(source.NewFile("test.pb", test.input))
		if err == nil {
			t.Errorf("Lex(%q) succeeded, want error containing %q", test.input, test.wantMsg)
			continue
		}
		if err.Phase != "LexerError" {
			t.Errorf("Lex(%q) phase = %s, want LexerError", test.input, err.Phase)
		}
		if !strings.Contains(err.Msg, test.wantMsg) {
			t.Errorf("Lex(%q) error %q, want substring %q", test.input, err.Msg, test.wantMsg)
		}
	}
}

// Reconstructing the indent width sequence from INDENT/DEDENT tokens must
// reproduce the widths measured in the source.
func TestIndentRoundTrip(t *testing.T) {
	src := "def f():\n    if x:\n            pass\n    return\nx = 1\n"
	toks, err := Lex(source.NewFile("test.pb", src))
	if err != nil {
		t.Fatal(err)
	}
	stack := []int{0}
	var widths []int
	lineWidths := map[int]bool{}
	for _, tok := range toks {
		switch tok.Kind {
		case TokenIndent:
			f := tok.Span.File
			ln, col := f.LineCol(tok.Span.Start)
			if col != 1 {
				t.Errorf("INDENT column = %d, want 1", col)
			}
			// Width of the new level is the indent of the line it opens.
			text := f.Line(ln)
			w := len(text) - len(strings.TrimLeft(text, " "))
			stack = append(stack, w)
			widths = append(widths, w)
			lineWidths[w] = true
		case TokenDedent:
			if len(stack) == 1 {
				t.Fatal("DEDENT underflow")
			}
			stack = stack[:len(stack)-1]
		}
	}
	if len(stack) != 1 {
		t.Errorf("unbalanced INDENT/DEDENT: %d levels left", len(stack)-1)
	}
	wantWidths := []int{4, 12}
	if len(widths) != len(wantWidths) {
		t.Fatalf("indent widths = %v, want %v", widths, wantWidths)
	}
	for i := range widths {
		if widths[i] != wantWidths[i] {
			t.Errorf("indent widths = %v, want %v", widths, wantWidths)
		}
	}
}
