package loader

import (
	"strings"
	"testing"

	"pblang/internal/source"
)

func TestCompilePipeline(t *testing.T) {
	file := source.NewFile("demo.pb", "def main():\n    print(1 + 2)\n")
	res, err := Compile(file)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	if !strings.Contains(res.C, "int main(void)") {
		t.Errorf("generated C has no main:\n%s", res.C)
	}
}

func TestCompileStopsAtFirstPhase(t *testing.T) {
	for _, test := range []struct {
		src   string
		phase string
	}{
		{"x = 5.\n", "LexerError"},
		{"True = 1\n", "ParserError"},
		{"x: int = \"s\"\n", "TypeError"},
	} {
		_, err := Compile(source.NewFile("bad.pb", test.src))
		if err == nil {
			t.Errorf("Compile(%q) succeeded, want %s", test.src, test.phase)
			continue
		}
		if string(err.Phase) != test.phase {
			t.Errorf("Compile(%q) phase = %s, want %s", test.src, err.Phase, test.phase)
		}
		if !strings.Contains(err.Error(), test.phase) {
			t.Errorf("error text %q does not identify phase %s", err.Error(), test.phase)
		}
	}
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("dir/game.pb"); got != "dir/game.c" {
		t.Errorf("OutputPath = %q, want %q", got, "dir/game.c")
	}
}
