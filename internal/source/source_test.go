package source

import "testing"

func TestLineCol(t *testing.T) {
	f := NewFile("t.pb", "abc\ndef\n\nxyz")
	tests := []struct {
		off  int
		line int
		col  int
	}{
		{0, 1, 1},
		{2, 1, 3},
		{3, 1, 4},
		{4, 2, 1},
		{7, 2, 4},
		{8, 3, 1},
		{9, 4, 1},
		{12, 4, 4},
	}
	for _, tt := range tests {
		line, col := f.LineCol(tt.off)
		if line != tt.line || col != tt.col {
			t.Errorf("LineCol(%d) = %d,%d; want %d,%d", tt.off, line, col, tt.line, tt.col)
		}
	}
}

func TestLineColRunes(t *testing.T) {
	f := NewFile("t.pb", "héllo\nx")
	// 'é' is two bytes; offset 3 points at the first 'l'.
	line, col := f.LineCol(3)
	if line != 1 || col != 3 {
		t.Errorf("LineCol(3) = %d,%d; want 1,3", line, col)
	}
}

func TestLine(t *testing.T) {
	f := NewFile("t.pb", "one\r\ntwo\nthree")
	if got := f.Line(1); got != "one" {
		t.Errorf("Line(1) = %q; want %q", got, "one")
	}
	if got := f.Line(2); got != "two" {
		t.Errorf("Line(2) = %q; want %q", got, "two")
	}
	if got := f.Line(3); got != "three" {
		t.Errorf("Line(3) = %q; want %q", got, "three")
	}
}

func TestJoin(t *testing.T) {
	f := NewFile("t.pb", "some input text")
	a := Span{File: f, Start: 2, End: 5}
	b := Span{File: f, Start: 8, End: 12}
	j := Join(a, b)
	if j.Start != 2 || j.End != 12 {
		t.Errorf("Join = [%d,%d); want [2,12)", j.Start, j.End)
	}
	if got := Join(Span{}, b); got != b {
		t.Errorf("Join with zero span = %+v; want %+v", got, b)
	}
}
