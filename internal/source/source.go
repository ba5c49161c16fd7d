package source

import "sort"
import "unicode/utf8"

// File holds a PB source file and precomputed line offsets for diagnostics.
// Both LF and CRLF line endings are accepted; offsets are byte offsets into
// the original input.
type File struct {
	Name        string
	Input       string
	lineOffsets []int // 0-based byte offsets of each line start
}

func NewFile(name string, input string) *File {
	f := &File{Name: name, Input: input}
	f.lineOffsets = []int{0}
	for i := 0; i < len(input); i++ {
		if input[i] == '\n' {
			f.lineOffsets = append(f.lineOffsets, i+1)
		}
	}
	return f
}

// Line returns the 1-based line's text without its terminator.
func (f *File) Line(n int) string {
	if n < 1 || n > len(f.lineOffsets) {
		return ""
	}
	start := f.lineOffsets[n-1]
	end := len(f.Input)
	if n < len(f.lineOffsets) {
		end = f.lineOffsets[n] - 1
	}
	for end > start && (f.Input[end-1] == '\r' || f.Input[end-1] == '\n') {
		end--
	}
	return f.Input[start:end]
}

// NumLines reports how many lines the file has.
func (f *File) NumLines() int { return len(f.lineOffsets) }

// LineCol returns 1-based line/column for a byte offset.
// Column is counted in runes (Unicode code points), not bytes.
func (f *File) LineCol(off int) (int, int) {
	if off < 0 {
		off = 0
	}
	if off > len(f.Input) {
		off = len(f.Input)
	}
	i := sort.Search(len(f.lineOffsets), func(i int) bool { return f.lineOffsets[i] > off }) - 1
	if i < 0 {
		i = 0
	}
	lineStart := f.lineOffsets[i]
	col := 1
	pos := lineStart
	for pos < off {
		_, sz := utf8.DecodeRuneInString(f.Input[pos:])
		if sz <= 0 {
			sz = 1
		}
		if pos+sz > off {
			break
		}
		col++
		pos += sz
	}
	return i + 1, col
}

type Span struct {
	File       *File
	Start, End int // byte offsets [start, end)
}

func (s Span) LocStart() (filename string, line int, col int) {
	if s.File == nil {
		return "", 0, 0
	}
	line, col = s.File.LineCol(s.Start)
	return s.File.Name, line, col
}

// Len reports the span's width in bytes.
func (s Span) Len() int { return s.End - s.Start }

// Join returns the smallest span covering both a and b.
func Join(a, b Span) Span {
	if a.File == nil {
		return b
	}
	if b.File == nil {
		return a
	}
	start := a.Start
	if b.Start < start {
		start = b.Start
	}
	end := a.End
	if b.End > end {
		end = b.End
	}
	return Span{File: a.File, Start: start, End: end}
}
