package tokenizer

import (
	"bytes"
	"fmt"
	"regexp"
)

// Separator locates field separators inside a record.
//
// There are exactly two implementations: Literal for fixed byte sequences and
// *Pattern for regular expressions. A resolved Separator is immutable and is
// shared by every record of a stream.
type Separator interface {
	// Find returns the bounds of the first separator at or after start.
	Find(line []byte, start int) (s, e int, ok bool)
	// Split splits line into at most n fields (n <= 0 means no limit). The
	// last field keeps the unsplit remainder.
	Split(line []byte, n int) [][]byte
	// Whitespace reports whether the separator is a run of blanks.
	Whitespace() bool
	String() string
}

// Literal is a fixed byte sequence separator.
type Literal []byte

// Find implements Separator.
func (l Literal) Find(line []byte, start int) (int, int, bool) {
	if start > len(line) || len(l) == 0 {
		return 0, 0, false
	}
	i := bytes.Index(line[start:], l)
	if i < 0 {
		return 0, 0, false
	}
	return start + i, start + i + len(l), true
}

// Split implements Separator.
func (l Literal) Split(line []byte, n int) [][]byte {
	if len(l) == 0 {
		return copyFields([][]byte{line})
	}
	if n <= 0 {
		n = -1
	}
	return copyFields(bytes.SplitN(line, l, n))
}

// Whitespace implements Separator.
func (l Literal) Whitespace() bool {
	return false
}

func (l Literal) String() string {
	return fmt.Sprintf("%q", []byte(l))
}

// Pattern is a regular expression separator.
type Pattern struct {
	re         *regexp.Regexp
	whitespace bool
}

// Predefined whitespace separators.
var (
	// Spaces treats any run of whitespace as one separator.
	Spaces = &Pattern{re: regexp.MustCompile(`\s+`), whitespace: true}
	// Aligned splits on runs of two or more whitespace bytes, which keeps
	// single spaces inside column-aligned text.
	Aligned = &Pattern{re: regexp.MustCompile(`\s\s+`), whitespace: true}
)

// NewPattern wraps a compiled expression.
func NewPattern(re *regexp.Regexp) *Pattern {
	return &Pattern{re: re}
}

// Find implements Separator. Empty matches never separate fields.
func (p *Pattern) Find(line []byte, start int) (int, int, bool) {
	for pos := start; pos <= len(line); {
		m := p.re.FindIndex(line[pos:])
		if m == nil {
			return 0, 0, false
		}
		if m[1] > m[0] {
			return pos + m[0], pos + m[1], true
		}
		pos += m[0] + 1
	}
	return 0, 0, false
}

// Split implements Separator.
func (p *Pattern) Split(line []byte, n int) [][]byte {
	return copyFields(splitWith(p, line, n))
}

// Whitespace implements Separator.
func (p *Pattern) Whitespace() bool {
	return p.whitespace
}

func (p *Pattern) String() string {
	return "/" + p.re.String() + "/"
}

// Regexp returns the compiled expression.
func (p *Pattern) Regexp() *regexp.Regexp {
	return p.re
}

// Compile turns a separator expression into a Separator. The expression is
// used literally unless it contains regular expression metacharacters and
// plain is false. The whitespace expressions `\s+` and `\s\s+` map to Spaces
// and Aligned.
func Compile(expr string, plain bool) (Separator, error) {
	if plain || regexp.QuoteMeta(expr) == expr {
		return Literal(expr), nil
	}
	switch expr {
	case Spaces.re.String():
		return Spaces, nil
	case Aligned.re.String():
		return Aligned, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, err
	}
	return NewPattern(re), nil
}

func splitWith(sep Separator, line []byte, n int) [][]byte {
	var fields [][]byte
	start := 0
	for n <= 0 || len(fields) < n-1 {
		s, e, ok := sep.Find(line, start)
		if !ok {
			break
		}
		fields = append(fields, line[start:s])
		start = e
	}
	return append(fields, line[start:])
}

func copyFields(fields [][]byte) [][]byte {
	for i, f := range fields {
		fields[i] = append(make([]byte, 0, len(f)), f...)
	}
	return fields
}
