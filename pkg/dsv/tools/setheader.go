package tools

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/shapestone/shape-dsv/pkg/dsv"
)

// Rename renames the header column From to To. From is a column name or a
// 1-based column number.
type Rename struct {
	From string
	To   string
}

// ParseRename parses "A=B".
func ParseRename(s string) (Rename, error) {
	from, to, ok := strings.Cut(s, "=")
	if !ok || from == "" {
		return Rename{}, fmt.Errorf("tools: invalid rename %q (want OLD=NEW)", s)
	}
	if n, err := strconv.Atoi(from); err == nil && n < 1 {
		return Rename{}, fmt.Errorf("tools: invalid rename %q (columns are numbered from 1)", s)
	}
	return Rename{From: from, To: to}, nil
}

// SetHeader replaces, renames or invents header labels.
//
// Fields replace the leading labels positionally, or the whole header when
// Only is set. When the input has no header one is made up: from Auto, a
// format with one %d verb for the 1-based column number, or empty.
type SetHeader struct {
	dsv.Passthrough

	Fields  []string
	Only    bool
	Renames []Rename
	Auto    string

	seen bool
}

func (s *SetHeader) OnHeader(header dsv.Row) (bool, error) {
	s.seen = true
	return s.emit(s.apply(header))
}

func (s *SetHeader) OnRow(row dsv.Row) (bool, error) {
	if !s.seen {
		s.seen = true
		var header dsv.Row
		if s.Auto != "" {
			header = make(dsv.Row, len(row))
			for i := range row {
				header[i] = fmt.Appendf(nil, s.Auto, i+1)
			}
		}
		if stop, err := s.emit(s.apply(header)); err != nil || stop {
			return stop, err
		}
	}
	return s.Passthrough.OnRow(row)
}

// emit drops an empty header.
func (s *SetHeader) emit(header dsv.Row) (bool, error) {
	if len(header) == 0 {
		return false, nil
	}
	return s.Passthrough.OnHeader(header)
}

func (s *SetHeader) apply(header dsv.Row) dsv.Row {
	header = append(dsv.Row(nil), header...)

	for _, r := range s.Renames {
		i, ok := columnIndex(header, r.From)
		if !ok {
			continue
		}
		for len(header) <= i {
			header = append(header, []byte{})
		}
		header[i] = []byte(r.To)
	}

	if len(s.Fields) > 0 {
		if s.Only {
			header = header[:0]
		}
		for i, f := range s.Fields {
			if i < len(header) {
				header[i] = []byte(f)
			} else {
				header = append(header, []byte(f))
			}
		}
	}
	return header
}

// columnIndex resolves a 1-based column number or a header label. Other
// numbers can only match a label.
func columnIndex(header dsv.Row, field string) (int, bool) {
	if n, err := strconv.Atoi(field); err == nil && n >= 1 {
		return n - 1, true
	}
	for i, h := range header {
		if bytes.Equal(h, []byte(field)) {
			return i, true
		}
	}
	return 0, false
}
