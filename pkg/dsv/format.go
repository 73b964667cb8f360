package dsv

import (
	"bytes"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/ansi"
)

var quote = []byte{'"'}

// NeedsQuoting reports whether field contains a quote, ofs or ors.
func NeedsQuoting(field, ofs, ors []byte) bool {
	return bytes.IndexByte(field, '"') >= 0 ||
		(len(ors) > 0 && bytes.Contains(field, ors)) ||
		(len(ofs) > 0 && bytes.Contains(field, ofs))
}

// Quote wraps field in double quotes, doubling embedded quotes, when it needs
// quoting. In pretty mode empty fields are quoted too so they stay visible.
// The input is returned unchanged when no quoting is needed.
func Quote(field, ofs, ors []byte, pretty bool) []byte {
	if !(pretty && len(field) == 0) && !NeedsQuoting(field, ofs, ors) {
		return field
	}
	out := make([]byte, 0, len(field)+2+bytes.Count(field, quote))
	out = append(out, '"')
	out = append(out, bytes.ReplaceAll(field, quote, []byte(`""`))...)
	return append(out, '"')
}

// QuoteRow quotes the fields of row that need it for the given separators.
// An OFS made only of spaces is treated as pretty output: the check uses two
// spaces no matter how long it is and empty fields are quoted. row is not
// modified; a new slice is returned when any field changes.
func QuoteRow(row Row, ofs, ors []byte) Row {
	pretty := isBlank(ofs)
	if pretty {
		ofs = PrettySeparator
	}
	var out Row
	for i, f := range row {
		q := Quote(f, ofs, ors, pretty)
		if out == nil {
			if len(q) == len(f) {
				continue
			}
			out = make(Row, len(row))
			copy(out, row)
		}
		out[i] = q
	}
	if out == nil {
		return row
	}
	return out
}

func isBlank(b []byte) bool {
	return len(b) > 0 && len(bytes.Trim(b, " ")) == 0
}

// DisplayWidth returns the number of terminal cells field occupies. Escape
// sequences take no room.
func DisplayWidth(field []byte) int {
	if bytes.IndexByte(field, ansi.Marker) < 0 {
		return runewidth.StringWidth(string(field))
	}
	return ansi.PrintableRuneWidth(string(field))
}

// Justify computes, for every row, the number of spaces to append to each
// field so columns line up. The last field of a row is never padded.
func Justify(rows []Row) [][]int {
	var widest []int
	widths := make([][]int, len(rows))
	for i, row := range rows {
		widths[i] = make([]int, len(row))
		for j, f := range row {
			w := DisplayWidth(f)
			widths[i][j] = w
			if j >= len(widest) {
				widest = append(widest, w)
			} else if w > widest[j] {
				widest[j] = w
			}
		}
	}

	padding := make([][]int, len(rows))
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		padding[i] = make([]int, len(row)-1)
		for j := range padding[i] {
			padding[i][j] = widest[j] - widths[i][j]
		}
	}
	return padding
}
