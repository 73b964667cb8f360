// Package tokenizer turns records into rows of byte-string fields.
//
// A Tokenizer is stateful across records only through the carry row the
// caller threads back into Parse: when a quoted field is still open at the
// end of a record, Parse reports the row as incomplete and the next record
// continues that field, joined by the row separator.
package tokenizer

import "bytes"

// Quote is the quoting byte.
const Quote = '"'

// Options configures field tokenization.
type Options struct {
	// Quoting enables RFC 4180 style double-quoted fields.
	Quoting bool
	// RowSeparator joins a quoted field that spans several records.
	RowSeparator []byte
}

// DefaultOptions returns quoting enabled with a newline row separator.
func DefaultOptions() Options {
	return Options{
		Quoting:      true,
		RowSeparator: []byte("\n"),
	}
}

// Tokenizer splits records into fields.
type Tokenizer struct {
	sep  Separator
	opts Options

	// MaxColumns caps the number of fields per row; content beyond it is
	// merged into the last field. Zero means no limit.
	MaxColumns int
}

// New creates a Tokenizer for the given separator.
func New(sep Separator, opts Options) *Tokenizer {
	return &Tokenizer{sep: sep, opts: opts}
}

// Separator returns the field separator.
func (t *Tokenizer) Separator() Separator {
	return t.sep
}

// Parse tokenizes one record. carry is the incomplete row returned by the
// previous call, or nil. The returned row is incomplete when a quoted field
// is still open at the end of the record.
//
// Every field of the returned row is an independent copy of the input.
func (t *Tokenizer) Parse(line []byte, carry [][]byte) ([][]byte, bool) {
	if !t.opts.Quoting || bytes.IndexByte(line, Quote) < 0 {
		if len(carry) > 0 {
			// the record boundary sits inside the open quoted field
			last := len(carry) - 1
			carry[last] = append(append(carry[last], t.opts.RowSeparator...), line...)
			return carry, true
		}
		return t.sep.Split(line, t.MaxColumns), false
	}

	row := carry
	start := 0
	n := len(line)
	var gap []byte // separator preceding the current field

	if len(row) > 0 {
		last := len(row) - 1
		row[last] = append(row[last], t.opts.RowSeparator...)
		var closed bool
		var end int
		row[last], end, closed = extractQuoted(row[last], line, 0)
		if !closed {
			return row, true
		}
		start, gap = t.after(line, end+1)
	}

	for start < n {
		combine := t.MaxColumns > 0 && len(row) >= t.MaxColumns

		if t.opts.Quoting && line[start] == Quote {
			var field []byte
			if combine {
				field = append(row[len(row)-1], gap...)
			}
			field, end, closed := extractQuoted(field, line, start+1)
			if combine {
				row[len(row)-1] = field
			} else {
				row = append(row, nonNil(field))
			}
			if !closed {
				return row, true
			}
			start, gap = t.after(line, end+1)
			continue
		}

		s, e, ok := t.sep.Find(line, start)
		if !ok {
			s, e = n, n
		}
		if combine {
			last := len(row) - 1
			row[last] = append(append(row[last], gap...), line[start:s]...)
		} else {
			row = append(row, append(make([]byte, 0, s-start), line[start:s]...))
		}
		if !ok {
			// no trailing empty field
			return row, false
		}
		gap = line[s:e]
		start = e
	}

	if start == n {
		// record ended exactly at a separator, or was empty
		if t.MaxColumns > 0 && len(row) >= t.MaxColumns {
			last := len(row) - 1
			row[last] = append(row[last], gap...)
		} else {
			row = append(row, []byte{})
		}
	}
	return row, false
}

// after returns the offset following the first separator at or after pos,
// together with the separator bytes. Without a further separator the offset
// is past the end of the record so no trailing empty field is produced.
func (t *Tokenizer) after(line []byte, pos int) (int, []byte) {
	s, e, ok := t.sep.Find(line, pos)
	if !ok {
		return len(line) + 1, nil
	}
	return e, line[s:e]
}

// extractQuoted appends the content of a quoted field starting at start (just
// past the opening quote) to dst. It returns the offset of the closing quote
// and whether one was found; a doubled quote is an escaped literal quote.
func extractQuoted(dst, line []byte, start int) ([]byte, int, bool) {
	for {
		i := bytes.IndexByte(line[start:], Quote)
		if i < 0 {
			return append(dst, line[start:]...), -1, false
		}
		pos := start + i
		dst = append(dst, line[start:pos]...)
		if pos+1 < len(line) && line[pos+1] == Quote {
			dst = append(dst, Quote)
			start = pos + 2
			continue
		}
		return dst, pos, true
	}
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
