// Package records splits a byte stream into records on an arbitrary separator.
//
// The reader works on fixed-size chunks and keeps a single remainder buffer
// between reads, so a separator that straddles two chunks is still found.
// When the separator is a single newline the reader delegates to a
// line-oriented bufio.Reader and strips one trailing carriage return from
// every record (CRLF normalisation). No such stripping happens for any other
// separator.
package records

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// DefaultChunkSize is the number of bytes requested from the source per read.
const DefaultChunkSize = 8 * 1024

// ErrEmptySeparator reports a zero-length record separator.
var ErrEmptySeparator = errors.New("records: empty record separator")

// Reader yields records from an underlying io.Reader.
//
// The slice returned by Next is only valid until the following call.
type Reader struct {
	src       io.Reader
	sep       []byte
	chunkSize int

	// generic path
	rest    []byte // unsplit remainder
	scanned int    // bytes of rest already searched for sep
	chunk   []byte
	eof     bool

	// newline path
	lines *bufio.Reader
	line  []byte
}

// NewReader creates a Reader splitting src on sep. A chunkSize <= 0 selects
// DefaultChunkSize. sep must not be empty.
func NewReader(src io.Reader, sep []byte, chunkSize int) *Reader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	r := &Reader{
		src:       src,
		sep:       append([]byte(nil), sep...),
		chunkSize: chunkSize,
	}
	if len(sep) == 1 && sep[0] == '\n' {
		r.lines = bufio.NewReaderSize(src, chunkSize)
	} else {
		r.chunk = make([]byte, chunkSize)
	}
	return r
}

// Separator returns the record separator.
func (r *Reader) Separator() []byte {
	return r.sep
}

// Next returns the next record without its separator. It returns io.EOF once
// the source is exhausted and the remainder has been delivered.
func (r *Reader) Next() ([]byte, error) {
	if r.lines != nil {
		return r.nextLine()
	}
	return r.nextRecord()
}

func (r *Reader) nextLine() ([]byte, error) {
	r.line = r.line[:0]
	for {
		frag, err := r.lines.ReadSlice('\n')
		r.line = append(r.line, frag...)
		switch {
		case err == nil:
			line := r.line[:len(r.line)-1]
			return bytes.TrimSuffix(line, []byte{'\r'}), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF):
			if len(r.line) == 0 {
				return nil, io.EOF
			}
			return bytes.TrimSuffix(r.line, []byte{'\r'}), nil
		default:
			return nil, err
		}
	}
}

func (r *Reader) nextRecord() ([]byte, error) {
	for {
		from := r.scanned - len(r.sep) + 1
		if from < 0 {
			from = 0
		}
		if i := bytes.Index(r.rest[from:], r.sep); i >= 0 {
			end := from + i
			record := r.rest[:end]
			r.rest = r.rest[end+len(r.sep):]
			r.scanned = 0
			return record, nil
		}
		r.scanned = len(r.rest)

		if r.eof {
			if len(r.rest) == 0 {
				return nil, io.EOF
			}
			record := r.rest
			r.rest = nil
			r.scanned = 0
			return record, nil
		}

		if err := r.fill(); err != nil {
			return nil, err
		}
	}
}

// fill appends one chunk from the source to the remainder buffer.
func (r *Reader) fill() error {
	// compact so the remainder does not grow without bound
	if cap(r.rest)-len(r.rest) < r.chunkSize && len(r.rest) > 0 {
		buf := make([]byte, len(r.rest), 2*len(r.rest)+r.chunkSize)
		copy(buf, r.rest)
		r.rest = buf
	}
	n, err := r.src.Read(r.chunk)
	r.rest = append(r.rest, r.chunk[:n]...)
	if errors.Is(err, io.EOF) {
		r.eof = true
		return nil
	}
	return err
}
