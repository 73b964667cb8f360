package dsv

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/shapestone/shape-dsv/internal/records"
	"github.com/shapestone/shape-dsv/internal/tokenizer"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Processor reads a stream and drives a RowSink.
//
// Example:
//
//	p := dsv.NewProcessor(dsv.DefaultOptions(), dsv.Env{})
//	err := p.Process(file, dsv.SinkFuncs{
//	    Row: func(row dsv.Row) (bool, error) {
//	        fmt.Println(len(row))
//	        return false, nil
//	    },
//	})
type Processor struct {
	Options Options
	Env     Env

	// Hook, when set, post-processes the separators resolved from the first
	// record. A sink implementing DelimiterHook is used when Hook is nil.
	Hook DelimiterHook

	resolved ResolvedOptions
	rows     int
}

// NewProcessor creates a Processor.
func NewProcessor(opts Options, env Env) *Processor {
	return &Processor{Options: opts, Env: env}
}

// Resolved returns the configuration of the last processed stream. It is the
// zero value until the first record was read.
func (p *Processor) Resolved() ResolvedOptions {
	return p.resolved
}

// Rows returns the number of rows, header included, delivered to the sink by
// the last Process call.
func (p *Processor) Rows() int {
	return p.rows
}

// Process reads r to the end, or until the sink stops, and calls sink.OnEOF
// exactly once. Errors from the sink are returned as is; read errors are
// wrapped. When both occur they are joined.
func (p *Processor) Process(r io.Reader, sink RowSink) error {
	p.rows = 0
	err := p.process(r, sink)
	if eofErr := sink.OnEOF(); eofErr != nil {
		return errors.Join(err, eofErr)
	}
	return err
}

func (p *Processor) process(r io.Reader, sink RowSink) error {
	if err := p.Options.Validate(); err != nil {
		return err
	}

	hook := p.Hook
	if hook == nil {
		hook, _ = sink.(DelimiterHook)
	}

	rd := records.NewReader(r, []byte(p.Options.IRS), p.Options.ChunkSize)
	var (
		tok     *tokenizer.Tokenizer
		carry   Row
		decided bool
	)

	line, rerr := rd.Next()
	if rerr == nil {
		line = bytes.TrimPrefix(line, utf8BOM)
		var err error
		if tok, err = p.start(line, sink, hook); err != nil {
			return err
		}
	}

	for rerr == nil {
		row, incomplete := tok.Parse(line, carry)
		line, rerr = rd.Next()
		if incomplete {
			if rerr == nil {
				carry = row
				continue
			}
			if !errors.Is(rerr, io.EOF) {
				break
			}
		}
		carry = nil

		var stop bool
		var err error
		if !decided {
			decided = true
			if p.isHeader(row) {
				if p.resolved.CombineTrailing {
					tok.MaxColumns = len(row)
				}
				p.rows++
				if stop, err = sink.OnHeader(row); err != nil || stop {
					return err
				}
				continue
			}
		}
		p.rows++
		if stop, err = sink.OnRow(row); err != nil || stop {
			return err
		}
	}

	if rerr != nil && !errors.Is(rerr, io.EOF) {
		return fmt.Errorf("dsv: read input: %w", rerr)
	}
	return nil
}

// start resolves the configuration from the first record.
func (p *Processor) start(first []byte, sink RowSink, hook DelimiterHook) (*tokenizer.Tokenizer, error) {
	resolved, err := Resolve(p.Options, p.Env, first)
	if err != nil {
		return nil, err
	}
	if hook != nil {
		if resolved.Delimiters, err = hook.DetermineDelimiters(first, resolved.Delimiters); err != nil {
			return nil, err
		}
	}
	p.resolved = resolved
	if c, ok := sink.(Configurable); ok {
		c.Configure(resolved)
	}

	return tokenizer.New(resolved.Input, tokenizer.Options{
		Quoting:      !p.Options.NoQuoting,
		RowSeparator: []byte(p.Options.IRS),
	}), nil
}

func (p *Processor) isHeader(row Row) bool {
	switch p.Options.Header {
	case HeaderYes:
		return true
	case HeaderNo:
		return false
	default:
		return IsHeader(row)
	}
}

// FixedDelimiters is a DelimiterHook that ignores the guess and always
// returns the same separators. It lets a later input reuse the separators
// resolved for an earlier one.
type FixedDelimiters Delimiters

// DetermineDelimiters implements DelimiterHook.
func (f FixedDelimiters) DetermineDelimiters([]byte, Delimiters) (Delimiters, error) {
	return Delimiters(f), nil
}
