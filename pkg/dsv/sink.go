package dsv

import "github.com/tliron/commonlog"

var logger = commonlog.GetLogger("dsv")

// Row is one record split into fields. Every field is owned by the row.
type Row = [][]byte

// RowSink consumes the rows of a stream.
//
// OnHeader is called at most once, before any OnRow. Returning stop=true from
// OnHeader or OnRow ends reading early. OnEOF is called exactly once, after
// the last callback, whether the stream ended normally, was stopped or
// failed.
type RowSink interface {
	OnHeader(header Row) (stop bool, err error)
	OnRow(row Row) (stop bool, err error)
	OnEOF() error
}

// Configurable is implemented by sinks that need the resolved configuration.
// Configure is called once, after the first record is read and before the
// first OnHeader or OnRow. A Processor does not call it for empty input, but a
// stage reading further input of its own may configure the sinks after it
// from that input.
type Configurable interface {
	Configure(ResolvedOptions)
}

// Preparer is implemented by stages that read input of their own and so need
// the stream options before anything is read. A Pipeline calls Prepare from
// NewPipeline with the options it processes with.
type Preparer interface {
	Prepare(Options, Env)
}

// DelimiterHook lets the first stage of a stream adjust the separators
// resolved from the first record.
type DelimiterHook interface {
	DetermineDelimiters(first []byte, d Delimiters) (Delimiters, error)
}

// Stage is a RowSink that forwards rows to a downstream sink.
//
// A stage's OnEOF flushes buffered rows into the downstream sink but never
// calls the downstream OnEOF; whoever wired the stages does that.
type Stage interface {
	RowSink
	Connect(next RowSink)
}

// Passthrough is the identity stage. Embed it and override the callbacks a
// stage needs to change.
type Passthrough struct {
	Next RowSink
}

// Connect sets the downstream sink.
func (p *Passthrough) Connect(next RowSink) {
	p.Next = next
}

// OnHeader forwards the header.
func (p *Passthrough) OnHeader(header Row) (bool, error) {
	if p.Next == nil {
		return true, ErrNotConnected
	}
	return p.Next.OnHeader(header)
}

// OnRow forwards the row.
func (p *Passthrough) OnRow(row Row) (bool, error) {
	if p.Next == nil {
		return true, ErrNotConnected
	}
	return p.Next.OnRow(row)
}

// OnEOF does nothing.
func (p *Passthrough) OnEOF() error {
	return nil
}

// SinkFuncs adapts plain functions to a RowSink. Nil callbacks accept
// everything.
type SinkFuncs struct {
	Header func(Row) (bool, error)
	Row    func(Row) (bool, error)
	EOF    func() error
}

func (f SinkFuncs) OnHeader(header Row) (bool, error) {
	if f.Header == nil {
		return false, nil
	}
	return f.Header(header)
}

func (f SinkFuncs) OnRow(row Row) (bool, error) {
	if f.Row == nil {
		return false, nil
	}
	return f.Row(row)
}

func (f SinkFuncs) OnEOF() error {
	if f.EOF == nil {
		return nil
	}
	return f.EOF()
}
