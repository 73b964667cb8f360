// Package tools provides row stages built on the dsv stream protocol.
//
// Every stage embeds dsv.Passthrough and can be used on its own with a
// dsv.Processor or chained with others in a dsv.Pipeline:
//
//	p, _ := dsv.NewPipeline(env,
//	    dsv.Step{Stage: tools.NewTail(20), Options: opts},
//	    dsv.Step{Stage: tools.NewTac(), Options: opts},
//	)
//	p.Connect(dsv.NewWriter(out))
//	err := p.Process(os.Stdin)
package tools

import (
	"strconv"

	"github.com/tliron/commonlog"

	"github.com/shapestone/shape-dsv/internal/mapped"
	"github.com/shapestone/shape-dsv/pkg/dsv"
)

var logger = commonlog.GetLogger("dsv.tools")

// Cat forwards its input and then the rows of Files, optionally numbering
// every data row.
//
// The extra files are read with the separators resolved for the main input,
// and their headers are dropped. When the main input is empty, the first file
// with a record takes its place: its header is kept and its resolution
// configures the sinks downstream.
type Cat struct {
	dsv.Passthrough

	// Number prefixes every row with its 1-based number and the header
	// with "n".
	Number bool
	// Files are read, in order, after the main input ends.
	Files []string

	opts     dsv.Options
	env      dsv.Env
	prepared bool
	resolved dsv.ResolvedOptions
	count    int
	stopped  bool
}

// NewCat creates a Cat stage.
func NewCat(number bool, files ...string) *Cat {
	return &Cat{Number: number, Files: files}
}

// Prepare implements dsv.Preparer. Without it the files of an empty main
// input are read with dsv.DefaultOptions.
func (c *Cat) Prepare(opts dsv.Options, env dsv.Env) {
	c.opts, c.env, c.prepared = opts, env, true
}

// Configure implements dsv.Configurable.
func (c *Cat) Configure(r dsv.ResolvedOptions) {
	c.resolved = r
}

func (c *Cat) OnHeader(header dsv.Row) (bool, error) {
	if c.Number {
		header = append(dsv.Row{[]byte("n")}, header...)
	}
	stop, err := c.Passthrough.OnHeader(header)
	if stop || err != nil {
		c.stopped = true
	}
	return stop, err
}

func (c *Cat) OnRow(row dsv.Row) (bool, error) {
	if c.Number {
		c.count++
		row = append(dsv.Row{strconv.AppendInt(nil, int64(c.count), 10)}, row...)
	}
	stop, err := c.Passthrough.OnRow(row)
	if stop || err != nil {
		c.stopped = true
	}
	return stop, err
}

// OnEOF reads the extra files. A file that cannot be opened or read is
// logged and skipped.
func (c *Cat) OnEOF() error {
	files := c.Files
	c.Files = nil
	for _, name := range files {
		if c.stopped {
			break
		}
		if err := c.catFile(name); err != nil {
			return err
		}
	}
	return nil
}

// catFile returns only errors raised downstream.
func (c *Cat) catFile(name string) error {
	f, err := mapped.Open(name)
	if err != nil {
		logger.Warningf("%s", err)
		return nil
	}
	defer f.Close()

	var proc *dsv.Processor
	switch {
	case c.resolved.Input != nil:
		proc = dsv.NewProcessor(c.resolved.Options, c.resolved.Env)
		proc.Hook = dsv.FixedDelimiters(c.resolved.Delimiters)
	case c.prepared:
		proc = dsv.NewProcessor(c.opts, c.env)
	default:
		proc = dsv.NewProcessor(dsv.DefaultOptions(), c.env)
	}

	sink := &fileSink{cat: c, first: c.resolved.Input == nil}
	err = proc.Process(f, sink)
	if sink.err != nil {
		return sink.err
	}
	if err != nil {
		logger.Warningf("%s: %s", name, err)
	}
	logger.Debugf("cat: %s done", name)
	return nil
}

// fileSink feeds the records of one extra file to a Cat. The first file read
// after an empty main input stands in for it.
type fileSink struct {
	cat   *Cat
	first bool
	err   error
}

func (s *fileSink) Configure(r dsv.ResolvedOptions) {
	if !s.first {
		return
	}
	logger.Debugf("cat: configured from %s", r.Input)
	s.cat.Configure(r)
	if next, ok := s.cat.Next.(dsv.Configurable); ok {
		next.Configure(r)
	}
}

func (s *fileSink) OnHeader(header dsv.Row) (bool, error) {
	if !s.first {
		return false, nil
	}
	stop, err := s.cat.OnHeader(header)
	s.err = err
	return stop, err
}

func (s *fileSink) OnRow(row dsv.Row) (bool, error) {
	stop, err := s.cat.OnRow(row)
	s.err = err
	return stop, err
}

func (s *fileSink) OnEOF() error {
	return nil
}
