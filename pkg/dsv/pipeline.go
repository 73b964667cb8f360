package dsv

import (
	"errors"
	"io"
)

// Step is one stage of a pipeline together with the options it was built
// with.
type Step struct {
	Stage   Stage
	Options Options
}

// Pipeline chains stages so the rows emitted by one stage are fed to the
// next. A Pipeline is itself a Stage and can be nested.
//
// Only the last stage writes with the user's output preferences; the stages
// before it run with ResolvedOptions.Quiet.
type Pipeline struct {
	env   Env
	steps []Step
	links []*link
	next  RowSink
	done  []bool
}

// NewPipeline creates a pipeline of the given steps.
func NewPipeline(env Env, steps ...Step) (*Pipeline, error) {
	if len(steps) == 0 {
		return nil, ErrEmptyPipeline
	}
	p := &Pipeline{
		env:   env,
		steps: steps,
		links: make([]*link, len(steps)),
		done:  make([]bool, len(steps)),
	}
	for i := range steps {
		p.links[i] = &link{p: p, pos: i}
		steps[i].Stage.Connect(p.links[i])
		if i > 0 {
			p.links[i-1].next = steps[i].Stage
		}
	}
	p.Prepare(p.Options(), env)
	logger.Debugf("pipeline: %d stages", len(steps))
	return p, nil
}

// Prepare hands opts to every stage implementing Preparer.
func (p *Pipeline) Prepare(opts Options, env Env) {
	for _, st := range p.steps {
		if pr, ok := st.Stage.(Preparer); ok {
			pr.Prepare(opts, env)
		}
	}
}

// Connect sets the sink that receives the output of the last stage.
func (p *Pipeline) Connect(next RowSink) {
	p.next = next
	p.links[len(p.links)-1].next = next
}

// Options returns the options a stream feeding this pipeline runs with: the
// input side of the first step and the output side of the last.
func (p *Pipeline) Options() Options {
	opts := p.steps[0].Options
	last := p.steps[len(p.steps)-1].Options
	opts.OFS = last.OFS
	opts.Pretty = last.Pretty
	opts.ORS = last.ORS
	opts.DropHeader = last.DropHeader
	opts.Trailer = last.Trailer
	opts.NumberedColumns = last.NumberedColumns
	opts.Colour = last.Colour
	opts.RainbowColumns = last.RainbowColumns
	opts.HeaderColour = last.HeaderColour
	opts.HeaderBGColour = last.HeaderBGColour
	opts.QuoteOutput = last.QuoteOutput
	opts.Page = last.Page
	opts.Pager = last.Pager
	return opts
}

// Configure hands the quiet configuration to every stage but the last, and
// the full one to the last stage.
func (p *Pipeline) Configure(r ResolvedOptions) {
	p.configureFrom(0, r)
}

func (p *Pipeline) configureFrom(start int, r ResolvedOptions) {
	last := len(p.steps) - 1
	for i := start; i <= last; i++ {
		c, ok := p.steps[i].Stage.(Configurable)
		if !ok {
			continue
		}
		if i < last {
			c.Configure(r.Quiet())
		} else {
			c.Configure(r)
		}
	}
}

// DetermineDelimiters delegates to the first stage.
func (p *Pipeline) DetermineDelimiters(first []byte, d Delimiters) (Delimiters, error) {
	if h, ok := p.steps[0].Stage.(DelimiterHook); ok {
		return h.DetermineDelimiters(first, d)
	}
	return d, nil
}

// OnHeader feeds the first stage.
func (p *Pipeline) OnHeader(header Row) (bool, error) {
	return p.steps[0].Stage.OnHeader(header)
}

// OnRow feeds the first stage.
func (p *Pipeline) OnRow(row Row) (bool, error) {
	return p.steps[0].Stage.OnRow(row)
}

// OnEOF finishes the stages from left to right, each exactly once, so rows a
// stage buffered reach the stages after it. The downstream sink's OnEOF is
// not called.
func (p *Pipeline) OnEOF() error {
	var errs []error
	for i, st := range p.steps {
		if p.done[i] {
			continue
		}
		p.done[i] = true
		errs = append(errs, st.Stage.OnEOF())
	}
	return errors.Join(errs...)
}

// Process runs the pipeline over r with the options from Options, then
// finishes the downstream sink.
func (p *Pipeline) Process(r io.Reader) error {
	proc := NewProcessor(p.Options(), p.env)
	return proc.Process(r, terminated{p})
}

// terminated ends the pipeline's Configure and OnEOF cascades at the
// downstream sink.
type terminated struct {
	*Pipeline
}

func (t terminated) Configure(r ResolvedOptions) {
	t.Pipeline.Configure(r)
	if c, ok := t.next.(Configurable); ok {
		c.Configure(r)
	}
}

func (t terminated) OnEOF() error {
	err := t.Pipeline.OnEOF()
	if t.next == nil {
		return err
	}
	return errors.Join(err, t.next.OnEOF())
}

// link forwards a stage's output to the next sink. Once the next sink stops
// or fails, everything sent later is dropped and reported as a stop.
type link struct {
	p       *Pipeline
	pos     int
	next    RowSink
	stopped bool
}

// Configure lets a stage that resolves its own input configure everything
// after it: the later stages, then the downstream sink.
func (l *link) Configure(r ResolvedOptions) {
	l.p.configureFrom(l.pos+1, r)
	if c, ok := l.p.next.(Configurable); ok {
		c.Configure(r)
	}
}

func (l *link) OnHeader(header Row) (bool, error) {
	return l.forward(header, true)
}

func (l *link) OnRow(row Row) (bool, error) {
	return l.forward(row, false)
}

func (l *link) OnEOF() error {
	return nil
}

func (l *link) forward(row Row, header bool) (bool, error) {
	if l.stopped {
		return true, nil
	}
	if l.next == nil {
		l.stopped = true
		return true, ErrNotConnected
	}
	var stop bool
	var err error
	if header {
		stop, err = l.next.OnHeader(row)
	} else {
		stop, err = l.next.OnRow(row)
	}
	if stop || err != nil {
		l.stopped = true
	}
	return stop || err != nil, err
}
