package dsv

import (
	"bytes"
	"math"
	"strconv"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Escape sequences written around fields.
var (
	resetColour = []byte("\x1b[0m")
	resetFG     = []byte("\x1b[39m")
)

// rainbowStep is the hue distance between adjacent columns; colours cycle
// roughly every 17 columns.
const rainbowStep = 0.647

// Writer is the terminal RowSink that renders rows as text.
//
// With pretty output every row is buffered until OnEOF so columns can be
// justified. Otherwise each row is written as it arrives.
type Writer struct {
	out  *Output
	opts ResolvedOptions

	header        Row // header as received, nil when absent or dropped
	headerPadding []int
	rows          int
	rainbow       [][]byte

	gathered       []Row
	gatheredHeader bool
}

// NewWriter creates a Writer. Until Configure is called it writes
// tab-separated rows with the default options.
func NewWriter(out *Output) *Writer {
	return &Writer{
		out: out,
		opts: ResolvedOptions{
			Options:    DefaultOptions(),
			Delimiters: Delimiters{Output: OutputSeparator{Sep: []byte("\t")}},
		},
	}
}

// Configure implements Configurable.
func (w *Writer) Configure(r ResolvedOptions) {
	w.opts = r
	if r.Options.Page {
		w.out.UsePager(r.Options.Pager)
	}
}

// Rows returns the number of rows written or buffered, header included.
func (w *Writer) Rows() int {
	return w.rows
}

// OnHeader implements RowSink.
func (w *Writer) OnHeader(header Row) (bool, error) {
	if w.opts.Options.DropHeader {
		return false, nil
	}
	w.header = header
	if w.opts.Numbered {
		header = numberColumns(header)
	}
	w.rows++
	if w.opts.Output.Pretty {
		w.gather(header)
		w.gatheredHeader = true
		return false, nil
	}
	return false, w.writeHeader(w.quote(header), nil)
}

// OnRow implements RowSink.
func (w *Writer) OnRow(row Row) (bool, error) {
	w.rows++
	if w.opts.Output.Pretty {
		w.gather(row)
		return false, nil
	}
	return false, w.write(w.quote(row), nil)
}

// OnEOF writes buffered pretty rows and the trailer, then flushes.
func (w *Writer) OnEOF() error {
	if err := w.flushGathered(); err != nil {
		return err
	}
	if w.header != nil && w.opts.ShowTrailer(w.rows) {
		if err := w.writeTrailer(); err != nil {
			return err
		}
	}
	return w.out.Flush()
}

func (w *Writer) gather(row Row) {
	w.gathered = append(w.gathered, w.quote(row))
}

func (w *Writer) flushGathered() error {
	if len(w.gathered) == 0 {
		return nil
	}
	padding := Justify(w.gathered)
	for i, row := range w.gathered {
		var err error
		if i == 0 && w.gatheredHeader {
			w.headerPadding = padding[i]
			err = w.writeHeader(row, padding[i])
		} else {
			err = w.write(row, padding[i])
		}
		if err != nil {
			return err
		}
	}
	w.gathered = nil
	return nil
}

// writeTrailer repeats the header, justified like the first one in pretty
// mode.
func (w *Writer) writeTrailer() error {
	row := w.header
	if w.opts.Numbered {
		row = numberColumns(row)
	}
	return w.writeHeader(w.quote(row), w.headerPadding)
}

func (w *Writer) quote(row Row) Row {
	if !w.opts.Options.QuoteOutput {
		return row
	}
	return QuoteRow(row, w.opts.Output.Bytes(), w.opts.Options.OutputRowSeparator())
}

// writeHeader wraps every field of an already quoted header in the header
// colours before writing it.
func (w *Writer) writeHeader(header Row, padding []int) error {
	if err := w.out.Open(true); err != nil {
		return err
	}
	if !w.opts.Colour || len(header) == 0 {
		return w.write(header, padding)
	}
	hc := []byte(w.opts.Options.HeaderColour)
	bg := []byte(w.opts.Options.HeaderBGColour)
	coloured := make(Row, len(header))
	for i, h := range header {
		f := make([]byte, 0, len(hc)+2*len(bg)+len(h)+2*len(resetColour))
		f = append(f, hc...)
		f = append(f, bg...)
		f = append(f, h...)
		f = append(f, resetColour...)
		f = append(f, bg...)
		coloured[i] = f
	}
	last := len(coloured) - 1
	coloured[last] = append(coloured[last], resetColour...)
	return w.write(coloured, padding)
}

// write renders one quoted row with optional padding and writes it.
func (w *Writer) write(row Row, padding []int) error {
	ofs := w.opts.Output.Bytes()
	rainbow := w.opts.Colour && w.opts.Rainbow

	line := getLine()
	defer func() { putLine(line) }()

	if rainbow {
		w.growRainbow(len(row))
	}
	for i, f := range row {
		if i > 0 {
			if rainbow {
				line = append(line, resetFG...)
			}
			line = append(line, ofs...)
		}
		if rainbow {
			line = append(line, w.rainbow[i]...)
		}
		line = append(line, f...)
		if i < len(padding) && padding[i] > 0 {
			line = append(line, bytes.Repeat([]byte{' '}, padding[i])...)
		}
	}
	if rainbow && len(row) > 0 {
		line = append(line, resetColour...)
	}
	line = append(line, w.opts.Options.OutputRowSeparator()...)

	_, err := w.out.Write(line)
	return err
}

func (w *Writer) growRainbow(n int) {
	for i := len(w.rainbow); i < n; i++ {
		w.rainbow = append(w.rainbow, RainbowColour(i))
	}
}

// RainbowColour returns the 24-bit foreground escape sequence for column i.
func RainbowColour(i int) []byte {
	hue := math.Mod(rainbowStep*float64(i), 1)
	r, g, b := colorful.Hsv(hue*360, 0.3, 1).RGB255()
	seq := []byte("\x1b[38;2;")
	seq = strconv.AppendUint(seq, uint64(r), 10)
	seq = append(seq, ';')
	seq = strconv.AppendUint(seq, uint64(g), 10)
	seq = append(seq, ';')
	seq = strconv.AppendUint(seq, uint64(b), 10)
	return append(seq, 'm')
}

// numberColumns prefixes each header field with its 1-based index. Leading
// blanks of a field are used up by the label.
func numberColumns(header Row) Row {
	out := make(Row, len(header))
	for i, h := range header {
		n := strconv.AppendInt(nil, int64(i+1), 10)
		n = append(n, ' ')
		if len(h) >= len(n) && len(bytes.TrimLeft(h[:len(n)], " ")) == 0 {
			h = h[len(n):]
		} else {
			h = bytes.TrimLeft(h, " ")
		}
		out[i] = append(n, h...)
	}
	return out
}
