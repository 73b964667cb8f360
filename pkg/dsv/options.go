// Package dsv processes delimiter-separated text as a stream of rows.
//
// A Processor reads records from an io.Reader, resolves the field separator
// from the first record when none is given, tokenizes every record into a
// Row and drives a RowSink through the header, row and end-of-input
// callbacks. Stages can be chained into a Pipeline, and a Writer renders
// rows back to text with quoting, justification and colour.
//
// Example:
//
//	opts := dsv.DefaultOptions()
//	opts.Pretty = true
//	w := dsv.NewWriter(dsv.NewOutput(os.Stdout, false))
//	err := dsv.NewProcessor(opts, dsv.Env{}).Process(os.Stdin, w)
package dsv

import (
	"fmt"
	"strings"

	"github.com/shapestone/shape-dsv/internal/records"
	"github.com/shapestone/shape-dsv/internal/tokenizer"
)

// Default colours applied to the header row.
const (
	DefaultHeaderColour   = "\x1b[1;4m"
	DefaultHeaderBGColour = "\x1b[48;5;237m"
	DefaultPager          = "less -RX"
)

// HeaderPolicy decides whether the first row is a header.
type HeaderPolicy int

const (
	// HeaderAuto treats the first row as a header when every field starts
	// with an ASCII letter or underscore.
	HeaderAuto HeaderPolicy = iota
	// HeaderYes always treats the first row as a header.
	HeaderYes
	// HeaderNo never treats the first row as a header.
	HeaderNo
)

// String returns the string representation of HeaderPolicy.
func (h HeaderPolicy) String() string {
	switch h {
	case HeaderAuto:
		return "auto"
	case HeaderYes:
		return "yes"
	case HeaderNo:
		return "no"
	default:
		return fmt.Sprintf("HeaderPolicy(%d)", int(h))
	}
}

// AutoChoice is a three-way switch whose Auto value depends on whether
// standard output is a terminal.
type AutoChoice int

const (
	Auto AutoChoice = iota
	Never
	Always
)

// ParseAutoChoice parses "auto", "never" or "always". The empty string is
// Auto.
func ParseAutoChoice(s string) (AutoChoice, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return Auto, nil
	case "never", "no", "false":
		return Never, nil
	case "always", "yes", "true":
		return Always, nil
	}
	return Auto, fmt.Errorf("dsv: invalid choice %q (want never, always or auto)", s)
}

// Resolve turns the choice into a bool for the given terminal state.
func (c AutoChoice) Resolve(tty bool) bool {
	switch c {
	case Always:
		return true
	case Never:
		return false
	default:
		return tty
	}
}

func (c AutoChoice) String() string {
	switch c {
	case Never:
		return "never"
	case Always:
		return "always"
	default:
		return "auto"
	}
}

// Set parses s into c, so an AutoChoice can back a command-line flag.
func (c *AutoChoice) Set(s string) error {
	v, err := ParseAutoChoice(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Type names the flag value type.
func (c *AutoChoice) Type() string {
	return "choice"
}

// UnmarshalText implements encoding.TextUnmarshaler for config files.
func (c *AutoChoice) UnmarshalText(text []byte) error {
	return c.Set(string(text))
}

// Options configures reading and writing. The zero value is not useful; start
// from DefaultOptions.
type Options struct {
	// Header decides whether the first row is a header.
	Header HeaderPolicy

	// IFS is the input field separator. Empty means guess it from the first
	// record. An expression with regexp metacharacters is a pattern unless
	// PlainIFS is set.
	IFS      string
	PlainIFS bool

	// IRS is the input row separator.
	// Default: "\n" (a trailing "\r" is stripped from every record)
	IRS string

	// CombineTrailingColumns merges surplus fields of a row into its last
	// header column. It is switched on automatically when the guessed
	// separator is whitespace.
	CombineTrailingColumns bool

	// NoQuoting disables quoted field handling on input.
	NoQuoting bool

	// ChunkSize is the number of bytes read from the input at a time.
	ChunkSize int

	// OFS is the output field separator. Empty means derive it from the
	// input separator.
	OFS string
	// Pretty aligns columns and separates them with two spaces.
	Pretty bool
	// ORS is the output row separator. Empty means IRS.
	ORS string

	DropHeader      bool
	Trailer         AutoChoice
	NumberedColumns AutoChoice
	Colour          AutoChoice
	RainbowColumns  AutoChoice
	HeaderColour    string
	HeaderBGColour  string

	// QuoteOutput quotes fields that contain a quote or a separator.
	// Default: true
	QuoteOutput bool

	// Page sends the output through Pager.
	Page  bool
	Pager string
}

// DefaultOptions returns the default configuration.
func DefaultOptions() Options {
	return Options{
		Header:          HeaderAuto,
		IRS:             "\n",
		ChunkSize:       records.DefaultChunkSize,
		Trailer:         Auto,
		NumberedColumns: Auto,
		Colour:          Auto,
		RainbowColumns:  Auto,
		HeaderColour:    DefaultHeaderColour,
		HeaderBGColour:  DefaultHeaderBGColour,
		QuoteOutput:     true,
		Pager:           DefaultPager,
	}
}

// Validate checks if the options are valid.
func (o Options) Validate() error {
	if o.IRS == "" {
		return &OptionsError{Field: "IRS", Message: "empty row separator"}
	}
	if o.ChunkSize < 0 {
		return &OptionsError{Field: "ChunkSize", Message: "negative chunk size"}
	}
	if o.Header < HeaderAuto || o.Header > HeaderNo {
		return &OptionsError{Field: "Header", Message: "unknown header policy"}
	}
	if o.Page && strings.TrimSpace(o.Pager) == "" {
		return &OptionsError{Field: "Pager", Message: "paging requested without a pager command"}
	}
	if o.IFS != "" {
		if _, err := CompileSeparator(o.IFS, o.PlainIFS); err != nil {
			return err
		}
	}
	return nil
}

// OutputRowSeparator returns ORS, falling back to IRS.
func (o Options) OutputRowSeparator() []byte {
	if o.ORS != "" {
		return []byte(o.ORS)
	}
	return []byte(o.IRS)
}

// Env describes the terminal the output goes to. It is computed once by the
// caller and passed down by value.
type Env struct {
	StdoutTTY bool
	Width     int
	Height    int
	// NoColor is set when the NO_COLOR environment variable is non-empty.
	NoColor bool
}

// Separator locates input field separators. See CompileSeparator.
type Separator = tokenizer.Separator

// Whitespace separators chosen by the guesser.
var (
	Spaces  Separator = tokenizer.Spaces
	Aligned Separator = tokenizer.Aligned
)

// CompileSeparator compiles an input field separator expression.
func CompileSeparator(expr string, plain bool) (Separator, error) {
	sep, err := tokenizer.Compile(expr, plain)
	if err != nil {
		return nil, &SeparatorError{Expr: expr, Err: err}
	}
	return sep, nil
}

// OutputSeparator is either a literal byte sequence or the pretty sentinel.
type OutputSeparator struct {
	Pretty bool
	Sep    []byte
}

// PrettySeparator is written between justified columns.
var PrettySeparator = []byte("  ")

// Bytes returns the bytes written between fields.
func (o OutputSeparator) Bytes() []byte {
	if o.Pretty {
		return PrettySeparator
	}
	return o.Sep
}

func (o OutputSeparator) String() string {
	if o.Pretty {
		return "pretty"
	}
	return fmt.Sprintf("%q", o.Sep)
}

// Delimiters is the outcome of separator resolution on the first record.
type Delimiters struct {
	Input           Separator
	Output          OutputSeparator
	CombineTrailing bool
}

// ResolvedOptions is the immutable configuration a stream runs with once the
// first record has been seen.
type ResolvedOptions struct {
	Options Options
	Env     Env
	Delimiters

	Colour   bool
	Rainbow  bool
	Numbered bool
}

// Quiet returns a copy for a stage whose output feeds another stage: tab
// separated, without colour, numbering, trailer or paging.
func (r ResolvedOptions) Quiet() ResolvedOptions {
	r.Output = OutputSeparator{Sep: []byte("\t")}
	r.Colour = false
	r.Rainbow = false
	r.Numbered = false
	r.Options.Trailer = Never
	r.Options.Page = false
	r.Options.DropHeader = false
	return r
}

// ShowTrailer reports whether the header is repeated after rows rows.
func (r ResolvedOptions) ShowTrailer(rows int) bool {
	switch r.Options.Trailer {
	case Always:
		return true
	case Never:
		return false
	default:
		return r.Env.StdoutTTY && rows > r.Env.Height
	}
}

// Resolve derives the full configuration from the first record.
func Resolve(opts Options, env Env, first []byte) (ResolvedOptions, error) {
	colour := !env.NoColor && opts.Colour.Resolve(env.StdoutTTY)
	d, err := ResolveDelimiters(first, opts, colour)
	if err != nil {
		return ResolvedOptions{}, err
	}
	return ResolvedOptions{
		Options:    opts,
		Env:        env,
		Delimiters: d,
		Colour:     colour,
		Rainbow:    colour && opts.RainbowColumns.Resolve(env.StdoutTTY),
		Numbered:   opts.NumberedColumns.Resolve(env.StdoutTTY),
	}, nil
}
