package dsv

import (
	"bytes"
	"regexp"

	"github.com/shapestone/shape-dsv/internal/tokenizer"
)

// Candidates tried by GuessSeparator, in order of preference.
var (
	preferredSeparators = [][]byte{[]byte("\t"), []byte(",")}
	fallbackSeparators  = [][]byte{[]byte("  "), []byte(" "), []byte("|"), []byte(";")}

	wordSpaceWord = regexp.MustCompile(`\S \S`)
)

// Sniffer detects the field separator of a sample record.
type Sniffer struct {
	sample    []byte
	def       Separator
	separator Separator
	analyzed  bool
}

// NewSniffer creates a Sniffer for the first record of a stream. Tab is used
// when nothing in the sample looks like a separator.
func NewSniffer(sample []byte) *Sniffer {
	return &Sniffer{
		sample: sample,
		def:    tokenizer.Literal("\t"),
	}
}

// DetectSeparator returns the guessed field separator.
func (s *Sniffer) DetectSeparator() Separator {
	if !s.analyzed {
		s.separator = GuessSeparator(s.sample, s.def)
		s.analyzed = true
	}
	return s.separator
}

// GuessSeparator picks a field separator for line.
//
// Tab and comma are counted first and the more frequent one wins, tab on a
// tie. If neither occurs, double space, space, pipe and semicolon are counted
// the same way. A space separator becomes Aligned when double spaces are at
// least half as common as single ones. Spaces is used when a single space
// sits between two non-blank bytes, otherwise Aligned. def is returned when
// no candidate occurs at all.
func GuessSeparator(line []byte, def Separator) Separator {
	best, count := mostFrequent(line, preferredSeparators)
	if count == 0 {
		best, count = mostFrequent(line, fallbackSeparators)
	}
	if count == 0 {
		return def
	}

	if string(best) == " " && 2*bytes.Count(line, []byte("  ")) >= count {
		best = []byte("  ")
	}
	switch string(best) {
	case " ":
		if wordSpaceWord.Match(line) {
			return tokenizer.Spaces
		}
		return tokenizer.Aligned
	case "  ":
		return tokenizer.Aligned
	}
	return tokenizer.Literal(best)
}

func mostFrequent(line []byte, candidates [][]byte) ([]byte, int) {
	var best []byte
	most := 0
	for _, c := range candidates {
		if n := bytes.Count(line, c); n > most {
			best, most = c, n
		}
	}
	return best, most
}

// IsHeader reports whether every field of row starts with an ASCII letter or
// an underscore. An empty field disqualifies the row.
func IsHeader(row Row) bool {
	for _, f := range row {
		if len(f) == 0 || !isHeaderStart(f[0]) {
			return false
		}
	}
	return true
}

func isHeaderStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// ResolveDelimiters determines the input and output separators from the first
// record of a stream.
func ResolveDelimiters(first []byte, opts Options, colour bool) (Delimiters, error) {
	d := Delimiters{CombineTrailing: opts.CombineTrailingColumns}
	if opts.IFS != "" {
		sep, err := CompileSeparator(opts.IFS, opts.PlainIFS)
		if err != nil {
			return Delimiters{}, err
		}
		d.Input = sep
	} else {
		d.Input = NewSniffer(first).DetectSeparator()
		if d.Input.Whitespace() {
			d.CombineTrailing = true
		}
	}
	d.Output = ResolveOutput(d.Input, opts, colour)
	logger.Debugf("delimiters: ifs=%v ofs=%v combine=%v", d.Input, d.Output, d.CombineTrailing)
	return d, nil
}

// ResolveOutput derives the output separator. An explicit OFS wins, then
// Pretty. Whitespace input is written pretty when colour is on and with four
// spaces otherwise; literal input reuses the same bytes; pattern input is
// written with tabs.
func ResolveOutput(in Separator, opts Options, colour bool) OutputSeparator {
	switch {
	case opts.OFS != "":
		return OutputSeparator{Sep: []byte(opts.OFS)}
	case opts.Pretty:
		return OutputSeparator{Pretty: true}
	case in.Whitespace():
		if colour {
			return OutputSeparator{Pretty: true}
		}
		return OutputSeparator{Sep: []byte("    ")}
	}
	if lit, ok := in.(tokenizer.Literal); ok {
		return OutputSeparator{Sep: append([]byte(nil), lit...)}
	}
	return OutputSeparator{Sep: []byte("\t")}
}
