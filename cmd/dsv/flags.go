package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/shapestone/shape-dsv/pkg/dsv"
)

// globalFlags are accepted by every command.
type globalFlags struct {
	verbose int

	header     bool
	noHeader   bool
	dropHeader bool
	trailer    dsv.AutoChoice
	numbered   dsv.AutoChoice

	ifs      string
	plainIFS bool
	ofs      string
	irs      string
	ors      string
	csv      bool
	tsv      bool
	ssv      bool
	combine  bool

	pretty        bool
	page          bool
	colour        dsv.AutoChoice
	headerColour  string
	headerBG      string
	rainbow       dsv.AutoChoice
	noQuoting     bool
	noQuoteOutput bool
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.CountVarP(&g.verbose, "verbose", "v", "log more, repeat for debug output")

	fs.BoolVarP(&g.header, "header", "H", false, "treat the first row as a header")
	fs.BoolVarP(&g.noHeader, "no-header", "N", false, "do not treat the first row as a header")
	fs.BoolVar(&g.dropHeader, "drop-header", false, "do not print the header")
	choice(fs, &g.trailer, "trailer", "print the header again after the rows")
	choice(fs, &g.numbered, "numbered-columns", "number the columns in the header")

	fs.StringVarP(&g.ifs, "ifs", "d", "", "input field separator, a regular expression unless --plain-ifs")
	fs.BoolVar(&g.plainIFS, "plain-ifs", false, "treat the input field separator as a literal")
	fs.StringVarP(&g.ofs, "ofs", "D", "", "output field separator")
	fs.StringVar(&g.irs, "irs", "", `input row separator (default "\n")`)
	fs.StringVar(&g.ors, "ors", "", "output row separator (default: the input row separator)")
	fs.BoolVar(&g.csv, "csv", false, "treat the input as comma separated")
	fs.BoolVar(&g.tsv, "tsv", false, "treat the input as tab separated")
	fs.BoolVar(&g.ssv, "ssv", false, "treat the input as whitespace separated")
	fs.BoolVar(&g.combine, "combine-trailing-columns", false, "merge surplus fields into the last header column")

	fs.BoolVarP(&g.pretty, "pretty", "P", false, "align the columns")
	fs.BoolVar(&g.page, "page", false, "show the output in a pager")
	choice(fs, &g.colour, "colour", "colour the output")
	choice(fs, &g.colour, "color", "colour the output")
	fs.MarkHidden("color")
	fs.StringVar(&g.headerColour, "header-colour", "", "escape sequence for the header")
	fs.StringVar(&g.headerBG, "header-bg-colour", "", "escape sequence for the header background")
	choice(fs, &g.rainbow, "rainbow-columns", "give every column its own colour")
	fs.BoolVarP(&g.noQuoting, "no-quoting", "Q", false, "do not handle quotes in the input")
	fs.BoolVar(&g.noQuoteOutput, "no-quote-output", false, "do not quote the output")
}

// choice registers a never/always/auto flag; the bare flag means always.
func choice(fs *pflag.FlagSet, v *dsv.AutoChoice, name, usage string) {
	fs.Var(v, name, usage+" (never, always or auto)")
	fs.Lookup(name).NoOptDefVal = "always"
}

// options builds the options for one command: the defaults, then the
// configuration file, then the flags the user actually set.
func (g *globalFlags) options(fs *pflag.FlagSet, a *app) (dsv.Options, error) {
	opts := dsv.DefaultOptions()
	if a.cfg != nil {
		a.cfg.Apply(&opts)
	}
	changed := fs.Changed

	switch {
	case changed("no-header") && g.noHeader:
		opts.Header = dsv.HeaderNo
	case changed("header") && g.header:
		opts.Header = dsv.HeaderYes
	}
	if changed("drop-header") {
		opts.DropHeader = g.dropHeader
	}
	if changed("trailer") {
		opts.Trailer = g.trailer
	}
	if changed("numbered-columns") {
		opts.NumberedColumns = g.numbered
	}

	opts.PlainIFS = g.plainIFS
	switch {
	case g.ifs != "":
		opts.IFS = g.ifs
		if g.plainIFS {
			opts.IFS = unescape(g.ifs)
		}
	case g.csv:
		opts.IFS, opts.PlainIFS = ",", true
	case g.tsv:
		opts.IFS, opts.PlainIFS = "\t", true
	case g.ssv:
		opts.IFS, opts.PlainIFS = `\s+`, false
	}
	if g.ofs != "" {
		opts.OFS = unescape(g.ofs)
	}
	if changed("irs") {
		opts.IRS = unescape(g.irs)
	}
	if g.ors != "" {
		opts.ORS = unescape(g.ors)
	}
	if changed("combine-trailing-columns") {
		opts.CombineTrailingColumns = g.combine
	}

	if changed("pretty") {
		opts.Pretty = g.pretty
	}
	if changed("page") {
		opts.Page = g.page
	}
	if changed("colour") || changed("color") {
		opts.Colour = g.colour
	}
	if changed("header-colour") {
		opts.HeaderColour = unescape(g.headerColour)
	}
	if changed("header-bg-colour") {
		opts.HeaderBGColour = unescape(g.headerBG)
	}
	if changed("rainbow-columns") {
		opts.RainbowColumns = g.rainbow
	}
	if changed("no-quoting") {
		opts.NoQuoting = g.noQuoting
	}
	if changed("no-quote-output") {
		opts.QuoteOutput = !g.noQuoteOutput
	}

	return opts, opts.Validate()
}

// unescape interprets the C escapes \t, \n, \r, \e, \0, \\ and \xHH. Other
// backslash sequences are kept as written.
func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case 't':
			b.WriteByte('\t')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'e':
			b.WriteByte(0x1b)
		case '0':
			b.WriteByte(0)
		case '\\':
			b.WriteByte('\\')
		case 'x':
			if i+4 <= len(s) {
				if v, err := strconv.ParseUint(s[i+2:i+4], 16, 8); err == nil {
					b.WriteByte(byte(v))
					i += 3
					continue
				}
			}
			b.WriteString(s[i : i+2])
		default:
			b.WriteString(s[i : i+2])
		}
		i++
	}
	return b.String()
}

// splitPipeline splits arguments on "!" into the argument lists of each
// stage. Empty stages are an error.
func splitPipeline(args []string) ([][]string, error) {
	var stages [][]string
	cur := []string{}
	for _, arg := range args {
		if arg == "!" {
			stages = append(stages, cur)
			cur = []string{}
			continue
		}
		cur = append(cur, arg)
	}
	stages = append(stages, cur)
	for i, st := range stages {
		if len(st) == 0 {
			return nil, fmt.Errorf("empty pipeline stage %d", i+1)
		}
	}
	return stages, nil
}
