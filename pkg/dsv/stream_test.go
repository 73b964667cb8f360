package dsv_test

import (
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/shapestone/shape-dsv/pkg/dsv"
)

// recorder is a RowSink that remembers every callback.
type recorder struct {
	configured int
	resolved   dsv.ResolvedOptions
	header     []string
	rows       [][]string
	eofs       int

	stopAfter int   // stop after this many rows, 0 never
	failOn    int   // fail on this row, 0 never
	err       error // returned when failing
}

func strs(row dsv.Row) []string {
	out := make([]string, len(row))
	for i, f := range row {
		out[i] = string(f)
	}
	return out
}

func (r *recorder) Configure(o dsv.ResolvedOptions) {
	r.configured++
	r.resolved = o
}

func (r *recorder) OnHeader(h dsv.Row) (bool, error) {
	r.header = strs(h)
	return false, nil
}

func (r *recorder) OnRow(row dsv.Row) (bool, error) {
	r.rows = append(r.rows, strs(row))
	if r.failOn > 0 && len(r.rows) == r.failOn {
		return false, r.err
	}
	return r.stopAfter > 0 && len(r.rows) >= r.stopAfter, nil
}

func (r *recorder) OnEOF() error {
	r.eofs++
	return nil
}

func headerNo() dsv.Options {
	opts := dsv.DefaultOptions()
	opts.Header = dsv.HeaderNo
	return opts
}

func TestProcess_HeaderPolicy(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		policy     dsv.HeaderPolicy
		wantHeader []string
		wantRows   [][]string
	}{
		{
			name:       "auto detects header",
			input:      "name,age\nAlice,30\nBob,25\n",
			policy:     dsv.HeaderAuto,
			wantHeader: []string{"name", "age"},
			wantRows:   [][]string{{"Alice", "30"}, {"Bob", "25"}},
		},
		{
			name:     "auto rejects numeric first row",
			input:    "1,2\n3,4\n",
			policy:   dsv.HeaderAuto,
			wantRows: [][]string{{"1", "2"}, {"3", "4"}},
		},
		{
			name:     "auto rejects empty field",
			input:    "name,\nx,y\n",
			policy:   dsv.HeaderAuto,
			wantRows: [][]string{{"name", ""}, {"x", "y"}},
		},
		{
			name:       "yes forces header",
			input:      "1,2\n3,4\n",
			policy:     dsv.HeaderYes,
			wantHeader: []string{"1", "2"},
			wantRows:   [][]string{{"3", "4"}},
		},
		{
			name:     "no disables header",
			input:    "name,age\nAlice,30\n",
			policy:   dsv.HeaderNo,
			wantRows: [][]string{{"name", "age"}, {"Alice", "30"}},
		},
		{
			name:       "underscore starts a header",
			input:      "_id,Value\n1,2\n",
			policy:     dsv.HeaderAuto,
			wantHeader: []string{"_id", "Value"},
			wantRows:   [][]string{{"1", "2"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := dsv.DefaultOptions()
			opts.Header = tt.policy
			rec := &recorder{}
			if err := dsv.NewProcessor(opts, dsv.Env{}).Process(strings.NewReader(tt.input), rec); err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if !reflect.DeepEqual(rec.header, tt.wantHeader) {
				t.Errorf("header = %q, want %q", rec.header, tt.wantHeader)
			}
			if !reflect.DeepEqual(rec.rows, tt.wantRows) {
				t.Errorf("rows = %q, want %q", rec.rows, tt.wantRows)
			}
			if rec.eofs != 1 {
				t.Errorf("OnEOF called %d times, want 1", rec.eofs)
			}
		})
	}
}

func TestProcess_Records(t *testing.T) {
	tests := []struct {
		name  string
		input string
		irs   string
		want  [][]string
	}{
		{name: "crlf", input: "a,b\r\nc,d\r\n", want: [][]string{{"a", "b"}, {"c", "d"}}},
		{name: "bom stripped from first record only", input: "\xef\xbb\xbfa,b\n\xef\xbb\xbfc,d", want: [][]string{{"a", "b"}, {"\xef\xbb\xbfc", "d"}}},
		{name: "quoted field across records", input: "x,\"multi\nline\",y\nz,w,v\n", want: [][]string{{"x", "multi\nline", "y"}, {"z", "w", "v"}}},
		{name: "unterminated quote finalised at end", input: "a,\"b\nc", want: [][]string{{"a", "b\nc"}}},
		{name: "blank line is one empty field", input: "a,b\n\nc,d\n", want: [][]string{{"a", "b"}, {""}, {"c", "d"}}},
		{name: "custom row separator", input: "a,b;c,d;", irs: ";", want: [][]string{{"a", "b"}, {"c", "d"}}},
		{name: "quoted field across custom records", input: "\"a;b\";c", irs: ";", want: [][]string{{"a;b"}, {"c"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := headerNo()
			if tt.irs != "" {
				opts.IRS = tt.irs
			}
			rec := &recorder{}
			if err := dsv.NewProcessor(opts, dsv.Env{}).Process(strings.NewReader(tt.input), rec); err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if !reflect.DeepEqual(rec.rows, tt.want) {
				t.Errorf("rows = %q, want %q", rec.rows, tt.want)
			}
		})
	}
}

func TestProcess_EmptyInput(t *testing.T) {
	rec := &recorder{}
	if err := dsv.NewProcessor(dsv.DefaultOptions(), dsv.Env{}).Process(strings.NewReader(""), rec); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if rec.configured != 0 || rec.header != nil || rec.rows != nil {
		t.Errorf("empty input produced callbacks: configured=%d header=%q rows=%q", rec.configured, rec.header, rec.rows)
	}
	if rec.eofs != 1 {
		t.Errorf("OnEOF called %d times, want 1", rec.eofs)
	}
}

func TestProcess_Stop(t *testing.T) {
	rec := &recorder{stopAfter: 2}
	err := dsv.NewProcessor(headerNo(), dsv.Env{}).Process(strings.NewReader("1\n2\n3\n4\n"), rec)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if want := [][]string{{"1"}, {"2"}}; !reflect.DeepEqual(rec.rows, want) {
		t.Errorf("rows = %q, want %q", rec.rows, want)
	}
	if rec.eofs != 1 {
		t.Errorf("OnEOF called %d times, want 1", rec.eofs)
	}
}

func TestProcess_SinkError(t *testing.T) {
	boom := errors.New("boom")
	rec := &recorder{failOn: 1, err: boom}
	err := dsv.NewProcessor(headerNo(), dsv.Env{}).Process(strings.NewReader("1\n2\n"), rec)
	if err != boom {
		t.Errorf("Process() error = %v, want the sink error unchanged", err)
	}
	if len(rec.rows) != 1 || rec.eofs != 1 {
		t.Errorf("rows=%d eofs=%d, want 1 and 1", len(rec.rows), rec.eofs)
	}
}

func TestProcess_ReadError(t *testing.T) {
	boom := errors.New("boom")
	src := io.MultiReader(strings.NewReader("a,b\n"), iotest.ErrReader(boom))
	rec := &recorder{}
	err := dsv.NewProcessor(dsv.DefaultOptions(), dsv.Env{}).Process(src, rec)
	if !errors.Is(err, boom) {
		t.Fatalf("Process() error = %v, want %v", err, boom)
	}
	if !reflect.DeepEqual(rec.header, []string{"a", "b"}) {
		t.Errorf("header = %q, want the record read before the error", rec.header)
	}
	if rec.eofs != 1 {
		t.Errorf("OnEOF called %d times, want 1", rec.eofs)
	}
}

func TestProcess_BadSeparator(t *testing.T) {
	opts := dsv.DefaultOptions()
	opts.IFS = "("
	rec := &recorder{}
	err := dsv.NewProcessor(opts, dsv.Env{}).Process(strings.NewReader("a(b\n"), rec)

	var sepErr *dsv.SeparatorError
	if !errors.As(err, &sepErr) {
		t.Fatalf("Process() error = %v, want *SeparatorError", err)
	}
	if sepErr.Expr != "(" {
		t.Errorf("Expr = %q, want %q", sepErr.Expr, "(")
	}
	if rec.configured != 0 || rec.eofs != 1 {
		t.Errorf("configured=%d eofs=%d, want 0 and 1", rec.configured, rec.eofs)
	}
}

func TestProcess_ChunkBoundaryInvariance(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 50; i++ {
		b.WriteString("plain,\"quoted, with sep\",\"multi||line\"||")
		b.WriteString("x" + strings.Repeat("y", i%7) + ",\"a\"\"b\",||")
	}
	input := b.String()

	collect := func(chunk int) [][]string {
		opts := headerNo()
		opts.IRS = "||"
		opts.ChunkSize = chunk
		rec := &recorder{}
		if err := dsv.NewProcessor(opts, dsv.Env{}).Process(strings.NewReader(input), rec); err != nil {
			t.Fatalf("chunk %d: Process() error = %v", chunk, err)
		}
		return rec.rows
	}

	reference := collect(8192)
	if len(reference) != 100 {
		t.Fatalf("reference has %d rows, want 100", len(reference))
	}
	if want := []string{"plain", "quoted, with sep", "multi||line"}; !reflect.DeepEqual(reference[0], want) {
		t.Fatalf("first row = %q, want %q", reference[0], want)
	}
	for _, size := range []int{1, 2, 3, 5, 16, 100} {
		if got := collect(size); !reflect.DeepEqual(got, reference) {
			t.Errorf("chunk size %d: rows differ from reference", size)
		}
	}
}

func TestProcess_CombineTrailingColumns(t *testing.T) {
	input := "perm links name\n-rw 1 my file.txt\ndrwx 2 dir\n"
	rec := &recorder{}
	if err := dsv.NewProcessor(dsv.DefaultOptions(), dsv.Env{}).Process(strings.NewReader(input), rec); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !rec.resolved.CombineTrailing {
		t.Error("whitespace guess did not enable combining trailing columns")
	}
	want := [][]string{{"-rw", "1", "my file.txt"}, {"drwx", "2", "dir"}}
	if !reflect.DeepEqual(rec.rows, want) {
		t.Errorf("rows = %q, want %q", rec.rows, want)
	}
}

func TestProcess_ConfigureAndHook(t *testing.T) {
	semi, err := dsv.CompileSeparator(";", true)
	if err != nil {
		t.Fatal(err)
	}
	p := dsv.NewProcessor(headerNo(), dsv.Env{})
	p.Hook = dsv.FixedDelimiters{Input: semi, Output: dsv.OutputSeparator{Sep: []byte("|")}}

	rec := &recorder{}
	if err := p.Process(strings.NewReader("a;b,c\n"), rec); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if rec.configured != 1 {
		t.Errorf("Configure called %d times, want 1", rec.configured)
	}
	if string(rec.resolved.Output.Bytes()) != "|" {
		t.Errorf("output separator = %v, want the hook's", rec.resolved.Output)
	}
	if want := [][]string{{"a", "b,c"}}; !reflect.DeepEqual(rec.rows, want) {
		t.Errorf("rows = %q, want %q", rec.rows, want)
	}
	if p.Rows() != 1 {
		t.Errorf("Rows() = %d, want 1", p.Rows())
	}
}

func TestProcess_ResolvedColour(t *testing.T) {
	tests := []struct {
		name         string
		env          dsv.Env
		colour       dsv.AutoChoice
		wantColour   bool
		wantRainbow  bool
		wantNumbered bool
	}{
		{name: "pipe", env: dsv.Env{}, colour: dsv.Auto},
		{name: "terminal", env: dsv.Env{StdoutTTY: true}, colour: dsv.Auto, wantColour: true, wantRainbow: true, wantNumbered: true},
		{name: "NO_COLOR", env: dsv.Env{StdoutTTY: true, NoColor: true}, colour: dsv.Always, wantNumbered: true},
		{name: "forced on a pipe", env: dsv.Env{}, colour: dsv.Always, wantColour: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := dsv.DefaultOptions()
			opts.Colour = tt.colour
			rec := &recorder{}
			if err := dsv.NewProcessor(opts, tt.env).Process(strings.NewReader("a,b\n"), rec); err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			r := rec.resolved
			if r.Colour != tt.wantColour || r.Rainbow != tt.wantRainbow || r.Numbered != tt.wantNumbered {
				t.Errorf("colour=%v rainbow=%v numbered=%v, want %v %v %v",
					r.Colour, r.Rainbow, r.Numbered, tt.wantColour, tt.wantRainbow, tt.wantNumbered)
			}
		})
	}
}
