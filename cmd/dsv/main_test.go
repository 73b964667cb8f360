package main

import (
	"bufio"
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"syscall"
	"testing"

	"github.com/shapestone/shape-dsv/internal/config"
	"github.com/shapestone/shape-dsv/pkg/dsv"
)

// runAsDSV makes the test binary behave as the dsv command, so tests can run
// it as a child process.
const runAsDSV = "DSV_TEST_RUN_MAIN"

func TestMain(m *testing.M) {
	if os.Getenv(runAsDSV) == "1" {
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func execute(t *testing.T, input string, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{stdin: strings.NewReader(input), stdout: &out, cfg: cfg}
	root := newRootCmd(a, nil)
	root.SetOut(&out)
	root.SetArgs(append([]string{}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestCommands(t *testing.T) {
	tests := []struct {
		name  string
		args  []string
		input string
		want  string
	}{
		{name: "no command is cat", input: "a,b\n1,2\n", want: "a,b\n1,2\n"},
		{name: "cat numbered", args: []string{"cat", "-n"}, input: "name,age\nAl,3\n", want: "n,name,age\n1,Al,3\n"},
		{name: "head", args: []string{"head", "-n", "1"}, input: "h\n1\n2\n", want: "h\n1\n"},
		{name: "head negative", args: []string{"head", "-n", "-1"}, input: "h\n1\n2\n", want: "h\n1\n"},
		{name: "tail", args: []string{"tail", "-n", "1"}, input: "h\n1\n2\n3\n", want: "h\n3\n"},
		{name: "tail from", args: []string{"tail", "-n", "+2"}, input: "h\n1\n2\n3\n", want: "h\n2\n3\n"},
		{name: "tac", args: []string{"tac"}, input: "h\n1\n2\n", want: "h\n2\n1\n"},
		{name: "tocsv", args: []string{"tocsv"}, input: "a\tb\n1\tx,y\n", want: "a,b\n1,\"x,y\"\n"},
		{name: "totsv", args: []string{"totsv"}, input: "x,y\n", want: "x\ty\n"},
		{name: "pretty", args: []string{"pretty"}, input: "name,age\nAlice,30\n", want: "name   age\nAlice  30\n"},
		{name: "set-header", args: []string{"-N", "set-header", "k", "v"}, input: "1,2\n", want: "k,v\n1,2\n"},
		{name: "set-header auto", args: []string{"set-header", "--auto", "-N"}, input: "1,2\n", want: "col1,col2\n1,2\n"},
		{name: "set-header rename", args: []string{"set-header", "-r", "a=A"}, input: "a,b\n1,2\n", want: "A,b\n1,2\n"},
		{name: "ssv", args: []string{"--ssv", "tocsv"}, input: "a b  c\n", want: "a,b,c\n"},
		{name: "escaped ofs", args: []string{"--ofs", `\t`}, input: "a,b\n", want: "a\tb\n"},
		{name: "plain ifs", args: []string{"-d", "a|b", "--plain-ifs", "tocsv"}, input: "1a|b2\n", want: "1,2\n"},
		{name: "regex ifs", args: []string{"-d", "[;|]", "-N", "tocsv"}, input: "1;2|3\n", want: "1,2,3\n"},
		{name: "bare trailer flag", args: []string{"--trailer"}, input: "h\n1\n", want: "h\n1\nh\n"},
		{name: "drop header", args: []string{"--drop-header"}, input: "h\n1\n", want: "1\n"},
		{name: "no quote output", args: []string{"--no-quote-output", "-N"}, input: "\"a,b\",c\n", want: "a,b,c\n"},
		{name: "pipeline", args: []string{"pipeline", "tail", "-n", "2", "!", "tac"}, input: "h\n1\n2\n3\n", want: "h\n3\n2\n"},
		{name: "pipeline alias", args: []string{"!", "head", "-n", "1", "!", "tocsv"}, input: "a\tb\n1\t2\n3\t4\n", want: "a,b\n1,2\n"},
		{name: "pipeline global flags", args: []string{"-N", "pipeline", "tac", "!", "tocsv"}, input: "a\tb\n1\t2\n", want: "1,2\na,b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := execute(t, tt.input, nil, tt.args...)
			if err != nil {
				t.Fatalf("execute(%q) error = %v", tt.args, err)
			}
			if got != tt.want {
				t.Errorf("execute(%q) = %q, want %q", tt.args, got, tt.want)
			}
		})
	}
}

func TestCommands_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "bad separator", args: []string{"-d", "["}},
		{name: "empty row separator", args: []string{"--irs="}},
		{name: "bad choice", args: []string{"--colour=sometimes"}},
		{name: "bad tail count", args: []string{"tail", "-n", "x"}},
		{name: "bad rename", args: []string{"set-header", "-r", "nope"}},
		{name: "empty pipeline stage", args: []string{"pipeline", "tac", "!", "!", "tocsv"}},
		{name: "unknown pipeline command", args: []string{"pipeline", "nope"}},
		{name: "nested pipeline", args: []string{"pipeline", "pipeline", "tac"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := execute(t, "a,b\n", nil, tt.args...); err == nil {
				t.Errorf("execute(%q) should fail", tt.args)
			}
		})
	}
}

func TestConfigPrecedence(t *testing.T) {
	always := dsv.Always
	cfg := &config.Config{Trailer: &always}

	got, err := execute(t, "h\n1\n", cfg)
	if err != nil {
		t.Fatal(err)
	}
	if got != "h\n1\nh\n" {
		t.Errorf("config trailer: output = %q", got)
	}

	got, err = execute(t, "h\n1\n", cfg, "--trailer=never")
	if err != nil {
		t.Fatal(err)
	}
	if got != "h\n1\n" {
		t.Errorf("flag should override the config: output = %q", got)
	}
}

func TestHelpOnTerminal(t *testing.T) {
	tests := [][]string{
		{},
		{"cat"},
		{"tac"},
		{"-N", "head", "-n", "1"},
		{"pipeline", "tail", "!", "tac"},
	}

	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			var out bytes.Buffer
			a := &app{stdin: strings.NewReader("a\n"), stdout: &out, stdinTTY: true}
			root := newRootCmd(a, nil)
			root.SetOut(&out)
			root.SetArgs(append([]string{}, args...))
			if err := root.Execute(); err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(out.String(), "Usage:") {
				t.Errorf("output = %q, want the help text", out.String())
			}
		})
	}
}

func TestMain_ClosedOutputPipe(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("no SIGPIPE on windows")
	}
	dir := t.TempDir()
	input, err := os.Create(filepath.Join(dir, "input"))
	if err != nil {
		t.Fatal(err)
	}
	defer input.Close()
	w := bufio.NewWriter(input)
	for i := 0; i < 200000; i++ {
		w.WriteString("12345678\n")
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if _, err := input.Seek(0, 0); err != nil {
		t.Fatal(err)
	}

	pr, pw, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	cmd := exec.Command(os.Args[0], "-N")
	cmd.Env = append(os.Environ(), runAsDSV+"=1", "DSV_CONFIG="+filepath.Join(dir, "none.toml"))
	cmd.Stdin = input
	cmd.Stdout = pw
	if err := cmd.Start(); err != nil {
		t.Fatal(err)
	}
	pw.Close()

	line, err := bufio.NewReader(pr).ReadString('\n')
	pr.Close()
	if err != nil || line != "12345678\n" {
		t.Errorf("first line = %q, %v", line, err)
	}
	if err := cmd.Wait(); err != nil {
		t.Errorf("dsv with a closed output pipe: %v, want a clean exit", err)
	}
}

type brokenPipe struct{}

func (brokenPipe) Write([]byte) (int, error) {
	return 0, syscall.EPIPE
}

func TestRun_BrokenPipe(t *testing.T) {
	a := &app{stdin: strings.NewReader("a\nb\n"), stdout: brokenPipe{}}
	if err := a.run(dsv.Step{Stage: &dsv.Passthrough{}, Options: dsv.DefaultOptions()}); err != nil {
		t.Errorf("run() error = %v, want a closed pipe to be ignored", err)
	}

	a = &app{stdin: strings.NewReader("a\nb\n"), stdout: failing{}}
	if err := a.run(dsv.Step{Stage: &dsv.Passthrough{}, Options: dsv.DefaultOptions()}); err == nil {
		t.Error("run() should report other write errors")
	}
}

type failing struct{}

func (failing) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain", want: "plain"},
		{in: `\t`, want: "\t"},
		{in: `a\nb\r`, want: "a\nb\r"},
		{in: `\x1b[1m`, want: "\x1b[1m"},
		{in: `\e[0m`, want: "\x1b[0m"},
		{in: `\\`, want: `\`},
		{in: `\s+`, want: `\s+`},
		{in: `\x`, want: `\x`},
		{in: `\xZZ`, want: `\xZZ`},
		{in: `end\`, want: `end\`},
	}

	for _, tt := range tests {
		if got := unescape(tt.in); got != tt.want {
			t.Errorf("unescape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSplitPipeline(t *testing.T) {
	got, err := splitPipeline([]string{"tail", "-n", "2", "!", "tac"})
	if err != nil {
		t.Fatal(err)
	}
	if want := [][]string{{"tail", "-n", "2"}, {"tac"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("splitPipeline() = %q, want %q", got, want)
	}
	if _, err := splitPipeline([]string{"tac", "!"}); err == nil {
		t.Error("a trailing ! should fail")
	}
}

func TestLeadingFlags(t *testing.T) {
	prefix, rest, verbose := leadingFlags([]string{"-d", ";", "-vv", "--colour", "tail", "-n", "2"})
	if want := []string{"-d", ";", "-vv", "--colour"}; !reflect.DeepEqual(prefix, want) {
		t.Errorf("prefix = %q, want %q", prefix, want)
	}
	if want := []string{"tail", "-n", "2"}; !reflect.DeepEqual(rest, want) {
		t.Errorf("rest = %q, want %q", rest, want)
	}
	if verbose != 2 {
		t.Errorf("verbose = %d, want 2", verbose)
	}
}
