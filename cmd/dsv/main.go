// Command dsv reads delimiter-separated text and writes it back, optionally
// transformed, aligned and coloured.
//
// Usage:
//
//	dsv [flags] [command]
//	dsv pipeline tail -n 5 ! tac ! pretty
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/shapestone/shape-dsv/internal/config"
	"github.com/shapestone/shape-dsv/internal/tty"
	"github.com/shapestone/shape-dsv/pkg/dsv"
)

var logger = commonlog.GetLogger("dsv.cli")

// app is the process-wide state shared by every command tree.
type app struct {
	env      dsv.Env
	cfg      *config.Config
	stdin    io.Reader
	stdout   io.Writer
	stdinTTY bool
}

func main() {
	// Writes to a closed stdout then fail with EPIPE, which run treats as a
	// normal end, instead of killing the process.
	signal.Ignore(syscall.SIGPIPE)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "dsv:", err)
		os.Exit(1)
	}
	a := &app{
		env:      tty.Detect(),
		cfg:      cfg,
		stdin:    os.Stdin,
		stdout:   os.Stdout,
		stdinTTY: tty.StdinIsTerminal(),
	}

	root := newRootCmd(a, nil)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "dsv:", err)
		os.Exit(1)
	}
}

// run wires the steps to a Writer on standard output and processes standard
// input. A closed output pipe is not an error.
func (a *app) run(steps ...dsv.Step) error {
	p, err := dsv.NewPipeline(a.env, steps...)
	if err != nil {
		return err
	}
	out := dsv.NewOutput(a.stdout, a.env.StdoutTTY)
	p.Connect(dsv.NewWriter(out))

	err = p.Process(a.stdin)
	err = errors.Join(err, out.Close())
	if errors.Is(err, syscall.EPIPE) {
		logger.Debugf("output closed early")
		return nil
	}
	return err
}
