package dsv

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Output is the destination a Writer writes to: either the given writer or
// the standard input of a pager subprocess whose output goes to that writer.
// It is opened on the first write. Close must be called on every exit path.
type Output struct {
	dst   io.Writer
	tty   bool
	pager []string

	bw      *bufio.Writer
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	started bool
	closed  bool
}

// NewOutput creates an Output. When tty is set every row is flushed as soon
// as it is written.
func NewOutput(dst io.Writer, tty bool) *Output {
	return &Output{dst: dst, tty: tty}
}

// UsePager makes the output go through the given pager command line. It has
// no effect once the output is open.
func (o *Output) UsePager(command string) {
	if o.started {
		return
	}
	o.pager = strings.Fields(command)
}

// Open starts the destination. header tells a less pager to keep the first
// line on screen. Open is called implicitly by the first Write.
func (o *Output) Open(header bool) error {
	if o.closed {
		return ErrClosed
	}
	if o.started {
		return nil
	}
	o.started = true

	if len(o.pager) == 0 {
		o.bw = bufio.NewWriter(o.dst)
		return nil
	}

	args := append([]string(nil), o.pager[1:]...)
	if header && filepath.Base(o.pager[0]) == "less" {
		args = append(args, "--header=1")
	}
	cmd := exec.Command(o.pager[0], args...)
	cmd.Stdout = o.dst
	cmd.Stderr = os.Stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("dsv: pager: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("dsv: start pager %q: %w", o.pager[0], err)
	}
	logger.Debugf("pager started: %s %s", o.pager[0], strings.Join(args, " "))
	o.cmd = cmd
	o.stdin = stdin
	o.bw = bufio.NewWriter(stdin)
	return nil
}

// Write implements io.Writer.
func (o *Output) Write(p []byte) (int, error) {
	if err := o.Open(false); err != nil {
		return 0, err
	}
	n, err := o.bw.Write(p)
	if err != nil {
		return n, err
	}
	if o.tty {
		err = o.bw.Flush()
	}
	return n, err
}

// Flush writes buffered data to the destination.
func (o *Output) Flush() error {
	if o.bw == nil || o.closed {
		return nil
	}
	return o.bw.Flush()
}

// Close flushes the output and, when paging, closes the pager's input and
// waits for it to exit. Calling Close again does nothing.
func (o *Output) Close() error {
	if o.closed {
		return nil
	}
	err := o.Flush()
	o.closed = true
	if o.cmd != nil {
		err = errors.Join(err, o.stdin.Close(), o.cmd.Wait())
	}
	return err
}
