// Package tty inspects the terminal once at start-up.
package tty

import (
	"os"

	"golang.org/x/term"

	"github.com/shapestone/shape-dsv/pkg/dsv"
)

var (
	isTerminal = term.IsTerminal
	getSize    = term.GetSize
)

// Detect describes the terminal standard output goes to.
func Detect() dsv.Env {
	return detect(os.Stdout, os.Getenv)
}

// StdinIsTerminal reports whether standard input is interactive.
func StdinIsTerminal() bool {
	return isTerminal(int(os.Stdin.Fd()))
}

func detect(out *os.File, getenv func(string) string) dsv.Env {
	env := dsv.Env{NoColor: getenv("NO_COLOR") != ""}
	fd := int(out.Fd())
	if !isTerminal(fd) {
		return env
	}
	env.StdoutTTY = true
	if w, h, err := getSize(fd); err == nil {
		env.Width, env.Height = w, h
	}
	return env
}
