package dsv

import (
	"errors"
	"fmt"
)

// OptionsError represents an invalid option configuration.
type OptionsError struct {
	Field   string
	Message string
}

func (e *OptionsError) Error() string {
	return "dsv: invalid " + e.Field + ": " + e.Message
}

// SeparatorError reports an input field separator expression that does not
// compile as a regular expression.
type SeparatorError struct {
	// Expr is the expression as given by the user.
	Expr string
	// Err is the underlying regexp error.
	Err error
}

// Error returns the expression together with the compile error.
func (e *SeparatorError) Error() string {
	return fmt.Sprintf("dsv: bad field separator %q: %v", e.Expr, e.Err)
}

// Unwrap returns the underlying error.
func (e *SeparatorError) Unwrap() error {
	return e.Err
}

var (
	// ErrEmptyPipeline is returned when a pipeline is built without stages.
	ErrEmptyPipeline = errors.New("dsv: pipeline has no stages")

	// ErrNotConnected is returned when a stage emits before Connect was called.
	ErrNotConnected = errors.New("dsv: stage is not connected")

	// ErrClosed is returned when writing to an Output after Close.
	ErrClosed = errors.New("dsv: output is closed")
)
