// Package genrecerrors is the error taxonomy for the grammar engine: fatal
// errors that abort processing immediately versus diagnostics that carry a
// source position for file:line reporting.
//
// Grounded on two teacher shapes: internal/tqerrors' fatal/wrap split, and
// the icterrors.NewSyntaxErrorFromToken(...).FullMessage() pattern used
// throughout internal/ictiobus (ll1.go, fishi.go) for token-anchored syntax
// errors. genrec.c's own err(fatal, level, fmt, ...) dispatcher is the
// ultimate source: a diagnostic either terminates the run (fatal) or is
// printed and processing continues (non-fatal, used only for -v notices).
package genrecerrors

import "fmt"

// Position is a source location a diagnostic can be anchored to: a grammar
// file line, or a line/column within a target input stream.
type Position struct {
	File string
	Line int
	Col  int
}

func (p Position) String() string {
	if p.File == "" {
		return fmt.Sprintf("%d", p.Line)
	}
	if p.Col > 0 {
		return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
	}
	return fmt.Sprintf("%s:%d", p.File, p.Line)
}

// GenrecError is the positioned diagnostic the recognizer returns (other
// packages return their own error values): it knows whether it is fatal (processing cannot continue) and can render the
// "prog_name: file:line: error: message" form spec.md §7 requires.
type GenrecError struct {
	ProgName string
	Pos      Position
	Level    string // "error", "warning", "note"
	Msg      string
	Wrapped  error
	fatal    bool
}

// Error implements the error interface, returning just the message without
// the positional prefix; use FullMessage for the CLI-facing form.
func (e *GenrecError) Error() string {
	return e.Msg
}

// Unwrap allows errors.Is/errors.As to see through to a wrapped cause.
func (e *GenrecError) Unwrap() error {
	return e.Wrapped
}

// Fatal reports whether this error should abort the run.
func (e *GenrecError) Fatal() bool {
	return e.fatal
}

// FullMessage renders the complete "prog_name: file:line: error: message"
// diagnostic line spec.md §7 specifies.
func (e *GenrecError) FullMessage() string {
	prog := e.ProgName
	if prog == "" {
		prog = "genrec"
	}
	level := e.Level
	if level == "" {
		level = "error"
	}
	if e.Pos.Line == 0 && e.Pos.File == "" {
		return fmt.Sprintf("%s: %s: %s", prog, level, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s: %s", prog, e.Pos, level, e.Msg)
}

// NewFatal builds a fatal GenrecError not anchored to any source position,
// matching genrec.c's err(1, level, ...) calls made before any file has been
// opened (e.g. CLI argument errors).
func NewFatal(progName, msg string, args ...interface{}) *GenrecError {
	return &GenrecError{
		ProgName: progName,
		Level:    "error",
		Msg:      fmt.Sprintf(msg, args...),
		fatal:    true,
	}
}

// NewSyntaxError builds a fatal, position-anchored diagnostic, the
// grammar-file and target-input analogue of icterrors' token-anchored
// syntax errors.
func NewSyntaxError(progName string, pos Position, msg string, args ...interface{}) *GenrecError {
	return &GenrecError{
		ProgName: progName,
		Pos:      pos,
		Level:    "error",
		Msg:      fmt.Sprintf(msg, args...),
		fatal:    true,
	}
}

// NewWarning builds a non-fatal, position-anchored diagnostic: processing
// continues after it is printed. genrec.c uses this level for informational
// -v notices, never for anything that affects the grammar analysis itself.
func NewWarning(progName string, pos Position, msg string, args ...interface{}) *GenrecError {
	return &GenrecError{
		ProgName: progName,
		Pos:      pos,
		Level:    "warning",
		Msg:      fmt.Sprintf(msg, args...),
		fatal:    false,
	}
}

// Wrap attaches progName/position context to an existing error, preserving
// it for errors.Unwrap while giving it a FullMessage rendering.
func Wrap(progName string, pos Position, fatal bool, err error) *GenrecError {
	return &GenrecError{
		ProgName: progName,
		Pos:      pos,
		Level:    "error",
		Msg:      err.Error(),
		Wrapped:  err,
		fatal:    fatal,
	}
}
