package parser

import (
	"errors"
	"fmt"
)

// ErrSyntax is wrapped by every ParseError caused by malformed source.
var ErrSyntax = errors.New("syntax error")

// ErrModuleNotFound is wrapped by ParseErrors for `mod name;` declarations
// whose file does not exist.
var ErrModuleNotFound = errors.New("module file not found")

// ParseError reports a module that could not be turned into a tree. The module
// is left out of the package; analysis of the remaining modules continues.
type ParseError struct {
	File   string
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.File, e.Line, e.Column, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
