package param

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfRange       = errors.New("value out of range")
	ErrParseFailure     = errors.New("cannot parse value")
	ErrUnknownVariant   = errors.New("unknown enum variant")
	ErrKindMismatch     = errors.New("value kind mismatch")
	ErrUnknownParameter = errors.New("unknown configuration value")
	ErrInvalidDecl      = errors.New("invalid declaration")
	ErrFrozen           = errors.New("configuration value is frozen")
)

// ValidationError reports a rejected value. The configuration value is left
// unchanged.
type ValidationError struct {
	Param string
	Input string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("param %q: %v", e.Param, e.Err)
	}
	return fmt.Sprintf("param %q: value %q: %v", e.Param, e.Input, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
