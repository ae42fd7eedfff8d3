package generator

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfOrder        = errors.New("called out of order")
	ErrDoubleInvocation  = errors.New("called twice")
	ErrFrozenParameter   = errors.New("configuration value is frozen")
	ErrProtocolMismatch  = errors.New("not part of this generator's protocol")
	ErrUndefinedOutput   = errors.New("output left undefined")
	ErrFailed            = errors.New("instance failed an earlier build step")
	ErrAmbiguousProtocol = errors.New("generator implements both Build and Generate/Schedule")
	ErrNoProtocol        = errors.New("generator implements neither Build nor Generate/Schedule")
)

// LifecycleError reports a call the instance's state does not allow, or a
// failed build step.
type LifecycleError struct {
	Generator string
	Op        string
	Err       error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("generator %q: %s: %v", e.Generator, e.Op, e.Err)
}

func (e *LifecycleError) Unwrap() error { return e.Err }

var (
	ErrDeclarationOrder = errors.New("configuration values must be declared before arguments")
	ErrDuplicateName    = errors.New("name already declared")
	ErrInvalidName      = errors.New("invalid name")
	ErrUnknownReference = errors.New("reference to an undeclared configuration value")
)

// DeclarationError reports a malformed generator declaration. It is
// returned by New before any build step runs.
type DeclarationError struct {
	Generator string
	Name      string
	Err       error
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("generator %q: declaration of %q: %v", e.Generator, e.Name, e.Err)
}

func (e *DeclarationError) Unwrap() error { return e.Err }
