package pipeline

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidLoopLevel is wrapped by ParseLoopLevel failures.
var ErrInvalidLoopLevel = errors.New("invalid loop level")

type levelKind uint8

const (
	levelUndefined levelKind = iota
	levelRoot
	levelInline
	levelAt
)

// LoopLevel names a point in the loop nest: the root, inline, a variable of
// a function, or undefined. The zero value is undefined.
type LoopLevel struct {
	kind levelKind
	fn   string
	v    string
}

func Root() LoopLevel   { return LoopLevel{kind: levelRoot} }
func Inline() LoopLevel { return LoopLevel{kind: levelInline} }

// At is the loop over variable v of function fn.
func At(fn, v string) LoopLevel { return LoopLevel{kind: levelAt, fn: fn, v: v} }

// ParseLoopLevel accepts "undefined", "root", "inline" or "func.var".
func ParseLoopLevel(s string) (LoopLevel, error) {
	switch s {
	case "undefined":
		return LoopLevel{}, nil
	case "root":
		return Root(), nil
	case "inline":
		return Inline(), nil
	}
	fn, v, ok := strings.Cut(s, ".")
	if !ok || !isIdent(fn) || !isIdent(v) {
		return LoopLevel{}, fmt.Errorf("%w: %q", ErrInvalidLoopLevel, s)
	}
	return At(fn, v), nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

func (l LoopLevel) IsUndefined() bool { return l.kind == levelUndefined }
func (l LoopLevel) IsRoot() bool      { return l.kind == levelRoot }
func (l LoopLevel) IsInline() bool    { return l.kind == levelInline }

// Func and Var return the components of a func.var level.
func (l LoopLevel) Func() string { return l.fn }
func (l LoopLevel) Var() string  { return l.v }

func (l LoopLevel) String() string {
	switch l.kind {
	case levelRoot:
		return "root"
	case levelInline:
		return "inline"
	case levelAt:
		return l.fn + "." + l.v
	}
	return "undefined"
}

// GoString renders l as a Go expression for generated code.
func (l LoopLevel) GoString() string {
	switch l.kind {
	case levelRoot:
		return "pipeline.Root()"
	case levelInline:
		return "pipeline.Inline()"
	case levelAt:
		return fmt.Sprintf("pipeline.At(%q, %q)", l.fn, l.v)
	}
	return "pipeline.LoopLevel{}"
}
