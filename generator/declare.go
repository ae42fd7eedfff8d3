package generator

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/internal/ident"
	"github.com/vk/kernelgen/param"
)

// TargetParam is the name of the configuration value every instance
// declares for its target.
const TargetParam = "target"

// Declarer collects the configuration values and arguments of a generator.
// Configuration values come first; an argument may only refer to values
// already declared. The first error is kept and reported by New.
type Declarer struct {
	generator   string
	params      []*param.Param
	inputs      []*argument.Descriptor
	outputs     []*argument.Descriptor
	names       map[string]struct{}
	userContext bool
	argsStarted bool
	err         error
}

func newDeclarer(generator string) *Declarer {
	return &Declarer{generator: generator, names: make(map[string]struct{})}
}

func (d *Declarer) fail(name string, err error) {
	if d.err == nil {
		d.err = &DeclarationError{Generator: d.generator, Name: name, Err: err}
	}
}

func (d *Declarer) claim(name string) bool {
	if !ident.Valid(name) {
		d.fail(name, ErrInvalidName)
		return false
	}
	if _, dup := d.names[name]; dup {
		d.fail(name, ErrDuplicateName)
		return false
	}
	d.names[name] = struct{}{}
	return true
}

// Param declares a configuration value and returns it so the generator can
// keep it in a field.
func (d *Declarer) Param(p *param.Param) *param.Param {
	if d.argsStarted {
		d.fail(p.Name(), ErrDeclarationOrder)
		return p
	}
	if err := p.Err(); err != nil {
		d.fail(p.Name(), err)
		return p
	}
	if d.claim(p.Name()) {
		d.params = append(d.params, p)
	}
	return p
}

// Input declares a scalar or buffer input.
func (d *Declarer) Input(a *argument.Descriptor) *argument.Descriptor {
	if !a.Kind().IsInput() {
		d.fail(a.Name(), fmt.Errorf("%w: %s declared as input", argument.ErrInvalidDecl, a.Kind()))
		return a
	}
	if d.arg(a) {
		d.inputs = append(d.inputs, a)
	}
	return a
}

// Output declares a buffer output.
func (d *Declarer) Output(a *argument.Descriptor) *argument.Descriptor {
	if a.Kind() != argument.OutputBuffer {
		d.fail(a.Name(), fmt.Errorf("%w: %s declared as output", argument.ErrInvalidDecl, a.Kind()))
		return a
	}
	if d.arg(a) {
		d.outputs = append(d.outputs, a)
	}
	return a
}

// UserContext adds the implicit user context handle as the first argument
// of the compiled function.
func (d *Declarer) UserContext() { d.userContext = true }

func (d *Declarer) arg(a *argument.Descriptor) bool {
	d.argsStarted = true
	if err := a.Err(); err != nil {
		d.fail(a.Name(), err)
		return false
	}
	for _, ref := range a.TypeParams() {
		if !d.refers(a.Name(), ref, param.KindType) {
			return false
		}
	}
	for _, ref := range a.IntParams() {
		if !d.refers(a.Name(), ref, param.KindInt, param.KindUint) {
			return false
		}
	}
	if !d.claim(a.Name()) {
		return false
	}
	for _, b := range slices.Concat(d.inputs, d.outputs) {
		if flattensTo(b, a.Name()) || flattensTo(a, b.Name()) {
			d.fail(a.Name(), fmt.Errorf("%w: collides with the flattened names of %q", ErrDuplicateName, b.Name()))
			return false
		}
	}
	return true
}

// flattensTo reports whether name may be one of the element names of d
// once array elements and tuple components are spelled name_i or name_i_j.
func flattensTo(d *argument.Descriptor, name string) bool {
	if !d.IsArray() && !d.IsTuple() {
		return false
	}
	rest, ok := strings.CutPrefix(name, d.Name()+"_")
	if !ok {
		return false
	}
	for _, part := range strings.Split(rest, "_") {
		if part == "" || strings.Trim(part, "0123456789") != "" {
			return false
		}
	}
	return true
}

func (d *Declarer) refers(arg, ref string, kinds ...param.Kind) bool {
	for _, p := range d.params {
		if p.Name() != ref {
			continue
		}
		for _, k := range kinds {
			if p.Kind() == k {
				return true
			}
		}
		d.fail(arg, fmt.Errorf("%w: %q is %s", param.ErrKindMismatch, ref, p.Kind()))
		return false
	}
	d.fail(arg, fmt.Errorf("%w: %q", ErrUnknownReference, ref))
	return false
}
