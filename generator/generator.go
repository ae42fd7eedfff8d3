// Package generator drives one configured instantiation of a generator
// through its build.
//
// A generator type declares its configuration values and arguments in
// Declare and then implements exactly one of two protocols:
//
//   - OneShot: Build returns the finished pipeline in one call.
//   - Phased: Generate defines the outputs, then Schedule places them.
//     Schedule-stage configuration values may be set between the two.
//
// An Instance moves through Unbuilt, ParamsApplied and Built. Any failed
// step moves it to Failed, and no pipeline is ever exposed from a failed
// instance.
package generator

import (
	"github.com/vk/kernelgen/pipeline"
)

// Generator is implemented by every generator type.
type Generator interface {
	Declare(d *Declarer)
}

// OneShot generators build their pipeline in a single call.
type OneShot interface {
	Generator
	Build(b *BuildContext) (*pipeline.Pipeline, error)
}

// Phased generators define their outputs in Generate and schedule them in
// Schedule.
type Phased interface {
	Generator
	Generate(b *BuildContext) error
	Schedule(b *BuildContext) error
}

type (
	builder   interface{ Build(*BuildContext) (*pipeline.Pipeline, error) }
	generater interface{ Generate(*BuildContext) error }
	scheduler interface{ Schedule(*BuildContext) error }
)

// Protocol is the construction protocol of a generator type.
type Protocol uint8

const (
	ProtocolOneShot Protocol = iota + 1
	ProtocolPhased
)

func (p Protocol) String() string {
	switch p {
	case ProtocolOneShot:
		return "one-shot"
	case ProtocolPhased:
		return "phased"
	}
	return "none"
}

// DetectProtocol decides which protocol g follows. A type with a Build
// method and either phase method is rejected, as is a type with neither a
// Build method nor both phase methods.
func DetectProtocol(g Generator) (Protocol, error) {
	_, b := g.(builder)
	_, gen := g.(generater)
	_, sch := g.(scheduler)
	switch {
	case b && (gen || sch):
		return 0, ErrAmbiguousProtocol
	case b:
		return ProtocolOneShot, nil
	case gen && sch:
		return ProtocolPhased, nil
	}
	return 0, ErrNoProtocol
}

// State is the lifecycle state of an Instance.
type State uint8

const (
	StateUnbuilt State = iota
	StateParamsApplied
	StateBuilt
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnbuilt:
		return "unbuilt"
	case StateParamsApplied:
		return "params_applied"
	case StateBuilt:
		return "built"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}
