package pipeline

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/vk/kernelgen/target"
)

// Pipeline is the finished product of a build: the output functions of one
// generator instance.
type Pipeline struct {
	outputs []*Func
}

// New creates a pipeline over the given outputs.
func New(outputs ...*Func) *Pipeline {
	return &Pipeline{outputs: slices.Clone(outputs)}
}

// Outputs returns the output functions in order.
func (p *Pipeline) Outputs() []*Func { return slices.Clone(p.outputs) }

// String dumps every output with its definitions and schedule.
func (p *Pipeline) String() string {
	var sb strings.Builder
	for _, f := range p.outputs {
		types := make([]string, len(f.types))
		for i, t := range f.types {
			types[i] = t.String()
		}
		fmt.Fprintf(&sb, "func %s(%d) -> (%s) {\n", f.name, f.dims, strings.Join(types, ", "))
		for _, d := range f.defs {
			fmt.Fprintf(&sb, "  %s\n", d)
		}
		for _, s := range f.schedule {
			fmt.Fprintf(&sb, "  schedule %s\n", s)
		}
		sb.WriteString("}\n")
	}
	return sb.String()
}

// Artifact is one file produced by a Backend.
type Artifact struct {
	Ext  string
	Data []byte
}

// Backend compiles a finished pipeline into machine artifacts. The core
// never looks inside the result.
type Backend interface {
	Compile(ctx context.Context, p *Pipeline, t target.Target, functionName string) ([]Artifact, error)
}
