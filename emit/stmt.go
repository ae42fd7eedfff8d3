package emit

import (
	"fmt"
	"strings"

	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/generator"
)

// Stmt dumps the arguments, definitions and recorded schedule of a built
// instance.
func Stmt(inst *generator.Instance) (string, error) {
	if err := notBuilt("stmt", inst); err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "// generator %s, target %s\n", inst.Name(), inst.Target())
	for _, p := range inst.Params() {
		fmt.Fprintf(&sb, "// param %s = %s\n", p.Name(), p.Text())
	}
	for _, d := range append(inst.Inputs(), inst.Outputs()...) {
		fmt.Fprintf(&sb, "// %s %s: %v x%d\n", argLabel(d), strings.Join(d.ElementNames(), ", "), d.Types(), d.Dimensions())
	}
	sb.WriteString("\n")
	sb.WriteString(inst.Pipeline().String())
	return sb.String(), nil
}

func argLabel(d *argument.Descriptor) string {
	if d.IsArray() {
		return d.Kind().String() + "[]"
	}
	return d.Kind().String()
}
