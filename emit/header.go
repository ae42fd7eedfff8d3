package emit

import (
	"fmt"
	"strings"

	"github.com/vk/kernelgen/argument"
)

// Header returns a C header declaring the compiled function described by
// md, its argv entry point and its metadata accessor. Buffer arguments are
// passed as opaque buffer pointers.
func Header(md *Metadata) string {
	guard := "KERNELGEN_" + strings.ToUpper(md.Name) + "_H"

	var sb strings.Builder
	fmt.Fprintf(&sb, "// Code generated by kernelgen for target %s. DO NOT EDIT.\n\n", md.Target)
	fmt.Fprintf(&sb, "#ifndef %s\n#define %s\n\n", guard, guard)
	sb.WriteString("#include <stdbool.h>\n#include <stdint.h>\n\n")
	sb.WriteString("#ifdef __cplusplus\nextern \"C\" {\n#endif\n\n")
	sb.WriteString("struct kernelgen_buffer_t;\nstruct kernelgen_filter_metadata_t;\n\n")

	params := make([]string, len(md.Arguments))
	for i, a := range md.Arguments {
		params[i] = cParam(a)
	}
	if len(params) == 0 {
		params = []string{"void"}
	}
	fmt.Fprintf(&sb, "int %s(%s);\n\n", md.Name, strings.Join(params, ",\n    "))
	fmt.Fprintf(&sb, "int %s_argv(void **args);\n\n", md.Name)
	fmt.Fprintf(&sb, "const struct kernelgen_filter_metadata_t *%s_metadata(void);\n\n", md.Name)

	sb.WriteString("#ifdef __cplusplus\n}  // extern \"C\"\n#endif\n\n")
	fmt.Fprintf(&sb, "#endif  // %s\n", guard)
	return sb.String()
}

func cParam(a Argument) string {
	name := strings.ReplaceAll(a.Name, ".", "_")
	switch {
	case a.Name == UserContextName:
		return "void const *" + name
	case a.Kind == argument.InputScalar:
		return a.Type().CType() + " " + name
	}
	return "struct kernelgen_buffer_t *" + name
}
