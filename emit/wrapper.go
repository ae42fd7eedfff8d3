package emit

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/vk/kernelgen/argument"
	"github.com/vk/kernelgen/generator"
	"github.com/vk/kernelgen/internal/ident"
	"github.com/vk/kernelgen/param"
	"golang.org/x/tools/imports"
)

// wrapperImports is every import generated code may use. Unused ones are
// dropped when the source is formatted.
var wrapperImports = []string{
	"context",
	"math",
	"strconv",
	"github.com/vk/kernelgen/elemtype",
	"github.com/vk/kernelgen/generator",
	"github.com/vk/kernelgen/pipeline",
	"github.com/vk/kernelgen/target",
}

// Names used by the constructor body; inputs are renamed around them.
var constructorNames = []string{"ctx", "gctx", "factory", "params", "inst", "err", "w"}

// SplitQualifiedName splits "pkg.Type" into its package and type. Longer
// names such as "a.b.Type" use the last namespace as the package.
func SplitQualifiedName(qualified string) (pkg, typ string, err error) {
	parts := strings.Split(qualified, ".")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("%w: %q is not of the form pkg.Type", ErrInvalidName, qualified)
	}
	for _, p := range parts {
		if !ident.Valid(p) {
			return "", "", fmt.Errorf("%w: %q", ErrInvalidName, qualified)
		}
	}
	return parts[len(parts)-2], parts[len(parts)-1], nil
}

type wrapperParam struct {
	p        *param.Param
	field    string
	enumType string
}

// WrapperSource returns a Go source file declaring a wrapper type for inst.
// The wrapper's constructor creates a fresh instance through a
// generator.Factory, binds its inputs positionally and exposes its outputs
// as fields, so the generator can be used inside another one.
func WrapperSource(inst *generator.Instance, qualified string) (string, error) {
	const op = "wrapper"
	if err := notBuilt(op, inst); err != nil {
		return "", err
	}
	pkg, typ, err := SplitQualifiedName(qualified)
	if err != nil {
		return "", &Error{Op: op, Err: err}
	}

	var genParams, schedParams []wrapperParam
	for _, p := range inst.Params() {
		if p.Name() == generator.TargetParam {
			continue
		}
		wp := wrapperParam{p: p, field: ident.Exported(p.Name())}
		if p.Kind() == param.KindEnum {
			wp.enumType = typ + wp.field
		}
		if p.IsScheduleStage() {
			schedParams = append(schedParams, wp)
		} else {
			genParams = append(genParams, wp)
		}
	}

	if err := checkWrapperNames(inst, append(append([]wrapperParam{}, genParams...), schedParams...)); err != nil {
		return "", &Error{Op: op, Err: err}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "// Code generated by kernelgen from generator %q. DO NOT EDIT.\n\n", inst.Name())
	fmt.Fprintf(&sb, "package %s\n\n", pkg)
	sb.WriteString("import (\n")
	for _, imp := range wrapperImports {
		fmt.Fprintf(&sb, "\t%q\n", imp)
	}
	sb.WriteString(")\n\n")

	for _, wp := range append(append([]wrapperParam{}, genParams...), schedParams...) {
		if decls := wp.p.TypeDecls(wp.enumType); decls != "" {
			sb.WriteString(decls)
			sb.WriteString("\n")
		}
	}

	writeParamsStruct(&sb, typ+"GeneratorParams", "set before the generator runs", genParams)
	writeParamsStruct(&sb, typ+"ScheduleParams", "applied just before scheduling", schedParams)
	writeWrapper(&sb, inst, typ)

	out, err := imports.Process(strings.ToLower(typ)+".go", []byte(sb.String()), &imports.Options{
		Comments:  true,
		TabIndent: true,
		TabWidth:  8,
	})
	if err != nil {
		return "", &Error{Op: op, Err: fmt.Errorf("formatting wrapper for %q: %w", inst.Name(), err)}
	}
	return string(out), nil
}

// checkWrapperNames rejects declarations whose Go spellings collide, such
// as params "foo_bar" and "fooBar" which would both become field FooBar.
func checkWrapperNames(inst *generator.Instance, params []wrapperParam) error {
	groups := []struct {
		what  string
		names []string
		conv  func(string) string
	}{
		{"param", lo.Map(params, func(wp wrapperParam, _ int) string { return wp.p.Name() }), ident.Exported},
		{"output", lo.Map(inst.Outputs(), func(d *argument.Descriptor, _ int) string { return d.Name() }), outputField},
		{"input", lo.Map(inst.Inputs(), func(d *argument.Descriptor, _ int) string { return d.Name() }), func(n string) string {
			return ident.Unexported(n, constructorNames...)
		}},
	}
	for _, g := range groups {
		seen := make(map[string]string, len(g.names))
		for _, n := range g.names {
			goName := g.conv(n)
			if prev, dup := seen[goName]; dup {
				return fmt.Errorf("%w: %s names %q and %q both become %s", ErrInvalidName, g.what, prev, n, goName)
			}
			seen[goName] = n
		}
	}
	return nil
}

func writeParamsStruct(sb *strings.Builder, name, what string, params []wrapperParam) {
	fmt.Fprintf(sb, "// %s holds the configuration values %s.\n", name, what)
	fmt.Fprintf(sb, "type %s struct {\n", name)
	for _, wp := range params {
		fmt.Fprintf(sb, "\t%s %s\n", wp.field, wp.p.GoType(wp.enumType))
	}
	sb.WriteString("}\n\n")

	fmt.Fprintf(sb, "// Default%s returns the declared defaults.\n", name)
	fmt.Fprintf(sb, "func Default%s() %s {\n\treturn %s{\n", name, name, name)
	for _, wp := range params {
		fmt.Fprintf(sb, "\t\t%s: %s,\n", wp.field, wp.p.DefaultLiteral(wp.enumType))
	}
	sb.WriteString("\t}\n}\n\n")

	fmt.Fprintf(sb, "func (p %s) overrides() map[string]string {\n\treturn map[string]string{\n", name)
	for _, wp := range params {
		fmt.Fprintf(sb, "\t\t%q: %s,\n", wp.p.Name(), wp.p.ToStringExpr("p."+wp.field))
	}
	sb.WriteString("\t}\n}\n\n")
}

// outputField names the wrapper field of an output, avoiding the wrapper's
// own methods.
func outputField(name string) string {
	f := ident.Exported(name)
	switch f {
	case "Schedule", "Pipeline", "Instance":
		f += "Output"
	}
	return f
}

func writeWrapper(sb *strings.Builder, inst *generator.Instance, typ string) {
	fmt.Fprintf(sb, "// %s composes generator %q into a larger pipeline.\n", typ, inst.Name())
	fmt.Fprintf(sb, "type %s struct {\n\tinst *generator.Instance\n\n", typ)
	for _, d := range inst.Outputs() {
		ft := "*pipeline.Func"
		if d.IsArray() {
			ft = "[]*pipeline.Func"
		}
		fmt.Fprintf(sb, "\t%s %s\n", outputField(d.Name()), ft)
	}
	sb.WriteString("}\n\n")

	type in struct {
		arg   string
		array bool
	}
	var ins []in
	var sig []string
	for _, d := range inst.Inputs() {
		a := ident.Unexported(d.Name(), constructorNames...)
		ins = append(ins, in{arg: a, array: d.IsArray()})
		if d.IsArray() {
			sig = append(sig, a+" []pipeline.Handle")
		} else {
			sig = append(sig, a+" pipeline.Handle")
		}
	}

	fmt.Fprintf(sb, "// New%s creates and generates an instance for gctx's target. The\n", typ)
	sb.WriteString("// inputs are taken in declaration order.\n")
	fmt.Fprintf(sb, "func New%s(ctx context.Context, gctx generator.Context, factory generator.Factory, params %sGeneratorParams", typ, typ)
	for _, s := range sig {
		sb.WriteString(", " + s)
	}
	fmt.Fprintf(sb, ") (*%s, error) {\n", typ)
	sb.WriteString("\tinst, err := generator.NewWrapped(ctx, gctx, factory, params.overrides(), [][]pipeline.Handle{\n")
	for _, i := range ins {
		if i.array {
			fmt.Fprintf(sb, "\t\t%s,\n", i.arg)
		} else {
			fmt.Fprintf(sb, "\t\t{%s},\n", i.arg)
		}
	}
	sb.WriteString("\t})\n\tif err != nil {\n\t\treturn nil, err\n\t}\n")
	fmt.Fprintf(sb, "\tw := &%s{inst: inst}\n", typ)
	for _, d := range inst.Outputs() {
		if d.IsArray() {
			fmt.Fprintf(sb, "\tw.%s = inst.OutputFuncs(%q)\n", outputField(d.Name()), d.Name())
		} else {
			fmt.Fprintf(sb, "\tw.%s = inst.OutputFuncs(%q)[0]\n", outputField(d.Name()), d.Name())
		}
	}
	sb.WriteString("\treturn w, nil\n}\n\n")

	sb.WriteString("// Schedule applies the schedule-stage values and schedules the outputs.\n")
	fmt.Fprintf(sb, "func (w *%s) Schedule(ctx context.Context, params %sScheduleParams) error {\n", typ, typ)
	sb.WriteString("\treturn w.inst.ScheduleWith(ctx, params.overrides())\n}\n\n")

	sb.WriteString("// Pipeline returns the built pipeline, or nil before Schedule.\n")
	fmt.Fprintf(sb, "func (w *%s) Pipeline() *pipeline.Pipeline { return w.inst.Pipeline() }\n\n", typ)
	fmt.Fprintf(sb, "func (w *%s) Instance() *generator.Instance { return w.inst }\n", typ)
}
