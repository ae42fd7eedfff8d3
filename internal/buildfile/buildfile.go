// Package buildfile loads generator invocations from HCL build files.
//
// A build file holds any number of generator blocks:
//
//	generator "wraptest" {
//	  function_name = "wraptest"
//	  output_dir    = "out"
//	  target        = "host"
//	  emit          = ["metadata", "wrapper"]
//	  wrapper_name  = "wrapns.Wrapper"
//	  params = {
//	    array_count = 3
//	  }
//	}
//
// The block label names the registered generator. Parameter values may be
// written as HCL strings, numbers or bools and are handed on as the text
// overrides the registry expects.
package buildfile

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/kernelgen/internal/ctxlog"
	"github.com/vk/kernelgen/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Invocation is one generator run requested by a build file.
type Invocation struct {
	Generator    string
	FunctionName string
	OutputDir    string
	Target       string
	Emit         []string
	WrapperName  string
	Params       map[string]string
	// File is the build file the invocation came from.
	File string
}

// fileRoot decodes all top-level blocks of a build file. Anything else is
// rejected by the decoder.
type fileRoot struct {
	Generators []*generatorBlock `hcl:"generator,block"`
}

type generatorBlock struct {
	Name         string    `hcl:"name,label"`
	FunctionName *string   `hcl:"function_name,optional"`
	OutputDir    string    `hcl:"output_dir"`
	Target       *string   `hcl:"target,optional"`
	Emit         []string  `hcl:"emit,optional"`
	WrapperName  *string   `hcl:"wrapper_name,optional"`
	Params       cty.Value `hcl:"params,optional"`
}

// Load parses every .hcl file under paths and returns their invocations in
// file order, then block order. Relative output directories are resolved
// against the directory of their build file.
func Load(ctx context.Context, paths ...string) ([]Invocation, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build file loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(".hcl", paths...)
	if err != nil {
		return nil, err
	}
	logger.Debug("Discovered build files.", "count", len(files))

	parser := hclparse.NewParser()
	var out []Invocation
	seen := make(map[string]string)

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse build file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode build file %s: %w", file, diags)
		}

		for _, b := range root.Generators {
			inv, err := translate(file, b)
			if err != nil {
				return nil, err
			}
			key := filepath.Join(inv.OutputDir, inv.FunctionName)
			if prev, dup := seen[key]; dup {
				return nil, fmt.Errorf("build file %s: function %q in %s is also produced by %s", file, inv.FunctionName, inv.OutputDir, prev)
			}
			seen[key] = file
			out = append(out, inv)
		}
	}

	logger.Debug("Build file loading complete.", "invocations", len(out))
	return out, nil
}

func translate(file string, b *generatorBlock) (Invocation, error) {
	inv := Invocation{
		Generator:    b.Name,
		FunctionName: b.Name,
		OutputDir:    b.OutputDir,
		Target:       "host",
		Emit:         slices.Clone(b.Emit),
		File:         file,
	}
	if b.FunctionName != nil {
		inv.FunctionName = *b.FunctionName
	}
	if b.Target != nil {
		inv.Target = *b.Target
	}
	if b.WrapperName != nil {
		inv.WrapperName = *b.WrapperName
	}
	if !filepath.IsAbs(inv.OutputDir) {
		inv.OutputDir = filepath.Join(filepath.Dir(file), inv.OutputDir)
	}

	params, err := paramText(b.Params)
	if err != nil {
		return Invocation{}, fmt.Errorf("build file %s: generator %q: %w", file, b.Name, err)
	}
	inv.Params = params
	return inv, nil
}

// paramText converts the params object to text overrides. Each attribute
// must be a string, number or bool.
func paramText(v cty.Value) (map[string]string, error) {
	out := make(map[string]string)
	if v.IsNull() || !v.IsKnown() {
		return out, nil
	}
	t := v.Type()
	if !t.IsObjectType() && !t.IsMapType() {
		return nil, fmt.Errorf("params must be an object, got %s", t.FriendlyName())
	}
	for name, attr := range v.AsValueMap() {
		if !attr.Type().IsPrimitiveType() {
			return nil, fmt.Errorf("param %q must be a string, number or bool, got %s", name, attr.Type().FriendlyName())
		}
		if attr.IsNull() {
			return nil, fmt.Errorf("param %q is null", name)
		}
		s, err := convert.Convert(attr, cty.String)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", name, err)
		}
		out[name] = s.AsString()
	}
	return out, nil
}
