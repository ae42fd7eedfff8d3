package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/vk/kernelgen/emit"
	"github.com/vk/kernelgen/internal/buildfile"
	"github.com/vk/kernelgen/internal/ctxlog"
	"github.com/vk/kernelgen/target"
	"golang.org/x/sync/errgroup"
)

// defaultEmit is used when a request names no artifact kinds.
var defaultEmit = []string{emit.KindMetadata, emit.KindHeader}

// Request describes one generator run.
type Request struct {
	Generator string
	// FunctionName defaults to Generator.
	FunctionName string
	OutputDir    string
	// Target is a target string; "" and "host" both mean the build host.
	Target string
	Emit   []string
	// WrapperName overrides the name registered with the generator.
	WrapperName string
	Params      map[string]string
}

// Generate creates the requested generator, builds it and writes its
// artifacts. It returns the paths written.
func (a *App) Generate(ctx context.Context, req Request) ([]string, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if req.Generator == "" {
		return nil, errors.New("no generator name given")
	}
	if req.OutputDir == "" {
		return nil, fmt.Errorf("generator %q: no output directory given", req.Generator)
	}
	fn := req.FunctionName
	if fn == "" {
		fn = req.Generator
	}
	kinds := req.Emit
	if len(kinds) == 0 {
		kinds = defaultEmit
	}
	emitSet, err := emit.ParseKinds(kinds)
	if err != nil {
		return nil, err
	}

	inst, err := a.registry.Create(ctx, req.Generator, maps.Clone(req.Params))
	if err != nil {
		return nil, err
	}
	if req.Target != "" {
		t, err := target.Parse(req.Target)
		if err != nil {
			return nil, err
		}
		if err := inst.SetTarget(t); err != nil {
			return nil, err
		}
	}

	wrapperName := req.WrapperName
	if wrapperName == "" {
		if wrapperName, err = a.registry.WrapperName(req.Generator); err != nil {
			return nil, err
		}
	}

	a.logger.Debug("Building generator.", "generator", req.Generator, "function", fn, "target", inst.Target().String())
	if err := inst.Build(ctx); err != nil {
		return nil, err
	}

	paths, err := emit.WriteFiles(ctx, inst, req.OutputDir, fn, emit.Options{
		Emit:        emitSet,
		WrapperName: wrapperName,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("Generator finished.", "generator", req.Generator, "function", fn, "files", len(paths))
	return paths, nil
}

// RunBuildFile runs every invocation of the build files under paths, at most
// WorkerCount at a time. It stops at the first failure and returns the
// paths written in invocation order.
func (a *App) RunBuildFile(ctx context.Context, paths ...string) ([]string, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	invs, err := buildfile.Load(ctx, paths...)
	if err != nil {
		return nil, err
	}
	if len(invs) == 0 {
		a.logger.Warn("No generator blocks found, nothing to build.")
		return nil, nil
	}

	a.logger.Info("Starting build.", "invocations", len(invs), "workers", a.config.WorkerCount)
	written := make([][]string, len(invs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.config.WorkerCount)
	for k, inv := range invs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := a.Generate(gctx, Request{
				Generator:    inv.Generator,
				FunctionName: inv.FunctionName,
				OutputDir:    inv.OutputDir,
				Target:       inv.Target,
				Emit:         inv.Emit,
				WrapperName:  inv.WrapperName,
				Params:       inv.Params,
			})
			if err != nil {
				return fmt.Errorf("%s: generator %q: %w", inv.File, inv.Generator, err)
			}
			written[k] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a.logger.Info("Build finished.")
	return slices.Concat(written...), nil
}

// List writes one line per registered generator: its name, protocol and
// wrapper type.
func (a *App) List(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	for _, name := range a.registry.Enumerate() {
		proto, err := a.registry.Protocol(name)
		if err != nil {
			return err
		}
		wrapper, err := a.registry.WrapperName(name)
		if err != nil {
			return err
		}
		if wrapper == "" {
			wrapper = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", name, proto, wrapper)
	}
	return tw.Flush()
}
