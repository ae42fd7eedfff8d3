package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
	"github.com/vk/kernelgen/generator"
	"github.com/vk/kernelgen/internal/ctxlog"
	"github.com/vk/kernelgen/pipeline"
)

// Artifact kinds selectable in Options.
const (
	KindMetadata = "metadata"
	KindBinary   = "binary"
	KindHeader   = "header"
	KindWrapper  = "wrapper"
	KindStmt     = "stmt"
)

// Kinds lists every artifact kind in the order files are produced.
var Kinds = []string{KindMetadata, KindBinary, KindHeader, KindWrapper, KindStmt}

var defaultExtensions = map[string]string{
	KindMetadata: ".json",
	KindBinary:   ".meta",
	KindHeader:   ".h",
	KindWrapper:  ".go",
	KindStmt:     ".stmt",
}

// Options selects the artifacts WriteFiles produces.
type Options struct {
	Emit map[string]bool
	// Extensions replaces the default file extension of a kind.
	Extensions map[string]string
	// WrapperName is the qualified "pkg.Type" of the wrapper.
	WrapperName string
	// Backend, when set, compiles the pipeline and its artifacts are
	// written alongside.
	Backend pipeline.Backend
}

// ParseKinds builds the Emit set from a list of kind names.
func ParseKinds(kinds []string) (map[string]bool, error) {
	set := make(map[string]bool, len(kinds))
	for _, k := range kinds {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if !lo.Contains(Kinds, k) {
			return nil, fmt.Errorf("unknown emit kind %q, want one of %s", k, strings.Join(Kinds, ", "))
		}
		set[k] = true
	}
	return set, nil
}

func (o Options) ext(kind string) string {
	if e, ok := o.Extensions[kind]; ok {
		return e
	}
	return defaultExtensions[kind]
}

type file struct {
	path string
	data []byte
}

// WriteFiles writes the selected artifacts of inst, compiled as function fn,
// into dir and returns the paths written. Every artifact is produced before
// any file is written, so a failure leaves dir untouched.
func WriteFiles(ctx context.Context, inst *generator.Instance, dir, fn string, opts Options) ([]string, error) {
	const op = "write"
	md, err := BuildMetadata(inst, fn)
	if err != nil {
		return nil, err
	}

	var files []file
	add := func(kind string, data []byte) {
		files = append(files, file{path: filepath.Join(dir, fn+opts.ext(kind)), data: data})
	}
	for _, kind := range Kinds {
		if !opts.Emit[kind] {
			continue
		}
		switch kind {
		case KindMetadata:
			data, err := json.MarshalIndent(md, "", "  ")
			if err != nil {
				return nil, &Error{Op: op, Err: err}
			}
			add(kind, append(data, '\n'))
		case KindBinary:
			data, err := md.MarshalBinary()
			if err != nil {
				return nil, err
			}
			add(kind, data)
		case KindHeader:
			add(kind, []byte(Header(md)))
		case KindWrapper:
			if opts.WrapperName == "" {
				return nil, &Error{Op: op, Err: fmt.Errorf("%w: wrapper requested without a wrapper name", ErrInvalidName)}
			}
			src, err := WrapperSource(inst, opts.WrapperName)
			if err != nil {
				return nil, err
			}
			add(kind, []byte(src))
		case KindStmt:
			s, err := Stmt(inst)
			if err != nil {
				return nil, err
			}
			add(kind, []byte(s))
		}
	}
	if opts.Backend != nil {
		arts, err := opts.Backend.Compile(ctx, inst.Pipeline(), inst.Target(), fn)
		if err != nil {
			return nil, &Error{Op: op, Err: fmt.Errorf("backend: %w", err)}
		}
		for _, a := range arts {
			files = append(files, file{path: filepath.Join(dir, fn+a.Ext), data: a.Data})
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, &Error{Op: op, Err: err}
	}
	logger := ctxlog.FromContext(ctx)
	paths := make([]string, 0, len(files))
	for _, f := range files {
		if err := os.WriteFile(f.path, f.data, 0o644); err != nil {
			return paths, &Error{Op: op, Err: err}
		}
		logger.Debug("Wrote artifact.", "generator", inst.Name(), "path", f.path, "bytes", len(f.data))
		paths = append(paths, f.path)
	}
	return paths, nil
}
