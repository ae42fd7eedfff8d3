// Package registry maps generator names to the functions that create them.
//
// Generator packages expose a Module whose Register method adds their
// generators to a Registry. The driver calls every module once at start-up,
// in a fixed order, so nothing depends on package initialization order.
// Instances are then created by name with text overrides for their
// configuration values.
package registry

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/vk/kernelgen/generator"
	"github.com/vk/kernelgen/internal/ctxlog"
	"github.com/vk/kernelgen/internal/ident"
)

var (
	ErrDuplicateName = errors.New("generator already registered")
	ErrNotFound      = errors.New("generator not registered")
	ErrInvalidName   = errors.New("invalid generator name")
)

// Error reports a failed registry operation for one name.
type Error struct {
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("registry: generator %q: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewFunc returns a fresh, undeclared generator value.
type NewFunc func() generator.Generator

// Module is implemented by packages that contribute generators.
type Module interface {
	Register(r *Registry)
}

type entry struct {
	newFn       NewFunc
	protocol    generator.Protocol
	wrapperName string
}

// Option configures a registration.
type Option func(*entry)

// WithWrapperName sets the qualified Go type name ("pkg.Type") used when a
// wrapper is emitted for the generator.
func WithWrapperName(qualified string) Option {
	return func(e *entry) { e.wrapperName = qualified }
}

// Registry is a thread-safe name to generator map. The lock is held only
// while the map is read or changed, never while user code runs.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a generator under name. The generator's protocol is checked
// here, so a type implementing both protocols or neither never becomes
// creatable.
func (r *Registry) Register(name string, newFn NewFunc, opts ...Option) error {
	if !ident.Valid(name) {
		return &Error{Name: name, Err: ErrInvalidName}
	}
	proto, err := generator.DetectProtocol(newFn())
	if err != nil {
		return &Error{Name: name, Err: err}
	}
	e := &entry{newFn: newFn, protocol: proto}
	for _, o := range opts {
		o(e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; exists {
		return &Error{Name: name, Err: ErrDuplicateName}
	}
	r.entries[name] = e
	return nil
}

// MustRegister is Register for start-up code, where a failure is a
// programming error. It panics on any error.
func (r *Registry) MustRegister(name string, newFn NewFunc, opts ...Option) {
	if err := r.Register(name, newFn, opts...); err != nil {
		panic(err.Error())
	}
}

// Unregister removes name. It fails with ErrNotFound if name is absent.
func (r *Registry) Unregister(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[name]; !exists {
		return &Error{Name: name, Err: ErrNotFound}
	}
	delete(r.entries, name)
	return nil
}

// Enumerate returns the registered names in sorted order.
func (r *Registry) Enumerate() []string {
	r.mu.Lock()
	names := lo.Keys(r.entries)
	r.mu.Unlock()
	slices.Sort(names)
	return names
}

func (r *Registry) lookup(name string) (*entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, &Error{Name: name, Err: ErrNotFound}
	}
	return e, nil
}

// Protocol returns the protocol of the named generator.
func (r *Registry) Protocol(name string) (generator.Protocol, error) {
	e, err := r.lookup(name)
	if err != nil {
		return 0, err
	}
	return e.protocol, nil
}

// WrapperName returns the qualified wrapper type name registered for name,
// or "" if none was given.
func (r *Registry) WrapperName(name string) (string, error) {
	e, err := r.lookup(name)
	if err != nil {
		return "", err
	}
	return e.wrapperName, nil
}

// Create instantiates the named generator and applies overrides. The
// returned instance is Unbuilt.
func (r *Registry) Create(ctx context.Context, name string, overrides map[string]string) (*generator.Instance, error) {
	e, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Creating generator instance.", "name", name, "overrides", len(overrides))

	inst, err := generator.New(name, e.newFn())
	if err != nil {
		return nil, err
	}
	if err := inst.SetParamValues(overrides); err != nil {
		return nil, err
	}
	return inst, nil
}

// Factory returns a generator.Factory that creates name from r.
func (r *Registry) Factory(name string) generator.Factory {
	return func(overrides map[string]string) (*generator.Instance, error) {
		return r.Create(context.Background(), name, overrides)
	}
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() { defaultReg = New() })
	return defaultReg
}

// Register adds a generator to the process-wide registry.
func Register(name string, newFn NewFunc, opts ...Option) error {
	return Default().Register(name, newFn, opts...)
}

// MustRegister adds a generator to the process-wide registry and panics on
// failure.
func MustRegister(name string, newFn NewFunc, opts ...Option) {
	Default().MustRegister(name, newFn, opts...)
}

func Unregister(name string) error { return Default().Unregister(name) }
func Enumerate() []string          { return Default().Enumerate() }

// Create instantiates a generator from the process-wide registry.
func Create(ctx context.Context, name string, overrides map[string]string) (*generator.Instance, error) {
	return Default().Create(ctx, name, overrides)
}

// Factory returns a generator.Factory backed by the process-wide registry.
// Generated wrappers use it.
func Factory(name string) generator.Factory { return Default().Factory(name) }
