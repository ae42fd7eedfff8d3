// Package param implements configuration values: named, typed settings a
// generator reads while it builds. Values are set from Go or from text,
// checked against their declared width, bounds or enum table, and can emit
// the Go snippets a generated wrapper needs to reproduce them.
package param

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/internal/ident"
	"github.com/vk/kernelgen/pipeline"
	"github.com/vk/kernelgen/target"
)

// EnumEntry is one name and value of an enum table.
type EnumEntry struct {
	Name  string
	Value int
}

// Param is a configuration value.
type Param struct {
	name     string
	kind     Kind
	bits     int
	value    Value
	def      Value
	min, max Value
	enum     []EnumEntry
	schedule bool
	frozen   bool
	err      error
}

// Option adjusts a declaration.
type Option func(*Param)

// Min sets the inclusive lower bound of an arithmetic value.
func Min(v Value) Option { return func(p *Param) { p.min = v } }

// Max sets the inclusive upper bound of an arithmetic value.
func Max(v Value) Option { return func(p *Param) { p.max = v } }

// Range sets both bounds.
func Range(min, max Value) Option {
	return func(p *Param) { p.min, p.max = min, max }
}

// ScheduleStage marks a value that may still be set after generation, right
// before scheduling.
func ScheduleStage() Option { return func(p *Param) { p.schedule = true } }

// NewInt declares a signed integer of 8, 16, 32 or 64 bits.
func NewInt(name string, bits int, def int64, opts ...Option) *Param {
	return declare(name, KindInt, bits, IntValue(def), nil, opts)
}

// NewUint declares an unsigned integer of 8, 16, 32 or 64 bits.
func NewUint(name string, bits int, def uint64, opts ...Option) *Param {
	return declare(name, KindUint, bits, UintValue(def), nil, opts)
}

// NewFloat declares a float of 32 or 64 bits.
func NewFloat(name string, bits int, def float64, opts ...Option) *Param {
	return declare(name, KindFloat, bits, FloatValue(def), nil, opts)
}

func NewBool(name string, def bool, opts ...Option) *Param {
	return declare(name, KindBool, 1, BoolValue(def), nil, opts)
}

// NewEnum declares a value restricted to the names of table.
func NewEnum(name string, def string, table map[string]int, opts ...Option) *Param {
	entries := make([]EnumEntry, 0, len(table))
	for n, v := range table {
		entries = append(entries, EnumEntry{Name: n, Value: v})
	}
	slices.SortFunc(entries, func(a, b EnumEntry) int {
		switch {
		case a.Name < b.Name:
			return -1
		case a.Name > b.Name:
			return 1
		}
		return 0
	})
	return declare(name, KindEnum, 0, EnumValue(def), entries, opts)
}

// NewType declares an element type chosen by name ("uint8", "float32", ...).
func NewType(name string, def elemtype.Type, opts ...Option) *Param {
	return declare(name, KindType, 0, TypeValue(def), nil, opts)
}

func NewTarget(name string, def target.Target, opts ...Option) *Param {
	return declare(name, KindTarget, 0, TargetValue(def), nil, opts)
}

func NewLoopLevel(name string, def pipeline.LoopLevel, opts ...Option) *Param {
	return declare(name, KindLoopLevel, 0, LoopLevelValue(def), nil, opts)
}

func declare(name string, kind Kind, bits int, def Value, enum []EnumEntry, opts []Option) *Param {
	p := &Param{name: name, kind: kind, bits: bits, enum: enum, value: def, def: def}
	for _, o := range opts {
		o(p)
	}
	if err := p.validateDecl(); err != nil {
		p.err = &ValidationError{Param: name, Err: fmt.Errorf("%w: %w", ErrInvalidDecl, err)}
		return p
	}
	v, err := p.check(def)
	if err != nil {
		p.err = err
		return p
	}
	p.value, p.def = v, v
	return p
}

func (p *Param) validateDecl() error {
	if !ident.Valid(p.name) {
		return fmt.Errorf("bad name")
	}
	switch p.kind {
	case KindInt, KindUint:
		if p.bits != 8 && p.bits != 16 && p.bits != 32 && p.bits != 64 {
			return fmt.Errorf("%d bits", p.bits)
		}
	case KindFloat:
		if p.bits != 32 && p.bits != 64 {
			return fmt.Errorf("%d bits", p.bits)
		}
	case KindEnum:
		if len(p.enum) == 0 {
			return errors.New("empty enum table")
		}
		seen := make(map[int]string, len(p.enum))
		for _, e := range p.enum {
			if !ident.Valid(e.Name) {
				return fmt.Errorf("bad enum name %q", e.Name)
			}
			if other, dup := seen[e.Value]; dup {
				return fmt.Errorf("enum names %q and %q share value %d", other, e.Name, e.Value)
			}
			seen[e.Value] = e.Name
		}
	}

	for _, b := range []Value{p.min, p.max} {
		if b == nil {
			continue
		}
		if !p.IsArithmetic() {
			return fmt.Errorf("%s values take no bounds", p.kind)
		}
		if k, _ := kindOf(b); k != p.kind {
			return fmt.Errorf("bound kind %s does not match %s", k, p.kind)
		}
	}
	if p.kind == KindFloat && p.bits == 32 {
		// Values are stored rounded to float32; bounds must be too.
		for _, b := range []*Value{&p.min, &p.max} {
			if *b != nil {
				*b = FloatValue(float32((*b).(FloatValue)))
			}
		}
	}
	if p.min != nil && p.max != nil && compare(p.min, p.max) > 0 {
		return errors.New("min exceeds max")
	}
	return nil
}

// IsArithmetic reports whether p is an integer or float value.
func (p *Param) IsArithmetic() bool {
	return p.kind == KindInt || p.kind == KindUint || p.kind == KindFloat
}

func compare(a, b Value) int {
	switch x := a.(type) {
	case IntValue:
		y := b.(IntValue)
		return cmpOrdered(x, y)
	case UintValue:
		y := b.(UintValue)
		return cmpOrdered(x, y)
	case FloatValue:
		y := b.(FloatValue)
		return cmpOrdered(x, y)
	}
	return 0
}

func cmpOrdered[T int64 | IntValue | UintValue | FloatValue](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// check validates v against the declaration and returns its canonical form.
func (p *Param) check(v Value) (Value, error) {
	k, ok := kindOf(v)
	if !ok || k != p.kind {
		return nil, &ValidationError{Param: p.name, Input: fmt.Sprint(v), Err: fmt.Errorf("%w: want %s", ErrKindMismatch, p.kind)}
	}
	fail := func(err error) (Value, error) {
		return nil, &ValidationError{Param: p.name, Input: format(v, p.bits), Err: err}
	}

	switch x := v.(type) {
	case IntValue:
		lo, hi := elemtype.IntRange(uint8(p.bits))
		if int64(x) < lo || int64(x) > hi {
			return fail(fmt.Errorf("%w: does not fit int%d", ErrOutOfRange, p.bits))
		}
	case UintValue:
		if uint64(x) > elemtype.UIntMax(uint8(p.bits)) {
			return fail(fmt.Errorf("%w: does not fit uint%d", ErrOutOfRange, p.bits))
		}
	case FloatValue:
		f := float64(x)
		if p.bits == 32 {
			if !math.IsInf(f, 0) && !math.IsNaN(f) && math.Abs(f) > math.MaxFloat32 {
				return fail(fmt.Errorf("%w: does not fit float32", ErrOutOfRange))
			}
			v = FloatValue(float32(f))
		}
		if math.IsNaN(f) && (p.min != nil || p.max != nil) {
			return fail(fmt.Errorf("%w: NaN with bounds", ErrOutOfRange))
		}
	case EnumValue:
		if _, ok := p.lookup(string(x)); !ok {
			return fail(ErrUnknownVariant)
		}
	case TypeValue:
		t := elemtype.Type(x)
		if !t.Valid() || t.Code == elemtype.CodeHandle {
			return fail(ErrUnknownVariant)
		}
	case TargetValue:
		t := target.Target(x)
		if err := t.Validate(); err != nil {
			return fail(fmt.Errorf("%w: %w", ErrParseFailure, err))
		}
		v = TargetValue(t.With())
	}

	if p.min != nil && compare(v, p.min) < 0 {
		return fail(fmt.Errorf("%w: below minimum %s", ErrOutOfRange, format(p.min, p.bits)))
	}
	if p.max != nil && compare(v, p.max) > 0 {
		return fail(fmt.Errorf("%w: above maximum %s", ErrOutOfRange, format(p.max, p.bits)))
	}
	return v, nil
}

func (p *Param) lookup(name string) (int, bool) {
	i, ok := slices.BinarySearchFunc(p.enum, name, func(e EnumEntry, n string) int {
		switch {
		case e.Name < n:
			return -1
		case e.Name > n:
			return 1
		}
		return 0
	})
	if !ok {
		return 0, false
	}
	return p.enum[i].Value, true
}

// Set replaces the current value. A rejected value leaves p unchanged.
func (p *Param) Set(v Value) error {
	if p.frozen {
		return fmt.Errorf("param %q: %w", p.name, ErrFrozen)
	}
	canon, err := p.check(v)
	if err != nil {
		return err
	}
	p.value = canon
	return nil
}

// SetFromText parses s with the grammar of the declared kind and sets it.
func (p *Param) SetFromText(s string) error {
	v, err := p.parse(s)
	if err != nil {
		return &ValidationError{Param: p.name, Input: s, Err: err}
	}
	return p.Set(v)
}

func (p *Param) parse(s string) (Value, error) {
	switch p.kind {
	case KindInt:
		x, err := strconv.ParseInt(s, 10, p.bits)
		if err != nil {
			return nil, numError(err)
		}
		return IntValue(x), nil
	case KindUint:
		x, err := strconv.ParseUint(s, 10, p.bits)
		if err != nil {
			return nil, numError(err)
		}
		return UintValue(x), nil
	case KindFloat:
		x, err := strconv.ParseFloat(s, p.bits)
		if err != nil {
			return nil, numError(err)
		}
		return FloatValue(x), nil
	case KindBool:
		switch s {
		case "true":
			return BoolValue(true), nil
		case "false":
			return BoolValue(false), nil
		}
		return nil, ErrParseFailure
	case KindEnum:
		if _, ok := p.lookup(s); !ok {
			return nil, ErrUnknownVariant
		}
		return EnumValue(s), nil
	case KindType:
		t, err := elemtype.Parse(s)
		if err != nil {
			return nil, ErrUnknownVariant
		}
		return TypeValue(t), nil
	case KindTarget:
		t, err := target.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailure, err)
		}
		return TargetValue(t), nil
	case KindLoopLevel:
		l, err := pipeline.ParseLoopLevel(s)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParseFailure, err)
		}
		return LoopLevelValue(l), nil
	}
	return nil, ErrKindMismatch
}

func numError(err error) error {
	if errors.Is(err, strconv.ErrRange) {
		return ErrOutOfRange
	}
	return ErrParseFailure
}

// Text formats the current value so that SetFromText reproduces it.
func (p *Param) Text() string { return format(p.value, p.bits) }

func format(v Value, bits int) string {
	switch x := v.(type) {
	case IntValue:
		return strconv.FormatInt(int64(x), 10)
	case UintValue:
		return strconv.FormatUint(uint64(x), 10)
	case FloatValue:
		if bits != 32 {
			bits = 64
		}
		return strconv.FormatFloat(float64(x), 'g', -1, bits)
	case BoolValue:
		return strconv.FormatBool(bool(x))
	case EnumValue:
		return string(x)
	case TypeValue:
		return elemtype.Type(x).String()
	case TargetValue:
		return target.Target(x).String()
	case LoopLevelValue:
		return pipeline.LoopLevel(x).String()
	}
	return fmt.Sprint(v)
}

func (p *Param) Name() string { return p.name }
func (p *Param) Kind() Kind   { return p.kind }

// Bits is the declared width of an arithmetic value, 1 for bools and 0
// otherwise.
func (p *Param) Bits() int { return p.bits }

// Value returns the current value.
func (p *Param) Value() Value { return p.value }

// Default returns the declared default.
func (p *Param) Default() Value { return p.def }

// Bounds returns the declared bounds. Absent bounds are nil.
func (p *Param) Bounds() (min, max Value) { return p.min, p.max }

// Enum returns the enum table sorted by name.
func (p *Param) Enum() []EnumEntry { return slices.Clone(p.enum) }

// IsScheduleStage reports whether p may be set between generation and
// scheduling.
func (p *Param) IsScheduleStage() bool { return p.schedule }

// Err returns the declaration error, if any.
func (p *Param) Err() error { return p.err }

// Freeze rejects every later Set.
func (p *Param) Freeze()      { p.frozen = true }
func (p *Param) Frozen() bool { return p.frozen }

// Clone returns an unfrozen copy.
func (p *Param) Clone() *Param {
	c := *p
	c.enum = slices.Clone(p.enum)
	c.frozen = false
	return &c
}

func (p *Param) mustBe(kinds ...Kind) {
	if !slices.Contains(kinds, p.kind) {
		panic(fmt.Sprintf("param %q is %s, not %s", p.name, p.kind, kinds[0]))
	}
}

// Int returns an integer value. It panics for non-integer kinds.
func (p *Param) Int() int64 {
	p.mustBe(KindInt, KindUint)
	if u, ok := p.value.(UintValue); ok {
		return int64(u)
	}
	return int64(p.value.(IntValue))
}

func (p *Param) Uint() uint64 {
	p.mustBe(KindUint)
	return uint64(p.value.(UintValue))
}

func (p *Param) Float() float64 {
	p.mustBe(KindFloat)
	return float64(p.value.(FloatValue))
}

func (p *Param) Bool() bool {
	p.mustBe(KindBool)
	return bool(p.value.(BoolValue))
}

// EnumName returns the name of the current enum value.
func (p *Param) EnumName() string {
	p.mustBe(KindEnum)
	return string(p.value.(EnumValue))
}

// EnumInt returns the table value of the current enum name.
func (p *Param) EnumInt() int {
	p.mustBe(KindEnum)
	v, _ := p.lookup(string(p.value.(EnumValue)))
	return v
}

func (p *Param) ElemType() elemtype.Type {
	p.mustBe(KindType)
	return elemtype.Type(p.value.(TypeValue))
}

func (p *Param) Target() target.Target {
	p.mustBe(KindTarget)
	return target.Target(p.value.(TargetValue)).With()
}

func (p *Param) LoopLevel() pipeline.LoopLevel {
	p.mustBe(KindLoopLevel)
	return pipeline.LoopLevel(p.value.(LoopLevelValue))
}
