package argument

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/kernelgen/elemtype"
	"github.com/vk/kernelgen/pipeline"
)

// fakeResolver serves configuration values from maps.
type fakeResolver struct {
	types map[string]elemtype.Type
	ints  map[string]int
}

var errUnknown = errors.New("unknown")

func (r fakeResolver) ResolveType(name string) (elemtype.Type, error) {
	t, ok := r.types[name]
	if !ok {
		return elemtype.Type{}, fmt.Errorf("%q: %w", name, errUnknown)
	}
	return t, nil
}

func (r fakeResolver) ResolveInt(name string) (int, error) {
	n, ok := r.ints[name]
	if !ok {
		return 0, fmt.Errorf("%q: %w", name, errUnknown)
	}
	return n, nil
}

func TestBind_SingleBuffer(t *testing.T) {
	t.Parallel()

	d := Input("input", T(elemtype.UInt(8)), N(2))
	require.NoError(t, d.Err())
	assert.False(t, d.IsArray())

	f := pipeline.NewInputFunc("input", 2, elemtype.UInt(8))
	require.NoError(t, d.Bind([]pipeline.Handle{f}, fakeResolver{}))

	assert.True(t, d.Bound())
	assert.Equal(t, 1, d.Count())
	assert.Same(t, f, d.Func(0))
	assert.Same(t, f, d.At(0))
	assert.Empty(t, d.Exprs(), "only one of funcs and exprs is populated")
	assert.Equal(t, []string{"input"}, d.ElementNames())

	err := d.Bind([]pipeline.Handle{f}, fakeResolver{})
	require.ErrorIs(t, err, ErrAlreadyBound)
}

func TestBind_ArraySizedByParam(t *testing.T) {
	t.Parallel()

	r := fakeResolver{
		types: map[string]elemtype.Type{"input_type": elemtype.Float(32)},
		ints:  map[string]int{"array_count": 3},
	}
	d := Input("pixels", TypeOf("input_type"), N(3), Array(NOf("array_count")))
	assert.Equal(t, []string{"input_type"}, d.TypeParams())
	assert.Equal(t, []string{"array_count"}, d.IntParams())

	n, err := d.ResolvedCount(r)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hs, err := d.Placeholders(r)
	require.NoError(t, err)
	require.Len(t, hs, 3)
	assert.Equal(t, "pixels_2", hs[2].Name())

	// The count is read at bind time, not at declaration time.
	r.ints["array_count"] = 2
	err = d.Bind(hs, r)
	require.ErrorIs(t, err, ErrArityMismatch)
	assert.False(t, d.Bound())

	require.NoError(t, d.Bind(hs[:2], r))
	assert.Equal(t, []string{"pixels_0", "pixels_1"}, d.ElementNames())
	assert.Equal(t, []elemtype.Type{elemtype.Float(32)}, d.Types())
	assert.Equal(t, 3, d.Dimensions())
}

func TestPlaceholders_ArraySizeOutOfRange(t *testing.T) {
	t.Parallel()

	testCases := map[string]struct {
		count   int
		wantErr bool
	}{
		"at limit":    {count: MaxArraySize},
		"above limit": {count: MaxArraySize + 1, wantErr: true},
		"huge":        {count: 1 << 40, wantErr: true},
		"negative":    {count: -1, wantErr: true},
	}
	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			r := fakeResolver{ints: map[string]int{"array_count": tc.count}}
			d := Scalar("gains", T(elemtype.Float(32)), Array(NOf("array_count")))

			// --- Act ---
			hs, err := d.Placeholders(r)

			// --- Assert ---
			if !tc.wantErr {
				require.NoError(t, err)
				assert.Len(t, hs, tc.count)
				return
			}
			var be *BindError
			require.ErrorAs(t, err, &be)
			assert.Equal(t, "gains", be.Arg)
			assert.ErrorIs(t, err, ErrArityMismatch)
			assert.ErrorIs(t, d.Bind(nil, r), ErrArityMismatch)
		})
	}
}

func TestBind_TypeMismatch(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name   string
		desc   *Descriptor
		handle pipeline.Handle
	}{
		{"element type", Input("in", T(elemtype.UInt(8)), N(2)), pipeline.NewInputFunc("in", 2, elemtype.UInt(16))},
		{"dimensions", Input("in", T(elemtype.UInt(8)), N(2)), pipeline.NewInputFunc("in", 3, elemtype.UInt(8))},
		{"scalar given func", Scalar("count", T(elemtype.Int(32))), pipeline.NewFunc("count", 0, elemtype.Int(32))},
		{"buffer given scalar", Output("sum", Types(T(elemtype.Float(32))), N(0)), pipeline.NewExpr("sum", elemtype.Float(32))},
		{"tuple component", Output("out", Types(T(elemtype.Int(32)), T(elemtype.Float(64))), N(1)),
			pipeline.NewFunc("out", 1, elemtype.Int(32), elemtype.Float(32))},
		{"tuple width", Output("out", Types(T(elemtype.Int(32)), T(elemtype.Float(64))), N(1)),
			pipeline.NewFunc("out", 1, elemtype.Int(32))},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.desc.Bind([]pipeline.Handle{tc.handle}, fakeResolver{})
			require.ErrorIs(t, err, ErrTypeMismatch)

			var berr *BindError
			require.True(t, errors.As(err, &berr))
			assert.Equal(t, tc.desc.Name(), berr.Arg)
			assert.False(t, tc.desc.Bound())
		})
	}
}

func TestBind_ScalarPushesDefaultAndBounds(t *testing.T) {
	t.Parallel()

	d := Scalar("gain", T(elemtype.Float(32)), Default(1.0), Bounds(0.0, 4))
	e := pipeline.NewExpr("gain", elemtype.Float(32))
	require.NoError(t, d.Bind([]pipeline.Handle{e}, fakeResolver{}))

	require.NotNil(t, e.Default())
	assert.Equal(t, 1.0, e.Default().Float())
	assert.Equal(t, 0.0, e.Min().Float())
	assert.Equal(t, 4.0, e.Max().Float())
	assert.True(t, elemtype.EqualPtr(d.DefaultValue(), e.Default()))
	assert.Same(t, e, d.Expr(0))
	assert.Empty(t, d.Funcs())
}

func TestBind_ScalarWithoutDefaultStaysAbsent(t *testing.T) {
	t.Parallel()

	d := Scalar("count", T(elemtype.Int(32)))
	e := pipeline.NewExpr("count", elemtype.Int(32))
	require.NoError(t, d.Bind([]pipeline.Handle{e}, fakeResolver{}))
	assert.Nil(t, d.DefaultValue())
	assert.Nil(t, e.Default())

	zero := Scalar("zero", T(elemtype.Int(32)), Default(0))
	ez := pipeline.NewExpr("zero", elemtype.Int(32))
	require.NoError(t, zero.Bind([]pipeline.Handle{ez}, fakeResolver{}))
	require.NotNil(t, zero.DefaultValue())
	assert.Equal(t, int64(0), zero.DefaultValue().Int())
	assert.False(t, elemtype.EqualPtr(d.DefaultValue(), zero.DefaultValue()))
}

func TestBind_DefaultNotRepresentable(t *testing.T) {
	t.Parallel()
	d := Scalar("level", T(elemtype.UInt(8)), Default(300))
	err := d.Bind([]pipeline.Handle{pipeline.NewExpr("level", elemtype.UInt(8))}, fakeResolver{})
	require.ErrorIs(t, err, ErrTypeMismatch)
	require.ErrorIs(t, err, elemtype.ErrNotRepresentable)
}

func TestBind_UnresolvedReference(t *testing.T) {
	t.Parallel()
	d := Input("in", TypeOf("missing"), N(1))
	err := d.Bind([]pipeline.Handle{pipeline.NewInputFunc("in", 1, elemtype.UInt(8))}, fakeResolver{})
	require.ErrorIs(t, err, errUnknown)
}

func TestDeclarationErrors(t *testing.T) {
	t.Parallel()
	assert.ErrorIs(t, Input("in", T(elemtype.UInt(8)), N(1), Default(1)).Err(), ErrInvalidDecl)
	assert.ErrorIs(t, Output("out", nil, N(1)).Err(), ErrInvalidDecl)
	assert.ErrorIs(t, Output("out", Types(T(elemtype.UInt(8))), N(-1)).Err(), ErrInvalidDecl)
	assert.ErrorIs(t, Input("in", T(elemtype.UInt(8)), N(1), Array(N(-2))).Err(), ErrInvalidDecl)

	bad := Input("in", T(elemtype.UInt(8)), N(1), Default(1))
	require.ErrorIs(t, bad.Bind(nil, fakeResolver{}), ErrInvalidDecl)
}

func TestKind(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "input_scalar", InputScalar.String())
	assert.Equal(t, Kind(1), InputBuffer)
	assert.Equal(t, Kind(2), OutputBuffer)
	assert.True(t, InputBuffer.IsInput())
	assert.False(t, OutputBuffer.IsInput())
}
