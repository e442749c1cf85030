package common

import (
	"math"
	"reflect"
	"testing"
	"testing/quick"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestVarUintRoundTrip(t *testing.T) {
	condition := func(x uint64) bool {
		buf := WriteVarUint(nil, x)
		got, n := ReadVarUint(buf)
		return got == x && n == len(buf)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{}))
}

func TestReadVarUintTruncated(t *testing.T) {
	buf := WriteVarUint(nil, 1<<40)
	_, n := ReadVarUint(buf[:len(buf)-1])
	require.Zero(t, n)
	_, n = ReadVarUint(nil)
	require.Zero(t, n)
}

func TestFixedSizes(t *testing.T) {
	require.Equal(t, 1, FixedSize(reflect.Bool))
	require.Equal(t, 2, FixedSize(reflect.Int16))
	require.Equal(t, 4, FixedSize(reflect.Float32))
	require.Equal(t, 8, FixedSize(reflect.Uint64))
	require.Equal(t, -1, FixedSize(reflect.String))
	require.False(t, IsFixedKind(reflect.Int))
	require.False(t, IsFixedKind(reflect.Struct))
	require.Equal(t, 8, Alignment(reflect.Float64))
	require.Equal(t, 1, Alignment(reflect.Struct))
}

func TestPutGetFixed(t *testing.T) {
	f := 3.25
	buf := PutFixed(nil, reflect.Float64, unsafe.Pointer(&f))
	require.Len(t, buf, 8)
	var back float64
	GetFixed(buf, reflect.Float64, unsafe.Pointer(&back))
	require.Equal(t, f, back)

	i := int16(-300)
	buf = PutFixed(buf[:0], reflect.Int16, unsafe.Pointer(&i))
	require.Equal(t, []byte{0xd4, 0xfe}, buf)
	var ib int16
	GetFixed(buf, reflect.Int16, unsafe.Pointer(&ib))
	require.Equal(t, i, ib)

	nan := float32(math.NaN())
	buf = PutFixed(buf[:0], reflect.Float32, unsafe.Pointer(&nan))
	var nb float32
	GetFixed(buf, reflect.Float32, unsafe.Pointer(&nb))
	require.True(t, math.IsNaN(float64(nb)))

	b := true
	buf = PutFixed(buf[:0], reflect.Bool, unsafe.Pointer(&b))
	require.Equal(t, []byte{1}, buf)
}

func TestPutFixedPanicsOnVariableKind(t *testing.T) {
	s := "x"
	require.Panics(t, func() { PutFixed(nil, reflect.String, unsafe.Pointer(&s)) })
}
