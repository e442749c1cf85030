package boxarray

import (
	"reflect"
	"testing"
	"testing/quick"
	"unsafe"

	"github.com/rawbytedev/boxarray/internal/frame"
	"github.com/stretchr/testify/require"
)

func cube() *Box[[4][2][3]float64, float64] {
	return Generate[[4][2][3]float64](func(p Index) float64 {
		return float64(p.At(0)) + float64(p.At(1))/10 + float64(p.At(2))/100
	})
}

func TestMarshalRoundTrip(t *testing.T) {
	for name, opts := range map[string]CodecOptions{
		"plain":      {},
		"zstd":       {Compress: true},
		"unsafe":     {UnsafePrimitives: true},
		"unsafe-chk": {UnsafePrimitives: true, CheckAlignment: true},
		"all":        {Compress: true, UnsafePrimitives: true, CheckAlignment: true},
	} {
		t.Run(name, func(t *testing.T) {
			b := cube()
			data, err := Marshal(b, opts)
			require.NoError(t, err)
			res, err := Unmarshal[[4][2][3]float64, float64](data)
			require.NoError(t, err)
			require.Equal(t, *b.Get(), *res.Get())
		})
	}
}

func TestMarshalEncodingsAgree(t *testing.T) {
	b := Broadcast[[3][3]uint32](uint32(0x01020304))
	safe, err := Marshal(b, CodecOptions{})
	require.NoError(t, err)
	fast, err := Marshal(b, CodecOptions{UnsafePrimitives: true})
	require.NoError(t, err)
	require.Equal(t, safe, fast)
}

func TestMarshalAllKinds(t *testing.T) {
	condition := func(a [2][3]int16, u [4]uint64, f [2][2]float32, flags [5]bool, s [3]int8) bool {
		return roundTrips[[2][3]int16, int16](t, &a) &&
			roundTrips[[4]uint64, uint64](t, &u) &&
			roundTrips[[2][2]float32, float32](t, &f) &&
			roundTrips[[5]bool, bool](t, &flags) &&
			roundTrips[[3]int8, int8](t, &s)
	}
	require.NoError(t, quick.Check(condition, &quick.Config{MaxCount: 50}))
}

func roundTrips[A any, T comparable](t *testing.T, src *A) bool {
	t.Helper()
	l, err := LayoutOf[A, T]()
	require.NoError(t, err)
	flat := unsafe.Slice((*T)(unsafe.Pointer(src)), l.Leaves)
	b := Generate[A, T](func(p Index) T { return flat[l.Shape.Offset(p)] })
	data, err := Marshal(b, CodecOptions{Compress: true})
	require.NoError(t, err)
	res, err := Unmarshal[A, T](data)
	require.NoError(t, err)
	for i, v := range res.Leaves() {
		if v != flat[i] {
			return false
		}
	}
	return true
}

func TestUnmarshalMismatch(t *testing.T) {
	data, err := Marshal(cube(), CodecOptions{})
	require.NoError(t, err)

	_, err = Unmarshal[[4][2][3]float32, float32](data)
	require.ErrorIs(t, err, ErrKindMismatch)
	_, err = Unmarshal[[4][3][2]float64, float64](data)
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = Unmarshal[[24]float64, float64](data)
	require.ErrorIs(t, err, ErrShapeMismatch)
	_, err = Unmarshal[[4]string, string](data)
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = Unmarshal[[4]float64, int](data)
	require.ErrorIs(t, err, ErrLeafMismatch)
}

func TestUnmarshalCorrupt(t *testing.T) {
	data, err := Marshal(cube(), CodecOptions{Compress: true})
	require.NoError(t, err)

	flipped := append([]byte(nil), data...)
	flipped[len(flipped)/2] ^= 0x40
	_, err = Unmarshal[[4][2][3]float64, float64](flipped)
	require.ErrorIs(t, err, ErrCorrupt)

	_, err = Unmarshal[[4][2][3]float64, float64](data[:8])
	require.ErrorIs(t, err, ErrCorrupt)
	_, err = Unmarshal[[4][2][3]float64, float64](nil)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestMarshalUnsupported(t *testing.T) {
	_, err := Marshal(Broadcast[[2]string]("x"), CodecOptions{})
	require.ErrorIs(t, err, ErrUnsupported)
	_, err = Marshal(Broadcast[[2]int](1), CodecOptions{})
	require.ErrorIs(t, err, ErrUnsupported)

	b := Broadcast[[2]int32](int32(1))
	b.Release()
	_, err = Marshal(b, CodecOptions{})
	require.ErrorIs(t, err, ErrReleased)
}

func TestMarshalZeroLeaves(t *testing.T) {
	b := Broadcast[[0][4]float64](1.0)
	data, err := Marshal(b, CodecOptions{Compress: true})
	require.NoError(t, err)
	res, err := Unmarshal[[0][4]float64, float64](data)
	require.NoError(t, err)
	require.Zero(t, res.Len())

	info, err := Inspect(data)
	require.NoError(t, err)
	require.False(t, info.Compressed)
	require.Equal(t, Shape{0, 4}, info.Shape)
}

func TestUnmarshalSingleAllocation(t *testing.T) {
	data, err := Marshal(cube(), CodecOptions{Compress: true})
	require.NoError(t, err)
	c, a := counted()
	res, err := UnmarshalWith[[4][2][3]float64, float64](c, data)
	require.NoError(t, err)
	require.Equal(t, 1, a.requests)
	require.Equal(t, cube().At(3, 1, 2), res.At(3, 1, 2))
}

func TestInspect(t *testing.T) {
	data, err := Marshal(Broadcast[[64][64]uint8](uint8(9)), CodecOptions{Compress: true})
	require.NoError(t, err)
	info, err := Inspect(data)
	require.NoError(t, err)
	require.Equal(t, Shape{64, 64}, info.Shape)
	require.Equal(t, "uint8", info.LeafKind)
	require.Equal(t, 4096, info.Leaves)
	require.Equal(t, 4096, info.PayloadBytes)
	require.True(t, info.Compressed)
	require.Less(t, info.StoredBytes, info.PayloadBytes)

	_, err = Inspect([]byte("garbage!garbage!"))
	require.ErrorIs(t, err, ErrCorrupt)
}

func sealed(h frame.Header, payload []byte) []byte {
	buf := frame.EncodeHeader(nil, h)
	return frame.Seal(append(buf, payload...))
}

func TestInspectPayloadOverflow(t *testing.T) {
	data := sealed(frame.Header{
		Magic:   frame.MagicV1,
		Version: frame.VersionV1,
		Kind:    uint8(reflect.Float64),
		Dims:    []uint64{1 << 61, 2},
	}, nil)
	_, err := Inspect(data)
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestUnmarshalUnknownFlags(t *testing.T) {
	payload := make([]byte, 6*4)
	data := sealed(frame.Header{
		Magic:   frame.MagicV1,
		Version: frame.VersionV1,
		Flags:   0x8000,
		Kind:    uint8(reflect.Int32),
		Dims:    []uint64{2, 3},
	}, payload)
	_, err := Unmarshal[[2][3]int32, int32](data)
	require.ErrorIs(t, err, ErrCorrupt)
	_, err = Inspect(data)
	require.ErrorIs(t, err, ErrCorrupt)
}

func FuzzUnmarshal(f *testing.F) {
	seed, _ := Marshal(Broadcast[[2][3]int32](int32(5)), CodecOptions{})
	f.Add(seed)
	zseed, _ := Marshal(Broadcast[[2][3]int32](int32(5)), CodecOptions{Compress: true})
	f.Add(zseed)
	f.Add([]byte{})
	f.Fuzz(func(t *testing.T, data []byte) {
		b, err := Unmarshal[[2][3]int32, int32](data)
		if err != nil {
			return
		}
		require.Equal(t, 6, b.Len())
		again, err := Marshal(b, CodecOptions{})
		require.NoError(t, err)
		_, err = Unmarshal[[2][3]int32, int32](again)
		require.NoError(t, err)
	})
}
