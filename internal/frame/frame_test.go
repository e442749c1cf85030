package frame

import (
	"bytes"
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundTrip(t *testing.T) {
	h := Header{Magic: MagicV1, Version: VersionV1, Flags: FlagZstd, Kind: uint8(reflect.Float64), Dims: []uint64{4, 2, 3}}
	buf := EncodeHeader(nil, h)
	buf = append(buf, 0xAA)
	got, n, err := ParseHeader(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.Equal(t, len(buf)-1, n)
}

func TestHeaderScalar(t *testing.T) {
	h := Header{Magic: MagicV1, Version: VersionV1, Kind: uint8(reflect.Uint8), Dims: []uint64{}}
	got, _, err := ParseHeader(EncodeHeader(nil, h))
	require.NoError(t, err)
	require.Empty(t, got.Dims)
}

func TestParseHeaderErrors(t *testing.T) {
	_, _, err := ParseHeader([]byte{1, 2})
	require.ErrorIs(t, err, ErrShort)

	buf := EncodeHeader(nil, Header{Magic: 0xdeadbeef, Version: VersionV1, Dims: []uint64{1}})
	_, _, err = ParseHeader(buf)
	require.ErrorIs(t, err, ErrMagic)

	buf = EncodeHeader(nil, Header{Magic: MagicV1, Version: 9, Dims: []uint64{1}})
	_, _, err = ParseHeader(buf)
	require.ErrorIs(t, err, ErrVersion)

	buf = EncodeHeader(nil, Header{Magic: MagicV1, Version: VersionV1, Flags: 0x8000, Dims: []uint64{1}})
	_, _, err = ParseHeader(buf)
	require.ErrorIs(t, err, ErrHeader)
	buf = EncodeHeader(nil, Header{Magic: MagicV1, Version: VersionV1, Flags: FlagZstd | 0x0002, Dims: []uint64{1}})
	_, _, err = ParseHeader(buf)
	require.ErrorIs(t, err, ErrHeader)

	buf = EncodeHeader(nil, Header{Magic: MagicV1, Version: VersionV1, Dims: []uint64{1 << 20, 2}})
	_, _, err = ParseHeader(buf[:len(buf)-2])
	require.ErrorIs(t, err, ErrHeader)
}

func TestSealOpen(t *testing.T) {
	buf := EncodeHeader(nil, Header{Magic: MagicV1, Version: VersionV1, Dims: []uint64{2}})
	buf = append(buf, 1, 2, 3, 4)
	sealed := Seal(append([]byte(nil), buf...))
	body, err := Open(sealed)
	require.NoError(t, err)
	require.Equal(t, buf, body)

	sealed[len(sealed)-6] ^= 0xFF
	_, err = Open(sealed)
	require.ErrorIs(t, err, ErrChecksum)

	_, err = Open([]byte{1})
	require.ErrorIs(t, err, ErrShort)
}

func TestCompressRoundTrip(t *testing.T) {
	raw := bytes.Repeat([]byte("nested array payload "), 512)
	comp, err := Compress(nil, raw)
	require.NoError(t, err)
	require.Less(t, len(comp), len(raw))
	back, err := Decompress(comp, len(raw))
	require.NoError(t, err)
	require.Equal(t, raw, back)

	_, err = Decompress([]byte("not zstd"), 0)
	require.Error(t, err)
}
