package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/rawbytedev/boxarray/internal/common"
)

const (
	MagicV1   = 0x42584131 // "BXA1"
	VersionV1 = 1

	FlagZstd = 0x0001 // payload is a zstd stream

	knownFlags = FlagZstd

	// magic(4) + version(2) + flags(2) + kind(1)
	fixedHeaderSize = 9
	crcSize         = 4
	maxRank         = 64
)

var (
	ErrShort    = errors.New("frame: buffer too short")
	ErrMagic    = errors.New("frame: bad magic")
	ErrVersion  = errors.New("frame: unsupported version")
	ErrChecksum = errors.New("frame: crc mismatch")
	ErrHeader   = errors.New("frame: malformed header")
)

// Header describes one snapshot. Dims are outermost first.
type Header struct {
	Magic   uint32
	Version uint16
	Flags   uint16
	Kind    uint8 // reflect.Kind of the leaf
	Dims    []uint64
}

// EncodeHeader appends h to buf.
func EncodeHeader(buf []byte, h Header) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, h.Magic)
	buf = binary.LittleEndian.AppendUint16(buf, h.Version)
	buf = binary.LittleEndian.AppendUint16(buf, h.Flags)
	buf = append(buf, h.Kind)
	buf = common.WriteVarUint(buf, uint64(len(h.Dims)))
	for _, d := range h.Dims {
		buf = common.WriteVarUint(buf, d)
	}
	return buf
}

// ParseHeader reads a header from the front of buf and returns it together
// with the number of bytes consumed.
func ParseHeader(buf []byte) (Header, int, error) {
	if len(buf) < fixedHeaderSize+1 {
		return Header{}, 0, ErrShort
	}
	h := Header{}
	h.Magic = binary.LittleEndian.Uint32(buf[0:])
	if h.Magic != MagicV1 {
		return Header{}, 0, ErrMagic
	}
	h.Version = binary.LittleEndian.Uint16(buf[4:])
	if h.Version != VersionV1 {
		return Header{}, 0, fmt.Errorf("%w: %d", ErrVersion, h.Version)
	}
	h.Flags = binary.LittleEndian.Uint16(buf[6:])
	if h.Flags&^knownFlags != 0 {
		return Header{}, 0, fmt.Errorf("%w: unknown flags %#04x", ErrHeader, h.Flags&^knownFlags)
	}
	h.Kind = buf[8]
	cursor := fixedHeaderSize
	rank, n := common.ReadVarUint(buf[cursor:])
	if n == 0 || rank > maxRank {
		return Header{}, 0, ErrHeader
	}
	cursor += n
	h.Dims = make([]uint64, rank)
	for i := range h.Dims {
		d, n := common.ReadVarUint(buf[cursor:])
		if n == 0 {
			return Header{}, 0, ErrHeader
		}
		h.Dims[i] = d
		cursor += n
	}
	return h, cursor, nil
}

// Seal appends a CRC32 over everything after the magic.
func Seal(buf []byte) []byte {
	crc := crc32.ChecksumIEEE(buf[4:])
	return binary.LittleEndian.AppendUint32(buf, crc)
}

// Open verifies the trailing CRC and returns buf without it.
func Open(buf []byte) ([]byte, error) {
	if len(buf) < fixedHeaderSize+crcSize {
		return nil, ErrShort
	}
	end := len(buf) - crcSize
	want := binary.LittleEndian.Uint32(buf[end:])
	if crc32.ChecksumIEEE(buf[4:end]) != want {
		return nil, ErrChecksum
	}
	return buf[:end], nil
}
