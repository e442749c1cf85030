package boxarray

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/rawbytedev/boxarray/internal/common"
	"github.com/rawbytedev/boxarray/internal/frame"
)

// CodecOptions control how Marshal writes the leaf payload.
type CodecOptions struct {
	Compress         bool // zstd-compress the payload
	UnsafePrimitives bool // copy the leaf block as raw bytes on little-endian hosts
	CheckAlignment   bool // with UnsafePrimitives, fall back to per-leaf encoding on a misaligned block
}

// Snapshot layout:
// Header: magic, version, flags, leaf kind, varint rank, varint extents
// Payload: leaves in row-major order, little endian, optionally zstd
// Trailer: CRC32 of everything after the magic

// Marshal serializes a box of fixed-width leaves.
func Marshal[A any, T any](b *Box[A, T], opts CodecOptions) ([]byte, error) {
	l := b.layout
	if !l.fixed {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, l.LeafType)
	}
	if b.released {
		return nil, fmt.Errorf("marshal: %w", ErrReleased)
	}
	h := frame.Header{
		Magic:   frame.MagicV1,
		Version: frame.VersionV1,
		Kind:    uint8(l.LeafKind),
		Dims:    make([]uint64, len(l.Shape)),
	}
	for i, d := range l.Shape {
		h.Dims[i] = uint64(d)
	}
	compress := opts.Compress && l.Leaves > 0
	if compress {
		h.Flags |= frame.FlagZstd
	}

	width := common.FixedSize(l.LeafKind)
	buf := frame.EncodeHeader(make([]byte, 0, 32+l.Leaves*width), h)
	payload := leafPayload(b, width, opts)
	if compress {
		var err error
		buf, err = frame.Compress(buf, payload)
		if err != nil {
			return nil, fmt.Errorf("boxarray: compress payload: %w", err)
		}
	} else {
		buf = append(buf, payload...)
	}
	return frame.Seal(buf), nil
}

// leafPayload returns the encoded leaves. With UnsafePrimitives on a
// little-endian host the result aliases the box memory.
func leafPayload[A any, T any](b *Box[A, T], width int, opts CodecOptions) []byte {
	l := b.layout
	if opts.UnsafePrimitives && common.LittleEndianHost() && l.Size > 0 {
		aligned := !opts.CheckAlignment ||
			common.Aligned(unsafe.Pointer(b.arr), common.Alignment(l.LeafKind))
		if aligned {
			raw, _ := b.Bytes()
			return raw
		}
	}
	out := make([]byte, 0, l.Leaves*width)
	for i := range b.leaves {
		out = common.PutFixed(out, l.LeafKind, unsafe.Pointer(&b.leaves[i]))
	}
	return out
}

// Unmarshal rebuilds a box from a snapshot made by Marshal.
func Unmarshal[A any, T any](data []byte) (*Box[A, T], error) {
	return UnmarshalWith[A, T](defaultConstructor, data)
}

// UnmarshalWith is Unmarshal using c. The array is built through the
// generator path, so it takes one allocation like any other construction.
func UnmarshalWith[A any, T any](c *Constructor, data []byte) (*Box[A, T], error) {
	l, err := LayoutOf[A, T]()
	if err != nil {
		return nil, err
	}
	if !l.fixed {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, l.LeafType)
	}
	h, payload, err := openSnapshot(data)
	if err != nil {
		return nil, err
	}
	if reflect.Kind(h.Kind) != l.LeafKind {
		return nil, fmt.Errorf("%w: snapshot holds %s, want %s", ErrKindMismatch, reflect.Kind(h.Kind), l.LeafKind)
	}
	if !dimsMatch(h.Dims, l.Shape) {
		return nil, fmt.Errorf("%w: snapshot %v, type %s", ErrShapeMismatch, h.Dims, l.Shape)
	}

	width := common.FixedSize(l.LeafKind)
	want := l.Leaves * width
	if h.Flags&frame.FlagZstd != 0 {
		payload, err = frame.Decompress(payload, want)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	if len(payload) != want {
		return nil, fmt.Errorf("%w: payload is %d bytes, want %d", ErrCorrupt, len(payload), want)
	}

	pos := 0
	return TryGenerateWith[A, T](c, func(Index) (T, error) {
		var v T
		common.GetFixed(payload[pos:pos+width], l.LeafKind, unsafe.Pointer(&v))
		pos += width
		return v, nil
	})
}

func openSnapshot(data []byte) (frame.Header, []byte, error) {
	body, err := frame.Open(data)
	if err != nil {
		return frame.Header{}, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	h, n, err := frame.ParseHeader(body)
	if err != nil {
		return frame.Header{}, nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return h, body[n:], nil
}

func dimsMatch(dims []uint64, shape Shape) bool {
	if len(dims) != len(shape) {
		return false
	}
	for i, d := range dims {
		if d != uint64(shape[i]) {
			return false
		}
	}
	return true
}

// SnapshotInfo summarizes a snapshot without decoding its leaves.
type SnapshotInfo struct {
	Version      uint16 `yaml:"version"`
	Shape        Shape  `yaml:"shape,flow"`
	LeafKind     string `yaml:"leaf_kind"`
	Leaves       int    `yaml:"leaves"`
	Compressed   bool   `yaml:"compressed"`
	PayloadBytes int    `yaml:"payload_bytes"`
	StoredBytes  int    `yaml:"stored_bytes"`
}

// Inspect verifies a snapshot's checksum and returns its header.
func Inspect(data []byte) (SnapshotInfo, error) {
	h, payload, err := openSnapshot(data)
	if err != nil {
		return SnapshotInfo{}, err
	}
	shape := make(Shape, len(h.Dims))
	for i, d := range h.Dims {
		if d > uint64(^uint(0)>>1) {
			return SnapshotInfo{}, fmt.Errorf("%w: extent %d", ErrCorrupt, d)
		}
		shape[i] = int(d)
	}
	leaves, err := shape.Leaves()
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	kind := reflect.Kind(h.Kind)
	info := SnapshotInfo{
		Version:     h.Version,
		Shape:       shape,
		LeafKind:    kind.String(),
		Leaves:      leaves,
		Compressed:  h.Flags&frame.FlagZstd != 0,
		StoredBytes: len(payload),
	}
	if w := common.FixedSize(kind); w > 0 {
		if leaves > int(^uint(0)>>1)/w {
			return SnapshotInfo{}, fmt.Errorf("%w: %s of %s overflows the payload size", ErrCorrupt, shape, kind)
		}
		info.PayloadBytes = leaves * w
	}
	return info, nil
}
