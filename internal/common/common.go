package common

import (
	"encoding/binary"
	"math"
	"reflect"
	"unsafe"
)

// IsFixedKind reports whether k is a fixed-size primitive kind.
func IsFixedKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// FixedSize returns the encoded byte width for fixed-size primitive kinds, -1 otherwise.
func FixedSize(k reflect.Kind) int {
	switch k {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		return 1
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	default:
		return -1
	}
}

// Alignment returns the natural alignment of a fixed kind (1 for anything else).
func Alignment(k reflect.Kind) int {
	switch k {
	case reflect.Int16, reflect.Uint16:
		return 2
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		return 4
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		return 8
	default:
		return 1
	}
}

// Aligned reports whether p sits on a multiple of align.
func Aligned(p unsafe.Pointer, align int) bool {
	if align <= 1 {
		return true
	}
	return uintptr(p)%uintptr(align) == 0
}

// LittleEndianHost reports whether the running machine stores integers little endian.
func LittleEndianHost() bool {
	x := uint16(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}

// WriteVarUint appends a varint to buf using a small stack scratch.
func WriteVarUint(buf []byte, x uint64) []byte {
	var scratch [binary.MaxVarintLen64]byte
	i := 0
	for x >= 0x80 {
		scratch[i] = byte(x) | 0x80
		x >>= 7
		i++
	}
	scratch[i] = byte(x)
	i++
	return append(buf, scratch[:i]...)
}

// ReadVarUint decodes a varint from b returning value and bytes consumed.
// A zero count means b was truncated or the varint overflowed.
func ReadVarUint(b []byte) (uint64, int) {
	var x uint64
	var s uint
	for i, c := range b {
		if i == binary.MaxVarintLen64 {
			return 0, 0
		}
		x |= uint64(c&0x7F) << s
		if c&0x80 == 0 {
			return x, i + 1
		}
		s += 7
	}
	return 0, 0
}

// PutFixed appends the little-endian encoding of the value of kind k stored at p.
func PutFixed(dst []byte, k reflect.Kind, p unsafe.Pointer) []byte {
	switch k {
	case reflect.Bool:
		if *(*bool)(p) {
			return append(dst, 1)
		}
		return append(dst, 0)
	case reflect.Int8, reflect.Uint8:
		return append(dst, *(*byte)(p))
	case reflect.Int16, reflect.Uint16:
		return binary.LittleEndian.AppendUint16(dst, *(*uint16)(p))
	case reflect.Int32, reflect.Uint32:
		return binary.LittleEndian.AppendUint32(dst, *(*uint32)(p))
	case reflect.Float32:
		return binary.LittleEndian.AppendUint32(dst, math.Float32bits(*(*float32)(p)))
	case reflect.Int64, reflect.Uint64:
		return binary.LittleEndian.AppendUint64(dst, *(*uint64)(p))
	case reflect.Float64:
		return binary.LittleEndian.AppendUint64(dst, math.Float64bits(*(*float64)(p)))
	default:
		panic("common: not a fixed kind: " + k.String())
	}
}

// GetFixed decodes a little-endian value of kind k from b and stores it at p.
// b must hold at least FixedSize(k) bytes.
func GetFixed(b []byte, k reflect.Kind, p unsafe.Pointer) {
	switch k {
	case reflect.Bool:
		*(*bool)(p) = b[0] != 0
	case reflect.Int8, reflect.Uint8:
		*(*byte)(p) = b[0]
	case reflect.Int16, reflect.Uint16:
		*(*uint16)(p) = binary.LittleEndian.Uint16(b)
	case reflect.Int32, reflect.Uint32:
		*(*uint32)(p) = binary.LittleEndian.Uint32(b)
	case reflect.Float32:
		*(*float32)(p) = math.Float32frombits(binary.LittleEndian.Uint32(b))
	case reflect.Int64, reflect.Uint64:
		*(*uint64)(p) = binary.LittleEndian.Uint64(b)
	case reflect.Float64:
		*(*float64)(p) = math.Float64frombits(binary.LittleEndian.Uint64(b))
	default:
		panic("common: not a fixed kind: " + k.String())
	}
}
