package boxarray

import (
	"reflect"
	"sync"
	"unsafe"
)

// Allocator hands out the single block backing a nested array.
//
// Allocate returns storage for exactly one value of type t, or nil when the
// request cannot be satisfied. The block must be typed memory from the Go heap
// (or otherwise visible to the collector) so leaves holding pointers stay live.
// The constructor never calls Allocate for zero-sized arrays.
type Allocator interface {
	Allocate(t reflect.Type) unsafe.Pointer
}

// HeapAllocator allocates from the Go heap.
type HeapAllocator struct{}

func (HeapAllocator) Allocate(t reflect.Type) unsafe.Pointer {
	return reflect.New(t).UnsafePointer()
}

// LimitAllocator fails every request that would take the total handed out by
// Inner above MaxBytes. A nil Inner means HeapAllocator.
type LimitAllocator struct {
	Inner    Allocator
	MaxBytes uintptr

	mu   sync.Mutex
	used uintptr
}

func (l *LimitAllocator) Allocate(t reflect.Type) unsafe.Pointer {
	l.mu.Lock()
	defer l.mu.Unlock()
	size := t.Size()
	if size > l.MaxBytes || l.used > l.MaxBytes-size {
		return nil
	}
	inner := l.Inner
	if inner == nil {
		inner = HeapAllocator{}
	}
	p := inner.Allocate(t)
	if p != nil {
		l.used += size
	}
	return p
}

// Used returns the bytes handed out so far.
func (l *LimitAllocator) Used() uintptr {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.used
}

// zerobase backs every zero-sized array so those never reach an allocator.
var zerobase [0]uint64

func zeroBlock() unsafe.Pointer {
	return unsafe.Pointer(&zerobase)
}
