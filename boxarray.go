package boxarray

import (
	"fmt"
	"reflect"
	"unsafe"

	"go.uber.org/zap"
)

// Releaser is implemented by leaves that own a resource. Box.Release and the
// failure paths of the generator forms call it exactly once per written leaf.
type Releaser interface {
	Release()
}

// Cloner is implemented by leaves whose plain Go copy would share state.
// Broadcast gives every leaf its own Clone of the value.
type Cloner[T any] interface {
	Clone() T
}

// Generator produces the leaf at an index path.
type Generator[T any] func(Index) T

// FallibleGenerator produces the leaf at an index path or refuses with an error.
type FallibleGenerator[T any] func(Index) (T, error)

// Options configure a Constructor.
type Options struct {
	Allocator Allocator   // nil means HeapAllocator
	Logger    *zap.Logger // nil means the package logger
}

// Constructor builds nested arrays with a fixed allocator and logger.
// It holds no per-call state and may be shared.
type Constructor struct {
	alloc Allocator
	log   *zap.Logger
}

var defaultConstructor = New(Options{})

// New returns a Constructor for opts.
func New(opts Options) *Constructor {
	c := &Constructor{alloc: opts.Allocator, log: opts.Logger}
	if c.alloc == nil {
		c.alloc = HeapAllocator{}
	}
	return c
}

// Default returns the Constructor used by the package-level functions.
func Default() *Constructor {
	return defaultConstructor
}

func (c *Constructor) logger() *zap.Logger {
	if c.log != nil {
		return c.log
	}
	return Logger()
}

// allocate obtains the block for l. It is the only place the allocator is
// consulted and it panics with *AllocError when the allocator refuses.
func (c *Constructor) allocate(l *Layout) unsafe.Pointer {
	if l.ZeroSize() {
		c.logger().Debug("zero-size nested array, allocator skipped",
			zap.Stringer("type", l.ArrayType),
			zap.Int("leaves", l.Leaves))
		return zeroBlock()
	}
	c.logger().Debug("allocating nested array",
		zap.Stringer("type", l.ArrayType),
		zap.Int("leaves", l.Leaves),
		zap.Uintptr("bytes", l.Size))
	p := c.alloc.Allocate(l.ArrayType)
	if p == nil {
		panic(&AllocError{Type: l.ArrayType, Size: l.Size})
	}
	return p
}

// Box owns one fully initialized nested array of type A with leaves of type T.
type Box[A any, T any] struct {
	arr      *A
	leaves   []T
	layout   *Layout
	released bool
}

// Get returns the nested array. It is nil after Release.
func (b *Box[A, T]) Get() *A {
	return b.arr
}

// Leaves returns a row-major view of every leaf. It aliases the array.
func (b *Box[A, T]) Leaves() []T {
	return b.leaves
}

// At returns the leaf at path.
func (b *Box[A, T]) At(path ...int) T {
	return b.leaves[b.offset(path)]
}

// Set overwrites the leaf at path.
func (b *Box[A, T]) Set(v T, path ...int) {
	b.leaves[b.offset(path)] = v
}

func (b *Box[A, T]) offset(path []int) int {
	if b.released {
		panic("boxarray: use of released box")
	}
	if len(path) > MaxRank {
		panic(fmt.Sprintf("boxarray: path %v out of range for shape %s", path, b.layout.Shape))
	}
	return b.layout.Shape.Offset(IndexOf(path...))
}

// Shape returns the extents of the array.
func (b *Box[A, T]) Shape() Shape {
	return b.layout.Shape.Clone()
}

// Len returns the number of leaves.
func (b *Box[A, T]) Len() int {
	return b.layout.Leaves
}

// Size returns the payload size in bytes.
func (b *Box[A, T]) Size() uintptr {
	return b.layout.Size
}

// Layout returns the validated descriptor of A.
func (b *Box[A, T]) Layout() *Layout {
	return b.layout
}

// Flatten copies the leaves in row-major order.
func (b *Box[A, T]) Flatten() []T {
	out := make([]T, len(b.leaves))
	copy(out, b.leaves)
	return out
}

// Bytes returns the raw memory of the array without copying. Only arrays of
// fixed-width primitives expose their bytes; the view is in host byte order.
func (b *Box[A, T]) Bytes() ([]byte, error) {
	if !b.layout.fixed {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, b.layout.LeafType)
	}
	if b.released {
		return nil, ErrReleased
	}
	if b.layout.Size == 0 {
		return []byte{}, nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(b.arr)), b.layout.Size), nil
}

// Release releases every leaf exactly once in row-major order and drops the
// array. Calling it again does nothing.
func (b *Box[A, T]) Release() {
	if b.released {
		return
	}
	b.released = true
	if b.layout.releasable {
		for i := range b.leaves {
			releaseLeaf(b.layout, &b.leaves[i])
		}
	}
	clear(b.leaves)
	b.leaves = nil
	b.arr = nil
}

// Released reports whether Release has run.
func (b *Box[A, T]) Released() bool {
	return b.released
}

// releaseLeaf runs Release on one leaf. A nil pointer, map, slice or
// interface leaf owns nothing and is skipped.
func releaseLeaf[T any](l *Layout, p *T) {
	if r, ok := any(p).(Releaser); ok {
		r.Release()
		return
	}
	if l.nilable && reflect.ValueOf(p).Elem().IsNil() {
		return
	}
	if r, ok := any(*p).(Releaser); ok {
		r.Release()
	}
}

// build runs one construction. fill writes the leaf at off and reports how
// it went; on failure or panic the leaves written so far are released in
// reverse order before the error or panic escapes.
func build[A any, T any](c *Constructor, fill func(leaves []T, p Index, off int) error) (*Box[A, T], error) {
	l := mustLayout[A, T]()
	block := c.allocate(l)
	leaves := unsafe.Slice((*T)(block), l.Leaves)

	w := walker{shape: l.Shape, strides: l.strides}
	w.path.rank = uint8(len(l.Shape))
	done := false
	defer func() {
		if done {
			return
		}
		c.logger().Debug("construction aborted, releasing written leaves",
			zap.Stringer("type", l.ArrayType),
			zap.Int("written", w.written))
		unwind(l, leaves[:w.written])
	}()

	err := w.walk(0, 0, func(p Index, off int) error {
		if err := fill(leaves, p, off); err != nil {
			return err
		}
		w.written++
		return nil
	})
	if err != nil {
		return nil, err
	}
	done = true
	return &Box[A, T]{arr: (*A)(block), leaves: leaves, layout: l}, nil
}

// unwind releases written leaves newest first and clears them so the block
// keeps nothing alive.
func unwind[T any](l *Layout, written []T) {
	if l.releasable {
		for i := len(written) - 1; i >= 0; i-- {
			releaseLeaf(l, &written[i])
		}
	}
	clear(written)
}

// walker visits leaves outermost dimension first, ascending at every level.
// Because the walk is row-major the offset of the n-th visited leaf is n, so
// the leaves written before a failure are exactly leaves[:written].
type walker struct {
	shape   Shape
	strides []int
	path    Index
	written int
}

func (w *walker) walk(level, base int, leaf func(p Index, off int) error) error {
	if level == len(w.shape) {
		return leaf(w.path, base)
	}
	for i := 0; i < w.shape[level]; i++ {
		w.path.path[level] = i
		if err := w.walk(level+1, base+i*w.strides[level], leaf); err != nil {
			return err
		}
	}
	return nil
}

// Broadcast builds an A whose every leaf is an independent copy of v.
// A must be T or a nested fixed-size array of T; anything else panics, as
// does an allocation failure (*AllocError). A leaf type implementing Releaser
// must also implement Cloner, otherwise every leaf would share v's resource;
// Broadcast panics with ErrNotCloneable before allocating.
func Broadcast[A any, T any](v T) *Box[A, T] {
	return BroadcastWith[A](defaultConstructor, v)
}

// BroadcastWith is Broadcast using c.
func BroadcastWith[A any, T any](c *Constructor, v T) *Box[A, T] {
	l := mustLayout[A, T]()
	clone := cloner(v)
	if l.releasable && clone == nil {
		panic(fmt.Errorf("%w: %s", ErrNotCloneable, l.LeafType))
	}
	b, _ := build[A, T](c, func(leaves []T, _ Index, off int) error {
		if clone != nil {
			leaves[off] = clone()
		} else {
			leaves[off] = v
		}
		return nil
	})
	return b
}

func cloner[T any](v T) func() T {
	if c, ok := any(v).(Cloner[T]); ok {
		return c.Clone
	}
	if c, ok := any(&v).(Cloner[T]); ok {
		return c.Clone
	}
	return nil
}

// Generate builds an A whose leaf at path p is g(p). g runs exactly once per
// leaf in ascending lexicographic order of p. If g panics, the leaves written
// so far are released before the panic continues.
func Generate[A any, T any](g Generator[T]) *Box[A, T] {
	return GenerateWith[A](defaultConstructor, g)
}

// GenerateWith is Generate using c.
func GenerateWith[A any, T any](c *Constructor, g Generator[T]) *Box[A, T] {
	b, _ := build[A, T](c, func(leaves []T, p Index, off int) error {
		leaves[off] = g(p)
		return nil
	})
	return b
}

// TryGenerate is Generate for a generator that can fail. On the first error
// no further leaf is generated, every leaf already written is released once,
// and a *GenerateError wrapping the cause is returned.
func TryGenerate[A any, T any](g FallibleGenerator[T]) (*Box[A, T], error) {
	return TryGenerateWith[A](defaultConstructor, g)
}

// TryGenerateWith is TryGenerate using c.
func TryGenerateWith[A any, T any](c *Constructor, g FallibleGenerator[T]) (*Box[A, T], error) {
	return build[A, T](c, func(leaves []T, p Index, off int) error {
		v, err := g(p)
		if err != nil {
			return &GenerateError{Path: p, Leaf: off, Err: err}
		}
		leaves[off] = v
		return nil
	})
}
