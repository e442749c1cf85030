// Package boxarray builds large nested fixed-size arrays such as
// [64][512][512]float64 directly in one heap block, fully initialized,
// without ever holding the array as a stack value.
//
// The array type A carries the shape and T is the leaf type:
//
//	b := boxarray.Broadcast[[4][2][3]float64](7.0)
//	arr := b.Get() // *[4][2][3]float64, every leaf 7.0
//
//	g := boxarray.Generate[[4][2][3]uint](func(p boxarray.Index) uint {
//		return uint(p.At(0) + p.At(1)*p.At(2))
//	})
//	_ = g.At(1, 1, 2) // 3
//
// Each construction asks its Allocator for exactly one block sized for A, or
// for nothing at all when A holds no bytes. Leaves are written once each, in
// row-major order, straight into their final slot; the generator sees the
// index paths in ascending lexicographic order.
//
// Leaves implementing Releaser are released exactly once by Box.Release, and
// by TryGenerate when a FallibleGenerator fails part way; nil leaves are
// skipped. Leaves implementing Cloner get an independent Clone from
// Broadcast, and Broadcast refuses releasable leaves that cannot be cloned.
//
// A type that is not T or a nested array of T makes the typed entry points
// panic; LayoutOf reports the same problem as an error. Allocation failure
// panics with *AllocError.
package boxarray
