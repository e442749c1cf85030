package boxarray

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/rawbytedev/boxarray/internal/common"
)

// Layout is the validated shape descriptor of a nested array type A whose
// innermost element is the leaf type T.
type Layout struct {
	ArrayType reflect.Type
	LeafType  reflect.Type
	LeafKind  reflect.Kind
	Shape     Shape
	Leaves    int
	LeafSize  uintptr
	LeafAlign uintptr
	Size      uintptr // ArrayType.Size() == Leaves * LeafSize

	strides    []int
	fixed      bool // leaf is a fixed-width primitive
	releasable bool // leaf or *leaf implements Releaser
	nilable    bool // leaf can hold nil
}

// Fixed reports whether leaves are fixed-width primitives the codec and
// Box.Bytes can handle.
func (l *Layout) Fixed() bool {
	return l.fixed
}

// ZeroSize reports whether construction skips the allocator.
func (l *Layout) ZeroSize() bool {
	return l.Leaves == 0 || l.Size == 0
}

type layoutKey struct {
	array, leaf reflect.Type
}

var layouts = struct {
	mu sync.RWMutex
	m  map[layoutKey]*Layout
}{m: make(map[layoutKey]*Layout)}

var releaserType = reflect.TypeFor[Releaser]()

// LayoutOf validates that A is T or a (nested) fixed-size array of T and
// returns its cached layout.
func LayoutOf[A any, T any]() (*Layout, error) {
	return layoutFor(reflect.TypeFor[A](), reflect.TypeFor[T]())
}

func layoutFor(array, leaf reflect.Type) (*Layout, error) {
	key := layoutKey{array: array, leaf: leaf}
	layouts.mu.RLock()
	if l, ok := layouts.m[key]; ok {
		layouts.mu.RUnlock()
		return l, nil
	}
	layouts.mu.RUnlock()

	layouts.mu.Lock()
	defer layouts.mu.Unlock()

	// Double-check
	if l, ok := layouts.m[key]; ok {
		return l, nil
	}
	l, err := buildLayout(array, leaf)
	if err != nil {
		return nil, err
	}
	layouts.m[key] = l
	return l, nil
}

func buildLayout(array, leaf reflect.Type) (*Layout, error) {
	var shape Shape
	cur := array
	for cur != leaf && cur.Kind() == reflect.Array {
		if len(shape) == MaxRank {
			return nil, fmt.Errorf("%w: %s nests more than %d arrays", ErrRankTooHigh, array, MaxRank)
		}
		shape = append(shape, cur.Len())
		cur = cur.Elem()
	}
	if cur != leaf {
		if len(shape) == 0 {
			return nil, fmt.Errorf("%w: %s, leaf %s", ErrNotArray, array, leaf)
		}
		return nil, fmt.Errorf("%w: %s ends in %s, want %s", ErrLeafMismatch, array, cur, leaf)
	}
	leaves, err := shape.Leaves()
	if err != nil {
		return nil, err
	}
	l := &Layout{
		ArrayType: array,
		LeafType:  leaf,
		LeafKind:  leaf.Kind(),
		Shape:     shape,
		Leaves:    leaves,
		LeafSize:  leaf.Size(),
		LeafAlign: uintptr(leaf.Align()),
		Size:      array.Size(),
		strides:   shape.Strides(),
		fixed:     common.IsFixedKind(leaf.Kind()),
		releasable: leaf.Implements(releaserType) ||
			reflect.PointerTo(leaf).Implements(releaserType),
	}
	switch leaf.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		l.nilable = true
	}
	if l.Size != uintptr(l.Leaves)*l.LeafSize {
		return nil, fmt.Errorf("boxarray: %s is %d bytes, expected %d leaves of %d", array, l.Size, l.Leaves, l.LeafSize)
	}
	return l, nil
}

func (l *Layout) String() string {
	return fmt.Sprintf("%s of %s (%d leaves, %d bytes)", l.Shape, l.LeafType, l.Leaves, l.Size)
}

func mustLayout[A any, T any]() *Layout {
	l, err := LayoutOf[A, T]()
	if err != nil {
		panic(err)
	}
	return l
}
