package boxarray

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxRank is the deepest array nesting the constructor walks.
const MaxRank = 16

// Shape lists the extents of a nested array, outermost dimension first.
// A nil or empty Shape describes a scalar (one leaf).
type Shape []int

// Rank returns the number of dimensions.
func (s Shape) Rank() int {
	return len(s)
}

// Validate checks that no extent is negative and the rank fits MaxRank.
func (s Shape) Validate() error {
	if len(s) > MaxRank {
		return fmt.Errorf("%w: rank %d, max %d", ErrRankTooHigh, len(s), MaxRank)
	}
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("%w: dimension %d is %d", ErrNegativeExtent, i, dim)
		}
	}
	return nil
}

// Leaves returns the product of all extents. It is 0 as soon as one extent is 0
// and fails when the product does not fit an int.
func (s Shape) Leaves() (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	maxInt := int(^uint(0) >> 1)
	count := 1
	for _, dim := range s {
		if dim == 0 {
			return 0, nil
		}
	}
	for _, dim := range s {
		if count > maxInt/dim {
			return 0, fmt.Errorf("%w: shape %s", ErrTooLarge, s)
		}
		count *= dim
	}
	return count, nil
}

// Strides returns row-major strides counted in leaves:
// stride[i] = product of all extents after i.
func (s Shape) Strides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}
	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}

// Contains reports whether every component of p is inside its extent.
func (s Shape) Contains(p Index) bool {
	if p.Rank() != len(s) {
		return false
	}
	for k, dim := range s {
		if i := p.At(k); i < 0 || i >= dim {
			return false
		}
	}
	return true
}

// Offset returns the flat row-major position of p: Σ iₖ·∏_{j>k} eⱼ.
// It panics if p lies outside the shape.
func (s Shape) Offset(p Index) int {
	if !s.Contains(p) {
		panic(fmt.Sprintf("boxarray: index %s out of range for shape %s", p, s))
	}
	off := 0
	for k, dim := range s {
		off = off*dim + p.At(k)
	}
	return off
}

// Equal checks if two shapes are identical.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	c := make(Shape, len(s))
	copy(c, s)
	return c
}

func (s Shape) String() string {
	if len(s) == 0 {
		return "scalar"
	}
	parts := make([]string, len(s))
	for i, dim := range s {
		parts[i] = strconv.Itoa(dim)
	}
	return strings.Join(parts, "x")
}

// ParseShape parses "4,2,3" or "4x2x3". The empty string and "scalar" yield a
// rank-0 shape.
func ParseShape(raw string) (Shape, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "scalar" {
		return Shape{}, nil
	}
	parts := strings.Split(strings.ReplaceAll(raw, "x", ","), ",")
	shape := make(Shape, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty dimension in %q", raw)
		}
		dim, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("failed to parse dimension %q: %w", part, err)
		}
		shape = append(shape, dim)
	}
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return shape, nil
}

// Index is an immutable index path, outermost dimension first. It is a value:
// a copy handed to a generator never changes after the call returns.
type Index struct {
	rank uint8
	path [MaxRank]int
}

// IndexOf builds an Index from explicit components.
func IndexOf(path ...int) Index {
	if len(path) > MaxRank {
		panic(fmt.Sprintf("boxarray: index rank %d exceeds %d", len(path), MaxRank))
	}
	var p Index
	p.rank = uint8(len(path))
	copy(p.path[:], path)
	return p
}

// Rank returns the number of components.
func (p Index) Rank() int {
	return int(p.rank)
}

// At returns component k.
func (p Index) At(k int) int {
	if k < 0 || k >= int(p.rank) {
		panic(fmt.Sprintf("boxarray: index component %d out of range for rank %d", k, p.rank))
	}
	return p.path[k]
}

// Slice returns the components as a fresh slice.
func (p Index) Slice() []int {
	out := make([]int, p.rank)
	copy(out, p.path[:p.rank])
	return out
}

// Less orders index paths lexicographically.
func (p Index) Less(q Index) bool {
	n := min(int(p.rank), int(q.rank))
	for k := 0; k < n; k++ {
		if p.path[k] != q.path[k] {
			return p.path[k] < q.path[k]
		}
	}
	return p.rank < q.rank
}

func (p Index) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for k := 0; k < int(p.rank); k++ {
		if k > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(p.path[k]))
	}
	b.WriteByte(')')
	return b.String()
}
