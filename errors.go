package boxarray

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	ErrNotArray       = errors.New("boxarray: type is neither the leaf type nor an array of it")
	ErrLeafMismatch   = errors.New("boxarray: innermost element type does not match leaf type")
	ErrRankTooHigh    = errors.New("boxarray: nesting too deep")
	ErrNegativeExtent = errors.New("boxarray: negative extent")
	ErrTooLarge       = errors.New("boxarray: leaf count overflows int")
	ErrAllocation     = errors.New("boxarray: allocation failed")
	ErrUnsupported    = errors.New("boxarray: unsupported leaf kind")
	ErrShapeMismatch  = errors.New("boxarray: snapshot shape does not match array type")
	ErrKindMismatch   = errors.New("boxarray: snapshot leaf kind does not match leaf type")
	ErrCorrupt        = errors.New("boxarray: corrupt snapshot")
	ErrReleased       = errors.New("boxarray: box already released")
	ErrNotCloneable   = errors.New("boxarray: releasable leaf must implement Cloner to be broadcast")
)

// AllocError is the panic value raised when the allocator cannot provide the
// block for a nested array. No leaf has been written when it is raised.
type AllocError struct {
	Type reflect.Type
	Size uintptr
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("boxarray: allocation of %d bytes for %s failed", e.Size, e.Type)
}

func (e *AllocError) Unwrap() error {
	return ErrAllocation
}

// GenerateError reports the first leaf a fallible generator refused to produce.
// Leaves before it were released before the error was returned.
type GenerateError struct {
	Path Index
	Leaf int // row-major position of Path
	Err  error
}

func (e *GenerateError) Error() string {
	return fmt.Sprintf("boxarray: generator failed at %s (leaf %d): %v", e.Path, e.Leaf, e.Err)
}

func (e *GenerateError) Unwrap() error {
	return e.Err
}
