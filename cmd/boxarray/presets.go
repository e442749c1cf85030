package main

import (
	"fmt"
	"math"
	"sort"

	"github.com/rawbytedev/boxarray"
)

// built is a constructed preset with its element types erased.
type built struct {
	shape   boxarray.Shape
	leaves  int
	bytes   uintptr
	marshal func(boxarray.CodecOptions) ([]byte, error)
	release func()
}

func erase[A any, T any](b *boxarray.Box[A, T]) *built {
	return &built{
		shape:   b.Shape(),
		leaves:  b.Len(),
		bytes:   b.Size(),
		marshal: func(opts boxarray.CodecOptions) ([]byte, error) { return boxarray.Marshal(b, opts) },
		release: b.Release,
	}
}

type preset struct {
	Name        string
	Description string
	Values      *valueRange // nil accepts any value
	build       func(v float64) (*built, error)
}

// valueRange bounds --value for presets with integer leaves, so the
// float-to-integer conversion is always exact.
type valueRange struct {
	Min, Max float64
}

func (r *valueRange) check(v float64) error {
	if r == nil {
		return nil
	}
	if math.IsNaN(v) || v != math.Trunc(v) || v < r.Min || v > r.Max {
		return fmt.Errorf("value %v must be an integer in [%v, %v]", v, r.Min, r.Max)
	}
	return nil
}

var presets = map[string]preset{}

func register(p preset) {
	if _, dup := presets[p.Name]; dup {
		panic("duplicate preset " + p.Name)
	}
	presets[p.Name] = p
}

func init() {
	register(preset{
		Name:        "f64-4x2x3",
		Description: "[4][2][3]float64, every leaf = value",
		build: func(v float64) (*built, error) {
			return erase(boxarray.Broadcast[[4][2][3]float64](v)), nil
		},
	})
	register(preset{
		Name:        "f64-64x512x512",
		Description: "[64][512][512]float64 (128 MiB), every leaf = value",
		build: func(v float64) (*built, error) {
			return erase(boxarray.Broadcast[[64][512][512]float64](v)), nil
		},
	})
	register(preset{
		Name:        "u8-1024x1024x64",
		Description: "[1024][1024][64]uint8 (64 MiB), every leaf = value",
		Values:      &valueRange{Min: 0, Max: math.MaxUint8},
		build: func(v float64) (*built, error) {
			return erase(boxarray.Broadcast[[1024][1024][64]uint8](uint8(v))), nil
		},
	})
	register(preset{
		Name:        "u32-gen-4x2x3",
		Description: "[4][2][3]uint32, leaf (i,j,k) = i + j*k + value",
		Values:      &valueRange{Min: 0, Max: math.MaxUint32 - 5},
		build: func(v float64) (*built, error) {
			return erase(boxarray.Generate[[4][2][3]uint32](func(p boxarray.Index) uint32 {
				return uint32(p.At(0)+p.At(1)*p.At(2)) + uint32(v)
			})), nil
		},
	})
	register(preset{
		Name:        "i16-ramp-256x256",
		Description: "[256][256]int16, leaf (i,j) = value * (i - j); fails on int16 overflow",
		build: func(v float64) (*built, error) {
			b, err := boxarray.TryGenerate[[256][256]int16](func(p boxarray.Index) (int16, error) {
				x := v * float64(p.At(0)-p.At(1))
				if x < -32768 || x > 32767 {
					return 0, fmt.Errorf("%v overflows int16", x)
				}
				return int16(x), nil
			})
			if err != nil {
				return nil, err
			}
			return erase(b), nil
		},
	})
}

func presetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
