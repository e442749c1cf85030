package frame

import (
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	encOnce sync.Once
	enc     *zstd.Encoder
	encErr  error

	decOnce sync.Once
	dec     *zstd.Decoder
	decErr  error
)

// EncodeAll and DecodeAll are safe for concurrent use, so one of each is shared.
// Concurrency 1 keeps both from starting background goroutines.
func encoder() (*zstd.Encoder, error) {
	encOnce.Do(func() {
		enc, encErr = zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithEncoderConcurrency(1))
	})
	return enc, encErr
}

func decoder() (*zstd.Decoder, error) {
	decOnce.Do(func() {
		dec, decErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	})
	return dec, decErr
}

// Compress appends the zstd encoding of raw to dst.
func Compress(dst, raw []byte) ([]byte, error) {
	e, err := encoder()
	if err != nil {
		return nil, err
	}
	return e.EncodeAll(raw, dst), nil
}

// Decompress decodes a zstd stream. sizeHint preallocates the output when known.
func Decompress(comp []byte, sizeHint int) ([]byte, error) {
	d, err := decoder()
	if err != nil {
		return nil, err
	}
	return d.DecodeAll(comp, make([]byte, 0, sizeHint))
}
