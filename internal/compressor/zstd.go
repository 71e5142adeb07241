package compressor

import (
	"io"

	"github.com/klauspost/compress/zstd"
)

// maxWindowSize bounds the encoder/decoder's working set to comfortably
// inside the ≤8 MiB (encoder) / ≤4 MiB (decoder) budgets spec.md §9
// "Streaming discipline" requires, regardless of how large the payload
// itself is.
const maxWindowSize = 4 << 20 // 4 MiB

type zstdCompressor struct {
	enc *zstd.Encoder
}

// newZstdCompressor constructs the primary compressor (spec.md §4.2).
// level is a zstd level in [1,22]; it is translated into the library's
// own EncoderLevel scale via zstd.EncoderLevelFromZstd, the same
// level-mapping helper the klauspost/compress package itself exports for
// this exact purpose.
func newZstdCompressor(w io.Writer, level int) (*zstdCompressor, error) {
	enc, err := zstd.NewWriter(w,
		zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)),
		zstd.WithWindowSize(maxWindowSize),
		zstd.WithEncoderConcurrency(1), // single-writer sink (spec.md §5)
	)
	if err != nil {
		return nil, err
	}
	return &zstdCompressor{enc: enc}, nil
}

func (z *zstdCompressor) WriteEntry(logicalPath string, size uint64, r io.Reader) error {
	return WriteRecord(z.enc, logicalPath, size, r)
}

func (z *zstdCompressor) Finish() error {
	return z.enc.Close()
}

// NewZstdDecoder wraps r in a streaming zstd decoder bounded to the same
// window size the encoder used, for the Extractor's decompression side
// (spec.md §4.7).
func NewZstdDecoder(r io.Reader) (*zstd.Decoder, error) {
	return zstd.NewReader(r,
		zstd.WithDecoderMaxWindow(maxWindowSize),
		zstd.WithDecoderConcurrency(1),
	)
}
