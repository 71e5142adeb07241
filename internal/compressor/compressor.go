// Package compressor implements the Compressor component (spec.md §4.2):
// a streaming writer over a payload sink that also feeds every byte into
// a digest.Sink, with a primary zstd implementation and a stored-ZIP
// fallback. The decompressed record framing used by the zstd path is also
// defined here (record.go), since it is the Compressor's own on-disk
// contract; the zip fallback stores entries as ZIP members instead.
package compressor

import (
	"io"

	"github.com/inspa-build/inspa/internal/digest"
	"github.com/inspa-build/inspa/internal/manifest"
)

// Algo identifies a payload compression algorithm, matching
// config.CompressionAlgo's wire values.
type Algo string

const (
	Zstd Algo = "zstd"
	Zip  Algo = "zip"
)

// Compressor streams manifest entries into an output sink.
type Compressor interface {
	// WriteEntry streams exactly size bytes from r as the next manifest
	// entry identified by logicalPath.
	WriteEntry(logicalPath string, size uint64, r io.Reader) error
	// Finish flushes any buffered compressor state. After Finish, no
	// further WriteEntry calls are valid.
	Finish() error
}

// New constructs a Compressor of the requested algorithm, writing to w
// while feeding a digest.Sink. level is only meaningful for Zstd.
//
// A single zstd initialization attempt is made; if it fails and
// fallbackToZip is true, New transparently constructs a zip Compressor
// instead and reports algoUsed = Zip. Once any bytes of payload have been
// emitted by the returned Compressor, no further fallback is possible
// (spec.md §4.2 "Fallback policy") — that constraint is why the fallback
// decision is made here, before any entry is written, rather than
// mid-stream.
func New(algo Algo, level int, fallbackToZip bool, w io.Writer) (c Compressor, algoUsed Algo, sink *digest.Sink, err error) {
	sink = digest.NewSink()
	tee := io.MultiWriter(w, sink)

	switch algo {
	case Zip:
		return newZipCompressor(tee), Zip, sink, nil
	case Zstd:
		zc, err := newZstdCompressor(tee, level)
		if err == nil {
			return zc, Zstd, sink, nil
		}
		if !fallbackToZip {
			return nil, "", nil, err
		}
		return newZipCompressor(tee), Zip, sink, nil
	default:
		return nil, "", nil, errUnknownAlgo(algo)
	}
}

// Probe attempts a single zstd encoder initialization against a discarded
// sink and reports whether it would succeed, without emitting any payload
// bytes. The Container Writer uses this to decide algoUsed before the
// header (which embeds compression.algo) is ever written to disk — the
// header must reflect the algorithm that actually ran, not merely the one
// requested (spec.md §8 end-to-end scenario 2).
func Probe(algo Algo, level int) error {
	if algo != Zstd {
		return nil
	}
	zc, err := newZstdCompressor(io.Discard, level)
	if err != nil {
		return err
	}
	return zc.Finish()
}

type errUnknownAlgo Algo

func (e errUnknownAlgo) Error() string { return "compressor: unknown algorithm " + string(e) }

// WriteManifest streams every entry in m (opened via open) through c in
// manifest order, the order they will be decompressed in (spec.md §5
// "Ordering guarantees").
func WriteManifest(c Compressor, m manifest.Manifest, open func(sourcePath string) (io.ReadCloser, error)) error {
	for _, e := range m {
		if err := func() error {
			r, err := open(e.SourcePath)
			if err != nil {
				return err
			}
			defer r.Close()
			return c.WriteEntry(e.LogicalPath, e.Size, r)
		}(); err != nil {
			return err
		}
	}
	return nil
}
