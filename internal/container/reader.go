package container

import (
	"bytes"
	"encoding/binary"
	"io"

	"golang.org/x/exp/mmap"
	"golang.org/x/xerrors"

	inspa "github.com/inspa-build/inspa"
	"github.com/inspa-build/inspa/internal/compressor"
	"github.com/inspa-build/inspa/internal/digest"
	"github.com/inspa-build/inspa/internal/footer"
	"github.com/inspa-build/inspa/internal/header"
	"github.com/inspa-build/inspa/internal/legacy"
	"github.com/inspa-build/inspa/internal/manifest"
)

// scanWindow bounds how far Open will scan a candidate executable for a
// legacy header or cpio magic before giving up, so an unrelated file
// doesn't cause an unbounded read.
const scanWindow = 64 << 20 // 64 MiB

// Container is an opened installer, located in its own executable by
// Open. It exposes exactly the operations the Extractor and the `hash`/
// `inspect` CLI verbs need, regardless of which on-disk generation
// produced it.
type Container struct {
	ra     io.ReaderAt
	closer io.Closer

	// Header is nil only for the oldest, footer-less, header-less cpio
	// generation (spec.md §4.10); every other generation populates it.
	Header *header.Header

	PayloadOffset int64
	PayloadSize   int64
	PayloadSHA256 [32]byte

	// Legacy is true for either predecessor generation (header-scan or
	// bare cpio), false for the current footer-bearing format.
	Legacy bool

	// LegacyManifest and legacyRecords are populated only for the
	// footer-less, header-less cpio generation, whose payload carries
	// no compression algorithm or hash of its own.
	LegacyManifest manifest.Manifest
	legacyRecords  io.Reader
}

// Open locates and opens an installer container in the file at path,
// trying the footer path first and falling back through both legacy
// generations in turn (spec.md §4.6 step 1-2). The returned Container
// must be Closed by the caller.
func Open(path string) (*Container, error) {
	ra, err := mmap.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("container: open %s: %w", path, err)
	}

	size := int64(ra.Len())

	if ft, ferr := footer.ReadAt(ra, size); ferr == nil {
		if verr := ft.Validate(); verr != nil {
			ra.Close()
			return nil, xerrors.Errorf("container: %w", verr)
		}
		hdrBytes := make([]byte, ft.HeaderLen)
		if _, err := ra.ReadAt(hdrBytes, int64(ft.HeaderOffset+8)); err != nil {
			ra.Close()
			return nil, xerrors.Errorf("container: read header: %w", err)
		}
		h, err := header.Decode(hdrBytes, inspa.SupportedSchemaVersions)
		if err != nil {
			ra.Close()
			return nil, xerrors.Errorf("container: %w", err)
		}
		return &Container{
			ra:            ra,
			closer:        ra,
			Header:        h,
			PayloadOffset: int64(ft.PayloadOffset),
			PayloadSize:   int64(ft.PayloadSize),
			PayloadSHA256: ft.PayloadSHA256,
		}, nil
	}

	if off, ok := findMagic(ra, size, []byte(inspa.LegacyHeaderMagic)); ok {
		var lenBuf [8]byte
		if _, err := ra.ReadAt(lenBuf[:], off+8); err != nil {
			ra.Close()
			return nil, xerrors.Errorf("container: legacy header_len: %w", err)
		}
		headerLen := int64(binary.LittleEndian.Uint64(lenBuf[:]))
		hdrBytes := make([]byte, headerLen)
		if _, err := ra.ReadAt(hdrBytes, off+16); err != nil {
			ra.Close()
			return nil, xerrors.Errorf("container: legacy header: %w", err)
		}
		h, err := header.Decode(hdrBytes, inspa.SupportedSchemaVersions)
		if err != nil {
			ra.Close()
			return nil, xerrors.Errorf("container: %w", err)
		}
		payloadOffset := off + 16 + headerLen
		payloadSize := size - 32 - payloadOffset
		if payloadSize < 0 {
			ra.Close()
			return nil, xerrors.Errorf("container: legacy payload region is negative-sized")
		}
		var tail [32]byte
		if _, err := ra.ReadAt(tail[:], size-32); err != nil {
			ra.Close()
			return nil, xerrors.Errorf("container: legacy tail: %w", err)
		}
		return &Container{
			ra:            ra,
			closer:        ra,
			Header:        h,
			PayloadOffset: payloadOffset,
			PayloadSize:   payloadSize,
			PayloadSHA256: tail,
			Legacy:        true,
		}, nil
	}

	if off, ok := legacy.Locate(ra, size); ok {
		sr := io.NewSectionReader(ra, off, size-off)
		m, records, derr := legacy.Decode(sr)
		if derr != nil {
			ra.Close()
			return nil, xerrors.Errorf("container: %w", derr)
		}
		return &Container{
			ra:             ra,
			closer:         ra,
			Legacy:         true,
			LegacyManifest: m,
			legacyRecords:  records,
		}, nil
	}

	ra.Close()
	return nil, xerrors.Errorf("container: %s has no footer and no recognizable legacy payload", path)
}

// Close releases the underlying memory mapping.
func (c *Container) Close() error {
	return c.closer.Close()
}

// PayloadSection returns the compressed payload region as a ReaderAt,
// for compression algorithms (zip) that need random access rather than a
// single forward stream.
func (c *Container) PayloadSection() *io.SectionReader {
	return io.NewSectionReader(c.ra, c.PayloadOffset, c.PayloadSize)
}

// Records returns the decompressed, record-framed entry stream
// (path_len/path/size/content, spec.md §4.2) regardless of whether it
// came from zstd decompression or the bare cpio legacy generation, which
// is already reframed into the same shape by internal/legacy. Callers
// using zip payloads must use PayloadSection with archive/zip instead.
func (c *Container) Records() (io.Reader, error) {
	if c.legacyRecords != nil {
		return c.legacyRecords, nil
	}
	if c.Header == nil {
		return nil, xerrors.Errorf("container: no header and no legacy record stream")
	}
	switch compressor.Algo(c.Header.Compression.Algo) {
	case compressor.Zstd:
		return compressor.NewZstdDecoder(c.PayloadSection())
	default:
		return nil, xerrors.Errorf("container: Records() does not support algo %q", c.Header.Compression.Algo)
	}
}

// Verify re-streams the payload region through a fresh hasher and
// compares it against the expected digest (the footer's payload_sha256,
// or the legacy tail in either legacy mode), per spec.md §4.6 "Verify".
// The oldest cpio generation carries no hash of its own and is trivially
// considered verified.
func (c *Container) Verify() error {
	if c.Header == nil && c.legacyRecords != nil {
		return nil
	}
	sink := digest.NewSink()
	if _, err := io.Copy(sink, c.PayloadSection()); err != nil {
		return xerrors.Errorf("container: verify: %w", err)
	}
	if sink.Sum() != c.PayloadSHA256 {
		return xerrors.Errorf("container: payload hash mismatch")
	}
	return nil
}

// findMagic scans the first min(size, scanWindow) bytes of ra for magic,
// returning the offset of its first occurrence (spec.md §4.6 step 2:
// "scan ... take the first").
func findMagic(ra io.ReaderAt, size int64, magic []byte) (int64, bool) {
	limit := size
	if limit > scanWindow {
		limit = scanWindow
	}
	buf := make([]byte, limit)
	n, err := ra.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return 0, false
	}
	idx := bytes.Index(buf[:n], magic)
	if idx < 0 {
		return 0, false
	}
	return int64(idx), true
}
