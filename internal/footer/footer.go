// Package footer implements the Footer Codec (spec.md §3.3, §4.4): the
// fixed 72-byte trailing record that lets the Container Reader locate
// itself in O(1) without scanning. The on-disk layout mirrors the
// teacher's SquashFS superblock — a fixed-size little-endian struct
// encoded/decoded with encoding/binary.
package footer

import (
	"bytes"
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// Size is the fixed byte length of the footer record.
const Size = 72

// Magic is the 8-byte ASCII signature identifying the current (footer-
// bearing) container generation.
const Magic = "INSPAF01"

// raw is the exact on-disk 72-byte layout, little-endian, packed (every
// field is a fixed-size array or integer, so binary.Write/Read need no
// padding considerations).
type raw struct {
	Magic         [8]byte
	HeaderOffset  uint64
	HeaderLen     uint64
	PayloadOffset uint64
	PayloadSize   uint64
	PayloadSHA256 [32]byte
}

// Footer is the parsed, semantic form of the record.
type Footer struct {
	HeaderOffset  uint64
	HeaderLen     uint64
	PayloadOffset uint64
	PayloadSize   uint64
	PayloadSHA256 [32]byte
}

// Validate checks the footer's internal offset invariant (spec.md §3.3):
// header_offset + 8 + header_len = payload_offset.
func (f *Footer) Validate() error {
	if f.HeaderOffset+8+f.HeaderLen != f.PayloadOffset {
		return xerrors.Errorf("footer: inconsistent offsets: header_offset=%d header_len=%d payload_offset=%d",
			f.HeaderOffset, f.HeaderLen, f.PayloadOffset)
	}
	return nil
}

// Encode serializes f into the 72-byte on-disk layout.
func Encode(f Footer) ([]byte, error) {
	var r raw
	copy(r.Magic[:], Magic)
	r.HeaderOffset = f.HeaderOffset
	r.HeaderLen = f.HeaderLen
	r.PayloadOffset = f.PayloadOffset
	r.PayloadSize = f.PayloadSize
	r.PayloadSHA256 = f.PayloadSHA256

	var buf bytes.Buffer
	buf.Grow(Size)
	if err := binary.Write(&buf, binary.LittleEndian, &r); err != nil {
		return nil, xerrors.Errorf("footer: encode: %w", err)
	}
	if buf.Len() != Size {
		return nil, xerrors.Errorf("footer: encoded length %d != %d", buf.Len(), Size)
	}
	return buf.Bytes(), nil
}

// Decode parses a 72-byte on-disk footer record. It does not validate
// the magic; callers check that separately to distinguish "no footer
// present" (legacy scan) from "footer present but malformed".
func Decode(b []byte) (Footer, error) {
	if len(b) != Size {
		return Footer{}, xerrors.Errorf("footer: need %d bytes, got %d", Size, len(b))
	}
	var r raw
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &r); err != nil {
		return Footer{}, xerrors.Errorf("footer: decode: %w", err)
	}
	return Footer{
		HeaderOffset:  r.HeaderOffset,
		HeaderLen:     r.HeaderLen,
		PayloadOffset: r.PayloadOffset,
		PayloadSize:   r.PayloadSize,
		PayloadSHA256: r.PayloadSHA256,
	}, nil
}

// HasMagic reports whether b (expected to be the last Size bytes of a
// candidate container) starts with the current footer's magic.
func HasMagic(b []byte) bool {
	return len(b) >= 8 && string(b[:8]) == Magic
}

// ReadAt reads and decodes the footer from the last Size bytes exposed
// by r, which must report exactly size bytes total.
func ReadAt(r io.ReaderAt, size int64) (Footer, error) {
	if size < Size {
		return Footer{}, xerrors.Errorf("footer: file too small (%d bytes) to contain a footer", size)
	}
	buf := make([]byte, Size)
	if _, err := r.ReadAt(buf, size-Size); err != nil {
		return Footer{}, xerrors.Errorf("footer: read: %w", err)
	}
	if !HasMagic(buf) {
		return Footer{}, xerrors.Errorf("footer: magic mismatch")
	}
	return Decode(buf)
}
