package compressor

import (
	"encoding/binary"
	"io"

	"golang.org/x/xerrors"
)

// WriteRecord writes one decompressed-payload record (spec.md §4.2):
//
//	[8 bytes path_len LE][path UTF-8][8 bytes size LE][size bytes of content]
//
// exactly as the zstd path frames every manifest entry (the zip fallback
// does not use it; ZIP entries carry its structure). internal/legacy
// reuses this same framing to
// present cpio-sourced legacy payloads through the one record reader the
// Extractor already knows how to consume.
func WriteRecord(w io.Writer, logicalPath string, size uint64, r io.Reader) error {
	pathBytes := []byte(logicalPath)
	if err := binary.Write(w, binary.LittleEndian, uint64(len(pathBytes))); err != nil {
		return xerrors.Errorf("compressor: write path_len: %w", err)
	}
	if _, err := w.Write(pathBytes); err != nil {
		return xerrors.Errorf("compressor: write path: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, size); err != nil {
		return xerrors.Errorf("compressor: write size: %w", err)
	}
	n, err := io.Copy(w, io.LimitReader(r, int64(size)))
	if err != nil {
		return xerrors.Errorf("compressor: write content for %s: %w", logicalPath, err)
	}
	if uint64(n) != size {
		return xerrors.Errorf("compressor: short read for %s: wrote %d of %d bytes", logicalPath, n, size)
	}
	return nil
}

// ReadRecord reads one record header from r, returning the logical path,
// the declared content size, and leaving r positioned at the first
// content byte. Callers must read exactly size bytes before calling
// ReadRecord again.
func ReadRecord(r io.Reader) (logicalPath string, size uint64, err error) {
	var pathLen uint64
	if err := binary.Read(r, binary.LittleEndian, &pathLen); err != nil {
		return "", 0, err // io.EOF on clean end-of-stream, propagated verbatim
	}
	pathBytes := make([]byte, pathLen)
	if _, err := io.ReadFull(r, pathBytes); err != nil {
		return "", 0, xerrors.Errorf("compressor: read path: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return "", 0, xerrors.Errorf("compressor: read size: %w", err)
	}
	return string(pathBytes), size, nil
}
