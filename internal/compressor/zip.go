package compressor

import (
	"archive/zip"
	"io"

	"golang.org/x/xerrors"
)

// zipCompressor is the fallback Compressor (spec.md §4.2): each manifest
// entry becomes a stored (uncompressed) ZIP entry, and the ZIP central
// directory — not the path_len/path/size record framing — provides
// structure. No third-party ZIP writer exists anywhere in the reference
// corpus (see DESIGN.md); archive/zip is both the idiomatic and the
// spec-mandated choice here.
type zipCompressor struct {
	zw *zip.Writer
}

func newZipCompressor(w io.Writer) *zipCompressor {
	return &zipCompressor{zw: zip.NewWriter(w)}
}

func (z *zipCompressor) WriteEntry(logicalPath string, size uint64, r io.Reader) error {
	w, err := z.zw.CreateHeader(&zip.FileHeader{
		Name:   logicalPath,
		Method: zip.Store,
	})
	if err != nil {
		return xerrors.Errorf("compressor: zip CreateHeader(%s): %w", logicalPath, err)
	}
	n, err := io.Copy(w, io.LimitReader(r, int64(size)))
	if err != nil {
		return xerrors.Errorf("compressor: zip write %s: %w", logicalPath, err)
	}
	if uint64(n) != size {
		return xerrors.Errorf("compressor: zip short read for %s: wrote %d of %d bytes", logicalPath, n, size)
	}
	return nil
}

func (z *zipCompressor) Finish() error {
	return z.zw.Close()
}
