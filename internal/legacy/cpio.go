// Package legacy decodes the pre-footer container generation (spec.md
// §4.10): before schema_version 1 introduced the JSON header and 72-byte
// footer, this installer family spliced a bare cpio archive directly onto
// the stub, terminated by the standard TRAILER!!! entry, with no header
// and no manifest of its own. This package exists solely so the
// Container Reader's legacy scan path (spec.md §4.6 step 2) can still
// open installers built by that predecessor tooling; the Builder never
// produces this format.
//
// Reading uses github.com/cavaliercoder/go-cpio, the same archive
// dependency the teacher uses to both read and write cpio initramfs
// images (cmd/distri/initrd.go) — here used read-only, the one direction
// this package needs.
package legacy

import (
	"bytes"
	"io"

	"github.com/cavaliercoder/go-cpio"

	"github.com/inspa-build/inspa/internal/compressor"
	"github.com/inspa-build/inspa/internal/manifest"

	"golang.org/x/xerrors"
)

// cpioMagic is the six-byte ASCII signature ("070701") at the start of
// every "new ASCII" cpio header record, the variant go-cpio reads.
var cpioMagic = []byte("070701")

// scanWindow bounds how much of the candidate file Locate will read while
// searching for cpioMagic, so a non-installer file doesn't cause an
// unbounded scan.
const scanWindow = 64 << 20 // 64 MiB

// Locate scans r from the start for the first occurrence of the cpio
// magic and reports its offset, implementing the "first match wins" rule
// spec.md §4.6 step 2 already applies to the newer legacy header magic —
// extended here to this older generation as well.
func Locate(r io.ReaderAt, size int64) (offset int64, ok bool) {
	limit := size
	if limit > scanWindow {
		limit = scanWindow
	}
	buf := make([]byte, limit)
	n, err := r.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return 0, false
	}
	idx := bytes.Index(buf[:n], cpioMagic)
	if idx < 0 {
		return 0, false
	}
	return int64(idx), true
}

// Detect reports whether r contains a legacy cpio payload anywhere within
// the first scanWindow bytes.
func Detect(r io.ReaderAt, size int64) bool {
	_, ok := Locate(r, size)
	return ok
}

// Decode walks a cpio stream (positioned at its first header record) and
// re-emits every regular-file entry through the same
// path_len/path/size/content record framing the zstd payload path uses,
// so the Extractor can consume either generation's payload through one
// record reader. The returned manifest carries sizes and logical paths
// only — SourcePath is meaningless for a read-only legacy payload and is
// left empty.
func Decode(r io.Reader) (manifest.Manifest, io.Reader, error) {
	cr := cpio.NewReader(r)
	var m manifest.Manifest
	var buf bytes.Buffer

	for {
		hdr, err := cr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, xerrors.Errorf("legacy: read cpio header: %w", err)
		}
		if hdr.Name == "TRAILER!!!" || hdr.Mode.IsDir() {
			continue
		}
		size := uint64(hdr.Size)
		if err := compressor.WriteRecord(&buf, hdr.Name, size, cr); err != nil {
			return nil, nil, xerrors.Errorf("legacy: reframe %s: %w", hdr.Name, err)
		}
		m = append(m, manifest.Entry{LogicalPath: hdr.Name, Size: size})
	}

	return m, &buf, nil
}
