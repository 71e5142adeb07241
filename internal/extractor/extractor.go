// Package extractor implements the Extractor component (spec.md §4.7):
// it consumes a Container's decompressed payload and materializes files
// under a target directory, staging everything under a hidden directory
// first and promoting it into place only once the whole payload has been
// consumed successfully. The staging-then-promote shape generalizes the
// teacher's own unpackDir (internal/install/install.go), which writes
// files directly via os.OpenFile+io.Copy but relies on package-manager
// level rollback rather than an install-time staging tree — this repo's
// single, standalone installer has no such rollback mechanism, so the
// staging tree is what stands in for one.
package extractor

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/xerrors"

	"github.com/inspa-build/inspa"
	"github.com/inspa-build/inspa/internal/compressor"
	"github.com/inspa-build/inspa/internal/container"
	"github.com/inspa-build/inspa/internal/progress"
)

// StagingDirName is the hidden directory under the install target that
// holds in-progress extraction output until the whole payload has been
// consumed (spec.md §4.7 "Atomicity").
const StagingDirName = ".inspa_staging"

// copyBufferSize bounds each per-file copy's working set, independent of
// how large any one file is (spec.md §9 streaming discipline).
const copyBufferSize = 1 << 20 // 1 MiB

// ErrPathEscape is returned when a manifest logical_path would resolve
// outside the target directory (spec.md §4.7 step 3).
var ErrPathEscape = xerrors.New("extractor: path escapes target directory")

// ErrTrailingBytes is returned when the record stream has unconsumed
// bytes after every manifest entry has been read (spec.md §4.7 step 5).
var ErrTrailingBytes = xerrors.New("extractor: trailing bytes after last record")

// Extract runs the Container's payload through to targetDir, emitting
// progress via q (may be nil). It polls ctx between files, the
// "≤ one extracted file" granularity spec.md §5 requires.
func Extract(ctx context.Context, c *container.Container, targetDir string, q *progress.Queue) error {
	stagingDir := filepath.Join(targetDir, StagingDirName)
	if err := os.RemoveAll(stagingDir); err != nil {
		return xerrors.Errorf("extractor: clear stale staging dir: %w", err)
	}
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return xerrors.Errorf("extractor: create staging dir: %w", err)
	}
	// Any failure past this point, including cancellation, removes the
	// staging tree so no partial files remain under targetDir. The
	// at-exit hook is a backstop for the same cleanup: RemoveAll on an
	// already-removed directory is a no-op, so registering it here costs
	// nothing on the success path but still reclaims the staging tree if
	// the process exits through a path that never reaches this defer —
	// the same belt-and-suspenders RegisterAtExit serves for the
	// teacher's own install-time finalization hooks
	// (internal/install/install.go).
	inspa.RegisterAtExit(func() error {
		return os.RemoveAll(stagingDir)
	})
	succeeded := false
	defer func() {
		if !succeeded {
			os.RemoveAll(stagingDir)
		}
	}()

	mtimes, bytesTotal := mtimeIndex(c)

	var err error
	switch {
	case c.Header != nil && compressor.Algo(c.Header.Compression.Algo) == compressor.Zip:
		err = extractZip(ctx, c, mtimes, bytesTotal, stagingDir, q)
	default:
		err = extractRecords(ctx, c, mtimes, bytesTotal, stagingDir, q)
	}
	if err != nil {
		return err
	}

	if err := promote(stagingDir, targetDir); err != nil {
		return xerrors.Errorf("extractor: promote: %w", err)
	}
	succeeded = true
	return os.RemoveAll(stagingDir)
}

// mtimeIndex builds a logical-path -> mtime lookup and sums declared
// sizes, from whichever manifest source the container generation
// provides (current header, or the legacy cpio decoder's manifest,
// which carries no mtimes).
func mtimeIndex(c *container.Container) (map[string]int64, uint64) {
	idx := make(map[string]int64)
	var total uint64
	if c.Header != nil {
		for _, f := range c.Header.Files {
			idx[f.Path] = f.MTime
			total += f.Size
		}
		return idx, total
	}
	for _, e := range c.LegacyManifest {
		idx[e.LogicalPath] = e.MTime
		total += e.Size
	}
	return idx, total
}

func extractRecords(ctx context.Context, c *container.Container, mtimes map[string]int64, bytesTotal uint64, stagingDir string, q *progress.Queue) error {
	records, err := c.Records()
	if err != nil {
		return xerrors.Errorf("extractor: %w", err)
	}

	expected := len(c.LegacyManifest)
	if c.Header != nil {
		expected = len(c.Header.Files)
	}

	var bytesDone uint64
	buf := make([]byte, copyBufferSize)
	for i := 0; i < expected; i++ {
		logicalPath, size, err := compressor.ReadRecord(records)
		if err == io.EOF {
			break
		}
		if err != nil {
			return xerrors.Errorf("extractor: read record: %w", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		dest, err := stagingPath(stagingDir, logicalPath)
		if err != nil {
			return err
		}
		n, err := writeStagedFile(dest, io.LimitReader(records, int64(size)), buf)
		if err != nil {
			return xerrors.Errorf("extractor: write %s: %w", logicalPath, err)
		}
		if uint64(n) != size {
			return xerrors.Errorf("extractor: short record for %s: wrote %d of %d bytes", logicalPath, n, size)
		}
		if mt, ok := mtimes[logicalPath]; ok {
			_ = os.Chtimes(dest, time.Unix(mt, 0), time.Unix(mt, 0))
		}
		bytesDone += size
		q.Emit(progress.Event{Kind: progress.BytesProgressed, CurrentFile: logicalPath, BytesDone: bytesDone, BytesTotal: bytesTotal})
	}

	// Every record the manifest declares has been read; a clean EOF leaves
	// no trailing bytes, so a single extra byte read here means the stream
	// was longer than its records declared.
	var probe [1]byte
	if n, _ := records.Read(probe[:]); n > 0 {
		return ErrTrailingBytes
	}
	return nil
}

func extractZip(ctx context.Context, c *container.Container, mtimes map[string]int64, bytesTotal uint64, stagingDir string, q *progress.Queue) error {
	zr, err := zip.NewReader(c.PayloadSection(), c.PayloadSection().Size())
	if err != nil {
		return xerrors.Errorf("extractor: open zip: %w", err)
	}

	var bytesDone uint64
	buf := make([]byte, copyBufferSize)
	for _, zf := range zr.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		dest, err := stagingPath(stagingDir, zf.Name)
		if err != nil {
			return err
		}
		rc, err := zf.Open()
		if err != nil {
			return xerrors.Errorf("extractor: open zip entry %s: %w", zf.Name, err)
		}
		n, err := writeStagedFile(dest, rc, buf)
		rc.Close()
		if err != nil {
			return xerrors.Errorf("extractor: write %s: %w", zf.Name, err)
		}
		if uint64(n) != zf.UncompressedSize64 {
			return xerrors.Errorf("extractor: short zip entry %s: wrote %d of %d bytes", zf.Name, n, zf.UncompressedSize64)
		}
		if mt, ok := mtimes[zf.Name]; ok {
			_ = os.Chtimes(dest, time.Unix(mt, 0), time.Unix(mt, 0))
		}
		bytesDone += zf.UncompressedSize64
		q.Emit(progress.Event{Kind: progress.BytesProgressed, CurrentFile: zf.Name, BytesDone: bytesDone, BytesTotal: bytesTotal})
	}
	return nil
}

// stagingPath validates logicalPath against path-escape (spec.md §4.7
// step 3) and returns its location under stagingDir. Validation operates
// on the logical, forward-slash path itself rather than re-resolving
// symlinks on disk: the staging directory is freshly created by Extract
// and contains nothing an attacker could have pre-seeded, so a clean,
// non-escaping relative path is sufficient proof the eventual promoted
// location stays under targetDir too.
func stagingPath(stagingDir, logicalPath string) (string, error) {
	clean := path.Clean(logicalPath)
	if path.IsAbs(clean) || clean == ".." || hasDotDotPrefix(clean) {
		return "", xerrors.Errorf("%w: %s", ErrPathEscape, logicalPath)
	}
	return filepath.Join(stagingDir, filepath.FromSlash(clean)), nil
}

func hasDotDotPrefix(clean string) bool {
	return len(clean) >= 3 && clean[:3] == "../"
}

func writeStagedFile(dest string, r io.Reader, buf []byte) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(dest, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.CopyBuffer(f, r, buf)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// promote renames every file under stagingDir into the same relative
// position under targetDir, creating parent directories as needed. It
// renames in sorted path order so the sequence is deterministic; rename
// order has no other significance since every parent directory is
// created on demand.
func promote(stagingDir, targetDir string) error {
	var files []string
	err := filepath.Walk(stagingDir, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(files)

	for _, src := range files {
		rel, err := filepath.Rel(stagingDir, src)
		if err != nil {
			return err
		}
		dest := filepath.Join(targetDir, rel)
		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.Rename(src, dest); err != nil {
			return xerrors.Errorf("extractor: promote %s: %w", rel, err)
		}
	}
	return nil
}
