// Package logsink implements the install log (spec.md §4.11, §5 "shared
// resources": the install log is append-only, worker writes, UI reads
// the tail for display). The injected *log.Logger field mirrors the
// teacher's own Ctx.Log *log.Logger (internal/batch/batch.go) — never a
// package-level global, so builder and runtime can each own an
// independent sink in the same process during tests.
package logsink

import (
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/klauspost/pgzip"
	"golang.org/x/xerrors"
)

// Sink wraps an install.log file, optionally tee'd to stderr, behind the
// same *log.Logger surface the rest of the repo already logs through.
type Sink struct {
	*log.Logger
	file *os.File
	path string
}

// Open creates (or truncates) install.log under dir — the install
// target once one is chosen, or the platform temp directory before that
// (spec.md §4.11). When verbose is true, every line is also written to
// stderr via io.MultiWriter, the teacher's own dual-destination logging
// idiom (internal/build/build.go's `io.MultiWriter(os.Stdout,
// buildLog)`), just with the two write ends swapped: here the named file
// is primary and stderr is the optional second destination.
func Open(dir string, verbose bool) (*Sink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, xerrors.Errorf("logsink: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, "install.log")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC|os.O_APPEND, 0o644)
	if err != nil {
		return nil, xerrors.Errorf("logsink: open %s: %w", path, err)
	}

	var w io.Writer = f
	if verbose {
		w = io.MultiWriter(f, os.Stderr)
	}
	return &Sink{
		Logger: log.New(w, "", log.LstdFlags),
		file:   f,
		path:   path,
	}, nil
}

// Path returns the plaintext log's location, for callers that want to
// point a user at it after a failure.
func (s *Sink) Path() string { return s.path }

// Close closes the underlying file without rotating it. Use Rotate
// instead on a successful run.
func (s *Sink) Close() error {
	return s.file.Close()
}

// Rotate closes the plaintext log and recompresses it alongside itself
// as install.log.gz, using github.com/klauspost/pgzip — the teacher's
// own parallel-gzip dependency — so a finished install leaves both the
// original plaintext log and a compact copy suitable for attaching to a
// support request, without re-reading megabytes of script output by
// hand (spec.md §4.11).
func (s *Sink) Rotate() error {
	if err := s.file.Close(); err != nil {
		return xerrors.Errorf("logsink: close %s: %w", s.path, err)
	}

	src, err := os.Open(s.path)
	if err != nil {
		return xerrors.Errorf("logsink: reopen %s: %w", s.path, err)
	}
	defer src.Close()

	dst, err := os.Create(s.path + ".gz")
	if err != nil {
		return xerrors.Errorf("logsink: create %s.gz: %w", s.path, err)
	}
	gw := pgzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		gw.Close()
		dst.Close()
		return xerrors.Errorf("logsink: compress %s: %w", s.path, err)
	}
	if err := gw.Close(); err != nil {
		dst.Close()
		return xerrors.Errorf("logsink: close gzip writer: %w", err)
	}
	return dst.Close()
}
