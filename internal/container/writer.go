// Package container implements the Container Writer and Reader (spec.md
// §4.5, §4.6): the component that assembles a stub/header/payload/tail/
// footer container on build, and locates + verifies one at install time.
// The writer's sequencing mirrors the teacher's image-assembly helpers in
// cmd/distri/pack.go (copy a fixed prefix, stream a payload, patch a
// trailing record) adapted to inspa's own four-part layout.
package container

import (
	"encoding/binary"
	"encoding/hex"
	"io"
	"time"

	inspa "github.com/inspa-build/inspa"
	"github.com/inspa-build/inspa/internal/compressor"
	"github.com/inspa-build/inspa/internal/config"
	"github.com/inspa-build/inspa/internal/footer"
	"github.com/inspa-build/inspa/internal/header"
	"github.com/inspa-build/inspa/internal/manifest"

	"golang.org/x/xerrors"
)

// OpenSourceFunc opens one manifest entry's source file for reading, by
// SourcePath. The Builder supplies this — os.Open in production, an
// in-memory fake in tests — so this package never touches a filesystem
// directly.
type OpenSourceFunc func(sourcePath string) (io.ReadCloser, error)

// BuildResult summarizes a completed Build, for callers that log or
// display build provenance afterward.
type BuildResult struct {
	Header     *header.Header
	Footer     footer.Footer
	AlgoUsed   compressor.Algo
	StubSize   int64
	HeaderSize int64
}

// Build assembles a complete container into w: the stub verbatim, the
// JSON header (with a placeholder archive hash), the compressed payload,
// the legacy 32-byte SHA-256 tail, and the 72-byte footer — then seeks
// back exactly once to patch the header's hash.archive placeholder with
// the real digest, now that it is known (spec.md §4.5 steps 1-12).
//
// w must be positioned at offset 0 and otherwise empty; Build writes
// sequentially except for that one trailing patch seek. Production
// callers pass a *renameio.PendingFile; tests pass an in-memory
// orcaman/writerseeker.WriterSeeker — both satisfy io.WriteSeeker.
func Build(w io.WriteSeeker, stub io.Reader, cfg *config.Config, m manifest.Manifest, open OpenSourceFunc, now time.Time) (*BuildResult, error) {
	stubSize, err := io.Copy(w, stub)
	if err != nil {
		return nil, xerrors.Errorf("container: copy stub: %w", err)
	}

	// Decide the real algorithm before the header (which embeds it) is
	// ever written, so a zstd-init failure that falls back to zip is
	// reflected truthfully in header.compression.algo (spec.md §8
	// scenario 2), not merely in what the configuration requested.
	algoUsed := compressor.Algo(cfg.Compression.Algo)
	if probeErr := compressor.Probe(algoUsed, cfg.Compression.Level); probeErr != nil {
		if !cfg.Compression.FallbackToZip {
			return nil, xerrors.Errorf("container: zstd init failed and fallback_to_zip is false: %w", probeErr)
		}
		algoUsed = compressor.Zip
	}

	fingerprint, err := cfg.Fingerprint()
	if err != nil {
		return nil, xerrors.Errorf("container: %w", err)
	}

	h := &header.Header{
		Magic:         header.Magic,
		SchemaVersion: cfg.SchemaVersion,
		Product:       cfg.Product,
		UI:            cfg.UI,
		Install:       cfg.Install,
		Compression: config.Compression{
			Algo:          config.CompressionAlgo(algoUsed),
			Level:         cfg.Compression.Level,
			FallbackToZip: cfg.Compression.FallbackToZip,
		},
		Env:     cfg.Env,
		Files:   fileEntries(m),
		Scripts: scriptsFromPostActions(cfg.PostActions),
		Hash: header.Hash{
			Algo:    "sha256",
			Archive: header.HashPlaceholder,
		},
		Build: header.Build{
			Timestamp:         now.UTC().Format(time.RFC3339),
			BuilderVersion:    inspa.BuilderVersion,
			ConfigFingerprint: fingerprint,
		},
	}

	encoded, err := header.Encode(h)
	if err != nil {
		return nil, xerrors.Errorf("container: %w", err)
	}
	placeholderRel, err := header.PlaceholderOffset(encoded)
	if err != nil {
		return nil, xerrors.Errorf("container: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(encoded))); err != nil {
		return nil, xerrors.Errorf("container: write header_len: %w", err)
	}
	if _, err := w.Write(encoded); err != nil {
		return nil, xerrors.Errorf("container: write header: %w", err)
	}
	payloadOffset := stubSize + 8 + int64(len(encoded))

	// fallbackToZip is false here: the fallback decision has already
	// been made by the probe above, and once payload bytes start
	// flowing no further algorithm switch is permitted.
	c, _, sink, err := compressor.New(algoUsed, cfg.Compression.Level, false, w)
	if err != nil {
		return nil, xerrors.Errorf("container: construct compressor: %w", err)
	}
	if err := compressor.WriteManifest(c, m, open); err != nil {
		return nil, xerrors.Errorf("container: write payload: %w", err)
	}
	if err := c.Finish(); err != nil {
		return nil, xerrors.Errorf("container: finish compressor: %w", err)
	}

	payloadSize := sink.Count()
	payloadSHA256 := sink.Sum()

	if _, err := w.Write(payloadSHA256[:]); err != nil {
		return nil, xerrors.Errorf("container: write legacy tail: %w", err)
	}

	ft := footer.Footer{
		HeaderOffset:  uint64(stubSize),
		HeaderLen:     uint64(len(encoded)),
		PayloadOffset: uint64(payloadOffset),
		PayloadSize:   uint64(payloadSize),
		PayloadSHA256: payloadSHA256,
	}
	if err := ft.Validate(); err != nil {
		return nil, xerrors.Errorf("container: %w", err)
	}
	footerBytes, err := footer.Encode(ft)
	if err != nil {
		return nil, xerrors.Errorf("container: %w", err)
	}
	if _, err := w.Write(footerBytes); err != nil {
		return nil, xerrors.Errorf("container: write footer: %w", err)
	}

	patchOffset := stubSize + 8 + int64(placeholderRel)
	if _, err := w.Seek(patchOffset, io.SeekStart); err != nil {
		return nil, xerrors.Errorf("container: seek to patch hash placeholder: %w", err)
	}
	if _, err := w.Write([]byte(hex.EncodeToString(payloadSHA256[:]))); err != nil {
		return nil, xerrors.Errorf("container: patch hash placeholder: %w", err)
	}

	return &BuildResult{
		Header:     h,
		Footer:     ft,
		AlgoUsed:   algoUsed,
		StubSize:   stubSize,
		HeaderSize: int64(len(encoded)),
	}, nil
}

func fileEntries(m manifest.Manifest) []header.FileEntry {
	out := make([]header.FileEntry, len(m))
	for i, e := range m {
		out[i] = header.FileEntry{Path: e.LogicalPath, Size: e.Size, MTime: e.MTime}
	}
	return out
}

func scriptsFromPostActions(pa []config.PostAction) []header.Script {
	out := make([]header.Script, len(pa))
	for i, a := range pa {
		out[i] = header.Script{
			Type:       a.Type,
			Command:    a.Command,
			Args:       a.Args,
			TimeoutSec: a.TimeoutSec,
			RunIf:      a.RunIf,
			Hidden:     a.Hidden,
			ShowInUI:   a.ShowInUI,
		}
	}
	return out
}
