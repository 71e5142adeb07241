// Package builder orchestrates a single installer build end to end:
// load and validate the configuration, collect the file manifest, and
// assemble the container atomically. It mirrors the teacher's own
// top-level orchestration shape — a configuration-plus-dependencies
// struct with verb-shaped methods (build.Ctx, internal/build/build.go) —
// rather than a bare free function pile or a global singleton.
package builder

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/renameio"
	"golang.org/x/xerrors"

	"github.com/inspa-build/inspa/internal/config"
	"github.com/inspa-build/inspa/internal/container"
	"github.com/inspa-build/inspa/internal/logsink"
	"github.com/inspa-build/inspa/internal/manifest"
)

// Options names the inputs a single build run needs (spec.md §6.1
// `build` command: `-c <config>`, `-o <output>`).
type Options struct {
	ConfigPath string
	StubPath   string
	OutputPath string
	Log        *logsink.Sink
}

// Result summarizes a completed build for the CLI to report.
type Result struct {
	OutputPath    string
	FileCount     int
	PayloadSize   int64
	PayloadSHA256 [32]byte
	AlgoUsed      string
}

// Build runs the full Build pipeline (spec.md §4.1-§4.5): load+validate
// the configuration, collect the manifest, then hand both to
// internal/container.Build against a renameio-backed temp file so a
// failure at any point leaves the eventual output path untouched.
func Build(ctx context.Context, opts Options) (*Result, error) {
	logw := opts.Log
	logf := func(format string, args ...interface{}) {
		if logw != nil {
			logw.Printf(format, args...)
		}
	}

	raw, err := os.ReadFile(opts.ConfigPath)
	if err != nil {
		return nil, xerrors.Errorf("builder: read config %s: %w", opts.ConfigPath, err)
	}
	cfg, err := config.Load(raw)
	if err != nil {
		return nil, xerrors.Errorf("builder: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("builder: %w", err)
	}
	logf("config validated: product=%s version=%s", cfg.Product.Name, cfg.Product.Version)

	m, err := manifest.Collect(toManifestInputs(cfg.Inputs), cfg.Exclude)
	if err != nil {
		return nil, xerrors.Errorf("builder: collect manifest: %w", err)
	}
	logf("collected %d files (%d bytes)", len(m), m.TotalSize())

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stub, err := os.Open(opts.StubPath)
	if err != nil {
		return nil, xerrors.Errorf("builder: open stub %s: %w", opts.StubPath, err)
	}
	defer stub.Close()

	out, err := renameio.TempFile("", opts.OutputPath)
	if err != nil {
		return nil, xerrors.Errorf("builder: create temp output: %w", err)
	}
	defer out.Cleanup()

	open := func(sourcePath string) (io.ReadCloser, error) {
		return os.Open(sourcePath)
	}

	br, err := container.Build(out, stub, cfg, m, container.OpenSourceFunc(open), time.Now())
	if err != nil {
		return nil, xerrors.Errorf("builder: %w", err)
	}

	if err := out.Chmod(0o755); err != nil {
		return nil, xerrors.Errorf("builder: chmod output: %w", err)
	}
	if err := out.CloseAtomicallyReplace(); err != nil {
		return nil, xerrors.Errorf("builder: finalize output: %w", err)
	}
	logf("wrote %s (%d bytes payload, algo=%s)", opts.OutputPath, br.Footer.PayloadSize, br.AlgoUsed)

	return &Result{
		OutputPath:    opts.OutputPath,
		FileCount:     len(m),
		PayloadSize:   int64(br.Footer.PayloadSize),
		PayloadSHA256: br.Footer.PayloadSHA256,
		AlgoUsed:      string(br.AlgoUsed),
	}, nil
}

func toManifestInputs(specs []config.InputSpec) []manifest.Input {
	out := make([]manifest.Input, len(specs))
	for i, s := range specs {
		out[i] = manifest.Input{Path: s.Path, Recursive: s.Recursive, PreserveStructure: s.PreserveStructure}
	}
	return out
}
