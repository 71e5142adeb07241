// Package runtime implements the installer stub's own runtime: locating
// the container embedded in the running executable, extracting its
// payload, running post-install actions, and applying environment edits
// (spec.md §4.6-§4.9). It plays the same orchestration role for the
// install side that internal/builder plays for the build side, mirroring
// the teacher's own Ctx-shaped top-level driver (internal/install/
// install.go's hookinstall / unpackDir sequencing, generalized from a
// package-manager install step to a single self-extracting run).
package runtime

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/xerrors"

	"github.com/inspa-build/inspa/internal/config"
	"github.com/inspa-build/inspa/internal/container"
	"github.com/inspa-build/inspa/internal/envmutate"
	"github.com/inspa-build/inspa/internal/extractor"
	"github.com/inspa-build/inspa/internal/logsink"
	"github.com/inspa-build/inspa/internal/progress"
	"github.com/inspa-build/inspa/internal/script"
)

// logWriter returns the underlying writer a *logsink.Sink logs through,
// or io.Discard for a nil Sink, so script.Runner always has a non-nil
// destination regardless of whether the caller wired up logging.
func logWriter(s *logsink.Sink) io.Writer {
	if s == nil {
		return io.Discard
	}
	return s.Writer()
}

// Options configures a single install run. ExecutablePath is the running
// stub's own path, which also holds the container Open scans (spec.md
// §4.6 "self-locating").
type Options struct {
	ExecutablePath string
	InstallDir     string
	Silent         bool
	Log            *logsink.Sink
	Queue          *progress.Queue
}

// Outcome summarizes a finished install run for the stub's exit code
// (spec.md §6.1: 0 success, non-zero on failure).
type Outcome struct {
	InstallDir    string
	ScriptResults []script.Result
}

// Install runs the full install sequence: open the container embedded in
// the running executable, extract its payload into opts.InstallDir, run
// any declared post-install actions, then apply environment edits.
// Post-install action failures and environment-edit failures do not abort
// the sequence (script.RunAll's and envmutate.Apply's own contracts); a
// container that fails to open or verify, a refused silent run or
// install-directory override, an install directory that cannot be
// resolved or created, an extraction failure, or context cancellation
// does.
func Install(ctx context.Context, opts Options) (*Outcome, error) {
	emit := func(kind progress.Kind, phase string) {
		opts.Queue.Emit(progress.Event{Kind: kind, Phase: phase})
	}
	logf := func(format string, args ...interface{}) {
		if opts.Log != nil {
			opts.Log.Printf(format, args...)
		}
	}

	c, err := container.Open(opts.ExecutablePath)
	if err != nil {
		return nil, xerrors.Errorf("runtime: %w", err)
	}
	defer c.Close()

	if err := c.Verify(); err != nil {
		return nil, xerrors.Errorf("runtime: %w", err)
	}
	logf("container verified (legacy=%v)", c.Legacy)

	if opts.Silent && c.Header != nil && !c.Header.Install.SilentAllowed {
		return nil, xerrors.Errorf("runtime: silent install requested but install.silent_allowed is false")
	}

	installDir := opts.InstallDir
	if installDir == "" {
		if c.Header != nil {
			installDir = c.Header.Install.DefaultPath
		}
	} else if opts.Silent && c.Header != nil {
		// A silent run always uses default_path, per spec.md §6.1.
		installDir = c.Header.Install.DefaultPath
	} else if c.Header != nil && !c.Header.Install.AllowUserPath {
		return nil, xerrors.Errorf("runtime: install.allow_user_path is false, cannot override default_path")
	}
	if installDir == "" {
		return nil, xerrors.Errorf("runtime: no install directory resolved")
	}
	if err := os.MkdirAll(installDir, 0o755); err != nil {
		return nil, xerrors.Errorf("runtime: create install dir %s: %w", installDir, err)
	}

	emit(progress.PhaseChanged, "extracting")
	if err := extractor.Extract(ctx, c, installDir, opts.Queue); err != nil {
		emit(progress.Failed, "extracting")
		return nil, xerrors.Errorf("runtime: extract: %w", err)
	}
	logf("extraction complete: %s", installDir)

	var results []script.Result
	if c.Header != nil && len(c.Header.Scripts) > 0 {
		emit(progress.PhaseChanged, "running post-install actions")
		runner := &script.Runner{Log: logWriter(opts.Log), Queue: opts.Queue}
		results, err = runner.RunAll(ctx, c.Header.Scripts, installDir)
		if err != nil {
			emit(progress.Failed, "running post-install actions")
			return nil, xerrors.Errorf("runtime: post-install actions: %w", err)
		}
		for _, r := range results {
			logf("post-install action %q: %s", r.Action.Command, r.Outcome)
		}
	}

	if c.Header != nil {
		emit(progress.PhaseChanged, "updating environment")
		envmutate.Apply(envmutate.Set{
			AddPath:     c.Header.Env.AddPath,
			Set:         c.Header.Env.Set,
			SystemScope: c.Header.Env.SystemScope,
		}, installDir, func(msg string) { logf("%s", msg) })
	}

	emit(progress.Completed, "done")
	return &Outcome{InstallDir: installDir, ScriptResults: results}, nil
}

// ResolveInstallDir picks the effective install directory from an
// optional user-supplied override: the cleaned override if
// install.allow_user_path permits it, otherwise the header's
// default_path. It applies no silent-run rule; Install itself always uses
// default_path for a silent run (spec.md §6.1).
func ResolveInstallDir(h *config.Install, override string) (string, error) {
	if override == "" {
		return h.DefaultPath, nil
	}
	if !h.AllowUserPath {
		return "", xerrors.Errorf("runtime: install.allow_user_path is false, cannot override default_path")
	}
	return filepath.Clean(override), nil
}
