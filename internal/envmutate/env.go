// Package envmutate implements the Environment Mutator (spec.md §4.9):
// applying add_path/set edits to the platform's persistent environment
// store after a successful extraction. Every write is best-effort —
// failures are reported through warn and never abort installation, the
// one contract this whole package exists to uphold.
package envmutate

import (
	"os"
	"strings"
)

// Warner receives a human-readable warning for a recoverable failure
// (an unavailable elevated scope, a registry write that failed, ...).
// Callers typically wire this to the Log Sink.
type Warner func(msg string)

// Set describes the add_path/set edits to apply, already carrying
// system_scope — this package has no dependency on internal/config so
// it stays usable from both the runtime and standalone tests.
type Set struct {
	AddPath     []string
	Set         map[string]string
	SystemScope bool
}

// Apply substitutes %INSTALL_DIR% in every value, then applies add_path
// and set edits to the platform environment store (spec.md §4.9). It
// never returns an error: every failure is recoverable and reported via
// warn instead.
func Apply(s Set, installDir string, warn Warner) {
	if warn == nil {
		warn = func(string) {}
	}

	addPath := make([]string, len(s.AddPath))
	for i, p := range s.AddPath {
		addPath[i] = substitute(p, installDir)
	}
	sets := make(map[string]string, len(s.Set))
	for k, v := range s.Set {
		sets[k] = substitute(v, installDir)
	}

	if len(addPath) > 0 {
		if err := applyAddPath(s.SystemScope, addPath); err != nil {
			warn("envmutate: add_path: " + err.Error())
		}
	}
	if len(sets) > 0 {
		if err := applySet(s.SystemScope, sets); err != nil {
			warn("envmutate: set: " + err.Error())
		}
	}
}

func substitute(s, installDir string) string {
	return strings.ReplaceAll(s, "%INSTALL_DIR%", installDir)
}

// containsPathEntry reports whether candidate is already present in
// path (platform PATH-separator-delimited) as a case-insensitive match
// (spec.md §4.9 "add_path").
func containsPathEntry(path, candidate string) bool {
	for _, entry := range strings.Split(path, string(os.PathListSeparator)) {
		if strings.EqualFold(entry, candidate) {
			return true
		}
	}
	return false
}
