//go:build !windows

package script

import "os/exec"

// configureHidden is a no-op off Windows: there is no console window to
// hide. This file exists purely so the package still builds and tests
// on a non-Windows development machine (spec.md §1, §5 scope the actual
// runtime to Windows only).
func configureHidden(cmd *exec.Cmd) {}

// configureTreeKill falls back to killing just the direct child; without
// a job-object equivalent, grandchildren a script spawns are not
// guaranteed to die. Acceptable here since this file only exists for
// development-time builds and tests, never for a shipped installer. The
// returned hooks are no-ops so runner.go's Start/Wait bracketing stays
// identical across platforms.
func configureTreeKill(cmd *exec.Cmd) (assign func(), release func()) {
	cmd.Cancel = func() error {
		if cmd.Process != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	return func() {}, func() {}
}
