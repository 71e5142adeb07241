//go:build !windows

package envmutate

import "golang.org/x/xerrors"

// applyAddPath and applySet have no non-Windows persistent environment
// store to write to (spec.md §1, §5 scope the runtime to Windows); they
// return an error so Apply reports it through warn and continues,
// matching §4.9's recoverable-failure contract exactly — a missing OS
// capability is just another warning. This file exists purely so the
// package builds and tests on a non-Windows development machine.
func applyAddPath(systemScope bool, addPath []string) error {
	return xerrors.New("envmutate: persistent PATH edits are only supported on Windows")
}

func applySet(systemScope bool, sets map[string]string) error {
	return xerrors.New("envmutate: persistent environment variables are only supported on Windows")
}
