//go:build windows

package script

import (
	"os/exec"
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows"
)

// configureHidden starts the child process without allocating a visible
// console window (spec.md §4.8 "Hidden").
func configureHidden(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.HideWindow = true
	cmd.SysProcAttr.CreationFlags |= windows.CREATE_NEW_PROCESS_GROUP
}

// configureTreeKill prepares cmd to take its whole process tree down on
// cancellation, via a Windows Job Object configured to kill every
// member process when the job handle closes — the only way to reach
// grandchildren a batch/PowerShell script itself spawned, the direct
// analogue of the teacher's process-group/namespace control via
// golang.org/x/sys/unix (internal/build/build.go's
// syscall.SysProcAttr{Cloneflags: ...}) for this Windows-only runtime.
//
// It returns two hooks the caller must run at the right points in the
// exec.Cmd lifecycle: assign, immediately after cmd.Start() returns
// successfully (so the child is in the job well before Wait, whether or
// not cancellation ever happens), and release, once cmd.Wait() has
// returned, so the job handle does not leak on an ordinary run that is
// never cancelled.
func configureTreeKill(cmd *exec.Cmd) (assign func(), release func()) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		// Best effort: fall back to killing just the direct child.
		cmd.Cancel = func() error {
			if cmd.Process != nil {
				return cmd.Process.Kill()
			}
			return nil
		}
		return func() {}, func() {}
	}

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}
	_ = windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)

	cmd.Cancel = func() error {
		return windows.TerminateJobObject(job, 1)
	}

	assign = func() {
		if cmd.Process == nil {
			return
		}
		h, err := windows.OpenProcess(windows.PROCESS_ALL_ACCESS, false, uint32(cmd.Process.Pid))
		if err != nil {
			return
		}
		defer windows.CloseHandle(h)
		_ = windows.AssignProcessToJobObject(job, h)
	}
	release = func() {
		windows.CloseHandle(job)
	}
	return assign, release
}
