//go:build windows

package envmutate

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/windows/registry"
	"golang.org/x/xerrors"
)

// userEnvironmentPath and systemEnvironmentPath name the registry keys
// holding the persistent user- and machine-scoped environment, the same
// locations Windows' own System Properties "Environment Variables"
// dialog edits.
const (
	userEnvironmentPath   = `Environment`
	systemEnvironmentPath = `SYSTEM\CurrentControlSet\Control\Session Manager\Environment`
)

func openEnvironmentKey(systemScope bool) (registry.Key, error) {
	if systemScope {
		return registry.OpenKey(registry.LOCAL_MACHINE, systemEnvironmentPath, registry.QUERY_VALUE|registry.SET_VALUE)
	}
	return registry.OpenKey(registry.CURRENT_USER, userEnvironmentPath, registry.QUERY_VALUE|registry.SET_VALUE)
}

func applyAddPath(systemScope bool, addPath []string) error {
	key, err := openEnvironmentKey(systemScope)
	if err != nil {
		return xerrors.Errorf("envmutate: open environment key: %w", err)
	}
	defer key.Close()

	current, _, err := key.GetStringValue("Path")
	if err != nil && err != registry.ErrNotExist {
		return xerrors.Errorf("envmutate: read Path: %w", err)
	}

	changed := false
	for _, p := range addPath {
		if containsPathEntry(current, p) {
			continue
		}
		if current != "" && !hasTrailingSeparator(current) {
			current += ";"
		}
		current += p
		changed = true
	}
	if !changed {
		return nil
	}
	if err := key.SetExpandStringValue("Path", current); err != nil {
		return xerrors.Errorf("envmutate: write Path: %w", err)
	}
	broadcastEnvironmentChange()
	return nil
}

func applySet(systemScope bool, sets map[string]string) error {
	key, err := openEnvironmentKey(systemScope)
	if err != nil {
		return xerrors.Errorf("envmutate: open environment key: %w", err)
	}
	defer key.Close()

	for name, value := range sets {
		if err := key.SetExpandStringValue(name, value); err != nil {
			return xerrors.Errorf("envmutate: write %s: %w", name, err)
		}
	}
	broadcastEnvironmentChange()
	return nil
}

func hasTrailingSeparator(s string) bool {
	return len(s) > 0 && s[len(s)-1] == ';'
}

// broadcastEnvironmentChange notifies running shells that the persistent
// environment changed, so a newly spawned cmd.exe/PowerShell picks up
// the edit without a logoff (spec.md §4.9). golang.org/x/sys/windows
// does not wrap this user32 message-loop call, so it's resolved directly
// via syscall.NewLazyDLL the way most Go Windows-GUI-interop code does
// for the handful of user32/shell32 functions that package omits.
func broadcastEnvironmentChange() {
	const (
		hwndBroadcast   = 0xffff
		wmSettingChange = 0x001A
		smtoAbortIfHung = 0x0002
	)
	user32 := syscall.NewLazyDLL("user32.dll")
	sendMessageTimeout := user32.NewProc("SendMessageTimeoutW")

	param, err := syscall.UTF16PtrFromString("Environment")
	if err != nil {
		return
	}
	var result uintptr
	sendMessageTimeout.Call(
		uintptr(hwndBroadcast),
		uintptr(wmSettingChange),
		0,
		uintptr(unsafe.Pointer(param)),
		uintptr(smtoAbortIfHung),
		uintptr(5000),
		uintptr(unsafe.Pointer(&result)),
	)
}
