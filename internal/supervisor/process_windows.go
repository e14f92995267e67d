//go:build windows

package supervisor

import (
	"os"
	"syscall"
)

// childProcessGroupAttr starts the child in a new console/process group so
// it can be terminated as a unit; Windows has no setpgid equivalent.
func childProcessGroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: 0x00000200} // CREATE_NEW_PROCESS_GROUP
}

// terminateProcessGroupGraceful has no clean equivalent to SIGTERM on
// Windows for an arbitrary process group; it goes straight to Kill.
func terminateProcessGroupGraceful(pid int) error {
	return terminateProcessGroupForceful(pid)
}

func terminateProcessGroupForceful(pid int) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return proc.Kill()
}
