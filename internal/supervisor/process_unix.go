//go:build !windows

package supervisor

import "syscall"

// childProcessGroupAttr places the child in its own process group so Stop
// can signal the whole group, the way original_source's pipeline_launcher
// uses os.setsid before exec.
func childProcessGroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// terminateProcessGroupGraceful sends SIGTERM to the process group led by
// pid, mirroring original_source's os.killpg(os.getpgid(pid), SIGTERM).
func terminateProcessGroupGraceful(pid int) error {
	return syscall.Kill(-pid, syscall.SIGTERM)
}

// terminateProcessGroupForceful sends SIGKILL, used after the grace period
// expires without the child reaping on its own.
func terminateProcessGroupForceful(pid int) error {
	return syscall.Kill(-pid, syscall.SIGKILL)
}
