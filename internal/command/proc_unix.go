//go:build !windows

package command

import (
	"os"
	"os/exec"
	"syscall"
)

// configureSysProcAttr puts the shell in its own process group so the whole
// tree can be killed at once.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessTree forcibly terminates p and every process in its group. A
// reaped leader's pgid stays reserved while any member is alive, so the group
// kill is still safe after Wait.
func killProcessTree(p *os.Process, reaped bool) {
	if p == nil {
		return
	}
	_ = syscall.Kill(-p.Pid, syscall.SIGKILL)
	if !reaped {
		_ = p.Kill()
	}
}
