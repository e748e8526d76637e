//go:build windows

package command

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
}

// killProcessTree forcibly terminates p and its descendants. Once p has been
// reaped its PID may belong to an unrelated process, so nothing is killed.
func killProcessTree(p *os.Process, reaped bool) {
	if p == nil || reaped {
		return
	}
	kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(p.Pid))
	kill.SysProcAttr = &syscall.SysProcAttr{HideWindow: true}
	_ = kill.Run()
	_ = p.Kill()
}
