package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForOS(t *testing.T) {
	assert.Equal(t, "windows", ForOS("windows").Name())
	assert.Equal(t, "posix", ForOS("linux").Name())
	assert.Equal(t, "posix", ForOS("darwin").Name())
}

func TestPosixShell_Commands(t *testing.T) {
	linux := &PosixShell{GOOS: "linux"}
	assert.Equal(t, "ps aux --sort=-%cpu | head -n 6", linux.HeavyProcesses(5))
	assert.Equal(t, "case $(command -v top) in /*) ;; *) exit 1 ;; esac", linux.Locate("top"))

	darwin := &PosixShell{GOOS: "darwin"}
	assert.Equal(t, "ps aux -r | head -n 11", darwin.HeavyProcesses(10))
}

func TestWindowsShell_Commands(t *testing.T) {
	w := &WindowsShell{}
	assert.Contains(t, w.HeavyProcesses(3), "Select-Object -First 3")
	assert.Equal(t, "where tasklist", w.Locate("tasklist"))
}

func TestValidCommandName(t *testing.T) {
	for _, name := range []string{"ls", "python3", "g++", "kubectl-1.28", "7z.exe"} {
		assert.True(t, validCommandName(name), name)
	}
	for _, name := range []string{"", "ls; rm -rf /", "a b", "$(id)", "x|y", "../sh"} {
		assert.False(t, validCommandName(name), name)
	}
}
