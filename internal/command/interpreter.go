package command

import (
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"runtime"
)

// Interpreter is the host command processor used to run inline command lines.
type Interpreter interface {
	// Name identifies the strategy in logs
	Name() string
	// Resolve locates the interpreter binary and returns the argv for commandLine
	Resolve(commandLine string) (path string, args []string, err error)
	// HeavyProcesses returns a command line listing the top limit processes by CPU
	HeavyProcesses(limit int) string
	// Locate returns a command line that succeeds iff name is found on PATH
	Locate(name string) string
}

// HostInterpreter returns the strategy for the operating system this binary runs on
func HostInterpreter() Interpreter {
	return ForOS(runtime.GOOS)
}

// ForOS returns the strategy for goos
func ForOS(goos string) Interpreter {
	if goos == "windows" {
		return &WindowsShell{}
	}
	return &PosixShell{GOOS: goos}
}

// PosixShell runs command lines with `sh -c`.
type PosixShell struct {
	// Path to the shell; /bin/sh when empty
	Path string
	GOOS string
}

func (p *PosixShell) Name() string { return "posix" }

func (p *PosixShell) Resolve(commandLine string) (string, []string, error) {
	path := p.Path
	if path == "" {
		path = "/bin/sh"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		// fall back to whatever sh is on PATH
		if resolved, err = exec.LookPath("sh"); err != nil {
			return "", nil, err
		}
	}
	return resolved, []string{"-c", commandLine}, nil
}

func (p *PosixShell) HeavyProcesses(limit int) string {
	// header line plus limit rows
	if p.GOOS == "darwin" || p.GOOS == "freebsd" || p.GOOS == "openbsd" || p.GOOS == "netbsd" {
		return fmt.Sprintf("ps aux -r | head -n %d", limit+1)
	}
	return fmt.Sprintf("ps aux --sort=-%%cpu | head -n %d", limit+1)
}

// Locate succeeds only when name resolves to a file on PATH. Builtins,
// functions and aliases print a bare word from `command -v` and are rejected.
func (p *PosixShell) Locate(name string) string {
	return fmt.Sprintf("case $(command -v %s) in /*) ;; *) exit 1 ;; esac", name)
}

// WindowsShell runs command lines with `cmd.exe /c`.
type WindowsShell struct {
	// Path to the command processor; %ComSpec% or cmd.exe when empty
	Path string
}

func (w *WindowsShell) Name() string { return "windows" }

func (w *WindowsShell) Resolve(commandLine string) (string, []string, error) {
	path := w.Path
	if path == "" {
		path = os.Getenv("ComSpec")
	}
	if path == "" {
		path = "cmd.exe"
	}
	resolved, err := exec.LookPath(path)
	if err != nil {
		return "", nil, err
	}
	return resolved, []string{"/c", commandLine}, nil
}

func (w *WindowsShell) HeavyProcesses(limit int) string {
	return fmt.Sprintf(`powershell -NoProfile -Command "Get-Process | Sort-Object CPU -Descending | Select-Object -First %d Id,ProcessName,CPU,WorkingSet | Format-Table -AutoSize"`, limit)
}

func (w *WindowsShell) Locate(name string) string {
	return "where " + name
}

var commandNamePattern = regexp.MustCompile(`^[A-Za-z0-9._+-]+$`)

// validCommandName reports whether name is safe to splice into a locate probe
func validCommandName(name string) bool {
	return commandNamePattern.MatchString(name)
}
