//go:build windows
// +build windows

package command

import (
	"os"
	"os/exec"
	"strconv"
)

type rusage struct {
	maxRSS   int64
	inBlock  int64
	outBlock int64
}

func setupProcessGroup(*exec.Cmd) {}

// terminate kills the process together with every process it started.
// Batch wrappers run the real program as a child of cmd.exe, and that child
// keeps the inherited output handles open when only cmd.exe is killed.
func terminate(process *os.Process) {
	taskkill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(process.Pid))
	if err := taskkill.Run(); err != nil {
		process.Kill()
	}
}

func resourceUsage(*os.ProcessState) *rusage { return nil }
