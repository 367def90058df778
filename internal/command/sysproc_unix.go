//go:build !windows
// +build !windows

package command

import (
	"os"
	"os/exec"
	"syscall"
)

type rusage struct {
	maxRSS   int64
	inBlock  int64
	outBlock int64
}

// Start the command in its own process group (nice for signalling)
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// terminate sends SIGTERM to the process group of the process.
func terminate(process *os.Process) {
	syscall.Kill(-process.Pid, syscall.SIGTERM)
}

func resourceUsage(state *os.ProcessState) *rusage {
	usage, ok := state.SysUsage().(*syscall.Rusage)
	if !ok {
		return nil
	}

	return &rusage{
		maxRSS:   int64(usage.Maxrss),
		inBlock:  int64(usage.Inblock),
		outBlock: int64(usage.Oublock),
	}
}
