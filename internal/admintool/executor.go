package admintool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"gitlab.com/us-analytics/merge-rpd/internal/command"
	"gitlab.com/us-analytics/merge-rpd/internal/config"
	"gitlab.com/us-analytics/merge-rpd/internal/log"
)

// ScriptFileName is the name of the script file written into the working
// directory of an invocation.
const ScriptFileName = "commands.usa"

// OutputFileName is the name of the file receiving the tool's standard
// output. A file is used rather than a pipe so that waiting for the tool
// never depends on processes it left behind.
const OutputFileName = "admintool.out"

// ExitError is returned when the administration tool exits with a non-zero
// exit code.
type ExitError struct {
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("admin tool exited with code %d", e.Code)
	if stderr := strings.TrimSpace(e.Stderr); stderr != "" {
		msg += ": " + stderr
	}
	return msg
}

// Executor runs scripts with the administration tool.
type Executor struct {
	binPath string
	timeout time.Duration
}

// NewExecutor returns an executor for the tool configured in cfg.
func NewExecutor(cfg config.AdminTool) *Executor {
	return &Executor{
		binPath: cfg.BinPath,
		timeout: cfg.Timeout.Duration(),
	}
}

// Run writes script into dir and executes it with the tool, using dir as
// working directory. The script file is removed afterwards since it contains
// the repository password.
func (e *Executor) Run(ctx context.Context, dir string, script Script) (returnedErr error) {
	name := script.Name()
	outcome := "success"
	start := time.Now()
	defer func() {
		if returnedErr != nil && outcome == "success" {
			outcome = "error"
		}
		invocationsTotal.WithLabelValues(name, outcome).Inc()
		invocationDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	contents, err := script.Render()
	if err != nil {
		return fmt.Errorf("render script: %w", err)
	}

	// The tool runs inside dir, so a relative dir would be resolved twice.
	dir, err = filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("working directory: %w", err)
	}

	scriptPath := filepath.Join(dir, ScriptFileName)
	if err := os.WriteFile(scriptPath, contents, 0600); err != nil {
		return fmt.Errorf("write script: %w", err)
	}
	defer os.Remove(scriptPath)

	// The command package only reaps processes once their context is done.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if e.timeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, e.timeout)
		defer timeoutCancel()
	}

	logger := log.FromContext(ctx).WithField("script", name)
	logger.WithField("commands", script.Redacted()).Debug("executing admin tool script")

	outputPath := filepath.Join(dir, OutputFileName)
	stdout, err := os.OpenFile(outputPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("create output file: %w", err)
	}
	defer os.Remove(outputPath)
	defer stdout.Close()

	cmd := exec.Command(e.binPath, "/Command", scriptPath)
	cmd.Dir = dir

	c, err := command.New(ctx, cmd, nil, stdout, nil)
	if err != nil {
		return fmt.Errorf("spawn admin tool: %w", err)
	}
	logger.WithField("pid", c.Pid()).Debug("admin tool started")

	waitErr := c.Wait()

	if output, err := os.ReadFile(outputPath); err == nil && len(output) > 0 {
		logger.WithField("output", string(output)).Debug("admin tool output")
	}

	if waitErr == nil {
		return nil
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		outcome = "timeout"
		return fmt.Errorf("admin tool timed out after %s", e.timeout)
	}

	if code, ok := command.ExitStatus(waitErr); ok && code >= 0 {
		outcome = "exit_code"
		logger.WithField("exit_code", code).Error("admin tool failed")
		return &ExitError{Code: code, Stderr: c.Stderr()}
	}

	return fmt.Errorf("wait admin tool: %w", waitErr)
}
