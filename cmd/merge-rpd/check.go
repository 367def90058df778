package main

import (
	"context"
	"flag"
	"fmt"
	"path/filepath"

	"gitlab.com/us-analytics/merge-rpd/internal/log"
)

// checkSubcommand validates the configuration so that problems show up
// before git runs the driver.
type checkSubcommand struct{}

func (cmd *checkSubcommand) Flags(fs *flag.FlagSet) {}

func (cmd *checkSubcommand) Run(ctx context.Context, env *environment, args []string) error {
	if len(args) > 0 {
		return errTrailingArgs
	}

	if _, err := env.adminTool(); err != nil {
		return err
	}

	cfg := env.cfg
	logFile := "disabled"
	if !cfg.Logging.Disabled {
		logFile = filepath.Join(cfg.Logging.Dir, log.LogFileName)
	}

	_, err := fmt.Fprintf(env.stdout, "admin tool: %s\nwork dir: %s\nlog file: %s\nOK\n",
		cfg.AdminTool.BinPath, cfg.WorkDir, logFile)
	return err
}
