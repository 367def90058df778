package main

import (
	"context"
	"flag"
	"fmt"

	"gitlab.com/us-analytics/merge-rpd/internal/admintool"
	"gitlab.com/us-analytics/merge-rpd/internal/rpd"
)

type mergeSubcommand struct{}

func (cmd *mergeSubcommand) Flags(fs *flag.FlagSet) {
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: merge-rpd merge <ancestor> <current> <other> [<path>]")
	}
}

func (cmd *mergeSubcommand) Run(ctx context.Context, env *environment, args []string) error {
	if err := checkArgs("merge", args, 3, 4); err != nil {
		return err
	}

	req := rpd.MergeRequest{
		Ancestor: args[0],
		Current:  args[1],
		Other:    args[2],
	}
	if len(args) == 4 {
		req.Path = args[3]
	}

	password, err := env.adminTool()
	if err != nil {
		return err
	}

	merger := rpd.NewMerger(admintool.NewExecutor(env.cfg.AdminTool), env.cfg.WorkDir, password)
	return merger.Merge(ctx, req)
}

// adminTool validates the configuration and returns the repository
// password.
func (env *environment) adminTool() (string, error) {
	if err := env.cfg.Validate(); err != nil {
		return "", err
	}
	return env.cfg.AdminTool.ResolvePassword()
}
