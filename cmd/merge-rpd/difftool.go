package main

import (
	"context"
	"flag"
	"fmt"

	"gitlab.com/us-analytics/merge-rpd/internal/comparison"
)

type difftoolSubcommand struct{}

func (cmd *difftoolSubcommand) Flags(fs *flag.FlagSet) {
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: merge-rpd difftool [<local> <remote>]")
	}
}

func (cmd *difftoolSubcommand) Run(ctx context.Context, env *environment, args []string) error {
	if len(args) == 0 {
		args = []string{env.getenv("LOCAL"), env.getenv("REMOTE")}
		if args[0] == "" || args[1] == "" {
			args = nil
		}
	}
	if err := checkArgs("difftool", args, 2, 2); err != nil {
		return err
	}

	local, remote := args[0], args[1]

	changes, err := env.compare(ctx, local, remote)
	if err != nil {
		return err
	}

	return comparison.WriteTable(env.stdout, changes)
}
