package main

import (
	"context"
	"flag"
	"fmt"

	"gitlab.com/us-analytics/merge-rpd/internal/admintool"
	"gitlab.com/us-analytics/merge-rpd/internal/comparison"
	"gitlab.com/us-analytics/merge-rpd/internal/rpd"
)

// diffSubcommand implements git's external diff interface. Git passes
// either the path alone for unmerged paths, or
//
//	path old-file old-hex old-mode new-file new-hex new-mode
//
// optionally followed by the new name and rename information.
type diffSubcommand struct{}

func (cmd *diffSubcommand) Flags(fs *flag.FlagSet) {
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: merge-rpd diff <path> [<old-file> <old-hex> <old-mode> <new-file> <new-hex> <new-mode>]")
	}
}

func (cmd *diffSubcommand) Run(ctx context.Context, env *environment, args []string) error {
	if len(args) == 1 {
		return comparison.WriteUnmerged(env.stdout, args[0])
	}
	if err := checkArgs("diff", args, 7, 9); err != nil {
		return err
	}

	path := args[0]
	oldFile, oldMode := args[1], args[3]
	newFile, newMode := args[4], args[6]

	switch {
	case oldFile == comparison.DevNull:
		return comparison.WriteFileMode(env.stdout, path, true, newMode)
	case newFile == comparison.DevNull:
		return comparison.WriteFileMode(env.stdout, path, false, oldMode)
	}

	changes, err := env.compare(ctx, oldFile, newFile)
	if err != nil {
		return err
	}

	return comparison.WriteDiff(env.stdout, path, changes)
}

func (env *environment) compare(ctx context.Context, oldFile, newFile string) ([]comparison.Change, error) {
	password, err := env.adminTool()
	if err != nil {
		return nil, err
	}

	comparer := rpd.NewComparer(admintool.NewExecutor(env.cfg.AdminTool), env.cfg.WorkDir, password)
	return comparer.Compare(ctx, rpd.CompareRequest{Old: oldFile, New: newFile})
}
