package main

import (
	"context"
	"flag"
	"fmt"

	"gitlab.com/us-analytics/merge-rpd/internal/version"
)

type versionSubcommand struct{}

func (cmd *versionSubcommand) Flags(fs *flag.FlagSet) {}

func (cmd *versionSubcommand) Run(ctx context.Context, env *environment, args []string) error {
	if len(args) > 0 {
		return errTrailingArgs
	}

	_, err := fmt.Fprintln(env.stdout, version.GetVersionString())
	return err
}
