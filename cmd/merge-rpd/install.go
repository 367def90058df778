package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"gitlab.com/us-analytics/merge-rpd/internal/install"
)

type installSubcommand struct {
	global     bool
	name       string
	attributes string
	pattern    string
}

func (cmd *installSubcommand) Flags(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.global, "global", false, "write the global git configuration")
	fs.StringVar(&cmd.name, "name", install.DefaultName, "name of the driver")
	fs.StringVar(&cmd.attributes, "attributes", "", "attributes file to update (default: .gitattributes of the repository)")
	fs.StringVar(&cmd.pattern, "pattern", install.DefaultPattern, "pattern of the files handled by the driver")
}

func (cmd *installSubcommand) Run(ctx context.Context, env *environment, args []string) error {
	if len(args) > 0 {
		return errTrailingArgs
	}

	if err := env.cfg.SetGitPath(); err != nil {
		return fmt.Errorf("locate git: %w", err)
	}

	executable, err := os.Executable()
	if err != nil {
		return err
	}

	configPath := env.configPath
	if configPath != "" {
		if configPath, err = filepath.Abs(configPath); err != nil {
			return err
		}
	}

	result, err := install.Install(ctx, install.Options{
		GitBinPath: env.cfg.Git.BinPath,
		Executable: executable,
		ConfigPath: configPath,
		Name:       cmd.name,
		Global:     cmd.global,
		Attributes: cmd.attributes,
		Pattern:    cmd.pattern,
	})
	if err != nil {
		return err
	}

	for _, entry := range result.Config {
		fmt.Fprintf(env.stdout, "set %s = %s\n", entry.Key, entry.Value)
	}
	for _, line := range result.AttributesAdded {
		fmt.Fprintf(env.stdout, "added %q to %s\n", line, result.Attributes)
	}

	return nil
}
