package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"gitlab.com/us-analytics/merge-rpd/internal/command"
	"gitlab.com/us-analytics/merge-rpd/internal/config"
	"gitlab.com/us-analytics/merge-rpd/internal/dontpanic"
	"gitlab.com/us-analytics/merge-rpd/internal/log"
	"gitlab.com/us-analytics/merge-rpd/internal/sentry"
	"gitlab.com/us-analytics/merge-rpd/internal/version"
)

const progname = "merge-rpd"

var (
	errTrailingArgs = errors.New("trailing arguments")
	errPanic        = errors.New("unexpected failure, see the log file for details")
)

type subcmd interface {
	Flags(*flag.FlagSet)
	Run(ctx context.Context, env *environment, args []string) error
}

var subcommands = map[string]subcmd{
	"merge":    &mergeSubcommand{},
	"diff":     &diffSubcommand{},
	"difftool": &difftoolSubcommand{},
	"check":    &checkSubcommand{},
	"install":  &installSubcommand{},
	"version":  &versionSubcommand{},
}

// withoutConfig lists subcommands which run without loading the
// configuration.
var withoutConfig = map[string]bool{
	"version": true,
}

// environment is what subcommands get to work with.
type environment struct {
	cfg        config.Cfg
	configPath string
	stdout     io.Writer
	getenv     func(string) string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, os.Getenv))
}

// run executes the command line args and returns the exit code. Errors are
// printed to stderr in the form git shows to the user.
func run(args []string, stdout, stderr io.Writer, getenv func(string) string) int {
	if err := execute(args, stdout, stderr, getenv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error - %s\n", err)
		return 1
	}
	return 0
}

func execute(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet(progname, flag.ContinueOnError)
	flags.SetOutput(stderr)
	configPath := flags.String("config", "", "Location of the configuration file")
	if err := flags.Parse(args); err != nil {
		return err
	}

	if flags.NArg() < 1 {
		return errors.New("missing subcommand")
	}

	subcmdName := flags.Arg(0)
	subcmd, ok := subcommands[subcmdName]
	if !ok {
		return fmt.Errorf("unknown subcommand: %q", subcmdName)
	}

	subcmdFlags := flag.NewFlagSet(subcmdName, flag.ContinueOnError)
	subcmdFlags.SetOutput(stderr)
	subcmd.Flags(subcmdFlags)
	if err := subcmdFlags.Parse(flags.Args()[1:]); err != nil {
		return err
	}

	env := &environment{
		configPath: *configPath,
		stdout:     stdout,
		getenv:     getenv,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if withoutConfig[subcmdName] {
		return subcmd.Run(ctx, env, subcmdFlags.Args())
	}

	cfg, err := config.LoadFile(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	env.cfg = cfg

	closer, err := log.Initialize(cfg.Logging)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	defer closer.Close()

	sentry.ConfigureSentry(version.GetVersion(), cfg.Logging.Sentry)
	defer sentry.Flush()

	ctx = log.ContextWithCorrelation(command.InitContextStats(ctx), uuid.New().String())
	logger := log.FromContext(ctx).WithField("subcommand", subcmdName)
	logger.WithField("args", subcmdFlags.Args()).Debug("starting")

	var runErr error
	if !dontpanic.Try(ctx, func() { runErr = subcmd.Run(ctx, env, subcmdFlags.Args()) }) {
		runErr = errPanic
	}

	if stats := command.StatsFromContext(ctx); stats != nil {
		logger = logger.WithFields(stats.Fields())
	}

	if runErr != nil {
		if id := sentry.CaptureError(ctx, runErr); id != nil {
			logger = logger.WithField("sentry_id", *id)
		}
		logger.WithError(runErr).Error("failed")
	} else {
		logger.Debug("finished")
	}

	writeMetrics(cfg.Prometheus, logger)

	return runErr
}

// writeMetrics dumps all metrics for the node exporter's textfile collector.
func writeMetrics(cfg config.Prometheus, logger logrus.FieldLogger) {
	if cfg.Textfile == "" {
		return
	}

	if err := prometheus.WriteToTextfile(cfg.Textfile, prometheus.DefaultGatherer); err != nil {
		logger.Warnf("writing metrics: %v", err)
	}
}

// checkArgs fails if args has fewer than min or more than max entries.
func checkArgs(name string, args []string, min, max int) error {
	if len(args) < min {
		return fmt.Errorf("not enough arguments for %s", name)
	}
	if len(args) > max {
		return errTrailingArgs
	}
	return nil
}
