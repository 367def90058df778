package log

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/grpc-ecosystem/go-grpc-middleware/logging/logrus/ctxlogrus"
	"github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/correlation"
	labkitlog "gitlab.com/gitlab-org/labkit/log"
	"gitlab.com/us-analytics/merge-rpd/internal/config"
)

const (
	// LogFileName is the name of the log file written into the configured
	// log directory.
	LogFileName = "merge-rpd.log"
	// LogTimestampFormat defines the timestamp format in log files
	LogTimestampFormat = "2006-01-02T15:04:05.000Z"
)

var (
	defaultLogger = logrus.StandardLogger()

	// Loggers is convenient when you want to apply configuration to all
	// loggers
	Loggers = []*logrus.Logger{defaultLogger}
)

func init() {
	// Git shows whatever a driver writes to stdout or stderr, so nothing
	// gets logged until Initialize has pointed the logger at a file.
	for _, l := range Loggers {
		l.Out = io.Discard
	}
}

// Configure sets the format and level on all loggers.
func Configure(loggers []*logrus.Logger, format string, level string) {
	var formatter logrus.Formatter
	switch format {
	case "json":
		formatter = &logrus.JSONFormatter{TimestampFormat: LogTimestampFormat}
	case "text":
		formatter = &logrus.TextFormatter{TimestampFormat: LogTimestampFormat}
	case "":
		// Just stick with the default
	default:
		logrus.WithField("format", format).Fatal("invalid logger format")
	}

	logrusLevel, err := logrus.ParseLevel(level)
	if err != nil {
		logrusLevel = logrus.InfoLevel
	}

	for _, l := range loggers {
		l.SetLevel(logrusLevel)

		if formatter != nil {
			l.Formatter = formatter
		}
	}
}

type closerFunc func() error

func (fn closerFunc) Close() error { return fn() }

// Initialize points the default logger at the log file in cfg.Dir. The
// returned closer releases the file and discards everything logged after.
// When logging is disabled everything is discarded right away.
func Initialize(cfg config.Logging) (io.Closer, error) {
	if cfg.Disabled {
		defaultLogger.SetOutput(io.Discard)
		return closerFunc(func() error { return nil }), nil
	}

	closer, err := labkitlog.Initialize(
		labkitlog.WithLogger(defaultLogger),
		labkitlog.WithFormatter(cfg.Format),
		labkitlog.WithLogLevel(cfg.Level),
		labkitlog.WithOutputName(filepath.Join(cfg.Dir, LogFileName)),
	)
	if err != nil {
		return nil, err
	}

	return closerFunc(func() error {
		defaultLogger.SetOutput(io.Discard)
		return closer.Close()
	}), nil
}

// ContextWithCorrelation tags ctx with the given correlation ID and stores a
// logger carrying it, so that everything logged on behalf of one driver
// invocation can be told apart in the shared log file.
func ContextWithCorrelation(ctx context.Context, correlationID string) context.Context {
	ctx = correlation.ContextWithCorrelation(ctx, correlationID)
	return ctxlogrus.ToContext(ctx, labkitlog.ContextLogger(ctx).WithField("pid", os.Getpid()))
}

// FromContext returns the logger stored in ctx. Without one, the returned
// logger discards everything.
func FromContext(ctx context.Context) *logrus.Entry {
	return ctxlogrus.Extract(ctx)
}

// Default is the default logrus logger
func Default() *logrus.Entry { return defaultLogger.WithField("pid", os.Getpid()) }
