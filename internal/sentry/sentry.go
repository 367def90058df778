package sentry

import (
	"context"
	"time"

	sentry "github.com/getsentry/sentry-go"
	log "github.com/sirupsen/logrus"
	"gitlab.com/gitlab-org/labkit/correlation"
	"gitlab.com/us-analytics/merge-rpd/internal/config"
)

// flushTimeout bounds how long the driver waits for queued events on exit.
const flushTimeout = 2 * time.Second

// ConfigureSentry configures the sentry DSN
func ConfigureSentry(version string, sentryConf config.Sentry) {
	if sentryConf.DSN == "" {
		return
	}

	log.Debug("Using sentry logging")
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         sentryConf.DSN,
		Environment: sentryConf.Environment,
		Release:     "v" + version,
	})
	if err != nil {
		log.Warnf("Unable to initialize sentry client: %v", err)
	}
}

// CaptureError reports err tagged with the correlation ID of ctx. It returns
// nil if Sentry is not configured.
func CaptureError(ctx context.Context, err error) *sentry.EventID {
	hub := sentry.CurrentHub().Clone()
	if hub.Client() == nil {
		return nil
	}

	if correlationID := correlation.ExtractFromContext(ctx); correlationID != "" {
		hub.Scope().SetTag("correlation_id", correlationID)
	}

	return hub.CaptureException(err)
}

// Flush waits for queued events to be sent.
func Flush() {
	if sentry.CurrentHub().Client() == nil {
		return
	}
	sentry.Flush(flushTimeout)
}
