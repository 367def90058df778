// Package dontpanic provides a function wrapper to ensure that wrapped code
// does not panic and crash the driver without a trace. Git would only
// report a failed driver, the log file and Sentry keep the details.
package dontpanic

import (
	"context"
	"runtime/debug"

	sentry "github.com/getsentry/sentry-go"
	"gitlab.com/gitlab-org/labkit/correlation"
	"gitlab.com/us-analytics/merge-rpd/internal/log"
)

// Try will wrap the provided function with a panic recovery. If a panic occurs,
// the recovered panic will be sent to Sentry and logged as an error with the
// logger of ctx. Returns `true` if no panic and `false` otherwise.
func Try(ctx context.Context, fn func()) bool { return catchAndLog(ctx, fn) }

func catchAndLog(ctx context.Context, fn func()) bool {
	var id *sentry.EventID
	var recovered interface{}
	var stack []byte
	normal := true

	func() {
		defer func() {
			recovered = recover()
			if recovered == nil {
				return
			}

			normal = false
			stack = debug.Stack()
			id = sentry.CurrentHub().Recover(recovered)
		}()
		fn()
	}()

	if normal {
		return true
	}

	logger := log.FromContext(ctx).WithField("stack", string(stack))
	if correlationID := correlation.ExtractFromContext(ctx); correlationID != "" {
		logger = logger.WithField(correlation.FieldName, correlationID)
	}
	if id != nil && *id != "" {
		logger = logger.WithField("sentry_id", *id)
	}
	logger.Errorf("dontpanic: recovered value: %+v", recovered)

	return false
}
