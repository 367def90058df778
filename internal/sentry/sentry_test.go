package sentry

import (
	"context"
	"errors"
	"testing"
	"time"

	sentry "github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/require"
	"gitlab.com/gitlab-org/labkit/correlation"
	"gitlab.com/us-analytics/merge-rpd/internal/config"
)

type recordingTransport struct {
	events []*sentry.Event
}

func (t *recordingTransport) Configure(sentry.ClientOptions) {}
func (t *recordingTransport) SendEvent(event *sentry.Event) { t.events = append(t.events, event) }
func (t *recordingTransport) Flush(time.Duration) bool { return true }

func TestConfigureSentryWithoutDSN(t *testing.T) {
	ConfigureSentry("1.0.0", config.Sentry{})
	require.Nil(t, sentry.CurrentHub().Client())
	require.Nil(t, CaptureError(context.Background(), errors.New("merge failed")))
	Flush()
}

func TestCaptureError(t *testing.T) {
	transport := &recordingTransport{}
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:       "https://public@sentry.example.com/1",
		Transport: transport,
	})
	require.NoError(t, err)

	hub := sentry.CurrentHub()
	hub.BindClient(client)
	defer hub.BindClient(nil)

	ctx := correlation.ContextWithCorrelation(context.Background(), "session-1234")
	require.NotNil(t, CaptureError(ctx, errors.New("merge failed")))

	require.Len(t, transport.events, 1)
	require.Equal(t, "session-1234", transport.events[0].Tags["correlation_id"])
}
