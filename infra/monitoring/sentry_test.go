package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/saltplan/config"
	coremon "github.com/kilianp07/saltplan/core/monitoring"
)

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(config.SentryConfig{})
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestSentryMonitorCapturesTaggedErrors(t *testing.T) {
	var mu sync.Mutex
	var captured []*sentry.Event
	m, err := newSentryMonitor(sentry.ClientOptions{
		Dsn: "https://public@example.com/1",
		BeforeSend: func(ev *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			mu.Lock()
			captured = append(captured, ev)
			mu.Unlock()
			return nil
		},
	})
	require.NoError(t, err)

	m.CaptureException(errors.New("runlog append failed"), map[string]string{"component": "runlog"})
	m.CaptureException(nil, nil)
	m.CapturePanic("boom")
	m.Flush(time.Second)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, captured, 2)
	assert.Equal(t, "runlog", captured[0].Tags["component"])
}
