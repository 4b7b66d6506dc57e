package stats

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReporter_ReportsUntilCancelled(t *testing.T) {
	logger, hook := test.NewNullLogger()
	var calls int32

	r := NewReporter(10*time.Millisecond,
		WithLogger(logger),
		WithSource(func() logrus.Fields {
			atomic.AddInt32(&calls, 1)
			return logrus.Fields{"subscriptions": 2}
		}),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Start(ctx) }()

	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("reporter did not stop")
	}

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "Application stats", entry.Message)
	assert.Equal(t, 2, entry.Data["subscriptions"])
	assert.Contains(t, entry.Data, "goroutines")
	assert.Equal(t, "stats", entry.Data["component"])
}

func TestRuntime(t *testing.T) {
	fields := Runtime()
	assert.Greater(t, fields["goroutines"], 0)
	assert.Contains(t, fields, "alloc_mb")
}
