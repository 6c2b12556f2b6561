package sender

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDispatcherExecutesJobs(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})

	var mu sync.Mutex
	var runs int
	require.NoError(t, d.Enqueue(context.Background(), "sendMessage", "chat:1", func() error {
		mu.Lock()
		defer mu.Unlock()
		runs++
		return nil
	}))
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, runs)
	require.Zero(t, d.ErrorCount())
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{
		Workers:      1,
		MaxRetries:   2,
		RetryBackoff: time.Millisecond,
	})

	var mu sync.Mutex
	var attempts int
	require.NoError(t, d.Enqueue(context.Background(), "sendMessage", "chat:1", func() error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return &net.DNSError{Err: "lookup timeout", IsTimeout: true}
		}
		return nil
	}))
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 3, attempts)
	require.Zero(t, d.ErrorCount())
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})

	require.NoError(t, d.Enqueue(context.Background(), "sendMessage", "chat:1", func() error {
		return errors.New("Bad Request: chat not found (400)")
	}))
	d.Close()

	require.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcherRejectsWhenFull(t *testing.T) {
	d := NewDispatcher(Options{QueueSize: 1, Workers: 1})
	defer d.Close()

	block := make(chan struct{})
	release := func() error { <-block; return nil }

	// One job occupies the worker, one fills the queue slot.
	require.NoError(t, d.Enqueue(context.Background(), "a", "", release))
	var err error
	for i := 0; i < 50; i++ {
		if err = d.Enqueue(context.Background(), "b", "", release); err != nil {
			break
		}
	}
	require.ErrorIs(t, err, ErrQueueFull)
	close(block)
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1})
	d.Close()

	err := d.Enqueue(context.Background(), "sendMessage", "", func() error { return nil })
	require.ErrorIs(t, err, ErrQueueClosed)
}

func TestSanitizeErrorMessageRedactsToken(t *testing.T) {
	err := fmt.Errorf("Post https://api.telegram.org/bot123456:AAH-secret_Token/sendMessage: timeout")
	msg := sanitizeErrorMessage(err)
	require.NotContains(t, msg, "123456:AAH")
	require.Contains(t, msg, "bot<redacted>")
}

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"deadline", context.DeadlineExceeded, "timeout"},
		{"dns", &net.DNSError{Err: "no such host"}, "dns"},
		{"dns timeout", &net.DNSError{Err: "lookup", IsTimeout: true}, "timeout"},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, "dial"},
		{"http 5xx", errors.New("telegram: internal (502)"), "http_5xx"},
		{"http 4xx", errors.New("telegram: forbidden (403)"), "http_4xx"},
		{"unknown", errors.New("weird"), "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, classifyError(tc.err))
		})
	}
}
