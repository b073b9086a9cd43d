// internal/taskqueue/taskqueue_test.go
package taskqueue

import (
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue() *Queue {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(logger)
}

func TestScheduleRunsAfterDelay(t *testing.T) {
	q := newTestQueue()
	fired := make(chan any, 1)
	q.DefineExecutor("greet", func(payload any) error {
		fired <- payload
		return nil
	})

	start := time.Now()
	q.Schedule(Task{
		ScheduledAt: start.Add(50 * time.Millisecond),
		Type:        "greet",
		Payload:     "hello",
	})

	select {
	case payload := <-fired:
		assert.Equal(t, "hello", payload)
		assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
	case <-time.After(time.Second):
		t.Fatal("task never fired")
	}
}

func TestSchedulePastDueRunsImmediately(t *testing.T) {
	q := newTestQueue()
	fired := make(chan struct{}, 1)
	q.DefineExecutor("now", func(any) error {
		fired <- struct{}{}
		return nil
	})

	q.Schedule(Task{
		ScheduledAt: time.Now().Add(-time.Minute),
		Type:        "now",
	})

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("past-due task never fired")
	}
}

func TestExecutorErrorIsSwallowed(t *testing.T) {
	q := newTestQueue()
	fired := make(chan struct{}, 2)
	q.DefineExecutor("flaky", func(any) error {
		fired <- struct{}{}
		return errors.New("boom")
	})

	q.Schedule(Task{ScheduledAt: time.Now(), Type: "flaky"})
	q.Schedule(Task{ScheduledAt: time.Now(), Type: "flaky"})

	// Both run; the first failure does not take the queue down.
	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(time.Second):
			t.Fatal("executor did not run")
		}
	}
}

func TestUnknownTaskTypeIsDropped(t *testing.T) {
	q := newTestQueue()
	require.NotPanics(t, func() {
		q.Schedule(Task{ScheduledAt: time.Now(), Type: "unregistered"})
		time.Sleep(20 * time.Millisecond)
	})
}

func TestDefineExecutorReplaces(t *testing.T) {
	q := newTestQueue()
	fired := make(chan string, 1)
	q.DefineExecutor("job", func(any) error {
		fired <- "first"
		return nil
	})
	q.DefineExecutor("job", func(any) error {
		fired <- "second"
		return nil
	})

	q.Schedule(Task{ScheduledAt: time.Now(), Type: "job"})

	select {
	case who := <-fired:
		assert.Equal(t, "second", who)
	case <-time.After(time.Second):
		t.Fatal("task never fired")
	}
}
