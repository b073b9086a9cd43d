// internal/taskqueue/taskqueue.go
package taskqueue

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Task is a delayed unit of work. Tasks are fire-and-forget: they are not
// persisted and do not survive a process restart. There is no cancellation
// API; callers that need to invalidate a pending task embed a snapshot in
// the payload and re-check it at fire time.
type Task struct {
	ScheduledAt time.Time
	Type        string
	Payload     any
}

// Executor runs one task payload. A returned error is logged and the task
// is dropped; there is no retry.
type Executor func(payload any) error

// Queue schedules named tasks against registered executors.
type Queue struct {
	logger *logrus.Logger

	mu        sync.Mutex
	executors map[string]Executor
}

// New returns an empty queue logging through the given logger.
func New(logger *logrus.Logger) *Queue {
	return &Queue{
		logger:    logger,
		executors: make(map[string]Executor),
	}
}

// DefineExecutor registers the handler for a task type. Exactly one handler
// per type; a second registration replaces the first.
func (q *Queue) DefineExecutor(taskType string, executor Executor) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.executors[taskType] = executor
}

// Schedule arranges for the task's executor to run once the scheduled time
// has passed. Tasks already due run immediately. Never blocks the caller.
func (q *Queue) Schedule(task Task) {
	delay := time.Until(task.ScheduledAt)
	if delay < 0 {
		delay = 0
	}
	q.logger.WithFields(logrus.Fields{
		"type":  task.Type,
		"delay": delay,
	}).Debug("Scheduling task")

	time.AfterFunc(delay, func() { q.execute(task) })
}

func (q *Queue) execute(task Task) {
	q.mu.Lock()
	executor, ok := q.executors[task.Type]
	q.mu.Unlock()

	if !ok {
		q.logger.WithField("type", task.Type).Warn("No executor for task type, dropping")
		return
	}

	if err := executor(task.Payload); err != nil {
		q.logger.WithFields(logrus.Fields{
			"type":  task.Type,
			"error": err,
		}).Warn("Task executor failed")
	}
}
