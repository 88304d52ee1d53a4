package acquire

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hualin/rednote-studio/internal/domain"
	"github.com/hualin/rednote-studio/internal/logger"
)

const (
	defaultPollInterval  = 2 * time.Second
	defaultRetryInterval = 5 * time.Second
)

// Task polls one in-flight generation task until it reaches a terminal
// status or is cancelled. A transient poll failure does not kill the task;
// polling resumes at a slower cadence until the next successful response.
type Task struct {
	TaskID string
	CardID string

	client        *Client
	pollInterval  time.Duration
	retryInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	state domain.TaskState

	done     chan struct{}
	complete func(t *Task, data []byte)
	fail     func(t *Task, err error)
}

func newTask(parent context.Context, client *Client, cardID, taskID string,
	poll, retry time.Duration,
	complete func(*Task, []byte), fail func(*Task, error)) *Task {

	if poll <= 0 {
		poll = defaultPollInterval
	}
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	ctx, cancel := context.WithCancel(parent)
	return &Task{
		TaskID:        taskID,
		CardID:        cardID,
		client:        client,
		pollInterval:  poll,
		retryInterval: retry,
		ctx:           ctx,
		cancel:        cancel,
		state: domain.TaskState{
			TaskID: taskID,
			Status: domain.TaskPending,
		},
		done:     make(chan struct{}),
		complete: complete,
		fail:     fail,
	}
}

// Start launches the poll loop. Call at most once.
func (t *Task) Start() {
	go t.run()
}

// Cancel stops the poll loop. After Cancel returns no callback will change
// any card: a response that arrives late is simply discarded.
func (t *Task) Cancel() {
	t.cancel()
}

// Done closes when the poll loop has exited for any reason.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Snapshot returns the last known state of the task.
func (t *Task) Snapshot() domain.TaskState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Task) setState(state domain.TaskState) {
	t.mu.Lock()
	t.state = state
	t.mu.Unlock()
}

func (t *Task) run() {
	defer close(t.done)

	wait := t.pollInterval
	for {
		select {
		case <-t.ctx.Done():
			return
		case <-time.After(wait):
		}

		state, err := t.client.Status(t.ctx, t.TaskID)
		if err != nil {
			if t.ctx.Err() != nil {
				return
			}
			// Transient failure: keep the last known state and retry slower.
			logger.CtxWarn(t.ctx, "Task poll failed, retrying: task_id=%s, err=%v", t.TaskID, err)
			wait = t.retryInterval
			continue
		}
		wait = t.pollInterval
		t.setState(state)

		switch state.Status {
		case domain.TaskCompleted:
			data, err := t.client.Result(t.ctx, t.TaskID)
			if err != nil {
				if t.ctx.Err() != nil {
					return
				}
				t.fail(t, fmt.Errorf("task %s completed but result fetch failed: %w", t.TaskID, err))
				return
			}
			t.complete(t, data)
			return
		case domain.TaskFailed:
			msg := state.Error
			if msg == "" {
				msg = "generation failed"
			}
			t.fail(t, fmt.Errorf("task %s failed: %s", t.TaskID, msg))
			return
		}
	}
}
