package domain

import "strings"

// TaskStatus is the wire status of an asynchronous image generation task.
// The service reports it in varying letter case, so comparisons go through
// ParseTaskStatus.
type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskProcessing TaskStatus = "PROCESSING"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskFailed     TaskStatus = "FAILED"
)

// ParseTaskStatus normalizes a wire status. Unrecognized values are returned
// upper-cased as-is; pollers treat them as still-in-progress.
func ParseTaskStatus(s string) TaskStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PENDING":
		return TaskPending
	case "PROCESSING":
		return TaskProcessing
	case "COMPLETED":
		return TaskCompleted
	case "FAILED":
		return TaskFailed
	default:
		return TaskStatus(strings.ToUpper(strings.TrimSpace(s)))
	}
}

// Terminal reports whether the status ends polling.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// TaskState is a point-in-time snapshot of one outstanding image generation
// task. At most one task is active per card; starting a new one cancels the
// previous poll loop first.
type TaskState struct {
	TaskID     string     `json:"task_id"`
	Status     TaskStatus `json:"status"`
	Progress   int        `json:"progress"`
	TotalSteps int        `json:"total_steps"`
	Error      string     `json:"error,omitempty"`
}

// Percent returns the task progress clamped to [0,100].
func (t TaskState) Percent() int {
	if t.TotalSteps <= 0 {
		return 0
	}
	p := t.Progress * 100 / t.TotalSteps
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
