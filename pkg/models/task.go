package models

import "time"

// TaskType classifies the kind of work the external agent is asked to perform.
type TaskType string

const (
	TaskTypeReadInfo       TaskType = "READ_INFO"
	TaskTypeImplementation TaskType = "IMPLEMENTATION"
	TaskTypeReport         TaskType = "REPORT"
	TaskTypeDangerousOp    TaskType = "DANGEROUS_OP"
)

// TaskStatus represents the current lifecycle state of a queued task.
type TaskStatus string

const (
	StatusQueued           TaskStatus = "QUEUED"
	StatusRunning          TaskStatus = "RUNNING"
	StatusComplete         TaskStatus = "COMPLETE"
	StatusError            TaskStatus = "ERROR"
	StatusAwaitingResponse TaskStatus = "AWAITING_RESPONSE"
	StatusCancelled        TaskStatus = "CANCELLED"
)

// IsTerminal reports whether the status admits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusComplete, StatusError, StatusCancelled:
		return true
	}
	return false
}

// ConversationTurn is a single user or assistant turn accumulated across
// clarification round-trips for a task.
type ConversationTurn struct {
	Role      string    `yaml:"role" json:"role"`
	Content   string    `yaml:"content" json:"content"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
}

// Task represents a unit of work submitted for execution by an external
// agent process. Task IDs are unique within a namespace; namespaces
// partition queues that share physical storage.
type Task struct {
	TaskID      string     `yaml:"task_id" json:"task_id"`
	TaskGroupID string     `yaml:"task_group_id" json:"task_group_id"`
	SessionID   string     `yaml:"session_id" json:"session_id"`
	Namespace   string     `yaml:"namespace" json:"namespace"`
	Prompt      string     `yaml:"prompt" json:"prompt"`
	Type        TaskType   `yaml:"task_type" json:"task_type"`
	Status      TaskStatus `yaml:"status" json:"status"`
	CreatedAt   time.Time  `yaml:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `yaml:"updated_at" json:"updated_at"`

	// StartedAt records when the current run was claimed. It is the start
	// time for hard-timeout evaluation and resets on every claim.
	StartedAt time.Time `yaml:"started_at,omitempty" json:"started_at,omitempty"`

	// Attempt counts executions: it starts at 1 and increments each time
	// the task is demoted back to QUEUED for replay.
	Attempt int `yaml:"attempt" json:"attempt"`

	// Events is the append-only progress log with non-decreasing
	// timestamps. Liveness is always derived from it, never stored.
	Events []ProgressEvent `yaml:"events,omitempty" json:"events,omitempty"`

	Output              string             `yaml:"output,omitempty" json:"output,omitempty"`
	ErrorMessage        string             `yaml:"error_message,omitempty" json:"error_message,omitempty"`
	Clarification       string             `yaml:"clarification,omitempty" json:"clarification,omitempty"`
	ConversationHistory []ConversationTurn `yaml:"conversation_history,omitempty" json:"conversation_history,omitempty"`
	FailureCategory     string             `yaml:"failure_category,omitempty" json:"failure_category,omitempty"`
	FailureNextActions  []string           `yaml:"failure_next_actions,omitempty" json:"failure_next_actions,omitempty"`
}

// LastProgress derives the most recent liveness timestamp for the task.
// It is the timestamp of the last progress event, falling back to UpdatedAt
// when the event log is empty. The second return reports whether any
// events exist.
func (t *Task) LastProgress() (time.Time, bool) {
	if len(t.Events) == 0 {
		return t.UpdatedAt, false
	}
	return t.Events[len(t.Events)-1].Timestamp, true
}

// TaskGroupSummary aggregates the tasks sharing one task_group_id within a
// single namespace.
type TaskGroupSummary struct {
	TaskGroupID  string             `yaml:"task_group_id" json:"task_group_id"`
	Namespace    string             `yaml:"namespace" json:"namespace"`
	TaskCount    int                `yaml:"task_count" json:"task_count"`
	StatusCounts map[TaskStatus]int `yaml:"status_counts" json:"status_counts"`
	LatestStatus TaskStatus         `yaml:"latest_status" json:"latest_status"`
	UpdatedAt    time.Time          `yaml:"updated_at" json:"updated_at"`
}
