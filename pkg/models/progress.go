package models

import "time"

// ProgressEventType classifies a liveness signal emitted by the external
// executor while a task is RUNNING.
type ProgressEventType string

const (
	ProgressHeartbeat      ProgressEventType = "heartbeat"
	ProgressToolProgress   ProgressEventType = "tool_progress"
	ProgressStdoutChunk    ProgressEventType = "stdout_chunk"
	ProgressStderrChunk    ProgressEventType = "stderr_chunk"
	ProgressTokenGenerated ProgressEventType = "token_generated"
	ProgressLogChunk       ProgressEventType = "log_chunk"
)

// ValidProgressEventType reports whether t is one of the known event types.
func ValidProgressEventType(t ProgressEventType) bool {
	switch t {
	case ProgressHeartbeat, ProgressToolProgress, ProgressStdoutChunk,
		ProgressStderrChunk, ProgressTokenGenerated, ProgressLogChunk:
		return true
	}
	return false
}

// ProgressEvent is a timestamped signal that an in-flight task is still
// advancing. Events are append-only per task with non-decreasing timestamps.
type ProgressEvent struct {
	Type      ProgressEventType `yaml:"type" json:"type"`
	Timestamp time.Time         `yaml:"timestamp" json:"timestamp"`
	Data      map[string]any    `yaml:"data,omitempty" json:"data,omitempty"`
}
