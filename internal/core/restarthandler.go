package core

import (
	"fmt"
	"time"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
)

// TaskQueue is the subset of storage.QueueStore that the restart handler
// needs. Defining it here keeps core independent of the storage package.
type TaskQueue interface {
	GetNonTerminal() ([]models.Task, error)
	RecoverStaleTasks(threshold time.Duration) (int, error)
}

// EventLogger is implemented by the observability event log.
type EventLogger interface {
	LogEvent(eventType string, data map[string]any) error
}

// RestartReport summarises a store-wide restart classification pass.
// StaleTasks holds the RUNNING tasks whose progress history indicates
// abandonment, ContinueTasks the tasks parked on a clarification, and
// RollbackTasks the IDs selected for rollback-replay recovery.
type RestartReport struct {
	TotalChecked  int
	StaleTasks    []models.Task
	ContinueTasks []models.Task
	RollbackTasks []string
}

// RestartHandler bulk-classifies and bulk-recovers all non-terminal tasks
// after a supervisor restart.
type RestartHandler interface {
	CheckAllTasks() (*RestartReport, error)
	RecoverStaleTasks() (int, error)
}

type restartHandler struct {
	queue  TaskQueue
	policy ResumePolicy
	events EventLogger
	now    func() time.Time
}

// NewRestartHandler creates a RestartHandler over the given queue.
// events may be nil.
func NewRestartHandler(queue TaskQueue, policy ResumePolicy, events EventLogger) RestartHandler {
	return &restartHandler{
		queue:  queue,
		policy: policy,
		events: events,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CheckAllTasks enumerates every non-terminal task, classifies each, and
// buckets the results. It mutates nothing; recovery is a separate call.
func (h *restartHandler) CheckAllTasks() (*RestartReport, error) {
	tasks, err := h.queue.GetNonTerminal()
	if err != nil {
		return nil, fmt.Errorf("checking tasks after restart: %w", err)
	}

	now := h.now()
	report := &RestartReport{TotalChecked: len(tasks)}
	for _, task := range tasks {
		t := task
		switch DetectRestartState(&t, h.policy.StaleThreshold, now) {
		case ActionRollbackReplay:
			report.StaleTasks = append(report.StaleTasks, t)
			report.RollbackTasks = append(report.RollbackTasks, t.TaskID)
		case ActionContinue:
			report.ContinueTasks = append(report.ContinueTasks, t)
		}
	}
	return report, nil
}

// RecoverStaleTasks demotes every rollback_replay-classified task back to
// QUEUED with an incremented attempt counter and returns the count.
// A second consecutive call recovers nothing: demoted tasks are no longer
// RUNNING.
func (h *restartHandler) RecoverStaleTasks() (int, error) {
	count, err := h.queue.RecoverStaleTasks(h.policy.StaleThreshold)
	if err != nil {
		return 0, fmt.Errorf("recovering stale tasks: %w", err)
	}
	if count > 0 && h.events != nil {
		_ = h.events.LogEvent("recovery.rollback_replay", map[string]any{
			"recovered":    count,
			"threshold_ms": h.policy.StaleThreshold.Milliseconds(),
		})
	}
	return count, nil
}
