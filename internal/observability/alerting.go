package observability

import (
	"fmt"
	"time"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
)

// AlertSeverity represents the urgency of an alert.
type AlertSeverity string

const (
	SeverityHigh   AlertSeverity = "high"
	SeverityMedium AlertSeverity = "medium"
	SeverityLow    AlertSeverity = "low"
)

// Alert represents a triggered alert condition.
type Alert struct {
	ID          string        `json:"id"`
	Condition   string        `json:"condition"`
	Severity    AlertSeverity `json:"severity"`
	Message     string        `json:"message"`
	TriggeredAt time.Time     `json:"triggered_at"`
}

// AlertThresholds configures when queue alerts should fire.
type AlertThresholds struct {
	RunningStaleMinutes int `yaml:"running_stale_minutes" json:"running_stale_minutes"`
	AwaitingHours       int `yaml:"awaiting_hours" json:"awaiting_hours"`
	MaxQueueDepth       int `yaml:"max_queue_depth" json:"max_queue_depth"`
}

// DefaultAlertThresholds returns sensible defaults for alert thresholds.
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		RunningStaleMinutes: 10,
		AwaitingHours:       24,
		MaxQueueDepth:       50,
	}
}

// TaskSource is the subset of the queue store the alert engine reads.
type TaskSource interface {
	GetNonTerminal() ([]models.Task, error)
}

// AlertEngine evaluates alert conditions against the live queue.
type AlertEngine interface {
	Evaluate() ([]Alert, error)
}

// alertEngine implements AlertEngine by scanning non-terminal tasks and
// checking thresholds.
type alertEngine struct {
	tasks      TaskSource
	thresholds AlertThresholds
	now        func() time.Time
}

// NewAlertEngine creates an AlertEngine over the given task source.
func NewAlertEngine(tasks TaskSource, thresholds AlertThresholds) AlertEngine {
	return &alertEngine{
		tasks:      tasks,
		thresholds: thresholds,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate scans the queue and returns any triggered alerts.
func (ae *alertEngine) Evaluate() ([]Alert, error) {
	tasks, err := ae.tasks.GetNonTerminal()
	if err != nil {
		return nil, fmt.Errorf("evaluating alerts: %w", err)
	}

	now := ae.now()
	var alerts []Alert

	alerts = append(alerts, ae.checkStaleRunning(tasks, now)...)
	alerts = append(alerts, ae.checkUnansweredClarifications(tasks, now)...)
	alerts = append(alerts, ae.checkQueueDepth(tasks, now)...)

	return alerts, nil
}

// checkStaleRunning flags RUNNING tasks whose last progress is older than
// the stale threshold.
func (ae *alertEngine) checkStaleRunning(tasks []models.Task, now time.Time) []Alert {
	threshold := time.Duration(ae.thresholds.RunningStaleMinutes) * time.Minute
	var alerts []Alert
	for _, task := range tasks {
		if task.Status != models.StatusRunning {
			continue
		}
		last, _ := task.LastProgress()
		idle := now.Sub(last)
		if idle < threshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:        fmt.Sprintf("stale-running-%s", task.TaskID),
			Condition: "running_stale",
			Severity:  SeverityHigh,
			Message: fmt.Sprintf("Task %s has been RUNNING with no progress for %s (attempt %d). "+
				"Run 'aqg recover' to re-queue it.",
				task.TaskID, idle.Round(time.Minute), task.Attempt),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkUnansweredClarifications flags AWAITING_RESPONSE tasks that nobody
// has answered within the configured window.
func (ae *alertEngine) checkUnansweredClarifications(tasks []models.Task, now time.Time) []Alert {
	threshold := time.Duration(ae.thresholds.AwaitingHours) * time.Hour
	var alerts []Alert
	for _, task := range tasks {
		if task.Status != models.StatusAwaitingResponse {
			continue
		}
		waiting := now.Sub(task.UpdatedAt)
		if waiting < threshold {
			continue
		}
		alerts = append(alerts, Alert{
			ID:        fmt.Sprintf("awaiting-%s", task.TaskID),
			Condition: "clarification_unanswered",
			Severity:  SeverityMedium,
			Message: fmt.Sprintf("Task %s has been awaiting a response for %s: %q. "+
				"Run 'aqg respond %s <reply>' to re-queue it.",
				task.TaskID, waiting.Round(time.Hour), task.Clarification, task.TaskID),
			TriggeredAt: now,
		})
	}
	return alerts
}

// checkQueueDepth flags a backlog of QUEUED tasks exceeding the maximum.
func (ae *alertEngine) checkQueueDepth(tasks []models.Task, now time.Time) []Alert {
	queued := 0
	for _, task := range tasks {
		if task.Status == models.StatusQueued {
			queued++
		}
	}
	if ae.thresholds.MaxQueueDepth <= 0 || queued <= ae.thresholds.MaxQueueDepth {
		return nil
	}
	return []Alert{{
		ID:        "queue-depth",
		Condition: "queue_depth_exceeded",
		Severity:  SeverityLow,
		Message: fmt.Sprintf("%d tasks are QUEUED (threshold %d); the executor may be falling behind.",
			queued, ae.thresholds.MaxQueueDepth),
		TriggeredAt: now,
	}}
}
