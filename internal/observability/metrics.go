package observability

import (
	"fmt"
	"time"
)

// Metrics holds calculated queue metrics derived from the event log.
type Metrics struct {
	TasksEnqueued    int            `json:"tasks_enqueued"`
	TasksClaimed     int            `json:"tasks_claimed"`
	TasksCompleted   int            `json:"tasks_completed"`
	TasksFailed      int            `json:"tasks_failed"`
	TasksCancelled   int            `json:"tasks_cancelled"`
	Clarifications   int            `json:"clarifications"`
	Resumes          int            `json:"resumes"`
	TimeoutsFired    int            `json:"timeouts_fired"`
	TasksRecovered   int            `json:"tasks_recovered"`
	JudgmentsPassed  int            `json:"judgments_passed"`
	JudgmentsFailed  int            `json:"judgments_failed"`
	TasksByType      map[string]int `json:"tasks_by_type"`
	TasksByNamespace map[string]int `json:"tasks_by_namespace"`
	EventCount       int            `json:"event_count"`
	OldestEvent      *time.Time     `json:"oldest_event,omitempty"`
	NewestEvent      *time.Time     `json:"newest_event,omitempty"`
}

// MetricsCalculator derives metrics from the event log.
type MetricsCalculator interface {
	Calculate(since time.Time) (*Metrics, error)
}

// metricsCalculator implements MetricsCalculator by reading from an EventLog.
type metricsCalculator struct {
	eventLog EventLog
}

// NewMetricsCalculator creates a MetricsCalculator that reads from the given EventLog.
func NewMetricsCalculator(eventLog EventLog) MetricsCalculator {
	return &metricsCalculator{eventLog: eventLog}
}

// Calculate reads all events since the given time and aggregates them into metrics.
func (mc *metricsCalculator) Calculate(since time.Time) (*Metrics, error) {
	events, err := mc.eventLog.Read(EventFilter{Since: &since})
	if err != nil {
		return nil, fmt.Errorf("reading events for metrics: %w", err)
	}

	m := &Metrics{
		TasksByType:      make(map[string]int),
		TasksByNamespace: make(map[string]int),
	}
	m.EventCount = len(events)

	for i, event := range events {
		if i == 0 {
			t := event.Time
			m.OldestEvent = &t
		}
		t := event.Time
		m.NewestEvent = &t

		switch event.Type {
		case "queue.enqueued":
			m.TasksEnqueued++
			if taskType, ok := event.Data["task_type"].(string); ok {
				m.TasksByType[taskType]++
			}
			if ns, ok := event.Data["namespace"].(string); ok {
				m.TasksByNamespace[ns]++
			}
		case "queue.claimed":
			m.TasksClaimed++
		case "queue.status_changed":
			status, _ := event.Data["new_status"].(string)
			switch status {
			case "COMPLETE":
				m.TasksCompleted++
			case "ERROR":
				m.TasksFailed++
			case "CANCELLED":
				m.TasksCancelled++
			}
		case "queue.awaiting_response":
			m.Clarifications++
		case "queue.resumed":
			m.Resumes++
		case "timeout.fired":
			m.TimeoutsFired++
		case "recovery.rollback_replay":
			if n, ok := event.Data["recovered"].(float64); ok {
				m.TasksRecovered += int(n)
			}
		case "completion.judged":
			if status, ok := event.Data["final_status"].(string); ok && status == "COMPLETE" {
				m.JudgmentsPassed++
			} else {
				m.JudgmentsFailed++
			}
		}
	}

	return m, nil
}
