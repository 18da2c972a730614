package observability

import (
	"testing"
	"time"
)

func TestMetricsCalculate(t *testing.T) {
	log := newTestEventLog(t)

	write := func(eventType string, data map[string]any) {
		t.Helper()
		if err := log.Write(NewEvent(eventType, data)); err != nil {
			t.Fatalf("write failed: %v", err)
		}
	}

	write("queue.enqueued", map[string]any{"task_type": "IMPLEMENTATION", "namespace": "default"})
	write("queue.enqueued", map[string]any{"task_type": "READ_INFO", "namespace": "default"})
	write("queue.claimed", map[string]any{"task_id": "T-00001"})
	write("queue.status_changed", map[string]any{"new_status": "COMPLETE"})
	write("queue.status_changed", map[string]any{"new_status": "ERROR"})
	write("queue.status_changed", map[string]any{"new_status": "CANCELLED"})
	write("queue.awaiting_response", map[string]any{"task_id": "T-00002"})
	write("queue.resumed", map[string]any{"task_id": "T-00002"})
	write("timeout.fired", map[string]any{"task_id": "T-00003"})
	write("recovery.rollback_replay", map[string]any{"recovered": 3})
	write("completion.judged", map[string]any{"final_status": "COMPLETE"})
	write("completion.judged", map[string]any{"final_status": "FAILING"})

	calc := NewMetricsCalculator(log)
	m, err := calc.Calculate(time.Time{})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}

	if m.TasksEnqueued != 2 || m.TasksClaimed != 1 {
		t.Fatalf("unexpected enqueue/claim counts: %d/%d", m.TasksEnqueued, m.TasksClaimed)
	}
	if m.TasksCompleted != 1 || m.TasksFailed != 1 || m.TasksCancelled != 1 {
		t.Fatalf("unexpected terminal counts: %d/%d/%d", m.TasksCompleted, m.TasksFailed, m.TasksCancelled)
	}
	if m.Clarifications != 1 || m.Resumes != 1 {
		t.Fatalf("unexpected clarification counts: %d/%d", m.Clarifications, m.Resumes)
	}
	if m.TimeoutsFired != 1 {
		t.Fatalf("unexpected timeout count: %d", m.TimeoutsFired)
	}
	if m.TasksRecovered != 3 {
		t.Fatalf("expected 3 recovered tasks from event data, got %d", m.TasksRecovered)
	}
	if m.JudgmentsPassed != 1 || m.JudgmentsFailed != 1 {
		t.Fatalf("unexpected judgment counts: %d/%d", m.JudgmentsPassed, m.JudgmentsFailed)
	}
	if m.TasksByType["IMPLEMENTATION"] != 1 || m.TasksByType["READ_INFO"] != 1 {
		t.Fatalf("unexpected type breakdown: %v", m.TasksByType)
	}
	if m.TasksByNamespace["default"] != 2 {
		t.Fatalf("unexpected namespace breakdown: %v", m.TasksByNamespace)
	}
	if m.EventCount != 12 {
		t.Fatalf("expected 12 events counted, got %d", m.EventCount)
	}
	if m.OldestEvent == nil || m.NewestEvent == nil {
		t.Fatal("expected oldest/newest timestamps to be populated")
	}
}

func TestMetricsCalculate_SinceWindow(t *testing.T) {
	log := newTestEventLog(t)

	old := NewEvent("queue.enqueued", nil)
	old.Time = time.Now().UTC().Add(-48 * time.Hour)
	_ = log.Write(old)
	_ = log.Write(NewEvent("queue.enqueued", nil))

	calc := NewMetricsCalculator(log)
	m, err := calc.Calculate(time.Now().UTC().Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if m.TasksEnqueued != 1 || m.EventCount != 1 {
		t.Fatalf("expected only events inside the window, got %+v", m)
	}
}

func TestMetricsCalculate_EmptyLog(t *testing.T) {
	log := newTestEventLog(t)

	calc := NewMetricsCalculator(log)
	m, err := calc.Calculate(time.Time{})
	if err != nil {
		t.Fatalf("calculate failed: %v", err)
	}
	if m.EventCount != 0 || m.OldestEvent != nil {
		t.Fatalf("expected empty metrics, got %+v", m)
	}
}
