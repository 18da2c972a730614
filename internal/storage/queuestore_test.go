package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
)

// stubIDGen hands out sequential IDs without touching disk.
type stubIDGen struct {
	mu      sync.Mutex
	counter int
}

func (g *stubIDGen) GenerateTaskID() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("T-%05d", g.counter), nil
}

func newTestStore(t *testing.T) *fileQueueStore {
	t.Helper()
	dir := t.TempDir()
	return NewQueueStore(dir, "default", &stubIDGen{}).(*fileQueueStore)
}

func enqueueOne(t *testing.T, store *fileQueueStore, prompt string) *models.Task {
	t.Helper()
	task, err := store.Enqueue(EnqueueRequest{Prompt: prompt})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return task
}

func claimOne(t *testing.T, store *fileQueueStore) *models.Task {
	t.Helper()
	res, err := store.Claim()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Claimed {
		t.Fatal("expected a task to be claimed")
	}
	return res.Task
}

func TestEnqueue(t *testing.T) {
	store := newTestStore(t)

	task := enqueueOne(t, store, "add retry logic to the fetcher")

	if task.TaskID == "" {
		t.Fatal("expected a generated task ID")
	}
	if task.Status != models.StatusQueued {
		t.Fatalf("expected status QUEUED, got %s", task.Status)
	}
	if task.Type != models.TaskTypeImplementation {
		t.Fatalf("expected default type IMPLEMENTATION, got %s", task.Type)
	}
	if task.Attempt != 1 {
		t.Fatalf("expected attempt 1, got %d", task.Attempt)
	}
	if task.Namespace != "default" {
		t.Fatalf("expected namespace default, got %s", task.Namespace)
	}
}

func TestEnqueue_EmptyPrompt(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Enqueue(EnqueueRequest{Prompt: "   "}); err == nil {
		t.Fatal("expected error for empty prompt")
	}
}

func TestEnqueue_ExplicitID(t *testing.T) {
	store := newTestStore(t)

	task, err := store.Enqueue(EnqueueRequest{Prompt: "p", TaskID: "CUSTOM-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.TaskID != "CUSTOM-1" {
		t.Fatalf("expected CUSTOM-1, got %s", task.TaskID)
	}
}

func TestEnqueue_DuplicateID(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Enqueue(EnqueueRequest{Prompt: "p", TaskID: "T-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Enqueue(EnqueueRequest{Prompt: "p", TaskID: "T-1"}); err == nil {
		t.Fatal("expected error for duplicate task ID")
	}
}

func TestClaim_EmptyQueue(t *testing.T) {
	store := newTestStore(t)

	res, err := store.Claim()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Claimed || res.Task != nil {
		t.Fatal("expected no claim on an empty queue")
	}
}

func TestClaim_OldestFirst(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	store.now = func() time.Time { return clock }

	enqueueOne(t, store, "first")
	clock = base.Add(time.Second)
	enqueueOne(t, store, "second")
	clock = base.Add(2 * time.Second)
	enqueueOne(t, store, "third")

	got := claimOne(t, store)
	if got.Prompt != "first" {
		t.Fatalf("expected oldest task first, got %q", got.Prompt)
	}
	if got.Status != models.StatusRunning {
		t.Fatalf("expected RUNNING after claim, got %s", got.Status)
	}
	if got.StartedAt.IsZero() {
		t.Fatal("expected StartedAt to be set on claim")
	}

	if next := claimOne(t, store); next.Prompt != "second" {
		t.Fatalf("expected second task next, got %q", next.Prompt)
	}
}

func TestClaim_TaskIDTiebreak(t *testing.T) {
	store := newTestStore(t)

	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	if _, err := store.Enqueue(EnqueueRequest{Prompt: "b", TaskID: "T-00002"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Enqueue(EnqueueRequest{Prompt: "a", TaskID: "T-00001"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := claimOne(t, store); got.TaskID != "T-00001" {
		t.Fatalf("expected lowest task ID on equal timestamps, got %s", got.TaskID)
	}
}

// Under concurrent claimers, exactly as many claims succeed as there are
// queued tasks, and no task is handed out twice.
func TestClaim_Concurrent(t *testing.T) {
	store := newTestStore(t)

	const tasks = 5
	const claimers = 20
	for i := 0; i < tasks; i++ {
		enqueueOne(t, store, fmt.Sprintf("task %d", i))
	}

	var mu sync.Mutex
	claimed := make(map[string]int)
	successes := 0

	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := store.Claim()
			if err != nil {
				t.Errorf("claim failed: %v", err)
				return
			}
			if !res.Claimed {
				return
			}
			mu.Lock()
			claimed[res.Task.TaskID]++
			successes++
			mu.Unlock()
		}()
	}
	wg.Wait()

	if successes != tasks {
		t.Fatalf("expected exactly %d successful claims, got %d", tasks, successes)
	}
	for id, n := range claimed {
		if n != 1 {
			t.Fatalf("task %s claimed %d times", id, n)
		}
	}
}

func TestUpdateStatus_Complete(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")
	claimOne(t, store)

	res, err := store.UpdateStatus(task.TaskID, models.StatusComplete, UpdateStatusOpts{Output: "done"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK, got reason %s", res.Reason)
	}
	if res.Task.Status != models.StatusComplete || res.Task.Output != "done" {
		t.Fatalf("unexpected task state: %+v", res.Task)
	}
}

func TestUpdateStatus_CompleteWithoutOutput(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")
	claimOne(t, store)

	res, err := store.UpdateStatus(task.TaskID, models.StatusComplete, UpdateStatusOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK || res.Reason != ReasonMissingOutput {
		t.Fatalf("expected missing_output rejection, got %+v", res)
	}
}

func TestUpdateStatus_ErrorWithoutMessage(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")
	claimOne(t, store)

	res, err := store.UpdateStatus(task.TaskID, models.StatusError, UpdateStatusOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK || res.Reason != ReasonMissingErrorMessage {
		t.Fatalf("expected missing_error_message rejection, got %+v", res)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	store := newTestStore(t)

	res, err := store.UpdateStatus("NOPE-1", models.StatusCancelled, UpdateStatusOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK || res.Reason != ReasonTaskNotFound {
		t.Fatalf("expected task_not_found rejection, got %+v", res)
	}
}

func TestUpdateStatus_InvalidTransitions(t *testing.T) {
	cases := []struct {
		name    string
		prepare func(t *testing.T, store *fileQueueStore, taskID string)
		to      models.TaskStatus
	}{
		{
			name:    "queued to complete",
			prepare: func(t *testing.T, store *fileQueueStore, taskID string) {},
			to:      models.StatusComplete,
		},
		{
			name: "complete to queued",
			prepare: func(t *testing.T, store *fileQueueStore, taskID string) {
				claimOne(t, store)
				if res, _ := store.UpdateStatus(taskID, models.StatusComplete, UpdateStatusOpts{Output: "o"}); !res.OK {
					t.Fatalf("setup failed: %s", res.Reason)
				}
			},
			to: models.StatusQueued,
		},
		{
			name: "cancelled to running",
			prepare: func(t *testing.T, store *fileQueueStore, taskID string) {
				if res, _ := store.UpdateStatus(taskID, models.StatusCancelled, UpdateStatusOpts{}); !res.OK {
					t.Fatalf("setup failed: %s", res.Reason)
				}
			},
			to: models.StatusRunning,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newTestStore(t)
			task := enqueueOne(t, store, "p")
			tc.prepare(t, store, task.TaskID)

			res, err := store.UpdateStatus(task.TaskID, tc.to, UpdateStatusOpts{Output: "o", ErrorMessage: "m"})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if res.OK || res.Reason != ReasonInvalidTransition {
				t.Fatalf("expected invalid_transition rejection, got %+v", res)
			}
		})
	}
}

func TestUpdateStatus_RunningReservedForClaim(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")

	// RUNNING is entered only through Claim; accepting it here would
	// leave StartedAt at the zero time and trip the hard timeout.
	res, err := store.UpdateStatus(task.TaskID, models.StatusRunning, UpdateStatusOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK || res.Reason != ReasonInvalidTransition {
		t.Fatalf("expected invalid_transition rejection, got %+v", res)
	}

	got, err := store.GetTask(task.TaskID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.StatusQueued {
		t.Fatalf("expected task to stay QUEUED, got %s", got.Status)
	}
	if !got.StartedAt.IsZero() {
		t.Fatalf("expected zero StartedAt before any claim, got %v", got.StartedAt)
	}
}

func TestUpdateStatus_AwaitingRequiresClarification(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")
	claimOne(t, store)

	// AWAITING_RESPONSE goes through SetAwaitingResponse; UpdateStatus
	// rejects it because it cannot carry the mandatory clarification.
	res, err := store.UpdateStatus(task.TaskID, models.StatusAwaitingResponse, UpdateStatusOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.OK || res.Reason != ReasonMissingClarification {
		t.Fatalf("expected missing_clarification rejection, got %+v", res)
	}
}

func TestUpdateStatus_CancelFromAnyNonTerminal(t *testing.T) {
	store := newTestStore(t)

	// QUEUED.
	queued := enqueueOne(t, store, "a")
	if res, _ := store.UpdateStatus(queued.TaskID, models.StatusCancelled, UpdateStatusOpts{}); !res.OK {
		t.Fatalf("cancel from QUEUED rejected: %s", res.Reason)
	}

	// RUNNING.
	running := enqueueOne(t, store, "b")
	claimOne(t, store)
	if res, _ := store.UpdateStatus(running.TaskID, models.StatusCancelled, UpdateStatusOpts{}); !res.OK {
		t.Fatalf("cancel from RUNNING rejected: %s", res.Reason)
	}

	// AWAITING_RESPONSE.
	awaiting := enqueueOne(t, store, "c")
	claimOne(t, store)
	if res, _ := store.SetAwaitingResponse(awaiting.TaskID, "which db?", nil, ""); !res.OK {
		t.Fatalf("setup failed: %s", res.Reason)
	}
	if res, _ := store.UpdateStatus(awaiting.TaskID, models.StatusCancelled, UpdateStatusOpts{}); !res.OK {
		t.Fatalf("cancel from AWAITING_RESPONSE rejected: %s", res.Reason)
	}
}

func TestSetAwaitingResponse(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")
	claimOne(t, store)

	res, err := store.SetAwaitingResponse(task.TaskID, "postgres or sqlite?", nil, "partial analysis")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK, got reason %s", res.Reason)
	}
	got := res.Task
	if got.Status != models.StatusAwaitingResponse {
		t.Fatalf("expected AWAITING_RESPONSE, got %s", got.Status)
	}
	if got.Clarification != "postgres or sqlite?" {
		t.Fatalf("unexpected clarification %q", got.Clarification)
	}
	if got.Output != "partial analysis" {
		t.Fatalf("expected partial output preserved, got %q", got.Output)
	}
	if len(got.ConversationHistory) != 1 || got.ConversationHistory[0].Role != "assistant" {
		t.Fatalf("expected one assistant turn, got %+v", got.ConversationHistory)
	}
}

func TestSetAwaitingResponse_PreservesExistingOutput(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")
	claimOne(t, store)

	if res, _ := store.SetAwaitingResponse(task.TaskID, "q1?", nil, "first draft"); !res.OK {
		t.Fatalf("setup failed: %s", res.Reason)
	}
	if res, _ := store.ResumeWithResponse(task.TaskID, "go on"); !res.OK {
		t.Fatalf("setup failed: %s", res.Reason)
	}
	claimOne(t, store)

	// Pausing again without new output must not clear the first draft.
	res, _ := store.SetAwaitingResponse(task.TaskID, "q2?", nil, "")
	if !res.OK {
		t.Fatalf("expected OK, got %s", res.Reason)
	}
	if res.Task.Output != "first draft" {
		t.Fatalf("expected output preserved, got %q", res.Task.Output)
	}
}

func TestSetAwaitingResponse_EmptyClarification(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")
	claimOne(t, store)

	res, _ := store.SetAwaitingResponse(task.TaskID, "  ", nil, "")
	if res.OK || res.Reason != ReasonMissingClarification {
		t.Fatalf("expected missing_clarification rejection, got %+v", res)
	}
}

func TestSetAwaitingResponse_NotRunning(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")

	res, _ := store.SetAwaitingResponse(task.TaskID, "why?", nil, "")
	if res.OK || res.Reason != ReasonInvalidTransition {
		t.Fatalf("expected invalid_transition rejection, got %+v", res)
	}
}

func TestResumeWithResponse(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")
	claimOne(t, store)
	if res, _ := store.SetAwaitingResponse(task.TaskID, "which branch?", nil, ""); !res.OK {
		t.Fatalf("setup failed: %s", res.Reason)
	}

	res, err := store.ResumeWithResponse(task.TaskID, "main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK, got reason %s", res.Reason)
	}
	got := res.Task
	if got.Status != models.StatusQueued {
		t.Fatalf("expected re-queue to QUEUED, got %s", got.Status)
	}
	if got.Clarification != "" {
		t.Fatalf("expected clarification cleared, got %q", got.Clarification)
	}
	if got.Attempt != 1 {
		t.Fatalf("answering a clarification must not increment attempt, got %d", got.Attempt)
	}
	if len(got.ConversationHistory) != 2 || got.ConversationHistory[1].Role != "user" {
		t.Fatalf("expected assistant+user turns, got %+v", got.ConversationHistory)
	}
}

func TestResumeWithResponse_NotAwaiting(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")

	res, _ := store.ResumeWithResponse(task.TaskID, "reply")
	if res.OK || res.Reason != ReasonNotAwaiting {
		t.Fatalf("expected not_awaiting_response rejection, got %+v", res)
	}
}

func TestAppendProgress(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")
	claimOne(t, store)

	res, err := store.AppendProgress(task.TaskID, models.ProgressEvent{Type: models.ProgressHeartbeat})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK, got reason %s", res.Reason)
	}
	if len(res.Task.Events) != 1 {
		t.Fatalf("expected one event, got %d", len(res.Task.Events))
	}
	if res.Task.Events[0].Timestamp.IsZero() {
		t.Fatal("expected zero timestamp to be filled in")
	}
}

func TestAppendProgress_Rejections(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")

	// Not running.
	res, _ := store.AppendProgress(task.TaskID, models.ProgressEvent{Type: models.ProgressHeartbeat})
	if res.OK || res.Reason != ReasonNotRunning {
		t.Fatalf("expected not_running rejection, got %+v", res)
	}

	claimOne(t, store)

	// Unknown event type.
	res, _ = store.AppendProgress(task.TaskID, models.ProgressEvent{Type: "made_up"})
	if res.OK || res.Reason != ReasonUnknownEventType {
		t.Fatalf("expected unknown_event_type rejection, got %+v", res)
	}

	// Timestamp regression.
	now := time.Now().UTC()
	if res, _ = store.AppendProgress(task.TaskID, models.ProgressEvent{Type: models.ProgressHeartbeat, Timestamp: now}); !res.OK {
		t.Fatalf("setup failed: %s", res.Reason)
	}
	res, _ = store.AppendProgress(task.TaskID, models.ProgressEvent{Type: models.ProgressHeartbeat, Timestamp: now.Add(-time.Minute)})
	if res.OK || res.Reason != ReasonEventOutOfOrder {
		t.Fatalf("expected event_out_of_order rejection, got %+v", res)
	}
}

// Two namespaces sharing one base path never see each other's tasks, even
// with colliding task IDs and group IDs.
func TestNamespaceIsolation(t *testing.T) {
	dir := t.TempDir()
	alpha := NewQueueStore(dir, "alpha", nil).(*fileQueueStore)
	beta := NewQueueStore(dir, "beta", nil).(*fileQueueStore)

	if _, err := alpha.Enqueue(EnqueueRequest{Prompt: "alpha work", TaskID: "T-1", TaskGroupID: "G-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := beta.Enqueue(EnqueueRequest{Prompt: "beta work", TaskID: "T-1", TaskGroupID: "G-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := claimOne(t, beta)
	if got.Prompt != "beta work" || got.Namespace != "beta" {
		t.Fatalf("beta claimed a foreign task: %+v", got)
	}

	// Alpha's copy is untouched.
	task, err := alpha.GetTask("T-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task == nil || task.Status != models.StatusQueued {
		t.Fatalf("alpha's task was affected by beta's claim: %+v", task)
	}

	// Group lookups stay within the namespace.
	summary, tasks, err := alpha.GetByTaskGroup("G-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TaskCount != 1 || len(tasks) != 1 || tasks[0].Prompt != "alpha work" {
		t.Fatalf("group lookup crossed namespaces: %+v", tasks)
	}
}

func TestGetTask_Missing(t *testing.T) {
	store := newTestStore(t)

	task, err := store.GetTask("NOPE-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task != nil {
		t.Fatalf("expected nil for a missing task, got %+v", task)
	}
}

func TestGetNonTerminal(t *testing.T) {
	store := newTestStore(t)

	enqueueOne(t, store, "a")
	enqueueOne(t, store, "b")
	cancelled := enqueueOne(t, store, "c")

	claimOne(t, store)
	claimOne(t, store)
	if res, _ := store.UpdateStatus(cancelled.TaskID, models.StatusCancelled, UpdateStatusOpts{}); !res.OK {
		t.Fatalf("setup failed: %s", res.Reason)
	}

	tasks, err := store.GetNonTerminal()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected 2 non-terminal tasks, got %d", len(tasks))
	}
	for _, task := range tasks {
		if task.Status.IsTerminal() {
			t.Fatalf("terminal task leaked into GetNonTerminal: %+v", task)
		}
	}
}

func TestGetAllTaskGroups(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Enqueue(EnqueueRequest{Prompt: "a", TaskID: "T-1", TaskGroupID: "G-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Enqueue(EnqueueRequest{Prompt: "b", TaskID: "T-2", TaskGroupID: "G-1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Enqueue(EnqueueRequest{Prompt: "c", TaskID: "T-3", TaskGroupID: "G-2"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	groups, err := store.GetAllTaskGroups()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].TaskGroupID != "G-1" || groups[0].TaskCount != 2 {
		t.Fatalf("unexpected first group: %+v", groups[0])
	}
	if groups[0].StatusCounts[models.StatusQueued] != 2 {
		t.Fatalf("unexpected status counts: %+v", groups[0].StatusCounts)
	}
}

func TestRecoverStaleTasks(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	store.now = func() time.Time { return clock }

	task := enqueueOne(t, store, "p")
	claimOne(t, store)

	// 90 seconds of silence against a 60 second threshold.
	clock = base.Add(90 * time.Second)

	recovered, err := store.RecoverStaleTasks(60 * time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recovered != 1 {
		t.Fatalf("expected 1 recovered task, got %d", recovered)
	}

	got, err := store.GetTask(task.TaskID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.StatusQueued {
		t.Fatalf("expected demotion to QUEUED, got %s", got.Status)
	}
	if got.Attempt != 2 {
		t.Fatalf("expected attempt incremented to 2, got %d", got.Attempt)
	}
	if got.ConversationHistory != nil && len(got.ConversationHistory) != 0 {
		t.Fatalf("recovery must not touch conversation history: %+v", got.ConversationHistory)
	}

	// Running again recovers nothing; the task is no longer RUNNING.
	recovered, err = store.RecoverStaleTasks(60 * time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recovered != 0 {
		t.Fatalf("expected recovery to be idempotent, got %d", recovered)
	}
}

func TestRecoverStaleTasks_FreshTaskUntouched(t *testing.T) {
	store := newTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := base
	store.now = func() time.Time { return clock }

	task := enqueueOne(t, store, "p")
	claimOne(t, store)

	// Recent heartbeat keeps the task alive past the threshold on wall time.
	clock = base.Add(50 * time.Second)
	if res, _ := store.AppendProgress(task.TaskID, models.ProgressEvent{Type: models.ProgressHeartbeat, Timestamp: clock}); !res.OK {
		t.Fatalf("setup failed: %s", res.Reason)
	}
	clock = base.Add(90 * time.Second)

	recovered, err := store.RecoverStaleTasks(60 * time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recovered != 0 {
		t.Fatalf("expected no recovery for a task with recent progress, got %d", recovered)
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)
	task := enqueueOne(t, store, "p")

	res, err := store.Delete(task.TaskID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.OK {
		t.Fatalf("expected OK, got reason %s", res.Reason)
	}

	got, _ := store.GetTask(task.TaskID)
	if got != nil {
		t.Fatal("expected task to be gone after delete")
	}

	res, _ = store.Delete(task.TaskID)
	if res.OK || res.Reason != ReasonTaskNotFound {
		t.Fatalf("expected task_not_found on second delete, got %+v", res)
	}
}

func TestPersistenceAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	first := NewQueueStore(dir, "default", &stubIDGen{}).(*fileQueueStore)

	task, err := first.Enqueue(EnqueueRequest{Prompt: "survive restarts"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := NewQueueStore(dir, "default", nil).(*fileQueueStore)
	got, err := second.GetTask(task.TaskID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Prompt != "survive restarts" {
		t.Fatalf("expected task to survive reload, got %+v", got)
	}
}
