// Package storage provides the persistent task queue shared by the
// orchestration core and the external executor surfaces. The queue is a
// single YAML file per base path; namespace isolation is enforced here, at
// construction time, never left to caller discipline.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
	"gopkg.in/yaml.v3"
)

// Structured failure reasons returned in UpdateResult.Reason. Invalid
// transitions and unknown tasks are normal outcomes for callers to branch
// on, not errors (errors are reserved for storage I/O).
const (
	ReasonTaskNotFound         = "task_not_found"
	ReasonInvalidTransition    = "invalid_transition"
	ReasonMissingClarification = "missing_clarification"
	ReasonMissingOutput        = "missing_output"
	ReasonMissingErrorMessage  = "missing_error_message"
	ReasonNotRunning           = "not_running"
	ReasonNotAwaiting          = "not_awaiting_response"
	ReasonEventOutOfOrder      = "event_out_of_order"
	ReasonUnknownEventType     = "unknown_event_type"
)

// allowedTransitions is the only source of truth for status edges.
// QUEUED -> RUNNING happens exclusively through Claim; it is listed here so
// validation stays in one table.
var allowedTransitions = map[models.TaskStatus]map[models.TaskStatus]struct{}{
	models.StatusQueued: {
		models.StatusRunning:   {},
		models.StatusCancelled: {},
	},
	models.StatusRunning: {
		models.StatusComplete:         {},
		models.StatusError:            {},
		models.StatusAwaitingResponse: {},
		models.StatusCancelled:        {},
	},
	models.StatusAwaitingResponse: {
		models.StatusQueued:    {},
		models.StatusCancelled: {},
	},
}

// TransitionAllowed reports whether the from -> to edge is in the table.
func TransitionAllowed(from, to models.TaskStatus) bool {
	targets, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	_, ok = targets[to]
	return ok
}

// EnqueueRequest carries the inputs for creating a new QUEUED task.
// TaskID and Type are optional; an ID is generated and the type defaults to
// IMPLEMENTATION when omitted.
type EnqueueRequest struct {
	SessionID   string
	TaskGroupID string
	Prompt      string
	TaskID      string
	Type        models.TaskType
}

// ClaimResult reports the outcome of a Claim call. Claimed is false with a
// nil Task when no QUEUED task exists; that is a normal outcome.
type ClaimResult struct {
	Claimed bool
	Task    *models.Task
}

// UpdateResult reports the outcome of a per-task mutation. OK is false with
// a machine-readable Reason when the mutation was rejected; Task carries a
// snapshot of the task after a successful mutation.
type UpdateResult struct {
	OK     bool
	Reason string
	Task   *models.Task
}

// UpdateStatusOpts carries the optional payload for UpdateStatus.
type UpdateStatusOpts struct {
	ErrorMessage       string
	Output             string
	FailureCategory    string
	FailureNextActions []string
}

// QueueStore defines the task-queue verbs. One logical store may be shared
// by arbitrarily many concurrent callers; Claim is a strict mutual-exclusion
// dequeue and all per-task mutations are serialized.
type QueueStore interface {
	Enqueue(req EnqueueRequest) (*models.Task, error)
	Claim() (*ClaimResult, error)
	UpdateStatus(taskID string, status models.TaskStatus, opts UpdateStatusOpts) (*UpdateResult, error)
	SetAwaitingResponse(taskID, clarification string, history []models.ConversationTurn, outputSoFar string) (*UpdateResult, error)
	ResumeWithResponse(taskID, reply string) (*UpdateResult, error)
	AppendProgress(taskID string, event models.ProgressEvent) (*UpdateResult, error)
	GetTask(taskID string) (*models.Task, error)
	GetAllTasks() ([]models.Task, error)
	GetNonTerminal() ([]models.Task, error)
	GetByTaskGroup(groupID string) (*models.TaskGroupSummary, []models.Task, error)
	GetAllTaskGroups() ([]models.TaskGroupSummary, error)
	RecoverStaleTasks(threshold time.Duration) (int, error)
	Delete(taskID string) (*UpdateResult, error)
	Namespace() string
}

// IDGenerator produces task IDs for Enqueue calls that omit one.
type IDGenerator interface {
	GenerateTaskID() (string, error)
}

// QueueFile is the top-level structure of queue.yaml. Tasks from every
// namespace sharing the base path live in one file, keyed by
// "<namespace>/<task_id>"; each store instance only ever sees its own
// namespace.
type QueueFile struct {
	Version string                 `yaml:"version"`
	Tasks   map[string]models.Task `yaml:"tasks"`
}

type fileQueueStore struct {
	basePath  string
	namespace string
	idGen     IDGenerator
	now       func() time.Time
}

// NewQueueStore creates a QueueStore bound to the given namespace, backed by
// queue.yaml in basePath. idGen may be nil, in which case Enqueue requires
// an explicit TaskID.
func NewQueueStore(basePath, namespace string, idGen IDGenerator) QueueStore {
	return &fileQueueStore{
		basePath:  basePath,
		namespace: namespace,
		idGen:     idGen,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *fileQueueStore) Namespace() string {
	return s.namespace
}

func (s *fileQueueStore) queuePath() string {
	return filepath.Join(s.basePath, "queue.yaml")
}

func (s *fileQueueStore) lockPath() string {
	return filepath.Join(s.basePath, ".queue.lock")
}

func (s *fileQueueStore) key(taskID string) string {
	return s.namespace + "/" + taskID
}

// load reads the queue file from disk, returning an empty file when it does
// not exist yet.
func (s *fileQueueStore) load() (*QueueFile, error) {
	data, err := os.ReadFile(s.queuePath())
	if err != nil {
		if os.IsNotExist(err) {
			return &QueueFile{Version: "1.0", Tasks: make(map[string]models.Task)}, nil
		}
		return nil, fmt.Errorf("loading queue: %w", err)
	}

	var qf QueueFile
	if err := yaml.Unmarshal(data, &qf); err != nil {
		return nil, fmt.Errorf("loading queue: parsing YAML: %w", err)
	}
	if qf.Tasks == nil {
		qf.Tasks = make(map[string]models.Task)
	}
	return &qf, nil
}

func (s *fileQueueStore) save(qf *QueueFile) error {
	if err := os.MkdirAll(s.basePath, 0o750); err != nil {
		return fmt.Errorf("saving queue: creating directory: %w", err)
	}
	data, err := yaml.Marshal(qf)
	if err != nil {
		return fmt.Errorf("saving queue: marshaling YAML: %w", err)
	}
	if err := os.WriteFile(s.queuePath(), data, 0o600); err != nil {
		return fmt.Errorf("saving queue: writing file: %w", err)
	}
	return nil
}

// withLock runs fn under the exclusive queue lock with a freshly loaded
// queue file, persisting afterwards when fn reports dirty. Every mutation
// and every claim goes through here, which is what makes Claim a strict
// mutual-exclusion dequeue across goroutines and processes alike.
func (s *fileQueueStore) withLock(fn func(qf *QueueFile) (dirty bool, err error)) error {
	unlock, err := lockFile(s.lockPath())
	if err != nil {
		return err
	}
	defer func() { _ = unlock() }()

	qf, err := s.load()
	if err != nil {
		return err
	}

	dirty, err := fn(qf)
	if err != nil {
		return err
	}
	if dirty {
		return s.save(qf)
	}
	return nil
}

func (s *fileQueueStore) Enqueue(req EnqueueRequest) (*models.Task, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, fmt.Errorf("enqueuing task: prompt must not be empty")
	}

	taskType := req.Type
	if taskType == "" {
		taskType = models.TaskTypeImplementation
	}

	var created models.Task
	err := s.withLock(func(qf *QueueFile) (bool, error) {
		taskID := req.TaskID
		if taskID == "" {
			if s.idGen == nil {
				return false, fmt.Errorf("enqueuing task: no task ID given and no generator configured")
			}
			id, err := s.idGen.GenerateTaskID()
			if err != nil {
				return false, fmt.Errorf("enqueuing task: %w", err)
			}
			taskID = id
		}
		if _, exists := qf.Tasks[s.key(taskID)]; exists {
			return false, fmt.Errorf("enqueuing task: task %s already exists in namespace %s", taskID, s.namespace)
		}

		now := s.now()
		created = models.Task{
			TaskID:      taskID,
			TaskGroupID: req.TaskGroupID,
			SessionID:   req.SessionID,
			Namespace:   s.namespace,
			Prompt:      req.Prompt,
			Type:        taskType,
			Status:      models.StatusQueued,
			CreatedAt:   now,
			UpdatedAt:   now,
			Attempt:     1,
		}
		qf.Tasks[s.key(taskID)] = created
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Claim atomically selects the oldest QUEUED task in this namespace and
// transitions it to RUNNING. Under N concurrent callers and K eligible
// tasks, exactly K calls succeed and each returns a distinct task.
func (s *fileQueueStore) Claim() (*ClaimResult, error) {
	result := &ClaimResult{}
	err := s.withLock(func(qf *QueueFile) (bool, error) {
		var best *models.Task
		var bestKey string
		for key, task := range qf.Tasks {
			if task.Namespace != s.namespace || task.Status != models.StatusQueued {
				continue
			}
			t := task
			if best == nil ||
				t.CreatedAt.Before(best.CreatedAt) ||
				(t.CreatedAt.Equal(best.CreatedAt) && t.TaskID < best.TaskID) {
				best = &t
				bestKey = key
			}
		}
		if best == nil {
			return false, nil
		}

		best.Status = models.StatusRunning
		best.UpdatedAt = s.now()
		best.StartedAt = best.UpdatedAt
		qf.Tasks[bestKey] = *best

		claimed := *best
		result.Claimed = true
		result.Task = &claimed
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *fileQueueStore) UpdateStatus(taskID string, status models.TaskStatus, opts UpdateStatusOpts) (*UpdateResult, error) {
	result := &UpdateResult{}
	err := s.withLock(func(qf *QueueFile) (bool, error) {
		task, ok := qf.Tasks[s.key(taskID)]
		if !ok {
			result.Reason = ReasonTaskNotFound
			return false, nil
		}
		if !TransitionAllowed(task.Status, status) {
			result.Reason = ReasonInvalidTransition
			return false, nil
		}

		// RUNNING is entered exclusively through Claim, which stamps
		// StartedAt; reaching it here would leave a stale start time.
		if status == models.StatusRunning {
			result.Reason = ReasonInvalidTransition
			return false, nil
		}
		// AWAITING_RESPONSE carries a mandatory clarification and goes
		// through SetAwaitingResponse instead.
		if status == models.StatusAwaitingResponse {
			result.Reason = ReasonMissingClarification
			return false, nil
		}
		// A COMPLETE task must carry output; an ERROR task must carry an
		// actionable message. Bare terminal states are unrepresentable.
		if status == models.StatusComplete && opts.Output == "" && task.Output == "" {
			result.Reason = ReasonMissingOutput
			return false, nil
		}
		if status == models.StatusError && opts.ErrorMessage == "" && task.ErrorMessage == "" {
			result.Reason = ReasonMissingErrorMessage
			return false, nil
		}

		task.Status = status
		task.UpdatedAt = s.now()
		if opts.Output != "" {
			task.Output = opts.Output
		}
		if opts.ErrorMessage != "" {
			task.ErrorMessage = opts.ErrorMessage
		}
		if opts.FailureCategory != "" {
			task.FailureCategory = opts.FailureCategory
		}
		if opts.FailureNextActions != nil {
			task.FailureNextActions = opts.FailureNextActions
		}
		qf.Tasks[s.key(taskID)] = task

		snapshot := task
		result.OK = true
		result.Task = &snapshot
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// SetAwaitingResponse pauses a RUNNING task for clarification. Any partial
// output supplied is preserved; output already recorded is never cleared
// just because the task paused.
func (s *fileQueueStore) SetAwaitingResponse(taskID, clarification string, history []models.ConversationTurn, outputSoFar string) (*UpdateResult, error) {
	result := &UpdateResult{}
	err := s.withLock(func(qf *QueueFile) (bool, error) {
		task, ok := qf.Tasks[s.key(taskID)]
		if !ok {
			result.Reason = ReasonTaskNotFound
			return false, nil
		}
		if task.Status != models.StatusRunning {
			result.Reason = ReasonInvalidTransition
			return false, nil
		}
		if strings.TrimSpace(clarification) == "" {
			result.Reason = ReasonMissingClarification
			return false, nil
		}

		now := s.now()
		task.Status = models.StatusAwaitingResponse
		task.Clarification = clarification
		task.UpdatedAt = now
		if history != nil {
			task.ConversationHistory = history
		}
		task.ConversationHistory = append(task.ConversationHistory, models.ConversationTurn{
			Role:      "assistant",
			Content:   clarification,
			Timestamp: now,
		})
		if outputSoFar != "" {
			task.Output = outputSoFar
		}
		qf.Tasks[s.key(taskID)] = task

		snapshot := task
		result.OK = true
		result.Task = &snapshot
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ResumeWithResponse answers a clarification and re-queues the task.
// Resumption is deliberately a full re-queue with accumulated context, not
// a continuation: the process that asked the question is assumed dead.
func (s *fileQueueStore) ResumeWithResponse(taskID, reply string) (*UpdateResult, error) {
	result := &UpdateResult{}
	err := s.withLock(func(qf *QueueFile) (bool, error) {
		task, ok := qf.Tasks[s.key(taskID)]
		if !ok {
			result.Reason = ReasonTaskNotFound
			return false, nil
		}
		if task.Status != models.StatusAwaitingResponse {
			result.Reason = ReasonNotAwaiting
			return false, nil
		}

		now := s.now()
		task.ConversationHistory = append(task.ConversationHistory, models.ConversationTurn{
			Role:      "user",
			Content:   reply,
			Timestamp: now,
		})
		task.Status = models.StatusQueued
		task.Clarification = ""
		task.UpdatedAt = now
		qf.Tasks[s.key(taskID)] = task

		snapshot := task
		result.OK = true
		result.Task = &snapshot
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AppendProgress records a liveness signal for a RUNNING task. The event
// log is append-only with non-decreasing timestamps; events that would
// regress the log are rejected.
func (s *fileQueueStore) AppendProgress(taskID string, event models.ProgressEvent) (*UpdateResult, error) {
	result := &UpdateResult{}
	err := s.withLock(func(qf *QueueFile) (bool, error) {
		task, ok := qf.Tasks[s.key(taskID)]
		if !ok {
			result.Reason = ReasonTaskNotFound
			return false, nil
		}
		if task.Status != models.StatusRunning {
			result.Reason = ReasonNotRunning
			return false, nil
		}
		if !models.ValidProgressEventType(event.Type) {
			result.Reason = ReasonUnknownEventType
			return false, nil
		}

		if event.Timestamp.IsZero() {
			event.Timestamp = s.now()
		}
		if len(task.Events) > 0 {
			last := task.Events[len(task.Events)-1].Timestamp
			if event.Timestamp.Before(last) {
				result.Reason = ReasonEventOutOfOrder
				return false, nil
			}
		}

		task.Events = append(task.Events, event)
		task.UpdatedAt = s.now()
		qf.Tasks[s.key(taskID)] = task

		snapshot := task
		result.OK = true
		result.Task = &snapshot
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// GetTask returns the task with the given ID, or nil when no such task
// exists in this namespace. A missing task is a normal outcome, not an error.
func (s *fileQueueStore) GetTask(taskID string) (*models.Task, error) {
	qf, err := s.load()
	if err != nil {
		return nil, err
	}
	task, ok := qf.Tasks[s.key(taskID)]
	if !ok {
		return nil, nil
	}
	return &task, nil
}

func (s *fileQueueStore) GetAllTasks() ([]models.Task, error) {
	qf, err := s.load()
	if err != nil {
		return nil, err
	}
	tasks := make([]models.Task, 0, len(qf.Tasks))
	for _, task := range qf.Tasks {
		if task.Namespace == s.namespace {
			tasks = append(tasks, task)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].TaskID < tasks[j].TaskID
	})
	return tasks, nil
}

func (s *fileQueueStore) GetNonTerminal() ([]models.Task, error) {
	all, err := s.GetAllTasks()
	if err != nil {
		return nil, err
	}
	var tasks []models.Task
	for _, task := range all {
		if !task.Status.IsTerminal() {
			tasks = append(tasks, task)
		}
	}
	return tasks, nil
}

func (s *fileQueueStore) GetByTaskGroup(groupID string) (*models.TaskGroupSummary, []models.Task, error) {
	all, err := s.GetAllTasks()
	if err != nil {
		return nil, nil, err
	}
	var tasks []models.Task
	for _, task := range all {
		if task.TaskGroupID == groupID {
			tasks = append(tasks, task)
		}
	}
	if len(tasks) == 0 {
		return nil, nil, nil
	}
	summary := summarizeGroup(s.namespace, groupID, tasks)
	return &summary, tasks, nil
}

func (s *fileQueueStore) GetAllTaskGroups() ([]models.TaskGroupSummary, error) {
	all, err := s.GetAllTasks()
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]models.Task)
	for _, task := range all {
		grouped[task.TaskGroupID] = append(grouped[task.TaskGroupID], task)
	}

	summaries := make([]models.TaskGroupSummary, 0, len(grouped))
	for groupID, tasks := range grouped {
		summaries = append(summaries, summarizeGroup(s.namespace, groupID, tasks))
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].TaskGroupID < summaries[j].TaskGroupID
	})
	return summaries, nil
}

// summarizeGroup computes status counts and the status of the most recently
// updated task. tasks must be non-empty and sorted by CreatedAt.
func summarizeGroup(namespace, groupID string, tasks []models.Task) models.TaskGroupSummary {
	summary := models.TaskGroupSummary{
		TaskGroupID:  groupID,
		Namespace:    namespace,
		TaskCount:    len(tasks),
		StatusCounts: make(map[models.TaskStatus]int),
	}
	for _, task := range tasks {
		summary.StatusCounts[task.Status]++
		if !task.UpdatedAt.Before(summary.UpdatedAt) {
			summary.UpdatedAt = task.UpdatedAt
			summary.LatestStatus = task.Status
		}
	}
	return summary
}

// RecoverStaleTasks demotes RUNNING tasks with no progress within threshold
// back to QUEUED, incrementing their attempt counter. Already-demoted tasks
// are no longer RUNNING, so running this repeatedly is idempotent.
func (s *fileQueueStore) RecoverStaleTasks(threshold time.Duration) (int, error) {
	recovered := 0
	err := s.withLock(func(qf *QueueFile) (bool, error) {
		now := s.now()
		for key, task := range qf.Tasks {
			if task.Namespace != s.namespace || task.Status != models.StatusRunning {
				continue
			}
			last, _ := task.LastProgress()
			if now.Sub(last) < threshold {
				continue
			}
			task.Status = models.StatusQueued
			task.Attempt++
			task.UpdatedAt = now
			qf.Tasks[key] = task
			recovered++
		}
		return recovered > 0, nil
	})
	if err != nil {
		return 0, err
	}
	return recovered, nil
}

// Delete removes a task outright. The core never deletes tasks on its own;
// this exists for explicit operator cleanup only.
func (s *fileQueueStore) Delete(taskID string) (*UpdateResult, error) {
	result := &UpdateResult{}
	err := s.withLock(func(qf *QueueFile) (bool, error) {
		if _, ok := qf.Tasks[s.key(taskID)]; !ok {
			result.Reason = ReasonTaskNotFound
			return false, nil
		}
		delete(qf.Tasks, s.key(taskID))
		result.OK = true
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
