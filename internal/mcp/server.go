// Package mcp provides an MCP (Model Context Protocol) server that exposes
// the task queue as tools for the external agent executor. This is the
// executor boundary: the agent claims work, streams progress, asks for
// clarification, and reports terminal results through these tools.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/core"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/observability"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/storage"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the queue services and exposes them as MCP tools.
type Server struct {
	server      *gomcp.Server
	queue       storage.QueueStore
	restart     core.RestartHandler
	metricsCalc observability.MetricsCalculator
	alertEngine observability.AlertEngine
	events      core.EventLogger
}

// NewServer creates an MCP server over the given queue services.
// restart, metricsCalc, alertEngine, and events may be nil.
func NewServer(queue storage.QueueStore, restart core.RestartHandler, metricsCalc observability.MetricsCalculator, alertEngine observability.AlertEngine, events core.EventLogger, version string) *Server {
	if version == "" {
		version = "dev"
	}

	s := &Server{
		queue:       queue,
		restart:     restart,
		metricsCalc: metricsCalc,
		alertEngine: alertEngine,
		events:      events,
	}

	s.server = gomcp.NewServer(
		&gomcp.Implementation{Name: "aqg", Version: version},
		nil,
	)

	s.registerTools()

	return s
}

// Run starts the MCP server on stdio, blocking until the client disconnects
// or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &gomcp.StdioTransport{})
}

// MCPServer returns the underlying mcp.Server for testing purposes.
func (s *Server) MCPServer() *gomcp.Server {
	return s.server
}

// --- Tool input/output types ---

type enqueueInput struct {
	SessionID   string `json:"session_id" jsonschema:"required,the executor session this task belongs to"`
	TaskGroupID string `json:"task_group_id" jsonschema:"required,the group the task belongs to for aggregation"`
	Prompt      string `json:"prompt" jsonschema:"required,the natural-language task for the agent"`
	TaskID      string `json:"task_id,omitempty" jsonschema:"optional explicit task ID; generated when omitted"`
	TaskType    string `json:"task_type,omitempty" jsonschema:"one of READ_INFO, IMPLEMENTATION, REPORT, DANGEROUS_OP (default IMPLEMENTATION)"`
}

type taskOutput struct {
	TaskID        string `json:"task_id"`
	TaskGroupID   string `json:"task_group_id"`
	SessionID     string `json:"session_id"`
	Namespace     string `json:"namespace"`
	Prompt        string `json:"prompt"`
	TaskType      string `json:"task_type"`
	Status        string `json:"status"`
	Attempt       int    `json:"attempt"`
	EventCount    int    `json:"event_count"`
	Output        string `json:"output,omitempty"`
	ErrorMessage  string `json:"error_message,omitempty"`
	Clarification string `json:"clarification,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

type claimInput struct{}

type claimOutput struct {
	Claimed bool        `json:"claimed"`
	Task    *taskOutput `json:"task,omitempty"`
}

type updateStatusInput struct {
	TaskID       string `json:"task_id" jsonschema:"required,the task to update"`
	Status       string `json:"status" jsonschema:"required,one of COMPLETE, ERROR, CANCELLED"`
	Output       string `json:"output,omitempty" jsonschema:"final output; required when status is COMPLETE"`
	ErrorMessage string `json:"error_message,omitempty" jsonschema:"actionable failure message; required when status is ERROR"`
}

type updateStatusOutput struct {
	OK      bool   `json:"ok"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message"`
}

type reportProgressInput struct {
	TaskID    string `json:"task_id" jsonschema:"required,the RUNNING task the event belongs to"`
	EventType string `json:"event_type" jsonschema:"required,one of heartbeat, tool_progress, stdout_chunk, stderr_chunk, token_generated, log_chunk"`
	Detail    string `json:"detail,omitempty" jsonschema:"optional event payload"`
}

type requestClarificationInput struct {
	TaskID        string `json:"task_id" jsonschema:"required,the RUNNING task to pause"`
	Clarification string `json:"clarification" jsonschema:"required,the question for the human"`
	OutputSoFar   string `json:"output_so_far,omitempty" jsonschema:"partial output to preserve"`
}

type respondInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the AWAITING_RESPONSE task"`
	Reply  string `json:"reply" jsonschema:"required,the human reply; the task is re-queued with it"`
}

type getTaskInput struct {
	TaskID string `json:"task_id" jsonschema:"required,the task identifier"`
}

type listTaskGroupsInput struct{}

type taskGroupOutput struct {
	TaskGroupID  string         `json:"task_group_id"`
	TaskCount    int            `json:"task_count"`
	StatusCounts map[string]int `json:"status_counts"`
	LatestStatus string         `json:"latest_status"`
}

type listTaskGroupsOutput struct {
	Groups []taskGroupOutput `json:"groups"`
	Count  int               `json:"count"`
}

type getMetricsInput struct {
	Since string `json:"since,omitempty" jsonschema:"time window for metrics (e.g. 7d, 30d, 24h). Defaults to 7d."`
}

type metricsOutput struct {
	TasksEnqueued  int            `json:"tasks_enqueued"`
	TasksClaimed   int            `json:"tasks_claimed"`
	TasksCompleted int            `json:"tasks_completed"`
	TasksFailed    int            `json:"tasks_failed"`
	Clarifications int            `json:"clarifications"`
	TimeoutsFired  int            `json:"timeouts_fired"`
	TasksRecovered int            `json:"tasks_recovered"`
	TasksByType    map[string]int `json:"tasks_by_type"`
	EventCount     int            `json:"event_count"`
	OldestEvent    string         `json:"oldest_event,omitempty"`
	NewestEvent    string         `json:"newest_event,omitempty"`
}

type getAlertsInput struct{}

type alertOutput struct {
	ID          string `json:"id"`
	Condition   string `json:"condition"`
	Severity    string `json:"severity"`
	Message     string `json:"message"`
	TriggeredAt string `json:"triggered_at"`
}

type getAlertsOutput struct {
	Alerts []alertOutput `json:"alerts"`
	Count  int           `json:"count"`
}

type checkRestartInput struct{}

type checkRestartOutput struct {
	TotalChecked int      `json:"total_checked"`
	StaleTasks   []string `json:"stale_tasks"`
	Continue     []string `json:"continue_tasks"`
	Rollback     []string `json:"rollback_tasks"`
}

// --- Tool registration ---

func (s *Server) registerTools() {
	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "enqueue_task",
		Description: "Enqueue a natural-language task for the agent executor. Returns the created QUEUED task.",
	}, s.handleEnqueue)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "claim_task",
		Description: "Atomically claim the oldest QUEUED task, transitioning it to RUNNING. Returns claimed=false when the queue is empty.",
	}, s.handleClaim)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "update_task_status",
		Description: "Report a terminal result for a task. COMPLETE requires output; ERROR requires an actionable error_message.",
	}, s.handleUpdateStatus)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "report_progress",
		Description: "Record a liveness signal for a RUNNING task so it is not classified as stale.",
	}, s.handleReportProgress)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "request_clarification",
		Description: "Pause a RUNNING task with a question for the human. Partial output is preserved.",
	}, s.handleRequestClarification)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "respond_to_task",
		Description: "Answer a clarification. The reply is appended to the conversation and the task is re-queued for replay.",
	}, s.handleRespond)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_task",
		Description: "Get one task by ID, including its status, attempt counter, and progress event count.",
	}, s.handleGetTask)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "list_task_groups",
		Description: "List per-group aggregations: task counts, status counts, and the latest status.",
	}, s.handleListTaskGroups)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "check_restart",
		Description: "Classify all non-terminal tasks after a restart into stale, continue, and rollback buckets.",
	}, s.handleCheckRestart)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_metrics",
		Description: "Get aggregated queue metrics from the event log: task counts, clarifications, timeouts, recoveries.",
	}, s.handleGetMetrics)

	gomcp.AddTool(s.server, &gomcp.Tool{
		Name:        "get_alerts",
		Description: "Evaluate and return active alerts (stale running tasks, unanswered clarifications, queue depth).",
	}, s.handleGetAlerts)
}

// --- Tool handlers ---

func (s *Server) handleEnqueue(_ context.Context, _ *gomcp.CallToolRequest, input enqueueInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.Prompt == "" {
		return errorResult("prompt is required"), taskOutput{}, nil
	}

	task, err := s.queue.Enqueue(storage.EnqueueRequest{
		SessionID:   input.SessionID,
		TaskGroupID: input.TaskGroupID,
		Prompt:      input.Prompt,
		TaskID:      input.TaskID,
		Type:        models.TaskType(input.TaskType),
	})
	if err != nil {
		return errorResult(fmt.Sprintf("enqueuing task: %s", err)), taskOutput{}, nil
	}

	s.logEvent("queue.enqueued", map[string]any{
		"task_id":   task.TaskID,
		"task_type": string(task.Type),
		"namespace": task.Namespace,
		"group":     task.TaskGroupID,
	})
	return nil, taskToOutput(task), nil
}

func (s *Server) handleClaim(_ context.Context, _ *gomcp.CallToolRequest, _ claimInput) (*gomcp.CallToolResult, claimOutput, error) {
	result, err := s.queue.Claim()
	if err != nil {
		return errorResult(fmt.Sprintf("claiming task: %s", err)), claimOutput{}, nil
	}
	if !result.Claimed {
		return nil, claimOutput{Claimed: false}, nil
	}

	s.logEvent("queue.claimed", map[string]any{
		"task_id": result.Task.TaskID,
		"attempt": result.Task.Attempt,
	})
	out := taskToOutput(result.Task)
	return nil, claimOutput{Claimed: true, Task: &out}, nil
}

func (s *Server) handleUpdateStatus(_ context.Context, _ *gomcp.CallToolRequest, input updateStatusInput) (*gomcp.CallToolResult, updateStatusOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), updateStatusOutput{}, nil
	}
	status := models.TaskStatus(input.Status)
	switch status {
	case models.StatusComplete, models.StatusError, models.StatusCancelled:
	default:
		return errorResult(fmt.Sprintf("invalid status %q: must be one of COMPLETE, ERROR, CANCELLED", input.Status)), updateStatusOutput{}, nil
	}

	result, err := s.queue.UpdateStatus(input.TaskID, status, storage.UpdateStatusOpts{
		Output:       input.Output,
		ErrorMessage: input.ErrorMessage,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("updating task %s: %s", input.TaskID, err)), updateStatusOutput{}, nil
	}
	if !result.OK {
		return nil, updateStatusOutput{
			OK:      false,
			Reason:  result.Reason,
			Message: fmt.Sprintf("update rejected: %s", result.Reason),
		}, nil
	}

	s.logEvent("queue.status_changed", map[string]any{
		"task_id":    input.TaskID,
		"new_status": string(status),
	})
	return nil, updateStatusOutput{
		OK:      true,
		Message: fmt.Sprintf("task %s is now %s", input.TaskID, status),
	}, nil
}

func (s *Server) handleReportProgress(_ context.Context, _ *gomcp.CallToolRequest, input reportProgressInput) (*gomcp.CallToolResult, updateStatusOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), updateStatusOutput{}, nil
	}

	event := models.ProgressEvent{Type: models.ProgressEventType(input.EventType)}
	if input.Detail != "" {
		event.Data = map[string]any{"detail": input.Detail}
	}

	result, err := s.queue.AppendProgress(input.TaskID, event)
	if err != nil {
		return errorResult(fmt.Sprintf("recording progress for %s: %s", input.TaskID, err)), updateStatusOutput{}, nil
	}
	if !result.OK {
		return nil, updateStatusOutput{
			OK:      false,
			Reason:  result.Reason,
			Message: fmt.Sprintf("progress rejected: %s", result.Reason),
		}, nil
	}
	return nil, updateStatusOutput{
		OK:      true,
		Message: fmt.Sprintf("progress recorded for %s", input.TaskID),
	}, nil
}

func (s *Server) handleRequestClarification(_ context.Context, _ *gomcp.CallToolRequest, input requestClarificationInput) (*gomcp.CallToolResult, updateStatusOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), updateStatusOutput{}, nil
	}
	if input.Clarification == "" {
		return errorResult("clarification is required"), updateStatusOutput{}, nil
	}

	result, err := s.queue.SetAwaitingResponse(input.TaskID, input.Clarification, nil, input.OutputSoFar)
	if err != nil {
		return errorResult(fmt.Sprintf("pausing task %s: %s", input.TaskID, err)), updateStatusOutput{}, nil
	}
	if !result.OK {
		return nil, updateStatusOutput{
			OK:      false,
			Reason:  result.Reason,
			Message: fmt.Sprintf("clarification rejected: %s", result.Reason),
		}, nil
	}

	s.logEvent("queue.awaiting_response", map[string]any{"task_id": input.TaskID})
	return nil, updateStatusOutput{
		OK:      true,
		Message: fmt.Sprintf("task %s is awaiting a response", input.TaskID),
	}, nil
}

func (s *Server) handleRespond(_ context.Context, _ *gomcp.CallToolRequest, input respondInput) (*gomcp.CallToolResult, updateStatusOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), updateStatusOutput{}, nil
	}
	if input.Reply == "" {
		return errorResult("reply is required"), updateStatusOutput{}, nil
	}

	result, err := s.queue.ResumeWithResponse(input.TaskID, input.Reply)
	if err != nil {
		return errorResult(fmt.Sprintf("responding to task %s: %s", input.TaskID, err)), updateStatusOutput{}, nil
	}
	if !result.OK {
		return nil, updateStatusOutput{
			OK:      false,
			Reason:  result.Reason,
			Message: fmt.Sprintf("response rejected: %s", result.Reason),
		}, nil
	}

	s.logEvent("queue.resumed", map[string]any{"task_id": input.TaskID})
	return nil, updateStatusOutput{
		OK:      true,
		Message: fmt.Sprintf("task %s re-queued with the reply", input.TaskID),
	}, nil
}

func (s *Server) handleGetTask(_ context.Context, _ *gomcp.CallToolRequest, input getTaskInput) (*gomcp.CallToolResult, taskOutput, error) {
	if input.TaskID == "" {
		return errorResult("task_id is required"), taskOutput{}, nil
	}

	task, err := s.queue.GetTask(input.TaskID)
	if err != nil {
		return errorResult(fmt.Sprintf("getting task %s: %s", input.TaskID, err)), taskOutput{}, nil
	}
	if task == nil {
		return errorResult(fmt.Sprintf("task %s not found", input.TaskID)), taskOutput{}, nil
	}
	return nil, taskToOutput(task), nil
}

func (s *Server) handleListTaskGroups(_ context.Context, _ *gomcp.CallToolRequest, _ listTaskGroupsInput) (*gomcp.CallToolResult, listTaskGroupsOutput, error) {
	groups, err := s.queue.GetAllTaskGroups()
	if err != nil {
		return errorResult(fmt.Sprintf("listing task groups: %s", err)), listTaskGroupsOutput{}, nil
	}

	out := listTaskGroupsOutput{Count: len(groups)}
	for _, g := range groups {
		counts := make(map[string]int, len(g.StatusCounts))
		for status, n := range g.StatusCounts {
			counts[string(status)] = n
		}
		out.Groups = append(out.Groups, taskGroupOutput{
			TaskGroupID:  g.TaskGroupID,
			TaskCount:    g.TaskCount,
			StatusCounts: counts,
			LatestStatus: string(g.LatestStatus),
		})
	}
	return nil, out, nil
}

func (s *Server) handleCheckRestart(_ context.Context, _ *gomcp.CallToolRequest, _ checkRestartInput) (*gomcp.CallToolResult, checkRestartOutput, error) {
	if s.restart == nil {
		return errorResult("restart handler not available"), checkRestartOutput{}, nil
	}

	report, err := s.restart.CheckAllTasks()
	if err != nil {
		return errorResult(fmt.Sprintf("checking tasks: %s", err)), checkRestartOutput{}, nil
	}

	out := checkRestartOutput{
		TotalChecked: report.TotalChecked,
		Rollback:     report.RollbackTasks,
	}
	for _, t := range report.StaleTasks {
		out.StaleTasks = append(out.StaleTasks, t.TaskID)
	}
	for _, t := range report.ContinueTasks {
		out.Continue = append(out.Continue, t.TaskID)
	}
	return nil, out, nil
}

func (s *Server) handleGetMetrics(_ context.Context, _ *gomcp.CallToolRequest, input getMetricsInput) (*gomcp.CallToolResult, metricsOutput, error) {
	// The SDK validates structured output against the schema even for error
	// results, and a nil map serializes as null rather than an object.
	emptyOut := metricsOutput{TasksByType: map[string]int{}}
	if s.metricsCalc == nil {
		return errorResult("metrics calculator not available (observability may be disabled)"), emptyOut, nil
	}

	sinceStr := input.Since
	if sinceStr == "" {
		sinceStr = "7d"
	}
	sinceTime, err := parseSince(sinceStr)
	if err != nil {
		return errorResult(fmt.Sprintf("parsing since duration: %s", err)), emptyOut, nil
	}

	metrics, err := s.metricsCalc.Calculate(sinceTime)
	if err != nil {
		return errorResult(fmt.Sprintf("calculating metrics: %s", err)), emptyOut, nil
	}

	out := metricsOutput{
		TasksEnqueued:  metrics.TasksEnqueued,
		TasksClaimed:   metrics.TasksClaimed,
		TasksCompleted: metrics.TasksCompleted,
		TasksFailed:    metrics.TasksFailed,
		Clarifications: metrics.Clarifications,
		TimeoutsFired:  metrics.TimeoutsFired,
		TasksRecovered: metrics.TasksRecovered,
		TasksByType:    metrics.TasksByType,
		EventCount:     metrics.EventCount,
	}
	if out.TasksByType == nil {
		out.TasksByType = map[string]int{}
	}
	if metrics.OldestEvent != nil {
		out.OldestEvent = metrics.OldestEvent.Format(time.RFC3339)
	}
	if metrics.NewestEvent != nil {
		out.NewestEvent = metrics.NewestEvent.Format(time.RFC3339)
	}
	return nil, out, nil
}

func (s *Server) handleGetAlerts(_ context.Context, _ *gomcp.CallToolRequest, _ getAlertsInput) (*gomcp.CallToolResult, getAlertsOutput, error) {
	if s.alertEngine == nil {
		return errorResult("alert engine not available (observability may be disabled)"), getAlertsOutput{}, nil
	}

	alerts, err := s.alertEngine.Evaluate()
	if err != nil {
		return errorResult(fmt.Sprintf("evaluating alerts: %s", err)), getAlertsOutput{}, nil
	}

	out := getAlertsOutput{
		Alerts: make([]alertOutput, len(alerts)),
		Count:  len(alerts),
	}
	for i, a := range alerts {
		out.Alerts[i] = alertOutput{
			ID:          a.ID,
			Condition:   a.Condition,
			Severity:    string(a.Severity),
			Message:     a.Message,
			TriggeredAt: a.TriggeredAt.Format(time.RFC3339),
		}
	}
	return nil, out, nil
}

// --- Helpers ---

// parseSince converts a "7d" / "24h" style window into an absolute time.
func parseSince(s string) (time.Time, error) {
	now := time.Now().UTC()

	if len(s) < 2 {
		return time.Time{}, fmt.Errorf("invalid duration %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]
	var num int
	if _, err := fmt.Sscanf(numStr, "%d", &num); err != nil {
		return time.Time{}, fmt.Errorf("invalid duration %q: %w", s, err)
	}

	switch suffix {
	case 'd':
		return now.AddDate(0, 0, -num), nil
	case 'h':
		return now.Add(-time.Duration(num) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported duration suffix %q (use d or h)", string(suffix))
	}
}

func taskToOutput(t *models.Task) taskOutput {
	return taskOutput{
		TaskID:        t.TaskID,
		TaskGroupID:   t.TaskGroupID,
		SessionID:     t.SessionID,
		Namespace:     t.Namespace,
		Prompt:        t.Prompt,
		TaskType:      string(t.Type),
		Status:        string(t.Status),
		Attempt:       t.Attempt,
		EventCount:    len(t.Events),
		Output:        t.Output,
		ErrorMessage:  t.ErrorMessage,
		Clarification: t.Clarification,
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     t.UpdatedAt.Format(time.RFC3339),
	}
}

func (s *Server) logEvent(eventType string, data map[string]any) {
	if s.events != nil {
		_ = s.events.LogEvent(eventType, data)
	}
}

func errorResult(msg string) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: msg}},
		IsError: true,
	}
}
