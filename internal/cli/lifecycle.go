package cli

import (
	"fmt"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/storage"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
	"github.com/spf13/cobra"
)

// reportTransition prints the outcome of a mutation and logs it on success.
func reportTransition(taskID string, status models.TaskStatus, result *storage.UpdateResult) error {
	if !result.OK {
		return fmt.Errorf("updating task %s: rejected (%s)", taskID, result.Reason)
	}
	logEvent("queue.status_changed", map[string]any{
		"task_id":    taskID,
		"new_status": string(status),
	})
	fmt.Printf("Task %s is now %s\n", taskID, status)
	return nil
}

var completeCmd = &cobra.Command{
	Use:   "complete <task-id>",
	Short: "Mark a running task COMPLETE",
	Long:  `Record the final output for a RUNNING task and mark it COMPLETE. The output is mandatory.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}
		output, _ := cmd.Flags().GetString("output")

		result, err := Queue.UpdateStatus(args[0], models.StatusComplete, storage.UpdateStatusOpts{Output: output})
		if err != nil {
			return fmt.Errorf("completing task %s: %w", args[0], err)
		}
		return reportTransition(args[0], models.StatusComplete, result)
	},
}

var failCmd = &cobra.Command{
	Use:   "fail <task-id>",
	Short: "Mark a running task ERROR",
	Long: `Record a failure for a RUNNING task. The error message is mandatory and
must be actionable; --category and --next-action add recovery guidance.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}
		message, _ := cmd.Flags().GetString("message")
		category, _ := cmd.Flags().GetString("category")
		nextActions, _ := cmd.Flags().GetStringSlice("next-action")

		result, err := Queue.UpdateStatus(args[0], models.StatusError, storage.UpdateStatusOpts{
			ErrorMessage:       message,
			FailureCategory:    category,
			FailureNextActions: nextActions,
		})
		if err != nil {
			return fmt.Errorf("failing task %s: %w", args[0], err)
		}
		return reportTransition(args[0], models.StatusError, result)
	},
}

var cancelCmd = &cobra.Command{
	Use:   "cancel <task-id>",
	Short: "Cancel a task",
	Long:  `Cancel a non-terminal task. CANCELLED is terminal; no further transitions are accepted.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}
		result, err := Queue.UpdateStatus(args[0], models.StatusCancelled, storage.UpdateStatusOpts{})
		if err != nil {
			return fmt.Errorf("cancelling task %s: %w", args[0], err)
		}
		return reportTransition(args[0], models.StatusCancelled, result)
	},
}

var progressCmd = &cobra.Command{
	Use:   "progress <task-id>",
	Short: "Record a progress event for a running task",
	Long: `Append a liveness signal to a RUNNING task's event log so timeout and
restart evaluation see it as alive.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}
		eventType, _ := cmd.Flags().GetString("event")
		detail, _ := cmd.Flags().GetString("detail")

		event := models.ProgressEvent{Type: models.ProgressEventType(eventType)}
		if detail != "" {
			event.Data = map[string]any{"detail": detail}
		}

		result, err := Queue.AppendProgress(args[0], event)
		if err != nil {
			return fmt.Errorf("recording progress for %s: %w", args[0], err)
		}
		if !result.OK {
			return fmt.Errorf("recording progress for %s: rejected (%s)", args[0], result.Reason)
		}
		fmt.Printf("Recorded %s event for %s (%d events)\n", eventType, args[0], len(result.Task.Events))
		return nil
	},
}

var askCmd = &cobra.Command{
	Use:   "ask <task-id> <clarification>",
	Short: "Pause a running task with a clarification question",
	Long: `Transition a RUNNING task to AWAITING_RESPONSE with a question for the
human. Partial output passed via --output is preserved, never dropped.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}
		outputSoFar, _ := cmd.Flags().GetString("output")

		result, err := Queue.SetAwaitingResponse(args[0], args[1], nil, outputSoFar)
		if err != nil {
			return fmt.Errorf("pausing task %s: %w", args[0], err)
		}
		if !result.OK {
			return fmt.Errorf("pausing task %s: rejected (%s)", args[0], result.Reason)
		}

		logEvent("queue.awaiting_response", map[string]any{"task_id": args[0]})
		fmt.Printf("Task %s is awaiting a response:\n  %s\n", args[0], args[1])
		return nil
	},
}

var respondCmd = &cobra.Command{
	Use:   "respond <task-id> <reply>",
	Short: "Answer a clarification and re-queue the task",
	Long: `Append the reply to the task's conversation history and transition it back
to QUEUED. Resumption is a full re-queue with accumulated context, not a
continuation of the old process.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}
		result, err := Queue.ResumeWithResponse(args[0], args[1])
		if err != nil {
			return fmt.Errorf("responding to task %s: %w", args[0], err)
		}
		if !result.OK {
			return fmt.Errorf("responding to task %s: rejected (%s)", args[0], result.Reason)
		}

		logEvent("queue.resumed", map[string]any{"task_id": args[0]})
		fmt.Printf("Task %s re-queued (attempt %d, %d conversation turns)\n",
			args[0], result.Task.Attempt, len(result.Task.ConversationHistory))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <task-id>",
	Short: "Remove a task from the queue",
	Long: `Remove a task record entirely. Nothing deletes tasks automatically;
this is the only removal path.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}
		result, err := Queue.Delete(args[0])
		if err != nil {
			return fmt.Errorf("deleting task %s: %w", args[0], err)
		}
		if !result.OK {
			return fmt.Errorf("deleting task %s: rejected (%s)", args[0], result.Reason)
		}
		logEvent("queue.deleted", map[string]any{"task_id": args[0]})
		fmt.Printf("Deleted task %s\n", args[0])
		return nil
	},
}

func init() {
	completeCmd.Flags().String("output", "", "final task output (required)")
	failCmd.Flags().String("message", "", "actionable error message (required)")
	failCmd.Flags().String("category", "", "failure category")
	failCmd.Flags().StringSlice("next-action", nil, "suggested recovery action (repeatable)")
	progressCmd.Flags().String("event", "heartbeat", "event type: heartbeat, tool_progress, stdout_chunk, stderr_chunk, token_generated, log_chunk")
	progressCmd.Flags().String("detail", "", "optional event payload")
	askCmd.Flags().String("output", "", "partial output produced so far")

	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(failCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(progressCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(respondCmd)
	rootCmd.AddCommand(deleteCmd)
}
