package cli

import (
	"fmt"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/storage"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
	"github.com/spf13/cobra"
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue <prompt>",
	Short: "Enqueue a task for the agent executor",
	Long: `Enqueue a natural-language task. The task starts QUEUED and waits for an
executor to claim it. A task ID is generated unless --id is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}

		sessionFlag, _ := cmd.Flags().GetString("session")
		groupFlag, _ := cmd.Flags().GetString("group")
		idFlag, _ := cmd.Flags().GetString("id")
		typeFlag, _ := cmd.Flags().GetString("type")

		task, err := Queue.Enqueue(storage.EnqueueRequest{
			SessionID:   sessionFlag,
			TaskGroupID: groupFlag,
			Prompt:      args[0],
			TaskID:      idFlag,
			Type:        models.TaskType(typeFlag),
		})
		if err != nil {
			return fmt.Errorf("enqueuing task: %w", err)
		}

		logEvent("queue.enqueued", map[string]any{
			"task_id":   task.TaskID,
			"task_type": string(task.Type),
			"namespace": task.Namespace,
			"group":     task.TaskGroupID,
		})

		fmt.Printf("Enqueued task %s\n", task.TaskID)
		fmt.Printf("  Type:      %s\n", task.Type)
		fmt.Printf("  Group:     %s\n", task.TaskGroupID)
		fmt.Printf("  Namespace: %s\n", task.Namespace)
		return nil
	},
}

var claimCmd = &cobra.Command{
	Use:   "claim",
	Short: "Claim the oldest queued task",
	Long: `Atomically claim the oldest QUEUED task in the namespace, transitioning it
to RUNNING. Prints the task prompt for the executor. Exits cleanly with a
message when the queue is empty.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}

		result, err := Queue.Claim()
		if err != nil {
			return fmt.Errorf("claiming task: %w", err)
		}
		if !result.Claimed {
			fmt.Println("Queue is empty; nothing to claim.")
			return nil
		}

		task := result.Task
		logEvent("queue.claimed", map[string]any{
			"task_id": task.TaskID,
			"attempt": task.Attempt,
		})

		fmt.Printf("Claimed task %s (attempt %d)\n", task.TaskID, task.Attempt)
		fmt.Printf("  Type:   %s\n", task.Type)
		fmt.Printf("  Group:  %s\n", task.TaskGroupID)
		fmt.Printf("  Prompt: %s\n", task.Prompt)
		if len(task.ConversationHistory) > 0 {
			fmt.Printf("  Conversation (%d turns):\n", len(task.ConversationHistory))
			for _, turn := range task.ConversationHistory {
				fmt.Printf("    [%s] %s\n", turn.Role, turn.Content)
			}
		}
		return nil
	},
}

func init() {
	enqueueCmd.Flags().String("session", "", "executor session ID")
	enqueueCmd.Flags().String("group", "", "task group ID for aggregation")
	enqueueCmd.Flags().String("id", "", "explicit task ID (generated when omitted)")
	enqueueCmd.Flags().String("type", "", "task type: READ_INFO, IMPLEMENTATION, REPORT, DANGEROUS_OP")

	rootCmd.AddCommand(enqueueCmd)
	rootCmd.AddCommand(claimCmd)
}
