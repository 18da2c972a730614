package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/core"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
)

var (
	watchInterval time.Duration
	watchProfile  string
	watchOnce     bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll running tasks and enforce timeouts",
	Long: `Watch periodically evaluates every RUNNING task against its timeout
profile. A task that trips the idle or hard timeout is moved to
AWAITING_RESPONSE with a message describing what happened and how to
resume. Timeouts never cancel work on their own.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}

		profile := profileByName(watchProfile)
		if watchOnce {
			return watchPass(profile)
		}

		ticker := time.NewTicker(watchInterval)
		defer ticker.Stop()
		fmt.Printf("Watching namespace %q every %s (profile %s). Ctrl-C to stop.\n",
			Namespace, watchInterval, profile.Name)
		for {
			if err := watchPass(profile); err != nil {
				return err
			}
			select {
			case <-cmd.Context().Done():
				return nil
			case <-ticker.C:
			}
		}
	},
}

// watchPass evaluates every RUNNING task once and demotes those that have
// timed out.
func watchPass(profile models.TimeoutProfile) error {
	tasks, err := Queue.GetNonTerminal()
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	now := time.Now().UTC()
	for _, task := range tasks {
		if task.Status != models.StatusRunning {
			continue
		}
		last, _ := task.LastProgress()
		verdict := core.CheckTimeout(now, task.StartedAt, last, profile)
		if !verdict.ShouldSetAwaitingResponse {
			continue
		}

		res, err := Queue.SetAwaitingResponse(task.TaskID, verdict.Message, nil, task.Output)
		if err != nil {
			return fmt.Errorf("demoting %s: %w", task.TaskID, err)
		}
		if !res.OK {
			// Lost the race with a status change; nothing to enforce.
			continue
		}

		fmt.Printf("Task %s hit the %s timeout; moved to AWAITING_RESPONSE.\n",
			task.TaskID, verdict.Type)
		logEvent("timeout.fired", map[string]any{
			"task_id":      task.TaskID,
			"namespace":    task.Namespace,
			"timeout_type": string(verdict.Type),
			"profile":      profile.Name,
		})
		logEvent("queue.awaiting_response", map[string]any{
			"task_id":   task.TaskID,
			"namespace": task.Namespace,
			"reason":    "timeout",
		})
	}
	return nil
}

func init() {
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 10*time.Second, "poll interval")
	watchCmd.Flags().StringVar(&watchProfile, "profile", "standard", "timeout profile: standard, long, extended")
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "run a single pass and exit")
	rootCmd.AddCommand(watchCmd)
}
