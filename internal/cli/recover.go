package cli

import (
	"fmt"
	"time"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/core"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Classify all non-terminal tasks after a restart",
	Long: `Classify every non-terminal task by the staleness of its last recorded
progress. Stale RUNNING tasks are recommended for rollback-replay; tasks
awaiting a response survive as-is. Nothing is mutated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Restart == nil {
			return fmt.Errorf("restart handler not initialized")
		}

		report, err := Restart.CheckAllTasks()
		if err != nil {
			return fmt.Errorf("checking tasks: %w", err)
		}

		fmt.Printf("Checked %d non-terminal tasks\n", report.TotalChecked)
		fmt.Printf("  Stale (rollback-replay): %d\n", len(report.StaleTasks))
		for _, t := range report.StaleTasks {
			last, _ := t.LastProgress()
			fmt.Printf("    %-12s last progress %s (attempt %d)\n",
				t.TaskID, last.Format(time.RFC3339), t.Attempt)
		}
		fmt.Printf("  Awaiting response (continue): %d\n", len(report.ContinueTasks))
		for _, t := range report.ContinueTasks {
			fmt.Printf("    %-12s %q\n", t.TaskID, t.Clarification)
		}
		return nil
	},
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Re-queue all stale running tasks",
	Long: `Demote every stale RUNNING task back to QUEUED with an incremented
attempt counter. Safe to run repeatedly: a second consecutive run recovers
nothing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Restart == nil {
			return fmt.Errorf("restart handler not initialized")
		}

		count, err := Restart.RecoverStaleTasks()
		if err != nil {
			return fmt.Errorf("recovering stale tasks: %w", err)
		}
		if count == 0 {
			fmt.Println("No stale tasks to recover.")
			return nil
		}
		fmt.Printf("Recovered %d stale tasks back to QUEUED.\n", count)
		return nil
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume [task-id]",
	Short: "Show resume options for stuck tasks",
	Long: `Without arguments, list the tasks that warrant operator attention (awaiting
a response, or running but stale). With a task ID, show the recovery paths
available for that task.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}
		if len(args) == 1 {
			return showResumeOptions(args[0])
		}
		return listResumable()
	},
}

func showResumeOptions(taskID string) error {
	task, err := Queue.GetTask(taskID)
	if err != nil {
		return fmt.Errorf("getting task %s: %w", taskID, err)
	}
	if task == nil {
		return fmt.Errorf("task %s not found in namespace %s", taskID, Namespace)
	}

	opts := core.GetResumeOptions(task, time.Now().UTC(), ResumePolicy)
	fmt.Printf("Task %s (%s)\n", task.TaskID, task.Status)
	fmt.Printf("  Can resume:          %v\n", opts.CanResume)
	fmt.Printf("  Can rollback-replay: %v\n", opts.CanRollbackReplay)
	fmt.Printf("  Can soft-resume:     %v\n", opts.CanSoftResume)
	fmt.Printf("  Default action:      %s\n", opts.DefaultAction)
	return nil
}

func listResumable() error {
	tasks, err := Queue.GetNonTerminal()
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}

	now := time.Now().UTC()
	shown := 0
	for _, t := range tasks {
		task := t
		if !core.ShouldShowResumeUI(&task, now, ResumePolicy.StaleThreshold) {
			continue
		}
		shown++
		if task.Clarification != "" {
			fmt.Printf("  %-12s %-18s %q\n", task.TaskID, task.Status, task.Clarification)
		} else {
			last, _ := task.LastProgress()
			fmt.Printf("  %-12s %-18s stale since %s\n", task.TaskID, task.Status, last.Format(time.RFC3339))
		}
	}
	if shown == 0 {
		fmt.Println("No tasks need attention.")
	}
	return nil
}

func init() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(resumeCmd)
}
