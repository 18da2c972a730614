package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/core"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show one task, or all tasks in the namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}
		if len(args) == 1 {
			return showTask(args[0])
		}
		return listTasks()
	},
}

func showTask(taskID string) error {
	task, err := Queue.GetTask(taskID)
	if err != nil {
		return fmt.Errorf("getting task %s: %w", taskID, err)
	}
	if task == nil {
		return fmt.Errorf("task %s not found in namespace %s", taskID, Namespace)
	}

	fmt.Printf("Task %s\n", task.TaskID)
	fmt.Printf("  Status:    %s\n", task.Status)
	fmt.Printf("  Type:      %s\n", task.Type)
	fmt.Printf("  Group:     %s\n", task.TaskGroupID)
	fmt.Printf("  Session:   %s\n", task.SessionID)
	fmt.Printf("  Attempt:   %d\n", task.Attempt)
	fmt.Printf("  Created:   %s\n", task.CreatedAt.Format(time.RFC3339))
	fmt.Printf("  Updated:   %s\n", task.UpdatedAt.Format(time.RFC3339))
	fmt.Printf("  Events:    %d\n", len(task.Events))
	if task.Status == models.StatusRunning {
		now := time.Now().UTC()
		last, _ := task.LastProgress()
		remaining := core.GetRemainingTime(now, task.StartedAt, last, Profiles.Standard)
		fmt.Printf("  Next timeout: %s in %s\n", remaining.NextTimeoutType, remaining.NextTimeout.Round(time.Second))
	}
	if task.Clarification != "" {
		fmt.Printf("  Clarification: %s\n", task.Clarification)
	}
	if task.Output != "" {
		fmt.Printf("  Output:\n%s\n", task.Output)
	}
	if task.ErrorMessage != "" {
		fmt.Printf("  Error:     %s\n", task.ErrorMessage)
		if task.FailureCategory != "" {
			fmt.Printf("  Category:  %s\n", task.FailureCategory)
		}
		for _, action := range task.FailureNextActions {
			fmt.Printf("  Next:      %s\n", action)
		}
	}
	return nil
}

func listTasks() error {
	tasks, err := Queue.GetAllTasks()
	if err != nil {
		return fmt.Errorf("listing tasks: %w", err)
	}
	if len(tasks) == 0 {
		fmt.Printf("No tasks in namespace %s.\n", Namespace)
		return nil
	}

	fmt.Printf("  %-12s %-18s %-16s %-12s %-8s %s\n", "ID", "STATUS", "TYPE", "GROUP", "ATTEMPT", "UPDATED")
	for _, t := range tasks {
		fmt.Printf("  %-12s %-18s %-16s %-12s %-8d %s\n",
			t.TaskID, t.Status, t.Type, t.TaskGroupID, t.Attempt,
			t.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

var groupsCmd = &cobra.Command{
	Use:   "groups [group-id]",
	Short: "Show per-group task aggregations",
	Long: `Show status counts, task counts, and the latest status per task group.
Aggregations are strictly namespace-scoped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}
		if len(args) == 1 {
			return showGroup(args[0])
		}
		return listGroups()
	},
}

func showGroup(groupID string) error {
	summary, tasks, err := Queue.GetByTaskGroup(groupID)
	if err != nil {
		return fmt.Errorf("getting task group %s: %w", groupID, err)
	}
	if summary == nil {
		return fmt.Errorf("task group %s not found in namespace %s", groupID, Namespace)
	}

	printGroupSummary(*summary)
	fmt.Println()
	for _, t := range tasks {
		fmt.Printf("  %-12s %-18s attempt %d\n", t.TaskID, t.Status, t.Attempt)
	}
	return nil
}

func listGroups() error {
	groups, err := Queue.GetAllTaskGroups()
	if err != nil {
		return fmt.Errorf("listing task groups: %w", err)
	}
	if len(groups) == 0 {
		fmt.Printf("No task groups in namespace %s.\n", Namespace)
		return nil
	}
	for _, g := range groups {
		printGroupSummary(g)
	}
	return nil
}

func printGroupSummary(g models.TaskGroupSummary) {
	fmt.Printf("Group %s: %d tasks, latest %s\n", g.TaskGroupID, g.TaskCount, g.LatestStatus)

	statuses := make([]string, 0, len(g.StatusCounts))
	for status := range g.StatusCounts {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Printf("  %-18s %d\n", status, g.StatusCounts[models.TaskStatus(status)])
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(groupsCmd)
}
