package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

var (
	metricsSince string
	metricsJSON  bool
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Show queue metrics derived from the event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		if MetricsCalc == nil {
			return fmt.Errorf("metrics calculator not initialized")
		}

		since := time.Time{}
		if metricsSince != "" {
			d, err := time.ParseDuration(metricsSince)
			if err != nil {
				return fmt.Errorf("parsing --since: %w", err)
			}
			since = time.Now().UTC().Add(-d)
		}

		m, err := MetricsCalc.Calculate(since)
		if err != nil {
			return fmt.Errorf("calculating metrics: %w", err)
		}

		if metricsJSON {
			out, err := json.MarshalIndent(m, "", "  ")
			if err != nil {
				return fmt.Errorf("encoding metrics: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Println("Queue Metrics")
		fmt.Printf("  Enqueued:       %d\n", m.TasksEnqueued)
		fmt.Printf("  Claimed:        %d\n", m.TasksClaimed)
		fmt.Printf("  Completed:      %d\n", m.TasksCompleted)
		fmt.Printf("  Failed:         %d\n", m.TasksFailed)
		fmt.Printf("  Cancelled:      %d\n", m.TasksCancelled)
		fmt.Printf("  Clarifications: %d\n", m.Clarifications)
		fmt.Printf("  Resumes:        %d\n", m.Resumes)
		fmt.Printf("  Timeouts fired: %d\n", m.TimeoutsFired)
		fmt.Printf("  Recovered:      %d\n", m.TasksRecovered)
		fmt.Printf("  Judgments:      %d passed, %d failed\n", m.JudgmentsPassed, m.JudgmentsFailed)

		if len(m.TasksByType) > 0 {
			fmt.Println("  By type:")
			for _, k := range sortedKeys(m.TasksByType) {
				fmt.Printf("    %-16s %d\n", k, m.TasksByType[k])
			}
		}
		if len(m.TasksByNamespace) > 0 {
			fmt.Println("  By namespace:")
			for _, k := range sortedKeys(m.TasksByNamespace) {
				fmt.Printf("    %-16s %d\n", k, m.TasksByNamespace[k])
			}
		}

		fmt.Printf("  Events: %d", m.EventCount)
		if m.OldestEvent != nil && m.NewestEvent != nil {
			fmt.Printf(" (%s .. %s)",
				m.OldestEvent.Format(time.RFC3339),
				m.NewestEvent.Format(time.RFC3339))
		}
		fmt.Println()
		return nil
	},
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	metricsCmd.Flags().StringVar(&metricsSince, "since", "", "only count events within this window, e.g. 24h")
	metricsCmd.Flags().BoolVar(&metricsJSON, "json", false, "emit metrics as JSON")
	rootCmd.AddCommand(metricsCmd)
}
