package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var alertsNotify bool

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Evaluate alert conditions against the queue",
	Long: `Alerts scans the live queue for stuck work: RUNNING tasks with no
recent progress, clarifications nobody has answered, and a backlog deeper
than the configured maximum. With --notify, triggered alerts are also
delivered to the configured Slack webhook.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if AlertEngine == nil {
			return fmt.Errorf("alert engine not initialized")
		}

		alerts, err := AlertEngine.Evaluate()
		if err != nil {
			return fmt.Errorf("evaluating alerts: %w", err)
		}

		if len(alerts) == 0 {
			fmt.Println("No alerts.")
			return nil
		}

		for _, a := range alerts {
			fmt.Printf("[%s] %s\n  %s\n",
				strings.ToUpper(string(a.Severity)), a.Condition, a.Message)
		}

		if alertsNotify {
			if Notifier == nil {
				return fmt.Errorf("notifications are not configured")
			}
			if err := Notifier.Notify(alerts); err != nil {
				return fmt.Errorf("sending notifications: %w", err)
			}
			fmt.Printf("Sent %d alert(s) to Slack.\n", len(alerts))
		}
		return nil
	},
}

func init() {
	alertsCmd.Flags().BoolVar(&alertsNotify, "notify", false, "deliver triggered alerts to Slack")
	rootCmd.AddCommand(alertsCmd)
}
