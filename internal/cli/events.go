package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/observability"
)

var (
	eventsTail int
	eventsType string
	eventsJSON bool
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show recent events from the queue event log",
	RunE: func(cmd *cobra.Command, args []string) error {
		if EventLog == nil {
			return fmt.Errorf("event log not initialized")
		}

		var events []observability.Event
		var err error
		if eventsType != "" {
			events, err = EventLog.Read(observability.EventFilter{Type: eventsType})
			if err == nil && len(events) > eventsTail {
				events = events[len(events)-eventsTail:]
			}
		} else {
			events, err = EventLog.Tail(eventsTail)
		}
		if err != nil {
			return fmt.Errorf("reading event log: %w", err)
		}

		if len(events) == 0 {
			fmt.Println("No events.")
			return nil
		}

		for _, e := range events {
			if eventsJSON {
				out, err := json.Marshal(e)
				if err != nil {
					return fmt.Errorf("encoding event: %w", err)
				}
				fmt.Println(string(out))
				continue
			}
			fmt.Printf("%s  %-28s", e.Time.Format(time.RFC3339), e.Type)
			if id, ok := e.Data["task_id"].(string); ok {
				fmt.Printf("  %s", id)
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	eventsCmd.Flags().IntVarP(&eventsTail, "tail", "n", 20, "number of events to show")
	eventsCmd.Flags().StringVar(&eventsType, "type", "", "filter by event type")
	eventsCmd.Flags().BoolVar(&eventsJSON, "json", false, "emit raw JSONL")
	rootCmd.AddCommand(eventsCmd)
}
