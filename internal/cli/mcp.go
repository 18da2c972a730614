package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/mcp"
)

// eventLoggerAdapter lets the MCP server write to the shared event log.
type eventLoggerAdapter struct{}

func (eventLoggerAdapter) LogEvent(eventType string, data map[string]any) error {
	logEvent(eventType, data)
	return nil
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP server over stdio",
	Long: `Start a Model Context Protocol server exposing the task queue as
tools. The agent executor connects over stdio and drives the full task
lifecycle: claiming work, reporting progress, requesting clarification,
and updating terminal status.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Queue == nil {
			return fmt.Errorf("queue store not initialized")
		}

		server := mcp.NewServer(Queue, Restart, MetricsCalc, AlertEngine, eventLoggerAdapter{}, appVersion)
		return server.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
