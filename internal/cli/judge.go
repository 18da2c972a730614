package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/core"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
)

var (
	judgeGatesFile string
	judgeSetRun    string
)

var judgeCmd = &cobra.Command{
	Use:   "judge",
	Short: "Judge QA gate results against the current run",
	Long: `Judge reads a JSON array of QA gate results and derives a completion
verdict. Every gate result must carry the current run_id; a single result
from an older run aborts the judgment so that outdated evidence is never
mixed into the verdict.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Protocol == nil {
			return fmt.Errorf("completion protocol not initialized")
		}

		if judgeSetRun != "" {
			Protocol.SetCurrentRunID(judgeSetRun)
		}
		if Protocol.CurrentRunID() == "" {
			return fmt.Errorf("no current run_id set; pass --run or generate one with 'aqg runid'")
		}

		var raw []byte
		var err error
		if judgeGatesFile == "" || judgeGatesFile == "-" {
			raw, err = readAllStdin()
		} else {
			raw, err = os.ReadFile(judgeGatesFile)
		}
		if err != nil {
			return fmt.Errorf("reading gate results: %w", err)
		}

		var gates []models.QAGateResult
		if err := json.Unmarshal(raw, &gates); err != nil {
			return fmt.Errorf("parsing gate results: %w", err)
		}
		if len(gates) == 0 {
			return fmt.Errorf("no gate results to judge")
		}

		verdict, err := Protocol.Judge(gates)
		if err != nil {
			logEvent("completion.rejected", map[string]any{
				"run_id": Protocol.CurrentRunID(),
				"error":  err.Error(),
			})
			return err
		}

		printVerdict(verdict)
		logEvent("completion.judged", map[string]any{
			"run_id":       verdict.RunID,
			"final_status": string(verdict.FinalStatus),
			"failing":      verdict.FailingTotal,
			"all_pass":     verdict.AllPass,
		})
		return nil
	},
}

func printVerdict(v *models.CompletionVerdict) {
	fmt.Printf("Run:          %s\n", v.RunID)
	fmt.Printf("Final status: %s\n", v.FinalStatus)
	for _, g := range v.GateSummary {
		fmt.Printf("  %-20s passing=%d failing=%d skipped=%d\n",
			g.Gate, g.Passing, g.Failing, g.Skipped)
	}
	if v.AllPass {
		fmt.Println("All gates pass.")
		return
	}
	fmt.Printf("Failing gates: %s\n", strings.Join(v.FailingGates, ", "))
}

var (
	reportRunID    string
	reportCommit   string
	reportCommand  string
	reportExitCode int
	reportStdout   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build a completion report from a self-test run",
	Long: `Report parses the stdout of a self-test command for "N passing" and
"N failing" markers and combines them with the exit code. The report is
COMPLETE only when the command exited zero and reported zero failures.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		stdout := reportStdout
		if stdout == "-" {
			raw, err := readAllStdin()
			if err != nil {
				return fmt.Errorf("reading stdout capture: %w", err)
			}
			stdout = string(raw)
		}

		runID := reportRunID
		if runID == "" {
			runID = core.GenerateRunID(reportCommit, reportCommand)
		}

		report := core.BuildCompletionReport(core.BuildReportInput{
			RunID:     runID,
			CommitSHA: reportCommit,
			Command:   reportCommand,
			ExitCode:  reportExitCode,
			Stdout:    stdout,
		})
		fmt.Print(core.FormatCompletionReport(report))

		logEvent("completion.reported", map[string]any{
			"run_id":       report.RunID,
			"final_status": string(report.FinalStatus),
			"exit_code":    report.ExitCode,
			"failing":      report.Failing,
		})
		return nil
	},
}

var (
	runidCommit  string
	runidCommand string
)

var runidCmd = &cobra.Command{
	Use:   "runid",
	Short: "Generate a sortable run identifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		id := core.GenerateRunID(runidCommit, runidCommand)
		fmt.Println(id)
		if Protocol != nil {
			Protocol.SetCurrentRunID(id)
		}
		return nil
	},
}

func readAllStdin() ([]byte, error) {
	return io.ReadAll(os.Stdin)
}

func init() {
	judgeCmd.Flags().StringVarP(&judgeGatesFile, "file", "f", "-", "JSON file of gate results, - for stdin")
	judgeCmd.Flags().StringVar(&judgeSetRun, "run", "", "run_id to accept for this judgment")

	reportCmd.Flags().StringVar(&reportRunID, "run", "", "run_id for the report (generated if empty)")
	reportCmd.Flags().StringVar(&reportCommit, "commit", "", "commit SHA the command ran against")
	reportCmd.Flags().StringVar(&reportCommand, "command", "", "self-test command that was executed")
	reportCmd.Flags().IntVar(&reportExitCode, "exit-code", 0, "exit code of the self-test command")
	reportCmd.Flags().StringVar(&reportStdout, "stdout", "-", "captured stdout, - for stdin")

	runidCmd.Flags().StringVar(&runidCommit, "commit", "", "commit SHA to embed")
	runidCmd.Flags().StringVar(&runidCommand, "command", "", "command to embed")

	rootCmd.AddCommand(judgeCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(runidCmd)
}
