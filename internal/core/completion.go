package core

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
)

// StaleRunError reports a QA-gate result tagged with a run_id other than
// the currently accepted one. Staleness propagates as an error rather than
// a flag: silently accepting an outdated gate would corrupt the judgment
// record irreversibly, so a mixed batch is never partially honored.
type StaleRunError struct {
	RunID        string
	CurrentRunID string
	GateName     string
}

func (e *StaleRunError) Error() string {
	return fmt.Sprintf("stale gate result: gate %q carries run_id %q but the current run is %q; re-run the gates and judge the fresh batch",
		e.GateName, e.RunID, e.CurrentRunID)
}

// CompletionProtocol judges externally-produced QA-gate results against the
// single run_id accepted this cycle. It is stateless apart from that
// run_id.
type CompletionProtocol interface {
	SetCurrentRunID(runID string)
	CurrentRunID() string
	Judge(gates []models.QAGateResult) (*models.CompletionVerdict, error)
}

type completionProtocol struct {
	mu           sync.Mutex
	currentRunID string
}

// NewCompletionProtocol creates a CompletionProtocol with no accepted run.
func NewCompletionProtocol() CompletionProtocol {
	return &completionProtocol{}
}

// SetCurrentRunID establishes the only run_id whose gate results are
// trusted this cycle.
func (p *completionProtocol) SetCurrentRunID(runID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentRunID = runID
}

func (p *completionProtocol) CurrentRunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentRunID
}

// Judge derives a CompletionVerdict from one cycle's gate results. If any
// gate carries a run_id other than the current one, it returns a
// *StaleRunError naming the offender and judges nothing. The protocol
// remains usable afterwards for a correctly tagged batch.
func (p *completionProtocol) Judge(gates []models.QAGateResult) (*models.CompletionVerdict, error) {
	current := p.CurrentRunID()

	for _, gate := range gates {
		if gate.RunID != current {
			return nil, &StaleRunError{
				RunID:        gate.RunID,
				CurrentRunID: current,
				GateName:     gate.GateName,
			}
		}
	}

	verdict := &models.CompletionVerdict{
		RunID:        current,
		FailingGates: []string{},
	}
	for _, gate := range gates {
		verdict.FailingTotal += gate.Failing
		verdict.SkippedTotal += gate.Skipped
		if gate.Failing > 0 {
			verdict.FailingGates = append(verdict.FailingGates, gate.GateName)
		}
		verdict.GateSummary = append(verdict.GateSummary, models.GateSummary{
			Gate:    gate.GateName,
			Passing: gate.Passing,
			Failing: gate.Failing,
			Skipped: gate.Skipped,
		})
	}
	sort.Strings(verdict.FailingGates)
	sort.Slice(verdict.GateSummary, func(i, j int) bool {
		return verdict.GateSummary[i].Gate < verdict.GateSummary[j].Gate
	})

	verdict.AllPass = verdict.FailingTotal == 0
	if verdict.AllPass {
		verdict.FinalStatus = models.FinalComplete
	} else {
		verdict.FinalStatus = models.FinalFailing
	}
	return verdict, nil
}

// runIDClock serializes run ID generation so that sequential calls always
// embed strictly increasing timestamps, keeping IsStale consistent with
// generation order even within one millisecond.
var runIDClock struct {
	mu         sync.Mutex
	lastMillis int64
}

// GenerateRunID produces a sortable, time-ordered run identifier of the
// form run-<unix-millis>-<short-commit>-<command-hash>.
func GenerateRunID(commitSHA, command string) string {
	runIDClock.mu.Lock()
	millis := time.Now().UnixMilli()
	if millis <= runIDClock.lastMillis {
		millis = runIDClock.lastMillis + 1
	}
	runIDClock.lastMillis = millis
	runIDClock.mu.Unlock()

	short := commitSHA
	if len(short) > 7 {
		short = short[:7]
	}
	if short == "" {
		short = "nocommit"
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(command))

	return fmt.Sprintf("run-%d-%s-%08x", millis, short, h.Sum32())
}

// runIDMillis extracts the embedded timestamp from a generated run ID,
// returning 0 when the ID does not parse.
func runIDMillis(runID string) int64 {
	parts := strings.SplitN(runID, "-", 3)
	if len(parts) < 2 {
		return 0
	}
	millis, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0
	}
	return millis
}

// IsStale reports whether run ID a was generated before run ID b, based on
// the embedded timestamps.
func IsStale(a, b string) bool {
	return runIDMillis(a) < runIDMillis(b)
}

var (
	passingPattern = regexp.MustCompile(`(\d+)\s+passing`)
	failingPattern = regexp.MustCompile(`(\d+)\s+failing`)
)

// BuildReportInput carries the raw outcome of one self-test command run.
type BuildReportInput struct {
	RunID     string
	CommitSHA string
	Command   string
	ExitCode  int
	Stdout    string
}

// BuildCompletionReport derives a CompletionReport from a command's exit
// code and stdout markers. The report is COMPLETE only when the command
// exited zero AND reported zero failures: an exit code alone is never
// sufficient proof of success.
func BuildCompletionReport(input BuildReportInput) *models.CompletionReport {
	report := &models.CompletionReport{
		RunID:     input.RunID,
		CommitSHA: input.CommitSHA,
		Command:   input.Command,
		ExitCode:  input.ExitCode,
		Timestamp: time.Now().UTC(),
	}

	if m := passingPattern.FindStringSubmatch(input.Stdout); m != nil {
		report.Passing, _ = strconv.Atoi(m[1])
	}
	if m := failingPattern.FindStringSubmatch(input.Stdout); m != nil {
		report.Failing, _ = strconv.Atoi(m[1])
	}

	if input.ExitCode == 0 && report.Failing == 0 {
		report.FinalStatus = models.FinalComplete
	} else {
		report.FinalStatus = models.FinalIncomplete
	}
	return report
}

// FormatCompletionReport renders a report as deterministic plain text for
// operator and CI consumption. Nothing in the core parses this back.
func FormatCompletionReport(report *models.CompletionReport) string {
	var b strings.Builder

	b.WriteString("=== COMPLETION REPORT ===\n")
	fmt.Fprintf(&b, "Run ID:    %s\n", report.RunID)
	fmt.Fprintf(&b, "Commit:    %s\n", report.CommitSHA)
	fmt.Fprintf(&b, "Command:   %s\n", report.Command)
	fmt.Fprintf(&b, "Exit Code: %d\n", report.ExitCode)
	b.WriteString("\nTEST RESULTS\n")
	fmt.Fprintf(&b, "  Passing: %d\n", report.Passing)
	fmt.Fprintf(&b, "  Failing: %d\n", report.Failing)
	if report.Failing == 0 {
		b.WriteString("  ALL PASS\n")
	}
	fmt.Fprintf(&b, "\nFINAL STATUS: %s\n", report.FinalStatus)

	return b.String()
}
