package models

import "time"

// FinalStatus is the overall outcome of a completion judgment.
type FinalStatus string

const (
	FinalComplete   FinalStatus = "COMPLETE"
	FinalFailing    FinalStatus = "FAILING"
	FinalIncomplete FinalStatus = "INCOMPLETE"
)

// QAGateResult reports pass/fail/skip counts for one pipeline stage
// (lint, typecheck, test, build), tagged with the run that produced it.
type QAGateResult struct {
	RunID     string    `yaml:"run_id" json:"run_id"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	GateName  string    `yaml:"gate_name" json:"gate_name"`
	Passing   int       `yaml:"passing" json:"passing"`
	Failing   int       `yaml:"failing" json:"failing"`
	Skipped   int       `yaml:"skipped" json:"skipped"`
}

// GateSummary condenses one gate's counts for a verdict.
type GateSummary struct {
	Gate    string `yaml:"gate" json:"gate"`
	Passing int    `yaml:"passing" json:"passing"`
	Failing int    `yaml:"failing" json:"failing"`
	Skipped int    `yaml:"skipped" json:"skipped"`
}

// CompletionVerdict is the derived judgment over one cycle's gate results.
// It is computed fresh every cycle and never persisted.
type CompletionVerdict struct {
	FinalStatus  FinalStatus   `json:"final_status"`
	AllPass      bool          `json:"all_pass"`
	FailingTotal int           `json:"failing_total"`
	FailingGates []string      `json:"failing_gates"`
	GateSummary  []GateSummary `json:"gate_summary"`
	SkippedTotal int           `json:"skipped_total"`
	StaleResults bool          `json:"stale_results"`
	RunID        string        `json:"run_id"`
}

// CompletionReport records the outcome of one self-test command run,
// derived from its exit code and parsed stdout markers.
type CompletionReport struct {
	RunID       string      `json:"run_id"`
	CommitSHA   string      `json:"commit_sha"`
	Command     string      `json:"command"`
	ExitCode    int         `json:"exit_code"`
	Passing     int         `json:"passing"`
	Failing     int         `json:"failing"`
	FinalStatus FinalStatus `json:"final_status"`
	Timestamp   time.Time   `json:"timestamp"`
}
