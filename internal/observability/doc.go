// Package observability provides the JSONL event log, queue metrics,
// alerting, and notification delivery for the orchestration system.
package observability
