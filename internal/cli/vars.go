package cli

import (
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/core"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/observability"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/storage"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
)

// Package-level dependencies injected by internal.NewApp before Execute runs.
var (
	BasePath  string
	Namespace string

	Queue    storage.QueueStore
	Restart  core.RestartHandler
	Protocol core.CompletionProtocol

	ResumePolicy core.ResumePolicy

	// Timeout profiles with configuration overrides applied.
	Profiles struct {
		Standard models.TimeoutProfile
		Long     models.TimeoutProfile
		Extended models.TimeoutProfile
	}

	EventLog    observability.EventLog
	MetricsCalc observability.MetricsCalculator
	AlertEngine observability.AlertEngine
	Notifier    observability.Notifier
)

// logEvent writes an event if the event log is configured.
func logEvent(eventType string, data map[string]any) {
	if EventLog == nil {
		return
	}
	_ = EventLog.Write(observability.NewEvent(eventType, data))
}

// profileByName resolves a --profile flag value, defaulting to standard.
func profileByName(name string) models.TimeoutProfile {
	switch name {
	case "long":
		return Profiles.Long
	case "extended":
		return Profiles.Extended
	default:
		return Profiles.Standard
	}
}
