// Package internal provides the App struct that wires all components of the
// AI Quality Guardian system together and initializes the CLI layer.
package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/cli"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/core"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/observability"
	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/internal/storage"
)

// App holds all service dependencies for the AI Quality Guardian system.
type App struct {
	BasePath  string
	Namespace string

	// Configuration
	ConfigMgr core.ConfigurationManager

	// Storage layer
	Queue storage.QueueStore

	// Core services
	IDGen    core.TaskIDGenerator
	Restart  core.RestartHandler
	Protocol core.CompletionProtocol

	// Observability
	EventLog    observability.EventLog
	AlertEngine observability.AlertEngine
	MetricsCalc observability.MetricsCalculator
	Notifier    observability.Notifier
}

// NewApp creates and wires all components of the AI Quality Guardian system.
// basePath is the root directory where all queue data is stored (typically
// the directory containing .aqgconfig, or AQG_HOME).
func NewApp(basePath string) (*App, error) {
	app := &App{BasePath: basePath}

	// --- Configuration ---
	app.ConfigMgr = core.NewConfigurationManager(basePath)
	cfg, err := app.ConfigMgr.LoadGlobalConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	app.Namespace = cfg.Namespace

	// --- Storage layer ---
	app.IDGen = core.NewTaskIDGenerator(basePath, cfg.Namespace, cfg.TaskIDPrefix, cfg.TaskIDPadWidth)
	app.Queue = storage.NewQueueStore(basePath, cfg.Namespace, app.IDGen)

	// --- Observability ---
	eventLogPath := filepath.Join(basePath, ".aqg_events.jsonl")
	app.EventLog, err = observability.NewJSONLEventLog(eventLogPath)
	if err != nil {
		// Non-fatal: disable observability if log can't be created.
		app.EventLog = nil
	}
	if app.EventLog != nil {
		app.MetricsCalc = observability.NewMetricsCalculator(app.EventLog)
	}

	thresholds := observability.DefaultAlertThresholds()
	if cfg.Notifications.Alerts.RunningStaleMinutes > 0 {
		thresholds.RunningStaleMinutes = cfg.Notifications.Alerts.RunningStaleMinutes
	}
	if cfg.Notifications.Alerts.AwaitingHours > 0 {
		thresholds.AwaitingHours = cfg.Notifications.Alerts.AwaitingHours
	}
	if cfg.Notifications.Alerts.MaxQueueDepth > 0 {
		thresholds.MaxQueueDepth = cfg.Notifications.Alerts.MaxQueueDepth
	}
	app.AlertEngine = observability.NewAlertEngine(app.Queue, thresholds)

	if cfg.Notifications.Enabled && cfg.Notifications.Slack.WebhookURL != "" {
		app.Notifier = observability.NewSlackNotifier(cfg.Notifications.Slack.WebhookURL)
	}

	// --- Core services ---
	policy := core.ResumePolicy{
		AllowSoftResume: cfg.AllowSoftResume,
		StaleThreshold:  time.Duration(cfg.StaleThresholdMs) * time.Millisecond,
	}
	var evtAdapter core.EventLogger
	if app.EventLog != nil {
		evtAdapter = &eventLogAdapter{log: app.EventLog}
	}
	app.Restart = core.NewRestartHandler(app.Queue, policy, evtAdapter)
	app.Protocol = core.NewCompletionProtocol()

	// --- Wire CLI package-level variables ---
	cli.BasePath = basePath
	cli.Namespace = cfg.Namespace
	cli.Queue = app.Queue
	cli.Restart = app.Restart
	cli.Protocol = app.Protocol
	cli.ResumePolicy = policy

	cli.Profiles.Standard = core.ApplyTimeoutOverrides(core.ProfileStandard, cfg.Timeouts)
	cli.Profiles.Long = core.ApplyTimeoutOverrides(core.ProfileLong, cfg.Timeouts)
	cli.Profiles.Extended = core.ApplyTimeoutOverrides(core.ProfileExtended, cfg.Timeouts)

	cli.EventLog = app.EventLog
	cli.AlertEngine = app.AlertEngine
	cli.MetricsCalc = app.MetricsCalc
	cli.Notifier = app.Notifier

	return app, nil
}

// Close releases resources held by the App, such as the event log file handle.
// It is safe to call Close on an App whose EventLog is nil.
func (a *App) Close() error {
	if a.EventLog != nil {
		return a.EventLog.Close()
	}
	return nil
}

// ResolveBasePath determines the base path for the queue data directory.
// It checks the AQG_HOME env var, then walks up from the current directory
// looking for a .aqgconfig file, and falls back to the current directory.
func ResolveBasePath() string {
	if home := os.Getenv("AQG_HOME"); home != "" {
		return home
	}
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, ".aqgconfig")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	cwd, _ := os.Getwd()
	return cwd
}

// eventLogAdapter adapts observability.EventLog to core.EventLogger.
type eventLogAdapter struct {
	log observability.EventLog
}

func (a *eventLogAdapter) LogEvent(eventType string, data map[string]any) error {
	return a.log.Write(observability.NewEvent(eventType, data))
}
