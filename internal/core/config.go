package core

import (
	"fmt"

	"github.com/EarthLinkNetwork/ai-quality-guardian-sub000/pkg/models"
	"github.com/spf13/viper"
)

// ConfigurationManager loads and validates configuration from the
// .aqgconfig file at the base path.
type ConfigurationManager interface {
	LoadGlobalConfig() (*models.GlobalConfig, error)
}

// viperConfigManager implements ConfigurationManager using Viper for
// reading YAML configuration files.
type viperConfigManager struct {
	basePath string
}

// NewConfigurationManager creates a ConfigurationManager that reads
// configuration files relative to basePath.
func NewConfigurationManager(basePath string) ConfigurationManager {
	return &viperConfigManager{basePath: basePath}
}

// DefaultGlobalConfig returns a GlobalConfig populated with sensible
// defaults: the default namespace, standard-profile staleness, soft resume
// off.
func DefaultGlobalConfig() *models.GlobalConfig {
	return &models.GlobalConfig{
		Namespace:        "default",
		TaskIDPrefix:     "T",
		TaskIDPadWidth:   5,
		StaleThresholdMs: int(ProfileStandard.IdleTimeout.Milliseconds()),
		AllowSoftResume:  false,
		Notifications: models.NotificationConfig{
			Alerts: models.AlertThresholds{
				RunningStaleMinutes: 10,
				AwaitingHours:       24,
				MaxQueueDepth:       50,
			},
		},
	}
}

// LoadGlobalConfig reads the .aqgconfig file from the base path. If the
// file does not exist, defaults are returned.
func (cm *viperConfigManager) LoadGlobalConfig() (*models.GlobalConfig, error) {
	cfg := DefaultGlobalConfig()

	v := viper.New()
	v.SetConfigName(".aqgconfig")
	v.SetConfigType("yaml")
	v.AddConfigPath(cm.basePath)

	v.SetDefault("namespace", cfg.Namespace)
	v.SetDefault("task_id.prefix", cfg.TaskIDPrefix)
	v.SetDefault("task_id.pad_width", cfg.TaskIDPadWidth)
	v.SetDefault("recovery.stale_threshold_ms", cfg.StaleThresholdMs)
	v.SetDefault("recovery.allow_soft_resume", cfg.AllowSoftResume)
	v.SetDefault("notifications.enabled", cfg.Notifications.Enabled)
	v.SetDefault("notifications.alerts.running_stale_minutes", cfg.Notifications.Alerts.RunningStaleMinutes)
	v.SetDefault("notifications.alerts.awaiting_hours", cfg.Notifications.Alerts.AwaitingHours)
	v.SetDefault("notifications.alerts.max_queue_depth", cfg.Notifications.Alerts.MaxQueueDepth)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading .aqgconfig: %w", err)
	}

	cfg.Namespace = v.GetString("namespace")
	cfg.TaskIDPrefix = v.GetString("task_id.prefix")
	cfg.TaskIDPadWidth = v.GetInt("task_id.pad_width")
	cfg.StaleThresholdMs = v.GetInt("recovery.stale_threshold_ms")
	cfg.AllowSoftResume = v.GetBool("recovery.allow_soft_resume")

	cfg.Timeouts = models.TimeoutOverrides{
		StandardIdleMs: v.GetInt("timeouts.standard.idle_ms"),
		StandardHardMs: v.GetInt("timeouts.standard.hard_ms"),
		LongIdleMs:     v.GetInt("timeouts.long.idle_ms"),
		LongHardMs:     v.GetInt("timeouts.long.hard_ms"),
		ExtendedIdleMs: v.GetInt("timeouts.extended.idle_ms"),
		ExtendedHardMs: v.GetInt("timeouts.extended.hard_ms"),
	}

	cfg.Notifications.Enabled = v.GetBool("notifications.enabled")
	cfg.Notifications.Slack.WebhookURL = v.GetString("notifications.slack.webhook_url")
	cfg.Notifications.Alerts.RunningStaleMinutes = v.GetInt("notifications.alerts.running_stale_minutes")
	cfg.Notifications.Alerts.AwaitingHours = v.GetInt("notifications.alerts.awaiting_hours")
	cfg.Notifications.Alerts.MaxQueueDepth = v.GetInt("notifications.alerts.max_queue_depth")

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validateConfig(cfg *models.GlobalConfig) error {
	if cfg.Namespace == "" {
		return fmt.Errorf("validating config: namespace must not be empty")
	}
	if cfg.StaleThresholdMs <= 0 {
		return fmt.Errorf("validating config: recovery.stale_threshold_ms must be positive, got %d", cfg.StaleThresholdMs)
	}
	return nil
}
