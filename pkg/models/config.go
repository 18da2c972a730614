package models

// GlobalConfig holds settings read from the .aqgconfig file at the base path.
type GlobalConfig struct {
	Namespace        string             `yaml:"namespace" mapstructure:"namespace"`
	TaskIDPrefix     string             `yaml:"task_id_prefix" mapstructure:"task_id_prefix"`
	TaskIDPadWidth   int                `yaml:"task_id_pad_width" mapstructure:"task_id_pad_width"`
	StaleThresholdMs int                `yaml:"stale_threshold_ms" mapstructure:"stale_threshold_ms"`
	AllowSoftResume  bool               `yaml:"allow_soft_resume" mapstructure:"allow_soft_resume"`
	Timeouts         TimeoutOverrides   `yaml:"timeouts" mapstructure:"timeouts"`
	Notifications    NotificationConfig `yaml:"notifications" mapstructure:"notifications"`
}

// TimeoutOverrides optionally overrides the built-in timeout profiles.
// Zero values keep the profile defaults.
type TimeoutOverrides struct {
	StandardIdleMs int `yaml:"standard_idle_ms" mapstructure:"standard_idle_ms"`
	StandardHardMs int `yaml:"standard_hard_ms" mapstructure:"standard_hard_ms"`
	LongIdleMs     int `yaml:"long_idle_ms" mapstructure:"long_idle_ms"`
	LongHardMs     int `yaml:"long_hard_ms" mapstructure:"long_hard_ms"`
	ExtendedIdleMs int `yaml:"extended_idle_ms" mapstructure:"extended_idle_ms"`
	ExtendedHardMs int `yaml:"extended_hard_ms" mapstructure:"extended_hard_ms"`
}

// NotificationConfig configures alert delivery.
type NotificationConfig struct {
	Enabled bool            `yaml:"enabled" mapstructure:"enabled"`
	Slack   SlackConfig     `yaml:"slack" mapstructure:"slack"`
	Alerts  AlertThresholds `yaml:"alerts" mapstructure:"alerts"`
}

// SlackConfig holds the Slack webhook settings.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url" mapstructure:"webhook_url"`
}

// AlertThresholds configures when queue alerts fire. Zero values fall back
// to observability defaults.
type AlertThresholds struct {
	RunningStaleMinutes int `yaml:"running_stale_minutes" mapstructure:"running_stale_minutes"`
	AwaitingHours       int `yaml:"awaiting_hours" mapstructure:"awaiting_hours"`
	MaxQueueDepth       int `yaml:"max_queue_depth" mapstructure:"max_queue_depth"`
}
