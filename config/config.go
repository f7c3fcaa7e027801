package config

import "time"

// Config represents the core dqguard configuration
type Config struct {
	Database      DatabaseConfig       `mapstructure:"database"`
	Datasets      DatasetsConfig       `mapstructure:"datasets"`
	Selective     SelectiveConfig      `mapstructure:"selective_validation"`
	Sampling      SamplingConfig       `mapstructure:"sampling"`
	Caching       CachingConfig        `mapstructure:"caching"`
	Parallel      ParallelConfig       `mapstructure:"parallel_processing"`
	Resources     ResourceConfig       `mapstructure:"resource_limits"`
	Lightweight   LightweightConfig    `mapstructure:"lightweight_validation"`
	Thresholds    ThresholdsConfig     `mapstructure:"alert_thresholds"`
	Severity      SeverityLevelsConfig `mapstructure:"severity_levels"`
	Escalation    EscalationConfig     `mapstructure:"escalation_workflow"`
	History       HistoryConfig        `mapstructure:"alert_history"`
	Notifications NotificationsConfig  `mapstructure:"notifications"`
}

// DatabaseConfig configures the SQLite database backing alert history
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// DatasetsConfig configures where validation targets are declared
type DatasetsConfig struct {
	Manifest string `mapstructure:"manifest"` // YAML manifest of validation targets (default: datasets.yaml)
}

// SelectiveConfig configures change detection. When every probe is
// disabled the detector always decides to validate.
type SelectiveConfig struct {
	Enabled              bool    `mapstructure:"enabled"`
	CheckDataHash        bool    `mapstructure:"check_data_hash"`
	CheckSchemaChanges   bool    `mapstructure:"check_schema_changes"`
	CheckRowCountChanges bool    `mapstructure:"check_row_count_changes"`
	RowCountThreshold    float64 `mapstructure:"row_count_threshold"` // relative change that forces revalidation (default: 0.05)
	SkipUnchangedData    bool    `mapstructure:"skip_unchanged_data"`
}

// SamplingConfig configures sample plan construction for large datasets
type SamplingConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	ThresholdRows   int64    `mapstructure:"threshold_rows"`  // datasets at or below this row count are validated in full (default: 1000000)
	Method          string   `mapstructure:"sampling_method"` // random, systematic, or stratified
	SampleSize      float64  `mapstructure:"sample_size"`     // fraction of rows to sample, in (0, 1] (default: 0.1)
	MinSampleRows   int64    `mapstructure:"min_sample_rows"` // floor on sampled rows (default: 100000)
	StratifyColumns []string `mapstructure:"stratify_columns"`
}

// CachingConfig configures the validation result cache
type CachingConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	TTLSeconds      int  `mapstructure:"ttl_seconds"`       // entry lifetime (default: 3600)
	MaxCacheEntries int  `mapstructure:"max_cache_entries"` // capacity before oldest-first eviction (default: 100)
}

// TTL returns the cache entry lifetime as a duration
func (c CachingConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// ParallelConfig configures concurrent validation of independent datasets
type ParallelConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxWorkers int  `mapstructure:"max_workers"` // worker pool size (default: 4)
}

// ResourceConfig bounds a validation run. Timeout is enforced; the
// memory and CPU limits are advisory and only surface warnings.
type ResourceConfig struct {
	MaxMemoryMB    int     `mapstructure:"max_memory_mb"`
	MaxCPUPercent  float64 `mapstructure:"max_cpu_percent"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"` // per-validation deadline (default: 3600)
}

// Timeout returns the per-validation deadline as a duration
func (c ResourceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// LightweightConfig shapes the request handed to the validation
// executor. The engine behind the Executor interface applies it.
type LightweightConfig struct {
	Enabled                   bool     `mapstructure:"enabled"`
	CriticalExpectationsOnly  bool     `mapstructure:"critical_expectations_only"`
	SkipExpensiveExpectations bool     `mapstructure:"skip_expensive_expectations"`
	ExpensiveExpectationTypes []string `mapstructure:"expensive_expectation_types"`
}

// ThresholdRule bounds acceptable validation results for one scope.
// Zero counts mean zero tolerance, not "unset".
type ThresholdRule struct {
	MinSuccessRate        float64 `mapstructure:"min_success_rate"`        // minimum success percentage, 0..100
	MaxFailedValidations  int     `mapstructure:"max_failed_validations"`  // maximum failed suites
	MaxFailedExpectations int     `mapstructure:"max_failed_expectations"` // maximum failed expectations
}

// ThresholdsConfig holds threshold rules per scope. Layer and dataset
// rules override nothing; every configured scope is evaluated
// independently.
type ThresholdsConfig struct {
	Global   ThresholdRule            `mapstructure:"global"`
	Layers   map[string]ThresholdRule `mapstructure:"layers"`
	Datasets map[string]ThresholdRule `mapstructure:"datasets"`
}

// SeverityLevelConfig configures one severity classification band
type SeverityLevelConfig struct {
	Threshold              float64  `mapstructure:"threshold"` // minimum percent-below-threshold for this severity
	Escalation             bool     `mapstructure:"escalation"`
	EscalationDelayMinutes int      `mapstructure:"escalation_delay_minutes"`
	NotificationChannels   []string `mapstructure:"notification_channels"`
}

// EscalationDelay returns the delay before the first escalation step
func (s SeverityLevelConfig) EscalationDelay() time.Duration {
	return time.Duration(s.EscalationDelayMinutes) * time.Minute
}

// SeverityLevelsConfig configures the severity classification bands
type SeverityLevelsConfig struct {
	Critical SeverityLevelConfig `mapstructure:"critical"`
	High     SeverityLevelConfig `mapstructure:"high"`
	Medium   SeverityLevelConfig `mapstructure:"medium"`
	Low      SeverityLevelConfig `mapstructure:"low"`
}

// ByName returns the severity band configuration for a severity name
func (s SeverityLevelsConfig) ByName(name string) (SeverityLevelConfig, bool) {
	switch name {
	case "critical":
		return s.Critical, true
	case "high":
		return s.High, true
	case "medium":
		return s.Medium, true
	case "low":
		return s.Low, true
	}
	return SeverityLevelConfig{}, false
}

// EscalationLevelConfig configures one rung of the escalation ladder
type EscalationLevelConfig struct {
	Level        int      `mapstructure:"level"`
	DelayMinutes int      `mapstructure:"delay_minutes"` // delay after the previous level
	Contacts     []string `mapstructure:"contacts"`
}

// Delay returns the wait after the previous escalation level
func (l EscalationLevelConfig) Delay() time.Duration {
	return time.Duration(l.DelayMinutes) * time.Minute
}

// EscalationConfig configures the escalation ladder walked by
// escalation-enabled alerts
type EscalationConfig struct {
	Levels []EscalationLevelConfig `mapstructure:"levels"`
}

// HistoryConfig bounds the persisted alert history
type HistoryConfig struct {
	RetentionDays int `mapstructure:"retention_days"` // 0 = keep forever
	MaxEntries    int `mapstructure:"max_entries"`    // 0 = unbounded
}

// NotificationsConfig configures notification dispatch throttling
type NotificationsConfig struct {
	MaxPerMinute int `mapstructure:"max_per_minute"` // per-channel rate limit (default: 10)
}

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)
