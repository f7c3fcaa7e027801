package config

import (
	"github.com/stratalake/dqguard/errors"
)

// samplingMethods are the recognized sampling strategies
var samplingMethods = map[string]bool{
	"random":     true,
	"systematic": true,
	"stratified": true,
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty defaults to "dqguard.db" per defaults.go

	// Row count threshold is a relative change fraction
	if c.Selective.RowCountThreshold < 0 || c.Selective.RowCountThreshold > 1 {
		return errors.NewConfigError("selective_validation.row_count_threshold must be in [0, 1], got %v", c.Selective.RowCountThreshold)
	}

	// Sampling: fraction in (0, 1], known method, non-negative bounds
	if c.Sampling.SampleSize <= 0 || c.Sampling.SampleSize > 1 {
		return errors.NewConfigError("sampling.sample_size must be in (0, 1], got %v", c.Sampling.SampleSize)
	}
	if !samplingMethods[c.Sampling.Method] {
		return errors.NewConfigError("sampling.sampling_method must be random, systematic, or stratified, got %q", c.Sampling.Method)
	}
	if c.Sampling.ThresholdRows < 0 {
		return errors.NewConfigError("sampling.threshold_rows must be >= 0, got %d", c.Sampling.ThresholdRows)
	}
	if c.Sampling.MinSampleRows < 0 {
		return errors.NewConfigError("sampling.min_sample_rows must be >= 0, got %d", c.Sampling.MinSampleRows)
	}

	// Cache: lifetime and capacity must be positive when caching is on
	if c.Caching.Enabled {
		if c.Caching.TTLSeconds <= 0 {
			return errors.NewConfigError("caching.ttl_seconds must be > 0, got %d", c.Caching.TTLSeconds)
		}
		if c.Caching.MaxCacheEntries <= 0 {
			return errors.NewConfigError("caching.max_cache_entries must be > 0, got %d", c.Caching.MaxCacheEntries)
		}
	}

	// Workers: 0 = serial execution, negative = invalid
	if c.Parallel.MaxWorkers < 0 {
		return errors.NewConfigError("parallel_processing.max_workers must be >= 0, got %d", c.Parallel.MaxWorkers)
	}

	// Timeout is enforced per validation run
	if c.Resources.TimeoutSeconds <= 0 {
		return errors.NewConfigError("resource_limits.timeout_seconds must be > 0, got %d", c.Resources.TimeoutSeconds)
	}
	if c.Resources.MaxMemoryMB < 0 {
		return errors.NewConfigError("resource_limits.max_memory_mb must be >= 0, got %d", c.Resources.MaxMemoryMB)
	}
	if c.Resources.MaxCPUPercent < 0 || c.Resources.MaxCPUPercent > 100 {
		return errors.NewConfigError("resource_limits.max_cpu_percent must be in [0, 100], got %v", c.Resources.MaxCPUPercent)
	}

	// Threshold rules per scope
	if err := validateRule("alert_thresholds.global", c.Thresholds.Global); err != nil {
		return err
	}
	for layer, rule := range c.Thresholds.Layers {
		if err := validateRule("alert_thresholds.layers."+layer, rule); err != nil {
			return err
		}
	}
	for name, rule := range c.Thresholds.Datasets {
		if err := validateRule("alert_thresholds.datasets."+name, rule); err != nil {
			return err
		}
	}

	// Severity bands: thresholds in range and strictly decreasing so
	// every percent-below value classifies unambiguously
	bands := []struct {
		name string
		cfg  SeverityLevelConfig
	}{
		{"critical", c.Severity.Critical},
		{"high", c.Severity.High},
		{"medium", c.Severity.Medium},
		{"low", c.Severity.Low},
	}
	for _, band := range bands {
		if band.cfg.Threshold < 0 || band.cfg.Threshold > 100 {
			return errors.NewConfigError("severity_levels.%s.threshold must be in [0, 100], got %v", band.name, band.cfg.Threshold)
		}
		if band.cfg.EscalationDelayMinutes < 0 {
			return errors.NewConfigError("severity_levels.%s.escalation_delay_minutes must be >= 0, got %d", band.name, band.cfg.EscalationDelayMinutes)
		}
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].cfg.Threshold >= bands[i-1].cfg.Threshold {
			return errors.NewConfigError("severity_levels.%s.threshold (%v) must be below severity_levels.%s.threshold (%v)",
				bands[i].name, bands[i].cfg.Threshold, bands[i-1].name, bands[i-1].cfg.Threshold)
		}
	}

	// Escalation ladder: levels strictly ascending with non-negative delays
	for i, level := range c.Escalation.Levels {
		if level.DelayMinutes < 0 {
			return errors.NewConfigError("escalation_workflow.levels[%d].delay_minutes must be >= 0, got %d", i, level.DelayMinutes)
		}
		if len(level.Contacts) == 0 {
			return errors.NewConfigError("escalation_workflow.levels[%d].contacts cannot be empty", i)
		}
		if i > 0 && level.Level <= c.Escalation.Levels[i-1].Level {
			return errors.NewConfigError("escalation_workflow.levels must be strictly ascending, level %d follows level %d",
				level.Level, c.Escalation.Levels[i-1].Level)
		}
	}

	// History bounds: 0 = unbounded (valid), negative = invalid
	if c.History.RetentionDays < 0 {
		return errors.NewConfigError("alert_history.retention_days must be >= 0, got %d", c.History.RetentionDays)
	}
	if c.History.MaxEntries < 0 {
		return errors.NewConfigError("alert_history.max_entries must be >= 0, got %d", c.History.MaxEntries)
	}

	// Notification throttle: 0 = unlimited, negative = invalid
	if c.Notifications.MaxPerMinute < 0 {
		return errors.NewConfigError("notifications.max_per_minute must be >= 0, got %d", c.Notifications.MaxPerMinute)
	}

	return nil
}

// validateRule checks one threshold rule. Zero counts are valid and
// mean zero tolerance.
func validateRule(scope string, rule ThresholdRule) error {
	if rule.MinSuccessRate < 0 || rule.MinSuccessRate > 100 {
		return errors.NewThresholdConfigError("%s.min_success_rate must be in [0, 100], got %v", scope, rule.MinSuccessRate)
	}
	if rule.MaxFailedValidations < 0 {
		return errors.NewThresholdConfigError("%s.max_failed_validations must be >= 0, got %d", scope, rule.MaxFailedValidations)
	}
	if rule.MaxFailedExpectations < 0 {
		return errors.NewThresholdConfigError("%s.max_failed_expectations must be >= 0, got %d", scope, rule.MaxFailedExpectations)
	}
	return nil
}
