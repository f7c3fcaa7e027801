package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "dqguard.db")

	// Dataset manifest defaults
	v.SetDefault("datasets.manifest", "datasets.yaml")

	// Selective validation (change detection) defaults
	v.SetDefault("selective_validation.enabled", true)
	v.SetDefault("selective_validation.check_data_hash", true)
	v.SetDefault("selective_validation.check_schema_changes", true)
	v.SetDefault("selective_validation.check_row_count_changes", true)
	v.SetDefault("selective_validation.row_count_threshold", 0.05) // 5% change forces revalidation
	v.SetDefault("selective_validation.skip_unchanged_data", true)

	// Sampling defaults
	v.SetDefault("sampling.enabled", true)
	v.SetDefault("sampling.threshold_rows", 1000000) // Sample only above 1M rows
	v.SetDefault("sampling.sampling_method", "random")
	v.SetDefault("sampling.sample_size", 0.1) // 10% sample
	v.SetDefault("sampling.min_sample_rows", 100000)
	v.SetDefault("sampling.stratify_columns", []string{})

	// Result cache defaults
	v.SetDefault("caching.enabled", true)
	v.SetDefault("caching.ttl_seconds", 3600) // 1 hour
	v.SetDefault("caching.max_cache_entries", 100)

	// Parallel processing defaults
	v.SetDefault("parallel_processing.enabled", true)
	v.SetDefault("parallel_processing.max_workers", 4)

	// Resource limit defaults (memory and CPU are advisory)
	v.SetDefault("resource_limits.max_memory_mb", 4096)
	v.SetDefault("resource_limits.max_cpu_percent", 70)
	v.SetDefault("resource_limits.timeout_seconds", 3600)

	// Lightweight validation defaults
	v.SetDefault("lightweight_validation.enabled", true)
	v.SetDefault("lightweight_validation.critical_expectations_only", false)
	v.SetDefault("lightweight_validation.skip_expensive_expectations", true)
	v.SetDefault("lightweight_validation.expensive_expectation_types", []string{
		"expect_column_pair_values_to_be_equal",
		"expect_column_values_to_match_regex",
		"expect_column_values_to_be_in_set",
		"expect_column_values_to_match_strftime_format",
		"expect_column_values_to_be_json_parseable",
		"expect_column_values_to_match_json_schema",
		"expect_column_values_to_be_xml_parseable",
		"expect_column_values_to_match_like_pattern",
		"expect_column_values_to_not_match_like_pattern",
		"expect_column_values_to_match_like_pattern_list",
		"expect_column_values_to_not_match_like_pattern_list",
	})

	// Alert threshold defaults per scope
	v.SetDefault("alert_thresholds.global.min_success_rate", 90.0)
	v.SetDefault("alert_thresholds.global.max_failed_validations", 3)
	v.SetDefault("alert_thresholds.global.max_failed_expectations", 5)

	v.SetDefault("alert_thresholds.layers.bronze.min_success_rate", 85.0)
	v.SetDefault("alert_thresholds.layers.bronze.max_failed_validations", 5)
	v.SetDefault("alert_thresholds.layers.bronze.max_failed_expectations", 10)
	v.SetDefault("alert_thresholds.layers.silver.min_success_rate", 90.0)
	v.SetDefault("alert_thresholds.layers.silver.max_failed_validations", 3)
	v.SetDefault("alert_thresholds.layers.silver.max_failed_expectations", 7)
	v.SetDefault("alert_thresholds.layers.gold.min_success_rate", 95.0)
	v.SetDefault("alert_thresholds.layers.gold.max_failed_validations", 1)
	v.SetDefault("alert_thresholds.layers.gold.max_failed_expectations", 3)

	v.SetDefault("alert_thresholds.datasets.user_activity.min_success_rate", 90.0)
	v.SetDefault("alert_thresholds.datasets.user_activity.max_failed_validations", 2)
	v.SetDefault("alert_thresholds.datasets.user_activity.max_failed_expectations", 5)
	v.SetDefault("alert_thresholds.datasets.orders.min_success_rate", 95.0)
	v.SetDefault("alert_thresholds.datasets.orders.max_failed_validations", 1)
	v.SetDefault("alert_thresholds.datasets.orders.max_failed_expectations", 3)
	v.SetDefault("alert_thresholds.datasets.inventory.min_success_rate", 95.0)
	v.SetDefault("alert_thresholds.datasets.inventory.max_failed_validations", 1)
	v.SetDefault("alert_thresholds.datasets.inventory.max_failed_expectations", 3)
	v.SetDefault("alert_thresholds.datasets.dim_customer.min_success_rate", 98.0)
	v.SetDefault("alert_thresholds.datasets.dim_customer.max_failed_validations", 0)
	v.SetDefault("alert_thresholds.datasets.dim_customer.max_failed_expectations", 1)
	v.SetDefault("alert_thresholds.datasets.dim_product.min_success_rate", 98.0)
	v.SetDefault("alert_thresholds.datasets.dim_product.max_failed_validations", 0)
	v.SetDefault("alert_thresholds.datasets.dim_product.max_failed_expectations", 1)
	v.SetDefault("alert_thresholds.datasets.fact_sales.min_success_rate", 98.0)
	v.SetDefault("alert_thresholds.datasets.fact_sales.max_failed_validations", 0)
	v.SetDefault("alert_thresholds.datasets.fact_sales.max_failed_expectations", 1)
	v.SetDefault("alert_thresholds.datasets.kpi_revenue.min_success_rate", 100.0) // zero tolerance
	v.SetDefault("alert_thresholds.datasets.kpi_revenue.max_failed_validations", 0)
	v.SetDefault("alert_thresholds.datasets.kpi_revenue.max_failed_expectations", 0)

	// Severity band defaults. Threshold is the percent-below-threshold
	// floor for the band; only critical and high escalate.
	v.SetDefault("severity_levels.critical.threshold", 95.0)
	v.SetDefault("severity_levels.critical.escalation", true)
	v.SetDefault("severity_levels.critical.escalation_delay_minutes", 0) // immediate
	v.SetDefault("severity_levels.critical.notification_channels", []string{"email", "slack"})
	v.SetDefault("severity_levels.high.threshold", 90.0)
	v.SetDefault("severity_levels.high.escalation", true)
	v.SetDefault("severity_levels.high.escalation_delay_minutes", 30)
	v.SetDefault("severity_levels.high.notification_channels", []string{"email", "slack"})
	v.SetDefault("severity_levels.medium.threshold", 80.0)
	v.SetDefault("severity_levels.medium.escalation", false)
	v.SetDefault("severity_levels.medium.notification_channels", []string{"slack"})
	v.SetDefault("severity_levels.low.threshold", 70.0)
	v.SetDefault("severity_levels.low.escalation", false)
	v.SetDefault("severity_levels.low.notification_channels", []string{"slack"})

	// Escalation ladder defaults
	v.SetDefault("escalation_workflow.levels", []map[string]interface{}{
		{"level": 1, "delay_minutes": 0, "contacts": []string{"data_engineer@example.com"}},
		{"level": 2, "delay_minutes": 30, "contacts": []string{"data_lead@example.com"}},
		{"level": 3, "delay_minutes": 60, "contacts": []string{"cto@example.com"}},
	})

	// Alert history retention defaults
	v.SetDefault("alert_history.retention_days", 90)
	v.SetDefault("alert_history.max_entries", 1000)

	// Notification throttling defaults
	v.SetDefault("notifications.max_per_minute", 10)
}

// BindEnvOverrides explicitly binds operational overrides to environment variables
func BindEnvOverrides(v *viper.Viper) {
	v.BindEnv("database.path", "DQGUARD_DATABASE_PATH")
	v.BindEnv("datasets.manifest", "DQGUARD_DATASETS_MANIFEST")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return "dqguard.db" // Fallback default
	}
	return c.Database.Path
}

// GetManifestPath returns the configured dataset manifest path
func (c *Config) GetManifestPath() string {
	if c.Datasets.Manifest == "" {
		return "datasets.yaml" // Fallback default
	}
	return c.Datasets.Manifest
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Manifest: %s, Workers: %d, CacheTTL: %ds}",
		c.Database.Path, c.Datasets.Manifest, c.Parallel.MaxWorkers, c.Caching.TTLSeconds)
}
