package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/stratalake/dqguard/errors"
)

// defaultTestConfig loads a config from an isolated viper instance
// carrying only the defaults, without touching user or system files.
func defaultTestConfig(t *testing.T) *Config {
	t.Helper()
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := defaultTestConfig(t)

	if cfg.Database.Path != "dqguard.db" {
		t.Errorf("expected default database path 'dqguard.db', got %q", cfg.Database.Path)
	}
	if cfg.Datasets.Manifest != "datasets.yaml" {
		t.Errorf("expected default manifest 'datasets.yaml', got %q", cfg.Datasets.Manifest)
	}

	if !cfg.Selective.Enabled {
		t.Error("expected selective validation enabled by default")
	}
	if cfg.Selective.RowCountThreshold != 0.05 {
		t.Errorf("expected row count threshold 0.05, got %v", cfg.Selective.RowCountThreshold)
	}

	if cfg.Sampling.ThresholdRows != 1000000 {
		t.Errorf("expected sampling threshold 1000000 rows, got %d", cfg.Sampling.ThresholdRows)
	}
	if cfg.Sampling.Method != "random" {
		t.Errorf("expected default sampling method 'random', got %q", cfg.Sampling.Method)
	}
	if cfg.Sampling.SampleSize != 0.1 {
		t.Errorf("expected sample size 0.1, got %v", cfg.Sampling.SampleSize)
	}

	if cfg.Caching.TTLSeconds != 3600 {
		t.Errorf("expected cache TTL 3600s, got %d", cfg.Caching.TTLSeconds)
	}
	if cfg.Caching.MaxCacheEntries != 100 {
		t.Errorf("expected cache capacity 100, got %d", cfg.Caching.MaxCacheEntries)
	}

	if cfg.Parallel.MaxWorkers != 4 {
		t.Errorf("expected default workers 4, got %d", cfg.Parallel.MaxWorkers)
	}
	if cfg.Resources.TimeoutSeconds != 3600 {
		t.Errorf("expected default timeout 3600s, got %d", cfg.Resources.TimeoutSeconds)
	}

	if len(cfg.Lightweight.ExpensiveExpectationTypes) != 11 {
		t.Errorf("expected 11 expensive expectation types, got %d", len(cfg.Lightweight.ExpensiveExpectationTypes))
	}
}

func TestLoad_ThresholdDefaults(t *testing.T) {
	cfg := defaultTestConfig(t)

	if cfg.Thresholds.Global.MinSuccessRate != 90.0 {
		t.Errorf("expected global min success rate 90, got %v", cfg.Thresholds.Global.MinSuccessRate)
	}
	if cfg.Thresholds.Global.MaxFailedValidations != 3 {
		t.Errorf("expected global max failed validations 3, got %d", cfg.Thresholds.Global.MaxFailedValidations)
	}

	bronze, ok := cfg.Thresholds.Layers["bronze"]
	if !ok {
		t.Fatal("expected bronze layer rule")
	}
	if bronze.MinSuccessRate != 85.0 || bronze.MaxFailedValidations != 5 || bronze.MaxFailedExpectations != 10 {
		t.Errorf("unexpected bronze rule: %+v", bronze)
	}

	gold, ok := cfg.Thresholds.Layers["gold"]
	if !ok {
		t.Fatal("expected gold layer rule")
	}
	if gold.MinSuccessRate != 95.0 {
		t.Errorf("expected gold min success rate 95, got %v", gold.MinSuccessRate)
	}

	// kpi_revenue carries a zero-tolerance rule: zero counts are limits,
	// not absent configuration
	kpi, ok := cfg.Thresholds.Datasets["kpi_revenue"]
	if !ok {
		t.Fatal("expected kpi_revenue dataset rule")
	}
	if kpi.MinSuccessRate != 100.0 || kpi.MaxFailedValidations != 0 || kpi.MaxFailedExpectations != 0 {
		t.Errorf("unexpected kpi_revenue rule: %+v", kpi)
	}

	if len(cfg.Thresholds.Datasets) != 7 {
		t.Errorf("expected 7 dataset rules, got %d", len(cfg.Thresholds.Datasets))
	}
}

func TestLoad_SeverityAndEscalationDefaults(t *testing.T) {
	cfg := defaultTestConfig(t)

	if cfg.Severity.Critical.Threshold != 95.0 {
		t.Errorf("expected critical threshold 95, got %v", cfg.Severity.Critical.Threshold)
	}
	if !cfg.Severity.Critical.Escalation || !cfg.Severity.High.Escalation {
		t.Error("expected critical and high to escalate by default")
	}
	if cfg.Severity.Medium.Escalation || cfg.Severity.Low.Escalation {
		t.Error("expected medium and low to not escalate by default")
	}
	if cfg.Severity.High.EscalationDelayMinutes != 30 {
		t.Errorf("expected high escalation delay 30m, got %d", cfg.Severity.High.EscalationDelayMinutes)
	}

	if len(cfg.Escalation.Levels) != 3 {
		t.Fatalf("expected 3 escalation levels, got %d", len(cfg.Escalation.Levels))
	}
	if cfg.Escalation.Levels[0].Level != 1 || cfg.Escalation.Levels[0].DelayMinutes != 0 {
		t.Errorf("unexpected first escalation level: %+v", cfg.Escalation.Levels[0])
	}
	if cfg.Escalation.Levels[2].DelayMinutes != 60 {
		t.Errorf("expected third level delay 60m, got %d", cfg.Escalation.Levels[2].DelayMinutes)
	}

	if cfg.History.RetentionDays != 90 {
		t.Errorf("expected retention 90 days, got %d", cfg.History.RetentionDays)
	}
	if cfg.History.MaxEntries != 1000 {
		t.Errorf("expected max entries 1000, got %d", cfg.History.MaxEntries)
	}
}

func TestSetDefaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	// Verify critical defaults are set
	tests := []struct {
		key      string
		expected interface{}
	}{
		{"database.path", "dqguard.db"},
		{"datasets.manifest", "datasets.yaml"},
		{"selective_validation.enabled", true},
		{"selective_validation.row_count_threshold", 0.05},
		{"sampling.sampling_method", "random"},
		{"sampling.threshold_rows", 1000000},
		{"caching.ttl_seconds", 3600},
		{"parallel_processing.max_workers", 4},
		{"resource_limits.timeout_seconds", 3600},
		{"alert_thresholds.global.min_success_rate", 90.0},
		{"severity_levels.critical.threshold", 95.0},
		{"alert_history.retention_days", 90},
		{"notifications.max_per_minute", 10},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := v.Get(tt.key)
			if got != tt.expected {
				t.Errorf("default %s = %v, want %v", tt.key, got, tt.expected)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "sample size above 1 is invalid",
			mutate:  func(c *Config) { c.Sampling.SampleSize = 1.5 },
			wantErr: true,
		},
		{
			name:    "sample size zero is invalid",
			mutate:  func(c *Config) { c.Sampling.SampleSize = 0 },
			wantErr: true,
		},
		{
			name:    "sample size exactly 1 is valid",
			mutate:  func(c *Config) { c.Sampling.SampleSize = 1.0 },
			wantErr: false,
		},
		{
			name:    "unknown sampling method is invalid",
			mutate:  func(c *Config) { c.Sampling.Method = "reservoir" },
			wantErr: true,
		},
		{
			name:    "negative row count threshold is invalid",
			mutate:  func(c *Config) { c.Selective.RowCountThreshold = -0.1 },
			wantErr: true,
		},
		{
			name:    "zero TTL with caching enabled is invalid",
			mutate:  func(c *Config) { c.Caching.TTLSeconds = 0 },
			wantErr: true,
		},
		{
			name: "zero TTL with caching disabled is valid",
			mutate: func(c *Config) {
				c.Caching.Enabled = false
				c.Caching.TTLSeconds = 0
			},
			wantErr: false,
		},
		{
			name:    "zero workers is valid (serial)",
			mutate:  func(c *Config) { c.Parallel.MaxWorkers = 0 },
			wantErr: false,
		},
		{
			name:    "negative workers is invalid",
			mutate:  func(c *Config) { c.Parallel.MaxWorkers = -1 },
			wantErr: true,
		},
		{
			name:    "zero timeout is invalid",
			mutate:  func(c *Config) { c.Resources.TimeoutSeconds = 0 },
			wantErr: true,
		},
		{
			name:    "cpu percent above 100 is invalid",
			mutate:  func(c *Config) { c.Resources.MaxCPUPercent = 140 },
			wantErr: true,
		},
		{
			name:    "success rate above 100 is invalid",
			mutate:  func(c *Config) { c.Thresholds.Global.MinSuccessRate = 110 },
			wantErr: true,
		},
		{
			name:    "negative failed validations limit is invalid",
			mutate:  func(c *Config) { c.Thresholds.Global.MaxFailedValidations = -1 },
			wantErr: true,
		},
		{
			name: "zero-tolerance rule is valid",
			mutate: func(c *Config) {
				c.Thresholds.Global = ThresholdRule{MinSuccessRate: 100, MaxFailedValidations: 0, MaxFailedExpectations: 0}
			},
			wantErr: false,
		},
		{
			name:    "bad layer rule is invalid",
			mutate:  func(c *Config) { c.Thresholds.Layers["bronze"] = ThresholdRule{MinSuccessRate: -5} },
			wantErr: true,
		},
		{
			name:    "severity bands must strictly decrease",
			mutate:  func(c *Config) { c.Severity.High.Threshold = 95.0 },
			wantErr: true,
		},
		{
			name:    "negative retention is invalid",
			mutate:  func(c *Config) { c.History.RetentionDays = -1 },
			wantErr: true,
		},
		{
			name: "escalation levels must ascend",
			mutate: func(c *Config) {
				c.Escalation.Levels[2].Level = 2
			},
			wantErr: true,
		},
		{
			name: "escalation level without contacts is invalid",
			mutate: func(c *Config) {
				c.Escalation.Levels[0].Contacts = nil
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultTestConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_ErrorClassification(t *testing.T) {
	cfg := defaultTestConfig(t)
	cfg.Sampling.SampleSize = 2.0
	if err := cfg.Validate(); !errors.IsConfigError(err) {
		t.Errorf("expected config error, got %v", err)
	}

	cfg = defaultTestConfig(t)
	cfg.Thresholds.Global.MaxFailedExpectations = -1
	err := cfg.Validate()
	if !errors.Is(err, errors.ErrThresholdConfig) {
		t.Errorf("expected threshold config error, got %v", err)
	}
}

func TestSeverityByName(t *testing.T) {
	cfg := defaultTestConfig(t)

	tests := []struct {
		name      string
		threshold float64
		ok        bool
	}{
		{"critical", 95.0, true},
		{"high", 90.0, true},
		{"medium", 80.0, true},
		{"low", 70.0, true},
		{"none", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			band, ok := cfg.Severity.ByName(tt.name)
			if ok != tt.ok {
				t.Fatalf("ByName(%q) ok = %v, want %v", tt.name, ok, tt.ok)
			}
			if ok && band.Threshold != tt.threshold {
				t.Errorf("ByName(%q) threshold = %v, want %v", tt.name, band.Threshold, tt.threshold)
			}
		})
	}
}

func TestDurationHelpers(t *testing.T) {
	if got := (CachingConfig{TTLSeconds: 3600}).TTL(); got != time.Hour {
		t.Errorf("TTL() = %v, want 1h", got)
	}
	if got := (ResourceConfig{TimeoutSeconds: 90}).Timeout(); got != 90*time.Second {
		t.Errorf("Timeout() = %v, want 90s", got)
	}
	if got := (EscalationLevelConfig{DelayMinutes: 30}).Delay(); got != 30*time.Minute {
		t.Errorf("Delay() = %v, want 30m", got)
	}
	if got := (SeverityLevelConfig{EscalationDelayMinutes: 0}).EscalationDelay(); got != 0 {
		t.Errorf("EscalationDelay() = %v, want 0", got)
	}
}

// isolateConfigDirs points HOME and the working directory at empty temp
// dirs so Load() sees none of the developer's real config files.
func isolateConfigDirs(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	workDir := t.TempDir()
	oldWd, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(oldWd) })
	os.Chdir(workDir)

	Reset()
	t.Cleanup(Reset)
	return home
}

func TestLoad_FirstRunBootstrap(t *testing.T) {
	home := isolateConfigDirs(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Caching.TTLSeconds != 3600 {
		t.Errorf("expected default TTL 3600, got %d", cfg.Caching.TTLSeconds)
	}

	// First run with no config anywhere materializes the defaults as
	// the user config for future runs.
	path := filepath.Join(home, ".dqguard", "dqguard.toml")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected defaults persisted to %s after first run: %v", path, err)
	}

	// The persisted file loads back to a valid config.
	persisted, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() on bootstrapped config failed: %v", err)
	}
	if persisted.Caching.TTLSeconds != cfg.Caching.TTLSeconds {
		t.Errorf("bootstrapped config TTL = %d, want %d", persisted.Caching.TTLSeconds, cfg.Caching.TTLSeconds)
	}
}

func TestLoad_BootstrapKeepsExistingUserConfig(t *testing.T) {
	home := isolateConfigDirs(t)

	guardDir := filepath.Join(home, ".dqguard")
	os.MkdirAll(guardDir, DefaultDirPermissions)
	path := filepath.Join(guardDir, "dqguard.toml")
	os.WriteFile(path, []byte("[caching]\nttl_seconds = 123\n"), DefaultFilePermissions)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Caching.TTLSeconds != 123 {
		t.Errorf("expected TTL 123 from user config, got %d", cfg.Caching.TTLSeconds)
	}

	// The existing file is not overwritten with defaults.
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading user config failed: %v", err)
	}
	if got := string(content); got != "[caching]\nttl_seconds = 123\n" {
		t.Errorf("user config was rewritten: %q", got)
	}
}

func TestLoad_EnvOverridesFileValues(t *testing.T) {
	home := isolateConfigDirs(t)

	guardDir := filepath.Join(home, ".dqguard")
	os.MkdirAll(guardDir, DefaultDirPermissions)
	os.WriteFile(filepath.Join(guardDir, "dqguard.toml"),
		[]byte("[caching]\nttl_seconds = 100\n"), DefaultFilePermissions)

	t.Setenv("DQGUARD_CACHING_TTL_SECONDS", "200")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Caching.TTLSeconds != 200 {
		t.Errorf("expected env var to outrank the file value, got TTL %d", cfg.Caching.TTLSeconds)
	}
}

func TestFindProjectConfig(t *testing.T) {
	tmpDir := t.TempDir()

	// Test 1: dqguard.toml preferred over config.toml
	t.Run("prefers dqguard.toml", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test1", "subdir")
		os.MkdirAll(subDir, DefaultDirPermissions)

		// Create both config files
		os.WriteFile(filepath.Join(tmpDir, "test1", "dqguard.toml"), []byte(""), DefaultFilePermissions)
		os.WriteFile(filepath.Join(tmpDir, "test1", "config.toml"), []byte(""), DefaultFilePermissions)

		// Change to subdirectory
		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		os.Chdir(subDir)

		result := findProjectConfig()
		if result == "" {
			t.Error("expected to find config file")
		}
		if !filepath.IsAbs(result) {
			t.Error("expected absolute path")
		}
		if filepath.Base(result) != "dqguard.toml" {
			t.Errorf("expected dqguard.toml, got %s", filepath.Base(result))
		}
	})

	// Test 2: Falls back to config.toml if dqguard.toml not present
	t.Run("fallback to config.toml", func(t *testing.T) {
		subDir := filepath.Join(tmpDir, "test2", "subdir")
		os.MkdirAll(subDir, DefaultDirPermissions)

		// Create only config.toml
		os.WriteFile(filepath.Join(tmpDir, "test2", "config.toml"), []byte(""), DefaultFilePermissions)

		oldWd, _ := os.Getwd()
		defer os.Chdir(oldWd)
		os.Chdir(subDir)

		result := findProjectConfig()
		if result == "" {
			t.Error("expected to find config file")
		}
		if filepath.Base(result) != "config.toml" {
			t.Errorf("expected config.toml, got %s", filepath.Base(result))
		}
	})
}
