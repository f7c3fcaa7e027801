package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/stratalake/dqguard/errors"
	"github.com/stratalake/dqguard/logger"
)

// SystemConfigPath is the lowest-precedence config file location
const SystemConfigPath = "/etc/dqguard/config.toml"

var globalConfig *Config
var viperInstance *viper.Viper

// Load reads the dqguard configuration using Viper. The loaded config
// is validated and cached; call Reset to force a reload.
func Load() (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	v := initViper()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, "failed to unmarshal config")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	globalConfig = &config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance.
// No validation is performed; useful for constructing partial configs
// in tests.
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")

	// Set defaults but don't bind environment variables for this specific load
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WrapConfig(err, "failed to read config file "+configPath)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.WrapConfig(err, "failed to unmarshal config from "+configPath)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	globalConfig = nil
	viperInstance = nil
}

// initViper initializes Viper with configuration sources and defaults
func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()

	// Set up environment variable binding
	v.SetEnvPrefix("DQGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind operational override values to environment variables
	BindEnvOverrides(v)

	// Set defaults first
	SetDefaults(v)

	// First run: no config anywhere yet, so materialize the defaults
	// as the user config for future runs
	bootstrapConfig()

	// Merge config files in precedence order: system -> user -> project
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// findProjectConfig searches for dqguard.toml or config.toml by walking up the directory tree.
// Returns the path to the first config file found, or empty string if none found.
// Preference order: dqguard.toml > config.toml
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Walk up the directory tree looking for config files
	for {
		guardPath := filepath.Join(dir, "dqguard.toml")
		if _, err := os.Stat(guardPath); err == nil {
			return guardPath
		}

		configPath := filepath.Join(dir, "config.toml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root, stop searching
			break
		}
		dir = parent
	}

	return ""
}

// bootstrapConfig materializes the default configuration on first run.
// When no system, user, or project config file exists anywhere, the
// defaults are written to the user config path so later runs (and
// operators) start from a real file. A write failure only logs; Load
// proceeds on the in-memory defaults.
func bootstrapConfig() {
	if configFileExists() {
		return
	}
	userConfig := DefaultUserConfigPath()
	if userConfig == "" {
		return
	}
	if err := WriteDefault(userConfig, false); err != nil {
		logger.Warnw("Failed to persist default config, continuing with in-memory defaults",
			"path", userConfig,
			"error", err)
		return
	}
	logger.Infow("No configuration found, wrote defaults",
		"path", userConfig)
}

// configFileExists reports whether any config file is present at the
// system, user, or project location
func configFileExists() bool {
	for _, path := range []string{SystemConfigPath, DefaultUserConfigPath()} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			return true
		}
	}
	return findProjectConfig() != ""
}

// mergeConfigFiles merges configuration files in the correct precedence order.
// Precedence (lowest to highest): system < user < project < env vars.
// Files merge into viper's config layer, which sits below environment
// variables, so a DQGUARD_* variable outranks any file value.
func mergeConfigFiles(v *viper.Viper) {
	homeDir, _ := os.UserHomeDir()

	// Ensure ~/.dqguard directory exists
	guardDir := filepath.Join(homeDir, ".dqguard")
	os.MkdirAll(guardDir, DefaultDirPermissions)

	// Build config paths, with project config found via upward search
	projectConfig := findProjectConfig()
	configPaths := []string{
		SystemConfigPath,                        // System config (lowest precedence)
		filepath.Join(guardDir, "dqguard.toml"), // User config
	}

	// Add project config if found (highest file precedence, below env vars)
	if projectConfig != "" {
		configPaths = append(configPaths, projectConfig)
	}

	for _, configPath := range configPaths {
		if _, err := os.Stat(configPath); err == nil {
			// Config file exists, merge it
			tempViper := viper.New()
			tempViper.SetConfigFile(configPath)
			tempViper.SetConfigType("toml")

			if err := tempViper.ReadInConfig(); err == nil {
				// Later files overwrite earlier ones key by key
				v.MergeConfigMap(tempViper.AllSettings())
			}
		}
	}
}
