package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stratalake/dqguard/errors"
)

func TestWriteDefault(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "dqguard.toml")

	if err := WriteDefault(configPath, false); err != nil {
		t.Fatalf("WriteDefault() failed: %v", err)
	}

	// The written file round-trips through the normal loader
	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if cfg.Database.Path != "dqguard.db" {
		t.Errorf("expected database path 'dqguard.db', got %q", cfg.Database.Path)
	}
	if cfg.Sampling.Method != "random" {
		t.Errorf("expected sampling method 'random', got %q", cfg.Sampling.Method)
	}
	if cfg.Thresholds.Global.MinSuccessRate != 90.0 {
		t.Errorf("expected global min success rate 90, got %v", cfg.Thresholds.Global.MinSuccessRate)
	}
	if len(cfg.Escalation.Levels) != 3 {
		t.Errorf("expected 3 escalation levels, got %d", len(cfg.Escalation.Levels))
	}

	// Second write without force is refused
	err = WriteDefault(configPath, false)
	if err == nil {
		t.Fatal("expected error writing over existing config")
	}
	if !errors.IsConfigError(err) {
		t.Errorf("expected config error, got %v", err)
	}

	// Force rotates the existing file into .back1
	if err := WriteDefault(configPath, true); err != nil {
		t.Fatalf("WriteDefault(force) failed: %v", err)
	}
	if _, err := os.Stat(configPath + ".back1"); err != nil {
		t.Errorf("expected .back1 backup, got %v", err)
	}
}

func TestCreateBackup_Rotation(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "dqguard.toml")

	// No file yet: backup is a no-op
	if err := createBackup(configPath); err != nil {
		t.Fatalf("createBackup() on missing file failed: %v", err)
	}
	if _, err := os.Stat(configPath + ".back1"); !os.IsNotExist(err) {
		t.Error("expected no backup for missing config")
	}

	write := func(content string) {
		if err := os.WriteFile(configPath, []byte(content), DefaultFilePermissions); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}

	write("v1")
	if err := createBackup(configPath); err != nil {
		t.Fatalf("createBackup() failed: %v", err)
	}
	write("v2")
	if err := createBackup(configPath); err != nil {
		t.Fatalf("createBackup() failed: %v", err)
	}
	write("v3")
	if err := createBackup(configPath); err != nil {
		t.Fatalf("createBackup() failed: %v", err)
	}

	// back1 holds the most recent pre-backup content, back3 the oldest
	back1, err := os.ReadFile(configPath + ".back1")
	if err != nil {
		t.Fatalf("read .back1: %v", err)
	}
	if string(back1) != "v3" {
		t.Errorf("expected .back1 = v3, got %q", back1)
	}

	back2, err := os.ReadFile(configPath + ".back2")
	if err != nil {
		t.Fatalf("read .back2: %v", err)
	}
	if string(back2) != "v2" {
		t.Errorf("expected .back2 = v2, got %q", back2)
	}

	back3, err := os.ReadFile(configPath + ".back3")
	if err != nil {
		t.Fatalf("read .back3: %v", err)
	}
	if string(back3) != "v1" {
		t.Errorf("expected .back3 = v1, got %q", back3)
	}
}
