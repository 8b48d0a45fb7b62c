package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name       string
		fileConfig FileConfig
		changed    map[string]bool
		initial    Config
		expected   Config
		wantErr    bool
	}{
		{
			name: "applies all valid config values",
			fileConfig: FileConfig{
				Name:            "file-stage",
				Transport:       "grpc",
				EpisodeAddr:     "sim:2000",
				TickCue:         &trueVal,
				DialTimeout:     "1s",
				SubmitTimeout:   "100ms",
				ShutdownTimeout: "10s",
				TickRate:        50,
				Actors:          3,
				FirstActorID:    7,
				Ticks:           10,
				ScriptPath:      "script.yaml",
				BatchLogPath:    "batches.db",
				WatchConfig:     &trueVal,
				LogLevel:        "warn",
			},
			changed: map[string]bool{},
			expected: Config{
				Name:            "file-stage",
				Transport:       "grpc",
				EpisodeAddr:     "sim:2000",
				TickCue:         true,
				DialTimeout:     time.Second,
				SubmitTimeout:   100 * time.Millisecond,
				ShutdownTimeout: 10 * time.Second,
				TickRate:        50,
				Actors:          3,
				FirstActorID:    7,
				Ticks:           10,
				ScriptPath:      "script.yaml",
				BatchLogPath:    "batches.db",
				WatchConfig:     true,
				LogLevel:        "warn",
			},
		},
		{
			name: "respects changed flags",
			fileConfig: FileConfig{
				EpisodeAddr: "file:2000",
				Actors:      9,
			},
			changed: map[string]bool{"actors": true},
			initial: Config{Actors: 2},
			expected: Config{
				EpisodeAddr: "file:2000",
				Actors:      2,
			},
		},
		{
			name:       "invalid duration",
			fileConfig: FileConfig{DialTimeout: "later"},
			changed:    map[string]bool{},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fileConfig, tt.changed)

			if tt.wantErr {
				if err == nil {
					t.Error("ApplyFileConfig() expected error but got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyFileConfig() unexpected error: %v", err)
			}
			if cfg != tt.expected {
				t.Errorf("ApplyFileConfig() = %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.toml")

	tomlContent := `
name = "toml-stage"
transport = "msgpack"
episode_addr = "127.0.0.1:2000"
tick_rate = 20.0
actors = 6
submit_timeout = "500ms"
tick_cue = true
`

	if err := os.WriteFile(configPath, []byte(tomlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Name != "toml-stage" {
		t.Errorf("Name = %v, want toml-stage", fc.Name)
	}
	if fc.EpisodeAddr != "127.0.0.1:2000" {
		t.Errorf("EpisodeAddr = %v, want 127.0.0.1:2000", fc.EpisodeAddr)
	}
	if fc.TickRate != 20 {
		t.Errorf("TickRate = %v, want 20", fc.TickRate)
	}
	if fc.Actors != 6 {
		t.Errorf("Actors = %v, want 6", fc.Actors)
	}
	if fc.SubmitTimeout != "500ms" {
		t.Errorf("SubmitTimeout = %v, want 500ms", fc.SubmitTimeout)
	}
	if fc.TickCue == nil || !*fc.TickCue {
		t.Errorf("TickCue = %v, want true", fc.TickCue)
	}
}

func TestLoadFileConfig_YAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yml")

	yamlContent := `
name: yaml-stage
transport: dryrun
ticks: 100
watch_config: true
script: frames.yaml
`

	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	fc, err := LoadFileConfig(configPath)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	if fc.Name != "yaml-stage" {
		t.Errorf("Name = %v, want yaml-stage", fc.Name)
	}
	if fc.Transport != "dryrun" {
		t.Errorf("Transport = %v, want dryrun", fc.Transport)
	}
	if fc.Ticks != 100 {
		t.Errorf("Ticks = %v, want 100", fc.Ticks)
	}
	if fc.ScriptPath != "frames.yaml" {
		t.Errorf("ScriptPath = %v, want frames.yaml", fc.ScriptPath)
	}
	if fc.WatchConfig == nil || !*fc.WatchConfig {
		t.Errorf("WatchConfig = %v, want true", fc.WatchConfig)
	}
}

func TestLoadFileConfig_InvalidFile(t *testing.T) {
	_, err := LoadFileConfig("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("LoadFileConfig() expected error for nonexistent file")
	}
}

func TestLoadFileConfig_InvalidTOML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.toml")

	invalidContent := `
name = "x"
this is not valid toml
`

	if err := os.WriteFile(configPath, []byte(invalidContent), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid TOML")
	}
}

func TestLoadFileConfig_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	if err := os.WriteFile(configPath, []byte("actors: [1, 2"), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	_, err := LoadFileConfig(configPath)
	if err == nil {
		t.Error("LoadFileConfig() expected error for invalid YAML")
	}
}

func TestDefaultConfigPath(t *testing.T) {
	path := DefaultConfigPath()

	if path != "" && !strings.Contains(path, ".tickship") {
		t.Errorf("DefaultConfigPath() = %v, should contain .tickship", path)
	}
}

func TestFileExists(t *testing.T) {
	tmpDir := t.TempDir()
	existingFile := filepath.Join(tmpDir, "exists.txt")

	if err := os.WriteFile(existingFile, []byte("test"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if !FileExists(existingFile) {
		t.Error("FileExists() = false, want true for existing file")
	}

	if FileExists(filepath.Join(tmpDir, "nonexistent.txt")) {
		t.Error("FileExists() = true, want false for nonexistent file")
	}
}
