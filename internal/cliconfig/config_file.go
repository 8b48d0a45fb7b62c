package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// and YAML friendly.
type FileConfig struct {
	Name            string  `toml:"name" yaml:"name"`
	Transport       string  `toml:"transport" yaml:"transport"`
	EpisodeAddr     string  `toml:"episode_addr" yaml:"episode_addr"`
	TickCue         *bool   `toml:"tick_cue" yaml:"tick_cue"`
	DialTimeout     string  `toml:"dial_timeout" yaml:"dial_timeout"`
	SubmitTimeout   string  `toml:"submit_timeout" yaml:"submit_timeout"`
	TickRate        float64 `toml:"tick_rate" yaml:"tick_rate"`
	Actors          int     `toml:"actors" yaml:"actors"`
	FirstActorID    int     `toml:"first_actor_id" yaml:"first_actor_id"`
	Ticks           int     `toml:"ticks" yaml:"ticks"`
	ScriptPath      string  `toml:"script" yaml:"script"`
	BatchLogPath    string  `toml:"batch_log" yaml:"batch_log"`
	WatchConfig     *bool   `toml:"watch_config" yaml:"watch_config"`
	LogLevel        string  `toml:"log_level" yaml:"log_level"`
	ShutdownTimeout string  `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LoadFileConfig reads and parses a config file from the given path.
// Files ending in .yaml or .yml are parsed as YAML, everything else as TOML.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse yaml %s: %w", path, err)
		}
	default:
		if err := toml.Unmarshal(b, &fc); err != nil {
			return fc, fmt.Errorf("parse toml %s: %w", path, err)
		}
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.tickship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".tickship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", fc.Name, &cfg.Name)
	s.setString("transport", fc.Transport, &cfg.Transport)
	s.setString("episode-addr", fc.EpisodeAddr, &cfg.EpisodeAddr)
	s.setString("script", fc.ScriptPath, &cfg.ScriptPath)
	s.setString("batch-log", fc.BatchLogPath, &cfg.BatchLogPath)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)

	if err := s.setDuration("dial-timeout", fc.DialTimeout, &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("submit-timeout", fc.SubmitTimeout, &cfg.SubmitTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", fc.ShutdownTimeout, &cfg.ShutdownTimeout); err != nil {
		return err
	}

	s.setFloat("tick-rate", fc.TickRate, &cfg.TickRate)

	s.setInt("actors", fc.Actors, &cfg.Actors)
	s.setInt("first-actor-id", fc.FirstActorID, &cfg.FirstActorID)
	s.setInt("ticks", fc.Ticks, &cfg.Ticks)

	s.setBool("tick-cue", fc.TickCue, &cfg.TickCue)
	s.setBool("watch-config", fc.WatchConfig, &cfg.WatchConfig)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
