package cliconfig

import (
	"errors"
	"testing"
	"time"

	"github.com/bft-labs/tickship/internal/domain"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Transport != TransportMsgpack {
		t.Errorf("Transport = %v, want %v", cfg.Transport, TransportMsgpack)
	}
	if cfg.EpisodeAddr != DefaultEpisodeAddr {
		t.Errorf("EpisodeAddr = %v, want %v", cfg.EpisodeAddr, DefaultEpisodeAddr)
	}
	if cfg.TickRate != 20 {
		t.Errorf("TickRate = %v, want 20", cfg.TickRate)
	}
	if cfg.ShutdownTimeout != 30*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 30s", cfg.ShutdownTimeout)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"dryrun without addr", func(c *Config) { c.Transport = TransportDryRun; c.EpisodeAddr = "" }, false},
		{"grpc transport", func(c *Config) { c.Transport = TransportGRPC }, false},
		{"transport is case-insensitive", func(c *Config) { c.Transport = " GRPC " }, false},
		{"zero actors", func(c *Config) { c.Actors = 0 }, false},
		{"empty log level", func(c *Config) { c.LogLevel = "" }, false},
		{"missing name", func(c *Config) { c.Name = "" }, true},
		{"unknown transport", func(c *Config) { c.Transport = "carrier-pigeon" }, true},
		{"msgpack without addr", func(c *Config) { c.EpisodeAddr = "" }, true},
		{"zero tick rate", func(c *Config) { c.TickRate = 0 }, true},
		{"negative actors", func(c *Config) { c.Actors = -1 }, true},
		{"negative first actor", func(c *Config) { c.FirstActorID = -1 }, true},
		{"first actor overflows", func(c *Config) { v := uint64(1) << 33; c.FirstActorID = int(v) }, true},
		{"negative ticks", func(c *Config) { c.Ticks = -5 }, true},
		{"zero dial timeout", func(c *Config) { c.DialTimeout = 0 }, true},
		{"zero submit timeout", func(c *Config) { c.SubmitTimeout = 0 }, true},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = 0 }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}

func TestConfig_Validate_Normalizes(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport = " GRPC "
	cfg.LogLevel = ""

	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
	if cfg.Transport != TransportGRPC {
		t.Errorf("Transport = %q, want %q", cfg.Transport, TransportGRPC)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
}

func TestConfigSetter(t *testing.T) {
	s := newConfigSetter(map[string]bool{"name": true})

	name := "flag"
	s.setString("name", "file", &name)
	if name != "flag" {
		t.Errorf("setString overrode changed flag: %q", name)
	}

	n := 3
	s.setInt("actors", 0, &n)
	if n != 3 {
		t.Errorf("setInt applied non-positive value: %d", n)
	}

	var d time.Duration
	if err := s.setDuration("dial-timeout", "nope", &d); err == nil {
		t.Error("setDuration accepted invalid duration")
	}

	var b bool
	s.setBoolFromString("tick-cue", "1", &b)
	if !b {
		t.Error("setBoolFromString(\"1\") = false, want true")
	}
}

func TestSetLogLevel(t *testing.T) {
	if err := SetLogLevel("debug"); err != nil {
		t.Errorf("SetLogLevel(debug) = %v", err)
	}
	if err := SetLogLevel("loud"); err == nil {
		t.Error("SetLogLevel(loud) expected error")
	}
	_ = SetLogLevel("info")
}
