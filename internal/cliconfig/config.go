package cliconfig

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/tickship/internal/domain"
	"github.com/bft-labs/tickship/pkg/log"
)

// Supported episode transports.
const (
	TransportMsgpack = "msgpack"
	TransportGRPC    = "grpc"
	TransportDryRun  = "dryrun"
)

// DefaultEpisodeAddr is the default simulator RPC endpoint.
const DefaultEpisodeAddr = "127.0.0.1:2000"

// Config holds CLI configuration for tickship.
type Config struct {
	Name string

	Transport   string
	EpisodeAddr string
	TickCue     bool

	DialTimeout   time.Duration
	SubmitTimeout time.Duration

	TickRate     float64
	Actors       int
	FirstActorID int
	Ticks        int
	ScriptPath   string

	BatchLogPath    string
	WatchConfig     bool
	LogLevel        string
	ShutdownTimeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Name:            "batch-control",
		Transport:       TransportMsgpack,
		EpisodeAddr:     DefaultEpisodeAddr,
		DialTimeout:     5 * time.Second,
		SubmitTimeout:   2 * time.Second,
		TickRate:        20,
		Actors:          4,
		FirstActorID:    1,
		LogLevel:        "info",
		ShutdownTimeout: 30 * time.Second,
	}
}

// Validate checks the configuration for errors and sets derived defaults.
func (c *Config) Validate() error {
	if c.Name == "" {
		return invalid("name is required")
	}

	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case TransportMsgpack, TransportGRPC:
		if c.EpisodeAddr == "" {
			return invalid("episode-addr is required for transport %q", c.Transport)
		}
	case TransportDryRun:
	default:
		return invalid("unknown transport %q (want msgpack, grpc or dryrun)", c.Transport)
	}

	if c.TickRate <= 0 {
		return invalid("tick rate must be positive")
	}
	if c.Actors < 0 {
		return invalid("actors must not be negative")
	}
	if c.FirstActorID < 0 || uint64(c.FirstActorID) > math.MaxUint32 {
		return invalid("first actor id %d out of range", c.FirstActorID)
	}
	if c.Ticks < 0 {
		return invalid("ticks must not be negative")
	}
	if c.DialTimeout <= 0 {
		return invalid("dial timeout must be positive")
	}
	if c.SubmitTimeout <= 0 {
		return invalid("submit timeout must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return invalid("shutdown timeout must be positive")
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
