package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (TICKSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("name", os.Getenv("TICKSHIP_NAME"), &cfg.Name)
	s.setString("transport", os.Getenv("TICKSHIP_TRANSPORT"), &cfg.Transport)
	s.setString("episode-addr", os.Getenv("TICKSHIP_EPISODE_ADDR"), &cfg.EpisodeAddr)
	s.setString("script", os.Getenv("TICKSHIP_SCRIPT"), &cfg.ScriptPath)
	s.setString("batch-log", os.Getenv("TICKSHIP_BATCH_LOG"), &cfg.BatchLogPath)
	s.setString("log-level", os.Getenv("TICKSHIP_LOG_LEVEL"), &cfg.LogLevel)

	if err := s.setDuration("dial-timeout", os.Getenv("TICKSHIP_DIAL_TIMEOUT"), &cfg.DialTimeout); err != nil {
		return err
	}
	if err := s.setDuration("submit-timeout", os.Getenv("TICKSHIP_SUBMIT_TIMEOUT"), &cfg.SubmitTimeout); err != nil {
		return err
	}
	if err := s.setDuration("shutdown-timeout", os.Getenv("TICKSHIP_SHUTDOWN_TIMEOUT"), &cfg.ShutdownTimeout); err != nil {
		return err
	}

	if err := s.setFloatFromString("tick-rate", os.Getenv("TICKSHIP_TICK_RATE"), &cfg.TickRate); err != nil {
		return err
	}

	if err := s.setIntFromString("actors", os.Getenv("TICKSHIP_ACTORS"), &cfg.Actors); err != nil {
		return err
	}
	if err := s.setIntFromString("first-actor-id", os.Getenv("TICKSHIP_FIRST_ACTOR_ID"), &cfg.FirstActorID); err != nil {
		return err
	}
	if err := s.setIntFromString("ticks", os.Getenv("TICKSHIP_TICKS"), &cfg.Ticks); err != nil {
		return err
	}

	s.setBoolFromString("tick-cue", os.Getenv("TICKSHIP_TICK_CUE"), &cfg.TickCue)
	s.setBoolFromString("watch-config", os.Getenv("TICKSHIP_WATCH_CONFIG"), &cfg.WatchConfig)

	return nil
}
