package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/tickship/internal/cliconfig"
	tlog "github.com/bft-labs/tickship/pkg/log"
	"github.com/bft-labs/tickship/pkg/tickship"
	"github.com/bft-labs/tickship/plugins/batchlog"
	"github.com/bft-labs/tickship/plugins/configwatcher"
)

const helpDescription = `
Drive a fleet of simulated vehicles from per-tick control frames.

Every tick the planner publishes one control frame. The batch control stage
takes the most recent frame, turns each entry into a vehicle control command
and submits all of them to the simulation in a single batch call.

Highlights:
  - Most-recent-wins handoff: a slow simulator never builds a backlog.
  - msgpack-RPC or gRPC transport, or a dry run without a simulator.
  - Synthetic fleet or a YAML frame script; configure via file, env, or flags.
`

var longHelp = strings.TrimSpace(helpDescription)

var exampleUsage = strings.TrimSpace(`
  tickship --episode-addr 127.0.0.1:2000 --actors 8 --tick-rate 20
  tickship --transport dryrun --script frames.yaml --ticks 100
  tickship --config $HOME/.tickship/config.toml --batch-log batches.db
  tickship simulate --listen 127.0.0.1:2000 --fail-actors 3,5
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// loadConfig layers the config file and TICKSHIP_* environment over cfg.
// Flags the user set explicitly keep their values.
func loadConfig(cfg *cliconfig.Config, cfgFile string, changed map[string]bool) error {
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return err
		}
	}
	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return err
	}
	return cfg.Validate()
}

func libraryConfig(cfg cliconfig.Config) tickship.Config {
	return tickship.Config{
		Name:            cfg.Name,
		Transport:       cfg.Transport,
		EpisodeAddr:     cfg.EpisodeAddr,
		TickCue:         cfg.TickCue,
		DialTimeout:     cfg.DialTimeout,
		SubmitTimeout:   cfg.SubmitTimeout,
		TickRate:        cfg.TickRate,
		Actors:          cfg.Actors,
		FirstActorID:    uint32(cfg.FirstActorID),
		Ticks:           uint64(cfg.Ticks),
		ScriptPath:      cfg.ScriptPath,
		ShutdownTimeout: cfg.ShutdownTimeout,
	}
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:     "tickship",
		Short:   "Submit one batch of vehicle control commands per simulation tick",
		Long:    longHelp,
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if err := loadConfig(&cfg, cfgFile, changed); err != nil {
				return err
			}
			if err := cliconfig.SetLogLevel(cfg.LogLevel); err != nil {
				return err
			}
			log.Info().Interface("config", cfg).Msg("configuration")

			opts := []tickship.Option{
				tickship.WithLogger(tlog.NewZerologAdapterWithLogger(log)),
			}
			if cfg.BatchLogPath != "" {
				opts = append(opts, batchlog.WithBatchLog(batchlog.Config{Path: cfg.BatchLogPath}))
			}
			if cfg.WatchConfig && cliconfig.FileExists(cfgFile) {
				opts = append(opts, configwatcher.WithConfigWatcher(configwatcher.Config{
					Path: cfgFile,
					OnChange: func(path string) {
						// Only the log level is applied live; the rest needs a restart.
						next := cliconfig.DefaultConfig()
						if err := loadConfig(&next, path, changed); err != nil {
							log.Warn().Err(err).Msg("ignoring config change")
							return
						}
						if changed["log-level"] {
							return
						}
						if err := cliconfig.SetLogLevel(next.LogLevel); err != nil {
							log.Warn().Err(err).Msg("ignoring log level change")
							return
						}
						log.Info().Str("log_level", next.LogLevel).Msg("log level reloaded")
					},
				}))
			}

			ts, err := tickship.New(libraryConfig(cfg), opts...)
			if err != nil {
				return fmt.Errorf("create tickship: %w", err)
			}

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			if err := ts.Start(ctx); err != nil {
				return fmt.Errorf("start tickship: %w", err)
			}

			select {
			case <-sigCh:
				log.Info().Msg("received signal, stopping...")
			case <-ts.Wait():
				if ts.Status() == tickship.StateCrashed {
					log.Error().Msg("tickship crashed")
				}
			}

			var stopErr error
			if ts.Status().CanStop() {
				if err := ts.Stop(); err != nil && !errors.Is(err, tickship.ErrNotRunning) {
					stopErr = err
				}
			}

			stats := ts.Stats()
			log.Info().
				Uint64("batches", stats.Batches).
				Uint64("commands", stats.Commands).
				Uint64("command_failures", stats.CommandFailures).
				Uint64("submit_failures", stats.SubmitFailures).
				Uint64("frames_published", stats.FramesPublished).
				Uint64("frames_superseded", stats.FramesSuperseded).
				Msg("run finished")

			if stopErr != nil {
				return fmt.Errorf("stop tickship: %w", stopErr)
			}
			if ts.Status() == tickship.StateCrashed {
				return fmt.Errorf("tickship crashed")
			}
			return nil
		},
	}

	root.Flags().StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.tickship/config.toml; .yaml/.yml also accepted)")
	root.Flags().StringVar(&cfg.Name, "name", cfg.Name, "diagnostic name of the batch control stage")

	root.Flags().StringVar(&cfg.Transport, "transport", cfg.Transport, "episode transport: msgpack, grpc or dryrun")
	root.Flags().StringVar(&cfg.EpisodeAddr, "episode-addr", cfg.EpisodeAddr, "simulator RPC endpoint (host:port)")
	root.Flags().BoolVar(&cfg.TickCue, "tick-cue", cfg.TickCue, "ask the simulator to advance after each batch")
	root.Flags().DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "timeout for connecting to the simulator")
	root.Flags().DurationVar(&cfg.SubmitTimeout, "submit-timeout", cfg.SubmitTimeout, "timeout for one batch submission")

	root.Flags().Float64Var(&cfg.TickRate, "tick-rate", cfg.TickRate, "frame publication rate in Hz")
	root.Flags().IntVar(&cfg.Actors, "actors", cfg.Actors, "number of synthetic vehicles")
	root.Flags().IntVar(&cfg.FirstActorID, "first-actor-id", cfg.FirstActorID, "actor id of the first synthetic vehicle")
	root.Flags().IntVar(&cfg.Ticks, "ticks", cfg.Ticks, "stop after this many frames (0 = run until interrupted)")
	root.Flags().StringVar(&cfg.ScriptPath, "script", cfg.ScriptPath, "YAML frame script replacing the synthetic fleet")

	root.Flags().StringVar(&cfg.BatchLogPath, "batch-log", cfg.BatchLogPath, "record batch outcomes in this SQLite database")
	root.Flags().BoolVar(&cfg.WatchConfig, "watch-config", cfg.WatchConfig, "reload the log level when the config file changes")
	root.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	root.Flags().DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout", cfg.ShutdownTimeout, "maximum time to wait for a graceful stop")

	root.AddCommand(newSimulateCommand())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("tickship")
		os.Exit(1)
	}
}
