package main

import (
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bft-labs/tickship/internal/adapters/dryrun"
	"github.com/bft-labs/tickship/internal/adapters/grpcepisode"
	"github.com/bft-labs/tickship/internal/adapters/msgpackrpc"
	"github.com/bft-labs/tickship/internal/cliconfig"
	"github.com/bft-labs/tickship/internal/domain"
	tlog "github.com/bft-labs/tickship/pkg/log"
)

// episodeServer is implemented by the msgpack-RPC and gRPC stub servers.
type episodeServer interface {
	Serve(ln net.Listener) error
	Close() error
}

func newSimulateCommand() *cobra.Command {
	var (
		listen     string
		transport  string
		failActors []uint
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a stub simulation that accepts command batches",
		Long: strings.TrimSpace(`
Serve the episode batch endpoint without a simulator. Every command is
reported as applied, except commands addressed to --fail-actors, which fail
the way commands for destroyed vehicles do.`),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cliconfig.SetLogLevel(logLevel); err != nil {
				return err
			}
			log := cliconfig.Logger()
			logger := tlog.NewZerologAdapterWithLogger(log)

			missing := make([]domain.ActorID, 0, len(failActors))
			for _, id := range failActors {
				missing = append(missing, domain.ActorID(id))
			}
			episode := dryrun.New(logger, missing...)

			var srv episodeServer
			switch strings.ToLower(transport) {
			case cliconfig.TransportMsgpack:
				srv = msgpackrpc.NewServer(episode, logger)
			case cliconfig.TransportGRPC:
				srv = grpcepisode.NewServer(episode, logger)
			default:
				return fmt.Errorf("unknown transport %q (want msgpack or grpc)", transport)
			}

			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}
			log.Info().
				Str("addr", ln.Addr().String()).
				Str("transport", transport).
				Uints("fail_actors", failActors).
				Msg("simulation listening")

			served := make(chan error, 1)
			go func() { served <- srv.Serve(ln) }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)

			select {
			case <-sigCh:
				log.Info().Msg("received signal, stopping...")
			case err := <-served:
				return err
			}

			_ = srv.Close()
			err = <-served

			stats := episode.Stats()
			log.Info().
				Uint64("batches", stats.Batches).
				Uint64("commands", stats.Commands).
				Uint64("failures", stats.Failures).
				Msg("simulation stopped")
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", cliconfig.DefaultEpisodeAddr, "address to serve the episode endpoint on")
	cmd.Flags().StringVar(&transport, "transport", cliconfig.TransportMsgpack, "wire protocol: msgpack or grpc")
	cmd.Flags().UintSliceVar(&failActors, "fail-actors", nil, "actor ids whose commands fail (comma separated)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")

	return cmd
}
