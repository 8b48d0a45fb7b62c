package grpcepisode

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bft-labs/tickship/internal/ports"
	"github.com/bft-labs/tickship/pkg/log"
)

var _ episodeServer = (*Server)(nil)

// Server is a stub simulation endpoint serving the Episode service on top
// of an episode handle.
type Server struct {
	episode ports.EpisodeHandle
	logger  log.Logger
	server  *grpc.Server
}

// NewServer creates a server backed by episode.
func NewServer(episode ports.EpisodeHandle, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	s := &Server{
		episode: episode,
		logger:  logger,
		server:  grpc.NewServer(),
	}
	s.server.RegisterService(&episodeServiceDesc, s)
	return s
}

// Serve accepts connections on ln. It returns nil after Close.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("episode server listening",
		log.String("addr", ln.Addr().String()),
		log.String("transport", "grpc"),
	)
	return s.server.Serve(ln)
}

// Close stops the server, letting in-flight calls finish.
func (s *Server) Close() error {
	s.server.GracefulStop()
	return nil
}

// ApplyBatch implements the Episode service.
func (s *Server) ApplyBatch(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	cmds, tickCue, err := decodeRequest(req)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "decode request: %v", err)
	}

	s.logger.Debug("apply batch",
		log.Int("commands", len(cmds)),
		log.Bool("tick_cue", tickCue),
	)

	results, err := s.episode.SubmitBatch(ctx, cmds)
	if err != nil {
		return nil, status.Error(codes.Unavailable, err.Error())
	}
	return encodeResponse(results), nil
}
