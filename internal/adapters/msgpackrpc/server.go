package msgpackrpc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bft-labs/tickship/internal/ports"
	"github.com/bft-labs/tickship/pkg/log"
)

// Server is a stub simulation endpoint. It decodes apply_batch_sync
// requests and hands every batch to an episode handle, typically a dry-run
// episode that models deregistered actors.
type Server struct {
	episode ports.EpisodeHandle
	logger  log.Logger

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a server backed by episode.
func NewServer(episode ports.EpisodeHandle, logger log.Logger) *Server {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		episode: episode,
		logger:  logger,
		conns:   make(map[net.Conn]struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Serve accepts connections on ln until Close is called.
// It returns nil after Close.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return net.ErrClosed
	}
	s.ln = ln
	s.mu.Unlock()

	s.logger.Info("episode server listening",
		log.String("addr", ln.Addr().String()),
		log.String("transport", "msgpack"),
	)

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closed := s.closed
			s.mu.Unlock()
			if closed {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return nil
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.serveConn(conn)
	}
}

func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	enc := msgpack.NewEncoder(conn)
	dec := msgpack.NewDecoder(bufio.NewReader(conn))

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Warn("read request failed",
					log.String("remote", conn.RemoteAddr().String()),
					log.Err(err),
				)
			}
			return
		}

		resp := s.handle(&req)
		if err := enc.Encode(resp); err != nil {
			s.logger.Warn("write response failed",
				log.String("remote", conn.RemoteAddr().String()),
				log.Err(err),
			)
			return
		}
	}
}

func (s *Server) handle(req *request) *response {
	resp := &response{Type: typeResponse, MsgID: req.MsgID}

	if req.Type != typeRequest {
		resp.Error = fmt.Sprintf("unexpected message type %d", req.Type)
		return resp
	}
	if req.Method != MethodApplyBatch {
		resp.Error = fmt.Sprintf("unknown method %q", req.Method)
		return resp
	}

	s.logger.Debug("apply batch",
		log.Int("commands", len(req.Params.Commands)),
		log.Bool("tick_cue", req.Params.TickCue),
	)

	results, err := s.episode.SubmitBatch(s.ctx, decodeCommands(req.Params.Commands))
	if err != nil {
		resp.Error = err.Error()
		return resp
	}
	resp.Results = encodeResults(results)
	return resp
}

// Close stops accepting, closes open connections and waits for their
// handlers to return.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()

	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}
