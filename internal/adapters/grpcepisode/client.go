package grpcepisode

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/bft-labs/tickship/internal/domain"
	"github.com/bft-labs/tickship/pkg/log"
)

// Default timeouts.
const (
	DefaultDialTimeout = 5 * time.Second
	DefaultCallTimeout = 2 * time.Second
)

// Options configures a Client.
type Options struct {
	DialTimeout time.Duration
	CallTimeout time.Duration
	TickCue     bool
	Logger      log.Logger
}

// Client is an episode handle backed by a gRPC connection.
// Reconnects are handled by the gRPC channel.
type Client struct {
	conn *grpc.ClientConn
	opts Options
}

// Dial connects to addr and waits until the channel is ready.
// A server that does not become reachable within DialTimeout is a
// construction error.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = DefaultCallTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.NewNoopLogger()
	}

	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	dialCtx, cancel := context.WithTimeout(ctx, opts.DialTimeout)
	defer cancel()

	conn.Connect()
	for state := conn.GetState(); state != connectivity.Ready; state = conn.GetState() {
		if state == connectivity.Idle {
			conn.Connect()
		}
		if !conn.WaitForStateChange(dialCtx, state) {
			_ = conn.Close()
			return nil, fmt.Errorf("dial %s: %w (last state %s)", addr, dialCtx.Err(), state)
		}
	}

	opts.Logger.Info("connected to episode",
		log.String("addr", addr),
		log.String("transport", "grpc"),
	)
	return &Client{conn: conn, opts: opts}, nil
}

// SubmitBatch sends all commands in one ApplyBatch call.
func (c *Client) SubmitBatch(ctx context.Context, cmds []domain.Command) ([]domain.CommandResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.opts.CallTimeout)
	defer cancel()

	resp := new(structpb.Struct)
	if err := c.conn.Invoke(callCtx, applyBatchMethod, encodeRequest(cmds, c.opts.TickCue), resp); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("apply batch: %w", err)
	}

	results, err := decodeResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return results, nil
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
