package msgpackrpc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bft-labs/tickship/internal/domain"
	"github.com/bft-labs/tickship/pkg/lifecycle"
	"github.com/bft-labs/tickship/pkg/log"
)

var (
	// ErrClosed is returned by SubmitBatch after Close.
	ErrClosed = errors.New("msgpackrpc: client closed")

	// ErrUnavailable is returned while the client waits out the backoff
	// window after a failed reconnect.
	ErrUnavailable = errors.New("msgpackrpc: episode unavailable")

	// ErrRemote wraps an error reported by the server for a whole batch.
	ErrRemote = errors.New("msgpackrpc: remote error")
)

// Default timeouts.
const (
	DefaultDialTimeout = 5 * time.Second
	DefaultCallTimeout = 2 * time.Second
)

// Options configures a Client.
type Options struct {
	// DialTimeout bounds every connection attempt
	DialTimeout time.Duration

	// CallTimeout bounds one request/response round trip. A caller context
	// that ends sooner cuts the call short.
	CallTimeout time.Duration

	// TickCue asks the server to advance the simulation after applying the batch
	TickCue bool

	// RetryInitial and RetryMax bound the reconnect backoff window
	RetryInitial time.Duration
	RetryMax     time.Duration

	Logger log.Logger
}

func (o *Options) setDefaults() {
	if o.DialTimeout <= 0 {
		o.DialTimeout = DefaultDialTimeout
	}
	if o.CallTimeout <= 0 {
		o.CallTimeout = DefaultCallTimeout
	}
	if o.RetryInitial <= 0 {
		o.RetryInitial = 100 * time.Millisecond
	}
	if o.RetryMax <= 0 {
		o.RetryMax = 5 * time.Second
	}
	if o.Logger == nil {
		o.Logger = log.NewNoopLogger()
	}
}

// Client is an episode handle speaking msgpack-RPC over TCP.
//
// Calls are serialized: one request is in flight at a time. After a
// transport failure the connection is dropped and the next call redials.
// A failed redial opens a backoff window during which calls fail fast with
// ErrUnavailable instead of blocking the control loop.
type Client struct {
	addr string
	opts Options

	mu      sync.Mutex
	conn    net.Conn
	enc     *msgpack.Encoder
	dec     *msgpack.Decoder
	msgID   uint32
	backoff *lifecycle.Backoff
	retryAt time.Time
	closed  bool
	now     func() time.Time
}

// Dial connects to the episode server at addr.
// An unreachable server is a construction error.
func Dial(ctx context.Context, addr string, opts Options) (*Client, error) {
	opts.setDefaults()
	c := &Client{
		addr:    addr,
		opts:    opts,
		backoff: lifecycle.NewBackoff(opts.RetryInitial, opts.RetryMax),
		now:     time.Now,
	}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	c.opts.Logger.Info("connected to episode",
		log.String("addr", addr),
		log.String("transport", "msgpack"),
	)
	return c, nil
}

// SubmitBatch sends all commands as one apply_batch_sync request.
func (c *Client) SubmitBatch(ctx context.Context, cmds []domain.Command) ([]domain.CommandResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}

	if c.conn == nil {
		if now := c.now(); now.Before(c.retryAt) {
			return nil, fmt.Errorf("%w: retry in %s", ErrUnavailable, c.retryAt.Sub(now).Round(time.Millisecond))
		}
		if err := c.connect(ctx); err != nil {
			c.retryAt = c.now().Add(c.backoff.Next())
			return nil, err
		}
		c.opts.Logger.Info("reconnected to episode", log.String("addr", c.addr))
	}

	resp, err := c.call(ctx, cmds)
	if err != nil {
		c.drop()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, err
	}
	c.backoff.Reset()

	if msg := remoteError(resp.Error); msg != "" {
		return nil, fmt.Errorf("%w: %s", ErrRemote, msg)
	}
	return decodeResults(resp.Results), nil
}

func (c *Client) call(ctx context.Context, cmds []domain.Command) (*response, error) {
	if err := c.conn.SetDeadline(c.now().Add(c.opts.CallTimeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	// Unblock the round trip when the caller gives up first.
	conn := c.conn
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Unix(1, 0))
	})
	defer stop()

	c.msgID++
	req := request{
		Type:   typeRequest,
		MsgID:  c.msgID,
		Method: MethodApplyBatch,
		Params: batchParams{
			Commands: encodeCommands(cmds),
			TickCue:  c.opts.TickCue,
		},
	}
	if err := c.enc.Encode(&req); err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	var resp response
	if err := c.dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.Type != typeResponse || resp.MsgID != req.MsgID {
		return nil, fmt.Errorf("unexpected response type %d id %d (want id %d)", resp.Type, resp.MsgID, req.MsgID)
	}
	return &resp, nil
}

func (c *Client) connect(ctx context.Context) error {
	d := net.Dialer{Timeout: c.opts.DialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.addr, err)
	}
	c.conn = conn
	c.enc = msgpack.NewEncoder(conn)
	c.dec = msgpack.NewDecoder(bufio.NewReader(conn))
	return nil
}

func (c *Client) drop() {
	if c.conn == nil {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
	c.enc = nil
	c.dec = nil
	c.opts.Logger.Warn("episode connection dropped", log.String("addr", c.addr))
}

// Close closes the connection. Further submissions fail with ErrClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
