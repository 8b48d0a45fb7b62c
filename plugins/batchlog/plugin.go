// Package batchlog records batch outcomes in a SQLite database.
//
// Events are queued and written by a background goroutine. When the queue
// is full the event is dropped and counted; the control loop never waits
// on disk.
package batchlog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"github.com/bft-labs/tickship/pkg/log"
	"github.com/bft-labs/tickship/pkg/tickship"
)

//go:embed schema.sql
var schemaSQL string

// ErrNoPath is returned by Initialize when no database path is set.
var ErrNoPath = errors.New("batchlog: database path required")

const defaultBufferSize = 256

// Config holds configuration options for the batch log plugin.
type Config struct {
	// Path is the SQLite database file. Required.
	Path string

	// BufferSize is the number of events queued before new ones are dropped.
	// Default: 256
	BufferSize int
}

// record is one queued batch outcome.
type record struct {
	id         string
	stage      string
	sequence   uint64
	size       int
	durationNs int64
	err        string
	failures   []tickship.CommandResult
}

// Plugin writes one row per batch and one row per rejected command.
type Plugin struct {
	tickship.BaseEventHandler

	path       string
	bufferSize int

	mu     sync.RWMutex
	closed bool
	queue  chan record
	db     *sql.DB
	logger tickship.Logger
	wg     sync.WaitGroup

	written atomic.Uint64
	dropped atomic.Uint64
}

// New creates a batch log plugin.
func New(cfg Config) *Plugin {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	return &Plugin{
		path:       cfg.Path,
		bufferSize: cfg.BufferSize,
		closed:     true,
		logger:     log.NewNoopLogger(),
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "batchlog"
}

// Initialize opens the database, applies the schema and starts the writer.
func (p *Plugin) Initialize(ctx context.Context, cfg tickship.PluginConfig) error {
	if p.path == "" {
		return ErrNoPath
	}
	if cfg.Logger != nil {
		p.logger = cfg.Logger
	}

	db, err := sql.Open("sqlite", p.path)
	if err != nil {
		return fmt.Errorf("open batch log: %w", err)
	}
	// SQLite takes one writer at a time.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply batch log schema: %w", err)
	}

	queue := make(chan record, p.bufferSize)

	p.mu.Lock()
	p.db = db
	p.queue = queue
	p.closed = false
	p.mu.Unlock()

	p.logger.Info("batch log opened", log.String("path", p.path))

	p.wg.Add(1)
	go p.writeLoop(db, queue)
	return nil
}

// Shutdown drains the queue and closes the database.
func (p *Plugin) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	db := p.db
	p.mu.Unlock()

	p.wg.Wait()

	p.logger.Info("batch log closed",
		log.Uint64("written", p.written.Load()),
		log.Uint64("dropped", p.dropped.Load()),
	)
	return db.Close()
}

// OnBatchSubmitted queues a successful submission.
func (p *Plugin) OnBatchSubmitted(ev tickship.BatchSubmittedEvent) {
	p.enqueue(record{
		id:         ev.BatchID.String(),
		stage:      ev.Stage,
		sequence:   ev.Sequence,
		size:       ev.Size,
		durationNs: ev.Duration.Nanoseconds(),
		failures:   ev.Failures,
	})
}

// OnBatchFailed queues a failed submission.
func (p *Plugin) OnBatchFailed(ev tickship.BatchFailedEvent) {
	r := record{
		id:       ev.BatchID.String(),
		stage:    ev.Stage,
		sequence: ev.Sequence,
		size:     ev.Size,
	}
	if ev.Error != nil {
		r.err = ev.Error.Error()
	} else {
		r.err = "unknown error"
	}
	p.enqueue(r)
}

// Written returns the number of batches stored.
func (p *Plugin) Written() uint64 {
	return p.written.Load()
}

// Dropped returns the number of batches discarded because the queue was
// full or the plugin was not running.
func (p *Plugin) Dropped() uint64 {
	return p.dropped.Load()
}

func (p *Plugin) enqueue(r record) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		p.dropped.Add(1)
		return
	}
	select {
	case p.queue <- r:
	default:
		p.dropped.Add(1)
	}
}

func (p *Plugin) writeLoop(db *sql.DB, queue <-chan record) {
	defer p.wg.Done()

	for r := range queue {
		if err := insert(db, r); err != nil {
			p.dropped.Add(1)
			p.logger.Warn("batch log write failed",
				log.String("batch", r.id),
				log.Err(err),
			)
			continue
		}
		p.written.Add(1)
	}
}

func insert(db *sql.DB, r record) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var errText sql.NullString
	if r.err != "" {
		errText = sql.NullString{String: r.err, Valid: true}
	}

	_, err = tx.Exec(`
		INSERT INTO batches (id, stage, sequence, size, failures, duration_ns, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.id, r.stage, int64(r.sequence), r.size, len(r.failures), r.durationNs, errText)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for _, f := range r.failures {
		_, err = tx.Exec(`
			INSERT INTO command_failures (batch_id, actor, reason)
			VALUES (?, ?, ?)
		`, r.id, int64(f.Actor), f.Error)
		if err != nil {
			return fmt.Errorf("insert command failure: %w", err)
		}
	}

	return tx.Commit()
}

var (
	_ tickship.Plugin       = (*Plugin)(nil)
	_ tickship.EventHandler = (*Plugin)(nil)
)
