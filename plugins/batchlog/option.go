package batchlog

import "github.com/bft-labs/tickship/pkg/tickship"

// WithBatchLog returns a tickship Option that records every batch outcome
// in the SQLite database at cfg.Path.
//
// Usage:
//
//	ts, err := tickship.New(cfg, batchlog.WithBatchLog(batchlog.Config{
//	    Path: "batches.db",
//	}))
func WithBatchLog(cfg Config) tickship.Option {
	return tickship.WithPlugin(New(cfg))
}
