// Package tickship provides an embeddable real-time actuation pipeline.
//
// Once per simulation tick a publisher stage produces a control frame (one
// entry per vehicle) and hands it to the batch control stage through a
// single-slot messenger. The batch control stage turns the frame into one
// batch of apply-control commands and submits it to the simulation episode
// in a single call. A consumer that falls behind skips to the newest frame;
// stale frames are never replayed.
//
// # Basic Usage
//
//	cfg := tickship.Config{
//	    Transport:   tickship.TransportMsgpack,
//	    EpisodeAddr: "127.0.0.1:2000",
//	    TickRate:    20,
//	    Actors:      8,
//	}
//
//	ts, err := tickship.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := ts.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
//	// ... run until shutdown signal or <-ts.Wait() ...
//
//	if err := ts.Stop(); err != nil {
//	    log.Printf("shutdown error: %v", err)
//	}
//
// # Episodes and Frames
//
// By default frames come from a synthetic fleet generator, or from a YAML
// script when Config.ScriptPath is set. Supply your own with
// [WithFrameSource]. Batches go to the transport named in Config.Transport
// unless an [EpisodeHandle] is injected with [WithEpisode].
//
// # Event Handling
//
// Implement [EventHandler] (embed [BaseEventHandler] for defaults) and pass
// it with [WithEventHandler]. Batch events are delivered synchronously from
// the control loop and must return quickly.
//
// # Plugins
//
// Plugins registered with [WithPlugin] are initialized on Start in
// registration order and shut down on Stop in reverse order. A plugin that
// also implements [EventHandler] receives every event:
//
//	import "github.com/bft-labs/tickship/plugins/batchlog"
//
//	ts, err := tickship.New(cfg, batchlog.WithBatchLog(batchlog.Config{Path: "batches.db"}))
//
// # Lifecycle States
//
// An instance is in one of [StateStopped], [StateStarting], [StateRunning],
// [StateStopping] or [StateCrashed]. A run whose frame source is exhausted
// moves from Running to Stopped on its own.
package tickship
