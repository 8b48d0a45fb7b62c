// Package ports defines the interfaces (ports) that connect the application
// layer to infrastructure adapters.
//
// # Port Interfaces
//
//   - [EpisodeHandle]: Submits command batches to the simulation session
//   - [FrameSource]: Produces the control frame for a given tick
//
// The application layer (internal/app, internal/control, internal/planner)
// depends only on these interfaces. Infrastructure adapters
// (internal/adapters) implement them with concrete transports.
package ports
