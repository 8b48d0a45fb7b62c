// Package domain contains the core domain entities and value objects for tickship.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (transport, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [Frame]: One tick's snapshot of per-actor control values
//   - [Command]: A request to apply control values to one actor
//   - [Batch]: The ordered commands built from one Frame and submitted together
//   - [CommandResult]: The per-command outcome reported by the simulation
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
