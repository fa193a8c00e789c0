// Package continuum provides the durable execution and branching core
// underneath an AI-agent session: run snapshots that survive interruption,
// idempotent resume, and version-control-style conversation branches with
// coarse merge conflict detection.
//
// Continuum is designed as a library, not a service. Import it, configure a
// store, and drive it from your dispatch pipeline.
//
// # Quick Start
//
//	eng, err := engine.New(memory.New(), executor,
//	    engine.WithLogger(logger),
//	)
//
//	res, err := eng.StartRun(ctx, sessionID, continuum.Content{Text: "hello"})
//
// # Architecture
//
// Continuum follows a composable store pattern where each subsystem (run,
// checkpoint, branch, session) defines its own store interface. A single
// backend implements all of them. Backends: Memory and Bun/PostgreSQL.
//
// The engine package sits above the subsystem packages and orchestrates
// them: it is the resume orchestrator and the branch-scoped run starter.
// The actual agent turn is performed by an Executor collaborator injected
// into the engine; continuum never executes model or tool calls itself.
//
// # Durability Model
//
// Checkpoints are append-only and strictly ordered per run. The resume
// checkpoint is durably written before the executor is invoked, which gives
// at-least-once resume semantics: a crash mid-turn replays the same content
// instead of losing it.
package continuum
