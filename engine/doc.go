// Package engine is the orchestration core of continuum: it starts runs on
// sessions, checkpoints every dispatch around the executor, resumes
// interrupted runs from their latest checkpoint, drains messages queued
// while a session was busy, and exposes the session branching surface.
//
// The engine owns durability, not conversation. An Executor implementation
// carries a message through the agent loop; the engine guarantees that the
// work around that call survives a process crash:
//
//	result, err := eng.StartRun(ctx, sessionID, continuum.Content{Text: "hello"})
//	// ... process dies mid-dispatch ...
//	status, err := eng.ResumeRunFromCheckpoint(ctx, sessionID, runID)
//
// Resume is at-least-once: a resume checkpoint is written before the
// executor is invoked, so the worst case after a crash is a repeated
// dispatch of the same content, never a lost one.
package engine
