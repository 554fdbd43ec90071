// Package trace records what tracetree itself is doing.
//
// It is a small span tracer used to time the stages of a run (reading the
// trace, rebuilding the call tree, each renderer) and to leave a breadcrumb
// trail when a very large input appears to hang.
//
// # Usage
//
//	tracetree render --input t.tsv --trace=- --trace-level=stage
//
// # Tracers
//
//   - Nop: zero-overhead tracer when disabled
//   - StreamTracer: immediate write to a file or stderr
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelStage: command and stage boundaries
//   - LevelDetail: everything, including per-output events
//
// # Context propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.Start(ctx, trace.ScopeStage, "build")
//	defer span.End("")
//
// Spans opened with Start under ctx become children of span.
package trace
