// Package trace provides the structured event log of linecheck.
//
// Every command can record what it does: suite orchestration, one
// verification run per fixture, the parse/compile/match phases of a run
// and, at high verbosity, each directive outcome.
//
// # Usage
//
//	linecheck check --trace=- --trace-level=phase test.chk out.txt
//	linecheck suite --trace=run.ndjson --trace-level=detail
//
// # Tracers
//
//   - Nop: no-op tracer when disabled
//   - StreamTracer: immediate write to output (file/stderr)
//   - RingTracer: circular buffer, dumped when a run fails
//   - MultiTracer: combines multiple tracers
//
// # Levels
//
//   - LevelOff: no tracing
//   - LevelError: driver and run boundaries only
//   - LevelPhase: plus parse/compile/match phases
//   - LevelDetail, LevelDebug: plus every directive
//
// # Context Propagation
//
//	ctx = trace.WithTracer(ctx, tracer)
//	t := trace.FromContext(ctx)
//
//	span := trace.Begin(t, trace.ScopePhase, "parse", trace.CurrentSpan(ctx))
//	defer span.End("")
package trace
