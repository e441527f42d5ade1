// Package observe provides reactivity.Observer implementations that export
// engine activity to Prometheus and OpenTelemetry.
//
// Both observers are attached when the engine is created:
//
//	metrics := observe.NewMetrics(observe.WithRegistry(reg))
//	tracer := observe.NewTracer()
//	e := reactivity.New(reactivity.WithObserver(
//	    reactivity.Observers(metrics, tracer),
//	))
//
// # Metrics
//
//   - reactivity_tracks_total: new subscriptions recorded by effects
//   - reactivity_triggers_total{kind}: writes that invalidated at least one effect
//   - reactivity_effect_runs_total: effect runs
//   - reactivity_effect_panics_total: effect runs that panicked
//   - reactivity_effect_duration_seconds: effect run duration
//   - reactivity_diagnostics_total{code}: diagnostics such as refused
//     readonly mutations
//
// # Tracing
//
// The tracer opens one span named "reactivity.effect" per effect run. Nested
// runs become child spans, trigger events are recorded on the span of the
// effect that performed the write, and panicking runs end with an error
// status.
package observe
