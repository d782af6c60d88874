/*
Package observability exports orchestrator and engine activity as Prometheus metrics.

Metrics attach through domain.LifecycleHooks, so neither the orchestrator nor the
engine depends on Prometheus:

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
	orch := orchestrator.New(orchestrator.WithLifecycleHooks(metrics.Hooks()))
	engine := csp.NewEngine(transport, csp.WithLifecycleHooks(metrics.Hooks()))
	metrics.WatchScheduled(engine.Pending)
*/
package observability
