package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/studio/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "studio"

// Metrics holds the collectors fed by lifecycle hooks.
type Metrics struct {
	reg prometheus.Registerer

	applied     *prometheus.CounterVec
	dropped     prometheus.Counter
	journal     prometheus.Gauge
	activations *prometheus.CounterVec
	switches    *prometheus.CounterVec
	published   *prometheus.CounterVec
	delivered   *prometheus.CounterVec
	dispatch    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// It panics if a collector is already registered, like prometheus.MustRegister.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reg: reg,
		applied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_applied_total",
			Help:      "Transactions executed by the orchestrator, by whether they coalesced into the current journal node.",
		}, []string{"coalesced"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_dropped_total",
			Help:      "Transactions discarded because they had nothing to execute.",
		}),
		journal: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "journal_nodes",
			Help:      "Live nodes in the undo journal, root included.",
		}),
		activations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "activity_transitions_total",
			Help:      "Activity activations and deactivations.",
		}, []string{"activity", "transition"}),
		switches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "studio_switches_total",
			Help:      "Studio activations.",
		}, []string{"studio"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "csp",
			Name:      "events_published_total",
			Help:      "Events handed to the transport, by whether they were delayed.",
		}, []string{"topic", "delayed"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "csp",
			Name:      "deliveries_total",
			Help:      "Events dispatched to a process behavior.",
		}, []string{"process"}),
		dispatch: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "csp",
			Name:      "behavior_duration_seconds",
			Help:      "Time spent running process behaviors.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5},
		}, []string{"process"}),
	}
	reg.MustRegister(m.applied, m.dropped, m.journal, m.activations, m.switches, m.published, m.delivered, m.dispatch)
	return m
}

// WatchScheduled exports the engine's delay queue depth, sampled at scrape time.
func (m *Metrics) WatchScheduled(pending func() int) {
	m.reg.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "csp",
		Name:      "scheduled_events",
		Help:      "Delayed events waiting to be published.",
	}, func() float64 { return float64(pending()) }))
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransactionApplied: func(_ context.Context, e *domain.TransactionEvent) {
			m.applied.WithLabelValues(strconv.FormatBool(e.Coalesced)).Inc()
			m.journal.Set(float64(e.JournalNodes))
		},
		OnTransactionDropped: func(_ context.Context, _ *domain.TransactionEvent) {
			m.dropped.Inc()
		},
		OnActivityActivated: func(_ context.Context, e *domain.ActivationEvent) {
			m.activations.WithLabelValues(e.Name, "activated").Inc()
		},
		OnActivityDeactivated: func(_ context.Context, e *domain.ActivationEvent) {
			m.activations.WithLabelValues(e.Name, "deactivated").Inc()
		},
		OnStudioActivated: func(_ context.Context, e *domain.ActivationEvent) {
			m.switches.WithLabelValues(e.Name).Inc()
		},
		OnEventPublished: func(_ context.Context, e *domain.PublishEvent) {
			m.published.WithLabelValues(e.Topic, strconv.FormatBool(e.Delay > 0)).Inc()
		},
		OnProcessDelivered: func(_ context.Context, e *domain.ProcessEvent) {
			m.delivered.WithLabelValues(e.Process).Inc()
			m.dispatch.WithLabelValues(e.Process).Observe(e.Duration.Seconds())
		},
	}
}
