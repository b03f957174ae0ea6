package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PipelineRunsTotal counts pipeline invocations by result.
	PipelineRunsTotal *prometheus.CounterVec
	// StageFailuresTotal counts dropped stage contributions by stage.
	StageFailuresTotal *prometheus.CounterVec
	// ReentrancyRejectedTotal counts runs rejected by the re-entrancy guard.
	ReentrancyRejectedTotal prometheus.Counter
	// PipelineRunDuration records pipeline run latency in milliseconds.
	PipelineRunDuration *prometheus.HistogramVec
	// AdjustmentsInstalled counts adjustment records installed per run by kind.
	AdjustmentsInstalled *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Count of pricing pipeline invocations by result.",
		}, []string{"result"})
		StageFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Count of pricing stage contributions dropped after failure.",
		}, []string{"stage"})
		ReentrancyRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reentrancy_rejected_total",
			Help:      "Number of pipeline runs rejected by the re-entrancy guard.",
		})
		PipelineRunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_run_duration_ms",
			Help:      "Latency of pricing pipeline runs in milliseconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
		}, []string{"result"})
		AdjustmentsInstalled = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "adjustments_installed_total",
			Help:      "Count of adjustment records installed into ledgers by kind.",
		}, []string{"kind"})

		mustRegisterCollector(reg, PipelineRunsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PipelineRunsTotal = v
			}
		})
		mustRegisterCollector(reg, StageFailuresTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				StageFailuresTotal = v
			}
		})
		mustRegisterCollector(reg, ReentrancyRejectedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				ReentrancyRejectedTotal = v
			}
		})
		mustRegisterCollector(reg, PipelineRunDuration, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.HistogramVec); ok {
				PipelineRunDuration = v
			}
		})
		mustRegisterCollector(reg, AdjustmentsInstalled, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				AdjustmentsInstalled = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
