package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PipelineMetrics records outcomes of the order-fulfillment pipeline.
type PipelineMetrics struct {
	processed   *prometheus.CounterVec
	compensated prometheus.Counter
	duplicates  prometheus.Counter
}

// NewPipelineMetrics registers the fulfillment pipeline metrics on the provided registerer.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	if reg == nil {
		return &PipelineMetrics{}
	}
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulfillment_orders_processed",
		Help: "Fulfillment pipeline executions by outcome.",
	}, []string{"outcome"})
	compensated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fulfillment_orders_compensated",
		Help: "Orders rolled back after a pipeline failure.",
	})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fulfillment_duplicate_deliveries",
		Help: "Booking messages skipped because the order already exists.",
	})
	reg.MustRegister(processed, compensated, duplicates)
	return &PipelineMetrics{
		processed:   processed,
		compensated: compensated,
		duplicates:  duplicates,
	}
}

// IncProcessed increments the processed counter for the given outcome.
func (p *PipelineMetrics) IncProcessed(outcome string) {
	if p == nil || p.processed == nil {
		return
	}
	p.processed.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncCompensated increments the compensation counter.
func (p *PipelineMetrics) IncCompensated() {
	if p == nil || p.compensated == nil {
		return
	}
	p.compensated.Inc()
}

// IncDuplicate increments the duplicate-delivery counter.
func (p *PipelineMetrics) IncDuplicate() {
	if p == nil || p.duplicates == nil {
		return
	}
	p.duplicates.Inc()
}
