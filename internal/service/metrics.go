package service

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts reconciliation outcomes and blobs left behind by deletes.
// A nil *Metrics records nothing.
type Metrics struct {
	reconciles *prometheus.CounterVec
	orphaned   prometheus.Counter
}

// NewMetrics registers the service collectors with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		reconciles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "document_reconciles_total",
				Help: "Total number of document reconciliations by outcome.",
			},
			[]string{"outcome"},
		),
		orphaned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "document_orphaned_blobs_total",
			Help: "Blobs whose release failed after their metadata row was deleted.",
		}),
	}
	for _, c := range []prometheus.Collector{m.reconciles, m.orphaned} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) reconciled(outcome string) {
	if m == nil {
		return
	}
	m.reconciles.WithLabelValues(outcome).Inc()
}

func (m *Metrics) orphan() {
	if m == nil {
		return
	}
	m.orphaned.Inc()
}
