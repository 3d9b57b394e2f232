package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Ledger holds the counters for payment ledger mutations.
// A nil *Ledger is valid and records nothing.
type Ledger struct {
	generated     prometheus.Counter
	conflicts     prometheus.Counter
	toggles       *prometheus.CounterVec
	reassignments prometheus.Counter
	deletions     prometheus.Counter
}

// NewLedger registers the ledger counters on reg
func NewLedger(reg prometheus.Registerer) *Ledger {
	factory := promauto.With(reg)
	return &Ledger{
		generated: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_payments_generated_total",
			Help: "Payments created by bulk generation.",
		}),
		conflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_generation_conflicts_total",
			Help: "Generation batches rejected because a payment already existed for the period.",
		}),
		toggles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_payment_toggles_total",
			Help: "Paid flag transitions, by resulting state.",
		}, []string{"to"}),
		reassignments: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_share_reassignments_total",
			Help: "Fee tier reassignments on unpaid payments.",
		}),
		deletions: factory.NewCounter(prometheus.CounterOpts{
			Name: "ledger_payments_deleted_total",
			Help: "Payments deleted.",
		}),
	}
}

func (m *Ledger) Generated(n int) {
	if m == nil {
		return
	}
	m.generated.Add(float64(n))
}

func (m *Ledger) Conflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

func (m *Ledger) Toggled(paid bool) {
	if m == nil {
		return
	}
	to := "unpaid"
	if paid {
		to = "paid"
	}
	m.toggles.WithLabelValues(to).Inc()
}

func (m *Ledger) Reassigned() {
	if m == nil {
		return
	}
	m.reassignments.Inc()
}

func (m *Ledger) Deleted() {
	if m == nil {
		return
	}
	m.deletions.Inc()
}

// Handler exposes the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
