package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "deliveries_total",
		Help: "Deliveries committed, by kind and resulting status.",
	}, []string{"kind", "status"})

	RequestTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "request_transitions_total",
		Help: "Request state transitions, by target state.",
	}, []string{"state"})

	StockMovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Stock ledger entries written, by operation.",
	}, []string{"op"})

	StockShortagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stock_shortages_total",
		Help: "Deliveries rejected because stock was insufficient.",
	})
)
