package cart

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// NewMetricsObserver counts cart mutations by operation.
func NewMetricsObserver(reg prometheus.Registerer) Observer {
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_cart_mutations_total",
		Help: "Cart mutations by operation",
	}, []string{"op"})
	reg.MustRegister(mutations)

	return func(_ context.Context, _ string, ch Change) {
		mutations.WithLabelValues(ch.Op).Inc()
	}
}
