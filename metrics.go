package subsetsum

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Search counters. Registered on the default registry; the CLI exposes them
// when asked to serve metrics.
var (
	solutionsFound = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subsetsum",
		Name:      "solutions_found_total",
		Help:      "Zero-sum subsets emitted to the solution sink.",
	})

	nodesSearched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subsetsum",
		Name:      "nodes_searched_total",
		Help:      "Work packets fully enumerated by workers.",
	})

	packetsProduced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "subsetsum",
		Name:      "packets_produced_total",
		Help:      "Work packets pushed into the ring by the producer.",
	})
)
