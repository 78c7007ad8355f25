package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ContractsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "contracts",
		Name:      "created_total",
		Help:      "Contracts created through the duplicate-engagement guard.",
	})

	ContractTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "contracts",
		Name:      "status_transitions_total",
		Help:      "Applied contract status transitions.",
	}, []string{"from", "to"})

	NegotiationsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "negotiations",
		Name:      "opened_total",
		Help:      "Negotiation threads opened.",
	})

	NegotiationsFinalized = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "negotiations",
		Name:      "finalized_total",
		Help:      "Negotiations finalized by action.",
	}, []string{"action"})
)
