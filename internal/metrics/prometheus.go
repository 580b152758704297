package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "dca_engine"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry           *prometheus.Registry
	customersProcessed prometheus.Counter
	customersSkipped   prometheus.Counter
	intentsCreated     prometheus.Counter
	intentsDuplicate   prometheus.Counter
	carryDeferrals     prometheus.Counter
	feesSettled        prometheus.Counter
	feesArrears        prometheus.Counter
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	customersProcessed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "customers_processed_total",
		Help:      "Total number of customers processed in daily batches.",
	})
	customersSkipped := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "customers_skipped_total",
		Help:      "Total number of customers skipped due to per-customer failures.",
	})
	intentsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "intents_created_total",
		Help:      "Total number of order intents recorded.",
	})
	intentsDuplicate := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "intents_duplicate_total",
		Help:      "Total number of order intents rejected as duplicates.",
	})
	carryDeferrals := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "carry_deferrals_total",
		Help:      "Total number of buys deferred into the carry bucket.",
	})
	feesSettled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "fees_settled_total",
		Help:      "Total number of monthly fee records settled in full.",
	})
	feesArrears := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "fees_arrears_total",
		Help:      "Total number of monthly fee records left in arrears.",
	})

	registry.MustRegister(customersProcessed, customersSkipped, intentsCreated, intentsDuplicate, carryDeferrals, feesSettled, feesArrears)

	m := &Metrics{
		CustomersProcessed: promCounter{customersProcessed},
		CustomersSkipped:   promCounter{customersSkipped},
		IntentsCreated:     promCounter{intentsCreated},
		IntentsDuplicate:   promCounter{intentsDuplicate},
		CarryDeferrals:     promCounter{carryDeferrals},
		FeesSettled:        promCounter{feesSettled},
		FeesArrears:        promCounter{feesArrears},
	}

	return &Prometheus{
		Metrics:            m,
		registry:           registry,
		customersProcessed: customersProcessed,
		customersSkipped:   customersSkipped,
		intentsCreated:     intentsCreated,
		intentsDuplicate:   intentsDuplicate,
		carryDeferrals:     carryDeferrals,
		feesSettled:        feesSettled,
		feesArrears:        feesArrears,
	}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
