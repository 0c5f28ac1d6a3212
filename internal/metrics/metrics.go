// Package metrics exposes the runtime's operational counters through
// github.com/prometheus/client_golang, the metrics library already present
// in this corpus (_examples/TheEntropyCollective-noisefs depends on it
// indirectly through its storage stack). They are read only through the
// registered Prometheus collectors (see ListenAndServe); Node.GetInfo does
// not include them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WorkersBusy is the number of workers currently executing a task.
	WorkersBusy = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "taskrt_workers_busy",
		Help: "Number of worker goroutines currently executing a task.",
	})

	// QueueDepth tracks per-queue counts of tasks parked in the queue's
	// pending FIFO (not yet dispatched), labeled by queue id.
	QueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "taskrt_queue_depth",
		Help: "Parked (not yet dispatched) task count per Queue object.",
	}, []string{"queue"})

	// StealTotal counts successful work-steals, labeled by stealing worker.
	StealTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskrt_steal_total",
		Help: "Total tasks picked up via work-stealing, by stealing worker index.",
	}, []string{"worker"})

	// HazardRetiredTotal counts objects handed to a hazard pointer's
	// Retire, labeled by whether release happened immediately or was
	// deferred.
	HazardRetiredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskrt_hazard_retired_total",
		Help: "Objects retired through the hazard-pointer module.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(WorkersBusy, QueueDepth, StealTotal, HazardRetiredTotal)
}

// ListenAndServe exposes the registered gauges/counters on addr at /metrics,
// for an embedding application that wants a scrape endpoint rather than
// reading GetInfo snapshots.
func ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
