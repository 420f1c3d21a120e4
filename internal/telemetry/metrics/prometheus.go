package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// SetupPrometheus creates the registry served on /metrics. Runtime and process
// collectors are labeled with the service name, so the backend is told apart
// from other go processes scraped into the same prometheus.
func SetupPrometheus(service string) *prometheus.Registry {
	promRegistry := prometheus.NewRegistry()

	labeled := prometheus.WrapRegistererWith(prometheus.Labels{"service": service}, promRegistry)
	labeled.MustRegister(
		collectors.NewBuildInfoCollector(),
		// gc and memory are enough here, the scheduler histograms are noisy
		collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(collectors.MetricsGC, collectors.MetricsMemory),
		),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return promRegistry
}

// RegisterCacheHitRate exposes the local document cache hit rate. It is
// sampled on every scrape.
func RegisterCacheHitRate(reg prometheus.Registerer, namespace, subsystem string, hitRate func() float64) error {
	return reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "document_cache_hit_rate",
		Help:      "Hit rate of the in-process document cache in front of the store",
	}, hitRate))
}
