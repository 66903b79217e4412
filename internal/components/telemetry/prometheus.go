package telemetry

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusAPI wraps another API and additionally exports every report as
// prometheus metrics. Broken and warning reports are counted per id, counts are
// exported as gauges per id.
type PrometheusAPI struct {
	inner    API
	registry *prometheus.Registry

	broken   *prometheus.CounterVec
	warnings *prometheus.CounterVec
	counts   *prometheus.GaugeVec
}

func NewPrometheusAPI(inner API) *PrometheusAPI {
	registry := prometheus.NewRegistry()

	p := &PrometheusAPI{
		inner:    inner,
		registry: registry,
		broken: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "crmlookup",
				Name:      "broken_total",
				Help:      "Number of broken component reports.",
			},
			[]string{"id"},
		),
		warnings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "crmlookup",
				Name:      "warnings_total",
				Help:      "Number of warning reports.",
			},
			[]string{"id"},
		),
		counts: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "crmlookup",
				Name:      "count",
				Help:      "Latest reported count per id.",
			},
			[]string{"id"},
		),
	}
	registry.MustRegister(p.broken, p.warnings, p.counts)

	return p
}

func (p *PrometheusAPI) ReportBroken(id string, params ...any) {
	p.broken.WithLabelValues(id).Inc()
	p.inner.ReportBroken(id, params...)
}

func (p *PrometheusAPI) ReportWarning(id string, params ...any) {
	p.warnings.WithLabelValues(id).Inc()
	p.inner.ReportWarning(id, params...)
}

func (p *PrometheusAPI) ReportDebug(msg string, params ...any) {
	p.inner.ReportDebug(msg, params...)
}

func (p *PrometheusAPI) ReportCount(id string, count int64) {
	p.counts.WithLabelValues(id).Set(float64(count))
	p.inner.ReportCount(id, count)
}

// Registry exposes the underlying registry, mostly for tests.
func (p *PrometheusAPI) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusAPI) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr in the background, the returned function
// shuts the server down.
func (p *PrometheusAPI) Serve(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", p.Handler())
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.inner.ReportBroken("metrics.serve", err, addr)
		}
	}()

	return func() {
		server.Close()
	}
}
