package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	SectionMutations *prometheus.CounterVec // op: add|remove, result: ok|<error kind>
	PathQueries      *prometheus.CounterVec // result: ok|<error kind>
	PathDuration     prometheus.Histogram

	GraphRebuilds prometheus.Counter
	GraphStations prometheus.Gauge
	GraphEdges    prometheus.Gauge

	HTTPRequests *prometheus.CounterVec // method, route, code
	HTTPDuration *prometheus.HistogramVec

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge
	PublishDuration prometheus.Histogram

	GraphCacheEnabled prometheus.Gauge
	RefreshInterval   prometheus.Gauge // seconds
}

func NewCollector(graphCache bool, refreshInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		SectionMutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subway_section_mutations_total",
			Help: "Section add/remove attempts by outcome.",
		}, []string{"op", "result"}),
		PathQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subway_path_queries_total",
			Help: "Shortest path queries by outcome.",
		}, []string{"result"}),
		PathDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "subway_path_query_duration_seconds",
			Help:    "Duration of shortest path queries including any graph rebuild.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		}),
		GraphRebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subway_graph_rebuilds_total",
			Help: "Number of network graph rebuilds.",
		}),
		GraphStations: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subway_graph_stations",
			Help: "Stations in the most recently built graph.",
		}),
		GraphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subway_graph_edges",
			Help: "Sections in the most recently built graph.",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subway_http_requests_total",
			Help: "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "code"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subway_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}, []string{"route"}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subway_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subway_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subway_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "subway_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		GraphCacheEnabled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subway_graph_cache_enabled",
			Help: "1 if the network graph is cached between queries.",
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "subway_graph_refresh_interval_seconds",
			Help: "Graph refresh interval in seconds, 0 when disabled.",
		}),
	}

	reg.MustRegister(
		c.SectionMutations, c.PathQueries, c.PathDuration,
		c.GraphRebuilds, c.GraphStations, c.GraphEdges,
		c.HTTPRequests, c.HTTPDuration,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected, c.PublishDuration,
		c.GraphCacheEnabled, c.RefreshInterval,
	)

	if graphCache {
		c.GraphCacheEnabled.Set(1)
	}
	c.RefreshInterval.Set(refreshInterval.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, log *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "err", err)
		}
	}()
	log.Info("metrics listening", "addr", addr)
	return srv
}

// PublisherMetrics adapts the collector to publisher.PublisherMetrics.
type PublisherMetrics struct{ C *Collector }

func (p PublisherMetrics) NATSPublishedInc()              { p.C.NATSPublished.Inc() }
func (p PublisherMetrics) NATSPublishErrInc()             { p.C.NATSPublishErrs.Inc() }
func (p PublisherMetrics) PublishObserve(d time.Duration) { p.C.PublishDuration.Observe(d.Seconds()) }
func (p PublisherMetrics) NATSSetConnected(b bool) {
	if b {
		p.C.NATSConnected.Set(1)
	} else {
		p.C.NATSConnected.Set(0)
	}
}
