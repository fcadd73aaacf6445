// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the trading engine.
type Metrics struct {
	// Quote gateway
	QuoteCacheHits       prometheus.Counter
	QuoteCacheMisses     prometheus.Counter
	QuoteStaleServed     prometheus.Counter
	QuoteProviderErrors  prometheus.Counter
	QuoteProviderLatency prometheus.Histogram

	// Trades, labelled by side and outcome (executed, rejected, failed)
	TradesTotal *prometheus.CounterVec

	// Valuation
	ValuationDuration prometheus.Histogram
	DegradedHoldings  prometheus.Counter

	// Background refresher, labelled by result (ok, error)
	QuoteRefreshRuns *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// Use prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QuoteCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_quote_cache_hits_total",
			Help: "Quote requests served from a fresh cache entry",
		}),
		QuoteCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_quote_cache_misses_total",
			Help: "Quote requests that required a provider call",
		}),
		QuoteStaleServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_quote_stale_served_total",
			Help: "Stale cache entries returned after a provider failure",
		}),
		QuoteProviderErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_quote_provider_errors_total",
			Help: "Provider fetches that failed after retries",
		}),
		QuoteProviderLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "papertrade_quote_provider_duration_seconds",
			Help:    "Market-data provider fetch latency, including retries",
			Buckets: prometheus.DefBuckets,
		}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrade_trades_total",
			Help: "Trade requests by side and outcome",
		}, []string{"side", "outcome"}),
		ValuationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "papertrade_valuation_duration_seconds",
			Help:    "Time to price a set of holdings, including quote fan-out",
			Buckets: prometheus.DefBuckets,
		}),
		DegradedHoldings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "papertrade_valuation_degraded_holdings_total",
			Help: "Holdings valued at cost because no quote was available",
		}),
		QuoteRefreshRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "papertrade_quote_refresh_runs_total",
			Help: "Scheduled quote refreshes by result",
		}, []string{"result"}),
	}

	reg.MustRegister(
		m.QuoteCacheHits,
		m.QuoteCacheMisses,
		m.QuoteStaleServed,
		m.QuoteProviderErrors,
		m.QuoteProviderLatency,
		m.TradesTotal,
		m.ValuationDuration,
		m.DegradedHoldings,
		m.QuoteRefreshRuns,
	)

	return m
}

// NewRegistry returns a registry pre-loaded with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the metrics gathered by g in the Prometheus exposition format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
