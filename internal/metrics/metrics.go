package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	PollCycles = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "poll_cycles_total", Help: "Completed poll cycles"},
	)
	FetchFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "metric_fetch_failures_total", Help: "Upstream metric fetches that degraded to no data"},
		[]string{"symbol", "metric"},
	)
	SignalsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_published_total", Help: "Signals delivered to the relay"},
		[]string{"symbol", "side"},
	)
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "webhook_events_total", Help: "Webhook events by terminal status"},
		[]string{"status"},
	)
	StoreWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "store_writes_total", Help: "Record store writes"},
		[]string{"collection", "outcome"},
	)
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notifications_total", Help: "Chat notifications attempted"},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(PollCycles, FetchFailures, SignalsPublished, WebhookEvents, StoreWrites, Notifications)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
