package httpx

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	histogramBuckets = []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
)

func (r *Router) initMetrics() {
	r.metricsOnce.Do(func() {
		r.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Count of processed HTTP requests",
		}, []string{"method", "route", "status"})

		r.requestLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "arena",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Latency distribution of HTTP handlers",
			Buckets:   histogramBuckets,
		}, []string{"method", "route", "status"})

		r.rateLimitHits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "http",
			Name:      "rate_limit_hits_total",
			Help:      "Number of rate-limited requests and session frames",
		}, []string{"route", "key"})

		r.frameTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arena",
			Subsystem: "session",
			Name:      "frames_total",
			Help:      "Session frames by route and outcome",
		}, []string{"route", "outcome"})

		r.sessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "arena",
			Subsystem: "session",
			Name:      "active",
			Help:      "Open player sessions on this server",
		})

		collectors := []prometheus.Collector{r.requestTotal, r.requestLatency, r.rateLimitHits, r.frameTotal, r.sessionsActive}
		for _, collector := range collectors {
			if err := r.registerer.Register(collector); err != nil {
				if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
					switch v := are.ExistingCollector.(type) {
					case *prometheus.CounterVec:
						switch collector {
						case r.requestTotal:
							r.requestTotal = v
						case r.rateLimitHits:
							r.rateLimitHits = v
						case r.frameTotal:
							r.frameTotal = v
						}
					case *prometheus.HistogramVec:
						r.requestLatency = v
					case prometheus.Gauge:
						r.sessionsActive = v
					}
				}
			}
		}
		r.metricsInitialized = true
	})
}

func (r *Router) recordRequestMetrics(method, route string, status int, duration time.Duration) {
	if !r.metricsInitialized {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	r.requestTotal.With(labels).Inc()
	r.requestLatency.With(labels).Observe(duration.Seconds())
}

func (r *Router) recordRateLimitHit(route, key string) {
	if !r.metricsInitialized {
		return
	}
	r.rateLimitHits.With(prometheus.Labels{"route": route, "key": key}).Inc()
}

func (r *Router) recordFrame(route, outcome string) {
	if !r.metricsInitialized {
		return
	}
	r.frameTotal.With(prometheus.Labels{"route": route, "outcome": outcome}).Inc()
}

func (r *Router) sessionOpened(delta float64) {
	if !r.metricsInitialized {
		return
	}
	r.sessionsActive.Add(delta)
}
