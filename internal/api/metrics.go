package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/org/svnportal/pkg/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "svnportal_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "svnportal_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	rulesTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "svnportal_rules_total",
		Help: "Number of permission rules in the current snapshot.",
	})

	usersTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "svnportal_users_total",
		Help: "Number of active users in the current snapshot.",
	})

	groupsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "svnportal_groups_total",
		Help: "Number of groups in the current snapshot.",
	})

	repositoriesTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "svnportal_repositories_total",
		Help: "Number of non-archived repositories in the current snapshot.",
	})
)

func init() {
	prometheus.MustRegister(requestsTotal, requestDuration, rulesTotal, usersTotal, groupsTotal, repositoriesTotal)
}

// MetricsHandler returns the Prometheus metrics HTTP handler.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// metricsMiddleware records request metrics.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rr := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rr, r)

		dur := time.Since(start).Seconds()
		status := strconv.Itoa(rr.statusCode)
		requestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
		requestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(dur)
	})
}

// updateInventory refreshes the snapshot gauges after a mutation.
func updateInventory(snap *models.Snapshot) {
	rulesTotal.Set(float64(len(snap.Rules)))
	groupsTotal.Set(float64(len(snap.Groups)))
	active := 0
	for _, u := range snap.Users {
		if u.Active {
			active++
		}
	}
	usersTotal.Set(float64(active))
	live := 0
	for _, r := range snap.Repositories {
		if !r.Archived {
			live++
		}
	}
	repositoriesTotal.Set(float64(live))
}
