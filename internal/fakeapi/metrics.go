package fakeapi

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the development server's collectors.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ReportsCreated  *prometheus.CounterVec
	Logins          *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeshift_fakeapi_requests_total",
			Help: "Requests served by route pattern and status code",
		}, []string{"method", "route", "code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safeshift_fakeapi_request_duration_seconds",
			Help:    "Latency of served requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		ReportsCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeshift_fakeapi_reports_created_total",
			Help: "Reports created, by whether screening flagged them",
		}, []string{"flagged"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeshift_fakeapi_logins_total",
			Help: "Login attempts by result",
		}, []string{"result"}),
	}
}

// ObserveHTTP implements middleware.RequestObserver.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	m.Requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) IncReportCreated(flagged bool) {
	m.ReportsCreated.WithLabelValues(strconv.FormatBool(flagged)).Inc()
}

func (m *Metrics) IncLogin(ok bool) {
	if ok {
		m.Logins.WithLabelValues("success").Inc()
		return
	}
	m.Logins.WithLabelValues("failure").Inc()
}
