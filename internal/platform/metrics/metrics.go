package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the client-side Prometheus collectors.
type Metrics struct {
	Requests           *prometheus.CounterVec
	RequestDuration    *prometheus.HistogramVec
	Heartbeats         *prometheus.CounterVec
	SessionTransitions *prometheus.CounterVec
	SessionActive      prometheus.Gauge
	ReportSubmissions  *prometheus.CounterVec
	DashboardRefreshes *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeshift_client_requests_total",
			Help: "Outbound API requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "safeshift_client_request_duration_seconds",
			Help:    "Latency of outbound API requests",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		Heartbeats: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeshift_client_heartbeats_total",
			Help: "Activity heartbeats sent, by result",
		}, []string{"result"}),
		SessionTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeshift_client_session_transitions_total",
			Help: "Session lifecycle transitions (established, cleared, expired)",
		}, []string{"transition"}),
		SessionActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "safeshift_client_session_active",
			Help: "1 while an authenticated session is held",
		}),
		ReportSubmissions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeshift_client_report_submissions_total",
			Help: "Report submissions by result (success, failure, rejected)",
		}, []string{"result"}),
		DashboardRefreshes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "safeshift_client_dashboard_refreshes_total",
			Help: "Dashboard metric refreshes by result",
		}, []string{"result"}),
	}
}

func (m *Metrics) ObserveRequest(method, route string, code int, d time.Duration) {
	m.Requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(d.Seconds())
}

func (m *Metrics) IncHeartbeat(ok bool) {
	m.Heartbeats.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) IncSessionTransition(transition string) {
	m.SessionTransitions.WithLabelValues(transition).Inc()
}

func (m *Metrics) SetSessionActive(active bool) {
	if active {
		m.SessionActive.Set(1)
		return
	}
	m.SessionActive.Set(0)
}

func (m *Metrics) IncReportSubmission(outcome string) {
	m.ReportSubmissions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncDashboardRefresh(ok bool) {
	m.DashboardRefreshes.WithLabelValues(result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
