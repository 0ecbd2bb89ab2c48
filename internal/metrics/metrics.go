package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the engine
type Metrics struct {
	// Delivery counters
	MessagesSentTotal    *prometheus.CounterVec
	MessagesFailedTotal  *prometheus.CounterVec
	MessagesSkippedTotal prometheus.Counter

	// Engagement counters
	OpensTotal        prometheus.Counter
	ClicksTotal       prometheus.Counter
	UnsubscribesTotal prometheus.Counter

	// Campaign counters
	CampaignsStartedTotal   prometheus.Counter
	CampaignsCompletedTotal *prometheus.CounterVec

	// Lead intake
	LeadsCreatedTotal  prometheus.Counter
	CaptchaFailedTotal prometheus.Counter

	// HTTP metrics
	HTTPRequestsTotal          *prometheus.CounterVec
	HTTPRequestDurationSeconds *prometheus.HistogramVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with all metrics registered
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		MessagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialbluepro_messages_sent_total",
				Help: "Total number of successfully delivered messages",
			},
			[]string{"channel"},
		),
		MessagesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialbluepro_messages_failed_total",
				Help: "Total number of failed deliveries",
			},
			[]string{"channel", "category"},
		),
		MessagesSkippedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "socialbluepro_messages_skipped_total",
				Help: "Total number of recipients skipped by the suppression list",
			},
		),

		OpensTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "socialbluepro_opens_total",
				Help: "Total number of recorded message opens",
			},
		),
		ClicksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "socialbluepro_clicks_total",
				Help: "Total number of recorded link clicks",
			},
		),
		UnsubscribesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "socialbluepro_unsubscribes_total",
				Help: "Total number of unsubscribe requests",
			},
		),

		CampaignsStartedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "socialbluepro_campaigns_started_total",
				Help: "Total number of campaign sends started",
			},
		),
		CampaignsCompletedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialbluepro_campaigns_completed_total",
				Help: "Total number of campaign sends completed",
			},
			[]string{"status"},
		),

		LeadsCreatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "socialbluepro_leads_created_total",
				Help: "Total number of leads accepted through the public form",
			},
		),
		CaptchaFailedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "socialbluepro_captcha_failed_total",
				Help: "Total number of form submissions rejected by captcha",
			},
		),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "socialbluepro_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDurationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "socialbluepro_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),

		registry: reg,
	}

	reg.MustRegister(
		m.MessagesSentTotal,
		m.MessagesFailedTotal,
		m.MessagesSkippedTotal,
		m.OpensTotal,
		m.ClicksTotal,
		m.UnsubscribesTotal,
		m.CampaignsStartedTotal,
		m.CampaignsCompletedTotal,
		m.LeadsCreatedTotal,
		m.CaptchaFailedTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDurationSeconds,
	)

	return m
}

// Registry returns the Prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the HTTP handler serving the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
