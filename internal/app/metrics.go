package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pageRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadview_page_renders_total",
		Help: "Page renders by page and outcome.",
	}, []string{"page", "outcome"})

	hiddenMessages = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "threadview_hidden_messages",
		Help:    "Private messages collapsed into placeholders per message page.",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	renderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threadview_render_duration_seconds",
		Help:    "Time spent assembling a page payload.",
		Buckets: prometheus.DefBuckets,
	}, []string{"page"})

	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadview_http_requests_total",
		Help: "HTTP requests by route template and status.",
	}, []string{"method", "route", "status"})
)
