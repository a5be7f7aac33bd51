package membership

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "membership_lookups_total",
	Help: "Membership lookups served by the cache, by status and cache outcome.",
}, []string{"status", "cache"})
