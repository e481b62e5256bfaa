package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EventsSequenced = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "alert_engine",
			Subsystem: "sequencer",
			Name:      "events_total",
			Help:      "Events appended to the log",
		},
	)

	NotificationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "alert_engine",
			Subsystem: "notifications",
			Name:      "created_total",
			Help:      "Notifications recorded by the dedup store",
		},
	)

	NotificationsThrottled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "alert_engine",
			Subsystem: "notifications",
			Name:      "throttled_total",
			Help:      "Matches dropped by the per-subscriber hourly rate limit",
		},
	)

	ChannelDeliveries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "alert_engine",
			Subsystem: "dispatch",
			Name:      "deliveries_total",
			Help:      "Channel delivery attempts by outcome",
		},
		[]string{"channel", "status"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EventsSequenced, NotificationsCreated, NotificationsThrottled, ChannelDeliveries)
	})
}
