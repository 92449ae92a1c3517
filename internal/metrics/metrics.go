package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_messages_sent_total",
		Help: "Messages successfully appended.",
	})
	ReceiptsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_receipts_written_total",
		Help: "Delivered/read receipt entries written.",
	}, []string{"kind"})
	NotificationsPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chat_notifications_persisted_total",
		Help: "Notification records persisted for absent recipients.",
	})
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chat_ws_connections",
		Help: "Live websocket connections.",
	})
)

// Handler returns the Prometheus scrape handler; served on its own
// listener so scrapes bypass the fiber stack.
func Handler() http.Handler {
	return promhttp.Handler()
}
