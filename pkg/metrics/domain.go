package metrics

import "github.com/prometheus/client_golang/prometheus"

// Payment-domain counters incremented by the services.
var (
	InvoicesGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Subsystem: "payment",
		Name:      "invoices_generated_total",
		Help:      "Invoices created by the invoice generator.",
	})

	WebhookNotifications = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "payment",
		Name:      "webhook_notifications_total",
		Help:      "Inbound payment notifications, partitioned by processing result.",
	}, []string{"result"})

	ArtifactCopies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "payment",
		Name:      "artifact_copies_total",
		Help:      "Post-payment design file copies, partitioned by result.",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(InvoicesGenerated, WebhookNotifications, ArtifactCopies)
}
