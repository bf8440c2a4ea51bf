package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	botUpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Inbound Telegram updates by kind (command/callback/message).",
		},
		[]string{"kind"},
	)

	directoryUpserts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "directory_upserts_total",
			Help: "Directory upserts split by outcome (created/updated).",
		},
		[]string{"outcome"},
	)

	interactionsAppended = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interactions_appended_total",
			Help: "Interaction records appended to the log.",
		},
	)

	interactionsPurged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "interactions_purged_total",
			Help: "Interaction records deleted by the retention job.",
		},
	)

	broadcastSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_sends_total",
			Help: "Per-recipient broadcast delivery attempts by result.",
		},
		[]string{"result"},
	)

	broadcastJobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_jobs_total",
			Help: "Broadcast job executions by outcome (completed/rejected/reconciled).",
		},
		[]string{"outcome"},
	)

	broadcastDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_duration_seconds",
			Help:    "Wall time of a whole broadcast execution.",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
	)

	welcomeEmails = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "welcome_emails_total",
			Help: "Welcome email jobs by result.",
		},
		[]string{"result"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			botUpdatesTotal, directoryUpserts,
			interactionsAppended, interactionsPurged,
			broadcastSends, broadcastJobs, broadcastDuration,
			welcomeEmails,
		)
	})
}

func IncBotUpdate(kind string)     { botUpdatesTotal.WithLabelValues(kind).Inc() }
func IncInteractionAppended()      { interactionsAppended.Inc() }
func AddInteractionsPurged(n int64) {
	interactionsPurged.Add(float64(n))
}

func IncDirectoryUpsert(created bool) {
	outcome := "updated"
	if created {
		outcome = "created"
	}
	directoryUpserts.WithLabelValues(outcome).Inc()
}

func IncBroadcastSend(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	broadcastSends.WithLabelValues(result).Inc()
}

func IncBroadcastJob(outcome string)        { broadcastJobs.WithLabelValues(outcome).Inc() }
func ObserveBroadcastDuration(sec float64)  { broadcastDuration.Observe(sec) }
func IncWelcomeEmail(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	welcomeEmails.WithLabelValues(result).Inc()
}
