// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	ConversationsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_conversations_ingested_total",
			Help: "Conversations registered, by channel",
		},
		[]string{"channel"},
	)

	StateBuilds = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_state_builds_total",
			Help: "Conversation state builds, by intent and completeness status",
		},
		[]string{"intent", "completeness"},
	)

	LeadScores = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnel_lead_score",
			Help:    "Distribution of computed lead scores",
			Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
		[]string{"intent"},
	)

	LeadsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_leads_recorded_total",
			Help: "Qualifying leads appended, by band",
		},
		[]string{"band"},
	)

	HandoffTriggers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_handoff_triggers_total",
			Help: "Human takeover triggers, by reason",
		},
		[]string{"reason"},
	)

	LiveMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_live_messages_total",
			Help: "Live session messages handled, by detected intent",
		},
		[]string{"intent"},
	)

	QuotationTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_quotation_transitions_total",
			Help: "Quotation status changes, by new status",
		},
		[]string{"status"},
	)

	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_notifications_total",
			Help: "Hot lead notifications, by channel and outcome",
		},
		[]string{"channel", "status"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnel_store_query_duration_seconds",
			Help:    "Duration of conversation store operations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funnel_http_requests_total",
			Help: "HTTP requests, by route, method and status",
		},
		[]string{"route", "method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "funnel_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
)
