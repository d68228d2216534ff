package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// MessageThroughput counts persisted chat messages by room kind and ingress.
	MessageThroughput = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeguard_message_throughput_total",
		Help: "Total number of chat messages persisted",
	}, []string{"room_kind", "source"})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeguard_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// ActiveWebSocketConnections is the number of sockets held by the registry.
	ActiveWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "safeguard_websocket_active_connections",
		Help: "Currently registered WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeguard_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})

	// AttachmentsPurged counts attachments removed by the retention sweep.
	AttachmentsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "safeguard_attachments_purged_total",
		Help: "Chat attachments deleted by the retention sweep",
	})

	// AIRequests counts generative-AI calls by operation and outcome.
	AIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeguard_ai_requests_total",
		Help: "Generative AI requests by operation and outcome",
	}, []string{"operation", "outcome"})

	// CapabilityRevocations counts rows affected by revocation cascades.
	CapabilityRevocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "safeguard_capability_revocations_total",
		Help: "Users losing a capability, split into the direct target and cascaded company users",
	}, []string{"capability", "scope"})
)
