package base

import (
	"github.com/VictoriaMetrics/metrics"
)

// Transport metrics, exposed with metrics.WritePrometheus
var (
	clientFramesSent     = metrics.NewCounter(`dsock_frames_sent_total{role="client"}`)
	clientFramesReceived = metrics.NewCounter(`dsock_frames_received_total{role="client"}`)
	serverFramesSent     = metrics.NewCounter(`dsock_frames_sent_total{role="server"}`)
	serverFramesReceived = metrics.NewCounter(`dsock_frames_received_total{role="server"}`)

	protocolErrors   = metrics.NewCounter(`dsock_protocol_errors_total`)
	reconnects       = metrics.NewCounter(`dsock_reconnects_total`)
	queueRejected    = metrics.NewCounter(`dsock_send_queue_rejected_total`)
	requestTimeouts  = metrics.NewCounter(`dsock_request_timeouts_total`)
	requestsResolved = metrics.NewCounter(`dsock_requests_resolved_total`)

	pendingRequests   = metrics.NewCounter(`dsock_pending_requests`)
	serverConnections = metrics.NewCounter(`dsock_server_connections`)

	requestDuration = metrics.NewHistogram(`dsock_request_duration_seconds`)
)
