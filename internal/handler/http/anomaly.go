package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/anomaly"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/response"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/sse"
)

const streamKeepalive = 30 * time.Second

type AnomalyHandler interface {
	Health(w http.ResponseWriter, r *http.Request)
	Scan(w http.ResponseWriter, r *http.Request)
	Stream(w http.ResponseWriter, r *http.Request)
}

type scanResponse struct {
	EventsScanned int                 `json:"events_scanned"`
	Anomalies     []anomaly.Anomaly   `json:"anomalies"`
	Corrections   []punch.EventRecord `json:"corrections"`
	Failures      int                 `json:"failures"`
	WindowStart   time.Time           `json:"window_start"`
	WindowEnd     time.Time           `json:"window_end"`
}

type anomalyHandlerImpl struct {
	anomalyService anomaly.Service
	hub            *sse.Hub
}

func NewAnomalyHandler(anomalyService anomaly.Service, hub *sse.Hub) AnomalyHandler {
	return &anomalyHandlerImpl{
		anomalyService: anomalyService,
		hub:            hub,
	}
}

// Health handles GET /attendance/health
func (h *anomalyHandlerImpl) Health(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.anomalyService.ComputeHealthSnapshot(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Success(w, snapshot)
}

// Scan handles POST /attendance/admin/anomalies/scan
func (h *anomalyHandlerImpl) Scan(w http.ResponseWriter, r *http.Request) {
	result, err := h.anomalyService.Scan(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}

	corrections := make([]punch.EventRecord, 0, len(result.Corrections))
	for _, c := range result.Corrections {
		corrections = append(corrections, punch.FromEvent(c))
	}

	anomalies := result.Anomalies
	if anomalies == nil {
		anomalies = []anomaly.Anomaly{}
	}

	response.Success(w, scanResponse{
		EventsScanned: len(result.Events),
		Anomalies:     anomalies,
		Corrections:   corrections,
		Failures:      result.Failures,
		WindowStart:   result.WindowStart,
		WindowEnd:     result.WindowEnd,
	})
}

// Stream handles GET /attendance/health/stream, pushing background scan
// results as server-sent events.
func (h *anomalyHandlerImpl) Stream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		response.NotFound(w, "Health stream is disabled")
		return
	}

	// Check if streaming is supported
	flusher, ok := w.(http.Flusher)
	if !ok {
		response.InternalServerError(w, "Streaming not supported")
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	events, cleanup := h.hub.Subscribe(sse.TopicAttendanceHealth)
	defer cleanup()

	fmt.Fprintf(w, "event: connected\ndata: {\"topic\":%q}\n\n", sse.TopicAttendanceHealth)
	flusher.Flush()

	keepalive := time.NewTicker(streamKeepalive)
	defer keepalive.Stop()

	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(event.Data)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data)
			flusher.Flush()

		case <-keepalive.C:
			fmt.Fprintf(w, "event: ping\ndata: {\"timestamp\":%d}\n\n", time.Now().Unix())
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
