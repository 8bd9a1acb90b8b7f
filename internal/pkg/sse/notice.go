package sse

import "github.com/cmlabs-hris/attendance-engine/internal/domain/anomaly"

// EventScanCompleted is the event name of a finished anomaly scan.
const EventScanCompleted = "scan_completed"

// PublishScanNotice implements anomaly.NoticePublisher on the attendance
// health topic. A nil hub drops the notice.
func (h *Hub) PublishScanNotice(notice anomaly.ScanNotice) {
	if h == nil {
		return
	}
	h.Publish(TopicAttendanceHealth, Event{Event: EventScanCompleted, Data: notice})
}
