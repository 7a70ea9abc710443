package model

// EventKind is the semantic classification of an inbound telemetry
// message, derived purely from its channel name.
type EventKind string

const (
	KindDeviceConnected  EventKind = "device-connected"
	KindIgnitionStatus   EventKind = "ignition-status"
	KindLiveLocation     EventKind = "live-location"
	KindDigitalInput     EventKind = "digital-input"
	KindNewEvent         EventKind = "new-event"
	KindAlarm            EventKind = "alarm"
	KindBehaviorReport   EventKind = "behavior-report"
	KindCustomCalcResult EventKind = "custom-calc-result"
	KindCronStatus       EventKind = "cron-status"
	KindUnmatched        EventKind = "unmatched"
)

// TelemetryEvent is a classified inbound message. It exists only on the
// internal bus between classification and relay to the dashboards.
type TelemetryEvent struct {
	Kind     EventKind      `json:"kind"`
	DeviceID string         `json:"device_id,omitempty"`
	Topic    string         `json:"topic"`
	Payload  map[string]any `json:"payload"`
}
