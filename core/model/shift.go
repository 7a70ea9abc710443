package model

import (
	"fmt"
	"time"
)

// ShiftWindow describes a recurring daily activity period for a device.
// Start and end are wall-clock strings in 12-hour format with meridian
// ("07:30:00 AM"). Grace is an HH:MM:SS duration string; legacy
// configurations may carry a trailing meridian token which is ignored.
type ShiftWindow struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	GraceTime string `json:"grace_time"`
}

// ShiftAssignment binds one device to a shift window together with the
// command payloads and the resend cadence used when the device ignores a
// deactivation. Assignments are replaced wholesale on every scheduler
// refresh, never mutated in place.
type ShiftAssignment struct {
	DeviceID       string      `json:"device_id"`
	Shift          ShiftWindow `json:"shift"`
	ResendInterval string      `json:"resend_interval"`
	CommandOn      string      `json:"command_on"`
	CommandOff     string      `json:"command_off"`
}

// TimeOfDay is a wall-clock instant with no calendar date attached. All
// shift arithmetic is modulo 24 hours.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// Seconds returns the offset from midnight in seconds.
func (t TimeOfDay) Seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// Add shifts the time of day by d, wrapping around midnight.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	const day = 24 * 3600
	s := (t.Seconds() + int(d/time.Second)) % day
	if s < 0 {
		s += day
	}
	return TimeOfDay{Hour: s / 3600, Minute: s / 60 % 60, Second: s % 60}
}

// CronExpr renders the daily trigger expression for this instant using
// the six-field second-granularity form.
func (t TimeOfDay) CronExpr() string {
	return fmt.Sprintf("%d %d %d * * *", t.Second, t.Minute, t.Hour)
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// AdjustedWindow is the grace-adjusted shift window used to arm triggers.
// It lives for a single scheduling pass and is recomputed on every refresh.
type AdjustedWindow struct {
	Start TimeOfDay
	End   TimeOfDay

	// StartExpr and EndExpr are the trigger expressions for the window.
	// When a wall-clock string could not be parsed, the corresponding
	// expression degrades to firing every minute instead of failing.
	StartExpr string
	EndExpr   string
}
