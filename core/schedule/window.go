package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/fleetops/shiftd/core/model"
)

// EveryMinuteExpr is the degraded-mode trigger used when a shift time
// string cannot be parsed. The trigger then fires once a minute instead
// of never, so a misconfigured assignment stays visible in the logs.
const EveryMinuteExpr = "0 * * * * *"

var clockLayouts = []string{"03:04:05 PM", "3:04:05 PM", "03:04 PM", "3:04 PM"}

// ParseTimeOfDay parses a 12-hour wall-clock string with meridian.
func ParseTimeOfDay(s string) (model.TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, strings.ToUpper(s)); err == nil {
			return model.TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}, nil
		}
	}
	return model.TimeOfDay{}, fmt.Errorf("invalid wall-clock time %q", s)
}

// ParseGrace parses an HH:MM:SS grace string into a duration. Legacy
// configurations append a meridian token to the grace value; it carries
// no meaning for a duration and is stripped before parsing.
func ParseGrace(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	for _, suffix := range []string{"AM", "PM", "am", "pm"} {
		s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	}
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		return 0, fmt.Errorf("invalid grace time %q", s)
	}
	if h < 0 || m < 0 || m > 59 || sec < 0 || sec > 59 {
		return 0, fmt.Errorf("invalid grace time %q", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

// ParseResendInterval parses an assignment resend cadence. It accepts
// the same HH:MM:SS form as grace times as well as Go duration strings.
func ParseResendInterval(s string) (time.Duration, error) {
	if d, err := ParseGrace(s); err == nil {
		return d, nil
	}
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid resend interval %q", s)
	}
	return d, nil
}

// AdjustWindow widens the shift window by its grace time: the start
// moves earlier, the end moves later, both wrapping modulo 24 hours.
// It never fails; an unparseable side degrades to EveryMinuteExpr and a
// bad grace is treated as zero.
func AdjustWindow(w model.ShiftWindow) model.AdjustedWindow {
	grace, err := ParseGrace(w.GraceTime)
	if err != nil {
		grace = 0
	}

	var adj model.AdjustedWindow
	if start, err := ParseTimeOfDay(w.StartTime); err == nil {
		adj.Start = start.Add(-grace)
		adj.StartExpr = adj.Start.CronExpr()
	} else {
		adj.StartExpr = EveryMinuteExpr
	}
	if end, err := ParseTimeOfDay(w.EndTime); err == nil {
		adj.End = end.Add(grace)
		adj.EndExpr = adj.End.CronExpr()
	} else {
		adj.EndExpr = EveryMinuteExpr
	}
	return adj
}
