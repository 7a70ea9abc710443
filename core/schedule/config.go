package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetops/shiftd/core/model"
)

// Config defines the scheduler parameters loaded from configuration.
type Config struct {
	// RefreshIntervalMinutes is the safety-net cadence at which the full
	// trigger set is rebuilt even without a configuration change.
	RefreshIntervalMinutes int `json:"refresh_interval_minutes"`
	// PollIntervalSeconds is the device status poller cadence.
	PollIntervalSeconds int `json:"poll_interval_seconds"`
	// CallTimeoutSeconds bounds every platform call made from a trigger.
	CallTimeoutSeconds int `json:"call_timeout_seconds"`
	// ResendMarginSeconds is subtracted from the next start-trigger time
	// to form the resend loop deadline.
	ResendMarginSeconds int `json:"resend_margin_seconds"`

	Assignments []model.ShiftAssignment `json:"assignments"`
}

// SetDefaults fills unset durations with production defaults.
func (c *Config) SetDefaults() {
	if c.RefreshIntervalMinutes <= 0 {
		c.RefreshIntervalMinutes = 60
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = 60
	}
	if c.CallTimeoutSeconds <= 0 {
		c.CallTimeoutSeconds = 5
	}
	if c.ResendMarginSeconds <= 0 {
		c.ResendMarginSeconds = 30
	}
}

// Validate rejects assignments without a device or resend cadence.
func (c Config) Validate() error {
	for i, a := range c.Assignments {
		if a.DeviceID == "" {
			return fmt.Errorf("assignment %d: device_id is required", i)
		}
		if a.ResendInterval != "" {
			if _, err := ParseResendInterval(a.ResendInterval); err != nil {
				return fmt.Errorf("assignment %d: %w", i, err)
			}
		}
	}
	return nil
}

// Source yields the authoritative assignment list for a refresh. The
// scheduler treats every snapshot as a full replacement.
type Source interface {
	Assignments(ctx context.Context) ([]model.ShiftAssignment, error)
}

// StaticSource serves assignments straight from configuration.
type StaticSource struct {
	List []model.ShiftAssignment
}

func (s StaticSource) Assignments(context.Context) ([]model.ShiftAssignment, error) {
	out := make([]model.ShiftAssignment, len(s.List))
	copy(out, s.List)
	return out, nil
}

// RefreshInterval returns the refresh cadence as a duration.
func (c Config) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// PollInterval returns the poller cadence as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// CallTimeout returns the platform call timeout as a duration.
func (c Config) CallTimeout() time.Duration {
	return time.Duration(c.CallTimeoutSeconds) * time.Second
}

// ResendMargin returns the resend deadline margin as a duration.
func (c Config) ResendMargin() time.Duration {
	return time.Duration(c.ResendMarginSeconds) * time.Second
}
