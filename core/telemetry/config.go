package telemetry

// Config defines the router's static subscriptions and the calculator
// IDs used for channel classification.
type Config struct {
	// StaticTopics are subscribed on every connect.
	StaticTopics []string `json:"static_topics"`

	NewEventCalcID string `json:"new_event_calc_id"`
	AlarmCalcID    string `json:"alarm_calc_id"`
	BehaviorCalcID string `json:"behavior_calc_id"`
}

// SetDefaults fills the calculator IDs and static topics used by the
// production gateway account.
func (c *Config) SetDefaults() {
	if c.NewEventCalcID == "" {
		c.NewEventCalcID = "1742074"
	}
	if c.AlarmCalcID == "" {
		c.AlarmCalcID = "1742075"
	}
	if c.BehaviorCalcID == "" {
		c.BehaviorCalcID = "1742076"
	}
	if len(c.StaticTopics) == 0 {
		c.StaticTopics = []string{
			"flespi/state/gw/devices/+/connected",
			"flespi/state/gw/devices/+/telemetry/position",
			"flespi/state/gw/devices/+/telemetry/engine.ignition.status",
			"flespi/state/gw/devices/+/telemetry/din",
			"flespi/interval/gw/calcs/+/devices/+/created",
		}
	}
}
