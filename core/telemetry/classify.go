package telemetry

import (
	"strings"

	"github.com/fleetops/shiftd/core/model"
)

// Rule pairs a topic matcher with the event kind it yields. Rules are
// evaluated in order and the first match wins, so more specific
// matchers must come before generic ones.
type Rule struct {
	Name  string
	Match func(topic string) bool
	Kind  model.EventKind
}

// Classifier is the ordered matching table applied to every inbound
// topic.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds the rule table from configuration. Calculator
// channels match on the exact calc ID segment; per-device telemetry
// channels match on prefix and suffix; multi-segment device channels
// match with single-segment wildcards.
func NewClassifier(cfg Config) *Classifier {
	rules := []Rule{
		{Name: "new-event-calc", Match: calcMatcher(cfg.NewEventCalcID), Kind: model.KindNewEvent},
		{Name: "alarm-calc", Match: calcMatcher(cfg.AlarmCalcID), Kind: model.KindAlarm},
		{Name: "behavior-calc", Match: calcMatcher(cfg.BehaviorCalcID), Kind: model.KindBehaviorReport},
		{Name: "position", Match: suffixMatcher("/telemetry/position"), Kind: model.KindLiveLocation},
		{Name: "ignition", Match: suffixMatcher("/telemetry/engine.ignition.status"), Kind: model.KindIgnitionStatus},
		{Name: "din", Match: suffixMatcher("/telemetry/din"), Kind: model.KindDigitalInput},
		{Name: "connected", Match: segmentMatcher("flespi/state/gw/devices/+/connected"), Kind: model.KindDeviceConnected},
		{Name: "calc-result", Match: segmentMatcher("flespi/interval/gw/calcs/+/devices/+/#"), Kind: model.KindCustomCalcResult},
		{Name: "cron-status", Match: segmentMatcher("shiftd/cron/#"), Kind: model.KindCronStatus},
	}
	return &Classifier{rules: rules}
}

// Classify returns the event kind for a topic, or KindUnmatched when no
// rule applies.
func (c *Classifier) Classify(topic string) model.EventKind {
	for _, r := range c.rules {
		if r.Match(topic) {
			return r.Kind
		}
	}
	return model.KindUnmatched
}

// DeviceID extracts the device identifier from a topic containing a
// "devices/<id>" segment pair, or "" when absent.
func DeviceID(topic string) string {
	segs := strings.Split(topic, "/")
	for i := 0; i < len(segs)-1; i++ {
		if segs[i] == "devices" {
			return segs[i+1]
		}
	}
	return ""
}

// calcMatcher matches topics carrying the exact calculator ID in a
// "calcs/<id>" segment pair. An empty ID never matches.
func calcMatcher(calcID string) func(string) bool {
	return func(topic string) bool {
		if calcID == "" {
			return false
		}
		segs := strings.Split(topic, "/")
		for i := 0; i < len(segs)-1; i++ {
			if segs[i] == "calcs" && segs[i+1] == calcID {
				return true
			}
		}
		return false
	}
}

func suffixMatcher(suffix string) func(string) bool {
	return func(topic string) bool { return strings.HasSuffix(topic, suffix) }
}

// segmentMatcher matches with MQTT wildcard semantics: "+" matches
// exactly one segment, a trailing "#" matches any remainder including
// none.
func segmentMatcher(pattern string) func(string) bool {
	want := strings.Split(pattern, "/")
	return func(topic string) bool {
		got := strings.Split(topic, "/")
		for i, w := range want {
			if w == "#" {
				return true
			}
			if i >= len(got) {
				return false
			}
			if w != "+" && w != got[i] {
				return false
			}
		}
		return len(got) == len(want)
	}
}
