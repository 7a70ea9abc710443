package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fleetops/shiftd/core/model"
)

func testClassifier() *Classifier {
	cfg := Config{}
	cfg.SetDefaults()
	return NewClassifier(cfg)
}

func TestClassify(t *testing.T) {
	c := testClassifier()
	cases := []struct {
		topic string
		want  model.EventKind
	}{
		{"flespi/interval/gw/calcs/1742074/devices/123/created", model.KindNewEvent},
		{"flespi/interval/gw/calcs/1742075/devices/123/created", model.KindAlarm},
		{"flespi/interval/gw/calcs/1742076/devices/123/created", model.KindBehaviorReport},
		{"flespi/state/gw/devices/42/telemetry/position", model.KindLiveLocation},
		{"flespi/state/gw/devices/42/telemetry/engine.ignition.status", model.KindIgnitionStatus},
		{"flespi/state/gw/devices/42/telemetry/din", model.KindDigitalInput},
		{"flespi/state/gw/devices/42/connected", model.KindDeviceConnected},
		{"flespi/interval/gw/calcs/999/devices/42/created", model.KindCustomCalcResult},
		{"shiftd/cron/refresh", model.KindCronStatus},
		{"shiftd/cron", model.KindCronStatus},
		{"flespi/state/gw/devices/42/telemetry/speed", model.KindUnmatched},
		{"some/random/topic", model.KindUnmatched},
		{"", model.KindUnmatched},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, c.Classify(tc.topic), "topic=%s", tc.topic)
	}
}

// The named calculator rules sit before the generic calc-result rule, so
// a known calc ID must never fall through to the generic kind.
func TestClassifyKnownCalcBeatsGenericRule(t *testing.T) {
	c := testClassifier()
	kind := c.Classify("flespi/interval/gw/calcs/1742074/devices/7/updated")
	assert.Equal(t, model.KindNewEvent, kind)
}

func TestClassifyEmptyCalcIDNeverMatches(t *testing.T) {
	c := NewClassifier(Config{})
	kind := c.Classify("flespi/interval/gw/calcs/1742074/devices/7/created")
	assert.Equal(t, model.KindCustomCalcResult, kind)
}

func TestDeviceID(t *testing.T) {
	assert.Equal(t, "42", DeviceID("flespi/state/gw/devices/42/telemetry/position"))
	assert.Equal(t, "7", DeviceID("flespi/interval/gw/calcs/1742074/devices/7/created"))
	assert.Equal(t, "", DeviceID("shiftd/cron/refresh"))
	assert.Equal(t, "", DeviceID("flespi/state/gw/devices"))
}

func TestSegmentMatcher(t *testing.T) {
	m := segmentMatcher("flespi/state/gw/devices/+/connected")
	assert.True(t, m("flespi/state/gw/devices/42/connected"))
	assert.False(t, m("flespi/state/gw/devices/42/a/connected"), "+ matches exactly one segment")
	assert.False(t, m("flespi/state/gw/devices/42/connected/extra"))
	assert.False(t, m("flespi/state/gw/devices/42"))

	m = segmentMatcher("shiftd/cron/#")
	assert.True(t, m("shiftd/cron"))
	assert.True(t, m("shiftd/cron/a/b/c"))
	assert.False(t, m("shiftd/other"))
}
