package model

import "strings"

// IgnitionState is the coded engine state reported by the device platform.
type IgnitionState int

const (
	IgnitionUnknown IgnitionState = iota
	IgnitionOff
	IgnitionOn
)

func (s IgnitionState) String() string {
	switch s {
	case IgnitionOff:
		return "off"
	case IgnitionOn:
		return "on"
	default:
		return "unknown"
	}
}

// ParseIgnitionState maps a platform value onto the ignition enum. The
// platform reports the state as a loosely typed scalar, so both numeric
// and textual codes are accepted. Anything outside the two known
// families is unknown and callers must not guess a default action.
func ParseIgnitionState(code string) IgnitionState {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "0", "off", "false":
		return IgnitionOff
	case "1", "on", "true":
		return IgnitionOn
	default:
		return IgnitionUnknown
	}
}
