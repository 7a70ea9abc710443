package platform

import (
	"context"

	"github.com/fleetops/shiftd/core/model"
)

// CommandDispatcher sends an opaque command payload to a device through
// the external device-management platform.
type CommandDispatcher interface {
	// SendCommand issues the payload to the device. A nil error means the
	// platform reported the command as executed.
	SendCommand(ctx context.Context, deviceID, payload string) error
}

// IgnitionReader reads the current ignition state of a device.
type IgnitionReader interface {
	ReadIgnition(ctx context.Context, deviceID string) (model.IgnitionState, error)
}

// OutputReader samples the secondary digital-output channel of a device.
// Used by the status poller for observability only.
type OutputReader interface {
	ReadOutput(ctx context.Context, deviceID string) (float64, error)
}

// Client is the full device-platform surface used by the scheduler.
type Client interface {
	CommandDispatcher
	IgnitionReader
	OutputReader
}
