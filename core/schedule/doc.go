// Package schedule implements the shift command scheduler: the
// grace-adjusted time window calculator, the cron trigger runner, the
// per-assignment firing state machine with its ignition-aware resend
// loop, the refresh controller and the device status poller.
package schedule
