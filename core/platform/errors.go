package platform

import "errors"

// ErrCommandRejected is returned when the platform accepted the request
// but reported the command as not executed.
var ErrCommandRejected = errors.New("command rejected by platform")
