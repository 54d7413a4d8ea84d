package domain

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownDensity    = errors.New("density not in catalog")
	ErrUnknownResolution = errors.New("resolution not in catalog")
	ErrNoDevice          = errors.New("device must be set up")
	ErrDisplayUnknown    = errors.New("device's physical density and resolution must be known")
	ErrDirectory         = errors.New("cannot create screenshots directory")
	ErrJobRunning        = errors.New("screenshot job already running")
	ErrNoDevicesAttached = errors.New("no device connected")
)

// CommandError is returned when the device rejects or fails a shell command.
type CommandError struct {
	Serial  string
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("device %s: %q: %v", e.Serial, e.Command, e.Err)
}

func (e *CommandError) Unwrap() error { return e.Err }
