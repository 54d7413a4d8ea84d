// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"fmt"
	"time"
)

// DeviceHandle identifies a device attached to the bridge.
type DeviceHandle struct {
	Serial string
	State  string // "device", "offline", "unauthorized", ...
	Model  string
}

// Ready reports whether the bridge can run commands on the device.
func (h DeviceHandle) Ready() bool {
	return h.State == "device"
}

// DisplayState tracks a device's native display configuration and the one
// currently applied. Physical fields are nil until the device is inspected.
type DisplayState struct {
	PhysicalResolution *ResolutionTier
	PhysicalDensity    *DensityTier
	CurrentResolution  *ResolutionTier
	CurrentDensity     *DensityTier

	// Raw values reported by the device before catalog mapping.
	RawWidth  int
	RawHeight int
	RawDPI    int

	// Portrait is set when the native display is taller than wide. Catalog
	// tiers are landscape, so sizes are sent to the device transposed.
	Portrait bool
}

// Known reports whether both physical values have been learned.
func (s DisplayState) Known() bool {
	return s.PhysicalResolution != nil && s.PhysicalDensity != nil
}

// SizeArg formats r the way the device expects it for its orientation.
func (s DisplayState) SizeArg(r ResolutionTier) string {
	if s.Portrait {
		return fmt.Sprintf("%dx%d", r.Height, r.Width)
	}
	return r.String()
}

// Device is one inspected device. It is owned by a single session.
type Device struct {
	Handle   DeviceHandle
	APILevel int
	Display  DisplayState
}

// Clone returns a copy that shares no memory with d.
func (d *Device) Clone() *Device {
	if d == nil {
		return nil
	}
	c := *d
	c.Display.PhysicalResolution = clonePtr(d.Display.PhysicalResolution)
	c.Display.PhysicalDensity = clonePtr(d.Display.PhysicalDensity)
	c.Display.CurrentResolution = clonePtr(d.Display.CurrentResolution)
	c.Display.CurrentDensity = clonePtr(d.Display.CurrentDensity)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// RawImage is a captured framebuffer, already encoded as PNG.
type RawImage struct {
	Width  int
	Height int
	Data   []byte
}

// CaptureRecord describes one screenshot written to disk.
type CaptureRecord struct {
	ID         int64
	Serial     string
	Mode       string
	Width      int
	Height     int
	DPI        int
	Path       string
	Digest     string
	SizeBytes  int64
	CapturedAt time.Time
}

// JobOutcome is the terminal result of a screenshot job.
type JobOutcome string

const (
	OutcomeFinished  JobOutcome = "finished"
	OutcomeFailed    JobOutcome = "failed"
	OutcomeCancelled JobOutcome = "cancelled"
)
