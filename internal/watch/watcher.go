// Package watch reports devices attaching to and detaching from the adb bridge.
package watch

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

// DefaultPollInterval is how often the bridge is asked for devices.
const DefaultPollInterval = 2 * time.Second

// EventKind says what happened to a device.
type EventKind string

const (
	// Attached fires for a new serial or one whose state changed.
	Attached EventKind = "attached"
	Detached EventKind = "detached"
)

// Event is one device change.
type Event struct {
	Kind   EventKind
	Device domain.DeviceHandle
}

// deviceLister is the part of domain.DeviceBridge the watcher needs.
type deviceLister interface {
	Devices(ctx context.Context) ([]domain.DeviceHandle, error)
}

// DeviceWatcher polls the bridge and emits changes.
type DeviceWatcher struct {
	bridge   deviceLister
	interval time.Duration
	logger   *zap.Logger

	known map[string]domain.DeviceHandle
}

// NewDeviceWatcher creates a watcher. A non-positive interval uses DefaultPollInterval.
func NewDeviceWatcher(bridge deviceLister, interval time.Duration, logger *zap.Logger) *DeviceWatcher {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &DeviceWatcher{
		bridge:   bridge,
		interval: interval,
		logger:   logger,
		known:    make(map[string]domain.DeviceHandle),
	}
}

// Run polls until ctx is canceled, sending events on out. Devices present at
// start are reported as attached. Poll errors are logged and retried on the
// next tick. Run does not close out.
func (w *DeviceWatcher) Run(ctx context.Context, out chan<- Event) error {
	w.logger.Info("device watcher started", zap.Duration("interval", w.interval))

	if !w.poll(ctx, out) {
		return ctx.Err()
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("device watcher stopping")
			return ctx.Err()

		case <-ticker.C:
			if !w.poll(ctx, out) {
				return ctx.Err()
			}
		}
	}
}

// poll diffs one device listing against the known set. It returns false
// when ctx ended while delivering events.
func (w *DeviceWatcher) poll(ctx context.Context, out chan<- Event) bool {
	handles, err := w.bridge.Devices(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		w.logger.Warn("failed to list devices", zap.Error(err))
		return true
	}

	for _, e := range w.diff(handles) {
		w.logger.Debug("device changed",
			zap.String("event", string(e.Kind)),
			zap.String("serial", e.Device.Serial),
			zap.String("state", e.Device.State))
		select {
		case out <- e:
		case <-ctx.Done():
			return false
		}
	}
	return true
}

// diff updates the known set and returns detach events followed by attach
// events, each sorted by serial.
func (w *DeviceWatcher) diff(handles []domain.DeviceHandle) []Event {
	current := make(map[string]domain.DeviceHandle, len(handles))
	for _, h := range handles {
		current[h.Serial] = h
	}

	var detached, attached []Event
	for serial, h := range w.known {
		if _, ok := current[serial]; !ok {
			detached = append(detached, Event{Kind: Detached, Device: h})
		}
	}
	for serial, h := range current {
		if prev, ok := w.known[serial]; !ok || prev.State != h.State {
			attached = append(attached, Event{Kind: Attached, Device: h})
		}
	}
	w.known = current

	bySerial := func(events []Event) {
		sort.Slice(events, func(i, j int) bool { return events[i].Device.Serial < events[j].Device.Serial })
	}
	bySerial(detached)
	bySerial(attached)
	return append(detached, attached...)
}
