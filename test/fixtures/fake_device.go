// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"
	"sync"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

// FakeDevice is a stateful in-memory device behind a domain.DeviceBridge.
// It understands the wm and am display commands and renders a tiny PNG whose
// pixel size encodes the applied display.
type FakeDevice struct {
	Serial   string
	APILevel int

	mu            sync.Mutex
	physW, physH  int
	physDPI       int
	curW, curH    int
	curDPI        int
	history       []string
	reject        map[string]bool
	screencapFail bool
}

// NewFakeDevice creates a device with the given native portrait size and density.
func NewFakeDevice(serial string, apiLevel, width, height, dpi int) *FakeDevice {
	return &FakeDevice{
		Serial:   serial,
		APILevel: apiLevel,
		physW:    width,
		physH:    height,
		physDPI:  dpi,
		curW:     width,
		curH:     height,
		curDPI:   dpi,
		reject:   make(map[string]bool),
	}
}

// Reject makes the device fail the exact shell command.
func (d *FakeDevice) Reject(command string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reject[command] = true
}

// FailScreencap makes every framebuffer capture fail.
func (d *FakeDevice) FailScreencap() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.screencapFail = true
}

// History returns every shell command received.
func (d *FakeDevice) History() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.history...)
}

// Current returns the applied display as WxH and dpi.
func (d *FakeDevice) Current() (string, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return fmt.Sprintf("%dx%d", d.curW, d.curH), d.curDPI
}

// Devices implements domain.DeviceBridge.
func (d *FakeDevice) Devices(ctx context.Context) ([]domain.DeviceHandle, error) {
	return []domain.DeviceHandle{{Serial: d.Serial, State: "device", Model: "fake"}}, nil
}

// Shell implements domain.DeviceBridge.
func (d *FakeDevice) Shell(ctx context.Context, serial, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if serial != d.Serial {
		return "", fmt.Errorf("device '%s' not found", serial)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.history = append(d.history, command)
	if d.reject[command] {
		return "", fmt.Errorf("exit status 255")
	}

	fields := strings.Fields(command)
	switch {
	case command == "getprop ro.build.version.sdk":
		return fmt.Sprintf("%d\n", d.APILevel), nil
	case command == "dumpsys window":
		return fmt.Sprintf("  init=%dx%d %ddpi cur=%dx%d\n", d.physW, d.physH, d.physDPI, d.curW, d.curH), nil
	case command == "wm density":
		return fmt.Sprintf("Physical density: %d\n", d.physDPI), nil
	case command == "wm size":
		return fmt.Sprintf("Physical size: %dx%d\n", d.physW, d.physH), nil
	}

	if len(fields) != 3 {
		return "", fmt.Errorf("unknown command %q", command)
	}
	verb, arg := fields[0]+" "+fields[1], fields[2]
	switch verb {
	case "wm density", "am display-density":
		if arg == "reset" {
			d.curDPI = d.physDPI
			return "", nil
		}
		dpi, err := strconv.Atoi(arg)
		if err != nil {
			return "", err
		}
		d.curDPI = dpi
	case "wm size", "am display-size":
		if arg == "reset" {
			d.curW, d.curH = d.physW, d.physH
			return "", nil
		}
		w, h, err := domain.ParseSize(arg)
		if err != nil {
			return "", err
		}
		d.curW, d.curH = w, h
	default:
		return "", fmt.Errorf("unknown command %q", command)
	}
	return "", nil
}

// Framebuffer implements domain.DeviceBridge. The image is curW/10 x curH/10.
func (d *FakeDevice) Framebuffer(ctx context.Context, serial string) (*domain.RawImage, error) {
	d.mu.Lock()
	w, h, dpi, fail := d.curW/10, d.curH/10, d.curDPI, d.screencapFail
	d.mu.Unlock()

	if fail {
		return nil, fmt.Errorf("screencap: not found")
	}
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(dpi % 256)
	}
	img.Set(0, 0, color.White)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return &domain.RawImage{Width: w, Height: h, Data: buf.Bytes()}, nil
}

var _ domain.DeviceBridge = (*FakeDevice)(nil)
