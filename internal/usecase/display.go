package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

// Shell commands. API 18 (Android 4.3) introduced the wm tool; older
// releases only have the am display-* variants.
const (
	CommandWMDensity      = "wm density"
	CommandWMSize         = "wm size"
	CommandWMDensityReset = "wm density reset"
	CommandWMSizeReset    = "wm size reset"

	CommandAMDensity      = "am display-density"
	CommandAMSize         = "am display-size"
	CommandAMDensityReset = "am display-density reset"
	CommandAMSizeReset    = "am display-size reset"

	CommandAPILevel     = "getprop ro.build.version.sdk"
	CommandScreenInfo   = "dumpsys window"
	WMMinimumAPILevel   = 18
	defaultAPIFallback  = WMMinimumAPILevel
	textPhysicalDensity = "Physical density:"
	textPhysicalSize    = "Physical size:"
)

// "init=480x800 240dpi" as printed by dumpsys window before API 18.
var initDisplayPattern = regexp.MustCompile(`init=(\d+)x(\d+)\s+(\d+)dpi`)

// DisplayController turns display operations into device shell commands.
type DisplayController struct {
	bridge domain.DeviceBridge
	images domain.ImageWriter
	logger *zap.Logger
}

// NewDisplayController creates a display controller on top of a device bridge.
func NewDisplayController(bridge domain.DeviceBridge, images domain.ImageWriter, logger *zap.Logger) *DisplayController {
	return &DisplayController{
		bridge: bridge,
		images: images,
		logger: logger,
	}
}

// Devices lists attached devices.
func (c *DisplayController) Devices(ctx context.Context) ([]domain.DeviceHandle, error) {
	return c.bridge.Devices(ctx)
}

// Inspect queries a device's API level and physical display and maps the
// display onto the catalogs. An unmapped density is an error.
func (c *DisplayController) Inspect(ctx context.Context, handle domain.DeviceHandle) (*domain.Device, error) {
	device := &domain.Device{Handle: handle, APILevel: c.apiLevel(ctx, handle.Serial)}

	var (
		width, height, dpi int
		err                error
	)
	if device.APILevel >= WMMinimumAPILevel {
		width, height, dpi, err = c.inspectWM(ctx, handle.Serial)
	} else {
		width, height, dpi, err = c.inspectDumpsys(ctx, handle.Serial)
	}
	if err != nil {
		return nil, err
	}

	density, err := domain.TierForDensity(dpi)
	if err != nil {
		return nil, fmt.Errorf("device %s: %w", handle.Serial, err)
	}

	// The catalog lists sizes in landscape orientation.
	long, short := width, height
	if short > long {
		long, short = short, long
	}
	resolution := domain.TierForSize(long, short)

	currentResolution, currentDensity := resolution, density
	device.Display = domain.DisplayState{
		PhysicalResolution: &resolution,
		PhysicalDensity:    &density,
		CurrentResolution:  &currentResolution,
		CurrentDensity:     &currentDensity,
		RawWidth:           width,
		RawHeight:          height,
		RawDPI:             dpi,
		Portrait:           width < height,
	}

	c.logger.Info("device display inspected",
		zap.String("serial", handle.Serial),
		zap.Int("api_level", device.APILevel),
		zap.String("raw_size", fmt.Sprintf("%dx%d", width, height)),
		zap.Int("raw_dpi", dpi),
		zap.String("resolution", resolution.String()),
		zap.String("density", density.String()),
		zap.Bool("portrait", device.Display.Portrait))

	return device, nil
}

func (c *DisplayController) apiLevel(ctx context.Context, serial string) int {
	out, err := c.bridge.Shell(ctx, serial, CommandAPILevel)
	if err != nil {
		c.logger.Warn("failed to read API level, assuming wm is available",
			zap.String("serial", serial),
			zap.Error(err))
		return defaultAPIFallback
	}
	level, err := strconv.Atoi(strings.TrimSpace(out))
	if err != nil {
		c.logger.Warn("unexpected API level output",
			zap.String("serial", serial),
			zap.String("output", out))
		return defaultAPIFallback
	}
	return level
}

func (c *DisplayController) inspectWM(ctx context.Context, serial string) (int, int, int, error) {
	densityOut, err := c.bridge.Shell(ctx, serial, CommandWMDensity)
	if err != nil {
		return 0, 0, 0, &domain.CommandError{Serial: serial, Command: CommandWMDensity, Err: err}
	}
	dpi, err := ParsePhysicalDensity(densityOut)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("device %s: %w", serial, err)
	}

	sizeOut, err := c.bridge.Shell(ctx, serial, CommandWMSize)
	if err != nil {
		return 0, 0, 0, &domain.CommandError{Serial: serial, Command: CommandWMSize, Err: err}
	}
	width, height, err := ParsePhysicalSize(sizeOut)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("device %s: %w", serial, err)
	}
	return width, height, dpi, nil
}

func (c *DisplayController) inspectDumpsys(ctx context.Context, serial string) (int, int, int, error) {
	out, err := c.bridge.Shell(ctx, serial, CommandScreenInfo)
	if err != nil {
		return 0, 0, 0, &domain.CommandError{Serial: serial, Command: CommandScreenInfo, Err: err}
	}
	width, height, dpi, err := ParseInitDisplay(out)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("device %s: %w", serial, err)
	}
	return width, height, dpi, nil
}

// ParsePhysicalDensity extracts N from a "Physical density: N" line.
func ParsePhysicalDensity(output string) (int, error) {
	value, ok := lineValue(output, textPhysicalDensity)
	if !ok {
		return 0, fmt.Errorf("can't parse density output %q", strings.TrimSpace(output))
	}
	dpi, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("can't parse density %q: %w", value, err)
	}
	return dpi, nil
}

// ParsePhysicalSize extracts W and H from a "Physical size: WxH" line.
func ParsePhysicalSize(output string) (int, int, error) {
	value, ok := lineValue(output, textPhysicalSize)
	if !ok {
		return 0, 0, fmt.Errorf("can't parse size output %q", strings.TrimSpace(output))
	}
	return domain.ParseSize(value)
}

// ParseInitDisplay extracts size and density from pre-API-18 dumpsys output.
func ParseInitDisplay(output string) (int, int, int, error) {
	m := initDisplayPattern.FindStringSubmatch(output)
	if m == nil {
		return 0, 0, 0, fmt.Errorf("can't parse screen info: no init= entry")
	}
	width, _ := strconv.Atoi(m[1])
	height, _ := strconv.Atoi(m[2])
	dpi, _ := strconv.Atoi(m[3])
	return width, height, dpi, nil
}

func lineValue(output, label string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(line, label); ok {
			return strings.TrimSpace(rest), true
		}
	}
	return "", false
}

// Apply sets density then resolution. Either may be nil to leave it unchanged.
// Portrait devices get the size with width and height swapped. The device's
// current display state follows each successful command.
func (c *DisplayController) Apply(ctx context.Context, device *domain.Device, resolution *domain.ResolutionTier, density *domain.DensityTier) error {
	c.logger.Debug("setting display params",
		zap.String("serial", device.Handle.Serial),
		zap.Stringer("size", optionalStringer(resolution)),
		zap.Stringer("density", optionalStringer(density)))

	if density != nil {
		cmd := fmt.Sprintf("%s %d", c.densityCommand(device), density.DPI)
		if err := c.run(ctx, device, cmd); err != nil {
			return err
		}
		d := *density
		device.Display.CurrentDensity = &d
	}

	if resolution != nil {
		cmd := fmt.Sprintf("%s %s", c.sizeCommand(device), device.Display.SizeArg(*resolution))
		if err := c.run(ctx, device, cmd); err != nil {
			return err
		}
		r := *resolution
		device.Display.CurrentResolution = &r
	}

	return nil
}

// Reset restores the native size and density.
// Density is reset twice: a single reset can leave system UI drawn at the
// previous density.
func (c *DisplayController) Reset(ctx context.Context, device *domain.Device) error {
	sizeReset, densityReset := CommandWMSizeReset, CommandWMDensityReset
	if device.APILevel != 0 && device.APILevel < WMMinimumAPILevel {
		sizeReset, densityReset = CommandAMSizeReset, CommandAMDensityReset
	}

	for _, cmd := range []string{sizeReset, densityReset, densityReset} {
		if err := c.run(ctx, device, cmd); err != nil {
			return err
		}
	}

	if device.Display.Known() {
		r, d := *device.Display.PhysicalResolution, *device.Display.PhysicalDensity
		device.Display.CurrentResolution = &r
		device.Display.CurrentDensity = &d
	}
	return nil
}

// Capture grabs the framebuffer and writes it to path.
func (c *DisplayController) Capture(ctx context.Context, device *domain.Device, path string) (*domain.RawImage, error) {
	img, err := c.bridge.Framebuffer(ctx, device.Handle.Serial)
	if err != nil {
		return nil, fmt.Errorf("capture framebuffer: %w", err)
	}
	if img == nil || len(img.Data) == 0 {
		return nil, fmt.Errorf("capture framebuffer: empty image")
	}
	if err := c.images.WriteImage(img, path); err != nil {
		return nil, fmt.Errorf("write %s: %w", path, err)
	}
	return img, nil
}

func (c *DisplayController) run(ctx context.Context, device *domain.Device, cmd string) error {
	if _, err := c.bridge.Shell(ctx, device.Handle.Serial, cmd); err != nil {
		return &domain.CommandError{Serial: device.Handle.Serial, Command: cmd, Err: err}
	}
	return nil
}

func (c *DisplayController) densityCommand(device *domain.Device) string {
	if device.APILevel != 0 && device.APILevel < WMMinimumAPILevel {
		return CommandAMDensity
	}
	return CommandWMDensity
}

func (c *DisplayController) sizeCommand(device *domain.Device) string {
	if device.APILevel != 0 && device.APILevel < WMMinimumAPILevel {
		return CommandAMSize
	}
	return CommandWMSize
}

type stringerFunc func() string

func (f stringerFunc) String() string { return f() }

func optionalStringer[T fmt.Stringer](v *T) fmt.Stringer {
	return stringerFunc(func() string {
		if v == nil {
			return "unchanged"
		}
		return (*v).String()
	})
}
