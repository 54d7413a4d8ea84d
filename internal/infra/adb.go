// Package infra implements infrastructure concerns (adb bridge, filesystem, capture ledger).
package infra

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

// DefaultCommandTimeout bounds a single adb invocation.
const DefaultCommandTimeout = 30 * time.Second

// CommandRunner abstracts command execution for testing.
type CommandRunner interface {
	// Output runs name with args and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecCommandRunner executes real system commands.
type ExecCommandRunner struct{}

// Output executes a command and returns its stdout. Stderr is folded into the error.
func (ExecCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, msg)
		}
		return out, err
	}
	return out, nil
}

// AdbBridge implements domain.DeviceBridge with the adb command-line client.
type AdbBridge struct {
	adbPath string
	timeout time.Duration
	runner  CommandRunner
}

// NewAdbBridge creates a bridge around the adb binary at adbPath.
// A zero timeout uses DefaultCommandTimeout.
func NewAdbBridge(adbPath string, timeout time.Duration, runner CommandRunner) *AdbBridge {
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	if runner == nil {
		runner = ExecCommandRunner{}
	}
	return &AdbBridge{adbPath: adbPath, timeout: timeout, runner: runner}
}

// Path returns the adb binary in use.
func (b *AdbBridge) Path() string {
	return b.adbPath
}

// FindAdb locates the adb binary: explicit path, then
// $ANDROID_HOME/platform-tools, then $ANDROID_SDK_ROOT/platform-tools, then PATH.
func FindAdb(explicit string, fs domain.FileSystemManager) (string, error) {
	if explicit != "" {
		path := fs.ExpandHome(explicit)
		if !fs.Exists(path) {
			return "", fmt.Errorf("adb not found at %s", path)
		}
		return path, nil
	}

	name := "adb"
	if runtime.GOOS == "windows" {
		name = "adb.exe"
	}
	for _, env := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if sdk := os.Getenv(env); sdk != "" {
			path := filepath.Join(sdk, "platform-tools", name)
			if fs.Exists(path) {
				return path, nil
			}
		}
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("adb not found: set ANDROID_HOME or add platform-tools to PATH")
	}
	return path, nil
}

// Devices lists attached devices using `adb devices -l`.
func (b *AdbBridge) Devices(ctx context.Context) ([]domain.DeviceHandle, error) {
	out, err := b.output(ctx, "devices", "-l")
	if err != nil {
		return nil, fmt.Errorf("adb devices: %w", err)
	}
	return ParseDevices(string(out)), nil
}

// Shell runs a shell command on the device.
func (b *AdbBridge) Shell(ctx context.Context, serial, command string) (string, error) {
	args := append([]string{"-s", serial, "shell"}, strings.Fields(command)...)
	out, err := b.output(ctx, args...)
	if err != nil {
		return string(out), err
	}
	return string(out), nil
}

// Framebuffer captures the screen as PNG using `exec-out screencap -p`.
func (b *AdbBridge) Framebuffer(ctx context.Context, serial string) (*domain.RawImage, error) {
	out, err := b.output(ctx, "-s", serial, "exec-out", "screencap", "-p")
	if err != nil {
		return nil, fmt.Errorf("screencap: %w", err)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("screencap returned invalid PNG (%d bytes): %w", len(out), err)
	}
	return &domain.RawImage{Width: cfg.Width, Height: cfg.Height, Data: out}, nil
}

// StartServer runs `adb start-server`.
func (b *AdbBridge) StartServer(ctx context.Context) error {
	if _, err := b.output(ctx, "start-server"); err != nil {
		return fmt.Errorf("adb start-server: %w", err)
	}
	return nil
}

func (b *AdbBridge) output(ctx context.Context, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	return b.runner.Output(ctx, b.adbPath, args...)
}

// ParseDevices parses `adb devices -l` output.
//
//	List of devices attached
//	emulator-5554          device product:sdk_gphone64 model:sdk_gphone64_x86_64 transport_id:1
//	0123456789ABCDEF       unauthorized usb:1-1 transport_id:2
func ParseDevices(output string) []domain.DeviceHandle {
	var handles []domain.DeviceHandle
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		handle := domain.DeviceHandle{Serial: fields[0], State: fields[1]}
		for _, f := range fields[2:] {
			if model, ok := strings.CutPrefix(f, "model:"); ok {
				handle.Model = model
			}
		}
		handles = append(handles, handle)
	}
	return handles
}

// Ensure AdbBridge implements domain.DeviceBridge.
var _ domain.DeviceBridge = (*AdbBridge)(nil)
