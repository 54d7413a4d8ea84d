package domain

import "context"

// DeviceBridge is the gateway to attached devices.
// Implementation: the adb command-line client.
type DeviceBridge interface {
	// Devices lists devices currently attached to the bridge.
	Devices(ctx context.Context) ([]DeviceHandle, error)

	// Shell runs a command on the device and returns its raw output.
	Shell(ctx context.Context, serial, command string) (string, error)

	// Framebuffer captures the current screen contents.
	Framebuffer(ctx context.Context, serial string) (*RawImage, error)
}

// ImageWriter persists captured images.
type ImageWriter interface {
	// WriteImage writes img to path, replacing any existing file.
	WriteImage(img *RawImage, path string) error
}

// FileSystemManager handles filesystem operations.
type FileSystemManager interface {
	// Exists checks if a path exists.
	Exists(path string) bool

	// EnsureDir creates a directory (and parents) if it does not exist.
	EnsureDir(path string) error

	// ExpandHome expands ~ to the user's home directory.
	ExpandHome(path string) string
}

// ProcessManager handles OS process lookups.
// Implementation: uses gopsutil for cross-platform support.
type ProcessManager interface {
	// FindByName returns PIDs of processes matching the pattern.
	FindByName(pattern string) ([]int, error)

	// IsRunning checks if a PID exists and is running.
	IsRunning(pid int) bool
}

// ProgressSink receives job progress and exactly one terminal event.
type ProgressSink interface {
	OnProgress(current, total int)
	OnFinished()
	OnFailed(err error)
	OnCancelled()
}

// CommandStatusListener receives the result of a multi-command device operation.
type CommandStatusListener interface {
	OnCommandSent()
	OnCommandFailed(err error)
}

// CaptureRecorder keeps a history of written screenshots.
// Implementation: SQLCipher database. Records are never used to resume a job.
type CaptureRecorder interface {
	// RecordCapture appends a capture to the history.
	RecordCapture(rec CaptureRecord) error

	// Recent returns the newest records, newest first.
	Recent(limit int) ([]CaptureRecord, error)

	// Close releases resources.
	Close() error
}
