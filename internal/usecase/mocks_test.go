package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

// mockBridge implements domain.DeviceBridge for testing.
type mockBridge struct {
	mu sync.Mutex

	devices   []domain.DeviceHandle
	outputs   map[string]string // command -> output
	failOn    map[string]error  // command -> error
	failAfter int               // fail the n-th shell command (1-based) when > 0
	fbErr     error
	fbCalls   int
	commands  []string

	// onShell runs after a command is recorded, outside the lock.
	onShell func(command string)
}

func newMockBridge() *mockBridge {
	return &mockBridge{
		outputs: make(map[string]string),
		failOn:  make(map[string]error),
	}
}

func (m *mockBridge) Devices(ctx context.Context) ([]domain.DeviceHandle, error) {
	return m.devices, nil
}

func (m *mockBridge) Shell(ctx context.Context, serial, command string) (string, error) {
	m.mu.Lock()
	m.commands = append(m.commands, command)
	n := len(m.commands)
	out := m.outputs[command]
	err := m.failOn[command]
	if m.failAfter > 0 && n == m.failAfter {
		err = errors.New("device rejected command")
	}
	hook := m.onShell
	m.mu.Unlock()

	if hook != nil {
		hook(command)
	}
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	return out, err
}

func (m *mockBridge) Framebuffer(ctx context.Context, serial string) (*domain.RawImage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fbCalls++
	if m.fbErr != nil {
		return nil, m.fbErr
	}
	return &domain.RawImage{Width: 4, Height: 2, Data: []byte("\x89PNG fake")}, nil
}

func (m *mockBridge) Commands() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.commands))
	copy(out, m.commands)
	return out
}

func (m *mockBridge) FramebufferCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fbCalls
}

// mockImageWriter implements domain.ImageWriter for testing.
type mockImageWriter struct {
	mu      sync.Mutex
	written []string
	failFor map[string]bool // path -> fail
}

func (m *mockImageWriter) WriteImage(img *domain.RawImage, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFor[path] {
		return errors.New("disk full")
	}
	m.written = append(m.written, path)
	return nil
}

// mockFileSystemManager implements domain.FileSystemManager for testing.
type mockFileSystemManager struct {
	ensureErr error
	ensured   []string
}

func (m *mockFileSystemManager) Exists(path string) bool { return true }

func (m *mockFileSystemManager) EnsureDir(path string) error {
	if m.ensureErr != nil {
		return m.ensureErr
	}
	m.ensured = append(m.ensured, path)
	return nil
}

func (m *mockFileSystemManager) ExpandHome(path string) string {
	return path // No expansion in tests
}

// mockRecorder implements domain.CaptureRecorder for testing.
type mockRecorder struct {
	records []domain.CaptureRecord
	err     error
}

func (m *mockRecorder) RecordCapture(rec domain.CaptureRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}

func (m *mockRecorder) Recent(limit int) ([]domain.CaptureRecord, error) {
	return m.records, nil
}

func (m *mockRecorder) Close() error { return nil }

// recordingSink implements domain.ProgressSink and keeps every event.
type recordingSink struct {
	mu        sync.Mutex
	progress  [][2]int
	finished  int
	failed    []error
	cancelled int

	onProgress func(current, total int)
}

func (s *recordingSink) OnProgress(current, total int) {
	s.mu.Lock()
	s.progress = append(s.progress, [2]int{current, total})
	hook := s.onProgress
	s.mu.Unlock()
	if hook != nil {
		hook(current, total)
	}
}

func (s *recordingSink) OnFinished() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finished++
}

func (s *recordingSink) OnFailed(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, err)
}

func (s *recordingSink) OnCancelled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled++
}

func (s *recordingSink) terminalCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished + len(s.failed) + s.cancelled
}

// recordingListener implements domain.CommandStatusListener.
type recordingListener struct {
	sent   int
	failed []error
}

func (l *recordingListener) OnCommandSent() { l.sent++ }

func (l *recordingListener) OnCommandFailed(err error) { l.failed = append(l.failed, err) }

// knownDevice returns an inspected device with the given physical display.
func knownDevice(r domain.ResolutionTier, d domain.DensityTier) *domain.Device {
	pr, pd, cr, cd := r, d, r, d
	return &domain.Device{
		Handle:   domain.DeviceHandle{Serial: "emulator-5554", State: "device"},
		APILevel: 30,
		Display: domain.DisplayState{
			PhysicalResolution: &pr,
			PhysicalDensity:    &pd,
			CurrentResolution:  &cr,
			CurrentDensity:     &cd,
		},
	}
}
