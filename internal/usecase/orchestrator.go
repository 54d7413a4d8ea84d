// Package usecase contains application business logic.
package usecase

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

const (
	DefaultDirectory   = "screenshots"
	DefaultPrefix      = "output_"
	DefaultSettleDelay = 1000 * time.Millisecond
)

// JobState is the orchestrator's lifecycle state.
type JobState string

const (
	StateIdle    JobState = "idle"
	StateRunning JobState = "running"
)

// JobRequest describes one screenshot job. Zero values take the defaults.
type JobRequest struct {
	Directory   string
	Prefix      string
	SettleDelay time.Duration
	Modes       []domain.Mode
}

func (r JobRequest) withDefaults() JobRequest {
	if r.Directory == "" {
		r.Directory = DefaultDirectory
	}
	if r.Prefix == "" {
		r.Prefix = DefaultPrefix
	}
	if r.SettleDelay == 0 {
		r.SettleDelay = DefaultSettleDelay
	}
	return r
}

// JobReport summarizes a job that got past its preconditions.
type JobReport struct {
	Outcome         domain.JobOutcome
	Total           int
	Completed       int
	Captured        []string
	CaptureFailures []domain.Mode
	Err             error // apply failure when Outcome is failed
	StartedAt       time.Time
	FinishedAt      time.Time
}

// Orchestrator runs screenshot jobs against one bound device, one job at a time.
type Orchestrator struct {
	display  *DisplayController
	fs       domain.FileSystemManager
	recorder domain.CaptureRecorder
	logger   *zap.Logger

	mu       sync.Mutex
	device   *domain.Device
	snapshot *domain.Device // copy of device readable while a job runs
	state    JobState
	stopCh  chan struct{}
	started atomic.Bool
}

// NewOrchestrator creates an idle orchestrator. recorder may be nil.
func NewOrchestrator(
	display *DisplayController,
	fs domain.FileSystemManager,
	recorder domain.CaptureRecorder,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		display:  display,
		fs:       fs,
		recorder: recorder,
		logger:   logger,
		state:    StateIdle,
	}
}

// SetDevice binds the device jobs run against.
func (o *Orchestrator) SetDevice(device *domain.Device) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateRunning {
		return domain.ErrJobRunning
	}
	o.device = device
	o.snapshot = device.Clone()
	return nil
}

// Device returns a copy of the bound device as of its last display change,
// or nil. It is safe to call while a job is running.
func (o *Orchestrator) Device() *domain.Device {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot.Clone()
}

// publish refreshes the snapshot returned by Device. Only the goroutine
// driving the device calls it.
func (o *Orchestrator) publish(device *domain.Device) {
	snap := device.Clone()
	o.mu.Lock()
	o.snapshot = snap
	o.mu.Unlock()
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() JobState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Run applies each mode in order, waits for the device to settle, and captures
// a screenshot. It blocks until the job finishes, fails or is cancelled.
//
// Precondition failures are returned as errors before any device command and
// are not reported to sink. Every other outcome is reported to sink exactly
// once and recorded in the returned report.
func (o *Orchestrator) Run(ctx context.Context, req JobRequest, sink domain.ProgressSink) (*JobReport, error) {
	if sink == nil {
		sink = NopProgressSink{}
	}
	req = req.withDefaults()

	device, dir, stopCh, err := o.begin(req)
	if err != nil {
		return nil, err
	}
	defer o.end()

	// Context cancellation behaves like Stop.
	stopOnCancel := context.AfterFunc(ctx, o.Stop)
	defer stopOnCancel()

	report := &JobReport{
		Total:     len(req.Modes),
		StartedAt: time.Now(),
	}

	o.logger.Info("screenshot job started",
		zap.String("serial", device.Handle.Serial),
		zap.Int("modes", report.Total),
		zap.String("directory", dir),
		zap.Duration("settle_delay", req.SettleDelay))

	for i, mode := range req.Modes {
		if o.cancelled() {
			return o.cancel(report, sink), nil
		}

		resolution, density := mode.Resolution, mode.Density
		err := o.display.Apply(ctx, device, &resolution, &density)
		o.publish(device)
		if err != nil {
			if ctx.Err() != nil {
				return o.cancel(report, sink), nil
			}
			return o.fail(report, sink, mode, err), nil
		}

		if o.cancelled() {
			return o.cancel(report, sink), nil
		}

		o.logger.Debug("display params changed, settling",
			zap.String("mode", mode.String()),
			zap.Duration("delay", req.SettleDelay))
		if !settle(req.SettleDelay, stopCh) {
			return o.cancel(report, sink), nil
		}

		path := filepath.Join(dir, domain.CaptureFileName(req.Prefix,
			*device.Display.CurrentResolution, *device.Display.CurrentDensity))
		o.capture(ctx, device, mode, path, report)

		report.Completed = i + 1
		sink.OnProgress(i+1, report.Total)
	}

	o.started.Store(false)
	report.Outcome = domain.OutcomeFinished
	report.FinishedAt = time.Now()

	o.logger.Info("screenshot job finished",
		zap.String("serial", device.Handle.Serial),
		zap.Int("captured", len(report.Captured)),
		zap.Int("capture_failures", len(report.CaptureFailures)),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	sink.OnFinished()

	return report, nil
}

// begin checks preconditions and moves to the running state.
func (o *Orchestrator) begin(req JobRequest) (*domain.Device, string, <-chan struct{}, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state == StateRunning {
		return nil, "", nil, domain.ErrJobRunning
	}
	if o.device == nil {
		return nil, "", nil, domain.ErrNoDevice
	}
	if !o.device.Display.Known() {
		return nil, "", nil, domain.ErrDisplayUnknown
	}

	dir := o.fs.ExpandHome(req.Directory)
	if err := o.fs.EnsureDir(dir); err != nil {
		return nil, "", nil, fmt.Errorf("%w %s: %w", domain.ErrDirectory, dir, err)
	}

	o.state = StateRunning
	o.stopCh = make(chan struct{})
	o.started.Store(true)
	return o.device, dir, o.stopCh, nil
}

func (o *Orchestrator) end() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.started.Store(false)
	o.stopCh = nil
	o.state = StateIdle
}

// Stop requests cancellation. The job stops at the next mode boundary or
// after the in-flight device command returns; a pending settle wakes early.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started.CompareAndSwap(true, false) && o.stopCh != nil {
		close(o.stopCh)
		o.stopCh = nil
	}
}

func (o *Orchestrator) cancelled() bool {
	return !o.started.Load()
}

func (o *Orchestrator) cancel(report *JobReport, sink domain.ProgressSink) *JobReport {
	o.started.Store(false)
	report.Outcome = domain.OutcomeCancelled
	report.FinishedAt = time.Now()

	o.logger.Info("screenshot job cancelled",
		zap.Int("completed", report.Completed),
		zap.Int("total", report.Total))
	sink.OnCancelled()
	return report
}

func (o *Orchestrator) fail(report *JobReport, sink domain.ProgressSink, mode domain.Mode, err error) *JobReport {
	o.started.Store(false)
	report.Outcome = domain.OutcomeFailed
	report.Err = err
	report.FinishedAt = time.Now()

	o.logger.Error("failed to apply display mode",
		zap.String("mode", mode.String()),
		zap.Int("completed", report.Completed),
		zap.Error(err))
	sink.OnFailed(err)
	return report
}

// capture takes one screenshot. Failures are logged and never end the job.
func (o *Orchestrator) capture(ctx context.Context, device *domain.Device, mode domain.Mode, path string, report *JobReport) {
	img, err := o.display.Capture(ctx, device, path)
	if err != nil {
		o.logger.Warn("failed making a screenshot",
			zap.String("mode", mode.String()),
			zap.String("path", path),
			zap.Error(err))
		report.CaptureFailures = append(report.CaptureFailures, mode)
		return
	}

	report.Captured = append(report.Captured, path)
	o.logger.Info("screenshot saved",
		zap.String("mode", mode.String()),
		zap.String("path", path))

	if o.recorder == nil {
		return
	}
	digest := blake2b.Sum256(img.Data)
	rec := domain.CaptureRecord{
		Serial:     device.Handle.Serial,
		Mode:       mode.String(),
		Width:      mode.Resolution.Width,
		Height:     mode.Resolution.Height,
		DPI:        mode.Density.DPI,
		Path:       path,
		Digest:     hex.EncodeToString(digest[:]),
		SizeBytes:  int64(len(img.Data)),
		CapturedAt: time.Now(),
	}
	if err := o.recorder.RecordCapture(rec); err != nil {
		o.logger.Warn("failed to record capture", zap.String("path", path), zap.Error(err))
	}
}

// settle waits for d, returning false if stop closes first.
func settle(d time.Duration, stop <-chan struct{}) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-stop:
		return false
	}
}

// ResetDisplay restores the bound device's native size and density.
func (o *Orchestrator) ResetDisplay(ctx context.Context) error {
	o.mu.Lock()
	device, running := o.device, o.state == StateRunning
	o.mu.Unlock()

	if device == nil {
		return domain.ErrNoDevice
	}
	if running {
		return domain.ErrJobRunning
	}

	err := o.display.Reset(ctx, device)
	o.publish(device)
	if err != nil {
		o.logger.Error("display reset failed", zap.String("serial", device.Handle.Serial), zap.Error(err))
		return err
	}
	o.logger.Info("display params were reset", zap.String("serial", device.Handle.Serial))
	return nil
}

// ResetDisplayWith resets the display and reports the result to listener.
func (o *Orchestrator) ResetDisplayWith(ctx context.Context, listener domain.CommandStatusListener) {
	err := o.ResetDisplay(ctx)
	if listener == nil {
		return
	}
	if err != nil {
		listener.OnCommandFailed(err)
		return
	}
	listener.OnCommandSent()
}

// ResetDisplayAsync resets the display on a background goroutine.
// The channel receives exactly one value and is then closed.
func (o *Orchestrator) ResetDisplayAsync(ctx context.Context) <-chan error {
	result := make(chan error, 1)
	go func() {
		defer close(result)
		result <- o.ResetDisplay(ctx)
	}()
	return result
}

// JobEventKind names a job event delivered by RunAsync.
type JobEventKind string

const (
	EventProgress  JobEventKind = "progress"
	EventFinished  JobEventKind = "finished"
	EventFailed    JobEventKind = "failed"
	EventCancelled JobEventKind = "cancelled"
)

// JobEvent is one progress or terminal notification.
type JobEvent struct {
	Kind    JobEventKind
	Current int
	Total   int
	Err     error
}

// Terminal reports whether e ends the job.
func (e JobEvent) Terminal() bool {
	return e.Kind != EventProgress
}

// JobHandle tracks a job started with RunAsync.
type JobHandle struct {
	events chan JobEvent
	done   chan struct{}
	report *JobReport
	err    error
}

// Events delivers progress and the terminal event on the caller's goroutine.
// The channel is closed when the job ends, including on precondition failure.
func (h *JobHandle) Events() <-chan JobEvent {
	return h.events
}

// Wait blocks until the job ends and returns what Run returned.
func (h *JobHandle) Wait() (*JobReport, error) {
	<-h.done
	return h.report, h.err
}

// RunAsync runs the job on a background goroutine.
// Events are buffered so the job never blocks on a slow consumer.
func (o *Orchestrator) RunAsync(ctx context.Context, req JobRequest) *JobHandle {
	h := &JobHandle{
		events: make(chan JobEvent, len(req.Modes)+1),
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)
		defer close(h.events)
		h.report, h.err = o.Run(ctx, req, channelSink{events: h.events})
	}()

	return h
}

type channelSink struct {
	events chan<- JobEvent
}

func (s channelSink) OnProgress(current, total int) {
	s.events <- JobEvent{Kind: EventProgress, Current: current, Total: total}
}

func (s channelSink) OnFinished() { s.events <- JobEvent{Kind: EventFinished} }

func (s channelSink) OnFailed(err error) { s.events <- JobEvent{Kind: EventFailed, Err: err} }

func (s channelSink) OnCancelled() { s.events <- JobEvent{Kind: EventCancelled} }

// IsPrecondition reports whether err is a job precondition failure.
func IsPrecondition(err error) bool {
	return errors.Is(err, domain.ErrNoDevice) ||
		errors.Is(err, domain.ErrDisplayUnknown) ||
		errors.Is(err, domain.ErrDirectory) ||
		errors.Is(err, domain.ErrJobRunning)
}
