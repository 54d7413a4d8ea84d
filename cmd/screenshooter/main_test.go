package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

func TestPickDevice(t *testing.T) {
	handles := []domain.DeviceHandle{
		{Serial: "emulator-5554", State: "device"},
		{Serial: "R58M", State: "unauthorized"},
	}

	h, err := pickDevice(handles, "")
	require.NoError(t, err)
	assert.Equal(t, "emulator-5554", h.Serial, "only ready device is chosen")

	_, err = pickDevice(handles, "R58M")
	assert.ErrorContains(t, err, "unauthorized")

	_, err = pickDevice(handles, "missing")
	assert.True(t, errors.Is(err, domain.ErrNoDevicesAttached))

	_, err = pickDevice(nil, "")
	assert.ErrorIs(t, err, domain.ErrNoDevicesAttached)

	two := append(handles, domain.DeviceHandle{Serial: "emulator-5556", State: "device"})
	_, err = pickDevice(two, "")
	assert.ErrorContains(t, err, "--serial")
	h, err = pickDevice(two, "emulator-5556")
	require.NoError(t, err)
	assert.Equal(t, "emulator-5556", h.Serial)
}

func TestProgressBar(t *testing.T) {
	assert.Equal(t, "[..........]", progressBar(0, 20, 10))
	assert.Equal(t, "[#####.....]", progressBar(10, 20, 10))
	assert.Equal(t, "[##########]", progressBar(20, 20, 10))
	assert.Equal(t, "[##########]", progressBar(0, 0, 10))
}

func TestTerminalProgress_NonInteractive(t *testing.T) {
	var buf bytes.Buffer
	p := &terminalProgress{out: &buf}

	p.OnProgress(1, 2)
	p.OnProgress(2, 2)
	p.OnFailed(errors.New("wm size rejected"))

	assert.Equal(t, "[1/2]\n[2/2]\nFailed: wm size rejected\n", buf.String())
}

func TestShouldReset(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		runErr  error
		want    bool
	}{
		{"job ran", true, nil, true},
		{"disabled", false, nil, false},
		{"directory not created", true, fmt.Errorf("%w /ro: read-only", domain.ErrDirectory), false},
		{"display unknown", true, domain.ErrDisplayUnknown, false},
		{"another job running", true, domain.ErrJobRunning, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldReset(tt.enabled, tt.runErr))
		})
	}
}

func TestHandleSignals_StopThenCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 2)
	var stops atomic.Int32
	done := make(chan struct{})

	go func() {
		handleSignals(ctx, sigChan, func() { stops.Add(1) }, cancel, zap.NewNop())
		close(done)
	}()

	sigChan <- syscall.SIGINT
	require.Eventually(t, func() bool { return stops.Load() == 1 }, time.Second, time.Millisecond)
	assert.NoError(t, ctx.Err(), "first signal only stops the job")

	sigChan <- syscall.SIGINT
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second signal did not end the handler")
	}
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, int32(1), stops.Load())
}

func TestHandleSignals_ReturnsWithoutSignal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		handleSignals(ctx, make(chan os.Signal), func() {}, cancel, zap.NewNop())
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler leaked after the job ended")
	}
}
