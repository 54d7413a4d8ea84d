package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/eliteGoblin/screenshooter/internal/config"
	"github.com/eliteGoblin/screenshooter/internal/domain"
	"github.com/eliteGoblin/screenshooter/internal/infra"
	"github.com/eliteGoblin/screenshooter/internal/logging"
	"github.com/eliteGoblin/screenshooter/internal/usecase"
)

// app holds the wired dependencies shared by commands.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	fs      domain.FileSystemManager
	bridge  *infra.AdbBridge
	display *usecase.DisplayController
}

// newApp loads configuration, builds the logger and locates adb.
func newApp(ctx context.Context) (*app, error) {
	home, _ := os.UserHomeDir()
	cfg, err := config.LoadOrDefault(configPath, home)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}

	fs := infra.NewFileSystemManager()
	adbPath, err := infra.FindAdb(cfg.ADB.Path, fs)
	if err != nil {
		return nil, err
	}
	bridge := infra.NewAdbBridge(adbPath, cfg.ADB.CommandTimeout, nil)
	logger.Debug("using adb", zap.String("path", bridge.Path()))

	if cfg.ADB.StartServer {
		server := infra.NewAdbServer(bridge, infra.NewProcessManager(), logger)
		if _, err := server.EnsureRunning(ctx); err != nil {
			return nil, err
		}
	}

	return &app{
		cfg:     cfg,
		logger:  logger,
		fs:      fs,
		bridge:  bridge,
		display: usecase.NewDisplayController(bridge, infra.NewPNGWriter(), logger),
	}, nil
}

// selectDevice picks the device named by --serial, or the only ready device.
func (a *app) selectDevice(ctx context.Context) (domain.DeviceHandle, error) {
	handles, err := a.display.Devices(ctx)
	if err != nil {
		return domain.DeviceHandle{}, err
	}
	return pickDevice(handles, serialFlag)
}

func pickDevice(handles []domain.DeviceHandle, serial string) (domain.DeviceHandle, error) {
	if serial != "" {
		for _, h := range handles {
			if h.Serial == serial {
				if !h.Ready() {
					return h, fmt.Errorf("device %s is %s", serial, h.State)
				}
				return h, nil
			}
		}
		return domain.DeviceHandle{}, fmt.Errorf("device %s: %w", serial, domain.ErrNoDevicesAttached)
	}

	var ready []domain.DeviceHandle
	for _, h := range handles {
		if h.Ready() {
			ready = append(ready, h)
		}
	}
	switch len(ready) {
	case 0:
		return domain.DeviceHandle{}, domain.ErrNoDevicesAttached
	case 1:
		return ready[0], nil
	default:
		return domain.DeviceHandle{}, fmt.Errorf("%d devices attached, choose one with --serial", len(ready))
	}
}

// inspect selects and inspects the target device.
func (a *app) inspect(ctx context.Context) (*domain.Device, error) {
	handle, err := a.selectDevice(ctx)
	if err != nil {
		return nil, err
	}
	return a.display.Inspect(ctx, handle)
}

// openLedger opens the capture history, or returns nil when disabled.
func (a *app) openLedger() (*infra.CaptureLedger, error) {
	if !a.cfg.Ledger.Enabled {
		return nil, nil
	}
	return infra.OpenCaptureLedger(a.fs.ExpandHome(a.cfg.Ledger.Dir))
}

func (a *app) close() {
	_ = a.logger.Sync()
}
