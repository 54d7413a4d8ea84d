package infra

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/screenshooter/internal/domain"
)

const adbProcessName = "adb"

// serverStarter is the part of AdbBridge AdbServer needs.
type serverStarter interface {
	StartServer(ctx context.Context) error
}

// AdbServer makes sure an adb server process is running before devices are queried.
type AdbServer struct {
	starter serverStarter
	procs   domain.ProcessManager
	logger  *zap.Logger
}

// NewAdbServer creates a server supervisor.
func NewAdbServer(starter serverStarter, procs domain.ProcessManager, logger *zap.Logger) *AdbServer {
	return &AdbServer{starter: starter, procs: procs, logger: logger}
}

// Running reports whether any live adb process exists.
func (s *AdbServer) Running() bool {
	pids, err := s.procs.FindByName(adbProcessName)
	if err != nil {
		s.logger.Debug("process scan failed", zap.Error(err))
		return false
	}
	for _, pid := range pids {
		if s.procs.IsRunning(pid) {
			return true
		}
	}
	return false
}

// EnsureRunning starts the adb server unless one is already running.
// It reports whether a start was attempted.
func (s *AdbServer) EnsureRunning(ctx context.Context) (bool, error) {
	if s.Running() {
		s.logger.Debug("adb server already running")
		return false, nil
	}

	s.logger.Info("adb server not running, starting it")
	if err := s.starter.StartServer(ctx); err != nil {
		s.logger.Error("failed to start adb server", zap.Error(err))
		return true, err
	}
	s.logger.Info("adb server started")
	return true, nil
}
