package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eliteGoblin/screenshooter/internal/cli"
	"github.com/eliteGoblin/screenshooter/internal/domain"
	"github.com/eliteGoblin/screenshooter/internal/infra"
	"github.com/eliteGoblin/screenshooter/internal/preset"
	"github.com/eliteGoblin/screenshooter/internal/usecase"
	"github.com/eliteGoblin/screenshooter/internal/watch"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List attached devices",
	Long:  `Lists devices known to the adb server. With --watch, keeps running and prints attach and detach events.`,
	RunE:  runDevices,
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the device's native display and its catalog mapping",
	RunE:  runInfo,
}

var modesCmd = &cobra.Command{
	Use:   "modes",
	Short: "List the modes a job would capture, without touching the display",
	RunE:  runModes,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Capture a screenshot in every mode",
	Long: `Applies each mode in turn (density, then size), waits for the device to
settle, and saves a screenshot. Ctrl-C stops after the current device
command; the display is then reset unless --reset=false.

A failed mode change ends the job. A failed screenshot is logged and the job
continues.`,
	RunE: runRun,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Restore the device's native size and density",
	RunE:  runReset,
}

var presetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List exclusion presets",
	RunE:  runPresets,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently captured screenshots",
	RunE:  runHistory,
}

var (
	watchDevices  bool
	excludeModes  []domain.Mode
	presetIDs     []string
	outputDir     string
	filePrefix    string
	settleDelay   time.Duration
	resetAfter    bool
	dryRun        bool
	historyLimit  int
	rotateKey     bool
	publishEvents bool
)

func init() {
	devicesCmd.Flags().BoolVarP(&watchDevices, "watch", "w", false, "Keep running and print device changes")

	for _, c := range []*cobra.Command{modesCmd, runCmd} {
		c.Flags().Var(cli.NewModeListValue(&excludeModes), "exclude", "Modes to skip, e.g. 800x480@240 (repeatable, comma-separated)")
		c.Flags().StringSliceVar(&presetIDs, "preset", nil, "Exclusion presets to apply (see 'presets')")
	}
	runCmd.Flags().StringVarP(&outputDir, "dir", "d", "", "Screenshot directory (default job.directory)")
	runCmd.Flags().StringVarP(&filePrefix, "prefix", "p", "", "File name prefix (default job.prefix)")
	runCmd.Flags().DurationVar(&settleDelay, "settle", 0, "Wait after each mode change (default job.settle_delay)")
	runCmd.Flags().BoolVar(&resetAfter, "reset", true, "Reset the display when the job ends")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the modes and exit")
	runCmd.Flags().BoolVar(&publishEvents, "mqtt", false, "Publish job events over MQTT (also mqtt.enabled)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of records to show (0 for all)")
	historyCmd.Flags().BoolVar(&rotateKey, "rotate-key", false, "Re-encrypt the history under a new key and exit")
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runDevices(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if !watchDevices {
		handles, err := a.bridge.Devices(ctx)
		if err != nil {
			return err
		}
		if len(handles) == 0 {
			fmt.Println("No devices attached.")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SERIAL\tSTATE\tMODEL")
		for _, h := range handles {
			fmt.Fprintf(w, "%s\t%s\t%s\n", h.Serial, h.State, h.Model)
		}
		return w.Flush()
	}

	events := make(chan watch.Event)
	watcher := watch.NewDeviceWatcher(a.bridge, watch.DefaultPollInterval, a.logger)
	errCh := make(chan error, 1)
	go func() { errCh <- watcher.Run(ctx, events) }()

	fmt.Println("Watching for devices (Ctrl-C to stop)...")
	for {
		select {
		case e := <-events:
			fmt.Printf("%s  %-9s %s (%s)\n", time.Now().Format("15:04:05"), e.Kind, e.Device.Serial, e.Device.State)
		case err := <-errCh:
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
	}
}

func runInfo(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	device, err := a.inspect(ctx)
	if err != nil {
		return err
	}

	d := device.Display
	fmt.Printf("Device:      %s %s\n", device.Handle.Serial, device.Handle.Model)
	fmt.Printf("API level:   %d\n", device.APILevel)
	fmt.Printf("Physical:    %dx%d @ %ddpi\n", d.RawWidth, d.RawHeight, d.RawDPI)
	fmt.Printf("Resolution:  %s (%s, max %s)\n", d.PhysicalResolution, d.PhysicalResolution.Name, d.PhysicalResolution.MaxDensity)
	fmt.Printf("Density:     %s (%s)\n", d.PhysicalDensity, d.PhysicalDensity.Name)
	fmt.Printf("Modes:       %d\n", len(usecase.EnumerateModes(*d.PhysicalResolution, *d.PhysicalDensity)))
	return nil
}

// jobModes enumerates the device's modes and removes every exclusion from
// config, presets and flags.
func jobModes(a *app, device *domain.Device) ([]domain.Mode, error) {
	ids := append(append([]string{}, a.cfg.Job.Presets...), presetIDs...)
	fromPresets, err := preset.NewRegistry().Resolve(ids...)
	if err != nil {
		return nil, err
	}

	excluded := append(a.cfg.ExcludedModes(), fromPresets...)
	excluded = append(excluded, excludeModes...)

	all := usecase.EnumerateModes(*device.Display.PhysicalResolution, *device.Display.PhysicalDensity)
	modes := usecase.ExcludeModes(all, excluded)
	a.logger.Debug("modes enumerated",
		zap.Int("total", len(all)),
		zap.Int("excluded", len(all)-len(modes)))
	return modes, nil
}

func runModes(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	device, err := a.inspect(ctx)
	if err != nil {
		return err
	}
	modes, err := jobModes(a, device)
	if err != nil {
		return err
	}
	printModes(modes, a.cfg.Job.Prefix)
	return nil
}

func printModes(modes []domain.Mode, prefix string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tMODE\tFILE")
	for i, m := range modes {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, m, m.FileName(prefix))
	}
	w.Flush()
	fmt.Printf("\n%d modes\n", len(modes))
}

func runRun(cmd *cobra.Command, args []string) error {
	// Signals stop the job cooperatively instead of canceling ctx, so an
	// in-flight adb command is never killed halfway through a mode change.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	device, err := a.inspect(ctx)
	if err != nil {
		return err
	}
	modes, err := jobModes(a, device)
	if err != nil {
		return err
	}

	req := usecase.JobRequest{
		Directory:   a.cfg.Job.Directory,
		Prefix:      a.cfg.Job.Prefix,
		SettleDelay: a.cfg.Job.SettleDelay,
		Modes:       modes,
	}
	if outputDir != "" {
		req.Directory = outputDir
	}
	if filePrefix != "" {
		req.Prefix = filePrefix
	}
	if settleDelay > 0 {
		req.SettleDelay = settleDelay
	}
	if dryRun {
		printModes(modes, req.Prefix)
		return nil
	}

	var recorder domain.CaptureRecorder
	ledger, err := a.openLedger()
	if err != nil {
		a.logger.Warn("capture history disabled", zap.Error(err))
	} else if ledger != nil {
		defer ledger.Close()
		recorder = ledger
	}

	orch := usecase.NewOrchestrator(a.display, a.fs, recorder, a.logger)
	if err := orch.SetDevice(device); err != nil {
		return err
	}

	sinks := usecase.MultiSink{newTerminalProgress(os.Stdout)}
	if publishEvents || a.cfg.MQTT.Enabled {
		opts := infra.MQTTOptions{
			Broker:   a.cfg.MQTT.Broker,
			ClientID: a.cfg.MQTT.ClientID,
			Topic:    a.cfg.MQTT.Topic,
			QoS:      byte(a.cfg.MQTT.QoS),
		}
		publisher, err := infra.ConnectMQTT(opts)
		if err != nil {
			a.logger.Warn("job events will not be published", zap.Error(err))
		} else {
			defer publisher.Close()
			sinks = append(sinks, infra.NewMQTTSink(publisher, opts, device.Handle.Serial, a.logger))
		}
	}

	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go handleSignals(ctx, sigChan, orch.Stop, cancel, a.logger)

	fmt.Printf("Capturing %d modes from %s into %s\n", len(modes), device.Handle.Serial, a.fs.ExpandHome(req.Directory))
	report, runErr := orch.Run(ctx, req, sinks)

	if shouldReset(resetAfter && a.cfg.Job.ResetAfter, runErr) {
		resetCtx, resetCancel := context.WithTimeout(context.Background(), a.cfg.ADB.CommandTimeout*3)
		if err := orch.ResetDisplay(resetCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: display reset failed: %v\n", err)
		}
		resetCancel()
	}

	if runErr != nil {
		if usecase.IsPrecondition(runErr) {
			return fmt.Errorf("job not started: %w", runErr)
		}
		return runErr
	}

	fmt.Printf("\n%s: %d/%d modes, %d screenshots saved", report.Outcome, report.Completed, report.Total, len(report.Captured))
	if n := len(report.CaptureFailures); n > 0 {
		fmt.Printf(", %d failed", n)
	}
	fmt.Printf(" (%s)\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Second))

	if report.Outcome == domain.OutcomeFailed {
		return report.Err
	}
	return nil
}

// handleSignals stops the job on the first signal and cancels ctx on the
// second, which kills a hung adb command. It returns when ctx is done.
func handleSignals(ctx context.Context, sigChan <-chan os.Signal, stop func(), cancel context.CancelFunc, logger *zap.Logger) {
	stopping := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigChan:
			if !stopping {
				stopping = true
				logger.Info("received shutdown signal, stopping after the current command")
				stop()
				continue
			}
			logger.Warn("received second shutdown signal, aborting")
			cancel()
			return
		}
	}
}

// shouldReset reports whether the display is reset after Run returned runErr.
// A job that never started left the display untouched.
func shouldReset(enabled bool, runErr error) bool {
	return enabled && !usecase.IsPrecondition(runErr)
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	handle, err := a.selectDevice(ctx)
	if err != nil {
		return err
	}
	// Reset needs no physical display knowledge, only the API level.
	device, err := a.display.Inspect(ctx, handle)
	if err != nil {
		a.logger.Debug("inspect failed, resetting with wm commands", zap.Error(err))
		device = &domain.Device{Handle: handle}
	}

	orch := usecase.NewOrchestrator(a.display, a.fs, nil, a.logger)
	if err := orch.SetDevice(device); err != nil {
		return err
	}

	var resetErr error
	orch.ResetDisplayWith(ctx, usecase.CommandStatusFuncs{
		Sent:   func() { fmt.Printf("Display of %s reset.\n", handle.Serial) },
		Failed: func(err error) { resetErr = err },
	})
	return resetErr
}

func runPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDESCRIPTION\tMODES")
	for _, p := range preset.NewRegistry().GetAll() {
		fmt.Fprintf(w, "%s\t%s\t%d\n", p.ID(), p.Description(), len(p.Modes()))
	}
	return w.Flush()
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	ledger, err := a.openLedger()
	if err != nil {
		return err
	}
	if ledger == nil {
		fmt.Println("Capture history is disabled (ledger.enabled: false).")
		return nil
	}
	defer ledger.Close()

	if rotateKey {
		if err := ledger.RotateKey(); err != nil {
			return err
		}
		a.logger.Info("capture history key rotated", zap.String("path", ledger.Path()))
		fmt.Println("Capture history key rotated.")
		return nil
	}

	records, err := ledger.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Printf("No screenshots recorded yet (%s).\n", ledger.Path())
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tDEVICE\tMODE\tSIZE\tDIGEST\tPATH")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.12s\t%s\n",
			r.CapturedAt.Format(time.DateTime), r.Serial, r.Mode, r.SizeBytes, r.Digest, r.Path)
	}
	return w.Flush()
}
