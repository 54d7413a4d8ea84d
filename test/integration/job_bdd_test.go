//go:build integration

package integration

import (
	"context"
	"image/png"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/screenshooter/internal/domain"
	"github.com/eliteGoblin/screenshooter/internal/infra"
	"github.com/eliteGoblin/screenshooter/internal/preset"
	"github.com/eliteGoblin/screenshooter/internal/usecase"
	"github.com/eliteGoblin/screenshooter/test/fixtures"
)

var _ = Describe("Screenshot job", func() {
	var (
		ctx     context.Context
		tmpDir  string
		shots   string
		device  *fixtures.FakeDevice
		display *usecase.DisplayController
		ledger  *infra.CaptureLedger
		orch    *usecase.Orchestrator
	)

	BeforeEach(func() {
		ctx = context.Background()
		tmpDir = GinkgoT().TempDir()
		shots = filepath.Join(tmpDir, "screenshots")

		// A 1080x1920 phone at 560dpi.
		device = fixtures.NewFakeDevice("emulator-5554", 30, 1080, 1920, 560)
		display = usecase.NewDisplayController(device, infra.NewPNGWriter(), zap.NewNop())

		var err error
		ledger, err = infra.OpenCaptureLedger(filepath.Join(tmpDir, "ledger"))
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(ledger.Close)

		fs := infra.NewFileSystemManagerWithHome(tmpDir)
		orch = usecase.NewOrchestrator(display, fs, ledger, zap.NewNop())
	})

	inspect := func() *domain.Device {
		d, err := display.Inspect(ctx, domain.DeviceHandle{Serial: "emulator-5554", State: "device"})
		Expect(err).NotTo(HaveOccurred())
		Expect(orch.SetDevice(d)).To(Succeed())
		return d
	}

	request := func(modes []domain.Mode) usecase.JobRequest {
		return usecase.JobRequest{Directory: "~/screenshots", Prefix: "output_", SettleDelay: time.Millisecond, Modes: modes}
	}

	Context("when every mode succeeds", func() {
		It("writes one PNG per mode and records each in the ledger", func() {
			d := inspect()
			Expect(d.Display.PhysicalResolution.String()).To(Equal("1920x1080"))

			modes := usecase.EnumerateModes(*d.Display.PhysicalResolution, *d.Display.PhysicalDensity)
			Expect(modes).To(HaveLen(20))

			report, err := orch.Run(ctx, request(modes), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Outcome).To(Equal(domain.OutcomeFinished))

			Expect(device.History()).To(ContainElement("wm size 1080x1920"))
			Expect(device.History()).NotTo(ContainElement("wm size 1920x1080"))

			entries, err := os.ReadDir(shots)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(20))

			f, err := os.Open(filepath.Join(shots, "output_1280x768_320dpi.png"))
			Expect(err).NotTo(HaveOccurred())
			defer f.Close()
			cfg, err := png.DecodeConfig(f)
			Expect(err).NotTo(HaveOccurred())
			// The phone is portrait, so the screenshot is too.
			Expect(cfg.Width).To(Equal(76))
			Expect(cfg.Height).To(Equal(128))

			records, err := ledger.Recent(0)
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(20))
			Expect(records[0].Mode).To(Equal("320x240@160dpi"))
		})

		It("skips excluded presets", func() {
			d := inspect()
			excluded, err := preset.NewRegistry().Resolve("legacy")
			Expect(err).NotTo(HaveOccurred())
			modes := usecase.ExcludeModes(usecase.EnumerateModes(*d.Display.PhysicalResolution, *d.Display.PhysicalDensity), excluded)

			report, err := orch.Run(ctx, request(modes), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Total).To(Equal(18))
			Expect(filepath.Join(shots, "output_800x480_240dpi.png")).NotTo(BeAnExistingFile())
			Expect(filepath.Join(shots, "output_854x480_240dpi.png")).To(BeAnExistingFile())
		})
	})

	Context("when the device rejects a mode change", func() {
		It("fails the job and leaves later modes untouched", func() {
			d := inspect()
			device.Reject("wm size 768x1280")
			modes := usecase.EnumerateModes(*d.Display.PhysicalResolution, *d.Display.PhysicalDensity)

			report, err := orch.Run(ctx, request(modes), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Outcome).To(Equal(domain.OutcomeFailed))
			Expect(report.Completed).To(Equal(6))
			Expect(device.History()).NotTo(ContainElement("wm size 720x1280"))
		})
	})

	Context("when screenshots fail", func() {
		It("finishes the job anyway", func() {
			d := inspect()
			device.FailScreencap()
			modes := usecase.EnumerateModes(*d.Display.PhysicalResolution, *d.Display.PhysicalDensity)[:3]

			report, err := orch.Run(ctx, request(modes), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Outcome).To(Equal(domain.OutcomeFinished))
			Expect(report.CaptureFailures).To(HaveLen(3))
		})
	})

	Context("after a job", func() {
		It("restores the native display", func() {
			d := inspect()
			modes := usecase.EnumerateModes(*d.Display.PhysicalResolution, *d.Display.PhysicalDensity)[:8]
			_, err := orch.Run(ctx, request(modes), nil)
			Expect(err).NotTo(HaveOccurred())

			size, dpi := device.Current()
			Expect(size).To(Equal("768x1280"))
			Expect(dpi).To(Equal(320))

			Expect(orch.ResetDisplay(ctx)).To(Succeed())
			size, dpi = device.Current()
			Expect(size).To(Equal("1080x1920"))
			Expect(dpi).To(Equal(560))

			history := device.History()
			Expect(history[len(history)-3:]).To(Equal([]string{"wm size reset", "wm density reset", "wm density reset"}))
		})
	})

	Context("on a pre-4.3 device", func() {
		It("uses the am display commands", func() {
			device = fixtures.NewFakeDevice("emulator-5554", 16, 480, 800, 240)
			display = usecase.NewDisplayController(device, infra.NewPNGWriter(), zap.NewNop())
			orch = usecase.NewOrchestrator(display, infra.NewFileSystemManagerWithHome(tmpDir), nil, zap.NewNop())
			d := inspect()
			Expect(d.Display.PhysicalResolution.String()).To(Equal("800x480"))

			modes := usecase.EnumerateModes(*d.Display.PhysicalResolution, *d.Display.PhysicalDensity)
			report, err := orch.Run(ctx, request(modes), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Total).To(Equal(4))
			Expect(device.History()).To(ContainElement("am display-density 240"))
			Expect(device.History()).To(ContainElement("am display-size 480x800"))
		})
	})
})
