// Package cli contains the gridscan command line application.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"github.com/gridscan/gridscan/components/camera"
	"github.com/gridscan/gridscan/config"
	"github.com/gridscan/gridscan/logging"
	"github.com/gridscan/gridscan/overlay"
	"github.com/gridscan/gridscan/scanner"
	"github.com/gridscan/gridscan/solver"
	"github.com/gridscan/gridscan/utils"
	"github.com/gridscan/gridscan/vision/classification"
)

const (
	// Flags.
	flagConfig   = "config"
	flagDebug    = "debug"
	flagDevice   = "device"
	flagTimeout  = "timeout"
	flagOverlay  = "overlay-dir"
	flagMaxWidth = "overlay-width"
)

const progressInterval = 5 * time.Second

// MediaDevicesFactory opens the host's cameras. It is swapped out in tests.
var MediaDevicesFactory = camera.NewWebcamDevices

// NewApp returns the gridscan application.
func NewApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:   "gridscan",
		Usage:  "read a sudoku puzzle from a camera and solve it",
		Writer: out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load configuration from `FILE`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "scan",
				Usage: "scan the camera feed until a puzzle is solved",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  flagDevice,
						Usage: "camera device id, overriding the config",
					},
					&cli.DurationFlag{
						Name:  flagTimeout,
						Usage: "give up after this long; 0 scans until interrupted",
					},
					&cli.StringFlag{
						Name:  flagOverlay,
						Usage: "write an overlay PNG of the solved frame to `DIR`, overriding the config",
					},
					&cli.IntFlag{
						Name:  flagMaxWidth,
						Value: 1280,
						Usage: "scale overlays down to this width",
					},
				},
				Action: scanAction,
			},
			{
				Name:   "devices",
				Usage:  "list the available cameras",
				Action: devicesAction,
			},
		},
	}
}

func newLogger(c *cli.Context) logging.Logger {
	if c.Bool(flagDebug) {
		return logging.NewDebugLogger("gridscan")
	}
	return logging.NewLogger("gridscan")
}

func loadConfig(c *cli.Context, logger logging.Logger) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String(flagConfig); path != "" {
		read, err := config.Read(path, logger)
		if err != nil {
			return nil, err
		}
		cfg = read
	} else {
		def := config.Default()
		cfg = &def
	}
	if device := c.String(flagDevice); device != "" {
		cfg.Camera.DeviceID = device
	}
	if dir := c.String(flagOverlay); dir != "" {
		cfg.Debug.OverlayDir = dir
	}
	return cfg, cfg.Validate()
}

func devicesAction(c *cli.Context) error {
	logger := newLogger(c)
	devices, err := MediaDevicesFactory(logger.Sublogger("camera")).EnumerateDevices(c.Context)
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return errors.Wrap(camera.ErrHardwareUnavailable, "no cameras found")
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Device ID", "Label"})
	for _, d := range devices {
		t.AppendRow(table.Row{d.DeviceID, d.Label})
	}
	_, err = fmt.Fprintln(c.App.Writer, t.Render())
	return err
}

func logProgress(ctx context.Context, logger logging.Logger, snap scanner.Snapshot) {
	logger.CInfow(ctx, "scanning",
		"ticks", snap.Ticks,
		"last_result", snap.LastResult.String(),
		"last_tick_ms", snap.LastTickMillis,
		"boxes", len(snap.Boxes))
}

func scanAction(c *cli.Context) error {
	logger := newLogger(c)
	cfg, err := loadConfig(c, logger)
	if err != nil {
		return err
	}
	config.InitLoggingSettings(logger, c.Bool(flagDebug), cfg)

	classifier, err := classification.NewClient(
		cfg.Classifier.URL, nil, cfg.Classifier.Timeout, cfg.Classifier.InputSize, logger.Sublogger("classifier"))
	if err != nil {
		return err
	}
	player := camera.NewPlayer(logger.Sublogger("camera"), cfg.Camera.PollInterval)
	defer player.Wait()
	var recorder latencyRecorder
	s, err := scanner.New(
		cfg.Scanner,
		MediaDevicesFactory(logger.Sublogger("camera")),
		player,
		classifier,
		solver.NewBacktracking(solver.MinGivens, solver.DefaultMaxSteps),
		logger.Sublogger("scanner"),
		scanner.WithPostprocessors(classification.NewScoreFilter(cfg.Classifier.MinConfidence), classification.NewDigitFilter()),
		scanner.WithTickObserver(recorder.observe),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := c.Duration(flagTimeout); timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	s.OnStreamReady(func(info scanner.StreamInfo) {
		fmt.Fprintf(c.App.Writer, "camera ready: %dx%d\n", info.Width, info.Height)
	})
	if err := s.StartVideo(ctx, cfg.Camera.Constraints()); err != nil {
		return err
	}

	progress := utils.NewStoppableWorkers(func(ctx context.Context) {
		for goutils.SelectContextOrWait(ctx, progressInterval) {
			logProgress(ctx, logger, s.Snapshot())
		}
	})

	select {
	case <-s.Done():
	case <-ctx.Done():
	}
	frame, frameErr := player.Frame()
	stopErr := s.StopVideo(context.Background())
	progress.Stop()
	snap := s.Snapshot()

	if err := writeReport(c.App.Writer, snap, recorder.Totals()); err != nil {
		return err
	}
	if snap.Solution == "" {
		if ctx.Err() != nil {
			logger.Infow("scan ended without a solution", "reason", ctx.Err())
		}
		return stopErr
	}
	fmt.Fprintf(c.App.Writer, "\n%s", formatBoard(snap.Solution))

	if cfg.Debug.OverlayDir != "" && frameErr == nil {
		img := overlay.Scale(overlay.Draw(frame, snap), c.Int(flagMaxWidth))
		path, err := overlay.SavePNG(cfg.Debug.OverlayDir, snap.Session, img)
		if err != nil {
			return err
		}
		logger.Infow("overlay saved", "path", path)
	}
	return stopErr
}
