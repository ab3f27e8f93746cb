package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"go.viam.com/test"

	"github.com/gridscan/gridscan/components/camera"
	"github.com/gridscan/gridscan/logging"
	"github.com/gridscan/gridscan/scanner"
	"github.com/gridscan/gridscan/testutils/inject"
)

func withDevices(t *testing.T, devices []camera.DeviceInfo, err error) {
	t.Helper()
	prev := MediaDevicesFactory
	MediaDevicesFactory = func(logging.Logger) camera.MediaDevices {
		return &inject.MediaDevices{
			EnumerateDevicesFunc: func(ctx context.Context) ([]camera.DeviceInfo, error) {
				return devices, err
			},
		}
	}
	t.Cleanup(func() { MediaDevicesFactory = prev })
}

func TestDevicesCommand(t *testing.T) {
	withDevices(t, []camera.DeviceInfo{
		{DeviceID: "video0", Label: "FaceTime HD Camera"},
		{DeviceID: "video2", Label: "USB Rear Camera"},
	}, nil)
	var out bytes.Buffer
	err := NewApp(&out).Run([]string{"gridscan", "devices"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldContainSubstring, "video0")
	test.That(t, out.String(), test.ShouldContainSubstring, "USB Rear Camera")

	withDevices(t, nil, nil)
	err = NewApp(&out).Run([]string{"gridscan", "devices"})
	test.That(t, errors.Is(err, camera.ErrHardwareUnavailable), test.ShouldBeTrue)
}

func TestScanRejectsBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")
	test.That(t, os.WriteFile(path, []byte(`{"scanner": {"min_boxes": -1}}`), 0o600), test.ShouldBeNil)

	var out bytes.Buffer
	err := NewApp(&out).Run([]string{"gridscan", "--config", path, "scan"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "min_boxes")
}

func TestScanHardwareUnavailable(t *testing.T) {
	prev := MediaDevicesFactory
	MediaDevicesFactory = func(logging.Logger) camera.MediaDevices {
		return &inject.MediaDevices{
			GetUserMediaFunc: func(ctx context.Context, constraints camera.Constraints) (camera.MediaStream, error) {
				test.That(t, constraints.DeviceID, test.ShouldEqual, "video9")
				return nil, errors.New("no such device")
			},
		}
	}
	t.Cleanup(func() { MediaDevicesFactory = prev })

	var out bytes.Buffer
	err := NewApp(&out).Run([]string{"gridscan", "scan", "--device", "video9"})
	test.That(t, errors.Is(err, camera.ErrHardwareUnavailable), test.ShouldBeTrue)
}

func TestWriteReport(t *testing.T) {
	snap := scanner.Snapshot{
		Ticks:      3,
		LastResult: scanner.TickUnsolved,
		Latencies:  map[string]float64{scanner.StageCapture: 1.5, scanner.StageClassify: 12.25},
	}
	var out bytes.Buffer
	test.That(t, writeReport(&out, snap, []float64{10, 20, 30}), test.ShouldBeNil)
	report := out.String()
	for _, stage := range scanner.Stages {
		test.That(t, report, test.ShouldContainSubstring, stage)
	}
	test.That(t, report, test.ShouldContainSubstring, "12.25")
	test.That(t, report, test.ShouldContainSubstring, "20.00")
	test.That(t, report, test.ShouldContainSubstring, "ticks: 3, last result: unsolved")

	out.Reset()
	test.That(t, writeReport(&out, scanner.Snapshot{}, nil), test.ShouldBeNil)
	test.That(t, out.String(), test.ShouldNotContainSubstring, "p95")
}

func TestLatencyRecorder(t *testing.T) {
	var r latencyRecorder
	r.observe(scanner.TickNoDetection, 3*time.Millisecond)
	r.observe(scanner.TickFailed, 1500*time.Microsecond)
	r.observe(scanner.TickUnsolved, 40*time.Millisecond)
	test.That(t, r.Totals(), test.ShouldResemble, []float64{3, 1.5, 40})

	// the totals are a copy
	r.Totals()[0] = 99
	test.That(t, r.Totals()[0], test.ShouldEqual, 3.0)
}

func TestLogProgress(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	logProgress(context.Background(), logger, scanner.Snapshot{
		Ticks:          7,
		LastResult:     scanner.TickRejected,
		LastTickMillis: 12.5,
	})
	entries := logs.FilterMessage("scanning").All()
	test.That(t, entries, test.ShouldHaveLength, 1)
	fields := entries[0].ContextMap()
	test.That(t, fields["ticks"], test.ShouldEqual, int64(7))
	test.That(t, fields["last_result"], test.ShouldEqual, "rejected")
	test.That(t, fields["last_tick_ms"], test.ShouldEqual, 12.5)
}

func TestFormatBoard(t *testing.T) {
	board := formatBoard("534678912672195348198342567859761423426853791713924856961537284287419635345286179")
	lines := strings.Split(strings.TrimSuffix(board, "\n"), "\n")
	test.That(t, lines, test.ShouldHaveLength, 11)
	test.That(t, lines[0], test.ShouldEqual, "5 3 4 | 6 7 8 | 9 1 2")
	test.That(t, lines[3], test.ShouldEqual, "------+-------+------")
}
