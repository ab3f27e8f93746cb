package scanner_test

import (
	"context"
	"fmt"
	"image"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"go.viam.com/test"
	"go.viam.com/utils/testutils"

	"github.com/gridscan/gridscan/components/camera"
	"github.com/gridscan/gridscan/logging"
	"github.com/gridscan/gridscan/scanner"
	gtestutils "github.com/gridscan/gridscan/testutils"
	"github.com/gridscan/gridscan/testutils/inject"
	"github.com/gridscan/gridscan/vision/classification"
	"github.com/gridscan/gridscan/vision/sudoku"
)

func TestMain(m *testing.M) {
	gtestutils.VerifyTestMain(m)
}

type harness struct {
	s      *scanner.Scanner
	clk    *clock.Mock
	logs   *observer.ObservedLogs
	source *inject.VideoSource
	dev    *inject.MediaDevices

	mu       sync.Mutex
	frame    image.Image
	frameErr error

	frameReads    atomic.Int32
	pauses        atomic.Int32
	trackStops    []*atomic.Int32
	classifyCalls atomic.Int32
	solveCalls    atomic.Int32
	classify      func(ctx context.Context, imgs []image.Image) ([]classification.Classifications, error)
	solution      string
}

func ones(_ context.Context, imgs []image.Image) ([]classification.Classifications, error) {
	out := make([]classification.Classifications, len(imgs))
	for i := range imgs {
		out[i] = classification.Classifications{classification.NewClassification(0.9, "1")}
	}
	return out, nil
}

func newHarness(t *testing.T, numTracks int, opts ...scanner.Option) *harness {
	t.Helper()
	logger, logs := logging.NewObservedTestLogger(t)
	h := &harness{clk: clock.NewMock(), logs: logs, classify: ones}

	tracks := make([]camera.Track, 0, numTracks)
	for i := 0; i < numTracks; i++ {
		stops := atomic.NewInt32(0)
		h.trackStops = append(h.trackStops, stops)
		id := fmt.Sprintf("track-%d", i)
		tracks = append(tracks, &inject.Track{
			IDFunc: func() string { return id },
			StopFunc: func() error {
				stops.Inc()
				return nil
			},
		})
	}
	stream := &inject.MediaStream{VideoTracksFunc: func() []camera.Track { return tracks }}
	h.dev = &inject.MediaDevices{
		GetUserMediaFunc: func(ctx context.Context, constraints camera.Constraints) (camera.MediaStream, error) {
			return stream, nil
		},
	}

	ready := make(chan struct{})
	close(ready)
	h.source = &inject.VideoSource{
		AttachFunc: func(stream camera.MediaStream) error { return nil },
		PlayFunc:   func(ctx context.Context) error { return nil },
		PauseFunc:  func() { h.pauses.Inc() },
		ReadyFunc:  func() <-chan struct{} { return ready },
		SizeFunc: func() image.Point {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.frame == nil {
				return image.Point{}
			}
			return h.frame.Bounds().Size()
		},
		FrameFunc: func() (image.Image, error) {
			h.frameReads.Inc()
			h.mu.Lock()
			defer h.mu.Unlock()
			return h.frame, h.frameErr
		},
	}

	classifier := &inject.DigitClassifier{
		ClassifyFunc: func(ctx context.Context, imgs []image.Image) ([]classification.Classifications, error) {
			h.classifyCalls.Inc()
			return h.classify(ctx, imgs)
		},
	}
	solve := func(boxes []sudoku.Box) string {
		h.solveCalls.Inc()
		return h.solution
	}

	s, err := scanner.New(scanner.DefaultConfig(), h.dev, h.source, classifier, solve, logger,
		append([]scanner.Option{scanner.WithClock(h.clk)}, opts...)...)
	test.That(t, err, test.ShouldBeNil)
	h.s = s
	t.Cleanup(func() {
		test.That(t, s.StopVideo(context.Background()), test.ShouldBeNil)
	})
	return h
}

func (h *harness) setFrame(img image.Image, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frame = img
	h.frameErr = err
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	test.That(t, h.s.StartVideo(context.Background(), camera.Constraints{Facing: camera.FacingEnvironment}), test.ShouldBeNil)
}

// cells returns n distinct cells spread over the grid.
func cells(n int) []image.Point {
	out := make([]image.Point, 0, n)
	for i := 0; i < n; i++ {
		idx := (i * 4) % 81
		out = append(out, image.Point{X: idx % 9, Y: idx / 9})
	}
	return out
}

func gridFrame(t *testing.T, filled []image.Point) image.Image {
	t.Helper()
	img, err := gtestutils.CenteredGridFrame(640, 480, 400, filled...).Draw()
	test.That(t, err, test.ShouldBeNil)
	return img
}

func shouldBeNear(t *testing.T, got, want r2.Point) {
	t.Helper()
	test.That(t, got.X, test.ShouldAlmostEqual, want.X, 5.0)
	test.That(t, got.Y, test.ShouldAlmostEqual, want.Y, 5.0)
}

func positions(boxes []sudoku.Box) map[image.Point]bool {
	out := map[image.Point]bool{}
	for _, b := range boxes {
		out[image.Point{X: b.X, Y: b.Y}] = true
	}
	return out
}

func TestStartVideo(t *testing.T) {
	t.Run("hardware unavailable", func(t *testing.T) {
		h := newHarness(t, 1)
		h.dev.GetUserMediaFunc = func(ctx context.Context, constraints camera.Constraints) (camera.MediaStream, error) {
			return nil, errors.New("permission denied")
		}
		err := h.s.StartVideo(context.Background(), camera.Constraints{})
		test.That(t, errors.Is(err, camera.ErrHardwareUnavailable), test.ShouldBeTrue)
		test.That(t, err.Error(), test.ShouldContainSubstring, "permission denied")
		test.That(t, h.s.Snapshot().State, test.ShouldEqual, scanner.Idle)
		test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickNotStreaming)
		test.That(t, h.frameReads.Load(), test.ShouldEqual, int32(0))
	})

	t.Run("play failure releases the stream", func(t *testing.T) {
		h := newHarness(t, 2)
		h.source.PlayFunc = func(ctx context.Context) error { return errors.New("no video element") }
		err := h.s.StartVideo(context.Background(), camera.Constraints{})
		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, h.pauses.Load(), test.ShouldEqual, int32(1))
		for _, stops := range h.trackStops {
			test.That(t, stops.Load(), test.ShouldEqual, int32(1))
		}
		test.That(t, h.s.Snapshot().State, test.ShouldEqual, scanner.Idle)
	})

	t.Run("cancelled while waiting for the first frame", func(t *testing.T) {
		h := newHarness(t, 1)
		never := make(chan struct{})
		h.source.ReadyFunc = func() <-chan struct{} { return never }
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := h.s.StartVideo(ctx, camera.Constraints{})
		test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
		test.That(t, h.trackStops[0].Load(), test.ShouldEqual, int32(1))
	})

	t.Run("stopped while waiting for the first frame", func(t *testing.T) {
		h := newHarness(t, 2)
		never := make(chan struct{})
		waiting := make(chan struct{})
		var once sync.Once
		h.source.ReadyFunc = func() <-chan struct{} {
			once.Do(func() { close(waiting) })
			return never
		}
		errs := make(chan error, 1)
		go func() {
			errs <- h.s.StartVideo(context.Background(), camera.Constraints{})
		}()
		<-waiting

		test.That(t, h.s.StopVideo(context.Background()), test.ShouldBeNil)
		for _, stops := range h.trackStops {
			test.That(t, stops.Load(), test.ShouldEqual, int32(1))
		}
		select {
		case err := <-errs:
			test.That(t, err, test.ShouldBeError, scanner.ErrStopped)
		case <-time.After(5 * time.Second):
			t.Fatal("StartVideo still blocked after StopVideo")
		}
		// the start does not release the stream a second time
		for _, stops := range h.trackStops {
			test.That(t, stops.Load(), test.ShouldEqual, int32(1))
		}
		test.That(t, h.pauses.Load(), test.ShouldEqual, int32(1))
		test.That(t, h.s.Snapshot().State, test.ShouldEqual, scanner.Stopped)
	})

	t.Run("stopped while acquiring the camera", func(t *testing.T) {
		h := newHarness(t, 1)
		acquiring := make(chan struct{})
		proceed := make(chan struct{})
		get := h.dev.GetUserMediaFunc
		h.dev.GetUserMediaFunc = func(ctx context.Context, constraints camera.Constraints) (camera.MediaStream, error) {
			close(acquiring)
			<-proceed
			return get(ctx, constraints)
		}
		errs := make(chan error, 1)
		go func() {
			errs <- h.s.StartVideo(context.Background(), camera.Constraints{})
		}()
		<-acquiring
		test.That(t, h.s.StopVideo(context.Background()), test.ShouldBeNil)
		close(proceed)

		test.That(t, <-errs, test.ShouldBeError, scanner.ErrStopped)
		test.That(t, h.trackStops[0].Load(), test.ShouldEqual, int32(1))
	})

	t.Run("ready", func(t *testing.T) {
		h := newHarness(t, 1)
		h.setFrame(gtestutils.NoiseFrame(640, 480, 1), nil)
		var infos []scanner.StreamInfo
		h.s.OnStreamReady(func(info scanner.StreamInfo) { infos = append(infos, info) })
		h.start(t)
		test.That(t, infos, test.ShouldResemble, []scanner.StreamInfo{{Width: 640, Height: 480}})

		snap := h.s.Snapshot()
		test.That(t, snap.State, test.ShouldEqual, scanner.Streaming)
		test.That(t, snap.Session, test.ShouldNotBeEmpty)
		test.That(t, snap.Stream, test.ShouldResemble, scanner.StreamInfo{Width: 640, Height: 480})
		test.That(t, h.logs.FilterMessage("stream ready").Len(), test.ShouldEqual, 1)

		// no tick before the first delay
		test.That(t, h.frameReads.Load(), test.ShouldEqual, int32(0))

		err := h.s.StartVideo(context.Background(), camera.Constraints{})
		test.That(t, err, test.ShouldBeError, scanner.ErrAlreadyStarted)
		test.That(t, infos, test.ShouldHaveLength, 1)

		var late []scanner.StreamInfo
		h.s.OnStreamReady(func(info scanner.StreamInfo) { late = append(late, info) })
		test.That(t, late, test.ShouldResemble, infos)
	})
}

func TestStopVideo(t *testing.T) {
	h := newHarness(t, 2)
	h.setFrame(gtestutils.NoiseFrame(640, 480, 1), nil)
	h.start(t)

	test.That(t, h.s.StopVideo(context.Background()), test.ShouldBeNil)
	test.That(t, h.s.StopVideo(context.Background()), test.ShouldBeNil)
	test.That(t, h.pauses.Load(), test.ShouldEqual, int32(1))
	for _, stops := range h.trackStops {
		test.That(t, stops.Load(), test.ShouldEqual, int32(1))
	}
	test.That(t, h.s.Snapshot().State, test.ShouldEqual, scanner.Stopped)
	select {
	case <-h.s.Done():
	default:
		t.Fatal("done should be closed")
	}
	test.That(t, h.logs.FilterMessage("stream stopped").Len(), test.ShouldEqual, 1)

	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickNotStreaming)
	h.clk.Add(time.Second)
	test.That(t, h.frameReads.Load(), test.ShouldEqual, int32(0))

	err := h.s.StartVideo(context.Background(), camera.Constraints{})
	test.That(t, err, test.ShouldBeError, scanner.ErrStopped)
}

func TestStopVideoTrackError(t *testing.T) {
	h := newHarness(t, 1)
	h.setFrame(gtestutils.NoiseFrame(64, 48, 1), nil)
	h.start(t)
	stops := h.trackStops[0]
	stream, err := h.dev.GetUserMedia(context.Background(), camera.Constraints{})
	test.That(t, err, test.ShouldBeNil)
	track := stream.VideoTracks()[0].(*inject.Track)
	track.StopFunc = func() error {
		stops.Inc()
		return errors.New("device busy")
	}
	err = h.s.StopVideo(context.Background())
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "track-0")
	test.That(t, stops.Load(), test.ShouldEqual, int32(1))
	test.That(t, h.s.Snapshot().State, test.ShouldEqual, scanner.Stopped)
}

func TestTickReentrancy(t *testing.T) {
	h := newHarness(t, 1)
	h.setFrame(gridFrame(t, cells(20)), nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	h.classify = func(ctx context.Context, imgs []image.Image) ([]classification.Classifications, error) {
		close(entered)
		<-release
		return ones(ctx, imgs)
	}
	h.start(t)

	results := make(chan scanner.TickResult, 1)
	go func() {
		results <- h.s.Tick(context.Background())
	}()
	<-entered
	test.That(t, h.s.Snapshot().State, test.ShouldEqual, scanner.ProcessingFrame)
	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickSkippedBusy)
	test.That(t, h.frameReads.Load(), test.ShouldEqual, int32(1))

	// stopping does not abort the tick in flight
	test.That(t, h.s.StopVideo(context.Background()), test.ShouldBeNil)
	close(release)
	test.That(t, <-results, test.ShouldEqual, scanner.TickUnsolved)

	snap := h.s.Snapshot()
	test.That(t, snap.State, test.ShouldEqual, scanner.Stopped)
	test.That(t, snap.Boxes, test.ShouldHaveLength, 20)
	test.That(t, h.classifyCalls.Load(), test.ShouldEqual, int32(1))
	test.That(t, h.solveCalls.Load(), test.ShouldEqual, int32(1))
}

func TestScenarioGridFound(t *testing.T) {
	h := newHarness(t, 1)
	filled := cells(20)
	h.setFrame(gridFrame(t, filled), nil)
	var seen int
	h.classify = func(ctx context.Context, imgs []image.Image) ([]classification.Classifications, error) {
		seen = len(imgs)
		for _, img := range imgs {
			test.That(t, img.Bounds().Dx(), test.ShouldEqual, img.Bounds().Dy())
		}
		return ones(ctx, imgs)
	}
	h.start(t)

	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickUnsolved)
	snap := h.s.Snapshot()
	test.That(t, snap.State, test.ShouldEqual, scanner.Streaming)
	test.That(t, snap.Corners, test.ShouldNotBeNil)
	shouldBeNear(t, snap.Corners.TopLeft, r2.Point{X: 120, Y: 40})
	shouldBeNear(t, snap.Corners.TopRight, r2.Point{X: 520, Y: 40})
	shouldBeNear(t, snap.Corners.BottomLeft, r2.Point{X: 120, Y: 440})
	shouldBeNear(t, snap.Corners.BottomRight, r2.Point{X: 520, Y: 440})

	test.That(t, snap.GridLines, test.ShouldHaveLength, 16)
	step := 400.0 / 9
	for i, line := range snap.GridLines[:8] {
		y := 40 + float64(i+1)*step
		shouldBeNear(t, line.P1, r2.Point{X: 120, Y: y})
		shouldBeNear(t, line.P2, r2.Point{X: 520, Y: y})
	}
	for i, line := range snap.GridLines[8:] {
		x := 120 + float64(i+1)*step
		shouldBeNear(t, line.P1, r2.Point{X: x, Y: 40})
		shouldBeNear(t, line.P2, r2.Point{X: x, Y: 440})
	}

	want := map[image.Point]bool{}
	for _, c := range filled {
		want[c] = true
	}
	test.That(t, positions(snap.Boxes), test.ShouldResemble, want)
	for _, b := range snap.Boxes {
		test.That(t, b.Contents, test.ShouldEqual, 1)
		test.That(t, b.Image, test.ShouldBeNil)
	}
	test.That(t, seen, test.ShouldEqual, 20)
	test.That(t, h.solveCalls.Load(), test.ShouldEqual, int32(1))

	test.That(t, snap.Ticks, test.ShouldEqual, 1)
	test.That(t, snap.LastResult, test.ShouldEqual, scanner.TickUnsolved)
	test.That(t, snap.Latencies, test.ShouldHaveLength, len(scanner.Stages))
	for _, stage := range scanner.Stages {
		_, ok := snap.Latencies[stage]
		test.That(t, ok, test.ShouldBeTrue)
	}
}

func TestScenarioNoGrid(t *testing.T) {
	h := newHarness(t, 1)
	h.setFrame(gridFrame(t, cells(5)), nil)
	h.start(t)
	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickInsufficientContent)
	test.That(t, h.s.Snapshot().Corners, test.ShouldNotBeNil)

	h.setFrame(gtestutils.NoiseFrame(640, 480, 42), nil)
	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickNoDetection)
	snap := h.s.Snapshot()
	test.That(t, snap.Corners, test.ShouldBeNil)
	test.That(t, snap.GridLines, test.ShouldBeNil)
	test.That(t, snap.Boxes, test.ShouldBeNil)
	test.That(t, snap.State, test.ShouldEqual, scanner.Streaming)
	test.That(t, h.classifyCalls.Load(), test.ShouldEqual, int32(0))
	test.That(t, h.solveCalls.Load(), test.ShouldEqual, int32(0))
	test.That(t, h.logs.FilterMessage("no grid").Len(), test.ShouldEqual, 1)
}

func TestScenarioRejectedCorners(t *testing.T) {
	h := newHarness(t, 1)
	h.setFrame(gridFrame(t, cells(5)), nil)
	h.start(t)
	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickInsufficientContent)

	// a 3:1 bar turned so its bounding box looks square
	h.setFrame(gtestutils.RotatedRectFrame(640, 480, r2.Point{X: 320, Y: 240}, 300, 100, 40), nil)
	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickRejected)
	snap := h.s.Snapshot()
	test.That(t, snap.Corners, test.ShouldBeNil)
	test.That(t, snap.GridLines, test.ShouldBeNil)
	test.That(t, snap.Transform, test.ShouldBeNil)
	test.That(t, h.classifyCalls.Load(), test.ShouldEqual, int32(0))
}

func TestScenarioInsufficientContent(t *testing.T) {
	h := newHarness(t, 1)
	h.setFrame(gridFrame(t, cells(14)), nil)
	h.start(t)
	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickInsufficientContent)
	snap := h.s.Snapshot()
	test.That(t, snap.Corners, test.ShouldNotBeNil)
	test.That(t, snap.GridLines, test.ShouldHaveLength, 16)
	test.That(t, snap.Boxes, test.ShouldHaveLength, 14)
	for _, b := range snap.Boxes {
		test.That(t, b.Contents, test.ShouldEqual, 0)
	}
	test.That(t, h.classifyCalls.Load(), test.ShouldEqual, int32(0))
	test.That(t, h.solveCalls.Load(), test.ShouldEqual, int32(0))
	test.That(t, snap.Latencies[scanner.StageClassify], test.ShouldEqual, 0.0)
}

func TestMinBoxesBoundary(t *testing.T) {
	h := newHarness(t, 1)
	h.start(t)

	h.setFrame(gridFrame(t, cells(15)), nil)
	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickInsufficientContent)
	test.That(t, h.s.Snapshot().Boxes, test.ShouldHaveLength, 15)
	test.That(t, h.classifyCalls.Load(), test.ShouldEqual, int32(0))
	test.That(t, h.solveCalls.Load(), test.ShouldEqual, int32(0))

	h.setFrame(gridFrame(t, cells(16)), nil)
	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickUnsolved)
	test.That(t, h.s.Snapshot().Boxes, test.ShouldHaveLength, 16)
	test.That(t, h.classifyCalls.Load(), test.ShouldEqual, int32(1))
	test.That(t, h.solveCalls.Load(), test.ShouldEqual, int32(1))
}

func TestTickObserver(t *testing.T) {
	var mu sync.Mutex
	var results []scanner.TickResult
	var elapsed []time.Duration
	h := newHarness(t, 1, scanner.WithTickObserver(func(r scanner.TickResult, d time.Duration) {
		mu.Lock()
		defer mu.Unlock()
		results = append(results, r)
		elapsed = append(elapsed, d)
	}))
	h.setFrame(gtestutils.NoiseFrame(320, 240, 7), nil)
	h.start(t)

	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickNoDetection)
	h.setFrame(nil, errors.New("camera unplugged"))
	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickFailed)
	test.That(t, h.s.StopVideo(context.Background()), test.ShouldBeNil)
	// ticks that did not run are not observed
	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickNotStreaming)

	mu.Lock()
	defer mu.Unlock()
	test.That(t, results, test.ShouldResemble, []scanner.TickResult{scanner.TickNoDetection, scanner.TickFailed})
	// the mock clock does not move during a tick
	test.That(t, elapsed, test.ShouldResemble, []time.Duration{0, 0})
	test.That(t, h.s.Snapshot().LastTickMillis, test.ShouldEqual, 0.0)
}

func TestScenarioSolvedStopsLoop(t *testing.T) {
	h := newHarness(t, 2)
	h.setFrame(gridFrame(t, cells(20)), nil)
	h.solution = "534678912672195348198342567859761423426853791713924856961537284287419635345286179"
	h.start(t)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		h.clk.Add(20 * time.Millisecond)
		test.That(tb, h.s.Snapshot().State, test.ShouldEqual, scanner.Stopped)
	})
	select {
	case <-h.s.Done():
	case <-time.After(time.Second):
		t.Fatal("scanner did not stop")
	}

	snap := h.s.Snapshot()
	test.That(t, snap.LastResult, test.ShouldEqual, scanner.TickSolved)
	test.That(t, snap.Solution, test.ShouldEqual, h.solution)
	test.That(t, h.solveCalls.Load(), test.ShouldEqual, int32(1))
	test.That(t, h.pauses.Load(), test.ShouldEqual, int32(1))
	for _, stops := range h.trackStops {
		test.That(t, stops.Load(), test.ShouldEqual, int32(1))
	}

	reads := h.frameReads.Load()
	h.clk.Add(time.Second)
	time.Sleep(50 * time.Millisecond)
	test.That(t, h.frameReads.Load(), test.ShouldEqual, reads)
	test.That(t, h.logs.FilterMessage("solved").Len(), test.ShouldEqual, 1)
}

func TestLoopKeepsTicking(t *testing.T) {
	h := newHarness(t, 1)
	h.setFrame(gtestutils.NoiseFrame(320, 240, 7), nil)
	h.start(t)

	testutils.WaitForAssertion(t, func(tb testing.TB) {
		tb.Helper()
		h.clk.Add(20 * time.Millisecond)
		test.That(tb, h.s.Snapshot().Ticks, test.ShouldBeGreaterThanOrEqualTo, 3)
	})
	test.That(t, h.s.Snapshot().LastResult, test.ShouldEqual, scanner.TickNoDetection)
	test.That(t, h.s.StopVideo(context.Background()), test.ShouldBeNil)
}

func TestTickFailures(t *testing.T) {
	h := newHarness(t, 1)
	h.setFrame(gridFrame(t, cells(5)), nil)
	h.start(t)
	test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickInsufficientContent)

	t.Run("capture error keeps the last detection", func(t *testing.T) {
		h.setFrame(nil, errors.New("camera unplugged"))
		test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickFailed)
		snap := h.s.Snapshot()
		test.That(t, snap.State, test.ShouldEqual, scanner.Streaming)
		test.That(t, snap.Corners, test.ShouldNotBeNil)
		test.That(t, snap.Boxes, test.ShouldHaveLength, 5)

		failed := h.logs.FilterMessage("tick failed").FilterField(zap.String("stage", scanner.StageCapture))
		test.That(t, failed.Len(), test.ShouldEqual, 1)
		test.That(t, failed.All()[0].Level, test.ShouldEqual, zapcore.WarnLevel)
	})

	t.Run("classifier panic", func(t *testing.T) {
		h.setFrame(gridFrame(t, cells(20)), nil)
		h.classify = func(ctx context.Context, imgs []image.Image) ([]classification.Classifications, error) {
			panic("model crashed")
		}
		test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickFailed)
		snap := h.s.Snapshot()
		test.That(t, snap.State, test.ShouldEqual, scanner.Streaming)
		test.That(t, snap.Boxes, test.ShouldHaveLength, 5)
		test.That(t, h.logs.FilterMessage("tick failed").FilterField(zap.String("stage", "unknown")).Len(), test.ShouldEqual, 1)
	})

	t.Run("classifier error", func(t *testing.T) {
		h.classify = func(ctx context.Context, imgs []image.Image) ([]classification.Classifications, error) {
			return nil, errors.New("timeout")
		}
		test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickFailed)
		test.That(t, h.logs.FilterMessage("tick failed").FilterField(zap.String("stage", scanner.StageClassify)).Len(), test.ShouldEqual, 1)
	})

	t.Run("recovers", func(t *testing.T) {
		h.classify = ones
		test.That(t, h.s.Tick(context.Background()), test.ShouldEqual, scanner.TickUnsolved)
		test.That(t, h.s.Snapshot().Boxes, test.ShouldHaveLength, 20)
		test.That(t, h.s.Snapshot().Ticks, test.ShouldEqual, 5)
	})
}

func TestNewValidates(t *testing.T) {
	logger := logging.NewTestLogger(t)
	conf := scanner.DefaultConfig()
	classifier := &inject.DigitClassifier{}
	solve := func([]sudoku.Box) string { return "" }

	_, err := scanner.New(conf, nil, &inject.VideoSource{}, classifier, solve, logger)
	test.That(t, err, test.ShouldNotBeNil)

	conf.ProcessingSize = 100
	_, err = scanner.New(conf, &inject.MediaDevices{}, &inject.VideoSource{}, classifier, solve, logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "processing_size")
}
