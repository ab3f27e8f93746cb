package scanner

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/gridscan/gridscan/rimage"
	"github.com/gridscan/gridscan/rimage/transform"
	"github.com/gridscan/gridscan/vision/classification"
	"github.com/gridscan/gridscan/vision/sudoku"
)

// frame is what one tick learned, committed to the scanner only when the tick did not fail.
type frame struct {
	result    TickResult
	detection detection
	boxes     []sudoku.Box
	solution  string
}

// Tick runs the pipeline once on the current frame. It does nothing unless the scanner is
// streaming and no other tick is in flight. Errors and panics inside the pipeline are logged and
// reported as TickFailed.
func (s *Scanner) Tick(ctx context.Context) (result TickResult) {
	if !s.processing.CompareAndSwap(false, true) {
		return TickSkippedBusy
	}
	defer s.processing.Store(false)

	s.mu.Lock()
	if s.state != Streaming {
		s.mu.Unlock()
		return TickNotStreaming
	}
	s.state = ProcessingFrame
	logger := s.logger.WithFields("session", s.session)
	s.mu.Unlock()

	start := s.clock.Now()
	var f frame
	defer func() {
		if r := recover(); r != nil {
			logger.CWarnw(ctx, "tick failed", "stage", "unknown", "error", fmt.Sprintf("panic: %v", r))
			f = frame{result: TickFailed}
		}
		result = s.commit(f, s.clock.Since(start))
	}()

	stage, err := s.process(ctx, &f)
	if err != nil {
		logger.CWarnw(ctx, "tick failed", "stage", stage, "error", err)
		f = frame{result: TickFailed}
		return
	}
	switch f.result {
	case TickNoDetection, TickRejected:
		logger.CDebugw(ctx, "no grid", "result", f.result.String(), "reason", stage)
	case TickSolved:
		logger.CInfow(ctx, "solved", "solution", f.solution)
	default:
	}
	return
}

// commit publishes the outcome of a tick and returns its result.
func (s *Scanner) commit(f frame, elapsed time.Duration) TickResult {
	s.mu.Lock()
	s.ticks++
	s.lastResult = f.result
	s.lastTick = elapsed
	switch f.result {
	case TickFailed:
		// the frame is dropped
	case TickNoDetection, TickRejected:
		s.detection = detection{}
		s.boxes = nil
	default:
		s.detection = f.detection
		s.boxes = f.boxes
	}
	if f.result == TickSolved {
		s.solution = f.solution
	}
	if s.state == ProcessingFrame {
		s.state = Streaming
	}
	s.mu.Unlock()

	if s.tickObserver != nil {
		s.tickObserver(f.result, elapsed)
	}
	if f.result == TickSolved {
		if err := s.StopVideo(context.Background()); err != nil {
			s.logger.Warnw("cannot release camera after solving", "error", err)
		}
	}
	return f.result
}

func (s *Scanner) observe(stage string, start time.Time) {
	s.stats[stage].AddDuration(s.clock.Since(start))
}

// process runs the pipeline stages in order, filling f. On error it returns the failing stage.
// For detection failures the returned stage names the reason.
func (s *Scanner) process(ctx context.Context, f *frame) (string, error) {
	start := s.clock.Now()
	gray, err := s.capturer.Capture(ctx)
	if err != nil {
		return StageCapture, err
	}
	s.observe(StageCapture, start)

	start = s.clock.Now()
	bin, err := rimage.AdaptiveThreshold(gray, s.conf.ThresholdBlockWidth, s.conf.ThresholdBlockHeight)
	if err != nil {
		return StageThreshold, err
	}
	s.observe(StageThreshold, start)

	start = s.clock.Now()
	bounds := bin.Bounds()
	constraints := s.conf.Component.Constraints(bounds.Dx(), bounds.Dy())
	cc, found := rimage.LargestComponent(bin, bounds, constraints)
	s.observe(StageConnectedComponent, start)
	if !found {
		f.result = TickNoDetection
		return StageConnectedComponent, nil
	}

	start = s.clock.Now()
	corners, err := sudoku.FindCorners(cc, s.conf.Sanity)
	s.observe(StageCorner, start)
	if err != nil {
		if errors.Is(err, sudoku.ErrCornersRejected) || errors.Is(err, sudoku.ErrNoComponent) {
			f.result = TickRejected
			return StageCorner, nil
		}
		return StageCorner, err
	}

	start = s.clock.Now()
	size := s.conf.ProcessingSize
	h, err := transform.SquareToQuad(float64(size), corners.Quad())
	if err != nil {
		if errors.Is(err, transform.ErrDegenerateQuad) {
			f.result = TickRejected
			return StageRectify, nil
		}
		return StageRectify, err
	}
	rectifiedGray, err := rimage.WarpGray(gray, h, size, rimage.Bilinear)
	if err != nil {
		return StageRectify, err
	}
	rectifiedBin, err := rimage.WarpGray(bin, h, size, rimage.NearestNeighbor)
	if err != nil {
		return StageRectify, err
	}
	s.observe(StageRectify, start)
	f.detection = detection{
		corners:   &corners,
		gridLines: sudoku.GridLines(h, float64(size)),
		transform: h,
	}

	start = s.clock.Now()
	boxes, err := sudoku.ExtractBoxes(rectifiedGray, rectifiedBin, s.conf.Boxes)
	if err != nil {
		return StageBoxExtract, err
	}
	s.observe(StageBoxExtract, start)
	f.boxes = withoutImages(boxes)
	if len(boxes) <= s.conf.MinBoxes {
		f.result = TickInsufficientContent
		return StageBoxExtract, nil
	}

	start = s.clock.Now()
	imgs := lo.Map(boxes, func(b sudoku.Box, _ int) image.Image { return b.Image })
	digits, err := classification.ClassifyDigits(ctx, s.classifier, imgs, s.postprocessors...)
	if err != nil {
		return StageClassify, err
	}
	s.observe(StageClassify, start)
	for i := range boxes {
		boxes[i].Contents = digits[i]
	}
	f.boxes = withoutImages(boxes)

	if f.solution = s.solve(boxes); f.solution == "" {
		f.result = TickUnsolved
		return "", nil
	}
	f.result = TickSolved
	return "", nil
}

func withoutImages(boxes []sudoku.Box) []sudoku.Box {
	return lo.Map(boxes, func(b sudoku.Box, _ int) sudoku.Box {
		b.Image = nil
		return b
	})
}
