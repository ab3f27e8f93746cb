// Package scanner drives the per-frame loop that finds a puzzle grid in the camera feed, reads its
// digits and hands them to a solver until one succeeds.
package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/atomic"
	"go.uber.org/multierr"

	"github.com/gridscan/gridscan/components/camera"
	"github.com/gridscan/gridscan/logging"
	"github.com/gridscan/gridscan/rimage/transform"
	"github.com/gridscan/gridscan/solver"
	"github.com/gridscan/gridscan/utils"
	"github.com/gridscan/gridscan/vision/classification"
	"github.com/gridscan/gridscan/vision/sudoku"
)

var (
	// ErrAlreadyStarted is returned by StartVideo when the scanner is not idle.
	ErrAlreadyStarted = errors.New("scanner already started")
	// ErrStopped is returned by StartVideo once the scanner has stopped.
	ErrStopped = errors.New("scanner stopped")
)

// StreamInfo describes the acquired stream.
type StreamInfo struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithClock sets the clock that schedules ticks.
func WithClock(c clock.Clock) Option {
	return func(s *Scanner) {
		s.clock = c
	}
}

// WithPostprocessors sets the filters applied to each cell's classifications before a digit is
// picked.
func WithPostprocessors(pp ...classification.Postprocessor) Option {
	return func(s *Scanner) {
		s.postprocessors = pp
	}
}

// WithTickObserver sets a function told the result and wall time of every tick that ran. It is
// called after the tick is committed, outside of any lock.
func WithTickObserver(fn func(TickResult, time.Duration)) Option {
	return func(s *Scanner) {
		s.tickObserver = fn
	}
}

// Scanner owns a camera stream and runs the recognition pipeline on it. Ticks are never
// concurrent; a tick requested while one is in flight is dropped.
type Scanner struct {
	conf           Config
	devices        camera.MediaDevices
	source         camera.VideoSource
	capturer       *camera.Capturer
	classifier     classification.DigitClassifier
	postprocessors []classification.Postprocessor
	tickObserver   func(TickResult, time.Duration)
	solve          solver.Func
	clock          clock.Clock
	logger         logging.Logger

	processing atomic.Bool
	stats      map[string]*utils.ExponentialAverage

	mu         sync.Mutex
	state      State
	starting   bool
	session    string
	stream     camera.MediaStream
	cancelRun  context.CancelFunc
	runCtx     context.Context
	timer      *clock.Timer
	streamInfo StreamInfo
	detection  detection
	boxes      []sudoku.Box
	solution   string
	ticks      int
	lastResult TickResult
	lastTick   time.Duration
	onReady    func(StreamInfo)
	readyFired bool
	done       chan struct{}
}

// detection is the geometry committed by the last tick that found a grid.
type detection struct {
	corners   *sudoku.Corners
	gridLines []sudoku.GridLine
	transform *transform.Homography
}

// New returns an idle Scanner. solve is called with the classified boxes; a non-empty result ends
// the scan.
func New(
	conf Config,
	devices camera.MediaDevices,
	source camera.VideoSource,
	classifier classification.DigitClassifier,
	solve solver.Func,
	logger logging.Logger,
	opts ...Option,
) (*Scanner, error) {
	if err := conf.Validate("scanner"); err != nil {
		return nil, err
	}
	if devices == nil || source == nil || classifier == nil || solve == nil {
		return nil, errors.New("scanner needs media devices, a video source, a classifier and a solver")
	}
	s := &Scanner{
		conf:       conf,
		devices:    devices,
		source:     source,
		capturer:   camera.NewCapturer(source),
		classifier: classifier,
		solve:      solve,
		clock:      clock.New(),
		logger:     logger,
		stats:      make(map[string]*utils.ExponentialAverage, len(Stages)),
		done:       make(chan struct{}),
	}
	for _, stage := range Stages {
		s.stats[stage] = utils.NewExponentialAverage(conf.EMAWeight)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// OnStreamReady registers the callback told about the stream once its first frame is available.
// It fires at most once; registering after the stream became ready fires it immediately.
func (s *Scanner) OnStreamReady(fn func(StreamInfo)) {
	s.mu.Lock()
	if !s.readyFired {
		s.onReady = fn
		s.mu.Unlock()
		return
	}
	info := s.streamInfo
	s.mu.Unlock()
	fn(info)
}

// StartVideo acquires a camera stream with the given constraints, waits for its first frame and
// starts the tick loop. A failure to acquire the camera is returned wrapping
// camera.ErrHardwareUnavailable.
func (s *Scanner) StartVideo(ctx context.Context, constraints camera.Constraints) (err error) {
	s.mu.Lock()
	switch {
	case s.state == Stopped:
		s.mu.Unlock()
		return ErrStopped
	case s.state != Idle || s.starting:
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.starting = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.starting = false
		s.mu.Unlock()
	}()

	stream, err := s.devices.GetUserMedia(ctx, constraints)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, camera.ErrHardwareUnavailable) {
			err = errors.Wrapf(camera.ErrHardwareUnavailable, "%v", err)
		}
		return err
	}
	// StopVideo releases the stream from here on, even before the first frame.
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		if err := stopTracks(stream); err != nil {
			s.logger.Warnw("cannot release camera after stop", "error", err)
		}
		return ErrStopped
	}
	s.stream = stream
	s.mu.Unlock()
	guard := utils.NewGuard(func() {
		s.mu.Lock()
		if s.state == Stopped {
			// released by StopVideo
			s.mu.Unlock()
			return
		}
		s.stream = nil
		s.mu.Unlock()
		s.source.Pause()
		if err := stopTracks(stream); err != nil {
			s.logger.Warnw("cannot release camera after failed start", "error", err)
		}
	})
	defer guard.OnFail()

	if err := s.source.Attach(stream); err != nil {
		return errors.Wrap(err, "cannot attach stream")
	}
	if err := s.source.Play(ctx); err != nil {
		return errors.Wrap(err, "cannot play stream")
	}
	stopSlowLog := utils.SlowLogger(ctx, "waiting for first camera frame", "device", constraints.DeviceID, s.logger)
	select {
	case <-s.source.Ready():
		stopSlowLog()
	case <-s.done:
		stopSlowLog()
		return ErrStopped
	case <-ctx.Done():
		stopSlowLog()
		return ctx.Err()
	}
	size := s.source.Size()
	info := StreamInfo{Width: size.X, Height: size.Y}

	s.mu.Lock()
	if s.state == Stopped {
		// StopVideo raced with the start
		s.mu.Unlock()
		return ErrStopped
	}
	guard.Success()
	s.state = Streaming
	s.session = uuid.NewString()
	s.streamInfo = info
	s.runCtx, s.cancelRun = context.WithCancel(context.Background())
	onReady := s.onReady
	s.readyFired = true
	s.onReady = nil
	logger := s.logger.WithFields("session", s.session)
	s.scheduleLocked()
	s.mu.Unlock()

	logger.CInfow(ctx, "stream ready", "width", info.Width, "height", info.Height)
	if onReady != nil {
		onReady(info)
	}
	return nil
}

// StopVideo pauses the video source, stops every track of the acquired stream and moves the
// scanner to Stopped. An in-flight tick completes but no further tick runs. Calling it again does
// nothing.
func (s *Scanner) StopVideo(ctx context.Context) error {
	s.mu.Lock()
	if s.state == Stopped {
		s.mu.Unlock()
		return nil
	}
	s.state = Stopped
	if s.cancelRun != nil {
		s.cancelRun()
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	stream := s.stream
	session := s.session
	s.mu.Unlock()

	s.source.Pause()
	err := stopTracks(stream)
	close(s.done)
	s.logger.CInfow(ctx, "stream stopped", "session", session, "error", err)
	return err
}

func stopTracks(stream camera.MediaStream) error {
	if stream == nil {
		return nil
	}
	var err error
	for _, track := range stream.VideoTracks() {
		err = multierr.Combine(err, errors.Wrapf(track.Stop(), "cannot stop track %s", track.ID()))
	}
	return err
}

// Done is closed once the scanner has stopped.
func (s *Scanner) Done() <-chan struct{} {
	return s.done
}

// scheduleLocked arms the timer for the next tick. s.mu must be held.
func (s *Scanner) scheduleLocked() {
	if s.state != Streaming && s.state != ProcessingFrame {
		return
	}
	runCtx := s.runCtx
	s.timer = s.clock.AfterFunc(s.conf.TickDelay, func() {
		if runCtx.Err() != nil {
			return
		}
		// an in-flight tick is not aborted by StopVideo
		switch s.Tick(context.WithoutCancel(runCtx)) {
		case TickSolved, TickNotStreaming:
			return
		default:
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if runCtx.Err() != nil {
			return
		}
		s.scheduleLocked()
	})
}

// Snapshot is a read-only copy of the scanner's state for overlays and diagnostics.
type Snapshot struct {
	State   State      `json:"state"`
	Session string     `json:"session,omitempty"`
	Stream  StreamInfo `json:"stream"`
	// ProcessingSize is the side of the canonical square Transform maps from.
	ProcessingSize int `json:"processing_size"`
	// Corners and GridLines are nil unless the last completed tick found a grid.
	Corners   *sudoku.Corners       `json:"corners,omitempty"`
	GridLines []sudoku.GridLine     `json:"grid_lines,omitempty"`
	Transform *transform.Homography `json:"-"`
	// Boxes are the last classified boxes, without their images.
	Boxes []sudoku.Box `json:"boxes,omitempty"`
	// Latencies holds the smoothed latency of each stage in milliseconds.
	Latencies  map[string]float64 `json:"latencies"`
	Ticks      int                `json:"ticks"`
	LastResult TickResult         `json:"last_result"`
	// LastTickMillis is the unsmoothed wall time of the last tick that ran.
	LastTickMillis float64 `json:"last_tick_ms"`
	Solution       string  `json:"solution,omitempty"`
}

// Snapshot returns a copy of the current state. It is consistent between ticks; during a tick it
// reflects the last committed one.
func (s *Scanner) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		State:          s.state,
		Session:        s.session,
		Stream:         s.streamInfo,
		ProcessingSize: s.conf.ProcessingSize,
		GridLines:      append([]sudoku.GridLine(nil), s.detection.gridLines...),
		Boxes:          append([]sudoku.Box(nil), s.boxes...),
		Latencies:      lo.MapValues(s.stats, func(ea *utils.ExponentialAverage, _ string) float64 { return ea.Value() }),
		Ticks:          s.ticks,
		LastResult:     s.lastResult,
		LastTickMillis: float64(s.lastTick) / float64(time.Millisecond),
		Solution:       s.solution,
	}
	if s.detection.corners != nil {
		c := *s.detection.corners
		snap.Corners = &c
	}
	if s.detection.transform != nil {
		h := *s.detection.transform
		snap.Transform = &h
	}
	if len(snap.GridLines) == 0 {
		snap.GridLines = nil
	}
	if len(snap.Boxes) == 0 {
		snap.Boxes = nil
	}
	return snap
}
