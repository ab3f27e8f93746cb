package camera

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/gridscan/gridscan/logging"
)

var errNoFrame = errors.New("no frame available yet")

// Player plays an attached MediaStream: while playing it pumps frames from the first video track
// and keeps the latest one.
type Player struct {
	logger       logging.Logger
	pollInterval time.Duration

	mu        sync.Mutex
	reader    FrameReader
	attached  uint64
	frame     image.Image
	ready     chan struct{}
	readyOnce *sync.Once
	cancel    func()
	workers   sync.WaitGroup
}

// NewPlayer returns a Player that reads a new frame every pollInterval.
func NewPlayer(logger logging.Logger, pollInterval time.Duration) *Player {
	return &Player{
		logger:       logger,
		pollInterval: pollInterval,
		ready:        make(chan struct{}),
		readyOnce:    &sync.Once{},
	}
}

// Attach replaces the stream being played. Playback must be started again with Play.
func (p *Player) Attach(stream MediaStream) error {
	tracks := stream.VideoTracks()
	if len(tracks) == 0 {
		return errors.New("stream has no video track")
	}
	reader, err := tracks[0].NewFrameReader()
	if err != nil {
		return errors.Wrapf(err, "cannot read track %s", tracks[0].ID())
	}

	p.Pause()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reader = reader
	p.attached++
	p.frame = nil
	p.ready = make(chan struct{})
	p.readyOnce = &sync.Once{}
	return nil
}

// Play starts pumping frames. Playing an already playing source does nothing.
func (p *Player) Play(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reader == nil {
		return errors.New("no stream attached")
	}
	if p.cancel != nil {
		return nil
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	reader, attached := p.reader, p.attached
	p.workers.Add(1)
	goutils.ManagedGo(func() {
		for {
			if !goutils.SelectContextOrWait(cancelCtx, p.pollInterval) {
				return
			}
			p.readFrame(cancelCtx, reader, attached)
		}
	}, p.workers.Done)
	p.logger.CDebugw(ctx, "playing")
	return nil
}

// readFrame stores a frame read from the attachment numbered attached. Readers can be func-typed,
// so they are matched by attachment number rather than compared.
func (p *Player) readFrame(ctx context.Context, reader FrameReader, attached uint64) {
	img, release, err := reader.Read()
	if release != nil {
		defer release()
	}
	if err != nil {
		p.logger.CDebugw(ctx, "cannot read frame", "error", err)
		return
	}
	// the driver owns img's buffer
	frame := imaging.Clone(img)

	p.mu.Lock()
	defer p.mu.Unlock()
	if attached != p.attached {
		return
	}
	p.frame = frame
	p.readyOnce.Do(func() { close(p.ready) })
}

// Pause stops pumping frames. The last frame stays available. The pump exits once its current
// read returns.
func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// Wait blocks until the frame pump has exited after Pause.
func (p *Player) Wait() {
	p.workers.Wait()
}

// Ready is closed when the first frame of the attached stream is available.
func (p *Player) Ready() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// Size returns the dimensions of the current frame, or zero before the first frame.
func (p *Player) Size() image.Point {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frame == nil {
		return image.Point{}
	}
	return p.frame.Bounds().Size()
}

// Frame returns the latest frame. The returned image is never written to by the Player.
func (p *Player) Frame() (image.Image, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.frame == nil {
		return nil, errNoFrame
	}
	return p.frame, nil
}
