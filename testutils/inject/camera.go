// Package inject provides test doubles whose behavior is set through function fields.
package inject

import (
	"context"
	"image"

	"github.com/gridscan/gridscan/components/camera"
)

// MediaDevices is an injected camera.MediaDevices.
type MediaDevices struct {
	camera.MediaDevices
	EnumerateDevicesFunc func(ctx context.Context) ([]camera.DeviceInfo, error)
	GetUserMediaFunc     func(ctx context.Context, constraints camera.Constraints) (camera.MediaStream, error)
}

// EnumerateDevices calls the injected EnumerateDevices or the real version.
func (m *MediaDevices) EnumerateDevices(ctx context.Context) ([]camera.DeviceInfo, error) {
	if m.EnumerateDevicesFunc == nil {
		return m.MediaDevices.EnumerateDevices(ctx)
	}
	return m.EnumerateDevicesFunc(ctx)
}

// GetUserMedia calls the injected GetUserMedia or the real version.
func (m *MediaDevices) GetUserMedia(ctx context.Context, constraints camera.Constraints) (camera.MediaStream, error) {
	if m.GetUserMediaFunc == nil {
		return m.MediaDevices.GetUserMedia(ctx, constraints)
	}
	return m.GetUserMediaFunc(ctx, constraints)
}

// MediaStream is an injected camera.MediaStream.
type MediaStream struct {
	camera.MediaStream
	VideoTracksFunc func() []camera.Track
}

// VideoTracks calls the injected VideoTracks or the real version.
func (s *MediaStream) VideoTracks() []camera.Track {
	if s.VideoTracksFunc == nil {
		return s.MediaStream.VideoTracks()
	}
	return s.VideoTracksFunc()
}

// Track is an injected camera.Track.
type Track struct {
	camera.Track
	IDFunc             func() string
	NewFrameReaderFunc func() (camera.FrameReader, error)
	StopFunc           func() error
}

// ID calls the injected ID or the real version.
func (t *Track) ID() string {
	if t.IDFunc == nil {
		return t.Track.ID()
	}
	return t.IDFunc()
}

// NewFrameReader calls the injected NewFrameReader or the real version.
func (t *Track) NewFrameReader() (camera.FrameReader, error) {
	if t.NewFrameReaderFunc == nil {
		return t.Track.NewFrameReader()
	}
	return t.NewFrameReaderFunc()
}

// Stop calls the injected Stop or the real version.
func (t *Track) Stop() error {
	if t.StopFunc == nil {
		return t.Track.Stop()
	}
	return t.StopFunc()
}

// FrameReader is an injected camera.FrameReader.
type FrameReader struct {
	ReadFunc func() (image.Image, func(), error)
}

// Read calls the injected Read.
func (r *FrameReader) Read() (image.Image, func(), error) {
	return r.ReadFunc()
}

// VideoSource is an injected camera.VideoSource.
type VideoSource struct {
	camera.VideoSource
	AttachFunc func(stream camera.MediaStream) error
	PlayFunc   func(ctx context.Context) error
	PauseFunc  func()
	ReadyFunc  func() <-chan struct{}
	SizeFunc   func() image.Point
	FrameFunc  func() (image.Image, error)
}

// Attach calls the injected Attach or the real version.
func (v *VideoSource) Attach(stream camera.MediaStream) error {
	if v.AttachFunc == nil {
		return v.VideoSource.Attach(stream)
	}
	return v.AttachFunc(stream)
}

// Play calls the injected Play or the real version.
func (v *VideoSource) Play(ctx context.Context) error {
	if v.PlayFunc == nil {
		return v.VideoSource.Play(ctx)
	}
	return v.PlayFunc(ctx)
}

// Pause calls the injected Pause or the real version.
func (v *VideoSource) Pause() {
	if v.PauseFunc == nil {
		v.VideoSource.Pause()
		return
	}
	v.PauseFunc()
}

// Ready calls the injected Ready or the real version.
func (v *VideoSource) Ready() <-chan struct{} {
	if v.ReadyFunc == nil {
		return v.VideoSource.Ready()
	}
	return v.ReadyFunc()
}

// Size calls the injected Size or the real version.
func (v *VideoSource) Size() image.Point {
	if v.SizeFunc == nil {
		return v.VideoSource.Size()
	}
	return v.SizeFunc()
}

// Frame calls the injected Frame or the real version.
func (v *VideoSource) Frame() (image.Image, error) {
	if v.FrameFunc == nil {
		return v.VideoSource.Frame()
	}
	return v.FrameFunc()
}
