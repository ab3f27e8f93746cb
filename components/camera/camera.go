// Package camera acquires a live video stream from the host and hands out grayscale snapshots of
// its current frame.
package camera

import (
	"context"
	"image"
	"strings"

	"github.com/pkg/errors"
)

// ErrHardwareUnavailable is returned when no camera can be acquired, either because capture is
// unsupported on the host or because access was denied.
var ErrHardwareUnavailable = errors.New("camera hardware unavailable")

// Facing modes understood by Constraints.
const (
	FacingEnvironment = "environment"
	FacingUser        = "user"
)

// Constraints describe the stream requested from MediaDevices.
type Constraints struct {
	// DeviceID selects an exact device; when empty the device is chosen by Facing.
	DeviceID string
	// Facing prefers a rear ("environment") or front ("user") camera.
	Facing string
	// Width is the target frame width in pixels. The height follows the device's aspect ratio.
	Width     int
	FrameRate float32
}

// DeviceInfo describes one video input known to the host.
type DeviceInfo struct {
	DeviceID string `json:"device_id"`
	Label    string `json:"label"`
}

// FrameReader reads the latest frame of a video track. release hands the frame buffer back to
// the driver and must be called once the frame is no longer used.
type FrameReader interface {
	Read() (img image.Image, release func(), err error)
}

// Track is one video track of an acquired stream.
type Track interface {
	ID() string
	NewFrameReader() (FrameReader, error)
	// Stop releases the underlying hardware. Stopping a stopped track is a no-op.
	Stop() error
}

// MediaStream is a stream acquired from MediaDevices.
type MediaStream interface {
	VideoTracks() []Track
}

// MediaDevices is the host capture API.
type MediaDevices interface {
	EnumerateDevices(ctx context.Context) ([]DeviceInfo, error)
	GetUserMedia(ctx context.Context, constraints Constraints) (MediaStream, error)
}

// VideoSource is the handle a stream is attached to for playback, like a video element. Frame
// returns the frame currently shown.
type VideoSource interface {
	Attach(stream MediaStream) error
	Play(ctx context.Context) error
	Pause()
	// Ready is closed once the first frame is available.
	Ready() <-chan struct{}
	Size() image.Point
	Frame() (image.Image, error)
}

var facingKeywords = map[string][]string{
	FacingEnvironment: {"back", "rear", "environment"},
	FacingUser:        {"front", "user", "facetime"},
}

// PreferFacing returns the first device whose label matches the facing mode, falling back to the
// first device. ok is false when devices is empty.
func PreferFacing(devices []DeviceInfo, facing string) (DeviceInfo, bool) {
	if len(devices) == 0 {
		return DeviceInfo{}, false
	}
	for _, d := range devices {
		label := strings.ToLower(d.Label)
		for _, kw := range facingKeywords[facing] {
			if strings.Contains(label, kw) {
				return d, true
			}
		}
	}
	return devices[0], true
}
