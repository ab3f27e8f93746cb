package camera

import (
	"context"
	"sync"

	"github.com/pion/mediadevices"
	// registers the host camera driver with mediadevices.
	_ "github.com/pion/mediadevices/pkg/driver/camera"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/gridscan/gridscan/logging"
)

// NewWebcamDevices returns MediaDevices backed by the host's cameras.
func NewWebcamDevices(logger logging.Logger) MediaDevices {
	return &webcamDevices{logger: logger}
}

type webcamDevices struct {
	logger logging.Logger
}

func (d *webcamDevices) EnumerateDevices(ctx context.Context) ([]DeviceInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var devices []DeviceInfo
	for _, info := range mediadevices.EnumerateDevices() {
		if info.Kind != mediadevices.VideoInput {
			continue
		}
		devices = append(devices, DeviceInfo{DeviceID: info.DeviceID, Label: info.Label})
	}
	return devices, nil
}

func (d *webcamDevices) GetUserMedia(ctx context.Context, constraints Constraints) (MediaStream, error) {
	deviceID := constraints.DeviceID
	if deviceID == "" {
		devices, err := d.EnumerateDevices(ctx)
		if err != nil {
			return nil, err
		}
		device, ok := PreferFacing(devices, constraints.Facing)
		if !ok {
			return nil, errors.Wrap(ErrHardwareUnavailable, "found no webcams")
		}
		d.logger.CDebugw(ctx, "selected webcam", "device_id", device.DeviceID, "label", device.Label,
			"facing", constraints.Facing)
		deviceID = device.DeviceID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Video: trackConstraints(deviceID, constraints),
	})
	if err != nil {
		return nil, errors.Wrapf(ErrHardwareUnavailable, "device %q: %v", deviceID, err)
	}
	tracks := stream.GetVideoTracks()
	if len(tracks) == 0 {
		return nil, errors.Wrapf(ErrHardwareUnavailable, "device %q has no video track", deviceID)
	}
	return &webcamStream{
		tracks: lo.Map(tracks, func(t mediadevices.Track, _ int) Track { return &webcamTrack{track: t} }),
	}, nil
}

// trackConstraints pins the video track to deviceID and applies the requested width and frame rate.
func trackConstraints(deviceID string, constraints Constraints) func(*mediadevices.MediaTrackConstraints) {
	return func(c *mediadevices.MediaTrackConstraints) {
		c.DeviceID = prop.StringExact(deviceID)
		if constraints.Width > 0 {
			c.Width = prop.Int(constraints.Width)
		} else {
			c.Width = prop.IntRanged{Min: 0, Ideal: 640, Max: 4096}
		}
		if constraints.FrameRate > 0 {
			c.FrameRate = prop.Float(constraints.FrameRate)
		}
	}
}

type webcamStream struct {
	tracks []Track
}

func (s *webcamStream) VideoTracks() []Track {
	return s.tracks
}

type webcamTrack struct {
	track mediadevices.Track

	mu      sync.Mutex
	stopped bool
}

func (t *webcamTrack) ID() string {
	return t.track.ID()
}

func (t *webcamTrack) NewFrameReader() (FrameReader, error) {
	vt, ok := t.track.(*mediadevices.VideoTrack)
	if !ok {
		return nil, errors.Errorf("track %s is not a video track", t.track.ID())
	}
	return vt.NewReader(false), nil
}

func (t *webcamTrack) Stop() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return nil
	}
	t.stopped = true
	return t.track.Close()
}
