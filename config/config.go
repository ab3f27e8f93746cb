// Package config defines the gridscan configuration file and how it is read.
package config

import (
	"net/url"
	"time"

	"github.com/pkg/errors"

	"github.com/gridscan/gridscan/components/camera"
	"github.com/gridscan/gridscan/logging"
	"github.com/gridscan/gridscan/scanner"
	"github.com/gridscan/gridscan/vision/classification"
)

// Config is the complete configuration of a scan.
type Config struct {
	ConfigFilePath string `json:"-"`

	Camera     CameraConfig     `json:"camera"`
	Scanner    scanner.Config   `json:"scanner"`
	Classifier ClassifierConfig `json:"classifier"`
	Debug      DebugConfig      `json:"debug"`
}

// CameraConfig selects and shapes the camera stream.
type CameraConfig struct {
	// DeviceID picks an exact device; when empty the device is chosen by Facing.
	DeviceID     string        `json:"device_id,omitempty"`
	Facing       string        `json:"facing"`
	Width        int           `json:"width_px"`
	FrameRate    float32       `json:"frame_rate"`
	PollInterval time.Duration `json:"poll_interval"`
}

// ClassifierConfig points at the digit classification service.
type ClassifierConfig struct {
	URL     string        `json:"url"`
	Timeout time.Duration `json:"timeout"`
	// MinConfidence drops predictions scoring below it; the cell then stays empty.
	MinConfidence float64 `json:"min_confidence"`
	InputSize     int     `json:"input_size"`
}

// DebugConfig holds diagnostics settings.
type DebugConfig struct {
	// OverlayDir, when set, receives an overlay PNG of the frame a puzzle was solved on.
	OverlayDir string `json:"overlay_dir,omitempty"`
	LogLevel   string `json:"log_level"`
}

// Default returns the configuration used for any field a file leaves out.
func Default() Config {
	return Config{
		Camera: CameraConfig{
			Facing:       camera.FacingEnvironment,
			Width:        640,
			FrameRate:    30,
			PollInterval: 10 * time.Millisecond,
		},
		Scanner: scanner.DefaultConfig(),
		Classifier: ClassifierConfig{
			URL:           "http://localhost:8500",
			Timeout:       2 * time.Second,
			MinConfidence: 0.5,
			InputSize:     classification.DefaultInputSize,
		},
		Debug: DebugConfig{LogLevel: "info"},
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate() error {
	if err := c.Camera.Validate("camera"); err != nil {
		return err
	}
	if err := c.Scanner.Validate("scanner"); err != nil {
		return err
	}
	if err := c.Classifier.Validate("classifier"); err != nil {
		return err
	}
	if _, err := logging.LevelFromString(c.Debug.LogLevel); err != nil {
		return errors.Wrap(err, "debug.log_level")
	}
	return nil
}

// Validate ensures all parts of the config are valid.
func (c *CameraConfig) Validate(path string) error {
	switch c.Facing {
	case camera.FacingEnvironment, camera.FacingUser:
	default:
		return errors.Errorf("%s.facing must be %q or %q, got %q", path, camera.FacingEnvironment, camera.FacingUser, c.Facing)
	}
	if c.Width < 0 {
		return errors.Errorf("%s.width_px must not be negative, got %d", path, c.Width)
	}
	if c.FrameRate < 0 {
		return errors.Errorf("%s.frame_rate must not be negative, got %v", path, c.FrameRate)
	}
	if c.PollInterval <= 0 {
		return errors.Errorf("%s.poll_interval must be positive, got %v", path, c.PollInterval)
	}
	return nil
}

// Constraints returns the capture constraints asked of the camera.
func (c *CameraConfig) Constraints() camera.Constraints {
	return camera.Constraints{
		DeviceID:  c.DeviceID,
		Facing:    c.Facing,
		Width:     c.Width,
		FrameRate: c.FrameRate,
	}
}

// Validate ensures all parts of the config are valid.
func (c *ClassifierConfig) Validate(path string) error {
	u, err := url.Parse(c.URL)
	if err != nil {
		return errors.Wrapf(err, "%s.url", path)
	}
	if !u.IsAbs() {
		return errors.Errorf("%s.url must be absolute, got %q", path, c.URL)
	}
	if c.Timeout <= 0 {
		return errors.Errorf("%s.timeout must be positive, got %v", path, c.Timeout)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return errors.Errorf("%s.min_confidence must be in [0, 1], got %v", path, c.MinConfidence)
	}
	if c.InputSize <= 0 {
		return errors.Errorf("%s.input_size must be positive, got %d", path, c.InputSize)
	}
	return nil
}
