package camera

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/dudu/facemode/internal/config"
)

var (
	// ErrDeviceUnavailable is returned when the capture device cannot be opened
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrEndOfStream is returned when the device stops producing frames
	ErrEndOfStream = errors.New("end of stream")
)

// MaxEmptyReads is the number of consecutive empty frames tolerated before
// the stream is considered finished.
const MaxEmptyReads = 30

// Capture manages frame capture from a camera, video file or stream
type Capture struct {
	webcam *gocv.VideoCapture
	cfg    config.Camera
	width  int
	height int
	mu     sync.Mutex
}

// Open opens the configured device. Zero width, height or fps keep the
// device's native setting.
func Open(cfg config.Camera) (*Capture, error) {
	c := &Capture{cfg: cfg}
	if err := c.open(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Capture) open() error {
	webcam, err := gocv.OpenVideoCapture(c.cfg.Device)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, c.cfg.Device, err)
	}
	if !webcam.IsOpened() {
		webcam.Close()
		return fmt.Errorf("%w: %s", ErrDeviceUnavailable, c.cfg.Device)
	}

	if c.cfg.Width > 0 && c.cfg.Height > 0 {
		webcam.Set(gocv.VideoCaptureFrameWidth, float64(c.cfg.Width))
		webcam.Set(gocv.VideoCaptureFrameHeight, float64(c.cfg.Height))
	}
	if c.cfg.FPS > 0 {
		webcam.Set(gocv.VideoCaptureFPS, float64(c.cfg.FPS))
	}

	// The device may not support the requested resolution
	c.width = int(webcam.Get(gocv.VideoCaptureFrameWidth))
	c.height = int(webcam.Get(gocv.VideoCaptureFrameHeight))
	c.webcam = webcam
	return nil
}

// Next blocks until a frame is read into frame. It returns ErrEndOfStream
// once the device disconnects, the capture is closed, or it keeps
// delivering empty frames.
func (c *Capture) Next(frame *gocv.Mat) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam == nil {
		return ErrEndOfStream
	}

	for empty := 0; empty < MaxEmptyReads; empty++ {
		if !c.webcam.Read(frame) {
			return ErrEndOfStream
		}
		if !frame.Empty() {
			return nil
		}
	}
	return fmt.Errorf("%w: %d consecutive empty frames", ErrEndOfStream, MaxEmptyReads)
}

// Reopen releases the device and opens it again, restarting the sequence
func (c *Capture) Reopen() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam != nil {
		c.webcam.Close()
		c.webcam = nil
	}
	return c.open()
}

// Device returns the configured device
func (c *Capture) Device() string {
	return c.cfg.Device
}

// Width returns frame width
func (c *Capture) Width() int {
	return c.width
}

// Height returns frame height
func (c *Capture) Height() int {
	return c.height
}

// Close releases the device. It is safe to call more than once.
func (c *Capture) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.webcam != nil {
		err := c.webcam.Close()
		c.webcam = nil
		return err
	}
	return nil
}
