package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/dudu/facemode/internal/camera"
	"github.com/dudu/facemode/internal/detector"
	"github.com/dudu/facemode/internal/mode"
	"github.com/dudu/facemode/internal/overlay"
)

// Key codes
const (
	KeyEsc    = 27
	KeyQuit   = 'q'
	KeyToggle = 'm'
)

// State is the render loop lifecycle state
type State int32

const (
	StateRunning State = iota
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Config holds pipeline configuration
type Config struct {
	OutputWidth  int
	OutputHeight int
	// ToggleMode is set by the toggle key when the current mode is 0.
	// Zero disables the toggle key.
	ToggleMode int
}

// Timing holds performance timing information for one frame
type Timing struct {
	Mode      int
	Faces     int
	Detection time.Duration
	Blend     time.Duration
	Total     time.Duration
}

// Stats counts frames over the lifetime of the pipeline
type Stats struct {
	Frames            uint64
	OverlayFrames     uint64
	DetectionFailures uint64
}

// Pipeline is the render loop: it reads a frame, composites the overlay
// selected by the current mode onto every detected face, scales the result
// to the output resolution and presents it.
type Pipeline struct {
	config   Config
	source   FrameSource
	detector FaceDetector
	display  Display
	modes    *mode.Channel
	overlays *overlay.Table
	blender  *overlay.Blender
	output   gocv.Mat

	state           atomic.Int32
	stopOnce        sync.Once
	unsupportedOnce sync.Once
	lastTiming      Timing

	frames            atomic.Uint64
	overlayFrames     atomic.Uint64
	detectionFailures atomic.Uint64

	log *logrus.Entry
}

// New creates a pipeline in StateRunning. The pipeline takes ownership of
// source and display and closes them when it stops.
func New(config Config, source FrameSource, det FaceDetector, display Display,
	modes *mode.Channel, overlays *overlay.Table) *Pipeline {
	return &Pipeline{
		config:   config,
		source:   source,
		detector: det,
		display:  display,
		modes:    modes,
		overlays: overlays,
		blender:  overlay.NewBlender(),
		output:   gocv.NewMat(),
		log:      logrus.WithField("component", "pipeline"),
	}
}

// Run drives the loop until the quit key, end of stream or ctx
// cancellation. It returns nil on all of those; any other frame source
// error is returned after the pipeline has stopped.
func (p *Pipeline) Run(ctx context.Context) error {
	frame := gocv.NewMat()
	defer frame.Close()
	defer p.stop()

	for p.State() == StateRunning {
		if ctx.Err() != nil {
			p.log.Info("shutdown requested")
			p.setState(StateStopping)
			break
		}

		if err := p.source.Next(&frame); err != nil {
			p.setState(StateStopping)
			if errors.Is(err, camera.ErrEndOfStream) {
				p.log.WithError(err).Info("frame source finished")
				return nil
			}
			return fmt.Errorf("frame source: %w", err)
		}

		p.Step(&frame)
		p.handleKey(p.display.PollKey())
	}
	return nil
}

// Step composites and presents one frame. The mode is read exactly once, so
// a change that lands while the frame is processed applies to the next one.
func (p *Pipeline) Step(frame *gocv.Mat) {
	start := time.Now()
	timing := Timing{Mode: p.modes.Get()}

	asset, ok := p.overlays.Lookup(timing.Mode)
	if ok && frame.Type() != gocv.MatTypeCV8UC3 {
		p.unsupportedOnce.Do(func() {
			p.log.WithField("type", int(frame.Type())).Warn("frame is not 8-bit BGR, overlays disabled")
		})
		ok = false
	}
	if ok {
		detectStart := time.Now()
		faces := p.detect(*frame)
		timing.Detection = time.Since(detectStart)
		timing.Faces = len(faces)

		blendStart := time.Now()
		for _, face := range faces {
			if err := p.blender.Blend(frame, face.Box(), asset); err != nil {
				p.log.WithError(err).Debug("blend failed")
				break
			}
		}
		timing.Blend = time.Since(blendStart)
		p.overlayFrames.Add(1)
	}

	p.present(*frame)
	p.frames.Add(1)

	timing.Total = time.Since(start)
	p.lastTiming = timing
}

// detect treats every detector failure, including a panic, as a frame
// without faces so capture and display continue.
func (p *Pipeline) detect(frame gocv.Mat) (faces []detector.Face) {
	defer func() {
		if r := recover(); r != nil {
			p.detectionFailed(fmt.Errorf("%w: panic: %v", detector.ErrDetection, r))
			faces = nil
		}
	}()

	faces, err := p.detector.Detect(frame)
	if err != nil {
		p.detectionFailed(err)
		return nil
	}
	return faces
}

func (p *Pipeline) detectionFailed(err error) {
	n := p.detectionFailures.Add(1)
	p.log.WithError(err).WithField("failures", n).Debug("detection failed, showing frame without overlay")
}

// present scales frame to the output resolution and shows it
func (p *Pipeline) present(frame gocv.Mat) {
	size := image.Pt(p.config.OutputWidth, p.config.OutputHeight)
	if size.X <= 0 || size.Y <= 0 || (frame.Cols() == size.X && frame.Rows() == size.Y) {
		p.display.Show(frame)
		return
	}

	gocv.Resize(frame, &p.output, size, 0, 0, gocv.InterpolationLinear)
	p.display.Show(p.output)
}

func (p *Pipeline) handleKey(key int) {
	if key < 0 {
		return
	}

	switch key & 0xFF {
	case KeyQuit, KeyEsc:
		p.log.Info("quit key pressed")
		p.setState(StateStopping)
	case KeyToggle:
		if p.config.ToggleMode == 0 {
			return
		}
		if !p.modes.CompareAndSwap(mode.None, p.config.ToggleMode) {
			p.modes.Set(mode.None)
		}
		p.log.WithField("mode", p.modes.Get()).Info("mode toggled")
	}
}

// stop releases the frame source and display exactly once
func (p *Pipeline) stop() {
	p.stopOnce.Do(func() {
		p.setState(StateStopping)

		if err := p.source.Close(); err != nil {
			p.log.WithError(err).Warn("failed to close frame source")
		}
		if err := p.display.Close(); err != nil {
			p.log.WithError(err).Warn("failed to close display")
		}

		p.setState(StateStopped)
		stats := p.Stats()
		p.log.WithFields(logrus.Fields{
			"frames":             stats.Frames,
			"overlay_frames":     stats.OverlayFrames,
			"detection_failures": stats.DetectionFailures,
		}).Info("pipeline stopped")
	})
}

// State returns the current lifecycle state
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

func (p *Pipeline) setState(s State) {
	p.state.Store(int32(s))
}

// LastTiming returns timing from the last Step call. It must be called from
// the goroutine running the loop.
func (p *Pipeline) LastTiming() Timing {
	return p.lastTiming
}

// Stats returns frame counters
func (p *Pipeline) Stats() Stats {
	return Stats{
		Frames:            p.frames.Load(),
		OverlayFrames:     p.overlayFrames.Load(),
		DetectionFailures: p.detectionFailures.Load(),
	}
}

// Close stops the pipeline if it is still running and releases its buffers
func (p *Pipeline) Close() error {
	p.stop()
	var errs []error
	if err := p.blender.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := p.output.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
