package ui

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"gocv.io/x/gocv"

	"github.com/dudu/facemode/internal/config"
)

// Window is the full-screen display sink
type Window struct {
	window     *gocv.Window
	showFPS    bool
	lastFrame  time.Time
	frameCount int
	fps        float64
}

// NewWindow creates the output window. It must be called from the main OS
// thread.
func NewWindow(cfg config.Display) *Window {
	window := gocv.NewWindow(cfg.WindowName)
	if cfg.Fullscreen {
		window.SetWindowProperty(gocv.WindowPropertyFullscreen, gocv.WindowFullscreen)
	} else {
		window.ResizeWindow(cfg.Width, cfg.Height)
	}
	return &Window{
		window:    window,
		showFPS:   cfg.ShowFPS,
		lastFrame: time.Now(),
	}
}

// Show displays a frame and updates the FPS counter
func (w *Window) Show(frame gocv.Mat) {
	w.frameCount++
	now := time.Now()

	if elapsed := now.Sub(w.lastFrame); elapsed >= time.Second {
		w.fps = float64(w.frameCount) / elapsed.Seconds()
		w.frameCount = 0
		w.lastFrame = now
	}

	if w.showFPS {
		gocv.PutText(&frame, fmt.Sprintf("FPS: %.1f", w.fps), image.Pt(10, 30),
			gocv.FontHersheyPlain, 2, color.RGBA{R: 0, G: 255, B: 0, A: 255}, 2)
	}

	w.window.IMShow(frame)
}

// PollKey processes window events and returns the pressed key or -1
// without blocking
func (w *Window) PollKey() int {
	return w.window.WaitKey(1)
}

// FPS returns current frames per second
func (w *Window) FPS() float64 {
	return w.fps
}

// Close closes the window
func (w *Window) Close() error {
	if w.window == nil {
		return nil
	}
	err := w.window.Close()
	w.window = nil
	return err
}
