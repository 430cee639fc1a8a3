package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/dudu/facemode/internal/camera"
	"github.com/dudu/facemode/internal/config"
	"github.com/dudu/facemode/internal/control"
	"github.com/dudu/facemode/internal/detector"
	"github.com/dudu/facemode/internal/logging"
	"github.com/dudu/facemode/internal/mode"
	"github.com/dudu/facemode/internal/overlay"
	"github.com/dudu/facemode/internal/pipeline"
	"github.com/dudu/facemode/internal/ui"
)

func init() {
	// Lock the main goroutine to the main OS thread.
	// This is required on macOS for OpenCV's highgui (window creation).
	runtime.LockOSThread()
}

type flags struct {
	ConfigPath string
	Camera     string
	Control    string
	Backend    string
	Windowed   bool
}

func main() {
	f := parseFlags()

	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	f.apply(cfg)

	if err := logging.Setup(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() flags {
	f := flags{}

	flag.StringVar(&f.ConfigPath, "config", "", "YAML configuration file")
	flag.StringVar(&f.ConfigPath, "f", "", "YAML configuration file (shorthand)")
	flag.StringVar(&f.Camera, "camera", "", "Camera device index, video file or stream URL")
	flag.StringVar(&f.Camera, "c", "", "Camera device (shorthand)")
	flag.StringVar(&f.Control, "listen", "", "Control socket address (default "+control.DefaultAddress+")")
	flag.StringVar(&f.Backend, "backend", "", "Detector backend: yunet, scrfd or cascade")
	flag.StringVar(&f.Backend, "b", "", "Detector backend (shorthand)")
	flag.BoolVar(&f.Windowed, "windowed", false, "Show a window instead of full screen")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "facemode - face overlay installation\n\n")
		fmt.Fprintf(os.Stderr, "Usage: facemode [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nKeys: q/ESC quit, m toggle overlay\n")
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  facemode --config facemode.yaml\n")
		fmt.Fprintf(os.Stderr, "  facemode --camera 1 --windowed\n")
		fmt.Fprintf(os.Stderr, "  echo -n 1 | nc 127.0.0.1 12345\n")
	}

	flag.Parse()
	return f
}

func (f flags) apply(cfg *config.Config) {
	if f.Camera != "" {
		cfg.Camera.Device = f.Camera
	}
	if f.Control != "" {
		cfg.Control.Address = f.Control
	}
	if f.Backend != "" {
		cfg.Detector.Backend = f.Backend
	}
	if f.Windowed {
		cfg.Display.Fullscreen = false
	}
}

func run(cfg *config.Config) error {
	log := logging.Component("main")

	// Startup resources, all before the loop runs
	overlays, err := overlay.LoadTable(cfg.Overlays)
	if err != nil {
		var assetErr *overlay.AssetError
		if errors.As(err, &assetErr) {
			return &pipeline.StartupError{Resource: "overlay image", Path: assetErr.Path, Err: assetErr.Err}
		}
		return &pipeline.StartupError{Resource: "overlay image", Err: err}
	}
	defer overlays.Close()
	log.WithField("modes", overlays.Len()).Info("overlays loaded")

	log.WithField("backend", cfg.Detector.Backend).Info("loading face detector")
	det, err := detector.New(cfg.Detector)
	if err != nil {
		return &pipeline.StartupError{Resource: "face detector", Path: cfg.Detector.ModelPath, Err: err}
	}
	defer det.Close()

	cam, err := camera.Open(cfg.Camera)
	if err != nil {
		return &pipeline.StartupError{Resource: "camera", Path: cfg.Camera.Device, Err: err}
	}
	log.WithFields(logrus.Fields{
		"device": cam.Device(),
		"width":  cam.Width(),
		"height": cam.Height(),
	}).Info("camera opened")

	modes := mode.NewChannel()
	listener, err := control.Listen(cfg.Control.Address, modes)
	if err != nil {
		cam.Close()
		return &pipeline.StartupError{Resource: "control socket", Path: cfg.Control.Address, Err: err}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The listener runs for the process lifetime and owns nothing the
	// render path needs, so shutdown never waits for a control peer.
	go func() {
		if err := listener.Serve(ctx); err != nil && !errors.Is(err, control.ErrListenerClosed) {
			log.WithError(err).Error("control listener stopped")
		}
	}()
	defer listener.Close()

	window := ui.NewWindow(cfg.Display)

	p := pipeline.New(pipeline.Config{
		OutputWidth:  cfg.Display.Width,
		OutputHeight: cfg.Display.Height,
		ToggleMode:   cfg.ToggleMode,
	}, cam, det, window, modes, overlays)
	defer p.Close()

	log.Info("running, press 'q' to quit")
	if err := p.Run(ctx); err != nil {
		return err
	}
	log.Info("shut down")
	return nil
}
