// Package detector locates faces in frames. Every backend returns boxes in
// the coordinates of the frame it was given.
package detector

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/dudu/facemode/internal/config"
	"github.com/dudu/facemode/internal/inference"
)

// Detector is implemented by every backend
type Detector interface {
	Detect(img gocv.Mat) ([]Face, error)
	Close() error
}

// New creates the backend named in cfg
func New(cfg config.Detector) (Detector, error) {
	switch cfg.Backend {
	case config.BackendYuNet:
		return NewYuNet(cfg.ModelPath, cfg.InputSize, cfg.ConfThreshold, cfg.NMSThreshold, cfg.TopK)
	case config.BackendSCRFD:
		if err := inference.Initialize(cfg.ORTLibrary); err != nil {
			return nil, err
		}
		det, err := NewSCRFD(cfg.ModelPath, cfg.InputSize, cfg.ConfThreshold, cfg.NMSThreshold)
		if err != nil {
			inference.Shutdown()
			return nil, err
		}
		return &sessionOwner{Detector: det}, nil
	case config.BackendCascade:
		return NewCascade(cfg.ModelPath)
	default:
		return nil, fmt.Errorf("unknown detector backend %q", cfg.Backend)
	}
}

// sessionOwner shuts the ONNX Runtime environment down with the detector
type sessionOwner struct {
	Detector
}

func (s *sessionOwner) Close() error {
	err := s.Detector.Close()
	if shutdownErr := inference.Shutdown(); err == nil {
		err = shutdownErr
	}
	return err
}
