package pipeline

import (
	"gocv.io/x/gocv"

	"github.com/dudu/facemode/internal/detector"
)

// FrameSource produces camera frames
type FrameSource interface {
	// Next blocks until a frame is read into frame
	Next(frame *gocv.Mat) error
	Close() error
}

// FaceDetector finds faces in a frame
type FaceDetector interface {
	Detect(img gocv.Mat) ([]detector.Face, error)
}

// Display presents frames and reports key presses
type Display interface {
	Show(frame gocv.Mat)
	// PollKey returns the pressed key or -1 without blocking
	PollKey() int
	Close() error
}
