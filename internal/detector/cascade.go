package detector

import (
	"fmt"

	"gocv.io/x/gocv"
)

// Cascade detects faces with a Haar cascade. It needs no DNN runtime and
// serves as a fallback on machines without one.
type Cascade struct {
	classifier gocv.CascadeClassifier
}

// NewCascade loads a cascade XML file
func NewCascade(modelPath string) (*Cascade, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(modelPath) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load cascade file: %s", modelPath)
	}
	return &Cascade{classifier: classifier}, nil
}

// Detect finds faces in an image
func (c *Cascade) Detect(img gocv.Mat) ([]Face, error) {
	if img.Empty() {
		return nil, nil
	}

	rects := c.classifier.DetectMultiScale(img)
	faces := make([]Face, 0, len(rects))
	for _, r := range rects {
		faces = append(faces, Face{
			BoundingBox: BoundingBox{
				X1: float32(r.Min.X),
				Y1: float32(r.Min.Y),
				X2: float32(r.Max.X),
				Y2: float32(r.Max.Y),
			},
			Score: 1,
		})
	}
	return faces, nil
}

// Close releases detector resources
func (c *Cascade) Close() error {
	return c.classifier.Close()
}
