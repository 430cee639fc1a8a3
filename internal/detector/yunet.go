package detector

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"
)

// yunetColumns is the row layout of FaceDetectorYN results:
// x, y, w, h, 5 landmark pairs, score
const yunetColumns = 15

// YuNet wraps OpenCV's FaceDetectorYN
type YuNet struct {
	det       gocv.FaceDetectorYN
	inputSize image.Point
}

// NewYuNet loads a YuNet ONNX model
func NewYuNet(modelPath string, inputSize int, confThreshold, nmsThreshold float32, topK int) (*YuNet, error) {
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("failed to load YuNet model: %w", err)
	}

	size := image.Pt(inputSize, inputSize)
	det := gocv.NewFaceDetectorYNWithParams(modelPath, "", size,
		confThreshold, nmsThreshold, topK, 0, 0)

	return &YuNet{det: det, inputSize: size}, nil
}

// Detect finds faces in an image. The model input size follows the frame
// size so boxes come back in frame coordinates.
func (y *YuNet) Detect(img gocv.Mat) ([]Face, error) {
	if img.Empty() {
		return nil, nil
	}

	size := image.Pt(img.Cols(), img.Rows())
	if size != y.inputSize {
		y.det.SetInputSize(size)
		y.inputSize = size
	}

	results := gocv.NewMat()
	defer results.Close()

	y.det.Detect(img, &results)
	if results.Empty() {
		return nil, nil
	}
	if results.Cols() < yunetColumns {
		return nil, fmt.Errorf("%w: unexpected YuNet output with %d columns", ErrDetection, results.Cols())
	}

	faces := make([]Face, 0, results.Rows())
	for r := 0; r < results.Rows(); r++ {
		at := func(c int) float32 { return results.GetFloatAt(r, c) }
		pt := func(i int) Point { return Point{X: at(4 + 2*i), Y: at(5 + 2*i)} }

		faces = append(faces, Face{
			BoundingBox: BoundingBox{X1: at(0), Y1: at(1), X2: at(0) + at(2), Y2: at(1) + at(3)},
			Landmarks: Landmarks{
				RightEye:   pt(0),
				LeftEye:    pt(1),
				Nose:       pt(2),
				RightMouth: pt(3),
				LeftMouth:  pt(4),
			},
			Score: at(14),
		})
	}
	return faces, nil
}

// Close releases detector resources
func (y *YuNet) Close() error {
	y.det.Close()
	return nil
}
