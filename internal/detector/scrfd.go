package detector

import (
	"encoding/binary"
	"fmt"
	"image"
	"math"

	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"

	"github.com/dudu/facemode/internal/inference"
)

// SCRFD has 1 input and 9 outputs (3 levels x score, bbox, kps)
var (
	scrfdInputs  = []string{"input.1"}
	scrfdOutputs = []string{
		"score_8", "score_16", "score_32",
		"bbox_8", "bbox_16", "bbox_32",
		"kps_8", "kps_16", "kps_32",
	}
	scrfdStrides = []int{8, 16, 32}
)

const scrfdAnchors = 2

// SCRFD implements the SCRFD face detector on ONNX Runtime
type SCRFD struct {
	session       *inference.Session
	inputSize     int
	confThreshold float32
	nmsThreshold  float32
}

// NewSCRFD creates a new SCRFD detector. inference.Initialize must have
// been called.
func NewSCRFD(modelPath string, inputSize int, confThreshold, nmsThreshold float32) (*SCRFD, error) {
	session, err := inference.NewSession(modelPath, scrfdInputs, scrfdOutputs)
	if err != nil {
		return nil, fmt.Errorf("failed to create SCRFD session: %w", err)
	}

	return &SCRFD{
		session:       session,
		inputSize:     inputSize,
		confThreshold: confThreshold,
		nmsThreshold:  nmsThreshold,
	}, nil
}

// Detect finds faces in an image
func (s *SCRFD) Detect(img gocv.Mat) ([]Face, error) {
	if img.Empty() {
		return nil, nil
	}

	inputBlob, scale := s.preprocess(img)
	defer inputBlob.Close()

	inputTensor, err := ort.NewTensor(
		ort.NewShape(1, 3, int64(s.inputSize), int64(s.inputSize)),
		bytesToFloat32(inputBlob.ToBytes()),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: input tensor: %v", ErrDetection, err)
	}
	defer inputTensor.Destroy()

	outputs := make([]ort.Value, len(scrfdOutputs))
	tensors := make([]*ort.Tensor[float32], len(scrfdOutputs))
	defer func() {
		for _, t := range tensors {
			if t != nil {
				t.Destroy()
			}
		}
	}()

	for level, stride := range scrfdStrides {
		fm := s.inputSize / stride
		anchors := int64(fm * fm * scrfdAnchors)

		for i, width := range []int64{1, 4, 10} {
			t, err := inference.CreateEmptyTensor[float32]([]int64{anchors, width})
			if err != nil {
				return nil, fmt.Errorf("%w: output tensor: %v", ErrDetection, err)
			}
			outputs[level+3*i] = t
			tensors[level+3*i] = t
		}
	}

	if err := s.session.Run([]ort.Value{inputTensor}, outputs); err != nil {
		return nil, fmt.Errorf("%w: inference: %v", ErrDetection, err)
	}

	faces := s.postprocess(tensors, scale, img.Cols(), img.Rows())
	return nms(faces, s.nmsThreshold), nil
}

// preprocess letterboxes the image into the model input and returns the
// NCHW blob with the applied scale
func (s *SCRFD) preprocess(img gocv.Mat) (gocv.Mat, float32) {
	scale := float32(s.inputSize) / float32(max(img.Rows(), img.Cols()))
	newWidth := int(float32(img.Cols()) * scale)
	newHeight := int(float32(img.Rows()) * scale)

	resized := gocv.NewMat()
	defer resized.Close()
	gocv.Resize(img, &resized, image.Pt(newWidth, newHeight), 0, 0, gocv.InterpolationLinear)

	padded := gocv.NewMatWithSize(s.inputSize, s.inputSize, gocv.MatTypeCV8UC3)
	defer padded.Close()
	padded.SetTo(gocv.NewScalar(0, 0, 0, 0))

	roi := padded.Region(image.Rect(0, 0, newWidth, newHeight))
	resized.CopyTo(&roi)
	roi.Close()

	// (x - 127.5) / 128, BGR to RGB
	blob := gocv.BlobFromImage(padded, 1.0/128.0, image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)

	return blob, scale
}

// postprocess decodes distance-to-edge predictions into faces in original
// image coordinates
func (s *SCRFD) postprocess(outputs []*ort.Tensor[float32], scale float32, origWidth, origHeight int) []Face {
	var faces []Face

	for level, stride := range scrfdStrides {
		fm := s.inputSize / stride
		st := float32(stride)

		scores := outputs[level].GetData()
		bboxes := outputs[level+3].GetData()
		kps := outputs[level+6].GetData()

		anchor := 0
		for y := 0; y < fm; y++ {
			for x := 0; x < fm; x++ {
				for a := 0; a < scrfdAnchors; a++ {
					score := scores[anchor]
					if score < 0 || score > 1 {
						score = sigmoid(score)
					}
					if score > s.confThreshold {
						cx := (float32(x) + 0.5) * st
						cy := (float32(y) + 0.5) * st

						b := bboxes[anchor*4 : anchor*4+4]
						box := BoundingBox{
							X1: clamp((cx-b[0]*st)/scale, 0, float32(origWidth)),
							Y1: clamp((cy-b[1]*st)/scale, 0, float32(origHeight)),
							X2: clamp((cx+b[2]*st)/scale, 0, float32(origWidth)),
							Y2: clamp((cy+b[3]*st)/scale, 0, float32(origHeight)),
						}

						k := kps[anchor*10 : anchor*10+10]
						pt := func(i int) Point {
							return Point{X: (cx + k[2*i]*st) / scale, Y: (cy + k[2*i+1]*st) / scale}
						}

						faces = append(faces, Face{
							BoundingBox: box,
							Landmarks: Landmarks{
								LeftEye:    pt(0),
								RightEye:   pt(1),
								Nose:       pt(2),
								LeftMouth:  pt(3),
								RightMouth: pt(4),
							},
							Score: score,
						})
					}
					anchor++
				}
			}
		}
	}

	return faces
}

// Close releases detector resources
func (s *SCRFD) Close() error {
	return s.session.Destroy()
}

func sigmoid(x float32) float32 {
	return 1.0 / (1.0 + float32(math.Exp(float64(-x))))
}

func bytesToFloat32(data []byte) []float32 {
	result := make([]float32, len(data)/4)
	for i := range result {
		result[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return result
}
