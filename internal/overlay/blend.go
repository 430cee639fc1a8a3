package overlay

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/dudu/facemode/internal/detector"
)

// Blender composites assets onto frames. It keeps a scratch buffer for the
// resampled asset, so one Blender must not be shared between goroutines.
type Blender struct {
	resized gocv.Mat
}

// NewBlender creates a new blender
func NewBlender() *Blender {
	return &Blender{resized: gocv.NewMat()}
}

// Blend resamples asset to the box and writes it into frame in place.
// The box is clamped to the frame first; an empty box is a no-op. Assets
// with alpha are blended as a*asset + (1-a)*frame, opaque assets replace
// the rectangle. Pixels outside the box are never touched.
func (b *Blender) Blend(frame *gocv.Mat, box detector.Box, asset *Asset) error {
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("unsupported frame type %v (want 8-bit BGR)", frame.Type())
	}

	rect := box.Clamp(frame.Cols(), frame.Rows())
	if rect.Empty() {
		return nil
	}

	gocv.Resize(asset.img, &b.resized, rect.Size(), 0, 0, gocv.InterpolationLinear)

	if !asset.HasAlpha() {
		roi := frame.Region(rect)
		defer roi.Close()
		b.resized.CopyTo(&roi)
		return nil
	}

	return alphaBlend(frame, rect, b.resized)
}

// alphaBlend writes BGRA fg over the BGR frame inside rect. Integer rounding
// keeps alpha 0 and 255 exact.
func alphaBlend(frame *gocv.Mat, rect image.Rectangle, fg gocv.Mat) error {
	dst, err := frame.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("frame data: %w", err)
	}
	src, err := fg.DataPtrUint8()
	if err != nil {
		return fmt.Errorf("overlay data: %w", err)
	}

	dstStep := frame.Step()
	srcStep := fg.Step()

	for y := 0; y < rect.Dy(); y++ {
		drow := dst[(rect.Min.Y+y)*dstStep+rect.Min.X*3:]
		srow := src[y*srcStep:]

		for x := 0; x < rect.Dx(); x++ {
			s := srow[x*4 : x*4+4]
			d := drow[x*3 : x*3+3]

			a := uint32(s[3])
			switch a {
			case 0:
				continue
			case 255:
				copy(d, s[:3])
				continue
			}
			for c := 0; c < 3; c++ {
				d[c] = uint8((a*uint32(s[c]) + (255-a)*uint32(d[c]) + 127) / 255)
			}
		}
	}
	return nil
}

// Close releases blender resources
func (b *Blender) Close() error {
	return b.resized.Close()
}
