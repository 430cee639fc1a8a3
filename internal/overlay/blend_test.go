package overlay

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/dudu/facemode/internal/detector"
)

var background = gocv.NewScalar(200, 100, 50, 0)

func filled(t *testing.T, rows, cols int, mt gocv.MatType, s gocv.Scalar) gocv.Mat {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(s, rows, cols, mt)
	t.Cleanup(func() { m.Close() })
	return m
}

func asset(t *testing.T, rows, cols int, mt gocv.MatType, s gocv.Scalar) *Asset {
	t.Helper()
	a, err := NewAsset(gocv.NewMatWithSizeFromScalar(s, rows, cols, mt))
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

func blend(t *testing.T, frame *gocv.Mat, box detector.Box, a *Asset) {
	t.Helper()
	b := NewBlender()
	defer b.Close()
	require.NoError(t, b.Blend(frame, box, a))
}

func pixel(m gocv.Mat, x, y int) [3]uint8 {
	v := m.GetVecbAt(y, x)
	return [3]uint8{v[0], v[1], v[2]}
}

// diff returns the number of differing pixels and whether all of them lie in rect
func diff(a, b gocv.Mat, rect image.Rectangle) (changed int, contained bool) {
	contained = true
	for y := 0; y < a.Rows(); y++ {
		for x := 0; x < a.Cols(); x++ {
			if pixel(a, x, y) != pixel(b, x, y) {
				changed++
				if !image.Pt(x, y).In(rect) {
					contained = false
				}
			}
		}
	}
	return changed, contained
}

func TestBlendOpaqueReplacesRectangleOnly(t *testing.T) {
	frame := filled(t, 100, 120, gocv.MatTypeCV8UC3, background)
	orig := frame.Clone()
	defer orig.Close()

	box := detector.Box{X: 10, Y: 20, Width: 30, Height: 40}
	blend(t, &frame, box, asset(t, 64, 64, gocv.MatTypeCV8UC3, gocv.NewScalar(10, 20, 30, 0)))

	changed, contained := diff(frame, orig, box.Rect())
	assert.Equal(t, box.Width*box.Height, changed)
	assert.True(t, contained, "pixels outside the box changed")
	assert.Equal(t, [3]uint8{10, 20, 30}, pixel(frame, 10, 20))
	assert.Equal(t, [3]uint8{10, 20, 30}, pixel(frame, 39, 59))
}

func TestBlendOpaqueEqualsResampledAsset(t *testing.T) {
	src := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC3)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.SetUCharAt3(y, x, 0, uint8(x*30))
			src.SetUCharAt3(y, x, 1, uint8(y*30))
			src.SetUCharAt3(y, x, 2, uint8((x+y)*15))
		}
	}
	want := gocv.NewMat()
	defer want.Close()
	gocv.Resize(src, &want, image.Pt(25, 17), 0, 0, gocv.InterpolationLinear)

	a, err := NewAsset(src)
	require.NoError(t, err)
	defer a.Close()

	frame := filled(t, 60, 60, gocv.MatTypeCV8UC3, background)
	box := detector.Box{X: 5, Y: 7, Width: 25, Height: 17}
	blend(t, &frame, box, a)

	for y := 0; y < box.Height; y++ {
		for x := 0; x < box.Width; x++ {
			require.Equal(t, pixel(want, x, y), pixel(frame, box.X+x, box.Y+y), "pixel %d,%d", x, y)
		}
	}
}

func TestBlendTransparentIsNoop(t *testing.T) {
	frame := filled(t, 50, 50, gocv.MatTypeCV8UC3, background)
	orig := frame.Clone()
	defer orig.Close()

	blend(t, &frame, detector.Box{X: 5, Y: 5, Width: 30, Height: 30},
		asset(t, 16, 16, gocv.MatTypeCV8UC4, gocv.NewScalar(0, 255, 0, 0)))

	changed, _ := diff(frame, orig, image.Rectangle{})
	assert.Zero(t, changed)
}

func TestBlendFullAlphaMatchesOpaque(t *testing.T) {
	box := detector.Box{X: 3, Y: 4, Width: 20, Height: 10}

	withAlpha := filled(t, 40, 40, gocv.MatTypeCV8UC3, background)
	blend(t, &withAlpha, box, asset(t, 16, 16, gocv.MatTypeCV8UC4, gocv.NewScalar(1, 2, 3, 255)))

	opaque := filled(t, 40, 40, gocv.MatTypeCV8UC3, background)
	blend(t, &opaque, box, asset(t, 16, 16, gocv.MatTypeCV8UC3, gocv.NewScalar(1, 2, 3, 0)))

	changed, _ := diff(withAlpha, opaque, image.Rectangle{})
	assert.Zero(t, changed)
}

func TestBlendPartialAlpha(t *testing.T) {
	frame := filled(t, 20, 20, gocv.MatTypeCV8UC3, background)
	blend(t, &frame, detector.Box{X: 0, Y: 0, Width: 10, Height: 10},
		asset(t, 10, 10, gocv.MatTypeCV8UC4, gocv.NewScalar(10, 20, 30, 128)))

	a := 128.0 / 255.0
	got := pixel(frame, 5, 5)
	assert.InDelta(t, a*10+(1-a)*200, float64(got[0]), 1)
	assert.InDelta(t, a*20+(1-a)*100, float64(got[1]), 1)
	assert.InDelta(t, a*30+(1-a)*50, float64(got[2]), 1)
	assert.Equal(t, [3]uint8{200, 100, 50}, pixel(frame, 15, 15))
}

func TestBlendClampsToFrame(t *testing.T) {
	frame := filled(t, 50, 50, gocv.MatTypeCV8UC3, background)
	orig := frame.Clone()
	defer orig.Close()

	box := detector.Box{X: 40, Y: -10, Width: 30, Height: 30}
	blend(t, &frame, box, asset(t, 16, 16, gocv.MatTypeCV8UC3, gocv.NewScalar(0, 0, 0, 0)))

	clamped := image.Rect(40, 0, 50, 20)
	changed, contained := diff(frame, orig, clamped)
	assert.Equal(t, clamped.Dx()*clamped.Dy(), changed)
	assert.True(t, contained)
}

func TestBlendSkipsEmptyBoxes(t *testing.T) {
	frame := filled(t, 30, 30, gocv.MatTypeCV8UC3, background)
	orig := frame.Clone()
	defer orig.Close()

	a := asset(t, 8, 8, gocv.MatTypeCV8UC3, gocv.NewScalar(0, 0, 0, 0))
	for _, box := range []detector.Box{
		{X: 5, Y: 5, Width: 0, Height: 10},
		{X: 5, Y: 5, Width: 10, Height: -1},
		{X: 100, Y: 100, Width: 10, Height: 10},
	} {
		blend(t, &frame, box, a)
	}

	changed, _ := diff(frame, orig, image.Rectangle{})
	assert.Zero(t, changed)
}

func TestBlendRejectsNonBGRFrame(t *testing.T) {
	frame := filled(t, 10, 10, gocv.MatTypeCV8UC1, gocv.NewScalar(0, 0, 0, 0))
	b := NewBlender()
	defer b.Close()

	err := b.Blend(&frame, detector.Box{Width: 5, Height: 5},
		asset(t, 4, 4, gocv.MatTypeCV8UC3, gocv.NewScalar(0, 0, 0, 0)))
	assert.Error(t, err)
}
