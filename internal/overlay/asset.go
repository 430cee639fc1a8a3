// Package overlay loads the per-mode overlay images and composites them
// onto detected faces.
package overlay

import (
	"fmt"
	"os"

	"gocv.io/x/gocv"
)

// Asset is an overlay image with 3 (BGR) or 4 (BGRA) channels. It is
// immutable after loading and shared read-only by every frame.
type Asset struct {
	img  gocv.Mat
	path string
}

// LoadAsset reads an image file keeping its alpha channel. Grayscale images
// are converted to BGR.
func LoadAsset(path string) (*Asset, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	img := gocv.IMRead(path, gocv.IMReadUnchanged)
	if img.Empty() {
		img.Close()
		return nil, fmt.Errorf("failed to decode image: %s", path)
	}

	asset, err := NewAsset(img)
	if err != nil {
		img.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	asset.path = path
	return asset, nil
}

// NewAsset takes ownership of an 8-bit image
func NewAsset(img gocv.Mat) (*Asset, error) {
	if img.Empty() {
		return nil, fmt.Errorf("empty image")
	}

	switch img.Type() {
	case gocv.MatTypeCV8UC3, gocv.MatTypeCV8UC4:
		return &Asset{img: img}, nil
	case gocv.MatTypeCV8UC1:
		bgr := gocv.NewMat()
		gocv.CvtColor(img, &bgr, gocv.ColorGrayToBGR)
		img.Close()
		return &Asset{img: bgr}, nil
	default:
		return nil, fmt.Errorf("unsupported image type %v (want 8-bit gray, BGR or BGRA)", img.Type())
	}
}

// HasAlpha reports whether the asset carries per-pixel transparency
func (a *Asset) HasAlpha() bool {
	return a.img.Channels() == 4
}

// Path returns the file the asset was loaded from
func (a *Asset) Path() string {
	return a.path
}

// Width returns asset width
func (a *Asset) Width() int {
	return a.img.Cols()
}

// Height returns asset height
func (a *Asset) Height() int {
	return a.img.Rows()
}

// Close releases the image
func (a *Asset) Close() error {
	return a.img.Close()
}
