package camera

import (
	"fmt"

	"gocv.io/x/gocv"

	"github.com/dudu/facemode/internal/config"
)

// Snapshot opens the device, reads one frame and returns it JPEG encoded.
// When savePath is set the frame is also written there.
func Snapshot(cfg config.Camera, savePath string) ([]byte, error) {
	c, err := Open(cfg)
	if err != nil {
		return nil, err
	}
	defer c.Close()

	frame := gocv.NewMat()
	defer frame.Close()

	if err := c.Next(&frame); err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	if savePath != "" && !gocv.IMWrite(savePath, frame) {
		return nil, fmt.Errorf("failed to save snapshot to %s", savePath)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, frame)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	defer buf.Close()

	// GetBytes aliases C memory that Close releases
	return append([]byte(nil), buf.GetBytes()...), nil
}
