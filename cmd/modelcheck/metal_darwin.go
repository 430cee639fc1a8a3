//go:build darwin

package main

import (
	"fmt"

	"github.com/tsawler/go-metal/checkpoints"
)

// metalImport reports whether go-metal can run the model natively. It only
// supports a small operator set, so most detectors fall back to ONNX Runtime.
func metalImport(modelPath string) error {
	checkpoint, err := checkpoints.NewONNXImporter().ImportFromONNX(modelPath)
	if err != nil {
		return err
	}

	fmt.Printf("\ngo-metal: %d layers, %d weight tensors\n",
		len(checkpoint.ModelSpec.Layers), len(checkpoint.Weights))
	for i, layer := range checkpoint.ModelSpec.Layers {
		fmt.Printf("  %d: %s (%s)\n", i+1, layer.Name, layer.Type)
	}
	return nil
}
