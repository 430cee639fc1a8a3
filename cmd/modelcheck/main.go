package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/dudu/facemode/internal/config"
	"github.com/dudu/facemode/internal/inference"
)

func main() {
	libPath := flag.String("ort", config.Default().Detector.ORTLibrary, "ONNX Runtime shared library")
	metal := flag.Bool("metal", false, "Also try to import the model with go-metal (macOS only)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: modelcheck [options] <model.onnx>\n\n")
		fmt.Fprintf(os.Stderr, "Checks that a face detector model loads before it is configured.\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}
	modelPath := flag.Arg(0)

	if _, err := os.Stat(modelPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := describe(modelPath, *libPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *metal {
		if err := metalImport(modelPath); err != nil {
			fmt.Fprintf(os.Stderr, "go-metal import failed: %v\n", err)
			os.Exit(1)
		}
	}
}

func describe(modelPath, libPath string) error {
	if err := inference.Initialize(libPath); err != nil {
		return err
	}
	defer inference.Shutdown()

	info, err := inference.Describe(modelPath)
	if err != nil {
		return err
	}

	fmt.Printf("Model: %s\n", modelPath)
	if info.Producer != "" {
		fmt.Printf("  Producer: %s (version %d)\n", info.Producer, info.Version)
	}

	fmt.Printf("\nInputs (%d):\n", len(info.Inputs))
	for _, in := range info.Inputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", in.Name, in.Dimensions, in.DataType)
	}

	fmt.Printf("\nOutputs (%d):\n", len(info.Outputs))
	for _, out := range info.Outputs {
		fmt.Printf("  %s: shape=%v, type=%v\n", out.Name, out.Dimensions, out.DataType)
	}
	return nil
}
