package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Detector backends
const (
	BackendYuNet   = "yunet"
	BackendSCRFD   = "scrfd"
	BackendCascade = "cascade"
)

// Config holds the installation configuration
type Config struct {
	Camera   Camera   `yaml:"camera"`
	Display  Display  `yaml:"display"`
	Detector Detector `yaml:"detector"`
	// Overlays maps mode k to Overlays[k-1]. Mode 0 never has an overlay.
	Overlays []string `yaml:"overlays"`
	// ToggleMode is the mode the debug toggle key switches to from 0.
	ToggleMode int     `yaml:"toggle_mode"`
	Control    Control `yaml:"control"`
	Log        Log     `yaml:"log"`
	Voice      Voice   `yaml:"voice"`
}

// Camera contains capture settings
type Camera struct {
	// Device is a camera index ("0"), a video file path or a stream URL.
	Device string `yaml:"device"`
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	FPS    int    `yaml:"fps"`
}

// Display contains output window settings
type Display struct {
	WindowName string `yaml:"window_name"`
	Fullscreen bool   `yaml:"fullscreen"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	ShowFPS    bool   `yaml:"show_fps"`
}

// Detector contains face detector settings
type Detector struct {
	Backend       string  `yaml:"backend"`
	ModelPath     string  `yaml:"model_path"`
	InputSize     int     `yaml:"input_size"`
	ConfThreshold float32 `yaml:"conf_threshold"`
	NMSThreshold  float32 `yaml:"nms_threshold"`
	TopK          int     `yaml:"top_k"`
	// ORTLibrary is the ONNX Runtime shared library, used by the scrfd backend.
	ORTLibrary string `yaml:"ort_library"`
}

// Control contains the mode socket settings
type Control struct {
	Address string `yaml:"address"`
}

// Log contains logging settings
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// Voice contains settings for the voice control process
type Voice struct {
	GreetPhrase    string         `yaml:"greet_phrase"`
	FarewellPhrase string         `yaml:"farewell_phrase"`
	GreetMode      int            `yaml:"greet_mode"`
	EmotionModel   string         `yaml:"emotion_model"`
	APIKeyEnv      string         `yaml:"api_key_env"`
	MinScore       int            `yaml:"min_score"`
	EmotionModes   map[string]int `yaml:"emotion_modes"`
	PhotoPath      string         `yaml:"photo_path"`
}

// Default returns the installation defaults
func Default() Config {
	return Config{
		Camera: Camera{
			Device: "0",
			Width:  1280,
			Height: 720,
			FPS:    30,
		},
		Display: Display{
			WindowName: "Camera",
			Fullscreen: true,
			Width:      1920,
			Height:     1080,
		},
		Detector: Detector{
			Backend:       BackendYuNet,
			ModelPath:     "model/face_detection_yunet_2023mar.onnx",
			InputSize:     320,
			ConfThreshold: 0.9,
			NMSThreshold:  0.3,
			TopK:          5000,
			ORTLibrary:    "lib/libonnxruntime.so",
		},
		Overlays:   []string{"face/smile.png"},
		ToggleMode: 1,
		Control: Control{
			Address: "127.0.0.1:12345",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Voice: Voice{
			GreetPhrase:    "こんにちは",
			FarewellPhrase: "終わりだよ",
			GreetMode:      1,
			EmotionModel:   "gemini-2.5-flash",
			APIKeyEnv:      "GEMINI_API_KEY",
			MinScore:       3,
			EmotionModes: map[string]int{
				"joy": 1,
			},
			PhotoPath: "image/photo.jpg",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// yaml merges into an existing map, so a file mapping replaces the
	// default one instead of extending it
	defaultModes := cfg.Voice.EmotionModes
	cfg.Voice.EmotionModes = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Voice.EmotionModes == nil {
		cfg.Voice.EmotionModes = defaultModes
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for values the pipeline cannot run with
func (c *Config) Validate() error {
	var errs []error

	if c.Camera.Device == "" {
		errs = append(errs, errors.New("camera.device is required"))
	}
	if c.Camera.Width < 0 || c.Camera.Height < 0 || c.Camera.FPS < 0 {
		errs = append(errs, errors.New("camera width, height and fps must not be negative"))
	}
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		errs = append(errs, fmt.Errorf("display resolution must be positive, got %dx%d",
			c.Display.Width, c.Display.Height))
	}

	switch c.Detector.Backend {
	case BackendYuNet, BackendSCRFD, BackendCascade:
	default:
		errs = append(errs, fmt.Errorf("unknown detector backend %q (use %s, %s or %s)",
			c.Detector.Backend, BackendYuNet, BackendSCRFD, BackendCascade))
	}
	if c.Detector.ModelPath == "" {
		errs = append(errs, errors.New("detector.model_path is required"))
	}
	if c.Detector.Backend == BackendSCRFD && c.Detector.InputSize%32 != 0 {
		errs = append(errs, fmt.Errorf("detector.input_size must be a multiple of 32 for scrfd, got %d",
			c.Detector.InputSize))
	}

	for i, path := range c.Overlays {
		if path == "" {
			errs = append(errs, fmt.Errorf("overlays[%d] (mode %d) is empty", i, i+1))
		}
	}
	if c.Control.Address == "" {
		errs = append(errs, errors.New("control.address is required"))
	}

	if c.Voice.MinScore < 1 || c.Voice.MinScore > 5 {
		errs = append(errs, fmt.Errorf("voice.min_score must be between 1 and 5, got %d", c.Voice.MinScore))
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
