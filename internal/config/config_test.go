package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "127.0.0.1:12345", cfg.Control.Address)
	assert.Equal(t, BackendYuNet, cfg.Detector.Backend)
	assert.Equal(t, []string{"face/smile.png"}, cfg.Overlays)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facemode.yaml")
	data := []byte(`
camera:
  device: "2"
display:
  width: 800
  height: 600
overlays:
  - face/smile.png
  - face/angry.png
control:
  address: 127.0.0.1:9000
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "2", cfg.Camera.Device)
	assert.Equal(t, 1280, cfg.Camera.Width, "unset fields keep their default")
	assert.Equal(t, 800, cfg.Display.Width)
	assert.Len(t, cfg.Overlays, 2)
	assert.Equal(t, "127.0.0.1:9000", cfg.Control.Address)
}

func TestLoadReplacesEmotionModes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facemode.yaml")
	data := []byte(`
voice:
  emotion_modes:
    anger: 2
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"anger": 2}, cfg.Voice.EmotionModes)
}

func TestLoadKeepsDefaultEmotionModes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facemode.yaml")
	require.NoError(t, os.WriteFile(path, []byte("voice:\n  min_score: 4\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Voice.MinScore)
	assert.Equal(t, Default().Voice.EmotionModes, cfg.Voice.EmotionModes)
}

func TestLoadEmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().Camera, cfg.Camera)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Detector.Backend = "dlib" }},
		{"zero display", func(c *Config) { c.Display.Width = 0 }},
		{"empty overlay", func(c *Config) { c.Overlays = []string{"a.png", ""} }},
		{"no control address", func(c *Config) { c.Control.Address = "" }},
		{"scrfd input size", func(c *Config) {
			c.Detector.Backend = BackendSCRFD
			c.Detector.InputSize = 300
		}},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
		{"zero min score", func(c *Config) { c.Voice.MinScore = 0 }},
		{"min score above scale", func(c *Config) { c.Voice.MinScore = 6 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
