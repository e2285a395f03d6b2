package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cjeanneret/CamGo/internal/hw/camera"
	"github.com/cjeanneret/CamGo/internal/logic/session"
)

// Camera types
const (
	CameraSimulated     = "simulated"      // renders test cards, for dev/test
	CameraRemoteTrigger = "remote_trigger" // tethered camera fired over GPIO
	CameraNative        = "native"         // registered later by the mobile host
)

// Device types
const (
	DeviceSimulated = "simulated"
	DeviceNative    = "native"
)

// CameraConfig selects and tunes the camera capability.
type CameraConfig struct {
	Type    string         `yaml:"type"`
	Options camera.Options `yaml:"options"` // defaults for every capture

	// simulated
	LatencyMs int    `yaml:"latency_ms"` // answer delay (ms)
	FailWith  string `yaml:"fail_with"`  // non-empty: every capture fails with this message

	// remote_trigger
	Name           string `yaml:"name"`             // e.g., "d90", used in references
	FocusPin       int    `yaml:"focus_pin"`        // GPIO pin for FOCUS line
	ShutterPin     int    `yaml:"shutter_pin"`      // GPIO pin for SHUTTER line
	FocusDelayMs   int    `yaml:"focus_delay_ms"`   // autofocus delay (ms)
	ShutterDelayMs int    `yaml:"shutter_delay_ms"` // shutter hold time (ms)
}

// DeviceConfig selects the device-info capability.
type DeviceConfig struct {
	Type string `yaml:"type"`
}

// SessionConfig holds the capture-and-browse policies.
type SessionConfig struct {
	EmptyList session.EmptyListPolicy `yaml:"empty_list"` // error | ignore
	Overlap   session.OverlapPolicy   `yaml:"overlap"`    // allow | reject
}

// DefaultsConfig contains generic parameters.
type DefaultsConfig struct {
	DebugLevel int  `yaml:"debug_level"` // debug level 0-4 (0=off, 1=info, 2=live, 3=verbose, 4=trace)
	MockGPIO   bool `yaml:"mock_gpio"`   // use mock GPIO (true=dev/test, false=real Raspberry Pi)
	WebPort    int  `yaml:"web_port"`    // port of the viewer served by "camgo serve"
}

// Config aggregates all application configuration.
type Config struct {
	Camera   CameraConfig   `yaml:"camera"`
	Device   DeviceConfig   `yaml:"device"`
	Session  SessionConfig  `yaml:"session"`
	Defaults DefaultsConfig `yaml:"defaults"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Camera: CameraConfig{
			Type:           CameraSimulated,
			Options:        camera.DefaultOptions(),
			LatencyMs:      200,
			Name:           "remote",
			FocusDelayMs:   500,
			ShutterDelayMs: 200,
		},
		Device: DeviceConfig{Type: DeviceSimulated},
		Defaults: DefaultsConfig{
			DebugLevel: 1,
			MockGPIO:   true,
			WebPort:    8080,
		},
	}
}

// Load reads a YAML file and returns the configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of Default and validates the result.
// Keys absent from data keep their default values.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("unmarshal yaml: %w", err)
		}
	}

	// Non-positive delays fall back to defaults
	if cfg.Camera.LatencyMs < 0 {
		cfg.Camera.LatencyMs = 0
	}
	if cfg.Camera.FocusDelayMs <= 0 {
		cfg.Camera.FocusDelayMs = 500 // 500ms for autofocus
	}
	if cfg.Camera.ShutterDelayMs <= 0 {
		cfg.Camera.ShutterDelayMs = 200 // 200ms shutter hold
	}
	if cfg.Defaults.WebPort == 0 {
		cfg.Defaults.WebPort = 8080
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	switch c.Camera.Type {
	case CameraSimulated, CameraNative:
	case CameraRemoteTrigger:
		if c.Camera.FocusPin <= 0 || c.Camera.ShutterPin <= 0 {
			return fmt.Errorf("camera.focus_pin and camera.shutter_pin are required for %s", CameraRemoteTrigger)
		}
		if c.Camera.FocusPin == c.Camera.ShutterPin {
			return fmt.Errorf("camera.focus_pin and camera.shutter_pin must differ, both are %d", c.Camera.FocusPin)
		}
		if c.Camera.Options.OutputFormat != camera.NativeReference {
			return fmt.Errorf("camera.options.output_format must be %s for %s", camera.NativeReference, CameraRemoteTrigger)
		}
	case "":
		return errors.New("camera.type is required")
	default:
		return fmt.Errorf("unsupported camera type: %s", c.Camera.Type)
	}

	if err := c.Camera.Options.Validate(); err != nil {
		return fmt.Errorf("camera.options: %w", err)
	}

	switch c.Device.Type {
	case DeviceSimulated, DeviceNative:
	default:
		return fmt.Errorf("unsupported device type: %q", c.Device.Type)
	}

	if c.Defaults.DebugLevel < 0 || c.Defaults.DebugLevel > 4 {
		return fmt.Errorf("debug_level must be between 0 and 4, got %d", c.Defaults.DebugLevel)
	}
	if c.Defaults.WebPort < 0 || c.Defaults.WebPort > 65535 {
		return fmt.Errorf("web_port must be 1-65535, got %d", c.Defaults.WebPort)
	}
	return nil
}

// ValidateConfigPath accepts only .yaml files directly inside a configs/
// directory, after cleaning the path.
func ValidateConfigPath(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("config path is empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve config path: %w", err)
	}
	if filepath.Ext(abs) != ".yaml" {
		return fmt.Errorf("config file must have .yaml extension: %s", path)
	}
	if filepath.Base(filepath.Dir(abs)) != "configs" {
		return fmt.Errorf("config file must live in a configs/ directory: %s", path)
	}
	return nil
}

// Latency returns the simulated camera answer delay.
func (c *Config) Latency() time.Duration {
	return time.Duration(c.Camera.LatencyMs) * time.Millisecond
}

// FocusDelay returns the autofocus delay duration.
func (c *Config) FocusDelay() time.Duration {
	return time.Duration(c.Camera.FocusDelayMs) * time.Millisecond
}

// ShutterDelay returns the shutter hold duration.
func (c *Config) ShutterDelay() time.Duration {
	return time.Duration(c.Camera.ShutterDelayMs) * time.Millisecond
}

// SessionOptions translates the session section into controller options.
func (c *Config) SessionOptions() []session.Option {
	return []session.Option{
		session.WithCaptureOptions(c.Camera.Options),
		session.WithEmptyListPolicy(c.Session.EmptyList),
		session.WithOverlapPolicy(c.Session.Overlap),
	}
}
