// Package config loads motoscan settings: defaults, an optional YAML file,
// then environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/motoscan/pkg/aruco"
)

// Default service configuration.
const (
	DefaultPort        = 5001
	DefaultBackendURL  = "http://localhost:8080"
	DefaultEmail       = "admin@email.com"
	DefaultPassword    = "adminmottu"
	DefaultTagStatus   = "DETECTADO"
	DefaultVehicleID   = 1
	DefaultJPEGQuality = 80
)

// Config holds all motoscan settings.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Capture CaptureConfig `yaml:"capture"`
	Log     LogConfig     `yaml:"log"`
}

// ServerConfig configures the camera web service.
type ServerConfig struct {
	Host        string   `yaml:"host"`
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Debug       bool     `yaml:"debug"` // request logging
}

// BackendConfig configures the outbound tag API.
type BackendConfig struct {
	BaseURL    string        `yaml:"base_url"`
	LoginPath  string        `yaml:"login_path"`
	CreatePath string        `yaml:"create_path"`
	ListPath   string        `yaml:"list_path"`
	Email      string        `yaml:"email"`
	Password   string        `yaml:"password"`
	Timeout    time.Duration `yaml:"timeout"`
	VehicleID  int64         `yaml:"vehicle_id"`
	TagStatus  string        `yaml:"tag_status"`
}

// CaptureConfig configures the capture loop, detector and reporter.
type CaptureConfig struct {
	CameraID       int           `yaml:"camera_id"`
	Dictionary     string        `yaml:"dictionary"`
	ReportInterval time.Duration `yaml:"report_interval"` // per-tag resubmission guard
	LoginRetry     time.Duration `yaml:"login_retry"`     // min gap between login attempts
	ReadRetryDelay time.Duration `yaml:"read_retry_delay"`
	LoopDelay      time.Duration `yaml:"loop_delay"`
	StreamInterval time.Duration `yaml:"stream_interval"`
	JPEGQuality    int           `yaml:"jpeg_quality"`
	MarkerSizeM    float64       `yaml:"marker_size_m"`
	FocalLengthPx  float64       `yaml:"focal_length_px"`
	LogEvery       int           `yaml:"log_every"`
}

// LogConfig configures internal/log.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: DefaultPort,
			CORSOrigins: []string{
				"http://localhost:8080",
				"http://127.0.0.1:8080",
			},
		},
		Backend: BackendConfig{
			BaseURL:    DefaultBackendURL,
			LoginPath:  "/api/login",
			CreatePath: "/api/aruco-tags/cadastrar",
			ListPath:   "/api/aruco-tags/listar",
			Email:      DefaultEmail,
			Password:   DefaultPassword,
			Timeout:    8 * time.Second,
			VehicleID:  DefaultVehicleID,
			TagStatus:  DefaultTagStatus,
		},
		Capture: CaptureConfig{
			CameraID:       0,
			Dictionary:     aruco.DefaultDictionary,
			ReportInterval: 2 * time.Second,
			LoginRetry:     2 * time.Second,
			ReadRetryDelay: 50 * time.Millisecond,
			LoopDelay:      10 * time.Millisecond,
			StreamInterval: 33 * time.Millisecond,
			JPEGQuality:    DefaultJPEGQuality,
			MarkerSizeM:    0.05,
			FocalLengthPx:  1000,
			LogEvery:       100,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load builds the configuration. path may be empty; a missing file is an error
// only when path was given explicitly.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Port = envInt("PORT", c.Server.Port)
	c.Backend.BaseURL = envString("BACKEND_URL", c.Backend.BaseURL)
	c.Backend.Email = envString("BACKEND_EMAIL", c.Backend.Email)
	c.Backend.Password = envString("BACKEND_PASSWORD", c.Backend.Password)
	c.Capture.Dictionary = envString("ARUCO_DICT", c.Capture.Dictionary)
	c.Capture.CameraID = envInt("CAMERA_ID", c.Capture.CameraID)
	c.Log.Level = envString("LOG_LEVEL", c.Log.Level)
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if u, err := url.Parse(c.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("backend.base_url is not an absolute URL: %q", c.Backend.BaseURL))
	}
	if c.Backend.Timeout <= 0 {
		errs = append(errs, errors.New("backend.timeout must be positive"))
	}
	if c.Capture.CameraID < 0 {
		errs = append(errs, fmt.Errorf("capture.camera_id must be >= 0, got %d", c.Capture.CameraID))
	}
	if !aruco.IsDictionary(c.Capture.Dictionary) {
		errs = append(errs, fmt.Errorf("capture.dictionary %q not one of %v", c.Capture.Dictionary, aruco.Dictionaries()))
	}
	if c.Capture.ReportInterval < 0 {
		errs = append(errs, errors.New("capture.report_interval must be >= 0"))
	}
	if c.Capture.JPEGQuality < 1 || c.Capture.JPEGQuality > 100 {
		errs = append(errs, fmt.Errorf("capture.jpeg_quality must be 1-100, got %d", c.Capture.JPEGQuality))
	}
	if c.Capture.MarkerSizeM <= 0 || c.Capture.FocalLengthPx <= 0 {
		errs = append(errs, errors.New("capture.marker_size_m and capture.focal_length_px must be positive"))
	}

	return errors.Join(errs...)
}

// ServerAddress returns the listen address.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
