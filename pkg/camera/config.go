// Package camera provides runtime-configurable capture settings for the
// detector camera: resolution, frame rate, JPEG quality and exposure.
package camera

// Config holds the camera capture parameters.
// They can be modified via the camera API at runtime and take effect when the
// device is next opened; Quality applies to the next encoded frame.
type Config struct {
	Width     int `json:"width"`     // Frame width in pixels
	Height    int `json:"height"`    // Frame height in pixels
	Framerate int `json:"framerate"` // Requested FPS
	Quality   int `json:"quality"`   // JPEG quality 1-100

	// AutoExposure is passed straight to CAP_PROP_AUTO_EXPOSURE.
	// 0.25 selects manual exposure on DirectShow/MSMF, 0.75 auto.
	// Set to 0 to leave the driver default alone.
	AutoExposure float64 `json:"auto_exposure"`
}

// Limits for validation.
const (
	MinWidth     = 160
	MaxWidth     = 3840
	MinHeight    = 120
	MaxHeight    = 2160
	MaxFramerate = 120
)

// DefaultConfig returns the 720p setup the detector was tuned on.
func DefaultConfig() Config {
	return Config{
		Width:        1280,
		Height:       720,
		Framerate:    30,
		Quality:      80,
		AutoExposure: 0.25,
	}
}

// LegacyConfig returns a 640x480 configuration for slow USB webcams.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	if c.Width < MinWidth || c.Width > MaxWidth {
		errors = append(errors, "width must be between 160 and 3840")
	}
	if c.Height < MinHeight || c.Height > MaxHeight {
		errors = append(errors, "height must be between 120 and 2160")
	}
	if c.Framerate < 1 || c.Framerate > MaxFramerate {
		errors = append(errors, "framerate must be between 1 and 120")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}
	if c.AutoExposure < 0 || c.AutoExposure > 1 {
		errors = append(errors, "auto_exposure must be between 0 and 1")
	}

	return errors
}
