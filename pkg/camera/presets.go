package camera

// Preset names for common configurations
const (
	PresetDefault  = "default"
	PresetLegacy   = "legacy"
	Preset1080p    = "1080p"
	PresetLowLight = "lowlight"
)

// Presets returns all available preset configurations.
func Presets() map[string]Config {
	return map[string]Config{
		PresetDefault:  DefaultConfig(),
		PresetLegacy:   LegacyConfig(),
		Preset1080p:    HD1080Config(),
		PresetLowLight: LowLightConfig(),
	}
}

// PresetNames returns the list of available preset names.
func PresetNames() []string {
	return []string{
		PresetDefault,
		PresetLegacy,
		Preset1080p,
		PresetLowLight,
	}
}

// GetPreset returns a preset config by name, or nil if not found.
func GetPreset(name string) *Config {
	if cfg, ok := Presets()[name]; ok {
		return &cfg
	}
	return nil
}

// HD1080Config returns 1080p. Markers resolve from further away at the cost
// of detection time per frame.
func HD1080Config() Config {
	cfg := DefaultConfig()
	cfg.Width = 1920
	cfg.Height = 1080
	return cfg
}

// LowLightConfig trades frame rate for exposure in dim garages.
func LowLightConfig() Config {
	cfg := DefaultConfig()
	cfg.Framerate = 15
	cfg.AutoExposure = 0.75
	return cfg
}
