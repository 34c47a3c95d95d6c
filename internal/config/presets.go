package config

import "sort"

// Presets are named variations of the default scenario.
var Presets = map[string]func(*Config){
	"reference": func(c *Config) {},
	"gentle": func(c *Config) {
		c.Road.Speed = 8
		c.Road.RampAngle = 15
	},
	"curb": func(c *Config) {
		c.Road.Speed = 5
		c.Road.RampHeight = 0.1
		c.Road.RampAngle = 75
	},
	// The window ends before the ramp is crossed.
	"short-window": func(c *Config) {
		c.Simulation.Duration = 0.008
		c.Simulation.Samples = 20
	},
}

// GetPreset returns the default configuration with the named preset
// applied, or nil when it does not exist.
func GetPreset(name string) *Config {
	apply, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
