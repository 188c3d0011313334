package ratelimit

import (
	"fmt"
	"strings"
)

// Preset names a (permits, interval, adaptive) configuration.
type Preset string

const (
	PresetFast     Preset = "fast"
	PresetBalanced Preset = "balanced"
	PresetStealth  Preset = "stealth"
	PresetCustom   Preset = "custom"
)

// Presets lists the named presets in order of aggressiveness.
var Presets = []Preset{PresetFast, PresetBalanced, PresetStealth, PresetCustom}

// ParsePreset resolves a preset name, case-insensitively.
func ParsePreset(name string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range Presets {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPreset, name)
}

// PresetConfig returns the configuration for p. rps is only used by the
// custom preset, which runs rps permits at rps requests per second with
// adaptation enabled.
//
//	fast:     100 permits, 10ms interval, no adaptation
//	balanced:  20 permits, 50ms interval, adaptive
//	stealth:    2 permits, 500ms interval, adaptive
func PresetConfig(p Preset, rps int) (*Config, error) {
	switch p {
	case PresetFast:
		return &Config{Permits: 100, RequestsPerSecond: 100}, nil
	case PresetBalanced:
		return &Config{Permits: 20, RequestsPerSecond: 20, Adaptive: true}, nil
	case PresetStealth:
		return &Config{Permits: 2, RequestsPerSecond: 2, Adaptive: true}, nil
	case PresetCustom:
		if rps < 0 {
			return nil, fmt.Errorf("%w: %d", ErrInvalidRate, rps)
		}
		return &Config{Permits: rps, RequestsPerSecond: rps, Adaptive: true}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPreset, string(p))
}
