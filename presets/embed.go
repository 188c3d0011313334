// Package presets embeds the bundled scan profiles.
//
// This ensures profiles are available regardless of installation method.
// The config package falls back to these embedded files when a profile is
// requested by name rather than by path.
//
// Usage:
//
//	data, _ := presets.FS.ReadFile("balanced.yaml")
package presets

import "embed"

// FS contains the bundled scan profile YAML files, one per profile name.
//
//go:embed *.yaml
var FS embed.FS
