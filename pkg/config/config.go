// Package config loads scan profiles.
//
// A profile bundles the knobs that shape a scan: crawl depth, worker
// concurrency, request timeout and the rate limiting preset. Four profiles
// ship embedded in the binary (fast, balanced, deep, stealth); custom
// profiles are plain YAML files with the same fields.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/shadowprobe/shadowprobe/pkg/defaults"
	"github.com/shadowprobe/shadowprobe/pkg/duration"
	"github.com/shadowprobe/shadowprobe/pkg/finding"
	"github.com/shadowprobe/shadowprobe/pkg/ratelimit"
	"github.com/shadowprobe/shadowprobe/presets"
)

// DefaultProfile is used when no profile is named.
const DefaultProfile = "balanced"

// Profile is a named scan configuration.
type Profile struct {
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Depth       int           `yaml:"depth"`
	Concurrency int           `yaml:"concurrency"`
	Timeout     time.Duration `yaml:"timeout"`

	// Rate is a ratelimit preset name: fast, balanced, stealth or custom.
	Rate string `yaml:"rate"`

	// RPS is only read by the custom rate preset.
	RPS int `yaml:"rps,omitempty"`

	// MaxPages stops the crawl after this many endpoints (0 = unbounded).
	MaxPages int `yaml:"max_pages,omitempty"`

	UserAgent string `yaml:"user_agent,omitempty"`

	// Detectors restricts the scan to these vulnerability classes
	// (empty = all registered detectors).
	Detectors []string `yaml:"detectors,omitempty"`
}

// Default returns the built-in balanced values without touching the
// embedded files.
func Default() *Profile {
	return &Profile{
		Name:        DefaultProfile,
		Depth:       defaults.DepthStandard,
		Concurrency: defaults.ConcurrencyScan,
		Timeout:     duration.HTTPScanning,
		Rate:        string(ratelimit.PresetBalanced),
	}
}

// Names lists the embedded profiles in alphabetical order.
func Names() []string {
	matches, _ := fs.Glob(presets.FS, "*.yaml")
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(m, ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Load resolves ref as an embedded profile name first and a file path
// second. An empty ref loads DefaultProfile.
func Load(ref string) (*Profile, error) {
	if ref == "" {
		ref = DefaultProfile
	}
	p, err := LoadProfile(ref)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrUnknownProfile) {
		return nil, err
	}
	if _, statErr := os.Stat(ref); statErr != nil {
		return nil, err
	}
	return LoadFile(ref)
}

// LoadProfile returns the embedded profile called name.
func LoadProfile(name string) (*Profile, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	data, err := presets.FS.ReadFile(key + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownProfile, name, strings.Join(Names(), ", "))
	}
	return Parse(data)
}

// LoadFile reads a profile from a YAML file on disk.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		p.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return p, nil
}

// Parse decodes a YAML profile. Fields the document omits keep the
// balanced defaults.
func Parse(data []byte) (*Profile, error) {
	p := Default()
	p.Name = ""
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks ranges and names.
func (p *Profile) Validate() error {
	if p.Depth < 0 {
		return fmt.Errorf("%w: depth %d is negative", ErrInvalidConfig, p.Depth)
	}
	if p.Concurrency < 1 {
		return fmt.Errorf("%w: concurrency must be at least 1, got %d", ErrInvalidConfig, p.Concurrency)
	}
	if p.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %s", ErrInvalidConfig, p.Timeout)
	}
	if p.MaxPages < 0 {
		return fmt.Errorf("%w: max_pages %d is negative", ErrInvalidConfig, p.MaxPages)
	}
	if _, err := p.RateLimit(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if _, err := p.Classes(); err != nil {
		return err
	}
	return nil
}

// RateLimit builds the limiter configuration for the profile's preset.
func (p *Profile) RateLimit() (*ratelimit.Config, error) {
	preset, err := ratelimit.ParsePreset(p.Rate)
	if err != nil {
		return nil, err
	}
	return ratelimit.PresetConfig(preset, p.RPS)
}

// Classes returns the detector restriction as vulnerability classes.
func (p *Profile) Classes() ([]finding.Class, error) {
	out := make([]finding.Class, 0, len(p.Detectors))
	for _, d := range p.Detectors {
		c := finding.Class(strings.ToLower(strings.TrimSpace(d)))
		if !c.IsKnown() {
			return nil, fmt.Errorf("%w: unknown detector class %q", ErrInvalidConfig, d)
		}
		out = append(out, c)
	}
	return out, nil
}
