package main

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// SoundDefinition is an immutable catalog entry for one looping layer.
type SoundDefinition struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Icon  string `yaml:"icon" json:"icon"`
	Asset string `yaml:"asset" json:"asset"`
}

// Preset is a named, ordered set of sound ids with per-sound volume overrides.
// Built-in presets (mixes) come from the catalog; user presets are created at runtime.
type Preset struct {
	ID       string             `yaml:"id" json:"id"`
	Name     string             `yaml:"name" json:"name"`
	Icon     string             `yaml:"icon" json:"icon"`
	SoundIDs []string           `yaml:"sounds" json:"soundIds"`
	Volumes  map[string]float64 `yaml:"volumes,omitempty" json:"volumes,omitempty"`
}

// Volume returns the override for id or the default sound volume.
func (p Preset) Volume(id string) float64 {
	if v, ok := p.Volumes[id]; ok {
		return clamp01(v)
	}
	return defaultSoundVolume
}

// Validate checks the preset's own invariants (not catalog membership).
func (p Preset) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("preset id is empty")
	}
	seen := make(map[string]struct{}, len(p.SoundIDs))
	for _, id := range p.SoundIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("preset %q lists sound %q twice", p.ID, id)
		}
		seen[id] = struct{}{}
	}
	for id, v := range p.Volumes {
		if v < 0 || v > 1 {
			return fmt.Errorf("preset %q volume for %q out of range [0,1]: %v", p.ID, id, v)
		}
	}
	return nil
}

func (p Preset) clone() Preset {
	out := p
	out.SoundIDs = append([]string(nil), p.SoundIDs...)
	if p.Volumes != nil {
		out.Volumes = make(map[string]float64, len(p.Volumes))
		for k, v := range p.Volumes {
			out.Volumes[k] = v
		}
	}
	return out
}

// Catalog is the read-only registry of sounds and built-in mixes.
// It is built once at startup and shared without locking.
type Catalog struct {
	sounds     []SoundDefinition
	soundIndex map[string]int

	mixes    []Preset
	mixIndex map[string]int
	mixKeys  []string // sorted id-set key per mix, parallel to mixes
}

type catalogFile struct {
	Sounds []SoundDefinition `yaml:"sounds"`
	Mixes  []Preset          `yaml:"mixes"`
}

// ParseCatalog decodes and validates a YAML catalog document.
func ParseCatalog(b []byte) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode catalog yaml: %w", err)
	}
	return NewCatalog(f.Sounds, f.Mixes)
}

// LoadCatalogFile reads a catalog from disk. An empty path selects the
// embedded default catalog.
func LoadCatalogFile(path string) (*Catalog, error) {
	if path == "" {
		return ParseCatalog(defaultCatalogYAML)
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return ParseCatalog(b)
}

// NewCatalog indexes sounds and mixes. Mixes may only reference known sounds.
func NewCatalog(sounds []SoundDefinition, mixes []Preset) (*Catalog, error) {
	c := &Catalog{
		sounds:     make([]SoundDefinition, 0, len(sounds)),
		soundIndex: make(map[string]int, len(sounds)),
		mixes:      make([]Preset, 0, len(mixes)),
		mixIndex:   make(map[string]int, len(mixes)),
	}

	for i, s := range sounds {
		if strings.TrimSpace(s.ID) == "" {
			return nil, fmt.Errorf("sounds[%d]: id is empty", i)
		}
		if _, dup := c.soundIndex[s.ID]; dup {
			return nil, fmt.Errorf("sounds[%d]: duplicate id %q", i, s.ID)
		}
		c.soundIndex[s.ID] = len(c.sounds)
		c.sounds = append(c.sounds, s)
	}

	for i, m := range mixes {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("mixes[%d]: %w", i, err)
		}
		if _, dup := c.mixIndex[m.ID]; dup {
			return nil, fmt.Errorf("mixes[%d]: duplicate id %q", i, m.ID)
		}
		for _, id := range m.SoundIDs {
			if _, ok := c.soundIndex[id]; !ok {
				return nil, fmt.Errorf("mixes[%d] %q: unknown sound %q", i, m.ID, id)
			}
		}
		c.mixIndex[m.ID] = len(c.mixes)
		c.mixes = append(c.mixes, m.clone())
		c.mixKeys = append(c.mixKeys, idSetKey(m.SoundIDs))
	}

	return c, nil
}

// Sound looks up a sound definition by id.
func (c *Catalog) Sound(id string) (SoundDefinition, bool) {
	i, ok := c.soundIndex[id]
	if !ok {
		return SoundDefinition{}, false
	}
	return c.sounds[i], true
}

// HasSound reports whether id is a catalog sound.
func (c *Catalog) HasSound(id string) bool {
	_, ok := c.soundIndex[id]
	return ok
}

// SoundOrder returns the catalog position of id, or -1.
func (c *Catalog) SoundOrder(id string) int {
	if i, ok := c.soundIndex[id]; ok {
		return i
	}
	return -1
}

// Sounds returns sound definitions in declaration order.
func (c *Catalog) Sounds() []SoundDefinition {
	return append([]SoundDefinition(nil), c.sounds...)
}

// SoundIDs returns all sound ids in declaration order.
func (c *Catalog) SoundIDs() []string {
	ids := make([]string, len(c.sounds))
	for i, s := range c.sounds {
		ids[i] = s.ID
	}
	return ids
}

// Mix looks up a built-in mix by id.
func (c *Catalog) Mix(id string) (Preset, bool) {
	i, ok := c.mixIndex[id]
	if !ok {
		return Preset{}, false
	}
	return c.mixes[i].clone(), true
}

// Mixes returns built-in mixes in declaration order.
func (c *Catalog) Mixes() []Preset {
	out := make([]Preset, len(c.mixes))
	for i, m := range c.mixes {
		out[i] = m.clone()
	}
	return out
}

// AssetFor implements playback.AssetResolver.
func (c *Catalog) AssetFor(id string) (string, bool) {
	s, ok := c.Sound(id)
	if !ok {
		return "", false
	}
	return s.Asset, true
}

// idSetKey is the canonical key of a set of ids: sorted, de-duplicated, NUL-joined.
func idSetKey(ids []string) string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	out := sorted[:0]
	for i, id := range sorted {
		if i > 0 && id == sorted[i-1] {
			continue
		}
		out = append(out, id)
	}
	return strings.Join(out, "\x00")
}
