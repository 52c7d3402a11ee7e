package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrImportDecode is returned for export documents that cannot be read.
var ErrImportDecode = errors.New("import decode error")

// ExportDocument is the versioned backup of user presets and favorites.
type ExportDocument struct {
	Version          int      `json:"version"`
	ExportDate       string   `json:"exportDate"`
	Presets          []Preset `json:"presets"`
	FavoriteMixIDs   []string `json:"favoriteMixIds"`
	FavoriteSoundIDs []string `json:"favoriteSoundIds"`
}

// BuildExportDocument captures the exportable part of s.
func BuildExportDocument(s *MixerState, cat *Catalog, now time.Time) ExportDocument {
	doc := ExportDocument{
		Version:          exportDocumentVersion,
		ExportDate:       now.UTC().Format(time.RFC3339),
		Presets:          make([]Preset, 0, len(s.UserPresets)),
		FavoriteMixIDs:   nonNil(slices.Clone(s.FavoriteMixes)),
		FavoriteSoundIDs: nonNil(effectiveFavoriteSounds(s, cat)),
	}
	for _, p := range s.UserPresets {
		doc.Presets = append(doc.Presets, p.clone())
	}
	return doc
}

// DecodeExportDocument parses and validates an export document. All failures
// wrap ErrImportDecode.
func DecodeExportDocument(b []byte) (ExportDocument, error) {
	var doc ExportDocument
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(&doc); err != nil {
		return ExportDocument{}, fmt.Errorf("%w: %v", ErrImportDecode, err)
	}
	if doc.Version < 1 || doc.Version > exportDocumentVersion {
		return ExportDocument{}, fmt.Errorf("%w: unsupported version %d", ErrImportDecode, doc.Version)
	}
	if doc.ExportDate != "" {
		if _, err := time.Parse(time.RFC3339, doc.ExportDate); err != nil {
			return ExportDocument{}, fmt.Errorf("%w: exportDate: %v", ErrImportDecode, err)
		}
	}
	seen := make(map[string]struct{}, len(doc.Presets))
	for i, p := range doc.Presets {
		if err := p.Validate(); err != nil {
			return ExportDocument{}, fmt.Errorf("%w: presets[%d]: %v", ErrImportDecode, i, err)
		}
		if _, dup := seen[p.ID]; dup {
			return ExportDocument{}, fmt.Errorf("%w: presets[%d]: duplicate id %q", ErrImportDecode, i, p.ID)
		}
		seen[p.ID] = struct{}{}
	}
	return doc, nil
}

// importDocument wholesale-replaces user presets and both favorite lists.
// Sound ids missing from the catalog are skipped. Nothing is changed when the
// document is invalid.
func (r *reduction) importDocument(doc ExportDocument) error {
	seen := make(map[string]struct{}, len(doc.Presets))
	presets := make([]Preset, 0, len(doc.Presets))
	for i, p := range doc.Presets {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("%w: presets[%d]: %v", ErrImportDecode, i, err)
		}
		if _, dup := seen[p.ID]; dup {
			return fmt.Errorf("%w: presets[%d]: duplicate id %q", ErrImportDecode, i, p.ID)
		}
		seen[p.ID] = struct{}{}
		presets = append(presets, p.clone())
	}

	cat := r.env.Catalog
	favSounds := make([]string, 0, len(doc.FavoriteSoundIDs))
	for _, id := range doc.FavoriteSoundIDs {
		if cat.HasSound(id) && !slices.Contains(favSounds, id) {
			favSounds = append(favSounds, id)
		}
	}
	favMixes := make([]string, 0, len(doc.FavoriteMixIDs))
	for _, id := range doc.FavoriteMixIDs {
		if id != "" && !slices.Contains(favMixes, id) {
			favMixes = append(favMixes, id)
		}
	}

	r.s.UserPresets = presets
	r.s.FavoriteMixes = favMixes
	r.s.FavoriteSoundOrder = favSounds
	for id, st := range r.s.Sounds {
		st.Favorite = slices.Contains(favSounds, id)
		r.s.Sounds[id] = st
	}
	for _, id := range favSounds {
		if _, ok := r.s.Sounds[id]; !ok {
			st := defaultSoundState()
			st.Favorite = true
			r.s.Sounds[id] = st
		}
	}

	if r.s.CurrentMix != nil {
		if _, ok := r.s.resolvePreset(cat, r.s.CurrentMix.MixID); !ok {
			r.s.CurrentMix = nil
		}
	}

	r.markDirty(BucketUserPresets)
	r.markDirty(BucketFavoriteMixes)
	r.markDirty(BucketFavoriteSounds)
	r.markDirty(BucketSoundStates)
	r.changed = true
	return nil
}
