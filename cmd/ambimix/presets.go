package main

import (
	"slices"
	"strings"
)

// applyPreset replaces the selection with the preset's sounds inside one
// reduction, so nothing in between is ever persisted, matched or broadcast.
func (r *reduction) applyPreset(p Preset, startPlaying bool) {
	r.unselectAll()

	ids := make([]string, 0, len(p.SoundIDs))
	for _, id := range p.SoundIDs {
		if !r.env.Catalog.HasSound(id) {
			continue
		}
		r.markSelected(id, p.Volume(id))
		ids = append(ids, id)
	}

	// Reverse so the first listed sound ends up most recent.
	for i := len(ids) - 1; i >= 0; i-- {
		r.pushRecentSound(ids[i])
	}

	if startPlaying && len(ids) > 0 {
		r.s.Playing = true
		r.emit(CmdPlayAll{IDs: ids})
	}

	r.s.CurrentMix = &CurrentMixPointer{MixID: p.ID, Icon: p.Icon}
	r.pushRecentMix(p.ID)
	r.changed = true
}

// playNextRandomMix applies a random built-in mix, avoiding the most recent
// one whenever there is a choice.
func (r *reduction) playNextRandomMix() {
	mixes := r.env.Catalog.Mixes()
	if len(mixes) == 0 {
		return
	}
	candidates := mixes
	if len(mixes) >= 2 && len(r.s.RecentMixes) > 0 {
		last := r.s.RecentMixes[0]
		candidates = slices.DeleteFunc(slices.Clone(mixes), func(p Preset) bool {
			return p.ID == last
		})
	}
	r.applyPreset(candidates[r.env.Rand.IntN(len(candidates))], true)
}

// saveUserPreset snapshots the selection, in catalog order with current
// volumes, as a new user preset and makes it the current mix.
func (r *reduction) saveUserPreset(name, icon string) {
	ids := r.s.SelectedIDs(r.env.Catalog)
	if len(ids) == 0 {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Custom mix"
	}

	p := Preset{
		ID:       r.env.NewID(),
		Name:     name,
		Icon:     icon,
		SoundIDs: ids,
		Volumes:  make(map[string]float64, len(ids)),
	}
	for _, id := range ids {
		p.Volumes[id] = r.s.sound(id).Volume
	}

	r.s.UserPresets = append(slices.Clone(r.s.UserPresets), p)
	r.s.CurrentMix = &CurrentMixPointer{MixID: p.ID, Icon: p.Icon}
	r.markDirty(BucketUserPresets)
	r.changed = true
}

func (r *reduction) deleteUserPreset(id string) {
	_, idx, ok := r.s.userPreset(id)
	if !ok {
		return
	}
	r.s.UserPresets = slices.Delete(slices.Clone(r.s.UserPresets), idx, idx+1)
	r.markDirty(BucketUserPresets)

	if slices.Contains(r.s.FavoriteMixes, id) {
		r.s.FavoriteMixes = slices.DeleteFunc(slices.Clone(r.s.FavoriteMixes), func(v string) bool { return v == id })
		r.markDirty(BucketFavoriteMixes)
	}
	if slices.Contains(r.s.RecentMixes, id) {
		r.s.RecentMixes = slices.DeleteFunc(slices.Clone(r.s.RecentMixes), func(v string) bool { return v == id })
		r.markDirty(BucketRecentMixes)
	}
	if r.s.CurrentMix != nil && r.s.CurrentMix.MixID == id {
		r.s.CurrentMix = nil
	}
	r.changed = true
}
