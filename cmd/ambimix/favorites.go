package main

import "slices"

// effectiveOrder reconciles an explicit drag order with a favorite set: the
// stored order filtered to ids that are still favorite, followed by favorites
// missing from it in native order.
func effectiveOrder(stored []string, isFavorite func(string) bool, native []string) []string {
	out := make([]string, 0, len(stored))
	seen := make(map[string]struct{}, len(stored))
	for _, id := range stored {
		if _, dup := seen[id]; dup || !isFavorite(id) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	for _, id := range native {
		if _, ok := seen[id]; ok || !isFavorite(id) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// reorderSlice takes list[from:from+count] out and reinserts it at index to
// of the remaining list (clamped). Invalid ranges report false.
func reorderSlice(list []string, from, count, to int) ([]string, bool) {
	if from < 0 || count <= 0 || from+count > len(list) {
		return nil, false
	}
	moved := slices.Clone(list[from : from+count])
	rest := make([]string, 0, len(list)-count)
	rest = append(rest, list[:from]...)
	rest = append(rest, list[from+count:]...)

	to = max(0, min(to, len(rest)))
	out := make([]string, 0, len(list))
	out = append(out, rest[:to]...)
	out = append(out, moved...)
	out = append(out, rest[to:]...)
	return out, true
}

// effectiveFavoriteSounds is the favorite sound order shown to clients.
func effectiveFavoriteSounds(s *MixerState, cat *Catalog) []string {
	return effectiveOrder(s.FavoriteSoundOrder, func(id string) bool {
		return s.Sounds[id].Favorite
	}, cat.SoundIDs())
}

func (r *reduction) toggleFavoriteSound(id string) {
	if !r.env.Catalog.HasSound(id) {
		return
	}
	st := r.s.sound(id)
	st.Favorite = !st.Favorite
	r.s.Sounds[id] = st

	if st.Favorite {
		if !slices.Contains(r.s.FavoriteSoundOrder, id) {
			r.s.FavoriteSoundOrder = append(slices.Clone(r.s.FavoriteSoundOrder), id)
		}
	} else {
		r.s.FavoriteSoundOrder = slices.DeleteFunc(slices.Clone(r.s.FavoriteSoundOrder), func(v string) bool {
			return v == id
		})
	}
	r.markDirty(BucketSoundStates)
	r.markDirty(BucketFavoriteSounds)
	r.changed = true
}

func (r *reduction) reorderFavoriteSounds(ev ReorderFavoriteSounds) {
	next, ok := reorderSlice(effectiveFavoriteSounds(r.s, r.env.Catalog), ev.From, ev.Count, ev.To)
	if !ok {
		return
	}
	r.s.FavoriteSoundOrder = next
	r.markDirty(BucketFavoriteSounds)
	r.changed = true
}

// toggleFavoriteMix adds or removes a built-in mix or user preset id. The list
// is both the favorite set and its order.
func (r *reduction) toggleFavoriteMix(id string) {
	if _, ok := r.s.resolvePreset(r.env.Catalog, id); !ok && !slices.Contains(r.s.FavoriteMixes, id) {
		return
	}
	if slices.Contains(r.s.FavoriteMixes, id) {
		r.s.FavoriteMixes = slices.DeleteFunc(slices.Clone(r.s.FavoriteMixes), func(v string) bool {
			return v == id
		})
	} else {
		r.s.FavoriteMixes = append(slices.Clone(r.s.FavoriteMixes), id)
	}
	r.markDirty(BucketFavoriteMixes)
	r.changed = true
}

func (r *reduction) reorderFavoriteMixes(ev ReorderFavoriteMixes) {
	next, ok := reorderSlice(r.s.FavoriteMixes, ev.From, ev.Count, ev.To)
	if !ok {
		return
	}
	r.s.FavoriteMixes = next
	r.markDirty(BucketFavoriteMixes)
	r.changed = true
}
