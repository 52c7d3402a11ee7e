package main

// matchingMix returns the first built-in mix, in declaration order, whose
// sound id set equals the given ids. Volumes are not compared.
func matchingMix(cat *Catalog, selectedIDs []string) (Preset, bool) {
	if cat == nil || len(selectedIDs) == 0 {
		return Preset{}, false
	}
	key := idSetKey(selectedIDs)
	for i, k := range cat.mixKeys {
		if k == key {
			return cat.mixes[i].clone(), true
		}
	}
	return Preset{}, false
}

// refreshMatch recomputes the cached match. Callers only invoke it after the
// selected id set changed.
func (r *reduction) refreshMatch() {
	prev := r.s.MatchedMixID
	if m, ok := matchingMix(r.env.Catalog, r.s.SelectedIDs(r.env.Catalog)); ok {
		r.s.MatchedMixID = m.ID
	} else {
		r.s.MatchedMixID = ""
	}
	if prev != r.s.MatchedMixID {
		r.changed = true
	}
}
