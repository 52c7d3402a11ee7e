package main

// addToRecent returns list with id moved to the front, de-duplicated and
// truncated to limit. The input slice is not modified.
func addToRecent(list []string, id string, limit int) []string {
	if limit <= 0 {
		return nil
	}
	out := make([]string, 0, min(len(list)+1, limit))
	out = append(out, id)
	for _, v := range list {
		if len(out) == limit {
			break
		}
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// truncateRecent drops entries beyond limit.
func truncateRecent(list []string, limit int) ([]string, bool) {
	if len(list) <= limit {
		return list, false
	}
	return append([]string(nil), list[:limit]...), true
}

// pushRecentSound records id as the most recently used sound.
func (r *reduction) pushRecentSound(id string) {
	r.s.RecentSounds = addToRecent(r.s.RecentSounds, id, r.s.Limits.Sounds)
	r.markDirty(BucketRecentSounds)
}

// pushRecentMix records id as the most recently used mix.
func (r *reduction) pushRecentMix(id string) {
	r.s.RecentMixes = addToRecent(r.s.RecentMixes, id, r.s.Limits.Mixes)
	r.markDirty(BucketRecentMixes)
}

// setRecentLimits clamps the new limits and truncates the stored lists right away.
func (r *reduction) setRecentLimits(ev SetRecentLimits) {
	next := r.s.Limits
	if ev.Sounds != 0 {
		next.Sounds = ev.Sounds
	}
	if ev.Mixes != 0 {
		next.Mixes = ev.Mixes
	}
	next = next.clamped()
	if next == r.s.Limits {
		return
	}
	r.s.Limits = next
	r.markDirty(BucketRecentLimits)

	var cut bool
	if r.s.RecentSounds, cut = truncateRecent(r.s.RecentSounds, next.Sounds); cut {
		r.markDirty(BucketRecentSounds)
	}
	if r.s.RecentMixes, cut = truncateRecent(r.s.RecentMixes, next.Mixes); cut {
		r.markDirty(BucketRecentMixes)
	}
	r.changed = true
}

func (r *reduction) clearRecents() {
	if len(r.s.RecentSounds) == 0 && len(r.s.RecentMixes) == 0 {
		return
	}
	r.s.RecentSounds = nil
	r.s.RecentMixes = nil
	r.markDirty(BucketRecentSounds)
	r.markDirty(BucketRecentMixes)
	r.changed = true
}
