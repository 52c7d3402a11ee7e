package main

// ============================================================================
// Selection & gain
// ============================================================================

// markSelected selects id and requests its channel. It does not start
// playback and does not touch the recents or the current mix pointer.
func (r *reduction) markSelected(id string, volume float64) {
	st := r.s.sound(id)
	st.Selected = true
	st.Volume = clamp01(volume)
	r.s.Sounds[id] = st

	r.emit(
		CmdLoadSound{ID: id},
		CmdSetGain{ID: id, Gain: r.s.EffectiveGain(id)},
	)
	r.selectionChanged = true
	r.markDirty(BucketSoundStates)
}

func (r *reduction) selectSound(id string) {
	if !r.env.Catalog.HasSound(id) {
		return
	}
	if r.s.sound(id).Selected {
		return
	}

	if !r.s.anySelected() {
		r.s.Playing = true
	}
	r.markSelected(id, r.s.sound(id).Volume)
	if r.s.Playing {
		r.emit(CmdPlay{ID: id})
	}

	r.s.CurrentMix = nil
	r.pushRecentSound(id)
}

func (r *reduction) unselectSound(id string) {
	st, ok := r.s.Sounds[id]
	if !ok || !st.Selected {
		return
	}
	st.Selected = false
	r.s.Sounds[id] = st
	delete(r.s.Silent, id)

	r.emit(CmdPause{ID: id})
	r.s.CurrentMix = nil
	if !r.s.anySelected() {
		r.s.Playing = false
	}
	r.selectionChanged = true
	r.markDirty(BucketSoundStates)
}

// unselectAll clears the selection in one step with a single batched pause.
// It reports whether anything was selected.
func (r *reduction) unselectAll() bool {
	ids := r.s.SelectedIDs(r.env.Catalog)
	if len(ids) == 0 {
		return false
	}
	for _, id := range ids {
		st := r.s.Sounds[id]
		st.Selected = false
		r.s.Sounds[id] = st
		delete(r.s.Silent, id)
	}
	r.emit(CmdPauseAll{IDs: ids})
	r.s.Playing = false
	r.selectionChanged = true
	r.markDirty(BucketSoundStates)
	return true
}

func (r *reduction) setVolume(id string, v float64) {
	if !r.env.Catalog.HasSound(id) {
		return
	}
	st := r.s.sound(id)
	st.Volume = clamp01(v)
	r.s.Sounds[id] = st

	r.emit(CmdSetGain{ID: id, Gain: r.s.EffectiveGain(id)})
	r.markDirty(BucketSoundStates)
	r.changed = true
}

func (r *reduction) setGlobalVolume(v float64) {
	v = clamp01(v)
	r.s.Master.Volume = v
	if v > 0 {
		r.s.Master.VolumeBeforeMute = v
	}
	r.applyMasterGain()
}

// toggleMute remembers a non-zero master volume and zeroes it, or restores
// the remembered value (1.0 if there is none).
func (r *reduction) toggleMute() {
	if r.s.Master.Volume > 0 {
		r.s.Master.VolumeBeforeMute = r.s.Master.Volume
		r.s.Master.Volume = 0
	} else {
		restore := r.s.Master.VolumeBeforeMute
		if restore <= 0 {
			restore = 1.0
		}
		r.s.Master.Volume = restore
	}
	r.applyMasterGain()
}

func (r *reduction) applyMasterGain() {
	for _, id := range r.s.SelectedIDs(r.env.Catalog) {
		r.emit(CmdSetGain{ID: id, Gain: r.s.EffectiveGain(id)})
	}
	r.markDirty(BucketMasterGain)
	r.changed = true
}

// shuffle replaces the selection with shuffleSoundCount distinct random sounds
// at random volumes and plays them.
func (r *reduction) shuffle() {
	ids := r.env.Catalog.SoundIDs()
	if len(ids) < shuffleSoundCount {
		return
	}
	r.unselectAll()

	perm := r.env.Rand.Perm(len(ids))
	picked := make([]string, 0, shuffleSoundCount)
	for _, i := range perm[:shuffleSoundCount] {
		id := ids[i]
		vol := shuffleMinVolume + r.env.Rand.Float64()*(shuffleMaxVolume-shuffleMinVolume)
		r.markSelected(id, vol)
		r.pushRecentSound(id)
		picked = append(picked, id)
	}

	r.s.Playing = true
	r.s.CurrentMix = nil
	r.emit(CmdPlayAll{IDs: picked})
}

// togglePlayback pauses or resumes the selected channels. The selection is kept.
func (r *reduction) togglePlayback() {
	r.setPlayback(!r.s.Playing)
}

// setPlayback pauses or resumes the selection. Asking for the current
// state is a no-op.
func (r *reduction) setPlayback(playing bool) {
	ids := r.s.SelectedIDs(r.env.Catalog)
	if len(ids) == 0 || playing == r.s.Playing {
		return
	}
	if !playing {
		r.s.Playing = false
		r.emit(CmdPauseAll{IDs: ids})
	} else {
		r.s.Playing = true
		for _, id := range ids {
			r.emit(
				CmdLoadSound{ID: id},
				CmdSetGain{ID: id, Gain: r.s.EffectiveGain(id)},
			)
		}
		r.emit(CmdPlayAll{IDs: ids})
	}
	r.changed = true
}
