package main

import (
	"fmt"
	"time"
)

// MixerState is the top-level, daemon-owned state container.
//
// Only the daemon goroutine reads or writes it. Other goroutines observe it
// through StateSnapshot values produced by the reducer.
type MixerState struct {
	// Sounds holds one entry per catalog sound. Entries are reset, never removed.
	Sounds map[string]SoundState

	Master MasterGainState

	// CurrentMix is set when a preset was explicitly applied and cleared by any
	// manual per-sound selection change.
	CurrentMix *CurrentMixPointer

	// MatchedMixID caches matchingMix() for the current selection. It is only
	// recomputed when the selected id set changes.
	MatchedMixID string

	// Playing is true while the selected channels are meant to be audible.
	Playing bool

	// Silent lists selected sounds whose asset failed to load, with the reason.
	Silent map[string]string

	UserPresets []Preset

	RecentSounds []string
	RecentMixes  []string
	Limits       RecentLimits

	// FavoriteSoundOrder is the explicit drag order. It is reconciled with the
	// favorite flags by effectiveFavoriteSounds.
	FavoriteSoundOrder []string

	// FavoriteMixes is both the set and the order of favorite mix ids.
	FavoriteMixes []string

	Timer TimerState
	// TimerGen identifies the only sleep timer callback that may still complete.
	TimerGen   uint64
	TimerUsage map[int]int
}

// SoundState is the mutable per-sound state.
type SoundState struct {
	Selected bool    `json:"selected"`
	Favorite bool    `json:"favorite"`
	Volume   float64 `json:"volume"`
}

func defaultSoundState() SoundState {
	return SoundState{Volume: defaultSoundVolume}
}

// MasterGainState is the global volume and the value to restore on unmute.
type MasterGainState struct {
	Volume           float64 `json:"volume"`
	VolumeBeforeMute float64 `json:"volume_before_mute"`
}

// CurrentMixPointer refers to the preset that was last applied.
type CurrentMixPointer struct {
	MixID string `json:"mix_id"`
	Icon  string `json:"icon"`
}

// RecentLimits are the MRU list sizes.
type RecentLimits struct {
	Sounds int `json:"sounds"`
	Mixes  int `json:"mixes"`
}

func (l RecentLimits) clamped() RecentLimits {
	return RecentLimits{
		Sounds: clampLimit(l.Sounds),
		Mixes:  clampLimit(l.Mixes),
	}
}

func clampLimit(n int) int {
	if n < minRecentLimit {
		return minRecentLimit
	}
	if n > maxRecentLimit {
		return maxRecentLimit
	}
	return n
}

// ============================================================================
// Sleep timer state
// ============================================================================

// TimerState is a closed set: TimerIdle, TimerRunning or TimerPaused.
type TimerState interface {
	timerStateMarker()
	Kind() string
}

type TimerIdle struct{}

// TimerRunning counts down to EndAt.
type TimerRunning struct {
	EndAt    time.Time
	Name     string
	Duration int // seconds
}

// TimerPaused holds the remaining seconds of a suspended timer. Nothing
// produces it yet; pause/resume would.
type TimerPaused struct {
	Remaining int
	Name      string
}

func (TimerIdle) timerStateMarker()    {}
func (TimerRunning) timerStateMarker() {}
func (TimerPaused) timerStateMarker()  {}

func (TimerIdle) Kind() string    { return "idle" }
func (TimerRunning) Kind() string { return "running" }
func (TimerPaused) Kind() string  { return "paused" }

// ============================================================================
// Construction and helpers
// ============================================================================

// NewMixerState returns the default state for a catalog.
func NewMixerState(cat *Catalog) *MixerState {
	s := &MixerState{
		Sounds: make(map[string]SoundState),
		Master: MasterGainState{
			Volume:           defaultMasterVolume,
			VolumeBeforeMute: defaultMasterVolume,
		},
		Silent:     make(map[string]string),
		Limits:     RecentLimits{Sounds: defaultRecentLimit, Mixes: defaultRecentLimit},
		Timer:      TimerIdle{},
		TimerUsage: make(map[int]int),
	}
	if cat != nil {
		for _, id := range cat.SoundIDs() {
			s.Sounds[id] = defaultSoundState()
		}
	}
	return s
}

func (s *MixerState) sound(id string) SoundState {
	if st, ok := s.Sounds[id]; ok {
		return st
	}
	return defaultSoundState()
}

// EffectiveGain is the channel gain for id: volume × master volume.
func (s *MixerState) EffectiveGain(id string) float64 {
	return s.sound(id).Volume * s.Master.Volume
}

// SelectedIDs returns selected sound ids in catalog order.
func (s *MixerState) SelectedIDs(cat *Catalog) []string {
	var ids []string
	for _, id := range cat.SoundIDs() {
		if s.Sounds[id].Selected {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *MixerState) anySelected() bool {
	for _, st := range s.Sounds {
		if st.Selected {
			return true
		}
	}
	return false
}

// userPreset looks up a user preset by id.
func (s *MixerState) userPreset(id string) (Preset, int, bool) {
	for i, p := range s.UserPresets {
		if p.ID == id {
			return p.clone(), i, true
		}
	}
	return Preset{}, -1, false
}

// resolvePreset finds a built-in mix first, then a user preset.
func (s *MixerState) resolvePreset(cat *Catalog, id string) (Preset, bool) {
	if p, ok := cat.Mix(id); ok {
		return p, true
	}
	p, _, ok := s.userPreset(id)
	return p, ok
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	// NaN compares false both ways above.
	if v != v {
		return 0
	}
	return v
}

func timerDisplayName(name string, seconds int) string {
	if name != "" {
		return name
	}
	return fmt.Sprintf("Sleep timer (%s)", time.Duration(seconds)*time.Second)
}
