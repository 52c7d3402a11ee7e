package main

import (
	"slices"
	"time"
)

// StateSnapshot is the externally visible state. It shares no memory with
// MixerState and may be handed to any goroutine.
type StateSnapshot struct {
	Sounds []SoundSnapshot `json:"sounds"`

	MasterVolume float64 `json:"master_volume"`
	Muted        bool    `json:"muted"`
	Playing      bool    `json:"playing"`

	CurrentMix *CurrentMixPointer `json:"current_mix,omitempty"`
	MatchedMix *MixRef            `json:"matched_mix,omitempty"`
	// Title is the current mix name, else the matched mix name.
	Title string `json:"title,omitempty"`

	Mixes       []MixRef `json:"mixes"`
	UserPresets []Preset `json:"user_presets"`

	RecentSounds   []string     `json:"recent_sounds"`
	RecentMixes    []string     `json:"recent_mixes"`
	RecentLimits   RecentLimits `json:"recent_limits"`
	FavoriteSounds []string     `json:"favorite_sounds"`
	FavoriteMixes  []string     `json:"favorite_mixes"`

	Timer        TimerSnapshot `json:"timer"`
	TimerPresets []int         `json:"timer_presets"`
}

type SoundSnapshot struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Icon     string  `json:"icon"`
	Selected bool    `json:"selected"`
	Favorite bool    `json:"favorite"`
	Volume   float64 `json:"volume"`
	Gain     float64 `json:"gain"`
	// Silent is set for a selected sound whose asset could not be loaded.
	Silent       bool   `json:"silent,omitempty"`
	SilentReason string `json:"silent_reason,omitempty"`
}

type MixRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type TimerSnapshot struct {
	State            string     `json:"state"`
	Name             string     `json:"name,omitempty"`
	EndAt            *time.Time `json:"end_at,omitempty"`
	DurationSeconds  int        `json:"duration_seconds,omitempty"`
	RemainingSeconds int        `json:"remaining_seconds,omitempty"`
}

// BuildSnapshot copies s into a StateSnapshot as of now.
func BuildSnapshot(s *MixerState, env Env, now time.Time) StateSnapshot {
	cat := env.Catalog
	snap := StateSnapshot{
		MasterVolume:   s.Master.Volume,
		Muted:          s.Master.Volume == 0,
		Playing:        s.Playing,
		RecentSounds:   slices.Clone(s.RecentSounds),
		RecentMixes:    slices.Clone(s.RecentMixes),
		RecentLimits:   s.Limits,
		FavoriteSounds: effectiveFavoriteSounds(s, cat),
		FavoriteMixes:  slices.Clone(s.FavoriteMixes),
		Timer:          timerSnapshot(s.Timer, now),
		TimerPresets:   topPresets(s.TimerUsage, env.TimerPresetLimit),
	}

	for _, def := range cat.Sounds() {
		st := s.sound(def.ID)
		reason, silent := s.Silent[def.ID]
		snap.Sounds = append(snap.Sounds, SoundSnapshot{
			ID:           def.ID,
			Label:        def.Label,
			Icon:         def.Icon,
			Selected:     st.Selected,
			Favorite:     st.Favorite,
			Volume:       st.Volume,
			Gain:         s.EffectiveGain(def.ID),
			Silent:       silent,
			SilentReason: reason,
		})
	}

	for _, m := range cat.Mixes() {
		snap.Mixes = append(snap.Mixes, MixRef{ID: m.ID, Name: m.Name, Icon: m.Icon})
	}
	snap.UserPresets = make([]Preset, 0, len(s.UserPresets))
	for _, p := range s.UserPresets {
		snap.UserPresets = append(snap.UserPresets, p.clone())
	}

	if s.CurrentMix != nil {
		cm := *s.CurrentMix
		snap.CurrentMix = &cm
		if p, ok := s.resolvePreset(cat, cm.MixID); ok {
			snap.Title = p.Name
		}
	}
	if s.MatchedMixID != "" {
		if m, ok := cat.Mix(s.MatchedMixID); ok {
			snap.MatchedMix = &MixRef{ID: m.ID, Name: m.Name, Icon: m.Icon}
			if snap.Title == "" {
				snap.Title = m.Name
			}
		}
	}
	return snap
}

func timerSnapshot(t TimerState, now time.Time) TimerSnapshot {
	switch t := t.(type) {
	case TimerRunning:
		end := t.EndAt
		remaining := int(end.Sub(now).Round(time.Second) / time.Second)
		return TimerSnapshot{
			State:            t.Kind(),
			Name:             t.Name,
			EndAt:            &end,
			DurationSeconds:  t.Duration,
			RemainingSeconds: max(remaining, 0),
		}
	case TimerPaused:
		return TimerSnapshot{
			State:            t.Kind(),
			Name:             t.Name,
			RemainingSeconds: t.Remaining,
		}
	default:
		return TimerSnapshot{State: TimerIdle{}.Kind()}
	}
}
