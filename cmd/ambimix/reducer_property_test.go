package main

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"testing"
	"time"

	"pgregory.net/rapid"
)

// mixerEventGen draws user intents and playback observations, including ids
// the catalog does not know.
func mixerEventGen(cat *Catalog) *rapid.Generator[Event] {
	soundIDs := append(cat.SoundIDs(), "bagpipes")
	presetIDs := []string{"cozy-cabin", "beach", "sleep-noise", "user-1", "nope"}

	return rapid.Custom(func(t *rapid.T) Event {
		id := rapid.SampledFrom(soundIDs).Draw(t, "sound")
		vol := rapid.Float64Range(-0.5, 1.5).Draw(t, "volume")

		switch rapid.IntRange(0, 17).Draw(t, "kind") {
		case 0:
			return SelectSound{ID: id}
		case 1:
			return UnselectSound{ID: id}
		case 2:
			return ToggleSound{ID: id}
		case 3:
			return UnselectAll{}
		case 4:
			return SetSoundVolume{ID: id, Volume: vol}
		case 5:
			return SetGlobalVolume{Volume: vol}
		case 6:
			return NudgeGlobalVolume{Delta: rapid.SampledFrom([]float64{-masterNudgeStep, masterNudgeStep}).Draw(t, "delta")}
		case 7:
			return ToggleMute{}
		case 8:
			return Shuffle{}
		case 9:
			return TogglePlayback{}
		case 10:
			return ApplyPreset{ID: rapid.SampledFrom(presetIDs).Draw(t, "preset")}
		case 11:
			return PlayNextRandomMix{}
		case 12:
			return SaveUserPreset{Name: "p"}
		case 13:
			return DeleteUserPreset{ID: rapid.SampledFrom(presetIDs).Draw(t, "preset")}
		case 14:
			return PlaybackLoadFailed{ID: id, Reason: "asset missing"}
		case 15:
			return PlaybackLoaded{ID: id}
		case 16:
			return SetRecentLimits{Sounds: rapid.IntRange(0, 20).Draw(t, "limit")}
		default:
			return ToggleFavoriteSound{ID: id}
		}
	})
}

func checkMixerInvariants(t *rapid.T, s *MixerState, cat *Catalog) {
	if s.Master.Volume < 0 || s.Master.Volume > 1 {
		t.Fatalf("master volume out of range: %v", s.Master.Volume)
	}
	for id, st := range s.Sounds {
		if !cat.HasSound(id) {
			t.Fatalf("state holds unknown sound %q", id)
		}
		if st.Volume < 0 || st.Volume > 1 {
			t.Fatalf("volume of %s out of range: %v", id, st.Volume)
		}
		if g := s.EffectiveGain(id); g != st.Volume*s.Master.Volume {
			t.Fatalf("gain of %s = %v, want %v", id, g, st.Volume*s.Master.Volume)
		}
	}

	if s.Playing && !s.anySelected() {
		t.Fatalf("playing with an empty selection")
	}
	for id := range s.Silent {
		if !s.Sounds[id].Selected {
			t.Fatalf("unselected sound %s reported silent", id)
		}
	}

	if len(s.RecentSounds) > s.Limits.Sounds {
		t.Fatalf("recent sounds %d exceed limit %d", len(s.RecentSounds), s.Limits.Sounds)
	}
	if len(s.RecentMixes) > s.Limits.Mixes {
		t.Fatalf("recent mixes %d exceed limit %d", len(s.RecentMixes), s.Limits.Mixes)
	}
	if len(slices.Compact(slices.Sorted(slices.Values(s.RecentSounds)))) != len(s.RecentSounds) {
		t.Fatalf("recent sounds contain duplicates: %v", s.RecentSounds)
	}

	want := ""
	if m, ok := matchingMix(cat, s.SelectedIDs(cat)); ok {
		want = m.ID
	}
	if s.MatchedMixID != want {
		t.Fatalf("matched mix = %q, want %q", s.MatchedMixID, want)
	}
}

func TestReduce_InvariantsHoldForAnyEventSequence(t *testing.T) {
	cat := testCatalog(t)
	gen := mixerEventGen(cat)

	rapid.Check(t, func(rt *rapid.T) {
		n := 0
		env := Env{
			Catalog: cat,
			Rand:    rand.New(rand.NewPCG(rapid.Uint64().Draw(rt, "seed"), 7)),
			NewID: func() string {
				n++
				return fmt.Sprintf("user-%d", n)
			},
			Now:              func() time.Time { return testNow },
			TimerPresetLimit: defaultTimerPresetLimit,
		}

		s := NewMixerState(cat)
		for _, ev := range rapid.SliceOfN(gen, 1, 40).Draw(rt, "events") {
			s = Reduce(s, ev, env).State
			checkMixerInvariants(rt, s, cat)
		}
	})
}

func TestReduce_MuteTwiceIsIdentityForAudibleVolume(t *testing.T) {
	cat := testCatalog(t)
	env := Env{Catalog: cat, Now: func() time.Time { return testNow }}

	rapid.Check(t, func(rt *rapid.T) {
		v := rapid.Float64Range(0.01, 1).Draw(rt, "volume")

		s := NewMixerState(cat)
		s = Reduce(s, SetGlobalVolume{Volume: v}, env).State
		s = Reduce(s, ToggleMute{}, env).State
		if s.Master.Volume != 0 {
			rt.Fatalf("muted volume = %v", s.Master.Volume)
		}
		s = Reduce(s, ToggleMute{}, env).State
		if s.Master.Volume != v {
			rt.Fatalf("restored volume = %v, want %v", s.Master.Volume, v)
		}
	})
}

func TestReduce_ApplyPresetIsIdempotent(t *testing.T) {
	cat := testCatalog(t)
	env := Env{Catalog: cat, Now: func() time.Time { return testNow }}
	mixIDs := make([]string, 0, len(cat.Mixes()))
	for _, m := range cat.Mixes() {
		mixIDs = append(mixIDs, m.ID)
	}

	rapid.Check(t, func(rt *rapid.T) {
		id := rapid.SampledFrom(mixIDs).Draw(rt, "mix")

		once := Reduce(NewMixerState(cat), ApplyPreset{ID: id}, env).State
		twice := Reduce(Reduce(NewMixerState(cat), ApplyPreset{ID: id}, env).State, ApplyPreset{ID: id}, env).State

		if !slices.Equal(once.SelectedIDs(cat), twice.SelectedIDs(cat)) {
			rt.Fatalf("selection differs: %v vs %v", once.SelectedIDs(cat), twice.SelectedIDs(cat))
		}
		for _, sid := range once.SelectedIDs(cat) {
			if once.Sounds[sid].Volume != twice.Sounds[sid].Volume {
				rt.Fatalf("volume of %s differs", sid)
			}
		}
		if *once.CurrentMix != *twice.CurrentMix {
			rt.Fatalf("current mix differs: %+v vs %+v", *once.CurrentMix, *twice.CurrentMix)
		}
		if !slices.Equal(once.RecentSounds, twice.RecentSounds) || !slices.Equal(once.RecentMixes, twice.RecentMixes) {
			rt.Fatalf("recents differ")
		}
		if once.MatchedMixID != id {
			rt.Fatalf("matched mix = %q, want %q", once.MatchedMixID, id)
		}
	})
}
