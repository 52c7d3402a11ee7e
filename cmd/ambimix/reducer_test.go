package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"reflect"
	"slices"
	"testing"
	"time"
)

var testNow = time.Date(2024, 3, 1, 22, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testCatalog(t testing.TB) *Catalog {
	t.Helper()
	cat, err := LoadCatalogFile("")
	if err != nil {
		t.Fatalf("LoadCatalogFile: %v", err)
	}
	return cat
}

// testEnv returns a deterministic Env over the built-in catalog.
func testEnv(t testing.TB) Env {
	t.Helper()
	n := 0
	return Env{
		Catalog: testCatalog(t),
		Rand:    rand.New(rand.NewPCG(1, 2)),
		NewID: func() string {
			n++
			return fmt.Sprintf("user-%d", n)
		},
		Now:              func() time.Time { return testNow },
		TimerPresetLimit: defaultTimerPresetLimit,
	}
}

// reduceAll reduces events in order and returns the last result.
func reduceAll(s *MixerState, env Env, evs ...Event) ReduceResult {
	rr := ReduceResult{State: s}
	for _, ev := range evs {
		rr = Reduce(rr.State, ev, env)
	}
	return rr
}

func commandsOf[T Command](cmds []Command) []T {
	var out []T
	for _, c := range cmds {
		if v, ok := c.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

func dirtyBuckets(cmds []Command) []Bucket {
	var out []Bucket
	for _, c := range commandsOf[CmdMarkDirty](cmds) {
		out = append(out, c.Bucket)
	}
	return out
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestReduce_SelectFirstSoundStartsPlayback(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := Reduce(s, SelectSound{ID: "rain"}, env)

	if !rr.State.Playing || !rr.State.Sounds["rain"].Selected {
		t.Fatalf("playing=%v rain=%+v", rr.State.Playing, rr.State.Sounds["rain"])
	}
	if !slices.Equal(rr.State.RecentSounds, []string{"rain"}) {
		t.Fatalf("recent sounds = %v", rr.State.RecentSounds)
	}
	if rr.State.CurrentMix != nil {
		t.Fatalf("current mix = %+v", rr.State.CurrentMix)
	}

	want := []Command{
		CmdLoadSound{ID: "rain"},
		CmdSetGain{ID: "rain", Gain: 0.5},
		CmdPlay{ID: "rain"},
		CmdMarkDirty{Bucket: BucketSoundStates},
		CmdMarkDirty{Bucket: BucketRecentSounds},
	}
	if !reflect.DeepEqual(rr.Commands, want) {
		t.Fatalf("commands = %#v", rr.Commands)
	}
	if len(rr.Broadcasts) != 1 {
		t.Fatalf("broadcasts = %v", rr.Broadcasts)
	}
	if _, ok := rr.Broadcasts[0].(BroadcastStateChanged); !ok {
		t.Fatalf("broadcast = %T", rr.Broadcasts[0])
	}
}

func TestReduce_SelectIgnoresUnknownAndAlreadySelected(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := Reduce(s, SelectSound{ID: "bagpipes"}, env)
	if len(rr.Commands) != 0 || len(rr.Broadcasts) != 0 || rr.State.Playing {
		t.Fatalf("unknown sound had an effect: %v", rr.Commands)
	}

	rr = reduceAll(s, env, SelectSound{ID: "rain"}, SelectSound{ID: "rain"})
	if len(rr.Commands) != 0 || len(rr.Broadcasts) != 0 {
		t.Fatalf("reselect had an effect: %v", rr.Commands)
	}
}

func TestReduce_SelectWhilePausedDoesNotStartPlayback(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env, SelectSound{ID: "rain"}, TogglePlayback{})
	if rr.State.Playing {
		t.Fatalf("toggle did not pause")
	}

	rr = Reduce(rr.State, SelectSound{ID: "wind"}, env)
	if rr.State.Playing || !rr.State.Sounds["wind"].Selected {
		t.Fatalf("playing=%v wind=%+v", rr.State.Playing, rr.State.Sounds["wind"])
	}
	if got := commandsOf[CmdPlay](rr.Commands); len(got) != 0 {
		t.Fatalf("play commands = %v", got)
	}
	if got := commandsOf[CmdLoadSound](rr.Commands); len(got) != 1 {
		t.Fatalf("load commands = %v", got)
	}
}

func TestReduce_UnselectLastSoundStopsPlayback(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env, SelectSound{ID: "rain"}, UnselectSound{ID: "rain"})

	if rr.State.Playing || rr.State.Sounds["rain"].Selected {
		t.Fatalf("playing=%v rain=%+v", rr.State.Playing, rr.State.Sounds["rain"])
	}
	if got := commandsOf[CmdPause](rr.Commands); !slices.Equal(got, []CmdPause{{ID: "rain"}}) {
		t.Fatalf("pause commands = %v", got)
	}
	// The sound stays in recents.
	if !slices.Equal(rr.State.RecentSounds, []string{"rain"}) {
		t.Fatalf("recent sounds = %v", rr.State.RecentSounds)
	}
}

func TestReduce_ToggleSound(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := Reduce(s, ToggleSound{ID: "fan"}, env)
	if !rr.State.Sounds["fan"].Selected {
		t.Fatalf("fan not selected")
	}

	rr = Reduce(rr.State, ToggleSound{ID: "fan"}, env)
	if rr.State.Sounds["fan"].Selected {
		t.Fatalf("fan still selected")
	}
}

func TestReduce_GainIsVolumeTimesMaster(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env,
		SelectSound{ID: "rain"},
		SelectSound{ID: "wind"},
		SetSoundVolume{ID: "rain", Volume: 0.4},
	)
	if got := commandsOf[CmdSetGain](rr.Commands); !slices.Equal(got, []CmdSetGain{{ID: "rain", Gain: 0.4}}) {
		t.Fatalf("gain commands = %v", got)
	}

	rr = Reduce(rr.State, SetGlobalVolume{Volume: 0.5}, env)
	gains := commandsOf[CmdSetGain](rr.Commands)
	if len(gains) != 2 || !approxEqual(gains[0].Gain, 0.2) || !approxEqual(gains[1].Gain, 0.25) {
		t.Fatalf("gain commands = %v", gains)
	}
	if got := dirtyBuckets(rr.Commands); !slices.Equal(got, []Bucket{BucketMasterGain}) {
		t.Fatalf("dirty buckets = %v", got)
	}

	// Unselected sounds still keep their volume.
	rr = Reduce(rr.State, SetSoundVolume{ID: "fan", Volume: 0.9}, env)
	if !approxEqual(rr.State.Sounds["fan"].Volume, 0.9) {
		t.Fatalf("fan volume = %v", rr.State.Sounds["fan"].Volume)
	}
}

func TestReduce_VolumesAreClamped(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env,
		SetSoundVolume{ID: "rain", Volume: 1.7},
		SetGlobalVolume{Volume: -3},
	)
	if rr.State.Sounds["rain"].Volume != 1.0 || rr.State.Master.Volume != 0.0 {
		t.Fatalf("rain=%v master=%v", rr.State.Sounds["rain"].Volume, rr.State.Master.Volume)
	}

	rr = Reduce(rr.State, NudgeGlobalVolume{Delta: 0.05}, env)
	if !approxEqual(rr.State.Master.Volume, 0.05) {
		t.Fatalf("master after nudge = %v", rr.State.Master.Volume)
	}
}

func TestReduce_MuteRestoresPreviousVolume(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env, SelectSound{ID: "rain"}, SetGlobalVolume{Volume: 0.7}, ToggleMute{})
	if rr.State.Master.Volume != 0 || rr.State.Master.VolumeBeforeMute != 0.7 {
		t.Fatalf("master = %+v", rr.State.Master)
	}
	if got := commandsOf[CmdSetGain](rr.Commands); !slices.Equal(got, []CmdSetGain{{ID: "rain", Gain: 0}}) {
		t.Fatalf("gain commands = %v", got)
	}

	if snap := BuildSnapshot(rr.State, env, testNow); !snap.Muted {
		t.Fatalf("snapshot not muted")
	}

	rr = Reduce(rr.State, ToggleMute{}, env)
	if rr.State.Master.Volume != 0.7 {
		t.Fatalf("master after unmute = %v", rr.State.Master.Volume)
	}
}

func TestReduce_UnmuteAfterDraggingToZeroRestoresLastAudibleVolume(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env, SetGlobalVolume{Volume: 0.3}, SetGlobalVolume{Volume: 0}, ToggleMute{})
	if rr.State.Master.Volume != 0.3 {
		t.Fatalf("master = %v, want 0.3", rr.State.Master.Volume)
	}
}

func TestReduce_UnselectAllBatchesPause(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env,
		ApplyPreset{ID: "cozy-cabin"},
		UnselectAll{},
	)

	want := []Command{
		CmdPauseAll{IDs: []string{"rain", "campfire"}},
		CmdMarkDirty{Bucket: BucketSoundStates},
	}
	if !reflect.DeepEqual(rr.Commands, want) {
		t.Fatalf("commands = %#v", rr.Commands)
	}
	if rr.State.Playing || rr.State.CurrentMix != nil || rr.State.MatchedMixID != "" {
		t.Fatalf("playing=%v current=%+v matched=%q", rr.State.Playing, rr.State.CurrentMix, rr.State.MatchedMixID)
	}
	if got := rr.State.SelectedIDs(env.Catalog); len(got) != 0 {
		t.Fatalf("selection = %v", got)
	}

	// Nothing selected: nothing to do.
	rr = Reduce(rr.State, UnselectAll{}, env)
	if len(rr.Commands) != 0 || len(rr.Broadcasts) != 0 {
		t.Fatalf("expected no-op, got %v", rr.Commands)
	}
}

func TestReduce_TogglePlaybackKeepsSelection(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env, SelectSound{ID: "rain"}, SelectSound{ID: "fan"}, TogglePlayback{})
	if rr.State.Playing {
		t.Fatalf("still playing")
	}
	if got := commandsOf[CmdPauseAll](rr.Commands); !reflect.DeepEqual(got, []CmdPauseAll{{IDs: []string{"rain", "fan"}}}) {
		t.Fatalf("pause commands = %v", got)
	}
	if got := rr.State.SelectedIDs(env.Catalog); !slices.Equal(got, []string{"rain", "fan"}) {
		t.Fatalf("selection = %v", got)
	}

	rr = Reduce(rr.State, TogglePlayback{}, env)
	if !rr.State.Playing {
		t.Fatalf("not playing after second toggle")
	}
	if got := commandsOf[CmdPlayAll](rr.Commands); !reflect.DeepEqual(got, []CmdPlayAll{{IDs: []string{"rain", "fan"}}}) {
		t.Fatalf("play commands = %v", got)
	}

	// Empty selection: toggling does nothing.
	empty := NewMixerState(env.Catalog)
	rr = Reduce(empty, TogglePlayback{}, env)
	if rr.State.Playing || len(rr.Commands) != 0 {
		t.Fatalf("toggle on empty selection: playing=%v commands=%v", rr.State.Playing, rr.Commands)
	}
}

func TestReduce_SetPlaybackIsIdempotent(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env, SelectSound{ID: "rain"}, SetPlayback{Playing: false})
	if rr.State.Playing {
		t.Fatalf("pause did not pause")
	}
	if got := commandsOf[CmdPauseAll](rr.Commands); !reflect.DeepEqual(got, []CmdPauseAll{{IDs: []string{"rain"}}}) {
		t.Fatalf("pause commands = %v", got)
	}

	// Pausing while paused must not resume.
	rr = Reduce(rr.State, SetPlayback{Playing: false}, env)
	if rr.State.Playing || len(rr.Commands) != 0 || len(rr.Broadcasts) != 0 {
		t.Fatalf("second pause: playing=%v commands=%v", rr.State.Playing, rr.Commands)
	}

	rr = Reduce(rr.State, SetPlayback{Playing: true}, env)
	if !rr.State.Playing {
		t.Fatalf("resume did not play")
	}
	if got := commandsOf[CmdPlayAll](rr.Commands); !reflect.DeepEqual(got, []CmdPlayAll{{IDs: []string{"rain"}}}) {
		t.Fatalf("play commands = %v", got)
	}

	rr = Reduce(rr.State, SetPlayback{Playing: true}, env)
	if len(rr.Commands) != 0 || len(rr.Broadcasts) != 0 {
		t.Fatalf("second resume had an effect: %v", rr.Commands)
	}
}

func TestReduce_ShufflePicksDistinctSoundsDeterministically(t *testing.T) {
	run := func() *MixerState {
		env := testEnv(t)
		s := NewMixerState(env.Catalog)
		return reduceAll(s, env, ApplyPreset{ID: "beach"}, Shuffle{}).State
	}

	a := run()
	b := run()

	cat := testCatalog(t)
	ids := a.SelectedIDs(cat)
	if len(ids) != shuffleSoundCount {
		t.Fatalf("selected %v, want %d sounds", ids, shuffleSoundCount)
	}
	if !slices.Equal(ids, b.SelectedIDs(cat)) {
		t.Fatalf("same seed gave %v and %v", ids, b.SelectedIDs(cat))
	}
	if !a.Playing || a.CurrentMix != nil {
		t.Fatalf("playing=%v current=%+v", a.Playing, a.CurrentMix)
	}

	for _, id := range ids {
		v := a.Sounds[id].Volume
		if v < shuffleMinVolume || v > shuffleMaxVolume {
			t.Fatalf("%s volume %v outside [%v, %v]", id, v, shuffleMinVolume, shuffleMaxVolume)
		}
		if v != b.Sounds[id].Volume {
			t.Fatalf("%s volume differs between runs", id)
		}
	}
}

func TestReduce_ShuffleNeedsEnoughSounds(t *testing.T) {
	cat, err := NewCatalog([]SoundDefinition{{ID: "a"}, {ID: "b"}, {ID: "c"}}, nil)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	env := testEnv(t)
	env.Catalog = cat
	s := NewMixerState(cat)

	rr := reduceAll(s, env, SelectSound{ID: "a"}, Shuffle{})

	if len(rr.Commands) != 0 || len(rr.Broadcasts) != 0 {
		t.Fatalf("shuffle over %d sounds had an effect: commands=%v", len(cat.SoundIDs()), rr.Commands)
	}
	if got := rr.State.SelectedIDs(cat); !slices.Equal(got, []string{"a"}) {
		t.Fatalf("selection = %v", got)
	}
}

func TestReduce_LoadFailureMarksSelectedSoundSilent(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env,
		SelectSound{ID: "thunder"},
		PlaybackLoadFailed{ID: "thunder", Reason: "asset missing"},
	)
	if len(rr.Broadcasts) != 1 || !rr.State.Sounds["thunder"].Selected {
		t.Fatalf("broadcasts=%d thunder=%+v", len(rr.Broadcasts), rr.State.Sounds["thunder"])
	}

	snap := BuildSnapshot(rr.State, env, testNow)
	for _, ss := range snap.Sounds {
		if ss.ID == "thunder" && (!ss.Silent || ss.SilentReason != "asset missing") {
			t.Fatalf("thunder snapshot = %+v", ss)
		}
	}

	// Repeating the same failure changes nothing.
	rr = Reduce(rr.State, PlaybackLoadFailed{ID: "thunder", Reason: "asset missing"}, env)
	if len(rr.Broadcasts) != 0 {
		t.Fatalf("repeated failure broadcast %v", rr.Broadcasts)
	}

	// Unselecting clears the flag.
	rr = Reduce(rr.State, UnselectSound{ID: "thunder"}, env)
	if _, ok := rr.State.Silent["thunder"]; ok {
		t.Fatalf("silent flag survived unselect")
	}
}

func TestReduce_LoadFailureForUnselectedSoundIsIgnored(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := Reduce(s, PlaybackLoadFailed{ID: "rain", Reason: "decode error"}, env)
	if len(rr.State.Silent) != 0 || len(rr.Broadcasts) != 0 {
		t.Fatalf("silent=%v broadcasts=%v", rr.State.Silent, rr.Broadcasts)
	}
}

func TestReduce_PlaybackLoadedReappliesGainAndPlay(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env, SelectSound{ID: "rain"}, PlaybackLoaded{ID: "rain"})
	want := []Command{
		CmdSetGain{ID: "rain", Gain: 0.5},
		CmdPlay{ID: "rain"},
	}
	if !reflect.DeepEqual(rr.Commands, want) {
		t.Fatalf("commands = %#v", rr.Commands)
	}

	rr = Reduce(rr.State, PlaybackLoaded{ID: "wind"}, env)
	if len(rr.Commands) != 0 {
		t.Fatalf("load of unselected sound produced %v", rr.Commands)
	}
}

func TestReduce_MatchedMixFollowsSelection(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env, SelectSound{ID: "campfire"}, SelectSound{ID: "rain"})
	if rr.State.MatchedMixID != "cozy-cabin" || rr.State.CurrentMix != nil {
		t.Fatalf("matched=%q current=%+v", rr.State.MatchedMixID, rr.State.CurrentMix)
	}

	snap := BuildSnapshot(rr.State, env, testNow)
	if snap.MatchedMix == nil || snap.Title != "Cozy Cabin" {
		t.Fatalf("snapshot matched=%+v title=%q", snap.MatchedMix, snap.Title)
	}

	rr = Reduce(rr.State, SelectSound{ID: "thunder"}, env)
	if rr.State.MatchedMixID != "" {
		t.Fatalf("matched = %q after adding thunder", rr.State.MatchedMixID)
	}
}

func TestReduce_VolumeChangeKeepsMatchAndCurrentMix(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := reduceAll(s, env, ApplyPreset{ID: "beach"}, SetSoundVolume{ID: "waves", Volume: 0.1})
	if rr.State.CurrentMix == nil || rr.State.CurrentMix.MixID != "beach" {
		t.Fatalf("current mix = %+v", rr.State.CurrentMix)
	}
	if rr.State.MatchedMixID != "beach" {
		t.Fatalf("matched = %q", rr.State.MatchedMixID)
	}
}

func TestReduce_ResumeSessionReloadsSelection(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)
	s.Sounds["rain"] = SoundState{Selected: true, Volume: 0.3}
	s.Sounds["fan"] = SoundState{Selected: true, Volume: 0.6}

	rr := Reduce(s, resumeSession{}, env)

	want := []Command{
		CmdLoadSound{ID: "rain"},
		CmdSetGain{ID: "rain", Gain: 0.3},
		CmdLoadSound{ID: "fan"},
		CmdSetGain{ID: "fan", Gain: 0.6},
	}
	if !reflect.DeepEqual(rr.Commands, want) {
		t.Fatalf("commands = %#v", rr.Commands)
	}
	if rr.State.Playing || len(rr.Broadcasts) != 0 {
		t.Fatalf("playing=%v broadcasts=%v", rr.State.Playing, rr.Broadcasts)
	}
}

type bogusEvent struct{}

func (bogusEvent) eventMarker() {}

func TestReduce_UnknownEventIsNoop(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)

	rr := Reduce(s, TimedEvent{Event: bogusEvent{}, At: testNow}, env)
	if len(rr.Commands) != 0 || len(rr.Broadcasts) != 0 {
		t.Fatalf("unknown event had an effect: %v", rr.Commands)
	}
}

func TestReduce_RequestsReplyFromReducedState(t *testing.T) {
	env := testEnv(t)
	s := NewMixerState(env.Catalog)
	reduceAll(s, env, ApplyPreset{ID: "sleep-noise"})

	reply := make(chan StateSnapshot, 1)
	rr := Reduce(s, RequestStateSnapshot{Reply: reply}, env)
	if len(rr.Commands) != 1 {
		t.Fatalf("commands = %v", rr.Commands)
	}
	cmd, ok := rr.Commands[0].(CmdPublishStateSnapshot)
	if !ok {
		t.Fatalf("command = %T", rr.Commands[0])
	}
	if !cmd.Snapshot.Playing || cmd.Snapshot.Title != "Sleep" {
		t.Fatalf("snapshot playing=%v title=%q", cmd.Snapshot.Playing, cmd.Snapshot.Title)
	}
	if len(rr.Broadcasts) != 0 {
		t.Fatalf("request broadcast %v", rr.Broadcasts)
	}
}
