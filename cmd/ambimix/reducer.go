package main

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
)

// This file implements the reducer-style architecture building blocks:
//
//   - Events: inputs to the reducer (user intents, timer and persistence callbacks, load results)
//   - Commands: side effects requested by the reducer (playback, timers, persistence, notifications)
//   - Reduce(): computes next state + commands + broadcasts, without performing I/O
//
// Each event is reduced to completion before the next one is looked at, so no
// observer ever sees a half-applied preset or a torn timer state.

// Env carries the read-only collaborators a reduction needs.
type Env struct {
	Catalog *Catalog

	// Rand drives shuffle and random mix selection. Seed it in tests.
	Rand *rand.Rand

	// NewID creates user preset ids.
	NewID func() string

	// Now is used when an event carries no timestamp.
	Now func() time.Time

	// TimerPresetLimit is the number of ranked durations included in snapshots.
	TimerPresetLimit int
}

// NewEnv returns an Env with production defaults.
func NewEnv(cat *Catalog) Env {
	return Env{
		Catalog:          cat,
		Rand:             rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x616d62696d6978)),
		NewID:            uuid.NewString,
		Now:              time.Now,
		TimerPresetLimit: defaultTimerPresetLimit,
	}
}

// ReduceResult is the output of Reduce(): next state, Commands to execute and
// Broadcasts for websocket clients.
type ReduceResult struct {
	State      *MixerState
	Commands   []Command
	Broadcasts []StateBroadcast
}

// reduction accumulates the effects of one event.
type reduction struct {
	s   *MixerState
	env Env
	at  time.Time

	cmds   []Command
	bcasts []StateBroadcast

	// changed requests a state_changed broadcast.
	changed bool
	// selectionChanged requests a mix match refresh.
	selectionChanged bool
	dirty            map[Bucket]bool
}

func (r *reduction) emit(cmds ...Command) {
	r.cmds = append(r.cmds, cmds...)
}

func (r *reduction) markDirty(b Bucket) {
	if r.dirty == nil {
		r.dirty = make(map[Bucket]bool)
	}
	r.dirty[b] = true
}

// Reduce is the pure reducer:
//
// Rules:
// - Must not perform I/O
// - Must not block
// - Must not mutate anything outside the returned state
//
// The daemon loop must:
// - execute Commands
// - translate their outcomes into Events
// - feed those Events back into Reduce()
func Reduce(s *MixerState, e Event, env Env) ReduceResult {
	if s == nil {
		s = NewMixerState(env.Catalog)
	}
	if env.Now == nil {
		env.Now = time.Now
	}

	r := &reduction{s: s, env: env}

	if te, ok := e.(TimedEvent); ok {
		r.at = te.At
		e = te.Event
	}
	if r.at.IsZero() {
		r.at = env.Now()
	}

	switch ev := e.(type) {
	// Selection & gain
	case SelectSound:
		r.selectSound(ev.ID)
	case UnselectSound:
		r.unselectSound(ev.ID)
	case ToggleSound:
		if r.s.sound(ev.ID).Selected {
			r.unselectSound(ev.ID)
		} else {
			r.selectSound(ev.ID)
		}
	case UnselectAll:
		if r.unselectAll() {
			r.s.CurrentMix = nil
		}
	case SetSoundVolume:
		r.setVolume(ev.ID, ev.Volume)
	case SetGlobalVolume:
		r.setGlobalVolume(ev.Volume)
	case NudgeGlobalVolume:
		r.setGlobalVolume(r.s.Master.Volume + ev.Delta)
	case ToggleMute:
		r.toggleMute()
	case Shuffle:
		r.shuffle()
	case TogglePlayback:
		r.togglePlayback()
	case SetPlayback:
		r.setPlayback(ev.Playing)

	// Presets
	case ApplyPreset:
		if p, ok := r.s.resolvePreset(env.Catalog, ev.ID); ok {
			start := ev.StartPlaying == nil || *ev.StartPlaying
			r.applyPreset(p, start)
		}
	case PlayNextRandomMix:
		r.playNextRandomMix()
	case SaveUserPreset:
		r.saveUserPreset(ev.Name, ev.Icon)
	case DeleteUserPreset:
		r.deleteUserPreset(ev.ID)

	// Favorites & recents
	case ToggleFavoriteSound:
		r.toggleFavoriteSound(ev.ID)
	case ReorderFavoriteSounds:
		r.reorderFavoriteSounds(ev)
	case ToggleFavoriteMix:
		r.toggleFavoriteMix(ev.ID)
	case ReorderFavoriteMixes:
		r.reorderFavoriteMixes(ev)
	case SetRecentLimits:
		r.setRecentLimits(ev)
	case ClearRecents:
		r.clearRecents()

	// Sleep timer
	case StartTimer:
		r.startTimer(ev.Seconds, ev.Name)
	case CancelTimer:
		r.cancelTimer()
	case TimerFired:
		r.timerFired(ev.Gen)

	// Playback observations
	case PlaybackLoaded:
		r.playbackLoaded(ev.ID)
	case PlaybackLoadFailed:
		r.playbackLoadFailed(ev.ID, ev.Reason)

	case resumeSession:
		for _, id := range r.s.SelectedIDs(env.Catalog) {
			r.emit(CmdLoadSound{ID: id}, CmdSetGain{ID: id, Gain: r.s.EffectiveGain(id)})
		}

	// Persistence
	case PersistDue:
		r.persistDue(ev.Bucket, ev.Gen)

	// Requests
	case RequestStateSnapshot:
		r.emit(CmdPublishStateSnapshot{Reply: ev.Reply, Snapshot: BuildSnapshot(r.s, env, r.at)})
	case RequestExport:
		r.emit(CmdPublishExport{Reply: ev.Reply, Doc: BuildExportDocument(r.s, env.Catalog, r.at)})
	case ImportDocument:
		err := r.importDocument(ev.Doc)
		r.emit(CmdReplyImport{Reply: ev.Reply, Err: err})
	case RequestTimerPresets:
		r.emit(CmdPublishTimerPresets{Reply: ev.Reply, Presets: topPresets(r.s.TimerUsage, ev.Limit)})

	default:
		// Unknown event type: no-op.
	}

	return r.finish()
}

// finish derives the cached match, flushes dirty buckets into commands and
// emits the state broadcast.
func (r *reduction) finish() ReduceResult {
	if r.selectionChanged {
		r.refreshMatch()
		r.changed = true
	}

	for _, b := range allBuckets {
		if r.dirty[b] {
			r.emit(CmdMarkDirty{Bucket: b})
		}
	}

	if r.changed {
		r.bcasts = append(r.bcasts, BroadcastStateChanged{
			Snapshot: BuildSnapshot(r.s, r.env, r.at),
			At:       r.at,
		})
	}

	return ReduceResult{
		State:      r.s,
		Commands:   r.cmds,
		Broadcasts: r.bcasts,
	}
}

func (r *reduction) playbackLoaded(id string) {
	if _, wasSilent := r.s.Silent[id]; wasSilent {
		delete(r.s.Silent, id)
		r.changed = true
	}
	st := r.s.sound(id)
	if !st.Selected {
		return
	}
	// Commands issued before the channel existed were no-ops.
	r.emit(CmdSetGain{ID: id, Gain: r.s.EffectiveGain(id)})
	if r.s.Playing {
		r.emit(CmdPlay{ID: id})
	}
}

func (r *reduction) playbackLoadFailed(id, reason string) {
	if !r.s.sound(id).Selected {
		return
	}
	if r.s.Silent == nil {
		r.s.Silent = make(map[string]string)
	}
	if r.s.Silent[id] == reason {
		return
	}
	r.s.Silent[id] = reason
	r.changed = true
}
