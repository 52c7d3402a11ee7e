package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"ambimix/internal/store"
)

// ============================================================================
// Persistence Synchronizer
// ============================================================================
//
// Every logical piece of state is a bucket with its own gateway key and
// debounce window. The reducer marks buckets dirty; the synchronizer keeps one
// timer per bucket and restarts it on every mark. When a window elapses a
// PersistDue event goes back through the daemon loop, which encodes the
// latest state and hands the blob to a single writer goroutine. The writer
// keeps one pending blob per bucket, so a newer snapshot replaces an older
// one that has not been written yet.
//
// ============================================================================

// Bucket names a persisted piece of state. The name doubles as the gateway key.
type Bucket string

const (
	BucketSoundStates    Bucket = "sound_states"
	BucketMasterGain     Bucket = "master_gain"
	BucketUserPresets    Bucket = "user_presets"
	BucketRecentSounds   Bucket = "recent_sounds"
	BucketRecentMixes    Bucket = "recent_mixes"
	BucketFavoriteSounds Bucket = "favorite_sounds"
	BucketFavoriteMixes  Bucket = "favorite_mixes"
	BucketTimerUsage     Bucket = "timer_usage"
	BucketRecentLimits   Bucket = "recent_limits"
)

// allBuckets fixes the order in which dirty buckets are reported and flushed.
var allBuckets = []Bucket{
	BucketSoundStates,
	BucketMasterGain,
	BucketUserPresets,
	BucketRecentSounds,
	BucketRecentMixes,
	BucketFavoriteSounds,
	BucketFavoriteMixes,
	BucketTimerUsage,
	BucketRecentLimits,
}

// DebounceWindows maps buckets to their windows. Zero means write immediately.
type DebounceWindows map[Bucket]time.Duration

// NewDebounceWindows applies the map window to bulky maps and the list window
// to ordered id lists; scalar toggles are written immediately.
func NewDebounceWindows(mapWindow, listWindow time.Duration) DebounceWindows {
	return DebounceWindows{
		BucketSoundStates:    mapWindow,
		BucketMasterGain:     mapWindow,
		BucketUserPresets:    mapWindow,
		BucketRecentSounds:   listWindow,
		BucketRecentMixes:    listWindow,
		BucketFavoriteSounds: listWindow,
		BucketFavoriteMixes:  listWindow,
		BucketTimerUsage:     0,
		BucketRecentLimits:   0,
	}
}

// encodeBucket serializes the current value of one bucket.
func encodeBucket(s *MixerState, b Bucket) ([]byte, error) {
	var v any
	switch b {
	case BucketSoundStates:
		v = s.Sounds
	case BucketMasterGain:
		v = s.Master
	case BucketUserPresets:
		v = nonNil(s.UserPresets)
	case BucketRecentSounds:
		v = nonNil(s.RecentSounds)
	case BucketRecentMixes:
		v = nonNil(s.RecentMixes)
	case BucketFavoriteSounds:
		v = nonNil(s.FavoriteSoundOrder)
	case BucketFavoriteMixes:
		v = nonNil(s.FavoriteMixes)
	case BucketTimerUsage:
		v = s.TimerUsage
	case BucketRecentLimits:
		v = s.Limits
	default:
		return nil, fmt.Errorf("unknown bucket %q", b)
	}
	blob, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", b, err)
	}
	return blob, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// persistDue encodes the bucket for the writer. Encoding happens here, on the
// owner goroutine, so the blob is always a whole, consistent snapshot.
func (r *reduction) persistDue(b Bucket, gen uint64) {
	blob, err := encodeBucket(r.s, b)
	if err != nil {
		// Nothing to write; the next mutation re-marks the bucket.
		return
	}
	r.emit(CmdWriteBucket{Bucket: b, Gen: gen, Blob: blob})
}

// ============================================================================
// Restore
// ============================================================================

// RestoreState loads every bucket from gw on top of the catalog defaults.
// Missing values, read errors and decode failures all leave the default in
// place; they are logged and never returned.
func RestoreState(gw store.Gateway, cat *Catalog, logger *slog.Logger) *MixerState {
	s := NewMixerState(cat)
	if gw == nil {
		return s
	}

	load := func(b Bucket, dst any) bool {
		blob, ok, err := gw.Get(string(b))
		if err != nil {
			logger.Warn("persisted value unreadable, using default", "bucket", b, "error", err)
			return false
		}
		if !ok {
			return false
		}
		if err := json.Unmarshal(blob, dst); err != nil {
			logger.Warn("persisted value undecodable, using default", "bucket", b, "error", err)
			return false
		}
		return true
	}

	var limits RecentLimits
	if load(BucketRecentLimits, &limits) {
		s.Limits = limits.clamped()
	}

	var sounds map[string]SoundState
	if load(BucketSoundStates, &sounds) {
		for id, st := range sounds {
			if !cat.HasSound(id) {
				continue
			}
			st.Volume = clamp01(st.Volume)
			s.Sounds[id] = st
		}
	}

	var master MasterGainState
	if load(BucketMasterGain, &master) {
		s.Master.Volume = clamp01(master.Volume)
		s.Master.VolumeBeforeMute = clamp01(master.VolumeBeforeMute)
	}

	var presets []Preset
	if load(BucketUserPresets, &presets) {
		for _, p := range presets {
			if err := p.Validate(); err != nil {
				logger.Warn("dropping invalid user preset", "id", p.ID, "error", err)
				continue
			}
			s.UserPresets = append(s.UserPresets, p)
		}
	}

	var list []string
	if load(BucketRecentSounds, &list) {
		s.RecentSounds = dedupeLimit(list, s.Limits.Sounds)
	}
	list = nil
	if load(BucketRecentMixes, &list) {
		s.RecentMixes = dedupeLimit(list, s.Limits.Mixes)
	}
	list = nil
	if load(BucketFavoriteSounds, &list) {
		s.FavoriteSoundOrder = dedupeLimit(list, len(list))
	}
	list = nil
	if load(BucketFavoriteMixes, &list) {
		s.FavoriteMixes = dedupeLimit(list, len(list))
	}

	var usage map[int]int
	if load(BucketTimerUsage, &usage) {
		for d, n := range usage {
			if d > 0 && n > 0 {
				s.TimerUsage[d] = n
			}
		}
	}

	if m, ok := matchingMix(cat, s.SelectedIDs(cat)); ok {
		s.MatchedMixID = m.ID
	}
	return s
}

func dedupeLimit(list []string, limit int) []string {
	out := make([]string, 0, min(len(list), limit))
	for _, id := range list {
		if len(out) == limit {
			break
		}
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// ============================================================================
// Synchronizer
// ============================================================================

// Synchronizer owns the per-bucket debounce timers and the writer goroutine.
type Synchronizer struct {
	gw      store.Gateway
	windows DebounceWindows
	logger  *slog.Logger

	mu     sync.Mutex
	post   func(Event)
	timers map[Bucket]*time.Timer
	gens   map[Bucket]uint64
	dirty  map[Bucket]bool

	pending map[Bucket][]byte
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
	started bool
}

// NewSynchronizer returns a synchronizer writing to gw. Call Start before use.
func NewSynchronizer(gw store.Gateway, windows DebounceWindows, logger *slog.Logger) *Synchronizer {
	if windows == nil {
		windows = NewDebounceWindows(defaultMapDebounce, defaultListDebounce)
	}
	return &Synchronizer{
		gw:      gw,
		windows: windows,
		logger:  logger,
		timers:  make(map[Bucket]*time.Timer),
		gens:    make(map[Bucket]uint64),
		dirty:   make(map[Bucket]bool),
		pending: make(map[Bucket][]byte),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the writer. post delivers PersistDue events to the daemon loop.
func (s *Synchronizer) Start(post func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.post = post
	go s.runWriter()
}

// MarkDirty restarts the bucket's debounce window.
func (s *Synchronizer) MarkDirty(b Bucket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gens[b]++
	gen := s.gens[b]
	s.dirty[b] = true

	if t := s.timers[b]; t != nil {
		t.Stop()
	}
	post := s.post
	s.timers[b] = time.AfterFunc(s.windows[b], func() {
		if post != nil {
			post(PersistDue{Bucket: b, Gen: gen})
		}
	})
}

// Write queues blob unless a newer mark superseded gen. It reports whether
// the blob was accepted.
func (s *Synchronizer) Write(b Bucket, gen uint64, blob []byte) bool {
	s.mu.Lock()
	if gen != s.gens[b] || !s.dirty[b] {
		s.mu.Unlock()
		return false
	}
	s.dirty[b] = false
	s.pending[b] = blob
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Dirty returns buckets marked since their last accepted write.
func (s *Synchronizer) Dirty() []Bucket {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Bucket
	for _, b := range allBuckets {
		if s.dirty[b] {
			out = append(out, b)
		}
	}
	return out
}

// Flush encodes every dirty bucket from st, queues the blobs and waits for
// the writer to drain. The daemon calls it once, on shutdown.
func (s *Synchronizer) Flush(st *MixerState) {
	for _, b := range s.Dirty() {
		blob, err := encodeBucket(st, b)
		if err != nil {
			s.logger.Error("encode on shutdown failed", "bucket", b, "error", err)
			continue
		}
		s.mu.Lock()
		gen := s.gens[b]
		s.mu.Unlock()
		s.Write(b, gen, blob)
	}
	s.Close()
}

// Close stops all timers and the writer after it drained pending blobs.
func (s *Synchronizer) Close() {
	s.mu.Lock()
	for _, t := range s.timers {
		t.Stop()
	}
	started := s.started
	s.started = false
	s.mu.Unlock()

	if !started {
		return
	}
	close(s.stop)
	<-s.done
}

func (s *Synchronizer) runWriter() {
	defer close(s.done)
	for {
		select {
		case <-s.wake:
			s.drain()
		case <-s.stop:
			s.drain()
			return
		}
	}
}

func (s *Synchronizer) drain() {
	s.mu.Lock()
	batch := s.pending
	s.pending = make(map[Bucket][]byte)
	s.mu.Unlock()

	for _, b := range allBuckets {
		blob, ok := batch[b]
		if !ok {
			continue
		}
		if err := s.gw.Set(string(b), blob); err != nil {
			s.logger.Error("persist write failed", "bucket", b, "error", err)
			continue
		}
		s.logger.Debug("persisted", "bucket", b, "bytes", len(blob))
	}
}
