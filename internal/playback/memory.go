package playback

import (
	"fmt"
	"sync"
)

// MemoryEngine is a headless Engine. It tracks gain and play state per sound
// and can be told that some assets are missing.
type MemoryEngine struct {
	mu      sync.Mutex
	missing map[string]bool
	gains   map[string]float64
	playing map[string]bool
	loads   int
}

type memoryHandle struct{ id string }

func (h memoryHandle) SoundID() string { return h.id }

// NewMemoryEngine returns an engine where every id in missing fails to load.
func NewMemoryEngine(missing ...string) *MemoryEngine {
	m := &MemoryEngine{
		missing: make(map[string]bool),
		gains:   make(map[string]float64),
		playing: make(map[string]bool),
	}
	for _, id := range missing {
		m.missing[id] = true
	}
	return m
}

func (m *MemoryEngine) Load(id string) (Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loads++
	if m.missing[id] {
		return nil, fmt.Errorf("%w: %s", ErrAssetMissing, id)
	}
	return memoryHandle{id: id}, nil
}

func (m *MemoryEngine) SetGain(h Handle, gain float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gains[h.SoundID()] = gain
}

func (m *MemoryEngine) Play(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing[h.SoundID()] = true
}

func (m *MemoryEngine) Pause(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing[h.SoundID()] = false
}

// Gain returns the last gain set for id.
func (m *MemoryEngine) Gain(id string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.gains[id]
	return g, ok
}

// IsPlaying reports whether id is currently playing.
func (m *MemoryEngine) IsPlaying(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing[id]
}

// AnyPlaying reports whether any channel is playing.
func (m *MemoryEngine) AnyPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.playing {
		if p {
			return true
		}
	}
	return false
}

// Loads returns the number of Load calls, failed ones included.
func (m *MemoryEngine) Loads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loads
}
