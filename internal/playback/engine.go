package playback

import (
	"errors"
	"sync"
)

// Load failures. Both are non-fatal for the mixer: the sound stays selected
// and is reported as silent.
var (
	ErrAssetMissing = errors.New("asset missing")
	ErrDecode       = errors.New("decode error")
)

// Handle identifies one loaded, independently gained looping channel.
type Handle interface {
	SoundID() string
}

// Engine is the audio backend contract. Implementations must not block on
// audio I/O; calls are fire-and-forget from the caller's perspective.
type Engine interface {
	Load(id string) (Handle, error)
	SetGain(h Handle, gain float64)
	Play(h Handle)
	Pause(h Handle)
}

// Channels caches one Handle per sound id on top of an Engine and provides
// the batch operations. Unloaded ids are ignored, which is what makes a sound
// with a missing asset silently inaudible.
type Channels struct {
	engine Engine

	mu      sync.Mutex
	handles map[string]Handle
}

func NewChannels(engine Engine) *Channels {
	return &Channels{
		engine:  engine,
		handles: make(map[string]Handle),
	}
}

// Ensure loads id if it has not been loaded yet. Decoding happens outside the
// lock; when two callers race, the first stored handle wins.
func (c *Channels) Ensure(id string) (Handle, error) {
	if h, ok := c.handle(id); ok {
		return h, nil
	}
	h, err := c.engine.Load(id)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if prev, ok := c.handles[id]; ok {
		return prev, nil
	}
	c.handles[id] = h
	return h, nil
}

// Loaded reports whether id has a live handle.
func (c *Channels) Loaded(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.handles[id]
	return ok
}

func (c *Channels) handle(id string) (Handle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	h, ok := c.handles[id]
	return h, ok
}

func (c *Channels) SetGain(id string, gain float64) {
	if h, ok := c.handle(id); ok {
		c.engine.SetGain(h, gain)
	}
}

func (c *Channels) Play(id string) {
	if h, ok := c.handle(id); ok {
		c.engine.Play(h)
	}
}

func (c *Channels) Pause(id string) {
	if h, ok := c.handle(id); ok {
		c.engine.Pause(h)
	}
}

func (c *Channels) PlayAll(ids []string) {
	for _, id := range ids {
		c.Play(id)
	}
}

func (c *Channels) PauseAll(ids []string) {
	for _, id := range ids {
		c.Pause(id)
	}
}
