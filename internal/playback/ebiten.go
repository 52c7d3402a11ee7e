package playback

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/mp3"
	"github.com/hajimehoshi/ebiten/v2/audio/vorbis"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// DefaultSampleRate matches the rate the bundled loops are mastered at.
const DefaultSampleRate = 44100

// AssetResolver maps a sound id to its asset reference (a path, relative to
// the assets directory unless absolute).
type AssetResolver func(id string) (string, bool)

// EbitenEngine plays each sound as an endlessly looping ebiten audio player.
type EbitenEngine struct {
	ctx       *audio.Context
	assetsDir string
	resolve   AssetResolver
}

type ebitenHandle struct {
	id     string
	player *audio.Player
}

func (h *ebitenHandle) SoundID() string { return h.id }

// NewEbitenEngine creates the process-wide audio context. Only one may exist.
func NewEbitenEngine(sampleRate int, assetsDir string, resolve AssetResolver) *EbitenEngine {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &EbitenEngine{
		ctx:       audio.NewContext(sampleRate),
		assetsDir: assetsDir,
		resolve:   resolve,
	}
}

type loopStream interface {
	io.ReadSeeker
	Length() int64
}

func (e *EbitenEngine) Load(id string) (Handle, error) {
	ref, ok := e.resolve(id)
	if !ok || strings.TrimSpace(ref) == "" {
		return nil, fmt.Errorf("%w: no asset for %q", ErrAssetMissing, id)
	}
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.assetsDir, ref)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrAssetMissing, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	stream, err := e.decode(path, b)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}

	player, err := e.ctx.NewPlayer(audio.NewInfiniteLoop(stream, stream.Length()))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return &ebitenHandle{id: id, player: player}, nil
}

func (e *EbitenEngine) decode(path string, b []byte) (loopStream, error) {
	sr := e.ctx.SampleRate()
	r := bytes.NewReader(b)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wav.DecodeWithSampleRate(sr, r)
	case ".ogg":
		return vorbis.DecodeWithSampleRate(sr, r)
	case ".mp3":
		return mp3.DecodeWithSampleRate(sr, r)
	default:
		return nil, fmt.Errorf("unsupported format %q", filepath.Ext(path))
	}
}

func (e *EbitenEngine) SetGain(h Handle, gain float64) {
	if eh, ok := h.(*ebitenHandle); ok {
		eh.player.SetVolume(gain)
	}
}

func (e *EbitenEngine) Play(h Handle) {
	if eh, ok := h.(*ebitenHandle); ok && !eh.player.IsPlaying() {
		eh.player.Play()
	}
}

func (e *EbitenEngine) Pause(h Handle) {
	if eh, ok := h.(*ebitenHandle); ok {
		eh.player.Pause()
	}
}
