package main

import (
	"encoding/json"
	"fmt"
	"time"
)

// ============================================================================
// Events - inputs to the reducer
// ============================================================================
// External events come from IPC, HTTP, media keys and the config watcher.
// Internal events are produced by the daemon itself (timer callbacks,
// persistence debounce, playback load results, snapshot requests) and are
// never accepted from the wire.
// ============================================================================

// Event is the input to the reducer.
type Event interface {
	eventMarker()
}

// TimedEvent stamps an external event with its arrival time.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// ----------------------------------------------------------------------------
// Selection & gain
// ----------------------------------------------------------------------------

type SelectSound struct {
	ID string `json:"id"`
}

type UnselectSound struct {
	ID string `json:"id"`
}

// ToggleSound selects an unselected sound and unselects a selected one.
type ToggleSound struct {
	ID string `json:"id"`
}

type UnselectAll struct{}

type SetSoundVolume struct {
	ID     string  `json:"id"`
	Volume float64 `json:"volume"`
}

type SetGlobalVolume struct {
	Volume float64 `json:"volume"`
}

// NudgeGlobalVolume adds Delta to the master volume (media keys).
type NudgeGlobalVolume struct {
	Delta float64 `json:"delta"`
}

type ToggleMute struct{}

type Shuffle struct{}

// TogglePlayback pauses or resumes the selected channels without changing the selection.
type TogglePlayback struct{}

// SetPlayback pauses or resumes explicitly; it does nothing when playback
// is already in the requested state.
type SetPlayback struct {
	Playing bool `json:"playing"`
}

func (SelectSound) eventMarker()       {}
func (UnselectSound) eventMarker()     {}
func (ToggleSound) eventMarker()       {}
func (UnselectAll) eventMarker()       {}
func (SetSoundVolume) eventMarker()    {}
func (SetGlobalVolume) eventMarker()   {}
func (NudgeGlobalVolume) eventMarker() {}
func (ToggleMute) eventMarker()        {}
func (Shuffle) eventMarker()           {}
func (TogglePlayback) eventMarker()    {}
func (SetPlayback) eventMarker()       {}

// ----------------------------------------------------------------------------
// Presets
// ----------------------------------------------------------------------------

// ApplyPreset applies a built-in mix or user preset. StartPlaying defaults to true.
type ApplyPreset struct {
	ID           string `json:"id"`
	StartPlaying *bool  `json:"start_playing,omitempty"`
}

type PlayNextRandomMix struct{}

// SaveUserPreset stores the current selection as a new user preset.
type SaveUserPreset struct {
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

type DeleteUserPreset struct {
	ID string `json:"id"`
}

func (ApplyPreset) eventMarker()       {}
func (PlayNextRandomMix) eventMarker() {}
func (SaveUserPreset) eventMarker()    {}
func (DeleteUserPreset) eventMarker()  {}

// ----------------------------------------------------------------------------
// Favorites & recents
// ----------------------------------------------------------------------------

type ToggleFavoriteSound struct {
	ID string `json:"id"`
}

// ReorderFavoriteSounds moves Count items starting at From so that they begin
// at index To of the list that remains once they are taken out.
type ReorderFavoriteSounds struct {
	From  int `json:"from"`
	Count int `json:"count"`
	To    int `json:"to"`
}

type ToggleFavoriteMix struct {
	ID string `json:"id"`
}

type ReorderFavoriteMixes struct {
	From  int `json:"from"`
	Count int `json:"count"`
	To    int `json:"to"`
}

// SetRecentLimits changes MRU sizes. Zero leaves a limit unchanged.
type SetRecentLimits struct {
	Sounds int `json:"sounds,omitempty"`
	Mixes  int `json:"mixes,omitempty"`
}

type ClearRecents struct{}

func (ToggleFavoriteSound) eventMarker()   {}
func (ReorderFavoriteSounds) eventMarker() {}
func (ToggleFavoriteMix) eventMarker()     {}
func (ReorderFavoriteMixes) eventMarker()  {}
func (SetRecentLimits) eventMarker()       {}
func (ClearRecents) eventMarker()          {}

// ----------------------------------------------------------------------------
// Sleep timer
// ----------------------------------------------------------------------------

type StartTimer struct {
	Seconds int    `json:"seconds"`
	Name    string `json:"name,omitempty"`
}

type CancelTimer struct{}

func (StartTimer) eventMarker()  {}
func (CancelTimer) eventMarker() {}

// ============================================================================
// Internal events
// ============================================================================

// TimerFired is posted by the scheduled sleep timer callback.
type TimerFired struct {
	Gen uint64
}

// PlaybackLoaded reports that a channel finished loading.
type PlaybackLoaded struct {
	ID string
}

// PlaybackLoadFailed reports a missing or undecodable asset.
type PlaybackLoadFailed struct {
	ID     string
	Reason string
}

// PersistDue is posted when a bucket's debounce window elapsed.
type PersistDue struct {
	Bucket Bucket
	Gen    uint64
}

// RequestStateSnapshot asks the daemon for a StateSnapshot.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

// RequestExport asks the daemon for an export document.
type RequestExport struct {
	Reply chan<- ExportDocument
}

// ImportDocument replaces user presets and favorites. Reply receives nil or
// the validation error; the state is untouched on error.
type ImportDocument struct {
	Doc   ExportDocument
	Reply chan<- error
}

// RequestTimerPresets asks for ranked sleep timer durations.
type RequestTimerPresets struct {
	Limit int
	Reply chan<- []int
}

// resumeSession is reduced once at startup to load the restored selection.
type resumeSession struct{}

func (TimerFired) eventMarker()           {}
func (PlaybackLoaded) eventMarker()       {}
func (PlaybackLoadFailed) eventMarker()   {}
func (PersistDue) eventMarker()           {}
func (RequestStateSnapshot) eventMarker() {}
func (RequestExport) eventMarker()        {}
func (ImportDocument) eventMarker()       {}
func (RequestTimerPresets) eventMarker()  {}
func (resumeSession) eventMarker()        {}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// EventEnvelope wraps events for JSON serialization/deserialization.
// Since Go doesn't have union types, we use a type discriminator.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// wireEvents maps envelope type names to decoders for external events.
var wireEvents = map[string]func(json.RawMessage) (Event, error){
	"select_sound":            decodeData[SelectSound],
	"unselect_sound":          decodeData[UnselectSound],
	"toggle_sound":            decodeData[ToggleSound],
	"unselect_all":            decodeData[UnselectAll],
	"set_sound_volume":        decodeData[SetSoundVolume],
	"set_global_volume":       decodeData[SetGlobalVolume],
	"nudge_global_volume":     decodeData[NudgeGlobalVolume],
	"toggle_mute":             decodeData[ToggleMute],
	"shuffle":                 decodeData[Shuffle],
	"toggle_playback":         decodeData[TogglePlayback],
	"set_playback":            decodeData[SetPlayback],
	"apply_preset":            decodeData[ApplyPreset],
	"play_next_random_mix":    decodeData[PlayNextRandomMix],
	"save_user_preset":        decodeData[SaveUserPreset],
	"delete_user_preset":      decodeData[DeleteUserPreset],
	"toggle_favorite_sound":   decodeData[ToggleFavoriteSound],
	"reorder_favorite_sounds": decodeData[ReorderFavoriteSounds],
	"toggle_favorite_mix":     decodeData[ToggleFavoriteMix],
	"reorder_favorite_mixes":  decodeData[ReorderFavoriteMixes],
	"set_recent_limits":       decodeData[SetRecentLimits],
	"clear_recents":           decodeData[ClearRecents],
	"start_timer":             decodeStartTimer,
	"cancel_timer":            decodeData[CancelTimer],
}

func decodeData[T Event](data json.RawMessage) (Event, error) {
	var ev T
	if len(data) == 0 || string(data) == "null" {
		return ev, nil
	}
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("unmarshal %T: %w", ev, err)
	}
	return ev, nil
}

func decodeStartTimer(data json.RawMessage) (Event, error) {
	ev, err := decodeData[StartTimer](data)
	if err != nil {
		return nil, err
	}
	st := ev.(StartTimer)
	if st.Seconds <= 0 || st.Seconds > maxTimerSeconds {
		return nil, fmt.Errorf("start_timer: seconds %d out of range (1..%d)", st.Seconds, maxTimerSeconds)
	}
	return st, nil
}

// UnmarshalEvent deserializes a JSON event envelope into a concrete Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}
	decode, ok := wireEvents[env.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
	return decode(env.Data)
}

// eventTypeName returns the envelope type of an external event.
func eventTypeName(e Event) (string, bool) {
	switch e.(type) {
	case SelectSound:
		return "select_sound", true
	case UnselectSound:
		return "unselect_sound", true
	case ToggleSound:
		return "toggle_sound", true
	case UnselectAll:
		return "unselect_all", true
	case SetSoundVolume:
		return "set_sound_volume", true
	case SetGlobalVolume:
		return "set_global_volume", true
	case NudgeGlobalVolume:
		return "nudge_global_volume", true
	case ToggleMute:
		return "toggle_mute", true
	case Shuffle:
		return "shuffle", true
	case TogglePlayback:
		return "toggle_playback", true
	case SetPlayback:
		return "set_playback", true
	case ApplyPreset:
		return "apply_preset", true
	case PlayNextRandomMix:
		return "play_next_random_mix", true
	case SaveUserPreset:
		return "save_user_preset", true
	case DeleteUserPreset:
		return "delete_user_preset", true
	case ToggleFavoriteSound:
		return "toggle_favorite_sound", true
	case ReorderFavoriteSounds:
		return "reorder_favorite_sounds", true
	case ToggleFavoriteMix:
		return "toggle_favorite_mix", true
	case ReorderFavoriteMixes:
		return "reorder_favorite_mixes", true
	case SetRecentLimits:
		return "set_recent_limits", true
	case ClearRecents:
		return "clear_recents", true
	case StartTimer:
		return "start_timer", true
	case CancelTimer:
		return "cancel_timer", true
	default:
		return "", false
	}
}

// MarshalEvent serializes an external Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	name, ok := eventTypeName(e)
	if !ok {
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}
	env := EventEnvelope{Type: name}
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %T: %w", e, err)
	}
	if string(data) != "{}" {
		env.Data = data
	}
	return json.Marshal(env)
}
