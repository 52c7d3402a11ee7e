package main

import (
	"reflect"
	"strings"
	"testing"
)

func TestUnmarshalEvent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Event
	}{
		{name: "select", in: `{"type":"select_sound","data":{"id":"rain"}}`, want: SelectSound{ID: "rain"}},
		{name: "no data", in: `{"type":"toggle_mute"}`, want: ToggleMute{}},
		{name: "null data", in: `{"type":"shuffle","data":null}`, want: Shuffle{}},
		{name: "volume", in: `{"type":"set_sound_volume","data":{"id":"fan","volume":0.25}}`, want: SetSoundVolume{ID: "fan", Volume: 0.25}},
		{name: "nudge", in: `{"type":"nudge_global_volume","data":{"delta":-0.05}}`, want: NudgeGlobalVolume{Delta: -0.05}},
		{name: "reorder", in: `{"type":"reorder_favorite_mixes","data":{"from":2,"count":1,"to":0}}`, want: ReorderFavoriteMixes{From: 2, Count: 1, To: 0}},
		{name: "timer", in: `{"type":"start_timer","data":{"seconds":900,"name":"Nap"}}`, want: StartTimer{Seconds: 900, Name: "Nap"}},
		{name: "pause", in: `{"type":"set_playback","data":{"playing":false}}`, want: SetPlayback{Playing: false}},
		{name: "apply default", in: `{"type":"apply_preset","data":{"id":"beach"}}`, want: ApplyPreset{ID: "beach"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnmarshalEvent([]byte(tt.in))
			if err != nil {
				t.Fatalf("UnmarshalEvent: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestUnmarshalEvent_ApplyPresetWithoutPlaying(t *testing.T) {
	ev, err := UnmarshalEvent([]byte(`{"type":"apply_preset","data":{"id":"beach","start_playing":false}}`))
	if err != nil {
		t.Fatalf("UnmarshalEvent: %v", err)
	}
	ap, ok := ev.(ApplyPreset)
	if !ok || ap.StartPlaying == nil || *ap.StartPlaying {
		t.Fatalf("got %#v", ev)
	}
}

func TestUnmarshalEvent_Errors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantErr string
	}{
		{name: "not json", in: `select rain`, wantErr: "unmarshal envelope"},
		{name: "unknown type", in: `{"type":"explode"}`, wantErr: "unknown event type"},
		{name: "internal type", in: `{"type":"timer_fired","data":{"Gen":1}}`, wantErr: "unknown event type"},
		{name: "bad data", in: `{"type":"set_global_volume","data":{"volume":"loud"}}`, wantErr: "unmarshal main.SetGlobalVolume"},
		{name: "timer too long", in: `{"type":"start_timer","data":{"seconds":10000000000}}`, wantErr: "out of range"},
		{name: "timer zero", in: `{"type":"start_timer","data":{"seconds":0}}`, wantErr: "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalEvent([]byte(tt.in))
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestMarshalEvent_RoundTripsThroughWire(t *testing.T) {
	off := false
	for _, ev := range []Event{
		UnselectAll{},
		SetRecentLimits{Sounds: 12},
		ApplyPreset{ID: "beach", StartPlaying: &off},
		SaveUserPreset{Name: "Porch", Icon: "moon"},
	} {
		b, err := MarshalEvent(ev)
		if err != nil {
			t.Fatalf("MarshalEvent(%T): %v", ev, err)
		}
		got, err := UnmarshalEvent(b)
		if err != nil {
			t.Fatalf("UnmarshalEvent(%s): %v", b, err)
		}
		if !reflect.DeepEqual(got, ev) {
			t.Fatalf("round trip %s: got %#v, want %#v", b, got, ev)
		}
	}
}

func TestMarshalEvent_OmitsEmptyData(t *testing.T) {
	b, err := MarshalEvent(ClearRecents{})
	if err != nil {
		t.Fatalf("MarshalEvent: %v", err)
	}
	if string(b) != `{"type":"clear_recents"}` {
		t.Fatalf("got %s", b)
	}
}

func TestMarshalEvent_RejectsInternalEvents(t *testing.T) {
	for _, ev := range []Event{TimerFired{Gen: 1}, PersistDue{}, RequestStateSnapshot{}, resumeSession{}} {
		if _, err := MarshalEvent(ev); err == nil {
			t.Fatalf("MarshalEvent(%T) succeeded", ev)
		}
	}
}
