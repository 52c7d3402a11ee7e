package main

import (
	"bytes"
	"encoding/binary"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// Linux input event constants (linux/input-event-codes.h)
const (
	EV_KEY = 0x01

	KEY_MUTE         = 113
	KEY_VOLUMEDOWN   = 114
	KEY_VOLUMEUP     = 115
	KEY_SLEEP        = 142
	KEY_NEXTSONG     = 163
	KEY_PLAYPAUSE    = 164
	KEY_PREVIOUSSONG = 165
	KEY_STOPCD       = 166
	KEY_PLAYCD       = 200
	KEY_PAUSECD      = 201
)

// Key event values
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// inputEventSize is the on-wire size of inputEvent on 64-bit kernels.
var inputEventSize = binary.Size(inputEvent{})

// decodeInputEvent parses one raw event. It returns false for short or
// malformed buffers.
func decodeInputEvent(buf []byte) (inputEvent, bool) {
	var ev inputEvent
	if len(buf) < inputEventSize {
		return ev, false
	}
	if err := binary.Read(bytes.NewReader(buf[:inputEventSize]), binary.LittleEndian, &ev); err != nil {
		return ev, false
	}
	return ev, true
}

// translateKey maps a media-key event to a mixer event. Volume keys repeat
// while held; everything else fires on press only.
func translateKey(ev inputEvent, sleepSeconds int) (Event, bool) {
	if ev.Type != EV_KEY {
		return nil, false
	}

	switch ev.Code {
	case KEY_VOLUMEUP:
		if ev.Value == evValuePress || ev.Value == evValueRepeat {
			return NudgeGlobalVolume{Delta: masterNudgeStep}, true
		}
		return nil, false
	case KEY_VOLUMEDOWN:
		if ev.Value == evValuePress || ev.Value == evValueRepeat {
			return NudgeGlobalVolume{Delta: -masterNudgeStep}, true
		}
		return nil, false
	}

	if ev.Value != evValuePress {
		return nil, false
	}

	switch ev.Code {
	case KEY_MUTE:
		return ToggleMute{}, true
	case KEY_PLAYPAUSE:
		return TogglePlayback{}, true
	case KEY_PLAYCD:
		return SetPlayback{Playing: true}, true
	case KEY_PAUSECD:
		return SetPlayback{Playing: false}, true
	case KEY_NEXTSONG:
		return PlayNextRandomMix{}, true
	case KEY_PREVIOUSSONG:
		return Shuffle{}, true
	case KEY_STOPCD:
		return UnselectAll{}, true
	case KEY_SLEEP:
		if sleepSeconds > 0 {
			return StartTimer{Seconds: sleepSeconds}, true
		}
	}
	return nil, false
}
