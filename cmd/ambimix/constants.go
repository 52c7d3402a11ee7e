package main

import "time"

// Sound state defaults
const (
	defaultSoundVolume  = 0.5
	defaultMasterVolume = 1.0

	shuffleSoundCount = 4
	shuffleMinVolume  = 0.2
	shuffleMaxVolume  = 1.0

	// Media-key master volume step
	masterNudgeStep = 0.05
)

// Recency limits (user-settable within [minRecentLimit, maxRecentLimit])
const (
	minRecentLimit     = 10
	maxRecentLimit     = 15
	defaultRecentLimit = 12
)

// Persistence debounce windows
const (
	defaultMapDebounce  = 300 * time.Millisecond
	defaultListDebounce = 200 * time.Millisecond
)

// Sleep timer
const (
	defaultTimerPresetLimit = 6
)

// defaultTimerPresets are suggested sleep timer durations (seconds) that are
// offered after any durations the user has actually used.
var defaultTimerPresets = []int{15 * 60, 30 * 60, 45 * 60, 60 * 60, 90 * 60, 120 * 60}

// Export document
const exportDocumentVersion = 1

// Server defaults
const (
	defaultSocketPath = "/tmp/ambimix.sock"
	defaultHTTPPort   = 3017
)

// Notifications
const notifyTimeout = 5 * time.Second
