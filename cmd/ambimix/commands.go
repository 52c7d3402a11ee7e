package main

import (
	"fmt"
	"strings"
	"time"
)

// ==============================
// Commands (side effects)
// ==============================

// Command represents an external side effect to be executed by the daemon loop:
// playback engine calls, timer scheduling, persistence and notifications.
type Command interface {
	commandMarker()
	String() string
}

// CmdLoadSound makes sure a channel exists for ID. Loading runs off the daemon
// goroutine and reports back with PlaybackLoaded or PlaybackLoadFailed.
type CmdLoadSound struct {
	ID string
}

func (CmdLoadSound) commandMarker()   {}
func (c CmdLoadSound) String() string { return fmt.Sprintf("CmdLoadSound(id=%s)", c.ID) }

// CmdSetGain sets the effective gain of one channel.
type CmdSetGain struct {
	ID   string
	Gain float64
}

func (CmdSetGain) commandMarker() {}
func (c CmdSetGain) String() string {
	return fmt.Sprintf("CmdSetGain(id=%s, gain=%.3f)", c.ID, c.Gain)
}

type CmdPlay struct {
	ID string
}

func (CmdPlay) commandMarker()   {}
func (c CmdPlay) String() string { return fmt.Sprintf("CmdPlay(id=%s)", c.ID) }

type CmdPause struct {
	ID string
}

func (CmdPause) commandMarker()   {}
func (c CmdPause) String() string { return fmt.Sprintf("CmdPause(id=%s)", c.ID) }

type CmdPlayAll struct {
	IDs []string
}

func (CmdPlayAll) commandMarker() {}
func (c CmdPlayAll) String() string {
	return fmt.Sprintf("CmdPlayAll(ids=%s)", strings.Join(c.IDs, ","))
}

type CmdPauseAll struct {
	IDs []string
}

func (CmdPauseAll) commandMarker() {}
func (c CmdPauseAll) String() string {
	return fmt.Sprintf("CmdPauseAll(ids=%s)", strings.Join(c.IDs, ","))
}

// CmdMarkDirty (re)starts the debounce window of a persistence bucket.
type CmdMarkDirty struct {
	Bucket Bucket
}

func (CmdMarkDirty) commandMarker()   {}
func (c CmdMarkDirty) String() string { return fmt.Sprintf("CmdMarkDirty(bucket=%s)", c.Bucket) }

// CmdWriteBucket hands an encoded snapshot to the persistence writer. Gen must
// match the bucket's latest mark or the write is dropped as superseded.
type CmdWriteBucket struct {
	Bucket Bucket
	Gen    uint64
	Blob   []byte
}

func (CmdWriteBucket) commandMarker() {}
func (c CmdWriteBucket) String() string {
	return fmt.Sprintf("CmdWriteBucket(bucket=%s, gen=%d, bytes=%d)", c.Bucket, c.Gen, len(c.Blob))
}

// CmdScheduleTimer arms the one-shot sleep timer callback.
type CmdScheduleTimer struct {
	Gen   uint64
	After time.Duration
}

func (CmdScheduleTimer) commandMarker() {}
func (c CmdScheduleTimer) String() string {
	return fmt.Sprintf("CmdScheduleTimer(gen=%d, after=%s)", c.Gen, c.After)
}

// CmdCancelTimer disarms the pending sleep timer callback, if any.
type CmdCancelTimer struct{}

func (CmdCancelTimer) commandMarker() {}
func (CmdCancelTimer) String() string { return "CmdCancelTimer()" }

// CmdNotifyTimerFinished delivers the "timer finished" notification.
type CmdNotifyTimerFinished struct {
	Name string
}

func (CmdNotifyTimerFinished) commandMarker() {}
func (c CmdNotifyTimerFinished) String() string {
	return fmt.Sprintf("CmdNotifyTimerFinished(name=%q)", c.Name)
}

// CmdPublishStateSnapshot delivers a reducer-produced snapshot to a requester.
type CmdPublishStateSnapshot struct {
	Reply    chan<- StateSnapshot
	Snapshot StateSnapshot
}

func (CmdPublishStateSnapshot) commandMarker() {}
func (CmdPublishStateSnapshot) String() string { return "CmdPublishStateSnapshot()" }

// CmdPublishExport delivers an export document to a requester.
type CmdPublishExport struct {
	Reply chan<- ExportDocument
	Doc   ExportDocument
}

func (CmdPublishExport) commandMarker() {}
func (CmdPublishExport) String() string { return "CmdPublishExport()" }

// CmdReplyImport reports the outcome of an import.
type CmdReplyImport struct {
	Reply chan<- error
	Err   error
}

func (CmdReplyImport) commandMarker() {}
func (c CmdReplyImport) String() string {
	return fmt.Sprintf("CmdReplyImport(ok=%v)", c.Err == nil)
}

// CmdPublishTimerPresets delivers ranked timer durations to a requester.
type CmdPublishTimerPresets struct {
	Reply   chan<- []int
	Presets []int
}

func (CmdPublishTimerPresets) commandMarker() {}
func (c CmdPublishTimerPresets) String() string {
	return fmt.Sprintf("CmdPublishTimerPresets(n=%d)", len(c.Presets))
}

// ==============================
// Broadcasts (state push)
// ==============================

// StateBroadcast is a reducer-emitted notification for websocket clients.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastStateChanged carries the full snapshot after a mutation.
type BroadcastStateChanged struct {
	Snapshot StateSnapshot
	At       time.Time
}

// BroadcastTimerFinished is emitted once when the sleep timer completes.
type BroadcastTimerFinished struct {
	Name string
	At   time.Time
}

func (BroadcastStateChanged) broadcastMarker()  {}
func (BroadcastTimerFinished) broadcastMarker() {}
