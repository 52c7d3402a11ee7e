package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"ambimix/internal/playback"
)

// effectRuntime holds the collaborators commands are executed against.
type effectRuntime struct {
	channels *playback.Channels
	sync     *Synchronizer
	notifier Notifier
	logger   *slog.Logger

	// post delivers events from callbacks and background loads to the
	// daemon loop. It may block and must never be called on the loop itself.
	post func(Event)

	mu      sync.Mutex
	loading map[string]bool
	timer   *time.Timer
}

func newEffectRuntime(channels *playback.Channels, sync *Synchronizer, notifier Notifier, logger *slog.Logger) *effectRuntime {
	return &effectRuntime{
		channels: channels,
		sync:     sync,
		notifier: notifier,
		logger:   logger,
		loading:  make(map[string]bool),
	}
}

// runEffect executes a single reducer-emitted Command.
//
// Design rules:
// - This function is allowed to perform I/O, but never audio decoding on the caller's goroutine.
// - It must never call Reduce() directly; outcomes come back as Events via rt.post.
func runEffect(rt *effectRuntime, cmd Command, logger *slog.Logger) {
	if rt == nil {
		return
	}

	switch c := cmd.(type) {
	case CmdLoadSound:
		rt.load(c.ID)

	case CmdSetGain:
		rt.channels.SetGain(c.ID, c.Gain)

	case CmdPlay:
		rt.channels.Play(c.ID)

	case CmdPause:
		rt.channels.Pause(c.ID)

	case CmdPlayAll:
		rt.channels.PlayAll(c.IDs)

	case CmdPauseAll:
		rt.channels.PauseAll(c.IDs)

	case CmdMarkDirty:
		if rt.sync != nil {
			rt.sync.MarkDirty(c.Bucket)
		}

	case CmdWriteBucket:
		if rt.sync != nil && !rt.sync.Write(c.Bucket, c.Gen, c.Blob) {
			logger.Debug("persist write superseded", "bucket", c.Bucket, "gen", c.Gen)
		}

	case CmdScheduleTimer:
		rt.scheduleTimer(c.Gen, c.After)

	case CmdCancelTimer:
		rt.cancelTimer()

	case CmdNotifyTimerFinished:
		if rt.notifier == nil {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := rt.notifier.Notify(ctx, "Sleep timer finished", c.Name); err != nil {
				logger.Warn("timer notification failed", "error", err)
			}
		}()

	case CmdPublishStateSnapshot:
		if c.Reply == nil {
			logger.Warn("state snapshot requested with nil reply channel")
			return
		}
		// Never block the daemon loop on a requester.
		select {
		case c.Reply <- c.Snapshot:
		default:
			logger.Warn("state snapshot reply channel not ready; dropping snapshot")
		}

	case CmdPublishExport:
		if c.Reply == nil {
			return
		}
		select {
		case c.Reply <- c.Doc:
		default:
			logger.Warn("export reply channel not ready; dropping document")
		}

	case CmdReplyImport:
		if c.Reply == nil {
			return
		}
		select {
		case c.Reply <- c.Err:
		default:
			logger.Warn("import reply channel not ready; dropping result")
		}

	case CmdPublishTimerPresets:
		if c.Reply == nil {
			return
		}
		select {
		case c.Reply <- c.Presets:
		default:
			logger.Warn("timer presets reply channel not ready; dropping result")
		}

	default:
		logger.Warn("unhandled command", "error", errUnknownCommand{cmd: cmd})
	}
}

// load starts a background load of id unless it is loaded or loading.
func (rt *effectRuntime) load(id string) {
	if rt.channels.Loaded(id) {
		return
	}
	rt.mu.Lock()
	if rt.loading[id] {
		rt.mu.Unlock()
		return
	}
	rt.loading[id] = true
	rt.mu.Unlock()

	go func() {
		_, err := rt.channels.Ensure(id)

		rt.mu.Lock()
		delete(rt.loading, id)
		rt.mu.Unlock()

		if err != nil {
			rt.logger.Warn("sound load failed; channel stays silent", "sound", id, "error", err)
			rt.post(PlaybackLoadFailed{ID: id, Reason: err.Error()})
			return
		}
		rt.logger.Debug("sound loaded", "sound", id)
		rt.post(PlaybackLoaded{ID: id})
	}()
}

func (rt *effectRuntime) scheduleTimer(gen uint64, after time.Duration) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.timer != nil {
		rt.timer.Stop()
	}
	rt.timer = time.AfterFunc(after, func() {
		rt.post(TimerFired{Gen: gen})
	})
}

func (rt *effectRuntime) cancelTimer() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.timer != nil {
		rt.timer.Stop()
		rt.timer = nil
	}
}

type errUnknownCommand struct {
	cmd Command
}

func (e errUnknownCommand) Error() string { return "unknown command: " + e.cmd.String() }
