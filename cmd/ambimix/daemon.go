package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop - Reducer-driven mixer owner
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands + broadcasts.
//   - The daemon loop is the only goroutine that touches MixerState.
//   - Side effects run through runEffect; their outcomes (loads, timer fires,
//     debounce windows) come back as Events on the internal queue.
//   - Explicit event queue and command queue (no nested/re-entrant execution).
//
// ============================================================================

// daemonDeps bundles what the loop needs besides the state itself.
type daemonDeps struct {
	Env     Env
	Effects *effectRuntime

	// Broadcasts receives reducer-emitted broadcasts. Sends never block;
	// a full channel drops the broadcast. May be nil.
	Broadcasts chan<- StateBroadcast
}

// internalQueueSize bounds events posted back by timers and loaders.
const internalQueueSize = 64

// runDaemon is the main daemon loop that:
//   - Receives Events from IPC, HTTP and input sources
//   - Receives Events posted back by effects (timers, loads, persistence)
//   - Reduces events into (state, commands, broadcasts)
//   - Executes commands and feeds observations back into the reducer
//
// Shutdown semantics:
//   - Exits when ctx is canceled or the events channel is closed
//   - Flushes dirty persistence buckets before returning
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	deps daemonDeps,
	state *MixerState,
	logger *slog.Logger,
) {
	// Guard: reducer-driven daemon expects a state container.
	if state == nil {
		logger.Error("mixer state is nil")
		return
	}

	internal := make(chan Event, internalQueueSize)
	done := make(chan struct{})
	defer close(done)

	post := func(ev Event) {
		select {
		case internal <- ev:
		case <-done:
		}
	}

	rt := deps.Effects
	if rt != nil {
		rt.post = post
		if rt.sync != nil {
			rt.sync.Start(post)
		}
	}

	defer func() {
		if rt == nil {
			return
		}
		rt.cancelTimer()
		if rt.sync != nil {
			if dirty := rt.sync.Dirty(); len(dirty) > 0 {
				logger.Info("flushing state before exit", "buckets", len(dirty))
			}
			rt.sync.Flush(state)
		}
	}()

	// Explicit queues:
	// - eventQueue holds events awaiting reduction
	// - cmdQueue holds commands awaiting execution
	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}
	enqueueCommands := func(cmds []Command) {
		if len(cmds) == 0 {
			return
		}
		cmdQueue = append(cmdQueue, cmds...)
	}

	publish := func(bs []StateBroadcast) {
		if deps.Broadcasts == nil {
			return
		}
		for _, b := range bs {
			select {
			case deps.Broadcasts <- b:
			default:
				logger.Warn("broadcast queue full, dropping broadcast")
			}
		}
	}

	// Reduce all queued events, enqueuing any resulting commands.
	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev, deps.Env)
			if rr.State != nil {
				state = rr.State
			}
			enqueueCommands(rr.Commands)
			publish(rr.Broadcasts)
		}
	}

	// Execute all queued commands, enqueuing observation events.
	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			logger.Debug("effect", "command", cmd.String())
			runEffect(rt, cmd, logger)

			flushEvents()
		}
	}

	handle := func(ev Event) {
		enqueueEvent(TimedEvent{Event: ev, At: deps.Env.now()})
		flushEvents()
		flushCommands()
	}

	// Bring the engine in line with the restored state.
	handle(resumeSession{})

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			handle(ev)

		case ev := <-internal:
			handle(ev)
		}
	}
}

func (e Env) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}
