package main

import (
	"sort"
	"time"
)

// ============================================================================
// Sleep timer
// ============================================================================
//
// At most one timer is armed. Every start, cancel and completion bumps
// TimerGen before TimerState changes; a TimerFired whose Gen is not the
// current one belongs to a timer that no longer exists and is ignored.
//
// ============================================================================

// maxTimerSeconds bounds a single sleep timer to one day.
const maxTimerSeconds = 24 * 60 * 60

func (r *reduction) startTimer(seconds int, name string) {
	if seconds <= 0 || seconds > maxTimerSeconds {
		return
	}
	r.cancelTimer()

	r.s.TimerGen++
	d := time.Duration(seconds) * time.Second
	r.s.Timer = TimerRunning{
		EndAt:    r.at.Add(d),
		Name:     timerDisplayName(name, seconds),
		Duration: seconds,
	}
	r.emit(CmdScheduleTimer{Gen: r.s.TimerGen, After: d})

	if r.s.TimerUsage == nil {
		r.s.TimerUsage = make(map[int]int)
	}
	r.s.TimerUsage[seconds]++
	r.markDirty(BucketTimerUsage)
	r.changed = true
}

func (r *reduction) cancelTimer() {
	if _, idle := r.s.Timer.(TimerIdle); idle || r.s.Timer == nil {
		return
	}
	r.s.TimerGen++
	r.emit(CmdCancelTimer{})
	r.s.Timer = TimerIdle{}
	r.changed = true
}

func (r *reduction) timerFired(gen uint64) {
	if gen != r.s.TimerGen {
		return
	}
	running, ok := r.s.Timer.(TimerRunning)
	if !ok {
		return
	}
	r.completeTimer(running.Name)
}

// completeTimer stops all playback but keeps the selection.
func (r *reduction) completeTimer(name string) {
	r.s.TimerGen++
	if ids := r.s.SelectedIDs(r.env.Catalog); len(ids) > 0 {
		r.emit(CmdPauseAll{IDs: ids})
	}
	r.s.Playing = false
	r.s.Timer = TimerIdle{}

	r.emit(CmdNotifyTimerFinished{Name: name})
	r.bcasts = append(r.bcasts, BroadcastTimerFinished{Name: name, At: r.at})
	r.changed = true
}

// topPresets ranks used durations by count (desc, then shorter first) and
// fills up with never-used defaults, truncated to limit.
func topPresets(usage map[int]int, limit int) []int {
	if limit <= 0 {
		limit = defaultTimerPresetLimit
	}

	used := make([]int, 0, len(usage))
	for d, n := range usage {
		if d > 0 && n > 0 {
			used = append(used, d)
		}
	}
	sort.Slice(used, func(i, j int) bool {
		ci, cj := usage[used[i]], usage[used[j]]
		if ci != cj {
			return ci > cj
		}
		return used[i] < used[j]
	})

	out := used
	for _, d := range defaultTimerPresets {
		if usage[d] == 0 {
			out = append(out, d)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
