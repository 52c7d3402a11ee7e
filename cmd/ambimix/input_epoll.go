//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sys/unix"
)

// epollWaitMS bounds each epoll_wait so the reader notices cancellation.
const epollWaitMS = 250

// runMediaKeys opens every device, reads key events with a single epoll loop
// and posts translated mixer events until ctx is canceled. Devices that
// cannot be opened are logged and skipped.
func runMediaKeys(ctx context.Context, cfg InputConfig, events chan<- Event, logger *slog.Logger) error {
	var files []*os.File
	for _, dev := range cfg.Devices {
		f, err := os.Open(ExpandPath(dev))
		if err != nil {
			logger.Warn("failed to open input device", "device", dev, "error", err, "tip", "add user to 'input' group")
			continue
		}
		files = append(files, f)
	}
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()
	if len(files) == 0 {
		return errors.New("no input devices could be opened")
	}

	raw := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	go readInputEventsEpoll(ctx, files, raw, readErr)

	logger.Info("media keys enabled", "devices", len(files))

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case ev := <-raw:
			mixerEv, ok := translateKey(ev, cfg.SleepKeySeconds)
			if !ok {
				continue
			}
			select {
			case events <- mixerEv:
			default:
				logger.Warn("event queue full, dropping media key", "code", ev.Code)
			}
		}
	}
}

// readInputEventsEpoll reads from multiple input devices with one epoll
// instance and a single goroutine. It returns when ctx is canceled or a
// device fails.
func readInputEventsEpoll(ctx context.Context, files []*os.File, events chan<- inputEvent, readErr chan<- error) {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		readErr <- fmt.Errorf("epoll_create1: %w", err)
		return
	}
	defer unix.Close(epfd)

	fdToFile := make(map[int32]*os.File, len(files))
	for _, f := range files {
		fd := int(f.Fd())
		fdToFile[int32(fd)] = f

		event := unix.EpollEvent{Events: unix.EPOLLIN, Fd: int32(fd)}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			readErr <- fmt.Errorf("epoll_ctl_add %s: %w", f.Name(), err)
			return
		}
	}

	const maxEvents = 32
	epollEvents := make([]unix.EpollEvent, maxEvents)
	buf := make([]byte, inputEventSize)

	for {
		if ctx.Err() != nil {
			return
		}

		n, err := unix.EpollWait(epfd, epollEvents, epollWaitMS)
		if err != nil {
			if errors.Is(err, unix.EINTR) {
				continue
			}
			readErr <- fmt.Errorf("epoll_wait: %w", err)
			return
		}

		for i := 0; i < n; i++ {
			f := fdToFile[epollEvents[i].Fd]
			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				readErr <- fmt.Errorf("device error/hangup: %s", f.Name())
				return
			}

			if _, err := f.Read(buf); err != nil {
				readErr <- fmt.Errorf("read from %s: %w", f.Name(), err)
				return
			}

			ev, ok := decodeInputEvent(buf)
			if !ok {
				continue
			}
			select {
			case events <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}
