//go:build !linux

package main

import (
	"context"
	"errors"
	"log/slog"
)

func runMediaKeys(_ context.Context, _ InputConfig, _ chan<- Event, _ *slog.Logger) error {
	return errors.New("media keys are only supported on linux")
}
