package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
)

// Notifier delivers user-facing notifications (sleep timer finished).
type Notifier interface {
	Notify(ctx context.Context, title, body string) error
}

// logNotifier only logs. It is the fallback when no desktop command exists.
type logNotifier struct {
	logger *slog.Logger
}

func (n logNotifier) Notify(_ context.Context, title, body string) error {
	n.logger.Info("notification", "title", title, "body", body)
	return nil
}

// commandNotifier runs an external command per notification.
type commandNotifier struct {
	name string
	args func(title, body string) []string
}

func (n commandNotifier) Notify(ctx context.Context, title, body string) error {
	cmd := exec.CommandContext(ctx, n.name, n.args(title, body)...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", n.name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// newNotifier picks a notifier for cfg. Mode "auto" uses notify-send on
// Linux and osascript on macOS when available; "command" runs cfg.Command
// with title and body appended; "log" and any missing binary fall back to
// logging.
func newNotifier(cfg NotifyConfig, logger *slog.Logger) Notifier {
	fallback := logNotifier{logger: logger}

	switch cfg.Mode {
	case "log":
		return fallback

	case "command":
		if len(cfg.Command) == 0 {
			return fallback
		}
		base := cfg.Command[1:]
		return commandNotifier{
			name: cfg.Command[0],
			args: func(title, body string) []string {
				return append(append([]string(nil), base...), title, body)
			},
		}
	}

	switch runtime.GOOS {
	case "linux":
		if _, err := exec.LookPath("notify-send"); err == nil {
			return commandNotifier{
				name: "notify-send",
				args: func(title, body string) []string {
					return []string{"--app-name=ambimix", title, body}
				},
			}
		}
	case "darwin":
		if _, err := exec.LookPath("osascript"); err == nil {
			return commandNotifier{
				name: "osascript",
				args: func(title, body string) []string {
					script := fmt.Sprintf("display notification %q with title %q", body, title)
					return []string{"-e", script}
				},
			}
		}
	}

	logger.Debug("no desktop notifier found, logging notifications")
	return fallback
}
