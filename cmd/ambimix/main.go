package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ambimix/internal/playback"
	"ambimix/internal/store"
)

const version = "0.3.0"

var (
	configPath string
	overrides  FlagOverrides
)

var rootCmd = &cobra.Command{
	Use:   "ambimix",
	Short: "Ambient soundscape mixer daemon",
	Long: `ambimix mixes looping ambient sounds (rain, fire, waves, noise...) with
per-sound volumes, built-in mixes, user presets and a sleep timer.

Control it with ambimixctl, over the Unix socket, or through the HTTP API
and state websocket.`,
	SilenceUsage: true,
	RunE:         runRoot,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and exit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ambimix v%s\n", version)
	},
}

var soundsCmd = &cobra.Command{
	Use:   "sounds",
	Short: "List the sounds and mixes of the configured catalog",
	RunE:  runSounds,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&configPath, "config", "c", "", "Path to YAML config file (default ~/.config/ambimix/config.yaml if present)")

	rf := rootCmd.Flags()
	rf.String("catalog", "", "Path to catalog YAML (default: built-in catalog)")
	rf.String("state-dir", "", "Directory for persisted mixer state")
	rf.String("backend", "", "Playback backend: ebiten|memory")
	rf.String("assets-dir", "", "Directory containing sound assets")
	rf.String("ipc-socket", "", "Unix domain socket path for IPC")
	rf.Bool("http", true, "Enable the HTTP API and state websocket")
	rf.String("http-listen", "", "HTTP listen address")
	rf.Bool("media-keys", false, "Read media keys from input devices")
	rf.StringSlice("input-device", nil, "Linux input event device (repeatable)")
	rf.String("notify", "", "Timer notification mode: auto|command|log")
	rf.String("log-level", "", "Log level: error, warn, info, debug")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(soundsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// collectOverrides maps the flags that were explicitly set onto FlagOverrides.
func collectOverrides(cmd *cobra.Command) FlagOverrides {
	fs := cmd.Flags()
	str := func(name string) *string {
		if !fs.Changed(name) {
			return nil
		}
		v, _ := fs.GetString(name)
		return &v
	}
	boolean := func(name string) *bool {
		if !fs.Changed(name) {
			return nil
		}
		v, _ := fs.GetBool(name)
		return &v
	}

	o := FlagOverrides{
		CatalogPath:     str("catalog"),
		StateDir:        str("state-dir"),
		PlaybackBackend: str("backend"),
		AssetsDir:       str("assets-dir"),
		IPCSocketPath:   str("ipc-socket"),
		HTTPEnabled:     boolean("http"),
		HTTPListen:      str("http-listen"),
		InputEnabled:    boolean("media-keys"),
		NotifyMode:      str("notify"),
		LogLevel:        str("log-level"),
	}
	if fs.Changed("input-device") {
		v, _ := fs.GetStringSlice("input-device")
		o.InputDevices = &v
	}
	return o
}

// loadConfig resolves defaults, file and flags into a validated Config. It
// also returns the file path to watch, or "" when no file is in use.
func loadConfig(cmd *cobra.Command) (Config, string, error) {
	path := configPath
	if path == "" {
		if dir, err := os.UserConfigDir(); err == nil {
			candidate := filepath.Join(dir, "ambimix", "config.yaml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}

	cfg := DefaultConfig()
	if path != "" {
		loaded, err := LoadConfigFile(path)
		if err != nil {
			return Config{}, "", err
		}
		cfg = loaded
	}

	overrides = collectOverrides(cmd)
	overrides.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, "", fmt.Errorf("invalid config: %w", err)
	}
	return cfg, path, nil
}

func runSounds(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cat, err := LoadCatalogFile(cfg.Catalog.Path)
	if err != nil {
		return err
	}

	fmt.Println("Sounds:")
	for _, s := range cat.Sounds() {
		fmt.Printf("  %-12s  %s\n", s.ID, s.Label)
	}
	fmt.Println()
	fmt.Println("Mixes:")
	for _, m := range cat.Mixes() {
		fmt.Printf("  %-12s  %-16s  %v\n", m.ID, m.Name, m.SoundIDs)
	}
	return nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	cfg, watchPath, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	level, _ := parseLogLevel(cfg.Logging.Level)
	logger, levelVar := setupLogger(level)

	cat, err := LoadCatalogFile(cfg.Catalog.Path)
	if err != nil {
		logger.Error("failed to load catalog", "path", cfg.Catalog.Path, "error", err)
		return err
	}

	gw, err := store.NewFileStore(ExpandPath(cfg.State.Dir))
	if err != nil {
		logger.Error("failed to open state directory", "dir", cfg.State.Dir, "error", err)
		return err
	}
	state := RestoreState(gw, cat, logger)

	var engine playback.Engine
	switch cfg.Playback.Backend {
	case "memory":
		engine = playback.NewMemoryEngine()
	default:
		engine = playback.NewEbitenEngine(cfg.Playback.SampleRate, ExpandPath(cfg.Playback.AssetsDir), cat.AssetFor)
	}

	synchronizer := NewSynchronizer(gw, cfg.DebounceWindows(), logger)
	effects := newEffectRuntime(playback.NewChannels(engine), synchronizer, newNotifier(cfg.Notify, logger), logger)

	env := NewEnv(cat)
	env.TimerPresetLimit = cfg.Timer.PresetLimit

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	events := make(chan Event, 64)
	if ev, ok := recentLimitsEvent(cfg.Recents); ok {
		events <- ev
	}

	var broadcasts chan StateBroadcast
	if cfg.HTTP.Enabled {
		broadcasts = make(chan StateBroadcast, 128)
	}

	logger.Info("starting ambimix",
		"version", version,
		"backend", cfg.Playback.Backend,
		"sounds", len(cat.SoundIDs()),
		"mixes", len(cat.Mixes()),
		"state_dir", cfg.State.Dir,
		"ipc", cfg.IPC.SocketPath,
		"http", cfg.HTTP.Listen,
		"media_keys", cfg.Input.Enabled)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps := daemonDeps{Env: env, Effects: effects, Broadcasts: broadcasts}
		runDaemon(gctx, events, deps, state, logger)
		return nil
	})

	g.Go(func() error {
		return runIPCServer(gctx, cfg.IPC.SocketPath, events, logger)
	})

	if cfg.HTTP.Enabled {
		hub := NewHub(logger, HubConfig{})
		api := NewAPIServer(logger, events, hub)
		g.Go(func() error {
			hub.Run(gctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(gctx, hub, broadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(gctx, cfg.HTTP.Listen, api.Handler(), logger)
		})
	}

	if cfg.Input.Enabled {
		g.Go(func() error {
			// Media keys are optional; losing them never stops the mixer.
			if err := runMediaKeys(gctx, cfg.Input, events, logger); err != nil {
				logger.Warn("media keys disabled", "error", err)
			}
			return nil
		})
	}

	if watchPath != "" {
		g.Go(func() error {
			err := watchConfig(gctx, watchPath, logger, func(next Config) {
				applyOverridesOnReload(&next)
				reloadLevel, _ := parseLogLevel(next.Logging.Level)
				levelVar.Set(reloadLevel.slogLevel())
				if ev, ok := recentLimitsEvent(next.Recents); ok {
					select {
					case events <- ev:
					case <-gctx.Done():
					}
				}
			})
			if err != nil {
				logger.Warn("config hot reload disabled", "error", err)
			}
			return nil
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("ambimix stopped with error", "error", err)
		return err
	}
	logger.Info("ambimix stopped")
	return nil
}

// applyOverridesOnReload keeps command-line flags authoritative after a reload.
func applyOverridesOnReload(cfg *Config) {
	overrides.Apply(cfg)
}

func recentLimitsEvent(rc RecentsConfig) (Event, bool) {
	if rc.Sounds == 0 && rc.Mixes == 0 {
		return nil, false
	}
	return SetRecentLimits{Sounds: rc.Sounds, Mixes: rc.Mixes}, true
}
