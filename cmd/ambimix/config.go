package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level YAML configuration for the ambimix daemon.
//
// Layering: DefaultConfig, then the YAML file, then flag overrides, then
// Validate. The rest of the code can assume a well-formed config.
type Config struct {
	// Sound and mix catalog
	Catalog CatalogConfig `yaml:"catalog"`

	// Where persisted mixer state lives
	State StateConfig `yaml:"state"`

	// Audio backend
	Playback PlaybackConfig `yaml:"playback"`

	// MRU list sizes
	Recents RecentsConfig `yaml:"recents"`

	// Persistence debounce windows
	Persistence PersistenceConfig `yaml:"persistence"`

	// Sleep timer
	Timer TimerConfig `yaml:"timer"`

	// IPC configuration (ambimixctl, scripts)
	IPC IPCConfig `yaml:"ipc"`

	// HTTP API and state websocket
	HTTP HTTPConfig `yaml:"http"`

	// Media keys
	Input InputConfig `yaml:"input"`

	// Timer notifications
	Notify NotifyConfig `yaml:"notify"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type CatalogConfig struct {
	// Path to a catalog YAML file. Empty uses the built-in catalog.
	Path string `yaml:"path,omitempty"`
}

type StateConfig struct {
	Dir string `yaml:"dir"`
}

type PlaybackConfig struct {
	Backend    string `yaml:"backend"` // "ebiten" or "memory"
	AssetsDir  string `yaml:"assets_dir"`
	SampleRate int    `yaml:"sample_rate"`
}

// RecentsConfig overrides the persisted MRU limits at startup and on reload.
// Zero keeps the persisted value.
type RecentsConfig struct {
	Sounds int `yaml:"sounds,omitempty"`
	Mixes  int `yaml:"mixes,omitempty"`
}

type PersistenceConfig struct {
	MapDebounceMS  int `yaml:"map_debounce_ms"`
	ListDebounceMS int `yaml:"list_debounce_ms"`
}

type TimerConfig struct {
	PresetLimit int `yaml:"preset_limit"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
}

type InputConfig struct {
	Enabled bool     `yaml:"enabled"`
	Devices []string `yaml:"devices,omitempty"`
	// SleepKeySeconds arms a sleep timer on KEY_SLEEP. Zero disables the key.
	SleepKeySeconds int `yaml:"sleep_key_seconds,omitempty"`
}

type NotifyConfig struct {
	Mode    string   `yaml:"mode"` // "auto", "command" or "log"
	Command []string `yaml:"command,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// Keep this aligned with constants.go.
func DefaultConfig() Config {
	return Config{
		State: StateConfig{
			Dir: defaultStateDir(),
		},
		Playback: PlaybackConfig{
			Backend:    "ebiten",
			AssetsDir:  "~/.local/share/ambimix/sounds",
			SampleRate: 44100,
		},
		Persistence: PersistenceConfig{
			MapDebounceMS:  int(defaultMapDebounce / time.Millisecond),
			ListDebounceMS: int(defaultListDebounce / time.Millisecond),
		},
		Timer: TimerConfig{
			PresetLimit: defaultTimerPresetLimit,
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		HTTP: HTTPConfig{
			Enabled: true,
			Listen:  fmt.Sprintf("127.0.0.1:%d", defaultHTTPPort),
		},
		Input: InputConfig{
			Enabled: false,
		},
		Notify: NotifyConfig{
			Mode: "auto",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func defaultStateDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "ambimix")
	}
	return "~/.ambimix"
}

// LoadConfigFile reads and parses a YAML config file on top of DefaultConfig.
// Unknown fields are rejected to catch typos.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds flag values that take precedence over the file. A nil
// pointer means the flag was not set.
type FlagOverrides struct {
	CatalogPath *string
	StateDir    *string

	PlaybackBackend *string
	AssetsDir       *string

	IPCSocketPath *string

	HTTPEnabled *bool
	HTTPListen  *string

	InputEnabled *bool
	InputDevices *[]string

	NotifyMode *string

	LogLevel *string
}

// Apply merges the overrides into cfg. Non-nil pointers are applied even when
// they hold a zero value.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.CatalogPath != nil {
		cfg.Catalog.Path = *o.CatalogPath
	}
	if o.StateDir != nil {
		cfg.State.Dir = *o.StateDir
	}

	if o.PlaybackBackend != nil {
		cfg.Playback.Backend = *o.PlaybackBackend
	}
	if o.AssetsDir != nil {
		cfg.Playback.AssetsDir = *o.AssetsDir
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}

	if o.HTTPEnabled != nil {
		cfg.HTTP.Enabled = *o.HTTPEnabled
	}
	if o.HTTPListen != nil {
		cfg.HTTP.Listen = *o.HTTPListen
	}

	if o.InputEnabled != nil {
		cfg.Input.Enabled = *o.InputEnabled
	}
	if o.InputDevices != nil {
		cfg.Input.Devices = append([]string(nil), (*o.InputDevices)...)
	}

	if o.NotifyMode != nil {
		cfg.Notify.Mode = *o.NotifyMode
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
}

// Validate checks config invariants and returns a user-friendly error.
func (c *Config) Validate() error {
	if c.State.Dir == "" {
		return errors.New("state.dir must not be empty")
	}

	switch c.Playback.Backend {
	case "ebiten", "memory":
	default:
		return fmt.Errorf("playback.backend must be %q or %q", "ebiten", "memory")
	}
	if c.Playback.SampleRate < 0 {
		return errors.New("playback.sample_rate must be >= 0")
	}

	if err := validateRecentLimit("recents.sounds", c.Recents.Sounds); err != nil {
		return err
	}
	if err := validateRecentLimit("recents.mixes", c.Recents.Mixes); err != nil {
		return err
	}

	if c.Persistence.MapDebounceMS < 0 {
		return errors.New("persistence.map_debounce_ms must be >= 0")
	}
	if c.Persistence.ListDebounceMS < 0 {
		return errors.New("persistence.list_debounce_ms must be >= 0")
	}

	if c.Timer.PresetLimit <= 0 {
		return errors.New("timer.preset_limit must be > 0")
	}

	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	if c.HTTP.Enabled && c.HTTP.Listen == "" {
		return errors.New("http.enabled is true but http.listen is empty")
	}

	if c.Input.Enabled {
		if len(c.Input.Devices) == 0 {
			return errors.New("input.enabled is true but input.devices is empty")
		}
		for i, dev := range c.Input.Devices {
			if dev == "" {
				return fmt.Errorf("input.devices[%d] is empty", i)
			}
		}
	}
	if c.Input.SleepKeySeconds < 0 || c.Input.SleepKeySeconds > maxTimerSeconds {
		return fmt.Errorf("input.sleep_key_seconds must be between 0 and %d", maxTimerSeconds)
	}

	switch c.Notify.Mode {
	case "auto", "log":
	case "command":
		if len(c.Notify.Command) == 0 {
			return errors.New("notify.mode is \"command\" but notify.command is empty")
		}
	default:
		return fmt.Errorf("notify.mode must be one of: auto, command, log")
	}

	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

func validateRecentLimit(field string, v int) error {
	if v == 0 {
		return nil
	}
	if v < minRecentLimit || v > maxRecentLimit {
		return fmt.Errorf("%s must be between %d and %d (or 0 to keep the stored value)", field, minRecentLimit, maxRecentLimit)
	}
	return nil
}

// DebounceWindows converts the persistence section into per-bucket windows.
func (c *Config) DebounceWindows() DebounceWindows {
	return NewDebounceWindows(
		time.Duration(c.Persistence.MapDebounceMS)*time.Millisecond,
		time.Duration(c.Persistence.ListDebounceMS)*time.Millisecond,
	)
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
