package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// ============================================================================
// ambimixctl - command-line client for the ambimix daemon
// ============================================================================
// Mixer commands go over the IPC socket; state, export, import, timer
// presets and watch use the HTTP API.
//
// Examples:
//   ambimixctl toggle rain
//   ambimixctl volume rain 0.3
//   ambimixctl apply cozy-cabin
//   ambimixctl timer start 45m --name "Nap"
//   ambimixctl export -o backup.json
//   ambimixctl watch
// ============================================================================

var (
	socketPath string
	httpAddr   string
)

var rootCmd = &cobra.Command{
	Use:           "ambimixctl",
	Short:         "Control the ambimix daemon",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", "/tmp/ambimix.sock", "Unix domain socket path")
	rootCmd.PersistentFlags().StringVar(&httpAddr, "addr", "127.0.0.1:3017", "HTTP API address")

	// Simple one-shot events.
	rootCmd.AddCommand(
		eventCmd("select <sound>", "Select a sound", 1, "select_sound", idData),
		eventCmd("unselect <sound>", "Unselect a sound", 1, "unselect_sound", idData),
		eventCmd("toggle <sound>", "Select or unselect a sound", 1, "toggle_sound", idData),
		eventCmd("stop", "Unselect all sounds", 0, "unselect_all", nil),
		eventCmd("mute", "Toggle master mute", 0, "toggle_mute", nil),
		eventCmd("shuffle", "Pick a random set of sounds", 0, "shuffle", nil),
		eventCmd("play-pause", "Pause or resume playback", 0, "toggle_playback", nil),
		eventCmd("play", "Resume playback", 0, "set_playback", playingData(true)),
		eventCmd("pause", "Pause playback", 0, "set_playback", playingData(false)),
		eventCmd("next", "Apply a random built-in mix", 0, "play_next_random_mix", nil),
		eventCmd("delete-preset <id>", "Delete a user preset", 1, "delete_user_preset", idData),
		eventCmd("fav <sound>", "Toggle a favorite sound", 1, "toggle_favorite_sound", idData),
		eventCmd("fav-mix <id>", "Toggle a favorite mix", 1, "toggle_favorite_mix", idData),
		eventCmd("clear-recents", "Clear recent sounds and mixes", 0, "clear_recents", nil),
	)

	rootCmd.AddCommand(volumeCmd, masterCmd, applyCmd, saveCmd, moveCmd, recentLimitsCmd)
	rootCmd.AddCommand(timerCmd, stateCmd, exportCmd, importCmd, watchCmd)

	applyCmd.Flags().Bool("no-play", false, "Select the mix without starting playback")
	saveCmd.Flags().String("icon", "", "Preset icon")
	moveCmd.Flags().Bool("mixes", false, "Reorder favorite mixes instead of sounds")
	moveCmd.Flags().Int("count", 1, "Number of items to move")
	recentLimitsCmd.Flags().Int("sounds", 0, "Recent sounds limit (10-15)")
	recentLimitsCmd.Flags().Int("mixes", 0, "Recent mixes limit (10-15)")

	timerStartCmd.Flags().String("name", "", "Timer name")
	timerPresetsCmd.Flags().Int("limit", 0, "Number of presets (default: daemon setting)")
	timerCmd.AddCommand(timerStartCmd, timerCancelCmd, timerPresetsCmd)

	exportCmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func idData(args []string) any { return map[string]string{"id": args[0]} }

func playingData(playing bool) func([]string) any {
	return func([]string) any { return map[string]bool{"playing": playing} }
}

// eventCmd builds a command that sends one IPC event.
func eventCmd(use, short string, nargs int, typ string, data func([]string) any) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any
			if data != nil {
				payload = data(args)
			}
			return send(typ, payload)
		},
	}
}

func send(typ string, data any) error {
	if err := sendEvent(socketPath, typ, data); err != nil {
		return err
	}
	fmt.Println("ok")
	return nil
}

func parseVolume(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid volume %q: %w", s, err)
	}
	if v < 0 || v > 1 {
		return 0, fmt.Errorf("volume must be between 0 and 1, got %v", v)
	}
	return v, nil
}

var volumeCmd = &cobra.Command{
	Use:   "volume <sound> <0..1>",
	Short: "Set a sound's volume",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := parseVolume(args[1])
		if err != nil {
			return err
		}
		return send("set_sound_volume", map[string]any{"id": args[0], "volume": v})
	},
}

var masterCmd = &cobra.Command{
	Use:   "master <0..1|+delta|-delta>",
	Short: "Set or nudge the master volume",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		arg := args[0]
		if arg != "" && (arg[0] == '+' || arg[0] == '-') {
			d, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return fmt.Errorf("invalid delta %q: %w", arg, err)
			}
			return send("nudge_global_volume", map[string]any{"delta": d})
		}
		v, err := parseVolume(arg)
		if err != nil {
			return err
		}
		return send("set_global_volume", map[string]any{"volume": v})
	},
}

var applyCmd = &cobra.Command{
	Use:   "apply <mix-or-preset>",
	Short: "Apply a built-in mix or user preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		noPlay, _ := cmd.Flags().GetBool("no-play")
		data := map[string]any{"id": args[0]}
		if noPlay {
			data["start_playing"] = false
		}
		return send("apply_preset", data)
	},
}

var saveCmd = &cobra.Command{
	Use:   "save [name]",
	Short: "Save the current selection as a user preset",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		icon, _ := cmd.Flags().GetString("icon")
		data := map[string]any{}
		if len(args) == 1 {
			data["name"] = args[0]
		}
		if icon != "" {
			data["icon"] = icon
		}
		return send("save_user_preset", data)
	},
}

var moveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "Reorder favorites",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid from index: %w", err)
		}
		to, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid to index: %w", err)
		}
		count, _ := cmd.Flags().GetInt("count")
		mixes, _ := cmd.Flags().GetBool("mixes")

		typ := "reorder_favorite_sounds"
		if mixes {
			typ = "reorder_favorite_mixes"
		}
		return send(typ, map[string]int{"from": from, "count": count, "to": to})
	},
}

var recentLimitsCmd = &cobra.Command{
	Use:   "recent-limits",
	Short: "Change how many recent sounds and mixes are kept",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sounds, _ := cmd.Flags().GetInt("sounds")
		mixes, _ := cmd.Flags().GetInt("mixes")
		if sounds == 0 && mixes == 0 {
			return fmt.Errorf("set --sounds and/or --mixes")
		}
		return send("set_recent_limits", map[string]int{"sounds": sounds, "mixes": mixes})
	},
}

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Sleep timer commands",
}

var timerStartCmd = &cobra.Command{
	Use:   "start <duration>",
	Short: "Start a sleep timer (e.g. 30m, 1h30m, or seconds)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		seconds, err := parseTimerDuration(args[0])
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")
		data := map[string]any{"seconds": seconds}
		if name != "" {
			data["name"] = name
		}
		return send("start_timer", data)
	},
}

func parseTimerDuration(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("duration must be positive")
		}
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	if d < time.Second {
		return 0, fmt.Errorf("duration must be at least 1s")
	}
	return int(d / time.Second), nil
}

var timerCancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Cancel the running sleep timer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return send("cancel_timer", nil)
	},
}

var timerPresetsCmd = &cobra.Command{
	Use:   "presets",
	Short: "List suggested timer durations, most used first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		path := "/api/timer/presets"
		if limit > 0 {
			path += "?limit=" + strconv.Itoa(limit)
		}
		out, err := newAPIClient(httpAddr).get(path)
		if err != nil {
			return err
		}
		var presets []int
		if err := json.Unmarshal(out, &presets); err != nil {
			return fmt.Errorf("decode presets: %w", err)
		}
		for _, p := range presets {
			fmt.Println(time.Duration(p) * time.Second)
		}
		return nil
	},
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Print the current mixer state as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := newAPIClient(httpAddr).get("/api/state")
		if err != nil {
			return err
		}
		return printIndented(out)
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export user presets and favorites",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out, err := newAPIClient(httpAddr).get("/api/export")
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("output")
		if path == "" {
			return printIndented(out)
		}
		var buf bytes.Buffer
		if err := json.Indent(&buf, out, "", "  "); err != nil {
			return fmt.Errorf("format export: %w", err)
		}
		if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Printf("exported to %s\n", path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace user presets and favorites from an export file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read import file: %w", err)
		}
		if _, err := newAPIClient(httpAddr).post("/api/import", b); err != nil {
			return err
		}
		fmt.Println("ok")
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream state changes from the daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return newAPIClient(httpAddr).watch(os.Stdout)
	},
}

func printIndented(b []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, b, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err := os.Stdout.Write(buf.Bytes())
	return err
}
