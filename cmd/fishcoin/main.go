// Package main implements the fishcoin daemon, which watches system idle
// and lock state during working hours and accrues earned salary in real
// time, persisting the running total and per-day history to the user's
// data directory.
//
// Invoked with no arguments it runs the daemon. Invoked with a command
// argument (status, pause, resume, toggle, reset, trend, logs, exit) it
// acts as a control client against the running daemon.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	rootpkg "tools.zach/dev/fishcoin"
	"tools.zach/dev/fishcoin/internal/control"
	"tools.zach/dev/fishcoin/internal/engine"
	"tools.zach/dev/fishcoin/internal/lockfile"
	"tools.zach/dev/fishcoin/internal/logger"
	"tools.zach/dev/fishcoin/internal/paths"
	"tools.zach/dev/fishcoin/internal/probe"
	"tools.zach/dev/fishcoin/internal/report"
	"tools.zach/dev/fishcoin/internal/settings"
	"tools.zach/dev/fishcoin/internal/store"
	"tools.zach/dev/fishcoin/internal/update"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags:
//
//	-X main.version=0.1.0
//
// When ldflags are not set (bare go build), resolveVersion reads the VCS info
// that Go embeds automatically, so dev builds get a useful version string
// without needing git at runtime.
var version = "dev"

// resolveVersion returns the build version string. If [version] was set via
// ldflags at build time it is returned as-is; otherwise VCS revision and dirty
// state embedded by the Go toolchain are used to construct a "dev+<hash>" tag.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

// defaultBossKey is the virtual-key code of the hide/show hotkey (F9).
const defaultBossKey = 0x78

func main() {
	dataDir := flag.String("data-dir", paths.DefaultRoot(), "Data directory for settings, state, and logs")
	showVersion := flag.Bool("version", false, "Print the version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(resolveVersion())
		return
	}

	dir := paths.DataDir{Root: *dataDir}

	if flag.NArg() > 0 {
		os.Exit(runClient(dir, flag.Args()))
	}

	if err := os.MkdirAll(dir.Root, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: create data dir: %v\n", err)
		os.Exit(1)
	}

	cfg, err := settings.Load(dir, rootpkg.DefaultSettingsTOML)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: load settings: %v\n", err)
		os.Exit(1)
	}

	logLevel := logger.ParseLevel(cfg.Log.Level)
	log, logCloser, err := logger.NewLogger(dir.Log(), logLevel, cfg.Log.MaxSizeMB)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fatal: init logger: %v\n", err)
		os.Exit(1)
	}
	defer logCloser.Close()
	slog.SetDefault(log)

	ver := resolveVersion()
	slog.Info("fishcoin starting", "version", ver, "data_dir", dir.Root)

	prb := probe.New(defaultBossKey)

	lock, err := lockfile.Acquire(dir.Lock(), prb.ProcessAlive)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		slog.Error("failed to acquire instance lock", "error", err)
		os.Exit(1)
	}
	defer lock.Release()

	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("update check panic", "error", r)
			}
		}()
		update.Check(ver)
	}()

	st := store.New(dir, cfg.Daemon.HistoryRetentionDays)
	state := st.Load()
	slog.Info("accrual state loaded",
		"date", state.Date,
		"money", fmt.Sprintf("%.4f", state.Money),
		"history_days", len(state.History))

	ctl, err := control.Listen(control.Endpoint(dir.Root))
	if err != nil {
		slog.Error("failed to open control endpoint", "error", err)
		os.Exit(1)
	}
	defer ctl.Close()

	watcher, err := settings.NewWatcher(dir.Settings())
	if err != nil {
		slog.Error("failed to watch settings file", "error", err)
		os.Exit(1)
	}
	defer watcher.Close()
	if watcher.Polling() {
		slog.Info("using polling mode for settings watching")
	}

	run(cfg, st, state, prb, ctl, watcher, dir)
	slog.Info("fishcoin stopped")
}

// ///////////////////////////////////////////////
// Event Loop
// ///////////////////////////////////////////////

// loopState holds mutable state carried across iterations of the tick loop.
type loopState struct {
	// prevHotkey is the boss-key level from the previous tick, for edge
	// detection. Visibility toggles on the down edge only.
	prevHotkey bool

	// lastIntent is the most recent display intent, served by the status
	// command.
	lastIntent engine.DisplayIntent

	// lastHousekeep records when quarantine cleanup last ran, so the sweep
	// executes at most once every 10 minutes even though it is considered
	// on each tick.
	lastHousekeep time.Time
}

// quarantineMaxAge is how long quarantined corrupt-file backups are kept.
const quarantineMaxAge = 30 * 24 * time.Hour

// run is the tick loop. It drives the engine on the configured cadence and
// multiplexes settings-file changes, control commands, and OS signals onto
// the same goroutine, so the engine is never touched concurrently. The loop
// runs until a shutdown signal or an exit command arrives, then flushes any
// unsaved state before returning.
func run(
	cfg *settings.Settings,
	st *store.Store,
	state *store.AccrualState,
	prb probe.Probe,
	ctl *control.Server,
	watcher *settings.Watcher,
	dir paths.DataDir,
) {
	start := time.Now()
	mono := func() time.Duration { return time.Since(start) }

	policy := store.NewSavePolicy(cfg.SaveInterval())
	eng := engine.New(cfg, state, policy, mono())

	ticker := time.NewTicker(cfg.TickInterval())
	defer ticker.Stop()

	sigCh := signalChannel()

	var ls loopState

	for {
		select {
		case <-sigCh:
			slog.Info("received shutdown signal")
			finalFlush(st, state, policy)
			return

		case <-ticker.C:
			tick(eng, st, policy, prb, mono, &ls)

		case <-watcher.Events():
			if next := reloadSettings(dir); next != nil {
				eng.ApplySettings(next)
				st.SetRetention(next.Daemon.HistoryRetentionDays)
				ticker.Reset(next.TickInterval())
				cfg = next
				slog.Info("settings reloaded")
			}

		case msg := <-ctl.Messages():
			resp, exit := handleCommand(msg.Req, eng, st, policy, mono, dir, &ls)
			msg.Reply <- resp
			if exit {
				slog.Info("received exit command")
				finalFlush(st, state, policy)
				return
			}
		}
	}
}

// tick runs one engine tick: sample, boss-key edge detection, accrual, and
// the save policy check. Housekeeping piggybacks here, rate-limited.
func tick(
	eng *engine.Engine,
	st *store.Store,
	policy *store.SavePolicy,
	prb probe.Probe,
	mono func() time.Duration,
	ls *loopState,
) {
	sample := prb.Sample()

	if sample.HotkeyDown && !ls.prevHotkey {
		visible := eng.ToggleVisible()
		slog.Debug("visibility toggled", "visible", visible)
	}
	ls.prevHotkey = sample.HotkeyDown

	di, added := eng.Tick(time.Now(), mono(), sample)
	ls.lastIntent = di
	if added != 0 {
		logger.Trace(slog.Default(), "accrued",
			"added", fmt.Sprintf("%.6f", added),
			"total", fmt.Sprintf("%.4f", eng.State().Money))
	}

	if policy.ShouldSave(mono()) {
		if err := st.Save(eng.State()); err != nil {
			slog.Warn("periodic save failed", "error", err)
		} else {
			policy.Saved(mono())
		}
	}

	if time.Since(ls.lastHousekeep) >= 10*time.Minute {
		ls.lastHousekeep = time.Now()
		st.CleanupQuarantine(quarantineMaxAge)
	}
}

// reloadSettings re-reads and validates the settings file after a change
// notification. A bad file is logged and ignored; the daemon keeps running
// on the previous snapshot.
func reloadSettings(dir paths.DataDir) *settings.Settings {
	data, err := os.ReadFile(dir.Settings())
	if err != nil {
		slog.Warn("settings file unreadable after change", "error", err)
		return nil
	}
	next, err := settings.Parse(data)
	if err != nil {
		slog.Warn("ignoring invalid settings change", "error", err)
		return nil
	}
	return next
}

// finalFlush writes any unsaved state before the process exits. A failure
// here is the one save error the user must see.
func finalFlush(st *store.Store, state *store.AccrualState, policy *store.SavePolicy) {
	if !policy.Pending() {
		return
	}
	if err := st.Save(state); err != nil {
		slog.Error("final save failed", "error", err)
		fmt.Fprintf(os.Stderr, "warning: final save failed: %v\n", err)
		return
	}
	slog.Info("final state saved", "money", fmt.Sprintf("%.4f", state.Money))
}

// ///////////////////////////////////////////////
// Control Commands
// ///////////////////////////////////////////////

// defaultLogLines bounds the logs command when the client does not ask for
// a specific count.
const defaultLogLines = 50

// handleCommand executes one control request on the tick goroutine. The
// second return value requests daemon shutdown.
func handleCommand(
	req control.Request,
	eng *engine.Engine,
	st *store.Store,
	policy *store.SavePolicy,
	mono func() time.Duration,
	dir paths.DataDir,
	ls *loopState,
) (control.Response, bool) {
	switch req.Command {
	case "status":
		state := eng.State()
		out := fmt.Sprintf("date: %s\nmoney: %.4f\nstatus: %s\nlock: %s\npaused: %v\nvisible: %v\n",
			state.Date, state.Money, ls.lastIntent.Status, ls.lastIntent.Lock, eng.Paused(), eng.Visible())
		return control.Response{OK: true, Output: out}, false

	case "pause":
		eng.Pause()
		return control.Response{OK: true, Output: "paused"}, false

	case "resume":
		eng.Resume()
		return control.Response{OK: true, Output: "resumed"}, false

	case "toggle":
		if eng.TogglePause() {
			return control.Response{OK: true, Output: "paused"}, false
		}
		return control.Response{OK: true, Output: "resumed"}, false

	case "reset":
		eng.ResetToday()
		if err := st.Save(eng.State()); err != nil {
			return control.Response{Error: fmt.Sprintf("reset saved in memory, write failed: %v", err)}, false
		}
		policy.Saved(mono())
		return control.Response{OK: true, Output: "today reset to 0"}, false

	case "trend":
		t := report.BuildTrend(eng.State(), time.Now(), 7)
		return control.Response{OK: true, Output: t.Render()}, false

	case "logs":
		n := req.Lines
		if n <= 0 {
			n = defaultLogLines
		}
		out, err := logger.ReadTail(dir.Log(), n)
		if err != nil {
			return control.Response{Error: fmt.Sprintf("read log: %v", err)}, false
		}
		return control.Response{OK: true, Output: out}, false

	case "exit":
		return control.Response{OK: true, Output: "shutting down"}, true

	default:
		return control.Response{Error: fmt.Sprintf("unknown command %q", req.Command)}, false
	}
}

// ///////////////////////////////////////////////
// Client Mode
// ///////////////////////////////////////////////

// runClient sends one command to the running daemon and prints the reply.
// Returns the process exit code.
func runClient(dir paths.DataDir, args []string) int {
	req := control.Request{Command: args[0]}
	if req.Command == "logs" && len(args) > 1 {
		fmt.Sscanf(args[1], "%d", &req.Lines)
	}
	resp, err := control.Send(control.Endpoint(dir.Root), req, 5*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "cannot reach daemon: %v\n", err)
		return 1
	}
	if resp.Error != "" {
		fmt.Fprintln(os.Stderr, resp.Error)
		return 1
	}
	fmt.Print(resp.Output)
	if resp.Output != "" && resp.Output[len(resp.Output)-1] != '\n' {
		fmt.Println()
	}
	return 0
}
