package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adrg/xdg"

	"desk-updater/internal/arch"
	"desk-updater/internal/bridge"
	"desk-updater/internal/checkpoint"
	"desk-updater/internal/core"
	"desk-updater/internal/notify"
	"desk-updater/internal/release"
	"desk-updater/internal/updater"
)

// Build info, injected via ldflags at compile time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

const appName = "desk-updater"

func main() {
	configPath := flag.String("config", "", "Path to configuration file (default: XDG config dir)")
	checkNow := flag.Bool("check-now", false, "Run one foreground update check, report the outcome, and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (commit=%s, built=%s)\n", appName, version, commit, buildDate)
		os.Exit(0)
	}

	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	core.Log.Infof("Core", "%s %s starting...", appName, version)

	resolvedConfigPath := *configPath
	if resolvedConfigPath == "" {
		p, err := xdg.ConfigFile(appName + "/config.yaml")
		if err != nil {
			core.Log.Fatalf("Core", "Failed to resolve config path: %v", err)
		}
		resolvedConfigPath = p
	}

	cfgManager := core.NewConfigManager(resolvedConfigPath)
	if err := cfgManager.Load(); err != nil {
		core.Log.Fatalf("Core", "Failed to load config: %v", err)
	}
	cfg := cfgManager.Get()
	core.Log.Reconfigure(cfg.Logging)

	if err := cfg.Validate(); err != nil {
		core.Log.Fatalf("Core", "Invalid config %s: %v", resolvedConfigPath, err)
	}

	statePath := cfg.Updates.CheckpointPath
	if statePath == "" {
		p, err := xdg.StateFile(appName + "/state.yaml")
		if err != nil {
			core.Log.Fatalf("Core", "Failed to resolve state path: %v", err)
		}
		statePath = p
	}
	store, err := checkpoint.OpenFileStore(statePath)
	if err != nil {
		core.Log.Fatalf("Core", "Failed to open checkpoint store: %v", err)
	}

	platform, err := updater.ParsePlatform(cfg.Updates.Platform)
	if err != nil {
		core.Log.Warnf("Core", "%v, using detected platform %s", err, platform)
	}

	b := bridge.NewReleaseBridge(version, appName, nil)

	var summarizer release.Summarizer = b
	if cfg.Feed.ChangelogURL != "" {
		summarizer = release.NewChangelogSummarizer(cfg.Feed.ChangelogURL, nil, b.PendingVersion)
	}

	coord := updater.New(updater.Config{
		FeedURL:              cfg.Feed.URL,
		AllowCrossArchUpdate: cfg.Updates.AllowCrossArch,
		Platform:             platform,
	}, b, store, arch.SystemDetector{}, summarizer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	notifier := notify.NewManager("Desk", cfg.NotificationsEnabled())
	coord.OnStateChange(func(st updater.State) {
		core.Log.Infof("Core", "Update state: %s", st.Status)
		if st.Status == updater.StatusReady && st.NewRelease != nil {
			notifier.NotifyUpdateReady(st.NewRelease.Version)
		}
	})
	coord.OnError(func(ue updater.UpdateError) {
		if !ue.Background {
			notifier.NotifyUpdateError(ue.Err.Error())
		}
	})
	b.OnWillQuit(func() {
		core.Log.Infof("Core", "Quitting for update install")
	})

	coord.Start(ctx)

	if *checkNow {
		os.Exit(runForegroundCheck(ctx, coord))
	}

	scheduler := updater.NewScheduler(coord, cfg.InitialDelayDuration(), cfg.CheckIntervalDuration())
	go scheduler.Run(ctx)
	core.Log.Infof("Core", "Background update checks every %s", cfg.CheckIntervalDuration())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	core.Log.Infof("Core", "Received %s, shutting down", sig)
}

// runForegroundCheck dispatches one interactive check and blocks until it
// reaches a definitive outcome. Returns the process exit code.
func runForegroundCheck(ctx context.Context, coord *updater.Coordinator) int {
	outcome := make(chan int, 1)

	report := func(code int) {
		// Non-blocking: only the first outcome counts, and a blocked send
		// here would stall the coordinator's run loop.
		select {
		case outcome <- code:
		default:
		}
	}

	unsubState := coord.OnStateChange(func(st updater.State) {
		switch st.Status {
		case updater.StatusReady:
			fmt.Printf("Update %s downloaded; restart to install\n", st.NewRelease.Version)
			report(0)
		case updater.StatusNotAvailable:
			fmt.Println("Already up to date")
			report(0)
		}
	})
	defer unsubState()

	unsubErr := coord.OnError(func(ue updater.UpdateError) {
		fmt.Fprintf(os.Stderr, "Update check failed: %v\n", ue.Err)
		report(1)
	})
	defer unsubErr()

	coord.CheckForUpdates(ctx, false)

	select {
	case code := <-outcome:
		return code
	case <-time.After(20 * time.Minute):
		fmt.Fprintln(os.Stderr, "Update check timed out")
		return 1
	}
}
