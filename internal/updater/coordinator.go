package updater

import (
	"context"
	"sync"
	"time"

	"desk-updater/internal/arch"
	"desk-updater/internal/bridge"
	"desk-updater/internal/checkpoint"
	"desk-updater/internal/core"
	"desk-updater/internal/release"
)

// checkpointKey is where the last definitive check timestamp lives in the
// checkpoint store, as unix milliseconds.
const checkpointKey = "last-successful-update-check"

// Config carries the coordinator's inputs.
type Config struct {
	// FeedURL is the base release feed endpoint.
	FeedURL string
	// AllowCrossArchUpdate enables rewriting the feed URL to the
	// native-architecture build when the process runs emulated.
	AllowCrossArchUpdate bool
	// Platform selects platform-specific behavior: on Windows a re-check
	// while an update is pending install is refused, and raw updater errors
	// go through the structured-error parser.
	Platform Platform
}

type eventKind int

const (
	evChecking eventKind = iota
	evAvailable
	evNotAvailable
	evDownloaded
	evSummaryReady
	evError
)

type event struct {
	kind    eventKind
	err     error
	summary release.Summary
}

// Coordinator owns the update state machine. All bridge lifecycle callbacks
// are funneled onto a single channel consumed by one run-loop goroutine, so
// state transitions are serialized without handler-side locking.
//
// Construct one per process and share it; Start must be called before any
// check is dispatched.
type Coordinator struct {
	cfg        Config
	bridge     bridge.Updater
	store      checkpoint.Store
	detector   arch.Detector
	summarizer release.Summarizer

	events chan event

	mu            sync.RWMutex
	state         State
	userInitiated bool
	started       bool

	stateStream stream[State]
	errorStream stream[UpdateError]

	// now is replaced in tests.
	now func() time.Time
}

// New creates a coordinator, restores the persisted last-check timestamp, and
// subscribes to the bridge's lifecycle callbacks.
func New(cfg Config, b bridge.Updater, store checkpoint.Store, detector arch.Detector, summarizer release.Summarizer) *Coordinator {
	c := &Coordinator{
		cfg:        cfg,
		bridge:     b,
		store:      store,
		detector:   detector,
		summarizer: summarizer,
		events:     make(chan event, 32),
		// Before any check runs, errors count as interactive.
		userInitiated: true,
		now:           time.Now,
	}

	if ms := store.Get(checkpointKey, 0); ms > 0 {
		c.state.LastSuccessfulCheck = time.UnixMilli(ms)
	}

	b.OnCheckingForUpdate(func() { c.events <- event{kind: evChecking} })
	b.OnUpdateAvailable(func() { c.events <- event{kind: evAvailable} })
	b.OnUpdateNotAvailable(func() { c.events <- event{kind: evNotAvailable} })
	b.OnUpdateDownloaded(func() { c.events <- event{kind: evDownloaded} })
	b.OnError(func(err error) { c.events <- event{kind: evError, err: err} })

	return c
}

// Start launches the run loop. It returns immediately; the loop exits when
// ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		core.Log.Errorf("Updater", "Coordinator already started")
		return
	}
	c.started = true
	c.mu.Unlock()

	go c.run(ctx)
}

func (c *Coordinator) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-c.events:
			c.apply(ctx, ev)
		}
	}
}

// apply is the single serialized state-transition function.
func (c *Coordinator) apply(ctx context.Context, ev event) {
	switch ev.kind {
	case evChecking:
		c.setStatus(StatusChecking)
		c.publishState()

	case evAvailable:
		c.touchCheckpoint()
		c.setStatus(StatusAvailable)
		c.publishState()

	case evNotAvailable:
		c.touchCheckpoint()
		c.setStatus(StatusNotAvailable)
		c.publishState()

	case evDownloaded:
		// Status flips to ready only once the summary resolves; subscribers
		// see the previous state until then.
		go c.resolveSummary(ctx)

	case evSummaryReady:
		summary := ev.summary
		c.mu.Lock()
		c.state.Status = StatusReady
		c.state.NewRelease = &summary
		c.mu.Unlock()
		core.Log.Infof("Updater", "Update %s downloaded and ready to install", summary.Version)
		c.publishState()

	case evError:
		c.setStatus(StatusNotAvailable)
		c.emitError(ev.err)
	}
}

func (c *Coordinator) resolveSummary(ctx context.Context) {
	summary, err := c.summarizer.Summarize(ctx)
	if err != nil {
		core.Log.Warnf("Updater", "Release summary unavailable: %v", err)
		summary = release.Summary{}
	}

	select {
	case c.events <- event{kind: evSummaryReady, summary: summary}:
	case <-ctx.Done():
	}
}

// CheckForUpdates initiates one check cycle against the release feed.
// inBackground tags every error from this cycle as non-interactive. The
// eventual outcome arrives through the bridge callbacks; a synchronous
// dispatch failure is routed through the same error channel.
func (c *Coordinator) CheckForUpdates(ctx context.Context, inBackground bool) {
	// Re-checking once an update is downloaded would make the Windows
	// updater restart the app mid-install.
	if c.cfg.Platform == PlatformWindows && c.Status() == StatusReady {
		core.Log.Debugf("Updater", "Update already downloaded, skipping check")
		return
	}

	c.mu.Lock()
	c.userInitiated = !inBackground
	c.mu.Unlock()

	url := c.effectiveFeedURL(ctx)
	core.Log.Debugf("Updater", "Dispatching update check against %s", url)

	if err := c.bridge.CheckForUpdates(url); err != nil {
		select {
		case c.events <- event{kind: evError, err: err}:
		case <-ctx.Done():
		}
	}
}

// effectiveFeedURL applies the cross-architecture rewrite when permitted and
// the process is detected as emulated by either probe.
func (c *Coordinator) effectiveFeedURL(ctx context.Context) string {
	if !c.cfg.AllowCrossArchUpdate {
		return c.cfg.FeedURL
	}
	if !c.emulationDetected(ctx) {
		return c.cfg.FeedURL
	}
	rewritten := rewriteFeedURL(c.cfg.FeedURL)
	if rewritten != c.cfg.FeedURL {
		core.Log.Infof("Updater", "Emulated process, retargeting feed at native build")
	}
	return rewritten
}

func (c *Coordinator) emulationDetected(ctx context.Context) bool {
	translated, err := c.detector.TranslatedProcess(ctx)
	if err != nil {
		core.Log.Warnf("Updater", "Translation-layer probe failed: %v", err)
	} else if translated {
		return true
	}
	return c.detector.Emulated()
}

// QuitAndInstall applies the downloaded update. Teardown listeners are
// notified synchronously first; only after every listener returns does the
// install begin, otherwise they might never run.
func (c *Coordinator) QuitAndInstall() {
	core.Log.Infof("Updater", "Quitting to install update")
	c.bridge.SendWillQuitSync()
	c.bridge.QuitAndInstallUpdate()
}

// State returns the current snapshot.
func (c *Coordinator) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// Status returns the current status.
func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state.Status
}

// OnStateChange subscribes to state transitions. The handler receives the
// full snapshot on every transition. The returned function unsubscribes.
func (c *Coordinator) OnStateChange(fn func(State)) func() {
	return c.stateStream.subscribe(fn)
}

// OnError subscribes to classified check errors. The returned function
// unsubscribes.
func (c *Coordinator) OnError(fn func(UpdateError)) func() {
	return c.errorStream.subscribe(fn)
}

func (c *Coordinator) setStatus(s Status) {
	c.mu.Lock()
	c.state.Status = s
	c.mu.Unlock()
}

func (c *Coordinator) publishState() {
	c.stateStream.publish(c.State())
}

// touchCheckpoint records a definitive check outcome. The timestamp never
// moves backwards and is persisted immediately so a restart recovers it.
func (c *Coordinator) touchCheckpoint() {
	now := c.now()

	c.mu.Lock()
	if now.Before(c.state.LastSuccessfulCheck) {
		now = c.state.LastSuccessfulCheck
	}
	c.state.LastSuccessfulCheck = now
	c.mu.Unlock()

	if err := c.store.Set(checkpointKey, now.UnixMilli()); err != nil {
		core.Log.Warnf("Updater", "Failed to persist last check timestamp: %v", err)
	}
}

// emitError classifies err and publishes it tagged with whether the check
// that produced it ran in the background.
func (c *Coordinator) emitError(err error) {
	if c.cfg.Platform == PlatformWindows {
		err = parseRawUpdaterError(err)
	}

	c.mu.RLock()
	background := !c.userInitiated
	c.mu.RUnlock()

	if background {
		core.Log.Debugf("Updater", "Background check failed: %v", err)
	} else {
		core.Log.Errorf("Updater", "Update check failed: %v", err)
	}

	c.errorStream.publish(UpdateError{Err: err, Background: background})
}
