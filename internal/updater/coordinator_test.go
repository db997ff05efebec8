package updater

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"desk-updater/internal/checkpoint"
	"desk-updater/internal/release"
)

// fakeBridge is a scripted bridge.Updater: tests fire lifecycle callbacks by
// hand and inspect what was dispatched.
type fakeBridge struct {
	mu           sync.Mutex
	checkURLs    []string
	dispatchErr  error
	checking     []func()
	available    []func()
	notAvailable []func()
	downloaded   []func()
	errs         []func(error)
	willQuit     []func()
	calls        []string // records willquit/install ordering
}

func (f *fakeBridge) CheckForUpdates(url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.dispatchErr != nil {
		return f.dispatchErr
	}
	f.checkURLs = append(f.checkURLs, url)
	return nil
}

func (f *fakeBridge) QuitAndInstallUpdate() {
	f.mu.Lock()
	f.calls = append(f.calls, "install")
	f.mu.Unlock()
}

func (f *fakeBridge) SendWillQuitSync() {
	f.mu.Lock()
	f.calls = append(f.calls, "willquit")
	fns := append([]func(){}, f.willQuit...)
	f.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (f *fakeBridge) OnCheckingForUpdate(fn func())  { f.checking = append(f.checking, fn) }
func (f *fakeBridge) OnUpdateAvailable(fn func())    { f.available = append(f.available, fn) }
func (f *fakeBridge) OnUpdateNotAvailable(fn func()) { f.notAvailable = append(f.notAvailable, fn) }
func (f *fakeBridge) OnUpdateDownloaded(fn func())   { f.downloaded = append(f.downloaded, fn) }
func (f *fakeBridge) OnError(fn func(error))         { f.errs = append(f.errs, fn) }
func (f *fakeBridge) OnWillQuit(fn func())           { f.willQuit = append(f.willQuit, fn) }

func (f *fakeBridge) fireChecking() {
	for _, fn := range f.checking {
		fn()
	}
}

func (f *fakeBridge) fireAvailable() {
	for _, fn := range f.available {
		fn()
	}
}

func (f *fakeBridge) fireNotAvailable() {
	for _, fn := range f.notAvailable {
		fn()
	}
}

func (f *fakeBridge) fireDownloaded() {
	for _, fn := range f.downloaded {
		fn()
	}
}

func (f *fakeBridge) fireError(err error) {
	for _, fn := range f.errs {
		fn(err)
	}
}

func (f *fakeBridge) dispatchedURLs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.checkURLs...)
}

type fakeDetector struct {
	translated    bool
	translatedErr error
	emulated      bool
}

func (d fakeDetector) TranslatedProcess(ctx context.Context) (bool, error) {
	return d.translated, d.translatedErr
}

func (d fakeDetector) Emulated() bool { return d.emulated }

type fakeSummarizer struct {
	summary release.Summary
	err     error
}

func (s fakeSummarizer) Summarize(ctx context.Context) (release.Summary, error) {
	return s.summary, s.err
}

const testFeedURL = "https://central.example.com/api/deployments/desktop/desktop/x64/latest"

type coordFixture struct {
	coord  *Coordinator
	bridge *fakeBridge
	store  *checkpoint.MemStore
	cancel context.CancelFunc
}

func newFixture(t *testing.T, cfg Config, detector fakeDetector, summarizer fakeSummarizer) *coordFixture {
	t.Helper()
	if cfg.FeedURL == "" {
		cfg.FeedURL = testFeedURL
	}

	fb := &fakeBridge{}
	store := checkpoint.NewMemStore()
	coord := New(cfg, fb, store, detector, summarizer)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	coord.Start(ctx)

	return &coordFixture{coord: coord, bridge: fb, store: store, cancel: cancel}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// TestStatusFollowsLastCallback verifies that status after any callback
// sequence equals what the transition table dictates for the last callback.
func TestStatusFollowsLastCallback(t *testing.T) {
	tests := []struct {
		name   string
		fire   func(*fakeBridge)
		expect Status
	}{
		{"checking", func(f *fakeBridge) { f.fireChecking() }, StatusChecking},
		{"available", func(f *fakeBridge) { f.fireChecking(); f.fireAvailable() }, StatusAvailable},
		{"not available", func(f *fakeBridge) { f.fireChecking(); f.fireNotAvailable() }, StatusNotAvailable},
		{"error after available", func(f *fakeBridge) {
			f.fireChecking()
			f.fireAvailable()
			f.fireError(errors.New("network gone"))
		}, StatusNotAvailable},
		{"error with no history", func(f *fakeBridge) { f.fireError(errors.New("boom")) }, StatusNotAvailable},
		{"downloaded", func(f *fakeBridge) {
			f.fireChecking()
			f.fireAvailable()
			f.fireDownloaded()
		}, StatusReady},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, Config{}, fakeDetector{}, fakeSummarizer{summary: release.Summary{Version: "2.0.0"}})
			tt.fire(fx.bridge)
			waitFor(t, "status "+tt.expect.String(), func() bool {
				return fx.coord.Status() == tt.expect
			})
		})
	}
}

// TestCheckingAfterReadyTransitions verifies a later check moves status away
// from ready while NewRelease stays populated.
func TestCheckingAfterReadyTransitions(t *testing.T) {
	fx := newFixture(t, Config{}, fakeDetector{}, fakeSummarizer{summary: release.Summary{Version: "2.0.0"}})

	fx.bridge.fireDownloaded()
	waitFor(t, "ready", func() bool { return fx.coord.Status() == StatusReady })

	fx.bridge.fireChecking()
	waitFor(t, "checking", func() bool { return fx.coord.Status() == StatusChecking })

	if st := fx.coord.State(); st.NewRelease == nil || st.NewRelease.Version != "2.0.0" {
		t.Errorf("NewRelease should persist after leaving ready, got %+v", st.NewRelease)
	}
}

// TestCheckpointOnlyOnDefinitiveOutcome verifies lastSuccessfulCheck changes
// on available/not-available callbacks only.
func TestCheckpointOnlyOnDefinitiveOutcome(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	fb := &fakeBridge{}
	store := checkpoint.NewMemStore()
	coord := New(Config{FeedURL: testFeedURL}, fb, store, fakeDetector{}, fakeSummarizer{})
	coord.now = func() time.Time { return base }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	coord.Start(ctx)

	fb.fireChecking()
	waitFor(t, "checking", func() bool { return coord.Status() == StatusChecking })
	if !coord.State().LastSuccessfulCheck.IsZero() {
		t.Fatal("checking callback must not touch the checkpoint")
	}

	fb.fireAvailable()
	waitFor(t, "checkpoint set", func() bool {
		return coord.State().LastSuccessfulCheck.Equal(base)
	})
	if got := store.Get("last-successful-update-check", 0); got != base.UnixMilli() {
		t.Errorf("persisted checkpoint = %d, want %d", got, base.UnixMilli())
	}

	fb.fireError(errors.New("flaky network"))
	waitFor(t, "not available after error", func() bool {
		return coord.Status() == StatusNotAvailable
	})
	if !coord.State().LastSuccessfulCheck.Equal(base) {
		t.Error("a failed check must not count as a successful check")
	}
}

// TestCheckpointNeverDecreases verifies a clock running behind the persisted
// timestamp cannot move the checkpoint backwards.
func TestCheckpointNeverDecreases(t *testing.T) {
	stored := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	fb := &fakeBridge{}
	store := checkpoint.NewMemStore()
	if err := store.Set("last-successful-update-check", stored.UnixMilli()); err != nil {
		t.Fatal(err)
	}

	coord := New(Config{FeedURL: testFeedURL}, fb, store, fakeDetector{}, fakeSummarizer{})
	coord.now = func() time.Time { return stored.Add(-time.Hour) }

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	coord.Start(ctx)

	fb.fireNotAvailable()
	waitFor(t, "not available", func() bool { return coord.Status() == StatusNotAvailable })

	if got := coord.State().LastSuccessfulCheck; got.Before(stored) {
		t.Errorf("checkpoint went backwards: %v < %v", got, stored)
	}
	if got := store.Get("last-successful-update-check", 0); got < stored.UnixMilli() {
		t.Errorf("persisted checkpoint went backwards: %d < %d", got, stored.UnixMilli())
	}
}

// TestCheckpointRestoredOnStartup verifies a coordinator built over a
// pre-populated store reports the stored timestamp before any check runs.
func TestCheckpointRestoredOnStartup(t *testing.T) {
	store := checkpoint.NewMemStore()
	stamp := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)
	if err := store.Set("last-successful-update-check", stamp.UnixMilli()); err != nil {
		t.Fatal(err)
	}

	coord := New(Config{FeedURL: testFeedURL}, &fakeBridge{}, store, fakeDetector{}, fakeSummarizer{})
	if got := coord.State().LastSuccessfulCheck; !got.Equal(stamp) {
		t.Errorf("restored checkpoint = %v, want %v", got, stamp)
	}
	if coord.Status() != StatusNotAvailable {
		t.Errorf("initial status = %v, want %v", coord.Status(), StatusNotAvailable)
	}
}

// TestCrossArchRewrite verifies the dispatched URL targets the arm64 build
// exactly when the feature flag is on and an emulation probe reports true.
func TestCrossArchRewrite(t *testing.T) {
	const rewritten = "https://central.example.com/api/deployments/desktop/desktop/arm64/latest"

	tests := []struct {
		name     string
		cfg      Config
		detector fakeDetector
		want     string
	}{
		{
			name:     "flag on, translated",
			cfg:      Config{AllowCrossArchUpdate: true},
			detector: fakeDetector{translated: true},
			want:     rewritten,
		},
		{
			name:     "flag on, generic emulation only",
			cfg:      Config{AllowCrossArchUpdate: true},
			detector: fakeDetector{emulated: true},
			want:     rewritten,
		},
		{
			name:     "flag on, probe error, second probe true",
			cfg:      Config{AllowCrossArchUpdate: true},
			detector: fakeDetector{translatedErr: errors.New("probe failed"), emulated: true},
			want:     rewritten,
		},
		{
			name:     "flag on, native process",
			cfg:      Config{AllowCrossArchUpdate: true},
			detector: fakeDetector{},
			want:     testFeedURL,
		},
		{
			name:     "flag off, emulated",
			cfg:      Config{},
			detector: fakeDetector{translated: true, emulated: true},
			want:     testFeedURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(t, tt.cfg, tt.detector, fakeSummarizer{})
			fx.coord.CheckForUpdates(context.Background(), false)

			urls := fx.bridge.dispatchedURLs()
			if len(urls) != 1 {
				t.Fatalf("dispatched %d checks, want 1", len(urls))
			}
			if urls[0] != tt.want {
				t.Errorf("dispatched URL = %q, want %q", urls[0], tt.want)
			}
		})
	}
}

// TestReadyGuardIsWindowsOnly verifies re-checking while an update is pending
// install is refused on Windows and permitted elsewhere.
func TestReadyGuardIsWindowsOnly(t *testing.T) {
	for _, tt := range []struct {
		platform       Platform
		wantDispatches int
	}{
		{PlatformWindows, 0},
		{PlatformDarwin, 1},
		{PlatformLinux, 1},
	} {
		t.Run(tt.platform.String(), func(t *testing.T) {
			fx := newFixture(t, Config{Platform: tt.platform}, fakeDetector{}, fakeSummarizer{summary: release.Summary{Version: "3.1.0"}})

			fx.bridge.fireDownloaded()
			waitFor(t, "ready", func() bool { return fx.coord.Status() == StatusReady })

			fx.coord.CheckForUpdates(context.Background(), false)
			time.Sleep(20 * time.Millisecond)

			if got := len(fx.bridge.dispatchedURLs()); got != tt.wantDispatches {
				t.Errorf("dispatches = %d, want %d", got, tt.wantDispatches)
			}
		})
	}
}

// TestErrorBackgroundTag verifies errors carry the foreground/background tag
// of the most recently started check.
func TestErrorBackgroundTag(t *testing.T) {
	fx := newFixture(t, Config{}, fakeDetector{}, fakeSummarizer{})

	var mu sync.Mutex
	var got []UpdateError
	fx.coord.OnError(func(ue UpdateError) {
		mu.Lock()
		got = append(got, ue)
		mu.Unlock()
	})

	fx.coord.CheckForUpdates(context.Background(), true)
	fx.bridge.fireError(errors.New("dns failure"))
	waitFor(t, "background error", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1
	})

	fx.coord.CheckForUpdates(context.Background(), false)
	fx.bridge.fireError(errors.New("dns failure"))
	waitFor(t, "foreground error", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	})

	mu.Lock()
	defer mu.Unlock()
	if !got[0].Background {
		t.Error("error after background check should be tagged background")
	}
	if got[1].Background {
		t.Error("error after foreground check should be tagged foreground")
	}
}

// TestDefaultErrorTagIsForeground verifies errors before any check ran are
// treated as interactive.
func TestDefaultErrorTagIsForeground(t *testing.T) {
	fx := newFixture(t, Config{}, fakeDetector{}, fakeSummarizer{})

	errCh := make(chan UpdateError, 1)
	fx.coord.OnError(func(ue UpdateError) { errCh <- ue })

	fx.bridge.fireError(errors.New("spontaneous"))
	select {
	case ue := <-errCh:
		if ue.Background {
			t.Error("error before any check should be tagged foreground")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}
}

// TestDispatchErrorRoutedToErrorStream verifies a synchronous dispatch
// rejection surfaces through the same error channel.
func TestDispatchErrorRoutedToErrorStream(t *testing.T) {
	fx := newFixture(t, Config{}, fakeDetector{}, fakeSummarizer{})
	fx.bridge.dispatchErr = errors.New("malformed feed URL")

	errCh := make(chan UpdateError, 1)
	fx.coord.OnError(func(ue UpdateError) { errCh <- ue })

	fx.coord.CheckForUpdates(context.Background(), true)

	select {
	case ue := <-errCh:
		if !ue.Background {
			t.Error("dispatch error from background check should be tagged background")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatch error")
	}
}

// TestDownloadedEmitsOnceWithSummary verifies the downloaded callback yields
// exactly one additional state emission, carrying ready status and the
// resolved release summary.
func TestDownloadedEmitsOnceWithSummary(t *testing.T) {
	summary := release.Summary{Version: "4.2.0", Notes: "Fixed the thing"}
	fx := newFixture(t, Config{}, fakeDetector{}, fakeSummarizer{summary: summary})

	var mu sync.Mutex
	var states []State
	fx.coord.OnStateChange(func(st State) {
		mu.Lock()
		states = append(states, st)
		mu.Unlock()
	})

	fx.bridge.fireChecking()
	fx.bridge.fireAvailable()
	fx.bridge.fireDownloaded()

	waitFor(t, "ready emission", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) >= 3
	})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(states) != 3 {
		t.Fatalf("got %d state emissions, want 3 (checking, available, ready)", len(states))
	}
	last := states[2]
	if last.Status != StatusReady {
		t.Errorf("final status = %v, want %v", last.Status, StatusReady)
	}
	if last.NewRelease == nil || *last.NewRelease != summary {
		t.Errorf("NewRelease = %+v, want %+v", last.NewRelease, summary)
	}
	// Until the summary resolved, subscribers saw pre-download state only.
	if states[1].NewRelease != nil {
		t.Error("NewRelease populated before ready transition")
	}
}

// TestSummarizerFailureStillReachesReady verifies a failing summary generator
// does not strand the state machine.
func TestSummarizerFailureStillReachesReady(t *testing.T) {
	fx := newFixture(t, Config{}, fakeDetector{}, fakeSummarizer{err: errors.New("changelog down")})

	fx.bridge.fireDownloaded()
	waitFor(t, "ready", func() bool { return fx.coord.Status() == StatusReady })

	if st := fx.coord.State(); st.NewRelease == nil {
		t.Error("NewRelease must be non-nil once ready, even without a summary")
	}
}

// TestWindowsErrorsAreParsed verifies raw Windows updater output is replaced
// by the structured installer error when one can be recovered.
func TestWindowsErrorsAreParsed(t *testing.T) {
	fx := newFixture(t, Config{Platform: PlatformWindows}, fakeDetector{}, fakeSummarizer{})

	errCh := make(chan UpdateError, 1)
	fx.coord.OnError(func(ue UpdateError) { errCh <- ue })

	raw := errors.New("Update check log noise\n{\"code\": 3, \"message\": \"update server unreachable\"}")
	fx.bridge.fireError(raw)

	select {
	case ue := <-errCh:
		var ie *InstallerError
		if !errors.As(ue.Err, &ie) {
			t.Fatalf("expected structured installer error, got %v", ue.Err)
		}
		if ie.Code != 3 || ie.Message != "update server unreachable" {
			t.Errorf("parsed error = %+v", ie)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}
}

// TestQuitAndInstallOrdering verifies the blocking will-quit notification
// completes strictly before the install begins.
func TestQuitAndInstallOrdering(t *testing.T) {
	fx := newFixture(t, Config{}, fakeDetector{}, fakeSummarizer{})

	var listenerRan bool
	fx.bridge.OnWillQuit(func() {
		time.Sleep(20 * time.Millisecond) // listener must finish before install
		listenerRan = true
	})

	fx.coord.QuitAndInstall()

	fx.bridge.mu.Lock()
	defer fx.bridge.mu.Unlock()
	if !listenerRan {
		t.Error("will-quit listener did not complete before QuitAndInstall returned")
	}
	want := []string{"willquit", "install"}
	if len(fx.bridge.calls) != 2 || fx.bridge.calls[0] != want[0] || fx.bridge.calls[1] != want[1] {
		t.Errorf("call order = %v, want %v", fx.bridge.calls, want)
	}
}

// TestUnsubscribeStopsDelivery verifies the handle returned by the subscribe
// calls removes the handler.
func TestUnsubscribeStopsDelivery(t *testing.T) {
	fx := newFixture(t, Config{}, fakeDetector{}, fakeSummarizer{})

	var mu sync.Mutex
	count := 0
	unsub := fx.coord.OnStateChange(func(State) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	fx.bridge.fireChecking()
	waitFor(t, "first delivery", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count == 1
	})

	unsub()
	fx.bridge.fireNotAvailable()
	waitFor(t, "transition processed", func() bool {
		return fx.coord.Status() == StatusNotAvailable
	})

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Errorf("handler ran %d times after unsubscribe, want 1", count)
	}
}
