package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	goversion "github.com/hashicorp/go-version"

	"desk-updater/internal/core"
	"desk-updater/internal/release"
)

const checkTimeout = 15 * time.Minute

// PendingUpdate describes a downloaded build awaiting install.
type PendingUpdate struct {
	Version    string
	Notes      string
	BinaryPath string
}

// ReleaseBridge implements Updater against an HTTP release feed: it fetches
// the feed, compares versions, downloads the platform asset, and applies the
// new binary on install.
type ReleaseBridge struct {
	callbacks

	currentVersion string
	binaryName     string
	httpClient     *http.Client
	progressFn     ProgressFunc

	mu      sync.Mutex
	pending *PendingUpdate
}

// NewReleaseBridge creates a bridge for the given running version.
// binaryName is the executable name expected inside update archives.
func NewReleaseBridge(currentVersion, binaryName string, httpClient *http.Client) *ReleaseBridge {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Minute}
	}
	return &ReleaseBridge{
		currentVersion: currentVersion,
		binaryName:     binaryName,
		httpClient:     httpClient,
	}
}

// WithProgress sets a download progress callback.
func (b *ReleaseBridge) WithProgress(fn ProgressFunc) *ReleaseBridge {
	b.progressFn = fn
	return b
}

// CheckForUpdates validates the feed URL and dispatches one check cycle.
// The outcome arrives through the lifecycle callbacks.
func (b *ReleaseBridge) CheckForUpdates(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid feed URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid feed URL scheme: %q", u.Scheme)
	}

	go b.runCheck(u.String())
	return nil
}

// runCheck performs one full check cycle and emits lifecycle callbacks.
func (b *ReleaseBridge) runCheck(feedURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), checkTimeout)
	defer cancel()

	b.emitChecking()

	// Dev builds never self-update.
	if b.currentVersion == "dev" || b.currentVersion == "" {
		core.Log.Debugf("Bridge", "Dev build, skipping update check")
		b.emitNotAvailable()
		return
	}

	rel, err := b.fetchFeed(ctx, feedURL)
	if err != nil {
		b.emitError(fmt.Errorf("fetch release feed: %w", err))
		return
	}

	newer, err := b.isNewer(rel.Version)
	if err != nil {
		b.emitError(err)
		return
	}
	if !newer {
		core.Log.Debugf("Bridge", "Already on latest version %s", b.currentVersion)
		b.emitNotAvailable()
		return
	}

	core.Log.Infof("Bridge", "New version available: %s", rel.Version)
	b.emitAvailable()

	binaryPath, err := b.download(ctx, rel)
	if err != nil {
		b.emitError(fmt.Errorf("download update %s: %w", rel.Version, err))
		return
	}

	b.mu.Lock()
	b.pending = &PendingUpdate{
		Version:    rel.Version,
		Notes:      rel.Notes,
		BinaryPath: binaryPath,
	}
	b.mu.Unlock()

	b.emitDownloaded()
}

// fetchFeed retrieves and decodes the release feed, retrying transient
// failures with exponential backoff.
func (b *ReleaseBridge) fetchFeed(ctx context.Context, feedURL string) (*feedRelease, error) {
	var rel feedRelease

	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "desk-updater/"+b.currentVersion)

		resp, err := b.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode >= http.StatusInternalServerError:
			return fmt.Errorf("feed returned %d", resp.StatusCode)
		default:
			return backoff.Permanent(fmt.Errorf("feed returned %d", resp.StatusCode))
		}

		if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
			return backoff.Permanent(fmt.Errorf("decode feed: %w", err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		return nil, err
	}
	if rel.Version == "" {
		return nil, fmt.Errorf("feed response missing version")
	}
	return &rel, nil
}

// isNewer compares the feed version against the running version.
func (b *ReleaseBridge) isNewer(feedVersion string) (bool, error) {
	current, err := goversion.NewVersion(b.currentVersion)
	if err != nil {
		return false, fmt.Errorf("parse current version %q: %w", b.currentVersion, err)
	}
	latest, err := goversion.NewVersion(feedVersion)
	if err != nil {
		return false, fmt.Errorf("parse feed version %q: %w", feedVersion, err)
	}
	return latest.GreaterThan(current), nil
}

// Pending returns the downloaded update awaiting install, or nil.
func (b *ReleaseBridge) Pending() *PendingUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return nil
	}
	p := *b.pending
	return &p
}

// PendingVersion returns the version of the downloaded update, or "".
func (b *ReleaseBridge) PendingVersion() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pending == nil {
		return ""
	}
	return b.pending.Version
}

// Summarize implements release.Summarizer from the bridge's own feed data,
// used when no dedicated changelog endpoint is configured.
func (b *ReleaseBridge) Summarize(ctx context.Context) (release.Summary, error) {
	p := b.Pending()
	if p == nil {
		return release.Summary{}, fmt.Errorf("no downloaded update to summarize")
	}
	return release.Summary{Version: p.Version, Notes: p.Notes}, nil
}

// SendWillQuitSync runs all registered will-quit listeners and blocks until
// every one of them returns.
func (b *ReleaseBridge) SendWillQuitSync() {
	for _, fn := range b.willQuitListeners() {
		fn()
	}
}
