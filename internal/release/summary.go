// Package release produces human-readable summaries of a downloaded update.
package release

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Summary describes a pending update in user-facing terms.
type Summary struct {
	Version string
	Notes   string
}

// Summarizer produces a Summary for the just-downloaded build.
type Summarizer interface {
	Summarize(ctx context.Context) (Summary, error)
}

// changelogEntry maps the relevant fields of the changelog endpoint response.
type changelogEntry struct {
	Version string   `json:"version"`
	Notes   []string `json:"notes"`
}

// ChangelogSummarizer builds summaries from a remote changelog endpoint.
// versionFn reports the version of the build the bridge just downloaded; the
// matching changelog entry supplies the notes.
type ChangelogSummarizer struct {
	url        string
	httpClient *http.Client
	versionFn  func() string
}

// NewChangelogSummarizer creates a summarizer against the given endpoint.
func NewChangelogSummarizer(url string, httpClient *http.Client, versionFn func() string) *ChangelogSummarizer {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &ChangelogSummarizer{
		url:        url,
		httpClient: httpClient,
		versionFn:  versionFn,
	}
}

// Summarize fetches the changelog and returns the entry for the downloaded
// build. When the endpoint has no entry for that version, the summary carries
// the version with empty notes rather than failing.
func (s *ChangelogSummarizer) Summarize(ctx context.Context) (Summary, error) {
	version := s.versionFn()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("create changelog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return Summary{}, fmt.Errorf("fetch changelog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Summary{}, fmt.Errorf("changelog endpoint returned %d", resp.StatusCode)
	}

	var entries []changelogEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return Summary{}, fmt.Errorf("decode changelog: %w", err)
	}

	for _, e := range entries {
		if e.Version == version {
			return Summary{Version: version, Notes: strings.Join(e.Notes, "\n")}, nil
		}
	}
	return Summary{Version: version}, nil
}
