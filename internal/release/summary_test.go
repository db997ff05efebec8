package release

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func changelogServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// TestChangelogSummarizer verifies the summary for the downloaded build is
// assembled from the matching changelog entry.
func TestChangelogSummarizer(t *testing.T) {
	body := `[
		{"version": "2.1.0", "notes": ["Faster sync", "Fix crash on resume"]},
		{"version": "2.0.0", "notes": ["Initial arm64 build"]}
	]`
	srv := changelogServer(t, http.StatusOK, body)

	s := NewChangelogSummarizer(srv.URL, srv.Client(), func() string { return "2.1.0" })
	sum, err := s.Summarize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Version != "2.1.0" {
		t.Errorf("version = %q", sum.Version)
	}
	if sum.Notes != "Faster sync\nFix crash on resume" {
		t.Errorf("notes = %q", sum.Notes)
	}
}

// TestChangelogSummarizerUnknownVersion verifies a version absent from the
// changelog still yields a usable summary.
func TestChangelogSummarizerUnknownVersion(t *testing.T) {
	srv := changelogServer(t, http.StatusOK, `[{"version": "1.0.0", "notes": ["old"]}]`)

	s := NewChangelogSummarizer(srv.URL, srv.Client(), func() string { return "3.0.0" })
	sum, err := s.Summarize(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if sum.Version != "3.0.0" || sum.Notes != "" {
		t.Errorf("summary = %+v", sum)
	}
}

// TestChangelogSummarizerServerError verifies endpoint failures are reported.
func TestChangelogSummarizerServerError(t *testing.T) {
	srv := changelogServer(t, http.StatusInternalServerError, "")

	s := NewChangelogSummarizer(srv.URL, srv.Client(), func() string { return "2.1.0" })
	if _, err := s.Summarize(context.Background()); err == nil {
		t.Error("expected error on 500 response")
	}
}
