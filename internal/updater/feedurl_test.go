package updater

import "testing"

// TestRewriteFeedURL verifies the arm64 retargeting touches exactly the
// architecture path segment and nothing else.
func TestRewriteFeedURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "explicit x64 segment",
			in:   "https://example.com/desktop/desktop/x64/latest",
			want: "https://example.com/desktop/desktop/arm64/latest",
		},
		{
			name: "legacy path without arch segment",
			in:   "https://example.com/desktop/desktop/latest",
			want: "https://example.com/desktop/desktop/arm64/latest",
		},
		{
			name: "query string preserved",
			in:   "https://example.com/api/deployments/desktop/desktop/x64/latest?channel=prod",
			want: "https://example.com/api/deployments/desktop/desktop/arm64/latest?channel=prod",
		},
		{
			name: "already arm64 untouched",
			in:   "https://example.com/desktop/desktop/arm64/latest",
			want: "https://example.com/desktop/desktop/arm64/latest",
		},
		{
			name: "unrelated URL untouched",
			in:   "https://example.com/releases/latest",
			want: "https://example.com/releases/latest",
		},
		{
			name: "unparsable URL returned as-is",
			in:   "://not-a-url",
			want: "://not-a-url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := rewriteFeedURL(tt.in); got != tt.want {
				t.Errorf("rewriteFeedURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
