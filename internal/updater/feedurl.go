package updater

import (
	"net/url"
	"regexp"
)

// feedArchPattern matches the feed path segment that selects the build
// architecture. The optional x64 segment covers both the legacy unsuffixed
// path and the explicit x64 one.
var feedArchPattern = regexp.MustCompile(`/desktop/desktop/(?:x64/)?latest`)

// rewriteFeedURL retargets the feed at the arm64 build. Only the first
// matching path segment is substituted; the rest of the URL (host, query,
// fragment) is untouched. Non-matching URLs come back unchanged.
func rewriteFeedURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	loc := feedArchPattern.FindStringIndex(u.Path)
	if loc == nil {
		return raw
	}

	u.Path = u.Path[:loc[0]] + "/desktop/desktop/arm64/latest" + u.Path[loc[1]:]
	return u.String()
}
