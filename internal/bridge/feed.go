package bridge

import (
	"fmt"
	"runtime"
	"strings"
)

// feedRelease maps the relevant fields from the release feed response.
type feedRelease struct {
	Version string      `json:"version"`
	Name    string      `json:"name"`
	Notes   string      `json:"notes"`
	PubDate string      `json:"pub_date"`
	Assets  []feedAsset `json:"assets"`
}

type feedAsset struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// assetSuffix selects the archive matching the running OS and architecture.
func assetSuffix() string {
	return fmt.Sprintf("-%s-%s.zip", runtime.GOOS, runtime.GOARCH)
}

// selectAsset finds the platform archive in the release's asset list.
func selectAsset(rel *feedRelease) (*feedAsset, error) {
	suffix := assetSuffix()
	for i := range rel.Assets {
		if strings.HasSuffix(rel.Assets[i].Name, suffix) {
			return &rel.Assets[i], nil
		}
	}
	return nil, fmt.Errorf("no asset matching %q in release %s", suffix, rel.Version)
}
