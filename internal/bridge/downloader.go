package bridge

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"desk-updater/internal/core"
)

// ProgressFunc reports download progress: bytesDownloaded, totalBytes.
type ProgressFunc func(downloaded, total int64)

// download fetches the platform asset for rel, extracts the archive into a
// temp directory, and returns the path to the new binary.
func (b *ReleaseBridge) download(ctx context.Context, rel *feedRelease) (string, error) {
	asset, err := selectAsset(rel)
	if err != nil {
		return "", err
	}

	tempDir, err := os.MkdirTemp("", "desk-update-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	zipPath := filepath.Join(tempDir, "update.zip")

	core.Log.Infof("Bridge", "Downloading %s (%d bytes)...", rel.Version, asset.Size)
	if err := b.downloadFile(ctx, asset.URL, zipPath, asset.Size); err != nil {
		os.RemoveAll(tempDir)
		return "", fmt.Errorf("download: %w", err)
	}

	extractDir := filepath.Join(tempDir, "files")
	if err := os.MkdirAll(extractDir, 0755); err != nil {
		os.RemoveAll(tempDir)
		return "", fmt.Errorf("create extract dir: %w", err)
	}

	core.Log.Infof("Bridge", "Extracting update...")
	if err := extractZip(zipPath, extractDir); err != nil {
		os.RemoveAll(tempDir)
		return "", fmt.Errorf("extract: %w", err)
	}

	// Remove the zip to save space.
	os.Remove(zipPath)

	binaryPath, err := findBinary(extractDir, b.binaryName)
	if err != nil {
		os.RemoveAll(tempDir)
		return "", err
	}

	core.Log.Infof("Bridge", "Update %s ready at %s", rel.Version, binaryPath)
	return binaryPath, nil
}

// downloadFile downloads a URL to a local file with optional progress reporting.
func (b *ReleaseBridge) downloadFile(ctx context.Context, url, dest string, totalSize int64) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "desk-updater/"+b.currentVersion)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()

	if b.progressFn == nil {
		_, err = io.Copy(f, resp.Body)
		return err
	}

	// Copy with progress reporting.
	buf := make([]byte, 32*1024)
	var downloaded int64
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, writeErr := f.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
			downloaded += int64(n)
			b.progressFn(downloaded, totalSize)
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}
	return nil
}

// extractZip extracts a zip archive to the destination directory.
func extractZip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		destPath := filepath.Join(destDir, f.Name)

		// Prevent zip slip.
		if !isSubPath(destDir, destPath) {
			return fmt.Errorf("illegal file path in zip: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			os.MkdirAll(destPath, 0755)
			continue
		}

		os.MkdirAll(filepath.Dir(destPath), 0755)

		if err := extractSingleFile(f, destPath); err != nil {
			return fmt.Errorf("extract %s: %w", f.Name, err)
		}
	}
	return nil
}

func extractSingleFile(f *zip.File, destPath string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer dst.Close()

	_, err = io.Copy(dst, src)
	return err
}

// findBinary locates the application binary in the extract directory.
func findBinary(dir, name string) (string, error) {
	// Look for exact name first.
	candidate := filepath.Join(dir, name)
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}
	candidate += ".exe"
	if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
		return candidate, nil
	}

	// Walk directory to find any matching executable.
	var found string
	filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		base := strings.TrimSuffix(info.Name(), ".exe")
		if base == name || strings.HasPrefix(base, name+"-") {
			if info.Mode()&0111 != 0 || strings.HasSuffix(info.Name(), ".exe") {
				found = path
				return filepath.SkipAll
			}
		}
		return nil
	})

	if found == "" {
		return "", fmt.Errorf("binary %q not found in %s", name, dir)
	}
	return found, nil
}

// isSubPath checks if child is under parent directory (zip slip prevention).
func isSubPath(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return !filepath.IsAbs(rel) && !strings.HasPrefix(rel, "..")
}
