// Package arch answers whether the running process is an emulated build on a
// different native CPU architecture (Rosetta on macOS, arm64 x64-emulation on
// Windows).
package arch

import "context"

// Detector exposes the two independent emulation probes consumed by the
// update coordinator. Either probe reporting true is treated as "emulated".
type Detector interface {
	// TranslatedProcess asks the OS translation layer whether this process
	// runs translated. The probe itself may block, so it runs asynchronously
	// under ctx.
	TranslatedProcess(ctx context.Context) (bool, error)
	// Emulated is the synchronous generic probe: the build architecture does
	// not match the machine's native architecture.
	Emulated() bool
}

// SystemDetector implements Detector against the running OS.
type SystemDetector struct{}

// TranslatedProcess runs the platform translation-layer probe under ctx.
func (SystemDetector) TranslatedProcess(ctx context.Context) (bool, error) {
	type result struct {
		translated bool
		err        error
	}
	ch := make(chan result, 1)
	go func() {
		t, err := translatedProcess()
		ch <- result{t, err}
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case r := <-ch:
		return r.translated, r.err
	}
}

// Emulated reports whether the build architecture differs from the native one.
func (SystemDetector) Emulated() bool {
	return emulatedProcess()
}
