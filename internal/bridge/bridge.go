// Package bridge is the platform updater boundary: it checks a release feed,
// downloads new builds, reports lifecycle events, and performs the final
// quit-and-install.
package bridge

import "sync"

// Updater is the interface the update coordinator consumes. Lifecycle
// callbacks fire asynchronously, in the order the underlying check progresses
// (checking → available/not-available → downloaded, or → error).
type Updater interface {
	// CheckForUpdates dispatches a check against the given feed URL. The
	// returned error covers synchronous dispatch failure only; the outcome
	// arrives later through the lifecycle callbacks.
	CheckForUpdates(url string) error
	// QuitAndInstallUpdate terminates the process and applies the downloaded
	// update.
	QuitAndInstallUpdate()
	// SendWillQuitSync runs all registered will-quit listeners and returns
	// only after every listener has finished.
	SendWillQuitSync()

	OnCheckingForUpdate(fn func())
	OnUpdateAvailable(fn func())
	OnUpdateNotAvailable(fn func())
	OnUpdateDownloaded(fn func())
	OnError(fn func(error))
	OnWillQuit(fn func())
}

// callbacks holds registered lifecycle listeners. Emission snapshots the
// listener list under the lock and invokes outside it, in registration order.
type callbacks struct {
	mu           sync.Mutex
	checking     []func()
	available    []func()
	notAvailable []func()
	downloaded   []func()
	errs         []func(error)
	willQuit     []func()
}

// OnCheckingForUpdate registers a listener for check start.
func (c *callbacks) OnCheckingForUpdate(fn func()) {
	c.mu.Lock()
	c.checking = append(c.checking, fn)
	c.mu.Unlock()
}

// OnUpdateAvailable registers a listener for a confirmed newer build.
func (c *callbacks) OnUpdateAvailable(fn func()) {
	c.mu.Lock()
	c.available = append(c.available, fn)
	c.mu.Unlock()
}

// OnUpdateNotAvailable registers a listener for a completed check with no
// newer build.
func (c *callbacks) OnUpdateNotAvailable(fn func()) {
	c.mu.Lock()
	c.notAvailable = append(c.notAvailable, fn)
	c.mu.Unlock()
}

// OnUpdateDownloaded registers a listener for a fully downloaded build.
func (c *callbacks) OnUpdateDownloaded(fn func()) {
	c.mu.Lock()
	c.downloaded = append(c.downloaded, fn)
	c.mu.Unlock()
}

// OnError registers a listener for check failures.
func (c *callbacks) OnError(fn func(error)) {
	c.mu.Lock()
	c.errs = append(c.errs, fn)
	c.mu.Unlock()
}

// OnWillQuit registers a listener invoked synchronously before the process
// quits to install an update.
func (c *callbacks) OnWillQuit(fn func()) {
	c.mu.Lock()
	c.willQuit = append(c.willQuit, fn)
	c.mu.Unlock()
}

func (c *callbacks) emitChecking() {
	for _, fn := range c.snapshot(&c.checking) {
		fn()
	}
}

func (c *callbacks) emitAvailable() {
	for _, fn := range c.snapshot(&c.available) {
		fn()
	}
}

func (c *callbacks) emitNotAvailable() {
	for _, fn := range c.snapshot(&c.notAvailable) {
		fn()
	}
}

func (c *callbacks) emitDownloaded() {
	for _, fn := range c.snapshot(&c.downloaded) {
		fn()
	}
}

func (c *callbacks) emitError(err error) {
	c.mu.Lock()
	fns := append([]func(error){}, c.errs...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(err)
	}
}

func (c *callbacks) willQuitListeners() []func() {
	return c.snapshot(&c.willQuit)
}

func (c *callbacks) snapshot(list *[]func()) []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]func(){}, *list...)
}
