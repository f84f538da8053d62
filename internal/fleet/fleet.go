// Package fleet manages one watch session per monitored folder and
// bridges their notification channels to the rest of the application.
package fleet

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vigialabs/vigia/internal/apperr"
	"github.com/vigialabs/vigia/internal/monitor"
	"github.com/vigialabs/vigia/internal/registry"
)

// PublishFunc receives every accepted change notification. It must not
// block for long; the fleet drains each session's bounded channel on a
// dedicated goroutine and a slow publisher only delays that drain.
type PublishFunc func(n monitor.Notification)

// Status is one row in the fleet listing.
type Status struct {
	Path          string `json:"path"`
	Running       bool   `json:"running"`
	HasCheckpoint bool   `json:"has_checkpoint"`
	ChangeCount   int    `json:"change_count"`
}

// Fleet owns the monitors for all persisted folders.
type Fleet struct {
	reg     *registry.DB
	logger  *slog.Logger
	publish PublishFunc
	opts    []monitor.Option

	mu       sync.Mutex
	monitors map[string]*monitor.Monitor
	wg       sync.WaitGroup
}

// New creates an empty Fleet. publish may be nil.
func New(reg *registry.DB, logger *slog.Logger, publish PublishFunc, opts ...monitor.Option) *Fleet {
	return &Fleet{
		reg:      reg,
		logger:   logger,
		publish:  publish,
		opts:     opts,
		monitors: make(map[string]*monitor.Monitor),
	}
}

// LoadPersisted starts a monitor for every folder stored in the
// registry. Folders that no longer exist on disk are silently removed
// from the registry.
func (f *Fleet) LoadPersisted() error {
	folders, err := f.reg.List()
	if err != nil {
		return err
	}
	for _, folder := range folders {
		info, statErr := os.Stat(folder.Path)
		if statErr != nil || !info.IsDir() {
			f.logger.Warn("fleet: dropping vanished folder", slog.String("path", folder.Path))
			_, _ = f.reg.Remove(folder.Path)
			continue
		}
		if startErr := f.start(folder.Path); startErr != nil {
			f.logger.Warn("fleet: start failed",
				slog.String("path", folder.Path), slog.String("error", startErr.Error()))
		}
	}
	return nil
}

// Add persists a folder and starts monitoring it. Reports whether the
// folder was new; adding an already-monitored folder is not an error.
func (f *Fleet) Add(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("fleet: resolve path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return false, fmt.Errorf("fleet: stat folder: %w", err)
	}
	if !info.IsDir() {
		return false, fmt.Errorf("fleet: not a directory: %s", abs)
	}

	added, err := f.reg.Add(abs)
	if err != nil {
		return false, err
	}

	f.mu.Lock()
	_, running := f.monitors[abs]
	f.mu.Unlock()
	if !running {
		if err := f.start(abs); err != nil {
			return added, err
		}
	}
	return added, nil
}

// Remove stops the folder's monitor and deletes it from the registry.
func (f *Fleet) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("fleet: resolve path: %w", err)
	}

	f.mu.Lock()
	m, ok := f.monitors[abs]
	delete(f.monitors, abs)
	f.mu.Unlock()

	if ok {
		m.Stop()
	}
	existed, err := f.reg.Remove(abs)
	if err != nil {
		return err
	}
	if !ok && !existed {
		return apperr.ErrNotFound
	}
	return nil
}

// Get returns the monitor for a folder path.
func (f *Fleet) Get(path string) (*monitor.Monitor, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.monitors[abs]
	return m, ok
}

// List returns a status row per monitored folder, sorted by path.
func (f *Fleet) List() []Status {
	f.mu.Lock()
	monitors := make([]*monitor.Monitor, 0, len(f.monitors))
	for _, m := range f.monitors {
		monitors = append(monitors, m)
	}
	f.mu.Unlock()

	out := make([]Status, 0, len(monitors))
	for _, m := range monitors {
		out = append(out, Status{
			Path:          m.Root(),
			Running:       true,
			HasCheckpoint: m.HasCheckpoint(),
			ChangeCount:   len(m.Changes()),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// StopAll stops every monitor and waits for the drain goroutines.
func (f *Fleet) StopAll() {
	f.mu.Lock()
	monitors := make([]*monitor.Monitor, 0, len(f.monitors))
	for _, m := range f.monitors {
		monitors = append(monitors, m)
	}
	f.monitors = make(map[string]*monitor.Monitor)
	f.mu.Unlock()

	for _, m := range monitors {
		m.Stop()
	}
	f.wg.Wait()
}

// start creates, registers and starts a monitor for abs, wiring its
// notification channel into the publish func.
func (f *Fleet) start(abs string) error {
	opts := append([]monitor.Option{monitor.WithLogger(f.logger)}, f.opts...)
	m, err := monitor.New(abs, opts...)
	if err != nil {
		return err
	}
	if err := m.Start(); err != nil {
		return err
	}

	f.mu.Lock()
	f.monitors[abs] = m
	f.mu.Unlock()

	f.wg.Add(1)
	go f.drain(m)
	return nil
}

// drain forwards notifications until the session stops, then flushes
// whatever is still buffered.
func (f *Fleet) drain(m *monitor.Monitor) {
	defer f.wg.Done()
	for {
		select {
		case n := <-m.Events():
			if f.publish != nil {
				f.publish(n)
			}
		case <-m.Done():
			for {
				select {
				case n := <-m.Events():
					if f.publish != nil {
						f.publish(n)
					}
				default:
					return
				}
			}
		}
	}
}
