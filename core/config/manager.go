package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

// reloadDebounce collapses the bursts of fsnotify events editors produce
// for a single save.
const reloadDebounce = 100 * time.Millisecond

// Manager holds the live configuration behind an atomic pointer. Get is
// lock-free; Load swaps the whole snapshot so readers never observe a
// half-applied reload.
type Manager struct {
	path   string
	logger *slog.Logger

	config atomic.Pointer[Config]

	watcherMu sync.RWMutex
	watchers  []func(*Config)
}

// NewManager creates a manager seeded with defaults. path names the YAML
// file to merge over them; it may not exist yet.
func NewManager(path string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		path:   path,
		logger: logger,
	}
	m.config.Store(Default())
	return m
}

// Get returns the current snapshot. Never nil.
func (m *Manager) Get() *Config {
	return m.config.Load()
}

// Load builds a fresh config from defaults, the YAML file, and the
// environment, validates it, and publishes it. A missing file is not an
// error. An invalid result leaves the previous snapshot in place.
func (m *Manager) Load() error {
	cfg := Default()

	if err := m.loadYAMLFile(cfg); err != nil {
		return fmt.Errorf("config file %s: %w", m.path, err)
	}
	applyEnvironment(cfg)

	if err := cfg.Validate(); err != nil {
		return err
	}

	m.config.Store(cfg)
	m.notifyWatchers(cfg)
	return nil
}

func (m *Manager) loadYAMLFile(cfg *Config) error {
	if m.path == "" {
		return nil
	}
	data, err := os.ReadFile(m.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// OnChange registers a callback invoked with every published snapshot.
func (m *Manager) OnChange(fn func(*Config)) {
	m.watcherMu.Lock()
	m.watchers = append(m.watchers, fn)
	m.watcherMu.Unlock()
}

func (m *Manager) notifyWatchers(cfg *Config) {
	m.watcherMu.RLock()
	watchers := m.watchers
	m.watcherMu.RUnlock()

	for _, fn := range watchers {
		fn(cfg)
	}
}

// Watch reloads the configuration whenever the file changes, until the
// context is canceled. The containing directory is watched rather than
// the file itself, so atomic-rename saves keep working.
func (m *Manager) Watch(ctx context.Context) error {
	if m.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(m.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(m.path)
	var debounce *time.Timer
	reloads := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, func() {
				select {
				case reloads <- struct{}{}:
				default:
				}
			})

		case <-reloads:
			if err := m.Load(); err != nil {
				m.logger.Warn("config reload failed, keeping previous snapshot",
					"path", m.path,
					"error", err,
				)
				continue
			}
			m.logger.Info("config reloaded", "path", m.path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			m.logger.Warn("config watcher error", "error", err)
		}
	}
}
