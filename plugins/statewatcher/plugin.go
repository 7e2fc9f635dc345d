// Package statewatcher requests an immediate keeper tick when an operator
// edits or removes the state file, instead of waiting for the next check.
//
// The keeper itself replaces the state file by renaming a temporary file over
// it, which surfaces as a Create event and is ignored. In-place writes and
// removals are treated as operator changes.
package statewatcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/streamkeeper/pkg/log"
	"github.com/bft-labs/streamkeeper/pkg/streamkeeper"
)

// Plugin watches the state directory for operator changes to the state file.
type Plugin struct {
	mu sync.Mutex

	debounceDelay time.Duration

	// Runtime state
	file     string
	trigger  func()
	logger   log.Logger
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	debounce *time.Timer
}

// Config holds configuration options for the state watcher plugin.
type Config struct {
	// DebounceDelay collapses bursts of events into one trigger.
	// Default: 500 milliseconds
	DebounceDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{DebounceDelay: 500 * time.Millisecond}
}

// New creates a new state watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 500 * time.Millisecond
	}
	return &Plugin{debounceDelay: cfg.DebounceDelay}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "statewatcher"
}

// Initialize starts watching the state directory. A keeper without a state
// file (custom repository) leaves the plugin disabled.
func (p *Plugin) Initialize(ctx context.Context, cfg streamkeeper.PluginConfig) error {
	p.mu.Lock()
	p.file = cfg.StateFile
	p.trigger = cfg.Trigger
	p.logger = cfg.Logger
	p.mu.Unlock()

	if p.logger == nil {
		p.logger = log.NewNoopLogger()
	}
	if p.file == "" || p.trigger == nil {
		p.logger.Warn("state watcher disabled: no state file to watch")
		return nil
	}

	dir := filepath.Dir(p.file)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("state watcher started", log.String("path", p.file))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)

	return nil
}

// Shutdown stops the watcher and drops a pending trigger.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.file)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !operatorChange(event.Op) {
				continue
			}
			p.logger.Info("state file changed outside the keeper",
				log.String("path", event.Name),
				log.String("op", event.Op.String()),
			)
			p.debounceTrigger(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("state watcher error", log.Err(err))
		}
	}
}

// operatorChange reports whether op is an in-place write or a removal.
func operatorChange(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}

func (p *Plugin) debounceTrigger(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}

	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		p.trigger()
	})
}

// Ensure Plugin implements streamkeeper.Plugin.
var _ streamkeeper.Plugin = (*Plugin)(nil)
