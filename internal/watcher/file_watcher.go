package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/mvp-joe/noir-analyzer/internal/config"
	"github.com/mvp-joe/noir-analyzer/internal/manifest"
	"github.com/mvp-joe/noir-analyzer/internal/parser"
)

// DefaultDebounce is the quiet period before a batch of changes is reported.
const DefaultDebounce = 300 * time.Millisecond

// skipDirs are never watched.
var skipDirs = map[string]bool{
	".git":   true,
	"target": true,
}

// fileWatcher implements FileWatcher interface.
type fileWatcher struct {
	watcher       *fsnotify.Watcher
	debounceTime  time.Duration // Quiet period before firing callback
	logger        *zap.Logger
	callback      func(files []string) // Callback to invoke with changed files
	ctx           context.Context      // Context for lifecycle management
	cancel        context.CancelFunc   // Cancel function for internal context
	accumulated   map[string]bool      // Accumulated file changes
	accumulatedMu sync.Mutex           // Protects accumulated map
	debounceTimer *time.Timer          // Current debounce timer
	timerMu       sync.Mutex           // Protects debounce timer
	stopOnce      sync.Once            // Ensures Stop() is idempotent
	doneCh        chan struct{}        // Signals watch goroutine has finished
}

// Option configures a FileWatcher.
type Option func(*fileWatcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(fw *fileWatcher) {
		if d > 0 {
			fw.debounceTime = d
		}
	}
}

// WithLogger sets the logger for watch errors.
func WithLogger(logger *zap.Logger) Option {
	return func(fw *fileWatcher) {
		if logger != nil {
			fw.logger = logger
		}
	}
}

// NewFileWatcher creates a watcher over the given directories, recursively.
// Only Noir sources, Nargo.toml files and noir-analyzer config files are
// reported.
func NewFileWatcher(dirs []string, opts ...Option) (FileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &fileWatcher{
		watcher:      watcher,
		debounceTime: DefaultDebounce,
		logger:       zap.NewNop(),
		accumulated:  make(map[string]bool),
		doneCh:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(fw)
	}

	for _, dir := range dirs {
		if err := fw.addDirectoriesRecursively(dir); err != nil {
			watcher.Close()
			return nil, err
		}
	}

	return fw, nil
}

// Start begins watching for file changes.
func (fw *fileWatcher) Start(ctx context.Context, callback func(files []string)) error {
	if callback == nil {
		return nil
	}

	fw.callback = callback
	fw.ctx, fw.cancel = context.WithCancel(ctx)

	go fw.watch()
	return nil
}

// Stop stops the file watcher.
func (fw *fileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		if fw.cancel != nil {
			fw.cancel()
			// Wait for goroutine to finish (only if Start() was called)
			<-fw.doneCh
		} else {
			close(fw.doneCh)
		}
		fw.stopDebounceTimer()
		err = fw.watcher.Close()
	})
	return err
}

// watch is the main event loop.
func (fw *fileWatcher) watch() {
	defer close(fw.doneCh)

	fireCh := make(chan struct{}, 1)

	for {
		select {
		case <-fw.ctx.Done():
			fw.stopDebounceTimer()
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}

			// New directories may hold new modules
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := fw.addDirectoriesRecursively(event.Name); err != nil {
						fw.logger.Warn("failed to watch new directory",
							zap.String("dir", event.Name), zap.Error(err))
					}
				}
			}

			if !shouldProcessEvent(event) {
				continue
			}

			fw.accumulatedMu.Lock()
			fw.accumulated[event.Name] = true
			fw.accumulatedMu.Unlock()

			fw.resetDebounceTimer(fireCh)

		case <-fireCh:
			fw.handleDebounceExpired()

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.logger.Warn("file watcher error", zap.Error(err))
		}
	}
}

// handleDebounceExpired fires the callback with the accumulated files, sorted.
func (fw *fileWatcher) handleDebounceExpired() {
	fw.accumulatedMu.Lock()
	if len(fw.accumulated) == 0 {
		fw.accumulatedMu.Unlock()
		return
	}
	files := make([]string, 0, len(fw.accumulated))
	for file := range fw.accumulated {
		files = append(files, file)
	}
	fw.accumulated = make(map[string]bool)
	fw.accumulatedMu.Unlock()

	sort.Strings(files)
	fw.logger.Debug("changes detected", zap.Strings("files", files))
	fw.callback(files)
}

// resetDebounceTimer resets the debounce timer, properly stopping the old one.
func (fw *fileWatcher) resetDebounceTimer(fireCh chan struct{}) {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
	}

	fw.debounceTimer = time.AfterFunc(fw.debounceTime, func() {
		// Non-blocking: a pending signal already covers this batch
		select {
		case fireCh <- struct{}{}:
		default:
		}
	})
}

// stopDebounceTimer stops the debounce timer if it exists.
func (fw *fileWatcher) stopDebounceTimer() {
	fw.timerMu.Lock()
	defer fw.timerMu.Unlock()

	if fw.debounceTimer != nil {
		fw.debounceTimer.Stop()
		fw.debounceTimer = nil
	}
}

// shouldProcessEvent keeps writes, creates, removes and renames of files the
// lint depends on.
func shouldProcessEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return Relevant(event.Name)
}

// Relevant reports whether a change to path can affect lint results.
func Relevant(path string) bool {
	base := filepath.Base(path)
	switch {
	case filepath.Ext(base) == parser.SourceExt:
		return true
	case base == manifest.FileName:
		return true
	case filepath.Base(filepath.Dir(path)) == config.DirName:
		return base == "config.yml" || base == "config.yaml"
	}
	return false
}

// addDirectoriesRecursively adds all directories in the tree to the watcher.
func (fw *fileWatcher) addDirectoriesRecursively(rootPath string) error {
	return filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == rootPath {
				return err
			}
			fw.logger.Warn("error accessing path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != rootPath && skipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := fw.watcher.Add(path); err != nil {
			fw.logger.Warn("failed to watch directory", zap.String("dir", path), zap.Error(err))
		}
		return nil
	})
}
