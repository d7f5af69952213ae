package am

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/logger"
)

// ownWriteWindow is how long events on a file we just wrote are ignored.
// A single save can produce several events (truncate, write, chmod).
const ownWriteWindow = time.Second

// ConfigWatcher reloads the configuration when one of its files changes.
//
// It watches the directories holding the files rather than the files, so
// editors that save by writing a temp file and renaming it are seen, and a
// file that does not exist yet is picked up once created.
type ConfigWatcher struct {
	files   map[string]bool // cleaned absolute paths
	watcher *fsnotify.Watcher
	logger  *zap.SugaredLogger

	mu             sync.Mutex
	callbacks      []ReloadCallback
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	ownWrites      map[string]time.Time // path -> ignore events until
}

// ReloadCallback is called with the new config after a reload
type ReloadCallback func(*Config) error

var (
	globalWatcher   *ConfigWatcher
	globalWatcherMu sync.Mutex
)

// NewConfigWatcher watches paths. Their directories must exist.
func NewConfigWatcher(paths ...string) (*ConfigWatcher, error) {
	if len(paths) == 0 {
		return nil, errors.NewInvalidRequestError("no config file to watch")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	files := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "resolve %s", p)
		}
		files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, errors.Wrapf(err, "failed to watch config directory %s", dir)
		}
		dirs[dir] = true
	}

	return &ConfigWatcher{
		files:          files,
		watcher:        fw,
		logger:         logger.ComponentLogger("am"),
		debouncePeriod: 500 * time.Millisecond,
		ownWrites:      make(map[string]time.Time),
	}, nil
}

// OnReload registers a callback to be called when config is reloaded
func (cw *ConfigWatcher) OnReload(callback ReloadCallback) {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.callbacks = append(cw.callbacks, callback)
}

// MarkOwnWrite suppresses reloads caused by our own write to path.
func (cw *ConfigWatcher) MarkOwnWrite(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.ownWrites == nil {
		cw.ownWrites = make(map[string]time.Time)
	}
	cw.ownWrites[abs] = time.Now().Add(ownWriteWindow)
}

func (cw *ConfigWatcher) isOwnWrite(path string) bool {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	until, ok := cw.ownWrites[path]
	if !ok {
		return false
	}
	if time.Now().After(until) {
		delete(cw.ownWrites, path)
		return false
	}
	return true
}

// Start begins watching for config file changes
func (cw *ConfigWatcher) Start() {
	go cw.watchLoop()
}

func (cw *ConfigWatcher) watchLoop() {
	for {
		select {
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if !cw.relevant(event) {
				continue
			}
			if cw.isOwnWrite(event.Name) {
				cw.logger.Debugw("Ignoring own config write", logger.FieldFile, event.Name)
				continue
			}
			cw.logger.Infow("Config file changed", logger.FieldFile, event.Name, "op", event.Op.String())
			cw.scheduleReload()

		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Warnw("Config watcher error", logger.FieldError, err.Error())
		}
	}
}

// relevant keeps writes, creates and rename targets of the watched files.
func (cw *ConfigWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return false
	}
	if isBackupFile(event.Name) {
		return false
	}
	return cw.files[filepath.Clean(event.Name)]
}

// scheduleReload restarts the debounce timer.
func (cw *ConfigWatcher) scheduleReload() {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.debounceTimer = time.AfterFunc(cw.debouncePeriod, func() {
		if err := cw.reload(); err != nil {
			cw.logger.Errorw("Config reload failed", logger.FieldError, err.Error())
		}
	})
}

func (cw *ConfigWatcher) reload() error {
	Reset()
	cfg, err := Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}

	cw.mu.Lock()
	callbacks := append([]ReloadCallback(nil), cw.callbacks...)
	cw.mu.Unlock()

	cw.logger.Infow("Config reloaded", logger.FieldCount, len(callbacks))
	for _, fn := range callbacks {
		if err := fn(cfg); err != nil {
			// keep calling the rest
			cw.logger.Warnw("Config reload callback error", logger.FieldError, err.Error())
		}
	}
	return nil
}

// Stop stops watching for config changes
func (cw *ConfigWatcher) Stop() error {
	cw.mu.Lock()
	if cw.debounceTimer != nil {
		cw.debounceTimer.Stop()
	}
	cw.mu.Unlock()
	return cw.watcher.Close()
}

// isBackupFile reports .back1, .back2 and .back3 rotations
func isBackupFile(path string) bool {
	ext := filepath.Ext(path)
	return strings.HasPrefix(ext, ".back") && len(ext) == len(".back1")
}

// SetGlobalWatcher sets the watcher notified of our own UI config writes
func SetGlobalWatcher(watcher *ConfigWatcher) {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	globalWatcher = watcher
}

// GetGlobalWatcher returns the global watcher instance
func GetGlobalWatcher() *ConfigWatcher {
	globalWatcherMu.Lock()
	defer globalWatcherMu.Unlock()
	return globalWatcher
}
