package workspace

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/framemark/cameratool"
	"github.com/teranos/framemark/errors"
	"github.com/teranos/framemark/logger"
	"github.com/teranos/framemark/state"
)

// imageWatcher re-reads the image directory when frames appear or disappear,
// for example while the camera tool is still extracting.
type imageWatcher struct {
	dir      string
	store    *state.Store
	watcher  *fsnotify.Watcher
	debounce time.Duration
	logger   *zap.SugaredLogger

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

func watchImages(dir string, store *state.Store, debounce time.Duration) (*imageWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, errors.Wrapf(err, "failed to watch image directory %s", dir)
	}

	iw := &imageWatcher{
		dir:      dir,
		store:    store,
		watcher:  w,
		debounce: debounce,
		logger:   logger.ComponentLogger("workspace"),
		done:     make(chan struct{}),
	}
	go iw.loop()
	return iw, nil
}

func (iw *imageWatcher) loop() {
	defer close(iw.done)
	for {
		select {
		case event, ok := <-iw.watcher.Events:
			if !ok {
				return
			}
			if !frameImageEvent(event) {
				continue
			}
			iw.schedule()

		case err, ok := <-iw.watcher.Errors:
			if !ok {
				return
			}
			iw.logger.Warnw("Image watcher error", logger.FieldError, err.Error())
		}
	}
}

func frameImageEvent(e fsnotify.Event) bool {
	if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Remove) && !e.Has(fsnotify.Rename) {
		return false
	}
	return cameratool.IsFrameImage(e.Name)
}

func (iw *imageWatcher) schedule() {
	iw.mu.Lock()
	defer iw.mu.Unlock()
	if iw.timer != nil {
		iw.timer.Stop()
	}
	iw.timer = time.AfterFunc(iw.debounce, iw.reload)
}

func (iw *imageWatcher) reload() {
	images, err := cameratool.ReadImageDir(iw.dir)
	if err != nil {
		iw.logger.Warnw("Image directory reload failed", logger.FieldPath, iw.dir, logger.FieldError, err.Error())
		return
	}
	iw.store.SetImages(images)
	iw.logger.Debugw("Image directory reloaded", logger.FieldPath, iw.dir, logger.FieldCount, len(images))
}

func (iw *imageWatcher) Close() error {
	iw.mu.Lock()
	if iw.timer != nil {
		iw.timer.Stop()
	}
	iw.mu.Unlock()
	err := iw.watcher.Close()
	<-iw.done
	return err
}
